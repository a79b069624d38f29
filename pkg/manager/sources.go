package manager

import (
	"context"
	"fmt"
	"log/slog"
	"sync"
	"time"

	"unipkg/pkg/recycler"
)

// DefaultSourceRetention is how long a source listing is reused.
const DefaultSourceRetention = 15 * time.Second

// SourceBackend is the per-manager part of a SourceHelper.
type SourceBackend interface {
	// LoadSources runs the manager's "list sources" command and parses it.
	// It may fail; SourceHelper contains the failure.
	LoadSources(ctx context.Context) ([]*ManagerSource, error)

	AddSourceParameters(src *ManagerSource) []string
	RemoveSourceParameters(src *ManagerSource) []string

	AddSourceResult(src *ManagerSource, output []string, exitCode int) Verdict
	RemoveSourceResult(src *ManagerSource, output []string, exitCode int) Verdict
}

// SourceHelper lists and edits a manager's catalogs. Listings are shared
// between concurrent callers and kept for a short retention window.
type SourceHelper struct {
	owner     Manager
	backend   SourceBackend
	retention time.Duration
	log       *slog.Logger

	cache *recycler.Recycler[[]*ManagerSource]

	mu    sync.RWMutex
	known map[string]*ManagerSource
}

// NewSourceHelper wraps backend for owner. A zero retention uses DefaultSourceRetention.
func NewSourceHelper(owner Manager, backend SourceBackend, retention time.Duration, log *slog.Logger) *SourceHelper {
	if retention <= 0 {
		retention = DefaultSourceRetention
	}
	if log == nil {
		log = slog.Default()
	}
	return &SourceHelper{
		owner:     owner,
		backend:   backend,
		retention: retention,
		log:       log,
		cache:     recycler.New[[]*ManagerSource](),
		known:     make(map[string]*ManagerSource),
	}
}

// GetSources returns the configured sources in the order the manager lists
// them. A failing listing is logged and yields an empty list.
func (h *SourceHelper) GetSources(ctx context.Context) []*ManagerSource {
	sources, err := h.cache.RunOrAttachOrCache(ctx, h.load, h.retention)
	if err != nil {
		h.log.Error("failed to list sources", "manager", h.ownerName(), "error", err)
		return []*ManagerSource{}
	}
	return sources
}

func (h *SourceHelper) load(ctx context.Context) ([]*ManagerSource, error) {
	sources, err := h.backend.LoadSources(ctx)
	if err != nil {
		return nil, err
	}
	if sources == nil {
		sources = []*ManagerSource{}
	}

	h.mu.Lock()
	h.known = make(map[string]*ManagerSource, len(sources))
	for _, s := range sources {
		h.known[s.Name] = s
	}
	h.mu.Unlock()

	h.log.Debug("loaded sources", "manager", h.ownerName(), "count", len(sources))
	return sources, nil
}

// Invalidate drops the cached listing so the next GetSources reruns the command.
func (h *SourceHelper) Invalidate() {
	h.cache.RemoveFromCache(h.load)
}

// Known returns the source called name from the last listing. Unknown
// names get a source without URL, which is remembered so repeated lookups
// share one instance.
func (h *SourceHelper) Known(name string) *ManagerSource {
	h.mu.RLock()
	s, ok := h.known[name]
	h.mu.RUnlock()
	if ok {
		return s
	}

	h.mu.Lock()
	defer h.mu.Unlock()
	if s, ok := h.known[name]; ok {
		return s
	}
	s = NewSource(h.owner, name, "")
	h.known[name] = s
	return s
}

// AddParameters returns the arguments that add src.
func (h *SourceHelper) AddParameters(src *ManagerSource) []string {
	return h.backend.AddSourceParameters(src)
}

// RemoveParameters returns the arguments that remove src.
func (h *SourceHelper) RemoveParameters(src *ManagerSource) []string {
	return h.backend.RemoveSourceParameters(src)
}

// AddVerdict classifies an add-source attempt. The cached listing is
// dropped whatever the outcome.
func (h *SourceHelper) AddVerdict(src *ManagerSource, output []string, exitCode int) Verdict {
	h.Invalidate()
	if IsCancelSentinel(exitCode, output) {
		h.log.Warn("elevation prompt was canceled", "manager", h.ownerName(), "source", src.Name)
		return VerdictCanceled
	}
	return h.backend.AddSourceResult(src, output, exitCode)
}

// RemoveVerdict classifies a remove-source attempt. The cached listing is
// dropped whatever the outcome.
func (h *SourceHelper) RemoveVerdict(src *ManagerSource, output []string, exitCode int) Verdict {
	h.Invalidate()
	if IsCancelSentinel(exitCode, output) {
		h.log.Warn("elevation prompt was canceled", "manager", h.ownerName(), "source", src.Name)
		return VerdictCanceled
	}
	return h.backend.RemoveSourceResult(src, output, exitCode)
}

// Stats exposes the listing cache counters.
func (h *SourceHelper) Stats() recycler.Stats {
	return h.cache.Stats()
}

func (h *SourceHelper) ownerName() string {
	if h.owner == nil {
		return ""
	}
	return h.owner.Name()
}

// ParseSourceLines applies parse to every line and collects the sources it
// returns. A line whose parse fails or panics is logged and skipped. A nil
// source with a nil error means the line carries no source (headers, blanks).
func ParseSourceLines(lines []string, log *slog.Logger, parse func(line string) (*ManagerSource, error)) []*ManagerSource {
	sources := make([]*ManagerSource, 0, len(lines))
	for i, line := range lines {
		src, err := parseLine(line, parse)
		if err != nil {
			if log != nil {
				log.Warn("skipping unparsable source line", "line", i+1, "text", line, "error", err)
			}
			continue
		}
		if src != nil {
			sources = append(sources, src)
		}
	}
	return sources
}

func parseLine(line string, parse func(string) (*ManagerSource, error)) (src *ManagerSource, err error) {
	defer func() {
		if p := recover(); p != nil {
			src, err = nil, fmt.Errorf("parser panicked: %v", p)
		}
	}()
	return parse(line)
}
