// Package engine is the entry point used by the CLI: it fans queries out
// over the available managers, deduplicates them, and runs operations.
package engine

import (
	"context"
	"fmt"
	"log/slog"
	"strings"
	"sync"
	"time"

	"unipkg/internal/config"
	"unipkg/pkg/manager"
	"unipkg/pkg/operation"
	"unipkg/pkg/recycler"
)

// DefaultListingRetention is how long installed and update listings are reused.
const DefaultListingRetention = 5 * time.Second

// IgnoredStore is the ignored-updates store with listing support.
type IgnoredStore interface {
	manager.IgnoredUpdates

	// All returns every entry, keyed by manager\id.
	All() (map[string]string, error)
}

// Engine answers package queries across managers and executes operations.
type Engine struct {
	registry  *manager.Registry
	runner    *operation.Runner
	ignored   IgnoredStore
	log       *slog.Logger
	retention time.Duration

	search    *recycler.Recycler[[]*manager.Package]
	installed *recycler.Recycler[[]*manager.Package]
	updates   *recycler.Recycler[[]*manager.Package]
	versions  *recycler.Recycler[[]string]
}

// New creates an Engine. ignored may be nil, in which case nothing is ignored.
func New(registry *manager.Registry, runner *operation.Runner, ignored IgnoredStore, cfg *config.Config, log *slog.Logger) *Engine {
	if cfg == nil {
		cfg = config.Default()
	}
	if log == nil {
		log = slog.Default()
	}
	retention := cfg.ListingRetention()
	if retention <= 0 {
		retention = DefaultListingRetention
	}
	return &Engine{
		registry:  registry,
		runner:    runner,
		ignored:   ignored,
		log:       log,
		retention: retention,
		search:    recycler.New[[]*manager.Package](),
		installed: recycler.New[[]*manager.Package](),
		updates:   recycler.New[[]*manager.Package](),
		versions:  recycler.New[[]string](),
	}
}

// Managers returns the available managers, restricted to names when given.
// A name may also be a manager type ("native", "language").
func (e *Engine) Managers(names ...string) ([]manager.Manager, error) {
	if len(names) == 0 {
		return e.registry.Available(), nil
	}
	var out []manager.Manager
	seen := make(map[string]bool)
	for _, name := range names {
		mgr, err := e.registry.GetManagerForSource(name)
		if err != nil {
			return nil, err
		}
		if !seen[mgr.Name()] {
			seen[mgr.Name()] = true
			out = append(out, mgr)
		}
	}
	return out, nil
}

// FindPackages searches every selected manager. Packages that are already
// installed are tagged TagAlreadyInstalled.
func (e *Engine) FindPackages(ctx context.Context, query string, managers ...string) ([]*manager.Package, error) {
	return e.fanOut(ctx, managers, func(ctx context.Context, mgr manager.Manager) ([]*manager.Package, error) {
		found, err := recycler.RunOrAttach2(ctx, e.search, e.find, mgr.Name(), query)
		if err != nil {
			return nil, err
		}
		installed, err := e.listInstalled(ctx, mgr.Name())
		if err != nil {
			e.log.Debug("cannot mark installed packages", "manager", mgr.Name(), "error", err)
			return found, nil
		}
		ids := make(map[string]bool, len(installed))
		for _, p := range installed {
			ids[strings.ToLower(p.ID)] = true
		}
		for _, p := range found {
			if p.Tag() == manager.TagDefault && ids[strings.ToLower(p.ID)] {
				p.SetTag(manager.TagAlreadyInstalled)
			}
		}
		return found, nil
	})
}

// GetInstalledPackages lists installed packages of every selected manager.
func (e *Engine) GetInstalledPackages(ctx context.Context, managers ...string) ([]*manager.Package, error) {
	return e.fanOut(ctx, managers, func(ctx context.Context, mgr manager.Manager) ([]*manager.Package, error) {
		return e.listInstalled(ctx, mgr.Name())
	})
}

// GetAvailableUpdates lists available updates of every selected manager,
// leaving out ignored ones.
func (e *Engine) GetAvailableUpdates(ctx context.Context, managers ...string) ([]*manager.Package, error) {
	return e.fanOut(ctx, managers, func(ctx context.Context, mgr manager.Manager) ([]*manager.Package, error) {
		updates, err := recycler.RunOrAttachOrCache1(ctx, e.updates, e.listUpdates, mgr.Name(), e.retention)
		if err != nil {
			return nil, err
		}
		kept := make([]*manager.Package, 0, len(updates))
		for _, p := range updates {
			if e.isIgnored(p) {
				continue
			}
			p.SetTag(manager.TagUpgradable)
			kept = append(kept, p)
		}
		return kept, nil
	})
}

// Execute runs op against pkg. Cached listings of the package's manager
// are dropped after a change took effect.
func (e *Engine) Execute(ctx context.Context, pkg *manager.Package, opts manager.InstallOptions, op manager.OperationType) (*operation.Outcome, error) {
	out, err := e.runner.Run(ctx, pkg, opts, op)
	if err != nil {
		return nil, err
	}
	if out.Succeeded() {
		e.Invalidate(pkg.Manager.Name())
	}
	return out, nil
}

// Invalidate drops the cached listings of a manager.
func (e *Engine) Invalidate(name string) {
	recycler.RemoveFromCache1(e.installed, e.loadInstalled, name)
	recycler.RemoveFromCache1(e.updates, e.listUpdates, name)
}

// InstallableVersions lists the versions pkg can be installed at, newest
// first, without blanks or duplicates. Strings that are not versions
// come last.
func (e *Engine) InstallableVersions(ctx context.Context, pkg *manager.Package) ([]string, error) {
	if !pkg.Manager.Capabilities().SupportsVersions {
		return nil, fmt.Errorf("%s: %w", pkg.Manager.Name(), manager.ErrUnsupported)
	}
	fetch := func(ctx context.Context, key string) ([]string, error) {
		return pkg.Manager.InstallableVersions(ctx, pkg)
	}
	shared, err := recycler.RunOrAttach1(ctx, e.versions, fetch, pkg.Key())
	if err != nil {
		return nil, err
	}
	return manager.SortVersionsDesc(shared), nil
}

// Sources lists the catalogs of a manager.
func (e *Engine) Sources(ctx context.Context, name string) ([]*manager.ManagerSource, error) {
	mgr, err := e.registry.GetManagerForSource(name)
	if err != nil {
		return nil, err
	}
	helper := mgr.SourceHelper()
	if helper == nil {
		return nil, fmt.Errorf("%s: %w", mgr.Name(), operation.ErrNoSources)
	}
	return helper.GetSources(ctx), nil
}

// AddSource adds a catalog to a manager.
func (e *Engine) AddSource(ctx context.Context, name, source, url string) (*operation.Outcome, error) {
	return e.editSource(ctx, name, source, url, operation.KindAddSource)
}

// RemoveSource removes a catalog from a manager.
func (e *Engine) RemoveSource(ctx context.Context, name, source string) (*operation.Outcome, error) {
	return e.editSource(ctx, name, source, "", operation.KindRemoveSource)
}

func (e *Engine) editSource(ctx context.Context, name, source, url, kind string) (*operation.Outcome, error) {
	mgr, err := e.registry.GetManagerForSource(name)
	if err != nil {
		return nil, err
	}
	helper := mgr.SourceHelper()
	if helper == nil {
		return nil, fmt.Errorf("%s: %w", mgr.Name(), operation.ErrNoSources)
	}
	src := helper.Known(source)
	if url != "" {
		src = manager.NewSource(mgr, source, url)
	}
	return e.runner.RunSource(ctx, mgr, src, kind)
}

// IgnoreUpdates ignores updates of pkg. An empty version ignores all of them.
func (e *Engine) IgnoreUpdates(pkg *manager.Package, ver string) error {
	if e.ignored == nil {
		return manager.ErrUnsupported
	}
	if ver == "" {
		ver = manager.IgnoreAllVersions
	}
	if err := e.ignored.Add(pkg.IgnoredID(), ver); err != nil {
		return fmt.Errorf("failed to ignore updates of %s: %w", pkg.ID, err)
	}
	return nil
}

// UnignoreUpdates removes the ignore entry of pkg.
func (e *Engine) UnignoreUpdates(pkg *manager.Package) error {
	if e.ignored == nil {
		return manager.ErrUnsupported
	}
	return e.ignored.Remove(pkg.IgnoredID())
}

// IgnoredUpdates returns every ignore entry keyed by manager\id.
func (e *Engine) IgnoredUpdates() (map[string]string, error) {
	if e.ignored == nil {
		return map[string]string{}, nil
	}
	return e.ignored.All()
}

// Stats reports the deduplication counters of each query cache.
func (e *Engine) Stats() map[string]recycler.Stats {
	return map[string]recycler.Stats{
		"search":    e.search.Stats(),
		"installed": e.installed.Stats(),
		"updates":   e.updates.Stats(),
		"versions":  e.versions.Stats(),
	}
}

func (e *Engine) isIgnored(p *manager.Package) bool {
	if e.ignored == nil {
		return false
	}
	v, ok := e.ignored.Version(p.IgnoredID())
	return ok && (v == manager.IgnoreAllVersions || v == p.NewVersion())
}

func (e *Engine) find(ctx context.Context, name, query string) ([]*manager.Package, error) {
	mgr, ok := e.registry.Get(name)
	if !ok {
		return nil, manager.ErrManagerNotFound
	}
	return mgr.FindPackages(ctx, query)
}

func (e *Engine) listInstalled(ctx context.Context, name string) ([]*manager.Package, error) {
	return recycler.RunOrAttachOrCache1(ctx, e.installed, e.loadInstalled, name, e.retention)
}

func (e *Engine) loadInstalled(ctx context.Context, name string) ([]*manager.Package, error) {
	mgr, ok := e.registry.Get(name)
	if !ok {
		return nil, manager.ErrManagerNotFound
	}
	return mgr.ListInstalled(ctx)
}

func (e *Engine) listUpdates(ctx context.Context, name string) ([]*manager.Package, error) {
	mgr, ok := e.registry.Get(name)
	if !ok {
		return nil, manager.ErrManagerNotFound
	}
	return mgr.ListUpdates(ctx)
}

// fanOut runs query on every selected manager concurrently and
// concatenates the results in manager priority order. Failing managers
// are logged and skipped.
func (e *Engine) fanOut(ctx context.Context, names []string, query func(context.Context, manager.Manager) ([]*manager.Package, error)) ([]*manager.Package, error) {
	managers, err := e.Managers(names...)
	if err != nil {
		return nil, err
	}

	results := make([][]*manager.Package, len(managers))
	var wg sync.WaitGroup
	for i, mgr := range managers {
		wg.Add(1)
		go func() {
			defer wg.Done()
			pkgs, err := query(ctx, mgr)
			if err != nil {
				e.log.Warn("package manager query failed", "manager", mgr.Name(), "error", err)
				return
			}
			results[i] = pkgs
		}()
	}
	wg.Wait()

	var all []*manager.Package
	for _, pkgs := range results {
		all = append(all, pkgs...)
	}
	return all, ctx.Err()
}
