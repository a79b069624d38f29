package manager

import (
	"context"
	"errors"
	"strings"
	"sync"
	"sync/atomic"
	"testing"
	"time"
)

// fakeSourceBackend counts listing invocations.
type fakeSourceBackend struct {
	owner   Manager
	loads   atomic.Int32
	fail    error
	lines   []string
	verdict Verdict
}

func (f *fakeSourceBackend) LoadSources(_ context.Context) ([]*ManagerSource, error) {
	f.loads.Add(1)
	if f.fail != nil {
		return nil, f.fail
	}
	return ParseSourceLines(f.lines, nil, func(line string) (*ManagerSource, error) {
		if line == "" {
			return nil, nil
		}
		name, url, ok := strings.Cut(line, " ")
		if !ok {
			return nil, errors.New("missing url")
		}
		return NewSource(f.owner, name, url), nil
	}), nil
}

func (f *fakeSourceBackend) AddSourceParameters(src *ManagerSource) []string {
	return []string{"source", "add", src.Name, src.URL}
}

func (f *fakeSourceBackend) RemoveSourceParameters(src *ManagerSource) []string {
	return []string{"source", "remove", src.Name}
}

func (f *fakeSourceBackend) AddSourceResult(_ *ManagerSource, _ []string, exitCode int) Verdict {
	if exitCode == 0 {
		return VerdictSucceeded
	}
	return VerdictFailed
}

func (f *fakeSourceBackend) RemoveSourceResult(_ *ManagerSource, _ []string, exitCode int) Verdict {
	if exitCode == 0 {
		return VerdictSucceeded
	}
	return VerdictFailed
}

func newTestSourceHelper(lines ...string) (*SourceHelper, *fakeSourceBackend) {
	mgr := &MockManager{name: "choco", displayName: "Chocolatey"}
	backend := &fakeSourceBackend{owner: mgr, lines: lines}
	return NewSourceHelper(mgr, backend, time.Minute, nil), backend
}

func TestGetSourcesCachedWithinRetention(t *testing.T) {
	helper, backend := newTestSourceHelper("community https://community.chocolatey.org/api/v2/", "internal https://nuget.corp/")
	ctx := context.Background()

	first := helper.GetSources(ctx)
	second := helper.GetSources(ctx)

	if backend.loads.Load() != 1 {
		t.Errorf("expected 1 listing, got %d", backend.loads.Load())
	}
	if len(first) != 2 || len(second) != 2 {
		t.Fatalf("unexpected listings %v / %v", first, second)
	}
	if first[0] != second[0] {
		t.Error("cached listing should return the same source instances")
	}
	if first[0].Name != "community" || first[1].Name != "internal" {
		t.Errorf("order not preserved: %s, %s", first[0].Name, first[1].Name)
	}
}

func TestAddVerdictEvictsSourceCache(t *testing.T) {
	helper, backend := newTestSourceHelper("community https://community.chocolatey.org/api/v2/")
	ctx := context.Background()

	helper.GetSources(ctx)
	helper.GetSources(ctx)
	if backend.loads.Load() != 1 {
		t.Fatalf("expected 1 listing before add, got %d", backend.loads.Load())
	}

	src := NewSource(backend.owner, "internal", "https://nuget.corp/")
	if v := helper.AddVerdict(src, []string{"Added internal"}, 0); v != VerdictSucceeded {
		t.Fatalf("AddVerdict() = %v, want succeeded", v)
	}

	backend.lines = append(backend.lines, "internal https://nuget.corp/")
	sources := helper.GetSources(ctx)
	if backend.loads.Load() != 2 {
		t.Errorf("expected listing to rerun after add, got %d loads", backend.loads.Load())
	}
	if len(sources) != 2 {
		t.Errorf("expected refreshed listing with 2 sources, got %d", len(sources))
	}
}

func TestRemoveVerdictEvictsAndRecognisesCancel(t *testing.T) {
	helper, backend := newTestSourceHelper("community https://community.chocolatey.org/api/v2/")
	ctx := context.Background()
	helper.GetSources(ctx)

	src := helper.Known("community")
	v := helper.RemoveVerdict(src, []string{"Elevating...", CancelLine}, CancelExitCode)
	if v != VerdictCanceled {
		t.Errorf("RemoveVerdict() = %v, want canceled", v)
	}

	helper.GetSources(ctx)
	if backend.loads.Load() != 2 {
		t.Errorf("cache should be evicted even on cancel, got %d loads", backend.loads.Load())
	}

	if v := helper.RemoveVerdict(src, []string{"not found"}, 1); v != VerdictFailed {
		t.Errorf("RemoveVerdict() = %v, want failed", v)
	}
}

func TestGetSourcesFailureYieldsEmptyList(t *testing.T) {
	helper, backend := newTestSourceHelper()
	backend.fail = errors.New("executable not found")

	sources := helper.GetSources(context.Background())
	if sources == nil || len(sources) != 0 {
		t.Errorf("expected empty non-nil list, got %v", sources)
	}
}

func TestGetSourcesConcurrentCallersShareOneListing(t *testing.T) {
	helper, backend := newTestSourceHelper("a https://a", "b https://b")

	var wg sync.WaitGroup
	for i := 0; i < 16; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			helper.GetSources(context.Background())
		}()
	}
	wg.Wait()

	if backend.loads.Load() != 1 {
		t.Errorf("expected 1 listing for concurrent callers, got %d", backend.loads.Load())
	}
}

func TestKnownSharesInstances(t *testing.T) {
	helper, _ := newTestSourceHelper("community https://community.chocolatey.org/api/v2/")
	listed := helper.GetSources(context.Background())

	if helper.Known("community") != listed[0] {
		t.Error("Known() should return the listed instance")
	}

	unknown := helper.Known("private")
	if unknown.URL != "" || unknown.Name != "private" {
		t.Errorf("unexpected placeholder source %+v", unknown)
	}
	if helper.Known("private") != unknown {
		t.Error("repeated lookups should share one placeholder")
	}
}

func TestParseSourceLinesContainsFailures(t *testing.T) {
	lines := []string{"good https://g", "broken", "panic", "", "also https://a"}

	sources := ParseSourceLines(lines, nil, func(line string) (*ManagerSource, error) {
		switch line {
		case "":
			return nil, nil
		case "panic":
			var parts []string
			_ = parts[3]
		}
		name, url, ok := strings.Cut(line, " ")
		if !ok {
			return nil, errors.New("no url")
		}
		return &ManagerSource{Name: name, URL: url}, nil
	})

	if len(sources) != 2 {
		t.Fatalf("expected 2 sources, got %d", len(sources))
	}
	if sources[0].Name != "good" || sources[1].Name != "also" {
		t.Errorf("unexpected sources %v, %v", sources[0].Name, sources[1].Name)
	}
}

func TestSourceParameters(t *testing.T) {
	helper, backend := newTestSourceHelper()
	src := NewSource(backend.owner, "internal", "https://nuget.corp/")

	if got := helper.AddParameters(src); strings.Join(got, " ") != "source add internal https://nuget.corp/" {
		t.Errorf("AddParameters() = %v", got)
	}
	if got := helper.RemoveParameters(src); strings.Join(got, " ") != "source remove internal" {
		t.Errorf("RemoveParameters() = %v", got)
	}
}
