package operation

import (
	"context"
	"errors"
	"log/slog"
	"sync"
	"time"

	"github.com/google/uuid"

	"unipkg/internal/config"
	"unipkg/internal/executor"
	"unipkg/pkg/manager"
)

// ErrNoSources is returned by RunSource for managers without catalogs.
var ErrNoSources = errors.New("package manager does not manage sources")

// Runner executes operations. Attempts against the same package (or the
// same source) run one at a time; different packages run independently.
type Runner struct {
	exec     executor.Runner
	cfg      *config.Config
	log      *slog.Logger
	recorder Recorder
	onLine   func(attempt int, line executor.Line)

	locks keyedMutex
}

// Option configures a Runner.
type Option func(*Runner)

// WithLogger sets the logger.
func WithLogger(log *slog.Logger) Option {
	return func(r *Runner) {
		if log != nil {
			r.log = log
		}
	}
}

// WithRecorder persists every finished outcome.
func WithRecorder(rec Recorder) Option {
	return func(r *Runner) { r.recorder = rec }
}

// WithLineHandler streams output lines while attempts run.
func WithLineHandler(fn func(attempt int, line executor.Line)) Option {
	return func(r *Runner) { r.onLine = fn }
}

// New creates a Runner. A nil cfg uses the defaults.
func New(exec executor.Runner, cfg *config.Config, opts ...Option) *Runner {
	if cfg == nil {
		cfg = config.Default()
	}
	r := &Runner{
		exec: exec,
		cfg:  cfg,
		log:  slog.Default(),
	}
	for _, opt := range opts {
		opt(r)
	}
	return r
}

// Run installs, updates or uninstalls pkg. The returned error is reserved
// for requests that could not be turned into a command line; everything
// that happens once processes run is reported through the Outcome.
func (r *Runner) Run(ctx context.Context, pkg *manager.Package, opts manager.InstallOptions, op manager.OperationType) (*Outcome, error) {
	if pkg == nil || pkg.Manager == nil {
		return nil, errors.New("package has no manager")
	}
	mgr := pkg.Manager
	helper := mgr.OperationHelper()

	unlock := r.locks.lock(pkg.Key())
	defer unlock()

	previous := pkg.Tag()
	pkg.SetTag(manager.TagProcessing)

	alwaysElevate := r.cfg.GetManagerConfig(mgr.Name()).AlwaysElevate
	out := r.newOutcome(mgr, pkg.Key(), op.String())
	log := r.log.With("operation", out.ID, "manager", mgr.Name(), "package", pkg.ID, "kind", op)

	for n := 1; ; n++ {
		if ctx.Err() != nil {
			out.Verdict = manager.VerdictCanceled
			break
		}

		args, err := helper.Parameters(pkg, opts, op)
		if err != nil {
			pkg.SetTag(previous)
			return nil, err
		}
		// Parameters may set overrides, so elevation is decided afterwards.
		elevate := alwaysElevate || pkg.EffectiveOptions(opts).RunAsAdministrator

		before := pkg.Overrides()
		attempt := r.launch(ctx, n, executor.Request{Name: mgr.Executable(), Args: args, Elevate: elevate})
		switch {
		case ctx.Err() != nil:
			// The process was killed; its exit code says nothing.
			attempt.Verdict = manager.VerdictCanceled
		case attempt.Err != "":
			attempt.Verdict = manager.VerdictFailed
		default:
			attempt.Verdict = helper.Result(pkg, opts, op, attempt.Output, attempt.ExitCode)
		}

		if attempt.Verdict == manager.VerdictAutoRetry {
			switch {
			case pkg.Overrides().Equal(before):
				log.Warn("auto-retry requested without changing the package options", "attempt", n)
				attempt.Verdict = manager.VerdictFailed
			case n >= r.cfg.MaxAttempts():
				log.Warn("attempt limit reached", "attempts", n)
				attempt.Verdict = manager.VerdictFailed
			}
		}
		out.Attempts = append(out.Attempts, attempt)
		log.Info("attempt finished", "attempt", n, "exit_code", attempt.ExitCode, "verdict", attempt.Verdict, "elevated", elevate)

		if attempt.Verdict.IsTerminal() {
			out.Verdict = attempt.Verdict
			break
		}
	}

	pkg.SetTag(finalTag(previous, op, out.Verdict))
	if out.Verdict == manager.VerdictFailed {
		out.Hint = explain(mgr, out.Last())
	}
	r.finish(out, log)
	return out, nil
}

// RunSource adds or removes src. kind is KindAddSource or KindRemoveSource.
func (r *Runner) RunSource(ctx context.Context, mgr manager.Manager, src *manager.ManagerSource, kind string) (*Outcome, error) {
	sources := mgr.SourceHelper()
	if sources == nil {
		return nil, ErrNoSources
	}
	var params func(*manager.ManagerSource) []string
	var verdict func(*manager.ManagerSource, []string, int) manager.Verdict
	switch kind {
	case KindAddSource:
		params, verdict = sources.AddParameters, sources.AddVerdict
	case KindRemoveSource:
		params, verdict = sources.RemoveParameters, sources.RemoveVerdict
	default:
		return nil, manager.ErrInvalidOperation
	}

	unlock := r.locks.lock("source:" + mgr.Name() + `\` + src.Name)
	defer unlock()

	elevate := mgr.Capabilities().SourcesNeedAdmin || r.cfg.GetManagerConfig(mgr.Name()).AlwaysElevate
	out := r.newOutcome(mgr, src.Name, kind)
	log := r.log.With("operation", out.ID, "manager", mgr.Name(), "source", src.Name, "kind", kind)

	for n := 1; ; n++ {
		if ctx.Err() != nil {
			out.Verdict = manager.VerdictCanceled
			break
		}
		attempt := r.launch(ctx, n, executor.Request{Name: mgr.Executable(), Args: params(src), Elevate: elevate})
		switch {
		case ctx.Err() != nil:
			// The killed process may have changed the catalogs already.
			sources.Invalidate()
			attempt.Verdict = manager.VerdictCanceled
		case attempt.Err != "":
			attempt.Verdict = manager.VerdictFailed
		default:
			attempt.Verdict = verdict(src, attempt.Output, attempt.ExitCode)
		}
		if attempt.Verdict == manager.VerdictAutoRetry && n >= r.cfg.MaxAttempts() {
			log.Warn("attempt limit reached", "attempts", n)
			attempt.Verdict = manager.VerdictFailed
		}
		out.Attempts = append(out.Attempts, attempt)
		log.Info("attempt finished", "attempt", n, "exit_code", attempt.ExitCode, "verdict", attempt.Verdict)

		if attempt.Verdict.IsTerminal() {
			out.Verdict = attempt.Verdict
			break
		}
	}

	if out.Verdict == manager.VerdictFailed {
		out.Hint = explain(mgr, out.Last())
	}
	r.finish(out, log)
	return out, nil
}

func (r *Runner) newOutcome(mgr manager.Manager, target, kind string) *Outcome {
	return &Outcome{
		ID:      uuid.NewString(),
		Manager: mgr.Name(),
		Target:  target,
		Kind:    kind,
		Started: time.Now(),
	}
}

// launch runs one attempt. Launch failures are reported in Attempt.Err
// only, never in the process output.
func (r *Runner) launch(ctx context.Context, n int, req executor.Request) Attempt {
	a := Attempt{
		Number:   n,
		Command:  append([]string{req.Name}, req.Args...),
		Elevated: req.Elevate,
		Started:  time.Now(),
	}
	if r.onLine != nil {
		req.OnLine = func(l executor.Line) { r.onLine(n, l) }
	}

	res, err := r.exec.Run(ctx, req)
	a.Finished = time.Now()
	a.ExitCode = res.ExitCode
	a.Output = res.Output()
	if err != nil {
		a.Err = err.Error()
	}
	return a
}

func (r *Runner) finish(out *Outcome, log *slog.Logger) {
	out.Finished = time.Now()
	log.Info("operation finished", "verdict", out.Verdict, "attempts", len(out.Attempts), "duration", out.Duration())
	if r.recorder == nil {
		return
	}
	if err := r.recorder.Record(out); err != nil {
		log.Warn("failed to record operation", "error", err)
	}
}

func explain(mgr manager.Manager, last *Attempt) string {
	ex, ok := mgr.(manager.Explainer)
	if !ok || last == nil {
		return ""
	}
	return ex.Explain(last.Output, last.ExitCode)
}

func finalTag(previous manager.Tag, op manager.OperationType, v manager.Verdict) manager.Tag {
	switch {
	case v.IsSuccess() && op == manager.OperationInstall:
		return manager.TagAlreadyInstalled
	case v.IsSuccess():
		return manager.TagDefault
	case v == manager.VerdictFailed:
		return manager.TagFailed
	}
	return previous
}

// keyedMutex serialises work per key. Entries are dropped once unused.
type keyedMutex struct {
	mu    sync.Mutex
	locks map[string]*refMutex
}

type refMutex struct {
	sync.Mutex
	refs int
}

func (k *keyedMutex) lock(key string) (unlock func()) {
	k.mu.Lock()
	if k.locks == nil {
		k.locks = make(map[string]*refMutex)
	}
	m, ok := k.locks[key]
	if !ok {
		m = &refMutex{}
		k.locks[key] = m
	}
	m.refs++
	k.mu.Unlock()

	m.Lock()
	return func() {
		m.Unlock()
		k.mu.Lock()
		m.refs--
		if m.refs == 0 {
			delete(k.locks, key)
		}
		k.mu.Unlock()
	}
}
