// Package executor spawns package-manager processes and captures their output.
package executor

import (
	"bufio"
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"os"
	"os/exec"
	"strings"
	"sync"
)

// Stream identifies where a captured line came from.
type Stream int

const (
	Stdout Stream = iota
	Stderr
)

// Line is one captured output line.
type Line struct {
	Stream Stream
	Text   string
}

// Request describes one process launch. Args are passed to the process
// as-is; no shell is involved.
type Request struct {
	Name    string
	Args    []string
	Elevate bool
	Dir     string

	// OnLine, when set, is called for every line as it arrives.
	OnLine func(Line)
}

// Result is the outcome of a process that ran to completion.
type Result struct {
	ExitCode int
	Lines    []Line // stdout and stderr interleaved in arrival order
}

// Output returns the text of every captured line.
func (r Result) Output() []string {
	out := make([]string, len(r.Lines))
	for i, l := range r.Lines {
		out[i] = l.Text
	}
	return out
}

// Stdout returns the text of the stdout lines only.
func (r Result) Stdout() []string {
	out := make([]string, 0, len(r.Lines))
	for _, l := range r.Lines {
		if l.Stream == Stdout {
			out = append(out, l.Text)
		}
	}
	return out
}

// Runner launches processes. Executor is the real implementation; tests
// substitute fakes.
type Runner interface {
	Run(ctx context.Context, req Request) (Result, error)
}

// Executor handles command execution with optional elevation.
type Executor struct {
	dryRun  bool
	verbose bool
	out     io.Writer
	log     *slog.Logger
}

// New creates a new Executor with the given options.
func New(dryRun, verbose bool) *Executor {
	return &Executor{
		dryRun:  dryRun,
		verbose: verbose,
		out:     os.Stdout,
		log:     slog.Default(),
	}
}

// SetDryRun enables or disables dry-run mode.
func (e *Executor) SetDryRun(dryRun bool) {
	e.dryRun = dryRun
}

// SetVerbose enables or disables verbose mode.
func (e *Executor) SetVerbose(verbose bool) {
	e.verbose = verbose
}

// SetLogger replaces the logger used for launch diagnostics.
func (e *Executor) SetLogger(log *slog.Logger) {
	if log != nil {
		e.log = log
	}
}

// SetOutput redirects dry-run and verbose messages.
func (e *Executor) SetOutput(w io.Writer) {
	e.out = w
}

// Run starts the process, captures its output line by line and waits for
// it to exit. A non-zero exit is reported through Result.ExitCode, not as
// an error; the error is reserved for failures to launch or wait.
func (e *Executor) Run(ctx context.Context, req Request) (Result, error) {
	name, args, err := e.commandLine(req)
	if err != nil {
		return Result{ExitCode: -1}, err
	}

	if e.dryRun {
		msg := fmt.Sprintf("[dry-run] Would execute: %s %s", name, strings.Join(args, " "))
		fmt.Fprintln(e.out, msg)
		return Result{Lines: []Line{{Stream: Stdout, Text: msg}}}, nil
	}

	if e.verbose {
		fmt.Fprintf(e.out, "Executing: %s %s\n", name, strings.Join(args, " "))
	}
	e.log.Debug("starting process", "name", name, "args", args, "elevated", req.Elevate)

	cmd := exec.CommandContext(ctx, name, args...)
	cmd.Dir = req.Dir

	stdout, err := cmd.StdoutPipe()
	if err != nil {
		return Result{ExitCode: -1}, err
	}
	stderr, err := cmd.StderrPipe()
	if err != nil {
		return Result{ExitCode: -1}, err
	}

	if err := cmd.Start(); err != nil {
		return Result{ExitCode: -1}, fmt.Errorf("failed to start %s: %w", name, err)
	}

	c := &collector{onLine: req.OnLine}
	var wg sync.WaitGroup
	wg.Add(2)
	go c.scan(&wg, stdout, Stdout)
	go c.scan(&wg, stderr, Stderr)
	wg.Wait()

	res := Result{Lines: c.lines}
	if err := cmd.Wait(); err != nil {
		var exitErr *exec.ExitError
		if errors.As(err, &exitErr) {
			res.ExitCode = exitErr.ExitCode()
			return res, nil
		}
		res.ExitCode = -1
		return res, err
	}
	return res, nil
}

// Output runs an unelevated query and returns its stdout lines. A non-zero
// exit is an error.
func (e *Executor) Output(ctx context.Context, name string, args ...string) ([]string, error) {
	res, err := e.Run(ctx, Request{Name: name, Args: args})
	if err != nil {
		return nil, err
	}
	if res.ExitCode != 0 {
		return res.Stdout(), &ExitError{Name: name, Code: res.ExitCode, Output: res.Output()}
	}
	return res.Stdout(), nil
}

// OutputAny runs an unelevated query and returns its stdout lines
// whatever the exit code. Some managers exit non-zero on empty results.
func (e *Executor) OutputAny(ctx context.Context, name string, args ...string) ([]string, error) {
	res, err := e.Run(ctx, Request{Name: name, Args: args})
	if err != nil {
		return nil, err
	}
	return res.Stdout(), nil
}

func (e *Executor) commandLine(req Request) (string, []string, error) {
	if !req.Elevate || isRoot() {
		return req.Name, req.Args, nil
	}
	elevator, ok := findElevator()
	switch {
	case !ok && e.dryRun:
		elevator = "sudo"
	case !ok:
		return "", nil, ErrNoPrivileges
	}
	return elevator, append([]string{req.Name}, req.Args...), nil
}

// ExitError reports a query that exited with a non-zero code.
type ExitError struct {
	Name   string
	Code   int
	Output []string
}

func (e *ExitError) Error() string {
	return fmt.Sprintf("%s exited with code %d", e.Name, e.Code)
}

// collector gathers lines from both pipes in arrival order.
type collector struct {
	mu     sync.Mutex
	lines  []Line
	onLine func(Line)
}

func (c *collector) scan(wg *sync.WaitGroup, r io.Reader, stream Stream) {
	defer wg.Done()

	scanner := bufio.NewScanner(r)
	scanner.Buffer(make([]byte, 64*1024), 4*1024*1024)
	for scanner.Scan() {
		text := strings.ToValidUTF8(strings.TrimRight(scanner.Text(), "\r"), "�")
		line := Line{Stream: stream, Text: text}

		c.mu.Lock()
		c.lines = append(c.lines, line)
		if c.onLine != nil {
			c.onLine(line)
		}
		c.mu.Unlock()
	}
	// drain whatever is left so the process never blocks on a full pipe
	_, _ = io.Copy(io.Discard, r)
}
