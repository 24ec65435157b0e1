package engine

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"log/slog"
	"os/exec"
	"strings"
	"time"
)

// DefaultTimeout bounds a single engine invocation when the caller's context
// carries no deadline of its own.
const DefaultTimeout = 30 * time.Second

// Runner executes engine invocations. A non-zero exit alone is not an error:
// the engine exits 1 when it finds violations. Callers classify the Result.
type Runner struct {
	logger  *slog.Logger
	timeout time.Duration
}

// RunnerOption configures a Runner.
type RunnerOption func(*Runner)

// WithTimeout overrides the default invocation timeout.
func WithTimeout(d time.Duration) RunnerOption {
	return func(r *Runner) { r.timeout = d }
}

// NewRunner creates a Runner.
func NewRunner(logger *slog.Logger, opts ...RunnerOption) *Runner {
	r := &Runner{logger: logger, timeout: DefaultTimeout}
	for _, o := range opts {
		o(r)
	}
	return r
}

// Run executes the engine with the given arguments, feeding source on stdin.
// It returns ErrTimeout when the deadline expires and the process is killed;
// context cancellation passes through unchanged so callers can tell a
// superseded request from a stuck engine.
func (r *Runner) Run(ctx context.Context, path string, args []string, cwd string, stdin string) (Result, error) {
	if _, ok := ctx.Deadline(); !ok {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, r.timeout)
		defer cancel()
	}

	start := time.Now()
	cmd := exec.CommandContext(ctx, path, args...)
	cmd.Dir = cwd
	cmd.Stdin = strings.NewReader(stdin)

	var stdout, stderr bytes.Buffer
	cmd.Stdout = &stdout
	cmd.Stderr = &stderr

	err := cmd.Run()
	result := Result{Stdout: stdout.Bytes(), Stderr: stderr.Bytes(), ExitCode: -1}
	if cmd.ProcessState != nil {
		result.ExitCode = cmd.ProcessState.ExitCode()
	}

	r.logger.Debug("engine invocation finished",
		"args", args,
		"exit", result.ExitCode,
		"duration", time.Since(start),
	)

	switch {
	case errors.Is(ctx.Err(), context.DeadlineExceeded):
		return result, fmt.Errorf("%w after %s: %s %s", ErrTimeout, time.Since(start).Round(time.Millisecond), path, strings.Join(args, " "))
	case ctx.Err() != nil:
		return result, ctx.Err()
	}

	var exitErr *exec.ExitError
	if err != nil && !errors.As(err, &exitErr) {
		// The process never ran (bad path, permissions).
		return result, fmt.Errorf("%w: starting %s: %v", ErrCrashed, path, err)
	}
	return result, nil
}
