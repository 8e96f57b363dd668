package scriptrunner

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"os"
	"os/exec"
	"strings"
	"time"
)

const defaultTimeout = 60 * time.Second

// Option configures a Runner.
type Option func(*Runner)

// WithTimeout overrides the per-invocation wall-clock budget (default 60s).
func WithTimeout(d time.Duration) Option {
	return func(r *Runner) {
		if d > 0 {
			r.timeout = d
		}
	}
}

// WithLogger configures structured logging for the runner.
func WithLogger(logger *slog.Logger) Option {
	return func(r *Runner) {
		if logger != nil {
			r.logger = logger
		}
	}
}

// Runner executes external scripts with a bounded lifetime.
type Runner struct {
	timeout time.Duration
	logger  *slog.Logger
}

// New creates a Runner with the given options.
func New(opts ...Option) *Runner {
	r := &Runner{
		timeout: defaultTimeout,
		logger:  slog.New(slog.NewTextHandler(io.Discard, nil)),
	}
	for _, opt := range opts {
		opt(r)
	}
	return r
}

// Run executes path with the whitespace-separated argument string and the
// extra environment variables, returning the exit code and the combined
// stdout+stderr. A non-zero exit code is reported through the return value,
// not as an error; err is non-nil only when the process could not be run at
// all (in which case the exit code is -1).
func (r *Runner) Run(ctx context.Context, path, args string, env map[string]string) (int, string, error) {
	ctx, cancel := context.WithTimeout(ctx, r.timeout)
	defer cancel()

	cmd := exec.CommandContext(ctx, path, strings.Fields(args)...)
	cmd.Env = os.Environ()
	for k, v := range env {
		cmd.Env = append(cmd.Env, fmt.Sprintf("%s=%s", strings.TrimSpace(k), strings.TrimSpace(v)))
	}

	var output bytes.Buffer
	cmd.Stdout = &output
	cmd.Stderr = &output

	err := cmd.Run()
	if err != nil {
		var exitErr *exec.ExitError
		if errors.As(err, &exitErr) {
			r.logger.DebugContext(ctx, "script exited non-zero",
				slog.String("path", path),
				slog.Int("exit_code", exitErr.ExitCode()))
			return exitErr.ExitCode(), output.String(), nil
		}
		return -1, output.String(), fmt.Errorf("run %s: %w", path, err)
	}

	r.logger.DebugContext(ctx, "script completed", slog.String("path", path))
	return 0, output.String(), nil
}
