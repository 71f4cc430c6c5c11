// Package portutil frees TCP ports held by stale processes before a server
// attempts to bind them. Process discovery and termination shell out through
// an injectable command runner so the logic stays platform-agnostic and
// testable without real sockets.
package portutil

import (
	"context"
	"fmt"
	"log/slog"
	"strings"
	"time"

	"github.com/viant/gosh"
)

// Outcome describes the result of a reconciliation attempt.
type Outcome string

const (
	// AlreadyFree indicates no process was listening on the port.
	AlreadyFree Outcome = "already-free"
	// Freed indicates the listening process was terminated.
	Freed Outcome = "freed-by-kill"
	// KillFailed indicates a listening process could not be terminated.
	KillFailed Outcome = "kill-failed"
)

// ConflictError indicates a port could not be freed after repeated reconciliation.
type ConflictError struct {
	Port int
}

func (e *ConflictError) Error() string {
	return fmt.Sprintf("port %d is in use and could not be freed", e.Port)
}

// Runner abstracts command execution so tests can stub process discovery.
type Runner interface {
	Run(ctx context.Context, command string) (string, int, error)
}

// GoshRunner adapts a gosh.Service to the Runner interface.
type GoshRunner struct {
	Service *gosh.Service
}

func (r *GoshRunner) Run(ctx context.Context, command string) (string, int, error) {
	return r.Service.Run(ctx, command)
}

// Reconciler ensures a TCP port is free, terminating the owning process when needed.
type Reconciler interface {
	EnsureFree(ctx context.Context, port int) (Outcome, error)
}

type reconciler struct {
	runner Runner
	wait   time.Duration
	logger *slog.Logger
}

// Option customises a reconciler.
type Option func(r *reconciler)

// WithReleaseWait overrides the post-kill wait for the OS to release the socket.
func WithReleaseWait(wait time.Duration) Option {
	return func(r *reconciler) {
		r.wait = wait
	}
}

// WithLogger sets the diagnostic logger.
func WithLogger(logger *slog.Logger) Option {
	return func(r *reconciler) {
		r.logger = logger
	}
}

// New creates a reconciler executing platform commands through the supplied runner.
func New(runner Runner, options ...Option) Reconciler {
	ret := &reconciler{runner: runner, wait: time.Second, logger: slog.Default()}
	for _, option := range options {
		option(ret)
	}
	return ret
}

// EnsureFree terminates any process listening on port and waits briefly for
// the OS to release the socket. Calling it on an already free port is a no-op.
func (r *reconciler) EnsureFree(ctx context.Context, port int) (Outcome, error) {
	output, code, err := r.runner.Run(ctx, listCommand(port))
	if err != nil {
		// a runner failure means discovery is inconclusive; proceed to bind
		// and let the caller's retry surface a genuine conflict
		r.logger.Debug("listener discovery failed", "port", port, "error", err)
		return AlreadyFree, nil
	}
	if code != 0 {
		// discovery commands exit non-zero when no listener matches
		return AlreadyFree, nil
	}
	pids := parsePIDs(output, port)
	if len(pids) == 0 {
		return AlreadyFree, nil
	}
	r.logger.Warn("port in use, terminating owner", "port", port, "pids", pids)
	for _, pid := range pids {
		if _, code, err := r.runner.Run(ctx, killCommand(pid)); err != nil || code != 0 {
			return KillFailed, fmt.Errorf("failed to terminate pid %s on port %d: %w", pid, port, err)
		}
	}
	select {
	case <-time.After(r.wait):
	case <-ctx.Done():
		return Freed, ctx.Err()
	}
	return Freed, nil
}

func lines(output string) []string {
	var ret []string
	for _, line := range strings.Split(output, "\n") {
		line = strings.TrimSpace(line)
		if line == "" {
			continue
		}
		ret = append(ret, line)
	}
	return ret
}
