// Package backend supervises the code analysis backend process and provides
// the retrying HTTP client used to reach it. The backend is expected to run
// indefinitely; it is spawned once at startup, watched for unexpected exit,
// and never restarted silently.
package backend

import (
	"bufio"
	"context"
	"fmt"
	"log/slog"
	"os"
	"strings"
	"sync"
	"time"
)

// State captures the backend process lifecycle. Transitions are monotonic:
// NotStarted → Starting → Ready → {Stopped | Crashed}.
type State int32

const (
	StateNotStarted State = iota
	StateStarting
	StateReady
	StateStopped
	StateCrashed
)

func (s State) String() string {
	switch s {
	case StateNotStarted:
		return "not-started"
	case StateStarting:
		return "starting"
	case StateReady:
		return "ready"
	case StateStopped:
		return "stopped"
	case StateCrashed:
		return "crashed"
	}
	return "unknown"
}

// StartError indicates the backend executable could not be located, spawned,
// or did not signal readiness in time. It is fatal at startup.
type StartError struct {
	Reason string
	Err    error
}

func (e *StartError) Error() string {
	if e.Err != nil {
		return fmt.Sprintf("failed to start backend: %s: %v", e.Reason, e.Err)
	}
	return fmt.Sprintf("failed to start backend: %s", e.Reason)
}

func (e *StartError) Unwrap() error {
	return e.Err
}

// activeEnvVar marks the backend environment so the backend does not try to
// spawn this bridge recursively.
const activeEnvVar = "CODEBRIDGE_ACTIVE"

// SupervisorConfig configures the backend supervisor.
type SupervisorConfig struct {
	// Command overrides executable discovery when set.
	Command string
	Args    []string
	Port    int
	// ReadyMarker is the stdout substring signalling readiness.
	ReadyMarker  string
	ReadyTimeout time.Duration
}

// Supervisor owns the single backend process instance. At most one process is
// ever in Starting or Ready state; callers never touch the process handle
// directly.
type Supervisor struct {
	config   SupervisorConfig
	launcher Launcher
	logger   *slog.Logger

	mux          sync.Mutex
	state        State
	process      Process
	shuttingDown bool
	onFailure    func(err error)
}

// SupervisorOption customises a Supervisor.
type SupervisorOption func(s *Supervisor)

// WithLauncher substitutes the process launcher; used by tests.
func WithLauncher(launcher Launcher) SupervisorOption {
	return func(s *Supervisor) {
		s.launcher = launcher
	}
}

// WithOnFailure registers a callback invoked when the backend exits
// unexpectedly after reaching Ready.
func WithOnFailure(callback func(err error)) SupervisorOption {
	return func(s *Supervisor) {
		s.onFailure = callback
	}
}

// WithSupervisorLogger sets the diagnostic logger.
func WithSupervisorLogger(logger *slog.Logger) SupervisorOption {
	return func(s *Supervisor) {
		s.logger = logger
	}
}

// NewSupervisor creates a Supervisor; the process is not started until Start.
func NewSupervisor(config SupervisorConfig, options ...SupervisorOption) *Supervisor {
	ret := &Supervisor{
		config:   config,
		launcher: &ExecLauncher{},
		logger:   slog.Default(),
		state:    StateNotStarted,
	}
	for _, option := range options {
		option(ret)
	}
	return ret
}

// State returns the current lifecycle state.
func (s *Supervisor) State() State {
	s.mux.Lock()
	defer s.mux.Unlock()
	return s.state
}

// Start locates and spawns the backend, then blocks until the readiness
// marker appears on its stdout or the readiness timeout elapses. On failure
// the state is Crashed and a *StartError is returned.
func (s *Supervisor) Start(ctx context.Context) error {
	s.mux.Lock()
	if s.state != StateNotStarted {
		s.mux.Unlock()
		return &StartError{Reason: fmt.Sprintf("backend already %v", s.state)}
	}
	s.state = StateStarting
	s.mux.Unlock()

	command := s.config.Command
	if command == "" {
		var err error
		if command, err = LocateExecutable(); err != nil {
			s.transition(StateCrashed)
			return &StartError{Reason: "executable not found", Err: err}
		}
	}
	env := s.environment()
	process, err := s.launcher.Launch(ctx, command, s.config.Args, env)
	if err != nil {
		s.transition(StateCrashed)
		return &StartError{Reason: fmt.Sprintf("failed to spawn %v", command), Err: err}
	}
	s.mux.Lock()
	s.process = process
	s.mux.Unlock()
	s.logger.Info("backend starting", "command", command, "pid", process.Pid())

	ready := make(chan struct{})
	exited := make(chan error, 1)
	go s.scanOutput(process, ready)
	go s.watchExit(process, exited)

	select {
	case <-ready:
		s.transition(StateReady)
		s.logger.Info("backend ready", "pid", process.Pid())
		return nil
	case err := <-exited:
		s.transition(StateCrashed)
		return &StartError{Reason: "backend exited before readiness", Err: err}
	case <-time.After(s.config.ReadyTimeout):
		_ = process.Kill()
		s.transition(StateCrashed)
		return &StartError{Reason: fmt.Sprintf("backend not ready within %v", s.config.ReadyTimeout)}
	case <-ctx.Done():
		_ = process.Kill()
		s.transition(StateCrashed)
		return &StartError{Reason: "startup cancelled", Err: ctx.Err()}
	}
}

// Stop flags shutdown first so the exit watcher does not misreport a crash,
// then signals the child and transitions to Stopped. A supervisor already in a
// terminal state is left untouched; Crashed stays Crashed.
func (s *Supervisor) Stop() {
	s.mux.Lock()
	if s.shuttingDown || s.process == nil || (s.state != StateStarting && s.state != StateReady) {
		s.mux.Unlock()
		return
	}
	s.shuttingDown = true
	process := s.process
	s.mux.Unlock()

	if err := process.Terminate(); err != nil {
		s.logger.Warn("failed to signal backend, killing", "error", err)
		_ = process.Kill()
	}
	s.transition(StateStopped)
	s.logger.Info("backend stopped")
}

func (s *Supervisor) environment() []string {
	env := []string{
		activeEnvVar + "=1",
		fmt.Sprintf("PORT=%d", s.config.Port),
	}
	for _, name := range []string{"PATH", "HOME", "TMPDIR", "SystemRoot"} {
		if value := os.Getenv(name); value != "" {
			env = append(env, name+"="+value)
		}
	}
	return env
}

// scanOutput scans the child's output for the readiness marker and keeps
// draining afterwards so the child never blocks on a full pipe.
func (s *Supervisor) scanOutput(process Process, ready chan<- struct{}) {
	scanner := bufio.NewScanner(process.Output())
	scanner.Buffer(make([]byte, 0, 64*1024), 1024*1024)
	signalled := false
	for scanner.Scan() {
		line := scanner.Text()
		s.logger.Debug("backend output", "line", line)
		if !signalled && strings.Contains(line, s.config.ReadyMarker) {
			signalled = true
			close(ready)
		}
	}
}

// watchExit waits for the process to exit and classifies the exit as an
// orderly stop or a crash. Exit code 0 outside shutdown still counts as a
// crash since the backend is expected to run indefinitely.
func (s *Supervisor) watchExit(process Process, exited chan<- error) {
	err := process.Wait()

	s.mux.Lock()
	shuttingDown := s.shuttingDown
	state := s.state
	s.mux.Unlock()

	if shuttingDown {
		return
	}
	if err == nil {
		err = fmt.Errorf("backend exited unexpectedly with status 0")
	} else {
		err = fmt.Errorf("backend exited unexpectedly: %w", err)
	}
	switch state {
	case StateStarting:
		exited <- err
	case StateReady:
		s.transition(StateCrashed)
		s.logger.Error("backend crashed", "error", err)
		if s.onFailure != nil {
			s.onFailure(err)
		}
	}
}

func (s *Supervisor) transition(next State) {
	s.mux.Lock()
	defer s.mux.Unlock()
	s.state = next
}
