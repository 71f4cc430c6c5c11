package backend

import (
	"context"
	"fmt"
	"io"
	"os"
	"os/exec"
	"path/filepath"
	"syscall"
)

// Process is a handle to a launched backend.
type Process interface {
	// Output streams the combined stdout/stderr of the process.
	Output() io.Reader
	// Terminate asks the process to exit.
	Terminate() error
	// Kill forcefully stops the process.
	Kill() error
	// Wait blocks until the process exits; a non-nil error reflects a
	// non-zero exit status.
	Wait() error
	Pid() int
}

// Launcher starts the backend executable. Supervisor tests substitute a fake
// launcher so state transitions can be exercised without real processes.
type Launcher interface {
	Launch(ctx context.Context, command string, args []string, env []string) (Process, error)
}

// ExecLauncher launches the backend with os/exec.
type ExecLauncher struct{}

type execProcess struct {
	cmd    *exec.Cmd
	output io.Reader
}

func (p *execProcess) Output() io.Reader {
	return p.output
}

func (p *execProcess) Terminate() error {
	return p.cmd.Process.Signal(syscall.SIGTERM)
}

func (p *execProcess) Kill() error {
	return p.cmd.Process.Kill()
}

func (p *execProcess) Wait() error {
	return p.cmd.Wait()
}

func (p *execProcess) Pid() int {
	return p.cmd.Process.Pid
}

// Launch starts command with the supplied environment; the child inherits
// nothing beyond env.
func (l *ExecLauncher) Launch(ctx context.Context, command string, args []string, env []string) (Process, error) {
	cmd := exec.Command(command, args...)
	cmd.Env = env
	stdout, err := cmd.StdoutPipe()
	if err != nil {
		return nil, err
	}
	cmd.Stderr = cmd.Stdout
	if err := cmd.Start(); err != nil {
		return nil, err
	}
	return &execProcess{cmd: cmd, output: stdout}, nil
}

// executableName is the backend binary the supervisor looks for.
const executableName = "codebackend"

// knownLocations lists install locations probed before falling back to PATH.
func knownLocations() []string {
	var ret []string
	if home, err := os.UserHomeDir(); err == nil {
		ret = append(ret,
			filepath.Join(home, ".codebackend", "bin", executableName),
			filepath.Join(home, ".local", "bin", executableName),
		)
	}
	ret = append(ret,
		filepath.Join("/usr", "local", "bin", executableName),
		filepath.Join("/opt", "codebackend", "bin", executableName),
	)
	return ret
}

// LocateExecutable finds the backend binary, first across known install
// locations in priority order, then on PATH.
func LocateExecutable() (string, error) {
	for _, candidate := range knownLocations() {
		if info, err := os.Stat(candidate); err == nil && !info.IsDir() {
			return candidate, nil
		}
	}
	if located, err := exec.LookPath(executableName); err == nil {
		return located, nil
	}
	return "", fmt.Errorf("%s executable not found in known locations or PATH", executableName)
}
