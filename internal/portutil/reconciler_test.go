package portutil

import (
	"context"
	"fmt"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
)

type fakeRunner struct {
	listOutput string
	listCode   int
	listErr    error
	killCode   int
	killErr    error
	commands   []string
}

func (r *fakeRunner) Run(_ context.Context, command string) (string, int, error) {
	r.commands = append(r.commands, command)
	if strings.HasPrefix(command, "kill") || strings.HasPrefix(command, "taskkill") {
		return "", r.killCode, r.killErr
	}
	return r.listOutput, r.listCode, r.listErr
}

func (r *fakeRunner) killCommands() []string {
	var ret []string
	for _, command := range r.commands {
		if strings.HasPrefix(command, "kill") || strings.HasPrefix(command, "taskkill") {
			ret = append(ret, command)
		}
	}
	return ret
}

func TestEnsureFree_AlreadyFree(t *testing.T) {
	// discovery exits non-zero when nothing listens on the port
	runner := &fakeRunner{listCode: 1}
	reconciler := New(runner, WithReleaseWait(0))
	outcome, err := reconciler.EnsureFree(context.Background(), 3001)
	assert.NoError(t, err)
	assert.Equal(t, AlreadyFree, outcome)
	assert.Empty(t, runner.killCommands())
}

func TestEnsureFree_DiscoveryFailure(t *testing.T) {
	// a runner-level failure is inconclusive, not a listener
	runner := &fakeRunner{listErr: fmt.Errorf("session not established")}
	reconciler := New(runner, WithReleaseWait(0))
	outcome, err := reconciler.EnsureFree(context.Background(), 3001)
	assert.NoError(t, err)
	assert.Equal(t, AlreadyFree, outcome)
	assert.Empty(t, runner.killCommands())
}

func TestEnsureFree_EmptyOutput(t *testing.T) {
	runner := &fakeRunner{listOutput: "\n"}
	reconciler := New(runner, WithReleaseWait(0))
	outcome, err := reconciler.EnsureFree(context.Background(), 3001)
	assert.NoError(t, err)
	assert.Equal(t, AlreadyFree, outcome)
}

func TestEnsureFree_Freed(t *testing.T) {
	runner := &fakeRunner{listOutput: "1234\n5678\n"}
	reconciler := New(runner, WithReleaseWait(0))
	outcome, err := reconciler.EnsureFree(context.Background(), 3001)
	assert.NoError(t, err)
	assert.Equal(t, Freed, outcome)
	assert.Equal(t, 2, len(runner.killCommands()))
}

func TestEnsureFree_KillFailed(t *testing.T) {
	runner := &fakeRunner{listOutput: "1234\n", killCode: 1, killErr: fmt.Errorf("operation not permitted")}
	reconciler := New(runner, WithReleaseWait(0))
	outcome, err := reconciler.EnsureFree(context.Background(), 3001)
	assert.Error(t, err)
	assert.Equal(t, KillFailed, outcome)
	assert.Contains(t, err.Error(), "1234")
}

func TestConflictError(t *testing.T) {
	err := &ConflictError{Port: 3001}
	assert.Contains(t, err.Error(), "3001")
}
