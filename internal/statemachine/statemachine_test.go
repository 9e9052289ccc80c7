package statemachine

import (
	"testing"
	"time"

	"github.com/agentsys/orchestrator/internal/eventlog"
	"github.com/agentsys/orchestrator/internal/layout"
	"github.com/agentsys/orchestrator/internal/processhost"
	"github.com/agentsys/orchestrator/internal/registry"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type alwaysDeadHost struct{}

func (alwaysDeadHost) Spawn(cwd string, argv, env []string, logPath string) (processhost.Handle, error) {
	return processhost.Handle{}, nil
}
func (alwaysDeadHost) Alive(h processhost.Handle) bool { return false }
func (alwaysDeadHost) Kill(h processhost.Handle, reason string) (processhost.KillResult, error) {
	return processhost.KillResult{}, nil
}

func newTaskWithAgent(t *testing.T, store *registry.Store, workspace string, agent registry.Agent) {
	_, err := store.AddAgent(layout.TaskRegistryPath(workspace), agent)
	require.NoError(t, err)
}

func TestIngestProgressActiveToActive(t *testing.T) {
	ws := t.TempDir()
	store := registry.NewStore(time.Second)
	newTaskWithAgent(t, store, ws, registry.Agent{ID: "a1", Type: "researcher", Status: registry.StatusRunning, StartedAt: time.Now()})

	c := New(store, alwaysDeadHost{}, 0, 0)
	snap, err := c.IngestProgress(ws, ProgressReport{TaskID: "t1", AgentID: "a1", Status: registry.StatusWorking, Message: "making progress on the fix", Progress: 40})
	require.NoError(t, err)
	assert.NotNil(t, snap)

	task, err := store.ReadTask(layout.TaskRegistryPath(ws))
	require.NoError(t, err)
	assert.Equal(t, registry.StatusWorking, task.FindAgent("a1").Status)
}

func TestIngestProgressTerminalRunsCleanup(t *testing.T) {
	ws := t.TempDir()
	store := registry.NewStore(time.Second)
	newTaskWithAgent(t, store, ws, registry.Agent{
		ID: "a2", Type: "fixer", Status: registry.StatusWorking, StartedAt: time.Now(),
		ModifiedFiles: []string{"main.go"},
	})

	c := New(store, alwaysDeadHost{}, 0, 0)
	_, err := c.IngestProgress(ws, ProgressReport{
		TaskID: "t1", AgentID: "a2", Status: registry.StatusWorking,
		Message: "fixing the bug", Progress: 50,
	})
	require.NoError(t, err)
	_, err = c.IngestProgress(ws, ProgressReport{
		TaskID: "t1", AgentID: "a2", Status: registry.StatusCompleted,
		Message: "fixed the bug and verified the tests pass", Progress: 100,
	})
	require.NoError(t, err)

	task, err := store.ReadTask(layout.TaskRegistryPath(ws))
	require.NoError(t, err)
	agent := task.FindAgent("a2")
	require.NotNil(t, agent.Validation)
	assert.Empty(t, agent.Validation.Blocking)
	require.NotNil(t, agent.Cleanup)
	assert.Equal(t, 0, task.ActiveCount)
}

func TestValidateBlocksFixerWithNoModifiedFiles(t *testing.T) {
	ws := t.TempDir()
	agent := registry.Agent{ID: "a3", Type: "fixer", Message: "fixed it", StartedAt: time.Now()}
	verdict := Validate(ws, agent)
	assert.NotEmpty(t, verdict.Blocking)
}

func TestValidateBlocksHedgingMessage(t *testing.T) {
	ws := t.TempDir()
	agent := registry.Agent{ID: "a4", Type: "researcher", Message: "I think I probably done with this task", StartedAt: time.Now(), ModifiedFiles: []string{"x"}}
	verdict := Validate(ws, agent)
	assert.NotEmpty(t, verdict.Blocking)
}

func TestValidateTransitionIdempotentOnTerminal(t *testing.T) {
	err := ValidateTransition(registry.StatusCompleted, registry.StatusFailed)
	assert.NoError(t, err)
}

func TestSuddenJumpFlagsSingleEntryStraightTo100(t *testing.T) {
	// An agent whose only self-report is "100%" has no 0% baseline on
	// disk, but it is the same "no intermediate updates" pattern as an
	// explicit 0-then-100 pair.
	assert.True(t, suddenJump([]eventlog.ProgressEntry{{Progress: 100}}))
	assert.False(t, suddenJump([]eventlog.ProgressEntry{{Progress: 40}}))
	assert.False(t, suddenJump(nil))
}

func TestSuddenJumpFlagsTwoEntryZeroToHundred(t *testing.T) {
	assert.True(t, suddenJump([]eventlog.ProgressEntry{{Progress: 0}, {Progress: 100}}))
	assert.False(t, suddenJump([]eventlog.ProgressEntry{{Progress: 0}, {Progress: 40}, {Progress: 100}}))
}
