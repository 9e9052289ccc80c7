package daemon

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/agentsys/orchestrator/internal/layout"
	"github.com/agentsys/orchestrator/internal/processhost"
	"github.com/agentsys/orchestrator/internal/registry"
	"github.com/agentsys/orchestrator/internal/statemachine"
	"github.com/agentsys/orchestrator/internal/workspace"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type deadHost struct{}

func (deadHost) Spawn(cwd string, argv, env []string, logPath string) (processhost.Handle, error) {
	return processhost.Handle{}, nil
}
func (deadHost) Alive(h processhost.Handle) bool { return false }
func (deadHost) Kill(h processhost.Handle, reason string) (processhost.KillResult, error) {
	return processhost.KillResult{}, nil
}

func TestSweepTaskReconcilesDeadAgent(t *testing.T) {
	base := t.TempDir()
	taskID := "task-sweep"
	ws, err := workspace.CreateWorkspace(base, taskID)
	require.NoError(t, err)

	store := registry.NewStore(time.Second)
	_, err = store.AddAgent(layout.TaskRegistryPath(ws), registry.Agent{
		ID: "a1", Type: "researcher", Status: registry.StatusRunning,
		StartedAt: time.Now(), UpdatedAt: time.Now(),
	})
	require.NoError(t, err)

	sm := statemachine.New(store, deadHost{}, 0, 0)
	d := New(store, sm, base, time.Hour)
	d.sweepTask(ws)

	task, err := store.ReadTask(layout.TaskRegistryPath(ws))
	require.NoError(t, err)
	assert.True(t, task.FindAgent("a1").Status.IsTerminal())
}

func TestSweepAllSkipsRegistryDir(t *testing.T) {
	base := t.TempDir()
	require.NoError(t, os.MkdirAll(filepath.Join(base, "registry"), 0o755))

	store := registry.NewStore(time.Second)
	sm := statemachine.New(store, deadHost{}, 0, 0)
	d := New(store, sm, base, time.Hour)

	d.sweepAll() // must not panic on an empty registry/ dir
}
