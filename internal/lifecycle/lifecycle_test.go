package lifecycle

import (
	"testing"
	"time"

	"github.com/agentsys/orchestrator/internal/config"
	"github.com/agentsys/orchestrator/internal/processhost"
	"github.com/agentsys/orchestrator/internal/registry"
	"github.com/agentsys/orchestrator/internal/workspace"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type fakeHost struct {
	spawnErr error
	handle   processhost.Handle
}

func (f *fakeHost) Spawn(cwd string, argv []string, env []string, logPath string) (processhost.Handle, error) {
	if f.spawnErr != nil {
		return processhost.Handle{}, f.spawnErr
	}
	return f.handle, nil
}
func (f *fakeHost) Alive(h processhost.Handle) bool { return true }
func (f *fakeHost) Kill(h processhost.Handle, reason string) (processhost.KillResult, error) {
	return processhost.KillResult{Signalled: true}, nil
}

func setup(t *testing.T) (*Controller, string, string) {
	base := t.TempDir()
	taskID := "task-deploy"
	ws, err := workspace.CreateWorkspace(base, taskID)
	require.NoError(t, err)

	store := registry.NewStore(time.Second)
	cfg := config.DefaultConfig()
	cfg.WorkspaceBase = base
	cfg.MinFreeDiskBytes = 0

	loc := workspace.NewLocator(store, cfg, t.TempDir())
	host := &fakeHost{handle: processhost.Handle{PID: 12345}}
	ctrl := New(store, loc, host, cfg)
	return ctrl, taskID, ws
}

func TestDeploySucceeds(t *testing.T) {
	ctrl, taskID, _ := setup(t)

	agent, err := ctrl.Deploy(DeployRequest{
		TaskID:    taskID,
		AgentType: "researcher",
		Prompt:    "investigate the thing",
	})
	require.NoError(t, err)
	assert.Equal(t, registry.StatusRunning, agent.Status)
	assert.Equal(t, registry.ParentOrchestrator, agent.Parent)
	assert.NotEmpty(t, agent.PromptPath)
}

func TestDeployRejectedByDuplicateType(t *testing.T) {
	ctrl, taskID, _ := setup(t)

	_, err := ctrl.Deploy(DeployRequest{TaskID: taskID, AgentType: "researcher", Prompt: "p1"})
	require.NoError(t, err)

	_, err = ctrl.Deploy(DeployRequest{TaskID: taskID, AgentType: "researcher", Prompt: "p2"})
	require.Error(t, err)
}

func TestDeployUnknownTaskFails(t *testing.T) {
	ctrl, _, _ := setup(t)
	_, err := ctrl.Deploy(DeployRequest{TaskID: "never-created", AgentType: "researcher", Prompt: "p"})
	assert.Error(t, err)
}
