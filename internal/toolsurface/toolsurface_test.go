package toolsurface

import (
	"testing"

	"github.com/agentsys/orchestrator/internal/config"
	"github.com/agentsys/orchestrator/internal/lifecycle"
	"github.com/agentsys/orchestrator/internal/output"
	"github.com/agentsys/orchestrator/internal/processhost"
	"github.com/agentsys/orchestrator/internal/registry"
	"github.com/agentsys/orchestrator/internal/statemachine"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type fakeHost struct{ alive bool }

func (f *fakeHost) Spawn(cwd string, argv, env []string, logPath string) (processhost.Handle, error) {
	return processhost.Handle{PID: 999}, nil
}
func (f *fakeHost) Alive(h processhost.Handle) bool { return f.alive }
func (f *fakeHost) Kill(h processhost.Handle, reason string) (processhost.KillResult, error) {
	return processhost.KillResult{Signalled: true}, nil
}

func newSurface(t *testing.T) *Surface {
	cfg := config.DefaultConfig()
	cfg.WorkspaceBase = t.TempDir()
	cfg.MinFreeDiskBytes = 0
	return NewWithHost(cfg, t.TempDir(), &fakeHost{alive: true})
}

func TestCreateTaskThenDeployThenStatus(t *testing.T) {
	s := newSurface(t)

	task, err := s.CreateTask(CreateTaskRequest{Description: "investigate the outage"})
	require.NoError(t, err)
	assert.Equal(t, registry.TaskActive, task.Status)

	agent, err := s.DeployAgent(lifecycle.DeployRequest{TaskID: task.ID, AgentType: "investigator", Prompt: "look into it"})
	require.NoError(t, err)
	assert.Equal(t, registry.StatusRunning, agent.Status)

	status, err := s.GetTaskStatus(task.ID)
	require.NoError(t, err)
	assert.Equal(t, 1, status.Task.ActiveCount)
	assert.Equal(t, 1, status.SpiralChecks.TotalSpawned)
}

func TestUpdateProgressAndReportFinding(t *testing.T) {
	s := newSurface(t)
	task, err := s.CreateTask(CreateTaskRequest{Description: "fix the bug"})
	require.NoError(t, err)
	agent, err := s.DeployAgent(lifecycle.DeployRequest{TaskID: task.ID, AgentType: "fixer", Prompt: "fix"})
	require.NoError(t, err)

	snap, err := s.UpdateProgress(task.ID, statemachine.ProgressReport{AgentID: agent.ID, Status: registry.StatusWorking, Message: "working on it", Progress: 50})
	require.NoError(t, err)
	assert.Equal(t, 1, snap.ActiveCount)

	snap, err = s.ReportFinding(ReportFindingRequest{TaskID: task.ID, AgentID: agent.ID, FindingType: "insight", Severity: "medium", Message: "found the root cause"})
	require.NoError(t, err)
	assert.NotNil(t, snap)
}

func TestKillAgentIsIdempotent(t *testing.T) {
	s := newSurface(t)
	task, err := s.CreateTask(CreateTaskRequest{Description: "do a thing"})
	require.NoError(t, err)
	agent, err := s.DeployAgent(lifecycle.DeployRequest{TaskID: task.ID, AgentType: "builder", Prompt: "build"})
	require.NoError(t, err)

	require.NoError(t, s.KillAgent(task.ID, agent.ID, "no longer needed"))
	require.NoError(t, s.KillAgent(task.ID, agent.ID, "no longer needed")) // idempotent
}

func TestGetAgentOutputFormats(t *testing.T) {
	s := newSurface(t)
	task, err := s.CreateTask(CreateTaskRequest{Description: "write output"})
	require.NoError(t, err)
	agent, err := s.DeployAgent(lifecycle.DeployRequest{TaskID: task.ID, AgentType: "writer", Prompt: "write"})
	require.NoError(t, err)

	resp, err := s.GetAgentOutput(task.ID, output.Request{AgentID: agent.ID, Format: output.FormatJSONL})
	require.NoError(t, err)
	assert.NotNil(t, resp)
}

func TestCreateTaskRejectsOversizedHistory(t *testing.T) {
	s := newSurface(t)
	history := make([]registry.ConversationMessage, 51)
	_, err := s.CreateTask(CreateTaskRequest{Description: "x", Context: &registry.TaskContext{ConversationHistory: history}})
	assert.Error(t, err)
}
