package spiral

import (
	"testing"

	"github.com/agentsys/orchestrator/internal/errs"
	"github.com/agentsys/orchestrator/internal/registry"
	"github.com/stretchr/testify/assert"
)

func baseTask() *registry.Task {
	return &registry.Task{
		Limits: registry.Limits{MaxConcurrent: 2, MaxAgents: 5, MaxDepth: 2},
	}
}

func TestCheckConcurrencyLimit(t *testing.T) {
	task := baseTask()
	task.ActiveCount = 2
	err := Check(task, Request{AgentType: "researcher"})
	assert.True(t, errs.Is(err, "ConcurrencyLimitReached"))
}

func TestCheckTotalLimit(t *testing.T) {
	task := baseTask()
	task.TotalSpawned = 5
	err := Check(task, Request{AgentType: "researcher"})
	assert.True(t, errs.Is(err, "TotalLimitReached"))
}

func TestCheckDepthLimit(t *testing.T) {
	task := baseTask()
	err := Check(task, Request{AgentType: "researcher", ParentDepth: 2})
	assert.True(t, errs.Is(err, "DepthLimitReached"))
}

func TestCheckDuplicateActiveType(t *testing.T) {
	task := baseTask()
	task.Agents = []registry.Agent{{Type: "researcher", Status: registry.StatusWorking}}
	err := Check(task, Request{AgentType: "researcher"})
	assert.True(t, errs.Is(err, "DuplicateAgentActive"))
}

func TestCheckPasses(t *testing.T) {
	task := baseTask()
	err := Check(task, Request{AgentType: "researcher"})
	assert.NoError(t, err)
}

func TestMergeLimitsUsesStoredOverrides(t *testing.T) {
	defaults := registry.Limits{MaxConcurrent: 20, MaxAgents: 45, MaxDepth: 5}
	stored := registry.Limits{MaxConcurrent: 3}
	merged := MergeLimits(stored, defaults)
	assert.Equal(t, 3, merged.MaxConcurrent)
	assert.Equal(t, 45, merged.MaxAgents)
	assert.Equal(t, 5, merged.MaxDepth)
}
