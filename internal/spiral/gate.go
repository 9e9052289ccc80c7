// Package spiral implements the Anti-Spiral Gate (spec §4.E): the
// concurrency/total/depth/duplicate-type checks every deployment must pass
// before the registry is touched, evaluated as one atomic section.
package spiral

import (
	"github.com/agentsys/orchestrator/internal/errs"
	"github.com/agentsys/orchestrator/internal/registry"
)

// Request describes a pending deployment for the gate to evaluate.
type Request struct {
	AgentType   string
	ParentDepth int // 0 for orchestrator-spawned agents
}

// Check evaluates task against the Anti-Spiral Gate rules, using task's own
// Limits (already merged with server defaults by the caller). It returns
// the first violated rule, or nil if the deployment may proceed.
//
// Ordering mirrors spec §4.E exactly: concurrency, then total, then depth,
// then duplicate-type.
func Check(task *registry.Task, req Request) error {
	if task.ActiveCount >= task.Limits.MaxConcurrent {
		return errs.ConcurrencyLimitReached(task.ActiveCount, task.Limits.MaxConcurrent)
	}
	if task.TotalSpawned >= task.Limits.MaxAgents {
		return errs.TotalLimitReached(task.TotalSpawned, task.Limits.MaxAgents)
	}
	if req.ParentDepth+1 > task.Limits.MaxDepth {
		return errs.DepthLimitReached(req.ParentDepth+1, task.Limits.MaxDepth)
	}
	if hasActiveAgentOfType(task, req.AgentType) {
		return errs.DuplicateAgentActive(req.AgentType)
	}
	return nil
}

func hasActiveAgentOfType(task *registry.Task, agentType string) bool {
	for _, a := range task.Agents {
		if a.Type == agentType && a.Status.IsActive() {
			return true
		}
	}
	return false
}

// MergeLimits overlays a task's stored Limits onto server defaults, so a
// task created without explicit overrides still gets spec §4.E's default
// max_concurrent=20, max_agents=45, max_depth=5.
func MergeLimits(stored registry.Limits, defaults registry.Limits) registry.Limits {
	out := defaults
	if stored.MaxConcurrent > 0 {
		out.MaxConcurrent = stored.MaxConcurrent
	}
	if stored.MaxAgents > 0 {
		out.MaxAgents = stored.MaxAgents
	}
	if stored.MaxDepth > 0 {
		out.MaxDepth = stored.MaxDepth
	}
	return out
}
