// Package lifecycle implements the Agent Lifecycle Controller (spec §4.F):
// the deployment sequence that resolves a workspace, runs the spiral gate,
// materializes a prompt, starts the backend process, and records the
// result — with a rollback sequence if anything after gate-passage fails.
package lifecycle

import (
	"fmt"
	"os"
	"time"

	"github.com/agentsys/orchestrator/internal/config"
	"github.com/agentsys/orchestrator/internal/errs"
	"github.com/agentsys/orchestrator/internal/idgen"
	"github.com/agentsys/orchestrator/internal/layout"
	"github.com/agentsys/orchestrator/internal/logging"
	"github.com/agentsys/orchestrator/internal/processhost"
	"github.com/agentsys/orchestrator/internal/registry"
	"github.com/agentsys/orchestrator/internal/spiral"
	"github.com/agentsys/orchestrator/internal/workspace"
)

const maxAgentIDCollisionRetries = 5

// DeployRequest carries the deploy_agent / spawn_child tool inputs
// (spec §4.I).
type DeployRequest struct {
	TaskID    string
	AgentType string
	Prompt    string
	Parent    string // "" or ParentOrchestrator for top-level deploys
	Argv      []string
	Env       []string
}

// Controller wires the Workspace Locator, Anti-Spiral Gate, Process Host,
// and Locked Registry Store together into the deployment sequence.
type Controller struct {
	Store   *registry.Store
	Locator *workspace.Locator
	Host    processhost.Host
	Cfg     *config.Config
}

// New builds a Controller from its collaborators.
func New(store *registry.Store, loc *workspace.Locator, host processhost.Host, cfg *config.Config) *Controller {
	return &Controller{Store: store, Locator: loc, Host: host, Cfg: cfg}
}

// Deploy runs the full deployment sequence (spec §4.F steps 1-7), rolling
// back any partial side effect if a later step fails.
func (c *Controller) Deploy(req DeployRequest) (*registry.Agent, error) {
	// Step 1: resolve workspace.
	ws, err := c.Locator.Resolve(req.TaskID)
	if err != nil {
		return nil, err
	}
	taskRegistryPath := layout.TaskRegistryPath(ws)

	task, err := c.Store.ReadTask(taskRegistryPath)
	if err != nil {
		return nil, err
	}

	// Step 2: Anti-Spiral Gate, evaluated against the task's own limits
	// merged with server defaults.
	limits := spiral.MergeLimits(task.Limits, registry.Limits{
		MaxConcurrent: c.Cfg.MaxConcurrent,
		MaxAgents:     c.Cfg.MaxAgents,
		MaxDepth:      c.Cfg.MaxDepth,
	})
	task.Limits = limits
	parentDepth := 0
	if req.Parent != "" && req.Parent != registry.ParentOrchestrator {
		if parent := task.FindAgent(req.Parent); parent != nil {
			parentDepth = parent.Depth
		}
	}
	if gateErr := spiral.Check(task, spiral.Request{AgentType: req.AgentType, ParentDepth: parentDepth}); gateErr != nil {
		return nil, gateErr
	}

	// Pre-flight free-disk + write-probe, still before any mutation
	// (spec §4.D).
	if err := processhost.PreflightCheck(ws, c.Cfg.MinFreeDiskBytes); err != nil {
		return nil, err
	}

	// Step 3: generate agent_id, retrying on collision.
	agentID, err := c.generateUniqueAgentID(task, req.AgentType)
	if err != nil {
		return nil, err
	}

	// Step 4: materialize the prompt file.
	promptPath := layout.PromptPath(ws, agentID)
	if err := os.WriteFile(promptPath, []byte(req.Prompt), 0o644); err != nil {
		return nil, errs.SpawnFailed("write prompt file", err)
	}

	// Step 5: invoke the Process Host.
	logPath := layout.StreamLogPath(ws, agentID)
	argv := req.Argv
	if len(argv) == 0 {
		argv = []string{"agent-cli", "--prompt-file", promptPath}
	}
	handle, err := c.Host.Spawn(ws, argv, req.Env, logPath)
	if err != nil {
		c.rollback(promptPath, processhost.Handle{}, false)
		return nil, err
	}

	now := time.Now()
	agent := registry.Agent{
		ID:          agentID,
		Type:        req.AgentType,
		Parent:      effectiveParent(req.Parent),
		Depth:       parentDepth + boolToInt(req.Parent != "" && req.Parent != registry.ParentOrchestrator),
		Status:      registry.StatusRunning,
		StartedAt:   now,
		UpdatedAt:   now,
		Prompt:      req.Prompt,
		PromptPath:  promptPath,
		SessionName: handle.SessionName,
		PID:         handle.PID,
	}

	// Step 6: re-run the gate against the current registry and append the
	// agent record in the same locked section, so concurrent deployments
	// cannot both pass on a stale snapshot.
	updatedTask, err := c.Store.WithTask(taskRegistryPath, func(t *registry.Task) error {
		current := *t
		current.Limits = limits
		if gateErr := spiral.Check(&current, spiral.Request{AgentType: req.AgentType, ParentDepth: parentDepth}); gateErr != nil {
			return gateErr
		}
		t.Agents = append(t.Agents, agent)
		t.TotalSpawned++
		t.ActiveCount++
		return nil
	})
	if err != nil {
		c.rollback(promptPath, handle, true)
		return nil, fmt.Errorf("record agent: %w", err)
	}

	// Step 7: update the default global registry's cross-project pointer.
	globalPath := layout.GlobalRegistryPath(c.Locator.DefaultBase())
	_, gerr := c.Store.GlobalUpsertTask(globalPath, req.TaskID, registry.GlobalTaskEntry{
		Description:           task.Description,
		Workspace:             ws,
		WorkspaceBase:         c.Locator.DefaultBase(),
		Status:                updatedTask.Status,
		CrossProjectReference: c.Locator.IsCrossProject(ws),
	})
	if gerr != nil {
		// The task registry already reflects the new agent; a failure here
		// is a cross-project index staleness, not a half-visible agent, so
		// it's logged rather than rolled back (spec §4.F: rollback only
		// applies to steps after the gate and before the registry append).
		logging.Warnf("lifecycle: global registry update failed for task %s: %v", req.TaskID, gerr)
	}
	_, aerr := c.Store.GlobalUpsertAgent(globalPath, agentID, registry.GlobalAgentEntry{
		TaskID: req.TaskID,
		Type:   req.AgentType,
		Status: registry.StatusRunning,
	})
	if aerr != nil {
		logging.Warnf("lifecycle: global agent index update failed for agent %s: %v", agentID, aerr)
	}

	result := updatedTask.FindAgent(agentID)
	return result, nil
}

// rollback runs the spec §4.F rollback sequence: kill the process/session
// if created, remove the prompt file if created. It never returns an error
// to the caller — rollback failures are best-effort cleanup, and the
// original deployment error is always what's surfaced.
func (c *Controller) rollback(promptPath string, handle processhost.Handle, spawned bool) {
	if spawned {
		if _, err := c.Host.Kill(handle, "rollback: deployment failed after spawn"); err != nil {
			logging.Warnf("lifecycle: rollback kill failed: %v", err)
		}
	}
	if promptPath != "" {
		if err := os.Remove(promptPath); err != nil && !os.IsNotExist(err) {
			logging.Warnf("lifecycle: rollback prompt removal failed: %v", err)
		}
	}
}

func (c *Controller) generateUniqueAgentID(task *registry.Task, agentType string) (string, error) {
	for i := 0; i < maxAgentIDCollisionRetries; i++ {
		id, err := idgen.AgentID(agentType, time.Now())
		if err != nil {
			return "", errs.SpawnFailed("generate agent id", err)
		}
		if task.FindAgent(id) == nil {
			return id, nil
		}
	}
	return "", errs.SpawnFailed("could not generate a unique agent id after retries", nil)
}

func effectiveParent(parent string) string {
	if parent == "" {
		return registry.ParentOrchestrator
	}
	return parent
}

func boolToInt(b bool) int {
	if b {
		return 1
	}
	return 0
}
