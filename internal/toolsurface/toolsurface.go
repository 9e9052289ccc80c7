// Package toolsurface implements the Tool Surface (spec §4.I): the small
// fixed set of operations — create_task, deploy_agent, get_task_status,
// get_agent_output, kill_agent, update_progress, report_finding,
// spawn_child — that the rest of the system exposes externally.
package toolsurface

import (
	"context"
	"fmt"
	"time"

	"github.com/agentsys/orchestrator/internal/config"
	"github.com/agentsys/orchestrator/internal/errs"
	"github.com/agentsys/orchestrator/internal/eventlog"
	"github.com/agentsys/orchestrator/internal/idgen"
	"github.com/agentsys/orchestrator/internal/layout"
	"github.com/agentsys/orchestrator/internal/lifecycle"
	"github.com/agentsys/orchestrator/internal/logging"
	"github.com/agentsys/orchestrator/internal/output"
	"github.com/agentsys/orchestrator/internal/processhost"
	"github.com/agentsys/orchestrator/internal/registry"
	"github.com/agentsys/orchestrator/internal/statemachine"
	"github.com/agentsys/orchestrator/internal/workspace"
)

// Surface wires every component into the eight tool operations.
type Surface struct {
	store      *registry.Store
	locator    *workspace.Locator
	host       processhost.Host
	lifecycle  *lifecycle.Controller
	statemach  *statemachine.Controller
	cfg        *config.Config
}

// New builds a Surface from configuration and the current working
// directory (used by the Workspace Locator's upward walk).
func New(cfg *config.Config, cwd string) *Surface {
	return NewWithHost(cfg, cwd, processhost.New(cfg))
}

// NewWithHost builds a Surface with an explicit Process Host, letting
// tests and cmd/agentctl substitute a fake/alternate backend.
func NewWithHost(cfg *config.Config, cwd string, host processhost.Host) *Surface {
	store := registry.NewStore(cfg.LockTimeout)
	loc := workspace.NewLocator(store, cfg, cwd)
	return &Surface{
		store:     store,
		locator:   loc,
		host:      host,
		lifecycle: lifecycle.New(store, loc, host, cfg),
		statemach: statemachine.New(store, host, cfg.StabilizationWait, cfg.TerminateGrace),
		cfg:       cfg,
	}
}

// CreateTaskRequest is the create_task tool input.
type CreateTaskRequest struct {
	Description string
	Priority    string
	ClientCWD   string
	Context     *registry.TaskContext
}

// CreateTask validates context, stages a workspace, and initializes both
// registries (spec §4.I).
func (s *Surface) CreateTask(req CreateTaskRequest) (*registry.Task, error) {
	if req.Description == "" {
		return nil, errs.InvalidInput("description is required", nil)
	}
	if req.Context != nil {
		if err := validateContext(req.Context); err != nil {
			return nil, err
		}
	}

	taskID := idgen.TaskID(time.Now())
	base := s.locator.DefaultBase()
	ws, err := workspace.CreateWorkspace(base, taskID)
	if err != nil {
		return nil, err
	}

	task := &registry.Task{
		ID:          taskID,
		Description: req.Description,
		Priority:    req.Priority,
		CreatedAt:   time.Now(),
		Workspace:   ws,
		Status:      registry.TaskInitialized,
		Limits: registry.Limits{
			MaxAgents:     s.cfg.MaxAgents,
			MaxConcurrent: s.cfg.MaxConcurrent,
			MaxDepth:      s.cfg.MaxDepth,
		},
		Context:   req.Context,
		ClientCWD: req.ClientCWD,
	}

	taskRegistryPath := layout.TaskRegistryPath(ws)
	saved, err := s.store.WithTask(taskRegistryPath, func(t *registry.Task) error {
		*t = *task
		t.Status = registry.TaskActive
		return nil
	})
	if err != nil {
		return nil, fmt.Errorf("initialize task registry: %w", err)
	}

	globalPath := layout.GlobalRegistryPath(base)
	_, err = s.store.GlobalUpsertTask(globalPath, taskID, registry.GlobalTaskEntry{
		Description:   req.Description,
		Workspace:     ws,
		WorkspaceBase: base,
		Status:        saved.Status,
		ClientCWD:     req.ClientCWD,
	})
	if err != nil {
		return nil, fmt.Errorf("initialize global registry: %w", err)
	}

	// Tasks created with an explicit client-supplied cwd are also recorded
	// in that project's local global registry, so a future lookup resolves
	// regardless of where the server runs (spec §3).
	if req.ClientCWD != "" {
		localGlobalPath := layout.GlobalRegistryPath(req.ClientCWD)
		if _, err := s.store.GlobalUpsertTask(localGlobalPath, taskID, registry.GlobalTaskEntry{
			Description:           req.Description,
			Workspace:             ws,
			WorkspaceBase:         base,
			Status:                saved.Status,
			ClientCWD:             req.ClientCWD,
			CrossProjectReference: true,
		}); err != nil {
			logging.Warnf("toolsurface: local global registry update failed for task %s: %v", taskID, err)
		}
	}

	return saved, nil
}

func validateContext(ctx *registry.TaskContext) error {
	const maxHistory = 50
	if len(ctx.ConversationHistory) > maxHistory {
		return errs.InvalidInput(fmt.Sprintf("conversation_history has %d messages, max %d", len(ctx.ConversationHistory), maxHistory), nil)
	}
	sanitizeConversationHistory(ctx)
	return nil
}

// DeployAgent runs the spec §4.F deployment sequence.
func (s *Surface) DeployAgent(req lifecycle.DeployRequest) (*registry.Agent, error) {
	return s.lifecycle.Deploy(req)
}

// SpawnChild is pure delegation to DeployAgent with parent set (spec
// §4.I), inheriting all spiral checks.
func (s *Surface) SpawnChild(taskID, parentAgentID, childType, childPrompt string) (*registry.Agent, error) {
	return s.lifecycle.Deploy(lifecycle.DeployRequest{
		TaskID:    taskID,
		AgentType: childType,
		Prompt:    childPrompt,
		Parent:    parentAgentID,
	})
}

// TaskStatusResponse is the get_task_status result (spec §4.I).
type TaskStatusResponse struct {
	Task           *registry.Task
	RecentProgress []eventlog.ProgressEntry
	RecentFindings []eventlog.FindingEntry
	SpiralChecks   SpiralChecks
}

// SpiralChecks summarizes the Anti-Spiral Gate's current headroom for a
// task, returned alongside get_task_status (spec §4.I).
type SpiralChecks struct {
	ActiveCount      int
	MaxConcurrent    int
	TotalSpawned     int
	MaxAgents        int
	MaxDepthAllowed  int
}

// GetTaskStatus reconciles drift, then returns the task plus recent
// progress/findings (last 5/3 respectively) and the spiral-check headroom.
func (s *Surface) GetTaskStatus(taskID string) (*TaskStatusResponse, error) {
	ws, err := s.locator.Resolve(taskID)
	if err != nil {
		return nil, err
	}
	taskRegistryPath := layout.TaskRegistryPath(ws)

	task, err := s.store.ReadTask(taskRegistryPath)
	if err != nil {
		return nil, err
	}

	s.statemach.ReconcileDrift(ws, task)

	task, err = s.store.ReadTask(taskRegistryPath)
	if err != nil {
		return nil, err
	}

	resp := &TaskStatusResponse{
		Task: task,
		SpiralChecks: SpiralChecks{
			ActiveCount:     task.ActiveCount,
			MaxConcurrent:   task.Limits.MaxConcurrent,
			TotalSpawned:    task.TotalSpawned,
			MaxAgents:       task.Limits.MaxAgents,
			MaxDepthAllowed: task.Limits.MaxDepth,
		},
	}

	for _, agent := range task.Agents {
		pres, err := eventlog.NewReader(layout.ProgressLogPath(ws, agent.ID)).Read(eventlog.ReadOptions{Tail: 5})
		if err == nil {
			resp.RecentProgress = append(resp.RecentProgress, decodeProgressLines(pres.Lines)...)
		}
		fres, err := eventlog.NewReader(layout.FindingsLogPath(ws, agent.ID)).Read(eventlog.ReadOptions{Tail: 3})
		if err == nil {
			resp.RecentFindings = append(resp.RecentFindings, decodeFindingLines(fres.Lines)...)
		}
	}
	if len(resp.RecentProgress) > 5 {
		resp.RecentProgress = resp.RecentProgress[len(resp.RecentProgress)-5:]
	}
	if len(resp.RecentFindings) > 3 {
		resp.RecentFindings = resp.RecentFindings[len(resp.RecentFindings)-3:]
	}
	return resp, nil
}

// GetAgentOutput runs the Output Reader (spec §4.H).
func (s *Surface) GetAgentOutput(taskID string, req output.Request) (*output.Response, error) {
	ws, err := s.locator.Resolve(taskID)
	if err != nil {
		return nil, err
	}
	req.Workspace = ws
	if sh, ok := s.host.(interface {
		CapturePane(processhost.Handle) (string, error)
	}); ok {
		req.PaneFallback = func() (string, error) {
			task, err := s.store.ReadTask(layout.TaskRegistryPath(ws))
			if err != nil {
				return "", err
			}
			agent := task.FindAgent(req.AgentID)
			if agent == nil {
				return "", errs.AgentNotFound(taskID, req.AgentID)
			}
			return sh.CapturePane(processhost.Handle{SessionName: agent.SessionName, PID: agent.PID})
		}
	}
	return output.Read(req)
}

// FollowAgentOutput streams get_agent_output updates until ctx is canceled,
// for long-running CLI/UI consumers that want push rather than poll (spec
// §4.H follow mode).
func (s *Surface) FollowAgentOutput(ctx context.Context, taskID string, req output.Request, onUpdate func(*output.Response)) error {
	ws, err := s.locator.Resolve(taskID)
	if err != nil {
		return err
	}
	req.Workspace = ws
	return output.Follow(ctx, req, onUpdate)
}

// KillAgent terminates an agent and transitions it to terminated. It is
// idempotent: killing an already-terminal agent is a no-op (spec §4.I).
func (s *Surface) KillAgent(taskID, agentID, reason string) error {
	ws, err := s.locator.Resolve(taskID)
	if err != nil {
		return err
	}
	taskRegistryPath := layout.TaskRegistryPath(ws)

	task, err := s.store.ReadTask(taskRegistryPath)
	if err != nil {
		return err
	}
	agent := task.FindAgent(agentID)
	if agent == nil {
		return errs.AgentNotFound(taskID, agentID)
	}
	if agent.Status.IsTerminal() {
		return nil // idempotent no-op
	}

	_, err = s.statemach.IngestProgress(ws, statemachine.ProgressReport{
		TaskID:   taskID,
		AgentID:  agentID,
		Status:   registry.StatusTerminated,
		Message:  "killed: " + reason,
		Progress: agent.Progress,
	})
	return err
}

// UpdateProgress runs spec §4.G self-report ingestion and returns the
// minimal coordination snapshot.
func (s *Surface) UpdateProgress(taskID string, report statemachine.ProgressReport) (*statemachine.CoordinationSnapshot, error) {
	ws, err := s.locator.Resolve(taskID)
	if err != nil {
		return nil, err
	}
	report.TaskID = taskID
	return s.statemach.IngestProgress(ws, report)
}

// ReportFindingRequest is the report_finding tool input (spec §4.I).
type ReportFindingRequest struct {
	TaskID      string
	AgentID     string
	FindingType string
	Severity    string
	Message     string
	Data        any
}

// ReportFinding appends to the findings log and returns the same minimal
// coordination snapshot update_progress returns.
func (s *Surface) ReportFinding(req ReportFindingRequest) (*statemachine.CoordinationSnapshot, error) {
	ws, err := s.locator.Resolve(req.TaskID)
	if err != nil {
		return nil, err
	}

	entry := eventlog.FindingEntry{
		Timestamp:   time.Now(),
		AgentID:     req.AgentID,
		FindingType: req.FindingType,
		Severity:    req.Severity,
		Message:     req.Message,
		Data:        req.Data,
	}
	w, err := eventlog.OpenWriter(layout.FindingsLogPath(ws, req.AgentID))
	if err != nil {
		return nil, err
	}
	defer w.Close()
	if err := w.Append(entry); err != nil {
		return nil, err
	}

	return s.statemach.BuildSnapshot(ws, layout.TaskRegistryPath(ws), req.AgentID)
}
