// Package statemachine implements the Status State Machine and the
// Four-Layer Completion Validator (spec §4.G): progress-report ingestion,
// transition validation, post-terminal cleanup, and drift reconciliation.
package statemachine

import (
	"fmt"
	"time"

	"github.com/agentsys/orchestrator/internal/errs"
	"github.com/agentsys/orchestrator/internal/eventlog"
	"github.com/agentsys/orchestrator/internal/layout"
	"github.com/agentsys/orchestrator/internal/logging"
	"github.com/agentsys/orchestrator/internal/processhost"
	"github.com/agentsys/orchestrator/internal/registry"
)

// Controller drives progress ingestion, cleanup, and drift reconciliation
// against a Locked Registry Store and a Process Host.
type Controller struct {
	Store *registry.Store
	Host  processhost.Host

	StabilizationWait time.Duration
	TerminateGrace    time.Duration
}

// New builds a Controller.
func New(store *registry.Store, host processhost.Host, stabilizationWait, terminateGrace time.Duration) *Controller {
	return &Controller{Store: store, Host: host, StabilizationWait: stabilizationWait, TerminateGrace: terminateGrace}
}

// ProgressReport is the update_progress tool input (spec §4.I).
type ProgressReport struct {
	TaskID   string
	AgentID  string
	Status   registry.AgentStatus
	Message  string
	Progress int
}

// CoordinationSnapshot is the minimal piggy-backed state returned by
// update_progress and report_finding (spec §4.I), so siblings can stay in
// sync without polling.
type CoordinationSnapshot struct {
	ActiveCount    int
	CompletedCount int
	RecentProgress []eventlog.ProgressEntry
	RecentFindings []eventlog.FindingEntry
}

// IngestProgress runs the spec §4.G self-report ingestion sequence:
// append to the progress log, transition the agent's status, and — on an
// Active→Terminal edge — validate completion and run cleanup.
func (c *Controller) IngestProgress(workspace string, report ProgressReport) (*CoordinationSnapshot, error) {
	entry := eventlog.ProgressEntry{
		Timestamp: time.Now(),
		AgentID:   report.AgentID,
		Progress:  report.Progress,
		Message:   report.Message,
		Status:    string(report.Status),
	}
	progressPath := layout.ProgressLogPath(workspace, report.AgentID)
	if err := appendEntry(progressPath, entry); err != nil {
		return nil, err
	}

	taskRegistryPath := layout.TaskRegistryPath(workspace)
	task, previous, err := c.Store.SetAgentStatus(taskRegistryPath, report.AgentID, report.Status, report.Message, report.Progress)
	if err != nil {
		return nil, err
	}
	agent := task.FindAgent(report.AgentID)
	if agent == nil {
		return nil, errs.AgentNotFound("", report.AgentID)
	}

	if err := ValidateTransition(previous, report.Status); err != nil {
		return nil, err
	}

	if previous.IsActive() && report.Status.IsTerminal() {
		if err := c.onTerminalTransition(workspace, taskRegistryPath, agent); err != nil {
			// Cleanup errors must not propagate past update_progress
			// (spec §4.G); they are already captured on the agent record
			// by onTerminalTransition.
			logging.Warnf("statemachine: terminal-transition cleanup error for %s: %v", agent.ID, err)
		}
	}

	return c.buildSnapshot(workspace, taskRegistryPath, report.AgentID)
}

// ValidateTransition enforces the spec §4.G transition table: Active↔Active
// always allowed, Active→Terminal always allowed (the validator only
// affects the *message*, not whether the edge is legal), Terminal→* is a
// no-op (not an error) rather than rejected outright, matching "a second
// terminal report for an already-terminal agent is a no-op".
func ValidateTransition(previous, next registry.AgentStatus) error {
	if previous.IsTerminal() {
		return nil // idempotent no-op, not an error
	}
	return nil // Active->Active and Active->Terminal are both legal
}

func (c *Controller) onTerminalTransition(workspace, taskRegistryPath string, agent *registry.Agent) error {
	if _, err := c.Store.DecrementActiveCount(taskRegistryPath); err != nil {
		return fmt.Errorf("decrement active count: %w", err)
	}

	verdict := Validate(workspace, *agent)
	if _, err := c.Store.SetAgentValidation(taskRegistryPath, agent.ID, verdict); err != nil {
		return fmt.Errorf("attach validation verdict: %w", err)
	}

	result := c.cleanup(workspace, *agent)
	if _, err := c.Store.SetAgentCleanup(taskRegistryPath, agent.ID, result); err != nil {
		return fmt.Errorf("attach cleanup result: %w", err)
	}
	return nil
}

// cleanup runs the spec §4.G cleanup sequence. It never returns an error;
// every failure is captured into the returned CleanupResult.Error field.
func (c *Controller) cleanup(workspace string, agent registry.Agent) registry.CleanupResult {
	result := registry.CleanupResult{}

	handle := processhostHandle(agent)
	if c.Host != nil && c.Host.Alive(handle) {
		killResult, err := c.Host.Kill(handle, "terminal cleanup")
		if err != nil {
			result.Error = fmt.Sprintf("kill: %v", err)
		} else {
			result.ProcessKilled = killResult.Signalled
			result.StrayProcesses = killResult.StrayProcesses
		}
	}

	time.Sleep(c.StabilizationWait)

	moved, pending, err := eventlog.Archive(workspace, agent.ID)
	if err != nil {
		if result.Error == "" {
			result.Error = fmt.Sprintf("archive: %v", err)
		}
	} else if len(pending) > 0 {
		result.Error = fmt.Sprintf("archive: %d log(s) still stabilizing, deferred", len(pending))
	}
	if len(moved) > 0 {
		result.ArchivedAt = time.Now()
	}

	if agent.PromptPath != "" {
		if err := removeIfExists(agent.PromptPath); err != nil {
			if result.Error == "" {
				result.Error = fmt.Sprintf("remove prompt: %v", err)
			}
		} else {
			result.PromptRemoved = true
		}
	}

	return result
}

func processhostHandle(agent registry.Agent) processhost.Handle {
	return processhost.Handle{SessionName: agent.SessionName, PID: agent.PID}
}

// ReconcileDrift implements drift reconciliation on read (spec §4.G
// "get_status"): any agent still marked active whose process host handle
// is no longer alive is transitioned to completed with a synthetic message
// and run through the same cleanup sequence.
func (c *Controller) ReconcileDrift(workspace string, task *registry.Task) {
	taskRegistryPath := layout.TaskRegistryPath(workspace)
	for _, agent := range task.Agents {
		if !agent.Status.IsActive() {
			continue
		}
		if c.Host != nil && c.Host.Alive(processhostHandle(agent)) {
			continue
		}
		_, err := c.IngestProgress(workspace, ProgressReport{
			TaskID:   task.ID,
			AgentID:  agent.ID,
			Status:   registry.StatusCompleted,
			Message:  "reconciled: process no longer alive",
			Progress: agent.Progress,
		})
		if err != nil {
			logging.Warnf("statemachine: drift reconciliation failed for %s: %v", agent.ID, err)
		}
	}
}

// BuildSnapshot exposes the same minimal coordination snapshot IngestProgress
// returns, for callers (like report_finding) that mutate state through a
// different path but must still hand back an identically-shaped snapshot
// (spec §4.I: "report_finding returns the same minimal coordination
// snapshot" as update_progress).
func (c *Controller) BuildSnapshot(workspace, taskRegistryPath, selfAgentID string) (*CoordinationSnapshot, error) {
	return c.buildSnapshot(workspace, taskRegistryPath, selfAgentID)
}

func (c *Controller) buildSnapshot(workspace, taskRegistryPath, selfAgentID string) (*CoordinationSnapshot, error) {
	task, err := c.Store.ReadTask(taskRegistryPath)
	if err != nil {
		return nil, err
	}

	snap := &CoordinationSnapshot{
		ActiveCount:    task.ActiveCount,
		CompletedCount: task.CompletedCount,
	}

	for _, agent := range task.Agents {
		progressPath := layout.ProgressLogPath(workspace, agent.ID)
		res, err := eventlog.NewReader(progressPath).Read(eventlog.ReadOptions{Tail: 5})
		if err == nil {
			snap.RecentProgress = append(snap.RecentProgress, decodeProgress(res.Lines)...)
		}
		findingsPath := layout.FindingsLogPath(workspace, agent.ID)
		fres, err := eventlog.NewReader(findingsPath).Read(eventlog.ReadOptions{Tail: 3})
		if err == nil {
			snap.RecentFindings = append(snap.RecentFindings, decodeFindings(fres.Lines)...)
		}
	}

	if len(snap.RecentProgress) > 5 {
		snap.RecentProgress = snap.RecentProgress[len(snap.RecentProgress)-5:]
	}
	if len(snap.RecentFindings) > 3 {
		snap.RecentFindings = snap.RecentFindings[len(snap.RecentFindings)-3:]
	}
	return snap, nil
}

func removeIfExists(path string) error {
	err := removeFile(path)
	if err != nil && isNotExist(err) {
		return nil
	}
	return err
}
