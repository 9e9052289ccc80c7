// Package registry implements the Locked Registry Store (spec §4.A) and the
// data model documents it serializes (spec §3): the per-task Registry
// document and the Global Registry document.
package registry

import "time"

// AgentStatus is the lifecycle state of a single agent (spec GLOSSARY).
type AgentStatus string

const (
	StatusRunning    AgentStatus = "running"
	StatusWorking    AgentStatus = "working"
	StatusBlocked    AgentStatus = "blocked"
	StatusCompleted  AgentStatus = "completed"
	StatusTerminated AgentStatus = "terminated"
	StatusError      AgentStatus = "error"
	StatusFailed     AgentStatus = "failed"
)

// ActiveStatuses returns the set of statuses considered "active" per the
// GLOSSARY. Order is stable for deterministic iteration in tests.
func ActiveStatuses() []AgentStatus {
	return []AgentStatus{StatusRunning, StatusWorking, StatusBlocked}
}

// TerminalStatuses returns the set of statuses considered "terminal".
func TerminalStatuses() []AgentStatus {
	return []AgentStatus{StatusCompleted, StatusTerminated, StatusError, StatusFailed}
}

// IsActive reports whether s is one of the active statuses.
func (s AgentStatus) IsActive() bool {
	for _, a := range ActiveStatuses() {
		if s == a {
			return true
		}
	}
	return false
}

// IsTerminal reports whether s is one of the terminal statuses.
func (s AgentStatus) IsTerminal() bool {
	for _, t := range TerminalStatuses() {
		if s == t {
			return true
		}
	}
	return false
}

// TaskStatus is the lifecycle state of a task.
type TaskStatus string

const (
	TaskInitialized TaskStatus = "INITIALIZED"
	TaskActive      TaskStatus = "ACTIVE"
	TaskCompleted   TaskStatus = "COMPLETED"
	TaskFailed      TaskStatus = "FAILED"
)

// ParentOrchestrator is the sentinel parent id for agents spawned directly
// by the outer controller rather than by another agent (spec §3).
const ParentOrchestrator = "orchestrator"

// Limits holds the per-task spiral-gate overrides (spec §4.E).
type Limits struct {
	MaxAgents     int `json:"max_agents"`
	MaxConcurrent int `json:"max_concurrent"`
	MaxDepth      int `json:"max_depth"`
}

// ConversationMessage is one entry of the bounded conversation history
// carried in a task's enriched context (spec §6).
type ConversationMessage struct {
	Role      string    `json:"role"` // user | assistant | orchestrator
	Content   string    `json:"content"`
	Timestamp time.Time `json:"timestamp"`
}

// TaskContext is the optional enriched context supplied at task creation
// (spec §3).
type TaskContext struct {
	Deliverables        []string               `json:"deliverables,omitempty"`
	SuccessCriteria      []string               `json:"success_criteria,omitempty"`
	Constraints          []string               `json:"constraints,omitempty"`
	RelevantFiles        []string               `json:"relevant_files,omitempty"`
	ConversationHistory  []ConversationMessage  `json:"conversation_history,omitempty"`
	TruncationSummary    string                 `json:"truncation_summary,omitempty"`
}

// CleanupResult is the record attached to an agent after its terminal
// cleanup sequence runs (spec §4.G step 4).
type CleanupResult struct {
	ProcessKilled   bool      `json:"process_killed"`
	ArchivedAt      time.Time `json:"archived_at,omitempty"`
	PromptRemoved   bool      `json:"prompt_removed"`
	StrayProcesses  []int     `json:"stray_processes,omitempty"`
	Error           string    `json:"error,omitempty"`
}

// ValidationVerdict is the output of the Four-Layer Completion Validator
// (spec §4.G), attached to an agent record on Active→Terminal transitions.
type ValidationVerdict struct {
	Confidence float64  `json:"confidence"`
	Warnings   []string `json:"warnings,omitempty"`
	Blocking   []string `json:"blocking,omitempty"`
}

// Agent is one entry in a task's agents[] list (spec §3).
type Agent struct {
	ID            string      `json:"agent_id"`
	Type          string      `json:"type"`
	Parent        string      `json:"parent"`
	Depth         int         `json:"depth"`
	Status        AgentStatus `json:"status"`
	Progress      int         `json:"progress"`
	Message       string      `json:"message"`
	StartedAt     time.Time   `json:"started_at"`
	UpdatedAt     time.Time   `json:"updated_at"`
	TerminalAt    *time.Time  `json:"terminal_at,omitempty"`
	Prompt        string      `json:"prompt"`
	PromptPath    string      `json:"prompt_path,omitempty"`

	// Backend handle: exactly one of these is populated for a live agent
	// (spec §3 invariant).
	SessionName string `json:"session_name,omitempty"`
	PID         int    `json:"pid,omitempty"`

	Validation        *ValidationVerdict `json:"validation,omitempty"`
	Cleanup           *CleanupResult     `json:"cleanup,omitempty"`
	AutoCleanupError  string             `json:"auto_cleanup_error,omitempty"`

	// ModifiedFiles tracks distinct workspace-relative paths this agent has
	// touched, used as workspace evidence by the completion validator.
	ModifiedFiles []string `json:"modified_files,omitempty"`
}

// Task is the authoritative per-task registry document (spec §3, §6).
type Task struct {
	ID          string      `json:"task_id"`
	Description string      `json:"description"`
	Priority    string      `json:"priority,omitempty"`
	CreatedAt   time.Time   `json:"created_at"`
	Workspace   string      `json:"workspace"`
	Status      TaskStatus  `json:"status"`
	Limits      Limits      `json:"limits"`

	TotalSpawned   int `json:"total_spawned"`
	ActiveCount    int `json:"active_count"`
	CompletedCount int `json:"completed_count"`

	Agents  []Agent      `json:"agents"`
	Context *TaskContext `json:"context,omitempty"`

	ClientCWD string `json:"client_cwd,omitempty"`
}

// FindAgent returns a pointer to the agent with the given id, or nil.
func (t *Task) FindAgent(agentID string) *Agent {
	for i := range t.Agents {
		if t.Agents[i].ID == agentID {
			return &t.Agents[i]
		}
	}
	return nil
}

// RecomputeCounters recalculates total_spawned/active_count/completed_count
// from the agents slice. Used by the reconciliation sweep and by tests that
// assert the invariants in spec §8.
func (t *Task) RecomputeCounters() {
	t.TotalSpawned = len(t.Agents)
	active, completed := 0, 0
	for _, a := range t.Agents {
		switch {
		case a.Status.IsActive():
			active++
		case a.Status.IsTerminal():
			completed++
		}
	}
	t.ActiveCount = active
	t.CompletedCount = completed
}

// GlobalTaskEntry is a minimal cross-project reference record (spec §6).
type GlobalTaskEntry struct {
	Description            string `json:"description"`
	Workspace              string `json:"workspace"`
	WorkspaceBase          string `json:"workspace_base"`
	Status                 TaskStatus `json:"status"`
	ClientCWD              string `json:"client_cwd,omitempty"`
	CrossProjectReference  bool   `json:"cross_project_reference,omitempty"`
}

// GlobalAgentEntry is the minimal global-registry agent record (spec §3).
type GlobalAgentEntry struct {
	TaskID string      `json:"task_id"`
	Type   string      `json:"type"`
	Status AgentStatus `json:"status"`
}

// Global is the dual-registry cross-project index document (spec §3, §6).
type Global struct {
	Tasks  map[string]GlobalTaskEntry  `json:"tasks"`
	Agents map[string]GlobalAgentEntry `json:"agents"`

	ActiveAgents int `json:"active_agents"`
}

// NewGlobal returns an empty, initialized Global document.
func NewGlobal() *Global {
	return &Global{
		Tasks:  make(map[string]GlobalTaskEntry),
		Agents: make(map[string]GlobalAgentEntry),
	}
}

// RecomputeCounters recalculates ActiveAgents from the Agents map.
func (g *Global) RecomputeCounters() {
	active := 0
	for _, a := range g.Agents {
		if a.Status.IsActive() {
			active++
		}
	}
	g.ActiveAgents = active
}
