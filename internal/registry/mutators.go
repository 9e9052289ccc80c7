package registry

import "time"

// AddAgent appends a new agent to the task's agents[] list and bumps
// total_spawned/active_count in a single atomic section (spec §4.A,
// used by the Lifecycle Controller's deployment sequence, §4.F step 6).
func (s *Store) AddAgent(path string, agent Agent) (*Task, error) {
	return s.WithTask(path, func(t *Task) error {
		t.Agents = append(t.Agents, agent)
		t.TotalSpawned++
		if agent.Status.IsActive() {
			t.ActiveCount++
		} else if agent.Status.IsTerminal() {
			t.CompletedCount++
		}
		return nil
	})
}

// SetAgentStatus overwrites an agent's status/progress/message fields and
// returns the previous status, for callers that need to detect an
// Active→Terminal transition (spec §4.G). An agent already in a terminal
// status is left unchanged.
func (s *Store) SetAgentStatus(path, agentID string, status AgentStatus, message string, progress int) (*Task, AgentStatus, error) {
	var previous AgentStatus
	task, err := s.WithTask(path, func(t *Task) error {
		a := t.FindAgent(agentID)
		if a == nil {
			return nil // caller checks for nil agent after the fact
		}
		previous = a.Status
		if previous.IsTerminal() {
			return nil
		}
		a.Status = status
		a.Message = message
		a.Progress = progress
		a.UpdatedAt = time.Now()
		return nil
	})
	return task, previous, err
}

// IncrementCounts bumps total_spawned and, if active, active_count.
func (s *Store) IncrementCounts(path string, active bool) (*Task, error) {
	return s.WithTask(path, func(t *Task) error {
		t.TotalSpawned++
		if active {
			t.ActiveCount++
		}
		return nil
	})
}

// DecrementActiveCount decrements active_count (floor zero) and increments
// completed_count, the bookkeeping that follows an Active→Terminal
// transition (spec §4.G step 2).
func (s *Store) DecrementActiveCount(path string) (*Task, error) {
	return s.WithTask(path, func(t *Task) error {
		if t.ActiveCount > 0 {
			t.ActiveCount--
		}
		t.CompletedCount++
		return nil
	})
}

// MarkAgentsCompleted force-transitions every currently-active agent in a
// task to `completed`, used by bulk-shutdown style callers.
func (s *Store) MarkAgentsCompleted(path string) (*Task, error) {
	return s.WithTask(path, func(t *Task) error {
		now := time.Now()
		for i := range t.Agents {
			if t.Agents[i].Status.IsActive() {
				t.Agents[i].Status = StatusCompleted
				t.Agents[i].TerminalAt = &now
				t.Agents[i].UpdatedAt = now
			}
		}
		t.RecomputeCounters()
		return nil
	})
}

// SetAgentValidation attaches a completion-validator verdict to an agent,
// normalizing the agent's status to `failed` if the verdict carries
// blocking issues (spec §4.G "Four-Layer Completion Validator").
func (s *Store) SetAgentValidation(path, agentID string, verdict ValidationVerdict) (*Task, error) {
	return s.WithTask(path, func(t *Task) error {
		a := t.FindAgent(agentID)
		if a == nil {
			return nil
		}
		a.Validation = &verdict
		if len(verdict.Blocking) > 0 && a.Status != StatusFailed {
			a.Status = StatusFailed
			a.Message = "completion validation failed: " + verdict.Blocking[0]
		}
		return nil
	})
}

// SetAgentCleanup attaches the post-terminal cleanup result to an agent.
// Cleanup errors are captured here and MUST NOT propagate to the caller
// of update_progress/kill_agent (spec §4.G).
func (s *Store) SetAgentCleanup(path, agentID string, result CleanupResult) (*Task, error) {
	return s.WithTask(path, func(t *Task) error {
		a := t.FindAgent(agentID)
		if a == nil {
			return nil
		}
		a.Cleanup = &result
		if result.Error != "" {
			a.AutoCleanupError = result.Error
		}
		return nil
	})
}

// GlobalUpsertTask writes or updates a task's minimal cross-project
// reference record in the Global registry (spec §4.F step 7).
func (s *Store) GlobalUpsertTask(path, taskID string, entry GlobalTaskEntry) (*Global, error) {
	return s.WithGlobal(path, func(g *Global) error {
		g.Tasks[taskID] = entry
		return nil
	})
}

// GlobalUpsertAgent writes or updates an agent's minimal global record and
// recomputes ActiveAgents (spec §3).
func (s *Store) GlobalUpsertAgent(path, agentID string, entry GlobalAgentEntry) (*Global, error) {
	return s.WithGlobal(path, func(g *Global) error {
		g.Agents[agentID] = entry
		g.RecomputeCounters()
		return nil
	})
}

// GlobalDecrementActive decrements the global registry's active_agents
// counter after an agent's Active→Terminal transition (spec §4.G step 3).
func (s *Store) GlobalDecrementActive(path, agentID string, newStatus AgentStatus) (*Global, error) {
	return s.WithGlobal(path, func(g *Global) error {
		if entry, ok := g.Agents[agentID]; ok {
			entry.Status = newStatus
			g.Agents[agentID] = entry
		}
		g.RecomputeCounters()
		return nil
	})
}
