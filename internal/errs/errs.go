// Package errs defines the error taxonomy surfaced by the orchestration
// core (spec §7): Input, Policy, Contention, Environment, Spawn, Integrity,
// and Validation. Every error is an *Error tagged with a Kind and a short
// Code, so callers can branch with errors.As on *Error (or with Is on the
// Code) instead of string matching.
package errs

import "fmt"

// Kind classifies an error for propagation policy (spec §7).
type Kind string

const (
	KindInput      Kind = "input"
	KindPolicy     Kind = "policy"
	KindContention Kind = "contention"
	KindEnv        Kind = "environment"
	KindSpawn      Kind = "spawn"
	KindIntegrity  Kind = "integrity"
	KindValidation Kind = "validation"
)

// Error is the common shape of every taxonomy error.
type Error struct {
	Kind    Kind
	Code    string // short machine-readable code, e.g. "TaskNotFound"
	Message string
	Err     error // wrapped cause, may be nil
}

func (e *Error) Error() string {
	if e.Err != nil {
		return fmt.Sprintf("%s: %s: %v", e.Code, e.Message, e.Err)
	}
	return fmt.Sprintf("%s: %s", e.Code, e.Message)
}

func (e *Error) Unwrap() error { return e.Err }

func new_(kind Kind, code, msg string, cause error) *Error {
	return &Error{Kind: kind, Code: code, Message: msg, Err: cause}
}

// TaskNotFound is returned when a task_id does not resolve to a workspace
// in any known registry (spec §4.C step 4).
func TaskNotFound(taskID string) *Error {
	return new_(KindInput, "TaskNotFound", fmt.Sprintf("task %q not found", taskID), nil)
}

// AgentNotFound is returned when an agent_id does not exist within a task.
func AgentNotFound(taskID, agentID string) *Error {
	return new_(KindInput, "AgentNotFound", fmt.Sprintf("agent %q not found in task %q", agentID, taskID), nil)
}

// InvalidInput wraps malformed-argument failures.
func InvalidInput(msg string, cause error) *Error {
	return new_(KindInput, "InvalidInput", msg, cause)
}

// ConcurrencyLimitReached is a spiral-gate rejection (spec §4.E).
func ConcurrencyLimitReached(active, max int) *Error {
	return new_(KindPolicy, "ConcurrencyLimitReached",
		fmt.Sprintf("active_count=%d >= max_concurrent=%d", active, max), nil)
}

// TotalLimitReached is a spiral-gate rejection.
func TotalLimitReached(total, max int) *Error {
	return new_(KindPolicy, "TotalLimitReached",
		fmt.Sprintf("total_spawned=%d >= max_agents=%d", total, max), nil)
}

// DepthLimitReached is a spiral-gate rejection.
func DepthLimitReached(depth, max int) *Error {
	return new_(KindPolicy, "DepthLimitReached",
		fmt.Sprintf("depth=%d > max_depth=%d", depth, max), nil)
}

// DuplicateAgentActive is a spiral-gate rejection.
func DuplicateAgentActive(agentType string) *Error {
	return new_(KindPolicy, "DuplicateAgentActive",
		fmt.Sprintf("an active agent of type %q already exists", agentType), nil)
}

// LockContention signals a lock-acquisition timeout; retriable by the caller.
func LockContention(path string, cause error) *Error {
	return new_(KindContention, "LockContentionError",
		fmt.Sprintf("timed out acquiring lock on %s", path), cause)
}

// CorruptRegistry signals an on-disk document failed to parse.
func CorruptRegistry(path string, cause error) *Error {
	return new_(KindIntegrity, "CorruptRegistryError",
		fmt.Sprintf("registry document %s is corrupt", path), cause)
}

// InsufficientDisk signals the pre-flight free-space check failed.
func InsufficientDisk(path string, freeBytes, minBytes uint64) *Error {
	return new_(KindEnv, "InsufficientDisk",
		fmt.Sprintf("%s has %d bytes free, need >= %d", path, freeBytes, minBytes), nil)
}

// WorkspaceUnwritable signals the pre-flight write-probe failed.
func WorkspaceUnwritable(path string, cause error) *Error {
	return new_(KindEnv, "WorkspaceUnwritable", fmt.Sprintf("workspace %s is not writable", path), cause)
}

// SpawnFailed signals the process host could not start the backend.
func SpawnFailed(reason string, cause error) *Error {
	return new_(KindSpawn, "SpawnFailed", reason, cause)
}

// ValidationBlocked signals the completion validator attached a blocking issue.
func ValidationBlocked(reason string) *Error {
	return new_(KindValidation, "ValidationBlocked", reason, nil)
}

// Is reports whether err is an *Error of the given code, for errors.Is-style
// checks on sentinel-ish codes without exposing package-level vars per code.
func Is(err error, code string) bool {
	var e *Error
	for err != nil {
		if ae, ok := err.(*Error); ok {
			e = ae
			break
		}
		u, ok := err.(interface{ Unwrap() error })
		if !ok {
			break
		}
		err = u.Unwrap()
	}
	return e != nil && e.Code == code
}
