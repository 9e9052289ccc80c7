// Package processhost implements the Process Host Abstraction (spec §4.D):
// a uniform spawn/alive/kill interface over two interchangeable backends,
// a session multiplexer (Backend S) and a direct detached child process
// (Backend P).
package processhost

import (
	"fmt"
	"os"
	"path/filepath"

	"github.com/agentsys/orchestrator/internal/config"
	"github.com/agentsys/orchestrator/internal/errs"
)

// Handle is an opaque reference to a running agent process, returned by
// Spawn and consumed by Alive/Kill. Exactly one of SessionName/PID is
// populated, matching the spec §3 invariant on the Agent record.
type Handle struct {
	SessionName string
	PID         int
}

// KillResult reports what Kill actually did.
type KillResult struct {
	Signalled      bool
	StrayProcesses []int
}

// Host is the uniform interface both backends satisfy.
type Host interface {
	// Spawn starts argv in cwd with the given environment, directing its
	// combined output to logPath, and returns a Handle.
	Spawn(cwd string, argv []string, env []string, logPath string) (Handle, error)

	// Alive reports whether the process/session behind handle is still
	// running.
	Alive(handle Handle) bool

	// Kill terminates the process/session behind handle for the given
	// human-readable reason.
	Kill(handle Handle, reason string) (KillResult, error)
}

// New returns the Host implementation selected by cfg.AgentBackend.
func New(cfg *config.Config) Host {
	switch cfg.AgentBackend {
	case config.BackendSession:
		return &sessionHost{sessionPrefix: "agent"}
	default:
		return &processHost{terminateGrace: cfg.TerminateGrace}
	}
}

// PreflightCheck runs the pre-spawn checks both backends must perform
// before touching the registry (spec §4.D): a free-disk-space floor and a
// write-probe. Failure aborts with a structured error and no registry
// mutation — callers must run this before invoking Spawn.
func PreflightCheck(workspace string, minFreeBytes uint64) error {
	free, err := freeDiskBytes(workspace)
	if err != nil {
		return errs.WorkspaceUnwritable(workspace, err)
	}
	if free < minFreeBytes {
		return errs.InsufficientDisk(workspace, free, minFreeBytes)
	}

	probe := filepath.Join(workspace, ".write-probe")
	if err := os.WriteFile(probe, []byte("ok"), 0o644); err != nil {
		return errs.WorkspaceUnwritable(workspace, err)
	}
	if err := os.Remove(probe); err != nil {
		return errs.WorkspaceUnwritable(workspace, fmt.Errorf("remove write probe: %w", err))
	}
	return nil
}
