package processhost

import (
	"fmt"
	"os"
	"os/exec"
	"time"

	"github.com/agentsys/orchestrator/internal/errs"
)

// processHost is Backend P (spec §4.D): the agent runs as a detached child
// with its own process group. Liveness is "pid alive"; termination signals
// the whole group, escalating from SIGTERM to SIGKILL after a grace period.
type processHost struct {
	terminateGrace time.Duration
}

func (h *processHost) Spawn(cwd string, argv []string, env []string, logPath string) (Handle, error) {
	if len(argv) == 0 {
		return Handle{}, errs.SpawnFailed("empty argv", nil)
	}

	logFile, err := os.OpenFile(logPath, os.O_CREATE|os.O_WRONLY|os.O_APPEND, 0o644)
	if err != nil {
		return Handle{}, errs.SpawnFailed("open stream log", err)
	}
	defer logFile.Close()

	cmd := exec.Command(argv[0], argv[1:]...)
	cmd.Dir = cwd
	cmd.Env = env
	cmd.Stdout = logFile
	cmd.Stderr = logFile
	setProcessGroup(cmd)

	if err := cmd.Start(); err != nil {
		return Handle{}, errs.SpawnFailed(fmt.Sprintf("start %s", argv[0]), err)
	}

	// The child inherits the open fd for its own writes. A background Wait
	// reaps it when it exits so it does not linger as a zombie; liveness is
	// still tracked by PID, not by the result of Wait.
	go cmd.Wait()

	return Handle{PID: cmd.Process.Pid}, nil
}

func (h *processHost) Alive(handle Handle) bool {
	if handle.PID <= 0 {
		return false
	}
	return processAlive(handle.PID)
}

func (h *processHost) Kill(handle Handle, reason string) (KillResult, error) {
	if handle.PID <= 0 {
		return KillResult{}, errs.SpawnFailed("kill: no pid in handle", nil)
	}

	if !processAlive(handle.PID) {
		return KillResult{Signalled: false}, nil
	}

	// Snapshot the process tree before signaling: a child that has already
	// re-parented away from the group won't be reachable by signalGroup,
	// so it has to be tracked by PID and checked for survival separately.
	descendants := descendantPIDs(handle.PID)

	signalGroup(handle.PID, false)

	deadline := time.Now().Add(h.terminateGrace)
	for time.Now().Before(deadline) {
		if !processAlive(handle.PID) {
			return KillResult{Signalled: true, StrayProcesses: stillAlive(descendants)}, nil
		}
		time.Sleep(20 * time.Millisecond)
	}

	signalGroup(handle.PID, true)
	return KillResult{Signalled: true, StrayProcesses: stillAlive(descendants)}, nil
}

// stillAlive filters pids down to the ones still running, reported as
// stray processes the caller should know escaped termination (spec §4.G
// cleanup step (e)).
func stillAlive(pids []int) []int {
	var alive []int
	for _, pid := range pids {
		if processAlive(pid) {
			alive = append(alive, pid)
		}
	}
	return alive
}
