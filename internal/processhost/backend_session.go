package processhost

import (
	"fmt"
	"os/exec"
	"strconv"
	"strings"

	"github.com/agentsys/orchestrator/internal/errs"
)

// sessionHost is Backend S (spec §4.D): the agent runs inside a named
// detached tmux session. Liveness is "session exists"; output is captured
// by tee-piping the session's command to the stream log; termination kills
// the session outright.
type sessionHost struct {
	sessionPrefix string
}

func (h *sessionHost) Spawn(cwd string, argv []string, env []string, logPath string) (Handle, error) {
	if len(argv) == 0 {
		return Handle{}, errs.SpawnFailed("empty argv", nil)
	}
	name := sessionName(h.sessionPrefix, logPath)

	// Tee the command's combined output into logPath from inside the
	// session so the raw stream log is written by the same process that
	// owns the terminal, not by us reading its pty.
	inner := fmt.Sprintf("%s 2>&1 | tee -a %s", shellQuoteJoin(argv), shellQuote(logPath))

	cmd := exec.Command("tmux", "new-session", "-d", "-s", name, "-c", cwd, inner)
	cmd.Env = env
	if err := cmd.Run(); err != nil {
		return Handle{}, errs.SpawnFailed("tmux new-session", err)
	}
	return Handle{SessionName: name}, nil
}

func (h *sessionHost) Alive(handle Handle) bool {
	if handle.SessionName == "" {
		return false
	}
	cmd := exec.Command("tmux", "has-session", "-t", handle.SessionName)
	return cmd.Run() == nil
}

func (h *sessionHost) Kill(handle Handle, reason string) (KillResult, error) {
	if handle.SessionName == "" {
		return KillResult{}, errs.SpawnFailed("kill: no session in handle", nil)
	}
	if !h.Alive(handle) {
		return KillResult{Signalled: false}, nil
	}

	// Snapshot the pane's process tree before killing the session: tmux
	// only guarantees the pane leader dies, not anything it spawned and
	// detached (spec §4.G cleanup step (e)).
	var descendants []int
	if panePID := h.panePID(handle); panePID > 0 {
		descendants = append(descendantPIDs(panePID), panePID)
	}

	cmd := exec.Command("tmux", "kill-session", "-t", handle.SessionName)
	if err := cmd.Run(); err != nil {
		return KillResult{}, errs.SpawnFailed("tmux kill-session: "+reason, err)
	}
	return KillResult{Signalled: true, StrayProcesses: stillAlive(descendants)}, nil
}

// panePID returns the PID of the session's pane leader, or 0 if it can't
// be determined.
func (h *sessionHost) panePID(handle Handle) int {
	out, err := exec.Command("tmux", "list-panes", "-t", handle.SessionName, "-F", "#{pane_pid}").Output()
	if err != nil {
		return 0
	}
	pid, err := strconv.Atoi(strings.TrimSpace(string(out)))
	if err != nil {
		return 0
	}
	return pid
}

// CapturePane returns the session's current pane buffer, used as the
// fallback output source when the stream log is missing (spec §4.H).
func (h *sessionHost) CapturePane(handle Handle) (string, error) {
	if handle.SessionName == "" {
		return "", errs.SpawnFailed("capture-pane: no session in handle", nil)
	}
	out, err := exec.Command("tmux", "capture-pane", "-t", handle.SessionName, "-p", "-S", "-2000").Output()
	if err != nil {
		return "", fmt.Errorf("tmux capture-pane: %w", err)
	}
	return string(out), nil
}

func sessionName(prefix, logPath string) string {
	base := strings.TrimSuffix(lastPathElement(logPath), "_stream.jsonl")
	return fmt.Sprintf("%s-%s", prefix, base)
}

func lastPathElement(path string) string {
	idx := strings.LastIndexByte(path, '/')
	if idx < 0 {
		return path
	}
	return path[idx+1:]
}

func shellQuote(s string) string {
	return "'" + strings.ReplaceAll(s, "'", `'\''`) + "'"
}

func shellQuoteJoin(argv []string) string {
	parts := make([]string, len(argv))
	for i, a := range argv {
		parts[i] = shellQuote(a)
	}
	return strings.Join(parts, " ")
}
