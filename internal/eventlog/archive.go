package eventlog

import (
	"fmt"
	"os"
	"path/filepath"
	"time"

	"github.com/agentsys/orchestrator/internal/layout"
)

// stabilizationWindow is how long a log's mtime must be quiescent before
// Archive will move it, avoiding a race with a writer that is mid-append
// at the moment an agent is marked terminal (spec §4.G cleanup sequence).
const stabilizationWindow = 500 * time.Millisecond

// Archive moves an agent's progress, findings, and stream logs into the
// task's archive/ directory once they have stopped changing. It is
// best-effort: a log that is still being written (mtime inside the
// stabilization window) is left in place and returned in pending, not
// treated as an error. Archive does not retry, and nothing schedules a
// later pass, so a pending log stays in its hot directory.
func Archive(workspace, agentID string) (moved []string, pending []string, err error) {
	archiveDir := layout.ArchiveDir(workspace)
	if err := os.MkdirAll(archiveDir, 0o755); err != nil {
		return nil, nil, fmt.Errorf("mkdir %s: %w", archiveDir, err)
	}

	candidates := []string{
		layout.ProgressLogPath(workspace, agentID),
		layout.FindingsLogPath(workspace, agentID),
		layout.StreamLogPath(workspace, agentID),
	}

	for _, src := range candidates {
		info, statErr := os.Stat(src)
		if statErr != nil {
			if os.IsNotExist(statErr) {
				continue
			}
			return moved, pending, fmt.Errorf("stat %s: %w", src, statErr)
		}

		if time.Since(info.ModTime()) < stabilizationWindow {
			pending = append(pending, src)
			continue
		}

		dst := filepath.Join(archiveDir, filepath.Base(src))
		if err := os.Rename(src, dst); err != nil {
			return moved, pending, fmt.Errorf("archive %s: %w", src, err)
		}
		moved = append(moved, dst)
	}

	return moved, pending, nil
}
