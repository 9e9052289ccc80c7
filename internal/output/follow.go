package output

import (
	"context"
	"time"

	"github.com/fsnotify/fsnotify"

	"github.com/agentsys/orchestrator/internal/layout"
)

// pollInterval is the polling-fallback cadence used when a filesystem watch
// cannot be established (containerized/NFS workspaces, spec §4.H).
const pollInterval = 500 * time.Millisecond

// Follow streams newly-appended stream-log lines to onLines until ctx is
// canceled. It prefers an fsnotify watch on the log's directory and falls
// back to polling Read on pollInterval when the watch cannot be created —
// the log file itself may not exist yet when Follow starts, and some
// workspace filesystems (NFS mounts, certain container overlays) do not
// deliver write events at all.
func Follow(ctx context.Context, req Request, onLines func(*Response)) error {
	path := layout.StreamLogPath(req.Workspace, req.AgentID)
	dir := layout.LogsDir(req.Workspace)

	watcher, err := fsnotify.NewWatcher()
	if err != nil {
		return followByPolling(ctx, req, onLines)
	}
	defer watcher.Close()

	if err := watcher.Add(dir); err != nil {
		return followByPolling(ctx, req, onLines)
	}

	emit := func() {
		resp, err := Read(req)
		if err == nil {
			onLines(resp)
		}
	}
	emit()

	ticker := time.NewTicker(pollInterval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return nil
		case ev, ok := <-watcher.Events:
			if !ok {
				return followByPolling(ctx, req, onLines)
			}
			if ev.Name == path && (ev.Op&(fsnotify.Write|fsnotify.Create) != 0) {
				emit()
			}
		case <-watcher.Errors:
			// Watch degraded; the ticker below keeps output moving.
		case <-ticker.C:
			emit()
		}
	}
}

// followByPolling is the no-watch fallback: re-Read on a fixed interval.
func followByPolling(ctx context.Context, req Request, onLines func(*Response)) error {
	ticker := time.NewTicker(pollInterval)
	defer ticker.Stop()

	for {
		resp, err := Read(req)
		if err == nil {
			onLines(resp)
		}
		select {
		case <-ctx.Done():
			return nil
		case <-ticker.C:
		}
	}
}
