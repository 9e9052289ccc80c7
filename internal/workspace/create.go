package workspace

import (
	"fmt"
	"os"

	"github.com/agentsys/orchestrator/internal/layout"
)

// CreateWorkspace materializes a brand-new task workspace directory tree
// (progress/, findings/, logs/, archive/) under base, used by create_task
// (spec §4.I) before the registries are initialized.
func CreateWorkspace(base, taskID string) (string, error) {
	dir := layout.TaskDir(base, taskID)
	for _, sub := range []string{"progress", "findings", "logs", "archive"} {
		if err := os.MkdirAll(dir+string(os.PathSeparator)+sub, 0o755); err != nil {
			return "", fmt.Errorf("create workspace subdir %s: %w", sub, err)
		}
	}
	return dir, nil
}
