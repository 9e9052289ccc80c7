// Package workspace implements the Workspace Locator (spec §4.C): resolving
// a task_id to its on-disk workspace directory, including across sibling
// projects via the dual-registry cross-project index.
package workspace

import (
	"os"
	"path/filepath"
	"strings"

	"github.com/agentsys/orchestrator/internal/config"
	"github.com/agentsys/orchestrator/internal/errs"
	"github.com/agentsys/orchestrator/internal/layout"
	"github.com/agentsys/orchestrator/internal/registry"
)

// maxUpwardLevels bounds the upward directory walk (spec §4.C step 3).
const maxUpwardLevels = 5

// Locator resolves task ids to workspace paths using the strategy spec §4.C
// documents, in order: default base, every configured project base's
// global registry, then an upward walk from the working directory.
type Locator struct {
	store        *registry.Store
	defaultBase  string
	projectBases []string
	cwd          string
}

// NewLocator builds a Locator from configuration. cwd is the current
// working directory used both to resolve the {workspaceFolder} placeholder
// and as the starting point of the upward walk.
func NewLocator(store *registry.Store, cfg *config.Config, cwd string) *Locator {
	return &Locator{
		store:        store,
		defaultBase:  config.ResolvePlaceholder(cfg.WorkspaceBase, cwd),
		projectBases: resolveAll(cfg.ProjectBases, cwd),
		cwd:          cwd,
	}
}

func resolveAll(bases []string, cwd string) []string {
	out := make([]string, len(bases))
	for i, b := range bases {
		out[i] = config.ResolvePlaceholder(b, cwd)
	}
	return out
}

// Resolve returns task_id's workspace directory, or a TaskNotFound error.
func (l *Locator) Resolve(taskID string) (string, error) {
	// Step 1: default base's conventional layout.
	direct := layout.TaskDir(l.defaultBase, taskID)
	if dirExists(direct) {
		return direct, nil
	}

	// Step 2: consult every candidate global registry (default base first,
	// then configured project bases).
	candidateBases := append([]string{l.defaultBase}, l.projectBases...)
	for _, base := range candidateBases {
		globalPath := layout.GlobalRegistryPath(base)
		global, err := l.store.ReadGlobal(globalPath)
		if err != nil {
			continue // unreadable/corrupt registry is skipped, not fatal
		}
		if entry, ok := global.Tasks[taskID]; ok && entry.Workspace != "" {
			if dirExists(entry.Workspace) {
				return entry.Workspace, nil
			}
		}
	}

	// Step 3: walk upward from cwd, checking .agent-workspace/{task_id}.
	dir := l.cwd
	for level := 0; level < maxUpwardLevels; level++ {
		candidate := filepath.Join(dir, ".agent-workspace", taskID)
		if dirExists(candidate) {
			return candidate, nil
		}
		parent := filepath.Dir(dir)
		if parent == dir {
			break // reached filesystem root
		}
		dir = parent
	}

	return "", errs.TaskNotFound(taskID)
}

// DefaultBase returns the resolved default workspace base, used by
// create_task to stage a brand-new workspace (spec §4.F).
func (l *Locator) DefaultBase() string {
	return l.defaultBase
}

func dirExists(path string) bool {
	if path == "" {
		return false
	}
	info, err := os.Stat(path)
	return err == nil && info.IsDir()
}

// IsCrossProject reports whether workspace lies outside defaultBase, used
// to set GlobalTaskEntry.CrossProjectReference (spec §6).
func (l *Locator) IsCrossProject(workspacePath string) bool {
	rel, err := filepath.Rel(l.defaultBase, workspacePath)
	if err != nil {
		return true
	}
	return strings.HasPrefix(rel, "..")
}
