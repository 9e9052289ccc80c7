package workspace

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/agentsys/orchestrator/internal/config"
	"github.com/agentsys/orchestrator/internal/layout"
	"github.com/agentsys/orchestrator/internal/registry"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestResolveDirectHit(t *testing.T) {
	base := t.TempDir()
	taskID := "task-1"
	_, err := CreateWorkspace(base, taskID)
	require.NoError(t, err)

	cfg := config.DefaultConfig()
	cfg.WorkspaceBase = base
	loc := NewLocator(registry.NewStore(time.Second), cfg, t.TempDir())

	got, err := loc.Resolve(taskID)
	require.NoError(t, err)
	assert.Equal(t, layout.TaskDir(base, taskID), got)
}

func TestResolveViaGlobalRegistry(t *testing.T) {
	defaultBase := t.TempDir()
	otherBase := t.TempDir()
	taskID := "task-cross"
	workspaceDir, err := CreateWorkspace(otherBase, taskID)
	require.NoError(t, err)

	store := registry.NewStore(time.Second)
	_, err = store.GlobalUpsertTask(layout.GlobalRegistryPath(otherBase), taskID, registry.GlobalTaskEntry{
		Workspace:     workspaceDir,
		WorkspaceBase: otherBase,
	})
	require.NoError(t, err)

	cfg := config.DefaultConfig()
	cfg.WorkspaceBase = defaultBase
	cfg.ProjectBases = []string{otherBase}
	loc := NewLocator(store, cfg, t.TempDir())

	got, err := loc.Resolve(taskID)
	require.NoError(t, err)
	assert.Equal(t, workspaceDir, got)
}

func TestResolveUpwardWalk(t *testing.T) {
	root := t.TempDir()
	nested := filepath.Join(root, "a", "b", "c")
	require.NoError(t, os.MkdirAll(nested, 0o755))

	taskID := "task-up"
	wsDir := filepath.Join(root, "a", ".agent-workspace", taskID)
	require.NoError(t, os.MkdirAll(wsDir, 0o755))

	cfg := config.DefaultConfig()
	cfg.WorkspaceBase = t.TempDir()
	loc := NewLocator(registry.NewStore(time.Second), cfg, nested)

	got, err := loc.Resolve(taskID)
	require.NoError(t, err)
	assert.Equal(t, wsDir, got)
}

func TestResolveNotFound(t *testing.T) {
	cfg := config.DefaultConfig()
	cfg.WorkspaceBase = t.TempDir()
	loc := NewLocator(registry.NewStore(time.Second), cfg, t.TempDir())

	_, err := loc.Resolve("does-not-exist")
	assert.Error(t, err)
}
