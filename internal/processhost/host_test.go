package processhost

import (
	"testing"

	"github.com/agentsys/orchestrator/internal/config"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestPreflightCheckWritableDir(t *testing.T) {
	dir := t.TempDir()
	err := PreflightCheck(dir, 0)
	assert.NoError(t, err)
}

func TestPreflightCheckInsufficientDisk(t *testing.T) {
	dir := t.TempDir()
	err := PreflightCheck(dir, 1<<62) // absurdly high floor, must fail
	assert.Error(t, err)
}

func TestNewSelectsBackendByConfig(t *testing.T) {
	cfg := config.DefaultConfig()

	cfg.AgentBackend = config.BackendProcess
	h := New(cfg)
	_, ok := h.(*processHost)
	require.True(t, ok)

	cfg.AgentBackend = config.BackendSession
	h = New(cfg)
	_, ok = h.(*sessionHost)
	require.True(t, ok)
}

func TestProcessHostAliveFalseForUnknownPID(t *testing.T) {
	h := &processHost{}
	assert.False(t, h.Alive(Handle{PID: 0}))
}
