// Package config loads the orchestration server's configuration from the
// environment (spec §6), the way internal/agent/config does in the teacher:
// a DefaultConfig() constructor overlaid by .env and then live env vars.
package config

import (
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/joho/godotenv"
	"gopkg.in/yaml.v3"
)

// Backend selects the Process Host implementation (spec §4.D).
type Backend string

const (
	BackendSession Backend = "session"
	BackendProcess Backend = "process"
)

// Config holds every tunable named in spec §4 and §6.
type Config struct {
	// WorkspaceBase is the default base directory for task workspaces.
	// Supports the {workspaceFolder} placeholder, resolved at use time by
	// the Workspace Locator.
	WorkspaceBase string `yaml:"workspace_base"`

	// ProjectBases are additional configured bases the Workspace Locator
	// consults when resolving cross-project tasks (spec §4.C step 2).
	ProjectBases []string `yaml:"project_bases"`

	// Spiral gate defaults (spec §4.E), overridable per task/deployment.
	MaxAgents     int `yaml:"max_agents"`
	MaxConcurrent int `yaml:"max_concurrent"`
	MaxDepth      int `yaml:"max_depth"`

	// AgentBackend selects the Process Host backend.
	AgentBackend Backend `yaml:"agent_backend"`

	// EnableThinkingCapture toggles parsing of "thinking" delta events
	// (spec §6), off by default.
	EnableThinkingCapture bool `yaml:"enable_thinking_capture"`

	// Timeouts/budgets named in spec §4.A and §5.
	LockTimeout      time.Duration `yaml:"lock_timeout"`
	ProcessProbeWait time.Duration `yaml:"process_probe_timeout"`
	RegistrySweep    time.Duration `yaml:"registry_sweep_timeout"`

	// Cleanup timings (spec §4.G, §5).
	StabilizationWait time.Duration `yaml:"stabilization_wait"`
	TerminateGrace    time.Duration `yaml:"terminate_grace"`

	// Liveness daemon (spec §5, optional safety net).
	LivenessSweepCron string        `yaml:"liveness_sweep_cron"`
	InactivityTimeout time.Duration `yaml:"inactivity_timeout"`

	// MinFreeDiskBytes is the pre-flight free-space floor (spec §4.D).
	MinFreeDiskBytes uint64 `yaml:"min_free_disk_bytes"`
}

// DefaultConfig returns the documented defaults from spec §4.E, §4.A, and §5.
func DefaultConfig() *Config {
	return &Config{
		WorkspaceBase:         "{workspaceFolder}/.agent-workspace",
		MaxAgents:             45,
		MaxConcurrent:         20,
		MaxDepth:              5,
		AgentBackend:          BackendProcess,
		EnableThinkingCapture: false,
		LockTimeout:           5 * time.Second,
		ProcessProbeWait:      10 * time.Second,
		RegistrySweep:         30 * time.Second,
		StabilizationWait:     200 * time.Millisecond,
		TerminateGrace:        500 * time.Millisecond,
		LivenessSweepCron:     "@every 60s",
		InactivityTimeout:     110 * time.Minute,
		MinFreeDiskBytes:      100 * 1024 * 1024,
	}
}

// Load builds a Config from DefaultConfig(), a .env file if present (via
// godotenv, mirroring the teacher's CLI entrypoints), and then process
// environment variables, which take final precedence.
func Load() (*Config, error) {
	_ = godotenv.Load() // best-effort; missing .env is not an error

	cfg := DefaultConfig()
	applyEnv(cfg)
	return cfg, nil
}

// LoadFromYAML loads a committed defaults file and then overlays env vars,
// for operators who want config-as-code instead of (or alongside) .env.
func LoadFromYAML(path string) (*Config, error) {
	cfg := DefaultConfig()

	data, err := os.ReadFile(path)
	if err != nil {
		return nil, err
	}
	if err := yaml.Unmarshal(data, cfg); err != nil {
		return nil, err
	}

	applyEnv(cfg)
	return cfg, nil
}

func applyEnv(cfg *Config) {
	if v := os.Getenv("WORKSPACE_BASE"); v != "" {
		cfg.WorkspaceBase = v
	}
	if v := os.Getenv("PROJECT_BASES"); v != "" {
		cfg.ProjectBases = splitNonEmpty(v, ":")
	}
	if v := os.Getenv("MAX_AGENTS"); v != "" {
		if n, err := strconv.Atoi(v); err == nil {
			cfg.MaxAgents = n
		}
	}
	if v := os.Getenv("MAX_CONCURRENT"); v != "" {
		if n, err := strconv.Atoi(v); err == nil {
			cfg.MaxConcurrent = n
		}
	}
	if v := os.Getenv("MAX_DEPTH"); v != "" {
		if n, err := strconv.Atoi(v); err == nil {
			cfg.MaxDepth = n
		}
	}
	if v := os.Getenv("AGENT_BACKEND"); v != "" {
		cfg.AgentBackend = Backend(v)
	}
	if v := os.Getenv("ENABLE_THINKING_CAPTURE"); v != "" {
		cfg.EnableThinkingCapture = parseBool(v, cfg.EnableThinkingCapture)
	}
}

func parseBool(s string, def bool) bool {
	s = strings.TrimSpace(strings.ToLower(s))
	if s == "" {
		return def
	}
	return s == "true" || s == "1" || s == "yes"
}

func splitNonEmpty(s, sep string) []string {
	var out []string
	for _, part := range strings.Split(s, sep) {
		part = strings.TrimSpace(part)
		if part != "" {
			out = append(out, part)
		}
	}
	return out
}

// ResolvePlaceholder resolves the {workspaceFolder} placeholder in a
// configured path to the given current-working-directory (spec §4.C).
func ResolvePlaceholder(path, cwd string) string {
	return strings.ReplaceAll(path, "{workspaceFolder}", cwd)
}
