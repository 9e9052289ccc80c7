// Package layout centralizes the workspace filesystem tree documented in
// spec §6, so every component agrees on where a given document or log
// lives without duplicating path-joining logic.
//
//	<workspace_base>/
//	  registry/
//	    GLOBAL_REGISTRY.json
//	    GLOBAL_REGISTRY.json.backup
//	  <task_id>/
//	    AGENT_REGISTRY.json
//	    AGENT_REGISTRY.json.backup
//	    progress/<agent_id>_progress.jsonl
//	    findings/<agent_id>_findings.jsonl
//	    logs/<agent_id>_stream.jsonl
//	    archive/
//	    agent_prompt_<agent_id>.txt
package layout

import "path/filepath"

// GlobalRegistryPath returns the path to the global registry document under
// the given base directory.
func GlobalRegistryPath(base string) string {
	return filepath.Join(base, "registry", "GLOBAL_REGISTRY.json")
}

// TaskDir returns a task's workspace directory under the given base.
func TaskDir(base, taskID string) string {
	return filepath.Join(base, taskID)
}

// TaskRegistryPath returns the path to a task's registry document.
func TaskRegistryPath(workspace string) string {
	return filepath.Join(workspace, "AGENT_REGISTRY.json")
}

// ProgressLogPath returns an agent's progress log path.
func ProgressLogPath(workspace, agentID string) string {
	return filepath.Join(workspace, "progress", agentID+"_progress.jsonl")
}

// FindingsLogPath returns an agent's findings log path.
func FindingsLogPath(workspace, agentID string) string {
	return filepath.Join(workspace, "findings", agentID+"_findings.jsonl")
}

// StreamLogPath returns an agent's raw stream log path.
func StreamLogPath(workspace, agentID string) string {
	return filepath.Join(workspace, "logs", agentID+"_stream.jsonl")
}

// LogsDir returns the directory containing a task's raw stream logs, the
// directory an fsnotify watch is established on for Output Reader follow
// mode (spec §4.H) since the stream log file may not exist yet.
func LogsDir(workspace string) string {
	return filepath.Join(workspace, "logs")
}

// ArchiveDir returns a task's archive directory.
func ArchiveDir(workspace string) string {
	return filepath.Join(workspace, "archive")
}

// PromptPath returns the path of an agent's materialized prompt file,
// present only while the agent is deploying (spec §6).
func PromptPath(workspace, agentID string) string {
	return filepath.Join(workspace, "agent_prompt_"+agentID+".txt")
}
