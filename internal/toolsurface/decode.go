package toolsurface

import (
	"encoding/json"

	"github.com/agentsys/orchestrator/internal/eventlog"
)

func decodeProgressLines(lines []string) []eventlog.ProgressEntry {
	var out []eventlog.ProgressEntry
	for _, l := range lines {
		var e eventlog.ProgressEntry
		if err := json.Unmarshal([]byte(l), &e); err == nil {
			out = append(out, e)
		}
	}
	return out
}

func decodeFindingLines(lines []string) []eventlog.FindingEntry {
	var out []eventlog.FindingEntry
	for _, l := range lines {
		var e eventlog.FindingEntry
		if err := json.Unmarshal([]byte(l), &e); err == nil {
			out = append(out, e)
		}
	}
	return out
}
