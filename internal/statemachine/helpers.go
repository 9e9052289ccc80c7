package statemachine

import (
	"encoding/json"
	"os"

	"github.com/agentsys/orchestrator/internal/eventlog"
)

func appendEntry(path string, entry eventlog.ProgressEntry) error {
	w, err := eventlog.OpenWriter(path)
	if err != nil {
		return err
	}
	defer w.Close()
	return w.Append(entry)
}

func decodeProgress(lines []string) []eventlog.ProgressEntry {
	var out []eventlog.ProgressEntry
	for _, l := range lines {
		var e eventlog.ProgressEntry
		if err := json.Unmarshal([]byte(l), &e); err == nil {
			out = append(out, e)
		}
	}
	return out
}

func decodeFindings(lines []string) []eventlog.FindingEntry {
	var out []eventlog.FindingEntry
	for _, l := range lines {
		var e eventlog.FindingEntry
		if err := json.Unmarshal([]byte(l), &e); err == nil {
			out = append(out, e)
		}
	}
	return out
}

func removeFile(path string) error {
	return os.Remove(path)
}

func isNotExist(err error) bool {
	return os.IsNotExist(err)
}
