// Package output implements the Output Reader (spec §4.H): tail/filter/
// format/truncate composition over an agent's raw stream log, including the
// stream-event schema parser for "parsed" mode and the fallback-to-pane
// path when the stream log is missing.
package output

import (
	"encoding/json"
	"fmt"
	"regexp"
	"strings"

	"github.com/agentsys/orchestrator/internal/eventlog"
	"github.com/agentsys/orchestrator/internal/layout"
)

// Format selects how Read interprets the raw stream log lines.
type Format string

const (
	FormatText   Format = "text"
	FormatJSONL  Format = "jsonl"
	FormatParsed Format = "parsed"
)

// Request carries the get_agent_output tool inputs (spec §4.I, §4.H).
type Request struct {
	Workspace          string
	AgentID            string
	Tail               int
	Filter             string
	Format             Format
	MaxBytes           int
	AggressiveTruncate bool

	// PaneFallback, if non-nil, is invoked when the stream log is missing
	// or empty, to capture the backend's last-output buffer instead (spec
	// §4.H "fall back to the Process Host's last-output capture, e.g. the
	// multiplexer's pane buffer for backend S"). Left nil for Backend P,
	// which has no pane to fall back to.
	PaneFallback func() (string, error)
}

// Response is the get_agent_output result.
type Response struct {
	Lines     []string       `json:"lines,omitempty"`
	Parsed    []ParsedRecord `json:"parsed,omitempty"`
	Truncated bool           `json:"truncated"`
	Source    string         `json:"source"` // "stream" | "fallback"
}

// Read resolves and composes the stream log read per spec §4.H: tail,
// filter, and byte truncation over the raw lines, then format.
func Read(req Request) (*Response, error) {
	path := layout.StreamLogPath(req.Workspace, req.AgentID)

	var filter *regexp.Regexp
	if req.Filter != "" {
		compiled, err := regexp.Compile(req.Filter)
		if err != nil {
			return nil, fmt.Errorf("compile filter regex: %w", err)
		}
		filter = compiled
	}

	mode := eventlog.TruncatePrefix
	if req.AggressiveTruncate {
		mode = eventlog.TruncateAggressive
	}

	reader := eventlog.NewReader(path)
	result, err := reader.Read(eventlog.ReadOptions{
		Tail:             req.Tail,
		Filter:           filter,
		MaxResponseBytes: req.MaxBytes,
		Mode:             mode,
	})
	if err != nil {
		return nil, err
	}

	resp := &Response{Truncated: result.Truncated, Source: "stream"}

	if result.TotalLines == 0 && req.PaneFallback != nil {
		text, err := req.PaneFallback()
		if err == nil && text != "" {
			resp.Source = "fallback"
			resp.Lines = []string{text}
			return resp, nil
		}
	}

	switch req.Format {
	case FormatParsed:
		resp.Parsed = ParseLines(result.Lines)
	case FormatJSONL:
		resp.Lines = result.Lines
	default: // FormatText
		resp.Lines = []string{ExtractText(result.Lines)}
	}

	return resp, nil
}

// ExtractText strips structured framing and concatenates human-readable
// text from assistant/user messages (format="text", spec §4.H). It reads
// the same nested message.content[].text wire shape as parser.go's
// rawEvent, not a flat content string — the stream-event schema (spec §4.B)
// always nests text under content blocks.
func ExtractText(lines []string) string {
	var sb strings.Builder
	for _, line := range lines {
		var raw rawEvent
		if err := json.Unmarshal([]byte(line), &raw); err != nil {
			continue // malformed lines are skipped, spec §4.B
		}
		switch raw.Type {
		case "assistant", "user":
			if text := concatText(raw.Message); text != "" {
				sb.WriteString(text)
				sb.WriteString("\n")
			}
		case "result":
			var text string
			if err := json.Unmarshal(raw.Result, &text); err == nil && text != "" {
				sb.WriteString(text)
				sb.WriteString("\n")
			}
		}
	}
	return sb.String()
}
