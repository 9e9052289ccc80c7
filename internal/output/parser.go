package output

import (
	"encoding/json"
)

// ParsedRecord is one structured record produced by "parsed" mode (spec
// §4.H): session init, assistant text, a merged tool-call (started+
// completed), or the final result. Exactly the fields relevant to Kind are
// populated.
type ParsedRecord struct {
	Kind string `json:"kind"` // session_init | assistant | thinking | tool_call | result

	// session_init
	SessionID      string `json:"session_id,omitempty"`
	Model          string `json:"model,omitempty"`
	CWD            string `json:"cwd,omitempty"`
	PermissionMode string `json:"permission_mode,omitempty"`

	// assistant / thinking
	Text        string `json:"text,omitempty"`
	ModelCallID string `json:"model_call_id,omitempty"`
	TimestampMS int64  `json:"timestamp_ms,omitempty"`

	// tool_call (merged started+completed pair)
	CallID     string `json:"call_id,omitempty"`
	ToolKind   string `json:"tool_kind,omitempty"`
	Args       any    `json:"args,omitempty"`
	Result     any    `json:"result,omitempty"`
	Success    bool   `json:"success,omitempty"`
	ErrorMsg   string `json:"error,omitempty"`
	DurationMS int64  `json:"duration_ms,omitempty"`

	// result
	Subtype   string `json:"subtype,omitempty"`
	IsError   bool   `json:"is_error,omitempty"`
	RequestID string `json:"request_id,omitempty"`
}

type rawEvent struct {
	Type    string `json:"type"`
	Subtype string `json:"subtype"`

	SessionID      string `json:"session_id"`
	Model          string `json:"model"`
	CWD            string `json:"cwd"`
	PermissionMode string `json:"permissionMode"`

	Message *struct {
		Role    string `json:"role"`
		Content []struct {
			Type string `json:"type"`
			Text string `json:"text"`
		} `json:"content"`
	} `json:"message"`

	Text        string `json:"text"`
	TimestampMS int64  `json:"timestamp_ms"`
	ModelCallID string `json:"model_call_id"`

	CallID   string          `json:"call_id"`
	ToolCall json.RawMessage `json:"tool_call"`

	DurationMS int64           `json:"duration_ms"`
	Result     json.RawMessage `json:"result"`
	IsError    *bool           `json:"is_error"`
	RequestID  string          `json:"request_id"`
}

// ParseLines interprets raw stream-event JSON lines into ParsedRecords,
// merging a tool_call's "started" and "completed" events into one record
// keyed by call_id (spec §4.H "parsed" mode).
func ParseLines(lines []string) []ParsedRecord {
	var records []ParsedRecord
	pending := make(map[string]int) // call_id -> index into records

	for _, line := range lines {
		var raw rawEvent
		if err := json.Unmarshal([]byte(line), &raw); err != nil {
			continue // malformed lines skipped, spec §4.B
		}

		switch raw.Type {
		case "system":
			if raw.Subtype == "init" {
				records = append(records, ParsedRecord{
					Kind: "session_init", SessionID: raw.SessionID, Model: raw.Model,
					CWD: raw.CWD, PermissionMode: raw.PermissionMode,
				})
			}

		case "assistant":
			records = append(records, ParsedRecord{
				Kind: "assistant", Text: concatText(raw.Message), TimestampMS: raw.TimestampMS, ModelCallID: raw.ModelCallID,
			})

		case "user":
			records = append(records, ParsedRecord{Kind: "user", Text: concatText(raw.Message)})

		case "thinking":
			records = append(records, ParsedRecord{Kind: "thinking", Text: raw.Text, TimestampMS: raw.TimestampMS})

		case "tool_call":
			kind, args, result, success, errMsg := parseToolCall(raw.ToolCall)
			idx, seen := pending[raw.CallID]
			if !seen {
				// Insert at the position the call first appears, so a
				// later "completed" event merges in place rather than the
				// record migrating to wherever it was last touched.
				idx = len(records)
				records = append(records, ParsedRecord{Kind: "tool_call", CallID: raw.CallID, ToolKind: kind, Args: args})
				pending[raw.CallID] = idx
			}
			rec := &records[idx]
			if raw.Subtype == "completed" {
				rec.Result = result
				rec.Success = success
				rec.ErrorMsg = errMsg
				rec.DurationMS = raw.DurationMS
			}
			if args != nil {
				rec.Args = args
			}

		case "result":
			isErr := false
			if raw.IsError != nil {
				isErr = *raw.IsError
			}
			records = append(records, ParsedRecord{
				Kind: "result", Subtype: raw.Subtype, DurationMS: raw.DurationMS,
				IsError: isErr, SessionID: raw.SessionID, RequestID: raw.RequestID,
			})
		}
	}

	return records
}

func concatText(msg *struct {
	Role    string `json:"role"`
	Content []struct {
		Type string `json:"type"`
		Text string `json:"text"`
	} `json:"content"`
}) string {
	if msg == nil {
		return ""
	}
	out := ""
	for _, c := range msg.Content {
		if c.Type == "text" {
			out += c.Text
		}
	}
	return out
}

// parseToolCall tolerates any of the recognized tool kinds (shellToolCall,
// editToolCall, readToolCall) as a single opaque kind+args+result, since
// the Output Reader never needs to interpret tool-specific fields itself.
func parseToolCall(raw json.RawMessage) (kind string, args, result any, success bool, errMsg string) {
	var m map[string]json.RawMessage
	if err := json.Unmarshal(raw, &m); err != nil {
		return "", nil, nil, false, ""
	}
	for toolKind, body := range m {
		kind = toolKind
		var inner struct {
			Args   any `json:"args"`
			Result *struct {
				Success *json.RawMessage `json:"success"`
				Error   *struct {
					Message string `json:"message"`
				} `json:"error"`
			} `json:"result"`
		}
		if err := json.Unmarshal(body, &inner); err == nil {
			args = inner.Args
			if inner.Result != nil {
				if inner.Result.Success != nil {
					success = true
					var v any
					json.Unmarshal(*inner.Result.Success, &v)
					result = v
				}
				if inner.Result.Error != nil {
					success = false
					errMsg = inner.Result.Error.Message
				}
			}
		}
		break // exactly one tool kind per call
	}
	return kind, args, result, success, errMsg
}
