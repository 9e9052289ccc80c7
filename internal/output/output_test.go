package output

import (
	"context"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/agentsys/orchestrator/internal/eventlog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func writeStreamLog(t *testing.T, workspace, agentID string, lines []string) {
	dir := filepath.Join(workspace, "logs")
	require.NoError(t, os.MkdirAll(dir, 0o755))
	path := filepath.Join(dir, agentID+"_stream.jsonl")
	w, err := eventlog.OpenWriter(path)
	require.NoError(t, err)
	for _, l := range lines {
		require.NoError(t, w.AppendLine([]byte(l)))
	}
	require.NoError(t, w.Close())
}

func TestReadTextFormat(t *testing.T) {
	ws := t.TempDir()
	writeStreamLog(t, ws, "a1", []string{
		`{"type":"system","subtype":"init","session_id":"s1","model":"m1"}`,
		`{"type":"assistant","message":{"role":"assistant","content":[{"type":"text","text":"hello there"}]}}`,
		`{"type":"result","result":"done"}`,
	})

	resp, err := Read(Request{Workspace: ws, AgentID: "a1", Format: FormatText})
	require.NoError(t, err)
	require.Len(t, resp.Lines, 1)
	assert.Contains(t, resp.Lines[0], "hello there")
	assert.Contains(t, resp.Lines[0], "done")
}

func TestReadJSONLFormat(t *testing.T) {
	ws := t.TempDir()
	writeStreamLog(t, ws, "a2", []string{`{"type":"assistant","content":"x"}`})

	resp, err := Read(Request{Workspace: ws, AgentID: "a2", Format: FormatJSONL})
	require.NoError(t, err)
	require.Len(t, resp.Lines, 1)
}

func TestReadParsedFormatMergesToolCall(t *testing.T) {
	ws := t.TempDir()
	writeStreamLog(t, ws, "a3", []string{
		`{"type":"tool_call","subtype":"started","call_id":"c1","tool_call":{"shellToolCall":{"args":{"cmd":"ls"}}}}`,
		`{"type":"tool_call","subtype":"completed","call_id":"c1","tool_call":{"shellToolCall":{"result":{"success":{"output":"ok"}}}},"duration_ms":12}`,
	})

	resp, err := Read(Request{Workspace: ws, AgentID: "a3", Format: FormatParsed})
	require.NoError(t, err)
	require.Len(t, resp.Parsed, 1)
	rec := resp.Parsed[0]
	assert.Equal(t, "tool_call", rec.Kind)
	assert.Equal(t, "shellToolCall", rec.ToolKind)
	assert.True(t, rec.Success)
}

func TestReadParsedFormatPreservesToolCallOrder(t *testing.T) {
	ws := t.TempDir()
	writeStreamLog(t, ws, "a3b", []string{
		`{"type":"system","subtype":"init","session_id":"s1","model":"m1"}`,
		`{"type":"tool_call","subtype":"started","call_id":"c1","tool_call":{"shellToolCall":{"args":{"cmd":"ls"}}}}`,
		`{"type":"tool_call","subtype":"completed","call_id":"c1","tool_call":{"shellToolCall":{"result":{"success":{"output":"ok"}}}},"duration_ms":12}`,
		`{"type":"assistant","message":{"role":"assistant","content":[{"type":"text","text":"looked at the listing"}]}}`,
		`{"type":"tool_call","subtype":"started","call_id":"c2","tool_call":{"editToolCall":{"args":{"path":"a.go"}}}}`,
		`{"type":"result","subtype":"success","session_id":"s1"}`,
		`{"type":"tool_call","subtype":"completed","call_id":"c2","tool_call":{"editToolCall":{"result":{"success":{"ok":true}}}},"duration_ms":5}`,
	})

	resp, err := Read(Request{Workspace: ws, AgentID: "a3b", Format: FormatParsed})
	require.NoError(t, err)
	require.Len(t, resp.Parsed, 5)

	assert.Equal(t, "session_init", resp.Parsed[0].Kind)

	assert.Equal(t, "tool_call", resp.Parsed[1].Kind)
	assert.Equal(t, "c1", resp.Parsed[1].CallID)
	assert.True(t, resp.Parsed[1].Success)

	assert.Equal(t, "assistant", resp.Parsed[2].Kind)
	assert.Contains(t, resp.Parsed[2].Text, "looked at the listing")

	// c2 merges the "completed" update from line 7 into the slot it first
	// appeared in at line 5, not after the intervening "result" event at
	// line 6.
	assert.Equal(t, "tool_call", resp.Parsed[3].Kind)
	assert.Equal(t, "c2", resp.Parsed[3].CallID)
	assert.True(t, resp.Parsed[3].Success)

	assert.Equal(t, "result", resp.Parsed[4].Kind)
}

func TestReadMissingLogFallsBack(t *testing.T) {
	ws := t.TempDir()
	called := false
	resp, err := Read(Request{
		Workspace: ws, AgentID: "missing", Format: FormatText,
		PaneFallback: func() (string, error) {
			called = true
			return "pane buffer contents", nil
		},
	})
	require.NoError(t, err)
	assert.True(t, called)
	assert.Equal(t, "fallback", resp.Source)
}

func TestFollowEmitsExistingLines(t *testing.T) {
	ws := t.TempDir()
	writeStreamLog(t, ws, "a4", []string{`{"type":"assistant","message":{"role":"assistant","content":[{"type":"text","text":"first"}]}}`})

	ctx, cancel := context.WithTimeout(context.Background(), 2*time.Second)
	defer cancel()

	updates := make(chan *Response, 4)
	go Follow(ctx, Request{Workspace: ws, AgentID: "a4", Format: FormatText}, func(r *Response) {
		select {
		case updates <- r:
		default:
		}
	})

	select {
	case r := <-updates:
		assert.Contains(t, r.Lines[0], "first")
	case <-time.After(1500 * time.Millisecond):
		t.Fatal("timed out waiting for initial Follow emission")
	}
}
