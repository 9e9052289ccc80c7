package toolsurface

import (
	"strings"
	"testing"
	"time"

	"github.com/agentsys/orchestrator/internal/registry"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestSanitizeConversationHistoryTruncatesPerRole(t *testing.T) {
	ctx := &registry.TaskContext{
		ConversationHistory: []registry.ConversationMessage{
			{Role: "user", Content: strings.Repeat("a", 300), Timestamp: time.Now()},
			{Role: "assistant", Content: strings.Repeat("b", 9000), Timestamp: time.Now()},
		},
	}
	sanitizeConversationHistory(ctx)

	require.Len(t, ctx.ConversationHistory, 2)
	assert.LessOrEqual(t, len(ctx.ConversationHistory[0].Content), userContentLimit+len(truncationMarker))
	assert.LessOrEqual(t, len(ctx.ConversationHistory[1].Content), assistantContentLimit+len(truncationMarker))
	assert.Contains(t, ctx.ConversationHistory[0].Content, "truncated")
	assert.NotEmpty(t, ctx.TruncationSummary)
}

func TestSanitizeConversationHistorySkipsEmptyAndDefaultsTimestamp(t *testing.T) {
	ctx := &registry.TaskContext{
		ConversationHistory: []registry.ConversationMessage{
			{Role: "user", Content: "  "},
			{Role: "user", Content: "hello"},
		},
	}
	sanitizeConversationHistory(ctx)

	require.Len(t, ctx.ConversationHistory, 1)
	assert.Equal(t, "hello", ctx.ConversationHistory[0].Content)
	assert.False(t, ctx.ConversationHistory[0].Timestamp.IsZero())
	assert.Contains(t, ctx.TruncationSummary, "empty-content")
}

func TestSanitizeConversationHistoryDropsOldestButKeepsMinimum(t *testing.T) {
	msgs := make([]registry.ConversationMessage, 0, 20)
	for i := 0; i < 20; i++ {
		msgs = append(msgs, registry.ConversationMessage{
			Role:      "assistant",
			Content:   strings.Repeat("x", 1000),
			Timestamp: time.Now(),
		})
	}
	ctx := &registry.TaskContext{ConversationHistory: msgs}
	sanitizeConversationHistory(ctx)

	assert.GreaterOrEqual(t, len(ctx.ConversationHistory), minRetainedMessages)
	assert.Less(t, len(ctx.ConversationHistory), 20)
	assert.Contains(t, ctx.TruncationSummary, "dropped")
}

func TestSanitizeConversationHistoryAcceptsUnknownRoleWithWarning(t *testing.T) {
	ctx := &registry.TaskContext{
		ConversationHistory: []registry.ConversationMessage{
			{Role: "system", Content: "hi", Timestamp: time.Now()},
		},
	}
	sanitizeConversationHistory(ctx)

	require.Len(t, ctx.ConversationHistory, 1)
	assert.Contains(t, ctx.TruncationSummary, "unknown role")
}
