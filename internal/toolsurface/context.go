package toolsurface

import (
	"fmt"
	"strings"
	"time"

	"github.com/agentsys/orchestrator/internal/logging"
	"github.com/agentsys/orchestrator/internal/registry"
)

const (
	userContentLimit       = 150
	assistantContentLimit  = 8192
	truncationMarker       = " …[truncated]"
	conversationSizeBudget = 15 * 1024
	minRetainedMessages    = 5
)

var validRoles = map[string]bool{
	"user":         true,
	"assistant":    true,
	"orchestrator": true,
}

// sanitizeConversationHistory runs the spec §6 "Conversation history
// validation" pipeline over ctx.ConversationHistory in place: it drops
// empty-content entries, defaults missing timestamps, per-role truncates
// long content, and drops the oldest entries (keeping at least
// minRetainedMessages when possible) until the residual size fits the
// 15 KiB budget. Problems are warnings, not rejections — only the
// caller-level message-count cap in validateContext is a hard error.
func sanitizeConversationHistory(ctx *registry.TaskContext) {
	if len(ctx.ConversationHistory) == 0 {
		return
	}

	var notes []string
	kept := make([]registry.ConversationMessage, 0, len(ctx.ConversationHistory))

	for _, msg := range ctx.ConversationHistory {
		if strings.TrimSpace(msg.Content) == "" {
			notes = append(notes, "skipped an empty-content message")
			continue
		}
		if !validRoles[msg.Role] {
			notes = append(notes, fmt.Sprintf("unknown role %q accepted as-is", msg.Role))
		}
		if msg.Timestamp.IsZero() {
			msg.Timestamp = time.Now()
			notes = append(notes, "defaulted a missing timestamp to now")
		}

		limit := assistantContentLimit
		if msg.Role == "user" {
			limit = userContentLimit
		}
		if len(msg.Content) > limit {
			msg.Content = msg.Content[:limit] + truncationMarker
			notes = append(notes, fmt.Sprintf("truncated a %s message to %d characters", msg.Role, limit))
		}

		kept = append(kept, msg)
	}

	dropped := 0
	for conversationSize(kept) > conversationSizeBudget && len(kept) > minRetainedMessages {
		kept = kept[1:]
		dropped++
	}
	if dropped > 0 {
		notes = append(notes, fmt.Sprintf("dropped %d oldest message(s) to fit the %d KiB budget", dropped, conversationSizeBudget/1024))
	}

	ctx.ConversationHistory = kept
	if len(notes) > 0 {
		ctx.TruncationSummary = strings.Join(notes, "; ")
		logging.Infof("toolsurface: conversation_history sanitized: %s", ctx.TruncationSummary)
	}
}

func conversationSize(msgs []registry.ConversationMessage) int {
	total := 0
	for _, m := range msgs {
		total += len(m.Content)
	}
	return total
}
