package prompts

import (
	"fmt"
	"strings"

	"github.com/jwebster45206/chronicle/pkg/chat"
	"github.com/jwebster45206/chronicle/pkg/state"
)

// OracleHistoryLimit is the most history entries sent to the oracle.
const OracleHistoryLimit = 10

// SummaryHistoryLimit bounds the entries folded into one summary pass.
const SummaryHistoryLimit = 30

// HistoryMessages maps the last OracleHistoryLimit transcript entries to
// oracle messages. Player lines are prefixed with the character's name.
func HistoryMessages(history []state.HistoryEntry, pcName string) []chat.ChatMessage {
	if len(history) > OracleHistoryLimit {
		history = history[len(history)-OracleHistoryLimit:]
	}
	msgs := make([]chat.ChatMessage, 0, len(history))
	for _, h := range history {
		switch h.Speaker {
		case state.SpeakerPlayer:
			msgs = append(msgs, chat.ChatMessage{Role: chat.ChatRoleUser, Content: chat.FormatWithPCName(h.Text, pcName)})
		default:
			msgs = append(msgs, chat.ChatMessage{Role: chat.ChatRoleAgent, Content: h.Text})
		}
	}
	return msgs
}

// SummaryPrompt asks for an updated memory summary covering the previous
// summary and the transcript since it was written.
func SummaryPrompt(previous *string, history []state.HistoryEntry, pcName string) string {
	if len(history) > SummaryHistoryLimit {
		history = history[len(history)-SummaryHistoryLimit:]
	}
	var sb strings.Builder
	if previous != nil && *previous != "" {
		sb.WriteString("=== PREVIOUS SUMMARY ===\n")
		sb.WriteString(*previous)
		sb.WriteString("\n\n")
	}
	sb.WriteString("=== TRANSCRIPT ===\n")
	for _, h := range history {
		speaker := "Narrator"
		if h.Speaker == state.SpeakerPlayer {
			speaker = pcName
		}
		sb.WriteString(fmt.Sprintf("%s: %s\n", speaker, h.Text))
	}
	sb.WriteString("\nWrite the updated summary.")
	return sb.String()
}
