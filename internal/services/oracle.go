package services

import (
	"context"
	"errors"
	"fmt"
	"log/slog"

	"github.com/jwebster45206/chronicle/internal/config"
	"github.com/jwebster45206/chronicle/pkg/chat"
)

// ErrOracleUnavailable is returned when no oracle has been configured.
var ErrOracleUnavailable = errors.New("narrative oracle unavailable")

const msgNoResponse = "(no response)"

// Oracle produces tagged narrative text.
type Oracle interface {
	// Generate sends the prior exchanges followed by prompt as the final
	// user turn. System messages in history become the system prompt.
	Generate(ctx context.Context, history []chat.ChatMessage, prompt string) (string, error)

	// Summarize runs a memory-summary request on the summary model.
	Summarize(ctx context.Context, system, prompt string) (string, error)
}

func withPrompt(history []chat.ChatMessage, prompt string) []chat.ChatMessage {
	msgs := make([]chat.ChatMessage, 0, len(history)+1)
	msgs = append(msgs, history...)
	return append(msgs, chat.ChatMessage{Role: chat.ChatRoleUser, Content: prompt})
}

func summaryMessages(system, prompt string) []chat.ChatMessage {
	return []chat.ChatMessage{
		{Role: chat.ChatRoleSystem, Content: system},
		{Role: chat.ChatRoleUser, Content: prompt},
	}
}

// NewOracle builds the oracle selected by the configured provider.
func NewOracle(cfg *config.Config, logger *slog.Logger) (Oracle, error) {
	switch cfg.LLMProvider {
	case "anthropic":
		return NewAnthropicService(cfg.AnthropicAPIKey, cfg.ModelName, cfg.SummaryModelName, logger), nil
	case "venice":
		return NewVeniceService(cfg.VeniceAPIKey, cfg.ModelName, cfg.SummaryModelName), nil
	case "mock":
		logger.Warn("Using mock oracle")
		return NewMockOracle(), nil
	default:
		return nil, fmt.Errorf("unknown llm provider: %s", cfg.LLMProvider)
	}
}
