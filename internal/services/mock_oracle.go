package services

import (
	"context"
	"sync"

	"github.com/jwebster45206/chronicle/pkg/chat"
)

// DefaultMockNarration is returned by MockOracle when no GenerateFunc is set.
const DefaultMockNarration = `<description>The world holds its breath.</description>
<options>
- Look around
- Wait
</options>`

// MockOracle is a mock implementation of Oracle for testing
type MockOracle struct {
	GenerateFunc  func(ctx context.Context, history []chat.ChatMessage, prompt string) (string, error)
	SummarizeFunc func(ctx context.Context, system, prompt string) (string, error)

	// Track calls for testing
	GenerateCalls  []GenerateCall
	SummarizeCalls []string

	mu sync.Mutex // protects all fields above
}

var _ Oracle = (*MockOracle)(nil)

type GenerateCall struct {
	History []chat.ChatMessage
	Prompt  string
}

// NewMockOracle creates a new mock oracle
func NewMockOracle() *MockOracle {
	return &MockOracle{
		GenerateCalls:  make([]GenerateCall, 0),
		SummarizeCalls: make([]string, 0),
	}
}

// Generate mocks narration
func (m *MockOracle) Generate(ctx context.Context, history []chat.ChatMessage, prompt string) (string, error) {
	m.mu.Lock()
	m.GenerateCalls = append(m.GenerateCalls, GenerateCall{History: history, Prompt: prompt})
	fn := m.GenerateFunc
	m.mu.Unlock()

	if fn != nil {
		return fn(ctx, history, prompt)
	}
	return DefaultMockNarration, nil
}

// Summarize mocks memory summaries
func (m *MockOracle) Summarize(ctx context.Context, system, prompt string) (string, error) {
	m.mu.Lock()
	m.SummarizeCalls = append(m.SummarizeCalls, prompt)
	fn := m.SummarizeFunc
	m.mu.Unlock()

	if fn != nil {
		return fn(ctx, system, prompt)
	}
	return "Mock summary.", nil
}

// GenerateCallCount returns the number of Generate calls
func (m *MockOracle) GenerateCallCount() int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return len(m.GenerateCalls)
}

// SummarizeCallCount returns the number of Summarize calls
func (m *MockOracle) SummarizeCallCount() int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return len(m.SummarizeCalls)
}

// LastGenerateCall returns the most recent Generate call, if any
func (m *MockOracle) LastGenerateCall() (GenerateCall, bool) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if len(m.GenerateCalls) == 0 {
		return GenerateCall{}, false
	}
	return m.GenerateCalls[len(m.GenerateCalls)-1], true
}

// Reset clears all recorded calls
func (m *MockOracle) Reset() {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.GenerateCalls = m.GenerateCalls[:0]
	m.SummarizeCalls = m.SummarizeCalls[:0]
}
