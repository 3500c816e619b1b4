package state

import (
	"encoding/json"
	"fmt"
	"time"

	"github.com/google/uuid"
)

// Speakers in session history.
const (
	SpeakerPlayer   = "player"
	SpeakerNarrator = "narrator"
)

// HistoryEntry is one exchange in the session transcript.
type HistoryEntry struct {
	Speaker string `json:"speaker"` // player or narrator
	Text    string `json:"text"`
}

// Session is one player's playthrough of a story with a character.
// Version increases on every successful save.
type Session struct {
	ID          uuid.UUID      `json:"id"`
	CharacterID string         `json:"character_id"`
	StoryID     string         `json:"story_id"`
	OwnerID     string         `json:"owner_id,omitempty"`
	GameState   *GameState     `json:"game_state"`
	History     []HistoryEntry `json:"history"`
	Version     int64          `json:"version"`
	CreatedAt   time.Time      `json:"created_at"`
	UpdatedAt   time.Time      `json:"updated_at"`
}

// NewSession creates an unsaved session with a fresh ID.
func NewSession(characterID, storyID string, gs *GameState) *Session {
	now := time.Now().UTC()
	return &Session{
		ID:          uuid.New(),
		CharacterID: characterID,
		StoryID:     storyID,
		GameState:   gs,
		History:     make([]HistoryEntry, 0),
		CreatedAt:   now,
		UpdatedAt:   now,
	}
}

// AddHistory appends an entry to the transcript.
func (s *Session) AddHistory(speaker, text string) {
	s.History = append(s.History, HistoryEntry{Speaker: speaker, Text: text})
}

// RecentHistory returns at most the last n entries.
func (s *Session) RecentHistory(n int) []HistoryEntry {
	if n <= 0 || len(s.History) <= n {
		return s.History
	}
	return s.History[len(s.History)-n:]
}

// Clone returns a deep copy of the session.
func (s *Session) Clone() (*Session, error) {
	data, err := json.Marshal(s)
	if err != nil {
		return nil, fmt.Errorf("failed to marshal session: %w", err)
	}
	var out Session
	if err := json.Unmarshal(data, &out); err != nil {
		return nil, fmt.Errorf("failed to unmarshal session: %w", err)
	}
	return &out, nil
}
