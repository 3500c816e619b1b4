package chat

import (
	"fmt"
	"strings"

	"github.com/google/uuid"

	"github.com/jwebster45206/chronicle/pkg/actor"
	"github.com/jwebster45206/chronicle/pkg/parser"
	"github.com/jwebster45206/chronicle/pkg/state"
)

// MaxMessageLength bounds a submitted action.
const MaxMessageLength = 2000

const (
	ChatRoleUser   = "user"      // Player
	ChatRoleAgent  = "assistant" // Narrator
	ChatRoleSystem = "system"
)

// ChatMessage is a single message in the oracle conversation.
type ChatMessage struct {
	Role    string `json:"role"` // "user", "assistant", "system"
	Content string `json:"content"`
}

// TurnRequest is a player action submitted for a session.
type TurnRequest struct {
	SessionID    uuid.UUID `json:"session_id"`
	Action       string    `json:"action"`
	Target       string    `json:"target,omitempty"`
	AttackType   string    `json:"attack_type,omitempty"`
	ForceSummary bool      `json:"force_summary,omitempty"`
	OwnerID      string    `json:"-"`
}

// Validate checks the required identifiers and the action length.
func (r *TurnRequest) Validate() error {
	if r.SessionID == uuid.Nil {
		return fmt.Errorf("session_id is required")
	}
	if strings.TrimSpace(r.Action) == "" {
		return fmt.Errorf("action cannot be empty")
	}
	if len(r.Action) > MaxMessageLength {
		return fmt.Errorf("action exceeds maximum length of %d characters", MaxMessageLength)
	}
	return nil
}

// Outcome kinds. Exactly one resolver produces the outcome of a turn.
const (
	OutcomeCombat      = "combat"
	OutcomeCombatStart = "combat_start"
	OutcomeItemUse     = "item_use"
	OutcomeNarrative   = "narrative"
	OutcomeNPCTurn     = "npc_turn"
)

// TurnResponse is the result of a resolved turn.
type TurnResponse struct {
	SessionID uuid.UUID            `json:"session_id"`
	Kind      string               `json:"kind"`
	Narrative string               `json:"narrative"`
	NPCs      []parser.NPCDialogue `json:"npcs,omitempty"`
	Options   []string             `json:"options,omitempty"`
	Events    []string             `json:"events,omitempty"`
	Session   *state.Session       `json:"session"`
	Character *actor.Character     `json:"character,omitempty"`
}

// CreateSessionRequest starts a new session.
type CreateSessionRequest struct {
	CharacterID string `json:"character_id"`
	StoryID     string `json:"story_id"`
}

// Validate checks the required identifiers.
func (r *CreateSessionRequest) Validate() error {
	if r.CharacterID == "" {
		return fmt.Errorf("character_id is required")
	}
	if r.StoryID == "" {
		return fmt.Errorf("story_id is required")
	}
	return nil
}

// FormatWithPCName prefixes a player message with the character's name
// unless it already starts with a speaker prefix of up to 50 characters.
func FormatWithPCName(message, pcName string) string {
	if idx := strings.Index(message, ":"); idx > 0 && idx <= 50 {
		return message
	}
	return pcName + ": " + message
}
