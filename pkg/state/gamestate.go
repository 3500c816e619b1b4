package state

import (
	"slices"
	"strings"
	"time"
	"unicode"

	"github.com/jwebster45206/chronicle/pkg/actor"
	"github.com/jwebster45206/chronicle/pkg/story"
)

// GameState is the mutable world-state document for a session.
type GameState struct {
	CurrentLocationID     string              `json:"current_location_id"`
	NPCStates             map[string]NPCState `json:"npc_states"`
	LocationNPCOverrides  map[string][]string `json:"location_npc_overrides,omitempty"` // Location ID → extra NPC IDs
	LocationStates        map[string]string   `json:"location_states,omitempty"`        // Location ID → description suffix
	ActiveQuests          []QuestProgress     `json:"active_quests"`
	CompletedQuests       []QuestProgress     `json:"completed_quests"`
	EventHistory          []string            `json:"event_history"`
	Combat                *CombatState        `json:"combat,omitempty"`
	LastDiceRoll          *DiceRollRecord     `json:"last_dice_roll,omitempty"`
	LastLoot              []string            `json:"last_loot,omitempty"`
	TriggeredEventDetails []string            `json:"triggered_event_details,omitempty"`
	RecentlyDefeated      []string            `json:"recently_defeated,omitempty"`
	GameOver              bool                `json:"game_over"`
	GameOverReason        string              `json:"game_over_reason,omitempty"`

	// Memory fields are written only by the summary task and stored apart
	// from the rest of the document.
	MemorySummary               *string   `json:"memory_summary,omitempty"`
	LastSummarizedHistoryLength int       `json:"last_summarized_history_length"`
	SummaryUpdatedAt            time.Time `json:"summary_updated_at,omitzero"`
}

// NPCState is the runtime health of a story NPC.
type NPCState struct {
	CurrentHealth int  `json:"current_health"`
	MaxHealth     int  `json:"max_health"`
	Defeated      bool `json:"defeated"`
}

// DiceRollRecord describes the last resolved roll.
type DiceRollRecord struct {
	Dice       string `json:"dice"`
	RollType   string `json:"roll_type,omitempty"`
	Target     string `json:"target,omitempty"`
	Result     int    `json:"result"`
	Bonus      int    `json:"bonus"`
	Difficulty int    `json:"difficulty"`
	Success    bool   `json:"success"`
}

// Total is the raw result plus the bonus.
func (r *DiceRollRecord) Total() int {
	return r.Result + r.Bonus
}

// Memory holds the summary-owned fields of a GameState.
type Memory struct {
	Summary                     string    `json:"summary"`
	LastSummarizedHistoryLength int       `json:"last_summarized_history_length"`
	UpdatedAt                   time.Time `json:"updated_at"`
}

// NewGameState seeds a game state from story data: start location, NPC
// health from definitions and the starting quests.
func NewGameState(s *story.Story) *GameState {
	gs := &GameState{
		CurrentLocationID:    s.StartLocation,
		NPCStates:            make(map[string]NPCState, len(s.NPCs)),
		LocationNPCOverrides: make(map[string][]string),
		LocationStates:       make(map[string]string),
		ActiveQuests:         make([]QuestProgress, 0),
		CompletedQuests:      make([]QuestProgress, 0),
		EventHistory:         make([]string, 0),
	}
	for _, n := range s.NPCs {
		gs.NPCStates[n.ID] = NPCState{CurrentHealth: n.MaxHealth, MaxHealth: n.MaxHealth}
	}
	for _, id := range s.StartingQuests {
		if q := s.Quest(id); q != nil {
			gs.AddQuest(NewQuestProgress(q))
		}
	}
	return gs
}

// TurnRecap holds what the previous turn left behind for the narrator.
type TurnRecap struct {
	LastLoot              []string
	TriggeredEventDetails []string
	RecentlyDefeated      []string
}

// ClearTransient resets fields that only describe the previous turn and
// returns them.
func (gs *GameState) ClearTransient() TurnRecap {
	r := TurnRecap{
		LastLoot:              gs.LastLoot,
		TriggeredEventDetails: gs.TriggeredEventDetails,
		RecentlyDefeated:      gs.RecentlyDefeated,
	}
	gs.LastLoot = nil
	gs.TriggeredEventDetails = nil
	gs.RecentlyDefeated = nil
	return r
}

// ApplyMemory merges summary-owned fields into the state.
func (gs *GameState) ApplyMemory(m *Memory) {
	if m == nil {
		return
	}
	summary := m.Summary
	gs.MemorySummary = &summary
	gs.LastSummarizedHistoryLength = m.LastSummarizedHistoryLength
	gs.SummaryUpdatedAt = m.UpdatedAt
}

// IsNPCAlive reports whether a tracked NPC is alive.
func (gs *GameState) IsNPCAlive(id string) bool {
	st, ok := gs.NPCStates[id]
	return ok && !st.Defeated && st.CurrentHealth > 0
}

// DamageNPC reduces an NPC's health, floored at 0, marking it defeated at 0.
// Returns true when this damage defeated the NPC.
func (gs *GameState) DamageNPC(id string, amount int) bool {
	st, ok := gs.NPCStates[id]
	if !ok || st.Defeated || amount <= 0 {
		return false
	}
	st.CurrentHealth -= amount
	if st.CurrentHealth < 0 {
		st.CurrentHealth = 0
	}
	defeated := st.CurrentHealth == 0
	st.Defeated = defeated
	gs.NPCStates[id] = st

	if gs.Combat != nil {
		gs.Combat.syncNPC(id, st)
	}
	if defeated {
		gs.RecentlyDefeated = append(gs.RecentlyDefeated, id)
	}
	return defeated
}

// NPCsAt returns the NPC IDs at a location: the story's residents followed
// by any overrides, without duplicates.
func (gs *GameState) NPCsAt(s *story.Story, locationID string) []string {
	var ids []string
	if l := s.Location(locationID); l != nil {
		ids = append(ids, l.NPCs...)
	}
	for _, id := range gs.LocationNPCOverrides[locationID] {
		if !slices.Contains(ids, id) {
			ids = append(ids, id)
		}
	}
	return ids
}

// LivingNPCsAt filters NPCsAt to NPCs that are alive.
func (gs *GameState) LivingNPCsAt(s *story.Story, locationID string) []string {
	var out []string
	for _, id := range gs.NPCsAt(s, locationID) {
		if gs.IsNPCAlive(id) {
			out = append(out, id)
		}
	}
	return out
}

// HasFired reports whether an event ID is in the event history.
func (gs *GameState) HasFired(eventID string) bool {
	return slices.Contains(gs.EventHistory, eventID)
}

// RecordEvent adds an event ID to the history. Returns false if it was
// already present.
func (gs *GameState) RecordEvent(eventID string) bool {
	if gs.HasFired(eventID) {
		return false
	}
	gs.EventHistory = append(gs.EventHistory, eventID)
	return true
}

// InCombat reports whether combat is active.
func (gs *GameState) InCombat() bool {
	return gs.Combat != nil && gs.Combat.Active
}

// EndGame marks the game over with a reason.
func (gs *GameState) EndGame(reason string) {
	gs.GameOver = true
	gs.GameOverReason = reason
}

// FindLivingNPC resolves a reference to a living NPC: by ID or name, then
// by case-insensitive partial name among NPCs in the current location or
// the encounter. A reference that mentions a candidate's whole name, as in
// "goblin with my sword", resolves to the longest such name.
func (gs *GameState) FindLivingNPC(s *story.Story, ref string) *actor.NPC {
	ref = strings.Trim(ref, " \t,;:.!?")
	if ref == "" {
		return nil
	}
	if npc := s.NPC(ref); npc != nil {
		if gs.IsNPCAlive(npc.ID) {
			return npc
		}
		return nil
	}

	candidates := gs.NPCsAt(s, gs.CurrentLocationID)
	if gs.Combat != nil {
		for _, n := range gs.Combat.NPCs {
			candidates = append(candidates, n.ID)
		}
	}
	lref := strings.ToLower(ref)
	var living []*actor.NPC
	for _, id := range candidates {
		npc := s.NPC(id)
		if npc == nil || !gs.IsNPCAlive(npc.ID) {
			continue
		}
		if strings.Contains(strings.ToLower(npc.Name), lref) {
			return npc
		}
		living = append(living, npc)
	}

	words := " " + strings.Join(strings.FieldsFunc(lref, isNameSeparator), " ") + " "
	var best *actor.NPC
	bestLen := 0
	for _, npc := range living {
		name := strings.Join(strings.FieldsFunc(strings.ToLower(npc.Name), isNameSeparator), " ")
		if name == "" || !strings.Contains(words, " "+name+" ") {
			continue
		}
		if len(name) > bestLen {
			best, bestLen = npc, len(name)
		}
	}
	return best
}

func isNameSeparator(r rune) bool {
	return !unicode.IsLetter(r) && !unicode.IsDigit(r) && r != '\''
}
