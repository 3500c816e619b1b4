package state

import (
	"sort"

	"github.com/jwebster45206/chronicle/pkg/dice"
)

// PlayerCombatantID identifies the player in the initiative order.
const PlayerCombatantID = "player"

// Combat outcomes.
const (
	OutcomeNone    = ""
	OutcomeVictory = "victory"
	OutcomeDefeat  = "defeat"
)

// CombatState is an active encounter.
type CombatState struct {
	Active     bool        `json:"active"`
	Round      int         `json:"round"`
	TurnIndex  int         `json:"turn_index"`
	Combatants []Combatant `json:"combatants"`
	NPCs       []CombatNPC `json:"npcs"`
}

// Combatant is a turn slot in initiative order.
type Combatant struct {
	ID         string `json:"id"`
	Name       string `json:"name"`
	Initiative int    `json:"initiative"`
}

// CombatNPC mirrors an NPC's health for the encounter.
type CombatNPC struct {
	ID            string `json:"id"`
	Name          string `json:"name"`
	CurrentHealth int    `json:"current_health"`
	MaxHealth     int    `json:"max_health"`
	Defeated      bool   `json:"defeated"`
}

// Participant is an entrant when combat starts.
type Participant struct {
	ID            string
	Name          string
	DexBonus      int
	CurrentHealth int
	MaxHealth     int
}

// StartCombat rolls 1d20 + dexterity bonus for the player and each NPC and
// orders combatants by roll, highest first. Ties keep encounter order
// (player, then NPCs as given). Defeated NPCs are not entered.
func StartCombat(r *dice.Roller, player Participant, npcs []Participant) *CombatState {
	cs := &CombatState{Active: true, Round: 1, TurnIndex: 0}

	cs.Combatants = append(cs.Combatants, Combatant{
		ID:         PlayerCombatantID,
		Name:       player.Name,
		Initiative: r.D20() + player.DexBonus,
	})
	for _, n := range npcs {
		if n.CurrentHealth <= 0 {
			continue
		}
		cs.Combatants = append(cs.Combatants, Combatant{
			ID:         n.ID,
			Name:       n.Name,
			Initiative: r.D20() + n.DexBonus,
		})
		cs.NPCs = append(cs.NPCs, CombatNPC{
			ID:            n.ID,
			Name:          n.Name,
			CurrentHealth: n.CurrentHealth,
			MaxHealth:     n.MaxHealth,
		})
	}

	sort.SliceStable(cs.Combatants, func(i, j int) bool {
		return cs.Combatants[i].Initiative > cs.Combatants[j].Initiative
	})
	return cs
}

// Current returns the combatant whose turn it is.
func (cs *CombatState) Current() Combatant {
	if len(cs.Combatants) == 0 {
		return Combatant{}
	}
	return cs.Combatants[cs.TurnIndex]
}

// IsPlayerTurn reports whether the current combatant is the player.
func (cs *CombatState) IsPlayerTurn() bool {
	return cs.Current().ID == PlayerCombatantID
}

// NPC returns the encounter entry for an NPC ID.
func (cs *CombatState) NPC(id string) *CombatNPC {
	for i := range cs.NPCs {
		if cs.NPCs[i].ID == id {
			return &cs.NPCs[i]
		}
	}
	return nil
}

// Advance moves to the next combatant, wrapping to 0 and incrementing the
// round past the last slot. Defeated NPCs are skipped.
func (cs *CombatState) Advance() {
	n := len(cs.Combatants)
	if n == 0 {
		return
	}
	for range n {
		cs.TurnIndex++
		if cs.TurnIndex >= n {
			cs.TurnIndex = 0
			cs.Round++
		}
		if !cs.isDefeated(cs.Combatants[cs.TurnIndex].ID) {
			return
		}
	}
}

// Outcome reports victory when every NPC is defeated and defeat when the
// player has no health left.
func (cs *CombatState) Outcome(playerHealth int) string {
	if playerHealth <= 0 {
		return OutcomeDefeat
	}
	for _, n := range cs.NPCs {
		if !n.Defeated {
			return OutcomeNone
		}
	}
	return OutcomeVictory
}

func (cs *CombatState) isDefeated(id string) bool {
	if id == PlayerCombatantID {
		return false
	}
	n := cs.NPC(id)
	return n != nil && n.Defeated
}

func (cs *CombatState) syncNPC(id string, st NPCState) {
	if n := cs.NPC(id); n != nil {
		n.CurrentHealth = st.CurrentHealth
		n.Defeated = st.Defeated
	}
}

// EndCombat checks terminal transitions and discards the encounter when one
// is reached. Defeat also ends the game with the given reason.
func (gs *GameState) EndCombat(playerHealth int, deathReason string) string {
	if gs.Combat == nil {
		return OutcomeNone
	}
	outcome := gs.Combat.Outcome(playerHealth)
	switch outcome {
	case OutcomeVictory:
		gs.Combat = nil
	case OutcomeDefeat:
		gs.Combat = nil
		gs.EndGame(deathReason)
	}
	return outcome
}
