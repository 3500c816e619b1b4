// Package intent classifies free text into a small closed set of game
// intents so the turn engine does not depend on how matching is done.
package intent

// Kind is a closed set of intents.
type Kind string

const (
	None              Kind = "none"
	Attack            Kind = "attack"
	UseItem           Kind = "use_item"
	Move              Kind = "move"
	GainItem          Kind = "gain_item"
	AcceptQuest       Kind = "accept_quest"
	CompleteObjective Kind = "complete_objective"
	NPCAttack         Kind = "npc_attack"
)

// Attack types.
const (
	AttackNormal    = "normal"
	AttackFast      = "fast"
	AttackHeavy     = "heavy"
	AttackDefensive = "defensive"
)

// Intent is a classified piece of text. Target holds the NPC, item,
// location or quest title depending on Kind.
type Intent struct {
	Kind       Kind   `json:"kind"`
	Target     string `json:"target,omitempty"`
	Objective  string `json:"objective,omitempty"`
	AttackType string `json:"attack_type,omitempty"`
	Text       string `json:"text"`
}

// Classifier turns text into intents.
type Classifier interface {
	// Player classifies a player's submitted action.
	Player(text string) Intent
	// Narrative classifies one narrator action line. Lines that match
	// nothing return an intent of Kind None.
	Narrative(text string) Intent
}
