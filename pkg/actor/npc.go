package actor

import (
	"fmt"
	"maps"

	"github.com/jwebster45206/chronicle/pkg/dice"
	"github.com/jwebster45206/d20"
)

// DefaultNPCDamage is used when an NPC declares no damage dice.
const DefaultNPCDamage = "1d4"

// DispositionHostile marks NPCs that join any fight at their location.
const DispositionHostile = "hostile"

// NPC is a story-defined non-player character. Runtime health lives in the
// session's game state, not here.
type NPC struct {
	ID          string         `json:"id"`
	TemplateID  string         `json:"template_id,omitempty"` // Reference to a template in npcs/
	Name        string         `json:"name"`
	Description string         `json:"description,omitempty"`
	Disposition string         `json:"disposition,omitempty"` // e.g. "hostile", "neutral", "friendly"
	MaxHealth   int            `json:"max_health"`
	AC          int            `json:"ac,omitempty"`
	AttackBonus int            `json:"attack_bonus,omitempty"`
	DamageDice  string         `json:"damage_dice,omitempty"`
	Attributes  map[string]int `json:"attributes,omitempty"`
	Loot        []string       `json:"loot,omitempty"`
	Gold        string         `json:"gold,omitempty"` // dice notation, e.g. "2d6"
}

// NewNPC builds an NPC from a template with the story's overrides applied.
// ID always comes from the overrides; any other non-zero field replaces the
// template value.
func NewNPC(template *NPC, overrides *NPC) *NPC {
	if template == nil || overrides == nil {
		return nil
	}

	n := *template
	n.ID = overrides.ID
	n.TemplateID = overrides.TemplateID
	n.Attributes = maps.Clone(template.Attributes)

	if overrides.Name != "" {
		n.Name = overrides.Name
	}
	if overrides.Description != "" {
		n.Description = overrides.Description
	}
	if overrides.Disposition != "" {
		n.Disposition = overrides.Disposition
	}
	if overrides.MaxHealth != 0 {
		n.MaxHealth = overrides.MaxHealth
	}
	if overrides.AC != 0 {
		n.AC = overrides.AC
	}
	if overrides.AttackBonus != 0 {
		n.AttackBonus = overrides.AttackBonus
	}
	if overrides.DamageDice != "" {
		n.DamageDice = overrides.DamageDice
	}
	if len(overrides.Attributes) > 0 {
		if n.Attributes == nil {
			n.Attributes = make(map[string]int)
		}
		maps.Copy(n.Attributes, overrides.Attributes)
	}
	if len(overrides.Loot) > 0 {
		n.Loot = overrides.Loot
	}
	if overrides.Gold != "" {
		n.Gold = overrides.Gold
	}
	return &n
}

// ArmorValue returns the NPC's AC, or 10 plus the dexterity bonus when unset.
func (n *NPC) ArmorValue() int {
	if n.AC > 0 {
		return n.AC
	}
	return 10 + n.AttributeBonus(Dexterity)
}

// AttributeBonus returns the bonus for an attribute key, 0 when absent.
func (n *NPC) AttributeBonus(attr string) int {
	v, ok := n.Attributes[attr]
	if !ok {
		return 0
	}
	return dice.AttributeBonus(v)
}

// Damage returns the NPC's damage dice or the default.
func (n *NPC) Damage() string {
	if n.DamageDice == "" {
		return DefaultNPCDamage
	}
	return n.DamageDice
}

// Actor builds a d20 actor view of the NPC at full health.
func (n *NPC) Actor() (*d20.Actor, error) {
	maxHP := n.MaxHealth
	if maxHP < 1 {
		maxHP = 1
	}
	attrs := make(map[string]int, len(n.Attributes))
	maps.Copy(attrs, n.Attributes)
	a, err := d20.NewActor(n.ID).
		WithHP(maxHP).
		WithAC(n.ArmorValue()).
		WithAttributes(attrs).
		WithCombatModifiers(map[string]int{"attack": n.AttackBonus}).
		Build()
	if err != nil {
		return nil, fmt.Errorf("failed to build actor for npc %s: %w", n.ID, err)
	}
	return a, nil
}
