package mechanics

import (
	"strings"

	"github.com/jwebster45206/chronicle/pkg/actor"
)

const (
	// SentinelDifficulty can never be met. It is used for attacks whose
	// target is unknown or already defeated.
	SentinelDifficulty = 999

	// DefaultDifficulty applies to non-attack rolls that name no DC.
	DefaultDifficulty = 12

	// DefaultClassDamage is used for classes missing from the table.
	DefaultClassDamage = "1d4"
)

// AttackModifier holds the deltas an attack type applies.
type AttackModifier struct {
	Attack  int
	Damage  int
	Defense int
}

var attackModifiers = map[string]AttackModifier{
	"normal":    {Attack: 0, Damage: 0, Defense: 0},
	"fast":      {Attack: 2, Damage: -1, Defense: 0},
	"heavy":     {Attack: -2, Damage: 2, Defense: -1},
	"defensive": {Attack: -1, Damage: -1, Defense: 2},
}

// ModifierFor returns the deltas for an attack type; unknown types are normal.
func ModifierFor(attackType string) AttackModifier {
	return attackModifiers[strings.ToLower(attackType)]
}

var classDamage = map[string]string{
	"warrior":   "1d10",
	"fighter":   "1d10",
	"barbarian": "1d12",
	"paladin":   "1d8",
	"ranger":    "1d8",
	"rogue":     "1d6",
	"cleric":    "1d6",
	"bard":      "1d6",
	"druid":     "1d6",
	"monk":      "1d6",
	"warlock":   "1d6",
	"mage":      "1d4",
	"wizard":    "1d4",
	"sorcerer":  "1d4",
}

// ClassDamage returns the damage dice for a character class.
func ClassDamage(class string) string {
	if d, ok := classDamage[strings.ToLower(strings.TrimSpace(class))]; ok {
		return d
	}
	return DefaultClassDamage
}

var skillAttributes = map[string]string{
	"athletics":       actor.Strength,
	"acrobatics":      actor.Dexterity,
	"stealth":         actor.Dexterity,
	"sleight":         actor.Dexterity,
	"lockpicking":     actor.Dexterity,
	"endurance":       actor.Constitution,
	"arcana":          actor.Intelligence,
	"history":         actor.Intelligence,
	"investigation":   actor.Intelligence,
	"religion":        actor.Intelligence,
	"perception":      actor.Wisdom,
	"insight":         actor.Wisdom,
	"survival":        actor.Wisdom,
	"medicine":        actor.Wisdom,
	"persuasion":      actor.Charisma,
	"deception":       actor.Charisma,
	"intimidation":    actor.Charisma,
	"performance":     actor.Charisma,
	"animal handling": actor.Wisdom,
}

// SkillAttribute maps a skill name to the attribute it is rolled with.
func SkillAttribute(skill string) (string, bool) {
	a, ok := skillAttributes[strings.ToLower(strings.TrimSpace(skill))]
	return a, ok
}
