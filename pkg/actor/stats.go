package actor

import (
	"strings"

	"github.com/jwebster45206/chronicle/pkg/dice"
)

// Core attribute keys, shared with d20.Actor attribute maps.
const (
	Strength     = "strength"
	Dexterity    = "dexterity"
	Constitution = "constitution"
	Intelligence = "intelligence"
	Wisdom       = "wisdom"
	Charisma     = "charisma"
)

// CoreAttributes lists the six core attributes in sheet order.
var CoreAttributes = []string{Strength, Dexterity, Constitution, Intelligence, Wisdom, Charisma}

var attributeAliases = map[string]string{
	"str": Strength,
	"dex": Dexterity,
	"con": Constitution,
	"int": Intelligence,
	"wis": Wisdom,
	"cha": Charisma,
}

// Stats5e represents the six core ability scores
type Stats5e struct {
	Strength     int `json:"strength"`
	Dexterity    int `json:"dexterity"`
	Constitution int `json:"constitution"`
	Intelligence int `json:"intelligence"`
	Wisdom       int `json:"wisdom"`
	Charisma     int `json:"charisma"`
}

// ToAttributes converts Stats5e to a map for d20.Actor compatibility
func (s Stats5e) ToAttributes() map[string]int {
	return map[string]int{
		Strength:     s.Strength,
		Dexterity:    s.Dexterity,
		Constitution: s.Constitution,
		Intelligence: s.Intelligence,
		Wisdom:       s.Wisdom,
		Charisma:     s.Charisma,
	}
}

// Value returns the score for a core attribute key.
func (s Stats5e) Value(attr string) (int, bool) {
	v, ok := s.ToAttributes()[attr]
	return v, ok
}

// Bonus returns the attribute bonus for a core attribute key, 0 if unknown.
func (s Stats5e) Bonus(attr string) int {
	v, ok := s.Value(attr)
	if !ok {
		return 0
	}
	return dice.AttributeBonus(v)
}

// MatchAttribute finds the first core attribute named in a roll label such as
// "Strength check" or "DEX save". Matching is by whole word, full name or
// three-letter abbreviation.
func MatchAttribute(label string) (string, bool) {
	words := strings.FieldsFunc(strings.ToLower(label), func(r rune) bool {
		return r < 'a' || r > 'z'
	})
	for _, w := range words {
		for _, attr := range CoreAttributes {
			if w == attr {
				return attr, true
			}
		}
		if attr, ok := attributeAliases[w]; ok {
			return attr, true
		}
	}
	return "", false
}
