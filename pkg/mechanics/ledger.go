package mechanics

import "github.com/jwebster45206/chronicle/pkg/actor"

// Ledger accumulates a turn's health and mana changes so they are applied
// to the character exactly once.
type Ledger struct {
	Health int      `json:"health"`
	Mana   int      `json:"mana"`
	Notes  []string `json:"notes,omitempty"`
}

// AddHealth records a health change.
func (l *Ledger) AddHealth(n int, note string) {
	l.Health += n
	if note != "" {
		l.Notes = append(l.Notes, note)
	}
}

// AddMana records a mana change.
func (l *Ledger) AddMana(n int, note string) {
	l.Mana += n
	if note != "" {
		l.Notes = append(l.Notes, note)
	}
}

// Apply applies the accumulated deltas to the character, clamped.
func (l *Ledger) Apply(c *actor.Character) {
	c.ApplyDelta(l.Health, l.Mana)
}
