package actor

import (
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"slices"
	"strings"

	"github.com/jwebster45206/chronicle/pkg/dice"
	"github.com/jwebster45206/d20"
)

// Character is a player character. The record is owned by the character
// store; the turn engine mutates health, mana, gold, experience and
// inventory.
type Character struct {
	ID          string   `json:"id"`
	OwnerID     string   `json:"owner_id,omitempty"`
	Name        string   `json:"name"`
	Class       string   `json:"class,omitempty"`
	Race        string   `json:"race,omitempty"`
	Pronouns    string   `json:"pronouns,omitempty"`
	Description string   `json:"description,omitempty"`
	Level       int      `json:"level"`
	Experience  int      `json:"experience"`
	Gold        int      `json:"gold"`
	Health      int      `json:"health"`
	MaxHealth   int      `json:"max_health"`
	Mana        int      `json:"mana"`
	MaxMana     int      `json:"max_mana"`
	Stats       Stats5e  `json:"stats"`
	Inventory   []string `json:"inventory,omitempty"`
	Abilities   []string `json:"abilities,omitempty"`
}

// LoadCharacter loads a character template from a JSON file.
// The filename (without .json extension) overrides any ID in the JSON.
func LoadCharacter(path string) (*Character, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to read character file: %w", err)
	}

	var c Character
	if err := json.Unmarshal(data, &c); err != nil {
		return nil, fmt.Errorf("failed to unmarshal character: %w", err)
	}
	c.ID = strings.TrimSuffix(filepath.Base(path), ".json")
	c.Normalize()
	return &c, nil
}

// Normalize fills defaults for a freshly loaded character and clamps pools.
func (c *Character) Normalize() {
	if c.Level == 0 {
		c.Level = 1
	}
	if c.MaxHealth <= 0 {
		c.MaxHealth = 10 + dice.AttributeBonus(c.Stats.Constitution)
		if c.MaxHealth < 1 {
			c.MaxHealth = 1
		}
		c.Health = c.MaxHealth
	}
	c.Clamp()
}

// Clamp restores 0 <= health <= max and 0 <= mana <= max.
func (c *Character) Clamp() {
	c.Health = clamp(c.Health, 0, c.MaxHealth)
	c.Mana = clamp(c.Mana, 0, c.MaxMana)
	if c.Gold < 0 {
		c.Gold = 0
	}
}

// ApplyDelta applies a health and mana delta once, clamped to the pools.
func (c *Character) ApplyDelta(health, mana int) {
	c.Health += health
	c.Mana += mana
	c.Clamp()
}

// IsAlive reports whether the character has health left.
func (c *Character) IsAlive() bool {
	return c.Health > 0
}

// ArmorValue is 10 plus the dexterity bonus.
func (c *Character) ArmorValue() int {
	return 10 + c.Stats.Bonus(Dexterity)
}

// AttributeBonus returns the bonus for a core attribute key.
func (c *Character) AttributeBonus(attr string) int {
	return c.Stats.Bonus(attr)
}

// Actor builds a d20 actor view of the character for rules resolution.
func (c *Character) Actor() (*d20.Actor, error) {
	maxHP := c.MaxHealth
	if maxHP < 1 {
		maxHP = 1
	}
	a, err := d20.NewActor(c.ID).
		WithHP(maxHP).
		WithAC(c.ArmorValue()).
		WithAttributes(c.Stats.ToAttributes()).
		Build()
	if err != nil {
		return nil, fmt.Errorf("failed to build actor: %w", err)
	}
	return a, nil
}

// HasItem reports whether the inventory holds the item (case-insensitive).
func (c *Character) HasItem(name string) bool {
	return c.itemIndex(name) >= 0
}

// AddItem appends an item to the inventory.
func (c *Character) AddItem(name string) {
	c.Inventory = append(c.Inventory, name)
}

// RemoveItem removes one copy of the item. Returns false if it was not held.
func (c *Character) RemoveItem(name string) bool {
	i := c.itemIndex(name)
	if i < 0 {
		return false
	}
	c.Inventory = slices.Delete(c.Inventory, i, i+1)
	return true
}

func (c *Character) itemIndex(name string) int {
	for i, it := range c.Inventory {
		if strings.EqualFold(it, name) {
			return i
		}
	}
	return -1
}

// Validate checks the fields the engine relies on.
func (c *Character) Validate() error {
	if c.ID == "" {
		return fmt.Errorf("character id is required")
	}
	if c.Name == "" {
		return fmt.Errorf("character name is required")
	}
	if c.MaxHealth <= 0 {
		return fmt.Errorf("character max_health must be positive")
	}
	if c.MaxMana < 0 {
		return fmt.Errorf("character max_mana cannot be negative")
	}
	return nil
}

// Summary renders a one-line sheet, e.g. "Aria, Level 2 Elf Ranger".
func (c *Character) Summary() string {
	if c == nil {
		return ""
	}
	parts := []string{}
	if c.Level > 0 {
		parts = append(parts, fmt.Sprintf("Level %d", c.Level))
	}
	if c.Race != "" {
		parts = append(parts, c.Race)
	}
	if c.Class != "" {
		parts = append(parts, c.Class)
	}
	s := c.Name
	if c.Pronouns != "" {
		s += fmt.Sprintf(" (%s)", c.Pronouns)
	}
	if len(parts) > 0 {
		s += ", " + strings.Join(parts, " ")
	}
	return s
}

func clamp(v, lo, hi int) int {
	if hi < lo {
		hi = lo
	}
	if v < lo {
		return lo
	}
	if v > hi {
		return hi
	}
	return v
}
