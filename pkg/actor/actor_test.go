package actor

import (
	"encoding/json"
	"os"
	"path/filepath"
	"testing"
)

func TestStats5e_ToAttributes(t *testing.T) {
	stats := Stats5e{
		Strength:     16,
		Dexterity:    14,
		Constitution: 15,
		Intelligence: 10,
		Wisdom:       12,
		Charisma:     8,
	}

	attrs := stats.ToAttributes()

	tests := []struct {
		key      string
		expected int
	}{
		{"strength", 16},
		{"dexterity", 14},
		{"constitution", 15},
		{"intelligence", 10},
		{"wisdom", 12},
		{"charisma", 8},
	}

	for _, tt := range tests {
		t.Run(tt.key, func(t *testing.T) {
			if got := attrs[tt.key]; got != tt.expected {
				t.Errorf("ToAttributes()[%q] = %d, want %d", tt.key, got, tt.expected)
			}
		})
	}

	if got := stats.Bonus(Strength); got != 3 {
		t.Errorf("Bonus(strength) = %d, want 3", got)
	}
	if got := stats.Bonus("luck"); got != 0 {
		t.Errorf("Bonus(luck) = %d, want 0", got)
	}
}

func TestMatchAttribute(t *testing.T) {
	tests := []struct {
		label string
		want  string
		ok    bool
	}{
		{"Strength check", Strength, true},
		{"DEX save", Dexterity, true},
		{"wisdom (perception)", Wisdom, true},
		{"attack roll", "", false},
		{"intimidate", "", false},
		{"Charisma", Charisma, true},
	}
	for _, tt := range tests {
		t.Run(tt.label, func(t *testing.T) {
			got, ok := MatchAttribute(tt.label)
			if got != tt.want || ok != tt.ok {
				t.Errorf("MatchAttribute(%q) = %q, %v; want %q, %v", tt.label, got, ok, tt.want, tt.ok)
			}
		})
	}
}

func TestCharacter_ApplyDeltaClamps(t *testing.T) {
	c := &Character{Health: 5, MaxHealth: 10, Mana: 2, MaxMana: 8}

	c.ApplyDelta(-7, 20)
	if c.Health != 0 {
		t.Errorf("Health = %d, want 0", c.Health)
	}
	if c.Mana != 8 {
		t.Errorf("Mana = %d, want 8", c.Mana)
	}
	if c.IsAlive() {
		t.Error("expected character to be dead")
	}

	c.ApplyDelta(50, -50)
	if c.Health != 10 || c.Mana != 0 {
		t.Errorf("after heal got health=%d mana=%d, want 10/0", c.Health, c.Mana)
	}
}

func TestCharacter_ArmorValueAndActor(t *testing.T) {
	c := &Character{
		ID:        "aria",
		Name:      "Aria",
		Health:    12,
		MaxHealth: 12,
		Stats:     Stats5e{Strength: 14, Dexterity: 16, Constitution: 12, Intelligence: 10, Wisdom: 10, Charisma: 10},
	}

	if got := c.ArmorValue(); got != 13 {
		t.Errorf("ArmorValue() = %d, want 13", got)
	}

	a, err := c.Actor()
	if err != nil {
		t.Fatalf("Actor() error: %v", err)
	}
	if a.AC() != 13 {
		t.Errorf("actor AC = %d, want 13", a.AC())
	}
	if v, ok := a.Attribute(Strength); !ok || v != 14 {
		t.Errorf("actor strength = %d, %v; want 14, true", v, ok)
	}
}

func TestCharacter_Inventory(t *testing.T) {
	c := &Character{Inventory: []string{"Torch", "Healing Potion", "healing potion"}}

	if !c.HasItem("HEALING POTION") {
		t.Error("expected case-insensitive match")
	}
	if !c.RemoveItem("healing potion") {
		t.Fatal("expected removal")
	}
	if len(c.Inventory) != 2 {
		t.Fatalf("inventory = %v, want 2 items", c.Inventory)
	}
	if c.RemoveItem("rope") {
		t.Error("removing a missing item should return false")
	}
	c.AddItem("Rope")
	if !c.HasItem("rope") {
		t.Error("expected rope after AddItem")
	}
}

func TestLoadCharacter(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "test_fighter.json")

	data, err := json.Marshal(Character{
		ID:    "should_be_overridden",
		Name:  "Test Fighter",
		Class: "Fighter",
		Stats: Stats5e{Constitution: 14},
	})
	if err != nil {
		t.Fatalf("marshal: %v", err)
	}
	if err := os.WriteFile(path, data, 0644); err != nil {
		t.Fatalf("write: %v", err)
	}

	c, err := LoadCharacter(path)
	if err != nil {
		t.Fatalf("LoadCharacter error: %v", err)
	}
	if c.ID != "test_fighter" {
		t.Errorf("ID = %q, want test_fighter", c.ID)
	}
	if c.Level != 1 {
		t.Errorf("Level = %d, want default 1", c.Level)
	}
	if c.MaxHealth != 12 || c.Health != 12 {
		t.Errorf("health = %d/%d, want 12/12", c.Health, c.MaxHealth)
	}
	if err := c.Validate(); err != nil {
		t.Errorf("Validate() = %v", err)
	}

	if _, err := LoadCharacter(filepath.Join(dir, "missing.json")); err == nil {
		t.Error("expected error for missing file")
	}
}

func TestCharacter_Summary(t *testing.T) {
	c := &Character{Name: "Aria", Pronouns: "she/her", Level: 2, Race: "Elf", Class: "Ranger"}
	if got, want := c.Summary(), "Aria (she/her), Level 2 Elf Ranger"; got != want {
		t.Errorf("Summary() = %q, want %q", got, want)
	}
	var nilChar *Character
	if nilChar.Summary() != "" {
		t.Error("nil character should summarize to empty string")
	}
}

func TestNewNPC(t *testing.T) {
	t.Run("creates npc from template", func(t *testing.T) {
		base := &NPC{
			Name:       "Giant Rat",
			AC:         12,
			MaxHealth:  9,
			Attributes: map[string]int{"strength": 7},
		}

		n := NewNPC(base, &NPC{ID: "rat_1", TemplateID: "giant_rat"})

		if n.ID != "rat_1" {
			t.Errorf("expected ID 'rat_1', got '%s'", n.ID)
		}
		if n.Name != "Giant Rat" || n.MaxHealth != 9 {
			t.Errorf("template fields not carried: %+v", n)
		}
	})

	t.Run("overrides replace template values", func(t *testing.T) {
		base := &NPC{Name: "Wolf", MaxHealth: 11, Attributes: map[string]int{"strength": 12}}
		n := NewNPC(base, &NPC{ID: "alpha", Name: "Alpha Wolf", MaxHealth: 20, Attributes: map[string]int{"dexterity": 15}})

		if n.Name != "Alpha Wolf" || n.MaxHealth != 20 {
			t.Errorf("overrides not applied: %+v", n)
		}
		if n.Attributes["strength"] != 12 || n.Attributes["dexterity"] != 15 {
			t.Errorf("attributes = %v", n.Attributes)
		}
		if _, ok := base.Attributes["dexterity"]; ok {
			t.Error("template attributes were mutated")
		}
	})

	t.Run("nil inputs", func(t *testing.T) {
		if NewNPC(nil, &NPC{}) != nil || NewNPC(&NPC{}, nil) != nil {
			t.Error("expected nil for nil inputs")
		}
	})
}

func TestNPC_Defaults(t *testing.T) {
	n := &NPC{ID: "goblin", MaxHealth: 7, Attributes: map[string]int{"dexterity": 14, "strength": 8}}

	if got := n.ArmorValue(); got != 12 {
		t.Errorf("ArmorValue() = %d, want 12", got)
	}
	if got := n.Damage(); got != DefaultNPCDamage {
		t.Errorf("Damage() = %q, want %q", got, DefaultNPCDamage)
	}
	if got := n.AttributeBonus(Strength); got != -1 {
		t.Errorf("AttributeBonus(strength) = %d, want -1", got)
	}

	a, err := n.Actor()
	if err != nil {
		t.Fatalf("Actor() error: %v", err)
	}
	if a.AC() != 12 {
		t.Errorf("actor AC = %d, want 12", a.AC())
	}
}
