package storage

import (
	"context"
	"errors"
	"testing"

	"github.com/google/uuid"
	"github.com/jwebster45206/chronicle/pkg/actor"
	"github.com/jwebster45206/chronicle/pkg/state"
)

func TestMockStorage_SessionVersioning(t *testing.T) {
	m := NewMockStorage()
	ctx := context.Background()

	sess := state.NewSession("aria", "crypt", &state.GameState{CurrentLocationID: "hall"})
	if err := m.SaveSession(ctx, sess); err != nil {
		t.Fatalf("SaveSession: %v", err)
	}
	if sess.Version != 1 {
		t.Fatalf("Version = %d, want 1", sess.Version)
	}

	a, _ := m.LoadSession(ctx, sess.ID)
	b, _ := m.LoadSession(ctx, sess.ID)

	a.GameState.CurrentLocationID = "gate"
	if err := m.SaveSession(ctx, a); err != nil {
		t.Fatalf("first writer: %v", err)
	}
	b.GameState.CurrentLocationID = "crypt"
	if err := m.SaveSession(ctx, b); !errors.Is(err, ErrVersionConflict) {
		t.Fatalf("second writer err = %v, want ErrVersionConflict", err)
	}

	loaded, _ := m.LoadSession(ctx, sess.ID)
	if loaded.GameState.CurrentLocationID != "gate" || loaded.Version != 2 {
		t.Errorf("loaded = %s v%d, want gate v2", loaded.GameState.CurrentLocationID, loaded.Version)
	}
}

func TestMockStorage_LoadMissing(t *testing.T) {
	m := NewMockStorage()
	ctx := context.Background()

	if s, err := m.LoadSession(ctx, uuid.New()); s != nil || err != nil {
		t.Errorf("LoadSession = %v, %v; want nil, nil", s, err)
	}
	if c, err := m.LoadCharacter(ctx, "nobody"); c != nil || err != nil {
		t.Errorf("LoadCharacter = %v, %v; want nil, nil", c, err)
	}
	if mem, err := m.LoadMemory(ctx, uuid.New()); mem != nil || err != nil {
		t.Errorf("LoadMemory = %v, %v; want nil, nil", mem, err)
	}
}

func TestMockStorage_CharacterCopies(t *testing.T) {
	m := NewMockStorage()
	ctx := context.Background()

	c := &actor.Character{ID: "aria", Name: "Aria", Inventory: []string{"Torch"}}
	if err := m.SaveCharacter(ctx, c); err != nil {
		t.Fatalf("SaveCharacter: %v", err)
	}
	c.Inventory[0] = "Sword"

	loaded, _ := m.LoadCharacter(ctx, "aria")
	if loaded.Inventory[0] != "Torch" {
		t.Errorf("stored inventory mutated through caller: %v", loaded.Inventory)
	}
}
