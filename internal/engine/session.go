package engine

import (
	"context"
	"fmt"

	"github.com/google/uuid"

	"github.com/jwebster45206/chronicle/pkg/chat"
	"github.com/jwebster45206/chronicle/pkg/state"
)

// StartSession creates and persists a new session for a character in a
// story. The story's opening narration seeds the history and any events at
// the start location fire immediately.
func (e *Engine) StartSession(ctx context.Context, req chat.CreateSessionRequest, ownerID string) (*state.Session, error) {
	if err := req.Validate(); err != nil {
		return nil, fmt.Errorf("%w: %w", ErrValidation, err)
	}

	s, err := e.store.GetStory(ctx, req.StoryID)
	if err != nil {
		return nil, fmt.Errorf("%w: failed to load story: %w", ErrPersistence, err)
	}
	if s == nil {
		return nil, fmt.Errorf("%w: story %s", ErrNotFound, req.StoryID)
	}
	c, err := e.store.LoadCharacter(ctx, req.CharacterID)
	if err != nil {
		return nil, fmt.Errorf("%w: failed to load character: %w", ErrPersistence, err)
	}
	if c == nil || !owns(c.OwnerID, ownerID) {
		return nil, fmt.Errorf("%w: character %s", ErrNotFound, req.CharacterID)
	}
	c.Normalize()

	sess := state.NewSession(c.ID, s.ID, state.NewGameState(s))
	sess.OwnerID = ownerID
	if s.Opening != "" {
		sess.AddHistory(state.SpeakerNarrator, s.Opening)
	}

	t := e.newTurn(sess, s, c)
	if fired := t.triggers.FireLocationEvents(t.gs); len(fired) > 0 {
		e.logger.Debug("start location events fired", "events", fired)
	}

	if err := e.save(ctx, t); err != nil {
		return nil, err
	}
	e.logger.Info("session started",
		"session_id", sess.ID,
		"story_id", s.ID,
		"character_id", c.ID)
	return sess, nil
}

// GetSession returns a session with its memory summary merged in.
func (e *Engine) GetSession(ctx context.Context, id uuid.UUID, ownerID string) (*state.Session, error) {
	sess, err := e.store.LoadSession(ctx, id)
	if err != nil {
		return nil, fmt.Errorf("%w: failed to load session: %w", ErrPersistence, err)
	}
	if sess == nil || !owns(sess.OwnerID, ownerID) {
		return nil, fmt.Errorf("%w: session %s", ErrNotFound, id)
	}
	mem, err := e.store.LoadMemory(ctx, id)
	if err != nil {
		return nil, fmt.Errorf("%w: failed to load memory: %w", ErrPersistence, err)
	}
	if sess.GameState != nil {
		sess.GameState.ApplyMemory(mem)
	}
	return sess, nil
}

// DeleteSession removes a session and cancels its pending summary.
func (e *Engine) DeleteSession(ctx context.Context, id uuid.UUID, ownerID string) error {
	if _, err := e.GetSession(ctx, id, ownerID); err != nil {
		return err
	}
	e.cancelSummary(id)
	if err := e.store.DeleteSession(ctx, id); err != nil {
		return fmt.Errorf("%w: failed to delete session: %w", ErrPersistence, err)
	}
	e.logger.Info("session deleted", "session_id", id)
	return nil
}
