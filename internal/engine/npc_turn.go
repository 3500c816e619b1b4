package engine

import (
	"context"
	"fmt"

	"github.com/google/uuid"
	"go.opentelemetry.io/otel/attribute"

	"github.com/jwebster45206/chronicle/pkg/chat"
	"github.com/jwebster45206/chronicle/pkg/state"
)

// ResolveNPCTurn lets the NPC whose turn it is attack the player, then
// advances the encounter. It never consults the oracle.
func (e *Engine) ResolveNPCTurn(ctx context.Context, sessionID uuid.UUID, ownerID string) (*chat.TurnResponse, error) {
	if sessionID == uuid.Nil {
		return nil, fmt.Errorf("%w: session_id is required", ErrValidation)
	}

	ctx, span := e.tracer.Start(ctx, "turn.npc")
	defer span.End()
	span.SetAttributes(attribute.String("session_id", sessionID.String()))

	resp, err := e.resolveNPCTurn(ctx, sessionID, ownerID)
	if err != nil {
		recordSpanError(span, err)
		return nil, err
	}
	return resp, nil
}

func (e *Engine) resolveNPCTurn(ctx context.Context, sessionID uuid.UUID, ownerID string) (*chat.TurnResponse, error) {
	t, err := e.load(ctx, sessionID, ownerID)
	if err != nil {
		return nil, err
	}
	switch {
	case t.gs.GameOver:
		return nil, ErrGameOver
	case !t.gs.InCombat():
		return nil, ErrNoCombat
	case t.gs.Combat.IsPlayerTurn():
		return nil, ErrPlayerTurn
	}

	cur := t.gs.Combat.Current()
	out := &Outcome{Kind: chat.OutcomeNPCTurn, consumed: true}

	ca, err := t.resolver.NPCAttack(t.gs, t.char, cur.ID, t.ledger)
	if err != nil {
		e.logger.Warn("npc cannot act", "session_id", t.sess.ID, "npc_id", cur.ID, "error", err)
		out.Narrative = fmt.Sprintf("%s hesitates.", cur.Name)
	} else {
		out.Narrative = ca.Message
		out.Events = append(out.Events,
			fmt.Sprintf("%s attack: rolled %d = %d vs AC %d", ca.Name, ca.Roll, ca.Total, ca.Armor))
	}

	t.ledger.Apply(t.char)
	e.finishCombat(t, out)
	if checkDeath(t) {
		out.Narrative = out.Narrative + " " + DeathNarrative
	}

	t.sess.AddHistory(state.SpeakerNarrator, out.Narrative)
	t.sess.UpdatedAt = e.now().UTC()
	if err := e.save(ctx, t); err != nil {
		return nil, err
	}

	e.logger.Info("npc turn processed",
		"session_id", t.sess.ID,
		"npc_id", cur.ID,
		"player_health", t.char.Health)
	return e.response(t, out), nil
}
