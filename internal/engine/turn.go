package engine

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"go.opentelemetry.io/otel/attribute"

	"github.com/jwebster45206/chronicle/pkg/actor"
	"github.com/jwebster45206/chronicle/pkg/chat"
	"github.com/jwebster45206/chronicle/pkg/intent"
	"github.com/jwebster45206/chronicle/pkg/inventory"
	"github.com/jwebster45206/chronicle/pkg/parser"
	"github.com/jwebster45206/chronicle/pkg/prompts"
	"github.com/jwebster45206/chronicle/pkg/state"
)

// Outcome is the single result a turn resolver produces.
type Outcome struct {
	Kind      string
	Narrative string
	NPCs      []parser.NPCDialogue
	Options   []string
	Events    []string

	// consumed is set when the current combatant's slot was used up.
	consumed bool
}

// ProcessTurn resolves one player action against a session and persists
// the result. Nothing is saved when the turn fails.
func (e *Engine) ProcessTurn(ctx context.Context, req chat.TurnRequest) (*chat.TurnResponse, error) {
	if err := req.Validate(); err != nil {
		return nil, fmt.Errorf("%w: %w", ErrValidation, err)
	}

	ctx, span := e.tracer.Start(ctx, "turn.process")
	defer span.End()
	span.SetAttributes(attribute.String("session_id", req.SessionID.String()))

	resp, err := e.processTurn(ctx, req)
	if err != nil {
		recordSpanError(span, err)
		return nil, err
	}
	span.SetAttributes(attribute.String("turn.kind", resp.Kind))
	return resp, nil
}

func (e *Engine) processTurn(ctx context.Context, req chat.TurnRequest) (*chat.TurnResponse, error) {
	t, err := e.load(ctx, req.SessionID, req.OwnerID)
	if err != nil {
		return nil, err
	}
	if t.gs.GameOver {
		return nil, ErrGameOver
	}

	t.recap = t.gs.ClearTransient()
	in := e.classifier.Player(req.Action)
	target := firstNonEmpty(req.Target, in.Target)
	attackType := firstNonEmpty(req.AttackType, in.AttackType)

	inCombat := t.gs.InCombat()
	if inCombat && !t.gs.Combat.IsPlayerTurn() {
		return nil, ErrNotYourTurn
	}

	var foe *actor.NPC
	if !inCombat && in.Kind == intent.Attack {
		foe = e.combatTarget(t, target)
	}

	var out *Outcome
	switch {
	case inCombat && in.Kind == intent.Attack:
		out = e.resolveCombatAttack(t, target, attackType)
	case foe != nil:
		out = e.resolveCombatStart(t, foe, attackType)
	case in.Kind == intent.UseItem && t.char.HasItem(target):
		out = e.resolveItemUse(t, target)
	default:
		out, err = e.resolveNarrative(ctx, t, req.Action, target, attackType)
		if err != nil {
			return nil, err
		}
	}
	if inCombat {
		out.consumed = true
	}

	t.ledger.Apply(t.char)
	e.finishCombat(t, out)
	if checkDeath(t) {
		out.Narrative = DeathNarrative
		out.Options = nil
		e.logger.Info("character died", "session_id", t.sess.ID, "character_id", t.char.ID)
	}

	t.sess.AddHistory(state.SpeakerPlayer, req.Action)
	t.sess.AddHistory(state.SpeakerNarrator, out.Narrative)
	t.sess.UpdatedAt = e.now().UTC()

	if err := e.save(ctx, t); err != nil {
		return nil, err
	}

	if e.shouldSummarize(t.gs, len(t.sess.History), req.ForceSummary) {
		e.scheduleSummary(t.sess, t.char.Name)
	}

	e.logger.Info("turn processed",
		"session_id", t.sess.ID,
		"kind", out.Kind,
		"version", t.sess.Version,
		"in_combat", t.gs.InCombat())

	return e.response(t, out), nil
}

// finishCombat checks terminal transitions and, when the encounter goes
// on, moves past a consumed slot.
func (e *Engine) finishCombat(t *turn, out *Outcome) {
	if t.gs.Combat == nil {
		return
	}
	switch t.gs.EndCombat(t.char.Health, DeathReason) {
	case state.OutcomeVictory:
		out.Events = append(out.Events, "Victory! All enemies have been defeated.")
	case state.OutcomeDefeat:
		out.Events = append(out.Events, "You have been defeated.")
	default:
		if out.consumed {
			t.gs.Combat.Advance()
		}
		out.Events = append(out.Events, turnOrderEvent(t.gs.Combat))
	}
}

// combatTarget resolves an attack target among the living NPCs present.
func (e *Engine) combatTarget(t *turn, ref string) *actor.NPC {
	npc := t.gs.FindLivingNPC(t.story, ref)
	if npc == nil {
		return nil
	}
	for _, id := range t.gs.LivingNPCsAt(t.story, t.gs.CurrentLocationID) {
		if id == npc.ID {
			return npc
		}
	}
	return nil
}

func (e *Engine) resolveCombatAttack(t *turn, target, attackType string) *Outcome {
	if target == "" {
		for _, n := range t.gs.Combat.NPCs {
			if !n.Defeated {
				target = n.ID
				break
			}
		}
	}
	atk := t.resolver.ResolveAttack(t.gs, t.char, target, attackType)
	return &Outcome{
		Kind:      chat.OutcomeCombat,
		Narrative: atk.Message,
		Events:    attackEvents(atk),
	}
}

func (e *Engine) resolveCombatStart(t *turn, target *actor.NPC, attackType string) *Outcome {
	player := state.Participant{
		ID:            state.PlayerCombatantID,
		Name:          t.char.Name,
		DexBonus:      t.char.AttributeBonus(actor.Dexterity),
		CurrentHealth: t.char.Health,
		MaxHealth:     t.char.MaxHealth,
	}
	var npcs []state.Participant
	for _, id := range t.gs.LivingNPCsAt(t.story, t.gs.CurrentLocationID) {
		npc := t.story.NPC(id)
		if npc == nil {
			continue
		}
		if npc.ID != target.ID && !strings.EqualFold(npc.Disposition, actor.DispositionHostile) {
			continue
		}
		st := t.gs.NPCStates[npc.ID]
		npcs = append(npcs, state.Participant{
			ID:            npc.ID,
			Name:          npc.Name,
			DexBonus:      npc.AttributeBonus(actor.Dexterity),
			CurrentHealth: st.CurrentHealth,
			MaxHealth:     st.MaxHealth,
		})
	}

	t.gs.Combat = state.StartCombat(e.roller, player, npcs)
	e.logger.Info("combat started",
		"session_id", t.sess.ID,
		"target", target.ID,
		"combatants", len(t.gs.Combat.Combatants))

	out := &Outcome{
		Kind:   chat.OutcomeCombatStart,
		Events: []string{initiativeEvent(t.gs.Combat)},
	}
	if !t.gs.Combat.IsPlayerTurn() {
		first := t.gs.Combat.Current()
		out.Narrative = fmt.Sprintf("Combat begins! %s acts first.", first.Name)
		return out
	}

	atk := t.resolver.ResolveAttack(t.gs, t.char, target.ID, attackType)
	out.Narrative = "Combat begins! " + atk.Message
	out.Events = append(out.Events, attackEvents(atk)...)
	out.consumed = true
	return out
}

func (e *Engine) resolveItemUse(t *turn, item string) *Outcome {
	res, err := t.inventory.UseItem(t.char, item)
	if err != nil {
		msg := fmt.Sprintf("You cannot use the %s here.", item)
		if errors.Is(err, inventory.ErrItemUnusable) {
			msg = fmt.Sprintf("Nothing happens when you try to use the %s.", item)
		}
		return &Outcome{Kind: chat.OutcomeItemUse, Narrative: msg}
	}
	out := &Outcome{Kind: chat.OutcomeItemUse, Narrative: res.Message}
	if res.Consumed {
		out.Events = append(out.Events, fmt.Sprintf("%s consumed.", res.Item))
	}
	return out
}

func (e *Engine) resolveNarrative(ctx context.Context, t *turn, action, target, attackType string) (*Outcome, error) {
	prompt, err := prompts.New().
		WithGameState(t.gs).
		WithStory(t.story).
		WithCharacter(t.char).
		WithAction(chat.FormatWithPCName(action, t.char.Name)).
		WithHistory(t.sess.History).
		WithPreviousTurn(t.recap).
		Build()
	if err != nil {
		return nil, fmt.Errorf("failed to build prompt: %w", err)
	}

	history := append([]chat.ChatMessage{{Role: chat.ChatRoleSystem, Content: prompts.NarratorSystemPrompt}},
		prompts.HistoryMessages(t.sess.History, t.char.Name)...)

	text, err := e.generate(ctx, history, prompt)
	if err != nil {
		return nil, err
	}

	resp := parser.Parse(text)
	trig := t.triggers.Process(t.gs, t.char, resp)

	mechText := ""
	if resp.Mechanics != nil {
		mechText = *resp.Mechanics
	}
	mech := t.resolver.ResolveMechanics(t.gs, t.char, mechText, target, attackType, t.ledger)
	counters := t.resolver.ResolveCounterAttacks(t.gs, t.char, trig.CounterAttackers, attackType, t.ledger)

	out := &Outcome{
		Kind:      chat.OutcomeNarrative,
		Narrative: resp.Narrative(),
		NPCs:      resp.NPCs,
		Options:   resp.Options,
	}
	out.Events = append(out.Events, triggerEvents(t.story, trig)...)
	for i := range mech.Attacks {
		out.Events = append(out.Events, attackEvents(&mech.Attacks[i])...)
	}
	for _, r := range mech.Rolls {
		out.Events = append(out.Events, rollEvent(r))
	}
	for _, ca := range counters {
		out.Events = append(out.Events, ca.Message)
	}
	return out, nil
}

// generate calls the oracle under the configured timeout.
func (e *Engine) generate(ctx context.Context, history []chat.ChatMessage, prompt string) (string, error) {
	if e.oracle == nil {
		return "", fmt.Errorf("%w: no oracle configured", ErrOracleFailure)
	}

	ctx, span := e.tracer.Start(ctx, "oracle.generate")
	defer span.End()
	span.SetAttributes(attribute.Int("oracle.history_len", len(history)))

	ctx, cancel := context.WithTimeout(ctx, e.oracleTimeout)
	defer cancel()

	text, err := e.oracle.Generate(ctx, history, prompt)
	if err != nil {
		recordSpanError(span, err)
		return "", fmt.Errorf("%w: %w", ErrOracleFailure, err)
	}
	return text, nil
}

func (e *Engine) response(t *turn, out *Outcome) *chat.TurnResponse {
	return &chat.TurnResponse{
		SessionID: t.sess.ID,
		Kind:      out.Kind,
		Narrative: out.Narrative,
		NPCs:      out.NPCs,
		Options:   out.Options,
		Events:    out.Events,
		Session:   t.sess,
		Character: t.char,
	}
}

func firstNonEmpty(vals ...string) string {
	for _, v := range vals {
		if strings.TrimSpace(v) != "" {
			return strings.TrimSpace(v)
		}
	}
	return ""
}
