package engine

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"sync"
	"time"

	"github.com/google/uuid"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"

	"github.com/jwebster45206/chronicle/internal/services"
	"github.com/jwebster45206/chronicle/internal/telemetry"
	"github.com/jwebster45206/chronicle/pkg/actor"
	"github.com/jwebster45206/chronicle/pkg/dice"
	"github.com/jwebster45206/chronicle/pkg/intent"
	"github.com/jwebster45206/chronicle/pkg/inventory"
	"github.com/jwebster45206/chronicle/pkg/mechanics"
	"github.com/jwebster45206/chronicle/pkg/state"
	"github.com/jwebster45206/chronicle/pkg/storage"
	"github.com/jwebster45206/chronicle/pkg/story"
	"github.com/jwebster45206/chronicle/pkg/triggers"
)

// DefaultOracleTimeout bounds one oracle call when no timeout is configured.
const DefaultOracleTimeout = 90 * time.Second

// DeathReason is recorded when the character's health reaches zero.
const DeathReason = "Your character has died."

// DeathNarrative replaces the turn's narration when the character dies.
const DeathNarrative = "Your strength fails you and the world fades to black. Your character has died, and this tale is over."

// Engine resolves player actions into new session state.
// It's used by both the HTTP handler (synchronously) and the worker (asynchronously)
type Engine struct {
	store         storage.Store
	oracle        services.Oracle
	classifier    intent.Classifier
	roller        *dice.Roller
	logger        *slog.Logger
	tracer        trace.Tracer
	oracleTimeout time.Duration
	now           func() time.Time

	// Background summary cancellation, one job per session
	summaryMu   sync.Mutex
	summaryJobs map[uuid.UUID]*summaryJob
	summaryWG   sync.WaitGroup
}

// Option configures an Engine.
type Option func(*Engine)

// WithRoller sets the dice roller. Tests pass a scripted roller.
func WithRoller(r *dice.Roller) Option {
	return func(e *Engine) { e.roller = r }
}

// WithClassifier replaces the intent classifier.
func WithClassifier(c intent.Classifier) Option {
	return func(e *Engine) { e.classifier = c }
}

// WithOracleTimeout bounds each oracle call.
func WithOracleTimeout(d time.Duration) Option {
	return func(e *Engine) {
		if d > 0 {
			e.oracleTimeout = d
		}
	}
}

// WithClock sets the time source used for summary scheduling.
func WithClock(now func() time.Time) Option {
	return func(e *Engine) { e.now = now }
}

// New creates a turn engine.
func New(store storage.Store, oracle services.Oracle, logger *slog.Logger, opts ...Option) *Engine {
	e := &Engine{
		store:         store,
		oracle:        oracle,
		classifier:    intent.NewRegexClassifier(),
		roller:        dice.Default(),
		logger:        logger,
		tracer:        telemetry.Tracer(),
		oracleTimeout: DefaultOracleTimeout,
		now:           time.Now,
		summaryJobs:   make(map[uuid.UUID]*summaryJob),
	}
	for _, opt := range opts {
		opt(e)
	}
	return e
}

// turn holds everything loaded for one action on a session.
type turn struct {
	sess      *state.Session
	gs        *state.GameState
	story     *story.Story
	char      *actor.Character
	inventory *inventory.Manager
	resolver  *mechanics.Resolver
	triggers  *triggers.Engine
	ledger    *mechanics.Ledger
	recap     state.TurnRecap
}

// load reads the session, its memory, story and character, and checks
// ownership. A mismatched owner is reported as not found.
func (e *Engine) load(ctx context.Context, sessionID uuid.UUID, ownerID string) (*turn, error) {
	sess, err := e.store.LoadSession(ctx, sessionID)
	if err != nil {
		return nil, fmt.Errorf("%w: failed to load session: %w", ErrPersistence, err)
	}
	if sess == nil || sess.GameState == nil {
		return nil, fmt.Errorf("%w: session %s", ErrNotFound, sessionID)
	}
	if !owns(sess.OwnerID, ownerID) {
		return nil, fmt.Errorf("%w: session %s", ErrNotFound, sessionID)
	}

	mem, err := e.store.LoadMemory(ctx, sessionID)
	if err != nil {
		return nil, fmt.Errorf("%w: failed to load memory: %w", ErrPersistence, err)
	}
	sess.GameState.ApplyMemory(mem)

	s, err := e.store.GetStory(ctx, sess.StoryID)
	if err != nil {
		return nil, fmt.Errorf("%w: failed to load story: %w", ErrPersistence, err)
	}
	if s == nil {
		return nil, fmt.Errorf("%w: story %s", ErrNotFound, sess.StoryID)
	}

	c, err := e.store.LoadCharacter(ctx, sess.CharacterID)
	if err != nil {
		return nil, fmt.Errorf("%w: failed to load character: %w", ErrPersistence, err)
	}
	if c == nil || !owns(c.OwnerID, ownerID) {
		return nil, fmt.Errorf("%w: character %s", ErrNotFound, sess.CharacterID)
	}

	return e.newTurn(sess, s, c), nil
}

func (e *Engine) newTurn(sess *state.Session, s *story.Story, c *actor.Character) *turn {
	inv := inventory.NewManager(s, e.roller)
	return &turn{
		sess:      sess,
		gs:        sess.GameState,
		story:     s,
		char:      c,
		inventory: inv,
		resolver:  mechanics.NewResolver(s, e.roller, inv, e.logger),
		triggers:  triggers.NewEngine(s, e.classifier, inv, e.logger),
		ledger:    &mechanics.Ledger{},
	}
}

// save persists the session, then the character. The session write carries
// the version check, so a conflicting turn never touches the character.
func (e *Engine) save(ctx context.Context, t *turn) error {
	if err := e.store.SaveSession(ctx, t.sess); err != nil {
		if errors.Is(err, storage.ErrVersionConflict) {
			return ErrVersionConflict
		}
		return fmt.Errorf("%w: failed to save session: %w", ErrPersistence, err)
	}
	if err := e.store.SaveCharacter(ctx, t.char); err != nil {
		return fmt.Errorf("%w: failed to save character: %w", ErrPersistence, err)
	}
	return nil
}

// checkDeath ends the game when the character has no health left.
// Returns true when the character died this turn.
func checkDeath(t *turn) bool {
	if t.char.IsAlive() {
		return false
	}
	t.gs.Combat = nil
	if !t.gs.GameOver {
		t.gs.EndGame(DeathReason)
	}
	return true
}

func owns(recordOwner, caller string) bool {
	return recordOwner == "" || caller == "" || recordOwner == caller
}

func recordSpanError(span trace.Span, err error) {
	span.RecordError(err)
	span.SetStatus(codes.Error, err.Error())
}

// Wait blocks until background summaries finish.
func (e *Engine) Wait() {
	e.summaryWG.Wait()
}
