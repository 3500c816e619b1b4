package worker

import (
	"context"
	"encoding/json"
	"errors"
	"io"
	"log/slog"
	"sync"
	"testing"
	"time"

	"github.com/alicebob/miniredis/v2"
	"github.com/google/uuid"
	"github.com/redis/go-redis/v9"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/jwebster45206/chronicle/internal/services/events"
	"github.com/jwebster45206/chronicle/internal/services/queue"
	"github.com/jwebster45206/chronicle/pkg/chat"
	queuePkg "github.com/jwebster45206/chronicle/pkg/queue"
)

type fakeEngine struct {
	mu       sync.Mutex
	turns    []chat.TurnRequest
	npcTurns []uuid.UUID
	err      error
}

func (f *fakeEngine) ProcessTurn(ctx context.Context, req chat.TurnRequest) (*chat.TurnResponse, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.turns = append(f.turns, req)
	if f.err != nil {
		return nil, f.err
	}
	return &chat.TurnResponse{SessionID: req.SessionID, Kind: chat.OutcomeNarrative, Narrative: "The door creaks open."}, nil
}

func (f *fakeEngine) ResolveNPCTurn(ctx context.Context, sessionID uuid.UUID, ownerID string) (*chat.TurnResponse, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.npcTurns = append(f.npcTurns, sessionID)
	return &chat.TurnResponse{SessionID: sessionID, Kind: chat.OutcomeNPCTurn, Narrative: "Goblin attacks but misses."}, nil
}

type testEnv struct {
	worker *Worker
	engine *fakeEngine
	client *queue.Client
	rdb    *redis.Client
}

func setup(t *testing.T) *testEnv {
	t.Helper()
	mr := miniredis.RunT(t)
	rdb := redis.NewClient(&redis.Options{Addr: mr.Addr()})
	t.Cleanup(func() { _ = rdb.Close() })

	logger := slog.New(slog.NewTextHandler(io.Discard, nil))
	client := queue.NewClientWithRedis(rdb, logger)
	eng := &fakeEngine{}
	return &testEnv{
		worker: New(client, eng, logger, "worker-test"),
		engine: eng,
		client: client,
		rdb:    rdb,
	}
}

func (env *testEnv) subscribe(t *testing.T, sessionID uuid.UUID) *redis.PubSub {
	t.Helper()
	sub := env.rdb.Subscribe(context.Background(), events.Channel(sessionID))
	_, err := sub.Receive(context.Background())
	require.NoError(t, err)
	t.Cleanup(func() { _ = sub.Close() })
	return sub
}

func nextEvent(t *testing.T, sub *redis.PubSub) events.Event {
	t.Helper()
	select {
	case msg := <-sub.Channel():
		var ev events.Event
		require.NoError(t, json.Unmarshal([]byte(msg.Payload), &ev))
		return ev
	case <-time.After(2 * time.Second):
		t.Fatal("timed out waiting for event")
	}
	return events.Event{}
}

func TestWorker_ProcessesTurn(t *testing.T) {
	env := setup(t)
	sessionID := uuid.New()
	sub := env.subscribe(t, sessionID)

	req := &queuePkg.Request{RequestID: "req-1", Type: queuePkg.RequestTypeTurn, SessionID: sessionID, Action: "open the door", OwnerID: "p1"}
	require.NoError(t, queue.NewTurnQueue(env.client).EnqueueRequest(context.Background(), req))

	require.NoError(t, env.worker.processNextRequest())

	require.Len(t, env.engine.turns, 1)
	assert.Equal(t, "open the door", env.engine.turns[0].Action)
	assert.Equal(t, "p1", env.engine.turns[0].OwnerID)

	assert.Equal(t, events.EventTypeTurnProcessing, nextEvent(t, sub).Type)
	done := nextEvent(t, sub)
	assert.Equal(t, events.EventTypeTurnCompleted, done.Type)
	assert.Equal(t, "req-1", done.RequestID)

	// lock released
	ok, err := queue.NewSessionLock(env.client, "other", time.Minute).Acquire(context.Background(), sessionID)
	require.NoError(t, err)
	assert.True(t, ok)
}

func TestWorker_NPCTurn(t *testing.T) {
	env := setup(t)
	sessionID := uuid.New()

	req := &queuePkg.Request{RequestID: "req-2", Type: queuePkg.RequestTypeNPCTurn, SessionID: sessionID}
	require.NoError(t, queue.NewTurnQueue(env.client).EnqueueRequest(context.Background(), req))

	require.NoError(t, env.worker.processNextRequest())
	assert.Equal(t, []uuid.UUID{sessionID}, env.engine.npcTurns)
}

func TestWorker_PublishesFailure(t *testing.T) {
	env := setup(t)
	env.engine.err = errors.New("not your turn")
	sessionID := uuid.New()
	sub := env.subscribe(t, sessionID)

	req := &queuePkg.Request{RequestID: "req-3", Type: queuePkg.RequestTypeTurn, SessionID: sessionID, Action: "attack"}
	require.NoError(t, queue.NewTurnQueue(env.client).EnqueueRequest(context.Background(), req))

	err := env.worker.processNextRequest()
	require.Error(t, err)

	assert.Equal(t, events.EventTypeTurnProcessing, nextEvent(t, sub).Type)
	failed := nextEvent(t, sub)
	assert.Equal(t, events.EventTypeTurnFailed, failed.Type)
	assert.Equal(t, "not your turn", failed.Data["error"])
}

func TestWorker_RequeuesLockedSession(t *testing.T) {
	env := setup(t)
	ctx := context.Background()
	sessionID := uuid.New()
	q := queue.NewTurnQueue(env.client)

	held, err := queue.NewSessionLock(env.client, "worker-other", time.Minute).Acquire(ctx, sessionID)
	require.NoError(t, err)
	require.True(t, held)

	req := &queuePkg.Request{RequestID: "req-4", Type: queuePkg.RequestTypeTurn, SessionID: sessionID, Action: "wait"}
	require.NoError(t, q.EnqueueRequest(ctx, req))

	require.NoError(t, env.worker.processNextRequest())
	assert.Empty(t, env.engine.turns)

	depth, err := q.Depth(ctx)
	require.NoError(t, err)
	assert.Equal(t, 1, depth)
}

func TestWorker_StartStop(t *testing.T) {
	env := setup(t)
	done := make(chan error, 1)
	go func() { done <- env.worker.Start() }()

	env.worker.Stop()
	select {
	case err := <-done:
		assert.NoError(t, err)
	case <-time.After(10 * time.Second):
		t.Fatal("worker did not stop")
	}
}
