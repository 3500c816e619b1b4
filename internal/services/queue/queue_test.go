package queue

import (
	"context"
	"io"
	"log/slog"
	"testing"
	"time"

	"github.com/alicebob/miniredis/v2"
	"github.com/google/uuid"

	"github.com/jwebster45206/chronicle/pkg/queue"
)

func setupTestRedis(t *testing.T) (*Client, *miniredis.Miniredis) {
	t.Helper()

	mr := miniredis.RunT(t)
	logger := slog.New(slog.NewTextHandler(io.Discard, nil))

	client, err := NewClient("redis://"+mr.Addr(), logger)
	if err != nil {
		t.Fatalf("Failed to create queue client: %v", err)
	}
	t.Cleanup(func() { _ = client.Close() })
	return client, mr
}

func TestTurnQueue_FIFO(t *testing.T) {
	client, _ := setupTestRedis(t)
	q := NewTurnQueue(client)
	ctx := context.Background()
	sessionID := uuid.New()

	actions := []string{"I open the door", "I step inside", "I light a torch"}
	for i, a := range actions {
		req := &queue.Request{RequestID: uuid.NewString(), Type: queue.RequestTypeTurn, SessionID: sessionID, Action: a}
		if err := q.EnqueueRequest(ctx, req); err != nil {
			t.Fatalf("enqueue %d: %v", i, err)
		}
		if req.EnqueuedAt.IsZero() {
			t.Error("expected EnqueuedAt to be stamped")
		}
	}

	depth, err := q.Depth(ctx)
	if err != nil {
		t.Fatalf("Depth: %v", err)
	}
	if depth != len(actions) {
		t.Errorf("Depth = %d, want %d", depth, len(actions))
	}

	for _, want := range actions {
		req, err := q.DequeueRequest(ctx)
		if err != nil {
			t.Fatalf("dequeue: %v", err)
		}
		if req == nil {
			t.Fatal("expected a request")
		}
		if req.Action != want {
			t.Errorf("Action = %q, want %q", req.Action, want)
		}
		if req.SessionID != sessionID {
			t.Errorf("SessionID = %s, want %s", req.SessionID, sessionID)
		}
	}

	req, err := q.DequeueRequest(ctx)
	if err != nil || req != nil {
		t.Errorf("empty queue returned %v, %v; want nil, nil", req, err)
	}
}

func TestTurnQueue_BlockingDequeue(t *testing.T) {
	client, _ := setupTestRedis(t)
	q := NewTurnQueue(client)
	ctx := context.Background()

	want := &queue.Request{RequestID: "r1", Type: queue.RequestTypeNPCTurn, SessionID: uuid.New()}
	if err := q.EnqueueRequest(ctx, want); err != nil {
		t.Fatalf("enqueue: %v", err)
	}

	got, err := q.BlockingDequeueRequest(ctx, time.Second)
	if err != nil {
		t.Fatalf("BlockingDequeueRequest: %v", err)
	}
	if got == nil || got.RequestID != "r1" || got.Type != queue.RequestTypeNPCTurn {
		t.Errorf("got %+v", got)
	}
}

func TestTurnQueue_BadPayload(t *testing.T) {
	client, mr := setupTestRedis(t)
	q := NewTurnQueue(client)

	if _, err := mr.Lpush(RequestsKey, "{not json"); err != nil {
		t.Fatalf("Lpush: %v", err)
	}
	if _, err := q.DequeueRequest(context.Background()); err == nil {
		t.Error("expected a parse error")
	}
}

func TestSessionLock(t *testing.T) {
	client, mr := setupTestRedis(t)
	ctx := context.Background()
	sessionID := uuid.New()

	a := NewSessionLock(client, "worker-a", time.Minute)
	b := NewSessionLock(client, "worker-b", time.Minute)

	ok, err := a.Acquire(ctx, sessionID)
	if err != nil || !ok {
		t.Fatalf("first Acquire = %v, %v; want true", ok, err)
	}
	ok, err = b.Acquire(ctx, sessionID)
	if err != nil || ok {
		t.Fatalf("second Acquire = %v, %v; want false", ok, err)
	}

	// only the owner may release
	released, err := b.Release(ctx, sessionID)
	if err != nil || released {
		t.Errorf("foreign Release = %v, %v; want false", released, err)
	}
	released, err = a.Release(ctx, sessionID)
	if err != nil || !released {
		t.Errorf("owner Release = %v, %v; want true", released, err)
	}

	ok, err = b.Acquire(ctx, sessionID)
	if err != nil || !ok {
		t.Fatalf("Acquire after release = %v, %v; want true", ok, err)
	}

	// lock expires with its TTL
	mr.FastForward(2 * time.Minute)
	ok, err = a.Acquire(ctx, sessionID)
	if err != nil || !ok {
		t.Errorf("Acquire after expiry = %v, %v; want true", ok, err)
	}
}
