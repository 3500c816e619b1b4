package worker

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/google/uuid"

	"github.com/jwebster45206/chronicle/internal/services/events"
	"github.com/jwebster45206/chronicle/internal/services/queue"
	"github.com/jwebster45206/chronicle/pkg/chat"
	queuePkg "github.com/jwebster45206/chronicle/pkg/queue"
)

const (
	workerTimeout = 5 * time.Second
	errorBackoff  = time.Second
)

// TurnEngine resolves turns. *engine.Engine satisfies it.
type TurnEngine interface {
	ProcessTurn(ctx context.Context, req chat.TurnRequest) (*chat.TurnResponse, error)
	ResolveNPCTurn(ctx context.Context, sessionID uuid.UUID, ownerID string) (*chat.TurnResponse, error)
}

// Worker processes turn requests from the queue
type Worker struct {
	id          string
	queue       *queue.TurnQueue
	lock        *queue.SessionLock
	engine      TurnEngine
	broadcaster *events.Broadcaster
	log         *slog.Logger
	ctx         context.Context
	cancel      context.CancelFunc
}

// New creates a new worker instance
func New(client *queue.Client, engine TurnEngine, log *slog.Logger, workerID string) *Worker {
	ctx, cancel := context.WithCancel(context.Background())

	if workerID == "" {
		workerID = fmt.Sprintf("worker-%s", uuid.New().String()[:8])
	}

	return &Worker{
		id:          workerID,
		queue:       queue.NewTurnQueue(client),
		lock:        queue.NewSessionLock(client, workerID, queue.DefaultLockTTL),
		engine:      engine,
		broadcaster: events.NewBroadcaster(client.Redis(), log),
		log:         log,
		ctx:         ctx,
		cancel:      cancel,
	}
}

// ID returns the worker's identifier.
func (w *Worker) ID() string {
	return w.id
}

// Start begins processing requests from the queue. It returns after Stop.
func (w *Worker) Start() error {
	w.log.Info("Worker starting", "worker_id", w.id)

	for {
		select {
		case <-w.ctx.Done():
			w.log.Info("Worker shutting down", "worker_id", w.id)
			return nil
		default:
			if err := w.processNextRequest(); err != nil {
				if errors.Is(err, context.Canceled) {
					continue
				}
				w.log.Error("Error processing request", "error", err, "worker_id", w.id)
				// Continue processing even on error
				select {
				case <-w.ctx.Done():
				case <-time.After(errorBackoff):
				}
			}
		}
	}
}

// Stop gracefully shuts down the worker
func (w *Worker) Stop() {
	w.log.Info("Worker stop requested", "worker_id", w.id)
	w.cancel()
}

// processNextRequest pulls the next request from the queue and processes it
func (w *Worker) processNextRequest() error {
	req, err := w.queue.BlockingDequeueRequest(w.ctx, workerTimeout)
	if err != nil {
		return fmt.Errorf("failed to dequeue request: %w", err)
	}
	if req == nil {
		// timeout, check for shutdown
		return nil
	}

	w.log.Info("Received request from queue",
		"worker_id", w.id,
		"request_id", req.RequestID,
		"type", req.Type,
		"session_id", req.SessionID.String(),
	)

	locked, err := w.lock.Acquire(w.ctx, req.SessionID)
	if err != nil {
		return err
	}
	if !locked {
		// Another worker is processing this session
		// Re-queue at the end and try next request
		w.log.Info("Session already locked, re-queueing request",
			"worker_id", w.id,
			"request_id", req.RequestID,
			"session_id", req.SessionID.String(),
		)
		if err := w.queue.EnqueueRequest(w.ctx, req); err != nil {
			return fmt.Errorf("failed to re-queue request: %w", err)
		}
		return nil
	}

	defer func() {
		// release even when the worker is stopping
		if _, err := w.lock.Release(context.WithoutCancel(w.ctx), req.SessionID); err != nil {
			w.log.Error("Failed to release session lock", "error", err, "session_id", req.SessionID.String())
		}
	}()
	return w.processRequest(req)
}

// processRequest runs a single request through the engine and publishes
// the result on the session's event channel
func (w *Worker) processRequest(req *queuePkg.Request) error {
	start := time.Now()

	if err := w.broadcaster.PublishTurnProcessing(w.ctx, req.SessionID, req.RequestID, string(req.Type), req.Action); err != nil {
		// Don't fail the request just because event publishing failed
		w.log.Error("Failed to publish processing event", "error", err)
	}

	var (
		resp *chat.TurnResponse
		err  error
	)
	switch req.Type {
	case queuePkg.RequestTypeTurn:
		resp, err = w.engine.ProcessTurn(w.ctx, chat.TurnRequest{
			SessionID:    req.SessionID,
			Action:       req.Action,
			Target:       req.Target,
			AttackType:   req.AttackType,
			ForceSummary: req.ForceSummary,
			OwnerID:      req.OwnerID,
		})
	case queuePkg.RequestTypeNPCTurn:
		resp, err = w.engine.ResolveNPCTurn(w.ctx, req.SessionID, req.OwnerID)
	default:
		err = fmt.Errorf("unknown request type: %s", req.Type)
	}

	if err != nil {
		w.log.Error("Failed to process request",
			"error", err,
			"request_id", req.RequestID,
			"session_id", req.SessionID.String(),
		)
		if pubErr := w.broadcaster.PublishTurnFailed(w.ctx, req.SessionID, req.RequestID, err.Error()); pubErr != nil {
			w.log.Error("Failed to publish failure event", "error", pubErr)
		}
		return fmt.Errorf("failed to process %s request: %w", req.Type, err)
	}

	w.log.Info("Request processed successfully",
		"worker_id", w.id,
		"request_id", req.RequestID,
		"kind", resp.Kind,
		"duration_ms", time.Since(start).Milliseconds(),
	)

	if err := w.broadcaster.PublishTurnCompleted(w.ctx, req.SessionID, req.RequestID, resp); err != nil {
		w.log.Error("Failed to publish completion event", "error", err)
	}
	return nil
}
