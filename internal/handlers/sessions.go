package handlers

import (
	"context"
	"log/slog"
	"net/http"
	"strings"

	"github.com/google/uuid"

	"github.com/jwebster45206/chronicle/internal/engine"
	"github.com/jwebster45206/chronicle/pkg/chat"
	"github.com/jwebster45206/chronicle/pkg/queue"
	"github.com/jwebster45206/chronicle/pkg/state"
)

// SessionEngine is the part of the turn engine the HTTP layer drives.
type SessionEngine interface {
	StartSession(ctx context.Context, req chat.CreateSessionRequest, ownerID string) (*state.Session, error)
	GetSession(ctx context.Context, id uuid.UUID, ownerID string) (*state.Session, error)
	DeleteSession(ctx context.Context, id uuid.UUID, ownerID string) error
	ProcessTurn(ctx context.Context, req chat.TurnRequest) (*chat.TurnResponse, error)
	ResolveNPCTurn(ctx context.Context, sessionID uuid.UUID, ownerID string) (*chat.TurnResponse, error)
}

var _ SessionEngine = (*engine.Engine)(nil)

// TurnQueuer accepts turns for asynchronous processing by a worker.
type TurnQueuer interface {
	EnqueueRequest(ctx context.Context, req *queue.Request) error
}

// QueueNotifier announces queued turns to event stream subscribers.
type QueueNotifier interface {
	PublishTurnQueued(ctx context.Context, sessionID uuid.UUID, requestID, requestType string) error
}

// QueuedResponse acknowledges an asynchronous turn.
type QueuedResponse struct {
	RequestID string    `json:"request_id"`
	SessionID uuid.UUID `json:"session_id"`
	Status    string    `json:"status"`
}

// SessionHandler serves the session routes:
//
//	POST   /v1/sessions
//	GET    /v1/sessions/{id}
//	DELETE /v1/sessions/{id}
//	POST   /v1/sessions/{id}/turns[?async=true]
//	POST   /v1/sessions/{id}/npc-turn[?async=true]
//	GET    /v1/sessions/{id}/events
type SessionHandler struct {
	engine   SessionEngine
	queue    TurnQueuer
	notifier QueueNotifier
	events   http.Handler
	logger   *slog.Logger
}

func NewSessionHandler(eng SessionEngine, logger *slog.Logger) *SessionHandler {
	return &SessionHandler{engine: eng, logger: logger}
}

// WithQueue enables ?async=true on the turn routes. The notifier may be nil.
func (h *SessionHandler) WithQueue(q TurnQueuer, n QueueNotifier) *SessionHandler {
	h.queue = q
	h.notifier = n
	return h
}

// WithEvents mounts the event stream under /v1/sessions/{id}/events.
func (h *SessionHandler) WithEvents(events http.Handler) *SessionHandler {
	h.events = events
	return h
}

func (h *SessionHandler) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	rest := strings.Trim(strings.TrimPrefix(r.URL.Path, "/v1/sessions"), "/")
	if rest == "" {
		if r.Method != http.MethodPost {
			methodNotAllowed(w, h.logger, http.MethodPost)
			return
		}
		h.handleCreate(w, r)
		return
	}

	parts := strings.Split(rest, "/")
	id, err := uuid.Parse(parts[0])
	if err != nil {
		writeError(w, h.logger, http.StatusBadRequest, "Invalid session ID format")
		return
	}

	switch {
	case len(parts) == 1:
		switch r.Method {
		case http.MethodGet:
			h.handleGet(w, r, id)
		case http.MethodDelete:
			h.handleDelete(w, r, id)
		default:
			methodNotAllowed(w, h.logger, http.MethodGet, http.MethodDelete)
		}
	case len(parts) == 2 && parts[1] == "turns":
		if r.Method != http.MethodPost {
			methodNotAllowed(w, h.logger, http.MethodPost)
			return
		}
		h.handleTurn(w, r, id)
	case len(parts) == 2 && parts[1] == "npc-turn":
		if r.Method != http.MethodPost {
			methodNotAllowed(w, h.logger, http.MethodPost)
			return
		}
		h.handleNPCTurn(w, r, id)
	case len(parts) == 2 && parts[1] == "events" && h.events != nil:
		h.events.ServeHTTP(w, r)
	default:
		writeError(w, h.logger, http.StatusNotFound, "Not found")
	}
}

func (h *SessionHandler) handleCreate(w http.ResponseWriter, r *http.Request) {
	var req chat.CreateSessionRequest
	if err := decodeJSON(w, r, &req); err != nil {
		writeError(w, h.logger, http.StatusBadRequest, "Invalid request body")
		return
	}
	sess, err := h.engine.StartSession(r.Context(), req, r.Header.Get(PlayerIDHeader))
	if err != nil {
		writeEngineError(w, h.logger, err)
		return
	}
	h.logger.Info("Session created",
		"session_id", sess.ID.String(),
		"story_id", req.StoryID,
		"character_id", req.CharacterID)
	writeJSON(w, h.logger, http.StatusCreated, sess)
}

func (h *SessionHandler) handleGet(w http.ResponseWriter, r *http.Request, id uuid.UUID) {
	sess, err := h.engine.GetSession(r.Context(), id, r.Header.Get(PlayerIDHeader))
	if err != nil {
		writeEngineError(w, h.logger, err)
		return
	}
	writeJSON(w, h.logger, http.StatusOK, sess)
}

func (h *SessionHandler) handleDelete(w http.ResponseWriter, r *http.Request, id uuid.UUID) {
	if err := h.engine.DeleteSession(r.Context(), id, r.Header.Get(PlayerIDHeader)); err != nil {
		writeEngineError(w, h.logger, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

func (h *SessionHandler) handleTurn(w http.ResponseWriter, r *http.Request, id uuid.UUID) {
	var req chat.TurnRequest
	if err := decodeJSON(w, r, &req); err != nil {
		writeError(w, h.logger, http.StatusBadRequest, "Invalid request body")
		return
	}
	if req.SessionID != uuid.Nil && req.SessionID != id {
		writeError(w, h.logger, http.StatusBadRequest, "session_id does not match the path")
		return
	}
	req.SessionID = id
	req.OwnerID = r.Header.Get(PlayerIDHeader)

	if isAsync(r) {
		if err := req.Validate(); err != nil {
			writeError(w, h.logger, http.StatusBadRequest, err.Error())
			return
		}
		h.enqueue(w, r, &queue.Request{
			Type:         queue.RequestTypeTurn,
			SessionID:    id,
			OwnerID:      req.OwnerID,
			Action:       req.Action,
			Target:       req.Target,
			AttackType:   req.AttackType,
			ForceSummary: req.ForceSummary,
		})
		return
	}

	resp, err := h.engine.ProcessTurn(r.Context(), req)
	if err != nil {
		writeEngineError(w, h.logger, err)
		return
	}
	writeJSON(w, h.logger, http.StatusOK, resp)
}

func (h *SessionHandler) handleNPCTurn(w http.ResponseWriter, r *http.Request, id uuid.UUID) {
	owner := r.Header.Get(PlayerIDHeader)
	if isAsync(r) {
		h.enqueue(w, r, &queue.Request{
			Type:      queue.RequestTypeNPCTurn,
			SessionID: id,
			OwnerID:   owner,
		})
		return
	}

	resp, err := h.engine.ResolveNPCTurn(r.Context(), id, owner)
	if err != nil {
		writeEngineError(w, h.logger, err)
		return
	}
	writeJSON(w, h.logger, http.StatusOK, resp)
}

func (h *SessionHandler) enqueue(w http.ResponseWriter, r *http.Request, req *queue.Request) {
	if h.queue == nil {
		writeError(w, h.logger, http.StatusServiceUnavailable, "Asynchronous turns are not available")
		return
	}
	req.RequestID = uuid.NewString()
	if err := h.queue.EnqueueRequest(r.Context(), req); err != nil {
		h.logger.Error("Failed to enqueue turn", "error", err, "session_id", req.SessionID.String())
		writeError(w, h.logger, http.StatusServiceUnavailable, "Failed to queue turn")
		return
	}
	if h.notifier != nil {
		if err := h.notifier.PublishTurnQueued(r.Context(), req.SessionID, req.RequestID, string(req.Type)); err != nil {
			h.logger.Warn("Failed to publish queued event", "error", err, "request_id", req.RequestID)
		}
	}
	h.logger.Info("Turn queued",
		"request_id", req.RequestID,
		"type", req.Type,
		"session_id", req.SessionID.String())
	writeJSON(w, h.logger, http.StatusAccepted, QueuedResponse{
		RequestID: req.RequestID,
		SessionID: req.SessionID,
		Status:    "queued",
	})
}

func isAsync(r *http.Request) bool {
	return r.URL.Query().Get("async") == "true"
}
