package handlers

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"net/http"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/redis/go-redis/v9"

	"github.com/jwebster45206/chronicle/internal/services/events"
)

// KeepaliveInterval is how often an idle event stream receives a comment.
const KeepaliveInterval = 30 * time.Second

// EventSubscriber opens a pub/sub subscription for one session's events.
type EventSubscriber interface {
	Subscribe(ctx context.Context, sessionID uuid.UUID) *redis.PubSub
}

var _ EventSubscriber = (*events.Broadcaster)(nil)

// EventsHandler streams a session's turn events as Server-Sent Events.
// GET /v1/sessions/{id}/events
type EventsHandler struct {
	subscriber EventSubscriber
	keepalive  time.Duration
	logger     *slog.Logger
}

func NewEventsHandler(subscriber EventSubscriber, logger *slog.Logger) *EventsHandler {
	return &EventsHandler{
		subscriber: subscriber,
		keepalive:  KeepaliveInterval,
		logger:     logger,
	}
}

func (h *EventsHandler) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet {
		methodNotAllowed(w, h.logger, http.MethodGet)
		return
	}

	parts := strings.Split(strings.Trim(r.URL.Path, "/"), "/")
	if len(parts) != 4 || parts[0] != "v1" || parts[1] != "sessions" || parts[3] != "events" {
		writeError(w, h.logger, http.StatusBadRequest, "Invalid path. Expected /v1/sessions/{id}/events")
		return
	}
	sessionID, err := uuid.Parse(parts[2])
	if err != nil {
		writeError(w, h.logger, http.StatusBadRequest, "Invalid session ID format")
		return
	}

	flusher, ok := w.(http.Flusher)
	if !ok {
		writeError(w, h.logger, http.StatusInternalServerError, "Streaming not supported")
		return
	}

	pubsub := h.subscriber.Subscribe(r.Context(), sessionID)
	defer func() {
		if err := pubsub.Close(); err != nil {
			h.logger.Error("Failed to close pubsub", "error", err)
		}
	}()
	// Wait for the subscription so no event published after the
	// "connected" message is lost.
	if _, err := pubsub.Receive(r.Context()); err != nil {
		h.logger.Error("Failed to subscribe", "error", err, "session_id", sessionID.String())
		writeError(w, h.logger, http.StatusServiceUnavailable, "Event stream unavailable")
		return
	}

	w.Header().Set("Content-Type", "text/event-stream")
	w.Header().Set("Cache-Control", "no-cache")
	w.Header().Set("Connection", "keep-alive")
	w.Header().Set("Access-Control-Allow-Origin", "*")
	w.WriteHeader(http.StatusOK)
	flusher.Flush()

	h.logger.Info("SSE connection established",
		"session_id", sessionID.String(),
		"remote_addr", r.RemoteAddr)

	msgs := pubsub.Channel()
	ticker := time.NewTicker(h.keepalive)
	defer ticker.Stop()

	h.sendSSE(w, flusher, "connected", map[string]any{
		"session_id": sessionID.String(),
		"message":    "Connected to event stream",
	})

	for {
		select {
		case <-r.Context().Done():
			h.logger.Info("SSE client disconnected", "session_id", sessionID.String())
			return

		case msg, ok := <-msgs:
			if !ok {
				return
			}
			var ev events.Event
			if err := json.Unmarshal([]byte(msg.Payload), &ev); err != nil {
				h.logger.Error("Failed to unmarshal event", "error", err, "payload", msg.Payload)
				continue
			}
			payload := map[string]any{"request_id": ev.RequestID}
			for k, v := range ev.Data {
				payload[k] = v
			}
			h.sendSSE(w, flusher, string(ev.Type), payload)

		case <-ticker.C:
			if _, err := fmt.Fprint(w, ": keepalive\n\n"); err != nil {
				h.logger.Error("Failed to write keepalive", "error", err)
				return
			}
			flusher.Flush()
		}
	}
}

func (h *EventsHandler) sendSSE(w http.ResponseWriter, flusher http.Flusher, eventType string, data any) {
	dataJSON, err := json.Marshal(data)
	if err != nil {
		h.logger.Error("Failed to marshal SSE data", "error", err)
		return
	}
	if _, err := fmt.Fprintf(w, "event: %s\ndata: %s\n\n", eventType, dataJSON); err != nil {
		h.logger.Error("Failed to write event", "error", err)
		return
	}
	flusher.Flush()
}
