package handlers

import (
	"bufio"
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/alicebob/miniredis/v2"
	"github.com/google/uuid"
	"github.com/redis/go-redis/v9"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/jwebster45206/chronicle/internal/services/events"
)

type sseEvent struct {
	name string
	data map[string]any
}

// readEvent reads the next named event, skipping comments.
func readEvent(t *testing.T, sc *bufio.Scanner) sseEvent {
	t.Helper()
	var ev sseEvent
	for sc.Scan() {
		line := sc.Text()
		switch {
		case strings.HasPrefix(line, "event: "):
			ev.name = strings.TrimPrefix(line, "event: ")
		case strings.HasPrefix(line, "data: "):
			require.NoError(t, json.Unmarshal([]byte(strings.TrimPrefix(line, "data: ")), &ev.data))
		case line == "" && ev.name != "":
			return ev
		}
	}
	t.Fatalf("stream ended: %v", sc.Err())
	return ev
}

func TestEventsHandler_Stream(t *testing.T) {
	mr := miniredis.RunT(t)
	rdb := redis.NewClient(&redis.Options{Addr: mr.Addr()})
	t.Cleanup(func() { _ = rdb.Close() })
	b := events.NewBroadcaster(rdb, testLogger())

	srv := httptest.NewServer(NewEventsHandler(b, testLogger()))
	t.Cleanup(srv.Close)

	sessionID := uuid.New()
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, srv.URL+"/v1/sessions/"+sessionID.String()+"/events", nil)
	require.NoError(t, err)
	resp, err := http.DefaultClient.Do(req)
	require.NoError(t, err)
	defer resp.Body.Close()

	assert.Equal(t, http.StatusOK, resp.StatusCode)
	assert.Equal(t, "text/event-stream", resp.Header.Get("Content-Type"))

	sc := bufio.NewScanner(resp.Body)
	first := readEvent(t, sc)
	assert.Equal(t, "connected", first.name)
	assert.Equal(t, sessionID.String(), first.data["session_id"])

	require.NoError(t, b.PublishTurnCompleted(ctx, sessionID, "req-1", map[string]any{"narrative": "The door creaks."}))
	// Events for other sessions never reach this stream.
	require.NoError(t, b.PublishTurnFailed(ctx, uuid.New(), "req-2", "boom"))
	require.NoError(t, b.PublishTurnFailed(ctx, sessionID, "req-3", "oracle unavailable"))

	done := readEvent(t, sc)
	assert.Equal(t, string(events.EventTypeTurnCompleted), done.name)
	assert.Equal(t, "req-1", done.data["request_id"])
	assert.Equal(t, "completed", done.data["status"])

	failed := readEvent(t, sc)
	assert.Equal(t, string(events.EventTypeTurnFailed), failed.name)
	assert.Equal(t, "req-3", failed.data["request_id"])
}

func TestEventsHandler_BadRequests(t *testing.T) {
	h := NewEventsHandler(nil, testLogger())

	tests := []struct {
		name   string
		method string
		path   string
		want   int
	}{
		{"wrong method", http.MethodPost, "/v1/sessions/" + uuid.NewString() + "/events", http.StatusMethodNotAllowed},
		{"bad path", http.MethodGet, "/v1/events/" + uuid.NewString(), http.StatusBadRequest},
		{"bad id", http.MethodGet, "/v1/sessions/nope/events", http.StatusBadRequest},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			rr := httptest.NewRecorder()
			h.ServeHTTP(rr, httptest.NewRequest(tt.method, tt.path, nil))
			if rr.Code != tt.want {
				t.Errorf("status = %d, want %d", rr.Code, tt.want)
			}
		})
	}
}
