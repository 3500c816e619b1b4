package handlers

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"io"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"sync"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/jwebster45206/chronicle/internal/engine"
	"github.com/jwebster45206/chronicle/internal/services"
	"github.com/jwebster45206/chronicle/pkg/actor"
	"github.com/jwebster45206/chronicle/pkg/chat"
	"github.com/jwebster45206/chronicle/pkg/dice"
	"github.com/jwebster45206/chronicle/pkg/queue"
	"github.com/jwebster45206/chronicle/pkg/state"
	"github.com/jwebster45206/chronicle/pkg/storage"
	"github.com/jwebster45206/chronicle/pkg/story"
)

func testLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}

func testStore(t *testing.T) *storage.MockStorage {
	t.Helper()
	store := storage.NewMockStorage()
	store.AddStory(&story.Story{
		ID:            "harbor",
		Title:         "Harbor Lights",
		Opening:       "Fog rolls in over the docks.",
		StartLocation: "docks",
		Locations:     []story.Location{{ID: "docks", Name: "Docks"}},
	})
	require.NoError(t, store.SaveCharacter(context.Background(), &actor.Character{
		ID: "vex", Name: "Vex", Class: "Rogue", Level: 1,
		Health: 12, MaxHealth: 12,
		Stats: actor.Stats5e{Strength: 10, Dexterity: 16, Constitution: 12, Intelligence: 12, Wisdom: 10, Charisma: 14},
	}))
	return store
}

type fakeQueue struct {
	mu       sync.Mutex
	requests []*queue.Request
	err      error
}

func (q *fakeQueue) EnqueueRequest(ctx context.Context, req *queue.Request) error {
	q.mu.Lock()
	defer q.mu.Unlock()
	if q.err != nil {
		return q.err
	}
	q.requests = append(q.requests, req)
	return nil
}

type fakeNotifier struct {
	queued []string
}

func (n *fakeNotifier) PublishTurnQueued(ctx context.Context, sessionID uuid.UUID, requestID, requestType string) error {
	n.queued = append(n.queued, requestID)
	return nil
}

func newTestHandler(t *testing.T) (*SessionHandler, *services.MockOracle) {
	t.Helper()
	oracle := services.NewMockOracle()
	eng := engine.New(testStore(t), oracle, testLogger(),
		engine.WithRoller(dice.New(dice.NewScript(10))),
		engine.WithOracleTimeout(time.Second))
	t.Cleanup(eng.Wait)
	return NewSessionHandler(eng, testLogger()), oracle
}

func do(h http.Handler, method, path, body, player string) *httptest.ResponseRecorder {
	var r io.Reader
	if body != "" {
		r = bytes.NewBufferString(body)
	}
	req := httptest.NewRequest(method, path, r)
	if player != "" {
		req.Header.Set(PlayerIDHeader, player)
	}
	rr := httptest.NewRecorder()
	h.ServeHTTP(rr, req)
	return rr
}

func createSession(t *testing.T, h http.Handler, player string) *state.Session {
	t.Helper()
	rr := do(h, http.MethodPost, "/v1/sessions", `{"character_id":"vex","story_id":"harbor"}`, player)
	require.Equal(t, http.StatusCreated, rr.Code, rr.Body.String())
	var sess state.Session
	require.NoError(t, json.Unmarshal(rr.Body.Bytes(), &sess))
	return &sess
}

func TestSessionHandler_Lifecycle(t *testing.T) {
	h, _ := newTestHandler(t)
	sess := createSession(t, h, "p1")
	path := "/v1/sessions/" + sess.ID.String()

	assert.Equal(t, "harbor", sess.StoryID)

	rr := do(h, http.MethodGet, path, "", "p1")
	assert.Equal(t, http.StatusOK, rr.Code)

	rr = do(h, http.MethodPost, path+"/turns", `{"action":"I look at the ships."}`, "p1")
	require.Equal(t, http.StatusOK, rr.Code, rr.Body.String())
	var resp chat.TurnResponse
	require.NoError(t, json.Unmarshal(rr.Body.Bytes(), &resp))
	assert.Equal(t, chat.OutcomeNarrative, resp.Kind)
	assert.Equal(t, "The world holds its breath.", resp.Narrative)
	assert.Equal(t, []string{"Look around", "Wait"}, resp.Options)

	rr = do(h, http.MethodDelete, path, "", "p1")
	assert.Equal(t, http.StatusNoContent, rr.Code)

	rr = do(h, http.MethodGet, path, "", "p1")
	assert.Equal(t, http.StatusNotFound, rr.Code)
}

func TestSessionHandler_Errors(t *testing.T) {
	h, oracle := newTestHandler(t)
	sess := createSession(t, h, "p1")
	path := "/v1/sessions/" + sess.ID.String()

	tests := []struct {
		name   string
		method string
		path   string
		body   string
		player string
		setup  func()
		want   int
	}{
		{name: "unknown story", method: http.MethodPost, path: "/v1/sessions",
			body: `{"character_id":"vex","story_id":"nowhere"}`, want: http.StatusNotFound},
		{name: "missing character", method: http.MethodPost, path: "/v1/sessions",
			body: `{"story_id":"harbor"}`, want: http.StatusBadRequest},
		{name: "malformed body", method: http.MethodPost, path: "/v1/sessions",
			body: `{"story_id":`, want: http.StatusBadRequest},
		{name: "unknown field", method: http.MethodPost, path: "/v1/sessions",
			body: `{"story_id":"harbor","character_id":"vex","x":1}`, want: http.StatusBadRequest},
		{name: "list not allowed", method: http.MethodGet, path: "/v1/sessions", want: http.StatusMethodNotAllowed},
		{name: "bad id", method: http.MethodGet, path: "/v1/sessions/not-a-uuid", want: http.StatusBadRequest},
		{name: "unknown session", method: http.MethodGet, path: "/v1/sessions/" + uuid.NewString(), want: http.StatusNotFound},
		{name: "other player", method: http.MethodGet, path: path, player: "p2", want: http.StatusNotFound},
		{name: "empty action", method: http.MethodPost, path: path + "/turns", body: `{"action":"  "}`,
			player: "p1", want: http.StatusBadRequest},
		{name: "mismatched session id", method: http.MethodPost, path: path + "/turns",
			body: `{"session_id":"` + uuid.NewString() + `","action":"wave"}`, player: "p1", want: http.StatusBadRequest},
		{name: "npc turn outside combat", method: http.MethodPost, path: path + "/npc-turn",
			player: "p1", want: http.StatusConflict},
		{name: "oracle failure", method: http.MethodPost, path: path + "/turns", body: `{"action":"wave"}`,
			player: "p1", want: http.StatusBadGateway, setup: func() {
				oracle.GenerateFunc = func(ctx context.Context, history []chat.ChatMessage, prompt string) (string, error) {
					return "", errors.New("upstream down")
				}
			}},
		{name: "unknown sub-route", method: http.MethodGet, path: path + "/history", player: "p1", want: http.StatusNotFound},
		{name: "events not mounted", method: http.MethodGet, path: path + "/events", player: "p1", want: http.StatusNotFound},
		{name: "turns wrong method", method: http.MethodGet, path: path + "/turns", player: "p1", want: http.StatusMethodNotAllowed},
		{name: "async without queue", method: http.MethodPost, path: path + "/turns?async=true",
			body: `{"action":"wave"}`, player: "p1", want: http.StatusServiceUnavailable},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if tt.setup != nil {
				tt.setup()
			}
			rr := do(h, tt.method, tt.path, tt.body, tt.player)
			if rr.Code != tt.want {
				t.Errorf("status = %d, want %d (body %s)", rr.Code, tt.want, rr.Body.String())
			}
			var er ErrorResponse
			if err := json.Unmarshal(rr.Body.Bytes(), &er); err != nil || er.Error == "" {
				t.Errorf("expected an error body, got %q", rr.Body.String())
			}
		})
	}
}

func TestSessionHandler_AsyncTurns(t *testing.T) {
	h, oracle := newTestHandler(t)
	q := &fakeQueue{}
	n := &fakeNotifier{}
	h.WithQueue(q, n)
	sess := createSession(t, h, "p1")
	path := "/v1/sessions/" + sess.ID.String()

	rr := do(h, http.MethodPost, path+"/turns?async=true", `{"action":"I search the crates.","target":"crates"}`, "p1")
	require.Equal(t, http.StatusAccepted, rr.Code, rr.Body.String())

	var ack QueuedResponse
	require.NoError(t, json.Unmarshal(rr.Body.Bytes(), &ack))
	assert.Equal(t, "queued", ack.Status)
	assert.Equal(t, sess.ID, ack.SessionID)
	require.Len(t, q.requests, 1)
	got := q.requests[0]
	assert.Equal(t, ack.RequestID, got.RequestID)
	assert.Equal(t, queue.RequestTypeTurn, got.Type)
	assert.Equal(t, "I search the crates.", got.Action)
	assert.Equal(t, "crates", got.Target)
	assert.Equal(t, "p1", got.OwnerID)
	assert.Equal(t, []string{ack.RequestID}, n.queued)
	assert.Equal(t, 0, oracle.GenerateCallCount(), "async turns are not resolved inline")

	rr = do(h, http.MethodPost, path+"/npc-turn?async=true", "", "p1")
	require.Equal(t, http.StatusAccepted, rr.Code)
	require.Len(t, q.requests, 2)
	assert.Equal(t, queue.RequestTypeNPCTurn, q.requests[1].Type)

	rr = do(h, http.MethodPost, path+"/turns?async=true", `{"action":""}`, "p1")
	assert.Equal(t, http.StatusBadRequest, rr.Code)

	q.err = errors.New("redis down")
	rr = do(h, http.MethodPost, path+"/turns?async=true", `{"action":"wave"}`, "p1")
	assert.Equal(t, http.StatusServiceUnavailable, rr.Code)
}

func TestSessionHandler_EventsRoute(t *testing.T) {
	h, _ := newTestHandler(t)
	var hit bool
	h.WithEvents(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		hit = true
		w.WriteHeader(http.StatusOK)
	}))
	rr := do(h, http.MethodGet, "/v1/sessions/"+uuid.NewString()+"/events", "", "")
	assert.Equal(t, http.StatusOK, rr.Code)
	assert.True(t, hit)
}

func TestErrorStatus(t *testing.T) {
	tests := []struct {
		err  error
		want int
	}{
		{engine.ErrValidation, http.StatusBadRequest},
		{engine.ErrNotFound, http.StatusNotFound},
		{engine.ErrGameOver, http.StatusConflict},
		{engine.ErrVersionConflict, http.StatusConflict},
		{engine.ErrOracleFailure, http.StatusBadGateway},
		{engine.ErrPersistence, http.StatusInternalServerError},
		{errors.New("boom"), http.StatusInternalServerError},
	}
	for _, tt := range tests {
		if got := errorStatus(tt.err); got != tt.want {
			t.Errorf("errorStatus(%v) = %d, want %d", tt.err, got, tt.want)
		}
	}
}
