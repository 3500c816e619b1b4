package middleware

import (
	"net/http"
	"net/http/httptest"
	"testing"
)

func TestLogger_RequestID(t *testing.T) {
	var seen string
	h := Logger(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		seen = RequestID(r.Context())
		w.WriteHeader(http.StatusTeapot)
	}))

	t.Run("generated", func(t *testing.T) {
		rr := httptest.NewRecorder()
		h.ServeHTTP(rr, httptest.NewRequest(http.MethodGet, "/health", nil))

		if rr.Code != http.StatusTeapot {
			t.Errorf("status = %d, want %d", rr.Code, http.StatusTeapot)
		}
		got := rr.Header().Get(RequestIDHeader)
		if got == "" {
			t.Fatal("expected a generated request id")
		}
		if seen != got {
			t.Errorf("context request id = %q, header = %q", seen, got)
		}
	})

	t.Run("propagated", func(t *testing.T) {
		req := httptest.NewRequest(http.MethodGet, "/health", nil)
		req.Header.Set(RequestIDHeader, "abc-123")
		rr := httptest.NewRecorder()
		h.ServeHTTP(rr, req)

		if got := rr.Header().Get(RequestIDHeader); got != "abc-123" {
			t.Errorf("header = %q, want abc-123", got)
		}
		if seen != "abc-123" {
			t.Errorf("context request id = %q, want abc-123", seen)
		}
	})
}

func TestLogger_Flush(t *testing.T) {
	h := Logger(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		f, ok := w.(http.Flusher)
		if !ok {
			t.Fatal("wrapped writer lost http.Flusher")
		}
		f.Flush()
	}))
	rr := httptest.NewRecorder()
	h.ServeHTTP(rr, httptest.NewRequest(http.MethodGet, "/v1/sessions/x/events", nil))
	if !rr.Flushed {
		t.Error("expected the recorder to be flushed")
	}
}
