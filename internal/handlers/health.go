package handlers

import (
	"context"
	"log/slog"
	"net/http"
	"time"
)

// ServiceName is reported by the health endpoint.
const ServiceName = "chronicle"

// Pinger is anything whose connectivity can be checked.
type Pinger interface {
	Ping(ctx context.Context) error
}

type HealthResponse struct {
	Status     string            `json:"status"`
	Timestamp  time.Time         `json:"timestamp"`
	Service    string            `json:"service"`
	Components map[string]string `json:"components"`
}

// HealthHandler reports the health of each named component. Any unhealthy
// component degrades the service and yields 503.
type HealthHandler struct {
	components map[string]Pinger
	logger     *slog.Logger
}

func NewHealthHandler(storage Pinger, logger *slog.Logger) *HealthHandler {
	return &HealthHandler{
		components: map[string]Pinger{"storage": storage},
		logger:     logger,
	}
}

// WithComponent adds another dependency to the health report.
func (h *HealthHandler) WithComponent(name string, p Pinger) *HealthHandler {
	h.components[name] = p
	return h
}

func (h *HealthHandler) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	h.logger.Debug("Health check requested",
		"method", r.Method,
		"path", r.URL.Path,
		"remote_addr", r.RemoteAddr)

	ctx, cancel := context.WithTimeout(r.Context(), 2*time.Second)
	defer cancel()

	components := make(map[string]string, len(h.components))
	overall := "healthy"
	for name, p := range h.components {
		if err := p.Ping(ctx); err != nil {
			h.logger.Warn("Health check failed", "component", name, "error", err)
			components[name] = "unhealthy"
			overall = "degraded"
			continue
		}
		components[name] = "healthy"
	}

	status := http.StatusOK
	if overall != "healthy" {
		status = http.StatusServiceUnavailable
	}
	writeJSON(w, h.logger, status, HealthResponse{
		Status:     overall,
		Timestamp:  time.Now(),
		Service:    ServiceName,
		Components: components,
	})
}
