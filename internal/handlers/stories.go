package handlers

import (
	"context"
	"log/slog"
	"net/http"
	"sort"
	"strings"

	"github.com/jwebster45206/chronicle/pkg/story"
)

// StoryCatalog is the read-only story content the API exposes.
type StoryCatalog interface {
	GetStory(ctx context.Context, id string) (*story.Story, error)
	ListStories(ctx context.Context) (map[string]string, error)
}

// StorySummary is one entry of the story listing.
type StorySummary struct {
	ID    string `json:"id"`
	Title string `json:"title"`
}

// StoryHandler serves GET /v1/stories and GET /v1/stories/{id}.
type StoryHandler struct {
	catalog StoryCatalog
	logger  *slog.Logger
}

func NewStoryHandler(catalog StoryCatalog, logger *slog.Logger) *StoryHandler {
	return &StoryHandler{catalog: catalog, logger: logger}
}

func (h *StoryHandler) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet {
		methodNotAllowed(w, h.logger, http.MethodGet)
		return
	}

	id := strings.Trim(strings.TrimPrefix(r.URL.Path, "/v1/stories"), "/")
	if id == "" {
		h.handleList(w, r)
		return
	}
	if strings.Contains(id, "/") {
		writeError(w, h.logger, http.StatusNotFound, "Not found")
		return
	}

	s, err := h.catalog.GetStory(r.Context(), id)
	if err != nil {
		h.logger.Error("Failed to load story", "error", err, "story_id", id)
		writeError(w, h.logger, http.StatusInternalServerError, "Internal server error")
		return
	}
	if s == nil {
		writeError(w, h.logger, http.StatusNotFound, "Story not found")
		return
	}
	writeJSON(w, h.logger, http.StatusOK, s)
}

func (h *StoryHandler) handleList(w http.ResponseWriter, r *http.Request) {
	byTitle, err := h.catalog.ListStories(r.Context())
	if err != nil {
		h.logger.Error("Failed to list stories", "error", err)
		writeError(w, h.logger, http.StatusInternalServerError, "Internal server error")
		return
	}
	list := make([]StorySummary, 0, len(byTitle))
	for title, id := range byTitle {
		list = append(list, StorySummary{ID: id, Title: title})
	}
	sort.Slice(list, func(i, j int) bool { return list[i].Title < list[j].Title })
	writeJSON(w, h.logger, http.StatusOK, map[string][]StorySummary{"stories": list})
}
