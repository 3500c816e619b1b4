package handlers

import (
	"encoding/json"
	"net/http"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/jwebster45206/chronicle/pkg/story"
)

func TestStoryHandler(t *testing.T) {
	store := testStore(t)
	store.AddStory(&story.Story{ID: "abbey", Title: "Abbey of Ash", StartLocation: "nave"})
	h := NewStoryHandler(store, testLogger())

	rr := do(h, http.MethodGet, "/v1/stories", "", "")
	require.Equal(t, http.StatusOK, rr.Code)
	var list map[string][]StorySummary
	require.NoError(t, json.Unmarshal(rr.Body.Bytes(), &list))
	assert.Equal(t, []StorySummary{
		{ID: "abbey", Title: "Abbey of Ash"},
		{ID: "harbor", Title: "Harbor Lights"},
	}, list["stories"])

	rr = do(h, http.MethodGet, "/v1/stories/harbor", "", "")
	require.Equal(t, http.StatusOK, rr.Code)
	var s story.Story
	require.NoError(t, json.Unmarshal(rr.Body.Bytes(), &s))
	assert.Equal(t, "docks", s.StartLocation)

	assert.Equal(t, http.StatusNotFound, do(h, http.MethodGet, "/v1/stories/missing", "", "").Code)
	assert.Equal(t, http.StatusNotFound, do(h, http.MethodGet, "/v1/stories/harbor/npcs", "", "").Code)
	assert.Equal(t, http.StatusMethodNotAllowed, do(h, http.MethodPost, "/v1/stories", "{}", "").Code)
}
