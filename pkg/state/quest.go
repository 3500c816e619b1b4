package state

import (
	"slices"

	"github.com/jwebster45206/chronicle/pkg/story"
)

// QuestProgress tracks an accepted quest.
type QuestProgress struct {
	ID                  string   `json:"id"`
	Title               string   `json:"title"`
	Type                string   `json:"type"`
	CompletedObjectives []string `json:"completed_objectives"`
}

// NewQuestProgress starts tracking a quest definition.
func NewQuestProgress(q *story.Quest) QuestProgress {
	typ := q.Type
	if typ == "" {
		typ = story.QuestSide
	}
	return QuestProgress{ID: q.ID, Title: q.Title, Type: typ, CompletedObjectives: make([]string, 0)}
}

// HasObjective reports whether an objective ID has been completed.
func (q *QuestProgress) HasObjective(id string) bool {
	return slices.Contains(q.CompletedObjectives, id)
}

// AddQuest activates a quest. It is a no-op when a quest with the same
// title or ID is already active or completed.
func (gs *GameState) AddQuest(q QuestProgress) bool {
	for _, a := range gs.ActiveQuests {
		if a.Title == q.Title || (q.ID != "" && a.ID == q.ID) {
			return false
		}
	}
	for _, c := range gs.CompletedQuests {
		if c.Title == q.Title || (q.ID != "" && c.ID == q.ID) {
			return false
		}
	}
	if q.CompletedObjectives == nil {
		q.CompletedObjectives = make([]string, 0)
	}
	gs.ActiveQuests = append(gs.ActiveQuests, q)
	return true
}

// ActiveQuest finds an active quest by ID or title.
func (gs *GameState) ActiveQuest(ref string) *QuestProgress {
	for i := range gs.ActiveQuests {
		q := &gs.ActiveQuests[i]
		if q.ID == ref || q.Title == ref {
			return q
		}
	}
	return nil
}

// CompleteObjective marks an objective done on an active quest. When every
// required objective ID is present the quest moves from active to
// completed and the returned bool is true. Completing an objective twice
// is a no-op.
func (gs *GameState) CompleteObjective(questRef, objectiveID string, required []string) bool {
	idx := -1
	for i := range gs.ActiveQuests {
		if gs.ActiveQuests[i].ID == questRef || gs.ActiveQuests[i].Title == questRef {
			idx = i
			break
		}
	}
	if idx < 0 {
		return false
	}

	q := &gs.ActiveQuests[idx]
	if !q.HasObjective(objectiveID) {
		q.CompletedObjectives = append(q.CompletedObjectives, objectiveID)
	}
	for _, id := range required {
		if !q.HasObjective(id) {
			return false
		}
	}

	done := *q
	gs.ActiveQuests = slices.Delete(gs.ActiveQuests, idx, idx+1)
	gs.CompletedQuests = append(gs.CompletedQuests, done)
	return true
}

// IsQuestCompleted reports whether a quest ID or title is completed.
func (gs *GameState) IsQuestCompleted(ref string) bool {
	for _, c := range gs.CompletedQuests {
		if c.ID == ref || c.Title == ref {
			return true
		}
	}
	return false
}
