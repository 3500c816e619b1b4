package triggers

import (
	"io"
	"log/slog"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/jwebster45206/chronicle/pkg/actor"
	"github.com/jwebster45206/chronicle/pkg/dice"
	"github.com/jwebster45206/chronicle/pkg/intent"
	"github.com/jwebster45206/chronicle/pkg/inventory"
	"github.com/jwebster45206/chronicle/pkg/parser"
	"github.com/jwebster45206/chronicle/pkg/state"
	"github.com/jwebster45206/chronicle/pkg/story"
)

func testStory() *story.Story {
	return &story.Story{
		ID:            "crypt",
		Title:         "The Sunken Crypt",
		StartLocation: "gate",
		Locations: []story.Location{
			{ID: "gate", Name: "Crypt Gate", NPCs: []string{"warden"}},
			{ID: "hall", Name: "Bone Hall"},
		},
		NPCs: []actor.NPC{
			{ID: "warden", Name: "Old Warden", MaxHealth: 8},
			{ID: "ghoul", Name: "Ghoul", MaxHealth: 12},
		},
		Quests: []story.Quest{
			{
				ID: "lost_relic", Title: "The Lost Relic", Type: story.QuestMain,
				Objectives: []story.Objective{{ID: "find_relic"}, {ID: "return_relic"}},
				Rewards:    story.Reward{Experience: 50, Gold: 20, Items: []string{"Silver Ring"}},
			},
		},
		Events: []story.Event{
			{
				ID: "ghoul_rises", LocationID: "hall", Trigger: story.TriggerOnLocationEntry,
				Summary: "A ghoul claws its way out of a burial niche.", AddNPCs: []string{"ghoul"},
				DescriptionSuffix: "A burial niche has been torn open.",
			},
		},
	}
}

func newEngine(s *story.Story) *Engine {
	logger := slog.New(slog.NewTextHandler(io.Discard, nil))
	return NewEngine(s, intent.NewRegexClassifier(), inventory.NewManager(s, dice.NewSeeded(1)), logger)
}

func TestProcess_MoveFiresEventOnce(t *testing.T) {
	s := testStory()
	gs := state.NewGameState(s)
	gs.NPCStates = map[string]state.NPCState{"warden": {CurrentHealth: 8, MaxHealth: 8}}
	e := newEngine(s)
	c := &actor.Character{}

	res := e.Process(gs, c, &parser.Response{Actions: []string{"Player moved to Bone Hall"}})

	assert.Equal(t, "hall", gs.CurrentLocationID)
	assert.Equal(t, "hall", res.MovedTo)
	assert.Equal(t, []string{"ghoul_rises"}, res.EventsFired)
	assert.Equal(t, []string{"ghoul_rises"}, gs.EventHistory)
	assert.Equal(t, []string{"ghoul"}, gs.LocationNPCOverrides["hall"])
	assert.Equal(t, "A burial niche has been torn open.", gs.LocationStates["hall"])
	assert.Equal(t, []string{"A ghoul claws its way out of a burial niche."}, gs.TriggeredEventDetails)
	assert.True(t, gs.IsNPCAlive("ghoul"), "event NPC gets tracked health")

	gs.ClearTransient()
	res = e.Process(gs, c, &parser.Response{Description: "You look around."})
	assert.Empty(t, res.EventsFired)
	assert.Len(t, gs.EventHistory, 1)
	assert.Len(t, gs.LocationNPCOverrides["hall"], 1)
	assert.Empty(t, gs.TriggeredEventDetails)
}

func TestProcess_UnknownLocationIgnored(t *testing.T) {
	s := testStory()
	gs := state.NewGameState(s)
	res := newEngine(s).Process(gs, &actor.Character{}, &parser.Response{Actions: []string{"Player moved to the Moon"}})
	assert.Equal(t, "gate", gs.CurrentLocationID)
	assert.Empty(t, res.MovedTo)
}

func TestProcess_DescriptionFallback(t *testing.T) {
	s := testStory()
	gs := state.NewGameState(s)
	c := &actor.Character{}

	res := newEngine(s).Process(gs, c, &parser.Response{
		Description: "The gate creaks. You found a Rusty Key. Quest accepted: The Lost Relic",
	})

	assert.Equal(t, []string{"Rusty Key"}, res.ItemsGained)
	assert.True(t, c.HasItem("rusty key"))
	assert.Equal(t, []string{"The Lost Relic"}, res.QuestsAccepted)
}

func TestProcess_ActionsSuppressDescriptionFallback(t *testing.T) {
	s := testStory()
	gs := state.NewGameState(s)
	c := &actor.Character{}

	newEngine(s).Process(gs, c, &parser.Response{
		Description: "You found a Rusty Key.",
		Actions:     []string{"The wind howls"},
	})
	assert.Empty(t, c.Inventory)
}

func TestProcess_QuestAcceptance(t *testing.T) {
	tests := []struct {
		name      string
		action    string
		wantTitle string
		wantType  string
		wantID    string
	}{
		{"exact title", "Quest accepted: The Lost Relic", "The Lost Relic", story.QuestMain, "lost_relic"},
		{"substring", "Quest accepted: lost relic", "The Lost Relic", story.QuestMain, "lost_relic"},
		{"synthesized", "New quest: Clear the Rats", "Clear the Rats", story.QuestSide, "clear_the_rats"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			s := testStory()
			gs := state.NewGameState(s)
			res := newEngine(s).Process(gs, &actor.Character{}, &parser.Response{Actions: []string{tt.action}})

			require.Len(t, gs.ActiveQuests, 1)
			q := gs.ActiveQuests[0]
			assert.Equal(t, tt.wantTitle, q.Title)
			assert.Equal(t, tt.wantType, q.Type)
			assert.Equal(t, tt.wantID, q.ID)
			assert.Equal(t, []string{tt.wantTitle}, res.QuestsAccepted)
		})
	}
}

func TestProcess_DuplicateQuestIsNoop(t *testing.T) {
	s := testStory()
	gs := state.NewGameState(s)
	e := newEngine(s)

	e.Process(gs, &actor.Character{}, &parser.Response{Actions: []string{"Quest accepted: The Lost Relic"}})
	res := e.Process(gs, &actor.Character{}, &parser.Response{Actions: []string{"Quest accepted: The Lost Relic", "Quest accepted: lost relic"}})

	assert.Len(t, gs.ActiveQuests, 1)
	assert.Empty(t, res.QuestsAccepted)
}

func TestProcess_ObjectiveCompletionGrantsRewardsOnce(t *testing.T) {
	s := testStory()
	gs := state.NewGameState(s)
	e := newEngine(s)
	c := &actor.Character{Level: 1}

	e.Process(gs, c, &parser.Response{Actions: []string{"Quest accepted: The Lost Relic"}})

	res := e.Process(gs, c, &parser.Response{Actions: []string{"Objective completed: find_relic for The Lost Relic"}})
	assert.Equal(t, []string{"find_relic"}, res.ObjectivesCompleted)
	assert.Empty(t, res.QuestsCompleted)
	assert.Len(t, gs.ActiveQuests, 1)

	res = e.Process(gs, c, &parser.Response{Actions: []string{
		"Objective completed: return_relic for The Lost Relic",
		"Objective completed: return_relic for The Lost Relic",
	}})
	assert.Equal(t, []string{"The Lost Relic"}, res.QuestsCompleted)
	assert.Empty(t, gs.ActiveQuests)
	assert.Len(t, gs.CompletedQuests, 1)
	assert.Equal(t, 50, c.Experience)
	assert.Equal(t, 20, c.Gold)
	assert.True(t, c.HasItem("Silver Ring"))
}

func TestProcess_ObjectiveForInactiveQuestIgnored(t *testing.T) {
	s := testStory()
	gs := state.NewGameState(s)
	res := newEngine(s).Process(gs, &actor.Character{}, &parser.Response{Actions: []string{"Objective completed: find_relic for The Lost Relic"}})
	assert.Empty(t, res.ObjectivesCompleted)
	assert.Empty(t, gs.CompletedQuests)
}

func TestProcess_NPCAttack(t *testing.T) {
	s := testStory()
	gs := state.NewGameState(s)
	e := newEngine(s)

	res := e.Process(gs, &actor.Character{}, &parser.Response{Actions: []string{
		"The Old Warden attacks the player",
		"Old Warden strikes you",
		"The Ghoul attacks you",
	}})
	// ghoul is alive but not yet tracked in a location; exact lookups still resolve it
	assert.Equal(t, []string{"warden", "ghoul"}, res.CounterAttackers)

	gs.DamageNPC("warden", 100)
	res = e.Process(gs, &actor.Character{}, &parser.Response{Actions: []string{"The Old Warden attacks the player"}})
	assert.Empty(t, res.CounterAttackers, "defeated NPCs never counter-attack")
}
