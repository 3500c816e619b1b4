package prompts

import (
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/jwebster45206/chronicle/pkg/actor"
	"github.com/jwebster45206/chronicle/pkg/chat"
	"github.com/jwebster45206/chronicle/pkg/state"
	"github.com/jwebster45206/chronicle/pkg/story"
)

func testStory() *story.Story {
	return &story.Story{
		ID:            "crypt",
		Title:         "The Sunken Crypt",
		Description:   "A flooded tomb beneath the old abbey.",
		StartLocation: "hall",
		Locations: []story.Location{
			{ID: "hall", Name: "Bone Hall", Description: "Skulls line the walls.", NPCs: []string{"ghoul", "rat_king"},
				Exits: map[string]string{"up": "gate"}},
			{ID: "gate", Name: "Crypt Gate"},
		},
		NPCs: []actor.NPC{
			{ID: "ghoul", Name: "Ghoul", MaxHealth: 12, Disposition: "hostile"},
			{ID: "rat_king", MaxHealth: 6},
			{ID: "warden", Name: "Old Warden", MaxHealth: 8},
		},
		Quests: []story.Quest{
			{ID: "lost_relic", Title: "The Lost Relic", Type: story.QuestMain,
				Objectives: []story.Objective{{ID: "find_relic", Description: "Find the relic"}, {ID: "return_relic", Description: "Return it"}}},
		},
		StartingQuests: []string{"lost_relic"},
	}
}

func testCharacter() *actor.Character {
	return &actor.Character{
		ID: "aria", Name: "Aria", Class: "Ranger", Level: 2,
		Health: 9, MaxHealth: 14, Mana: 3, MaxMana: 5, Gold: 12,
		Stats:     actor.Stats5e{Strength: 12, Dexterity: 16, Constitution: 12, Intelligence: 10, Wisdom: 14, Charisma: 8},
		Inventory: []string{"Bow", "Healing Potion"},
	}
}

func TestBuilder_Sections(t *testing.T) {
	s := testStory()
	gs := state.NewGameState(s)
	gs.LocationStates["hall"] = "A burial niche has been torn open."
	gs.DamageNPC("ghoul", 4)
	gs.NPCStates["warden"] = state.NPCState{CurrentHealth: 0, MaxHealth: 8, Defeated: true}
	gs.CompleteObjective("lost_relic", "find_relic", s.Quest("lost_relic").ObjectiveIDs())
	gs.LastDiceRoll = &state.DiceRollRecord{Dice: "1d20", RollType: "attack", Target: "Ghoul", Result: 14, Bonus: 1, Difficulty: 12, Success: true}
	summary := "Aria entered the crypt."
	gs.MemorySummary = &summary

	history := []state.HistoryEntry{
		{Speaker: state.SpeakerNarrator, Text: "one"},
		{Speaker: state.SpeakerPlayer, Text: "two"},
		{Speaker: state.SpeakerNarrator, Text: "three"},
		{Speaker: state.SpeakerPlayer, Text: "four"},
		{Speaker: state.SpeakerNarrator, Text: "five"},
		{Speaker: state.SpeakerPlayer, Text: "six"},
	}

	out, err := New().
		WithGameState(gs).
		WithStory(s).
		WithCharacter(testCharacter()).
		WithHistory(history).
		WithPreviousTurn(state.TurnRecap{
			LastLoot:              []string{"Warden's Key"},
			TriggeredEventDetails: []string{"A ghoul claws its way out."},
			RecentlyDefeated:      []string{"warden"},
		}).
		WithAction("I search the niche").
		Build()
	require.NoError(t, err)

	for _, want := range []string{
		"=== STORY ===\nThe Sunken Crypt\nA flooded tomb beneath the old abbey.",
		"=== LOCATION ===\nBone Hall\nSkulls line the walls. A burial niche has been torn open.\nExits: up: Crypt Gate",
		"- Ghoul (HP 8/12), hostile",
		"- Rat King (HP 6/6)",
		"=== RECENTLY DEFEATED ===\nOld Warden",
		"=== LAST LOOT ===\nWarden's Key",
		"=== RECENT EVENT ===\nA ghoul claws its way out.",
		"Aria, Level 2 Ranger",
		"Health: 9/14  Mana: 3/5  Gold: 12  Armor: 13",
		"- The Lost Relic (main): 1/2 objectives",
		"[x] find_relic",
		"[ ] return_relic",
		"1d20 (attack) against Ghoul: rolled 14 +1 = 15 vs 12, success",
		"=== MEMORY ===\nAria entered the crypt.",
		"=== PLAYER ACTION ===\nI search the niche",
		"<description>",
	} {
		assert.Contains(t, out, want)
	}

	assert.NotContains(t, out, "Narrator: one", "history is limited to the last 5 entries")
	assert.Contains(t, out, "Aria: two")
	assert.Less(t, strings.Index(out, "=== STORY ==="), strings.Index(out, "=== INSTRUCTIONS ==="))
}

func TestBuilder_EmptySections(t *testing.T) {
	s := testStory()
	gs := state.NewGameState(s)
	gs.ActiveQuests = nil

	out, err := New().WithGameState(gs).WithStory(s).WithCharacter(testCharacter()).WithAction("look").Build()
	require.NoError(t, err)

	assert.Contains(t, out, "=== LAST LOOT ===\nNone")
	assert.Contains(t, out, "=== ACTIVE QUESTS ===\nNone")
	assert.Contains(t, out, "=== LAST DICE ROLL ===\nNone")
	assert.NotContains(t, out, "=== MEMORY ===")
}

func TestBuilder_ClosingVariant(t *testing.T) {
	s := testStory()
	gs := state.NewGameState(s)
	gs.EndGame("Your character has died.")

	out, err := New().WithGameState(gs).WithStory(s).WithCharacter(testCharacter()).WithAction("get up").Build()
	require.NoError(t, err)

	assert.Contains(t, out, "=== ENDING ===\nYour character has died.")
	assert.Contains(t, out, ClosingInstructions)
	assert.NotContains(t, out, "=== PLAYER ACTION ===")
	assert.NotContains(t, out, "<mechanics>")
}

func TestBuilder_RequiresInputs(t *testing.T) {
	s := testStory()
	gs := state.NewGameState(s)

	_, err := New().WithStory(s).WithCharacter(testCharacter()).Build()
	assert.Error(t, err)
	_, err = New().WithGameState(gs).WithCharacter(testCharacter()).Build()
	assert.Error(t, err)
	_, err = New().WithGameState(gs).WithStory(s).Build()
	assert.Error(t, err)
}

func TestHistoryMessages(t *testing.T) {
	var history []state.HistoryEntry
	for i := 0; i < 14; i++ {
		speaker := state.SpeakerNarrator
		if i%2 == 1 {
			speaker = state.SpeakerPlayer
		}
		history = append(history, state.HistoryEntry{Speaker: speaker, Text: "entry"})
	}

	msgs := HistoryMessages(history, "Aria")
	require.Len(t, msgs, OracleHistoryLimit)
	assert.Equal(t, chat.ChatRoleAgent, msgs[0].Role)
	assert.Equal(t, chat.ChatRoleUser, msgs[1].Role)
	assert.Equal(t, "Aria: entry", msgs[1].Content)
}

func TestSummaryPrompt(t *testing.T) {
	prev := "Aria met the warden."
	out := SummaryPrompt(&prev, []state.HistoryEntry{
		{Speaker: state.SpeakerPlayer, Text: "I descend."},
		{Speaker: state.SpeakerNarrator, Text: "The stairs are slick."},
	}, "Aria")

	assert.Contains(t, out, "=== PREVIOUS SUMMARY ===\nAria met the warden.")
	assert.Contains(t, out, "Aria: I descend.\nNarrator: The stairs are slick.")
	assert.NotContains(t, SummaryPrompt(nil, nil, "Aria"), "PREVIOUS SUMMARY")
}
