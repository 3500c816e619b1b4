package prompts

import (
	"fmt"
	"slices"
	"strings"

	"golang.org/x/text/cases"
	"golang.org/x/text/language"

	"github.com/jwebster45206/chronicle/pkg/actor"
	"github.com/jwebster45206/chronicle/pkg/state"
	"github.com/jwebster45206/chronicle/pkg/story"
)

// DefaultHistoryLimit is how many history entries the context includes.
const DefaultHistoryLimit = 5

var titleCaser = cases.Title(language.English)

// Builder assembles the narration context for a turn using a fluent interface.
type Builder struct {
	gs           *state.GameState
	story        *story.Story
	character    *actor.Character
	action       string
	history      []state.HistoryEntry
	historyLimit int
	recap        state.TurnRecap
}

// New creates a new context builder with default settings.
func New() *Builder {
	return &Builder{historyLimit: DefaultHistoryLimit}
}

// WithGameState sets the session's game state.
func (b *Builder) WithGameState(gs *state.GameState) *Builder {
	b.gs = gs
	return b
}

// WithStory sets the static story data.
func (b *Builder) WithStory(s *story.Story) *Builder {
	b.story = s
	return b
}

// WithCharacter sets the player character.
func (b *Builder) WithCharacter(c *actor.Character) *Builder {
	b.character = c
	return b
}

// WithAction sets the player's submitted action.
func (b *Builder) WithAction(action string) *Builder {
	b.action = action
	return b
}

// WithPreviousTurn sets the loot, defeats and events of the last turn.
func (b *Builder) WithPreviousTurn(r state.TurnRecap) *Builder {
	b.recap = r
	return b
}

// WithHistory sets the session transcript.
func (b *Builder) WithHistory(h []state.HistoryEntry) *Builder {
	b.history = h
	return b
}

// WithHistoryLimit sets the history window size.
func (b *Builder) WithHistoryLimit(limit int) *Builder {
	b.historyLimit = limit
	return b
}

// Build renders the context. A finished game gets the closing variant.
func (b *Builder) Build() (string, error) {
	if b.gs == nil {
		return "", fmt.Errorf("gamestate is required")
	}
	if b.story == nil {
		return "", fmt.Errorf("story is required")
	}
	if b.character == nil {
		return "", fmt.Errorf("character is required")
	}

	if b.gs.GameOver {
		return b.buildClosing(), nil
	}

	var sb strings.Builder
	b.section(&sb, "STORY", b.storySection())
	b.section(&sb, "LOCATION", b.locationSection())
	b.section(&sb, "PRESENT NPCS", b.npcSection())
	b.section(&sb, "RECENTLY DEFEATED", b.defeatedSection())
	b.section(&sb, "LAST LOOT", joinLines(b.recap.LastLoot))
	b.section(&sb, "RECENT EVENT", joinLines(b.recap.TriggeredEventDetails))
	b.section(&sb, "CHARACTER", b.characterSection())
	b.section(&sb, "ACTIVE QUESTS", b.questSection())
	b.section(&sb, "LAST DICE ROLL", b.rollSection())
	if b.gs.MemorySummary != nil && *b.gs.MemorySummary != "" {
		b.section(&sb, "MEMORY", *b.gs.MemorySummary)
	}
	b.section(&sb, "RECENT HISTORY", b.historySection())
	b.section(&sb, "PLAYER ACTION", b.action)
	b.section(&sb, "INSTRUCTIONS", TagProtocol)
	return strings.TrimRight(sb.String(), "\n"), nil
}

func (b *Builder) buildClosing() string {
	var sb strings.Builder
	b.section(&sb, "STORY", b.storySection())
	reason := b.gs.GameOverReason
	if reason == "" {
		reason = "The adventure is over."
	}
	b.section(&sb, "ENDING", reason)
	b.section(&sb, "CHARACTER", b.character.Summary())
	b.section(&sb, "RECENT HISTORY", b.historySection())
	b.section(&sb, "INSTRUCTIONS", ClosingInstructions)
	return strings.TrimRight(sb.String(), "\n")
}

func (b *Builder) section(sb *strings.Builder, name, body string) {
	sb.WriteString("=== " + name + " ===\n")
	if strings.TrimSpace(body) == "" {
		body = "None"
	}
	sb.WriteString(body)
	sb.WriteString("\n\n")
}

func (b *Builder) storySection() string {
	if b.story.Description == "" {
		return b.story.Title
	}
	return b.story.Title + "\n" + b.story.Description
}

func (b *Builder) locationSection() string {
	loc := b.story.Location(b.gs.CurrentLocationID)
	if loc == nil {
		return displayName("", b.gs.CurrentLocationID)
	}
	s := displayName(loc.Name, loc.ID)
	desc := loc.Description
	if suffix := b.gs.LocationStates[loc.ID]; suffix != "" {
		desc = strings.TrimSpace(desc + " " + suffix)
	}
	if desc != "" {
		s += "\n" + desc
	}
	if len(loc.Exits) > 0 {
		var exits []string
		for dir, to := range loc.Exits {
			name := to
			if l := b.story.Location(to); l != nil {
				name = displayName(l.Name, l.ID)
			}
			exits = append(exits, fmt.Sprintf("%s: %s", dir, name))
		}
		slices.Sort(exits)
		s += "\nExits: " + strings.Join(exits, ", ")
	}
	return s
}

func (b *Builder) npcSection() string {
	var lines []string
	for _, id := range b.gs.LivingNPCsAt(b.story, b.gs.CurrentLocationID) {
		npc := b.story.NPC(id)
		if npc == nil {
			continue
		}
		st := b.gs.NPCStates[id]
		line := fmt.Sprintf("- %s (HP %d/%d)", displayName(npc.Name, npc.ID), st.CurrentHealth, st.MaxHealth)
		if npc.Disposition != "" {
			line += ", " + npc.Disposition
		}
		if npc.Description != "" {
			line += ": " + npc.Description
		}
		lines = append(lines, line)
	}
	return strings.Join(lines, "\n")
}

func (b *Builder) defeatedSection() string {
	var names []string
	for _, id := range b.recap.RecentlyDefeated {
		if npc := b.story.NPC(id); npc != nil {
			names = append(names, displayName(npc.Name, npc.ID))
		} else {
			names = append(names, displayName("", id))
		}
	}
	return joinLines(names)
}

func (b *Builder) characterSection() string {
	c := b.character
	var sb strings.Builder
	sb.WriteString(c.Summary())
	sb.WriteString(fmt.Sprintf("\nHealth: %d/%d  Mana: %d/%d  Gold: %d  Armor: %d",
		c.Health, c.MaxHealth, c.Mana, c.MaxMana, c.Gold, c.ArmorValue()))
	sb.WriteString(fmt.Sprintf("\nSTR %d  DEX %d  CON %d  INT %d  WIS %d  CHA %d",
		c.Stats.Strength, c.Stats.Dexterity, c.Stats.Constitution,
		c.Stats.Intelligence, c.Stats.Wisdom, c.Stats.Charisma))
	if len(c.Inventory) > 0 {
		sb.WriteString("\nCarrying: " + strings.Join(c.Inventory, ", "))
	}
	if len(c.Abilities) > 0 {
		sb.WriteString("\nAbilities: " + strings.Join(c.Abilities, ", "))
	}
	return sb.String()
}

func (b *Builder) questSection() string {
	var lines []string
	for _, q := range b.gs.ActiveQuests {
		line := fmt.Sprintf("- %s (%s)", q.Title, q.Type)
		if def := b.story.Quest(q.ID); def != nil && len(def.Objectives) > 0 {
			line += fmt.Sprintf(": %d/%d objectives", len(q.CompletedObjectives), len(def.Objectives))
			for _, o := range def.Objectives {
				mark := " "
				if q.HasObjective(o.ID) {
					mark = "x"
				}
				line += fmt.Sprintf("\n  [%s] %s: %s", mark, o.ID, o.Description)
			}
		}
		lines = append(lines, line)
	}
	return strings.Join(lines, "\n")
}

func (b *Builder) rollSection() string {
	r := b.gs.LastDiceRoll
	if r == nil {
		return ""
	}
	outcome := "failure"
	if r.Success {
		outcome = "success"
	}
	s := r.Dice
	if r.RollType != "" {
		s += " (" + r.RollType + ")"
	}
	if r.Target != "" {
		s += " against " + r.Target
	}
	return s + fmt.Sprintf(": rolled %d %+d = %d vs %d, %s", r.Result, r.Bonus, r.Total(), r.Difficulty, outcome)
}

func (b *Builder) historySection() string {
	entries := b.history
	if b.historyLimit > 0 && len(entries) > b.historyLimit {
		entries = entries[len(entries)-b.historyLimit:]
	}
	var lines []string
	for _, h := range entries {
		speaker := "Narrator"
		if h.Speaker == state.SpeakerPlayer {
			speaker = b.character.Name
		}
		lines = append(lines, speaker+": "+h.Text)
	}
	return strings.Join(lines, "\n")
}

func displayName(name, id string) string {
	if name != "" {
		return name
	}
	return titleCaser.String(strings.ReplaceAll(id, "_", " "))
}

func joinLines(items []string) string {
	return strings.Join(items, "\n")
}
