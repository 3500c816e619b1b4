package story

import (
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/jwebster45206/chronicle/pkg/actor"
)

// TriggerOnLocationEntry fires an event the first time the player is in its location.
const TriggerOnLocationEntry = "on_location_entry"

// Quest types.
const (
	QuestMain = "main"
	QuestSide = "side"
)

// Story is the static content for a playthrough. It is read-only at runtime.
type Story struct {
	ID             string      `json:"id"`
	Title          string      `json:"title"`
	Description    string      `json:"description,omitempty"`
	Opening        string      `json:"opening,omitempty"`        // Narration seeded into history at session start
	StartLocation  string      `json:"start_location"`           // Location ID
	StartingQuests []string    `json:"starting_quests,omitempty"` // Quest IDs active at session start
	Locations      []Location  `json:"locations"`
	NPCs           []actor.NPC `json:"npcs,omitempty"`
	Quests         []Quest     `json:"quests,omitempty"`
	Events         []Event     `json:"events,omitempty"`
	Items          []Item      `json:"items,omitempty"`
	Factions       []Faction   `json:"factions,omitempty"`
}

// Location is a place in the story world.
type Location struct {
	ID          string            `json:"id"`
	Name        string            `json:"name"`
	Description string            `json:"description,omitempty"`
	NPCs        []string          `json:"npcs,omitempty"`  // NPC IDs present from the start
	Exits       map[string]string `json:"exits,omitempty"` // Direction → Location ID
}

// Quest is a quest definition.
type Quest struct {
	ID          string      `json:"id"`
	Title       string      `json:"title"`
	Type        string      `json:"type,omitempty"` // main or side
	Description string      `json:"description,omitempty"`
	Objectives  []Objective `json:"objectives,omitempty"`
	Rewards     Reward      `json:"rewards,omitempty"`
}

// Objective is a single completable quest step.
type Objective struct {
	ID          string `json:"id"`
	Description string `json:"description"`
}

// Reward is granted when every objective of a quest is complete.
type Reward struct {
	Experience int      `json:"experience,omitempty"`
	Gold       int      `json:"gold,omitempty"`
	Items      []string `json:"items,omitempty"`
}

// Event is a location-scoped one-shot story event.
type Event struct {
	ID                string   `json:"id"`
	LocationID        string   `json:"location_id"`
	Trigger           string   `json:"trigger"`
	Summary           string   `json:"summary"`                      // Surfaced to the narrator the turn it fires
	AddNPCs           []string `json:"add_npcs,omitempty"`           // NPC IDs that join the location
	DescriptionSuffix string   `json:"description_suffix,omitempty"` // Appended to the location description
}

// Item is an entry in the story's item catalog.
type Item struct {
	ID          string   `json:"id"`
	Name        string   `json:"name"`
	Description string   `json:"description,omitempty"`
	Type        string   `json:"type,omitempty"` // e.g. "potion", "weapon", "key"
	Consumable  bool     `json:"consumable,omitempty"`
	Heal        string   `json:"heal,omitempty"`    // dice notation restored to health on use
	Restore     string   `json:"restore,omitempty"` // dice notation restored to mana on use
	Classes     []string `json:"classes,omitempty"` // classes allowed to use it; empty means any
	Value       int      `json:"value,omitempty"`
}

// Faction is descriptive context for the narrator.
type Faction struct {
	ID          string `json:"id"`
	Name        string `json:"name"`
	Description string `json:"description,omitempty"`
	Disposition string `json:"disposition,omitempty"`
}

// Load reads a story from a JSON file. The filename (without .json
// extension) becomes the story ID when the JSON omits one.
func Load(path string) (*Story, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to read story file: %w", err)
	}
	var s Story
	if err := json.Unmarshal(data, &s); err != nil {
		return nil, fmt.Errorf("failed to unmarshal story: %w", err)
	}
	if s.ID == "" {
		s.ID = strings.TrimSuffix(filepath.Base(path), ".json")
	}
	return &s, nil
}

// Location finds a location by ID or name, case-insensitively.
func (s *Story) Location(ref string) *Location {
	for i := range s.Locations {
		l := &s.Locations[i]
		if strings.EqualFold(l.ID, ref) || strings.EqualFold(l.Name, ref) {
			return l
		}
	}
	return nil
}

// NPC finds an NPC by ID or name, case-insensitively.
func (s *Story) NPC(ref string) *actor.NPC {
	for i := range s.NPCs {
		n := &s.NPCs[i]
		if strings.EqualFold(n.ID, ref) || strings.EqualFold(n.Name, ref) {
			return n
		}
	}
	return nil
}

// Quest finds a quest by ID or exact title.
func (s *Story) Quest(ref string) *Quest {
	for i := range s.Quests {
		q := &s.Quests[i]
		if q.ID == ref || q.Title == ref {
			return q
		}
	}
	return nil
}

// MatchQuest resolves a quest by exact title, then by case-insensitive
// substring of the title in either direction.
func (s *Story) MatchQuest(title string) *Quest {
	title = strings.TrimSpace(title)
	if title == "" {
		return nil
	}
	for i := range s.Quests {
		if s.Quests[i].Title == title {
			return &s.Quests[i]
		}
	}
	lt := strings.ToLower(title)
	for i := range s.Quests {
		qt := strings.ToLower(s.Quests[i].Title)
		if qt == "" {
			continue
		}
		if strings.Contains(qt, lt) || strings.Contains(lt, qt) {
			return &s.Quests[i]
		}
	}
	return nil
}

// Item finds a catalog item by ID or name, case-insensitively.
func (s *Story) Item(ref string) *Item {
	for i := range s.Items {
		it := &s.Items[i]
		if strings.EqualFold(it.ID, ref) || strings.EqualFold(it.Name, ref) {
			return it
		}
	}
	return nil
}

// EventsAt returns the events scoped to a location, in definition order.
func (s *Story) EventsAt(locationID string) []Event {
	var out []Event
	for _, e := range s.Events {
		if e.LocationID == locationID {
			out = append(out, e)
		}
	}
	return out
}

// ObjectiveIDs returns the objective IDs a quest requires.
func (q *Quest) ObjectiveIDs() []string {
	ids := make([]string, 0, len(q.Objectives))
	for _, o := range q.Objectives {
		ids = append(ids, o.ID)
	}
	return ids
}

// AllowsClass reports whether the item can be used by the given class.
func (it *Item) AllowsClass(class string) bool {
	if len(it.Classes) == 0 {
		return true
	}
	for _, c := range it.Classes {
		if strings.EqualFold(c, class) {
			return true
		}
	}
	return false
}

// ResolveTemplates expands NPCs that reference a template into full
// definitions. Unknown template IDs are an error.
func (s *Story) ResolveTemplates(templates map[string]*actor.NPC) error {
	for i, n := range s.NPCs {
		if n.TemplateID == "" {
			continue
		}
		tmpl, ok := templates[n.TemplateID]
		if !ok {
			return fmt.Errorf("npc %s references unknown template %s", n.ID, n.TemplateID)
		}
		s.NPCs[i] = *actor.NewNPC(tmpl, &n)
	}
	return nil
}
