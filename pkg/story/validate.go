package story

import (
	"fmt"
	"regexp"

	"github.com/jwebster45206/chronicle/pkg/dice"
)

var idRegex = regexp.MustCompile(`^[a-z0-9]+(_[a-z0-9]+)*$`)

// Validate runs referential checks and returns every problem found.
func (s *Story) Validate() []string {
	var errs []string
	add := func(format string, args ...any) {
		errs = append(errs, fmt.Sprintf(format, args...))
	}

	if s.Title == "" {
		add("title is required")
	}
	if len(s.Locations) == 0 {
		add("at least one location is required")
	}
	if s.StartLocation == "" {
		add("start_location is required")
	}

	locations := map[string]bool{}
	for _, l := range s.Locations {
		if !idRegex.MatchString(l.ID) {
			add("location ID %q must be lowercase snake_case", l.ID)
		}
		if locations[l.ID] {
			add("duplicate location ID %q", l.ID)
		}
		locations[l.ID] = true
	}
	if s.StartLocation != "" && !locations[s.StartLocation] {
		add("start_location %q is not a defined location", s.StartLocation)
	}

	npcs := map[string]bool{}
	for _, n := range s.NPCs {
		if !idRegex.MatchString(n.ID) {
			add("NPC ID %q must be lowercase snake_case", n.ID)
		}
		if npcs[n.ID] {
			add("duplicate NPC ID %q", n.ID)
		}
		npcs[n.ID] = true
		if n.MaxHealth <= 0 && n.TemplateID == "" {
			add("NPC %q must have positive max_health", n.ID)
		}
		if n.DamageDice != "" {
			if _, ok := dice.Parse(n.DamageDice); !ok {
				add("NPC %q has invalid damage_dice %q", n.ID, n.DamageDice)
			}
		}
		if n.Gold != "" {
			if _, ok := dice.Parse(n.Gold); !ok {
				add("NPC %q has invalid gold dice %q", n.ID, n.Gold)
			}
		}
	}

	for _, l := range s.Locations {
		for _, id := range l.NPCs {
			if !npcs[id] {
				add("location %q references unknown NPC %q", l.ID, id)
			}
		}
		for dir, to := range l.Exits {
			if !locations[to] {
				add("location %q exit %q leads to unknown location %q", l.ID, dir, to)
			}
		}
	}

	quests := map[string]bool{}
	titles := map[string]bool{}
	for _, q := range s.Quests {
		if !idRegex.MatchString(q.ID) {
			add("quest ID %q must be lowercase snake_case", q.ID)
		}
		if quests[q.ID] {
			add("duplicate quest ID %q", q.ID)
		}
		if titles[q.Title] {
			add("duplicate quest title %q", q.Title)
		}
		quests[q.ID] = true
		titles[q.Title] = true
		if q.Type != "" && q.Type != QuestMain && q.Type != QuestSide {
			add("quest %q has unknown type %q", q.ID, q.Type)
		}
		seen := map[string]bool{}
		for _, o := range q.Objectives {
			if o.ID == "" {
				add("quest %q has an objective without an ID", q.ID)
			}
			if seen[o.ID] {
				add("quest %q has duplicate objective %q", q.ID, o.ID)
			}
			seen[o.ID] = true
		}
	}
	for _, id := range s.StartingQuests {
		if !quests[id] {
			add("starting quest %q is not defined", id)
		}
	}

	events := map[string]bool{}
	for _, e := range s.Events {
		if events[e.ID] {
			add("duplicate event ID %q", e.ID)
		}
		events[e.ID] = true
		if !locations[e.LocationID] {
			add("event %q references unknown location %q", e.ID, e.LocationID)
		}
		if e.Trigger != TriggerOnLocationEntry {
			add("event %q has unsupported trigger %q", e.ID, e.Trigger)
		}
		for _, id := range e.AddNPCs {
			if !npcs[id] {
				add("event %q adds unknown NPC %q", e.ID, id)
			}
		}
	}

	for _, it := range s.Items {
		for _, notation := range []string{it.Heal, it.Restore} {
			if notation == "" {
				continue
			}
			if _, ok := dice.Parse(notation); !ok {
				add("item %q has invalid dice %q", it.ID, notation)
			}
		}
	}

	return errs
}
