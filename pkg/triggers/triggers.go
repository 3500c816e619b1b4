package triggers

import (
	"log/slog"
	"regexp"
	"strings"

	"github.com/jwebster45206/chronicle/pkg/actor"
	"github.com/jwebster45206/chronicle/pkg/intent"
	"github.com/jwebster45206/chronicle/pkg/inventory"
	"github.com/jwebster45206/chronicle/pkg/parser"
	"github.com/jwebster45206/chronicle/pkg/state"
	"github.com/jwebster45206/chronicle/pkg/story"
)

// Engine applies quest, inventory and location changes declared by the
// narrator, and fires one-shot location events.
type Engine struct {
	story      *story.Story
	classifier intent.Classifier
	inventory  *inventory.Manager
	logger     *slog.Logger
}

// NewEngine creates a trigger engine.
func NewEngine(s *story.Story, c intent.Classifier, inv *inventory.Manager, logger *slog.Logger) *Engine {
	if logger == nil {
		logger = slog.Default()
	}
	return &Engine{story: s, classifier: c, inventory: inv, logger: logger}
}

// Result lists what the triggers changed this turn.
type Result struct {
	MovedTo             string   `json:"moved_to,omitempty"`
	ItemsGained         []string `json:"items_gained,omitempty"`
	QuestsAccepted      []string `json:"quests_accepted,omitempty"`
	ObjectivesCompleted []string `json:"objectives_completed,omitempty"`
	QuestsCompleted     []string `json:"quests_completed,omitempty"`
	Rewards             []string `json:"rewards,omitempty"`
	CounterAttackers    []string `json:"counter_attackers,omitempty"` // NPC IDs
	EventsFired         []string `json:"events_fired,omitempty"`
}

var sentenceSplit = regexp.MustCompile(`[.!?]\s+|\n+`)

// Process scans the narrator's actions, or the description when there are
// none, and then fires location-entry events for the current location.
func (e *Engine) Process(gs *state.GameState, c *actor.Character, resp *parser.Response) *Result {
	res := &Result{}

	lines := resp.Actions
	if len(lines) == 0 && resp.Description != "" {
		lines = sentenceSplit.Split(resp.Description, -1)
	}

	for _, line := range lines {
		line = strings.TrimSpace(line)
		if line == "" {
			continue
		}
		in := e.classifier.Narrative(line)
		switch in.Kind {
		case intent.Move:
			e.move(gs, in.Target, res)
		case intent.GainItem:
			if e.inventory != nil {
				res.ItemsGained = append(res.ItemsGained, e.inventory.AddItem(c, in.Target))
			}
		case intent.AcceptQuest:
			e.acceptQuest(gs, in.Target, res)
		case intent.CompleteObjective:
			e.completeObjective(gs, c, in.Target, in.Objective, res)
		case intent.NPCAttack:
			e.npcAttack(gs, in.Target, res)
		}
	}

	res.EventsFired = e.FireLocationEvents(gs)
	return res
}

// FireLocationEvents fires every on-entry event for the current location
// that has not fired before. Returns the fired event IDs.
func (e *Engine) FireLocationEvents(gs *state.GameState) []string {
	var fired []string
	for _, ev := range e.story.EventsAt(gs.CurrentLocationID) {
		if ev.Trigger != story.TriggerOnLocationEntry || !gs.RecordEvent(ev.ID) {
			continue
		}
		for _, id := range ev.AddNPCs {
			if gs.LocationNPCOverrides == nil {
				gs.LocationNPCOverrides = make(map[string][]string)
			}
			gs.LocationNPCOverrides[ev.LocationID] = append(gs.LocationNPCOverrides[ev.LocationID], id)
			if _, ok := gs.NPCStates[id]; !ok {
				if npc := e.story.NPC(id); npc != nil {
					gs.NPCStates[id] = state.NPCState{CurrentHealth: npc.MaxHealth, MaxHealth: npc.MaxHealth}
				}
			}
		}
		if ev.DescriptionSuffix != "" {
			if gs.LocationStates == nil {
				gs.LocationStates = make(map[string]string)
			}
			if cur := gs.LocationStates[ev.LocationID]; cur != "" {
				gs.LocationStates[ev.LocationID] = cur + " " + ev.DescriptionSuffix
			} else {
				gs.LocationStates[ev.LocationID] = ev.DescriptionSuffix
			}
		}
		if ev.Summary != "" {
			gs.TriggeredEventDetails = append(gs.TriggeredEventDetails, ev.Summary)
		}
		fired = append(fired, ev.ID)
		e.logger.Info("story event fired", "event_id", ev.ID, "location_id", ev.LocationID)
	}
	return fired
}

func (e *Engine) move(gs *state.GameState, target string, res *Result) {
	loc := e.story.Location(target)
	if loc == nil {
		e.logger.Debug("ignoring move to unknown location", "location", target)
		return
	}
	if loc.ID == gs.CurrentLocationID {
		return
	}
	gs.CurrentLocationID = loc.ID
	res.MovedTo = loc.ID
}

func (e *Engine) acceptQuest(gs *state.GameState, title string, res *Result) {
	var qp state.QuestProgress
	if q := e.story.MatchQuest(title); q != nil {
		qp = state.NewQuestProgress(q)
	} else {
		qp = state.QuestProgress{ID: slug(title), Title: title, Type: story.QuestSide}
	}
	if gs.AddQuest(qp) {
		res.QuestsAccepted = append(res.QuestsAccepted, qp.Title)
	}
}

func (e *Engine) completeObjective(gs *state.GameState, c *actor.Character, questRef, objectiveID string, res *Result) {
	ref := questRef
	var required []string
	var def *story.Quest
	if q := e.story.MatchQuest(questRef); q != nil {
		def = q
		ref = q.ID
		required = q.ObjectiveIDs()
	}
	if gs.ActiveQuest(ref) == nil {
		return
	}

	if q := gs.ActiveQuest(ref); q != nil && !q.HasObjective(objectiveID) {
		res.ObjectivesCompleted = append(res.ObjectivesCompleted, objectiveID)
	}
	if !gs.CompleteObjective(ref, objectiveID, required) {
		return
	}

	title := questRef
	if def != nil {
		title = def.Title
		if e.inventory != nil {
			res.Rewards = append(res.Rewards, e.inventory.GrantReward(c, def.Rewards)...)
		}
	}
	res.QuestsCompleted = append(res.QuestsCompleted, title)
	e.logger.Info("quest completed", "quest", title)
}

func (e *Engine) npcAttack(gs *state.GameState, ref string, res *Result) {
	npc := gs.FindLivingNPC(e.story, ref)
	if npc == nil {
		return
	}
	for _, id := range res.CounterAttackers {
		if id == npc.ID {
			return
		}
	}
	res.CounterAttackers = append(res.CounterAttackers, npc.ID)
}

var nonSlug = regexp.MustCompile(`[^a-z0-9]+`)

func slug(s string) string {
	return strings.Trim(nonSlug.ReplaceAllString(strings.ToLower(s), "_"), "_")
}
