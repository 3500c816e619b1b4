package engine

import (
	"fmt"
	"strings"

	"github.com/jwebster45206/chronicle/pkg/mechanics"
	"github.com/jwebster45206/chronicle/pkg/state"
	"github.com/jwebster45206/chronicle/pkg/story"
	"github.com/jwebster45206/chronicle/pkg/triggers"
)

// Human-readable event lines returned alongside the narrative.

func initiativeEvent(cs *state.CombatState) string {
	parts := make([]string, 0, len(cs.Combatants))
	for _, c := range cs.Combatants {
		parts = append(parts, fmt.Sprintf("%s (%d)", c.Name, c.Initiative))
	}
	return "Initiative: " + strings.Join(parts, ", ")
}

func turnOrderEvent(cs *state.CombatState) string {
	cur := cs.Current()
	if cur.ID == state.PlayerCombatantID {
		return fmt.Sprintf("Round %d: your turn.", cs.Round)
	}
	return fmt.Sprintf("Round %d: %s's turn.", cs.Round, cur.Name)
}

func attackEvents(atk *mechanics.AttackResult) []string {
	out := []string{rollEvent(atk.Roll)}
	if len(atk.Loot) > 0 {
		out = append(out, "Loot: "+strings.Join(atk.Loot, ", "))
	}
	return out
}

func rollEvent(r state.DiceRollRecord) string {
	label := r.RollType
	if label == "" {
		label = "Roll"
	}
	result := "failure"
	if r.Success {
		result = "success"
	}
	if r.Target != "" {
		return fmt.Sprintf("%s on %s: %s rolled %d%+d = %d vs %d (%s)",
			label, r.Target, r.Dice, r.Result, r.Bonus, r.Total(), r.Difficulty, result)
	}
	return fmt.Sprintf("%s: %s rolled %d%+d = %d vs %d (%s)",
		label, r.Dice, r.Result, r.Bonus, r.Total(), r.Difficulty, result)
}

func triggerEvents(s *story.Story, res *triggers.Result) []string {
	var out []string
	if res.MovedTo != "" {
		name := res.MovedTo
		if loc := s.Location(res.MovedTo); loc != nil && loc.Name != "" {
			name = loc.Name
		}
		out = append(out, "Moved to "+name+".")
	}
	for _, item := range res.ItemsGained {
		out = append(out, "Gained "+item+".")
	}
	for _, q := range res.QuestsAccepted {
		out = append(out, "Quest accepted: "+q)
	}
	for _, q := range res.QuestsCompleted {
		out = append(out, "Quest completed: "+q)
	}
	if len(res.Rewards) > 0 {
		out = append(out, "Rewards: "+strings.Join(res.Rewards, ", "))
	}
	for _, id := range res.EventsFired {
		for _, ev := range s.Events {
			if ev.ID == id && ev.Summary != "" {
				out = append(out, ev.Summary)
			}
		}
	}
	return out
}
