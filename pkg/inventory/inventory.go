package inventory

import (
	"errors"
	"fmt"
	"regexp"
	"strconv"
	"strings"

	"github.com/jwebster45206/chronicle/pkg/actor"
	"github.com/jwebster45206/chronicle/pkg/dice"
	"github.com/jwebster45206/chronicle/pkg/story"
)

var (
	ErrItemNotHeld  = errors.New("item not in inventory")
	ErrItemUnusable = errors.New("item cannot be used")
)

var goldRegex = regexp.MustCompile(`(?i)^\s*(\d+)\s+(?:gold|gold\s+pieces|gp|coins?|gold\s+coins?)\s*$`)

// Manager applies item effects against a story's item catalog.
type Manager struct {
	story  *story.Story
	roller *dice.Roller
}

// NewManager creates an inventory manager.
func NewManager(s *story.Story, r *dice.Roller) *Manager {
	return &Manager{story: s, roller: r}
}

// UseResult describes a resolved item use.
type UseResult struct {
	Item     string `json:"item"`
	Healed   int    `json:"healed,omitempty"`
	Restored int    `json:"restored,omitempty"`
	Consumed bool   `json:"consumed"`
	Message  string `json:"message"`
}

// CanUseItem returns the catalog entry when the character holds the item
// and the item has a usable effect for the character's class.
func (m *Manager) CanUseItem(c *actor.Character, name string) (*story.Item, error) {
	if !c.HasItem(name) {
		return nil, fmt.Errorf("%w: %s", ErrItemNotHeld, name)
	}
	it := m.story.Item(name)
	if it == nil || (it.Heal == "" && it.Restore == "") {
		return nil, fmt.Errorf("%w: %s has no effect", ErrItemUnusable, name)
	}
	if !it.AllowsClass(c.Class) {
		return nil, fmt.Errorf("%w: %s cannot be used by a %s", ErrItemUnusable, it.Name, c.Class)
	}
	return it, nil
}

// UseItem applies an item's effect to the character, clamped to the pools,
// and removes it from the inventory when consumable.
func (m *Manager) UseItem(c *actor.Character, name string) (*UseResult, error) {
	it, err := m.CanUseItem(c, name)
	if err != nil {
		return nil, err
	}

	res := &UseResult{Item: it.Name}
	before := c.Health
	beforeMana := c.Mana
	heal, restore := 0, 0
	if it.Heal != "" {
		heal = m.roller.Roll(it.Heal)
	}
	if it.Restore != "" {
		restore = m.roller.Roll(it.Restore)
	}
	c.ApplyDelta(heal, restore)
	res.Healed = c.Health - before
	res.Restored = c.Mana - beforeMana

	if it.Consumable {
		c.RemoveItem(name)
		res.Consumed = true
	}

	var parts []string
	if it.Heal != "" {
		parts = append(parts, fmt.Sprintf("recover %d health", res.Healed))
	}
	if it.Restore != "" {
		parts = append(parts, fmt.Sprintf("recover %d mana", res.Restored))
	}
	res.Message = fmt.Sprintf("You use the %s and %s.", it.Name, strings.Join(parts, " and "))
	return res, nil
}

// AddItem gives the character an item. "N gold" style names add gold
// instead. Returns the name recorded.
func (m *Manager) AddItem(c *actor.Character, name string) string {
	name = strings.TrimSpace(name)
	if mm := goldRegex.FindStringSubmatch(name); mm != nil {
		n, _ := strconv.Atoi(mm[1])
		c.Gold += n
		return fmt.Sprintf("%d gold", n)
	}
	if it := m.story.Item(name); it != nil {
		name = it.Name
	}
	c.AddItem(name)
	return name
}

// ProcessLoot moves a defeated NPC's loot and gold to the character and
// returns what was gained.
func (m *Manager) ProcessLoot(c *actor.Character, npc *actor.NPC) []string {
	if npc == nil {
		return nil
	}
	var gained []string
	for _, item := range npc.Loot {
		gained = append(gained, m.AddItem(c, item))
	}
	if npc.Gold != "" {
		if g := m.roller.Roll(npc.Gold); g > 0 {
			c.Gold += g
			gained = append(gained, fmt.Sprintf("%d gold", g))
		}
	}
	return gained
}

// GrantReward applies quest rewards and returns a description of each part.
func (m *Manager) GrantReward(c *actor.Character, r story.Reward) []string {
	var out []string
	if r.Experience > 0 {
		c.Experience += r.Experience
		out = append(out, fmt.Sprintf("%d experience", r.Experience))
		for c.Experience >= ExperienceForLevel(c.Level+1) {
			c.Level++
			out = append(out, fmt.Sprintf("reached level %d", c.Level))
		}
	}
	if r.Gold > 0 {
		c.Gold += r.Gold
		out = append(out, fmt.Sprintf("%d gold", r.Gold))
	}
	for _, item := range r.Items {
		out = append(out, m.AddItem(c, item))
	}
	return out
}

// ExperienceForLevel is the total experience needed to reach a level.
func ExperienceForLevel(level int) int {
	if level <= 1 {
		return 0
	}
	return 100 * (level - 1) * level / 2
}
