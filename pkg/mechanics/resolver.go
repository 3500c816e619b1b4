package mechanics

import (
	"fmt"
	"log/slog"
	"maps"
	"regexp"
	"slices"
	"strconv"
	"strings"

	"github.com/jwebster45206/chronicle/pkg/actor"
	"github.com/jwebster45206/chronicle/pkg/dice"
	"github.com/jwebster45206/chronicle/pkg/inventory"
	"github.com/jwebster45206/chronicle/pkg/state"
	"github.com/jwebster45206/chronicle/pkg/story"
)

// Resolver turns mechanics text and attack declarations into dice rolls
// and state changes.
type Resolver struct {
	story     *story.Story
	roller    *dice.Roller
	inventory *inventory.Manager
	logger    *slog.Logger
}

// NewResolver creates a mechanics resolver for a story.
func NewResolver(s *story.Story, r *dice.Roller, inv *inventory.Manager, logger *slog.Logger) *Resolver {
	if logger == nil {
		logger = slog.Default()
	}
	return &Resolver{story: s, roller: r, inventory: inv, logger: logger}
}

// AttackResult describes one player attack.
type AttackResult struct {
	Roll     state.DiceRollRecord `json:"roll"`
	TargetID string               `json:"target_id,omitempty"`
	Hit      bool                 `json:"hit"`
	Damage   int                  `json:"damage,omitempty"`
	Defeated bool                 `json:"defeated,omitempty"`
	Loot     []string             `json:"loot,omitempty"`
	Message  string               `json:"message"`
}

// CounterAttack describes one NPC attack on the player.
type CounterAttack struct {
	NPCID   string `json:"npc_id"`
	Name    string `json:"name"`
	Roll    int    `json:"roll"`
	Total   int    `json:"total"`
	Armor   int    `json:"armor"`
	Hit     bool   `json:"hit"`
	Damage  int    `json:"damage,omitempty"`
	Message string `json:"message"`
}

// Result is everything the mechanics text produced this turn.
type Result struct {
	Rolls   []state.DiceRollRecord `json:"rolls,omitempty"`
	Attacks []AttackResult         `json:"attacks,omitempty"`
}

var (
	rollLineRegex = regexp.MustCompile(`(?im)^\s*(?:[-*]\s*)?roll\s*:\s*(\d*d\d+(?:\s*[+-]\s*\d+)?)\s*(?:\(([^)]*)\))?\s*(?:(?:against|vs\.?|on)\s+(?:the\s+)?(.+?))?\s*(?:DC\s*(\d+))?\s*\.?\s*$`)

	healthLineRegex = regexp.MustCompile(`(?im)\bhealth\s*:\s*([+-])\s*(\d+)`)
	manaLineRegex   = regexp.MustCompile(`(?im)\bmana\s*:\s*([+-])\s*(\d+)`)
	takeDamageRegex = regexp.MustCompile(`(?i)\byou\s+(?:take|lose|suffer)\s+(\d*d\d+(?:\s*[+-]\s*\d+)?|\d+)\s+(?:points?\s+of\s+)?(?:[a-z]+\s+)?damage\b`)
	healRegex       = regexp.MustCompile(`(?i)\byou\s+(?:heal|regain|recover)\s+(\d*d\d+(?:\s*[+-]\s*\d+)?|\d+)\s+(?:points?\s+of\s+)?(?:health|hp|hit\s+points)\b`)
	manaGainRegex   = regexp.MustCompile(`(?i)\byou\s+(?:regain|gain|recover)\s+(\d+)\s+mana\b`)
	manaCostRegex   = regexp.MustCompile(`(?i)\b(?:costs?|spends?|uses?)\s+(\d+)\s+mana\b`)
)

// ResolveMechanics interprets mechanics text: roll lines first, then the
// health and mana effect patterns. Deltas go to the ledger; NPC damage is
// applied to the game state immediately.
func (r *Resolver) ResolveMechanics(gs *state.GameState, c *actor.Character, mechanics, declaredTarget, attackType string, ledger *Ledger) *Result {
	res := &Result{}
	if strings.TrimSpace(mechanics) == "" {
		return res
	}

	for _, m := range rollLineRegex.FindAllStringSubmatch(mechanics, -1) {
		notation, label, target := m[1], strings.TrimSpace(m[2]), strings.Trim(m[3], " \t,;:")
		explicitDC := -1
		if m[4] != "" {
			explicitDC, _ = strconv.Atoi(m[4])
		}

		if isAttackLabel(label) {
			if target == "" {
				target = declaredTarget
			}
			atk := r.rollAttack(gs, c, notation, label, target, explicitDC, attackType)
			res.Attacks = append(res.Attacks, *atk)
			res.Rolls = append(res.Rolls, atk.Roll)
			continue
		}
		res.Rolls = append(res.Rolls, r.rollCheck(c, notation, label, target, explicitDC))
	}

	if len(res.Rolls) > 0 {
		last := res.Rolls[len(res.Rolls)-1]
		gs.LastDiceRoll = &last
	}

	r.scanEffects(mechanics, res, ledger)
	return res
}

// ResolveAttack resolves a direct attack declared during combat:
// 1d20 + strength bonus + attack-type delta against the target's armor.
func (r *Resolver) ResolveAttack(gs *state.GameState, c *actor.Character, targetRef, attackType string) *AttackResult {
	mod := ModifierFor(attackType)
	npc := r.ResolveTarget(gs, targetRef)

	roll := r.roller.D20()
	bonus := r.playerBonus(c, actor.Strength) + mod.Attack
	difficulty := SentinelDifficulty
	targetName := targetRef
	if npc != nil {
		difficulty = r.npcArmor(npc)
		targetName = npc.Name
	}

	atk := &AttackResult{
		Roll: state.DiceRollRecord{
			Dice:       "1d20",
			RollType:   strings.TrimSpace(ModifierName(attackType) + " attack"),
			Target:     targetName,
			Result:     roll,
			Bonus:      bonus,
			Difficulty: difficulty,
			Success:    roll+bonus >= difficulty,
		},
	}
	gs.LastDiceRoll = &atk.Roll
	r.applyHit(gs, c, npc, atk, mod)
	return atk
}

// ResolveCounterAttacks resolves NPC attacks on the player. Defeated,
// unknown and repeated NPCs are skipped, as are NPCs holding an initiative
// slot in the active encounter since they attack on their own turn. Damage
// goes to the ledger.
func (r *Resolver) ResolveCounterAttacks(gs *state.GameState, c *actor.Character, npcRefs []string, attackType string, ledger *Ledger) []CounterAttack {
	armor := r.playerArmor(c) + ModifierFor(attackType).Defense
	seen := map[string]bool{}
	var out []CounterAttack

	for _, ref := range npcRefs {
		npc := r.story.NPC(ref)
		if npc == nil || seen[npc.ID] || !gs.IsNPCAlive(npc.ID) {
			continue
		}
		if gs.InCombat() && gs.Combat.NPC(npc.ID) != nil {
			continue
		}
		seen[npc.ID] = true
		out = append(out, r.npcAttack(npc, armor, ledger))
	}
	return out
}

// NPCAttack resolves a single NPC's attack on the player.
func (r *Resolver) NPCAttack(gs *state.GameState, c *actor.Character, npcID string, ledger *Ledger) (*CounterAttack, error) {
	npc := r.story.NPC(npcID)
	if npc == nil {
		return nil, fmt.Errorf("unknown npc %s", npcID)
	}
	if !gs.IsNPCAlive(npc.ID) {
		return nil, fmt.Errorf("npc %s is defeated", npcID)
	}
	ca := r.npcAttack(npc, r.playerArmor(c), ledger)
	return &ca, nil
}

// SkillCheck rolls 1d20 plus the attribute bonus for a skill or attribute
// name against a difficulty.
func (r *Resolver) SkillCheck(c *actor.Character, skill string, dc int) state.DiceRollRecord {
	return r.rollCheck(c, "1d20", skill, "", dc)
}

// ResolveTarget finds a living NPC to attack. Returns nil for unknown or
// defeated targets.
func (r *Resolver) ResolveTarget(gs *state.GameState, ref string) *actor.NPC {
	return gs.FindLivingNPC(r.story, ref)
}

func (r *Resolver) rollAttack(gs *state.GameState, c *actor.Character, notation, label, targetRef string, explicitDC int, attackType string) *AttackResult {
	npc := r.ResolveTarget(gs, targetRef)

	difficulty := SentinelDifficulty
	targetName := targetRef
	if npc != nil {
		targetName = npc.Name
		difficulty = r.npcArmor(npc)
		if explicitDC >= 0 {
			difficulty = explicitDC
		}
	}

	raw := r.roller.Roll(notation)
	bonus := 0
	if attr, ok := actor.MatchAttribute(label); ok {
		bonus = r.playerBonus(c, attr)
	}

	atk := &AttackResult{
		Roll: state.DiceRollRecord{
			Dice:       notation,
			RollType:   label,
			Target:     targetName,
			Result:     raw,
			Bonus:      bonus,
			Difficulty: difficulty,
			Success:    raw+bonus >= difficulty,
		},
	}
	r.applyHit(gs, c, npc, atk, ModifierFor(attackType))
	return atk
}

func (r *Resolver) applyHit(gs *state.GameState, c *actor.Character, npc *actor.NPC, atk *AttackResult, mod AttackModifier) {
	if npc == nil {
		atk.Message = fmt.Sprintf("There is no one called %q to attack.", atk.Roll.Target)
		return
	}
	atk.TargetID = npc.ID
	if !atk.Roll.Success {
		atk.Message = fmt.Sprintf("You miss %s (%d vs AC %d).", npc.Name, atk.Roll.Total(), atk.Roll.Difficulty)
		return
	}

	dmg := r.roller.Roll(ClassDamage(c.Class)) + r.playerBonus(c, actor.Strength) + mod.Damage
	if dmg < 1 {
		dmg = 1
	}
	atk.Hit = true
	atk.Damage = dmg
	atk.Defeated = gs.DamageNPC(npc.ID, dmg)
	atk.Message = fmt.Sprintf("You hit %s for %d damage.", npc.Name, dmg)

	if atk.Defeated {
		atk.Message += fmt.Sprintf(" %s is defeated!", npc.Name)
		if r.inventory != nil {
			atk.Loot = r.inventory.ProcessLoot(c, npc)
			gs.LastLoot = append(gs.LastLoot, atk.Loot...)
		}
		r.logger.Debug("npc defeated", "npc_id", npc.ID, "loot", atk.Loot)
	}
}

func (r *Resolver) rollCheck(c *actor.Character, notation, label, target string, explicitDC int) state.DiceRollRecord {
	difficulty := DefaultDifficulty
	if explicitDC >= 0 {
		difficulty = explicitDC
	}
	bonus := 0
	if attr, ok := actor.MatchAttribute(label); ok {
		bonus = r.playerBonus(c, attr)
	} else if attr, ok := skillFromLabel(label); ok {
		bonus = r.playerBonus(c, attr)
	}
	raw := r.roller.Roll(notation)
	return state.DiceRollRecord{
		Dice:       notation,
		RollType:   label,
		Target:     target,
		Result:     raw,
		Bonus:      bonus,
		Difficulty: difficulty,
		Success:    raw+bonus >= difficulty,
	}
}

func (r *Resolver) npcAttack(npc *actor.NPC, armor int, ledger *Ledger) CounterAttack {
	strBonus := npc.AttributeBonus(actor.Strength)
	roll := r.roller.D20()
	total := roll + npc.AttackBonus + strBonus

	ca := CounterAttack{NPCID: npc.ID, Name: npc.Name, Roll: roll, Total: total, Armor: armor}
	if total < armor {
		ca.Message = fmt.Sprintf("%s attacks but misses.", npc.Name)
		return ca
	}

	dmg := r.roller.Roll(npc.Damage()) + strBonus
	if dmg < 1 {
		dmg = 1
	}
	ca.Hit = true
	ca.Damage = dmg
	ca.Message = fmt.Sprintf("%s hits you for %d damage.", npc.Name, dmg)
	ledger.AddHealth(-dmg, ca.Message)
	return ca
}

func (r *Resolver) scanEffects(mechanics string, res *Result, ledger *Ledger) {
	for _, m := range healthLineRegex.FindAllStringSubmatch(mechanics, -1) {
		ledger.AddHealth(signed(m[1], m[2]), "")
	}
	for _, m := range manaLineRegex.FindAllStringSubmatch(mechanics, -1) {
		ledger.AddMana(signed(m[1], m[2]), "")
	}
	for _, m := range takeDamageRegex.FindAllStringSubmatch(mechanics, -1) {
		ledger.AddHealth(-r.amount(m[1]), "")
	}
	for _, m := range healRegex.FindAllStringSubmatch(mechanics, -1) {
		ledger.AddHealth(r.amount(m[1]), "")
	}
	for _, m := range manaGainRegex.FindAllStringSubmatch(mechanics, -1) {
		ledger.AddMana(r.amount(m[1]), "")
	}

	// mana costs only apply when the turn's roll succeeded or nothing was rolled
	paid := len(res.Rolls) == 0 || res.Rolls[len(res.Rolls)-1].Success
	if !paid {
		return
	}
	for _, m := range manaCostRegex.FindAllStringSubmatch(mechanics, -1) {
		ledger.AddMana(-r.amount(m[1]), "")
	}
}

func (r *Resolver) amount(s string) int {
	if n, err := strconv.Atoi(s); err == nil {
		return n
	}
	return r.roller.Roll(s)
}

func (r *Resolver) playerBonus(c *actor.Character, attr string) int {
	a, err := c.Actor()
	if err != nil {
		r.logger.Warn("falling back to character sheet", "character_id", c.ID, "error", err)
		return c.AttributeBonus(attr)
	}
	v, ok := a.Attribute(attr)
	if !ok {
		return 0
	}
	return dice.AttributeBonus(v)
}

func (r *Resolver) playerArmor(c *actor.Character) int {
	a, err := c.Actor()
	if err != nil {
		return c.ArmorValue()
	}
	return a.AC()
}

func (r *Resolver) npcArmor(npc *actor.NPC) int {
	a, err := npc.Actor()
	if err != nil {
		return npc.ArmorValue()
	}
	return a.AC()
}

// ModifierName normalizes an attack type name, defaulting to normal.
func ModifierName(attackType string) string {
	t := strings.ToLower(strings.TrimSpace(attackType))
	if _, ok := attackModifiers[t]; ok {
		return t
	}
	return "normal"
}

func isAttackLabel(label string) bool {
	return strings.Contains(strings.ToLower(label), "attack")
}

func skillFromLabel(label string) (string, bool) {
	l := strings.ToLower(label)
	for _, skill := range slices.Sorted(maps.Keys(skillAttributes)) {
		if strings.Contains(l, skill) {
			return skillAttributes[skill], true
		}
	}
	return "", false
}

func signed(sign, digits string) int {
	n, _ := strconv.Atoi(digits)
	if sign == "-" {
		return -n
	}
	return n
}
