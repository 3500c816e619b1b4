package intent

import (
	"regexp"
	"strings"
)

var (
	playerAttackRegex = regexp.MustCompile(`(?i)^\s*(?:i\s+)?(?:(normal|fast|heavy|defensive)\s+)?(?:attack|strike|hit|stab|slash|swing\s+at)\b\s*(?:(?:on|at)\b\s*)?(?:the\s+)?(.*?)[\s.!]*$`)
	useItemRegex      = regexp.MustCompile(`(?i)^\s*(?:i\s+)?(?:use|drink|quaff|eat|consume|apply)\s+(?:an?\s+|the\s+|my\s+)?(.+?)[\s.!]*$`)

	moveRegex      = regexp.MustCompile(`(?i)^\s*(?:the\s+)?(?:player|you)\s+(?:moves?|moved|travels?|traveled|travelled|goes|went|enters?|entered|arrives?|arrived)\s+(?:to|into|at|in)?\s*(?:the\s+)?(.+?)[\s.!]*$`)
	gainItemRegex  = regexp.MustCompile(`(?i)^\s*(?:the\s+)?(?:player|you)\s+(?:gains?|gained|receives?|received|obtains?|obtained|finds?|found|picks?\s+up|picked\s+up|acquires?|acquired)\s+(?:an?\s+|the\s+)?(.+?)[\s.!]*$`)
	questRegex     = regexp.MustCompile(`(?i)^\s*(?:quest\s+accepted|new\s+quest|accepted\s+quest|quest\s+started)\s*:\s*(.+?)[\s.!]*$`)
	objectiveRegex = regexp.MustCompile(`(?i)^\s*objective\s+completed\s*:\s*(\S+)\s+for\s+(?:quest\s+)?(.+?)[\s.!]*$`)
	npcAttackRegex = regexp.MustCompile(`(?i)^\s*(?:the\s+)?(.+?)\s+(?:attacks?|strikes?|lunges\s+at|swings\s+at)\s+(?:the\s+)?(?:player|you)\b`)
)

// RegexClassifier classifies with fixed patterns.
type RegexClassifier struct{}

var _ Classifier = (*RegexClassifier)(nil)

// NewRegexClassifier returns the pattern-based classifier.
func NewRegexClassifier() *RegexClassifier {
	return &RegexClassifier{}
}

// Player implements Classifier.
func (c *RegexClassifier) Player(text string) Intent {
	if m := playerAttackRegex.FindStringSubmatch(text); m != nil {
		at := strings.ToLower(m[1])
		if at == "" {
			at = AttackNormal
		}
		return Intent{Kind: Attack, Target: strings.TrimSpace(m[2]), AttackType: at, Text: text}
	}
	if m := useItemRegex.FindStringSubmatch(text); m != nil {
		return Intent{Kind: UseItem, Target: strings.TrimSpace(m[1]), Text: text}
	}
	return Intent{Kind: None, Text: text}
}

// Narrative implements Classifier. Objective completion and quest
// acceptance are checked before movement and item gain so that a line like
// "Objective completed: find_relic for The Lost Relic" is never read as a
// move.
func (c *RegexClassifier) Narrative(text string) Intent {
	if m := objectiveRegex.FindStringSubmatch(text); m != nil {
		return Intent{Kind: CompleteObjective, Objective: m[1], Target: strings.TrimSpace(m[2]), Text: text}
	}
	if m := questRegex.FindStringSubmatch(text); m != nil {
		return Intent{Kind: AcceptQuest, Target: strings.TrimSpace(m[1]), Text: text}
	}
	if m := npcAttackRegex.FindStringSubmatch(text); m != nil {
		return Intent{Kind: NPCAttack, Target: strings.TrimSpace(m[1]), Text: text}
	}
	if m := moveRegex.FindStringSubmatch(text); m != nil {
		return Intent{Kind: Move, Target: strings.TrimSpace(m[1]), Text: text}
	}
	if m := gainItemRegex.FindStringSubmatch(text); m != nil {
		return Intent{Kind: GainItem, Target: strings.TrimSpace(m[1]), Text: text}
	}
	return Intent{Kind: None, Text: text}
}

// IsAttackType reports whether s names a known attack type.
func IsAttackType(s string) bool {
	switch strings.ToLower(s) {
	case AttackNormal, AttackFast, AttackHeavy, AttackDefensive:
		return true
	}
	return false
}
