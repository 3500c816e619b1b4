package dice

import (
	"math/rand"
	"regexp"
	"strconv"
	"strings"
	"sync"
	"time"
)

// MaxDice caps the number of dice in a single notation so a hostile
// mechanics line cannot spin the roller.
const MaxDice = 100

// Source is the random source dice draw from. *rand.Rand satisfies it.
type Source interface {
	Intn(n int) int
}

// Roller rolls dice notation against a Source.
type Roller struct {
	mu  sync.Mutex
	src Source
}

// New creates a Roller over the given source.
func New(src Source) *Roller {
	return &Roller{src: src}
}

// NewSeeded creates a Roller with a deterministic math/rand source.
func NewSeeded(seed int64) *Roller {
	return New(rand.New(rand.NewSource(seed)))
}

var defaultRoller = NewSeeded(time.Now().UnixNano())

// Default returns the process-wide roller.
func Default() *Roller {
	return defaultRoller
}

// Notation is a parsed [count]d<sides>[(+|-)modifier] expression.
type Notation struct {
	Count    int
	Sides    int
	Modifier int
}

// String renders the notation in canonical form, e.g. "2d6+3".
func (n Notation) String() string {
	var sb strings.Builder
	sb.WriteString(strconv.Itoa(n.Count))
	sb.WriteString("d")
	sb.WriteString(strconv.Itoa(n.Sides))
	if n.Modifier > 0 {
		sb.WriteString("+" + strconv.Itoa(n.Modifier))
	} else if n.Modifier < 0 {
		sb.WriteString(strconv.Itoa(n.Modifier))
	}
	return sb.String()
}

// Min is the lowest total the notation can produce.
func (n Notation) Min() int {
	return n.Count + n.Modifier
}

// Max is the highest total the notation can produce.
func (n Notation) Max() int {
	return n.Count*n.Sides + n.Modifier
}

var notationRegex = regexp.MustCompile(`(?i)^\s*(\d*)\s*d\s*(\d+)\s*(?:([+-])\s*(\d+))?\s*$`)

// Parse parses dice notation. The count defaults to 1.
func Parse(notation string) (Notation, bool) {
	m := notationRegex.FindStringSubmatch(notation)
	if m == nil {
		return Notation{}, false
	}

	count := 1
	if m[1] != "" {
		c, err := strconv.Atoi(m[1])
		if err != nil {
			return Notation{}, false
		}
		count = c
	}
	sides, err := strconv.Atoi(m[2])
	if err != nil {
		return Notation{}, false
	}
	if count <= 0 || count > MaxDice || sides <= 0 {
		return Notation{}, false
	}

	mod := 0
	if m[4] != "" {
		mod, err = strconv.Atoi(m[4])
		if err != nil {
			return Notation{}, false
		}
		if m[3] == "-" {
			mod = -mod
		}
	}

	return Notation{Count: count, Sides: sides, Modifier: mod}, true
}

// Roll rolls the notation and returns the total. Malformed notation yields 0.
func (r *Roller) Roll(notation string) int {
	n, ok := Parse(notation)
	if !ok {
		return 0
	}
	return r.RollNotation(n)
}

// RollNotation rolls an already-parsed notation.
func (r *Roller) RollNotation(n Notation) int {
	r.mu.Lock()
	defer r.mu.Unlock()

	total := 0
	for i := 0; i < n.Count; i++ {
		total += r.src.Intn(n.Sides) + 1
	}
	return total + n.Modifier
}

// D20 rolls a single twenty-sided die.
func (r *Roller) D20() int {
	return r.RollNotation(Notation{Count: 1, Sides: 20})
}

// RollDice rolls notation with the default roller.
func RollDice(notation string) int {
	return defaultRoller.Roll(notation)
}

// AttributeBonus returns floor((value - 10) / 2).
func AttributeBonus(value int) int {
	d := value - 10
	if d >= 0 {
		return d / 2
	}
	return -((-d + 1) / 2)
}
