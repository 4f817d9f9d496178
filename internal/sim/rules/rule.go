package rules

import (
	"errors"
	"fmt"
	"strings"
)

var ErrBadConstraint = errors.New("rules: constraint names no slot")

// Rule binds a keyword to preferred slots. Rules are immutable once built.
type Rule struct {
	constraint string
	keyword    string
	typ        RuleType
	slots      []int
	priority   int
	grid       Grid
}

// NewRule resolves constraint against g and computes the priority as
// type floor + depth*1000 - order, so deeper (more specific) keywords win
// inside a band and earlier tree entries beat later ones.
func NewRule(tree Tree, constraint, keyword string, g Grid) (*Rule, error) {
	constraint = strings.ToLower(constraint)
	keyword = strings.ToLower(keyword)
	slots := PreferredPositions(constraint, g)
	if len(slots) == 0 {
		return nil, fmt.Errorf("%w: %q", ErrBadConstraint, constraint)
	}
	typ := TypeOf(constraint, g.RowSize)
	return &Rule{
		constraint: constraint,
		keyword:    keyword,
		typ:        typ,
		slots:      slots,
		priority:   typ.LowestPriority() + tree.KeywordDepth(keyword)*1000 - tree.KeywordOrder(keyword),
		grid:       g,
	}, nil
}

func (r *Rule) Constraint() string { return r.constraint }
func (r *Rule) Keyword() string    { return r.keyword }
func (r *Rule) Type() RuleType     { return r.typ }
func (r *Rule) Priority() int      { return r.priority }
func (r *Rule) Grid() Grid         { return r.grid }
func (r *Rule) ContainerSize() int { return r.grid.Size }

func (r *Rule) PreferredSlots() []int {
	out := make([]int, len(r.slots))
	copy(out, r.slots)
	return out
}

// Prefers reports whether slot is one of the rule's preferred slots.
func (r *Rule) Prefers(slot int) bool {
	for _, s := range r.slots {
		if s == slot {
			return true
		}
	}
	return false
}

func (r *Rule) String() string {
	return fmt.Sprintf("%s %s (%s %d)", r.constraint, r.keyword, r.typ, r.priority)
}
