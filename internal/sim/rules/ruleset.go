package rules

import (
	"errors"
	"fmt"
	"regexp"
	"sort"
	"strings"
)

var (
	ErrNoRootCategory   = errors.New("rules: item tree has no root category")
	ErrAlreadyFinalized = errors.New("rules: ruleset already finalized")
)

type OutcomeKind int

const (
	OutcomeIgnored OutcomeKind = iota
	OutcomeRule
	OutcomeLock
	OutcomeFreeze
	OutcomeAutoRefill
	OutcomeRulesetBreak
	OutcomeInvalidKeyword
)

func (k OutcomeKind) String() string {
	switch k {
	case OutcomeRule:
		return "rule"
	case OutcomeLock:
		return "lock"
	case OutcomeFreeze:
		return "freeze"
	case OutcomeAutoRefill:
		return "autorefill"
	case OutcomeRulesetBreak:
		return "ruleset"
	case OutcomeInvalidKeyword:
		return "invalid"
	}
	return "ignored"
}

// Outcome reports what a single rules-file line did.
type Outcome struct {
	Kind OutcomeKind

	Rule *Rule
	// Keyword is the unknown keyword for OutcomeInvalidKeyword, the
	// autorefill keyword, or the ruleset name for OutcomeRulesetBreak.
	Keyword    string
	Suggestion string
}

var whitespace = regexp.MustCompile(`\s+`)

// Ruleset is one named block of a rules file.
type Ruleset struct {
	name string
	tree Tree
	grid Grid

	slotLine *regexp.Regexp
	rectLine *regexp.Regexp

	rules      []*Rule
	lock       []int
	frozen     []bool
	autoRefill []string
	lines      int
	finalized  bool
}

func NewRuleset(name string, tree Tree, g Grid) *Ruleset {
	return &Ruleset{
		name:     name,
		tree:     tree,
		grid:     g,
		slotLine: slotLineRegexp(g),
		rectLine: rectLineRegexp(g),
		lock:     make([]int, g.Size),
		frozen:   make([]bool, g.Size),
	}
}

func rowClass(g Grid) string {
	rows := g.ColumnSize()
	if rows < 1 {
		rows = 1
	}
	return fmt.Sprintf("[a-%c]", 'a'+rune(rows-1))
}

func columnClass(g Grid) string {
	cols := g.RowSize
	if cols > 9 {
		cols = 9
	}
	if cols < 1 {
		cols = 1
	}
	return fmt.Sprintf("[1-%d]", cols)
}

func slotLineRegexp(g Grid) *regexp.Regexp {
	return regexp.MustCompile(fmt.Sprintf(`^(%s|%s|[r]){1,2} [\w]*$`, rowClass(g), columnClass(g)))
}

func rectLineRegexp(g Grid) *regexp.Regexp {
	r, c := rowClass(g), columnClass(g)
	return regexp.MustCompile(fmt.Sprintf(`^%s%s-%s%s[rv]?[rv]? [\w]*$`, r, c, r, c))
}

func (rs *Ruleset) Name() string { return rs.name }

// Empty reports whether no line was ever accepted into the ruleset.
func (rs *Ruleset) Empty() bool { return rs.lines == 0 }

// RegisterLine parses one trimmed rules-file line.
func (rs *Ruleset) RegisterLine(raw string) Outcome {
	if rs.finalized {
		return Outcome{Kind: OutcomeIgnored}
	}
	line := strings.ToLower(whitespace.ReplaceAllString(strings.TrimSpace(raw), " "))
	words := strings.Split(line, " ")
	if len(words) != 2 {
		return Outcome{Kind: OutcomeIgnored}
	}
	constraint, keyword := words[0], words[1]

	if rs.slotLine.MatchString(line) || rs.rectLine.MatchString(line) {
		switch keyword {
		case KeywordLocked:
			slots := PreferredPositions(constraint, rs.grid)
			if len(slots) == 0 {
				return Outcome{Kind: OutcomeIgnored}
			}
			level := TypeOf(constraint, rs.grid.RowSize).LowestPriority() - 1
			for _, s := range slots {
				rs.lock[s] = level
			}
			rs.lines++
			return Outcome{Kind: OutcomeLock}
		case KeywordFrozen:
			slots := PreferredPositions(constraint, rs.grid)
			if len(slots) == 0 {
				return Outcome{Kind: OutcomeIgnored}
			}
			for _, s := range slots {
				rs.frozen[s] = true
			}
			rs.lines++
			return Outcome{Kind: OutcomeFreeze}
		}

		resolved, ok := resolveKeyword(rs.tree, keyword)
		if !ok {
			rs.lines++
			return Outcome{Kind: OutcomeInvalidKeyword, Keyword: keyword, Suggestion: Suggest(rs.tree, keyword)}
		}
		r, err := NewRule(rs.tree, constraint, resolved, rs.grid)
		if err != nil {
			return Outcome{Kind: OutcomeIgnored}
		}
		rs.rules = append(rs.rules, r)
		rs.lines++
		return Outcome{Kind: OutcomeRule, Rule: r, Keyword: resolved}
	}

	if constraint == KeywordAutoRefill || constraint == keywordAutoReplace {
		rs.lines++
		if keyword == KeywordNothing || rs.tree.IsKeywordValid(keyword) {
			rs.autoRefill = append(rs.autoRefill, keyword)
			return Outcome{Kind: OutcomeAutoRefill, Keyword: keyword}
		}
		return Outcome{Kind: OutcomeInvalidKeyword, Keyword: keyword, Suggestion: Suggest(rs.tree, keyword)}
	}
	return Outcome{Kind: OutcomeIgnored}
}

// Finalize defaults the autorefill list to the tree root and orders rules
// by descending priority. Rules of equal priority keep file order.
func (rs *Ruleset) Finalize() error {
	if rs.finalized {
		return ErrAlreadyFinalized
	}
	if len(rs.autoRefill) == 0 {
		root := rs.tree.RootName()
		if root == "" {
			return fmt.Errorf("ruleset %q: %w", rs.name, ErrNoRootCategory)
		}
		rs.autoRefill = append(rs.autoRefill, root)
	}
	sort.SliceStable(rs.rules, func(i, j int) bool {
		return rs.rules[i].priority > rs.rules[j].priority
	})
	rs.finalized = true
	return nil
}

func (rs *Ruleset) Rules() []*Rule {
	out := make([]*Rule, len(rs.rules))
	copy(out, rs.rules)
	return out
}

func (rs *Ruleset) LockPriorities() []int {
	out := make([]int, len(rs.lock))
	copy(out, rs.lock)
	return out
}

func (rs *Ruleset) FrozenSlots() []bool {
	out := make([]bool, len(rs.frozen))
	copy(out, rs.frozen)
	return out
}

func (rs *Ruleset) AutoRefillKeywords() []string {
	out := make([]string, len(rs.autoRefill))
	copy(out, rs.autoRefill)
	return out
}
