package rules

import (
	"bufio"
	"fmt"
	"io"
	"regexp"
	"strings"
)

const DefaultRulesetName = "Default"

var rulesetBreak = regexp.MustCompile(`^[\w]*[\s]*:$`)

// InvalidKeyword is an unknown keyword found while parsing, with the
// closest known keyword when one is similar enough.
type InvalidKeyword struct {
	Ruleset    string
	Line       int
	Keyword    string
	Suggestion string
}

// Config holds every ruleset of a rules file and the one currently in use.
type Config struct {
	tree     Tree
	grid     Grid
	rulesets []*Ruleset
	current  int
	invalid  []InvalidKeyword
}

// Parse reads a rules file. Lines of the form "name:" start a new ruleset;
// the implicit Default ruleset before the first header is dropped when it
// holds nothing. Unparseable lines are skipped.
func Parse(r io.Reader, tree Tree, g Grid) (*Config, error) {
	c := &Config{tree: tree, grid: g}

	active := NewRuleset(DefaultRulesetName, tree, g)
	inDefault := true

	sc := bufio.NewScanner(r)
	lineNo := 0
	for sc.Scan() {
		lineNo++
		line := strings.TrimSpace(sc.Text())
		if line == "" {
			continue
		}
		out := c.parseLine(active, line)
		switch out.Kind {
		case OutcomeRulesetBreak:
			if !inDefault || !active.Empty() {
				if err := active.Finalize(); err != nil {
					return nil, err
				}
				c.rulesets = append(c.rulesets, active)
			}
			active = NewRuleset(out.Keyword, tree, g)
			inDefault = false
		case OutcomeInvalidKeyword:
			c.invalid = append(c.invalid, InvalidKeyword{
				Ruleset:    active.Name(),
				Line:       lineNo,
				Keyword:    out.Keyword,
				Suggestion: out.Suggestion,
			})
		}
	}
	if err := sc.Err(); err != nil {
		return nil, fmt.Errorf("rules: %w", err)
	}
	if err := active.Finalize(); err != nil {
		return nil, err
	}
	c.rulesets = append(c.rulesets, active)
	return c, nil
}

func (c *Config) parseLine(active *Ruleset, line string) Outcome {
	if rulesetBreak.MatchString(line) {
		name := strings.TrimSpace(strings.TrimSuffix(line, ":"))
		return Outcome{Kind: OutcomeRulesetBreak, Keyword: name}
	}
	return active.RegisterLine(line)
}

func (c *Config) Grid() Grid { return c.grid }

func (c *Config) InvalidKeywords() []InvalidKeyword {
	out := make([]InvalidKeyword, len(c.invalid))
	copy(out, c.invalid)
	return out
}

func (c *Config) Rulesets() []string {
	out := make([]string, len(c.rulesets))
	for i, rs := range c.rulesets {
		out[i] = rs.Name()
	}
	return out
}

func (c *Config) Current() *Ruleset {
	if c == nil || len(c.rulesets) == 0 {
		return nil
	}
	return c.rulesets[c.current]
}

func (c *Config) CurrentIndex() int { return c.current }

func (c *Config) CurrentName() string {
	if rs := c.Current(); rs != nil {
		return rs.Name()
	}
	return ""
}

// Switch selects ruleset i. It is a no-op returning ok=false when i is out
// of range or already selected.
func (c *Config) Switch(i int) (string, bool) {
	if i < 0 || i >= len(c.rulesets) || i == c.current {
		return "", false
	}
	c.current = i
	return c.rulesets[i].Name(), true
}

// SwitchNext cycles to the following ruleset, wrapping to the first.
func (c *Config) SwitchNext() string {
	if len(c.rulesets) == 0 {
		return ""
	}
	c.current = (c.current + 1) % len(c.rulesets)
	return c.rulesets[c.current].Name()
}

// SwitchByName selects the ruleset called name, if any.
func (c *Config) SwitchByName(name string) bool {
	for i, rs := range c.rulesets {
		if rs.Name() == name {
			c.current = i
			return true
		}
	}
	return false
}

func (c *Config) Rules() []*Rule {
	if rs := c.Current(); rs != nil {
		return rs.Rules()
	}
	return nil
}

func (c *Config) LockPriorities() []int {
	if rs := c.Current(); rs != nil {
		return rs.LockPriorities()
	}
	return make([]int, c.grid.Size)
}

func (c *Config) FrozenSlots() []bool {
	if rs := c.Current(); rs != nil {
		return rs.FrozenSlots()
	}
	return make([]bool, c.grid.Size)
}

func (c *Config) AutoRefillKeywords() []string {
	if rs := c.Current(); rs != nil {
		return rs.AutoRefillKeywords()
	}
	return nil
}

// IsAutoRefillEnabled reports whether the current ruleset allows refilling
// the given item. "nothing" disables refill outright; otherwise any
// matching keyword enables it. The global enable switch lives in tuning
// and is checked by the caller.
func (c *Config) IsAutoRefillEnabled(id string, damage int) bool {
	keywords := c.AutoRefillKeywords()
	if len(keywords) == 0 {
		return true
	}
	items := c.tree.Items(id, damage, nil)
	found := false
	for _, kw := range keywords {
		if kw == KeywordNothing {
			return false
		}
		if c.tree.Matches(items, kw) {
			found = true
		}
	}
	return found
}
