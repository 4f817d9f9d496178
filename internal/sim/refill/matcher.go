// Package refill replaces a hotbar stack that ran out (or a tool about to
// break) with a matching stack from the rest of the inventory. Decisions
// are made immediately; the move itself runs on the next tick.
package refill

import (
	"sortcraft.ai/internal/sim/container"
	"sortcraft.ai/internal/sim/itemtree"
	"sortcraft.ai/internal/sim/rules"
	"sortcraft.ai/internal/sim/tasks"
	"sortcraft.ai/internal/sim/tuning"
)

// Tree is the item tree as the matcher needs it.
type Tree interface {
	rules.Tree
	IsItemUnknown(id string) bool
}

var _ Tree = (*itemtree.Tree)(nil)

type Settings struct {
	Enabled bool
	// BeforeBreak swaps tools out while they still have more than
	// DamageThreshold uses left, and never picks one that does not.
	BeforeBreak     bool
	DamageThreshold int
}

func SettingsFromTuning(t tuning.Tuning) Settings {
	return Settings{
		Enabled:         t.EnableAutoRefill,
		BeforeBreak:     t.AutoRefillBeforeBreak,
		DamageThreshold: t.AutoRefillDamageThreshold,
	}
}

type Matcher struct {
	tree     Tree
	cfg      *rules.Config
	policy   container.Policy
	settings Settings
	grid     rules.Grid
}

// NewMatcher builds a matcher over the inventory grid of cfg. cfg may be
// nil, in which case only exact item matches are considered.
func NewMatcher(tree Tree, cfg *rules.Config, policy container.Policy, s Settings) *Matcher {
	g := rules.InventoryGrid
	if cfg != nil {
		g = cfg.Grid()
	}
	return &Matcher{tree: tree, cfg: cfg, policy: policy, settings: s, grid: g}
}

func (m *Matcher) Grid() rules.Grid { return m.grid }

// Enabled reports whether refilling the given item is switched on, both
// globally and by the current ruleset's autorefill lines.
func (m *Matcher) Enabled(id string, damage int) bool {
	if !m.settings.Enabled {
		return false
	}
	return m.cfg == nil || m.cfg.IsAutoRefillEnabled(id, damage)
}

// Plan picks the replacement for slot, which held wantedID:wantedDamage.
// It reports false when there is nothing to do.
func (m *Matcher) Plan(view *container.View, slot int, wantedID string, wantedDamage int) (tasks.RefillTask, bool) {
	if slot < 0 || slot >= view.Size() {
		return tasks.RefillTask{}, false
	}
	source := -1
	if m.tree.IsItemUnknown(wantedID) {
		for i := 0; i < view.Size(); i++ {
			st := view.Stack(i)
			if i != slot && !st.Empty() && st.ID == wantedID && st.Damage == wantedDamage {
				source = i
				break
			}
		}
	} else {
		for _, r := range m.matchingRules(slot, wantedID, wantedDamage) {
			if source = m.bestCandidate(view, slot, r.Keyword()); source != -1 {
				break
			}
		}
	}

	t := tasks.RefillTask{
		Kind:              tasks.KindRefill,
		Source:            source,
		Target:            slot,
		RefillBeforeBreak: m.settings.BeforeBreak,
	}
	switch {
	case source != -1:
		t.ExpectedID = view.Stack(source).ID
	case m.settings.BeforeBreak && !view.Stack(slot).Empty():
		// nothing to swap in: just get the worn tool out of the way
		t.Source = view.FirstEmpty()
		if t.Source == -1 {
			return tasks.RefillTask{}, false
		}
	default:
		return tasks.RefillTask{}, false
	}
	return t, true
}

// matchingRules lists, in the order they are tried: one-slot rules for
// the exact item variants, then for its wildcard entries, then the
// configured SLOT and COLUMN rules covering slot.
func (m *Matcher) matchingRules(slot int, wantedID string, wantedDamage int) []*rules.Rule {
	constraint := rules.SlotConstraint(slot, m.grid)
	// damage tells variants apart only for items with subtypes; for the
	// rest it is wear
	subtypes := m.policy.HasSubtypes(wantedID)
	var exact, wildcard []*rules.Rule
	for _, it := range m.tree.Items(wantedID, wantedDamage, nil) {
		if it == nil {
			continue
		}
		if subtypes && it.Damage != wantedDamage && it.Damage != itemtree.WildcardDamage {
			continue
		}
		r, err := rules.NewRule(m.tree, constraint, it.Name, m.grid)
		if err != nil {
			continue
		}
		if it.Damage == itemtree.WildcardDamage {
			wildcard = append(wildcard, r)
		} else {
			exact = append(exact, r)
		}
	}
	out := append(exact, wildcard...)
	if m.cfg == nil {
		return out
	}
	for _, r := range m.cfg.Rules() {
		if r.ContainerSize() != m.grid.Size {
			continue
		}
		if t := r.Type(); (t == rules.RuleSlot || t == rules.RuleColumn) && r.Prefers(slot) {
			out = append(out, r)
		}
	}
	return out
}

// bestCandidate returns the slot holding the best stack for keyword, or
// -1. Single items go by highest damage so worn tools get used up first;
// stacks go by lowest count so partial stacks are consumed first.
func (m *Matcher) bestCandidate(view *container.View, target int, keyword string) int {
	best := -1
	var bestStack container.Stack
	for i := 0; i < view.Size(); i++ {
		if i == target {
			continue
		}
		st := view.Stack(i)
		if st.Empty() || !m.tree.Matches(m.tree.Items(st.ID, st.Damage, st.Extra), keyword) {
			continue
		}
		if m.policy.MaxStackSize(st.ID) == 1 {
			if best != -1 && st.Damage <= bestStack.Damage {
				continue
			}
			if m.settings.BeforeBreak && m.policy.MaxDamage(st.ID)-st.Damage <= m.settings.DamageThreshold {
				continue
			}
		} else if best != -1 && st.Count >= bestStack.Count {
			continue
		}
		best, bestStack = i, st
	}
	return best
}
