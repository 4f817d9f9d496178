package sorting

import (
	"cmp"
	"strings"

	"sortcraft.ai/internal/sim/container"
)

// compareItems orders stacks by tree order, then id, then damage, then
// larger stacks first. Empty stacks sort last. Worn tools come after fresh
// ones when InvertToolDamage is set, before them otherwise.
func (e *Engine) compareItems(a, b container.Stack, orderA, orderB int) int {
	switch {
	case a.Empty() && b.Empty():
		return 0
	case a.Empty():
		return 1
	case b.Empty():
		return -1
	}
	if orderA < 0 {
		orderA = e.itemOrder(a)
	}
	if orderB < 0 {
		orderB = e.itemOrder(b)
	}
	if c := cmp.Compare(orderA, orderB); c != 0 {
		return c
	}
	if c := strings.Compare(a.ID, b.ID); c != 0 {
		return c
	}
	if a.Damage != b.Damage {
		if container.Damageable(e.policy, a.ID) && !e.settings.InvertToolDamage {
			return cmp.Compare(b.Damage, a.Damage)
		}
		return cmp.Compare(a.Damage, b.Damage)
	}
	return cmp.Compare(b.Count, a.Count)
}
