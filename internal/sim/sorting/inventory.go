package sorting

import "sortcraft.ai/internal/sim/container"

// sortInventory empties the crafting grid into free inventory slots, then
// tops up partial stacks in locked slots and, when enabled, equips better
// armor.
func (e *Engine) sortInventory() {
	section := e.view.Section()
	if e.mgr.HasSection(container.SectionCraftingIn) {
		free := e.firstFreeSlot()
		for k := 0; k < e.mgr.Size(container.SectionCraftingIn) && free != noSlot; k++ {
			if e.mgr.Stack(container.SectionCraftingIn, k).Empty() {
				continue
			}
			if e.managerMove(container.SectionCraftingIn, k, section, free) {
				e.refreshSlot(free)
			}
			free = e.firstFreeSlot()
		}
	}
	e.sortMergeArmor()
}

// sortMergeArmor walks the container from the end so late stacks are the
// ones drained into locked slots.
func (e *Engine) sortMergeArmor() {
	for i := e.size - 1; i >= 0; i-- {
		from := e.view.Stack(i)
		if from.Empty() {
			continue
		}
		if container.Damageable(e.policy, from.ID) {
			e.moveArmor(i, from)
		} else {
			e.mergeItem(i, from)
		}
	}
}

func (e *Engine) mergeItem(i int, from container.Stack) {
	for j, lock := range e.lockPriorities {
		if lock <= 0 {
			continue
		}
		to := e.view.Stack(j)
		if to.Empty() || (j != i && !container.CanMerge(e.policy, from, to)) {
			continue
		}
		e.move(i, j, claimAll)
		e.markAsNotMoved(j)
		if e.view.Stack(i).Empty() {
			break
		}
		from = e.view.Stack(i)
	}
}

// moveArmor equips the piece in slot i into every armor slot that is
// empty, holds something that is not armor, or holds a weaker or more
// worn piece.
func (e *Engine) moveArmor(i int, from container.Stack) {
	if !e.settings.AutoEquipArmor || !e.mgr.HasSection(container.SectionArmor) {
		return
	}
	info, ok := e.policy.Armor(from.ID)
	if !ok {
		return
	}
	for k := 0; k < e.mgr.Size(container.SectionArmor); k++ {
		if !e.mgr.CanHold(container.SectionArmor, k, from) {
			continue
		}
		cur := e.mgr.Stack(container.SectionArmor, k)
		replace := cur.Empty()
		if !replace {
			if worn, ok := e.policy.Armor(cur.ID); ok {
				replace = worn.Level < info.Level ||
					(worn.Level == info.Level && cur.Damage > from.Damage)
			} else {
				replace = true
			}
		}
		if replace && e.managerMove(e.view.Section(), i, container.SectionArmor, k) {
			e.refreshSlot(i)
			return
		}
	}
}
