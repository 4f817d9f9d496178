package sorting

import "sortcraft.ai/internal/sim/container"

// move tries to bring the stack in i to j under a rule of the given
// priority (1 for the fallback pass). It swaps with the occupant of j when
// the occupant's claim is weaker, or equal and ordered after the incoming
// stack, and merges identical stacks with room left.
//
// The result is noSlot on failure, j when the stack landed cleanly, or the
// slot the displaced stack ended up in.
func (e *Engine) move(i, j, priority int) int {
	from, to := e.view.Stack(i), e.view.Stack(j)
	if from.Empty() || e.frozenSlots[i] || e.frozenSlots[j] || e.lockPriorities[i] > priority {
		return noSlot
	}
	if i == j {
		e.markAsMoved(i, priority)
		return j
	}

	if to.Empty() {
		if e.lockPriorities[j] > priority || !e.viewMove(i, j) {
			return noSlot
		}
		e.rulePriority[i], e.keywordOrder[i] = -1, -1
		e.rulePriority[j] = priority
		e.keywordOrder[j] = e.itemOrder(from)
		return j
	}

	if !e.canSwapSlots(i, j, priority) && !container.CanMerge(e.policy, from, to) {
		return noSlot
	}
	order := e.keywordOrder[i]
	if !e.viewMove(i, j) {
		return noSlot
	}
	e.keywordOrder[j] = order
	e.rulePriority[j] = priority
	e.rulePriority[i] = -1

	remains := e.view.Stack(i)
	if remains.Empty() {
		e.keywordOrder[i] = -1
		return j
	}

	// A stack pushed out of a slot locked harder than its origin goes to
	// the first free unlocked slot instead.
	drop := i
	if e.lockPriorities[j] > e.lockPriorities[i] {
		for k := 0; k < e.size; k++ {
			if e.lockPriorities[k] == 0 && !e.frozenSlots[k] && e.view.Stack(k).Empty() {
				drop = k
				break
			}
		}
	}
	if drop != i {
		if !e.viewMove(i, drop) {
			// the first half of the exchange already happened
			e.keywordOrder[i] = e.itemOrder(remains)
			return noSlot
		}
		e.keywordOrder[i] = -1
	}
	e.rulePriority[drop] = -1
	e.keywordOrder[drop] = e.itemOrder(remains)
	return drop
}

func (e *Engine) canSwapSlots(i, j, priority int) bool {
	if e.lockPriorities[j] > priority {
		return false
	}
	return e.rulePriority[j] < priority ||
		(e.rulePriority[j] == priority && e.isOrderedBefore(i, j))
}

func (e *Engine) markAsMoved(i, priority int) { e.rulePriority[i] = priority }

func (e *Engine) markAsNotMoved(i int) { e.rulePriority[i] = -1 }

// hasToBeMoved reports whether slot holds a stack whose claim a rule of
// the given priority may override.
func (e *Engine) hasToBeMoved(slot, priority int) bool {
	return !e.view.Stack(slot).Empty() && e.rulePriority[slot] <= priority
}

func (e *Engine) isOrderedBefore(i, j int) bool {
	return e.compareItems(e.view.Stack(i), e.view.Stack(j), e.keywordOrder[i], e.keywordOrder[j]) < 0
}

func (e *Engine) viewMove(from, to int) bool {
	if !e.view.Move(from, to) {
		return false
	}
	e.moves++
	return true
}

func (e *Engine) viewMoveSome(from, to, amount int) bool {
	if !e.view.MoveSome(from, to, amount) {
		return false
	}
	e.moves++
	return true
}

func (e *Engine) managerMove(fs container.Section, from int, ts container.Section, to int) bool {
	if !e.mgr.Move(fs, from, ts, to) {
		return false
	}
	e.moves++
	return true
}
