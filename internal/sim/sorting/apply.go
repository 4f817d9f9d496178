package sorting

import "slices"

// sortWithRules applies rules by decreasing priority. Within a rule, slots
// are visited left to right and each matching stack walks the rule's
// preferred slots until it lands.
func (e *Engine) sortWithRules() {
	e.logger.Printf("applying %d rules", len(e.rules))

	for _, r := range e.rules {
		if r.ContainerSize() != e.size {
			continue
		}
		p := r.Priority()
		keyword := r.Keyword()
		preferred := r.PreferredSlots()

		for i := 0; i < e.size; i++ {
			if !e.hasToBeMoved(i, p) || e.lockPriorities[i] >= p {
				continue
			}
			if !e.matches(e.view.Stack(i), keyword) {
				continue
			}
			src := i
			for _, k := range preferred {
				got := e.move(src, k, p)
				if got == noSlot {
					continue
				}
				if got == k {
					break
				}
				// Keep walking with the displaced stack only when it also
				// belongs here and the outer loop is already past it.
				if got > i || !e.matches(e.view.Stack(got), keyword) {
					break
				}
				src = got
			}
		}
	}

	// Locked stacks stay put even when no rule claimed them.
	for i := 0; i < e.size; i++ {
		if e.hasToBeMoved(i, 1) && e.lockPriorities[i] > 0 {
			e.markAsMoved(i, 1)
		}
	}
}

// defaultSorting packs every unclaimed stack towards the start of the
// container in item order. Slots the fallback priority cannot move
// (frozen, or locked above it) are left out.
func (e *Engine) defaultSorting() {
	e.logger.Printf("default sorting")

	var remaining []int
	for i := 0; i < e.size; i++ {
		if e.movableByDefault(i) {
			remaining = append(remaining, i)
		}
	}

	passes := 0
	for len(remaining) > 0 && passes < e.settings.MaxDefaultPasses {
		passes++
		next := slices.Clone(remaining)
		for _, i := range remaining {
			if !e.movableByDefault(i) {
				next = removeSlot(next, i)
				continue
			}
			for j := 0; j < e.size; j++ {
				if e.move(i, j, 1) != noSlot {
					next = removeSlot(next, j)
					break
				}
			}
		}
		remaining = next
	}

	e.passes = passes
	e.converged = len(remaining) == 0
	if !e.converged {
		e.logger.Printf("default sorting: gave up after %d passes, %d stacks unplaced", passes, len(remaining))
	}
}

func (e *Engine) movableByDefault(i int) bool {
	return e.hasToBeMoved(i, 1) && !e.frozenSlots[i] && e.lockPriorities[i] <= 1
}

func removeSlot(list []int, slot int) []int {
	if k := slices.Index(list, slot); k >= 0 {
		return slices.Delete(list, k, k+1)
	}
	return list
}
