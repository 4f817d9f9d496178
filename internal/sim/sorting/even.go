package sorting

import "sortcraft.ai/internal/sim/container"

type evenGroup struct {
	item  container.Stack
	total int
	slots []int
}

// sortEvenStacks spreads every item over the slots it already occupies so
// each holds total/slots, with the remainder collected in one stack. The
// slots of a redistributed item are then claimed so later passes do not
// merge them back together.
func (e *Engine) sortEvenStacks() {
	e.logger.Printf("distributing items")

	var groups []*evenGroup
	for i := 0; i < e.size; i++ {
		st := e.view.Stack(i)
		if st.Empty() {
			continue
		}
		var g *evenGroup
		for _, cand := range groups {
			if cand.item.SameItem(st) {
				g = cand
				break
			}
		}
		if g == nil {
			g = &evenGroup{item: st}
			groups = append(groups, g)
		}
		g.total += st.Count
		g.slots = append(g.slots, i)
	}

	for _, g := range groups {
		if len(g.slots) < 2 || e.policy.MaxStackSize(g.item.ID) <= 1 {
			continue
		}
		perSlot := g.total / len(g.slots)
		if perSlot > e.policy.MaxStackSize(g.item.ID) {
			continue
		}

		var small, large []int
		for _, i := range g.slots {
			switch n := e.view.Stack(i).Count; {
			case n > perSlot:
				large = append(large, i)
			case n < perSlot:
				small = append(small, i)
			}
		}

		for len(small) > 0 && len(large) > 0 {
			l, s := large[0], small[0]
			give := min(perSlot-e.view.Stack(s).Count, e.view.Stack(l).Count-perSlot)
			if !e.viewMoveSome(l, s, give) {
				break
			}
			if e.view.Stack(l).Count == perSlot {
				large = large[1:]
			}
			if e.view.Stack(s).Count == perSlot {
				small = small[1:]
			}
		}
		// leftovers end up in a single stack
		for len(large) > 1 {
			l := large[0]
			large = large[1:]
			e.viewMoveSome(l, large[0], e.view.Stack(l).Count-perSlot)
		}

		for _, i := range g.slots {
			e.markAsMoved(i, claimAll)
		}
	}
}
