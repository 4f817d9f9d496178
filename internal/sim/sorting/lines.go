package sorting

import (
	"cmp"
	"fmt"
	"slices"

	"sortcraft.ai/internal/sim/itemtree"
	"sortcraft.ai/internal/sim/rules"
)

const (
	// Column digits run 1-9 and rows a-z in the constraint grammar.
	maxLineRowSize    = 9
	maxLineColumnSize = 26
)

type lineStat struct {
	item   *itemtree.Item
	stacks int
}

// containerStats counts stacks per tree entry, in order of first
// appearance.
func (e *Engine) containerStats() []*lineStat {
	index := map[*itemtree.Item]*lineStat{}
	var out []*lineStat
	for i := 0; i < e.size; i++ {
		st := e.view.Stack(i)
		if st.Empty() {
			continue
		}
		items := e.tree.Items(st.ID, st.Damage, st.Extra)
		if len(items) == 0 || items[0] == nil {
			continue
		}
		s := index[items[0]]
		if s == nil {
			s = &lineStat{item: items[0]}
			index[items[0]] = s
			out = append(out, s)
		}
		s.stacks++
	}
	return out
}

// lineSortingRules gives every item in the container a band of rows
// (horizontal) or columns (vertical), widest for the most stacked items,
// and ends with a catch-all rule for the root.
func (e *Engine) lineSortingRules(horizontal bool) []*rules.Rule {
	rowSize, columnSize := e.grid.RowSize, e.grid.ColumnSize()
	if rowSize > maxLineRowSize || columnSize == 0 || columnSize > maxLineColumnSize {
		return nil
	}
	stats := e.containerStats()
	if len(stats) == 0 {
		return nil
	}

	line := columnSize
	if horizontal {
		line = rowSize
	}
	var populous, rest []*lineStat
	remainingStacks := 0
	for _, s := range stats {
		remainingStacks += s.stacks
		if s.stacks > line {
			populous = append(populous, s)
		} else {
			rest = append(rest, s)
		}
	}
	slices.SortStableFunc(populous, func(a, b *lineStat) int {
		if c := cmp.Compare(b.stacks, a.stacks); c != 0 {
			return c
		}
		return cmp.Compare(a.item.Order, b.item.Order)
	})
	slices.SortStableFunc(rest, func(a, b *lineStat) int {
		return cmp.Compare(a.item.Order, b.item.Order)
	})
	ordered := append(populous, rest...)

	distinct := len(ordered)
	spaceWidth, spaceHeight := 1, 1
	if horizontal {
		spaceWidth = max(1, rowSize/ceilDiv(distinct, columnSize))
	} else {
		spaceHeight = max(1, columnSize/ceilDiv(distinct, rowSize))
	}

	maxRow, maxColumn := columnSize-1, rowSize-1
	row, column := 0, 0
	available := e.size
	var out []*rules.Rule

	for _, s := range ordered {
		w, h := spaceWidth, spaceHeight
		for s.stacks > w*h {
			if horizontal {
				if column+w < maxColumn {
					w = maxColumn - column + 1
				} else if row+h < maxRow {
					h++
				} else {
					break
				}
			} else {
				if row+h < maxRow {
					h = maxRow - row + 1
				} else if column+w < maxColumn {
					w++
				} else {
					break
				}
			}
		}
		// don't leave a one-slot sliver at the edge
		if horizontal && column+w == maxColumn {
			w++
		} else if !horizontal && row+h == maxRow {
			h++
		}

		constraint := fmt.Sprintf("%c%c-%c%c", 'a'+row, '1'+column, 'a'+row+h-1, '1'+column+w-1)
		if !horizontal {
			constraint += "v"
		}
		r, err := rules.NewRule(e.tree, constraint, s.item.Name, e.grid)
		if err != nil {
			e.logger.Printf("line sorting: %s %s: %v", constraint, s.item.Name, err)
			break
		}
		out = append(out, r)

		available -= w * h
		remainingStacks -= s.stacks
		if available < remainingStacks {
			break
		}
		if horizontal {
			if column+w+spaceWidth <= maxColumn+1 {
				column += w
			} else {
				column = 0
				row += h
			}
		} else {
			if row+h+spaceHeight <= maxRow+1 {
				row += h
			} else {
				row = 0
				column += w
			}
		}
		if row > maxRow || column > maxColumn {
			break
		}
	}

	var catchAll string
	if horizontal {
		catchAll = fmt.Sprintf("%c1-a%c", 'a'+maxRow, '1'+maxColumn)
	} else {
		catchAll = fmt.Sprintf("a%c-%c1v", '1'+maxColumn, 'a'+maxRow)
	}
	if root := e.tree.RootName(); root != "" {
		if r, err := rules.NewRule(e.tree, catchAll, root, e.grid); err == nil {
			out = append(out, r)
		}
	}
	return out
}

func ceilDiv(a, b int) int { return (a + b - 1) / b }
