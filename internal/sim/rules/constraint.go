package rules

import (
	"fmt"
	"strings"
)

type RuleType int

const (
	RuleRectangle RuleType = iota + 1
	RuleRow
	RuleColumn
	RuleSlot
)

// LowestPriority is the floor of the type's priority band. A lock set by
// a rule of this type sits one below it.
func (t RuleType) LowestPriority() int {
	switch t {
	case RuleRectangle:
		return 1_000_000
	case RuleRow:
		return 2_000_000
	case RuleColumn:
		return 3_000_000
	case RuleSlot:
		return 4_000_000
	}
	return 0
}

func (t RuleType) String() string {
	switch t {
	case RuleRectangle:
		return "RECTANGLE"
	case RuleRow:
		return "ROW"
	case RuleColumn:
		return "COLUMN"
	case RuleSlot:
		return "SLOT"
	}
	return fmt.Sprintf("RuleType(%d)", int(t))
}

// TypeOf classifies a constraint. Rectangles spanning a single column or
// a single row count as COLUMN or ROW.
func TypeOf(constraint string, rowSize int) RuleType {
	c := strings.ToLower(constraint)
	switch {
	case len(c) == 1 || (len(c) == 2 && strings.Contains(c, "r")):
		c = strings.ReplaceAll(c, "r", "")
		if c == "" {
			return RuleRow
		}
		if c[0] >= '1' && int(c[0]-'0') <= rowSize {
			return RuleColumn
		}
		return RuleRow
	case len(c) > 4:
		if c[1] == c[4] {
			return RuleColumn
		}
		if c[0] == c[3] {
			return RuleRow
		}
		return RuleRectangle
	}
	return RuleSlot
}

// PreferredPositions expands a constraint into slot indexes in preference
// order. It returns nil when the constraint names no slot of the grid.
func PreferredPositions(constraint string, g Grid) []int {
	c := strings.ToLower(constraint)
	if g.RowSize <= 0 || g.Size <= 0 {
		return nil
	}
	if len(c) >= 5 {
		return rectangle(c, g)
	}

	columns := g.ColumnSize()
	column, row := -1, -1
	reverse := false
	for i := 0; i < len(c); i++ {
		d := digit36(c[i])
		switch {
		case d >= 1 && d <= g.RowSize && d < 10:
			column = d - 1
		case d >= 10 && d-10 < columns:
			row = d - 10
		case c[i] == 'r':
			reverse = true
		}
	}

	switch {
	case column != -1 && row != -1:
		return []int{g.index(row, column)}
	case row != -1:
		out := make([]int, g.RowSize)
		for i := range out {
			col := i
			if reverse {
				col = g.RowSize - 1 - i
			}
			out[i] = g.index(row, col)
		}
		return out
	case column != -1:
		// bottom to top unless reversed
		out := make([]int, columns)
		for i := range out {
			r := columns - 1 - i
			if reverse {
				r = i
			}
			out[i] = g.index(r, column)
		}
		return out
	}
	return nil
}

func rectangle(c string, g Grid) []int {
	vertical := strings.Contains(c, "v")
	c = strings.ReplaceAll(c, "v", "")
	parts := strings.Split(c, "-")
	if len(parts) != 2 {
		return nil
	}
	s1 := PreferredPositions(parts[0], g)
	s2 := PreferredPositions(parts[1], g)
	if len(s1) != 1 || len(s2) != 1 {
		return nil
	}

	x1, y1 := s1[0]%g.RowSize, s1[0]/g.RowSize
	x2, y2 := s2[0]%g.RowSize, s2[0]/g.RowSize
	if vertical {
		x1, y1 = y1, x1
		x2, y2 = y2, x2
	}
	stepX, stepY := step(x1, x2), step(y1, y2)

	out := make([]int, 0, (abs(y2-y1)+1)*(abs(x2-x1)+1))
	for y := y1; ; y += stepY {
		for x := x1; ; x += stepX {
			if vertical {
				out = append(out, g.index(x, y))
			} else {
				out = append(out, g.index(y, x))
			}
			if x == x2 {
				break
			}
		}
		if y == y2 {
			break
		}
	}
	if strings.Contains(c, "r") {
		for i, j := 0, len(out)-1; i < j; i, j = i+1, j-1 {
			out[i], out[j] = out[j], out[i]
		}
	}
	return out
}

// SlotConstraint is the single-slot constraint ("d1") naming slot.
func SlotConstraint(slot int, g Grid) string {
	if g.RowSize <= 0 {
		return ""
	}
	return fmt.Sprintf("%c%d", 'a'+rune(slot/g.RowSize), slot%g.RowSize+1)
}

func digit36(b byte) int {
	switch {
	case b >= '0' && b <= '9':
		return int(b - '0')
	case b >= 'a' && b <= 'z':
		return int(b-'a') + 10
	}
	return -1
}

func step(from, to int) int {
	if from < to {
		return 1
	}
	return -1
}

func abs(v int) int {
	if v < 0 {
		return -v
	}
	return v
}
