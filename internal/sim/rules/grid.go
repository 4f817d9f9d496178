package rules

import "sortcraft.ai/internal/sim/itemtree"

// Grid is the shape of a container: Size slots laid out in rows of RowSize.
type Grid struct {
	Size    int
	RowSize int
}

// InventoryGrid is the player inventory: rows a-c are the main area, row d
// is the hotbar.
var InventoryGrid = Grid{Size: 36, RowSize: 9}

func (g Grid) ColumnSize() int {
	if g.RowSize <= 0 {
		return 0
	}
	return g.Size / g.RowSize
}

// HotbarStart is the first index of the last row.
func (g Grid) HotbarStart() int { return g.Size - g.RowSize }

func (g Grid) index(row, column int) int { return row*g.RowSize + column }

// Tree is the part of the item tree rules resolve keywords against.
type Tree interface {
	RootName() string
	IsKeywordValid(keyword string) bool
	KeywordDepth(keyword string) int
	KeywordOrder(keyword string) int
	Keywords() []string
	Items(id string, damage int, extra map[string]any) []*itemtree.Item
	Matches(items []*itemtree.Item, keyword string) bool
}

var _ Tree = (*itemtree.Tree)(nil)
