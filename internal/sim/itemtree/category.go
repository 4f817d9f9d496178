package itemtree

import "strings"

// Category groups items and subcategories under a lower-cased name.
type Category struct {
	name     string
	order    int
	items    map[string][]*Item
	list     []*Item
	names    []string
	children []*Category
}

func newCategory(name string) *Category {
	return &Category{
		name:  strings.ToLower(name),
		order: -1,
		items: map[string][]*Item{},
	}
}

func (c *Category) Name() string { return c.name }

func (c *Category) Children() []*Category {
	out := make([]*Category, len(c.children))
	copy(out, c.children)
	return out
}

// Items returns the direct items of the category in insertion order.
func (c *Category) Items() []*Item {
	out := make([]*Item, len(c.list))
	copy(out, c.list)
	return out
}

func (c *Category) addCategory(child *Category) {
	c.children = append(c.children, child)
}

func (c *Category) addItem(it *Item) {
	c.items[it.ID] = append(c.items[it.ID], it)
	c.list = append(c.list, it)
	c.names = append(c.names, strings.ToLower(it.Name))
	if c.order == -1 || it.Order < c.order {
		c.order = it.Order
	}
}

// Contains reports whether it is covered by an item of this category or
// of any subcategory.
func (c *Category) Contains(it *Item) bool {
	if it == nil {
		return false
	}
	for _, stored := range c.items[it.ID] {
		if stored.Matches(it) {
			return true
		}
	}
	for _, child := range c.children {
		if child.Contains(it) {
			return true
		}
	}
	return false
}

// Order is the smallest order among direct items, else the order of the
// first subcategory that has one, else -1.
func (c *Category) Order() int {
	if c.order != -1 {
		return c.order
	}
	for _, child := range c.children {
		if o := child.Order(); o != -1 {
			return o
		}
	}
	return -1
}

// findOrder returns the order of the first item named keyword in this
// subtree, or -1.
func (c *Category) findOrder(keyword string) int {
	for _, it := range c.list {
		if it.Name == keyword {
			return it.Order
		}
	}
	for _, child := range c.children {
		if o := child.findOrder(keyword); o != -1 {
			return o
		}
	}
	return -1
}

// findDepth is 0 for the category itself, 1 for a direct item name and
// one more per nested level. -1 when absent.
func (c *Category) findDepth(keyword string) int {
	if c.name == keyword {
		return 0
	}
	for _, n := range c.names {
		if n == keyword {
			return 1
		}
	}
	for _, child := range c.children {
		if d := child.findDepth(keyword); d != -1 {
			return d + 1
		}
	}
	return -1
}
