package itemtree

import (
	"errors"
	"fmt"
	"io"
	"log"
	"sort"
	"strings"
	"sync"
)

var (
	ErrNoRoot        = errors.New("itemtree: no root category")
	ErrUnknownParent = errors.New("itemtree: unknown parent category")
)

// Tree is the category hierarchy used to resolve rule keywords against
// concrete items. Lookups of items the tree has never seen extend it with
// synthesized entries, so even reads take the write lock.
type Tree struct {
	mu sync.Mutex

	root       string
	version    string
	categories map[string]*Category
	byName     map[string][]*Item
	byID       map[string][]*Item

	highestOrder int
	aliases      []aliasRegistration

	logger *log.Logger
}

// New returns a tree holding only its root category.
func New(rootName string) *Tree {
	root := newCategory(rootName)
	return &Tree{
		root:       root.name,
		categories: map[string]*Category{root.name: root},
		byName:     map[string][]*Item{},
		byID:       map[string][]*Item{},
		logger:     log.New(io.Discard, "", 0),
	}
}

func (t *Tree) SetLogger(l *log.Logger) {
	if l == nil {
		return
	}
	t.mu.Lock()
	t.logger = l
	t.mu.Unlock()
}

func (t *Tree) logf(format string, args ...any) {
	if t.logger != nil {
		t.logger.Printf(format, args...)
	}
}

func (t *Tree) Version() string {
	t.mu.Lock()
	defer t.mu.Unlock()
	return t.version
}

func (t *Tree) SetVersion(v string) {
	t.mu.Lock()
	t.version = v
	t.mu.Unlock()
}

func (t *Tree) RootName() string {
	t.mu.Lock()
	defer t.mu.Unlock()
	return t.root
}

// Root returns nil for a tree that was not built with New.
func (t *Tree) Root() *Category {
	t.mu.Lock()
	defer t.mu.Unlock()
	return t.rootLocked()
}

func (t *Tree) rootLocked() *Category {
	if t.categories == nil {
		return nil
	}
	return t.categories[t.root]
}

func (t *Tree) Category(name string) *Category {
	t.mu.Lock()
	defer t.mu.Unlock()
	return t.categories[strings.ToLower(name)]
}

// HighestOrder is the largest order assigned so far.
func (t *Tree) HighestOrder() int {
	t.mu.Lock()
	defer t.mu.Unlock()
	return t.highestOrder
}

func (t *Tree) AddCategory(parent, name string) (*Category, error) {
	t.mu.Lock()
	defer t.mu.Unlock()
	p := t.categories[strings.ToLower(parent)]
	if p == nil {
		return nil, fmt.Errorf("%w: %q", ErrUnknownParent, parent)
	}
	c := newCategory(name)
	p.addCategory(c)
	t.categories[c.name] = c
	return c, nil
}

// AddItem copies it into the parent category and the name and id indexes.
func (t *Tree) AddItem(parent string, it Item) (*Item, error) {
	t.mu.Lock()
	defer t.mu.Unlock()
	return t.addItemLocked(strings.ToLower(parent), it)
}

func (t *Tree) addItemLocked(parent string, it Item) (*Item, error) {
	p := t.categories[parent]
	if p == nil {
		return nil, fmt.Errorf("%w: %q", ErrUnknownParent, parent)
	}
	stored := it
	stored.Name = strings.ToLower(it.Name)
	p.addItem(&stored)
	t.byName[stored.Name] = append(t.byName[stored.Name], &stored)
	t.byID[stored.ID] = append(t.byID[stored.ID], &stored)
	if stored.Order > t.highestOrder {
		t.highestOrder = stored.Order
	}
	return &stored, nil
}

func (t *Tree) IsKeywordValid(keyword string) bool {
	t.mu.Lock()
	defer t.mu.Unlock()
	keyword = strings.ToLower(keyword)
	if len(t.byName[keyword]) > 0 {
		return true
	}
	return t.categories[keyword] != nil
}

// Matches reports whether keyword names one of items, names a category
// containing one of them, or names the root.
func (t *Tree) Matches(items []*Item, keyword string) bool {
	if len(items) == 0 {
		return false
	}
	t.mu.Lock()
	defer t.mu.Unlock()
	keyword = strings.ToLower(keyword)
	for _, it := range items {
		if it != nil && it.Name == keyword {
			return true
		}
	}
	if c := t.categories[keyword]; c != nil {
		for _, it := range items {
			if c.Contains(it) {
				return true
			}
		}
	}
	return keyword == t.root
}

// Items resolves a concrete stack to tree entries. Extra data is only
// compared when extra is non-nil. The result is never empty: unknown
// stacks get a "<id>-<damage>" entry and an "<id>" wildcard entry appended
// to the root, ordered after everything already known.
func (t *Tree) Items(id string, damage int, extra map[string]any) []*Item {
	t.mu.Lock()
	defer t.mu.Unlock()

	var out []*Item
	for _, it := range t.byID[id] {
		if it.Damage != WildcardDamage && it.Damage != damage {
			continue
		}
		if extra != nil && !ExtraMatches(it.Extra, extra) {
			continue
		}
		out = append(out, it)
	}
	if len(out) > 0 {
		return out
	}

	if t.rootLocked() == nil {
		panic(ErrNoRoot)
	}
	order := t.highestOrder + 1
	specific, _ := t.addItemLocked(t.root, Item{
		Name:   fmt.Sprintf("%s-%d", id, damage),
		ID:     id,
		Damage: damage,
		Order:  order,
	})
	wildcard, _ := t.addItemLocked(t.root, Item{
		Name:   id,
		ID:     id,
		Damage: WildcardDamage,
		Order:  order,
	})
	t.logf("unknown item %s:%d added to %q", id, damage, t.root)
	return []*Item{specific, wildcard}
}

func (t *Tree) ItemsByName(name string) []*Item {
	t.mu.Lock()
	defer t.mu.Unlock()
	list := t.byName[strings.ToLower(name)]
	out := make([]*Item, len(list))
	copy(out, list)
	return out
}

func (t *Tree) IsItemUnknown(id string) bool {
	t.mu.Lock()
	defer t.mu.Unlock()
	return len(t.byID[id]) == 0
}

// KeywordDepth is 0 for the root, 1 for its direct items and one more
// per nesting level. Unknown keywords return -1.
func (t *Tree) KeywordDepth(keyword string) int {
	t.mu.Lock()
	defer t.mu.Unlock()
	root := t.rootLocked()
	if root == nil {
		t.logf("keyword depth of %q: %v", keyword, ErrNoRoot)
		return 0
	}
	return root.findDepth(strings.ToLower(keyword))
}

// KeywordOrder is the order of the first item with that name, else the
// order of the category with that name, else -1.
func (t *Tree) KeywordOrder(keyword string) int {
	t.mu.Lock()
	defer t.mu.Unlock()
	keyword = strings.ToLower(keyword)
	if items := t.byName[keyword]; len(items) > 0 {
		return items[0].Order
	}
	if c := t.categories[keyword]; c != nil {
		return c.Order()
	}
	return -1
}

// Keywords lists every item and category name, sorted.
func (t *Tree) Keywords() []string {
	t.mu.Lock()
	defer t.mu.Unlock()
	out := make([]string, 0, len(t.byName)+len(t.categories))
	for name := range t.byName {
		out = append(out, name)
	}
	for name := range t.categories {
		if _, dup := t.byName[name]; dup {
			continue
		}
		out = append(out, name)
	}
	sort.Strings(out)
	return out
}
