package itemtree

import "strings"

// AliasEntry is one concrete item the host lists under a shared alias
// (ore-dictionary style names like "ingotIron").
type AliasEntry struct {
	ID     string
	Damage int
}

// AliasSource lists the items currently registered under an alias.
type AliasSource interface {
	AliasEntries(alias string) []AliasEntry
}

// AliasListener is notified when the host registers a new alias entry
// after the tree was built.
type AliasListener interface {
	AliasRegistered(alias string, e AliasEntry)
}

type aliasRegistration struct {
	category string
	name     string
	alias    string
	order    int
}

var _ AliasListener = (*Tree)(nil)

// RegisterAlias adds an item named name to category for every entry src
// knows under alias, and remembers the registration so later entries are
// added too.
func (t *Tree) RegisterAlias(category, name, alias string, order int, src AliasSource) error {
	t.mu.Lock()
	defer t.mu.Unlock()

	category = strings.ToLower(category)
	if t.categories[category] == nil {
		return ErrUnknownParent
	}
	if src != nil {
		for _, e := range src.AliasEntries(alias) {
			if _, err := t.addItemLocked(category, Item{Name: name, ID: e.ID, Damage: e.Damage, Order: order}); err != nil {
				return err
			}
		}
	}
	t.aliases = append(t.aliases, aliasRegistration{
		category: category,
		name:     name,
		alias:    alias,
		order:    order,
	})
	return nil
}

func (t *Tree) AliasRegistered(alias string, e AliasEntry) {
	t.mu.Lock()
	defer t.mu.Unlock()
	for _, reg := range t.aliases {
		if reg.alias != alias {
			continue
		}
		if _, err := t.addItemLocked(reg.category, Item{Name: reg.name, ID: e.ID, Damage: e.Damage, Order: reg.order}); err != nil {
			t.logf("alias %q: %v", alias, err)
		}
	}
}
