package itemtree

import "reflect"

// WildcardDamage matches any damage value of an item id.
const WildcardDamage = -1

// Item is a named leaf of the tree. Several items may share an id and
// differ by damage or extra data.
type Item struct {
	Name   string
	ID     string
	Damage int
	Extra  map[string]any
	Order  int
}

// Matches reports whether o is covered by this entry. The relation is
// asymmetric: a wildcard entry covers every damage, and every key of the
// entry's extra data must be present and equal in o.
func (it *Item) Matches(o *Item) bool {
	if it == nil || o == nil {
		return false
	}
	if it.ID != o.ID {
		return false
	}
	if !ExtraMatches(it.Extra, o.Extra) {
		return false
	}
	return it.Damage == WildcardDamage || it.Damage == o.Damage
}

// ExtraMatches reports whether want is a partial match of have: nested
// maps recurse, lists must contain every wanted element, anything else
// is compared deeply.
func ExtraMatches(want, have map[string]any) bool {
	if len(want) == 0 {
		return true
	}
	if have == nil {
		return false
	}
	for k, wv := range want {
		hv, ok := have[k]
		if !ok {
			return false
		}
		if !valueMatches(wv, hv) {
			return false
		}
	}
	return true
}

func valueMatches(want, have any) bool {
	switch w := want.(type) {
	case map[string]any:
		h, ok := have.(map[string]any)
		if !ok {
			return false
		}
		return ExtraMatches(w, h)
	case []any:
		h, ok := have.([]any)
		if !ok {
			return false
		}
		// every wanted element must appear somewhere in have
		for _, we := range w {
			found := false
			for _, he := range h {
				if valueMatches(we, he) {
					found = true
					break
				}
			}
			if !found {
				return false
			}
		}
		return true
	default:
		return reflect.DeepEqual(want, have)
	}
}
