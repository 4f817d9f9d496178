package container

import "reflect"

// Stack is the content of one slot. The zero value is an empty slot.
type Stack struct {
	ID     string         `json:"id,omitempty"`
	Damage int            `json:"damage,omitempty"`
	Count  int            `json:"count,omitempty"`
	Extra  map[string]any `json:"extra,omitempty"`
}

func (s Stack) Empty() bool { return s.ID == "" || s.Count <= 0 }

// SameItem reports whether both stacks hold the same item variant,
// ignoring count.
func (s Stack) SameItem(o Stack) bool {
	if s.Empty() || o.Empty() {
		return false
	}
	if s.ID != o.ID || s.Damage != o.Damage {
		return false
	}
	if len(s.Extra) == 0 && len(o.Extra) == 0 {
		return true
	}
	return reflect.DeepEqual(s.Extra, o.Extra)
}
