package container

// ArmorInfo describes a wearable item: the armor slot it fits and its
// protection level.
type ArmorInfo struct {
	Slot  int
	Level int
}

// Policy answers the item questions the host knows and the sorter does not.
type Policy interface {
	MaxStackSize(id string) int
	// MaxDamage is 0 for items that do not wear out.
	MaxDamage(id string) int
	HasSubtypes(id string) bool
	Armor(id string) (ArmorInfo, bool)
}

func Damageable(p Policy, id string) bool { return p.MaxDamage(id) > 0 }

// Stackable reports whether a and b could share a slot.
func Stackable(p Policy, a, b Stack) bool {
	return a.SameItem(b) && p.MaxStackSize(a.ID) > 1
}

// CanMerge reports whether from can be (at least partly) merged into to.
func CanMerge(p Policy, from, to Stack) bool {
	if !Stackable(p, from, to) {
		return false
	}
	max := p.MaxStackSize(to.ID)
	return from.Count <= max && to.Count < max
}
