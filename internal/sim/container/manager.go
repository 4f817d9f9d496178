package container

import (
	"errors"
	"fmt"
)

var ErrSectionUnavailable = errors.New("container: section unavailable")

type Section int

const (
	SectionInventory Section = iota + 1
	SectionCraftingIn
	SectionArmor
	SectionChest
)

func (s Section) String() string {
	switch s {
	case SectionInventory:
		return "inventory"
	case SectionCraftingIn:
		return "crafting_in"
	case SectionArmor:
		return "armor"
	case SectionChest:
		return "chest"
	}
	return fmt.Sprintf("section(%d)", int(s))
}

func ParseSection(s string) (Section, error) {
	switch s {
	case "inventory":
		return SectionInventory, nil
	case "crafting_in":
		return SectionCraftingIn, nil
	case "armor":
		return SectionArmor, nil
	case "chest":
		return SectionChest, nil
	}
	return 0, fmt.Errorf("unknown section %q", s)
}

// Manager is the host's view of an open container screen. Moves follow
// click semantics: into an empty slot the stack moves, onto the same item
// it merges up to the stack limit, otherwise the two stacks swap.
type Manager interface {
	HasSection(s Section) bool
	Size(s Section) int
	Stack(s Section, i int) Stack
	Move(fromSection Section, from int, toSection Section, to int) bool
	MoveSome(fromSection Section, from int, toSection Section, to int, amount int) bool
	// FirstEmpty returns -1 when the section is full.
	FirstEmpty(s Section) int
	CanHold(s Section, i int, st Stack) bool

	// Held is the stack attached to the cursor, if any.
	Held() Stack
	PutHeldDown(s Section, i int) bool

	// Apply commits the queued moves.
	Apply() error
}

// View is a single section of a Manager.
type View struct {
	m       Manager
	section Section
}

func NewView(m Manager, s Section) (*View, error) {
	if m == nil || !m.HasSection(s) {
		return nil, fmt.Errorf("%w: %s", ErrSectionUnavailable, s)
	}
	return &View{m: m, section: s}, nil
}

func (v *View) Manager() Manager  { return v.m }
func (v *View) Section() Section  { return v.section }
func (v *View) Size() int         { return v.m.Size(v.section) }
func (v *View) Stack(i int) Stack { return v.m.Stack(v.section, i) }
func (v *View) FirstEmpty() int   { return v.m.FirstEmpty(v.section) }
func (v *View) Apply() error      { return v.m.Apply() }

func (v *View) Move(from, to int) bool {
	return v.m.Move(v.section, from, v.section, to)
}

func (v *View) MoveSome(from, to, amount int) bool {
	return v.m.MoveSome(v.section, from, v.section, to, amount)
}
