package container

import "sync"

type MoveKind string

const (
	MoveWhole MoveKind = "move"
	MoveMerge MoveKind = "merge"
	MoveSwap  MoveKind = "swap"
	MoveSplit MoveKind = "split"
	MoveDrop  MoveKind = "drop"
)

// Move is one journaled slot mutation.
type Move struct {
	Kind        MoveKind `json:"kind"`
	FromSection Section  `json:"from_section"`
	From        int      `json:"from"`
	ToSection   Section  `json:"to_section"`
	To          int      `json:"to"`
	Count       int      `json:"count"`
}

// Memory is an in-process Manager. It applies moves immediately and keeps
// a journal of every successful mutation.
type Memory struct {
	mu sync.Mutex

	policy   Policy
	sections map[Section][]Stack
	held     Stack

	journal   []Move
	committed int
	applies   int
}

var _ Manager = (*Memory)(nil)

func NewMemory(p Policy) *Memory {
	return &Memory{policy: p, sections: map[Section][]Stack{}}
}

// SetSection installs a copy of slots as section s.
func (m *Memory) SetSection(s Section, slots []Stack) {
	m.mu.Lock()
	defer m.mu.Unlock()
	cp := make([]Stack, len(slots))
	copy(cp, slots)
	m.sections[s] = cp
}

// AddEmptySection installs a section of n empty slots.
func (m *Memory) AddEmptySection(s Section, n int) {
	m.SetSection(s, make([]Stack, n))
}

func (m *Memory) SetHeld(st Stack) {
	m.mu.Lock()
	m.held = st
	m.mu.Unlock()
}

func (m *Memory) Slots(s Section) []Stack {
	m.mu.Lock()
	defer m.mu.Unlock()
	cp := make([]Stack, len(m.sections[s]))
	copy(cp, m.sections[s])
	return cp
}

func (m *Memory) Sections() []Section {
	m.mu.Lock()
	defer m.mu.Unlock()
	var out []Section
	for _, s := range []Section{SectionInventory, SectionCraftingIn, SectionArmor, SectionChest} {
		if _, ok := m.sections[s]; ok {
			out = append(out, s)
		}
	}
	return out
}

func (m *Memory) Journal() []Move {
	m.mu.Lock()
	defer m.mu.Unlock()
	cp := make([]Move, len(m.journal))
	copy(cp, m.journal)
	return cp
}

// Pending is the number of journaled moves not yet applied.
func (m *Memory) Pending() int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return len(m.journal) - m.committed
}

func (m *Memory) Applies() int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.applies
}

func (m *Memory) HasSection(s Section) bool {
	m.mu.Lock()
	defer m.mu.Unlock()
	_, ok := m.sections[s]
	return ok
}

func (m *Memory) Size(s Section) int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return len(m.sections[s])
}

func (m *Memory) Stack(s Section, i int) Stack {
	m.mu.Lock()
	defer m.mu.Unlock()
	slots := m.sections[s]
	if i < 0 || i >= len(slots) {
		return Stack{}
	}
	return slots[i]
}

func (m *Memory) FirstEmpty(s Section) int {
	m.mu.Lock()
	defer m.mu.Unlock()
	for i, st := range m.sections[s] {
		if st.Empty() {
			return i
		}
	}
	return -1
}

func (m *Memory) CanHold(s Section, i int, st Stack) bool {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.canHoldLocked(s, i, st)
}

func (m *Memory) canHoldLocked(s Section, i int, st Stack) bool {
	if st.Empty() {
		return true
	}
	if s != SectionArmor {
		return true
	}
	info, ok := m.policy.Armor(st.ID)
	return ok && info.Slot == i
}

func (m *Memory) slot(s Section, i int) (*Stack, bool) {
	slots := m.sections[s]
	if i < 0 || i >= len(slots) {
		return nil, false
	}
	return &slots[i], true
}

func (m *Memory) Move(fs Section, from int, ts Section, to int) bool {
	m.mu.Lock()
	defer m.mu.Unlock()

	src, ok1 := m.slot(fs, from)
	dst, ok2 := m.slot(ts, to)
	if !ok1 || !ok2 || src.Empty() {
		return false
	}
	if fs == ts && from == to {
		return true
	}
	if !m.canHoldLocked(ts, to, *src) {
		return false
	}

	switch {
	case dst.Empty():
		n := src.Count
		*dst, *src = *src, Stack{}
		m.record(MoveWhole, fs, from, ts, to, n)
	case Stackable(m.policy, *src, *dst):
		n := min(src.Count, m.policy.MaxStackSize(dst.ID)-dst.Count)
		if n <= 0 {
			// full stack onto an identical full stack: nothing changes
			return true
		}
		dst.Count += n
		src.Count -= n
		if src.Count == 0 {
			*src = Stack{}
		}
		m.record(MoveMerge, fs, from, ts, to, n)
	default:
		if !m.canHoldLocked(fs, from, *dst) {
			return false
		}
		*src, *dst = *dst, *src
		m.record(MoveSwap, fs, from, ts, to, dst.Count)
	}
	return true
}

func (m *Memory) MoveSome(fs Section, from int, ts Section, to int, amount int) bool {
	m.mu.Lock()
	defer m.mu.Unlock()

	src, ok1 := m.slot(fs, from)
	dst, ok2 := m.slot(ts, to)
	if !ok1 || !ok2 || src.Empty() || amount <= 0 {
		return false
	}
	if fs == ts && from == to {
		return false
	}
	if !dst.Empty() && !Stackable(m.policy, *src, *dst) {
		return false
	}
	if !m.canHoldLocked(ts, to, *src) {
		return false
	}
	capacity := m.policy.MaxStackSize(src.ID) - dst.Count
	if dst.Empty() {
		capacity = m.policy.MaxStackSize(src.ID)
	}
	n := min(amount, src.Count, capacity)
	if n <= 0 {
		return false
	}
	if dst.Empty() {
		*dst = *src
		dst.Count = 0
	}
	dst.Count += n
	src.Count -= n
	if src.Count == 0 {
		*src = Stack{}
	}
	m.record(MoveSplit, fs, from, ts, to, n)
	return true
}

func (m *Memory) Held() Stack {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.held
}

func (m *Memory) PutHeldDown(s Section, i int) bool {
	m.mu.Lock()
	defer m.mu.Unlock()
	dst, ok := m.slot(s, i)
	if !ok || m.held.Empty() || !dst.Empty() || !m.canHoldLocked(s, i, m.held) {
		return false
	}
	*dst = m.held
	n := m.held.Count
	m.held = Stack{}
	m.record(MoveDrop, 0, -1, s, i, n)
	return true
}

func (m *Memory) Apply() error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.committed = len(m.journal)
	m.applies++
	return nil
}

func (m *Memory) record(kind MoveKind, fs Section, from int, ts Section, to int, n int) {
	m.journal = append(m.journal, Move{
		Kind:        kind,
		FromSection: fs,
		From:        from,
		ToSection:   ts,
		To:          to,
		Count:       n,
	})
}
