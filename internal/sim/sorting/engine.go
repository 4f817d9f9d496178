// Package sorting rearranges one container section according to the
// active ruleset. An Engine works on the live Manager through the move
// primitive only and commits with a single Apply at the end.
package sorting

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log"
	"math"
	"time"

	"sortcraft.ai/internal/observe"
	"sortcraft.ai/internal/sim/container"
	"sortcraft.ai/internal/sim/rules"
	"sortcraft.ai/internal/sim/tuning"
)

var ErrEngineUsed = errors.New("sorting: engine already sorted")

// noSlot is the move primitive's failure result.
const noSlot = -1

// claimAll is the claim that no rule can outbid.
const claimAll = math.MaxInt

type Settings struct {
	AutoEquipArmor   bool
	InvertToolDamage bool
	// MaxDefaultPasses caps the fallback loop; hitting it is logged, not
	// returned as an error.
	MaxDefaultPasses int
}

func DefaultSettings() Settings {
	return Settings{
		AutoEquipArmor:   false,
		InvertToolDamage: true,
		MaxDefaultPasses: 50,
	}
}

func SettingsFromTuning(t tuning.Tuning) Settings {
	s := Settings{
		AutoEquipArmor:   t.EnableAutoEquipArmor,
		InvertToolDamage: t.InvertToolDamage,
		MaxDefaultPasses: t.MaxDefaultPasses,
	}
	if s.MaxDefaultPasses <= 0 {
		s.MaxDefaultPasses = DefaultSettings().MaxDefaultPasses
	}
	return s
}

type Option func(*Engine)

func WithLogger(l *log.Logger) Option {
	return func(e *Engine) {
		if l != nil {
			e.logger = l
		}
	}
}

func WithMetrics(m *observe.Metrics) Option {
	return func(e *Engine) { e.metrics = m }
}

func WithSettings(s Settings) Option {
	return func(e *Engine) {
		if s.MaxDefaultPasses <= 0 {
			s.MaxDefaultPasses = DefaultSettings().MaxDefaultPasses
		}
		e.settings = s
	}
}

// Result summarizes one Sort.
type Result struct {
	Method  Method
	Section container.Section
	Ruleset string

	// Moves counts successful Manager calls, including no-op merges of
	// full stacks.
	Moves     int
	Passes    int
	Converged bool
	// Aborted is set when a held stack could not be put down.
	Aborted  bool
	Duration time.Duration
}

// Engine sorts one section once. Build a new Engine per sort: the claim
// bookkeeping is only valid for the container state it was built from.
type Engine struct {
	mgr    container.Manager
	view   *container.View
	tree   rules.Tree
	policy container.Policy

	method   Method
	grid     rules.Grid
	ruleset  string
	settings Settings
	logger   *log.Logger
	metrics  *observe.Metrics

	size           int
	rules          []*rules.Rule
	lockPriorities []int
	frozenSlots    []bool
	rulePriority   []int
	keywordOrder   []int

	moves     int
	passes    int
	converged bool
	used      bool
}

// New prepares a sort of section. For the inventory section the method is
// always MethodInventory and locks, frozen slots and rules come from the
// current ruleset of cfg (which may be nil). Other sections have no locks;
// MethodHorizontal and MethodVertical replace the rules with line-sorting
// rules computed from the container content.
func New(mgr container.Manager, cfg *rules.Config, tree rules.Tree, policy container.Policy,
	section container.Section, method Method, rowSize int, opts ...Option) (*Engine, error) {
	if tree == nil || policy == nil {
		return nil, errors.New("sorting: tree and policy are required")
	}
	view, err := container.NewView(mgr, section)
	if err != nil {
		return nil, err
	}
	if rowSize <= 0 {
		return nil, fmt.Errorf("sorting: bad row size %d", rowSize)
	}
	size := view.Size()
	e := &Engine{
		mgr:            mgr,
		view:           view,
		tree:           tree,
		policy:         policy,
		method:         method,
		grid:           rules.Grid{Size: size, RowSize: rowSize},
		settings:       DefaultSettings(),
		logger:         log.New(io.Discard, "", 0),
		size:           size,
		lockPriorities: make([]int, size),
		frozenSlots:    make([]bool, size),
		rulePriority:   make([]int, size),
		keywordOrder:   make([]int, size),
	}
	for _, opt := range opts {
		opt(e)
	}

	if section == container.SectionInventory {
		e.method = MethodInventory
		if cfg != nil {
			e.rules = cfg.Rules()
			e.ruleset = cfg.CurrentName()
			copy(e.lockPriorities, cfg.LockPriorities())
			copy(e.frozenSlots, cfg.FrozenSlots())
		}
	} else if e.method == MethodHorizontal || e.method == MethodVertical {
		e.rules = e.lineSortingRules(e.method == MethodHorizontal)
	}

	for i := 0; i < size; i++ {
		e.rulePriority[i] = -1
		e.keywordOrder[i] = -1
		if st := view.Stack(i); !st.Empty() {
			e.keywordOrder[i] = e.itemOrder(st)
		}
	}

	// Stacks already sitting in a slot their rule prefers count as placed.
	for _, r := range e.rules {
		if r.ContainerSize() != size {
			continue
		}
		p := r.Priority()
		for _, slot := range r.PreferredSlots() {
			st := view.Stack(slot)
			if st.Empty() || e.rulePriority[slot] >= p {
				continue
			}
			if e.matches(st, r.Keyword()) {
				e.rulePriority[slot] = p
			}
		}
	}
	return e, nil
}

func (e *Engine) Method() Method { return e.method }

// Rules returns the rules the engine applies, in application order.
func (e *Engine) Rules() []*rules.Rule {
	out := make([]*rules.Rule, len(e.rules))
	copy(out, e.rules)
	return out
}

func (e *Engine) Sort(ctx context.Context) (Result, error) {
	res := Result{Method: e.method, Section: e.view.Section(), Ruleset: e.ruleset}
	if e.used {
		return res, ErrEngineUsed
	}
	if err := ctx.Err(); err != nil {
		return res, err
	}
	e.used = true
	start := time.Now()

	if !e.putHeldDown() {
		e.logger.Printf("sort %s: no room for the held stack, aborted", e.view.Section())
		res.Aborted = true
		res.Duration = time.Since(start)
		return res, nil
	}

	switch e.method {
	case MethodEvenStacks:
		e.sortEvenStacks()
		e.sortWithRules()
	case MethodInventory:
		e.sortInventory()
		e.sortWithRules()
	case MethodHorizontal, MethodVertical:
		e.sortWithRules()
	}
	e.defaultSorting()

	if !e.mgr.Held().Empty() {
		e.putHeldDown()
	}
	if err := e.view.Apply(); err != nil {
		return res, fmt.Errorf("sort %s: apply: %w", e.view.Section(), err)
	}

	res.Moves = e.moves
	res.Passes = e.passes
	res.Converged = e.converged
	res.Duration = time.Since(start)
	e.metrics.RecordSort(ctx, e.method.String(), e.view.Section().String(), res.Moves, res.Duration, res.Converged)
	e.logger.Printf("sort %s method=%s ruleset=%q moves=%d passes=%d in %s",
		e.view.Section(), e.method, e.ruleset, res.Moves, res.Passes, res.Duration)
	return res, nil
}

// putHeldDown drops the cursor stack into the first free inventory slot
// (or this section when the screen has no inventory). It reports false
// only when a stack is held and there is nowhere to put it.
func (e *Engine) putHeldDown() bool {
	if e.mgr.Held().Empty() {
		return true
	}
	section := container.SectionInventory
	if !e.mgr.HasSection(section) {
		section = e.view.Section()
	}
	var slot int
	if section == e.view.Section() {
		slot = e.firstFreeSlot()
	} else {
		slot = e.mgr.FirstEmpty(section)
	}
	if slot < 0 || !e.mgr.PutHeldDown(section, slot) {
		return false
	}
	e.moves++
	if section == e.view.Section() {
		e.refreshSlot(slot)
	}
	return true
}

// firstFreeSlot is the first empty slot that is not frozen.
func (e *Engine) firstFreeSlot() int {
	for i := 0; i < e.size; i++ {
		if !e.frozenSlots[i] && e.view.Stack(i).Empty() {
			return i
		}
	}
	return noSlot
}

// refreshSlot resets the bookkeeping of a slot changed behind the move
// primitive.
func (e *Engine) refreshSlot(i int) {
	e.rulePriority[i] = -1
	e.keywordOrder[i] = -1
	if st := e.view.Stack(i); !st.Empty() {
		e.keywordOrder[i] = e.itemOrder(st)
	}
}

func (e *Engine) matches(st container.Stack, keyword string) bool {
	return e.tree.Matches(e.tree.Items(st.ID, st.Damage, st.Extra), keyword)
}

func (e *Engine) itemOrder(st container.Stack) int {
	items := e.tree.Items(st.ID, st.Damage, st.Extra)
	if len(items) == 0 || items[0] == nil {
		return math.MaxInt
	}
	return items[0].Order
}
