package refill

import (
	"errors"
	"fmt"

	"sortcraft.ai/internal/sim/container"
	"sortcraft.ai/internal/sim/tasks"
)

var ErrMoveFailed = errors.New("refill: move failed")

// Execute carries out a planned refill. It reports false without error when
// the container changed since planning and the task no longer applies.
//
// The stack is moved into the target slot (falling back to moving the
// target onto the source, which swaps them). When the swap left something
// in a hotbar source slot, that stack is put away in the first empty slot
// so the hotbar does not fill up with worn tools.
func Execute(view *container.View, t tasks.RefillTask, hotbarStart int) (bool, error) {
	if t.Source < 0 || t.Source >= view.Size() || t.Target < 0 || t.Target >= view.Size() {
		return false, nil
	}
	src := view.Stack(t.Source)
	if !t.RefillBeforeBreak && (src.Empty() || src.ID != t.ExpectedID) {
		return false, nil
	}
	if !view.Move(t.Source, t.Target) && !view.Move(t.Target, t.Source) {
		return false, fmt.Errorf("%w: %s %d -> %d", ErrMoveFailed, t.TaskID, t.Source, t.Target)
	}
	if left := view.Stack(t.Source); !left.Empty() && t.Source >= hotbarStart {
		if free := view.FirstEmpty(); free != -1 {
			view.Move(t.Source, free)
		}
	}
	if err := view.Apply(); err != nil {
		return false, fmt.Errorf("refill apply %s: %w", t.TaskID, err)
	}
	return true, nil
}
