package refill

import (
	"context"
	"io"
	"log"

	"sortcraft.ai/internal/observe"
	"sortcraft.ai/internal/sim/container"
	"sortcraft.ai/internal/sim/tasks"
)

// Scheduler defers a task to a later tick.
type Scheduler interface {
	Schedule(t tasks.RefillTask) tasks.RefillTask
}

var _ Scheduler = (*tasks.Queue)(nil)

// Stage is where a task is in its life: every task is scheduled once and
// then ends as done, skipped or failed.
type Stage string

const (
	StageScheduled Stage = "scheduled"
	StageDone      Stage = "done"
	StageSkipped   Stage = "skipped"
	StageFailed    Stage = "failed"
)

type Option func(*Handler)

func WithLogger(l *log.Logger) Option {
	return func(h *Handler) {
		if l != nil {
			h.logger = l
		}
	}
}

func WithMetrics(m *observe.Metrics) Option {
	return func(h *Handler) { h.metrics = m }
}

// WithHook is called for every stage change, after metrics are recorded.
func WithHook(fn func(ctx context.Context, t tasks.RefillTask, stage Stage)) Option {
	return func(h *Handler) { h.hook = fn }
}

// Handler plans a refill when a slot runs out and runs the due tasks on
// later ticks.
type Handler struct {
	matcher *Matcher
	sched   Scheduler
	logger  *log.Logger
	metrics *observe.Metrics
	hook    func(context.Context, tasks.RefillTask, Stage)
}

func NewHandler(m *Matcher, sched Scheduler, opts ...Option) *Handler {
	h := &Handler{
		matcher: m,
		sched:   sched,
		logger:  log.New(io.Discard, "", 0),
	}
	for _, o := range opts {
		o(h)
	}
	return h
}

// OnSlotEmptied is called when slot of view just held id:damage and that
// stack ran out or is about to break. The returned task has been scheduled.
func (h *Handler) OnSlotEmptied(ctx context.Context, view *container.View, slot int, id string, damage int) (tasks.RefillTask, bool) {
	if !h.matcher.Enabled(id, damage) {
		return tasks.RefillTask{}, false
	}
	t, ok := h.matcher.Plan(view, slot, id, damage)
	if !ok {
		return tasks.RefillTask{}, false
	}
	t = h.sched.Schedule(t)
	h.record(ctx, t, StageScheduled)
	return t, true
}

// Run executes due tasks in order and returns how many moved something.
// Failed tasks are logged and dropped.
func (h *Handler) Run(ctx context.Context, view *container.View, due []tasks.RefillTask) int {
	hotbar := h.matcher.Grid().HotbarStart()
	done := 0
	for _, t := range due {
		if err := ctx.Err(); err != nil {
			return done
		}
		ok, err := Execute(view, t, hotbar)
		switch {
		case err != nil:
			h.logger.Printf("refill %s: %v", t.TaskID, err)
			h.record(ctx, t, StageFailed)
		case !ok:
			h.record(ctx, t, StageSkipped)
		default:
			done++
			h.record(ctx, t, StageDone)
		}
	}
	return done
}

func (h *Handler) record(ctx context.Context, t tasks.RefillTask, stage Stage) {
	h.metrics.RecordRefill(ctx, string(stage))
	if h.hook != nil {
		h.hook(ctx, t, stage)
	}
}
