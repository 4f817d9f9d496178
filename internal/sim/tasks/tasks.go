package tasks

import (
	"fmt"
	"sync"
)

type Kind string

const (
	KindRefill Kind = "REFILL"
)

// RefillTask is a deferred refill: move the stack in Source into Target
// (or swap them). It only records intent; the executor re-reads the
// container and drops the task if ExpectedID is no longer in Source.
type RefillTask struct {
	TaskID string
	Kind   Kind

	// When nothing was found for a tool about to break, Source is an
	// empty slot and the worn tool in Target is moved there.
	Source            int
	Target            int
	ExpectedID        string
	RefillBeforeBreak bool

	ScheduledTick uint64
}

// Queue runs tasks no earlier than the tick after they were scheduled.
// Tasks never repeat and are never retried.
type Queue struct {
	mu      sync.Mutex
	tick    uint64
	nextNum uint64
	pending []RefillTask
}

func NewQueue() *Queue { return &Queue{} }

func (q *Queue) newTaskIDLocked() string {
	q.nextNum++
	return fmt.Sprintf("T%06d", q.nextNum)
}

// Schedule stamps t with an id and the current tick and queues it.
func (q *Queue) Schedule(t RefillTask) RefillTask {
	q.mu.Lock()
	defer q.mu.Unlock()
	if t.TaskID == "" {
		t.TaskID = q.newTaskIDLocked()
	}
	if t.Kind == "" {
		t.Kind = KindRefill
	}
	t.ScheduledTick = q.tick
	q.pending = append(q.pending, t)
	return t
}

func (q *Queue) Tick() uint64 {
	q.mu.Lock()
	defer q.mu.Unlock()
	return q.tick
}

func (q *Queue) Len() int {
	q.mu.Lock()
	defer q.mu.Unlock()
	return len(q.pending)
}

// Advance moves to the next tick and hands back, in scheduling order,
// every task scheduled before it.
func (q *Queue) Advance() (uint64, []RefillTask) {
	q.mu.Lock()
	defer q.mu.Unlock()
	q.tick++
	var due, keep []RefillTask
	for _, t := range q.pending {
		if t.ScheduledTick < q.tick {
			due = append(due, t)
		} else {
			keep = append(keep, t)
		}
	}
	q.pending = keep
	return q.tick, due
}
