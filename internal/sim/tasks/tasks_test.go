package tasks

import "testing"

func TestQueue_RunsOnNextTick(t *testing.T) {
	q := NewQueue()
	a := q.Schedule(RefillTask{Source: 3, Target: 27, ExpectedID: "minecraft:stone"})
	if a.TaskID != "T000001" || a.Kind != KindRefill || a.ScheduledTick != 0 {
		t.Fatalf("scheduled=%+v", a)
	}

	tick, due := q.Advance()
	if tick != 1 || len(due) != 1 || due[0].TaskID != a.TaskID {
		t.Fatalf("tick=%d due=%+v", tick, due)
	}
	if q.Len() != 0 {
		t.Fatalf("task kept after running")
	}
	if _, due := q.Advance(); len(due) != 0 {
		t.Fatalf("task ran twice: %+v", due)
	}
}

func TestQueue_TaskScheduledDuringTickWaits(t *testing.T) {
	q := NewQueue()
	q.Advance()
	q.Schedule(RefillTask{Source: 1, Target: 28})
	q.Schedule(RefillTask{Source: 2, Target: 29})
	if q.Len() != 2 {
		t.Fatalf("len=%d", q.Len())
	}
	tick, due := q.Advance()
	if tick != 2 || len(due) != 2 || due[0].Source != 1 || due[1].Source != 2 {
		t.Fatalf("tick=%d due=%+v", tick, due)
	}
}
