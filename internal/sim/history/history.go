// Package history defines the records written for every sort and refill.
// The journal writes them as JSONL; the index keeps them queryable.
package history

import (
	"time"

	"sortcraft.ai/internal/sim/sorting"
	"sortcraft.ai/internal/sim/tasks"
)

type SortEntry struct {
	Tick           uint64 `json:"tick"`
	At             string `json:"at"`
	Ruleset        string `json:"ruleset,omitempty"`
	Section        string `json:"section"`
	Method         string `json:"method"`
	Moves          int    `json:"moves"`
	Passes         int    `json:"passes"`
	Converged      bool   `json:"converged"`
	Aborted        bool   `json:"aborted,omitempty"`
	DurationMicros int64  `json:"duration_us"`
	// Layout is the section after the sort, see encoding.EncodeLayout.
	Layout         string `json:"layout,omitempty"`
}

func NewSortEntry(tick uint64, at time.Time, r sorting.Result) SortEntry {
	return SortEntry{
		Tick:           tick,
		At:             at.UTC().Format(time.RFC3339Nano),
		Ruleset:        r.Ruleset,
		Section:        r.Section.String(),
		Method:         r.Method.String(),
		Moves:          r.Moves,
		Passes:         r.Passes,
		Converged:      r.Converged,
		Aborted:        r.Aborted,
		DurationMicros: r.Duration.Microseconds(),
	}
}

type RefillEntry struct {
	Tick          uint64 `json:"tick"`
	At            string `json:"at"`
	TaskID        string `json:"task_id"`
	Stage         string `json:"stage"`
	Source        int    `json:"source"`
	Target        int    `json:"target"`
	ExpectedID    string `json:"expected_id,omitempty"`
	BeforeBreak   bool   `json:"before_break,omitempty"`
	ScheduledTick uint64 `json:"scheduled_tick"`
}

func NewRefillEntry(tick uint64, at time.Time, t tasks.RefillTask, stage string) RefillEntry {
	return RefillEntry{
		Tick:          tick,
		At:            at.UTC().Format(time.RFC3339Nano),
		TaskID:        t.TaskID,
		Stage:         stage,
		Source:        t.Source,
		Target:        t.Target,
		ExpectedID:    t.ExpectedID,
		BeforeBreak:   t.RefillBeforeBreak,
		ScheduledTick: t.ScheduledTick,
	}
}
