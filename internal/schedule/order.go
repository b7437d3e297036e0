package schedule

import (
	"sort"
	"time"

	"github.com/nhle/nowtask/internal/model"
)

// rankKey holds the precomputed sort keys of one task.
type rankKey struct {
	task       model.Task
	scheduled  *time.Time
	deadline   *time.Time
	recurring  bool
	startAfter *time.Time
}

func newRankKey(t model.Task, recurring bool, p CurrentTaskParams) rankKey {
	k := rankKey{task: t, recurring: recurring}
	if at, ok := p.instant(t.ScheduledDate, t.ScheduledTime, startOfDay); ok {
		k.scheduled = &at
	}
	if at, ok := p.instant(t.DeadlineDate, t.DeadlineTime, endOfDay); ok {
		k.deadline = &at
	} else if recurring {
		at := p.RecurringDeadline
		k.deadline = &at
	}
	if at, ok := p.instant(t.StartAfterDate, t.StartAfterTime, startOfDay); ok {
		k.startAfter = &at
	}
	return k
}

// compareInstants orders a before b, placing nil values last unless
// nilsFirst is set.
func compareInstants(a, b *time.Time, nilsFirst bool) int {
	switch {
	case a == nil && b == nil:
		return 0
	case a == nil:
		if nilsFirst {
			return -1
		}
		return 1
	case b == nil:
		if nilsFirst {
			return 1
		}
		return -1
	}
	return a.Compare(*b)
}

// less is the selection order: scheduled moment, effective deadline,
// one-off before recurring, start-after (unset first), creation time, id.
func (a rankKey) less(b rankKey) bool {
	if c := compareInstants(a.scheduled, b.scheduled, false); c != 0 {
		return c < 0
	}
	if c := compareInstants(a.deadline, b.deadline, false); c != 0 {
		return c < 0
	}
	if a.recurring != b.recurring {
		return !a.recurring
	}
	if c := compareInstants(a.startAfter, b.startAfter, true); c != 0 {
		return c < 0
	}
	if c := a.task.CreatedAt.Compare(b.task.CreatedAt); c != 0 {
		return c < 0
	}
	return a.task.ID < b.task.ID
}

func sortKeys(keys []rankKey) {
	sort.SliceStable(keys, func(i, j int) bool { return keys[i].less(keys[j]) })
}
