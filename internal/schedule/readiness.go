package schedule

import (
	"time"

	"cloud.google.com/go/civil"

	"github.com/nhle/nowtask/internal/model"
	"github.com/nhle/nowtask/internal/recurrence"
)

// IsReady reports whether task can be worked on now. recurrences,
// completions and skips must belong to task.
//
// Date and time-of-day gates are checked separately: a scheduled or
// start-after date must not be after today, and its time must not be after
// the current time of day. Scheduled times open ScheduledLead early. The
// latest skip must predate SkippedAfter. A non-recurring task is ready only
// while it has never been completed. A recurring task is ready when it has
// never been completed, or when it is due today and its latest completion
// predates DoneAfter.
func IsReady(
	task model.Task,
	recurrences []model.TaskRecurrence,
	completions []model.TaskCompletion,
	skips []model.TaskSkip,
	p CurrentTaskParams,
) bool {
	if !p.reached(task.ScheduledDate, task.ScheduledTime, p.ScheduledLead) {
		return false
	}
	if !p.reached(task.StartAfterDate, task.StartAfterTime, 0) {
		return false
	}
	if skipped := latestSkip(skips); skipped != nil && !skipped.Before(p.SkippedAfter) {
		return false
	}

	done := latestCompletion(completions)
	if len(recurrences) == 0 {
		return done == nil
	}
	if done == nil {
		return true
	}
	return recurrence.IsDue(recurrences, p.Today, p.Week) && done.Before(p.DoneAfter)
}

// IsPending reports whether task still blocks its descendants. A
// non-recurring task is pending until it is completed. A recurring task is
// pending when it is due today and today's instance has not been done.
func IsPending(
	task model.Task,
	recurrences []model.TaskRecurrence,
	completions []model.TaskCompletion,
	p CurrentTaskParams,
) bool {
	done := latestCompletion(completions)
	if len(recurrences) == 0 {
		return done == nil
	}
	return recurrence.IsDue(recurrences, p.Today, p.Week) &&
		(done == nil || done.Before(p.DoneAfter))
}

// isCandidate reports whether a task's own completion state lets it enter
// selection at all.
func isCandidate(recurring bool, done *time.Time, p CurrentTaskParams) bool {
	return done == nil || (recurring && done.Before(p.DoneAfter))
}

func latestCompletion(completions []model.TaskCompletion) *time.Time {
	var latest *time.Time
	for i := range completions {
		if latest == nil || completions[i].DoneAt.After(*latest) {
			latest = &completions[i].DoneAt
		}
	}
	return latest
}

func latestSkip(skips []model.TaskSkip) *time.Time {
	var latest *time.Time
	for i := range skips {
		if latest == nil || skips[i].SkippedAt.After(*latest) {
			latest = &skips[i].SkippedAt
		}
	}
	return latest
}

// reached reports whether an optional date and time-of-day gate is open. The
// date is compared with Today and the time with CurrentTime plus lead; a
// lead that runs past midnight opens every time of day.
func (p CurrentTaskParams) reached(d *civil.Date, t *civil.Time, lead time.Duration) bool {
	if d != nil && d.After(p.Today) {
		return false
	}
	if t != nil && sinceMidnight(*t) > sinceMidnight(p.CurrentTime)+lead {
		return false
	}
	return true
}

func sinceMidnight(t civil.Time) time.Duration {
	return time.Duration(t.Hour)*time.Hour +
		time.Duration(t.Minute)*time.Minute +
		time.Duration(t.Second)*time.Second +
		time.Duration(t.Nanosecond)
}
