// Package schedule picks the one task the user should act on right now.
//
// Everything in this package is a pure function of its inputs. Callers load
// a Snapshot, build CurrentTaskParams from the clock, and re-run selection
// whenever either changes.
package schedule

import (
	"time"

	"cloud.google.com/go/civil"

	"github.com/nhle/nowtask/internal/model"
	"github.com/nhle/nowtask/internal/recurrence"
)

// CurrentTaskParams carries every time-dependent input of selection.
type CurrentTaskParams struct {
	// Now is the instant selection runs at.
	Now time.Time

	// Location interprets date and time-of-day task fields.
	Location *time.Location

	// Today is the date recurrence rules are evaluated on, and Week its
	// week of the month.
	Today civil.Date
	Week  int

	// CurrentTime is the local time of day of Now.
	CurrentTime civil.Time

	// ScheduledLead lets scheduled tasks become ready this long before
	// their scheduled moment.
	ScheduledLead time.Duration

	// DoneAfter is the re-due horizon: a completion before it no longer
	// covers today's instance of a recurring task.
	DoneAfter time.Time

	// SkippedAfter is the skip cooldown boundary: a skip before it no
	// longer hides the task.
	SkippedAfter time.Time

	// RecurringDeadline ranks recurring tasks that have no deadline.
	RecurringDeadline time.Time
}

// NewCurrentTaskParams derives selection parameters from now. The day used
// for recurrence, completion and skip horizons starts at cfg.DayStartHour.
func NewCurrentTaskParams(now time.Time, cfg model.ScheduleConfig, weekOf recurrence.WeekOfMonthFunc) CurrentTaskParams {
	loc := now.Location()
	dayStart := time.Date(now.Year(), now.Month(), now.Day(), cfg.DayStartHour, 0, 0, 0, loc)
	if now.Before(dayStart) {
		dayStart = dayStart.AddDate(0, 0, -1)
	}
	today := civil.DateOf(dayStart)
	dayEnd := dayStart.AddDate(0, 0, 1).Add(-time.Nanosecond)

	return CurrentTaskParams{
		Now:               now,
		Location:          loc,
		Today:             today,
		Week:              weekOf(today),
		CurrentTime:       civil.TimeOf(now),
		ScheduledLead:     cfg.ScheduledLead(),
		DoneAfter:         dayStart,
		SkippedAfter:      dayStart,
		RecurringDeadline: dayEnd,
	}
}

var (
	startOfDay = civil.Time{}
	endOfDay   = civil.Time{Hour: 23, Minute: 59, Second: 59, Nanosecond: 999999999}
)

// instant combines optional date and time-of-day parts into a local
// instant. A missing time takes defaultTime; a missing date anchors the time
// to the calendar day of Now. It reports false when both parts are missing.
func (p CurrentTaskParams) instant(d *civil.Date, t *civil.Time, defaultTime civil.Time) (time.Time, bool) {
	if d == nil && t == nil {
		return time.Time{}, false
	}
	day := civil.DateOf(p.Now.In(p.location()))
	if d != nil {
		day = *d
	}
	clock := defaultTime
	if t != nil {
		clock = *t
	}
	return civil.DateTime{Date: day, Time: clock}.In(p.location()), true
}

func (p CurrentTaskParams) location() *time.Location {
	if p.Location == nil {
		return time.Local
	}
	return p.Location
}
