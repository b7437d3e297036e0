// Package recurrence decides whether a task's recurrence rules fall due on
// a calendar date. Everything here is pure: no clock, no locale, no I/O.
package recurrence

import (
	"time"

	"cloud.google.com/go/civil"

	"github.com/nhle/nowtask/internal/model"
)

// IsDue reports whether the rule set is due on date. week is the
// week-of-month of date as computed by the caller's WeekOfMonthFunc.
//
// The type of the set is taken from its first rule. Sibling rules (several
// weekdays of a Week rule, several week/weekday pairs of a WeekOfMonth
// rule) are unioned. An empty set is never due.
func IsDue(rules []model.TaskRecurrence, date civil.Date, week int) bool {
	if len(rules) == 0 {
		return false
	}
	kind := rules[0].Type
	for _, r := range rules {
		if r.Type != kind {
			continue
		}
		if RuleDue(r, date, week) {
			return true
		}
	}
	return false
}

// RuleDue evaluates a single rule. Dates before the rule's start and rules
// with a non-positive step are never due.
func RuleDue(r model.TaskRecurrence, date civil.Date, week int) bool {
	if r.Step < 1 || date.Before(r.Start) {
		return false
	}

	switch r.Type {
	case model.RecurrenceDay:
		return DaysBetween(r.Start, date)%r.Step == 0

	case model.RecurrenceWeek:
		return Weekday(date) == Weekday(r.Start) &&
			WeeksBetween(r.Start, date)%r.Step == 0

	case model.RecurrenceDayOfMonth:
		if MonthsBetween(r.Start, date)%r.Step != 0 {
			return false
		}
		if date.Day == r.Start.Day {
			return true
		}
		return r.Start.Day == LastDayOfMonth(r.Start) && date.Day == LastDayOfMonth(date)

	case model.RecurrenceWeekOfMonth:
		return MonthsBetween(r.Start, date)%r.Step == 0 &&
			Weekday(date) == Weekday(r.Start) &&
			r.Week == week

	case model.RecurrenceYear:
		if YearsBetween(r.Start, date)%r.Step != 0 || date.Month != r.Start.Month {
			return false
		}
		if date.Day == r.Start.Day {
			return true
		}
		return r.Start.Month == time.February && r.Start.Day == 29 &&
			date.Day == 28 && !IsLeapYear(date.Year)

	default:
		return false
	}
}

// IsDueOn is IsDue with the week-of-month computed by weekOf.
func IsDueOn(rules []model.TaskRecurrence, date civil.Date, weekOf WeekOfMonthFunc) bool {
	return IsDue(rules, date, weekOf(date))
}

// NextDue returns the first date on or after from that the rule set is due,
// looking at most limit days ahead.
func NextDue(rules []model.TaskRecurrence, from civil.Date, limit int, weekOf WeekOfMonthFunc) (civil.Date, bool) {
	for i := 0; i <= limit; i++ {
		d := from.AddDays(i)
		if IsDueOn(rules, d, weekOf) {
			return d, true
		}
	}
	return civil.Date{}, false
}
