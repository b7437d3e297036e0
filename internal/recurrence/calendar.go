package recurrence

import (
	"time"

	"cloud.google.com/go/civil"
)

// Weekday returns the day of the week d falls on.
func Weekday(d civil.Date) time.Weekday {
	return d.In(time.UTC).Weekday()
}

// DaysBetween returns the signed number of days from start to d.
func DaysBetween(start, d civil.Date) int {
	return d.DaysSince(start)
}

// WeeksBetween returns the number of whole weeks from start to d,
// truncated toward zero.
func WeeksBetween(start, d civil.Date) int {
	return DaysBetween(start, d) / 7
}

// MonthsBetween returns the calendar-month index difference from start
// to d. The day of month is not considered.
func MonthsBetween(start, d civil.Date) int {
	return (d.Year-start.Year)*12 + int(d.Month) - int(start.Month)
}

// YearsBetween returns the calendar-year difference from start to d.
func YearsBetween(start, d civil.Date) int {
	return d.Year - start.Year
}

// IsLeapYear reports whether year has a February 29.
func IsLeapYear(year int) bool {
	return year%4 == 0 && (year%100 != 0 || year%400 == 0)
}

// LastDayOfMonth returns the number of days in d's month.
func LastDayOfMonth(d civil.Date) int {
	// Day 0 of the next month normalizes to the last day of this one.
	return time.Date(d.Year, d.Month+1, 0, 0, 0, 0, 0, time.UTC).Day()
}

// WeekOfMonthFunc returns the ordinal week of the month d falls in.
// Which weekday starts a week is a locale decision, so callers supply it.
type WeekOfMonthFunc func(d civil.Date) int

// WeekOfMonth returns a WeekOfMonthFunc whose weeks begin on firstDay.
// Week 1 is the (possibly partial) week containing the first of the month.
func WeekOfMonth(firstDay time.Weekday) WeekOfMonthFunc {
	return func(d civil.Date) int {
		first := civil.Date{Year: d.Year, Month: d.Month, Day: 1}
		offset := (int(Weekday(first)) - int(firstDay) + 7) % 7
		return (d.Day-1+offset)/7 + 1
	}
}
