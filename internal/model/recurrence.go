package model

import (
	"fmt"
	"strings"

	"cloud.google.com/go/civil"
)

// RecurrenceType is the closed set of recurrence rule kinds.
type RecurrenceType int

const (
	RecurrenceDay RecurrenceType = iota
	RecurrenceWeek
	RecurrenceDayOfMonth
	RecurrenceWeekOfMonth
	RecurrenceYear
)

// RecurrenceTypes lists every recurrence type in declaration order.
var RecurrenceTypes = []RecurrenceType{
	RecurrenceDay,
	RecurrenceWeek,
	RecurrenceDayOfMonth,
	RecurrenceWeekOfMonth,
	RecurrenceYear,
}

func (r RecurrenceType) String() string {
	switch r {
	case RecurrenceDay:
		return "day"
	case RecurrenceWeek:
		return "week"
	case RecurrenceDayOfMonth:
		return "day_of_month"
	case RecurrenceWeekOfMonth:
		return "week_of_month"
	case RecurrenceYear:
		return "year"
	default:
		return fmt.Sprintf("RecurrenceType(%d)", int(r))
	}
}

// Valid reports whether r is one of the declared recurrence types.
func (r RecurrenceType) Valid() bool {
	return r >= RecurrenceDay && r <= RecurrenceYear
}

// ParseRecurrenceType converts a name such as "week" or "day-of-month"
// into a RecurrenceType.
func ParseRecurrenceType(s string) (RecurrenceType, error) {
	normalized := strings.ReplaceAll(strings.ToLower(strings.TrimSpace(s)), "-", "_")
	for _, r := range RecurrenceTypes {
		if r.String() == normalized {
			return r, nil
		}
	}
	return 0, fmt.Errorf("unknown recurrence type %q", s)
}

// TaskRecurrence is one recurrence rule bound to a task.
//
// Week rules with several weekdays and WeekOfMonth rules with several
// week/weekday pairs are stored as sibling rules sharing Step. Rules are
// never edited in place; an edit deletes and re-inserts them.
type TaskRecurrence struct {
	ID     string         `json:"id" db:"id"`
	TaskID string         `json:"task_id" db:"task_id"`
	Start  civil.Date     `json:"start" db:"start"`
	Type   RecurrenceType `json:"type" db:"type"`
	Step   int            `json:"step" db:"step"`

	// Week is the ordinal week of the month. Only WeekOfMonth reads it.
	Week int `json:"week" db:"week"`
}

// SameRule reports whether two rules describe the same recurrence,
// ignoring identity.
func (r TaskRecurrence) SameRule(other TaskRecurrence) bool {
	return r.Start == other.Start &&
		r.Type == other.Type &&
		r.Step == other.Step &&
		r.Week == other.Week
}
