package model

import (
	"time"

	"cloud.google.com/go/civil"
)

// Task is one unit of work the user can act on.
//
// Date and time-of-day parts are independently optional. The scheduling
// algorithm treats deadline, start-after and scheduled fields as separate
// signals and tolerates any combination of them.
type Task struct {
	// ID is the opaque unique identifier assigned on creation.
	ID string `json:"id" db:"id"`

	// CreatedAt is when the task was created. It never changes.
	CreatedAt time.Time `json:"created_at" db:"created_at"`

	// Name is the non-blank label of the task.
	Name string `json:"name" db:"name"`

	// Note is optional free-form text.
	Note string `json:"note" db:"note"`

	// DeadlineDate and DeadlineTime describe when the task must be done by.
	DeadlineDate *civil.Date `json:"deadline_date,omitempty" db:"deadline_date"`
	DeadlineTime *civil.Time `json:"deadline_time,omitempty" db:"deadline_time"`

	// StartAfterDate and StartAfterTime gate the earliest moment the task
	// becomes ready.
	StartAfterDate *civil.Date `json:"start_after_date,omitempty" db:"start_after_date"`
	StartAfterTime *civil.Time `json:"start_after_time,omitempty" db:"start_after_time"`

	// ScheduledDate and ScheduledTime describe a fixed appointment.
	ScheduledDate *civil.Date `json:"scheduled_date,omitempty" db:"scheduled_date"`
	ScheduledTime *civil.Time `json:"scheduled_time,omitempty" db:"scheduled_time"`

	// CategoryID optionally groups the task under a category.
	CategoryID *string `json:"category_id,omitempty" db:"category_id"`
}

// HasDeadline reports whether any deadline part is set.
func (t Task) HasDeadline() bool {
	return t.DeadlineDate != nil || t.DeadlineTime != nil
}

// IsScheduled reports whether any scheduled part is set.
func (t Task) IsScheduled() bool {
	return t.ScheduledDate != nil || t.ScheduledTime != nil
}

// TaskDetail is the read projection shown on a task's detail page.
type TaskDetail struct {
	Task

	// Recurring is true when the task owns at least one recurrence rule.
	Recurring bool `json:"recurring"`

	// DoneAt is the latest completion, if any.
	DoneAt *time.Time `json:"done_at,omitempty"`

	// CategoryName is resolved from CategoryID.
	CategoryName *string `json:"category_name,omitempty"`

	// ParentID and ParentName describe the direct prerequisite, if any.
	ParentID   *string `json:"parent_id,omitempty"`
	ParentName *string `json:"parent_name,omitempty"`
}

// TaskItem is the compact projection used by search results.
type TaskItem struct {
	ID        string     `json:"id" db:"id"`
	Name      string     `json:"name" db:"name"`
	Recurring bool       `json:"recurring" db:"recurring"`
	DoneAt    *time.Time `json:"done_at,omitempty" db:"done_at"`
}

// TaskSearchCriteria narrows a task item search. Empty Name matches every
// task. A date criterion matches tasks whose field equals the date, or
// recurring tasks with a time part that recur on that date.
type TaskSearchCriteria struct {
	Name          string
	DeadlineDate  *civil.Date
	ScheduledDate *civil.Date
}

// Category is a named grouping of tasks.
type Category struct {
	ID        string    `json:"id" db:"id"`
	Name      string    `json:"name" db:"name"`
	CreatedAt time.Time `json:"created_at" db:"created_at"`
}

// ParentAction says what an update does to a task's direct parent.
type ParentAction int

const (
	// ParentKeep leaves the current parent edge untouched.
	ParentKeep ParentAction = iota
	// ParentRemove detaches the task from its parent.
	ParentRemove
	// ParentReplace re-parents the task under ParentChange.ParentID.
	ParentReplace
)

// ParentChange pairs a ParentAction with its target parent.
type ParentChange struct {
	Action   ParentAction
	ParentID string
}
