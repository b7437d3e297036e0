package service

import (
	"fmt"
	"strings"
	"time"

	"cloud.google.com/go/civil"

	"github.com/nhle/nowtask/internal/model"
	"github.com/nhle/nowtask/internal/recurrence"
)

// RecurrenceInput is one recurrence as the user enters it. Build expands it
// into stored rules.
type RecurrenceInput struct {
	Type  model.RecurrenceType
	Start civil.Date
	Step  int

	// Weekdays lists the days a Week recurrence repeats on. Empty means the
	// weekday of Start.
	Weekdays []time.Weekday

	// Week pins a WeekOfMonth recurrence to an ordinal week of the month.
	// Zero means the week Start falls in.
	Week int
}

// TaskFields are the user-editable fields of a task.
type TaskFields struct {
	Name string
	Note string

	DeadlineDate   *civil.Date
	DeadlineTime   *civil.Time
	StartAfterDate *civil.Date
	StartAfterTime *civil.Time
	ScheduledDate  *civil.Date
	ScheduledTime  *civil.Time

	CategoryID *string

	Recurrences []RecurrenceInput
}

// NewTaskForm is the input of Service.Create.
type NewTaskForm struct {
	TaskFields

	// ParentID optionally attaches the new task under an existing one.
	ParentID *string
}

// EditTaskForm is the input of Service.Update. Its recurrences replace the
// task's current rule set.
type EditTaskForm struct {
	ID string
	TaskFields
	Parent model.ParentChange
}

// Validate checks the fields without touching the store.
func (f TaskFields) Validate() error {
	if strings.TrimSpace(f.Name) == "" {
		return &model.ValidationError{Field: "name", Message: "must not be blank"}
	}
	hasDeadline := f.DeadlineDate != nil || f.DeadlineTime != nil
	isScheduled := f.ScheduledDate != nil || f.ScheduledTime != nil
	if hasDeadline && isScheduled {
		return &model.ValidationError{Field: "scheduled", Message: "a task cannot have both a deadline and a scheduled time"}
	}

	for i, r := range f.Recurrences {
		if !r.Type.Valid() {
			return &model.ValidationError{Field: "recurrence type", Message: fmt.Sprintf("unknown type %d", r.Type)}
		}
		if i > 0 && r.Type != f.Recurrences[0].Type {
			return &model.ValidationError{Field: "recurrence type", Message: "all rules of a task must share one type"}
		}
		if r.Step < 1 {
			return &model.ValidationError{Field: "step", Message: "must be at least 1"}
		}
		if r.Type == model.RecurrenceWeekOfMonth && r.Week != 0 && (r.Week < 1 || r.Week > 6) {
			return &model.ValidationError{Field: "week", Message: "must be between 1 and 6"}
		}
		for _, wd := range r.Weekdays {
			if wd < time.Sunday || wd > time.Saturday {
				return &model.ValidationError{Field: "weekday", Message: fmt.Sprintf("%d is not a weekday", wd)}
			}
		}
	}
	return nil
}

// Validate checks the form without touching the store.
func (f NewTaskForm) Validate() error {
	if f.ParentID != nil && strings.TrimSpace(*f.ParentID) == "" {
		return &model.ValidationError{Field: "parent", Message: "must not be blank"}
	}
	return f.TaskFields.Validate()
}

// Validate checks the form without touching the store.
func (f EditTaskForm) Validate() error {
	if strings.TrimSpace(f.ID) == "" {
		return &model.ValidationError{Field: "id", Message: "must not be blank"}
	}
	switch f.Parent.Action {
	case model.ParentKeep, model.ParentRemove:
	case model.ParentReplace:
		if strings.TrimSpace(f.Parent.ParentID) == "" {
			return &model.ValidationError{Field: "parent", Message: "must not be blank"}
		}
	default:
		return &model.ValidationError{Field: "parent", Message: fmt.Sprintf("unknown action %d", f.Parent.Action)}
	}
	return f.TaskFields.Validate()
}

// FieldsOf returns the editable fields of a stored task and its rules.
// Sibling Week rules are folded back into one input.
func FieldsOf(t model.Task, rules []model.TaskRecurrence) TaskFields {
	f := TaskFields{
		Name:           t.Name,
		Note:           t.Note,
		DeadlineDate:   t.DeadlineDate,
		DeadlineTime:   t.DeadlineTime,
		StartAfterDate: t.StartAfterDate,
		StartAfterTime: t.StartAfterTime,
		ScheduledDate:  t.ScheduledDate,
		ScheduledTime:  t.ScheduledTime,
		CategoryID:     t.CategoryID,
	}

	weekly := -1
	for _, r := range rules {
		switch r.Type {
		case model.RecurrenceWeek:
			if weekly < 0 {
				weekly = len(f.Recurrences)
				f.Recurrences = append(f.Recurrences, RecurrenceInput{Type: r.Type, Start: r.Start, Step: r.Step})
			}
			in := &f.Recurrences[weekly]
			in.Weekdays = append(in.Weekdays, recurrence.Weekday(r.Start))
			if r.Start.Before(in.Start) {
				in.Start = r.Start
			}
		case model.RecurrenceWeekOfMonth:
			f.Recurrences = append(f.Recurrences, RecurrenceInput{Type: r.Type, Start: r.Start, Step: r.Step, Week: r.Week})
		default:
			f.Recurrences = append(f.Recurrences, RecurrenceInput{Type: r.Type, Start: r.Start, Step: r.Step})
		}
	}
	return f
}

// defaults fills the fields a form may leave implicit. A scheduled date
// without a time takes defaultTime. On a one-off task, a deadline or
// scheduled time without a date falls on today.
func (f TaskFields) defaults(today civil.Date, defaultTime civil.Time) TaskFields {
	f.Name = strings.TrimSpace(f.Name)
	if f.ScheduledDate != nil && f.ScheduledTime == nil {
		t := defaultTime
		f.ScheduledTime = &t
	}
	if len(f.Recurrences) == 0 {
		if f.DeadlineTime != nil && f.DeadlineDate == nil {
			d := today
			f.DeadlineDate = &d
		}
		if f.ScheduledTime != nil && f.ScheduledDate == nil {
			d := today
			f.ScheduledDate = &d
		}
	}
	return f
}

func (f TaskFields) task() model.Task {
	return model.Task{
		Name:           f.Name,
		Note:           f.Note,
		DeadlineDate:   f.DeadlineDate,
		DeadlineTime:   f.DeadlineTime,
		StartAfterDate: f.StartAfterDate,
		StartAfterTime: f.StartAfterTime,
		ScheduledDate:  f.ScheduledDate,
		ScheduledTime:  f.ScheduledTime,
		CategoryID:     f.CategoryID,
	}
}

// BuildRules expands recurrence inputs into the rules stored for a task.
// Week inputs become one rule per weekday, each starting on its weekday.
// Every rule records the week of the month its start falls in unless a
// WeekOfMonth input pins one. Duplicate rules are dropped.
func BuildRules(inputs []RecurrenceInput, weekOf recurrence.WeekOfMonthFunc) []model.TaskRecurrence {
	var rules []model.TaskRecurrence
	add := func(r model.TaskRecurrence) {
		if !containsRule(rules, r) {
			rules = append(rules, r)
		}
	}

	for _, in := range inputs {
		switch in.Type {
		case model.RecurrenceWeek:
			weekdays := in.Weekdays
			if len(weekdays) == 0 {
				weekdays = []time.Weekday{recurrence.Weekday(in.Start)}
			}
			for _, r := range recurrence.AlignWeekly(in.Start, weekdays, in.Step) {
				r.Week = weekOf(r.Start)
				add(r)
			}
		case model.RecurrenceWeekOfMonth:
			r := recurrence.MonthlyByWeek(in.Start, in.Step, weekOf)
			if in.Week != 0 {
				r.Week = in.Week
			}
			add(r)
		default:
			add(model.TaskRecurrence{Start: in.Start, Type: in.Type, Step: in.Step, Week: weekOf(in.Start)})
		}
	}
	return rules
}

// diffRules returns the ids of existing rules missing from desired, and the
// desired rules missing from existing.
func diffRules(existing, desired []model.TaskRecurrence) (remove []string, add []model.TaskRecurrence) {
	for _, r := range existing {
		if !containsRule(desired, r) {
			remove = append(remove, r.ID)
		}
	}
	for _, r := range desired {
		if !containsRule(existing, r) {
			add = append(add, r)
		}
	}
	return remove, add
}

func containsRule(rules []model.TaskRecurrence, r model.TaskRecurrence) bool {
	for _, other := range rules {
		if other.SameRule(r) {
			return true
		}
	}
	return false
}
