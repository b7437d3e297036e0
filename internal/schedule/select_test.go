package schedule

import (
	"testing"
	"time"

	"cloud.google.com/go/civil"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/nhle/nowtask/internal/model"
	"github.com/nhle/nowtask/internal/recurrence"
)

// 2024-01-08 is a Monday.
var monday = time.Date(2024, 1, 8, 12, 0, 0, 0, time.UTC)

func paramsAt(now time.Time) CurrentTaskParams {
	return NewCurrentTaskParams(now, model.ScheduleConfig{}, recurrence.WeekOfMonth(time.Sunday))
}

func datePtr(y int, m time.Month, d int) *civil.Date {
	return &civil.Date{Year: y, Month: m, Day: d}
}

func clockPtr(h, m int) *civil.Time {
	return &civil.Time{Hour: h, Minute: m}
}

func newTask(id string, createdDay int) model.Task {
	return model.Task{
		ID:        id,
		Name:      id,
		CreatedAt: time.Date(2024, 1, createdDay, 8, 0, 0, 0, time.UTC),
	}
}

func weekly(taskID string, start civil.Date) model.TaskRecurrence {
	return model.TaskRecurrence{ID: taskID + "-r", TaskID: taskID, Start: start, Type: model.RecurrenceWeek, Step: 1}
}

func done(taskID string, at time.Time) model.TaskCompletion {
	return model.TaskCompletion{ID: taskID + at.String(), TaskID: taskID, DoneAt: at}
}

func selectedID(t *testing.T, in Snapshot, p CurrentTaskParams) string {
	t.Helper()
	current := SelectCurrent(in, p)
	if current == nil {
		return ""
	}
	return current.ID
}

func TestSelectCurrent_EmptySnapshot(t *testing.T) {
	assert.Nil(t, SelectCurrent(Snapshot{}, paramsAt(monday)))
}

func TestSelectCurrent_DeadlineOutranksCreationOrder(t *testing.T) {
	a := newTask("a", 1)
	b := newTask("b", 2)
	b.DeadlineDate = datePtr(2024, 1, 9)
	b.DeadlineTime = clockPtr(23, 59)

	in := Snapshot{Tasks: []model.Task{a, b}}
	assert.Equal(t, "b", selectedID(t, in, paramsAt(monday)))
}

func TestSelectCurrent_ParentBeforeChild(t *testing.T) {
	p := newTask("p", 5)
	c := newTask("c", 1)
	c.DeadlineDate = datePtr(2024, 1, 8)

	in := Snapshot{
		Tasks: []model.Task{p, c},
		Paths: []model.TaskPath{{Ancestor: "p", Descendant: "c", Depth: 1}},
	}
	assert.Equal(t, "p", selectedID(t, in, paramsAt(monday)))

	in.Completions = []model.TaskCompletion{done("p", monday.Add(-time.Hour))}
	assert.Equal(t, "c", selectedID(t, in, paramsAt(monday)))
}

func TestSelectCurrent_TopmostPendingAncestor(t *testing.T) {
	g := newTask("g", 3)
	p := newTask("p", 2)
	c := newTask("c", 1)

	in := Snapshot{
		Tasks: []model.Task{g, p, c},
		Paths: []model.TaskPath{
			{Ancestor: "g", Descendant: "p", Depth: 1},
			{Ancestor: "g", Descendant: "c", Depth: 2},
			{Ancestor: "p", Descendant: "c", Depth: 1},
		},
	}
	assert.Equal(t, "g", selectedID(t, in, paramsAt(monday)))

	in.Completions = []model.TaskCompletion{done("g", monday.Add(-time.Hour))}
	assert.Equal(t, "p", selectedID(t, in, paramsAt(monday)))
}

func TestSelectCurrent_UnreadyAncestorBlocksDescendant(t *testing.T) {
	p := newTask("p", 1)
	p.StartAfterDate = datePtr(2024, 1, 10)
	c := newTask("c", 2)

	in := Snapshot{
		Tasks: []model.Task{p, c},
		Paths: []model.TaskPath{{Ancestor: "p", Descendant: "c", Depth: 1}},
	}
	assert.Nil(t, SelectCurrent(in, paramsAt(monday)))
}

func TestSelectCurrent_RecurringAncestorNotDueIsResolved(t *testing.T) {
	p := newTask("p", 1)
	c := newTask("c", 2)

	in := Snapshot{
		Tasks: []model.Task{p, c},
		// Due on Tuesdays only.
		Recurrences: []model.TaskRecurrence{weekly("p", civil.Date{Year: 2024, Month: 1, Day: 2})},
		Completions: []model.TaskCompletion{done("p", monday.AddDate(0, 0, -6))},
		Paths:       []model.TaskPath{{Ancestor: "p", Descendant: "c", Depth: 1}},
	}
	assert.Equal(t, "c", selectedID(t, in, paramsAt(monday)))
}

func TestSelectCurrent_WeeklyCompletionHidesUntilNextInstance(t *testing.T) {
	r := newTask("r", 1)
	in := Snapshot{
		Tasks:       []model.Task{r},
		Recurrences: []model.TaskRecurrence{weekly("r", civil.Date{Year: 2024, Month: 1, Day: 1})},
		Completions: []model.TaskCompletion{done("r", time.Date(2024, 1, 8, 10, 0, 0, 0, time.UTC))},
	}

	assert.Nil(t, SelectCurrent(in, paramsAt(monday)), "done earlier today")
	assert.Nil(t, SelectCurrent(in, paramsAt(monday.AddDate(0, 0, 1))), "not due on tuesday")
	assert.Equal(t, "r", selectedID(t, in, paramsAt(monday.AddDate(0, 0, 7))), "due again next monday")
}

func TestSelectCurrent_OneOffBeforeRecurringOnTie(t *testing.T) {
	r := newTask("r", 1)
	o := newTask("o", 2)
	o.DeadlineDate = datePtr(2024, 1, 8)

	in := Snapshot{
		Tasks:       []model.Task{r, o},
		Recurrences: []model.TaskRecurrence{weekly("r", civil.Date{Year: 2024, Month: 1, Day: 1})},
	}
	assert.Equal(t, "o", selectedID(t, in, paramsAt(monday)))
}

func TestSelectCurrent_RecurringBeforeTasksWithoutDeadline(t *testing.T) {
	o := newTask("o", 1)
	r := newTask("r", 2)

	in := Snapshot{
		Tasks:       []model.Task{o, r},
		Recurrences: []model.TaskRecurrence{weekly("r", civil.Date{Year: 2024, Month: 1, Day: 1})},
	}
	assert.Equal(t, "r", selectedID(t, in, paramsAt(monday)))
}

func TestSelectCurrent_UngatedBeforeGatedOnTie(t *testing.T) {
	gated := newTask("gated", 1)
	gated.StartAfterDate = datePtr(2024, 1, 7)
	plain := newTask("plain", 2)

	in := Snapshot{Tasks: []model.Task{gated, plain}}
	assert.Equal(t, "plain", selectedID(t, in, paramsAt(monday)))

	ranked := Rank(in, paramsAt(monday))
	assert.Equal(t, "plain", ranked[0].ID)
}

func TestSelectCurrent_ScheduledFirst(t *testing.T) {
	urgent := newTask("urgent", 1)
	urgent.DeadlineDate = datePtr(2024, 1, 8)
	appt := newTask("appt", 2)
	appt.ScheduledDate = datePtr(2024, 1, 8)
	appt.ScheduledTime = clockPtr(11, 0)

	in := Snapshot{Tasks: []model.Task{urgent, appt}}
	assert.Equal(t, "appt", selectedID(t, in, paramsAt(monday)))
	assert.Equal(t, "urgent", selectedID(t, in, paramsAt(monday.Add(-2*time.Hour))))
}

func TestSelectCurrent_ScheduledTimeAppliesOnLaterDays(t *testing.T) {
	call := newTask("call", 1)
	call.ScheduledDate = datePtr(2024, 1, 7)
	call.ScheduledTime = clockPtr(15, 0)

	in := Snapshot{Tasks: []model.Task{call}}
	assert.Nil(t, SelectCurrent(in, paramsAt(monday)))
	assert.Equal(t, "call", selectedID(t, in, paramsAt(monday.Add(3*time.Hour))))
}

func TestSelectCurrent_CompletedTaskDropped(t *testing.T) {
	a := newTask("a", 1)
	b := newTask("b", 2)

	in := Snapshot{
		Tasks:       []model.Task{a, b},
		Completions: []model.TaskCompletion{done("a", monday.AddDate(0, 0, -3))},
	}
	assert.Equal(t, "b", selectedID(t, in, paramsAt(monday)))
}

func TestSelectCurrent_IsPure(t *testing.T) {
	p := newTask("p", 1)
	c := newTask("c", 2)
	c.DeadlineDate = datePtr(2024, 1, 9)
	r := newTask("r", 3)

	in := Snapshot{
		Tasks:       []model.Task{r, c, p},
		Recurrences: []model.TaskRecurrence{weekly("r", civil.Date{Year: 2024, Month: 1, Day: 1})},
		Skips:       []model.TaskSkip{{ID: "s", TaskID: "r", SkippedAt: monday.AddDate(0, 0, -1)}},
		Paths:       []model.TaskPath{{Ancestor: "p", Descendant: "c", Depth: 1}},
	}
	tasksBefore := append([]model.Task(nil), in.Tasks...)
	p1 := paramsAt(monday)

	first := SelectCurrent(in, p1)
	second := SelectCurrent(in, p1)

	require.NotNil(t, first)
	assert.Equal(t, first, second)
	assert.Equal(t, tasksBefore, in.Tasks)
}

func TestQueue_DedupesSharedAncestor(t *testing.T) {
	p := newTask("p", 3)
	c1 := newTask("c1", 1)
	c2 := newTask("c2", 2)
	other := newTask("other", 4)

	in := Snapshot{
		Tasks: []model.Task{p, c1, c2, other},
		Paths: []model.TaskPath{
			{Ancestor: "p", Descendant: "c1", Depth: 1},
			{Ancestor: "p", Descendant: "c2", Depth: 1},
		},
	}

	queue := Queue(in, paramsAt(monday))
	ids := make([]string, len(queue))
	for i, task := range queue {
		ids[i] = task.ID
	}
	assert.Equal(t, []string{"p", "other"}, ids)
}

func TestRank_CreatedAtThenID(t *testing.T) {
	a := newTask("a", 1)
	b := newTask("b", 1)
	c := newTask("c", 1)
	c.CreatedAt = c.CreatedAt.Add(-time.Minute)

	ranked := Rank(Snapshot{Tasks: []model.Task{b, a, c}}, paramsAt(monday))
	require.Len(t, ranked, 3)
	assert.Equal(t, []string{"c", "a", "b"}, []string{ranked[0].ID, ranked[1].ID, ranked[2].ID})
}

func TestTopmostUnresolvedAncestor(t *testing.T) {
	paths := []model.TaskPath{
		{Ancestor: "g", Descendant: "c", Depth: 2},
		{Ancestor: "p", Descendant: "c", Depth: 1},
		{Ancestor: "g", Descendant: "p", Depth: 1},
	}

	id, ok := TopmostUnresolvedAncestor(paths, "c", func(string) bool { return false })
	require.True(t, ok)
	assert.Equal(t, "g", id)

	id, ok = TopmostUnresolvedAncestor(paths, "c", func(a string) bool { return a == "g" })
	require.True(t, ok)
	assert.Equal(t, "p", id)

	_, ok = TopmostUnresolvedAncestor(paths, "c", func(string) bool { return true })
	assert.False(t, ok)

	_, ok = TopmostUnresolvedAncestor(paths, "g", func(string) bool { return false })
	assert.False(t, ok)
}

func TestNewCurrentTaskParams_DayStartHour(t *testing.T) {
	cfg := model.ScheduleConfig{DayStartHour: 4, ScheduledLeadMinutes: 30}
	now := time.Date(2024, 1, 8, 2, 0, 0, 0, time.UTC)

	p := NewCurrentTaskParams(now, cfg, recurrence.WeekOfMonth(time.Sunday))

	assert.Equal(t, civil.Date{Year: 2024, Month: 1, Day: 7}, p.Today)
	assert.Equal(t, time.Date(2024, 1, 7, 4, 0, 0, 0, time.UTC), p.DoneAfter)
	assert.Equal(t, p.DoneAfter, p.SkippedAfter)
	assert.Equal(t, time.Date(2024, 1, 8, 3, 59, 59, 999999999, time.UTC), p.RecurringDeadline)
	assert.Equal(t, 30*time.Minute, p.ScheduledLead)
	assert.Equal(t, 2, p.Week)
}
