package service_test

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"cloud.google.com/go/civil"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/nhle/nowtask/internal/model"
	"github.com/nhle/nowtask/internal/schedule"
	"github.com/nhle/nowtask/internal/service"
	"github.com/nhle/nowtask/internal/store"
	"github.com/nhle/nowtask/tests/testutil"
)

// 2024-01-08 is a Monday.
var monday = time.Date(2024, 1, 8, 12, 0, 0, 0, time.UTC)

type clock struct {
	mu  sync.Mutex
	now time.Time
}

func (c *clock) Now() time.Time {
	c.mu.Lock()
	defer c.mu.Unlock()
	t := c.now
	c.now = c.now.Add(time.Second)
	return t
}

type countingNotifier struct {
	mu    sync.Mutex
	count int
}

func (n *countingNotifier) Notify() {
	n.mu.Lock()
	defer n.mu.Unlock()
	n.count++
}

func (n *countingNotifier) Count() int {
	n.mu.Lock()
	defer n.mu.Unlock()
	return n.count
}

type fixture struct {
	svc      *service.Service
	store    *store.SQLiteStore
	notifier *countingNotifier
}

func newFixture(t *testing.T) fixture {
	t.Helper()
	st := testutil.NewTestStore(t)
	n := &countingNotifier{}
	svc := service.New(st,
		service.WithClock((&clock{now: monday}).Now),
		service.WithNotifier(n),
		service.WithScheduleConfig(model.ScheduleConfig{
			FirstDayOfWeek:       "sunday",
			DefaultScheduledTime: "09:00",
		}),
	)
	return fixture{svc: svc, store: st, notifier: n}
}

func (f fixture) create(t *testing.T, form service.NewTaskForm) string {
	t.Helper()
	id, err := f.svc.Create(context.Background(), form)
	require.NoError(t, err)
	return id
}

func named(name string) service.NewTaskForm {
	return service.NewTaskForm{TaskFields: service.TaskFields{Name: name}}
}

func currentID(t *testing.T, svc *service.Service) string {
	t.Helper()
	current, err := svc.CurrentTask(context.Background())
	require.NoError(t, err)
	if current == nil {
		return ""
	}
	return current.ID
}

func date(y int, m time.Month, d int) *civil.Date {
	return &civil.Date{Year: y, Month: m, Day: d}
}

func TestCreate_AppliesDefaults(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()

	form := named("  dentist  ")
	form.ScheduledDate = date(2024, 1, 9)
	id := f.create(t, form)

	task, err := f.svc.GetTask(ctx, id)
	require.NoError(t, err)
	assert.Equal(t, "dentist", task.Name)
	require.NotNil(t, task.ScheduledTime)
	assert.Equal(t, civil.Time{Hour: 9}, *task.ScheduledTime)
	assert.WithinDuration(t, monday, task.CreatedAt, time.Minute)

	form = named("report")
	form.DeadlineTime = &civil.Time{Hour: 17}
	id = f.create(t, form)
	task, err = f.svc.GetTask(ctx, id)
	require.NoError(t, err)
	require.NotNil(t, task.DeadlineDate)
	assert.Equal(t, civil.Date{Year: 2024, Month: 1, Day: 8}, *task.DeadlineDate)

	form = named("standup")
	form.ScheduledTime = &civil.Time{Hour: 10}
	form.Recurrences = []service.RecurrenceInput{{Type: model.RecurrenceDay, Start: *date(2024, 1, 1), Step: 1}}
	id = f.create(t, form)
	task, err = f.svc.GetTask(ctx, id)
	require.NoError(t, err)
	assert.Nil(t, task.ScheduledDate, "recurring tasks keep a time-only schedule")

	assert.Equal(t, 3, f.notifier.Count())
}

func TestCreate_ValidationRejectsBeforeWriting(t *testing.T) {
	withRule := func(r service.RecurrenceInput) service.NewTaskForm {
		form := named("x")
		form.Recurrences = []service.RecurrenceInput{r}
		return form
	}
	both := named("x")
	both.DeadlineDate = date(2024, 1, 9)
	both.ScheduledDate = date(2024, 1, 9)
	mixed := named("x")
	mixed.Recurrences = []service.RecurrenceInput{
		{Type: model.RecurrenceDay, Start: *date(2024, 1, 1), Step: 1},
		{Type: model.RecurrenceYear, Start: *date(2024, 1, 1), Step: 1},
	}
	blankParent := named("x")
	empty := ""
	blankParent.ParentID = &empty

	tests := []struct {
		name  string
		form  service.NewTaskForm
		field string
	}{
		{"blank name", named("   "), "name"},
		{"deadline and scheduled", both, "scheduled"},
		{"zero step", withRule(service.RecurrenceInput{Type: model.RecurrenceDay, Start: *date(2024, 1, 1)}), "step"},
		{"week out of range", withRule(service.RecurrenceInput{Type: model.RecurrenceWeekOfMonth, Start: *date(2024, 1, 1), Step: 1, Week: 7}), "week"},
		{"unknown type", withRule(service.RecurrenceInput{Type: model.RecurrenceType(42), Start: *date(2024, 1, 1), Step: 1}), "recurrence type"},
		{"mixed types", mixed, "recurrence type"},
		{"bad weekday", withRule(service.RecurrenceInput{Type: model.RecurrenceWeek, Start: *date(2024, 1, 1), Step: 1, Weekdays: []time.Weekday{9}}), "weekday"},
		{"blank parent", blankParent, "parent"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			f := newFixture(t)
			_, err := f.svc.Create(context.Background(), tt.form)

			var verr *model.ValidationError
			require.ErrorAs(t, err, &verr)
			assert.Equal(t, tt.field, verr.Field)

			stats, err := f.svc.Stats(context.Background())
			require.NoError(t, err)
			assert.Zero(t, stats.Tasks)
			assert.Zero(t, f.notifier.Count())
		})
	}
}

func TestCreate_WeeklyRulesAlignedPerWeekday(t *testing.T) {
	f := newFixture(t)
	form := named("gym")
	form.Recurrences = []service.RecurrenceInput{{
		Type:     model.RecurrenceWeek,
		Start:    *date(2024, 1, 3),
		Step:     1,
		Weekdays: []time.Weekday{time.Monday, time.Friday, time.Monday},
	}}
	id := f.create(t, form)

	rules, err := f.svc.Recurrences(context.Background(), id)
	require.NoError(t, err)
	require.Len(t, rules, 2)
	assert.Equal(t, civil.Date{Year: 2024, Month: 1, Day: 5}, rules[0].Start)
	assert.Equal(t, civil.Date{Year: 2024, Month: 1, Day: 8}, rules[1].Start)

	next, ok, err := f.svc.NextDue(context.Background(), id)
	require.NoError(t, err)
	require.True(t, ok)
	assert.Equal(t, civil.Date{Year: 2024, Month: 1, Day: 8}, next)
}

func TestUpdate_DiffsRecurrences(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	weekly := func(days ...time.Weekday) []service.RecurrenceInput {
		return []service.RecurrenceInput{{Type: model.RecurrenceWeek, Start: *date(2024, 1, 1), Step: 1, Weekdays: days}}
	}

	form := named("gym")
	form.Recurrences = weekly(time.Monday)
	id := f.create(t, form)
	before, err := f.svc.Recurrences(ctx, id)
	require.NoError(t, err)
	require.Len(t, before, 1)

	edit := service.EditTaskForm{ID: id, TaskFields: service.TaskFields{Name: "gym", Recurrences: weekly(time.Monday, time.Wednesday)}}
	require.NoError(t, f.svc.Update(ctx, edit))
	after, err := f.svc.Recurrences(ctx, id)
	require.NoError(t, err)
	require.Len(t, after, 2)
	assert.Equal(t, before[0].ID, after[0].ID, "unchanged rule is kept")
	wednesday := after[1]
	assert.Equal(t, civil.Date{Year: 2024, Month: 1, Day: 3}, wednesday.Start)

	edit.Recurrences = weekly(time.Wednesday)
	require.NoError(t, f.svc.Update(ctx, edit))
	after, err = f.svc.Recurrences(ctx, id)
	require.NoError(t, err)
	require.Len(t, after, 1)
	assert.Equal(t, wednesday.ID, after[0].ID)

	edit.Recurrences = nil
	require.NoError(t, f.svc.Update(ctx, edit))
	after, err = f.svc.Recurrences(ctx, id)
	require.NoError(t, err)
	assert.Empty(t, after)
}

func TestUpdate_FieldsOfRoundTripKeepsRules(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()

	form := named("review")
	form.Note = "quarterly"
	form.Recurrences = []service.RecurrenceInput{{
		Type:     model.RecurrenceWeek,
		Start:    *date(2024, 1, 4),
		Step:     2,
		Weekdays: []time.Weekday{time.Tuesday, time.Thursday, time.Saturday},
	}}
	id := f.create(t, form)
	task, err := f.svc.GetTask(ctx, id)
	require.NoError(t, err)
	rules, err := f.svc.Recurrences(ctx, id)
	require.NoError(t, err)
	require.Len(t, rules, 3)

	fields := service.FieldsOf(*task, rules)
	assert.Equal(t, "quarterly", fields.Note)
	require.Len(t, fields.Recurrences, 1)
	assert.ElementsMatch(t, []time.Weekday{time.Tuesday, time.Thursday, time.Saturday}, fields.Recurrences[0].Weekdays)

	require.NoError(t, f.svc.Update(ctx, service.EditTaskForm{ID: id, TaskFields: fields}))
	after, err := f.svc.Recurrences(ctx, id)
	require.NoError(t, err)
	assert.Equal(t, rules, after)
}

func TestUpdate_ParentChanges(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	a := f.create(t, named("a"))
	b := f.create(t, named("b"))
	c := f.create(t, named("c"))

	edit := service.EditTaskForm{ID: c, TaskFields: service.TaskFields{Name: "c"},
		Parent: model.ParentChange{Action: model.ParentReplace, ParentID: a}}
	require.NoError(t, f.svc.Update(ctx, edit))
	parent, err := f.svc.Parent(ctx, c)
	require.NoError(t, err)
	require.NotNil(t, parent)
	assert.Equal(t, a, parent.ID)

	edit.Parent.ParentID = b
	require.NoError(t, f.svc.Update(ctx, edit))
	parent, err = f.svc.Parent(ctx, c)
	require.NoError(t, err)
	assert.Equal(t, b, parent.ID)

	edit.Parent = model.ParentChange{Action: model.ParentRemove}
	require.NoError(t, f.svc.Update(ctx, edit))
	parent, err = f.svc.Parent(ctx, c)
	require.NoError(t, err)
	assert.Nil(t, parent)

	notified := f.notifier.Count()
	err = f.svc.Update(ctx, service.EditTaskForm{ID: "missing", TaskFields: service.TaskFields{Name: "x"}})
	assert.ErrorIs(t, err, model.ErrNotFound)
	assert.Equal(t, notified, f.notifier.Count())
}

func TestMarkDoneUnmarkDoneSkip(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	a := f.create(t, named("a"))
	b := f.create(t, named("b"))
	assert.Equal(t, a, currentID(t, f.svc))

	require.NoError(t, f.svc.MarkDone(ctx, a))
	assert.Equal(t, b, currentID(t, f.svc))

	require.NoError(t, f.svc.UnmarkDone(ctx, a))
	assert.Equal(t, a, currentID(t, f.svc))

	require.NoError(t, f.svc.Skip(ctx, a))
	assert.Equal(t, b, currentID(t, f.svc))

	assert.ErrorIs(t, f.svc.UnmarkDone(ctx, b), model.ErrNotFound)
	assert.ErrorIs(t, f.svc.MarkDone(ctx, "missing"), model.ErrNotFound)

	stats, err := f.svc.Stats(ctx)
	require.NoError(t, err)
	assert.Equal(t, service.Stats{Tasks: 2, Completions: 0}, stats)
}

func TestCurrentTask_PrerequisiteComesFirst(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	child := f.create(t, named("child"))
	parent := f.create(t, named("parent"))
	assert.Equal(t, child, currentID(t, f.svc))

	require.NoError(t, f.svc.SetParent(ctx, child, parent))
	assert.Equal(t, parent, currentID(t, f.svc))

	queue, err := f.svc.Queue(ctx)
	require.NoError(t, err)
	require.Len(t, queue, 1)
	assert.Equal(t, parent, queue[0].ID)

	require.NoError(t, f.svc.MarkDone(ctx, parent))
	assert.Equal(t, child, currentID(t, f.svc))
}

func TestSetParent_Errors(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	a := f.create(t, named("a"))
	b := f.create(t, named("b"))
	c := f.create(t, named("c"))
	require.NoError(t, f.svc.SetParent(ctx, b, a))
	notified := f.notifier.Count()

	assert.True(t, model.IsCycleError(f.svc.SetParent(ctx, a, b)))
	assert.True(t, model.IsMultipleParentsError(f.svc.SetParent(ctx, b, c)))
	assert.Equal(t, notified, f.notifier.Count())

	require.NoError(t, f.svc.MoveTo(ctx, b, c))
	children, err := f.svc.Children(ctx, c)
	require.NoError(t, err)
	require.Len(t, children, 1)
	assert.Equal(t, b, children[0].ID)

	require.NoError(t, f.svc.RemoveParent(ctx, b))
	children, err = f.svc.Children(ctx, c)
	require.NoError(t, err)
	assert.Empty(t, children)
}

func TestDelete_PromotesChildren(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	top := f.create(t, named("top"))
	mid := f.create(t, service.NewTaskForm{TaskFields: service.TaskFields{Name: "mid"}, ParentID: &top})
	leaf := f.create(t, service.NewTaskForm{TaskFields: service.TaskFields{Name: "leaf"}, ParentID: &mid})

	require.NoError(t, f.svc.Delete(ctx, mid))

	parent, err := f.svc.Parent(ctx, leaf)
	require.NoError(t, err)
	require.NotNil(t, parent)
	assert.Equal(t, top, parent.ID)

	detail, err := f.svc.Detail(ctx, leaf)
	require.NoError(t, err)
	require.NotNil(t, detail.ParentName)
	assert.Equal(t, "top", *detail.ParentName)

	assert.ErrorIs(t, f.svc.Delete(ctx, mid), model.ErrNotFound)
}

func TestSearchItems_RecurringMatchesDueDate(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()

	weekly := named("water plants")
	weekly.ScheduledTime = &civil.Time{Hour: 8}
	weekly.Recurrences = []service.RecurrenceInput{{Type: model.RecurrenceWeek, Start: *date(2024, 1, 1), Step: 1}}
	plants := f.create(t, weekly)

	oneOff := named("call bank")
	oneOff.ScheduledDate = date(2024, 1, 15)
	f.create(t, oneOff)

	items, err := f.svc.SearchItems(ctx, model.TaskSearchCriteria{ScheduledDate: date(2024, 1, 15)})
	require.NoError(t, err)
	assert.Len(t, items, 2)

	items, err = f.svc.SearchItems(ctx, model.TaskSearchCriteria{Name: "water", ScheduledDate: date(2024, 1, 22)})
	require.NoError(t, err)
	require.Len(t, items, 1)
	assert.Equal(t, plants, items[0].ID)
	assert.True(t, items[0].Recurring)

	found, err := f.svc.Search(ctx, "bank")
	require.NoError(t, err)
	assert.Len(t, found, 1)
}

func TestSetScheduleConfig_MovesDayBoundary(t *testing.T) {
	f := newFixture(t)
	assert.Equal(t, civil.Date{Year: 2024, Month: 1, Day: 8}, f.svc.Params().Today)

	f.svc.SetScheduleConfig(model.ScheduleConfig{DayStartHour: 13})
	assert.Equal(t, civil.Date{Year: 2024, Month: 1, Day: 7}, f.svc.Params().Today)
	assert.Equal(t, 1, f.notifier.Count())
}

type brokenStore struct {
	store.Store
}

func (brokenStore) LoadSnapshot(context.Context) (schedule.Snapshot, error) {
	return schedule.Snapshot{}, errors.New("disk I/O error")
}

func TestCurrentTask_ReadFailureIsAnError(t *testing.T) {
	svc := service.New(brokenStore{Store: testutil.NewTestStore(t)})

	current, err := svc.CurrentTask(context.Background())
	assert.Nil(t, current)
	assert.ErrorContains(t, err, "disk I/O error")
}
