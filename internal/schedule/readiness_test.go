package schedule

import (
	"testing"
	"time"

	"cloud.google.com/go/civil"
	"github.com/stretchr/testify/assert"

	"github.com/nhle/nowtask/internal/model"
)

func TestIsReady_Gates(t *testing.T) {
	base := newTask("t", 1)

	tests := []struct {
		name   string
		mutate func(*model.Task)
		skips  []model.TaskSkip
		lead   time.Duration
		want   bool
	}{
		{"no constraints", func(*model.Task) {}, nil, 0, true},
		{"scheduled later today", func(t *model.Task) {
			t.ScheduledDate = datePtr(2024, 1, 8)
			t.ScheduledTime = clockPtr(13, 0)
		}, nil, 0, false},
		{"scheduled within lead", func(t *model.Task) {
			t.ScheduledDate = datePtr(2024, 1, 8)
			t.ScheduledTime = clockPtr(13, 0)
		}, nil, 90 * time.Minute, true},
		{"scheduled yesterday afternoon", func(t *model.Task) {
			t.ScheduledDate = datePtr(2024, 1, 7)
			t.ScheduledTime = clockPtr(15, 0)
		}, nil, 0, false},
		{"scheduled yesterday morning", func(t *model.Task) {
			t.ScheduledDate = datePtr(2024, 1, 7)
			t.ScheduledTime = clockPtr(9, 0)
		}, nil, 0, true},
		{"scheduled yesterday, time within lead", func(t *model.Task) {
			t.ScheduledDate = datePtr(2024, 1, 7)
			t.ScheduledTime = clockPtr(12, 30)
		}, nil, time.Hour, true},
		{"scheduled tomorrow", func(t *model.Task) {
			t.ScheduledDate = datePtr(2024, 1, 9)
		}, nil, 0, false},
		{"scheduled time only, passed", func(t *model.Task) {
			t.ScheduledTime = clockPtr(9, 0)
		}, nil, 0, true},
		{"start after later today", func(t *model.Task) {
			t.StartAfterTime = clockPtr(18, 0)
		}, nil, 0, false},
		{"start after last week, time later today", func(t *model.Task) {
			t.StartAfterDate = datePtr(2024, 1, 1)
			t.StartAfterTime = clockPtr(18, 0)
		}, nil, 0, false},
		{"start after last week, time passed", func(t *model.Task) {
			t.StartAfterDate = datePtr(2024, 1, 1)
			t.StartAfterTime = clockPtr(8, 0)
		}, nil, 0, true},
		{"start after tomorrow", func(t *model.Task) {
			t.StartAfterDate = datePtr(2024, 1, 9)
		}, nil, 0, false},
		{"lead past midnight opens every time", func(t *model.Task) {
			t.ScheduledTime = clockPtr(23, 0)
		}, nil, 13 * time.Hour, true},
		{"start after today", func(t *model.Task) {
			t.StartAfterDate = datePtr(2024, 1, 8)
		}, nil, 0, true},
		{"skipped today", func(*model.Task) {}, []model.TaskSkip{
			{TaskID: "t", SkippedAt: time.Date(2024, 1, 8, 9, 0, 0, 0, time.UTC)},
		}, 0, false},
		{"skipped yesterday", func(*model.Task) {}, []model.TaskSkip{
			{TaskID: "t", SkippedAt: time.Date(2024, 1, 7, 22, 0, 0, 0, time.UTC)},
		}, 0, true},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			task := base
			tt.mutate(&task)
			p := paramsAt(monday)
			p.ScheduledLead = tt.lead
			assert.Equal(t, tt.want, IsReady(task, nil, nil, tt.skips, p))
		})
	}
}

func TestIsReady_CompletionState(t *testing.T) {
	task := newTask("t", 1)
	mondays := []model.TaskRecurrence{weekly("t", civil.Date{Year: 2024, Month: 1, Day: 1})}
	tuesdays := []model.TaskRecurrence{weekly("t", civil.Date{Year: 2024, Month: 1, Day: 2})}
	lastWeek := []model.TaskCompletion{done("t", monday.AddDate(0, 0, -7))}
	thisMorning := []model.TaskCompletion{done("t", monday.Add(-2*time.Hour))}
	p := paramsAt(monday)

	assert.True(t, IsReady(task, nil, nil, nil, p))
	assert.False(t, IsReady(task, nil, lastWeek, nil, p))

	assert.True(t, IsReady(task, mondays, nil, nil, p))
	assert.True(t, IsReady(task, mondays, lastWeek, nil, p))
	assert.False(t, IsReady(task, mondays, thisMorning, nil, p))

	assert.True(t, IsReady(task, tuesdays, nil, nil, p), "never completed")
	assert.False(t, IsReady(task, tuesdays, lastWeek, nil, p), "not due today")
}

func TestIsPending(t *testing.T) {
	task := newTask("t", 1)
	mondays := []model.TaskRecurrence{weekly("t", civil.Date{Year: 2024, Month: 1, Day: 1})}
	tuesdays := []model.TaskRecurrence{weekly("t", civil.Date{Year: 2024, Month: 1, Day: 2})}
	thisMorning := []model.TaskCompletion{done("t", monday.Add(-2*time.Hour))}
	p := paramsAt(monday)

	assert.True(t, IsPending(task, nil, nil, p))
	assert.False(t, IsPending(task, nil, thisMorning, p))
	assert.True(t, IsPending(task, mondays, nil, p))
	assert.False(t, IsPending(task, mondays, thisMorning, p))
	assert.False(t, IsPending(task, tuesdays, nil, p))
}
