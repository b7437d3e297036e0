package tasklist

import (
	"context"
	"errors"
	"testing"
	"time"

	"cloud.google.com/go/civil"
	tea "github.com/charmbracelet/bubbletea"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/nhle/nowtask/internal/keys"
	"github.com/nhle/nowtask/internal/model"
)

type fakeSource struct {
	queue    []model.Task
	items    []model.TaskItem
	err      error
	criteria model.TaskSearchCriteria
}

func (f *fakeSource) Queue(context.Context) ([]model.Task, error) {
	return f.queue, f.err
}

func (f *fakeSource) SearchItems(_ context.Context, c model.TaskSearchCriteria) ([]model.TaskItem, error) {
	f.criteria = c
	return f.items, f.err
}

func load(t *testing.T, m Model) Model {
	t.Helper()
	m, _ = m.Update(m.LoadTasks()())
	return m
}

func TestLoadTasks_Queue(t *testing.T) {
	src := &fakeSource{queue: []model.Task{{ID: "a", Name: "First"}, {ID: "b", Name: "Second"}}}
	m := load(t, New(src, keys.DefaultKeyMap(), 80, 20))

	it, ok := m.SelectedItem()
	require.True(t, ok)
	assert.Equal(t, "a", it.Task.ID)
	assert.Contains(t, m.View(), "Second")
}

func TestToggleList_SwitchesToSearchResults(t *testing.T) {
	done := time.Date(2024, 1, 7, 9, 0, 0, 0, time.UTC)
	src := &fakeSource{
		queue: []model.Task{{ID: "a", Name: "Queued"}},
		items: []model.TaskItem{{ID: "z", Name: "Finished", DoneAt: &done}},
	}
	m := load(t, New(src, keys.DefaultKeyMap(), 80, 20))

	m, cmd := m.Update(tea.KeyMsg{Type: tea.KeyTab})
	require.NotNil(t, cmd)
	assert.Equal(t, ModeAll, m.Mode())

	m, _ = m.Update(cmd())
	it, ok := m.SelectedItem()
	require.True(t, ok)
	assert.Equal(t, "z", it.Task.ID)
	assert.NotNil(t, it.DoneAt)
	assert.Empty(t, src.criteria.Name)
}

func TestLoadedMsgForOtherModeIgnored(t *testing.T) {
	src := &fakeSource{queue: []model.Task{{ID: "a", Name: "Queued"}}}
	m := New(src, keys.DefaultKeyMap(), 80, 20)

	m, _ = m.Update(TasksLoadedMsg{Mode: ModeAll, Items: []Item{{Task: model.Task{ID: "x"}}}})
	_, ok := m.SelectedItem()
	assert.False(t, ok)
}

func TestSearch_PassesQuery(t *testing.T) {
	src := &fakeSource{}
	m := New(src, keys.DefaultKeyMap(), 80, 20)

	cmd := m.Search("bank")
	m, _ = m.Update(cmd())

	assert.Equal(t, "bank", src.criteria.Name)
	assert.Equal(t, "bank", m.Query())
	assert.Contains(t, m.View(), "No matching tasks")
}

func TestEmptyState_ShowsLoadError(t *testing.T) {
	src := &fakeSource{err: errors.New("locked")}
	m := load(t, New(src, keys.DefaultKeyMap(), 80, 20))
	assert.Contains(t, m.View(), "locked")
}

func TestItem_Overdue(t *testing.T) {
	today := civil.Date{Year: 2024, Month: 1, Day: 8}
	yesterday := today.AddDays(-1)

	it := Item{Task: model.Task{DeadlineDate: &yesterday}}
	assert.True(t, it.Overdue(today))

	it.Task.DeadlineDate = &today
	assert.False(t, it.Overdue(today))

	now := time.Now()
	it = Item{Task: model.Task{DeadlineDate: &yesterday}, DoneAt: &now}
	assert.False(t, it.Overdue(today))
}

func TestRelativeTime(t *testing.T) {
	now := time.Date(2024, 1, 8, 12, 0, 0, 0, time.UTC)
	tests := []struct {
		ago  time.Duration
		want string
	}{
		{10 * time.Second, "just now"},
		{5 * time.Minute, "5m ago"},
		{3 * time.Hour, "3h ago"},
		{50 * time.Hour, "2d ago"},
		{15 * 24 * time.Hour, "2w ago"},
	}
	for _, tt := range tests {
		assert.Equal(t, tt.want, relativeTime(now.Add(-tt.ago), now))
	}
	assert.Empty(t, relativeTime(time.Time{}, now))
}
