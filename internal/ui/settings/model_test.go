package settings

import (
	"path/filepath"
	"testing"

	tea "github.com/charmbracelet/bubbletea"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/nhle/nowtask/internal/keys"
	"github.com/nhle/nowtask/internal/model"
)

func TestApply(t *testing.T) {
	base := model.DefaultAppConfig()
	fb := &formBindings{
		firstDay:    "monday",
		dayStart:    " 4 ",
		lead:        "15",
		defaultTime: "08:30",
		refresh:     "*/5 * * * *",
	}

	cfg, err := fb.apply(base)
	require.NoError(t, err)
	assert.Equal(t, "monday", cfg.Schedule.FirstDayOfWeek)
	assert.Equal(t, 4, cfg.Schedule.DayStartHour)
	assert.Equal(t, 15, cfg.Schedule.ScheduledLeadMinutes)
	assert.Equal(t, "08:30", cfg.Schedule.DefaultScheduledTime)
	assert.Equal(t, "*/5 * * * *", cfg.Schedule.RefreshCron)

	assert.Equal(t, "sunday", base.Schedule.FirstDayOfWeek, "base is not modified")
	assert.Equal(t, base.Database, cfg.Database)
}

func TestApply_Rejects(t *testing.T) {
	good := bindingsOf(model.DefaultAppConfig().Schedule)

	tests := []struct {
		name   string
		modify func(fb *formBindings)
	}{
		{"hour out of range", func(fb *formBindings) { fb.dayStart = "24" }},
		{"hour not a number", func(fb *formBindings) { fb.dayStart = "noon" }},
		{"negative lead", func(fb *formBindings) { fb.lead = "-5" }},
		{"bad clock", func(fb *formBindings) { fb.defaultTime = "9am" }},
		{"bad cron", func(fb *formBindings) { fb.refresh = "every minute" }},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			fb := *good
			tt.modify(&fb)
			_, err := fb.apply(model.DefaultAppConfig())
			assert.Error(t, err)
		})
	}
}

func TestBindingsOf_RoundTrip(t *testing.T) {
	s := model.DefaultAppConfig().Schedule
	s.FirstDayOfWeek = "Wednesday"
	s.ScheduledLeadMinutes = 10

	cfg, err := bindingsOf(s).apply(model.DefaultAppConfig())
	require.NoError(t, err)
	assert.Equal(t, "wednesday", cfg.Schedule.FirstDayOfWeek)
	assert.Equal(t, 10, cfg.Schedule.ScheduledLeadMinutes)
}

func TestSave_WritesFileAndReports(t *testing.T) {
	path := filepath.Join(t.TempDir(), "config.yaml")
	m := New(model.DefaultAppConfig(), path, keys.DefaultKeyMap(), 80, 24)

	cfg := model.DefaultAppConfig()
	cfg.Schedule.ScheduledLeadMinutes = 20
	m, cmd := m.Update(m.save(cfg)())
	require.NotNil(t, cmd)
	assert.Equal(t, ModeView, m.mode)
	assert.Contains(t, m.View(), "Saved to")

	saved, ok := cmd().(SavedMsg)
	require.True(t, ok)
	assert.Equal(t, 20, saved.Config.Schedule.ScheduledLeadMinutes)

	loaded, err := model.LoadConfig(path)
	require.NoError(t, err)
	assert.Equal(t, 20, loaded.Schedule.ScheduledLeadMinutes)
}

func TestEdit_WithoutPathIsReadOnly(t *testing.T) {
	m := New(nil, "", keys.DefaultKeyMap(), 80, 24)

	m, cmd := m.Update(tea.KeyMsg{Type: tea.KeyRunes, Runes: []rune("e")})
	assert.Nil(t, cmd)
	assert.False(t, m.Editing())
	assert.Contains(t, m.View(), "--config")
}

func TestEdit_OpensForm(t *testing.T) {
	path := filepath.Join(t.TempDir(), "config.yaml")
	m := New(model.DefaultAppConfig(), path, keys.DefaultKeyMap(), 80, 24)

	m, _ = m.Update(tea.KeyMsg{Type: tea.KeyRunes, Runes: []rune("e")})
	assert.True(t, m.Editing())
	assert.Equal(t, "sunday", m.fb.firstDay)

	m, _ = m.Update(tea.KeyMsg{Type: tea.KeyEsc})
	assert.False(t, m.Editing())
}
