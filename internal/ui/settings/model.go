// Package settings is the view for editing the schedule configuration and
// writing it back to the config file.
package settings

import (
	"fmt"
	"strconv"
	"strings"
	"time"

	"github.com/charmbracelet/bubbles/key"
	"github.com/charmbracelet/bubbles/spinner"
	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/huh"
	"github.com/charmbracelet/lipgloss"

	"github.com/nhle/nowtask/internal/keys"
	"github.com/nhle/nowtask/internal/model"
	"github.com/nhle/nowtask/internal/theme"
	"github.com/nhle/nowtask/internal/watch"
)

// Mode represents the current state of the settings view.
type Mode int

const (
	ModeView   Mode = iota // Show the settings in effect
	ModeForm               // Editing
	ModeSaving             // Writing the config file
)

// CloseMsg signals the settings view should close.
type CloseMsg struct{}

// SavedMsg carries the configuration that was written to disk.
type SavedMsg struct {
	Config *model.AppConfig
}

type saveResultMsg struct {
	cfg *model.AppConfig
	err error
}

// formBindings holds the form values; huh writes through these pointers.
type formBindings struct {
	firstDay    string
	dayStart    string
	lead        string
	defaultTime string
	refresh     string
}

// Model is the Bubble Tea model for the settings view.
type Model struct {
	mode      Mode
	cfg       *model.AppConfig
	path      string
	keys      *keys.KeyMap
	form      *huh.Form
	fb        *formBindings
	spinner   spinner.Model
	statusMsg string
	width     int
	height    int
}

// New creates the settings view for cfg. Without a path the settings are
// shown but cannot be saved.
func New(cfg *model.AppConfig, path string, k *keys.KeyMap, width, height int) Model {
	sp := spinner.New()
	sp.Spinner = spinner.Dot
	sp.Style = lipgloss.NewStyle().Foreground(theme.ColorBlue)

	if cfg == nil {
		cfg = model.DefaultAppConfig()
	}
	return Model{
		mode:    ModeView,
		cfg:     cfg,
		path:    path,
		keys:    k,
		fb:      &formBindings{},
		spinner: sp,
		width:   width,
		height:  height,
	}
}

// Init returns the initial command.
func (m Model) Init() tea.Cmd {
	return nil
}

// Editing reports whether the form owns the keyboard.
func (m Model) Editing() bool {
	return m.mode != ModeView
}

// Config returns the configuration shown.
func (m Model) Config() *model.AppConfig {
	return m.cfg
}

// SetConfig replaces the configuration shown, e.g. after a reload.
func (m *Model) SetConfig(cfg *model.AppConfig) {
	if cfg != nil {
		m.cfg = cfg
	}
}

// Update handles messages.
func (m Model) Update(msg tea.Msg) (Model, tea.Cmd) {
	switch msg := msg.(type) {
	case tea.WindowSizeMsg:
		m.width = msg.Width
		m.height = msg.Height
		return m, nil

	case saveResultMsg:
		m.mode = ModeView
		if msg.err != nil {
			m.statusMsg = fmt.Sprintf("Error: %v", msg.err)
			return m, nil
		}
		m.cfg = msg.cfg
		m.statusMsg = "Saved to " + m.path
		cfg := msg.cfg
		return m, func() tea.Msg { return SavedMsg{Config: cfg} }

	case spinner.TickMsg:
		if m.mode == ModeSaving {
			var cmd tea.Cmd
			m.spinner, cmd = m.spinner.Update(msg)
			return m, cmd
		}
		return m, nil

	case tea.KeyMsg:
		return m.handleKey(msg)
	}

	if m.mode == ModeForm {
		return m.updateForm(msg)
	}
	return m, nil
}

func (m Model) handleKey(msg tea.KeyMsg) (Model, tea.Cmd) {
	switch m.mode {
	case ModeSaving:
		return m, nil
	case ModeForm:
		if key.Matches(msg, m.keys.Back) {
			m.mode = ModeView
			return m, nil
		}
		return m.updateForm(msg)
	}

	switch {
	case key.Matches(msg, m.keys.Back):
		return m, func() tea.Msg { return CloseMsg{} }
	case key.Matches(msg, m.keys.Edit), key.Matches(msg, m.keys.Select):
		if m.path == "" {
			m.statusMsg = "No config file; start nowtask with --config to save settings."
			return m, nil
		}
		m.fb = bindingsOf(m.cfg.Schedule)
		m.form = m.buildForm()
		m.mode = ModeForm
		m.statusMsg = ""
		return m, m.form.Init()
	}
	return m, nil
}

func bindingsOf(s model.ScheduleConfig) *formBindings {
	return &formBindings{
		firstDay:    strings.ToLower(s.FirstWeekday().String()),
		dayStart:    strconv.Itoa(s.DayStartHour),
		lead:        strconv.Itoa(s.ScheduledLeadMinutes),
		defaultTime: s.DefaultScheduledTime,
		refresh:     s.RefreshCron,
	}
}

func (m Model) buildForm() *huh.Form {
	var days []huh.Option[string]
	for d := time.Sunday; d <= time.Saturday; d++ {
		days = append(days, huh.NewOption(d.String(), strings.ToLower(d.String())))
	}

	return huh.NewForm(
		huh.NewGroup(
			huh.NewSelect[string]().
				Title("First day of week").
				Description("Decides which week of the month a date falls in").
				Options(days...).
				Value(&m.fb.firstDay),
			huh.NewInput().
				Title("Day starts at hour").
				Description("Completions and skips before this hour count for the previous day").
				Value(&m.fb.dayStart).
				Validate(validateHour),
			huh.NewInput().
				Title("Scheduled lead (minutes)").
				Description("Scheduled tasks become current this early").
				Value(&m.fb.lead).
				Validate(validateMinutes),
			huh.NewInput().
				Title("Default scheduled time").
				Description("Used for tasks scheduled on a date without a time").
				Placeholder("09:00").
				Value(&m.fb.defaultTime).
				Validate(validateClock),
			huh.NewInput().
				Title("Refresh schedule").
				Description("Cron expression for recomputing the current task").
				Placeholder("* * * * *").
				Value(&m.fb.refresh).
				Validate(watch.ValidateSchedule),
		),
	).WithWidth(m.formWidth()).WithHeight(m.formHeight())
}

func (m Model) updateForm(msg tea.Msg) (Model, tea.Cmd) {
	if m.form == nil {
		return m, nil
	}
	mdl, cmd := m.form.Update(msg)
	if f, ok := mdl.(*huh.Form); ok {
		m.form = f
	}

	switch m.form.State {
	case huh.StateCompleted:
		cfg, err := m.fb.apply(m.cfg)
		if err != nil {
			m.mode = ModeView
			m.statusMsg = fmt.Sprintf("Error: %v", err)
			return m, nil
		}
		m.mode = ModeSaving
		return m, tea.Batch(m.spinner.Tick, m.save(cfg))
	case huh.StateAborted:
		m.mode = ModeView
		return m, nil
	}
	return m, cmd
}

// apply returns a copy of base with the form values in its schedule.
func (fb *formBindings) apply(base *model.AppConfig) (*model.AppConfig, error) {
	cfg := *base
	s := &cfg.Schedule

	var err error
	s.FirstDayOfWeek = fb.firstDay
	if s.DayStartHour, err = strconv.Atoi(strings.TrimSpace(fb.dayStart)); err != nil {
		return nil, fmt.Errorf("day start hour: %q is not a number", fb.dayStart)
	}
	if s.ScheduledLeadMinutes, err = strconv.Atoi(strings.TrimSpace(fb.lead)); err != nil {
		return nil, fmt.Errorf("scheduled lead: %q is not a number", fb.lead)
	}
	s.DefaultScheduledTime = strings.TrimSpace(fb.defaultTime)
	s.RefreshCron = strings.TrimSpace(fb.refresh)

	if err := watch.ValidateSchedule(s.RefreshCron); err != nil {
		return nil, err
	}
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return &cfg, nil
}

func (m Model) save(cfg *model.AppConfig) tea.Cmd {
	path := m.path
	return func() tea.Msg {
		err := model.SaveConfig(path, cfg)
		return saveResultMsg{cfg: cfg, err: err}
	}
}

// View renders the settings view.
func (m Model) View() string {
	switch m.mode {
	case ModeForm:
		if m.form == nil {
			return ""
		}
		return lipgloss.NewStyle().Padding(1, 2).Render(m.form.View())
	case ModeSaving:
		return lipgloss.NewStyle().Padding(1, 2).Render(m.spinner.View() + " Saving settings...")
	}

	var b strings.Builder
	titleStyle := lipgloss.NewStyle().Bold(true).Foreground(theme.ColorWhite).MarginBottom(1)
	b.WriteString(titleStyle.Render("Settings"))
	b.WriteString("\n\n")

	labelStyle := lipgloss.NewStyle().Foreground(theme.ColorGray).Width(26)
	s := m.cfg.Schedule
	path := m.path
	if path == "" {
		path = "(none)"
	}
	for _, row := range []struct{ label, value string }{
		{"Config file", path},
		{"First day of week", s.FirstWeekday().String()},
		{"Day starts at", fmt.Sprintf("%02d:00", s.DayStartHour)},
		{"Scheduled lead", s.ScheduledLead().String()},
		{"Default scheduled time", s.DefaultScheduledTime},
		{"Refresh schedule", s.RefreshCron},
	} {
		b.WriteString(labelStyle.Render(row.label))
		b.WriteString(row.value)
		b.WriteString("\n")
	}

	if m.statusMsg != "" {
		b.WriteString("\n")
		b.WriteString(lipgloss.NewStyle().Foreground(theme.ColorYellow).Italic(true).Render(m.statusMsg))
	}

	b.WriteString("\n\n")
	b.WriteString(lipgloss.NewStyle().Foreground(theme.ColorGray).Render("e edit | esc back"))

	return lipgloss.NewStyle().Padding(1, 2).Width(m.width).Height(m.height).Render(b.String())
}

// SetSize updates dimensions.
func (m *Model) SetSize(width, height int) {
	m.width = width
	m.height = height
}

func (m Model) formWidth() int {
	return min(max(m.width-4, 40), 100)
}

func (m Model) formHeight() int {
	return max(m.height-4, 10)
}

func validateHour(s string) error {
	h, err := strconv.Atoi(strings.TrimSpace(s))
	if err != nil || h < 0 || h > 23 {
		return fmt.Errorf("enter an hour between 0 and 23")
	}
	return nil
}

func validateMinutes(s string) error {
	n, err := strconv.Atoi(strings.TrimSpace(s))
	if err != nil || n < 0 {
		return fmt.Errorf("enter a whole number of minutes")
	}
	return nil
}

func validateClock(s string) error {
	if _, err := time.Parse("15:04", strings.TrimSpace(s)); err != nil {
		return fmt.Errorf("use HH:MM")
	}
	return nil
}
