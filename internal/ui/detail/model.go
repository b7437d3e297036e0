package detail

import (
	"fmt"
	"strings"

	"cloud.google.com/go/civil"
	"github.com/charmbracelet/bubbles/key"
	"github.com/charmbracelet/bubbles/viewport"
	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/lipgloss"

	"github.com/nhle/nowtask/internal/keys"
	"github.com/nhle/nowtask/internal/model"
	"github.com/nhle/nowtask/internal/recurrence"
	"github.com/nhle/nowtask/internal/service"
	"github.com/nhle/nowtask/internal/theme"
)

// BackMsg signals the parent to navigate back to the list view.
type BackMsg struct{}

// Page is everything the detail view shows about one task.
type Page struct {
	Detail   *model.TaskDetail
	Rules    []model.TaskRecurrence
	Children []model.Task
	NextDue  *civil.Date
}

// DetailLoadedMsg carries the loaded page.
type DetailLoadedMsg struct {
	Page *Page
	Err  error
}

// Action names a mutation the user asked for on the shown task.
type Action string

const (
	ActionDone   Action = "done"
	ActionUndo   Action = "undo"
	ActionSkip   Action = "skip"
	ActionEdit   Action = "edit"
	ActionDelete Action = "delete"
)

// ActionMsg signals the parent to execute an action on the current task.
type ActionMsg struct {
	Action Action
	TaskID string
}

// Model is the task detail view component.
type Model struct {
	page     *Page
	err      error
	viewport viewport.Model
	keys     *keys.KeyMap
	width    int
	height   int
	loading  bool
}

// New creates a new detail view model.
func New(keys *keys.KeyMap, width, height int) Model {
	vp := viewport.New(width, height-2)
	vp.Style = lipgloss.NewStyle()

	return Model{
		viewport: vp,
		keys:     keys,
		width:    width,
		height:   height,
	}
}

// Init returns the initial command for the detail view.
func (m Model) Init() tea.Cmd {
	return nil
}

// Update handles messages for the detail view.
func (m Model) Update(msg tea.Msg) (Model, tea.Cmd) {
	switch msg := msg.(type) {
	case DetailLoadedMsg:
		m.SetPage(msg.Page, msg.Err)
		return m, nil

	case tea.KeyMsg:
		if key.Matches(msg, m.keys.Back) {
			return m, func() tea.Msg { return BackMsg{} }
		}
		if action, ok := m.actionFor(msg); ok && m.CurrentID() != "" {
			id := m.CurrentID()
			return m, func() tea.Msg {
				return ActionMsg{Action: action, TaskID: id}
			}
		}
	}

	// Delegate to viewport for scrolling (j/k, up/down, pgup/pgdn)
	var cmd tea.Cmd
	m.viewport, cmd = m.viewport.Update(msg)
	return m, cmd
}

func (m Model) actionFor(msg tea.KeyMsg) (Action, bool) {
	switch {
	case key.Matches(msg, m.keys.Done):
		return ActionDone, true
	case key.Matches(msg, m.keys.Undo):
		return ActionUndo, true
	case key.Matches(msg, m.keys.Skip):
		return ActionSkip, true
	case key.Matches(msg, m.keys.Edit):
		return ActionEdit, true
	case key.Matches(msg, m.keys.Delete):
		return ActionDelete, true
	}
	return "", false
}

// View renders the detail view.
func (m Model) View() string {
	centered := lipgloss.NewStyle().
		Width(m.width).
		Height(m.height).
		Align(lipgloss.Center, lipgloss.Center).
		Foreground(theme.ColorGray)

	switch {
	case m.loading:
		return centered.Render("Loading task...")
	case m.err != nil:
		return centered.Render(theme.ErrorStyle.Render("Could not load task.") + "\n" + m.err.Error())
	case m.page == nil:
		return centered.Render("No task selected")
	}

	return m.viewport.View()
}

// renderContent builds the full detail content string for the viewport.
func (m Model) renderContent() string {
	if m.page == nil || m.page.Detail == nil {
		return ""
	}

	d := m.page.Detail
	var sections []string

	titleStyle := lipgloss.NewStyle().Bold(true).Foreground(theme.ColorWhite)
	title := titleStyle.Render(d.Name)
	if d.Recurring {
		title += theme.RecurringBadgeStyle.Render("  ↻ recurring")
	}
	sections = append(sections, title, "")

	metaStyle := lipgloss.NewStyle().Foreground(theme.ColorGray).Width(12)
	valStyle := lipgloss.NewStyle().Foreground(theme.ColorWhite)
	row := func(label, value string) {
		if value == "" {
			return
		}
		sections = append(sections, metaStyle.Render(label)+valStyle.Render(value))
	}

	row("ID:", d.ID)
	row("Created:", d.CreatedAt.Local().Format("2006-01-02 15:04"))
	row("Deadline:", service.FormatWhen(d.DeadlineDate, d.DeadlineTime))
	row("Start after:", service.FormatWhen(d.StartAfterDate, d.StartAfterTime))
	row("Scheduled:", service.FormatWhen(d.ScheduledDate, d.ScheduledTime))
	if d.CategoryName != nil {
		row("Category:", *d.CategoryName)
	}
	if d.ParentName != nil {
		row("After:", *d.ParentName)
	}
	if d.DoneAt != nil {
		row("Done:", d.DoneAt.Local().Format("2006-01-02 15:04"))
	}
	if len(m.page.Rules) > 0 {
		row("Repeats:", recurrence.Describe(m.page.Rules))
	}
	if m.page.NextDue != nil {
		row("Next due:", m.page.NextDue.String())
	}

	sepStyle := lipgloss.NewStyle().Foreground(theme.ColorSubtle)
	separator := sepStyle.Render(strings.Repeat("─", max(min(m.width-4, 80), 0)))
	sections = append(sections, "", separator, "")

	headerStyle := lipgloss.NewStyle().
		Bold(true).
		Foreground(theme.ColorWhite).
		MarginBottom(1)

	sections = append(sections, headerStyle.Render("Note"))
	note := d.Note
	if note == "" {
		note = lipgloss.NewStyle().
			Foreground(theme.ColorGray).
			Italic(true).
			Render("No note")
	}
	sections = append(sections, note)

	if len(m.page.Children) > 0 {
		sections = append(sections, "", separator, "")
		sections = append(sections, headerStyle.Render(
			fmt.Sprintf("Unlocks (%d)", len(m.page.Children)),
		))
		for _, c := range m.page.Children {
			sections = append(sections, "  • "+c.Name)
		}
	}

	return lipgloss.JoinVertical(lipgloss.Left, sections...)
}

// SetPage updates the task being displayed and re-renders the content.
func (m *Model) SetPage(page *Page, err error) {
	m.page = page
	m.err = err
	m.loading = false
	m.viewport.SetContent(m.renderContent())
	m.viewport.GotoTop()
}

// CurrentID returns the shown task's ID, or "" when nothing is shown.
func (m Model) CurrentID() string {
	if m.page == nil || m.page.Detail == nil {
		return ""
	}
	return m.page.Detail.ID
}

// SetLoading sets the loading state.
func (m *Model) SetLoading(loading bool) {
	m.loading = loading
}

// SetSize updates the detail view dimensions.
func (m *Model) SetSize(width, height int) {
	m.width = width
	m.height = height
	m.viewport.Width = width
	m.viewport.Height = height - 2
	m.viewport.SetContent(m.renderContent())
}
