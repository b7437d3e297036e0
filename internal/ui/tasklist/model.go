package tasklist

import (
	"context"
	"time"

	"github.com/charmbracelet/bubbles/key"
	"github.com/charmbracelet/bubbles/list"
	"github.com/charmbracelet/bubbles/textinput"
	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/lipgloss"

	"github.com/nhle/nowtask/internal/keys"
	"github.com/nhle/nowtask/internal/model"
	"github.com/nhle/nowtask/internal/theme"
)

// Source is what the list reads tasks from.
type Source interface {
	Queue(ctx context.Context) ([]model.Task, error)
	SearchItems(ctx context.Context, criteria model.TaskSearchCriteria) ([]model.TaskItem, error)
}

// Mode selects which tasks the list shows.
type Mode int

const (
	// ModeQueue lists every task that is ready now, best first.
	ModeQueue Mode = iota
	// ModeAll lists every task matching the search query by name.
	ModeAll
)

func (m Mode) String() string {
	if m == ModeAll {
		return "All tasks"
	}
	return "Queue"
}

// TasksLoadedMsg is sent when tasks have been loaded.
type TasksLoadedMsg struct {
	Mode  Mode
	Items []Item
	At    time.Time
	Err   error
}

// SelectedTaskMsg is sent when a user selects a task to view details.
type SelectedTaskMsg struct {
	TaskID string
}

// Model is the task list view component.
type Model struct {
	list        list.Model
	source      Source
	keys        *keys.KeyMap
	mode        Mode
	query       string
	searchMode  bool
	searchInput textinput.Model
	now         *time.Time
	err         error
	width       int
	height      int
}

// New creates a new task list model.
func New(s Source, k *keys.KeyMap, width, height int) Model {
	now := new(time.Time)
	l := list.New([]list.Item{}, ItemDelegate{now: now}, width, height-2)
	l.Title = ModeQueue.String()
	l.SetShowStatusBar(true)
	l.SetShowHelp(false)
	l.SetFilteringEnabled(false)
	l.Styles.Title = theme.HeaderStyle

	si := textinput.New()
	si.Placeholder = "search tasks..."
	si.Prompt = "/ "
	si.Width = width - 4

	return Model{
		list:        l,
		source:      s,
		keys:        k,
		searchInput: si,
		now:         now,
		width:       width,
		height:      height,
	}
}

// Init returns a command that loads the initial set of tasks.
func (m Model) Init() tea.Cmd {
	return m.LoadTasks()
}

// Update handles messages for the task list view.
func (m Model) Update(msg tea.Msg) (Model, tea.Cmd) {
	switch msg := msg.(type) {
	case TasksLoadedMsg:
		if msg.Mode != m.mode {
			return m, nil
		}
		m.err = msg.Err
		*m.now = msg.At
		items := make([]list.Item, len(msg.Items))
		for i, it := range msg.Items {
			items[i] = it
		}
		return m, m.list.SetItems(items)

	case tea.KeyMsg:
		if m.searchMode {
			return m.handleSearchKeys(msg)
		}
		return m.handleNormalKeys(msg)
	}

	var cmd tea.Cmd
	m.list, cmd = m.list.Update(msg)
	return m, cmd
}

// handleSearchKeys processes key input while in search mode.
func (m Model) handleSearchKeys(msg tea.KeyMsg) (Model, tea.Cmd) {
	switch msg.String() {
	case "enter":
		m.searchMode = false
		m.query = m.searchInput.Value()
		return m, m.LoadTasks()

	case "esc":
		m.searchMode = false
		m.searchInput.Reset()
		m.query = ""
		return m, m.LoadTasks()
	}

	var cmd tea.Cmd
	m.searchInput, cmd = m.searchInput.Update(msg)
	return m, cmd
}

// handleNormalKeys processes key input in normal (non-search) mode.
func (m Model) handleNormalKeys(msg tea.KeyMsg) (Model, tea.Cmd) {
	switch {
	case key.Matches(msg, m.keys.Select):
		it, ok := m.SelectedItem()
		if !ok {
			return m, nil
		}
		return m, func() tea.Msg {
			return SelectedTaskMsg{TaskID: it.Task.ID}
		}

	case key.Matches(msg, m.keys.Search):
		m.setMode(ModeAll)
		m.searchMode = true
		m.searchInput.Reset()
		return m, m.searchInput.Focus()

	case key.Matches(msg, m.keys.ToggleList):
		if m.mode == ModeQueue {
			m.setMode(ModeAll)
		} else {
			m.setMode(ModeQueue)
		}
		return m, m.LoadTasks()
	}

	var cmd tea.Cmd
	m.list, cmd = m.list.Update(msg)
	return m, cmd
}

func (m *Model) setMode(mode Mode) {
	m.mode = mode
	m.list.Title = mode.String()
	if mode == ModeQueue {
		m.query = ""
	}
}

// SetMode switches the list and reloads it.
func (m *Model) SetMode(mode Mode) tea.Cmd {
	m.setMode(mode)
	return m.LoadTasks()
}

// Search lists every task whose name contains query.
func (m *Model) Search(query string) tea.Cmd {
	m.setMode(ModeAll)
	m.query = query
	return m.LoadTasks()
}

// Mode reports which tasks the list shows.
func (m Model) Mode() Mode {
	return m.mode
}

// Query is the active name search in ModeAll.
func (m Model) Query() string {
	return m.query
}

// Searching reports whether the search input has focus.
func (m Model) Searching() bool {
	return m.searchMode
}

// SelectedItem returns the focused task.
func (m Model) SelectedItem() (Item, bool) {
	it, ok := m.list.SelectedItem().(Item)
	return it, ok
}

// View renders the task list view.
func (m Model) View() string {
	if m.searchMode {
		searchBar := lipgloss.NewStyle().
			Foreground(theme.ColorWhite).
			Padding(0, 1).
			Render(m.searchInput.View())
		return lipgloss.JoinVertical(lipgloss.Left, searchBar, m.list.View())
	}

	if len(m.list.Items()) == 0 {
		return m.renderEmptyState()
	}

	return m.list.View()
}

// renderEmptyState shows guidance text when no tasks are available.
func (m Model) renderEmptyState() string {
	style := lipgloss.NewStyle().
		Width(m.width).
		Height(m.height).
		Align(lipgloss.Center, lipgloss.Center).
		Foreground(theme.ColorGray)

	switch {
	case m.err != nil:
		return style.Render(theme.ErrorStyle.Render("Could not load tasks.") + "\n" + m.err.Error())
	case m.query != "":
		return style.Render("No matching tasks.\nPress / to search again.")
	case m.mode == ModeQueue:
		return style.Render("Nothing is ready right now.\n\nPress tab to see every task or n to add one.")
	default:
		return style.Render("No tasks yet.\n\nPress n to add one.")
	}
}

// LoadTasks returns a tea.Cmd that reads the tasks for the current mode.
func (m Model) LoadTasks() tea.Cmd {
	mode := m.mode
	query := m.query
	s := m.source
	return func() tea.Msg {
		ctx := context.Background()
		msg := TasksLoadedMsg{Mode: mode, At: time.Now()}
		if mode == ModeQueue {
			tasks, err := s.Queue(ctx)
			msg.Err = err
			for _, t := range tasks {
				msg.Items = append(msg.Items, fromTask(t))
			}
			return msg
		}
		found, err := s.SearchItems(ctx, model.TaskSearchCriteria{Name: query})
		msg.Err = err
		for _, ti := range found {
			msg.Items = append(msg.Items, fromSearch(ti))
		}
		return msg
	}
}

// SetSize updates the list dimensions.
func (m *Model) SetSize(width, height int) {
	m.width = width
	m.height = height
	m.list.SetSize(width, height-2)
	m.searchInput.Width = width - 4
}
