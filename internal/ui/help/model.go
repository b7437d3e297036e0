// Package help is the keyboard reference overlay. Bindings are grouped by
// where they act: the current-task banner, the task list, task editing and
// the other views.
package help

import (
	"strings"

	"github.com/charmbracelet/bubbles/help"
	"github.com/charmbracelet/bubbles/key"
	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/lipgloss"

	"github.com/nhle/nowtask/internal/keys"
	"github.com/nhle/nowtask/internal/theme"
)

const intro = `The banner always shows the one task to do now: the most urgent
ready task, or the first unfinished task it waits on.`

// section is one titled group of bindings.
type section struct {
	title    string
	note     string
	bindings []key.Binding
}

func sections(k *keys.KeyMap) []section {
	return []section{
		{
			title:    "Current task",
			note:     "act on the banner",
			bindings: []key.Binding{k.Done, k.Skip, k.Undo, k.Current},
		},
		{
			title:    "Task list",
			note:     "move and open",
			bindings: []key.Binding{k.Up, k.Down, k.Select, k.ToggleList, k.Refresh},
		},
		{
			title:    "Tasks",
			note:     "add and change",
			bindings: []key.Binding{k.New, k.Edit, k.Delete, k.Back},
		},
		{
			title:    "Views",
			bindings: []key.Binding{k.Search, k.Command, k.Categories, k.Settings, k.Help, k.Quit},
		},
	}
}

// sectionWidth is the width of one section column.
const sectionWidth = 34

// Model is the help overlay view.
type Model struct {
	keys   *keys.KeyMap
	help   help.Model
	width  int
	height int
}

// New creates a new help view model.
func New(keys *keys.KeyMap, width, height int) Model {
	return Model{
		keys:   keys,
		help:   help.New(),
		width:  width,
		height: height,
	}
}

// Init returns the initial command.
func (m Model) Init() tea.Cmd {
	return nil
}

// Update handles messages for the help view.
func (m Model) Update(msg tea.Msg) (Model, tea.Cmd) {
	return m, nil
}

// View renders the help overlay. Sections sit side by side when the
// terminal is wide enough and stack otherwise.
func (m Model) View() string {
	titleStyle := lipgloss.NewStyle().
		Bold(true).
		Foreground(theme.ColorWhite).
		MarginBottom(1)

	var blocks []string
	for _, s := range sections(m.keys) {
		blocks = append(blocks, m.renderSection(s))
	}

	content := lipgloss.JoinVertical(lipgloss.Left,
		titleStyle.Render("Keyboard Shortcuts"),
		theme.HelpStyle.MarginBottom(1).Render(intro),
		m.layout(blocks),
	)

	return theme.DetailPanelStyle.
		Width(max(m.width-4, 0)).
		Height(max(m.height-4, 0)).
		Render(content)
}

func (m Model) renderSection(s section) string {
	heading := lipgloss.NewStyle().Bold(true).Foreground(theme.ColorBlue).Render(s.title)
	if s.note != "" {
		heading += theme.HelpStyle.Render("  " + s.note)
	}

	var enabled []key.Binding
	for _, b := range s.bindings {
		if b.Enabled() {
			enabled = append(enabled, b)
		}
	}
	body := m.help.FullHelpView([][]key.Binding{enabled})

	return lipgloss.NewStyle().
		Width(sectionWidth).
		MarginBottom(1).
		Render(heading + "\n" + body)
}

// layout places blocks in as many columns as the panel fits.
func (m Model) layout(blocks []string) string {
	perRow := max((m.width-8)/sectionWidth, 1)
	var rows []string
	for len(blocks) > 0 {
		n := min(perRow, len(blocks))
		rows = append(rows, lipgloss.JoinHorizontal(lipgloss.Top, blocks[:n]...))
		blocks = blocks[n:]
	}
	return strings.Join(rows, "\n")
}

// SetSize updates the help view dimensions.
func (m *Model) SetSize(width, height int) {
	m.width = width
	m.height = height
}
