// Package app is the nowtask terminal UI: the current task banner on top of
// the task queue, search, detail and form views.
package app

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/charmbracelet/bubbles/key"
	tea "github.com/charmbracelet/bubbletea"

	"github.com/nhle/nowtask/internal/keys"
	"github.com/nhle/nowtask/internal/model"
	"github.com/nhle/nowtask/internal/service"
	"github.com/nhle/nowtask/internal/theme"
	"github.com/nhle/nowtask/internal/ui"
	"github.com/nhle/nowtask/internal/ui/categories"
	"github.com/nhle/nowtask/internal/ui/command"
	"github.com/nhle/nowtask/internal/ui/detail"
	helpview "github.com/nhle/nowtask/internal/ui/help"
	"github.com/nhle/nowtask/internal/ui/settings"
	"github.com/nhle/nowtask/internal/ui/taskform"
	"github.com/nhle/nowtask/internal/ui/tasklist"
	"github.com/nhle/nowtask/internal/watch"
)

// ViewState represents the current active view in the application.
type ViewState int

const (
	ViewList ViewState = iota
	ViewDetail
	ViewHelp
	ViewCommand
	ViewTaskCreate
	ViewTaskEdit
	ViewCategories
	ViewSettings
)

// Model is the root Bubble Tea model that manages view routing,
// layout, and the live current task.
type Model struct {
	currentView  ViewState
	previousView ViewState
	layout       ui.Layout
	svc          *service.Service
	watcher      *watch.Watcher
	keys         *keys.KeyMap
	taskList     tasklist.Model
	detail       detail.Model
	helpView     helpview.Model
	commandView  command.Model
	taskForm     taskform.Model
	categories   categories.Model
	settings     settings.Model
	ready        bool

	// current is the last answer published by the watcher.
	current    *model.Task
	currentErr error
	haveResult bool

	flash    string
	flashErr bool
	flashSeq int
}

// clearFlashMsg expires the status message with the same sequence number.
type clearFlashMsg struct{ seq int }

// Option configures the root model.
type Option func(*Model)

// WithSettings lets the settings view show cfg and save it to path.
func WithSettings(cfg *model.AppConfig, path string) Option {
	return func(m *Model) {
		m.settings = settings.New(cfg, path, m.keys, 80, 24)
	}
}

// New creates the root model. The watcher is started by Init.
func New(svc *service.Service, w *watch.Watcher, opts ...Option) Model {
	k := keys.DefaultKeyMap()
	cfg := model.DefaultAppConfig()
	cfg.Schedule = svc.ScheduleConfig()

	m := Model{
		currentView: ViewList,
		svc:         svc,
		watcher:     w,
		keys:        k,
		taskList:    tasklist.New(svc, k, 80, 24),
		detail:      detail.New(k, 80, 24),
		helpView:    helpview.New(k, 80, 24),
		commandView: command.New(80, 24),
		taskForm:    taskform.New(80, 24),
		categories:  categories.New(svc, k, 80, 24),
		settings:    settings.New(cfg, "", k, 80, 24),
	}
	for _, opt := range opts {
		opt(&m)
	}
	return m
}

// Init loads the queue and starts watching the current task.
func (m Model) Init() tea.Cmd {
	return tea.Batch(
		m.taskList.Init(),
		m.watcher.Start(),
	)
}

// Update handles messages and dispatches to the active view.
func (m Model) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	switch msg := msg.(type) {
	case tea.WindowSizeMsg:
		m.layout = ui.NewLayout(msg.Width, msg.Height)
		m.ready = true
		w, h := m.layout.ContentWidth(), m.layout.ContentHeight()
		m.taskList.SetSize(w, h)
		m.detail.SetSize(w, h)
		m.helpView.SetSize(w, h)
		m.commandView.SetSize(w, h)
		m.taskForm.SetSize(w, h)
		m.categories.SetSize(w, h)
		m.settings.SetSize(w, h)
		// Forward to active view so huh forms can calculate their layout.
		return m.updateActiveView(msg)

	case watch.ResultMsg:
		m.current = msg.Task
		m.currentErr = msg.Err
		m.haveResult = true
		return m, tea.Batch(m.taskList.LoadTasks(), m.watcher.WaitForNextResult())

	case tasklist.TasksLoadedMsg:
		var cmd tea.Cmd
		m.taskList, cmd = m.taskList.Update(msg)
		return m, cmd

	case tasklist.SelectedTaskMsg:
		return m, m.openDetail(msg.TaskID)

	case detail.BackMsg:
		m.currentView = ViewList
		return m, nil

	case detail.ActionMsg:
		return m, m.runAction(msg.Action, msg.TaskID, m.nameOf(msg.TaskID))

	case detail.DetailLoadedMsg:
		var cmd tea.Cmd
		m.detail, cmd = m.detail.Update(msg)
		return m, cmd

	case taskform.CreateMsg:
		m.currentView = ViewList
		return m, m.createTask(msg.Form)

	case taskform.UpdateMsg:
		m.currentView = m.previousView
		return m, m.updateTask(msg.Form)

	case taskform.CancelMsg:
		m.currentView = m.previousView
		return m, nil

	case formOptionsLoadedMsg:
		if msg.err != nil {
			m.currentView = m.previousView
			return m, m.setFlash(fmt.Sprintf("cannot open form: %v", msg.err), true)
		}
		m.taskForm.SetOptions(msg.tasks, msg.categories)
		if m.currentView == ViewTaskCreate {
			return m, m.taskForm.StartCreate()
		}
		return m, nil

	case editReadyMsg:
		if msg.err != nil {
			m.currentView = m.previousView
			return m, m.setFlash(fmt.Sprintf("cannot edit: %v", msg.err), true)
		}
		return m, m.taskForm.StartEdit(msg.task, msg.rules, msg.parentID)

	case mutationDoneMsg:
		cmds := []tea.Cmd{
			m.setFlash(msg.describe(), msg.err != nil),
			m.taskList.LoadTasks(),
		}
		if m.currentView == ViewDetail && m.detail.CurrentID() == msg.taskID {
			if msg.op == "delete" && msg.err == nil {
				m.currentView = ViewList
			} else {
				cmds = append(cmds, m.loadDetail(msg.taskID))
			}
		}
		return m, tea.Batch(cmds...)

	case categories.CloseMsg, settings.CloseMsg:
		m.currentView = ViewList
		return m, nil

	case categories.ChangedMsg:
		return m, m.taskList.LoadTasks()

	case settings.SavedMsg:
		m.svc.SetScheduleConfig(msg.Config.Schedule)
		cmds := []tea.Cmd{m.taskList.LoadTasks()}
		if err := m.watcher.SetSchedule(msg.Config.Schedule.RefreshCron); err != nil {
			cmds = append(cmds, m.setFlash(err.Error(), true))
		} else {
			cmds = append(cmds, m.setFlash("settings saved", false))
		}
		return m, tea.Batch(cmds...)

	case clearFlashMsg:
		if msg.seq == m.flashSeq {
			m.setFlash("", false)
		}
		return m, nil

	case command.CommandMsg:
		m.currentView = m.previousView
		return m, m.executeCommand(msg)

	case tea.KeyMsg:
		if msg.String() == "ctrl+c" {
			return m, m.quit()
		}
		if m.capturesKeys() {
			if m.currentView == ViewCommand && key.Matches(msg, m.keys.Back) {
				m.currentView = m.previousView
				return m, nil
			}
			break
		}
		if cmd, handled := m.handleGlobalKey(msg); handled {
			return m, cmd
		}
	}

	// Delegate to active sub-view
	return m.updateActiveView(msg)
}

// capturesKeys reports whether the active view owns every key press.
func (m Model) capturesKeys() bool {
	switch m.currentView {
	case ViewTaskCreate, ViewTaskEdit, ViewCommand:
		return true
	case ViewList:
		return m.taskList.Searching()
	case ViewCategories:
		return m.categories.Editing()
	case ViewSettings:
		return m.settings.Editing()
	}
	return false
}

func (m *Model) handleGlobalKey(msg tea.KeyMsg) (tea.Cmd, bool) {
	switch {
	case key.Matches(msg, m.keys.Help):
		if m.currentView == ViewHelp {
			m.currentView = m.previousView
			return nil, true
		}
		m.previousView = m.currentView
		m.currentView = ViewHelp
		return nil, true

	case m.currentView == ViewHelp && key.Matches(msg, m.keys.Back):
		m.currentView = m.previousView
		return nil, true

	case key.Matches(msg, m.keys.Command):
		m.previousView = m.currentView
		m.currentView = ViewCommand
		return m.commandView.Focus(), true
	}

	if m.currentView != ViewList {
		return nil, false
	}

	switch {
	case key.Matches(msg, m.keys.Quit):
		return m.quit(), true

	case key.Matches(msg, m.keys.Refresh):
		m.watcher.Notify()
		return m.taskList.LoadTasks(), true

	case key.Matches(msg, m.keys.New):
		m.previousView = m.currentView
		m.currentView = ViewTaskCreate
		return m.loadFormOptions(), true

	case key.Matches(msg, m.keys.Current):
		if m.current == nil {
			return nil, true
		}
		return m.openDetail(m.current.ID), true

	case key.Matches(msg, m.keys.Categories):
		return m.openCategories(), true

	case key.Matches(msg, m.keys.Settings):
		m.previousView = m.currentView
		m.currentView = ViewSettings
		return nil, true
	}

	item, ok := m.taskList.SelectedItem()
	if !ok {
		return nil, false
	}
	for _, a := range []struct {
		binding key.Binding
		action  detail.Action
	}{
		{m.keys.Done, detail.ActionDone},
		{m.keys.Undo, detail.ActionUndo},
		{m.keys.Skip, detail.ActionSkip},
		{m.keys.Edit, detail.ActionEdit},
		{m.keys.Delete, detail.ActionDelete},
	} {
		if key.Matches(msg, a.binding) {
			return m.runAction(a.action, item.Task.ID, item.Task.Name), true
		}
	}
	return nil, false
}

// updateActiveView dispatches the message to the currently active view.
func (m Model) updateActiveView(msg tea.Msg) (tea.Model, tea.Cmd) {
	var cmd tea.Cmd

	switch m.currentView {
	case ViewList:
		m.taskList, cmd = m.taskList.Update(msg)
	case ViewDetail:
		m.detail, cmd = m.detail.Update(msg)
	case ViewHelp:
		m.helpView, cmd = m.helpView.Update(msg)
	case ViewCommand:
		m.commandView, cmd = m.commandView.Update(msg)
	case ViewTaskCreate, ViewTaskEdit:
		m.taskForm, cmd = m.taskForm.Update(msg)
	case ViewCategories:
		m.categories, cmd = m.categories.Update(msg)
	case ViewSettings:
		m.settings, cmd = m.settings.Update(msg)
	}

	return m, cmd
}

// View renders the full terminal UI using the layout manager.
func (m Model) View() string {
	if !m.ready {
		return "Loading..."
	}

	header := m.layout.RenderHeader("nowtask", m.watchStatus())
	banner := m.layout.RenderBanner(m.bannerLine())
	statusBar := m.layout.RenderStatusBar(m.statusLine())

	return m.layout.RenderWithFrame(header, banner, m.renderContent(), statusBar)
}

// renderContent returns the rendered string for the current active view.
func (m Model) renderContent() string {
	switch m.currentView {
	case ViewList:
		return m.taskList.View()
	case ViewDetail:
		return m.detail.View()
	case ViewHelp:
		return m.helpView.View()
	case ViewCommand:
		return m.commandView.View()
	case ViewTaskCreate, ViewTaskEdit:
		return m.taskForm.View()
	case ViewCategories:
		return m.categories.View()
	case ViewSettings:
		return m.settings.View()
	default:
		return ""
	}
}

// bannerLine describes the current task.
func (m Model) bannerLine() string {
	switch {
	case !m.haveResult:
		return theme.HelpStyle.Render("Working out what to do...")
	case m.currentErr != nil:
		return theme.ErrorStyle.Render("Current task unavailable: " + m.currentErr.Error())
	case m.current == nil:
		return theme.HelpStyle.Render("Nothing to do right now.")
	}

	t := m.current
	line := "Now: " + theme.CurrentTaskNameStyle.Render(t.Name)
	var extra []string
	if when := service.FormatWhen(t.ScheduledDate, t.ScheduledTime); when != "" {
		extra = append(extra, "at "+when)
	}
	if when := service.FormatWhen(t.DeadlineDate, t.DeadlineTime); when != "" {
		extra = append(extra, "due "+when)
	}
	if len(extra) > 0 {
		line += theme.HelpStyle.Render("  " + strings.Join(extra, ", "))
	}
	return line
}

// watchStatus returns a short string describing the watcher state.
func (m Model) watchStatus() string {
	st := m.watcher.Status()
	switch st.State {
	case watch.Running:
		return "updating"
	case watch.Failed:
		return "unavailable"
	}
	if st.LastRun.IsZero() {
		return "starting"
	}
	return "updated " + st.LastRun.Local().Format("15:04")
}

// statusLine returns the last outcome or keyboard hints for the status bar.
func (m Model) statusLine() string {
	if m.flash != "" {
		if m.flashErr {
			return theme.ErrorStyle.Render(m.flash)
		}
		return m.flash
	}
	return m.keyHints()
}

// keyHints returns keyboard shortcut hints for the status bar.
func (m Model) keyHints() string {
	switch m.currentView {
	case ViewHelp:
		return "? close help | esc back"
	case ViewCommand:
		return "enter execute | esc back"
	case ViewDetail:
		return "esc back | x done | u undo | s skip | e edit | d delete"
	case ViewTaskCreate, ViewTaskEdit:
		return "enter next | esc cancel"
	case ViewCategories, ViewSettings:
		return "? help | : command"
	default:
		if q := m.taskList.Query(); q != "" {
			return fmt.Sprintf("search %q | tab queue", q)
		}
		return "q quit | ? help | n new | x done | s skip | / search | tab queue/all"
	}
}

// setFlash shows text in the status bar until flashTimeout passes.
func (m *Model) setFlash(text string, isErr bool) tea.Cmd {
	m.flash = text
	m.flashErr = isErr
	m.flashSeq++
	if text == "" {
		return nil
	}
	seq := m.flashSeq
	return tea.Tick(flashTimeout, func(time.Time) tea.Msg { return clearFlashMsg{seq: seq} })
}

// openDetail switches to the detail view and loads taskID.
func (m *Model) openDetail(taskID string) tea.Cmd {
	if m.currentView != ViewDetail {
		m.previousView = m.currentView
	}
	m.currentView = ViewDetail
	m.detail.SetLoading(true)
	return m.loadDetail(taskID)
}

// openCategories switches to the category manager and loads it.
func (m *Model) openCategories() tea.Cmd {
	m.previousView = m.currentView
	m.currentView = ViewCategories
	return m.categories.Init()
}

// nameOf finds a task's name among what the UI already shows.
func (m Model) nameOf(taskID string) string {
	if m.current != nil && m.current.ID == taskID {
		return m.current.Name
	}
	if item, ok := m.taskList.SelectedItem(); ok && item.Task.ID == taskID {
		return item.Task.Name
	}
	if t, err := m.svc.GetTask(context.Background(), taskID); err == nil {
		return t.Name
	}
	return taskID
}

func (m Model) quit() tea.Cmd {
	m.watcher.Stop()
	return tea.Quit
}

// executeCommand handles a command from the command palette.
func (m *Model) executeCommand(c command.CommandMsg) tea.Cmd {
	switch c.Name {
	case "add", "new":
		if c.Arg == "" {
			m.previousView = m.currentView
			m.currentView = ViewTaskCreate
			return m.loadFormOptions()
		}
		return m.createTask(service.NewTaskForm{TaskFields: service.TaskFields{Name: c.Arg}})
	case "done", "skip", "undo":
		if m.current == nil {
			return m.setFlash("no current task", true)
		}
		return m.runAction(detail.Action(c.Name), m.current.ID, m.current.Name)
	case "current":
		if m.current == nil {
			return nil
		}
		return m.openDetail(m.current.ID)
	case "queue":
		m.currentView = ViewList
		return m.taskList.SetMode(tasklist.ModeQueue)
	case "all":
		m.currentView = ViewList
		return m.taskList.SetMode(tasklist.ModeAll)
	case "search":
		m.currentView = ViewList
		return m.taskList.Search(c.Arg)
	case "refresh":
		m.watcher.Notify()
		return m.taskList.LoadTasks()
	case "help":
		m.previousView = m.currentView
		m.currentView = ViewHelp
		return nil
	case "categories":
		return m.openCategories()
	case "settings":
		m.previousView = m.currentView
		m.currentView = ViewSettings
		return nil
	case "quit", "q":
		return m.quit()
	default:
		return m.setFlash(fmt.Sprintf("unknown command %q", c.Name), true)
	}
}

// flashTimeout is how long a status message stays before hints return.
const flashTimeout = 5 * time.Second
