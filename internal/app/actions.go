package app

import (
	"context"
	"fmt"

	tea "github.com/charmbracelet/bubbletea"

	"github.com/nhle/nowtask/internal/model"
	"github.com/nhle/nowtask/internal/service"
	"github.com/nhle/nowtask/internal/ui/detail"
)

// mutationDoneMsg is sent after a change to the task data was attempted.
type mutationDoneMsg struct {
	op     string
	taskID string
	name   string
	err    error
}

// formOptionsLoadedMsg carries the parent and category choices for the form.
type formOptionsLoadedMsg struct {
	tasks      []model.Task
	categories []model.Category
	err        error
}

// editReadyMsg carries the task to be edited with its rules and parent.
type editReadyMsg struct {
	task     model.Task
	rules    []model.TaskRecurrence
	parentID string
	err      error
}

// mutate runs one service call and reports its outcome.
func (m *Model) mutate(op, taskID, name string, fn func(context.Context) error) tea.Cmd {
	return func() tea.Msg {
		err := fn(context.Background())
		return mutationDoneMsg{op: op, taskID: taskID, name: name, err: err}
	}
}

// runAction executes a detail or list action on the task with the given id.
func (m *Model) runAction(action detail.Action, taskID, name string) tea.Cmd {
	svc := m.svc
	switch action {
	case detail.ActionDone:
		return m.mutate("done", taskID, name, func(ctx context.Context) error { return svc.MarkDone(ctx, taskID) })
	case detail.ActionUndo:
		return m.mutate("undo", taskID, name, func(ctx context.Context) error { return svc.UnmarkDone(ctx, taskID) })
	case detail.ActionSkip:
		return m.mutate("skip", taskID, name, func(ctx context.Context) error { return svc.Skip(ctx, taskID) })
	case detail.ActionDelete:
		return m.mutate("delete", taskID, name, func(ctx context.Context) error { return svc.Delete(ctx, taskID) })
	case detail.ActionEdit:
		m.previousView = m.currentView
		m.currentView = ViewTaskEdit
		return tea.Batch(m.loadFormOptions(), m.startEdit(taskID))
	default:
		return nil
	}
}

// createTask persists a new task.
func (m *Model) createTask(form service.NewTaskForm) tea.Cmd {
	svc := m.svc
	return func() tea.Msg {
		id, err := svc.Create(context.Background(), form)
		return mutationDoneMsg{op: "create", taskID: id, name: form.Name, err: err}
	}
}

// updateTask persists an edited task.
func (m *Model) updateTask(form service.EditTaskForm) tea.Cmd {
	svc := m.svc
	return m.mutate("update", form.ID, form.Name, func(ctx context.Context) error {
		return svc.Update(ctx, form)
	})
}

// loadDetail returns a command that loads everything the detail view shows.
func (m Model) loadDetail(taskID string) tea.Cmd {
	svc := m.svc
	return func() tea.Msg {
		ctx := context.Background()
		d, err := svc.Detail(ctx, taskID)
		if err != nil {
			return detail.DetailLoadedMsg{Err: err}
		}
		page := &detail.Page{Detail: d}
		if page.Rules, err = svc.Recurrences(ctx, taskID); err != nil {
			return detail.DetailLoadedMsg{Err: err}
		}
		if page.Children, err = svc.Children(ctx, taskID); err != nil {
			return detail.DetailLoadedMsg{Err: err}
		}
		next, ok, err := svc.NextDue(ctx, taskID)
		if err != nil {
			return detail.DetailLoadedMsg{Err: err}
		}
		if ok {
			page.NextDue = &next
		}
		return detail.DetailLoadedMsg{Page: page}
	}
}

// loadFormOptions fetches the tasks and categories the form offers.
func (m Model) loadFormOptions() tea.Cmd {
	svc := m.svc
	return func() tea.Msg {
		ctx := context.Background()
		tasks, err := svc.Search(ctx, "")
		if err != nil {
			return formOptionsLoadedMsg{err: err}
		}
		categories, err := svc.Categories(ctx)
		return formOptionsLoadedMsg{tasks: tasks, categories: categories, err: err}
	}
}

// startEdit loads the task to edit.
func (m Model) startEdit(taskID string) tea.Cmd {
	svc := m.svc
	return func() tea.Msg {
		ctx := context.Background()
		task, err := svc.GetTask(ctx, taskID)
		if err != nil {
			return editReadyMsg{err: err}
		}
		rules, err := svc.Recurrences(ctx, taskID)
		if err != nil {
			return editReadyMsg{err: err}
		}
		parent, err := svc.Parent(ctx, taskID)
		if err != nil {
			return editReadyMsg{err: err}
		}
		msg := editReadyMsg{task: *task, rules: rules}
		if parent != nil {
			msg.parentID = parent.ID
		}
		return msg
	}
}

// describe renders the outcome of a mutation for the status bar.
func (msg mutationDoneMsg) describe() string {
	if msg.err != nil {
		return fmt.Sprintf("%s failed: %v", msg.op, msg.err)
	}
	switch msg.op {
	case "create":
		return fmt.Sprintf("added %q", msg.name)
	case "update":
		return fmt.Sprintf("saved %q", msg.name)
	case "done":
		return fmt.Sprintf("done: %s", msg.name)
	case "undo":
		return fmt.Sprintf("not done: %s", msg.name)
	case "skip":
		return fmt.Sprintf("skipped for today: %s", msg.name)
	case "delete":
		return fmt.Sprintf("deleted %q", msg.name)
	default:
		return msg.op
	}
}
