package service

import (
	"context"
	"fmt"

	"cloud.google.com/go/civil"
	"go.opentelemetry.io/otel/codes"

	"github.com/nhle/nowtask/internal/model"
	"github.com/nhle/nowtask/internal/recurrence"
	"github.com/nhle/nowtask/internal/schedule"
)

// nextDueHorizon is how far ahead NextDue looks, in days.
const nextDueHorizon = 2 * 366

// Stats holds totals shown on the statistics screen.
type Stats struct {
	Tasks       int `json:"tasks"`
	Completions int `json:"completions"`
}

// CurrentTask returns the task to act on now, or nil when nothing is ready.
// Either the whole snapshot is read or an error is returned.
func (s *Service) CurrentTask(ctx context.Context) (*model.Task, error) {
	ctx, span := s.tracer.Start(ctx, "service.CurrentTask")
	defer span.End()

	snap, err := s.store.LoadSnapshot(ctx)
	if err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, err.Error())
		return nil, fmt.Errorf("load snapshot: %w", err)
	}
	return schedule.SelectCurrent(snap, s.Params()), nil
}

// Queue returns every ready task in the order they would become current.
func (s *Service) Queue(ctx context.Context) ([]model.Task, error) {
	snap, err := s.store.LoadSnapshot(ctx)
	if err != nil {
		return nil, fmt.Errorf("load snapshot: %w", err)
	}
	return schedule.Queue(snap, s.Params()), nil
}

// Ranked returns every task in selection order, including tasks that are
// done, gated or blocked.
func (s *Service) Ranked(ctx context.Context) ([]model.Task, error) {
	snap, err := s.store.LoadSnapshot(ctx)
	if err != nil {
		return nil, fmt.Errorf("load snapshot: %w", err)
	}
	return schedule.Rank(snap, s.Params()), nil
}

// GetTask returns a task by id.
func (s *Service) GetTask(ctx context.Context, id string) (*model.Task, error) {
	return s.store.GetTaskByID(ctx, id)
}

// Detail returns the detail projection of a task.
func (s *Service) Detail(ctx context.Context, id string) (*model.TaskDetail, error) {
	return s.store.GetTaskDetail(ctx, id)
}

// Children returns the direct children of a task in display order.
func (s *Service) Children(ctx context.Context, id string) ([]model.Task, error) {
	return s.store.GetChildren(ctx, id)
}

// Parent returns the direct parent of a task, or nil for a root.
func (s *Service) Parent(ctx context.Context, id string) (*model.Task, error) {
	return s.store.GetParent(ctx, id)
}

// Recurrences returns the rules of a task.
func (s *Service) Recurrences(ctx context.Context, id string) ([]model.TaskRecurrence, error) {
	return s.store.GetRecurrences(ctx, id)
}

// NextDue returns the next date on or after today a recurring task falls
// due. It reports false for one-off tasks.
func (s *Service) NextDue(ctx context.Context, id string) (civil.Date, bool, error) {
	rules, err := s.store.GetRecurrences(ctx, id)
	if err != nil {
		return civil.Date{}, false, err
	}
	if len(rules) == 0 {
		return civil.Date{}, false, nil
	}
	d, ok := recurrence.NextDue(rules, s.Params().Today, nextDueHorizon, s.WeekOfMonth())
	return d, ok, nil
}

// Search returns tasks whose name contains query.
func (s *Service) Search(ctx context.Context, query string) ([]model.Task, error) {
	return s.store.SearchTasks(ctx, query)
}

// SearchItems returns compact items matching criteria. Recurring tasks
// match a date criterion on the dates they recur on.
func (s *Service) SearchItems(ctx context.Context, criteria model.TaskSearchCriteria) ([]model.TaskItem, error) {
	return s.store.SearchTaskItems(ctx, criteria, s.WeekOfMonth())
}

// Categories lists every category by name.
func (s *Service) Categories(ctx context.Context) ([]model.Category, error) {
	return s.store.GetCategories(ctx)
}

// Stats returns the total number of tasks and completions.
func (s *Service) Stats(ctx context.Context) (Stats, error) {
	tasks, err := s.store.CountTasks(ctx)
	if err != nil {
		return Stats{}, err
	}
	completions, err := s.store.CountCompletions(ctx)
	if err != nil {
		return Stats{}, err
	}
	return Stats{Tasks: tasks, Completions: completions}, nil
}
