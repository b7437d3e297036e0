// Package service is the mutation and query API of nowtask. It validates
// and normalizes user input, writes through the store, and tells the
// watcher after every committed change so the current task is recomputed.
package service

import (
	"context"
	"fmt"
	"log/slog"
	"sync"
	"time"

	"cloud.google.com/go/civil"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"

	"github.com/nhle/nowtask/internal/model"
	"github.com/nhle/nowtask/internal/recurrence"
	"github.com/nhle/nowtask/internal/schedule"
	"github.com/nhle/nowtask/internal/store"
	"github.com/nhle/nowtask/internal/watch"
)

// Service coordinates the store, the clock and change notification.
type Service struct {
	store    store.Store
	now      func() time.Time
	notifier watch.Notifier
	logger   *slog.Logger
	tracer   trace.Tracer

	mu     sync.RWMutex
	cfg    model.ScheduleConfig
	weekOf recurrence.WeekOfMonthFunc
	pinned bool
}

// Option configures a Service.
type Option func(*Service)

// WithClock replaces time.Now.
func WithClock(now func() time.Time) Option {
	return func(s *Service) { s.now = now }
}

// WithNotifier sets who is told about committed changes.
func WithNotifier(n watch.Notifier) Option {
	return func(s *Service) {
		if n != nil {
			s.notifier = n
		}
	}
}

// WithLogger sets the logger. A nil logger keeps slog.Default().
func WithLogger(l *slog.Logger) Option {
	return func(s *Service) {
		if l != nil {
			s.logger = l
		}
	}
}

// WithScheduleConfig sets the schedule configuration.
func WithScheduleConfig(cfg model.ScheduleConfig) Option {
	return func(s *Service) { s.cfg = cfg }
}

// WithWeekOfMonth overrides the week-of-month function derived from the
// configured first day of the week.
func WithWeekOfMonth(fn recurrence.WeekOfMonthFunc) Option {
	return func(s *Service) {
		s.weekOf = fn
		s.pinned = true
	}
}

type nopNotifier struct{}

func (nopNotifier) Notify() {}

// New creates a Service on top of st.
func New(st store.Store, opts ...Option) *Service {
	s := &Service{
		store:    st,
		now:      time.Now,
		notifier: nopNotifier{},
		logger:   slog.Default(),
		tracer:   otel.Tracer("github.com/nhle/nowtask/internal/service"),
		cfg:      model.DefaultAppConfig().Schedule,
	}
	for _, opt := range opts {
		opt(s)
	}
	if !s.pinned {
		s.weekOf = recurrence.WeekOfMonth(s.cfg.FirstWeekday())
	}
	return s
}

// SetScheduleConfig swaps the schedule configuration, typically after the
// config file was reloaded.
func (s *Service) SetScheduleConfig(cfg model.ScheduleConfig) {
	s.mu.Lock()
	s.cfg = cfg
	if !s.pinned {
		s.weekOf = recurrence.WeekOfMonth(cfg.FirstWeekday())
	}
	s.mu.Unlock()
	s.notifier.Notify()
}

// ScheduleConfig returns the schedule configuration in use.
func (s *Service) ScheduleConfig() model.ScheduleConfig {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.cfg
}

// WeekOfMonth returns the week-of-month function in use.
func (s *Service) WeekOfMonth() recurrence.WeekOfMonthFunc {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.weekOf
}

// Params returns the selection parameters for the current instant.
func (s *Service) Params() schedule.CurrentTaskParams {
	s.mu.RLock()
	cfg, weekOf := s.cfg, s.weekOf
	s.mu.RUnlock()
	return schedule.NewCurrentTaskParams(s.now(), cfg, weekOf)
}

func (s *Service) defaultScheduledTime() civil.Time {
	parsed, err := time.Parse("15:04", s.ScheduleConfig().DefaultScheduledTime)
	if err != nil {
		return civil.Time{Hour: 9}
	}
	return civil.TimeOf(parsed)
}

// === Mutations ===

// Create validates and stores a new task and returns its id.
func (s *Service) Create(ctx context.Context, form NewTaskForm) (string, error) {
	ctx, span := s.tracer.Start(ctx, "service.Create")
	defer span.End()

	if err := form.Validate(); err != nil {
		return "", s.fail(span, "create task", "", err)
	}

	fields := form.defaults(s.Params().Today, s.defaultScheduledTime())
	task := fields.task()
	task.CreatedAt = s.now()

	id, err := s.store.InsertTask(ctx, store.NewTask{
		Task:        task,
		Recurrences: BuildRules(fields.Recurrences, s.WeekOfMonth()),
		ParentID:    form.ParentID,
	})
	if err != nil {
		return "", s.fail(span, "create task", "", err)
	}

	span.SetAttributes(attribute.String("task.id", id))
	s.logger.Info("task created", "task_id", id, "name", task.Name)
	s.notifier.Notify()
	return id, nil
}

// Update validates the form and applies it to an existing task. Rules that
// appear in both the stored and the new set are kept; the rest are removed
// or added.
func (s *Service) Update(ctx context.Context, form EditTaskForm) error {
	return s.mutate(ctx, "update task", form.ID, func(ctx context.Context) error {
		if err := form.Validate(); err != nil {
			return err
		}

		existing, err := s.store.GetRecurrences(ctx, form.ID)
		if err != nil {
			return err
		}

		fields := form.defaults(s.Params().Today, s.defaultScheduledTime())
		task := fields.task()
		task.ID = form.ID
		remove, add := diffRules(existing, BuildRules(fields.Recurrences, s.WeekOfMonth()))

		return s.store.UpdateTask(ctx, store.TaskUpdate{
			Task:              task,
			AddRecurrences:    add,
			RemoveRecurrences: remove,
			Parent:            form.Parent,
		})
	})
}

// Delete removes a task. Its children move up to its parent.
func (s *Service) Delete(ctx context.Context, id string) error {
	return s.mutate(ctx, "delete task", id, func(ctx context.Context) error {
		return s.store.DeleteTask(ctx, id)
	})
}

// MarkDone records a completion of the task now.
func (s *Service) MarkDone(ctx context.Context, id string) error {
	return s.mutate(ctx, "mark done", id, func(ctx context.Context) error {
		return s.store.AddCompletion(ctx, id, s.now())
	})
}

// UnmarkDone removes the task's latest completion.
func (s *Service) UnmarkDone(ctx context.Context, id string) error {
	return s.mutate(ctx, "unmark done", id, func(ctx context.Context) error {
		return s.store.RemoveLatestCompletion(ctx, id)
	})
}

// Skip hides the task until the next day starts.
func (s *Service) Skip(ctx context.Context, id string) error {
	return s.mutate(ctx, "skip task", id, func(ctx context.Context) error {
		return s.store.AddSkip(ctx, id, s.now())
	})
}

// SetParent makes parentID the prerequisite of childID. The child must not
// have a parent yet.
func (s *Service) SetParent(ctx context.Context, childID, parentID string) error {
	return s.mutate(ctx, "set parent", childID, func(ctx context.Context) error {
		return s.store.AttachChild(ctx, parentID, childID)
	})
}

// MoveTo re-parents childID under parentID, replacing any current parent.
func (s *Service) MoveTo(ctx context.Context, childID, parentID string) error {
	return s.mutate(ctx, "move task", childID, func(ctx context.Context) error {
		return s.store.ReplaceParent(ctx, childID, parentID)
	})
}

// RemoveParent detaches childID from its parent. The child keeps its own
// subtree.
func (s *Service) RemoveParent(ctx context.Context, childID string) error {
	return s.mutate(ctx, "remove parent", childID, func(ctx context.Context) error {
		return s.store.DetachChild(ctx, childID)
	})
}

// CreateCategory returns the category named name, creating it if needed.
func (s *Service) CreateCategory(ctx context.Context, name string) (*model.Category, error) {
	c, err := s.store.CreateCategory(ctx, name)
	if err != nil {
		return nil, fmt.Errorf("create category %q: %w", name, err)
	}
	return c, nil
}

// DeleteCategory removes a category. Its tasks become uncategorized.
func (s *Service) DeleteCategory(ctx context.Context, id string) error {
	return s.mutate(ctx, "delete category", "", func(ctx context.Context) error {
		return s.store.DeleteCategory(ctx, id)
	})
}

// mutate runs fn inside a span, logs the outcome and notifies on success.
func (s *Service) mutate(ctx context.Context, op, taskID string, fn func(context.Context) error) error {
	ctx, span := s.tracer.Start(ctx, "service."+op,
		trace.WithAttributes(attribute.String("task.id", taskID)))
	defer span.End()

	if err := fn(ctx); err != nil {
		return s.fail(span, op, taskID, err)
	}

	s.logger.Info(op, "task_id", taskID)
	s.notifier.Notify()
	return nil
}

func (s *Service) fail(span trace.Span, op, taskID string, err error) error {
	span.RecordError(err)
	span.SetStatus(codes.Error, err.Error())
	s.logger.Warn(op+" failed", "task_id", taskID, "error", err)
	return err
}
