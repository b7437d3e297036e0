package store

import (
	"context"
	"time"

	"github.com/nhle/nowtask/internal/model"
	"github.com/nhle/nowtask/internal/recurrence"
	"github.com/nhle/nowtask/internal/schedule"
)

// NewTask bundles everything written when a task is created.
type NewTask struct {
	Task        model.Task
	Recurrences []model.TaskRecurrence
	ParentID    *string
}

// TaskUpdate bundles everything written when a task is edited. Removed
// rules are deleted by id and added rules inserted; rules in neither list
// are left as they are.
type TaskUpdate struct {
	Task              model.Task
	AddRecurrences    []model.TaskRecurrence
	RemoveRecurrences []string
	Parent            model.ParentChange
}

// Store defines the persistence interface for tasks, their recurrence
// rules, completion and skip history, and the prerequisite closure table.
type Store interface {
	// === Tasks ===

	InsertTask(ctx context.Context, nt NewTask) (string, error)
	UpdateTask(ctx context.Context, u TaskUpdate) error
	DeleteTask(ctx context.Context, id string) error
	GetTaskByID(ctx context.Context, id string) (*model.Task, error)
	GetTaskDetail(ctx context.Context, id string) (*model.TaskDetail, error)
	SearchTasks(ctx context.Context, query string) ([]model.Task, error)
	SearchTaskItems(ctx context.Context, criteria model.TaskSearchCriteria, weekOf recurrence.WeekOfMonthFunc) ([]model.TaskItem, error)
	CountTasks(ctx context.Context) (int, error)

	// === Recurrences ===

	GetRecurrences(ctx context.Context, taskID string) ([]model.TaskRecurrence, error)

	// === History ===

	AddCompletion(ctx context.Context, taskID string, at time.Time) error
	RemoveLatestCompletion(ctx context.Context, taskID string) error
	AddSkip(ctx context.Context, taskID string, at time.Time) error
	CountCompletions(ctx context.Context) (int, error)

	// === Closure table ===

	AttachChild(ctx context.Context, parentID, childID string) error
	DetachChild(ctx context.Context, childID string) error
	ReplaceParent(ctx context.Context, childID, parentID string) error
	GetParent(ctx context.Context, id string) (*model.Task, error)
	GetChildren(ctx context.Context, id string) ([]model.Task, error)
	GetAncestors(ctx context.Context, id string) ([]model.TaskPath, error)
	TopmostUnresolvedAncestor(ctx context.Context, id string, isResolved func(string) bool) (*model.Task, error)

	// === Categories ===

	CreateCategory(ctx context.Context, name string) (*model.Category, error)
	GetCategories(ctx context.Context) ([]model.Category, error)
	DeleteCategory(ctx context.Context, id string) error

	// === Selection input ===

	LoadSnapshot(ctx context.Context) (schedule.Snapshot, error)
}

var _ Store = (*SQLiteStore)(nil)
