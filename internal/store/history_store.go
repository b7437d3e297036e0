package store

import (
	"context"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/jmoiron/sqlx"

	"github.com/nhle/nowtask/internal/model"
)

// AddCompletion records that a task was done at the given instant.
func (s *SQLiteStore) AddCompletion(ctx context.Context, taskID string, at time.Time) error {
	return s.withTx(ctx, func(tx *sqlx.Tx) error {
		if err := requireTask(ctx, tx, taskID); err != nil {
			return err
		}
		_, err := tx.ExecContext(ctx,
			"INSERT INTO task_completions (id, task_id, done_at) VALUES (?, ?, ?)",
			uuid.New().String(), taskID, at.UTC())
		if err != nil {
			return fmt.Errorf("marking %s done: %w", taskID, err)
		}
		return nil
	})
}

// RemoveLatestCompletion deletes the most recent completion of a task.
// It returns model.ErrNotFound when the task has no completions.
func (s *SQLiteStore) RemoveLatestCompletion(ctx context.Context, taskID string) error {
	result, err := s.db.ExecContext(ctx, `
		DELETE FROM task_completions WHERE id = (
			SELECT id FROM task_completions
			WHERE task_id = ?
			ORDER BY done_at DESC, id DESC
			LIMIT 1
		)`, taskID)
	if err != nil {
		return fmt.Errorf("unmarking %s done: %w", taskID, err)
	}
	rows, _ := result.RowsAffected()
	if rows == 0 {
		return fmt.Errorf("completion of task %s: %w", taskID, model.ErrNotFound)
	}
	return nil
}

// AddSkip records that a task was skipped at the given instant.
func (s *SQLiteStore) AddSkip(ctx context.Context, taskID string, at time.Time) error {
	return s.withTx(ctx, func(tx *sqlx.Tx) error {
		if err := requireTask(ctx, tx, taskID); err != nil {
			return err
		}
		_, err := tx.ExecContext(ctx,
			"INSERT INTO task_skips (id, task_id, skipped_at) VALUES (?, ?, ?)",
			uuid.New().String(), taskID, at.UTC())
		if err != nil {
			return fmt.Errorf("skipping %s: %w", taskID, err)
		}
		return nil
	})
}

// CountCompletions returns the total number of completions recorded.
func (s *SQLiteStore) CountCompletions(ctx context.Context) (int, error) {
	var count int
	if err := s.db.GetContext(ctx, &count, "SELECT COUNT(*) FROM task_completions"); err != nil {
		return 0, fmt.Errorf("counting completions: %w", err)
	}
	return count, nil
}

// GetCompletions returns the completions of a task, newest first.
func (s *SQLiteStore) GetCompletions(ctx context.Context, taskID string) ([]model.TaskCompletion, error) {
	var completions []model.TaskCompletion
	err := s.db.SelectContext(ctx, &completions,
		"SELECT id, task_id, done_at FROM task_completions WHERE task_id = ? ORDER BY done_at DESC, id DESC",
		taskID)
	if err != nil {
		return nil, fmt.Errorf("querying completions of %s: %w", taskID, err)
	}
	localizeCompletions(completions)
	return completions, nil
}

func latestCompletion(ctx context.Context, q sqlx.QueryerContext, taskID string) (*time.Time, error) {
	var doneAt []time.Time
	err := sqlx.SelectContext(ctx, q, &doneAt,
		"SELECT done_at FROM task_completions WHERE task_id = ? ORDER BY done_at DESC LIMIT 1",
		taskID)
	if err != nil {
		return nil, fmt.Errorf("getting latest completion of %s: %w", taskID, err)
	}
	if len(doneAt) == 0 {
		return nil, nil
	}
	at := doneAt[0].Local()
	return &at, nil
}

// latestCompletionsFor returns the latest completion per task.
func (s *SQLiteStore) latestCompletionsFor(ctx context.Context, taskIDs []string) (map[string]time.Time, error) {
	query, args, err := sqlx.In(
		"SELECT id, task_id, done_at FROM task_completions WHERE task_id IN (?)", taskIDs)
	if err != nil {
		return nil, fmt.Errorf("building completion query: %w", err)
	}
	var completions []model.TaskCompletion
	if err := s.db.SelectContext(ctx, &completions, s.db.Rebind(query), args...); err != nil {
		return nil, fmt.Errorf("querying completions: %w", err)
	}

	latest := make(map[string]time.Time)
	for _, c := range completions {
		if prev, ok := latest[c.TaskID]; !ok || c.DoneAt.After(prev) {
			latest[c.TaskID] = c.DoneAt.Local()
		}
	}
	return latest, nil
}

func selectCompletions(ctx context.Context, q sqlx.QueryerContext) ([]model.TaskCompletion, error) {
	var completions []model.TaskCompletion
	err := sqlx.SelectContext(ctx, q, &completions,
		"SELECT id, task_id, done_at FROM task_completions ORDER BY task_id, done_at")
	if err != nil {
		return nil, fmt.Errorf("querying completions: %w", err)
	}
	localizeCompletions(completions)
	return completions, nil
}

func selectSkips(ctx context.Context, q sqlx.QueryerContext) ([]model.TaskSkip, error) {
	var skips []model.TaskSkip
	err := sqlx.SelectContext(ctx, q, &skips,
		"SELECT id, task_id, skipped_at FROM task_skips ORDER BY task_id, skipped_at")
	if err != nil {
		return nil, fmt.Errorf("querying skips: %w", err)
	}
	for i := range skips {
		skips[i].SkippedAt = skips[i].SkippedAt.Local()
	}
	return skips, nil
}

func localizeCompletions(completions []model.TaskCompletion) {
	for i := range completions {
		completions[i].DoneAt = completions[i].DoneAt.Local()
	}
}
