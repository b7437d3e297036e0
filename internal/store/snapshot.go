package store

import (
	"context"
	"fmt"

	"github.com/nhle/nowtask/internal/schedule"
)

// LoadSnapshot reads every input of current-task selection inside one
// transaction, so the five streams agree with each other. Any
// failed read fails the whole snapshot.
func (s *SQLiteStore) LoadSnapshot(ctx context.Context) (schedule.Snapshot, error) {
	tx, err := s.db.BeginTxx(ctx, nil)
	if err != nil {
		return schedule.Snapshot{}, fmt.Errorf("beginning snapshot: %w", err)
	}
	defer tx.Rollback()

	var snap schedule.Snapshot
	if snap.Tasks, err = selectTasks(ctx, tx); err != nil {
		return schedule.Snapshot{}, err
	}
	if snap.Recurrences, err = selectRecurrences(ctx, tx); err != nil {
		return schedule.Snapshot{}, err
	}
	if snap.Completions, err = selectCompletions(ctx, tx); err != nil {
		return schedule.Snapshot{}, err
	}
	if snap.Skips, err = selectSkips(ctx, tx); err != nil {
		return schedule.Snapshot{}, err
	}
	if snap.Paths, err = selectPaths(ctx, tx); err != nil {
		return schedule.Snapshot{}, err
	}

	return snap, tx.Commit()
}
