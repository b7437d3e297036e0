package store

import (
	"context"
	"fmt"

	"github.com/jmoiron/sqlx"

	"github.com/nhle/nowtask/internal/model"
)

// AttachChild makes parentID the direct parent of childID. If childID
// already owns a subtree, the whole subtree moves under parentID.
func (s *SQLiteStore) AttachChild(ctx context.Context, parentID, childID string) error {
	return s.withTx(ctx, func(tx *sqlx.Tx) error {
		if err := checkAttach(ctx, tx, parentID, childID); err != nil {
			return err
		}
		return attachTx(ctx, tx, parentID, childID)
	})
}

// DetachChild removes childID's parent edge. Rows inside childID's subtree
// are untouched; only their links to nodes above childID are removed.
func (s *SQLiteStore) DetachChild(ctx context.Context, childID string) error {
	return s.withTx(ctx, func(tx *sqlx.Tx) error {
		if err := requireTask(ctx, tx, childID); err != nil {
			return err
		}
		return detachTx(ctx, tx, childID)
	})
}

// ReplaceParent re-parents childID under parentID in one transaction.
// Structural checks run before the old edge is removed.
func (s *SQLiteStore) ReplaceParent(ctx context.Context, childID, parentID string) error {
	return s.withTx(ctx, func(tx *sqlx.Tx) error {
		if err := checkLinkable(ctx, tx, parentID, childID); err != nil {
			return err
		}
		if err := detachTx(ctx, tx, childID); err != nil {
			return err
		}
		return attachTx(ctx, tx, parentID, childID)
	})
}

// GetParent returns the direct parent of id, or nil for a root task.
func (s *SQLiteStore) GetParent(ctx context.Context, id string) (*model.Task, error) {
	row := s.db.QueryRowxContext(ctx, `
		SELECT `+taskColumns+` FROM tasks
		INNER JOIN task_paths ON task_paths.ancestor = tasks.id
		WHERE task_paths.descendant = ? AND task_paths.depth = 1`, id)
	t, err := scanTask(row)
	if notFound(err) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("getting parent of %s: %w", id, err)
	}
	return &t, nil
}

// GetChildren returns the direct children of id. Scheduled children come
// first, then recurring ones, then by deadline, start-after and age.
func (s *SQLiteStore) GetChildren(ctx context.Context, id string) ([]model.Task, error) {
	rows, err := s.db.QueryxContext(ctx, `
		SELECT `+taskColumns+` FROM tasks
		INNER JOIN task_paths ON task_paths.descendant = tasks.id
		WHERE task_paths.ancestor = ? AND task_paths.depth = 1
		ORDER BY
			tasks.scheduled_date IS NULL, tasks.scheduled_date,
			tasks.scheduled_time IS NULL, tasks.scheduled_time,
			EXISTS (SELECT 1 FROM task_recurrences r WHERE r.task_id = tasks.id) DESC,
			tasks.deadline_date IS NULL, tasks.deadline_date,
			tasks.deadline_time IS NULL, tasks.deadline_time,
			tasks.start_after_date IS NOT NULL, tasks.start_after_date,
			tasks.start_after_time IS NOT NULL, tasks.start_after_time,
			tasks.created_at, tasks.id`, id)
	if err != nil {
		return nil, fmt.Errorf("querying children of %s: %w", id, err)
	}
	defer rows.Close()

	var tasks []model.Task
	for rows.Next() {
		t, err := scanTask(rows)
		if err != nil {
			return nil, err
		}
		tasks = append(tasks, t)
	}
	return tasks, rows.Err()
}

// GetAncestors returns every closure row with id as descendant, farthest
// ancestor first.
func (s *SQLiteStore) GetAncestors(ctx context.Context, id string) ([]model.TaskPath, error) {
	var paths []model.TaskPath
	err := s.db.SelectContext(ctx, &paths, `
		SELECT ancestor, descendant, depth FROM task_paths
		WHERE descendant = ?
		ORDER BY depth DESC`, id)
	if err != nil {
		return nil, fmt.Errorf("querying ancestors of %s: %w", id, err)
	}
	return paths, nil
}

// GetPaths returns the full closure table.
func (s *SQLiteStore) GetPaths(ctx context.Context) ([]model.TaskPath, error) {
	return selectPaths(ctx, s.db)
}

// TopmostUnresolvedAncestor returns the farthest ancestor of id for which
// isResolved is false, or nil when there is none.
func (s *SQLiteStore) TopmostUnresolvedAncestor(
	ctx context.Context,
	id string,
	isResolved func(string) bool,
) (*model.Task, error) {
	ancestors, err := s.GetAncestors(ctx, id)
	if err != nil {
		return nil, err
	}
	for _, p := range ancestors {
		if isResolved(p.Ancestor) {
			continue
		}
		return s.GetTaskByID(ctx, p.Ancestor)
	}
	return nil, nil
}

func selectPaths(ctx context.Context, q sqlx.QueryerContext) ([]model.TaskPath, error) {
	var paths []model.TaskPath
	err := sqlx.SelectContext(ctx, q, &paths,
		"SELECT ancestor, descendant, depth FROM task_paths ORDER BY ancestor, depth, descendant")
	if err != nil {
		return nil, fmt.Errorf("querying task paths: %w", err)
	}
	return paths, nil
}

// checkLinkable verifies both tasks exist and that parentID is neither
// childID nor one of its descendants.
func checkLinkable(ctx context.Context, tx *sqlx.Tx, parentID, childID string) error {
	if err := requireTask(ctx, tx, parentID); err != nil {
		return err
	}
	if err := requireTask(ctx, tx, childID); err != nil {
		return err
	}
	if parentID == childID {
		return &model.CycleError{ParentID: parentID, ChildID: childID}
	}

	var below int
	err := tx.GetContext(ctx, &below,
		"SELECT COUNT(*) FROM task_paths WHERE ancestor = ? AND descendant = ?",
		childID, parentID)
	if err != nil {
		return fmt.Errorf("checking cycle %s -> %s: %w", parentID, childID, err)
	}
	if below > 0 {
		return &model.CycleError{ParentID: parentID, ChildID: childID}
	}
	return nil
}

// checkAttach adds the single-parent rule to checkLinkable.
func checkAttach(ctx context.Context, tx *sqlx.Tx, parentID, childID string) error {
	if err := checkLinkable(ctx, tx, parentID, childID); err != nil {
		return err
	}

	var existing []string
	err := tx.SelectContext(ctx, &existing,
		"SELECT ancestor FROM task_paths WHERE descendant = ? AND depth = 1", childID)
	if err != nil {
		return fmt.Errorf("checking parent of %s: %w", childID, err)
	}
	if len(existing) > 0 {
		return &model.MultipleParentsError{ChildID: childID, ParentID: existing[0]}
	}
	return nil
}

// attachTx links every ancestor of parentID (and parentID itself) to
// childID and every descendant of childID.
func attachTx(ctx context.Context, tx *sqlx.Tx, parentID, childID string) error {
	_, err := tx.ExecContext(ctx, `
		INSERT INTO task_paths (ancestor, descendant, depth)
		SELECT above.ancestor, below.descendant, above.depth + below.depth + 1
		FROM (
			SELECT ancestor, depth FROM task_paths WHERE descendant = ?
			UNION ALL SELECT ?, 0
		) AS above
		CROSS JOIN (
			SELECT descendant, depth FROM task_paths WHERE ancestor = ?
			UNION ALL SELECT ?, 0
		) AS below`,
		parentID, parentID, childID, childID,
	)
	if err != nil {
		return fmt.Errorf("attaching %s under %s: %w", childID, parentID, err)
	}
	return nil
}

// detachTx removes every row linking an ancestor of childID to childID or
// its subtree.
func detachTx(ctx context.Context, tx *sqlx.Tx, childID string) error {
	var above []string
	if err := tx.SelectContext(ctx, &above,
		"SELECT ancestor FROM task_paths WHERE descendant = ?", childID); err != nil {
		return fmt.Errorf("querying ancestors of %s: %w", childID, err)
	}
	if len(above) == 0 {
		return nil
	}

	below := []string{childID}
	var subtree []string
	if err := tx.SelectContext(ctx, &subtree,
		"SELECT descendant FROM task_paths WHERE ancestor = ?", childID); err != nil {
		return fmt.Errorf("querying subtree of %s: %w", childID, err)
	}
	below = append(below, subtree...)

	query, args, err := sqlx.In(
		"DELETE FROM task_paths WHERE ancestor IN (?) AND descendant IN (?)",
		above, below)
	if err != nil {
		return fmt.Errorf("building detach query for %s: %w", childID, err)
	}
	if _, err := tx.ExecContext(ctx, tx.Rebind(query), args...); err != nil {
		return fmt.Errorf("detaching %s: %w", childID, err)
	}
	return nil
}

// deleteFromClosureTx removes id from the closure table. Its children move
// up to its parent, or become roots when id had no parent.
func deleteFromClosureTx(ctx context.Context, tx *sqlx.Tx, id string) error {
	_, err := tx.ExecContext(ctx, `
		UPDATE task_paths SET depth = depth - 1
		WHERE ancestor IN (SELECT ancestor FROM task_paths WHERE descendant = ?)
		  AND descendant IN (SELECT descendant FROM task_paths WHERE ancestor = ?)`,
		id, id)
	if err != nil {
		return fmt.Errorf("promoting subtree of %s: %w", id, err)
	}

	_, err = tx.ExecContext(ctx,
		"DELETE FROM task_paths WHERE ancestor = ? OR descendant = ?", id, id)
	if err != nil {
		return fmt.Errorf("removing paths of %s: %w", id, err)
	}
	return nil
}
