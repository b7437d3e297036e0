package store

import (
	"context"
	"fmt"

	"cloud.google.com/go/civil"
	"github.com/google/uuid"
	"github.com/jmoiron/sqlx"

	"github.com/nhle/nowtask/internal/model"
)

const recurrenceColumns = "id, task_id, start, type, step, week"

// GetRecurrences returns the recurrence rules of a task, oldest start first.
func (s *SQLiteStore) GetRecurrences(ctx context.Context, taskID string) ([]model.TaskRecurrence, error) {
	rows, err := s.db.QueryxContext(ctx,
		"SELECT "+recurrenceColumns+" FROM task_recurrences WHERE task_id = ? ORDER BY start, week, id",
		taskID)
	if err != nil {
		return nil, fmt.Errorf("querying recurrences of %s: %w", taskID, err)
	}
	defer rows.Close()
	return collectRecurrences(rows)
}

// recurrencesFor loads the rules of several tasks keyed by task id.
func (s *SQLiteStore) recurrencesFor(ctx context.Context, taskIDs []string) (map[string][]model.TaskRecurrence, error) {
	query, args, err := sqlx.In(
		"SELECT "+recurrenceColumns+" FROM task_recurrences WHERE task_id IN (?) ORDER BY start, week, id",
		taskIDs)
	if err != nil {
		return nil, fmt.Errorf("building recurrence query: %w", err)
	}
	rows, err := s.db.QueryxContext(ctx, s.db.Rebind(query), args...)
	if err != nil {
		return nil, fmt.Errorf("querying recurrences: %w", err)
	}
	defer rows.Close()

	rules, err := collectRecurrences(rows)
	if err != nil {
		return nil, err
	}
	byTask := make(map[string][]model.TaskRecurrence)
	for _, r := range rules {
		byTask[r.TaskID] = append(byTask[r.TaskID], r)
	}
	return byTask, nil
}

func selectRecurrences(ctx context.Context, q sqlx.QueryerContext) ([]model.TaskRecurrence, error) {
	rows, err := q.QueryxContext(ctx,
		"SELECT "+recurrenceColumns+" FROM task_recurrences ORDER BY task_id, start, week, id")
	if err != nil {
		return nil, fmt.Errorf("querying recurrences: %w", err)
	}
	defer rows.Close()
	return collectRecurrences(rows)
}

func insertRecurrencesTx(ctx context.Context, tx *sqlx.Tx, taskID string, rules []model.TaskRecurrence) error {
	for _, r := range rules {
		if !r.Type.Valid() {
			return &model.ValidationError{Field: "recurrence type", Message: fmt.Sprintf("unknown type %d", r.Type)}
		}
		if r.Step < 1 {
			return &model.ValidationError{Field: "recurrence step", Message: "must be at least 1"}
		}
		if r.ID == "" {
			r.ID = uuid.New().String()
		}
		_, err := tx.ExecContext(ctx, `
			INSERT INTO task_recurrences (id, task_id, start, type, step, week)
			VALUES (?, ?, ?, ?, ?, ?)`,
			r.ID, taskID, r.Start.String(), int(r.Type), r.Step, r.Week,
		)
		if err != nil {
			return fmt.Errorf("adding recurrence to %s: %w", taskID, err)
		}
	}
	return nil
}

func collectRecurrences(rows *sqlx.Rows) ([]model.TaskRecurrence, error) {
	var rules []model.TaskRecurrence
	for rows.Next() {
		r, err := scanRecurrence(rows)
		if err != nil {
			return nil, err
		}
		rules = append(rules, r)
	}
	return rules, rows.Err()
}

func scanRecurrence(rows interface{ Scan(dest ...interface{}) error }) (model.TaskRecurrence, error) {
	var r model.TaskRecurrence
	var start string
	var kind int
	if err := rows.Scan(&r.ID, &r.TaskID, &start, &kind, &r.Step, &r.Week); err != nil {
		return model.TaskRecurrence{}, err
	}
	d, err := civil.ParseDate(start)
	if err != nil {
		return model.TaskRecurrence{}, fmt.Errorf("recurrence %s start: %w", r.ID, err)
	}
	r.Start = d
	r.Type = model.RecurrenceType(kind)
	return r, nil
}
