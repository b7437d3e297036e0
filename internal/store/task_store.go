package store

import (
	"context"
	"database/sql"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/jmoiron/sqlx"

	"github.com/nhle/nowtask/internal/model"
	"github.com/nhle/nowtask/internal/recurrence"
)

const taskColumns = `tasks.id, tasks.created_at, tasks.name, tasks.note,
	tasks.deadline_date, tasks.deadline_time,
	tasks.start_after_date, tasks.start_after_time,
	tasks.scheduled_date, tasks.scheduled_time,
	tasks.category_id`

// InsertTask creates a task with its recurrence rules and, optionally, its
// parent edge. Generates a UUID if the task has no ID.
func (s *SQLiteStore) InsertTask(ctx context.Context, nt NewTask) (string, error) {
	t := nt.Task
	if strings.TrimSpace(t.Name) == "" {
		return "", &model.ValidationError{Field: "name", Message: "must not be blank"}
	}
	if t.ID == "" {
		t.ID = uuid.New().String()
	}
	if t.CreatedAt.IsZero() {
		t.CreatedAt = time.Now()
	}

	err := s.withTx(ctx, func(tx *sqlx.Tx) error {
		_, err := tx.ExecContext(ctx, `
			INSERT INTO tasks (
				id, created_at, name, note,
				deadline_date, deadline_time,
				start_after_date, start_after_time,
				scheduled_date, scheduled_time,
				category_id
			) VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`,
			t.ID, t.CreatedAt.UTC(), t.Name, t.Note,
			dateValue(t.DeadlineDate), timeValue(t.DeadlineTime),
			dateValue(t.StartAfterDate), timeValue(t.StartAfterTime),
			dateValue(t.ScheduledDate), timeValue(t.ScheduledTime),
			t.CategoryID,
		)
		if err != nil {
			return fmt.Errorf("creating task: %w", err)
		}

		if err := insertRecurrencesTx(ctx, tx, t.ID, nt.Recurrences); err != nil {
			return err
		}

		if nt.ParentID != nil {
			if err := checkAttach(ctx, tx, *nt.ParentID, t.ID); err != nil {
				return err
			}
			return attachTx(ctx, tx, *nt.ParentID, t.ID)
		}
		return nil
	})
	if err != nil {
		return "", err
	}
	return t.ID, nil
}

// UpdateTask replaces a task's fields, applies the recurrence diff and the
// parent change in one transaction.
func (s *SQLiteStore) UpdateTask(ctx context.Context, u TaskUpdate) error {
	t := u.Task
	if strings.TrimSpace(t.Name) == "" {
		return &model.ValidationError{Field: "name", Message: "must not be blank"}
	}

	return s.withTx(ctx, func(tx *sqlx.Tx) error {
		result, err := tx.ExecContext(ctx, `
			UPDATE tasks SET
				name = ?, note = ?,
				deadline_date = ?, deadline_time = ?,
				start_after_date = ?, start_after_time = ?,
				scheduled_date = ?, scheduled_time = ?,
				category_id = ?
			WHERE id = ?`,
			t.Name, t.Note,
			dateValue(t.DeadlineDate), timeValue(t.DeadlineTime),
			dateValue(t.StartAfterDate), timeValue(t.StartAfterTime),
			dateValue(t.ScheduledDate), timeValue(t.ScheduledTime),
			t.CategoryID,
			t.ID,
		)
		if err != nil {
			return fmt.Errorf("updating task %s: %w", t.ID, err)
		}
		rows, _ := result.RowsAffected()
		if rows == 0 {
			return fmt.Errorf("task %s: %w", t.ID, model.ErrNotFound)
		}

		if len(u.RemoveRecurrences) > 0 {
			query, args, err := sqlx.In(
				"DELETE FROM task_recurrences WHERE task_id = ? AND id IN (?)",
				t.ID, u.RemoveRecurrences)
			if err != nil {
				return fmt.Errorf("building recurrence delete for %s: %w", t.ID, err)
			}
			if _, err := tx.ExecContext(ctx, tx.Rebind(query), args...); err != nil {
				return fmt.Errorf("deleting recurrences of %s: %w", t.ID, err)
			}
		}
		if err := insertRecurrencesTx(ctx, tx, t.ID, u.AddRecurrences); err != nil {
			return err
		}

		switch u.Parent.Action {
		case model.ParentRemove:
			return detachTx(ctx, tx, t.ID)
		case model.ParentReplace:
			var current string
			err := tx.GetContext(ctx, &current,
				"SELECT ancestor FROM task_paths WHERE descendant = ? AND depth = 1", t.ID)
			if err == nil && current == u.Parent.ParentID {
				return nil
			}
			if err != nil && !notFound(err) {
				return fmt.Errorf("getting parent of %s: %w", t.ID, err)
			}
			if err := checkLinkable(ctx, tx, u.Parent.ParentID, t.ID); err != nil {
				return err
			}
			if err := detachTx(ctx, tx, t.ID); err != nil {
				return err
			}
			return attachTx(ctx, tx, u.Parent.ParentID, t.ID)
		}
		return nil
	})
}

// DeleteTask removes a task. Its recurrences and history cascade; its
// children are promoted to its parent.
func (s *SQLiteStore) DeleteTask(ctx context.Context, id string) error {
	return s.withTx(ctx, func(tx *sqlx.Tx) error {
		if err := requireTask(ctx, tx, id); err != nil {
			return err
		}
		if err := deleteFromClosureTx(ctx, tx, id); err != nil {
			return err
		}
		if _, err := tx.ExecContext(ctx, "DELETE FROM tasks WHERE id = ?", id); err != nil {
			return fmt.Errorf("deleting task %s: %w", id, err)
		}
		return nil
	})
}

// GetTaskByID retrieves a single task by ID.
func (s *SQLiteStore) GetTaskByID(ctx context.Context, id string) (*model.Task, error) {
	row := s.db.QueryRowxContext(ctx, "SELECT "+taskColumns+" FROM tasks WHERE id = ?", id)
	t, err := scanTask(row)
	if notFound(err) {
		return nil, fmt.Errorf("task %s: %w", id, model.ErrNotFound)
	}
	if err != nil {
		return nil, fmt.Errorf("getting task %s: %w", id, err)
	}
	return &t, nil
}

// GetTaskDetail returns the task with its latest completion, category
// name and direct parent resolved.
func (s *SQLiteStore) GetTaskDetail(ctx context.Context, id string) (*model.TaskDetail, error) {
	t, err := s.GetTaskByID(ctx, id)
	if err != nil {
		return nil, err
	}
	detail := &model.TaskDetail{Task: *t}

	var ruleCount int
	if err := s.db.GetContext(ctx, &ruleCount,
		"SELECT COUNT(*) FROM task_recurrences WHERE task_id = ?", id); err != nil {
		return nil, fmt.Errorf("counting recurrences of %s: %w", id, err)
	}
	detail.Recurring = ruleCount > 0

	if detail.DoneAt, err = latestCompletion(ctx, s.db, id); err != nil {
		return nil, err
	}

	if t.CategoryID != nil {
		var name string
		err := s.db.GetContext(ctx, &name, "SELECT name FROM categories WHERE id = ?", *t.CategoryID)
		if err != nil && !notFound(err) {
			return nil, fmt.Errorf("getting category of %s: %w", id, err)
		}
		if err == nil {
			detail.CategoryName = &name
		}
	}

	parent, err := s.GetParent(ctx, id)
	if err != nil {
		return nil, err
	}
	if parent != nil {
		detail.ParentID = &parent.ID
		detail.ParentName = &parent.Name
	}

	return detail, nil
}

// SearchTasks returns tasks whose name contains query, ignoring case.
func (s *SQLiteStore) SearchTasks(ctx context.Context, query string) ([]model.Task, error) {
	rows, err := s.db.QueryxContext(ctx, `
		SELECT `+taskColumns+` FROM tasks
		WHERE name LIKE ? ESCAPE '\'
		ORDER BY created_at, id`, likePattern(query))
	if err != nil {
		return nil, fmt.Errorf("searching tasks: %w", err)
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

// SearchTaskItems returns compact items for tasks matching criteria. A date
// criterion matches a task whose field equals the date, or a recurring task
// with a time in that field that recurs on the date.
func (s *SQLiteStore) SearchTaskItems(
	ctx context.Context,
	criteria model.TaskSearchCriteria,
	weekOf recurrence.WeekOfMonthFunc,
) ([]model.TaskItem, error) {
	tasks, err := s.SearchTasks(ctx, criteria.Name)
	if err != nil {
		return nil, err
	}
	if len(tasks) == 0 {
		return nil, nil
	}

	ids := make([]string, len(tasks))
	for i, t := range tasks {
		ids[i] = t.ID
	}

	rules, err := s.recurrencesFor(ctx, ids)
	if err != nil {
		return nil, err
	}
	done, err := s.latestCompletionsFor(ctx, ids)
	if err != nil {
		return nil, err
	}

	var items []model.TaskItem
	for _, t := range tasks {
		taskRules := rules[t.ID]
		if criteria.DeadlineDate != nil {
			d := *criteria.DeadlineDate
			match := (t.DeadlineDate != nil && *t.DeadlineDate == d) ||
				(t.DeadlineTime != nil && recurrence.IsDue(taskRules, d, weekOf(d)))
			if !match {
				continue
			}
		}
		if criteria.ScheduledDate != nil {
			d := *criteria.ScheduledDate
			match := (t.ScheduledDate != nil && *t.ScheduledDate == d) ||
				(t.ScheduledTime != nil && recurrence.IsDue(taskRules, d, weekOf(d)))
			if !match {
				continue
			}
		}

		item := model.TaskItem{
			ID:        t.ID,
			Name:      t.Name,
			Recurring: len(taskRules) > 0,
		}
		if at, ok := done[t.ID]; ok {
			item.DoneAt = &at
		}
		items = append(items, item)
	}
	return items, nil
}

// CountTasks returns the total number of tasks.
func (s *SQLiteStore) CountTasks(ctx context.Context) (int, error) {
	var count int
	if err := s.db.GetContext(ctx, &count, "SELECT COUNT(*) FROM tasks"); err != nil {
		return 0, fmt.Errorf("counting tasks: %w", err)
	}
	return count, nil
}

func selectTasks(ctx context.Context, q sqlx.QueryerContext) ([]model.Task, error) {
	rows, err := q.QueryxContext(ctx, "SELECT "+taskColumns+" FROM tasks ORDER BY created_at, id")
	if err != nil {
		return nil, fmt.Errorf("querying tasks: %w", err)
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

func likePattern(query string) string {
	escaped := strings.NewReplacer(`\`, `\\`, `%`, `\%`, `_`, `\_`).Replace(query)
	return "%" + escaped + "%"
}

func scanTask(rows interface{ Scan(dest ...interface{}) error }) (model.Task, error) {
	var t model.Task
	var deadlineDate, deadlineTime sql.NullString
	var startAfterDate, startAfterTime sql.NullString
	var scheduledDate, scheduledTime sql.NullString
	var categoryID sql.NullString

	err := rows.Scan(
		&t.ID, &t.CreatedAt, &t.Name, &t.Note,
		&deadlineDate, &deadlineTime,
		&startAfterDate, &startAfterTime,
		&scheduledDate, &scheduledTime,
		&categoryID,
	)
	if err != nil {
		return model.Task{}, err
	}

	if t.DeadlineDate, err = parseDate(deadlineDate); err != nil {
		return model.Task{}, fmt.Errorf("task %s deadline: %w", t.ID, err)
	}
	if t.DeadlineTime, err = parseTime(deadlineTime); err != nil {
		return model.Task{}, fmt.Errorf("task %s deadline: %w", t.ID, err)
	}
	if t.StartAfterDate, err = parseDate(startAfterDate); err != nil {
		return model.Task{}, fmt.Errorf("task %s start after: %w", t.ID, err)
	}
	if t.StartAfterTime, err = parseTime(startAfterTime); err != nil {
		return model.Task{}, fmt.Errorf("task %s start after: %w", t.ID, err)
	}
	if t.ScheduledDate, err = parseDate(scheduledDate); err != nil {
		return model.Task{}, fmt.Errorf("task %s scheduled: %w", t.ID, err)
	}
	if t.ScheduledTime, err = parseTime(scheduledTime); err != nil {
		return model.Task{}, fmt.Errorf("task %s scheduled: %w", t.ID, err)
	}
	if categoryID.Valid {
		t.CategoryID = &categoryID.String
	}
	t.CreatedAt = t.CreatedAt.Local()
	return t, nil
}
