package model

import "time"

// TaskCompletion records one "done" event for a task.
type TaskCompletion struct {
	ID     string    `json:"id" db:"id"`
	TaskID string    `json:"task_id" db:"task_id"`
	DoneAt time.Time `json:"done_at" db:"done_at"`
}

// TaskSkip records one "skip" event for a task. Skips only act as a
// readiness cooldown.
type TaskSkip struct {
	ID        string    `json:"id" db:"id"`
	TaskID    string    `json:"task_id" db:"task_id"`
	SkippedAt time.Time `json:"skipped_at" db:"skipped_at"`
}

// TaskPath is one row of the prerequisite closure table: Ancestor must be
// dealt with before Descendant, Depth edges apart. Depth is at least 1.
type TaskPath struct {
	Ancestor   string `json:"ancestor" db:"ancestor"`
	Descendant string `json:"descendant" db:"descendant"`
	Depth      int    `json:"depth" db:"depth"`
}
