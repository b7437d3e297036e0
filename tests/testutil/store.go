package testutil

import (
	"context"
	"testing"
	"time"

	"github.com/nhle/nowtask/internal/model"
	"github.com/nhle/nowtask/internal/store"
)

// NewTestStore creates an in-memory SQLiteStore with all migrations applied.
// It automatically closes the store when the test completes.
func NewTestStore(t *testing.T) *store.SQLiteStore {
	t.Helper()

	s, err := store.NewSQLiteStore(":memory:")
	if err != nil {
		t.Fatalf("creating test store: %v", err)
	}

	t.Cleanup(func() {
		if err := s.Close(); err != nil {
			t.Errorf("closing test store: %v", err)
		}
	})

	return s
}

// MustInsertTask creates a plain task named name and returns its id.
// Tasks created by successive calls get increasing creation times.
func MustInsertTask(t *testing.T, s store.Store, name string) string {
	t.Helper()

	insertSeq++
	id, err := s.InsertTask(context.Background(), store.NewTask{
		Task: model.Task{
			Name:      name,
			CreatedAt: time.Date(2024, 1, 1, 0, 0, insertSeq, 0, time.UTC),
		},
	})
	if err != nil {
		t.Fatalf("inserting task %q: %v", name, err)
	}
	return id
}

var insertSeq int

// FixedClock returns a clock function that always reports at.
func FixedClock(at time.Time) func() time.Time {
	return func() time.Time { return at }
}
