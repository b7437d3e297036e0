package importer_test

import (
	"context"
	"strings"
	"testing"
	"time"

	"cloud.google.com/go/civil"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/nhle/nowtask/internal/importer"
	"github.com/nhle/nowtask/internal/model"
	"github.com/nhle/nowtask/internal/service"
	"github.com/nhle/nowtask/tests/testutil"
)

const doc = `
tasks:
  - key: taxes
    name: File taxes
    deadline: 2024-04-15
    category: Paperwork
  - name: Collect receipts
    parent: taxes
    scheduled: "2024-01-10 18:30"
  - name: Review budget
    category: Paperwork
    repeat:
      every: 2
      unit: week
      start: 2024-01-01
      on: [mon, thu]
`

func newService(t *testing.T) *service.Service {
	t.Helper()
	clock := testutil.FixedClock(time.Date(2024, 1, 8, 12, 0, 0, 0, time.UTC))
	return service.New(testutil.NewTestStore(t), service.WithClock(clock))
}

func TestParse(t *testing.T) {
	drafts, err := importer.Parse(strings.NewReader(doc))
	require.NoError(t, err)
	require.Len(t, drafts, 3)
	assert.Equal(t, "2024-04-15", drafts[0].Deadline)
	assert.Equal(t, "taxes", drafts[1].Parent)
	require.NotNil(t, drafts[2].Repeat)
	assert.Equal(t, []string{"mon", "thu"}, drafts[2].Repeat.On)

	_, err = importer.Parse(strings.NewReader("tasks:\n  - name: x\n    colour: red\n"))
	assert.Error(t, err, "unknown fields are rejected")

	drafts, err = importer.Parse(strings.NewReader(""))
	require.NoError(t, err)
	assert.Empty(t, drafts)
}

func TestImport_CreatesTasksWithParentsAndRules(t *testing.T) {
	svc := newService(t)
	ctx := context.Background()
	drafts, err := importer.Parse(strings.NewReader(doc))
	require.NoError(t, err)

	created, err := importer.New(svc).Import(ctx, drafts, false)
	require.NoError(t, err)
	require.Len(t, created, 3)
	assert.Equal(t, created[0].ID, created[1].ParentID)

	detail, err := svc.Detail(ctx, created[1].ID)
	require.NoError(t, err)
	require.NotNil(t, detail.ParentName)
	assert.Equal(t, "File taxes", *detail.ParentName)
	assert.Equal(t, &civil.Time{Hour: 18, Minute: 30}, detail.ScheduledTime)

	taxes, err := svc.Detail(ctx, created[0].ID)
	require.NoError(t, err)
	require.NotNil(t, taxes.CategoryName)
	assert.Equal(t, "Paperwork", *taxes.CategoryName)

	rules, err := svc.Recurrences(ctx, created[2].ID)
	require.NoError(t, err)
	require.Len(t, rules, 2)
	assert.Equal(t, 2, rules[0].Step)

	categories, err := svc.Categories(ctx)
	require.NoError(t, err)
	assert.Len(t, categories, 1)
}

func TestImport_DryRunWritesNothing(t *testing.T) {
	svc := newService(t)
	ctx := context.Background()
	drafts, err := importer.Parse(strings.NewReader(doc))
	require.NoError(t, err)

	created, err := importer.New(svc).Import(ctx, drafts, true)
	require.NoError(t, err)
	assert.Len(t, created, 3)

	stats, err := svc.Stats(ctx)
	require.NoError(t, err)
	assert.Zero(t, stats.Tasks)
}

func TestImport_Errors(t *testing.T) {
	tests := []struct {
		name string
		yaml string
		want string
	}{
		{"unknown parent", "tasks:\n  - name: a\n    parent: nope\n", "unknown parent"},
		{"forward reference", "tasks:\n  - name: a\n    parent: b\n  - key: b\n    name: b\n", "unknown parent"},
		{"duplicate key", "tasks:\n  - key: a\n    name: a\n  - key: a\n    name: b\n", "duplicate key"},
		{"bad date", "tasks:\n  - name: a\n    deadline: tomorrow\n", "deadline"},
		{"bad unit", "tasks:\n  - name: a\n    repeat: {unit: fortnight, start: 2024-01-01}\n", "repeat"},
		{"blank name", "tasks:\n  - note: no name\n", "name"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			svc := newService(t)
			drafts, err := importer.Parse(strings.NewReader(tt.yaml))
			require.NoError(t, err)

			_, err = importer.New(svc).Import(context.Background(), drafts, false)
			require.Error(t, err)
			assert.Contains(t, err.Error(), tt.want)
		})
	}
}

func TestImport_ExistingParentByID(t *testing.T) {
	svc := newService(t)
	ctx := context.Background()
	parent, err := svc.Create(ctx, service.NewTaskForm{TaskFields: service.TaskFields{Name: "existing"}})
	require.NoError(t, err)

	drafts := []importer.Draft{{Name: "child", Parent: parent}}
	created, err := importer.New(svc).Import(ctx, drafts, false)
	require.NoError(t, err)
	require.Len(t, created, 1)

	children, err := svc.Children(ctx, parent)
	require.NoError(t, err)
	require.Len(t, children, 1)
	assert.Equal(t, created[0].ID, children[0].ID)
	assert.True(t, model.IsMultipleParentsError(svc.SetParent(ctx, children[0].ID, parent)))
}
