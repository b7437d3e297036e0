package schedule

import (
	"github.com/nhle/nowtask/internal/model"
)

// Snapshot is a consistent read of every input selection depends on.
type Snapshot struct {
	Tasks       []model.Task
	Recurrences []model.TaskRecurrence
	Completions []model.TaskCompletion
	Skips       []model.TaskSkip
	Paths       []model.TaskPath
}

// snapshotIndex groups a Snapshot's rows by task id.
type snapshotIndex struct {
	tasks       map[string]model.Task
	recurrences map[string][]model.TaskRecurrence
	completions map[string][]model.TaskCompletion
	skips       map[string][]model.TaskSkip
	ancestors   map[string][]model.TaskPath
}

func indexSnapshot(in Snapshot) snapshotIndex {
	idx := snapshotIndex{
		tasks:       make(map[string]model.Task, len(in.Tasks)),
		recurrences: make(map[string][]model.TaskRecurrence),
		completions: make(map[string][]model.TaskCompletion),
		skips:       make(map[string][]model.TaskSkip),
		ancestors:   ancestorIndex(in.Paths),
	}
	for _, t := range in.Tasks {
		idx.tasks[t.ID] = t
	}
	for _, r := range in.Recurrences {
		idx.recurrences[r.TaskID] = append(idx.recurrences[r.TaskID], r)
	}
	for _, c := range in.Completions {
		idx.completions[c.TaskID] = append(idx.completions[c.TaskID], c)
	}
	for _, s := range in.Skips {
		idx.skips[s.TaskID] = append(idx.skips[s.TaskID], s)
	}
	return idx
}

func (idx snapshotIndex) pending(id string, p CurrentTaskParams) bool {
	t, ok := idx.tasks[id]
	if !ok {
		return false
	}
	return IsPending(t, idx.recurrences[id], idx.completions[id], p)
}

func (idx snapshotIndex) ready(t model.Task, p CurrentTaskParams) bool {
	return IsReady(t, idx.recurrences[t.ID], idx.completions[t.ID], idx.skips[t.ID], p)
}

// topmostPending returns the farthest ancestor of id that is still pending.
func (idx snapshotIndex) topmostPending(id string, p CurrentTaskParams) (model.Task, bool) {
	ancestor, ok := TopmostUnresolvedAncestor(idx.ancestors[id], id, func(a string) bool {
		return !idx.pending(a, p)
	})
	if !ok {
		return model.Task{}, false
	}
	return idx.tasks[ancestor], true
}

func (idx snapshotIndex) rank(in Snapshot, p CurrentTaskParams) []rankKey {
	keys := make([]rankKey, 0, len(in.Tasks))
	for _, t := range in.Tasks {
		keys = append(keys, newRankKey(t, len(idx.recurrences[t.ID]) > 0, p))
	}
	sortKeys(keys)
	return keys
}

// Rank returns every task in selection order, before readiness, completion
// and ancestor filtering.
func Rank(in Snapshot, p CurrentTaskParams) []model.Task {
	idx := indexSnapshot(in)
	keys := idx.rank(in, p)
	tasks := make([]model.Task, len(keys))
	for i, k := range keys {
		tasks[i] = k.task
	}
	return tasks
}

// candidates walks the ranked tasks and yields each ready effective
// candidate once, in ranking order, until yield returns false.
func candidates(in Snapshot, p CurrentTaskParams, yield func(model.Task) bool) {
	idx := indexSnapshot(in)
	seen := make(map[string]bool)

	for _, k := range idx.rank(in, p) {
		done := latestCompletion(idx.completions[k.task.ID])
		if !isCandidate(k.recurring, done, p) {
			continue
		}

		effective := k.task
		if ancestor, ok := idx.topmostPending(k.task.ID, p); ok {
			effective = ancestor
		}
		if seen[effective.ID] {
			continue
		}
		seen[effective.ID] = true

		if !idx.ready(effective, p) {
			continue
		}
		if !yield(effective) {
			return
		}
	}
}

// SelectCurrent returns the task to act on now, or nil when nothing is
// ready. A task with a pending prerequisite is replaced by its farthest
// pending ancestor.
func SelectCurrent(in Snapshot, p CurrentTaskParams) *model.Task {
	var current *model.Task
	candidates(in, p, func(t model.Task) bool {
		current = &t
		return false
	})
	return current
}

// Queue returns every ready effective candidate in selection order. Its
// first element is SelectCurrent's answer.
func Queue(in Snapshot, p CurrentTaskParams) []model.Task {
	var queue []model.Task
	candidates(in, p, func(t model.Task) bool {
		queue = append(queue, t)
		return true
	})
	return queue
}
