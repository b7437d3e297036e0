package schedule

import (
	"github.com/nhle/nowtask/internal/model"
)

// TopmostUnresolvedAncestor returns the farthest ancestor of id in paths
// for which isResolved is false. It reports false when id has no ancestors
// or all of them are resolved.
func TopmostUnresolvedAncestor(paths []model.TaskPath, id string, isResolved func(string) bool) (string, bool) {
	best := model.TaskPath{}
	found := false
	for _, p := range paths {
		if p.Descendant != id || isResolved(p.Ancestor) {
			continue
		}
		if !found || p.Depth > best.Depth {
			best = p
			found = true
		}
	}
	return best.Ancestor, found
}

// ancestorIndex groups closure rows by descendant.
func ancestorIndex(paths []model.TaskPath) map[string][]model.TaskPath {
	idx := make(map[string][]model.TaskPath)
	for _, p := range paths {
		idx[p.Descendant] = append(idx[p.Descendant], p)
	}
	return idx
}
