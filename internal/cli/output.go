package cli

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"strings"

	"github.com/nhle/nowtask/internal/model"
	"github.com/nhle/nowtask/internal/service"
)

// shortIDLen is how many id characters text output shows.
const shortIDLen = 8

func shortID(id string) string {
	if len(id) <= shortIDLen {
		return id
	}
	return id[:shortIDLen]
}

// resolveID accepts a full task id or a unique prefix of one.
func resolveID(ctx context.Context, svc *service.Service, ref string) (string, error) {
	ref = strings.TrimSpace(ref)
	if ref == "" {
		return "", errors.New("task id must not be empty")
	}
	if _, err := svc.GetTask(ctx, ref); err == nil {
		return ref, nil
	} else if !errors.Is(err, model.ErrNotFound) {
		return "", err
	}

	tasks, err := svc.Search(ctx, "")
	if err != nil {
		return "", err
	}
	var matches []string
	for _, t := range tasks {
		if strings.HasPrefix(t.ID, ref) {
			matches = append(matches, t.ID)
		}
	}
	switch len(matches) {
	case 0:
		return "", fmt.Errorf("task %s: %w", ref, model.ErrNotFound)
	case 1:
		return matches[0], nil
	default:
		return "", fmt.Errorf("task id prefix %q is ambiguous (%d matches)", ref, len(matches))
	}
}

// taskLine renders a task on one line.
func taskLine(t model.Task) string {
	var b strings.Builder
	fmt.Fprintf(&b, "%s  %s", shortID(t.ID), t.Name)
	if when := service.FormatWhen(t.ScheduledDate, t.ScheduledTime); when != "" {
		fmt.Fprintf(&b, "  @%s", when)
	}
	if when := service.FormatWhen(t.DeadlineDate, t.DeadlineTime); when != "" {
		fmt.Fprintf(&b, "  due %s", when)
	}
	if when := service.FormatWhen(t.StartAfterDate, t.StartAfterTime); when != "" {
		fmt.Fprintf(&b, "  after %s", when)
	}
	return b.String()
}

func writeJSON(w io.Writer, v any) error {
	enc := json.NewEncoder(w)
	enc.SetIndent("", "  ")
	return enc.Encode(v)
}

func writeTasks(w io.Writer, jsonOut bool, tasks []model.Task) error {
	if jsonOut {
		if tasks == nil {
			tasks = []model.Task{}
		}
		return writeJSON(w, tasks)
	}
	for _, t := range tasks {
		if _, err := fmt.Fprintln(w, taskLine(t)); err != nil {
			return err
		}
	}
	return nil
}
