package tasklist

import (
	"fmt"
	"io"
	"strings"
	"time"

	"cloud.google.com/go/civil"
	"github.com/charmbracelet/bubbles/list"
	tea "github.com/charmbracelet/bubbletea"

	"github.com/nhle/nowtask/internal/model"
	"github.com/nhle/nowtask/internal/service"
	"github.com/nhle/nowtask/internal/theme"
)

// Item wraps a task so it can be used in a bubbles/list. Items built from
// search results only carry the task's ID and Name.
type Item struct {
	Task      model.Task
	Recurring bool
	DoneAt    *time.Time
}

// FilterValue returns the string used for fuzzy filtering.
func (i Item) FilterValue() string { return i.Task.Name }

// Title returns the task name for the list.
func (i Item) Title() string { return i.Task.Name }

// Description returns a short summary line for the list.
func (i Item) Description() string {
	var parts []string
	if when := service.FormatWhen(i.Task.ScheduledDate, i.Task.ScheduledTime); when != "" {
		parts = append(parts, "@"+when)
	}
	if when := service.FormatWhen(i.Task.DeadlineDate, i.Task.DeadlineTime); when != "" {
		parts = append(parts, "due "+when)
	}
	if i.Recurring {
		parts = append(parts, "recurring")
	}
	return strings.Join(parts, " | ")
}

// Overdue reports whether the task's deadline date is before today.
func (i Item) Overdue(today civil.Date) bool {
	return i.DoneAt == nil && i.Task.DeadlineDate != nil && i.Task.DeadlineDate.Before(today)
}

func fromTask(t model.Task) Item {
	return Item{Task: t}
}

func fromSearch(ti model.TaskItem) Item {
	return Item{
		Task:      model.Task{ID: ti.ID, Name: ti.Name},
		Recurring: ti.Recurring,
		DoneAt:    ti.DoneAt,
	}
}

// ItemDelegate implements list.ItemDelegate for rendering list items.
type ItemDelegate struct {
	// now is shared by pointer with the Model so a reload is visible.
	now *time.Time
}

// Height returns the number of lines each item takes.
func (d ItemDelegate) Height() int { return 1 }

// Spacing returns the number of blank lines between items.
func (d ItemDelegate) Spacing() int { return 0 }

// Update handles per-item messages (unused for now).
func (d ItemDelegate) Update(_ tea.Msg, _ *list.Model) tea.Cmd {
	return nil
}

// Render draws a single list item line.
func (d ItemDelegate) Render(w io.Writer, m list.Model, index int, item list.Item) {
	it, ok := item.(Item)
	if !ok {
		return
	}
	now := time.Now()
	if d.now != nil && !d.now.IsZero() {
		now = *d.now
	}

	fmt.Fprint(w, renderLine(it, index == m.Index(), now))
}

func renderLine(it Item, isSelected bool, now time.Time) string {
	prefix := "○"
	if it.DoneAt != nil {
		prefix = "✓"
	}

	var b strings.Builder
	fmt.Fprintf(&b, "%s %s", prefix, it.Task.Name)

	if it.Recurring {
		b.WriteString(theme.RecurringBadgeStyle.Render(" ↻"))
	}
	if when := service.FormatWhen(it.Task.ScheduledDate, it.Task.ScheduledTime); when != "" {
		b.WriteString(theme.WhenStyle(false).Render(" @" + when))
	}
	if when := service.FormatWhen(it.Task.DeadlineDate, it.Task.DeadlineTime); when != "" {
		overdue := it.Overdue(civil.DateOf(now))
		label := " due " + when
		if overdue {
			label += " OVERDUE"
		}
		b.WriteString(theme.WhenStyle(overdue).Render(label))
	}
	if it.DoneAt != nil {
		b.WriteString(theme.HelpStyle.Render("  done " + relativeTime(*it.DoneAt, now)))
	}

	line := b.String()
	if it.DoneAt != nil && !it.Recurring {
		line = theme.DimmedStyle.Render(line)
	}

	if isSelected {
		return theme.SelectedItemStyle.Render(line)
	}
	return theme.ListItemStyle.Render(line)
}

// relativeTime returns a human-friendly relative time string.
func relativeTime(t, now time.Time) string {
	if t.IsZero() {
		return ""
	}

	d := now.Sub(t)
	switch {
	case d < time.Minute:
		return "just now"
	case d < time.Hour:
		return fmt.Sprintf("%dm ago", int(d.Minutes()))
	case d < 24*time.Hour:
		return fmt.Sprintf("%dh ago", int(d.Hours()))
	case d < 7*24*time.Hour:
		return fmt.Sprintf("%dd ago", int(d.Hours()/24))
	default:
		return fmt.Sprintf("%dw ago", int(d.Hours()/24/7))
	}
}
