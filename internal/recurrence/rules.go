package recurrence

import (
	"fmt"
	"sort"
	"strings"
	"time"

	"cloud.google.com/go/civil"

	"github.com/nhle/nowtask/internal/model"
)

// AlignWeekly builds one Week rule per weekday. Each rule starts on the
// first matching weekday on or after start, so a rule's start always falls
// on the weekday it recurs on.
func AlignWeekly(start civil.Date, weekdays []time.Weekday, step int) []model.TaskRecurrence {
	days := uniqueWeekdays(weekdays)
	rules := make([]model.TaskRecurrence, 0, len(days))
	for _, wd := range days {
		offset := (int(wd) - int(Weekday(start)) + 7) % 7
		rules = append(rules, model.TaskRecurrence{
			Start: start.AddDays(offset),
			Type:  model.RecurrenceWeek,
			Step:  step,
		})
	}
	return rules
}

// MonthlyByWeek builds a WeekOfMonth rule anchored on start: the weekday
// and week of start are kept.
func MonthlyByWeek(start civil.Date, step int, weekOf WeekOfMonthFunc) model.TaskRecurrence {
	return model.TaskRecurrence{
		Start: start,
		Type:  model.RecurrenceWeekOfMonth,
		Step:  step,
		Week:  weekOf(start),
	}
}

func uniqueWeekdays(weekdays []time.Weekday) []time.Weekday {
	seen := make(map[time.Weekday]bool, len(weekdays))
	var out []time.Weekday
	for _, wd := range weekdays {
		if wd < time.Sunday || wd > time.Saturday || seen[wd] {
			continue
		}
		seen[wd] = true
		out = append(out, wd)
	}
	sort.Slice(out, func(i, j int) bool { return out[i] < out[j] })
	return out
}

var ordinals = []string{"", "1st", "2nd", "3rd", "4th", "5th", "6th"}

// Describe renders a rule set as short human-readable text, such as
// "every 2 weeks on Mon, Wed".
func Describe(rules []model.TaskRecurrence) string {
	if len(rules) == 0 {
		return "does not repeat"
	}
	first := rules[0]

	switch first.Type {
	case model.RecurrenceDay:
		return every(first.Step, "day", "days")

	case model.RecurrenceWeek:
		var days []time.Weekday
		for _, r := range rules {
			days = append(days, Weekday(r.Start))
		}
		days = uniqueWeekdays(days)
		names := make([]string, len(days))
		for i, d := range days {
			names[i] = d.String()[:3]
		}
		return every(first.Step, "week", "weeks") + " on " + strings.Join(names, ", ")

	case model.RecurrenceDayOfMonth:
		if first.Start.Day == LastDayOfMonth(first.Start) {
			return every(first.Step, "month", "months") + " on the last day"
		}
		return every(first.Step, "month", "months") + " on day " + fmt.Sprint(first.Start.Day)

	case model.RecurrenceWeekOfMonth:
		parts := make([]string, 0, len(rules))
		for _, r := range rules {
			parts = append(parts, fmt.Sprintf("the %s %s", ordinal(r.Week), Weekday(r.Start)))
		}
		return every(first.Step, "month", "months") + " on " + strings.Join(parts, " and ")

	case model.RecurrenceYear:
		return every(first.Step, "year", "years") + " on " + first.Start.In(time.UTC).Format("Jan 2")

	default:
		return first.Type.String()
	}
}

func every(step int, one, many string) string {
	if step <= 1 {
		return "every " + one
	}
	return fmt.Sprintf("every %d %s", step, many)
}

func ordinal(week int) string {
	if week > 0 && week < len(ordinals) {
		return ordinals[week]
	}
	return fmt.Sprintf("%dth", week)
}
