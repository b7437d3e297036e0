package service

import (
	"fmt"
	"strings"
	"time"

	"cloud.google.com/go/civil"
)

// ParseWhen parses user input of the form "2006-01-02", "15:04" or
// "2006-01-02 15:04" into its optional date and time-of-day parts. An empty
// string yields neither.
func ParseWhen(s string) (*civil.Date, *civil.Time, error) {
	s = strings.TrimSpace(s)
	if s == "" {
		return nil, nil, nil
	}

	datePart, timePart, hasBoth := strings.Cut(s, " ")
	if !hasBoth {
		if strings.Contains(s, ":") {
			datePart, timePart = "", s
		} else {
			timePart = ""
		}
	}

	var d *civil.Date
	if datePart != "" {
		parsed, err := civil.ParseDate(datePart)
		if err != nil {
			return nil, nil, fmt.Errorf("invalid date %q: want YYYY-MM-DD", datePart)
		}
		d = &parsed
	}

	var t *civil.Time
	if timePart = strings.TrimSpace(timePart); timePart != "" {
		parsed, err := time.Parse("15:04", timePart)
		if err != nil {
			return nil, nil, fmt.Errorf("invalid time %q: want HH:MM", timePart)
		}
		ct := civil.TimeOf(parsed)
		t = &ct
	}
	return d, t, nil
}

// FormatWhen renders optional date and time parts the way ParseWhen reads
// them.
func FormatWhen(d *civil.Date, t *civil.Time) string {
	var parts []string
	if d != nil {
		parts = append(parts, d.String())
	}
	if t != nil {
		parts = append(parts, fmt.Sprintf("%02d:%02d", t.Hour, t.Minute))
	}
	return strings.Join(parts, " ")
}

var weekdayNames = map[string]time.Weekday{
	"sun": time.Sunday, "sunday": time.Sunday,
	"mon": time.Monday, "monday": time.Monday,
	"tue": time.Tuesday, "tuesday": time.Tuesday,
	"wed": time.Wednesday, "wednesday": time.Wednesday,
	"thu": time.Thursday, "thursday": time.Thursday,
	"fri": time.Friday, "friday": time.Friday,
	"sat": time.Saturday, "saturday": time.Saturday,
}

// ParseWeekdays parses names such as "mon" or "Friday".
func ParseWeekdays(names []string) ([]time.Weekday, error) {
	days := make([]time.Weekday, 0, len(names))
	for _, n := range names {
		wd, ok := weekdayNames[strings.ToLower(strings.TrimSpace(n))]
		if !ok {
			return nil, fmt.Errorf("unknown weekday %q", n)
		}
		days = append(days, wd)
	}
	return days, nil
}
