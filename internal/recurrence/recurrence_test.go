package recurrence

import (
	"testing"
	"time"

	"cloud.google.com/go/civil"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/nhle/nowtask/internal/model"
)

func date(y int, m time.Month, d int) civil.Date {
	return civil.Date{Year: y, Month: m, Day: d}
}

func rule(kind model.RecurrenceType, start civil.Date, step int) model.TaskRecurrence {
	return model.TaskRecurrence{Start: start, Type: kind, Step: step}
}

var sundayWeeks = WeekOfMonth(time.Sunday)

func TestIsDue_EmptySetNeverDue(t *testing.T) {
	assert.False(t, IsDue(nil, date(2024, 1, 1), 1))
}

func TestIsDue_BeforeStartNeverDue(t *testing.T) {
	r := rule(model.RecurrenceDay, date(2024, 1, 10), 1)
	assert.False(t, IsDue([]model.TaskRecurrence{r}, date(2024, 1, 9), 2))
	assert.True(t, IsDue([]model.TaskRecurrence{r}, date(2024, 1, 10), 2))
}

func TestIsDue_Rules(t *testing.T) {
	tests := []struct {
		name string
		r    model.TaskRecurrence
		date civil.Date
		want bool
	}{
		{"day on start", rule(model.RecurrenceDay, date(2024, 1, 1), 3), date(2024, 1, 1), true},
		{"day on step", rule(model.RecurrenceDay, date(2024, 1, 1), 3), date(2024, 1, 7), true},
		{"day between steps", rule(model.RecurrenceDay, date(2024, 1, 1), 3), date(2024, 1, 5), false},
		{"week every other", rule(model.RecurrenceWeek, date(2024, 1, 1), 2), date(2024, 1, 15), true},
		{"week off week", rule(model.RecurrenceWeek, date(2024, 1, 1), 2), date(2024, 1, 8), false},
		{"week wrong weekday", rule(model.RecurrenceWeek, date(2024, 1, 1), 1), date(2024, 1, 3), false},
		{"day of month", rule(model.RecurrenceDayOfMonth, date(2024, 1, 15), 2), date(2024, 3, 15), true},
		{"day of month off month", rule(model.RecurrenceDayOfMonth, date(2024, 1, 15), 2), date(2024, 2, 15), false},
		{"31st in leap february", rule(model.RecurrenceDayOfMonth, date(2024, 1, 31), 1), date(2024, 2, 29), true},
		{"31st in april", rule(model.RecurrenceDayOfMonth, date(2024, 1, 31), 1), date(2024, 4, 30), true},
		{"31st not before month end", rule(model.RecurrenceDayOfMonth, date(2024, 1, 31), 1), date(2024, 4, 29), false},
		{"30th does not anchor to month end", rule(model.RecurrenceDayOfMonth, date(2024, 1, 30), 1), date(2024, 2, 29), false},
		{"year same day", rule(model.RecurrenceYear, date(2020, 7, 4), 2), date(2024, 7, 4), true},
		{"year off year", rule(model.RecurrenceYear, date(2020, 7, 4), 2), date(2023, 7, 4), false},
		{"leap anchor on feb 28", rule(model.RecurrenceYear, date(2024, 2, 29), 1), date(2025, 2, 28), true},
		{"leap anchor not mar 1", rule(model.RecurrenceYear, date(2024, 2, 29), 1), date(2025, 3, 1), false},
		{"leap anchor on leap day", rule(model.RecurrenceYear, date(2024, 2, 29), 1), date(2028, 2, 29), true},
		{"leap anchor not feb 28 of leap year", rule(model.RecurrenceYear, date(2024, 2, 29), 1), date(2028, 2, 28), false},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := IsDueOn([]model.TaskRecurrence{tt.r}, tt.date, sundayWeeks)
			assert.Equal(t, tt.want, got)
		})
	}
}

func TestIsDue_Periodic(t *testing.T) {
	tests := []struct {
		name   string
		r      model.TaskRecurrence
		period int
	}{
		{"every 3 days", rule(model.RecurrenceDay, date(2024, 1, 1), 3), 3},
		{"every 2 weeks", rule(model.RecurrenceWeek, date(2024, 1, 3), 2), 14},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			rules := []model.TaskRecurrence{tt.r}
			for k := 0; k < 30; k++ {
				due := tt.r.Start.AddDays(k * tt.period)
				require.True(t, IsDueOn(rules, due, sundayWeeks), "expected due on %s", due)
				for i := 1; i < tt.period; i++ {
					between := due.AddDays(i)
					require.False(t, IsDueOn(rules, between, sundayWeeks), "expected not due on %s", between)
				}
			}
		})
	}
}

func TestIsDue_YearlyLeapDayAtMostOncePerYear(t *testing.T) {
	rules := []model.TaskRecurrence{rule(model.RecurrenceYear, date(2024, 2, 29), 1)}
	for year := 2025; year <= 2040; year++ {
		count := 0
		d := date(year, 1, 1)
		for d.Year == year {
			if IsDueOn(rules, d, sundayWeeks) {
				count++
			}
			d = d.AddDays(1)
		}
		assert.Equal(t, 1, count, "year %d", year)
	}
}

func TestIsDue_DayOfMonthLastDayEveryMonth(t *testing.T) {
	rules := []model.TaskRecurrence{rule(model.RecurrenceDayOfMonth, date(2023, 1, 31), 1)}
	for m := time.January; m <= time.December; m++ {
		last := date(2023, m, 1)
		last.Day = LastDayOfMonth(last)
		assert.True(t, IsDueOn(rules, last, sundayWeeks), "expected due on %s", last)
	}
}

func TestIsDue_WeekSiblingsUnion(t *testing.T) {
	rules := AlignWeekly(date(2024, 1, 1), []time.Weekday{time.Monday, time.Friday}, 1)
	assert.True(t, IsDueOn(rules, date(2024, 1, 8), sundayWeeks))
	assert.True(t, IsDueOn(rules, date(2024, 1, 12), sundayWeeks))
	assert.False(t, IsDueOn(rules, date(2024, 1, 10), sundayWeeks))
}

func TestIsDue_WeekOfMonth(t *testing.T) {
	// 2024-01-08 is the second Monday of January with Sunday-first weeks.
	r := MonthlyByWeek(date(2024, 1, 8), 1, sundayWeeks)
	require.Equal(t, 2, r.Week)
	rules := []model.TaskRecurrence{r}

	assert.True(t, IsDueOn(rules, date(2024, 2, 5), sundayWeeks))
	assert.False(t, IsDueOn(rules, date(2024, 2, 12), sundayWeeks))
	assert.False(t, IsDueOn(rules, date(2024, 2, 6), sundayWeeks))
}

func TestIsDue_WeekOfMonthAnySibling(t *testing.T) {
	rules := []model.TaskRecurrence{
		{Start: date(2024, 1, 1), Type: model.RecurrenceWeekOfMonth, Step: 1, Week: 1},
		{Start: date(2024, 1, 3), Type: model.RecurrenceWeekOfMonth, Step: 1, Week: 3},
	}
	// Wednesday 2024-01-17 is in week 3.
	assert.True(t, IsDue(rules, date(2024, 1, 17), 3))
	assert.False(t, IsDue(rules, date(2024, 1, 17), 2))
}

func TestIsDue_TypeFromFirstRule(t *testing.T) {
	rules := []model.TaskRecurrence{
		rule(model.RecurrenceWeek, date(2024, 1, 1), 1),
		rule(model.RecurrenceDay, date(2024, 1, 1), 1),
	}
	assert.False(t, IsDue(rules, date(2024, 1, 2), 1))
}

func TestWeekOfMonth(t *testing.T) {
	mondayWeeks := WeekOfMonth(time.Monday)

	assert.Equal(t, 1, mondayWeeks(date(2024, 1, 7)))
	assert.Equal(t, 2, mondayWeeks(date(2024, 1, 8)))
	assert.Equal(t, 2, sundayWeeks(date(2024, 1, 7)))
	assert.Equal(t, 1, sundayWeeks(date(2024, 2, 3)))
	assert.Equal(t, 5, sundayWeeks(date(2024, 3, 30)))
	assert.Equal(t, 6, sundayWeeks(date(2024, 3, 31)))
	assert.Equal(t, 6, sundayWeeks(date(2024, 6, 30)))
}

func TestCalendarHelpers(t *testing.T) {
	assert.Equal(t, 13, MonthsBetween(date(2023, 12, 31), date(2025, 1, 1)))
	assert.Equal(t, 2, YearsBetween(date(2022, 12, 31), date(2024, 1, 1)))
	assert.Equal(t, 29, LastDayOfMonth(date(2024, 2, 10)))
	assert.Equal(t, 28, LastDayOfMonth(date(2100, 2, 10)))
	assert.True(t, IsLeapYear(2000))
	assert.False(t, IsLeapYear(1900))
}

func TestAlignWeekly(t *testing.T) {
	rules := AlignWeekly(date(2024, 1, 3), []time.Weekday{time.Friday, time.Monday, time.Friday}, 2)

	require.Len(t, rules, 2)
	assert.Equal(t, date(2024, 1, 8), rules[0].Start)
	assert.Equal(t, date(2024, 1, 5), rules[1].Start)
	for _, r := range rules {
		assert.Equal(t, model.RecurrenceWeek, r.Type)
		assert.Equal(t, 2, r.Step)
	}
}

func TestNextDue(t *testing.T) {
	rules := []model.TaskRecurrence{rule(model.RecurrenceWeek, date(2024, 1, 1), 1)}

	next, ok := NextDue(rules, date(2024, 1, 2), 14, sundayWeeks)
	require.True(t, ok)
	assert.Equal(t, date(2024, 1, 8), next)

	_, ok = NextDue(rules, date(2024, 1, 2), 3, sundayWeeks)
	assert.False(t, ok)
}

func TestDescribe(t *testing.T) {
	assert.Equal(t, "does not repeat", Describe(nil))
	assert.Equal(t, "every day", Describe([]model.TaskRecurrence{rule(model.RecurrenceDay, date(2024, 1, 1), 1)}))
	assert.Equal(t, "every 2 weeks on Mon, Fri",
		Describe(AlignWeekly(date(2024, 1, 3), []time.Weekday{time.Monday, time.Friday}, 2)))
	assert.Equal(t, "every month on the last day",
		Describe([]model.TaskRecurrence{rule(model.RecurrenceDayOfMonth, date(2024, 1, 31), 1)}))
	assert.Equal(t, "every 3 months on day 15",
		Describe([]model.TaskRecurrence{rule(model.RecurrenceDayOfMonth, date(2024, 1, 15), 3)}))
	assert.Equal(t, "every month on the 2nd Monday",
		Describe([]model.TaskRecurrence{MonthlyByWeek(date(2024, 1, 8), 1, sundayWeeks)}))
	assert.Equal(t, "every year on Feb 29",
		Describe([]model.TaskRecurrence{rule(model.RecurrenceYear, date(2024, 2, 29), 1)}))
}
