package service

import (
	"testing"
	"time"

	"cloud.google.com/go/civil"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestParseWhen(t *testing.T) {
	jan9 := &civil.Date{Year: 2024, Month: 1, Day: 9}
	five := &civil.Time{Hour: 17}

	tests := []struct {
		in       string
		wantDate *civil.Date
		wantTime *civil.Time
		wantErr  bool
	}{
		{"", nil, nil, false},
		{"2024-01-09", jan9, nil, false},
		{"17:00", nil, five, false},
		{" 2024-01-09 17:00 ", jan9, five, false},
		{"2024-13-01", nil, nil, true},
		{"5pm", nil, nil, true},
		{"2024-01-09 25:00", nil, nil, true},
	}
	for _, tt := range tests {
		t.Run(tt.in, func(t *testing.T) {
			d, clock, err := ParseWhen(tt.in)
			if tt.wantErr {
				assert.Error(t, err)
				return
			}
			require.NoError(t, err)
			assert.Equal(t, tt.wantDate, d)
			assert.Equal(t, tt.wantTime, clock)
			assert.Equal(t, tt.in != "", FormatWhen(d, clock) != "")
		})
	}

	assert.Equal(t, "2024-01-09 17:00", FormatWhen(jan9, five))
}

func TestParseWeekdays(t *testing.T) {
	days, err := ParseWeekdays([]string{"mon", "Friday", " SUN "})
	require.NoError(t, err)
	assert.Equal(t, []time.Weekday{time.Monday, time.Friday, time.Sunday}, days)

	_, err = ParseWeekdays([]string{"someday"})
	assert.Error(t, err)
}
