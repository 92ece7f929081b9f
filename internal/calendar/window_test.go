package calendar

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestNewWindow(t *testing.T) {
	end := NewDate(2024, time.March, 2)

	w, err := NewWindow(end, 2, time.Monday)
	require.NoError(t, err)

	assert.Equal(t, NewDate(2024, time.March, 1), w.Start)
	assert.Equal(t, end, w.End)
	assert.Equal(t, NewDate(2024, time.February, 26), w.Origin)
	assert.Equal(t, 2, w.Len())
}

func TestNewWindow_Invalid(t *testing.T) {
	end := NewDate(2024, time.March, 2)

	tests := []struct {
		name   string
		end    Date
		length int
		start  time.Weekday
	}{
		{"zero length", end, 0, time.Sunday},
		{"negative length", end, -7, time.Sunday},
		{"missing end", Date{}, 10, time.Sunday},
		{"bad week start", end, 10, time.Weekday(9)},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := NewWindow(tt.end, tt.length, tt.start)
			assert.ErrorIs(t, err, ErrInvalidWindow)
		})
	}
}

func TestYearToDate(t *testing.T) {
	w, err := YearToDate(NewDate(2024, time.March, 1), time.Monday)
	require.NoError(t, err)

	assert.Equal(t, NewDate(2024, time.January, 1), w.Start)
	assert.Equal(t, 61, w.Len())
	// 2024-01-01 is a Monday so the first column is full.
	assert.Equal(t, w.Start, w.Origin)
}

func TestWindow_PositionAndContains(t *testing.T) {
	// 2024-01-03 is a Wednesday; Sunday origin is 2023-12-31.
	w, err := NewWindow(NewDate(2024, time.January, 20), 18, time.Sunday)
	require.NoError(t, err)
	require.Equal(t, NewDate(2024, time.January, 3), w.Start)
	require.Equal(t, NewDate(2023, time.December, 31), w.Origin)

	week, weekday := w.Position(w.Start)
	assert.Equal(t, 0, week)
	assert.Equal(t, 3, weekday)

	week, weekday = w.Position(NewDate(2024, time.January, 7))
	assert.Equal(t, 1, week)
	assert.Equal(t, 0, weekday)

	assert.True(t, w.Contains(w.Start))
	assert.True(t, w.Contains(w.End))
	assert.False(t, w.Contains(w.Start.AddDays(-1)))
	assert.False(t, w.Contains(w.End.AddDays(1)))
	assert.Len(t, w.Days(), 18)
}
