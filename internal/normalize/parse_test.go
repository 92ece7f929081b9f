package normalize

import (
	"math"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/fyrsmithlabs/activitymap/internal/calendar"
)

func TestParseDate(t *testing.T) {
	tests := []struct {
		in   string
		want calendar.Date
	}{
		{"2024-03-01", calendar.NewDate(2024, time.March, 1)},
		{" 2024-03-01 ", calendar.NewDate(2024, time.March, 1)},
		{"2024-03-01T23:59:59Z", calendar.NewDate(2024, time.March, 1)},
		{"2024-03-01T23:30:00.000+09:00", calendar.NewDate(2024, time.March, 1)},
		{"2024-03-01T00:15:00-05:00", calendar.NewDate(2024, time.March, 1)},
		{"2024-03-01T10:00:00", calendar.NewDate(2024, time.March, 1)},
		{"2024-03-01T10:00", calendar.NewDate(2024, time.March, 1)},
		{"2024-03-01 10:00:00", calendar.NewDate(2024, time.March, 1)},
		{"2024/03/01", calendar.NewDate(2024, time.March, 1)},
		{"2025", calendar.NewDate(2025, time.January, 1)},
	}
	for _, tt := range tests {
		t.Run(tt.in, func(t *testing.T) {
			got, err := ParseDate(tt.in)
			require.NoError(t, err)
			assert.Equal(t, tt.want, got)
		})
	}
}

func TestParseDate_Malformed(t *testing.T) {
	for _, in := range []string{"", "   ", "yesterday", "2024-13-01", "2024-02-30", "0000", "20x5", "03/01/2024"} {
		t.Run(in, func(t *testing.T) {
			_, err := ParseDate(in)
			require.Error(t, err)
			assert.ErrorIs(t, err, ErrMalformedRecord)
		})
	}
}

func TestValue(t *testing.T) {
	tests := []struct {
		name   string
		in     any
		want   float64
		wantOK bool
	}{
		{"float", 30.5, 30.5, true},
		{"int", 45, 45, true},
		{"int64", int64(7), 7, true},
		{"numeric string", " 15 ", 15, true},
		{"negative", -3.0, -3, true},
		{"nil", nil, 0, false},
		{"text", "about an hour", 0, false},
		{"bool", true, 0, false},
		{"nan", math.NaN(), 0, false},
		{"inf string", "Inf", 0, false},
		{"list", []any{1.0}, 0, false},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, ok := Value(tt.in)
			assert.Equal(t, tt.want, got)
			assert.Equal(t, tt.wantOK, ok)
		})
	}
}

func TestTags(t *testing.T) {
	tests := []struct {
		name string
		in   any
		want []string
	}{
		{"comma string", "Go, Rust ,go", []string{"go", "rust"}},
		{"full-width comma", "読書，Writing", []string{"読書", "writing"}},
		{"ideographic comma", "読書、映画", []string{"読書", "映画"}},
		{"full-width letters", "ＧＯ", []string{"go"}},
		{"inner whitespace", "  deep   work ", []string{"deep work"}},
		{"string list", []string{"Go", " GO ", "Music"}, []string{"go", "music"}},
		{"any list skips non-strings", []any{"Go", 3.0, nil, "Art"}, []string{"go", "art"}},
		{"empties dropped", " , ,", nil},
		{"nil", nil, nil},
		{"number", 42.0, nil},
		{"german sharp s folds", "Straße", []string{"strasse"}},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, Tags(tt.in))
		})
	}
}
