// Package aggregate folds canonical days into one entry per calendar date.
package aggregate

import (
	"iter"
	"maps"
	"slices"

	"github.com/fyrsmithlabs/activitymap/internal/calendar"
	"github.com/fyrsmithlabs/activitymap/internal/normalize"
)

// Values maps each date to the sum of its values. Absent dates are zero.
type Values map[calendar.Date]float64

// TagCounts is a multiset of tags: tag -> number of occurrences.
type TagCounts map[string]int

// Tags maps each date to the multiset of tags recorded on it.
type Tags map[calendar.Date]TagCounts

// SumByDay sums values of days sharing a date.
func SumByDay(days iter.Seq[normalize.ValueDay]) Values {
	out := make(Values)
	for d := range days {
		out[d.Date] += d.Value
	}
	return out
}

// TagsByDay merges tags of days sharing a date as a multiset union, so a tag
// recorded by two records on the same day counts twice.
func TagsByDay(days iter.Seq[normalize.TagDay]) Tags {
	out := make(Tags)
	for d := range days {
		counts, ok := out[d.Date]
		if !ok {
			counts = make(TagCounts, len(d.Tags))
			out[d.Date] = counts
		}
		for _, tag := range d.Tags {
			counts[tag]++
		}
	}
	return out
}

// Dates returns the dates present in v in ascending order.
func (v Values) Dates() []calendar.Date {
	return slices.SortedFunc(maps.Keys(v), calendar.Date.Compare)
}

// Dates returns the dates present in t in ascending order.
func (t Tags) Dates() []calendar.Date {
	return slices.SortedFunc(maps.Keys(t), calendar.Date.Compare)
}
