// Package frequency counts tag occurrences for one target year.
package frequency

import (
	"cmp"
	"errors"
	"fmt"
	"slices"

	"github.com/fyrsmithlabs/activitymap/internal/aggregate"
)

// ErrInvalidYear is returned for target years outside 1..9999.
var ErrInvalidYear = errors.New("invalid target year")

// Table maps a normalized tag to its occurrence count. Tags with a zero count
// are never present.
type Table map[string]int

// Entry is one row of a Table.
type Entry struct {
	Tag   string `json:"tag"`
	Count int    `json:"count"`
}

// Weighted is an Entry with its count relative to the largest count.
type Weighted struct {
	Entry
	Weight float64 `json:"weight"`
}

type options struct {
	perDayDedupe bool
}

// Option configures Build.
type Option func(*options)

// WithPerDayDedupe counts a tag at most once per day.
func WithPerDayDedupe() Option {
	return func(o *options) { o.perDayDedupe = true }
}

// Build counts (day, tag) occurrences over the days of year.
func Build(tags aggregate.Tags, year int, opts ...Option) (Table, error) {
	if year < 1 || year > 9999 {
		return nil, fmt.Errorf("%w: %d", ErrInvalidYear, year)
	}
	var o options
	for _, opt := range opts {
		opt(&o)
	}

	table := make(Table)
	for date, counts := range tags {
		if date.Year() != year {
			continue
		}
		for tag, n := range counts {
			if n <= 0 {
				continue
			}
			if o.perDayDedupe {
				n = 1
			}
			table[tag] += n
		}
	}
	return table, nil
}

// Total returns the sum of all counts.
func (t Table) Total() int {
	total := 0
	for _, n := range t {
		total += n
	}
	return total
}

// Entries returns every entry ordered by count descending, then tag ascending.
func (t Table) Entries() []Entry {
	out := make([]Entry, 0, len(t))
	for tag, n := range t {
		out = append(out, Entry{Tag: tag, Count: n})
	}
	slices.SortFunc(out, func(a, b Entry) int {
		if c := cmp.Compare(b.Count, a.Count); c != 0 {
			return c
		}
		return cmp.Compare(a.Tag, b.Tag)
	})
	return out
}

// Top returns the n most frequent entries. n <= 0 returns every entry.
func (t Table) Top(n int) []Entry {
	entries := t.Entries()
	if n > 0 && n < len(entries) {
		entries = entries[:n]
	}
	return entries
}

// Normalized returns every entry with a weight in (0, 1] relative to the
// largest count, in Entries order.
func (t Table) Normalized() []Weighted {
	entries := t.Entries()
	if len(entries) == 0 {
		return nil
	}
	maxCount := float64(entries[0].Count)
	out := make([]Weighted, len(entries))
	for i, e := range entries {
		out[i] = Weighted{Entry: e, Weight: float64(e.Count) / maxCount}
	}
	return out
}
