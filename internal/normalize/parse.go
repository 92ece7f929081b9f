// Package normalize turns raw records into canonical days.
//
// Everything here is pure: malformed input is reported as an error for the
// single record and the caller decides to skip it.
package normalize

import (
	"errors"
	"fmt"
	"math"
	"strconv"
	"strings"
	"time"

	"golang.org/x/text/cases"
	"golang.org/x/text/unicode/norm"

	"github.com/fyrsmithlabs/activitymap/internal/calendar"
)

// ErrMalformedRecord marks a record that cannot become a canonical day.
var ErrMalformedRecord = errors.New("malformed record")

// dateLayouts are tried in order. Time-of-day and offsets are discarded after
// parsing; the date as written is kept.
var dateLayouts = []string{
	time.RFC3339Nano,
	"2006-01-02T15:04:05",
	"2006-01-02T15:04",
	"2006-01-02 15:04:05",
	"2006-01-02",
	"2006/01/02",
}

// ParseDate parses a timestamp, a date or a bare four-digit year.
// A bare year maps to January 1 of that year.
func ParseDate(s string) (calendar.Date, error) {
	s = strings.TrimSpace(s)
	if s == "" {
		return calendar.Date{}, fmt.Errorf("%w: empty date", ErrMalformedRecord)
	}

	if len(s) == 4 {
		year, err := strconv.Atoi(s)
		if err != nil || year < 1 {
			return calendar.Date{}, fmt.Errorf("%w: invalid year %q", ErrMalformedRecord, s)
		}
		return calendar.NewDate(year, time.January, 1), nil
	}

	for _, layout := range dateLayouts {
		if t, err := time.Parse(layout, s); err == nil {
			return calendar.DateOf(t), nil
		}
	}
	return calendar.Date{}, fmt.Errorf("%w: unparsable date %q", ErrMalformedRecord, s)
}

// Value converts a numeric payload. Missing or unusable payloads yield 0 with
// ok set to false; the day is still kept.
func Value(raw any) (v float64, ok bool) {
	switch x := raw.(type) {
	case float64:
		v = x
	case float32:
		v = float64(x)
	case int:
		v = float64(x)
	case int64:
		v = float64(x)
	case int32:
		v = float64(x)
	case string:
		parsed, err := strconv.ParseFloat(strings.TrimSpace(x), 64)
		if err != nil {
			return 0, false
		}
		v = parsed
	default:
		return 0, false
	}
	if math.IsNaN(v) || math.IsInf(v, 0) {
		return 0, false
	}
	return v, true
}

// tagSeparators split a single tag string. NFKC maps the full-width comma
// onto ','; the ideographic comma survives normalization and is listed too.
const tagSeparators = ",、"

// Tags converts a tag payload into a deduplicated list of normalized tags in
// first-seen order. A string is split on commas; a list is used element-wise.
// Anything else yields no tags.
func Tags(raw any) []string {
	var parts []string
	switch x := raw.(type) {
	case string:
		parts = splitTags(x)
	case []string:
		for _, s := range x {
			parts = append(parts, splitTags(s)...)
		}
	case []any:
		for _, e := range x {
			if s, ok := e.(string); ok {
				parts = append(parts, splitTags(s)...)
			}
		}
	default:
		return nil
	}

	// Caser keeps state; one per call keeps Tags safe for concurrent use.
	fold := cases.Fold()
	seen := make(map[string]bool, len(parts))
	var out []string
	for _, p := range parts {
		tag := fold.String(strings.Join(strings.Fields(p), " "))
		if tag == "" || seen[tag] {
			continue
		}
		seen[tag] = true
		out = append(out, tag)
	}
	return out
}

func splitTags(s string) []string {
	s = norm.NFKC.String(s)
	return strings.FieldsFunc(s, func(r rune) bool {
		return strings.ContainsRune(tagSeparators, r)
	})
}
