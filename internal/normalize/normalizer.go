package normalize

import (
	"context"
	"iter"

	"go.uber.org/zap"

	"github.com/fyrsmithlabs/activitymap/internal/calendar"
	"github.com/fyrsmithlabs/activitymap/internal/logging"
	"github.com/fyrsmithlabs/activitymap/internal/record"
)

// ValueDay is a canonical day on the heatmap path.
type ValueDay struct {
	Date  calendar.Date
	Value float64
}

// TagDay is a canonical day on the word-cloud path.
type TagDay struct {
	Date calendar.Date
	Tags []string
}

// Stats counts what happened to the records of one run.
type Stats struct {
	Seen      int `json:"seen"`
	Kept      int `json:"kept"`
	Skipped   int `json:"skipped"`
	Defaulted int `json:"defaulted"` // kept with a zero value or no tags
}

// Normalizer adapts a record sequence into canonical days using an Extractor.
//
// A Normalizer is meant for a single run and is not safe for concurrent use.
type Normalizer struct {
	extractor record.Extractor
	logger    *logging.Logger
	stats     Stats
}

// Option configures a Normalizer.
type Option func(*Normalizer)

// WithLogger sets the logger skipped records are reported to.
func WithLogger(l *logging.Logger) Option {
	return func(n *Normalizer) {
		if l != nil {
			n.logger = l
		}
	}
}

// New creates a Normalizer reading fields through extractor.
func New(extractor record.Extractor, opts ...Option) *Normalizer {
	n := &Normalizer{extractor: extractor, logger: logging.NewNop()}
	for _, opt := range opts {
		opt(n)
	}
	return n
}

// Stats returns the counters accumulated so far.
func (n *Normalizer) Stats() Stats {
	return n.stats
}

// Values yields one ValueDay per record with a parsable date. Source errors
// are passed through and end the sequence; malformed records are skipped.
func (n *Normalizer) Values(ctx context.Context, records iter.Seq2[record.Raw, error]) iter.Seq2[ValueDay, error] {
	return func(yield func(ValueDay, error) bool) {
		for raw, err := range records {
			if err != nil {
				yield(ValueDay{}, err)
				return
			}
			date, ok := n.date(ctx, raw)
			if !ok {
				continue
			}
			v, ok := Value(n.extractor.Value(raw))
			if !ok {
				n.stats.Defaulted++
			}
			n.stats.Kept++
			if !yield(ValueDay{Date: date, Value: v}, nil) {
				return
			}
		}
	}
}

// Tags yields one TagDay per record with a parsable date. A record without
// usable tags still yields a day with no tags.
func (n *Normalizer) Tags(ctx context.Context, records iter.Seq2[record.Raw, error]) iter.Seq2[TagDay, error] {
	return func(yield func(TagDay, error) bool) {
		for raw, err := range records {
			if err != nil {
				yield(TagDay{}, err)
				return
			}
			date, ok := n.date(ctx, raw)
			if !ok {
				continue
			}
			tags := Tags(n.extractor.Tags(raw))
			if len(tags) == 0 {
				n.stats.Defaulted++
			}
			n.stats.Kept++
			if !yield(TagDay{Date: date, Tags: tags}, nil) {
				return
			}
		}
	}
}

func (n *Normalizer) date(ctx context.Context, raw record.Raw) (calendar.Date, bool) {
	n.stats.Seen++
	s, ok := n.extractor.Date(raw)
	if !ok {
		n.skip(ctx, raw, "record has no date")
		return calendar.Date{}, false
	}
	date, err := ParseDate(s)
	if err != nil {
		n.skip(ctx, raw, err.Error())
		return calendar.Date{}, false
	}
	return date, true
}

func (n *Normalizer) skip(ctx context.Context, raw record.Raw, reason string) {
	n.stats.Skipped++
	n.logger.Debug(ctx, "skipping malformed record",
		zap.String("record.id", raw.ID),
		zap.String("reason", reason))
}
