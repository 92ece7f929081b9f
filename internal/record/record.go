// Package record defines the raw records the pipeline consumes and the
// interfaces that keep the pipeline independent of where they come from.
package record

import (
	"context"
	"iter"
)

// Raw is one record as fetched, kept as the source's JSON document.
type Raw struct {
	ID   string
	JSON []byte
}

// Source yields raw records lazily. A non-nil error ends the sequence.
type Source interface {
	Records(ctx context.Context) iter.Seq2[Raw, error]
}

// Extractor pulls the fields the pipeline needs out of a raw record.
//
// Implementations decide which property or path holds each field, so the
// normalizer never needs to know the record schema.
type Extractor interface {
	// Date returns the date or year string of the record.
	Date(r Raw) (string, bool)
	// Value returns the numeric payload (number, numeric string or nil).
	Value(r Raw) any
	// Tags returns the tag payload (string, []string or nil).
	Tags(r Raw) any
}

// SliceSource is a Source over records already in memory.
type SliceSource []Raw

// Records implements Source.
func (s SliceSource) Records(ctx context.Context) iter.Seq2[Raw, error] {
	return func(yield func(Raw, error) bool) {
		for _, r := range s {
			if err := ctx.Err(); err != nil {
				yield(Raw{}, err)
				return
			}
			if !yield(r, nil) {
				return
			}
		}
	}
}
