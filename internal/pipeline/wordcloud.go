package pipeline

import (
	"context"
	"fmt"
	"slices"

	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/trace"
	"go.uber.org/zap"

	"github.com/fyrsmithlabs/activitymap/internal/aggregate"
	"github.com/fyrsmithlabs/activitymap/internal/frequency"
	"github.com/fyrsmithlabs/activitymap/internal/normalize"
	"github.com/fyrsmithlabs/activitymap/internal/render"
)

// DefaultTop is how many tags a word-cloud run reports.
const DefaultTop = 10

// WordCloudJob describes one word-cloud run.
type WordCloudJob struct {
	Job
	Year         int // 0 means the current year
	Top          int // tags reported in the result; 0 means DefaultTop
	DedupePerDay bool
}

// WordCloudResult is the outcome of a word-cloud run.
type WordCloudResult struct {
	Year      int
	Table     frequency.Table
	Top       []frequency.Entry
	Cloud     *render.Cloud
	Stats     normalize.Stats
	Files     []string
	NoRecords bool // nothing was fetched; the result is empty and no artifact was written
}

// WordCloud fetches records, counts their tags for the target year and
// renders a word cloud.
func (r *Runner) WordCloud(ctx context.Context, job WordCloudJob) (res *WordCloudResult, err error) {
	ctx = r.begin(ctx, WordCloud)
	started := r.now()
	defer func() { r.finish(ctx, WordCloud, started, err) }()

	res, err = r.countTags(ctx, job)
	if err != nil || res.NoRecords {
		return res, err
	}

	res.Files, err = r.write(ctx, func() ([]string, error) {
		cloud, err := render.LayoutWordCloud(res.Table.Normalized(), res.Year, r.writer.Theme().WordCloud)
		if err != nil {
			return nil, fmt.Errorf("layout word cloud: %w", err)
		}
		res.Cloud = cloud
		if res.Cloud.Skipped > 0 {
			r.logger.Debug(ctx, "words did not fit", zap.Int("skipped", res.Cloud.Skipped))
		}
		return r.writer.WriteWordCloud(res.Cloud)
	})
	if err != nil {
		return res, err
	}
	return res, nil
}

// Tags fetches records and counts their tags for the target year without
// rendering anything.
func (r *Runner) Tags(ctx context.Context, job WordCloudJob) (res *WordCloudResult, err error) {
	ctx = r.begin(ctx, WordCloud)
	started := r.now()
	defer func() { r.finish(ctx, WordCloud, started, err) }()
	return r.countTags(ctx, job)
}

func (r *Runner) countTags(ctx context.Context, job WordCloudJob) (*WordCloudResult, error) {
	year := job.Year
	if year == 0 {
		year = r.today().Year()
	}
	if year < 1 || year > 9999 {
		return nil, fmt.Errorf("%w: %d", frequency.ErrInvalidYear, year)
	}
	res := &WordCloudResult{Year: year}
	source := sourceName(job.Job)

	var days []normalize.TagDay
	err := r.stage(ctx, "fetch", func(ctx context.Context, span trace.Span) error {
		n := normalize.New(job.Extractor, normalize.WithLogger(r.logger))
		var err error
		days, err = collect(n.Tags(ctx, job.Source.Records(ctx)))
		res.Stats = n.Stats()
		span.SetAttributes(
			attribute.String("source", source),
			attribute.Int("records.seen", res.Stats.Seen),
			attribute.Int("records.skipped", res.Stats.Skipped),
		)
		if err != nil {
			return fmt.Errorf("fetch records: %w", err)
		}
		return nil
	})
	r.recordStats(ctx, WordCloud, source, res.Stats)
	if err != nil {
		return nil, err
	}
	if res.Stats.Seen == 0 {
		r.logger.Warn(ctx, "No records found", zap.String("source", source))
		res.NoRecords = true
	}

	var tags aggregate.Tags
	err = r.stage(ctx, "aggregate", func(ctx context.Context, span trace.Span) error {
		tags = aggregate.TagsByDay(slices.Values(days))
		span.SetAttributes(attribute.Int("days", len(tags)))
		return nil
	})
	if err != nil {
		return nil, err
	}

	err = r.stage(ctx, "frequency", func(ctx context.Context, span trace.Span) error {
		var opts []frequency.Option
		if job.DedupePerDay {
			opts = append(opts, frequency.WithPerDayDedupe())
		}
		var err error
		res.Table, err = frequency.Build(tags, year, opts...)
		if err != nil {
			return err
		}
		span.SetAttributes(
			attribute.Int("year", year),
			attribute.Int("tags.distinct", len(res.Table)),
			attribute.Int("tags.total", res.Table.Total()),
		)
		return nil
	})
	if err != nil {
		return nil, err
	}
	if r.metrics != nil {
		r.metrics.RecordTags(len(res.Table))
	}

	top := job.Top
	if top <= 0 {
		top = DefaultTop
	}
	res.Top = res.Table.Top(top)
	r.logger.Info(ctx, "tags counted",
		zap.Int("year", year),
		zap.Int("distinct", len(res.Table)),
		zap.Int("total", res.Table.Total()),
		zap.Any("top", res.Top))

	return res, nil
}
