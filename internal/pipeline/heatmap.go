package pipeline

import (
	"context"
	"fmt"
	"slices"
	"time"

	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/trace"
	"go.uber.org/zap"

	"github.com/fyrsmithlabs/activitymap/internal/aggregate"
	"github.com/fyrsmithlabs/activitymap/internal/calendar"
	"github.com/fyrsmithlabs/activitymap/internal/normalize"
)

// Window modes.
const (
	ModeTrailing = "trailing"
	ModeYear     = "year"
)

// HeatmapJob describes one heatmap run.
type HeatmapJob struct {
	Job
	Mode       string // ModeTrailing or ModeYear
	WindowDays int    // trailing window length
	WeekStart  time.Weekday
	Scheme     calendar.Scheme
}

// HeatmapResult is the outcome of a heatmap run.
type HeatmapResult struct {
	Grid      *calendar.Grid
	Stats     normalize.Stats
	Files     []string
	NoRecords bool // nothing was fetched; the result is empty and no artifact was written
}

// Window resolves the calendar window of job ending at today.
func (job HeatmapJob) Window(today calendar.Date) (calendar.Window, error) {
	switch job.Mode {
	case ModeYear:
		return calendar.YearToDate(today, job.WeekStart)
	case ModeTrailing, "":
		return calendar.NewWindow(today, job.WindowDays, job.WeekStart)
	default:
		return calendar.Window{}, fmt.Errorf("%w: unknown mode %q", calendar.ErrInvalidWindow, job.Mode)
	}
}

// Heatmap fetches, aggregates, lays out and renders one activity heatmap.
func (r *Runner) Heatmap(ctx context.Context, job HeatmapJob) (res *HeatmapResult, err error) {
	ctx = r.begin(ctx, Heatmap)
	started := r.now()
	defer func() { r.finish(ctx, Heatmap, started, err) }()

	window, err := job.Window(calendar.DateOf(r.today()))
	if err != nil {
		return nil, err
	}
	if job.Scheme == nil {
		return nil, fmt.Errorf("%w: no intensity scheme", calendar.ErrInvalidLevels)
	}
	res = &HeatmapResult{}
	source := sourceName(job.Job)

	var days []normalize.ValueDay
	err = r.stage(ctx, "fetch", func(ctx context.Context, span trace.Span) error {
		n := normalize.New(job.Extractor, normalize.WithLogger(r.logger))
		var err error
		days, err = collect(n.Values(ctx, job.Source.Records(ctx)))
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
	r.recordStats(ctx, Heatmap, source, res.Stats)
	if err != nil {
		return nil, err
	}
	if res.Stats.Seen == 0 {
		r.logger.Warn(ctx, "No records found", zap.String("source", source))
		res.NoRecords = true
	}

	var values aggregate.Values
	err = r.stage(ctx, "aggregate", func(ctx context.Context, span trace.Span) error {
		values = aggregate.SumByDay(slices.Values(days))
		span.SetAttributes(attribute.Int("days", len(values)))
		return nil
	})
	if err != nil {
		return nil, err
	}

	err = r.stage(ctx, "grid", func(ctx context.Context, span trace.Span) error {
		var err error
		res.Grid, err = calendar.Build(values, window, job.Scheme)
		if err != nil {
			return err
		}
		span.SetAttributes(
			attribute.String("window.start", window.Start.String()),
			attribute.String("window.end", window.End.String()),
			attribute.Int("cells", len(res.Grid.Cells)),
			attribute.Int("active_days", res.Grid.ActiveDays()),
		)
		return nil
	})
	if err != nil {
		return nil, err
	}
	if r.metrics != nil {
		r.metrics.RecordGrid(len(res.Grid.Cells), res.Grid.ActiveDays())
	}
	r.logger.Info(ctx, "grid built",
		zap.Stringer("start", window.Start),
		zap.Stringer("end", window.End),
		zap.Int("weeks", res.Grid.Weeks()),
		zap.Float64("total", res.Grid.Total()),
		zap.Float64s("thresholds", res.Grid.Thresholds))
	if res.NoRecords {
		return res, nil
	}

	res.Files, err = r.write(ctx, func() ([]string, error) {
		return r.writer.WriteHeatmap(res.Grid)
	})
	if err != nil {
		return res, err
	}
	return res, nil
}
