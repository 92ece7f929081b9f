package pipeline

import (
	"context"
	"iter"
	"time"

	"github.com/google/uuid"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"
	"go.opentelemetry.io/otel/trace/noop"
	"go.uber.org/zap"

	"github.com/fyrsmithlabs/activitymap/internal/logging"
	"github.com/fyrsmithlabs/activitymap/internal/metrics"
	"github.com/fyrsmithlabs/activitymap/internal/normalize"
	"github.com/fyrsmithlabs/activitymap/internal/record"
	"github.com/fyrsmithlabs/activitymap/internal/render"
)

const instrumentationName = "github.com/fyrsmithlabs/activitymap/internal/pipeline"

// Pipeline names, used for logs, metrics and spans.
const (
	Heatmap   = "heatmap"
	WordCloud = "wordcloud"
)

// Publisher commits written artifacts somewhere durable.
type Publisher interface {
	Publish(ctx context.Context, paths []string) error
}

// Runner executes pipeline runs. A Runner holds no per-run state and may run
// a heatmap and a word cloud concurrently.
type Runner struct {
	writer    *render.Writer
	logger    *logging.Logger
	tracer    trace.Tracer
	metrics   *metrics.Metrics
	publisher Publisher
	now       func() time.Time
	location  *time.Location
}

// Option configures a Runner.
type Option func(*Runner)

// WithLogger sets the logger.
func WithLogger(l *logging.Logger) Option {
	return func(r *Runner) {
		if l != nil {
			r.logger = l
		}
	}
}

// WithTracer sets the tracer stage spans are started on.
func WithTracer(t trace.Tracer) Option {
	return func(r *Runner) {
		if t != nil {
			r.tracer = t
		}
	}
}

// WithMetrics records run metrics on m.
func WithMetrics(m *metrics.Metrics) Option {
	return func(r *Runner) { r.metrics = m }
}

// WithPublisher publishes artifacts after they are written.
func WithPublisher(p Publisher) Option {
	return func(r *Runner) { r.publisher = p }
}

// WithClock sets the clock that decides "today" and the current year.
func WithClock(now func() time.Time) Option {
	return func(r *Runner) { r.now = now }
}

// WithLocation sets the time zone "today" is resolved in.
func WithLocation(loc *time.Location) Option {
	return func(r *Runner) {
		if loc != nil {
			r.location = loc
		}
	}
}

// New creates a Runner writing artifacts through writer.
func New(writer *render.Writer, opts ...Option) *Runner {
	r := &Runner{
		writer:   writer,
		logger:   logging.NewNop(),
		tracer:   noop.NewTracerProvider().Tracer(instrumentationName),
		now:      time.Now,
		location: time.Local,
	}
	for _, opt := range opts {
		opt(r)
	}
	return r
}

// today returns the current wall-clock time in the runner's time zone.
func (r *Runner) today() time.Time {
	return r.now().In(r.location)
}

// begin tags ctx with a fresh run ID and the pipeline name.
func (r *Runner) begin(ctx context.Context, pipeline string) context.Context {
	if logging.RunIDFromContext(ctx) == "" {
		ctx = logging.WithRunID(ctx, uuid.NewString())
	}
	return logging.WithPipeline(ctx, pipeline)
}

// finish records the outcome of a run.
func (r *Runner) finish(ctx context.Context, pipeline string, started time.Time, err error) {
	finished := r.now()
	if r.metrics != nil {
		r.metrics.RecordRun(pipeline, finished.Sub(started), err, finished)
	}
	if err != nil {
		r.logger.Error(ctx, "run failed", zap.Error(err))
		return
	}
	r.logger.Info(ctx, "run finished", zap.Duration("duration", finished.Sub(started)))
}

// stage runs fn inside a span named pipeline.<name>.
func (r *Runner) stage(ctx context.Context, name string, fn func(context.Context, trace.Span) error) error {
	ctx, span := r.tracer.Start(ctx, "pipeline."+name)
	defer span.End()
	if err := fn(ctx, span); err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, err.Error())
		return err
	}
	return nil
}

// recordStats exports normalizer counters of one pipeline run for source.
func (r *Runner) recordStats(ctx context.Context, pipeline, source string, stats normalize.Stats) {
	r.logger.Info(ctx, "records normalized",
		zap.String("source", source),
		zap.Int("seen", stats.Seen),
		zap.Int("kept", stats.Kept),
		zap.Int("skipped", stats.Skipped),
		zap.Int("defaulted", stats.Defaulted))
	if r.metrics == nil {
		return
	}
	r.metrics.RecordRecords(pipeline, source, metrics.OutcomeKept, stats.Kept-stats.Defaulted)
	r.metrics.RecordRecords(pipeline, source, metrics.OutcomeDefaulted, stats.Defaulted)
	r.metrics.RecordRecords(pipeline, source, metrics.OutcomeSkipped, stats.Skipped)
}

// write renders artifacts and publishes them when a publisher is set.
func (r *Runner) write(ctx context.Context, write func() ([]string, error)) ([]string, error) {
	var files []string
	err := r.stage(ctx, "render", func(ctx context.Context, span trace.Span) error {
		var err error
		files, err = write()
		if err != nil {
			return err
		}
		span.SetAttributes(attribute.Int("artifacts", len(files)))
		r.logger.Info(ctx, "artifacts written", zap.Strings("files", files))
		return nil
	})
	if err != nil || r.publisher == nil {
		return files, err
	}
	return files, r.publisher.Publish(ctx, files)
}

// collect drains seq into a slice, stopping at the first error.
func collect[T any](seq iter.Seq2[T, error]) ([]T, error) {
	var out []T
	for v, err := range seq {
		if err != nil {
			return out, err
		}
		out = append(out, v)
	}
	return out, nil
}

// sourceName labels where records of one job came from.
func sourceName(job Job) string {
	if job.SourceName != "" {
		return job.SourceName
	}
	return "unknown"
}

// Job names where the records of one run come from.
type Job struct {
	Source     record.Source
	Extractor  record.Extractor
	SourceName string // label for logs and metrics, e.g. "notion" or "file"
}
