package main

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/fyrsmithlabs/activitymap/internal/calendar"
	"github.com/fyrsmithlabs/activitymap/internal/config"
	"github.com/fyrsmithlabs/activitymap/internal/logging"
	"github.com/fyrsmithlabs/activitymap/internal/metrics"
	"github.com/fyrsmithlabs/activitymap/internal/notion"
	"github.com/fyrsmithlabs/activitymap/internal/pipeline"
	"github.com/fyrsmithlabs/activitymap/internal/publish"
	"github.com/fyrsmithlabs/activitymap/internal/record"
	"github.com/fyrsmithlabs/activitymap/internal/render"
	"github.com/fyrsmithlabs/activitymap/internal/telemetry"
)

const instrumentationName = "github.com/fyrsmithlabs/activitymap"

// application is everything one command invocation shares.
type application struct {
	cfg      *config.Config
	logger   *logging.Logger
	tel      *telemetry.Telemetry
	metrics  *metrics.Metrics
	theme    render.Theme
	location *time.Location
	now      func() time.Time

	notion func() (*notion.Client, error)
}

// open loads configuration and starts logging, telemetry and metrics. The
// returned context carries the run ID and logger.
func (o *rootOptions) open(ctx context.Context) (*application, context.Context, error) {
	cfg, err := config.Load(o.configPath, o.envFile)
	if err != nil {
		return nil, ctx, err
	}
	if o.outputDir != "" {
		cfg.Output.Dir = o.outputDir
	}

	logCfg := logging.NewDefaultConfig()
	logCfg.Level = cfg.Logging.Level
	logCfg.Format = cfg.Logging.Format
	if o.logLevel != "" {
		logCfg.Level = o.logLevel
	}
	logger, err := logging.NewLogger(logCfg)
	if err != nil {
		return nil, ctx, fmt.Errorf("create logger: %w", err)
	}

	theme := render.DefaultTheme()
	if cfg.Output.Theme != "" {
		if theme, err = render.LoadTheme(cfg.Output.Theme); err != nil {
			return nil, ctx, err
		}
	}
	if cfg.Tags.MaxWords > 0 {
		theme.WordCloud.MaxWords = cfg.Tags.MaxWords
	}

	loc, err := cfg.Heatmap.Location()
	if err != nil {
		return nil, ctx, err
	}

	tel, err := telemetry.New(ctx, telemetry.ConfigFrom(cfg.Telemetry, version))
	if err != nil {
		return nil, ctx, err
	}
	if h := tel.Health(); h.Degraded {
		logger.Warn(ctx, "telemetry degraded", zap.Error(h.Err))
	}

	app := &application{
		cfg:      cfg,
		logger:   logger,
		tel:      tel,
		metrics:  metrics.New(),
		theme:    theme,
		location: loc,
		now:      time.Now,
	}
	app.notion = sync.OnceValues(func() (*notion.Client, error) {
		return notion.NewClient(notion.ConfigFrom(cfg.Notion), notion.WithLogger(logger.Named("notion")))
	})

	ctx = logging.WithRunID(ctx, uuid.NewString())
	ctx = logging.WithLogger(ctx, logger)
	logger.Debug(ctx, "configuration loaded",
		zap.String("source", cfg.Source.Kind),
		zap.String("output", cfg.Output.Dir),
		logging.Secret("notion.token", cfg.Notion.Token))
	return app, ctx, nil
}

// close pushes metrics and flushes telemetry and logs.
func (a *application) close(ctx context.Context) error {
	var errs []error
	if url := a.cfg.Metrics.Pushgateway; url != "" {
		if err := a.metrics.Push(ctx, url, a.cfg.Metrics.Job); err != nil {
			a.logger.Warn(ctx, "metrics push failed", zap.Error(err))
		}
	}
	shutdownCtx, cancel := context.WithTimeout(context.WithoutCancel(ctx), 5*time.Second)
	defer cancel()
	if err := a.tel.Shutdown(shutdownCtx); err != nil {
		errs = append(errs, err)
	}
	if err := a.logger.Sync(); err != nil {
		errs = append(errs, err)
	}
	return errors.Join(errs...)
}

// runner builds a pipeline runner writing into the output directory.
func (a *application) runner() (*pipeline.Runner, error) {
	writer := render.NewWriter(a.cfg.Output.Dir, a.theme, render.WithClock(a.now))
	opts := []pipeline.Option{
		pipeline.WithLogger(a.logger),
		pipeline.WithTracer(a.tel.Tracer(instrumentationName)),
		pipeline.WithMetrics(a.metrics),
		pipeline.WithClock(a.now),
		pipeline.WithLocation(a.location),
	}
	if a.cfg.Publish.Enabled {
		pub, err := publish.Open(publish.ConfigFrom(a.cfg.Publish), publish.WithLogger(a.logger.Named("publish")))
		if err != nil {
			return nil, err
		}
		opts = append(opts, pipeline.WithPublisher(pub))
	}
	return pipeline.New(writer, opts...), nil
}

// heatmapJob resolves the heatmap source and layout settings.
func (a *application) heatmapJob() (pipeline.HeatmapJob, error) {
	h := a.cfg.Heatmap
	if err := a.cfg.ValidateHeatmapSource(); err != nil {
		return pipeline.HeatmapJob{}, err
	}
	weekStart, err := h.WeekStartDay()
	if err != nil {
		return pipeline.HeatmapJob{}, err
	}
	scheme, err := calendar.NewScheme(h.Scheme, h.Levels, h.Cutoffs)
	if err != nil {
		return pipeline.HeatmapJob{}, err
	}

	job := pipeline.HeatmapJob{
		Job:        pipeline.Job{SourceName: a.cfg.Source.Kind},
		Mode:       h.Mode,
		WindowDays: h.WindowDays,
		WeekStart:  weekStart,
		Scheme:     scheme,
	}
	if a.cfg.Source.Kind == "file" {
		job.Source = record.FileSource{Path: a.cfg.Source.HeatmapFile}
		job.Extractor = record.DefaultPaths
		return job, nil
	}
	client, err := a.notion()
	if err != nil {
		return pipeline.HeatmapJob{}, err
	}
	job.Source = client.DataSource(a.cfg.Notion.DatasourceID)
	job.Extractor = notion.PropertyExtractor{
		DateProp:  a.cfg.Notion.DateProp,
		ValueProp: a.cfg.Notion.DurationProp,
	}
	return job, nil
}

// wordCloudJob resolves the tag source and counting settings.
func (a *application) wordCloudJob() (pipeline.WordCloudJob, error) {
	t := a.cfg.Tags
	if err := a.cfg.ValidateTagsSource(); err != nil {
		return pipeline.WordCloudJob{}, err
	}
	job := pipeline.WordCloudJob{
		Job:          pipeline.Job{SourceName: a.cfg.Source.Kind},
		Year:         t.Year,
		Top:          t.Top,
		DedupePerDay: t.DedupePerDay,
	}
	if a.cfg.Source.Kind == "file" {
		job.Source = record.FileSource{Path: a.cfg.Source.TagsFile}
		job.Extractor = record.DefaultPaths
		return job, nil
	}
	client, err := a.notion()
	if err != nil {
		return pipeline.WordCloudJob{}, err
	}
	job.Source = client.DataSource(a.cfg.Notion.YearDatasourceID)
	job.Extractor = notion.PropertyExtractor{
		DateProp: t.DateProp,
		TagsProp: t.Prop,
	}
	return job, nil
}

// withApp opens the application around fn and closes it afterwards.
func (o *rootOptions) withApp(ctx context.Context, fn func(context.Context, *application) error) (err error) {
	app, ctx, err := o.open(ctx)
	if err != nil {
		return err
	}
	defer func() {
		if cerr := app.close(ctx); cerr != nil {
			app.logger.Debug(ctx, "shutdown", zap.Error(cerr))
		}
	}()
	return fn(ctx, app)
}
