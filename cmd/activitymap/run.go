package main

import (
	"context"
	"fmt"
	"io"

	"github.com/spf13/cobra"
	"golang.org/x/sync/errgroup"

	"github.com/fyrsmithlabs/activitymap/internal/pipeline"
	"github.com/fyrsmithlabs/activitymap/internal/render"
)

func newHeatmapCmd(opts *rootOptions) *cobra.Command {
	var preview bool
	cmd := &cobra.Command{
		Use:   "heatmap",
		Short: "Render the reading heatmap",
		Long: `Fetch reading records, sum minutes per day and render heatmap.png,
heatmap.html and heatmap.json into the output directory.

Examples:
  # Trailing 365 days ending today
  activitymap heatmap

  # January 1 to today, previewed in the terminal
  HEATMAP_MODE=year activitymap heatmap --preview`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			return opts.withApp(cmd.Context(), func(ctx context.Context, app *application) error {
				runner, err := app.runner()
				if err != nil {
					return err
				}
				res, err := runHeatmap(ctx, app, runner)
				if err != nil {
					return err
				}
				return printHeatmap(cmd.OutOrStdout(), app, res, preview)
			})
		},
	}
	cmd.Flags().BoolVar(&preview, "preview", false, "also draw the heatmap in the terminal")
	return cmd
}

func newWordCloudCmd(opts *rootOptions) *cobra.Command {
	var year int
	cmd := &cobra.Command{
		Use:   "wordcloud",
		Short: "Render the tag word cloud for one year",
		Long: `Fetch records, count tags for the target year and render word_cloud.svg,
word_cloud.html and word_cloud.json into the output directory. The top tags
are printed after counting.

Examples:
  activitymap wordcloud
  activitymap wordcloud --year 2024`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			return opts.withApp(cmd.Context(), func(ctx context.Context, app *application) error {
				if cmd.Flags().Changed("year") {
					app.cfg.Tags.Year = year
				}
				runner, err := app.runner()
				if err != nil {
					return err
				}
				res, err := runWordCloud(ctx, app, runner)
				if err != nil {
					return err
				}
				return printWordCloud(cmd.OutOrStdout(), res)
			})
		},
	}
	cmd.Flags().IntVar(&year, "year", 0, "target year (default TAGS_YEAR or the current year)")
	return cmd
}

func newAllCmd(opts *rootOptions) *cobra.Command {
	return &cobra.Command{
		Use:   "all",
		Short: "Render the heatmap and the word cloud concurrently",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			return opts.withApp(cmd.Context(), func(ctx context.Context, app *application) error {
				// One runner, and so one publisher, serializes the commits of both pipelines.
				runner, err := app.runner()
				if err != nil {
					return err
				}
				heatJob, err := app.heatmapJob()
				if err != nil {
					return err
				}
				cloudJob, err := app.wordCloudJob()
				if err != nil {
					return err
				}

				var (
					heat  *pipeline.HeatmapResult
					cloud *pipeline.WordCloudResult
				)
				g, gctx := errgroup.WithContext(ctx)
				g.Go(func() (err error) {
					heat, err = runner.Heatmap(gctx, heatJob)
					return err
				})
				g.Go(func() (err error) {
					cloud, err = runner.WordCloud(gctx, cloudJob)
					return err
				})
				if err := g.Wait(); err != nil {
					return err
				}

				out := cmd.OutOrStdout()
				if err := printHeatmap(out, app, heat, false); err != nil {
					return err
				}
				return printWordCloud(out, cloud)
			})
		},
	}
}

// runHeatmap resolves the heatmap job and runs it on runner.
func runHeatmap(ctx context.Context, app *application, runner *pipeline.Runner) (*pipeline.HeatmapResult, error) {
	job, err := app.heatmapJob()
	if err != nil {
		return nil, err
	}
	return runner.Heatmap(ctx, job)
}

func runWordCloud(ctx context.Context, app *application, runner *pipeline.Runner) (*pipeline.WordCloudResult, error) {
	job, err := app.wordCloudJob()
	if err != nil {
		return nil, err
	}
	return runner.WordCloud(ctx, job)
}

func printHeatmap(w io.Writer, app *application, res *pipeline.HeatmapResult, preview bool) error {
	if res.NoRecords {
		_, err := fmt.Fprintln(w, "No records found")
		return err
	}
	if preview {
		if err := render.Terminal(w, res.Grid, app.theme.Heatmap); err != nil {
			return err
		}
	}
	return printFiles(w, res.Files)
}

func printWordCloud(w io.Writer, res *pipeline.WordCloudResult) error {
	if res.NoRecords {
		_, err := fmt.Fprintln(w, "No records found")
		return err
	}
	if err := printTagTable(w, res.Top, res.Year, false); err != nil {
		return err
	}
	return printFiles(w, res.Files)
}
