package main

import (
	"context"
	"fmt"
	"io"
	"os"
	"strconv"

	"github.com/fatih/color"
	"github.com/olekukonko/tablewriter"
	"github.com/olekukonko/tablewriter/tw"
	"github.com/spf13/cobra"

	"github.com/fyrsmithlabs/activitymap/internal/frequency"
	"github.com/fyrsmithlabs/activitymap/internal/render"
)

func newTagsCmd(opts *rootOptions) *cobra.Command {
	var (
		year   int
		top    int
		format string
	)
	cmd := &cobra.Command{
		Use:   "tags",
		Short: "Print tag counts for one year without rendering",
		Long: `Fetch records and print how often each tag occurs in the target year.

Examples:
  activitymap tags --top 20
  activitymap tags --year 2023 --format bars`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			if format != "table" && format != "bars" {
				return fmt.Errorf("invalid format %q: must be table or bars", format)
			}
			return opts.withApp(cmd.Context(), func(ctx context.Context, app *application) error {
				job, err := app.wordCloudJob()
				if err != nil {
					return err
				}
				if cmd.Flags().Changed("year") {
					job.Year = year
				}
				if cmd.Flags().Changed("top") {
					job.Top = top
				}
				runner, err := app.runner()
				if err != nil {
					return err
				}
				res, err := runner.Tags(ctx, job)
				if err != nil {
					return err
				}

				out := cmd.OutOrStdout()
				if res.NoRecords {
					_, err := fmt.Fprintln(out, "No records found")
					return err
				}
				if format == "bars" {
					if err := render.TagPreview(out, res.Top, res.Year); err != nil {
						return err
					}
					_, err = fmt.Fprintln(out)
					return err
				}
				return printTagTable(out, res.Top, res.Year, true)
			})
		},
	}
	cmd.Flags().IntVar(&year, "year", 0, "target year (default TAGS_YEAR or the current year)")
	cmd.Flags().IntVar(&top, "top", 0, "number of tags to print (default tags.top)")
	cmd.Flags().StringVar(&format, "format", "table", "output format: table or bars")
	return cmd
}

// useColors reports whether w is a terminal that accepts color.
func useColors(w io.Writer) bool {
	return w == io.Writer(os.Stdout) && !color.NoColor
}

// printTagTable prints entries as a ranked table.
func printTagTable(w io.Writer, entries []frequency.Entry, year int, share bool) error {
	bold := color.New(color.Bold)
	count := color.New(color.FgYellow)
	if !useColors(w) {
		bold.DisableColor()
		count.DisableColor()
	}

	if _, err := bold.Fprintf(w, "Top %d tags for %d\n", len(entries), year); err != nil {
		return err
	}
	if len(entries) == 0 {
		_, err := fmt.Fprintln(w, "no tags")
		return err
	}

	total := 0
	for _, e := range entries {
		total += e.Count
	}
	header := []string{"#", "Tag", "Count"}
	if share {
		header = append(header, "Share")
	}
	rows := make([][]string, 0, len(entries))
	for i, e := range entries {
		row := []string{strconv.Itoa(i + 1), e.Tag, count.Sprint(e.Count)}
		if share {
			row = append(row, fmt.Sprintf("%.1f%%", 100*float64(e.Count)/float64(total)))
		}
		rows = append(rows, row)
	}

	table := tablewriter.NewTable(w,
		tablewriter.WithConfig(tablewriter.Config{
			Row: tw.CellConfig{
				Formatting: tw.CellFormatting{AutoWrap: tw.WrapNone},
				Alignment:  tw.CellAlignment{Global: tw.AlignLeft},
			},
			Header: tw.CellConfig{
				Formatting: tw.CellFormatting{AutoFormat: tw.On},
				Alignment:  tw.CellAlignment{Global: tw.AlignLeft},
			},
		}),
		tablewriter.WithRendition(tw.Rendition{
			Borders: tw.BorderNone,
			Settings: tw.Settings{
				Separators: tw.Separators{ShowHeader: tw.Off},
			},
		}),
	)
	table.Header(header)
	if err := table.Bulk(rows); err != nil {
		return err
	}
	return table.Render()
}

func printFiles(w io.Writer, files []string) error {
	for _, f := range files {
		if _, err := fmt.Fprintf(w, "wrote %s\n", f); err != nil {
			return err
		}
	}
	return nil
}
