package main

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/fyrsmithlabs/activitymap/internal/config"
)

// rootOptions holds the flags shared by every command.
type rootOptions struct {
	configPath string
	envFile    string
	logLevel   string
	outputDir  string
}

func newRootCmd() *cobra.Command {
	opts := &rootOptions{}
	cmd := &cobra.Command{
		Use:   "activitymap",
		Short: "Render a reading-activity heatmap and tag word cloud",
		Long: `activitymap reads a reading log from a Notion data source (or a JSON file),
sums reading minutes per day into a GitHub-style calendar heatmap and counts
tags for one year into a word cloud.

Configuration is read from activitymap.yaml, then .env, then the environment.
The usual variables are NOTION_TOKEN, NOTION_DATASOURCE_ID,
NOTION_YEAR_DATASOURCE_ID, NOTION_DATE_PROP, NOTION_DURATION_PROP and TAGS_PROP.`,
		Version:       version,
		SilenceUsage:  true,
		SilenceErrors: false,
	}

	flags := cmd.PersistentFlags()
	flags.StringVar(&opts.configPath, "config", config.DefaultConfigPath, "config file (YAML)")
	flags.StringVar(&opts.envFile, "env-file", config.DefaultDotenvPath, "dotenv file loaded before the environment")
	flags.StringVar(&opts.logLevel, "log-level", "", "override logging.level (trace, debug, info, warn, error)")
	flags.StringVarP(&opts.outputDir, "output", "o", "", "override output.dir")

	cmd.AddCommand(
		newHeatmapCmd(opts),
		newWordCloudCmd(opts),
		newAllCmd(opts),
		newTagsCmd(opts),
		newServeCmd(opts),
		newVersionCmd(),
	)
	return cmd
}

func newVersionCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "version",
		Short: "Print the version",
		Args:  cobra.NoArgs,
		Run: func(cmd *cobra.Command, _ []string) {
			fmt.Fprintf(cmd.OutOrStdout(), "activitymap %s\n", version)
		},
	}
}
