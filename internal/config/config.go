// Package config provides configuration loading for activitymap.
//
// Configuration is layered: built-in defaults, an optional YAML file, an
// optional .env file and finally environment variables.
package config

import (
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"
)

// ErrInvalid marks every configuration error. Configuration errors abort a run
// before anything is fetched or written.
var ErrInvalid = errors.New("invalid configuration")

// Config holds the complete activitymap configuration.
type Config struct {
	Source    SourceConfig    `koanf:"source"`
	Notion    NotionConfig    `koanf:"notion"`
	Tags      TagsConfig      `koanf:"tags"`
	Heatmap   HeatmapConfig   `koanf:"heatmap"`
	Output    OutputConfig    `koanf:"output"`
	Logging   LoggingConfig   `koanf:"logging"`
	Telemetry TelemetryConfig `koanf:"telemetry"`
	Metrics   MetricsConfig   `koanf:"metrics"`
	Publish   PublishConfig   `koanf:"publish"`
	Serve     ServeConfig     `koanf:"serve"`
}

// SourceConfig selects where records come from.
type SourceConfig struct {
	Kind        string `koanf:"kind"` // "notion" or "file"
	HeatmapFile string `koanf:"heatmap_file"`
	TagsFile    string `koanf:"tags_file"`
}

// NotionConfig holds Notion API access and the property names to read.
type NotionConfig struct {
	Token            Secret   `koanf:"token"`
	DatasourceID     string   `koanf:"datasource_id"`
	YearDatasourceID string   `koanf:"year_datasource_id"`
	DateProp         string   `koanf:"date_prop"`
	DurationProp     string   `koanf:"duration_prop"`
	BaseURL          string   `koanf:"base_url"`
	Version          string   `koanf:"version"`
	PageSize         int      `koanf:"page_size"`
	Timeout          Duration `koanf:"timeout"`
	RateLimit        float64  `koanf:"rate_limit"` // requests per second
	MaxRetries       int      `koanf:"max_retries"`
}

// TagsConfig controls the word-cloud pipeline.
type TagsConfig struct {
	Prop         string `koanf:"prop"`
	DateProp     string `koanf:"date_prop"` // empty uses the page's created_time
	Year         int    `koanf:"year"`      // 0 means the current year
	Top          int    `koanf:"top"`
	MaxWords     int    `koanf:"max_words"`
	DedupePerDay bool   `koanf:"dedupe_per_day"`
}

// HeatmapConfig controls the calendar grid.
type HeatmapConfig struct {
	Mode       string  `koanf:"mode"` // "trailing" or "year"
	WindowDays int     `koanf:"window_days"`
	WeekStart  string  `koanf:"week_start"`
	Scheme     string  `koanf:"scheme"` // "fixed" or "quantile"
	Levels     int     `koanf:"levels"`
	Cutoffs    Cutoffs `koanf:"cutoffs"`
	Timezone   string  `koanf:"timezone"`
}

// OutputConfig controls where artifacts are written.
type OutputConfig struct {
	Dir   string `koanf:"dir"`
	Theme string `koanf:"theme"` // optional TOML theme file
}

// LoggingConfig is mapped onto logging.Config by the CLI.
type LoggingConfig struct {
	Level  string `koanf:"level"`
	Format string `koanf:"format"`
}

// TelemetryConfig is mapped onto telemetry.Config by the CLI.
type TelemetryConfig struct {
	Enabled    bool    `koanf:"enabled"`
	Endpoint   string  `koanf:"endpoint"`
	Insecure   bool    `koanf:"insecure"`
	SampleRate float64 `koanf:"sample_rate"`
}

// MetricsConfig controls pushing run metrics to a Prometheus Pushgateway.
type MetricsConfig struct {
	Pushgateway string `koanf:"pushgateway"`
	Job         string `koanf:"job"`
}

// PublishConfig controls committing artifacts to the enclosing git repository.
type PublishConfig struct {
	Enabled     bool   `koanf:"enabled"`
	Repo        string `koanf:"repo"`
	Message     string `koanf:"message"`
	AuthorName  string `koanf:"author_name"`
	AuthorEmail string `koanf:"author_email"`
}

// ServeConfig controls the preview server.
type ServeConfig struct {
	Host string `koanf:"host"`
	Port int    `koanf:"port"`
}

var weekdays = map[string]time.Weekday{
	"sunday": time.Sunday, "sun": time.Sunday,
	"monday": time.Monday, "mon": time.Monday,
	"tuesday": time.Tuesday, "tue": time.Tuesday,
	"wednesday": time.Wednesday, "wed": time.Wednesday,
	"thursday": time.Thursday, "thu": time.Thursday,
	"friday": time.Friday, "fri": time.Friday,
	"saturday": time.Saturday, "sat": time.Saturday,
}

// WeekStartDay returns the configured first row of each week column.
func (h HeatmapConfig) WeekStartDay() (time.Weekday, error) {
	d, ok := weekdays[strings.ToLower(strings.TrimSpace(h.WeekStart))]
	if !ok {
		return time.Sunday, fmt.Errorf("%w: heatmap.week_start %q is not a weekday", ErrInvalid, h.WeekStart)
	}
	return d, nil
}

// Location returns the time zone "today" is resolved in.
func (h HeatmapConfig) Location() (*time.Location, error) {
	if h.Timezone == "" || h.Timezone == "Local" {
		return time.Local, nil
	}
	loc, err := time.LoadLocation(h.Timezone)
	if err != nil {
		return nil, fmt.Errorf("%w: heatmap.timezone: %v", ErrInvalid, err)
	}
	return loc, nil
}

// Validate checks settings shared by every command.
func (c *Config) Validate() error {
	var errs []error

	switch c.Source.Kind {
	case "notion", "file":
	default:
		errs = append(errs, fmt.Errorf("source.kind must be 'notion' or 'file', got %q", c.Source.Kind))
	}

	switch c.Heatmap.Mode {
	case "trailing", "year":
	default:
		errs = append(errs, fmt.Errorf("heatmap.mode must be 'trailing' or 'year', got %q", c.Heatmap.Mode))
	}
	if c.Heatmap.WindowDays <= 0 {
		errs = append(errs, fmt.Errorf("heatmap.window_days must be positive, got %d", c.Heatmap.WindowDays))
	}
	switch c.Heatmap.Scheme {
	case "fixed":
		for i, v := range c.Heatmap.Cutoffs {
			if v <= 0 || (i > 0 && v <= c.Heatmap.Cutoffs[i-1]) {
				errs = append(errs, fmt.Errorf("heatmap.cutoffs must be positive and strictly increasing, got %v", c.Heatmap.Cutoffs))
				break
			}
		}
	case "quantile":
		if c.Heatmap.Levels < 1 {
			errs = append(errs, fmt.Errorf("heatmap.levels must be at least 1, got %d", c.Heatmap.Levels))
		}
	default:
		errs = append(errs, fmt.Errorf("heatmap.scheme must be 'fixed' or 'quantile', got %q", c.Heatmap.Scheme))
	}
	if _, err := c.Heatmap.WeekStartDay(); err != nil {
		errs = append(errs, err)
	}
	if _, err := c.Heatmap.Location(); err != nil {
		errs = append(errs, err)
	}

	if c.Tags.Year < 0 || c.Tags.Year > 9999 {
		errs = append(errs, fmt.Errorf("tags.year must be between 1 and 9999 (or 0 for the current year), got %d", c.Tags.Year))
	}
	if c.Tags.Top < 0 || c.Tags.MaxWords < 0 {
		errs = append(errs, fmt.Errorf("tags.top and tags.max_words cannot be negative"))
	}

	if c.Notion.PageSize < 1 || c.Notion.PageSize > 100 {
		errs = append(errs, fmt.Errorf("notion.page_size must be between 1 and 100, got %d", c.Notion.PageSize))
	}
	if c.Notion.RateLimit <= 0 {
		errs = append(errs, fmt.Errorf("notion.rate_limit must be positive"))
	}
	if c.Notion.MaxRetries < 0 {
		errs = append(errs, fmt.Errorf("notion.max_retries cannot be negative"))
	}

	if c.Serve.Port < 1 || c.Serve.Port > 65535 {
		errs = append(errs, fmt.Errorf("serve.port must be between 1 and 65535, got %d", c.Serve.Port))
	}
	if c.Telemetry.SampleRate < 0 || c.Telemetry.SampleRate > 1 {
		errs = append(errs, fmt.Errorf("telemetry.sample_rate must be between 0 and 1, got %v", c.Telemetry.SampleRate))
	}

	if len(errs) > 0 {
		return fmt.Errorf("%w: %w", ErrInvalid, errors.Join(errs...))
	}
	return nil
}

// ValidateHeatmapSource checks what the heatmap pipeline needs to fetch records.
func (c *Config) ValidateHeatmapSource() error {
	if c.Source.Kind == "file" {
		if c.Source.HeatmapFile == "" {
			return fmt.Errorf("%w: source.heatmap_file is required when source.kind is 'file'", ErrInvalid)
		}
		return nil
	}
	if err := c.validateNotionAccess(c.Notion.DatasourceID, "NOTION_DATASOURCE_ID"); err != nil {
		return err
	}
	if c.Notion.DateProp == "" || c.Notion.DurationProp == "" {
		return fmt.Errorf("%w: NOTION_DATE_PROP or NOTION_DURATION_PROP not set", ErrInvalid)
	}
	return nil
}

// ValidateTagsSource checks what the word-cloud pipeline needs to fetch records.
func (c *Config) ValidateTagsSource() error {
	if c.Source.Kind == "file" {
		if c.Source.TagsFile == "" {
			return fmt.Errorf("%w: source.tags_file is required when source.kind is 'file'", ErrInvalid)
		}
		return nil
	}
	if err := c.validateNotionAccess(c.Notion.YearDatasourceID, "NOTION_YEAR_DATASOURCE_ID"); err != nil {
		return err
	}
	if strings.TrimSpace(c.Tags.Prop) == "" {
		return fmt.Errorf("%w: TAGS_PROP is empty", ErrInvalid)
	}
	return nil
}

func (c *Config) validateNotionAccess(id, name string) error {
	if !c.Notion.Token.IsSet() {
		return fmt.Errorf("%w: NOTION_TOKEN not set", ErrInvalid)
	}
	if id == "" {
		return fmt.Errorf("%w: %s not set", ErrInvalid, name)
	}
	if _, err := uuid.Parse(id); err != nil {
		return fmt.Errorf("%w: %s is not a valid ID: %v", ErrInvalid, name, err)
	}
	return nil
}
