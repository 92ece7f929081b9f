package config

import (
	"errors"
	"fmt"
	"io"
	"io/fs"
	"os"
	"runtime"
	"strings"
	"time"

	"github.com/joho/godotenv"
	"github.com/knadh/koanf/parsers/yaml"
	"github.com/knadh/koanf/providers/env"
	"github.com/knadh/koanf/providers/rawbytes"
	"github.com/knadh/koanf/v2"
)

const (
	maxConfigFileSize = 1024 * 1024 // 1MB

	// DefaultConfigPath is read when no --config flag is given and the file exists.
	DefaultConfigPath = "activitymap.yaml"
	// DefaultDotenvPath is read when no --env-file flag is given and the file exists.
	DefaultDotenvPath = ".env"

	defaultWindowDays = 365
)

// sections are the top-level keys environment variables may map onto.
var sections = map[string]bool{
	"source":    true,
	"notion":    true,
	"tags":      true,
	"heatmap":   true,
	"output":    true,
	"logging":   true,
	"telemetry": true,
	"metrics":   true,
	"publish":   true,
	"serve":     true,
}

// Load builds the configuration from defaults, the YAML file at configPath,
// the dotenv file at dotenvPath and the process environment.
//
// Configuration precedence (highest to lowest):
//  1. Environment variables (NOTION_TOKEN, HEATMAP_WINDOW_DAYS, etc.)
//  2. The dotenv file (never overrides variables already set)
//  3. The YAML config file
//  4. Hardcoded defaults
//
// Missing files are skipped. A YAML file that carries notion.token must not be
// readable by group or others.
//
// # Environment Variable Mapping
//
// Variables are split on their first underscore into section and field:
//
//	NOTION_DATASOURCE_ID -> notion.datasource_id
//	TAGS_PROP            -> tags.prop
//	HEATMAP_WINDOW_DAYS  -> heatmap.window_days
//
// Variables whose first word is not a known section are ignored.
func Load(configPath, dotenvPath string) (*Config, error) {
	k := koanf.New(".")
	// Seeded before the file and env layers so an explicit 0 still reaches Validate.
	if err := k.Set("heatmap.window_days", defaultWindowDays); err != nil {
		return nil, fmt.Errorf("failed to seed defaults: %w", err)
	}

	content, info, err := readConfigFile(configPath)
	if err != nil {
		return nil, err
	}
	if content != nil {
		if err := k.Load(rawbytes.Provider(content), yaml.Parser()); err != nil {
			return nil, fmt.Errorf("failed to load config file %s: %w", configPath, err)
		}
		if k.String("notion.token") != "" {
			if err := validateSecretFilePermissions(info); err != nil {
				return nil, fmt.Errorf("config file validation failed: %w", err)
			}
		}
	}

	if dotenvPath != "" {
		if err := godotenv.Load(dotenvPath); err != nil && !errors.Is(err, fs.ErrNotExist) {
			return nil, fmt.Errorf("failed to load env file %s: %w", dotenvPath, err)
		}
	}

	if err := k.Load(env.Provider("", ".", envKey), nil); err != nil {
		return nil, fmt.Errorf("failed to load environment variables: %w", err)
	}

	var cfg Config
	if err := k.Unmarshal("", &cfg); err != nil {
		return nil, fmt.Errorf("%w: %v", ErrInvalid, err)
	}

	applyDefaults(&cfg)
	if !k.Exists("heatmap.levels") {
		cfg.Heatmap.Levels = len(cfg.Heatmap.Cutoffs) + 1
	}

	if err := cfg.Validate(); err != nil {
		return nil, err
	}

	return &cfg, nil
}

// envKey maps an environment variable name to a config key, or "" to skip it.
func envKey(s string) string {
	lower := strings.ToLower(s)
	section, field, ok := strings.Cut(lower, "_")
	if !ok || field == "" || !sections[section] {
		return ""
	}
	return section + "." + field
}

func readConfigFile(path string) ([]byte, os.FileInfo, error) {
	if path == "" {
		return nil, nil, nil
	}
	// Open once and stat the descriptor to avoid a TOCTOU race.
	f, err := os.Open(path)
	if errors.Is(err, fs.ErrNotExist) {
		return nil, nil, nil
	}
	if err != nil {
		return nil, nil, fmt.Errorf("failed to open config file: %w", err)
	}
	defer f.Close()

	info, err := f.Stat()
	if err != nil {
		return nil, nil, fmt.Errorf("failed to stat config file: %w", err)
	}
	if info.Size() > maxConfigFileSize {
		return nil, nil, fmt.Errorf("%w: config file too large: %d bytes (max %d)", ErrInvalid, info.Size(), maxConfigFileSize)
	}

	content, err := io.ReadAll(io.LimitReader(f, maxConfigFileSize))
	if err != nil {
		return nil, nil, fmt.Errorf("failed to read config file: %w", err)
	}
	return content, info, nil
}

// validateSecretFilePermissions rejects group or world readable files.
func validateSecretFilePermissions(info os.FileInfo) error {
	if runtime.GOOS == "windows" {
		return nil
	}
	if perm := info.Mode().Perm(); perm&0o077 != 0 {
		return fmt.Errorf("%w: insecure config file permissions %v for a file holding notion.token (expected 0600 or 0400)", ErrInvalid, perm)
	}
	return nil
}

// Default returns a configuration with every default applied.
func Default() *Config {
	cfg := Config{Heatmap: HeatmapConfig{WindowDays: defaultWindowDays}}
	applyDefaults(&cfg)
	cfg.Heatmap.Levels = len(cfg.Heatmap.Cutoffs) + 1
	return &cfg
}

// applyDefaults sets default values for missing configuration fields. Fields
// where zero is a meaningful, invalid setting are defaulted in Load instead.
func applyDefaults(cfg *Config) {
	if cfg.Source.Kind == "" {
		cfg.Source.Kind = "notion"
	}

	// Notion defaults
	if cfg.Notion.BaseURL == "" {
		cfg.Notion.BaseURL = "https://api.notion.com"
	}
	if cfg.Notion.Version == "" {
		cfg.Notion.Version = "2025-09-03"
	}
	if cfg.Notion.PageSize == 0 {
		cfg.Notion.PageSize = 100
	}
	if cfg.Notion.Timeout == 0 {
		cfg.Notion.Timeout = Duration(30 * time.Second)
	}
	if cfg.Notion.RateLimit == 0 {
		cfg.Notion.RateLimit = 3
	}
	if cfg.Notion.MaxRetries == 0 {
		cfg.Notion.MaxRetries = 3
	}

	// Word-cloud defaults
	if cfg.Tags.Prop == "" {
		cfg.Tags.Prop = "Tags"
	}
	if cfg.Tags.Top == 0 {
		cfg.Tags.Top = 10
	}
	if cfg.Tags.MaxWords == 0 {
		cfg.Tags.MaxWords = 200
	}

	// Heatmap defaults
	if cfg.Heatmap.Mode == "" {
		cfg.Heatmap.Mode = "trailing"
	}
	if cfg.Heatmap.WeekStart == "" {
		cfg.Heatmap.WeekStart = "monday"
	}
	if cfg.Heatmap.Scheme == "" {
		cfg.Heatmap.Scheme = "fixed"
	}
	if len(cfg.Heatmap.Cutoffs) == 0 {
		cfg.Heatmap.Cutoffs = Cutoffs{60, 180, 360}
	}

	if cfg.Output.Dir == "" {
		cfg.Output.Dir = "public"
	}

	if cfg.Logging.Level == "" {
		cfg.Logging.Level = "info"
	}
	if cfg.Logging.Format == "" {
		cfg.Logging.Format = "console"
	}

	if cfg.Telemetry.Endpoint == "" {
		cfg.Telemetry.Endpoint = "localhost:4318"
	}
	if cfg.Telemetry.SampleRate == 0 {
		cfg.Telemetry.SampleRate = 1.0
	}

	if cfg.Metrics.Job == "" {
		cfg.Metrics.Job = "activitymap"
	}

	if cfg.Publish.Repo == "" {
		cfg.Publish.Repo = "."
	}
	if cfg.Publish.Message == "" {
		cfg.Publish.Message = "Update activity artifacts"
	}
	if cfg.Publish.AuthorName == "" {
		cfg.Publish.AuthorName = "activitymap"
	}
	if cfg.Publish.AuthorEmail == "" {
		cfg.Publish.AuthorEmail = "activitymap@localhost"
	}

	if cfg.Serve.Host == "" {
		cfg.Serve.Host = "127.0.0.1"
	}
	if cfg.Serve.Port == 0 {
		cfg.Serve.Port = 8080
	}
}
