package config

import (
	"fmt"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestValidateHeatmapSource(t *testing.T) {
	tests := []struct {
		name    string
		mutate  func(*Config)
		wantErr string
	}{
		{"missing token", func(c *Config) {}, "NOTION_TOKEN not set"},
		{"missing datasource", func(c *Config) { c.Notion.Token = "t" }, "NOTION_DATASOURCE_ID not set"},
		{"malformed datasource", func(c *Config) {
			c.Notion.Token = "t"
			c.Notion.DatasourceID = "not-an-id"
		}, "not a valid ID"},
		{"missing props", func(c *Config) {
			c.Notion.Token = "t"
			c.Notion.DatasourceID = "0f3c2a4e9d1b4c6a8e7f1a2b3c4d5e6f"
		}, "NOTION_DATE_PROP or NOTION_DURATION_PROP not set"},
		{"complete", func(c *Config) {
			c.Notion.Token = "t"
			c.Notion.DatasourceID = "0f3c2a4e9d1b4c6a8e7f1a2b3c4d5e6f"
			c.Notion.DateProp = "Date"
			c.Notion.DurationProp = "Minutes"
		}, ""},
		{"file source", func(c *Config) {
			c.Source.Kind = "file"
			c.Source.HeatmapFile = "records.json"
		}, ""},
		{"file source without path", func(c *Config) { c.Source.Kind = "file" }, "source.heatmap_file"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cfg := Default()
			tt.mutate(cfg)
			err := cfg.ValidateHeatmapSource()
			if tt.wantErr == "" {
				assert.NoError(t, err)
				return
			}
			require.Error(t, err)
			assert.ErrorIs(t, err, ErrInvalid)
			assert.Contains(t, err.Error(), tt.wantErr)
		})
	}
}

func TestValidateTagsSource(t *testing.T) {
	cfg := Default()
	cfg.Notion.Token = "t"
	cfg.Notion.YearDatasourceID = "0f3c2a4e-9d1b-4c6a-8e7f-1a2b3c4d5e6f"
	require.NoError(t, cfg.ValidateTagsSource())

	cfg.Tags.Prop = "  "
	err := cfg.ValidateTagsSource()
	require.Error(t, err)
	assert.Contains(t, err.Error(), "TAGS_PROP is empty")
}

func TestDefault_IsValid(t *testing.T) {
	require.NoError(t, Default().Validate())
}

func TestHeatmapConfig_Location(t *testing.T) {
	loc, err := HeatmapConfig{}.Location()
	require.NoError(t, err)
	assert.Equal(t, time.Local, loc)

	loc, err = HeatmapConfig{Timezone: "UTC"}.Location()
	require.NoError(t, err)
	assert.Equal(t, "UTC", loc.String())
}

func TestSecret_NeverFormatsValue(t *testing.T) {
	s := Secret("secret_abcdef")
	assert.Equal(t, "[REDACTED]", s.String())
	assert.NotContains(t, fmt.Sprintf("%v %s %#v", s, s, s), "abcdef")

	b, err := s.MarshalJSON()
	require.NoError(t, err)
	assert.JSONEq(t, `"[REDACTED]"`, string(b))
	assert.Equal(t, "", Secret("").String())
}

func TestCutoffs_UnmarshalText(t *testing.T) {
	var c Cutoffs
	require.NoError(t, c.UnmarshalText([]byte(" 30, 90 ,240 ")))
	assert.Equal(t, Cutoffs{30, 90, 240}, c)

	require.Error(t, c.UnmarshalText([]byte("30,abc")))

	require.NoError(t, c.UnmarshalText([]byte("")))
	assert.Nil(t, c)
}

func TestDuration_UnmarshalText(t *testing.T) {
	var d Duration
	require.NoError(t, d.UnmarshalText([]byte("1m30s")))
	assert.Equal(t, 90*time.Second, d.Duration())
	assert.Error(t, d.UnmarshalText([]byte("-1s")))
}
