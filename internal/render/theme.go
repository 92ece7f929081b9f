// Package render turns a calendar grid and a tag frequency table into
// image, page and terminal artifacts.
package render

import (
	"errors"
	"fmt"
	"image/color"
	"strconv"
	"strings"

	"github.com/BurntSushi/toml"
)

// ErrInvalidTheme is returned for theme files that cannot be used.
var ErrInvalidTheme = errors.New("invalid theme")

// Theme holds the colors and sizes of every artifact.
type Theme struct {
	Heatmap   HeatmapTheme   `toml:"heatmap"`
	WordCloud WordCloudTheme `toml:"wordcloud"`
}

// HeatmapTheme styles the calendar heatmap. Colors[0] is the empty-day color;
// the remaining colors run from the lowest to the highest level.
type HeatmapTheme struct {
	Colors     []string `toml:"colors"`
	LabelColor string   `toml:"label_color"`
	Cell       int      `toml:"cell"`   // cell edge in pixels
	Gap        int      `toml:"gap"`    // space between cells in pixels
	Radius     float32  `toml:"radius"` // corner radius in pixels
	Margin     int      `toml:"margin"`
	LabelScale int      `toml:"label_scale"`
	Title      string   `toml:"title"`
}

// WordCloudTheme styles the word cloud.
type WordCloudTheme struct {
	Width       int      `toml:"width"`
	Height      int      `toml:"height"`
	MinFontSize float64  `toml:"min_font_size"`
	MaxFontSize float64  `toml:"max_font_size"`
	Margin      float64  `toml:"margin"`
	MaxWords    int      `toml:"max_words"`
	FontFamily  string   `toml:"font_family"`
	Colors      []string `toml:"colors"`
	Title       string   `toml:"title"`
}

// DefaultTheme returns the brown heatmap palette and muted word-cloud palette.
func DefaultTheme() Theme {
	return Theme{
		Heatmap: HeatmapTheme{
			Colors:     []string{"#ebedf0", "#f4d6b6", "#d9a773", "#bf7e44", "#8c5931"},
			LabelColor: "#666666",
			Cell:       36,
			Gap:        9,
			Radius:     4,
			Margin:     24,
			LabelScale: 3,
			Title:      "Reading Heatmap",
		},
		WordCloud: WordCloudTheme{
			Width:       1200,
			Height:      600,
			MinFontSize: 12,
			MaxFontSize: 120,
			Margin:      5,
			MaxWords:    200,
			FontFamily:  "'Noto Sans TC', 'PingFang TC', 'Microsoft JhengHei', sans-serif",
			Colors: []string{
				"hsl(30, 40%, 50%)",
				"hsl(180, 20%, 40%)",
				"hsl(210, 30%, 60%)",
				"hsl(150, 20%, 50%)",
				"hsl(350, 30%, 60%)",
				"hsl(25, 60%, 45%)",
				"hsl(200, 40%, 45%)",
			},
			Title: "Reading Tags Word Cloud",
		},
	}
}

// LoadTheme reads a TOML theme file over the defaults. Keys missing from the
// file keep their default value.
func LoadTheme(path string) (Theme, error) {
	theme := DefaultTheme()
	if path == "" {
		return theme, nil
	}
	if _, err := toml.DecodeFile(path, &theme); err != nil {
		return Theme{}, fmt.Errorf("%w: %s: %v", ErrInvalidTheme, path, err)
	}
	if err := theme.Validate(); err != nil {
		return Theme{}, fmt.Errorf("%s: %w", path, err)
	}
	return theme, nil
}

// Validate checks colors parse and sizes are usable.
func (t Theme) Validate() error {
	h := t.Heatmap
	if len(h.Colors) < 2 {
		return fmt.Errorf("%w: heatmap needs at least two colors", ErrInvalidTheme)
	}
	for _, c := range append([]string{h.LabelColor}, h.Colors...) {
		if _, err := parseHexColor(c); err != nil {
			return fmt.Errorf("%w: %v", ErrInvalidTheme, err)
		}
	}
	if h.Cell < 1 || h.Gap < 0 || h.Margin < 0 || h.LabelScale < 1 {
		return fmt.Errorf("%w: heatmap sizes must be positive", ErrInvalidTheme)
	}
	w := t.WordCloud
	if w.Width < 1 || w.Height < 1 {
		return fmt.Errorf("%w: word cloud size must be positive", ErrInvalidTheme)
	}
	if w.MinFontSize <= 0 || w.MaxFontSize < w.MinFontSize {
		return fmt.Errorf("%w: word cloud font sizes must satisfy 0 < min <= max", ErrInvalidTheme)
	}
	if len(w.Colors) == 0 {
		return fmt.Errorf("%w: word cloud needs at least one color", ErrInvalidTheme)
	}
	return nil
}

// LevelColor returns the hex color for level out of levels. When the palette
// has a different number of steps than the grid, levels are spread across it.
func (h HeatmapTheme) LevelColor(level, levels int) string {
	if level <= 0 || levels <= 0 {
		return h.Colors[0]
	}
	steps := len(h.Colors) - 1
	if levels == steps {
		return h.Colors[min(level, steps)]
	}
	idx := 1 + (min(level, levels)-1)*(steps-1)/max(levels-1, 1)
	return h.Colors[min(idx, steps)]
}

// parseHexColor parses #rgb, #rrggbb and #rrggbbaa.
func parseHexColor(s string) (color.NRGBA, error) {
	hex := strings.TrimPrefix(strings.TrimSpace(s), "#")
	if len(hex) == 3 {
		hex = string([]byte{hex[0], hex[0], hex[1], hex[1], hex[2], hex[2]})
	}
	if len(hex) == 6 {
		hex += "ff"
	}
	if len(hex) != 8 {
		return color.NRGBA{}, fmt.Errorf("color %q is not #rgb, #rrggbb or #rrggbbaa", s)
	}
	v, err := strconv.ParseUint(hex, 16, 32)
	if err != nil {
		return color.NRGBA{}, fmt.Errorf("color %q: %w", s, err)
	}
	return color.NRGBA{R: uint8(v >> 24), G: uint8(v >> 16), B: uint8(v >> 8), A: uint8(v)}, nil
}
