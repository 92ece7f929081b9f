package render

import (
	"bytes"
	"encoding/json"
	"image"
	"image/color"
	"image/png"
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/fyrsmithlabs/activitymap/internal/calendar"
	"github.com/fyrsmithlabs/activitymap/internal/frequency"
)

func testGrid(t *testing.T, values map[calendar.Date]float64) *calendar.Grid {
	t.Helper()
	w, err := calendar.NewWindow(calendar.NewDate(2024, time.March, 31), 31, time.Monday)
	require.NoError(t, err)
	g, err := calendar.Build(values, w, calendar.Fixed{Cutoffs: calendar.DefaultCutoffs})
	require.NoError(t, err)
	return g
}

func TestDefaultTheme_Valid(t *testing.T) {
	require.NoError(t, DefaultTheme().Validate())
}

func TestLoadTheme(t *testing.T) {
	path := filepath.Join(t.TempDir(), "theme.toml")
	require.NoError(t, os.WriteFile(path, []byte(`
[heatmap]
colors = ["#eeeeee", "#9be9a8", "#40c463", "#30a14e", "#216e39"]
cell = 12

[wordcloud]
width = 800
`), 0o644))

	theme, err := LoadTheme(path)
	require.NoError(t, err)
	assert.Equal(t, "#216e39", theme.Heatmap.Colors[4])
	assert.Equal(t, 12, theme.Heatmap.Cell)
	assert.Equal(t, 9, theme.Heatmap.Gap, "unset keys keep defaults")
	assert.Equal(t, 800, theme.WordCloud.Width)
	assert.Equal(t, 600, theme.WordCloud.Height)
}

func TestLoadTheme_Invalid(t *testing.T) {
	dir := t.TempDir()
	tests := map[string]string{
		"syntax":     "[heatmap\ncolors = 1",
		"bad color":  "[heatmap]\ncolors = [\"#eee\", \"brown\"]",
		"one color":  "[heatmap]\ncolors = [\"#eee\"]",
		"font sizes": "[wordcloud]\nmin_font_size = 50.0\nmax_font_size = 10.0",
	}
	for name, content := range tests {
		t.Run(name, func(t *testing.T) {
			path := filepath.Join(dir, strings.ReplaceAll(name, " ", "_")+".toml")
			require.NoError(t, os.WriteFile(path, []byte(content), 0o644))
			_, err := LoadTheme(path)
			assert.ErrorIs(t, err, ErrInvalidTheme)
		})
	}
}

func TestLevelColor(t *testing.T) {
	h := DefaultTheme().Heatmap
	assert.Equal(t, "#ebedf0", h.LevelColor(0, 4))
	assert.Equal(t, "#f4d6b6", h.LevelColor(1, 4))
	assert.Equal(t, "#8c5931", h.LevelColor(4, 4))

	// Fewer levels than palette steps still span lightest to darkest.
	assert.Equal(t, "#f4d6b6", h.LevelColor(1, 2))
	assert.Equal(t, "#8c5931", h.LevelColor(2, 2))

	// More levels than palette steps never index past the palette.
	for level := 0; level <= 9; level++ {
		assert.NotEmpty(t, h.LevelColor(level, 9))
	}
	assert.Equal(t, "#8c5931", h.LevelColor(9, 9))
}

func TestParseHexColor(t *testing.T) {
	c, err := parseHexColor("#8c5931")
	require.NoError(t, err)
	assert.Equal(t, color.NRGBA{R: 0x8c, G: 0x59, B: 0x31, A: 0xff}, c)

	c, err = parseHexColor("#abc")
	require.NoError(t, err)
	assert.Equal(t, color.NRGBA{R: 0xaa, G: 0xbb, B: 0xcc, A: 0xff}, c)

	_, err = parseHexColor("#12345")
	assert.Error(t, err)
	_, err = parseHexColor("#gggggg")
	assert.Error(t, err)
}

func TestHeatmapImage(t *testing.T) {
	theme := DefaultTheme().Heatmap
	day := calendar.NewDate(2024, time.March, 15)
	g := testGrid(t, map[calendar.Date]float64{day: 400})

	img, err := HeatmapImage(g, theme)
	require.NoError(t, err)

	layout := newHeatmapLayout(theme, g.Weeks())
	assert.Equal(t, layout.width, img.Bounds().Dx())
	assert.Equal(t, layout.height, img.Bounds().Dy())

	// Background stays transparent.
	_, _, _, a := img.At(0, 0).RGBA()
	assert.Zero(t, a)

	center := func(c calendar.Cell) image.Point {
		r := layout.cellRect(c.Week, c.Weekday)
		return image.Pt((r.Min.X+r.Max.X)/2, (r.Min.Y+r.Max.Y)/2)
	}

	active, ok := g.Lookup(day)
	require.True(t, ok)
	require.Equal(t, 4, active.Level)
	p := center(active)
	assert.Equal(t, color.RGBAModel.Convert(color.NRGBA{R: 0x8c, G: 0x59, B: 0x31, A: 0xff}), img.At(p.X, p.Y))

	quiet, ok := g.Lookup(calendar.NewDate(2024, time.March, 16))
	require.True(t, ok)
	p = center(quiet)
	assert.Equal(t, color.RGBAModel.Convert(color.NRGBA{R: 0xeb, G: 0xed, B: 0xf0, A: 0xff}), img.At(p.X, p.Y))
}

func TestHeatmap_EncodesPNG(t *testing.T) {
	var buf bytes.Buffer
	require.NoError(t, Heatmap(&buf, testGrid(t, nil), DefaultTheme().Heatmap))

	img, err := png.Decode(&buf)
	require.NoError(t, err)
	assert.Positive(t, img.Bounds().Dx())
}

func TestHeatmapImage_NilGrid(t *testing.T) {
	_, err := HeatmapImage(nil, DefaultTheme().Heatmap)
	assert.Error(t, err)
}

func TestLayoutWordCloud(t *testing.T) {
	theme := DefaultTheme().WordCloud
	table := frequency.Table{"go": 12, "rust": 6, "reading": 4, "読書": 3, "history": 2, "poetry": 1, "essays": 1}

	cloud, err := LayoutWordCloud(table.Normalized(), 2025, theme)
	require.NoError(t, err)
	require.Len(t, cloud.Words, len(table))
	assert.Zero(t, cloud.Skipped)
	assert.Equal(t, 2025, cloud.Year)

	assert.Equal(t, "go", cloud.Words[0].Text)
	assert.Equal(t, theme.MaxFontSize, cloud.Words[0].Size)
	assert.Equal(t, 12, cloud.Words[0].Count)
	for i, w := range cloud.Words {
		assert.Equal(t, theme.Colors[i%len(theme.Colors)], w.Color)
		assert.GreaterOrEqual(t, w.Size, theme.MinFontSize)
	}

	// CJK runes are measured one em wide.
	for _, w := range cloud.Words {
		if w.Text == "読書" {
			assert.InDelta(t, 2*w.Size, w.Width, 0.01)
		}
	}
}

func TestLayoutWordCloud_NoOverlap(t *testing.T) {
	theme := DefaultTheme().WordCloud
	table := frequency.Table{}
	for i, w := range []string{"alpha", "beta", "gamma", "delta", "epsilon", "zeta", "eta", "theta", "iota", "kappa"} {
		table[w] = 10 - i
	}

	cloud, err := LayoutWordCloud(table.Normalized(), 2025, theme)
	require.NoError(t, err)

	m, err := newMeasurer()
	require.NoError(t, err)
	defer m.close()

	boxes := make([]box, len(cloud.Words))
	for i, w := range cloud.Words {
		_, ascent, descent, err := m.measure(w.Text, w.Size)
		require.NoError(t, err)
		boxes[i] = box{w.X, w.Y - ascent, w.X + w.Width, w.Y + descent}
		assert.True(t, boxes[i].inside(float64(theme.Width), float64(theme.Height)), w.Text)
	}
	for i := range boxes {
		for j := i + 1; j < len(boxes); j++ {
			assert.False(t, boxes[i].overlaps(boxes[j]), "%s overlaps %s", cloud.Words[i].Text, cloud.Words[j].Text)
		}
	}
}

func TestLayoutWordCloud_Deterministic(t *testing.T) {
	theme := DefaultTheme().WordCloud
	table := frequency.Table{"go": 5, "rust": 3, "zig": 3, "c": 1}

	first, err := LayoutWordCloud(table.Normalized(), 2025, theme)
	require.NoError(t, err)
	second, err := LayoutWordCloud(table.Normalized(), 2025, theme)
	require.NoError(t, err)
	assert.Equal(t, first, second)
}

func TestLayoutWordCloud_TooLargeIsSkipped(t *testing.T) {
	theme := DefaultTheme().WordCloud
	theme.Width, theme.Height = 60, 30
	theme.MinFontSize, theme.MaxFontSize = 20, 20

	cloud, err := LayoutWordCloud(frequency.Table{"unbelievably-long-tag": 1}.Normalized(), 2025, theme)
	require.NoError(t, err)
	assert.Empty(t, cloud.Words)
	assert.Equal(t, 1, cloud.Skipped)
}

func TestLayoutWordCloud_MaxWords(t *testing.T) {
	theme := DefaultTheme().WordCloud
	theme.MaxWords = 2

	cloud, err := LayoutWordCloud(frequency.Table{"a": 3, "b": 2, "c": 1}.Normalized(), 2025, theme)
	require.NoError(t, err)
	assert.Len(t, cloud.Words, 2)
	assert.Equal(t, 1, cloud.Skipped)
}

func TestWordCloudSVG(t *testing.T) {
	theme := DefaultTheme().WordCloud
	cloud := &Cloud{Year: 2025, Width: 100, Height: 50, Words: []Word{
		{Text: "a<b & c", X: 1, Y: 20, Size: 12, Color: "hsl(30, 40%, 50%)"},
	}}

	var buf bytes.Buffer
	require.NoError(t, WordCloudSVG(&buf, cloud, theme))
	out := buf.String()

	assert.True(t, strings.HasPrefix(out, `<svg xmlns="http://www.w3.org/2000/svg"`))
	assert.Contains(t, out, "a&lt;b &amp; c")
	assert.Contains(t, out, `fill="hsl(30, 40%, 50%)"`)
	assert.NotContains(t, out, "rotate")
}

func TestWordCloudSVG_EmptyPlaceholder(t *testing.T) {
	var buf bytes.Buffer
	require.NoError(t, WordCloudSVG(&buf, &Cloud{Year: 2026, Width: 1200, Height: 600}, DefaultTheme().WordCloud))
	assert.Contains(t, buf.String(), "No tags for 2026")
}

func TestPages(t *testing.T) {
	stamp := time.Unix(1717171717, 0)

	var buf bytes.Buffer
	require.NoError(t, HeatmapPage(&buf, "Reading Heatmap", stamp))
	assert.Contains(t, buf.String(), `src="heatmap.png?t=1717171717"`)
	assert.Contains(t, buf.String(), "container.scrollLeft = container.scrollWidth")

	buf.Reset()
	require.NoError(t, WordCloudPage(&buf, "Tags <2025>", stamp))
	assert.Contains(t, buf.String(), `src="word_cloud.svg?t=1717171717"`)
	assert.Contains(t, buf.String(), "Tags &lt;2025&gt;")
}

func TestWriter(t *testing.T) {
	dir := filepath.Join(t.TempDir(), "public")
	stamp := time.Date(2024, time.March, 31, 12, 0, 0, 0, time.UTC)
	w := NewWriter(dir, DefaultTheme(), WithClock(func() time.Time { return stamp }))

	g := testGrid(t, map[calendar.Date]float64{calendar.NewDate(2024, time.March, 30): 90})
	paths, err := w.WriteHeatmap(g)
	require.NoError(t, err)
	assert.Equal(t, []string{
		filepath.Join(dir, HeatmapPNGFile),
		filepath.Join(dir, HeatmapHTMLFile),
		filepath.Join(dir, HeatmapJSONFile),
	}, paths)

	data, err := os.ReadFile(filepath.Join(dir, HeatmapJSONFile))
	require.NoError(t, err)
	var doc struct {
		Start       string           `json:"start"`
		End         string           `json:"end"`
		Cells       []map[string]any `json:"cells"`
		Total       float64          `json:"total"`
		ActiveDays  int              `json:"active_days"`
		GeneratedAt time.Time        `json:"generated_at"`
	}
	require.NoError(t, json.Unmarshal(data, &doc))
	assert.Equal(t, "2024-03-01", doc.Start)
	assert.Equal(t, "2024-03-31", doc.End)
	assert.Len(t, doc.Cells, 31)
	assert.Equal(t, 90.0, doc.Total)
	assert.Equal(t, 1, doc.ActiveDays)
	assert.True(t, stamp.Equal(doc.GeneratedAt))

	cloud, err := LayoutWordCloud(frequency.Table{"go": 1}.Normalized(), 2024, DefaultTheme().WordCloud)
	require.NoError(t, err)
	paths, err = w.WriteWordCloud(cloud)
	require.NoError(t, err)
	assert.Len(t, paths, 3)

	entries, err := os.ReadDir(dir)
	require.NoError(t, err)
	assert.Len(t, entries, 6, "no temporary files left behind")
}

func TestTerminal(t *testing.T) {
	g := testGrid(t, map[calendar.Date]float64{
		calendar.NewDate(2024, time.March, 29): 30,
		calendar.NewDate(2024, time.March, 30): 200,
		calendar.NewDate(2024, time.March, 31): 400,
	})

	var buf bytes.Buffer
	require.NoError(t, Terminal(&buf, g, DefaultTheme().Heatmap))
	out := buf.String()
	assert.Contains(t, out, "2024-03-01 .. 2024-03-31")
	assert.Contains(t, out, "total 630")
	assert.Contains(t, out, "active days 3/31")
	assert.Contains(t, out, "longest streak 3")
	assert.Contains(t, out, "current streak 3")
	assert.Equal(t, 31, strings.Count(out, cellGlyph))
}

func TestWeeklyTotals(t *testing.T) {
	g := testGrid(t, map[calendar.Date]float64{
		calendar.NewDate(2024, time.March, 1):  10, // Friday, first week
		calendar.NewDate(2024, time.March, 3):  5,  // Sunday, first week
		calendar.NewDate(2024, time.March, 4):  7,  // Monday, second week
		calendar.NewDate(2024, time.March, 31): 1,
	})
	totals := WeeklyTotals(g)
	require.Len(t, totals, g.Weeks())
	assert.Equal(t, 15.0, totals[0])
	assert.Equal(t, 7.0, totals[1])
	assert.Equal(t, 1.0, totals[len(totals)-1])
}

func TestMonthHeader(t *testing.T) {
	got := monthHeader([]calendar.MonthStart{{Month: time.March, Week: 0}, {Month: time.April, Week: 2}, {Month: time.December, Week: 6}}, 8)
	assert.Equal(t, "3   4       12", got)
}

func TestTagPreview(t *testing.T) {
	var buf bytes.Buffer
	require.NoError(t, TagPreview(&buf, []frequency.Entry{{Tag: "go", Count: 4}, {Tag: "rust", Count: 2}}, 2025))
	assert.Contains(t, buf.String(), "Top tags 2025")
	assert.Contains(t, buf.String(), "rust")

	buf.Reset()
	require.NoError(t, TagPreview(&buf, nil, 2026))
	assert.Contains(t, buf.String(), "no tags")
}
