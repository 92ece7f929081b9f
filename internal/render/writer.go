package render

import (
	"bufio"
	"encoding/json"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"time"

	"github.com/fyrsmithlabs/activitymap/internal/calendar"
)

// HeatmapDocument is the JSON model written next to the heatmap image.
type HeatmapDocument struct {
	*calendar.Grid
	Total         float64   `json:"total"`
	ActiveDays    int       `json:"active_days"`
	LongestStreak int       `json:"longest_streak"`
	CurrentStreak int       `json:"current_streak"`
	GeneratedAt   time.Time `json:"generated_at"`
}

// WordCloudDocument is the JSON model written next to the word cloud.
type WordCloudDocument struct {
	*Cloud
	GeneratedAt time.Time `json:"generated_at"`
}

// Writer writes artifacts into an output directory. Each file is written to
// a temporary name first and renamed into place, so readers never observe a
// partial artifact.
type Writer struct {
	dir   string
	theme Theme
	now   func() time.Time
}

// WriterOption configures a Writer.
type WriterOption func(*Writer)

// WithClock sets the time used for cache-busting stamps and generated_at.
func WithClock(now func() time.Time) WriterOption {
	return func(w *Writer) { w.now = now }
}

// NewWriter creates a Writer for dir.
func NewWriter(dir string, theme Theme, opts ...WriterOption) *Writer {
	w := &Writer{dir: dir, theme: theme, now: time.Now}
	for _, opt := range opts {
		opt(w)
	}
	return w
}

// Dir returns the output directory.
func (w *Writer) Dir() string { return w.dir }

// Theme returns the theme artifacts are drawn with.
func (w *Writer) Theme() Theme { return w.theme }

// WriteHeatmap writes heatmap.png, heatmap.html and heatmap.json and returns
// their paths.
func (w *Writer) WriteHeatmap(g *calendar.Grid) ([]string, error) {
	now := w.now()
	doc := HeatmapDocument{
		Grid:          g,
		Total:         g.Total(),
		ActiveDays:    g.ActiveDays(),
		LongestStreak: g.LongestStreak(),
		CurrentStreak: g.CurrentStreak(),
		GeneratedAt:   now.UTC(),
	}
	return w.writeAll([]artifact{
		{HeatmapPNGFile, func(out io.Writer) error { return Heatmap(out, g, w.theme.Heatmap) }},
		{HeatmapHTMLFile, func(out io.Writer) error { return HeatmapPage(out, w.theme.Heatmap.Title, now) }},
		{HeatmapJSONFile, func(out io.Writer) error { return writeJSON(out, doc) }},
	})
}

// WriteWordCloud writes word_cloud.svg, word_cloud.html and word_cloud.json
// and returns their paths.
func (w *Writer) WriteWordCloud(cloud *Cloud) ([]string, error) {
	now := w.now()
	doc := WordCloudDocument{Cloud: cloud, GeneratedAt: now.UTC()}
	return w.writeAll([]artifact{
		{WordCloudSVGFile, func(out io.Writer) error { return WordCloudSVG(out, cloud, w.theme.WordCloud) }},
		{WordCloudHTMLFile, func(out io.Writer) error { return WordCloudPage(out, w.theme.WordCloud.Title, now) }},
		{WordCloudJSONFile, func(out io.Writer) error { return writeJSON(out, doc) }},
	})
}

type artifact struct {
	name  string
	write func(io.Writer) error
}

func (w *Writer) writeAll(artifacts []artifact) ([]string, error) {
	if err := os.MkdirAll(w.dir, 0o755); err != nil {
		return nil, fmt.Errorf("create output directory: %w", err)
	}
	paths := make([]string, 0, len(artifacts))
	for _, a := range artifacts {
		path := filepath.Join(w.dir, a.name)
		if err := writeFileAtomic(path, a.write); err != nil {
			return paths, err
		}
		paths = append(paths, path)
	}
	return paths, nil
}

func writeFileAtomic(path string, write func(io.Writer) error) (err error) {
	tmp, err := os.CreateTemp(filepath.Dir(path), "."+filepath.Base(path)+".*")
	if err != nil {
		return fmt.Errorf("create %s: %w", path, err)
	}
	defer func() {
		if err != nil {
			_ = tmp.Close()
			_ = os.Remove(tmp.Name())
		}
	}()

	buf := bufio.NewWriter(tmp)
	if err = write(buf); err != nil {
		return err
	}
	if err = buf.Flush(); err != nil {
		return fmt.Errorf("write %s: %w", path, err)
	}
	if err = tmp.Chmod(0o644); err != nil {
		return fmt.Errorf("chmod %s: %w", path, err)
	}
	if err = tmp.Close(); err != nil {
		return fmt.Errorf("close %s: %w", path, err)
	}
	if err = os.Rename(tmp.Name(), path); err != nil {
		return fmt.Errorf("rename %s: %w", path, err)
	}
	return nil
}

func writeJSON(w io.Writer, v any) error {
	enc := json.NewEncoder(w)
	enc.SetIndent("", "  ")
	if err := enc.Encode(v); err != nil {
		return fmt.Errorf("encode json: %w", err)
	}
	return nil
}
