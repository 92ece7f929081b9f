package render

import (
	"bytes"
	"encoding/xml"
	"fmt"
	"io"
	"math"
	"sync"

	"golang.org/x/image/font"
	"golang.org/x/image/font/gofont/goregular"
	"golang.org/x/image/font/opentype"

	"github.com/fyrsmithlabs/activitymap/internal/frequency"
)

// Word is one placed word. X and Y are the left end of the baseline.
type Word struct {
	Text   string  `json:"text"`
	Count  int     `json:"count"`
	Weight float64 `json:"weight"`
	Size   float64 `json:"size"`
	X      float64 `json:"x"`
	Y      float64 `json:"y"`
	Width  float64 `json:"width"`
	Height float64 `json:"height"`
	Color  string  `json:"color"`
}

// Cloud is a laid-out word cloud.
type Cloud struct {
	Year    int    `json:"year"`
	Width   int    `json:"width"`
	Height  int    `json:"height"`
	Words   []Word `json:"words"`
	Skipped int    `json:"skipped"` // words that did not fit
}

// box is an axis-aligned rectangle in canvas coordinates.
type box struct{ x0, y0, x1, y1 float64 }

func (b box) overlaps(o box) bool {
	return b.x0 < o.x1 && o.x0 < b.x1 && b.y0 < o.y1 && o.y0 < b.y1
}

func (b box) inside(w, h float64) bool {
	return b.x0 >= 0 && b.y0 >= 0 && b.x1 <= w && b.y1 <= h
}

var (
	measureFontOnce sync.Once
	measureFont     *opentype.Font
	measureFontErr  error
)

func loadMeasureFont() (*opentype.Font, error) {
	measureFontOnce.Do(func() {
		measureFont, measureFontErr = opentype.Parse(goregular.TTF)
	})
	return measureFont, measureFontErr
}

// measurer sizes words with Go Regular. Runes the font lacks, such as CJK,
// are counted as one em wide, which is how browsers render them.
type measurer struct {
	font  *opentype.Font
	faces map[float64]font.Face
}

func newMeasurer() (*measurer, error) {
	f, err := loadMeasureFont()
	if err != nil {
		return nil, fmt.Errorf("parse measurement font: %w", err)
	}
	return &measurer{font: f, faces: make(map[float64]font.Face)}, nil
}

func (m *measurer) face(size float64) (font.Face, error) {
	if f, ok := m.faces[size]; ok {
		return f, nil
	}
	f, err := opentype.NewFace(m.font, &opentype.FaceOptions{Size: size, DPI: 72, Hinting: font.HintingNone})
	if err != nil {
		return nil, fmt.Errorf("create face: %w", err)
	}
	m.faces[size] = f
	return f, nil
}

// measure returns the advance width, ascent and descent of text at size.
func (m *measurer) measure(text string, size float64) (w, ascent, descent float64, err error) {
	f, err := m.face(size)
	if err != nil {
		return 0, 0, 0, err
	}
	for _, r := range text {
		if adv, ok := f.GlyphAdvance(r); ok && r < 0x2E80 {
			w += float64(adv) / 64
		} else {
			w += size
		}
	}
	metrics := f.Metrics()
	return w, float64(metrics.Ascent) / 64, float64(metrics.Descent) / 64, nil
}

func (m *measurer) close() {
	for _, f := range m.faces {
		_ = f.Close()
	}
}

// LayoutWordCloud places words biggest first on an elliptic spiral out from
// the center. Font size grows linearly with weight between the theme's
// minimum and maximum. A word that does not fit is retried smaller and
// skipped once it would drop below the minimum size. Layout is deterministic.
func LayoutWordCloud(words []frequency.Weighted, year int, theme WordCloudTheme) (*Cloud, error) {
	m, err := newMeasurer()
	if err != nil {
		return nil, err
	}
	defer m.close()

	cloud := &Cloud{Year: year, Width: theme.Width, Height: theme.Height, Words: []Word{}}
	if theme.MaxWords > 0 && len(words) > theme.MaxWords {
		cloud.Skipped = len(words) - theme.MaxWords
		words = words[:theme.MaxWords]
	}

	W, H := float64(theme.Width), float64(theme.Height)
	var placed []box
	misses := 0
	for i, entry := range words {
		if misses >= maxConsecutiveMisses {
			cloud.Skipped += len(words) - i
			break
		}
		size := math.Round(theme.MinFontSize + (theme.MaxFontSize-theme.MinFontSize)*entry.Weight)
		var (
			word Word
			b    box
			ok   bool
		)
		for size >= theme.MinFontSize {
			word, b, ok, err = place(m, entry, size, W, H, theme.Margin, placed)
			if err != nil {
				return nil, err
			}
			if ok {
				break
			}
			size = math.Floor(size * 0.85)
		}
		if !ok {
			cloud.Skipped++
			misses++
			continue
		}
		misses = 0
		word.Color = theme.Colors[i%len(theme.Colors)]
		placed = append(placed, b)
		cloud.Words = append(cloud.Words, word)
	}
	return cloud, nil
}

// maxConsecutiveMisses stops layout once the canvas is effectively full.
const maxConsecutiveMisses = 5

// Spiral parameters in pixels: radius growth per radian and arc length per step.
const (
	spiralSpacing = 3.0
	spiralStep    = 6.0
)

func place(m *measurer, e frequency.Weighted, size, W, H, margin float64, placed []box) (Word, box, bool, error) {
	width, ascent, descent, err := m.measure(e.Tag, size)
	if err != nil {
		return Word{}, box{}, false, err
	}
	height := ascent + descent
	if width+2*margin > W || height+2*margin > H {
		return Word{}, box{}, false, nil
	}

	cx, cy := W/2, H/2
	aspect := W / H
	maxR := math.Hypot(W, H) / 2
	for theta := 0.0; ; {
		r := spiralSpacing * theta
		if r > maxR {
			return Word{}, box{}, false, nil
		}
		x := cx + r*math.Cos(theta)*aspect - width/2
		y := cy + r*math.Sin(theta) - height/2
		b := box{x - margin, y - margin, x + width + margin, y + height + margin}
		if b.inside(W, H) && !collides(b, placed) {
			return Word{
				Text:   e.Tag,
				Count:  e.Count,
				Weight: e.Weight,
				Size:   size,
				X:      round2(x),
				Y:      round2(y + ascent),
				Width:  round2(width),
				Height: round2(height),
			}, b, true, nil
		}
		theta += spiralStep / max(r*aspect, spiralStep)
	}
}

func collides(b box, placed []box) bool {
	for _, p := range placed {
		if b.overlaps(p) {
			return true
		}
	}
	return false
}

func round2(v float64) float64 {
	return math.Round(v*100) / 100
}

// WordCloudSVG writes cloud as an SVG document with unrotated text.
// An empty cloud renders a centered placeholder.
func WordCloudSVG(w io.Writer, cloud *Cloud, theme WordCloudTheme) error {
	var buf bytes.Buffer
	fmt.Fprintf(&buf, `<svg xmlns="http://www.w3.org/2000/svg" width="%d" height="%d" viewBox="0 0 %d %d" font-family="%s">`+"\n",
		cloud.Width, cloud.Height, cloud.Width, cloud.Height, escape(theme.FontFamily))
	fmt.Fprintf(&buf, "<title>%s %d</title>\n", escape(theme.Title), cloud.Year)

	if len(cloud.Words) == 0 {
		fmt.Fprintf(&buf, `<text x="%d" y="%d" font-size="%g" fill="%s" text-anchor="middle">No tags for %d</text>`+"\n",
			cloud.Width/2, cloud.Height/2, theme.MinFontSize*2, escape(theme.Colors[0]), cloud.Year)
	}
	for _, word := range cloud.Words {
		fmt.Fprintf(&buf, `<text x="%g" y="%g" font-size="%g" fill="%s">%s</text>`+"\n",
			word.X, word.Y, word.Size, escape(word.Color), escape(word.Text))
	}
	buf.WriteString("</svg>\n")

	if _, err := w.Write(buf.Bytes()); err != nil {
		return fmt.Errorf("write word cloud svg: %w", err)
	}
	return nil
}

func escape(s string) string {
	var b bytes.Buffer
	_ = xml.EscapeText(&b, []byte(s))
	return b.String()
}
