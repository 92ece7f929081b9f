package render

import (
	"fmt"
	"image"
	"image/color"
	"image/png"
	"io"
	"strconv"

	"golang.org/x/image/draw"
	"golang.org/x/image/font"
	"golang.org/x/image/font/basicfont"
	"golang.org/x/image/math/fixed"
	"golang.org/x/image/vector"

	"github.com/fyrsmithlabs/activitymap/internal/calendar"
)

// heatmapLayout positions cells and labels in the heatmap image.
type heatmapLayout struct {
	theme  HeatmapTheme
	pitch  int
	labelH int
	width  int
	height int
}

func newHeatmapLayout(theme HeatmapTheme, weeks int) heatmapLayout {
	face := basicfont.Face7x13
	l := heatmapLayout{
		theme:  theme,
		pitch:  theme.Cell + theme.Gap,
		labelH: face.Height * theme.LabelScale,
	}
	l.width = 2*theme.Margin + max(weeks, 1)*l.pitch - theme.Gap
	l.height = 2*theme.Margin + l.labelH + theme.Gap + 7*l.pitch - theme.Gap
	return l
}

func (l heatmapLayout) cellRect(week, weekday int) image.Rectangle {
	x := l.theme.Margin + week*l.pitch
	y := l.theme.Margin + l.labelH + l.theme.Gap + weekday*l.pitch
	return image.Rect(x, y, x+l.theme.Cell, y+l.theme.Cell)
}

func (l heatmapLayout) labelOrigin(week int) image.Point {
	return image.Pt(l.theme.Margin+week*l.pitch, l.theme.Margin)
}

// Heatmap paints g as a PNG with one rounded square per day, week columns
// left to right and the week start on the top row. Month numbers label the
// first week of each month. The background is transparent.
func Heatmap(w io.Writer, g *calendar.Grid, theme HeatmapTheme) error {
	img, err := HeatmapImage(g, theme)
	if err != nil {
		return err
	}
	if err := png.Encode(w, img); err != nil {
		return fmt.Errorf("encode heatmap png: %w", err)
	}
	return nil
}

// HeatmapImage paints g into a new image.
func HeatmapImage(g *calendar.Grid, theme HeatmapTheme) (*image.RGBA, error) {
	if g == nil {
		return nil, fmt.Errorf("render heatmap: nil grid")
	}
	palette := make([]color.NRGBA, g.Levels+1)
	for level := range palette {
		c, err := parseHexColor(theme.LevelColor(level, g.Levels))
		if err != nil {
			return nil, fmt.Errorf("%w: %v", ErrInvalidTheme, err)
		}
		palette[level] = c
	}
	labelColor, err := parseHexColor(theme.LabelColor)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrInvalidTheme, err)
	}

	layout := newHeatmapLayout(theme, g.Weeks())
	img := image.NewRGBA(image.Rect(0, 0, layout.width, layout.height))

	z := vector.NewRasterizer(theme.Cell, theme.Cell)
	for _, c := range g.Cells {
		z.Reset(theme.Cell, theme.Cell)
		roundedSquare(z, float32(theme.Cell), theme.Radius)
		z.Draw(img, layout.cellRect(c.Week, c.Weekday), image.NewUniform(palette[min(c.Level, g.Levels)]), image.Point{})
	}

	for _, m := range g.MonthStarts() {
		drawLabel(img, layout.labelOrigin(m.Week), strconv.Itoa(int(m.Month)), labelColor, theme.LabelScale)
	}
	return img, nil
}

// roundedSquare adds a square of edge size with rounded corners to z.
func roundedSquare(z *vector.Rasterizer, size, radius float32) {
	r := min(max(radius, 0), size/2)
	z.MoveTo(r, 0)
	z.LineTo(size-r, 0)
	z.QuadTo(size, 0, size, r)
	z.LineTo(size, size-r)
	z.QuadTo(size, size, size-r, size)
	z.LineTo(r, size)
	z.QuadTo(0, size, 0, size-r)
	z.LineTo(0, r)
	z.QuadTo(0, 0, r, 0)
	z.ClosePath()
}

// drawLabel renders text with the built-in bitmap face and scales it up so
// labels stay legible next to large cells.
func drawLabel(dst draw.Image, at image.Point, text string, c color.Color, scale int) {
	face := basicfont.Face7x13
	width := font.MeasureString(face, text).Ceil()
	small := image.NewNRGBA(image.Rect(0, 0, width, face.Height))
	d := font.Drawer{
		Dst:  small,
		Src:  image.NewUniform(c),
		Face: face,
		Dot:  fixed.P(0, face.Ascent),
	}
	d.DrawString(text)

	target := image.Rect(at.X, at.Y, at.X+width*scale, at.Y+face.Height*scale)
	draw.NearestNeighbor.Scale(dst, target, small, small.Bounds(), draw.Over, nil)
}
