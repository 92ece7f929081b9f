package calendar

import (
	"fmt"
	"time"
)

// Cell is one day of the grid.
type Cell struct {
	Date    Date    `json:"date"`
	Week    int     `json:"week"`
	Weekday int     `json:"weekday"`
	Value   float64 `json:"value"`
	Level   int     `json:"level"`
}

// Grid is the laid-out window. Cells hold exactly one entry per date in
// [Start, End], in ascending date order.
type Grid struct {
	Window
	Cells      []Cell    `json:"cells"`
	Levels     int       `json:"levels"`
	Thresholds []float64 `json:"thresholds"`
}

// Build lays values out over w and assigns every cell a level using scheme.
// Dates in values outside w are ignored; dates of w missing from values are zero.
func Build(values map[Date]float64, w Window, scheme Scheme) (*Grid, error) {
	if w.Start.IsZero() || w.End.Before(w.Start) {
		return nil, fmt.Errorf("%w: %s precedes %s", ErrInvalidWindow, w.End, w.Start)
	}
	if scheme == nil {
		return nil, fmt.Errorf("%w: scheme is required", ErrInvalidLevels)
	}
	if err := scheme.Validate(); err != nil {
		return nil, err
	}

	days := w.Days()
	cells := make([]Cell, 0, len(days))
	positive := make([]float64, 0, len(days))
	for _, d := range days {
		v := values[d]
		week, weekday := w.Position(d)
		cells = append(cells, Cell{Date: d, Week: week, Weekday: weekday, Value: v})
		if v > 0 {
			positive = append(positive, v)
		}
	}

	scale := scheme.Scale(positive)
	if len(positive) > 0 {
		for i := range cells {
			if cells[i].Value > 0 {
				cells[i].Level = min(scale.Level(cells[i].Value), scheme.Levels())
			}
		}
	}

	return &Grid{
		Window:     w,
		Cells:      cells,
		Levels:     scheme.Levels(),
		Thresholds: scale.Bounds(),
	}, nil
}

// Weeks returns the number of week columns.
func (g *Grid) Weeks() int {
	if len(g.Cells) == 0 {
		return 0
	}
	return g.Cells[len(g.Cells)-1].Week + 1
}

// Lookup returns the cell for d.
func (g *Grid) Lookup(d Date) (Cell, bool) {
	if !g.Contains(d) {
		return Cell{}, false
	}
	return g.Cells[d.DaysSince(g.Start)], true
}

// MonthStart marks the week column where a month begins.
type MonthStart struct {
	Year  int        `json:"year"`
	Month time.Month `json:"month"`
	Week  int        `json:"week"`
}

// MonthStarts returns the week column of the first day of each month in the grid,
// including the partial month the window starts in.
func (g *Grid) MonthStarts() []MonthStart {
	var out []MonthStart
	for _, c := range g.Cells {
		if len(out) == 0 || c.Date.Day() == 1 {
			out = append(out, MonthStart{Year: c.Date.Year(), Month: c.Date.Month(), Week: c.Week})
		}
	}
	return out
}

// Total returns the sum of all cell values.
func (g *Grid) Total() float64 {
	var sum float64
	for _, c := range g.Cells {
		sum += c.Value
	}
	return sum
}

// ActiveDays returns the number of cells with a positive value.
func (g *Grid) ActiveDays() int {
	n := 0
	for _, c := range g.Cells {
		if c.Value > 0 {
			n++
		}
	}
	return n
}

// MaxValue returns the largest cell value, or 0 for an empty grid.
func (g *Grid) MaxValue() float64 {
	var best float64
	for _, c := range g.Cells {
		best = max(best, c.Value)
	}
	return best
}

// LongestStreak returns the longest run of consecutive active days.
func (g *Grid) LongestStreak() int {
	best, run := 0, 0
	for _, c := range g.Cells {
		if c.Value > 0 {
			run++
			best = max(best, run)
		} else {
			run = 0
		}
	}
	return best
}

// CurrentStreak returns the run of active days ending on End.
// A quiet End does not break a streak that ran through the day before.
func (g *Grid) CurrentStreak() int {
	i := len(g.Cells) - 1
	if i >= 0 && g.Cells[i].Value <= 0 {
		i--
	}
	n := 0
	for ; i >= 0 && g.Cells[i].Value > 0; i-- {
		n++
	}
	return n
}
