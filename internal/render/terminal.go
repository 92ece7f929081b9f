package render

import (
	"fmt"
	"io"
	"strconv"
	"strings"

	"github.com/NimbleMarkets/ntcharts/sparkline"
	"github.com/charmbracelet/lipgloss"

	"github.com/fyrsmithlabs/activitymap/internal/calendar"
	"github.com/fyrsmithlabs/activitymap/internal/frequency"
)

const (
	cellGlyph       = "■"
	sparklineHeight = 3
)

var (
	titleStyle = lipgloss.NewStyle().
			Bold(true).
			Foreground(lipgloss.Color("#bf7e44"))

	dimStyle = lipgloss.NewStyle().
			Foreground(lipgloss.Color("245"))

	containerStyle = lipgloss.NewStyle().
			Border(lipgloss.RoundedBorder()).
			BorderForeground(lipgloss.Color("238")).
			Padding(0, 1)

	sparklineStyle = lipgloss.NewStyle().
			Foreground(lipgloss.Color("#d9a773"))
)

// Terminal writes a colored preview of g: the grid, month numbers above it,
// a sparkline of weekly totals and streak statistics.
func Terminal(w io.Writer, g *calendar.Grid, theme HeatmapTheme) error {
	weeks := g.Weeks()
	levels := make([][]int, 7)
	for row := range levels {
		levels[row] = make([]int, weeks)
		for col := range levels[row] {
			levels[row][col] = -1
		}
	}
	for _, c := range g.Cells {
		levels[c.Weekday][c.Week] = c.Level
	}

	styles := make([]lipgloss.Style, g.Levels+1)
	for level := range styles {
		styles[level] = lipgloss.NewStyle().Foreground(lipgloss.Color(theme.LevelColor(level, g.Levels)))
	}

	var b strings.Builder
	b.WriteString(titleStyle.Render(fmt.Sprintf("%s  %s .. %s", theme.Title, g.Start, g.End)))
	b.WriteString("\n\n")
	b.WriteString(dimStyle.Render(monthHeader(g.MonthStarts(), weeks)))
	b.WriteString("\n")
	for _, row := range levels {
		for _, level := range row {
			if level < 0 {
				b.WriteString("  ")
				continue
			}
			b.WriteString(styles[min(level, g.Levels)].Render(cellGlyph))
			b.WriteString(" ")
		}
		b.WriteString("\n")
	}
	b.WriteString("\n")
	b.WriteString(weeklySparkline(g, min(max(weeks, 1)*2, 120)))
	b.WriteString("\n")
	b.WriteString(dimStyle.Render(fmt.Sprintf("total %s · active days %d/%d · longest streak %d · current streak %d",
		strconv.FormatFloat(g.Total(), 'f', -1, 64), g.ActiveDays(), len(g.Cells), g.LongestStreak(), g.CurrentStreak())))

	if _, err := fmt.Fprintln(w, containerStyle.Render(b.String())); err != nil {
		return fmt.Errorf("write terminal preview: %w", err)
	}
	return nil
}

// monthHeader places month numbers over the first week of each month. Each
// week column is two characters wide.
func monthHeader(starts []calendar.MonthStart, weeks int) string {
	line := []rune(strings.Repeat(" ", weeks*2))
	for _, m := range starts {
		label := strconv.Itoa(int(m.Month))
		for i, r := range label {
			if pos := m.Week*2 + i; pos < len(line) {
				line[pos] = r
			}
		}
	}
	return strings.TrimRight(string(line), " ")
}

// WeeklyTotals sums cell values per week column.
func WeeklyTotals(g *calendar.Grid) []float64 {
	totals := make([]float64, g.Weeks())
	for _, c := range g.Cells {
		totals[c.Week] += c.Value
	}
	return totals
}

func weeklySparkline(g *calendar.Grid, width int) string {
	totals := WeeklyTotals(g)
	if g.ActiveDays() == 0 {
		return dimStyle.Render("no activity")
	}
	spark := sparkline.New(width, sparklineHeight)
	for _, v := range totals {
		spark.Push(v)
	}
	spark.Draw()
	return sparklineStyle.Render(spark.View())
}

// TagPreview writes the top tags as a bar list.
func TagPreview(w io.Writer, entries []frequency.Entry, year int) error {
	var b strings.Builder
	b.WriteString(titleStyle.Render(fmt.Sprintf("Top tags %d", year)))
	b.WriteString("\n")
	if len(entries) == 0 {
		b.WriteString(dimStyle.Render("no tags"))
	}
	maxCount := 0
	width := 0
	for _, e := range entries {
		maxCount = max(maxCount, e.Count)
		width = max(width, lipgloss.Width(e.Tag))
	}
	for _, e := range entries {
		bar := strings.Repeat("█", max(1, e.Count*30/max(maxCount, 1)))
		pad := strings.Repeat(" ", width-lipgloss.Width(e.Tag))
		fmt.Fprintf(&b, "\n%s%s %s %d", e.Tag, pad, sparklineStyle.Render(bar), e.Count)
	}
	if _, err := fmt.Fprintln(w, containerStyle.Render(b.String())); err != nil {
		return fmt.Errorf("write tag preview: %w", err)
	}
	return nil
}
