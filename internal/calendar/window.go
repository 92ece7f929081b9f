package calendar

import (
	"errors"
	"fmt"
	"time"
)

// ErrInvalidWindow is returned for a window that covers no days.
var ErrInvalidWindow = errors.New("invalid calendar window")

// Window is the contiguous span of dates a grid covers.
//
// Start..End is inclusive. Origin is Start rounded back to WeekStart and anchors
// week columns so that every column begins on the same weekday.
type Window struct {
	Start     Date         `json:"start"`
	End       Date         `json:"end"`
	Origin    Date         `json:"origin"`
	WeekStart time.Weekday `json:"week_start"`
}

// NewWindow returns the window of lengthDays days ending on end.
func NewWindow(end Date, lengthDays int, weekStart time.Weekday) (Window, error) {
	if lengthDays <= 0 {
		return Window{}, fmt.Errorf("%w: length must be positive, got %d days", ErrInvalidWindow, lengthDays)
	}
	if end.IsZero() {
		return Window{}, fmt.Errorf("%w: end date is required", ErrInvalidWindow)
	}
	if weekStart < time.Sunday || weekStart > time.Saturday {
		return Window{}, fmt.Errorf("%w: week start %d out of range", ErrInvalidWindow, weekStart)
	}
	start := end.AddDays(-(lengthDays - 1))
	return Window{
		Start:     start,
		End:       end,
		Origin:    StartOfWeek(start, weekStart),
		WeekStart: weekStart,
	}, nil
}

// YearToDate returns the window from January 1 of end's year through end.
func YearToDate(end Date, weekStart time.Weekday) (Window, error) {
	jan1 := NewDate(end.Year(), time.January, 1)
	return NewWindow(end, end.DaysSince(jan1)+1, weekStart)
}

// Len returns the number of days in the window.
func (w Window) Len() int {
	return w.End.DaysSince(w.Start) + 1
}

// Contains reports whether d falls inside the window.
func (w Window) Contains(d Date) bool {
	return !d.Before(w.Start) && !d.After(w.End)
}

// Position returns the week column and weekday row of d relative to Origin.
func (w Window) Position(d Date) (week, weekday int) {
	offset := d.DaysSince(w.Origin)
	return offset / 7, offset % 7
}

// Days returns every date in the window in ascending order.
func (w Window) Days() []Date {
	days := make([]Date, 0, w.Len())
	for d := w.Start; !d.After(w.End); d = d.AddDays(1) {
		days = append(days, d)
	}
	return days
}
