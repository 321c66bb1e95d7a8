// Package calendar provides calendar-day arithmetic on YYYY-MM-DD strings.
package calendar

import (
	"fmt"
	"time"
)

// Layout is the day format used throughout the store.
const Layout = "2006-01-02"

// MonthLayout is the month format used for monthly rollups.
const MonthLayout = "2006-01"

// Clock supplies the current time.
type Clock interface {
	Now() time.Time
}

// ClockFunc adapts a function to Clock.
type ClockFunc func() time.Time

// Now implements Clock.
func (f ClockFunc) Now() time.Time {
	return f()
}

// System is the wall clock.
var System Clock = ClockFunc(time.Now)

// Fixed returns a clock frozen at t.
func Fixed(t time.Time) Clock {
	return ClockFunc(func() time.Time { return t })
}

// Today returns the local calendar day of the clock.
func Today(c Clock) string {
	if c == nil {
		c = System
	}
	return c.Now().Format(Layout)
}

// Parse parses a day as midnight UTC so day differences are exact.
func Parse(day string) (time.Time, error) {
	t, err := time.ParseInLocation(Layout, day, time.UTC)
	if err != nil {
		return time.Time{}, fmt.Errorf("invalid day %q (expected YYYY-MM-DD)", day)
	}
	return t, nil
}

// Valid reports whether day is a real calendar day.
func Valid(day string) bool {
	_, err := Parse(day)
	return err == nil
}

// Format formats t as a day in its own location.
func Format(t time.Time) string {
	return t.Format(Layout)
}

// AddDays shifts a day by n days. Invalid input is returned unchanged.
func AddDays(day string, n int) string {
	t, err := Parse(day)
	if err != nil {
		return day
	}
	return t.AddDate(0, 0, n).Format(Layout)
}

// DaysBetween returns the number of calendar days from a to b.
func DaysBetween(a, b string) (int, error) {
	ta, err := Parse(a)
	if err != nil {
		return 0, err
	}
	tb, err := Parse(b)
	if err != nil {
		return 0, err
	}
	return int(tb.Sub(ta).Hours() / 24), nil
}

// WeekStart returns the Monday of the week containing day.
func WeekStart(day string) (string, error) {
	t, err := Parse(day)
	if err != nil {
		return "", err
	}
	offset := (int(t.Weekday()) + 6) % 7
	return t.AddDate(0, 0, -offset).Format(Layout), nil
}

// MonthRange returns the first and last day of a YYYY-MM month.
func MonthRange(month string) (first, last string, err error) {
	t, err := time.ParseInLocation(MonthLayout, month, time.UTC)
	if err != nil {
		return "", "", fmt.Errorf("invalid month %q (expected YYYY-MM)", month)
	}
	return t.Format(Layout), t.AddDate(0, 1, -1).Format(Layout), nil
}

// MonthOf returns the YYYY-MM prefix of a day.
func MonthOf(day string) string {
	if len(day) < len(MonthLayout) {
		return day
	}
	return day[:len(MonthLayout)]
}

// Range lists every day from first to last inclusive.
func Range(first, last string) ([]string, error) {
	start, err := Parse(first)
	if err != nil {
		return nil, err
	}
	end, err := Parse(last)
	if err != nil {
		return nil, err
	}
	if end.Before(start) {
		return nil, nil
	}
	days := make([]string, 0, int(end.Sub(start).Hours()/24)+1)
	for d := start; !d.After(end); d = d.AddDate(0, 0, 1) {
		days = append(days, d.Format(Layout))
	}
	return days, nil
}
