// Package calendar provides date-only values and the month grid used by
// the booking date picker.
package calendar

import (
	"fmt"
	"time"
)

// Date is a calendar day without a time component. Comparisons are by
// calendar day only; the zero value is invalid.
type Date struct {
	Year  int
	Month time.Month
	Day   int
}

// NewDate normalizes the given components through time.Date, so
// out-of-range values (month 0, day 32) roll over instead of producing
// an invalid date.
func NewDate(year int, month time.Month, day int) Date {
	t := time.Date(year, month, day, 0, 0, 0, 0, time.UTC)
	return Date{Year: t.Year(), Month: t.Month(), Day: t.Day()}
}

// DateOf truncates t to its calendar day in t's location.
func DateOf(t time.Time) Date {
	return Date{Year: t.Year(), Month: t.Month(), Day: t.Day()}
}

// ParseDate parses a YYYY-MM-DD key.
func ParseDate(s string) (Date, error) {
	t, err := time.Parse("2006-01-02", s)
	if err != nil {
		return Date{}, fmt.Errorf("parse date %q: %w", s, err)
	}
	return DateOf(t), nil
}

// Key returns the YYYY-MM-DD form used to index schedule snapshots.
func (d Date) Key() string {
	return fmt.Sprintf("%04d-%02d-%02d", d.Year, int(d.Month), d.Day)
}

func (d Date) String() string { return d.Key() }

// Time returns local midnight of the day in loc.
func (d Date) Time(loc *time.Location) time.Time {
	if loc == nil {
		loc = time.Local
	}
	return time.Date(d.Year, d.Month, d.Day, 0, 0, 0, 0, loc)
}

// At combines the day with a wall-clock time in loc.
func (d Date) At(hour, minute int, loc *time.Location) time.Time {
	if loc == nil {
		loc = time.Local
	}
	return time.Date(d.Year, d.Month, d.Day, hour, minute, 0, 0, loc)
}

func (d Date) Equal(o Date) bool {
	return d.Year == o.Year && d.Month == o.Month && d.Day == o.Day
}

func (d Date) Before(o Date) bool {
	if d.Year != o.Year {
		return d.Year < o.Year
	}
	if d.Month != o.Month {
		return d.Month < o.Month
	}
	return d.Day < o.Day
}

func (d Date) After(o Date) bool { return o.Before(d) }

// AddDays returns the day n days later (earlier for negative n).
func (d Date) AddDays(n int) Date {
	return NewDate(d.Year, d.Month, d.Day+n)
}

// DaysBetween returns b - a in whole days. UTC midnights sidestep DST.
func DaysBetween(a, b Date) int {
	ta := time.Date(a.Year, a.Month, a.Day, 0, 0, 0, 0, time.UTC)
	tb := time.Date(b.Year, b.Month, b.Day, 0, 0, 0, 0, time.UTC)
	return int(tb.Sub(ta) / (24 * time.Hour))
}

// Cell is one slot of a month grid: either a day or a nil leading blank.
type Cell *Date

// MonthGrid returns the cells of a month for a Monday-first week:
// leading nil padding up to the weekday of day 1, then one cell per
// day. Padding is (weekday+6)%7, which maps a Sunday start to six
// blanks. Out-of-range months roll over, so callers may iterate with a
// raw month offset.
func MonthGrid(year int, month time.Month) []Cell {
	first := time.Date(year, month, 1, 0, 0, 0, 0, time.UTC)
	padding := (int(first.Weekday()) + 6) % 7
	days := daysIn(first.Year(), first.Month())

	cells := make([]Cell, 0, padding+days)
	for i := 0; i < padding; i++ {
		cells = append(cells, nil)
	}
	for day := 1; day <= days; day++ {
		d := Date{Year: first.Year(), Month: first.Month(), Day: day}
		cells = append(cells, &d)
	}
	return cells
}

// MonthAt resolves base plus a month offset to a normalized (year,
// month) pair, e.g. (2024, December, 2) -> (2025, February).
func MonthAt(year int, month time.Month, offset int) (int, time.Month) {
	t := time.Date(year, time.Month(int(month)+offset), 1, 0, 0, 0, 0, time.UTC)
	return t.Year(), t.Month()
}

func daysIn(year int, m time.Month) int {
	switch m {
	case time.February:
		if (year%4 == 0 && year%100 != 0) || year%400 == 0 {
			return 29
		}
		return 28
	case time.April, time.June, time.September, time.November:
		return 30
	default:
		return 31
	}
}
