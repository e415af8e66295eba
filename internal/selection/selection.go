// Package selection implements the booking date and time pickers: the
// single/range date state machine and the check-in/check-out rules.
package selection

import (
	"storio/internal/calendar"
)

// PickMode selects between a single-day and a range booking.
type PickMode string

const (
	PickSingle PickMode = "single"
	PickRange  PickMode = "range"
)

// Selection holds the current date pick. In single mode only Single is
// meaningful; in range mode Start and End are, with Start strictly
// before End after every transition.
type Selection struct {
	Mode   PickMode
	Single calendar.Date
	Start  calendar.Date
	End    calendar.Date
}

// New seeds a single-day selection on the given day.
func New(day calendar.Date) Selection {
	return Selection{Mode: PickSingle, Single: day}
}

// TapDate applies one tap of the calendar. Taps on days strictly before
// today are ignored and return false.
//
// Range mode rules: tapping either endpoint or a day strictly inside
// the range collapses to a fresh one-day span anchored at the tap;
// tapping outside the range extends the nearer endpoint. There is no
// shrink-from-inside operation.
func (s *Selection) TapDate(d, today calendar.Date) bool {
	if d.Before(today) {
		return false
	}

	if s.Mode == PickSingle {
		s.Single = d
		return true
	}

	switch {
	case d.Before(s.Start):
		s.Start = d
	case d.After(s.End):
		s.End = d
	default:
		// Endpoint or interior tap: reset to a minimal span.
		s.Start = d
		s.End = d.AddDays(1)
	}
	return true
}

// SetPickMode switches mode, preserving continuity: entering range mode
// seeds start at the current single date with a one-day span; leaving
// it keeps the range start as the new single date.
func (s *Selection) SetPickMode(mode PickMode) {
	if mode == s.Mode {
		return
	}
	switch mode {
	case PickRange:
		s.Start = s.Single
		s.End = s.Single.AddDays(1)
	case PickSingle:
		s.Single = s.Start
	default:
		return
	}
	s.Mode = mode
}

// StartDate returns the day the booking begins.
func (s Selection) StartDate() calendar.Date {
	if s.Mode == PickRange {
		return s.Start
	}
	return s.Single
}

// EndDate returns the day the booking ends.
func (s Selection) EndDate() calendar.Date {
	if s.Mode == PickRange {
		return s.End
	}
	return s.Single
}

// Dates expands the selection to its inclusive day-by-day list.
func (s Selection) Dates() []calendar.Date {
	if s.Mode == PickSingle {
		return []calendar.Date{s.Single}
	}
	n := calendar.DaysBetween(s.Start, s.End)
	out := make([]calendar.Date, 0, n+1)
	for d := s.Start; !d.After(s.End); d = d.AddDays(1) {
		out = append(out, d)
	}
	return out
}
