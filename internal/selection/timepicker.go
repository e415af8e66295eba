package selection

import (
	"errors"
	"fmt"
)

// MinBookingHours is the minimum billable booking length. Enforced at
// the picker boundary so invalid drafts never reach the server.
const MinBookingHours = 4

var (
	// ErrInvalidTime reports an hour or minute outside its range.
	ErrInvalidTime = errors.New("invalid time of day")
	// ErrCheckOutTooEarly reports a check-out closer than the minimum
	// booking length to check-in. The caller surfaces it to the user;
	// state is left untouched.
	ErrCheckOutTooEarly = fmt.Errorf("check-out must be at least %dh after check-in", MinBookingHours)
)

// TimeOfDay is a wall-clock time. The UI offers 5-minute steps but any
// valid minute is accepted.
type TimeOfDay struct {
	Hour   int `json:"hour"`
	Minute int `json:"minute"`
}

func (t TimeOfDay) valid() bool {
	return t.Hour >= 0 && t.Hour <= 23 && t.Minute >= 0 && t.Minute <= 59
}

func (t TimeOfDay) minutesOfDay() int { return t.Hour*60 + t.Minute }

// Before reports whether t is earlier in the day than o.
func (t TimeOfDay) Before(o TimeOfDay) bool {
	return t.minutesOfDay() < o.minutesOfDay()
}

func (t TimeOfDay) String() string {
	return fmt.Sprintf("%02d:%02d", t.Hour, t.Minute)
}

func fromMinutes(m int) TimeOfDay {
	return TimeOfDay{Hour: m / 60, Minute: m % 60}
}

// TimePicker holds the chosen check-in and check-out times. The
// minimum-span rule compares resolved instants, so spanDays is the
// whole days between the selected start and end date (zero for a
// single-day booking).
//
// The two operations are deliberately asymmetric: SetCheckIn clamps
// and cascades, SetCheckOut rejects. That mirrors the product behavior
// and must not be unified.
type TimePicker struct {
	CheckIn  TimeOfDay
	CheckOut TimeOfDay
}

// NewTimePicker returns the default 10:00 check-in with the minimum
// four-hour span.
func NewTimePicker() TimePicker {
	return TimePicker{
		CheckIn:  TimeOfDay{Hour: 10},
		CheckOut: TimeOfDay{Hour: 10 + MinBookingHours},
	}
}

// gapMinutes is the resolved check-in to check-out distance in minutes
// given the day span.
func (p TimePicker) gapMinutes(spanDays int) int {
	return spanDays*24*60 + p.CheckOut.minutesOfDay() - p.CheckIn.minutesOfDay()
}

// SetCheckIn sets the check-in time. When the selected start date is
// today, hours before now+1h are clamped up to that minimum. If the
// stored check-out then falls inside the minimum span it is
// auto-advanced; the returned flag reports that cascade, since it
// changes a value the user did not directly touch.
func (p *TimePicker) SetCheckIn(t TimeOfDay, isToday bool, now TimeOfDay, spanDays int) (checkOutAdjusted bool, err error) {
	if !t.valid() {
		return false, ErrInvalidTime
	}

	if isToday && t.Hour < now.Hour+1 {
		t.Hour = now.Hour + 1
		if t.Hour > 23 {
			t.Hour = 23
		}
	}

	p.CheckIn = t
	if p.gapMinutes(spanDays) < MinBookingHours*60 {
		// Late same-day check-ins saturate at 23:55 instead of rolling
		// the check-out past midnight.
		m := p.CheckIn.minutesOfDay() + MinBookingHours*60 - spanDays*24*60
		if max := 23*60 + 55; m > max {
			m = max
		}
		if m > p.CheckOut.minutesOfDay() {
			p.CheckOut = fromMinutes(m)
			return true, nil
		}
	}
	return false, nil
}

// SetCheckOut sets the check-out time. Unlike check-in there is no
// auto-clamp: a check-out that would make the booking shorter than the
// minimum span is rejected without mutation.
func (p *TimePicker) SetCheckOut(t TimeOfDay, spanDays int) error {
	if !t.valid() {
		return ErrInvalidTime
	}
	candidate := TimePicker{CheckIn: p.CheckIn, CheckOut: t}
	if candidate.gapMinutes(spanDays) < MinBookingHours*60 {
		return ErrCheckOutTooEarly
	}
	p.CheckOut = t
	return nil
}
