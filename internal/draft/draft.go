// Package draft derives the billable booking interval from the current
// date and time selection.
package draft

import (
	"time"

	"storio/internal/calendar"
	"storio/internal/selection"
)

// BookingDraft is the derived submission payload seed. It is a pure
// value: recomputed from scratch on every selection change and replaced
// rather than mutated.
type BookingDraft struct {
	StartInstant  time.Time `json:"start_instant"`
	EndInstant    time.Time `json:"end_instant"`
	BillableHours float64   `json:"billable_hours"`
	BillableDays  int       `json:"billable_days"`
}

// Derive combines the date selection with the check-in/check-out times.
//
// Single-day bookings are floored at the minimum billable length; a
// multi-day span carries no such floor, only a clamp at zero. Billable
// days count both endpoints inclusively.
func Derive(sel selection.Selection, picker selection.TimePicker, loc *time.Location) BookingDraft {
	start := sel.StartDate().At(picker.CheckIn.Hour, picker.CheckIn.Minute, loc)
	end := sel.EndDate().At(picker.CheckOut.Hour, picker.CheckOut.Minute, loc)

	hours := end.Sub(start).Hours()
	days := 1
	if sel.Mode == selection.PickRange {
		if hours < 0 {
			hours = 0
		}
		days = calendar.DaysBetween(sel.Start, sel.End) + 1
	} else if hours < selection.MinBookingHours {
		hours = selection.MinBookingHours
	}

	return BookingDraft{
		StartInstant:  start,
		EndInstant:    end,
		BillableHours: hours,
		BillableDays:  days,
	}
}
