// Package availability reconciles a date selection against a studio's
// existing schedule. The check is date-grained on purpose: the user
// picks exact hours separately, and the server performs the
// authoritative hour-level overlap check at submission. A day with
// recorded slots only blocks confirmation until the user has
// acknowledged a slot for it.
package availability

import (
	"storio/internal/calendar"
)

// SlotStatus marks a recorded slot as free or taken.
type SlotStatus string

const (
	SlotFree   SlotStatus = "free"
	SlotBooked SlotStatus = "booked"
)

// Slot is a pre-existing reservation window on a date, independent of
// the in-progress selection.
type Slot struct {
	ID        string
	StartTime string // ISO-8601, as delivered by the schedule service
	EndTime   string
	Status    SlotStatus
}

// Snapshot is the read-only view of a studio's schedule, keyed by
// YYYY-MM-DD. A nil *Snapshot means the fetch has not completed yet;
// every date then counts as free. That optimistic default lets a user
// reach confirm before the snapshot arrives, which the server catches.
type Snapshot struct {
	StudioID int64
	Days     map[string][]Slot
}

// DayStatus classifies one selected date against the snapshot.
type DayStatus string

const (
	// DayFree means no slots are recorded for the date.
	DayFree DayStatus = "free"
	// DayFullyBooked means every recorded slot is booked.
	DayFullyBooked DayStatus = "fully_booked"
	// DayHasSlots means the date has recorded slots with mixed
	// availability; proceeding is still allowed once acknowledged,
	// since the final interval is user-supplied rather than slot-bound.
	DayHasSlots DayStatus = "has_slots"
)

// ClassifyDay returns the status of a single date.
func (s *Snapshot) ClassifyDay(d calendar.Date) DayStatus {
	if s == nil {
		return DayFree
	}
	slots := s.Days[d.Key()]
	if len(slots) == 0 {
		return DayFree
	}
	for _, slot := range slots {
		if slot.Status != SlotBooked {
			return DayHasSlots
		}
	}
	return DayFullyBooked
}

// Classify maps every date of the expanded selection to its status,
// keyed by date key.
func (s *Snapshot) Classify(dates []calendar.Date) map[string]DayStatus {
	out := make(map[string]DayStatus, len(dates))
	for _, d := range dates {
		out[d.Key()] = s.ClassifyDay(d)
	}
	return out
}

// ConfirmAllowed reports whether the confirm action is enabled for the
// expanded selection. Dates with recorded slots block confirmation
// until acknowledged (keys of acked are date keys); the blocking dates
// are returned for user feedback.
func (s *Snapshot) ConfirmAllowed(dates []calendar.Date, acked map[string]bool) (bool, []calendar.Date) {
	if s == nil {
		return true, nil
	}
	var blocked []calendar.Date
	for _, d := range dates {
		if s.ClassifyDay(d) == DayFree {
			continue
		}
		if !acked[d.Key()] {
			blocked = append(blocked, d)
		}
	}
	return len(blocked) == 0, blocked
}
