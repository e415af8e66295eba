package availability

import (
	"testing"
	"time"

	"storio/internal/calendar"
)

func date(d int) calendar.Date { return calendar.NewDate(2024, time.March, d) }

func snapshot() *Snapshot {
	return &Snapshot{
		StudioID: 7,
		Days: map[string][]Slot{
			"2024-03-11": {
				{ID: "a", StartTime: "2024-03-11T10:00:00+03:00", EndTime: "2024-03-11T12:00:00+03:00", Status: SlotBooked},
				{ID: "b", StartTime: "2024-03-11T14:00:00+03:00", EndTime: "2024-03-11T16:00:00+03:00", Status: SlotFree},
			},
			"2024-03-12": {
				{ID: "c", StartTime: "2024-03-12T10:00:00+03:00", EndTime: "2024-03-12T18:00:00+03:00", Status: SlotBooked},
			},
		},
	}
}

func TestClassifyDay(t *testing.T) {
	snap := snapshot()

	tests := []struct {
		name string
		day  calendar.Date
		want DayStatus
	}{
		{"no slots recorded", date(10), DayFree},
		{"mixed slots", date(11), DayHasSlots},
		{"all booked", date(12), DayFullyBooked},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := snap.ClassifyDay(tt.day); got != tt.want {
				t.Errorf("got %s, want %s", got, tt.want)
			}
		})
	}
}

func TestClassifyDayNilSnapshotIsFree(t *testing.T) {
	// Snapshot not loaded yet: optimistic default, every day is free.
	var snap *Snapshot
	if got := snap.ClassifyDay(date(11)); got != DayFree {
		t.Errorf("nil snapshot: got %s, want %s", got, DayFree)
	}
}

func TestClassifyRange(t *testing.T) {
	snap := snapshot()
	got := snap.Classify([]calendar.Date{date(10), date(11), date(12)})

	want := map[string]DayStatus{
		"2024-03-10": DayFree,
		"2024-03-11": DayHasSlots,
		"2024-03-12": DayFullyBooked,
	}
	for k, v := range want {
		if got[k] != v {
			t.Errorf("%s: got %s, want %s", k, got[k], v)
		}
	}
}

func TestConfirmAllowed(t *testing.T) {
	snap := snapshot()
	span := []calendar.Date{date(10), date(11), date(12)}

	ok, blocked := snap.ConfirmAllowed(span, nil)
	if ok {
		t.Fatal("confirm should be blocked while slot days are unacknowledged")
	}
	if len(blocked) != 2 || !blocked[0].Equal(date(11)) || !blocked[1].Equal(date(12)) {
		t.Fatalf("unexpected blocked set: %v", blocked)
	}

	// Acknowledging one of two still blocks.
	ok, blocked = snap.ConfirmAllowed(span, map[string]bool{"2024-03-11": true})
	if ok || len(blocked) != 1 {
		t.Fatalf("partial acknowledgement: ok=%v blocked=%v", ok, blocked)
	}

	// All slot days acknowledged: confirm enabled.
	ok, blocked = snap.ConfirmAllowed(span, map[string]bool{"2024-03-11": true, "2024-03-12": true})
	if !ok || blocked != nil {
		t.Fatalf("full acknowledgement: ok=%v blocked=%v", ok, blocked)
	}
}

func TestConfirmAllowedFreeSpan(t *testing.T) {
	snap := snapshot()
	ok, blocked := snap.ConfirmAllowed([]calendar.Date{date(20), date(21)}, nil)
	if !ok || blocked != nil {
		t.Errorf("free span should confirm: ok=%v blocked=%v", ok, blocked)
	}
}

func TestConfirmAllowedNilSnapshot(t *testing.T) {
	// Not-yet-loaded snapshot defers to the optimistic default.
	var snap *Snapshot
	ok, blocked := snap.ConfirmAllowed([]calendar.Date{date(11)}, nil)
	if !ok || blocked != nil {
		t.Errorf("nil snapshot should confirm: ok=%v blocked=%v", ok, blocked)
	}
}
