// Package session holds per-user booking selection sessions. A session
// is exclusively mutated by its user's discrete events; the store is
// safe for concurrent use across users.
package session

import (
	"sync"
	"time"

	"storio/internal/availability"
	"storio/internal/calendar"
	"storio/internal/clock"
	"storio/internal/draft"
	"storio/internal/selection"
)

// Session is one in-progress booking selection for a studio. The
// current draft is re-derived after every mutation; selection state is
// never persisted, navigating away simply discards the session.
type Session struct {
	mu sync.Mutex

	UserID   int64
	StudioID int64

	Selection selection.Selection
	Picker    selection.TimePicker
	Snapshot  *availability.Snapshot
	Acked     map[string]bool // date key -> slot acknowledged

	Draft draft.BookingDraft

	StartedAt time.Time
	UpdatedAt time.Time

	clk clock.Clock
	loc *time.Location
}

func newSession(userID, studioID int64, clk clock.Clock, loc *time.Location) *Session {
	now := clk.Now()
	s := &Session{
		UserID:    userID,
		StudioID:  studioID,
		Selection: selection.New(calendar.DateOf(now.In(loc))),
		Picker:    selection.NewTimePicker(),
		Acked:     make(map[string]bool),
		StartedAt: now,
		UpdatedAt: now,
		clk:       clk,
		loc:       loc,
	}
	s.Draft = draft.Derive(s.Selection, s.Picker, s.loc)
	return s
}

func (s *Session) touch() {
	s.UpdatedAt = s.clk.Now()
	s.Draft = draft.Derive(s.Selection, s.Picker, s.loc)
}

// TapDate applies one calendar tap. Past dates are ignored and return
// false. Changing the date span invalidates slot acknowledgements for
// days no longer in the span.
func (s *Session) TapDate(d calendar.Date) bool {
	s.mu.Lock()
	defer s.mu.Unlock()

	today := calendar.DateOf(s.clk.Now().In(s.loc))
	if !s.Selection.TapDate(d, today) {
		return false
	}
	s.pruneAckedLocked()
	s.touch()
	return true
}

// SetPickMode switches between single and range selection.
func (s *Session) SetPickMode(mode selection.PickMode) {
	s.mu.Lock()
	defer s.mu.Unlock()

	s.Selection.SetPickMode(mode)
	s.pruneAckedLocked()
	s.touch()
}

// SetCheckIn sets the check-in time, reporting whether check-out was
// auto-advanced to keep the minimum span.
func (s *Session) SetCheckIn(t selection.TimeOfDay) (bool, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	now := s.clk.Now().In(s.loc)
	isToday := s.Selection.StartDate().Equal(calendar.DateOf(now))
	nowTime := selection.TimeOfDay{Hour: now.Hour(), Minute: now.Minute()}
	span := calendar.DaysBetween(s.Selection.StartDate(), s.Selection.EndDate())

	adjusted, err := s.Picker.SetCheckIn(t, isToday, nowTime, span)
	if err != nil {
		return false, err
	}
	s.touch()
	return adjusted, nil
}

// SetCheckOut sets the check-out time. A check-out violating the
// minimum span is rejected without mutation.
func (s *Session) SetCheckOut(t selection.TimeOfDay) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	span := calendar.DaysBetween(s.Selection.StartDate(), s.Selection.EndDate())
	if err := s.Picker.SetCheckOut(t, span); err != nil {
		return err
	}
	s.touch()
	return nil
}

// AttachSnapshot replaces the schedule snapshot. Acknowledgements
// survive a refresh; the snapshot itself is treated as read-only.
func (s *Session) AttachSnapshot(snap *availability.Snapshot) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.Snapshot = snap
}

// AcknowledgeDay records that the user addressed the recorded slots of
// a date in the current span. Returns false for dates outside it.
func (s *Session) AcknowledgeDay(d calendar.Date) bool {
	s.mu.Lock()
	defer s.mu.Unlock()

	inSpan := false
	for _, day := range s.Selection.Dates() {
		if day.Equal(d) {
			inSpan = true
			break
		}
	}
	if !inSpan {
		return false
	}
	s.Acked[d.Key()] = true
	s.UpdatedAt = s.clk.Now()
	return true
}

// Availability classifies every date of the current span.
func (s *Session) Availability() map[string]availability.DayStatus {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.Snapshot.Classify(s.Selection.Dates())
}

// ConfirmAllowed reports whether the confirm action is enabled, with
// the dates still blocking it.
func (s *Session) ConfirmAllowed() (bool, []calendar.Date) {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.Snapshot.ConfirmAllowed(s.Selection.Dates(), s.Acked)
}

// CurrentDraft returns the latest derived draft.
func (s *Session) CurrentDraft() draft.BookingDraft {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.Draft
}

// View returns a consistent copy of the visible session state.
func (s *Session) View() View {
	s.mu.Lock()
	defer s.mu.Unlock()

	ok, blocked := s.Snapshot.ConfirmAllowed(s.Selection.Dates(), s.Acked)
	blockedKeys := make([]string, 0, len(blocked))
	for _, d := range blocked {
		blockedKeys = append(blockedKeys, d.Key())
	}
	return View{
		UserID:         s.UserID,
		StudioID:       s.StudioID,
		Selection:      s.Selection,
		Picker:         s.Picker,
		Days:           s.Snapshot.Classify(s.Selection.Dates()),
		Draft:          s.Draft,
		ConfirmAllowed: ok,
		BlockedDates:   blockedKeys,
	}
}

// View is an immutable snapshot of session state for the API layer.
type View struct {
	UserID         int64
	StudioID       int64
	Selection      selection.Selection
	Picker         selection.TimePicker
	Days           map[string]availability.DayStatus
	Draft          draft.BookingDraft
	ConfirmAllowed bool
	BlockedDates   []string
}

// IsExpired checks if the session outlived the idle timeout.
func (s *Session) IsExpired(timeout time.Duration) bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.clk.Now().Sub(s.UpdatedAt) > timeout
}

func (s *Session) pruneAckedLocked() {
	if len(s.Acked) == 0 {
		return
	}
	keep := make(map[string]bool, len(s.Acked))
	for _, d := range s.Selection.Dates() {
		if s.Acked[d.Key()] {
			keep[d.Key()] = true
		}
	}
	s.Acked = keep
}
