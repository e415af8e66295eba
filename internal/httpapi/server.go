// Package httpapi exposes the booking selection engine to the mobile
// UI as a JSON API.
package httpapi

import (
	"context"
	"encoding/json"
	"net/http"
	"time"

	"github.com/rs/zerolog"

	"storio/internal/availability"
	"storio/internal/clock"
	"storio/internal/session"
	"storio/internal/store"
	"storio/internal/studioapi"
)

// ScheduleService fetches schedule snapshots and creates bookings.
type ScheduleService interface {
	GetSchedule(ctx context.Context, studioID int64, fromKey, toKey string) (*availability.Snapshot, error)
	SubmitBooking(ctx context.Context, req studioapi.SubmitRequest) (*studioapi.SubmitResponse, string, error)
}

// History records and lists submitted bookings.
type History interface {
	SaveBooking(ctx context.Context, b *store.Booking) error
	ListBookings(ctx context.Context, userID int64) ([]store.Booking, error)
}

// Server serves the booking session API.
type Server struct {
	sessions *session.Store
	api      ScheduleService
	history  History
	logger   *zerolog.Logger
	clk      clock.Clock
	loc      *time.Location

	maxAdvance time.Duration
}

// NewServer wires the API with its collaborators. history may be nil
// when the local booking log is disabled.
func NewServer(sessions *session.Store, api ScheduleService, history History, maxAdvance time.Duration, clk clock.Clock, loc *time.Location, logger *zerolog.Logger) *Server {
	if clk == nil {
		clk = clock.System()
	}
	if loc == nil {
		loc = time.Local
	}
	return &Server{
		sessions:   sessions,
		api:        api,
		history:    history,
		logger:     logger,
		clk:        clk,
		loc:        loc,
		maxAdvance: maxAdvance,
	}
}

// Routes returns the API mux.
func (s *Server) Routes() *http.ServeMux {
	mux := http.NewServeMux()
	mux.HandleFunc("/api/v1/calendar", s.handleCalendar)
	mux.HandleFunc("/api/v1/session", s.handleSessionView)
	mux.HandleFunc("/api/v1/session/start", s.handleSessionStart)
	mux.HandleFunc("/api/v1/session/pick-mode", s.handlePickMode)
	mux.HandleFunc("/api/v1/session/tap-date", s.handleTapDate)
	mux.HandleFunc("/api/v1/session/check-in", s.handleCheckIn)
	mux.HandleFunc("/api/v1/session/check-out", s.handleCheckOut)
	mux.HandleFunc("/api/v1/session/acknowledge", s.handleAcknowledge)
	mux.HandleFunc("/api/v1/session/confirm", s.handleConfirm)
	mux.HandleFunc("/api/v1/bookings", s.handleBookings)
	mux.HandleFunc("/api/v1/bookings/export", s.handleBookingsExport)
	return mux
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(v)
}

func writeError(w http.ResponseWriter, status int, msg string) {
	writeJSON(w, status, map[string]string{"error": msg})
}

func decodeJSON(w http.ResponseWriter, r *http.Request, v any) bool {
	decoder := json.NewDecoder(r.Body)
	decoder.DisallowUnknownFields()
	if err := decoder.Decode(v); err != nil {
		writeError(w, http.StatusBadRequest, "invalid JSON body")
		return false
	}
	return true
}
