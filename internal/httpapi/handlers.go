package httpapi

import (
	"errors"
	"fmt"
	"net/http"
	"strconv"
	"time"

	"storio/internal/availability"
	"storio/internal/calendar"
	"storio/internal/draft"
	"storio/internal/metrics"
	"storio/internal/selection"
	"storio/internal/session"
	"storio/internal/store"
	"storio/internal/studioapi"
)

// sessionState is the view of a booking session returned by every
// mutating endpoint, so the UI can re-render from one payload.
type sessionState struct {
	UserID   int64  `json:"user_id"`
	StudioID int64  `json:"studio_id"`
	Mode     string `json:"mode"`

	Date  string `json:"date,omitempty"`  // single mode
	Start string `json:"start,omitempty"` // range mode
	End   string `json:"end,omitempty"`

	CheckIn  selection.TimeOfDay `json:"check_in"`
	CheckOut selection.TimeOfDay `json:"check_out"`

	Days map[string]availability.DayStatus `json:"days"`

	Draft          draftState `json:"draft"`
	ConfirmAllowed bool       `json:"confirm_allowed"`
	BlockedDates   []string   `json:"blocked_dates,omitempty"`
}

type draftState struct {
	StartTime     string  `json:"start_time"` // ISO-8601
	EndTime       string  `json:"end_time"`
	BillableHours float64 `json:"billable_hours"`
	BillableDays  int     `json:"billable_days"`
}

func toDraftState(d draft.BookingDraft) draftState {
	return draftState{
		StartTime:     d.StartInstant.Format(time.RFC3339),
		EndTime:       d.EndInstant.Format(time.RFC3339),
		BillableHours: d.BillableHours,
		BillableDays:  d.BillableDays,
	}
}

func toSessionState(v session.View) sessionState {
	out := sessionState{
		UserID:         v.UserID,
		StudioID:       v.StudioID,
		Mode:           string(v.Selection.Mode),
		CheckIn:        v.Picker.CheckIn,
		CheckOut:       v.Picker.CheckOut,
		Days:           v.Days,
		Draft:          toDraftState(v.Draft),
		ConfirmAllowed: v.ConfirmAllowed,
		BlockedDates:   v.BlockedDates,
	}
	if v.Selection.Mode == selection.PickRange {
		out.Start = v.Selection.Start.Key()
		out.End = v.Selection.End.Key()
	} else {
		out.Date = v.Selection.Single.Key()
	}
	return out
}

// handleCalendar returns the month grid for rendering.
// GET /api/v1/calendar?year=2024&month=3
func (s *Server) handleCalendar(w http.ResponseWriter, r *http.Request) {
	metrics.IncHTTP("calendar")

	if r.Method != http.MethodGet {
		writeError(w, http.StatusMethodNotAllowed, "method not allowed")
		return
	}

	year, err := strconv.Atoi(r.URL.Query().Get("year"))
	if err != nil {
		writeError(w, http.StatusBadRequest, "invalid year")
		return
	}
	month, err := strconv.Atoi(r.URL.Query().Get("month"))
	if err != nil {
		writeError(w, http.StatusBadRequest, "invalid month")
		return
	}

	cells := calendar.MonthGrid(year, time.Month(month))
	out := make([]*string, 0, len(cells))
	for _, c := range cells {
		if c == nil {
			out = append(out, nil)
			continue
		}
		key := (*c).Key()
		out = append(out, &key)
	}
	writeJSON(w, http.StatusOK, map[string]any{"cells": out})
}

type startRequest struct {
	UserID   int64 `json:"user_id"`
	StudioID int64 `json:"studio_id"`
}

// handleSessionStart creates a fresh selection session and fetches the
// studio's schedule snapshot. A failed fetch is not fatal: the session
// starts with the optimistic all-free default and the server remains
// the authority at submission.
func (s *Server) handleSessionStart(w http.ResponseWriter, r *http.Request) {
	metrics.IncHTTP("session_start")

	if r.Method != http.MethodPost {
		writeError(w, http.StatusMethodNotAllowed, "method not allowed; use POST")
		return
	}
	var req startRequest
	if !decodeJSON(w, r, &req) {
		return
	}
	if req.UserID == 0 || req.StudioID == 0 {
		writeError(w, http.StatusBadRequest, "user_id and studio_id are required")
		return
	}

	sess := s.sessions.Start(req.UserID, req.StudioID)

	today := calendar.DateOf(s.clk.Now().In(s.loc))
	horizon := today.AddDays(int(s.maxAdvance / (24 * time.Hour)))
	snap, err := s.api.GetSchedule(r.Context(), req.StudioID, today.Key(), horizon.Key())
	if err != nil {
		s.logger.Warn().Err(err).Int64("studio_id", req.StudioID).Msg("schedule fetch failed, starting without snapshot")
	} else {
		sess.AttachSnapshot(snap)
	}

	writeJSON(w, http.StatusOK, toSessionState(sess.View()))
}

// handleSessionView returns the current session state.
// GET /api/v1/session?user_id=42
func (s *Server) handleSessionView(w http.ResponseWriter, r *http.Request) {
	metrics.IncHTTP("session_view")

	if r.Method != http.MethodGet {
		writeError(w, http.StatusMethodNotAllowed, "method not allowed")
		return
	}
	sess, ok := s.sessionFromQuery(w, r)
	if !ok {
		return
	}
	writeJSON(w, http.StatusOK, toSessionState(sess.View()))
}

type pickModeRequest struct {
	UserID int64  `json:"user_id"`
	Mode   string `json:"mode"`
}

func (s *Server) handlePickMode(w http.ResponseWriter, r *http.Request) {
	metrics.IncHTTP("pick_mode")

	sess, req := s.sessionFromBody(w, r, &pickModeRequest{})
	if sess == nil {
		return
	}
	mode := selection.PickMode(req.(*pickModeRequest).Mode)
	if mode != selection.PickSingle && mode != selection.PickRange {
		writeError(w, http.StatusBadRequest, "mode must be single or range")
		return
	}
	sess.SetPickMode(mode)
	metrics.IncDraftDerived()
	writeJSON(w, http.StatusOK, toSessionState(sess.View()))
}

type tapDateRequest struct {
	UserID int64  `json:"user_id"`
	Date   string `json:"date"` // YYYY-MM-DD
}

func (s *Server) handleTapDate(w http.ResponseWriter, r *http.Request) {
	metrics.IncHTTP("tap_date")

	sess, req := s.sessionFromBody(w, r, &tapDateRequest{})
	if sess == nil {
		return
	}
	d, err := calendar.ParseDate(req.(*tapDateRequest).Date)
	if err != nil {
		writeError(w, http.StatusBadRequest, "invalid date; expected YYYY-MM-DD")
		return
	}

	// A tap on a past date is a silent no-op, same as the disabled
	// cell in the UI; the unchanged state is still returned.
	if sess.TapDate(d) {
		metrics.IncDraftDerived()
	}
	writeJSON(w, http.StatusOK, toSessionState(sess.View()))
}

type timeRequest struct {
	UserID int64 `json:"user_id"`
	Hour   int   `json:"hour"`
	Minute int   `json:"minute"`
}

func (s *Server) handleCheckIn(w http.ResponseWriter, r *http.Request) {
	metrics.IncHTTP("check_in")

	sess, req := s.sessionFromBody(w, r, &timeRequest{})
	if sess == nil {
		return
	}
	tr := req.(*timeRequest)

	adjusted, err := sess.SetCheckIn(selection.TimeOfDay{Hour: tr.Hour, Minute: tr.Minute})
	if err != nil {
		writeError(w, http.StatusBadRequest, err.Error())
		return
	}
	metrics.IncDraftDerived()

	resp := struct {
		sessionState
		CheckOutAdjusted bool `json:"check_out_adjusted"`
	}{toSessionState(sess.View()), adjusted}
	writeJSON(w, http.StatusOK, resp)
}

func (s *Server) handleCheckOut(w http.ResponseWriter, r *http.Request) {
	metrics.IncHTTP("check_out")

	sess, req := s.sessionFromBody(w, r, &timeRequest{})
	if sess == nil {
		return
	}
	tr := req.(*timeRequest)

	if err := sess.SetCheckOut(selection.TimeOfDay{Hour: tr.Hour, Minute: tr.Minute}); err != nil {
		status := http.StatusBadRequest
		if errors.Is(err, selection.ErrCheckOutTooEarly) {
			status = http.StatusUnprocessableEntity
		}
		writeError(w, status, err.Error())
		return
	}
	metrics.IncDraftDerived()
	writeJSON(w, http.StatusOK, toSessionState(sess.View()))
}

type acknowledgeRequest struct {
	UserID int64  `json:"user_id"`
	Date   string `json:"date"`
}

func (s *Server) handleAcknowledge(w http.ResponseWriter, r *http.Request) {
	metrics.IncHTTP("acknowledge")

	sess, req := s.sessionFromBody(w, r, &acknowledgeRequest{})
	if sess == nil {
		return
	}
	d, err := calendar.ParseDate(req.(*acknowledgeRequest).Date)
	if err != nil {
		writeError(w, http.StatusBadRequest, "invalid date; expected YYYY-MM-DD")
		return
	}
	if !sess.AcknowledgeDay(d) {
		writeError(w, http.StatusBadRequest, "date is outside the selected span")
		return
	}
	writeJSON(w, http.StatusOK, toSessionState(sess.View()))
}

type confirmRequest struct {
	UserID    int64                `json:"user_id"`
	LineItems []studioapi.LineItem `json:"line_items,omitempty"`
}

type confirmResponse struct {
	Success   bool   `json:"success"`
	BookingID int64  `json:"booking_id,omitempty"`
	Error     string `json:"error,omitempty"`
}

// handleConfirm applies the availability gate, submits the derived
// draft and records it locally. The session is discarded on success.
func (s *Server) handleConfirm(w http.ResponseWriter, r *http.Request) {
	metrics.IncHTTP("confirm")

	sess, req := s.sessionFromBody(w, r, &confirmRequest{})
	if sess == nil {
		return
	}
	cr := req.(*confirmRequest)

	if ok, blocked := sess.ConfirmAllowed(); !ok {
		metrics.IncConfirmBlocked()
		keys := make([]string, 0, len(blocked))
		for _, d := range blocked {
			keys = append(keys, d.Key())
		}
		writeJSON(w, http.StatusConflict, map[string]any{
			"error":         "dates with existing schedule slots need acknowledgement",
			"blocked_dates": keys,
		})
		return
	}

	d := sess.CurrentDraft()
	resp, requestID, err := s.api.SubmitBooking(r.Context(), studioapi.SubmitRequest{
		StudioID:  sess.StudioID,
		StartTime: d.StartInstant.Format(time.RFC3339),
		EndTime:   d.EndInstant.Format(time.RFC3339),
		LineItems: cr.LineItems,
	})
	if err != nil {
		metrics.IncBookingSubmitted("error")
		s.logger.Error().Err(err).Int64("user_id", sess.UserID).Msg("booking submission failed")
		writeError(w, http.StatusBadGateway, "booking service unavailable")
		return
	}
	if !resp.Success {
		metrics.IncBookingSubmitted("rejected")
		writeJSON(w, http.StatusConflict, confirmResponse{Error: resp.Error})
		return
	}
	metrics.IncBookingSubmitted("accepted")

	if s.history != nil {
		b := &store.Booking{
			RequestID:     requestID,
			RemoteID:      resp.BookingID,
			UserID:        sess.UserID,
			StudioID:      sess.StudioID,
			StartTime:     d.StartInstant,
			EndTime:       d.EndInstant,
			BillableHours: d.BillableHours,
			BillableDays:  d.BillableDays,
			Status:        "pending",
		}
		if err := s.history.SaveBooking(r.Context(), b); err != nil {
			s.logger.Error().Err(err).Str("request_id", requestID).Msg("failed to record booking locally")
		}
	}

	s.sessions.Delete(sess.UserID)
	writeJSON(w, http.StatusOK, confirmResponse{Success: true, BookingID: resp.BookingID})
}

// handleBookings lists the user's submitted bookings.
// GET /api/v1/bookings?user_id=42
func (s *Server) handleBookings(w http.ResponseWriter, r *http.Request) {
	metrics.IncHTTP("bookings")

	if r.Method != http.MethodGet {
		writeError(w, http.StatusMethodNotAllowed, "method not allowed")
		return
	}
	userID, ok := userIDFromQuery(w, r)
	if !ok {
		return
	}
	if s.history == nil {
		writeJSON(w, http.StatusOK, map[string]any{"bookings": []store.Booking{}})
		return
	}
	bookings, err := s.history.ListBookings(r.Context(), userID)
	if err != nil {
		s.logger.Error().Err(err).Msg("list bookings failed")
		writeError(w, http.StatusInternalServerError, "failed to list bookings")
		return
	}
	if bookings == nil {
		bookings = []store.Booking{}
	}
	writeJSON(w, http.StatusOK, map[string]any{"bookings": bookings})
}

// handleBookingsExport streams the booking history as an xlsx file.
// GET /api/v1/bookings/export?user_id=42
func (s *Server) handleBookingsExport(w http.ResponseWriter, r *http.Request) {
	metrics.IncHTTP("bookings_export")

	if r.Method != http.MethodGet {
		writeError(w, http.StatusMethodNotAllowed, "method not allowed")
		return
	}
	userID, ok := userIDFromQuery(w, r)
	if !ok {
		return
	}
	if s.history == nil {
		writeError(w, http.StatusNotFound, "booking history is disabled")
		return
	}
	bookings, err := s.history.ListBookings(r.Context(), userID)
	if err != nil {
		s.logger.Error().Err(err).Msg("list bookings failed")
		writeError(w, http.StatusInternalServerError, "failed to list bookings")
		return
	}

	w.Header().Set("Content-Type", "application/vnd.openxmlformats-officedocument.spreadsheetml.sheet")
	w.Header().Set("Content-Disposition", fmt.Sprintf("attachment; filename=bookings_%d.xlsx", userID))
	if err := store.ExportXLSX(w, bookings); err != nil {
		s.logger.Error().Err(err).Msg("xlsx export failed")
	}
}

// sessionFromBody decodes a POST body carrying user_id and resolves
// the session. Writes the error response itself on failure.
func (s *Server) sessionFromBody(w http.ResponseWriter, r *http.Request, req any) (*session.Session, any) {
	if r.Method != http.MethodPost {
		writeError(w, http.StatusMethodNotAllowed, "method not allowed; use POST")
		return nil, nil
	}
	if !decodeJSON(w, r, req) {
		return nil, nil
	}

	var userID int64
	switch v := req.(type) {
	case *pickModeRequest:
		userID = v.UserID
	case *tapDateRequest:
		userID = v.UserID
	case *timeRequest:
		userID = v.UserID
	case *acknowledgeRequest:
		userID = v.UserID
	case *confirmRequest:
		userID = v.UserID
	}
	if userID == 0 {
		writeError(w, http.StatusBadRequest, "user_id is required")
		return nil, nil
	}

	sess := s.sessions.Get(userID)
	if sess == nil {
		writeError(w, http.StatusNotFound, "no active session; start one first")
		return nil, nil
	}
	return sess, req
}

func (s *Server) sessionFromQuery(w http.ResponseWriter, r *http.Request) (*session.Session, bool) {
	userID, ok := userIDFromQuery(w, r)
	if !ok {
		return nil, false
	}
	sess := s.sessions.Get(userID)
	if sess == nil {
		writeError(w, http.StatusNotFound, "no active session; start one first")
		return nil, false
	}
	return sess, true
}

func userIDFromQuery(w http.ResponseWriter, r *http.Request) (int64, bool) {
	userID, err := strconv.ParseInt(r.URL.Query().Get("user_id"), 10, 64)
	if err != nil || userID == 0 {
		writeError(w, http.StatusBadRequest, "user_id is required")
		return 0, false
	}
	return userID, true
}
