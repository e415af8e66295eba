package httpapi

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/rs/zerolog"

	"storio/internal/availability"
	"storio/internal/clock"
	"storio/internal/session"
	"storio/internal/store"
	"storio/internal/studioapi"
)

var frozen = time.Date(2024, time.March, 1, 12, 0, 0, 0, time.UTC)

// fakeAPI implements ScheduleService for tests.
type fakeAPI struct {
	snapshot  *availability.Snapshot
	fetchErr  error
	submitted []studioapi.SubmitRequest
	submitErr error
	reject    string
}

func (f *fakeAPI) GetSchedule(_ context.Context, studioID int64, _, _ string) (*availability.Snapshot, error) {
	if f.fetchErr != nil {
		return nil, f.fetchErr
	}
	if f.snapshot != nil {
		return f.snapshot, nil
	}
	return &availability.Snapshot{StudioID: studioID, Days: map[string][]availability.Slot{}}, nil
}

func (f *fakeAPI) SubmitBooking(_ context.Context, req studioapi.SubmitRequest) (*studioapi.SubmitResponse, string, error) {
	if f.submitErr != nil {
		return nil, "req-x", f.submitErr
	}
	f.submitted = append(f.submitted, req)
	if f.reject != "" {
		return &studioapi.SubmitResponse{Success: false, Error: f.reject}, "req-x", nil
	}
	return &studioapi.SubmitResponse{Success: true, BookingID: 99}, "req-x", nil
}

// fakeHistory implements History in memory.
type fakeHistory struct {
	saved []store.Booking
}

func (f *fakeHistory) SaveBooking(_ context.Context, b *store.Booking) error {
	b.ID = int64(len(f.saved) + 1)
	f.saved = append(f.saved, *b)
	return nil
}

func (f *fakeHistory) ListBookings(_ context.Context, userID int64) ([]store.Booking, error) {
	var out []store.Booking
	for _, b := range f.saved {
		if b.UserID == userID {
			out = append(out, b)
		}
	}
	return out, nil
}

func newTestServer(api *fakeAPI, history History) *Server {
	clk := clock.Fixed(frozen)
	sessions := session.NewStore(30*time.Minute, clk, time.UTC)
	logger := zerolog.Nop()
	return NewServer(sessions, api, history, 90*24*time.Hour, clk, time.UTC, &logger)
}

func doJSON(t *testing.T, mux *http.ServeMux, method, path string, body any) *httptest.ResponseRecorder {
	t.Helper()
	var buf bytes.Buffer
	if body != nil {
		if err := json.NewEncoder(&buf).Encode(body); err != nil {
			t.Fatalf("encode body: %v", err)
		}
	}
	req := httptest.NewRequest(method, path, &buf)
	rec := httptest.NewRecorder()
	mux.ServeHTTP(rec, req)
	return rec
}

func startSession(t *testing.T, mux *http.ServeMux) {
	t.Helper()
	rec := doJSON(t, mux, http.MethodPost, "/api/v1/session/start", map[string]any{"user_id": 42, "studio_id": 7})
	if rec.Code != http.StatusOK {
		t.Fatalf("start: status %d body %s", rec.Code, rec.Body.String())
	}
}

func TestCalendarEndpoint(t *testing.T) {
	srv := newTestServer(&fakeAPI{}, nil)
	mux := srv.Routes()

	rec := doJSON(t, mux, http.MethodGet, "/api/v1/calendar?year=2024&month=3", nil)
	if rec.Code != http.StatusOK {
		t.Fatalf("status %d", rec.Code)
	}
	var resp struct {
		Cells []*string `json:"cells"`
	}
	if err := json.Unmarshal(rec.Body.Bytes(), &resp); err != nil {
		t.Fatalf("decode: %v", err)
	}
	// March 2024 starts on a Friday: 4 blanks + 31 days.
	if len(resp.Cells) != 35 {
		t.Fatalf("expected 35 cells, got %d", len(resp.Cells))
	}
	for i := 0; i < 4; i++ {
		if resp.Cells[i] != nil {
			t.Errorf("cell %d should be padding", i)
		}
	}
	if resp.Cells[4] == nil || *resp.Cells[4] != "2024-03-01" {
		t.Errorf("first day cell wrong: %v", resp.Cells[4])
	}
}

func TestSessionFlow(t *testing.T) {
	api := &fakeAPI{}
	srv := newTestServer(api, nil)
	mux := srv.Routes()
	startSession(t, mux)

	rec := doJSON(t, mux, http.MethodPost, "/api/v1/session/pick-mode", map[string]any{"user_id": 42, "mode": "range"})
	if rec.Code != http.StatusOK {
		t.Fatalf("pick-mode: %d %s", rec.Code, rec.Body.String())
	}

	for _, d := range []string{"2024-03-10", "2024-03-10", "2024-03-12"} {
		rec = doJSON(t, mux, http.MethodPost, "/api/v1/session/tap-date", map[string]any{"user_id": 42, "date": d})
		if rec.Code != http.StatusOK {
			t.Fatalf("tap %s: %d %s", d, rec.Code, rec.Body.String())
		}
	}

	rec = doJSON(t, mux, http.MethodPost, "/api/v1/session/check-in", map[string]any{"user_id": 42, "hour": 14, "minute": 0})
	if rec.Code != http.StatusOK {
		t.Fatalf("check-in: %d %s", rec.Code, rec.Body.String())
	}
	rec = doJSON(t, mux, http.MethodPost, "/api/v1/session/check-out", map[string]any{"user_id": 42, "hour": 10, "minute": 0})
	if rec.Code != http.StatusOK {
		t.Fatalf("check-out: %d %s", rec.Code, rec.Body.String())
	}

	var state sessionState
	if err := json.Unmarshal(rec.Body.Bytes(), &state); err != nil {
		t.Fatalf("decode state: %v", err)
	}
	if state.Mode != "range" || state.Start != "2024-03-10" || state.End != "2024-03-12" {
		t.Errorf("unexpected selection: %+v", state)
	}
	if state.Draft.BillableDays != 3 || state.Draft.BillableHours != 44 {
		t.Errorf("unexpected draft: %+v", state.Draft)
	}
	if !state.ConfirmAllowed {
		t.Error("no slots recorded, confirm should be allowed")
	}
}

func TestCheckOutRejectionStatus(t *testing.T) {
	srv := newTestServer(&fakeAPI{}, nil)
	mux := srv.Routes()
	startSession(t, mux)

	// Single-day session: check-out below the minimum span is a 422.
	rec := doJSON(t, mux, http.MethodPost, "/api/v1/session/check-out", map[string]any{"user_id": 42, "hour": 11, "minute": 0})
	if rec.Code != http.StatusUnprocessableEntity {
		t.Fatalf("expected 422, got %d %s", rec.Code, rec.Body.String())
	}
}

func TestConfirmBlockedBySlots(t *testing.T) {
	api := &fakeAPI{snapshot: &availability.Snapshot{
		StudioID: 7,
		Days: map[string][]availability.Slot{
			"2024-03-01": {{ID: "x", Status: availability.SlotBooked}},
		},
	}}
	srv := newTestServer(api, nil)
	mux := srv.Routes()
	startSession(t, mux) // seeded on today, 2024-03-01

	rec := doJSON(t, mux, http.MethodPost, "/api/v1/session/confirm", map[string]any{"user_id": 42})
	if rec.Code != http.StatusConflict {
		t.Fatalf("expected 409, got %d %s", rec.Code, rec.Body.String())
	}
	if len(api.submitted) != 0 {
		t.Error("blocked confirm must not submit")
	}

	// Acknowledge the blocking day and retry.
	rec = doJSON(t, mux, http.MethodPost, "/api/v1/session/acknowledge", map[string]any{"user_id": 42, "date": "2024-03-01"})
	if rec.Code != http.StatusOK {
		t.Fatalf("acknowledge: %d %s", rec.Code, rec.Body.String())
	}
	rec = doJSON(t, mux, http.MethodPost, "/api/v1/session/confirm", map[string]any{"user_id": 42})
	if rec.Code != http.StatusOK {
		t.Fatalf("confirm after acknowledge: %d %s", rec.Code, rec.Body.String())
	}
}

func TestConfirmSubmitsAndRecords(t *testing.T) {
	api := &fakeAPI{}
	history := &fakeHistory{}
	srv := newTestServer(api, history)
	mux := srv.Routes()
	startSession(t, mux)

	rec := doJSON(t, mux, http.MethodPost, "/api/v1/session/confirm", map[string]any{"user_id": 42})
	if rec.Code != http.StatusOK {
		t.Fatalf("confirm: %d %s", rec.Code, rec.Body.String())
	}
	var resp confirmResponse
	if err := json.Unmarshal(rec.Body.Bytes(), &resp); err != nil {
		t.Fatalf("decode: %v", err)
	}
	if !resp.Success || resp.BookingID != 99 {
		t.Errorf("unexpected response %+v", resp)
	}

	if len(api.submitted) != 1 {
		t.Fatalf("expected 1 submission, got %d", len(api.submitted))
	}
	if api.submitted[0].StudioID != 7 {
		t.Errorf("wrong studio: %+v", api.submitted[0])
	}
	if len(history.saved) != 1 || history.saved[0].BillableHours != 4 {
		t.Errorf("history not recorded: %+v", history.saved)
	}

	// Session is discarded after a successful confirm.
	rec = doJSON(t, mux, http.MethodGet, "/api/v1/session?user_id=42", nil)
	if rec.Code != http.StatusNotFound {
		t.Errorf("expected 404 after confirm, got %d", rec.Code)
	}
}

func TestConfirmUpstreamFailure(t *testing.T) {
	api := &fakeAPI{submitErr: errors.New("down")}
	srv := newTestServer(api, nil)
	mux := srv.Routes()
	startSession(t, mux)

	rec := doJSON(t, mux, http.MethodPost, "/api/v1/session/confirm", map[string]any{"user_id": 42})
	if rec.Code != http.StatusBadGateway {
		t.Fatalf("expected 502, got %d", rec.Code)
	}

	// The session survives for a retry.
	rec = doJSON(t, mux, http.MethodGet, "/api/v1/session?user_id=42", nil)
	if rec.Code != http.StatusOK {
		t.Errorf("session lost after upstream failure: %d", rec.Code)
	}
}

func TestStartSurvivesScheduleFetchFailure(t *testing.T) {
	api := &fakeAPI{fetchErr: errors.New("timeout")}
	srv := newTestServer(api, nil)
	mux := srv.Routes()

	rec := doJSON(t, mux, http.MethodPost, "/api/v1/session/start", map[string]any{"user_id": 42, "studio_id": 7})
	if rec.Code != http.StatusOK {
		t.Fatalf("start should tolerate fetch failure: %d", rec.Code)
	}
	var state sessionState
	if err := json.Unmarshal(rec.Body.Bytes(), &state); err != nil {
		t.Fatalf("decode: %v", err)
	}
	// Optimistic default: confirm stays possible without a snapshot.
	if !state.ConfirmAllowed {
		t.Error("missing snapshot should not block confirm")
	}
}

func TestSessionRequired(t *testing.T) {
	srv := newTestServer(&fakeAPI{}, nil)
	mux := srv.Routes()

	rec := doJSON(t, mux, http.MethodPost, "/api/v1/session/tap-date", map[string]any{"user_id": 42, "date": "2024-03-10"})
	if rec.Code != http.StatusNotFound {
		t.Errorf("expected 404 without session, got %d", rec.Code)
	}
}

func TestUnknownFieldsRejected(t *testing.T) {
	srv := newTestServer(&fakeAPI{}, nil)
	mux := srv.Routes()
	startSession(t, mux)

	rec := doJSON(t, mux, http.MethodPost, "/api/v1/session/tap-date", map[string]any{"user_id": 42, "date": "2024-03-10", "extra": true})
	if rec.Code != http.StatusBadRequest {
		t.Errorf("expected 400 for unknown field, got %d", rec.Code)
	}
}
