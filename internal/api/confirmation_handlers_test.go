package api

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/gorilla/mux"
	"github.com/tecmax-dev/sisvida-sub014/internal/appointment"
	"github.com/tecmax-dev/sisvida-sub014/internal/config"
)

// fakeStore é um Store em memória com a mesma semântica condicional do banco.
type fakeStore struct {
	apps map[string]*appointment.Appointment
}

func newFakeStore(apps ...*appointment.Appointment) *fakeStore {
	s := &fakeStore{apps: make(map[string]*appointment.Appointment)}
	for _, a := range apps {
		s.apps[a.ConfirmationToken] = a
	}
	return s
}

func (s *fakeStore) ByToken(ctx context.Context, token string) (*appointment.Appointment, error) {
	if a, ok := s.apps[token]; ok {
		cp := *a
		return &cp, nil
	}
	return nil, appointment.ErrNotFound
}

func (s *fakeStore) ConfirmByToken(ctx context.Context, token string, now time.Time) (*appointment.Appointment, error) {
	a, ok := s.apps[token]
	if !ok {
		return nil, appointment.ErrNotFound
	}
	if a.Status != appointment.StatusScheduled {
		return nil, appointment.ErrAlreadyProcessed
	}
	a.Status = appointment.StatusConfirmed
	a.ConfirmedAt = &now
	cp := *a
	return &cp, nil
}

func (s *fakeStore) CancelByToken(ctx context.Context, token, reason string, now time.Time) (*appointment.Appointment, error) {
	a, ok := s.apps[token]
	if !ok {
		return nil, appointment.ErrNotFound
	}
	if a.Status != appointment.StatusScheduled && a.Status != appointment.StatusConfirmed {
		return nil, appointment.ErrAlreadyProcessed
	}
	a.Status = appointment.StatusCancelled
	a.CancelledAt = &now
	a.CancellationReason = &reason
	cp := *a
	return &cp, nil
}

func (s *fakeStore) TransitionByID(ctx context.Context, id, clinicID uuid.UUID, allowedFrom []appointment.Status, to appointment.Status, reason *string, now time.Time) (*appointment.Appointment, error) {
	for _, a := range s.apps {
		if a.ID != id || a.ClinicID != clinicID {
			continue
		}
		for _, from := range allowedFrom {
			if a.Status != from {
				continue
			}
			a.Status = to
			switch to {
			case appointment.StatusConfirmed:
				if a.ConfirmedAt == nil {
					a.ConfirmedAt = &now
				}
			case appointment.StatusCancelled:
				a.CancelledAt = &now
				a.CancellationReason = reason
			}
			cp := *a
			return &cp, nil
		}
		cp := *a
		return &cp, appointment.ErrAlreadyProcessed
	}
	return nil, appointment.ErrNotFound
}

func testAppointment(token string, status appointment.Status) *appointment.Appointment {
	return &appointment.Appointment{
		ID:                uuid.New(),
		ClinicID:          uuid.New(),
		ProfessionalID:    uuid.New(),
		PatientID:         uuid.New(),
		Date:              time.Date(2025, 3, 10, 0, 0, 0, 0, time.UTC),
		StartTime:         "09:00:00",
		EndTime:           "09:50:00",
		Status:            status,
		ConfirmationToken: token,
	}
}

func newTestHandler(store appointment.Store, now time.Time) *Handler {
	h := NewHandler(nil, &config.Config{}, nil, &appointment.Service{Store: store}, time.UTC)
	h.SetNow(func() time.Time { return now })
	return h
}

func confirmationRouter(h *Handler) *mux.Router {
	r := mux.NewRouter()
	r.HandleFunc("/api/appointments/confirm/{token}/confirm", h.ConfirmAppointment).Methods(http.MethodPost)
	r.HandleFunc("/api/appointments/confirm/{token}/cancel", h.CancelAppointment).Methods(http.MethodPost)
	return r
}

func TestConfirmAppointment_OK(t *testing.T) {
	now := time.Date(2025, 3, 9, 18, 30, 0, 0, time.UTC)
	store := newFakeStore(testAppointment("tok1", appointment.StatusScheduled))
	h := newTestHandler(store, now)

	req := httptest.NewRequest(http.MethodPost, "/api/appointments/confirm/tok1/confirm", nil)
	rr := httptest.NewRecorder()
	confirmationRouter(h).ServeHTTP(rr, req)

	if rr.Code != http.StatusOK {
		t.Fatalf("status = %d body=%s", rr.Code, rr.Body.String())
	}
	var resp struct {
		Appointment struct {
			Status      string  `json:"status"`
			ConfirmedAt *string `json:"confirmed_at"`
		} `json:"appointment"`
	}
	if err := json.Unmarshal(rr.Body.Bytes(), &resp); err != nil {
		t.Fatalf("decode: %v", err)
	}
	if resp.Appointment.Status != "CONFIRMADO" {
		t.Errorf("status = %q", resp.Appointment.Status)
	}
	if resp.Appointment.ConfirmedAt == nil {
		t.Error("confirmed_at not set")
	}
}

func TestConfirmAppointment_UnknownToken(t *testing.T) {
	h := newTestHandler(newFakeStore(), time.Now())

	req := httptest.NewRequest(http.MethodPost, "/api/appointments/confirm/nope/confirm", nil)
	rr := httptest.NewRecorder()
	confirmationRouter(h).ServeHTTP(rr, req)

	if rr.Code != http.StatusNotFound {
		t.Fatalf("status = %d body=%s", rr.Code, rr.Body.String())
	}
}

func TestConfirmAppointment_TerminalConflict(t *testing.T) {
	store := newFakeStore(testAppointment("tok1", appointment.StatusCancelled))
	h := newTestHandler(store, time.Now())

	req := httptest.NewRequest(http.MethodPost, "/api/appointments/confirm/tok1/confirm", nil)
	rr := httptest.NewRecorder()
	confirmationRouter(h).ServeHTTP(rr, req)

	if rr.Code != http.StatusConflict {
		t.Fatalf("status = %d body=%s", rr.Code, rr.Body.String())
	}
	var resp struct {
		Appointment struct {
			Status string `json:"status"`
		} `json:"appointment"`
	}
	if err := json.Unmarshal(rr.Body.Bytes(), &resp); err != nil {
		t.Fatalf("decode: %v", err)
	}
	if resp.Appointment.Status != "CANCELLED" {
		t.Errorf("body should carry the current status, got %q", resp.Appointment.Status)
	}
}

func TestConfirmAppointment_Idempotent(t *testing.T) {
	now := time.Date(2025, 3, 9, 18, 30, 0, 0, time.UTC)
	store := newFakeStore(testAppointment("tok1", appointment.StatusScheduled))
	h := newTestHandler(store, now)
	r := confirmationRouter(h)

	for i := 0; i < 2; i++ {
		req := httptest.NewRequest(http.MethodPost, "/api/appointments/confirm/tok1/confirm", nil)
		rr := httptest.NewRecorder()
		r.ServeHTTP(rr, req)
		if rr.Code != http.StatusOK {
			t.Fatalf("call %d: status = %d body=%s", i+1, rr.Code, rr.Body.String())
		}
	}
}

func TestCancelAppointment_NoBodyUsesDefaultReason(t *testing.T) {
	store := newFakeStore(testAppointment("tok1", appointment.StatusScheduled))
	h := newTestHandler(store, time.Now())

	req := httptest.NewRequest(http.MethodPost, "/api/appointments/confirm/tok1/cancel", nil)
	rr := httptest.NewRecorder()
	confirmationRouter(h).ServeHTTP(rr, req)

	if rr.Code != http.StatusOK {
		t.Fatalf("status = %d body=%s", rr.Code, rr.Body.String())
	}
	got := store.apps["tok1"]
	if got.CancellationReason == nil || *got.CancellationReason != appointment.DefaultPatientCancelReason {
		t.Errorf("reason = %v", got.CancellationReason)
	}
}

func TestCancelAppointment_WithReason(t *testing.T) {
	store := newFakeStore(testAppointment("tok1", appointment.StatusConfirmed))
	h := newTestHandler(store, time.Now())

	body := strings.NewReader(`{"reason":"Viagem de trabalho"}`)
	req := httptest.NewRequest(http.MethodPost, "/api/appointments/confirm/tok1/cancel", body)
	rr := httptest.NewRecorder()
	confirmationRouter(h).ServeHTTP(rr, req)

	if rr.Code != http.StatusOK {
		t.Fatalf("status = %d body=%s", rr.Code, rr.Body.String())
	}
	got := store.apps["tok1"]
	if got.CancellationReason == nil || *got.CancellationReason != "Viagem de trabalho" {
		t.Errorf("reason = %v", got.CancellationReason)
	}
}
