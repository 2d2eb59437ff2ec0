package appointment

import (
	"context"
	"testing"
	"time"

	"github.com/google/uuid"
)

// memStore implements Store in memory with the same CAS semantics as the
// SQL conditional updates.
type memStore struct {
	byToken map[string]*Appointment
}

func newMemStore(apps ...*Appointment) *memStore {
	m := &memStore{byToken: make(map[string]*Appointment)}
	for _, a := range apps {
		m.byToken[a.ConfirmationToken] = a
	}
	return m
}

func (m *memStore) ByToken(ctx context.Context, token string) (*Appointment, error) {
	a, ok := m.byToken[token]
	if !ok {
		return nil, ErrNotFound
	}
	cp := *a
	return &cp, nil
}

func (m *memStore) ConfirmByToken(ctx context.Context, token string, now time.Time) (*Appointment, error) {
	a, ok := m.byToken[token]
	if !ok {
		return nil, ErrNotFound
	}
	if a.Status != StatusScheduled {
		return nil, ErrAlreadyProcessed
	}
	a.Status = StatusConfirmed
	ts := now
	a.ConfirmedAt = &ts
	cp := *a
	return &cp, nil
}

func (m *memStore) CancelByToken(ctx context.Context, token, reason string, now time.Time) (*Appointment, error) {
	a, ok := m.byToken[token]
	if !ok {
		return nil, ErrNotFound
	}
	if a.Status != StatusScheduled && a.Status != StatusConfirmed {
		return nil, ErrAlreadyProcessed
	}
	a.Status = StatusCancelled
	ts := now
	a.CancelledAt = &ts
	a.CancellationReason = &reason
	cp := *a
	return &cp, nil
}

func (m *memStore) TransitionByID(ctx context.Context, id, clinicID uuid.UUID, allowedFrom []Status, to Status, reason *string, now time.Time) (*Appointment, error) {
	for _, a := range m.byToken {
		if a.ID != id || a.ClinicID != clinicID {
			continue
		}
		ok := false
		for _, f := range allowedFrom {
			if a.Status == f {
				ok = true
				break
			}
		}
		if !ok {
			return nil, ErrAlreadyProcessed
		}
		a.Status = to
		ts := now
		switch to {
		case StatusConfirmed:
			a.ConfirmedAt = &ts
		case StatusCancelled:
			a.CancelledAt = &ts
			a.CancellationReason = reason
		}
		cp := *a
		return &cp, nil
	}
	return nil, ErrNotFound
}

func scheduled(token string) *Appointment {
	return &Appointment{
		ID:                uuid.New(),
		ClinicID:          uuid.New(),
		ProfessionalID:    uuid.New(),
		PatientID:         uuid.New(),
		Date:              time.Date(2025, 3, 10, 0, 0, 0, 0, time.UTC),
		StartTime:         "09:00:00",
		EndTime:           "09:50:00",
		Status:            StatusScheduled,
		ConfirmationToken: token,
	}
}

func TestConfirm_StampsConfirmedAt(t *testing.T) {
	ctx := context.Background()
	now := time.Date(2025, 3, 9, 18, 30, 0, 0, time.UTC)
	svc := &Service{Store: newMemStore(scheduled("tok1"))}

	a, err := svc.Confirm(ctx, "tok1", now)
	if err != nil {
		t.Fatalf("Confirm: %v", err)
	}
	if a.Status != StatusConfirmed {
		t.Errorf("status: got %s, want CONFIRMADO", a.Status)
	}
	if a.ConfirmedAt == nil || !a.ConfirmedAt.Equal(now) {
		t.Errorf("confirmed_at: got %v, want %v", a.ConfirmedAt, now)
	}
}

func TestConfirm_Idempotent(t *testing.T) {
	ctx := context.Background()
	first := time.Date(2025, 3, 9, 18, 30, 0, 0, time.UTC)
	second := first.Add(2 * time.Hour)
	svc := &Service{Store: newMemStore(scheduled("tok1"))}

	a1, err := svc.Confirm(ctx, "tok1", first)
	if err != nil {
		t.Fatalf("first Confirm: %v", err)
	}
	a2, err := svc.Confirm(ctx, "tok1", second)
	if err != nil {
		t.Fatalf("second Confirm: %v", err)
	}
	if a2.ConfirmedAt == nil || !a2.ConfirmedAt.Equal(*a1.ConfirmedAt) {
		t.Errorf("re-confirm must preserve confirmed_at: got %v, want %v", a2.ConfirmedAt, a1.ConfirmedAt)
	}
}

func TestConfirmAndCancel_TerminalGuard(t *testing.T) {
	ctx := context.Background()
	now := time.Date(2025, 3, 9, 18, 30, 0, 0, time.UTC)
	for _, terminal := range []Status{StatusCancelled, StatusCompleted, StatusNoShow} {
		app := scheduled("tok-" + string(terminal))
		app.Status = terminal
		svc := &Service{Store: newMemStore(app)}

		a, err := svc.Confirm(ctx, app.ConfirmationToken, now)
		if err != ErrAlreadyProcessed {
			t.Errorf("%s: Confirm err = %v, want ErrAlreadyProcessed", terminal, err)
		}
		if a == nil || a.Status != terminal {
			t.Errorf("%s: Confirm must return current row unchanged", terminal)
		}
		a, err = svc.Cancel(ctx, app.ConfirmationToken, "", now)
		if err != ErrAlreadyProcessed {
			t.Errorf("%s: Cancel err = %v, want ErrAlreadyProcessed", terminal, err)
		}
		if a == nil || a.Status != terminal || a.CancelledAt != nil {
			t.Errorf("%s: Cancel must not mutate the row", terminal)
		}
	}
}

func TestCancel_DefaultReason(t *testing.T) {
	ctx := context.Background()
	now := time.Date(2025, 3, 9, 18, 30, 0, 0, time.UTC)
	svc := &Service{Store: newMemStore(scheduled("tok1"))}

	a, err := svc.Cancel(ctx, "tok1", "", now)
	if err != nil {
		t.Fatalf("Cancel: %v", err)
	}
	if a.CancellationReason == nil || *a.CancellationReason != DefaultPatientCancelReason {
		t.Errorf("reason: got %v, want %q", a.CancellationReason, DefaultPatientCancelReason)
	}
	if a.CancelledAt == nil || !a.CancelledAt.Equal(now) {
		t.Errorf("cancelled_at: got %v, want %v", a.CancelledAt, now)
	}
}

func TestCancel_ExplicitReason(t *testing.T) {
	ctx := context.Background()
	now := time.Date(2025, 3, 9, 18, 30, 0, 0, time.UTC)
	svc := &Service{Store: newMemStore(scheduled("tok1"))}

	a, err := svc.Cancel(ctx, "tok1", "viagem de trabalho", now)
	if err != nil {
		t.Fatalf("Cancel: %v", err)
	}
	if a.CancellationReason == nil || *a.CancellationReason != "viagem de trabalho" {
		t.Errorf("reason: got %v, want explicit reason", a.CancellationReason)
	}
}

func TestFetchByToken_NotFound(t *testing.T) {
	svc := &Service{Store: newMemStore()}
	if _, err := svc.FetchByToken(context.Background(), "nope"); err != ErrNotFound {
		t.Errorf("err = %v, want ErrNotFound", err)
	}
}

// Sequência literal: agendado -> confirmar -> cancelar. O cancelamento de um
// compromisso CONFIRMADO deve funcionar e preservar confirmed_at.
func TestLifecycle_ConfirmThenCancel(t *testing.T) {
	ctx := context.Background()
	t1 := time.Date(2025, 3, 9, 18, 30, 0, 0, time.UTC)
	t2 := t1.Add(time.Hour)
	app := scheduled("abc123")
	svc := &Service{Store: newMemStore(app)}

	a, err := svc.Confirm(ctx, "abc123", t1)
	if err != nil {
		t.Fatalf("Confirm: %v", err)
	}
	if a.Status != StatusConfirmed || a.ConfirmedAt == nil {
		t.Fatalf("after confirm: status=%s confirmed_at=%v", a.Status, a.ConfirmedAt)
	}
	a, err = svc.Cancel(ctx, "abc123", "", t2)
	if err != nil {
		t.Fatalf("Cancel after confirm: %v", err)
	}
	if a.Status != StatusCancelled {
		t.Errorf("final status: got %s, want CANCELLED", a.Status)
	}
	if a.CancelledAt == nil || !a.CancelledAt.Equal(t2) {
		t.Errorf("cancelled_at: got %v, want %v", a.CancelledAt, t2)
	}
	if a.ConfirmedAt == nil || !a.ConfirmedAt.Equal(t1) {
		t.Errorf("confirmed_at must survive the cancel: got %v, want %v", a.ConfirmedAt, t1)
	}
}

func TestStaffTransition(t *testing.T) {
	ctx := context.Background()
	now := time.Date(2025, 3, 10, 10, 0, 0, 0, time.UTC)
	app := scheduled("tok1")
	store := newMemStore(app)
	svc := &Service{Store: store}

	a, err := svc.StaffTransition(ctx, app.ID, app.ClinicID, StatusNoShow, nil, now)
	if err != nil {
		t.Fatalf("StaffTransition: %v", err)
	}
	if a.Status != StatusNoShow {
		t.Errorf("status: got %s, want NO_SHOW", a.Status)
	}
	// Terminal: nada mais transiciona.
	if _, err := svc.StaffTransition(ctx, app.ID, app.ClinicID, StatusCompleted, nil, now); err != ErrAlreadyProcessed {
		t.Errorf("transition from NO_SHOW: err = %v, want ErrAlreadyProcessed", err)
	}
}

func TestStaffTransition_Invalid(t *testing.T) {
	svc := &Service{Store: newMemStore()}
	now := time.Now()
	if _, err := svc.StaffTransition(context.Background(), uuid.New(), uuid.New(), StatusScheduled, nil, now); err != ErrInvalidTransition {
		t.Errorf("to AGENDADO: err = %v, want ErrInvalidTransition", err)
	}
	if _, err := svc.StaffTransition(context.Background(), uuid.New(), uuid.New(), Status("FOO"), nil, now); err != ErrInvalidTransition {
		t.Errorf("invalid status: err = %v, want ErrInvalidTransition", err)
	}
}
