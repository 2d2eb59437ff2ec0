package appointment

import (
	"context"
	"errors"
	"time"

	"github.com/google/uuid"
)

// DefaultPatientCancelReason é o motivo canônico quando o paciente cancela
// pelo link sem informar um motivo.
const DefaultPatientCancelReason = "Cancelado pelo paciente pelo link"

var (
	ErrNotFound          = errors.New("appointment not found")
	ErrAlreadyProcessed  = errors.New("appointment already processed")
	ErrInvalidTransition = errors.New("invalid status transition")
)

// Appointment is the agenda entry. Date is the calendar day; StartTime and
// EndTime are strings ("HH:MM:SS"); PostgreSQL TIME is returned as string by
// the driver.
type Appointment struct {
	ID                 uuid.UUID
	ClinicID           uuid.UUID
	ProfessionalID     uuid.UUID
	PatientID          uuid.UUID
	ProcedureID        *uuid.UUID
	Date               time.Time
	StartTime          string
	EndTime            string
	Status             Status
	ConfirmationToken  string
	ConfirmedAt        *time.Time
	CancelledAt        *time.Time
	CancellationReason *string
}

// Store is the persistence surface the lifecycle service needs. The
// conditional methods update the row only while its status is still in
// allowedFrom and return ErrAlreadyProcessed when the guard fails, which
// makes each transition a compare-and-swap on status.
type Store interface {
	ByToken(ctx context.Context, token string) (*Appointment, error)
	ConfirmByToken(ctx context.Context, token string, now time.Time) (*Appointment, error)
	CancelByToken(ctx context.Context, token, reason string, now time.Time) (*Appointment, error)
	TransitionByID(ctx context.Context, id, clinicID uuid.UUID, allowedFrom []Status, to Status, reason *string, now time.Time) (*Appointment, error)
}

// Service applies the lifecycle rules on top of a Store. "now" is always a
// parameter so the rules stay testable with fixed clocks.
type Service struct {
	Store Store
}

// FetchByToken returns the appointment for the public confirmation page.
func (s *Service) FetchByToken(ctx context.Context, token string) (*Appointment, error) {
	return s.Store.ByToken(ctx, token)
}

// Confirm transitions AGENDADO -> CONFIRMADO and stamps confirmed_at.
// Re-confirming a CONFIRMADO appointment is a no-op that preserves the
// original confirmed_at. Terminal statuses return ErrAlreadyProcessed with
// the current row so the caller can show its state.
func (s *Service) Confirm(ctx context.Context, token string, now time.Time) (*Appointment, error) {
	a, err := s.Store.ByToken(ctx, token)
	if err != nil {
		return nil, err
	}
	if a.Status == StatusConfirmed {
		return a, nil
	}
	if a.Status.Terminal() {
		return a, ErrAlreadyProcessed
	}
	updated, err := s.Store.ConfirmByToken(ctx, token, now)
	if errors.Is(err, ErrAlreadyProcessed) {
		// Perdeu a corrida para outra transição; devolve o estado atual.
		if cur, ferr := s.Store.ByToken(ctx, token); ferr == nil {
			return cur, ErrAlreadyProcessed
		}
		return nil, ErrAlreadyProcessed
	}
	return updated, err
}

// Cancel transitions AGENDADO/CONFIRMADO -> CANCELLED, stamps cancelled_at
// and stores reason, or DefaultPatientCancelReason when reason is blank.
func (s *Service) Cancel(ctx context.Context, token, reason string, now time.Time) (*Appointment, error) {
	a, err := s.Store.ByToken(ctx, token)
	if err != nil {
		return nil, err
	}
	if a.Status.Terminal() {
		return a, ErrAlreadyProcessed
	}
	if reason == "" {
		reason = DefaultPatientCancelReason
	}
	updated, err := s.Store.CancelByToken(ctx, token, reason, now)
	if errors.Is(err, ErrAlreadyProcessed) {
		if cur, ferr := s.Store.ByToken(ctx, token); ferr == nil {
			return cur, ErrAlreadyProcessed
		}
		return nil, ErrAlreadyProcessed
	}
	return updated, err
}

// StaffTransition applies an agenda-side transition (CONFIRMADO, CANCELLED,
// COMPLETED, NO_SHOW) through the same transition table. reason is only
// stored for CANCELLED.
func (s *Service) StaffTransition(ctx context.Context, id, clinicID uuid.UUID, to Status, reason *string, now time.Time) (*Appointment, error) {
	if !to.Valid() || to == StatusScheduled {
		return nil, ErrInvalidTransition
	}
	allowedFrom := AllowedFrom(to)
	if to != StatusCancelled {
		reason = nil
	}
	return s.Store.TransitionByID(ctx, id, clinicID, allowedFrom, to, reason, now)
}
