package repo

import (
	"context"
	"errors"
	"time"

	"github.com/google/uuid"
	"github.com/tecmax-dev/sisvida-sub014/internal/appointment"
	"gorm.io/gorm"
)

// AppointmentStore adapts the package-level repo functions to the
// appointment.Store interface, translating gorm.ErrRecordNotFound into the
// lifecycle sentinels: a missing token is ErrNotFound, a failed conditional
// update is ErrAlreadyProcessed.
type AppointmentStore struct {
	DB *gorm.DB
}

var _ appointment.Store = (*AppointmentStore)(nil)

func (s *AppointmentStore) ByToken(ctx context.Context, token string) (*appointment.Appointment, error) {
	a, err := AppointmentByToken(ctx, s.DB, token)
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, appointment.ErrNotFound
	}
	return a, err
}

func (s *AppointmentStore) ConfirmByToken(ctx context.Context, token string, now time.Time) (*appointment.Appointment, error) {
	a, err := ConfirmAppointmentByToken(ctx, s.DB, token, now)
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, appointment.ErrAlreadyProcessed
	}
	return a, err
}

func (s *AppointmentStore) CancelByToken(ctx context.Context, token, reason string, now time.Time) (*appointment.Appointment, error) {
	a, err := CancelAppointmentByToken(ctx, s.DB, token, reason, now)
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, appointment.ErrAlreadyProcessed
	}
	return a, err
}

func (s *AppointmentStore) TransitionByID(ctx context.Context, id, clinicID uuid.UUID, allowedFrom []appointment.Status, to appointment.Status, reason *string, now time.Time) (*appointment.Appointment, error) {
	a, err := TransitionAppointment(ctx, s.DB, id, clinicID, allowedFrom, to, reason, now)
	if errors.Is(err, gorm.ErrRecordNotFound) {
		// Distingue "não existe" de "já em estado terminal"; no segundo caso
		// devolve a linha atual para o chamador exibir o estado.
		cur, ferr := AppointmentByIDAndClinic(ctx, s.DB, id, clinicID)
		if errors.Is(ferr, gorm.ErrRecordNotFound) {
			return nil, appointment.ErrNotFound
		}
		if ferr != nil {
			return nil, ferr
		}
		return cur, appointment.ErrAlreadyProcessed
	}
	return a, err
}
