package repo

import (
	"context"
	"crypto/rand"
	"encoding/hex"
	"errors"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/tecmax-dev/sisvida-sub014/internal/appointment"
	"gorm.io/gorm"
)

// appointmentRow mirrors the appointments columns. StartTime and EndTime are
// strings; PostgreSQL TIME is returned as string by the driver.
type appointmentRow struct {
	ID                 uuid.UUID
	ClinicID           uuid.UUID
	ProfessionalID     uuid.UUID
	PatientID          uuid.UUID
	ProcedureID        *uuid.UUID
	AppointmentDate    time.Time
	StartTime          string
	EndTime            string
	Status             string
	ConfirmationToken  string
	ConfirmedAt        *time.Time
	CancelledAt        *time.Time
	CancellationReason *string
}

func (r *appointmentRow) toDomain() *appointment.Appointment {
	return &appointment.Appointment{
		ID:                 r.ID,
		ClinicID:           r.ClinicID,
		ProfessionalID:     r.ProfessionalID,
		PatientID:          r.PatientID,
		ProcedureID:        r.ProcedureID,
		Date:               r.AppointmentDate,
		StartTime:          r.StartTime,
		EndTime:            r.EndTime,
		Status:             appointment.Status(r.Status),
		ConfirmationToken:  r.ConfirmationToken,
		ConfirmedAt:        r.ConfirmedAt,
		CancelledAt:        r.CancelledAt,
		CancellationReason: r.CancellationReason,
	}
}

const appointmentCols = `id, clinic_id, professional_id, patient_id, procedure_id, appointment_date,
	start_time, end_time, status, confirmation_token, confirmed_at, cancelled_at, cancellation_reason`

func generateConfirmationToken() (string, error) {
	b := make([]byte, 24)
	if _, err := rand.Read(b); err != nil {
		return "", err
	}
	return hex.EncodeToString(b), nil
}

func isUniqueViolation(err error) bool {
	var pgErr *pgconn.PgError
	return errors.As(err, &pgErr) && pgErr.Code == "23505"
}

// CreateAppointment inserts a new AGENDADO appointment with a fresh
// confirmation token. Tokens are unique for the lifetime of the table; on the
// (astronomically unlikely) collision the insert is retried with a new token.
func CreateAppointment(ctx context.Context, db *gorm.DB, clinicID, professionalID, patientID uuid.UUID, procedureID *uuid.UUID, date time.Time, startTime, endTime string) (*appointment.Appointment, error) {
	for attempt := 0; attempt < 3; attempt++ {
		token, err := generateConfirmationToken()
		if err != nil {
			return nil, err
		}
		var row appointmentRow
		err = db.WithContext(ctx).Raw(`
			INSERT INTO appointments (clinic_id, professional_id, patient_id, procedure_id, appointment_date, start_time, end_time, status, confirmation_token)
			VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?)
			RETURNING `+appointmentCols+`
		`, clinicID, professionalID, patientID, procedureID, date, startTime, endTime, string(appointment.StatusScheduled), token).Scan(&row).Error
		if err != nil {
			if isUniqueViolation(err) {
				continue
			}
			return nil, err
		}
		return row.toDomain(), nil
	}
	return nil, errors.New("confirmation token collision after retries")
}

func AppointmentByToken(ctx context.Context, db *gorm.DB, token string) (*appointment.Appointment, error) {
	var row appointmentRow
	err := db.WithContext(ctx).Raw(`
		SELECT `+appointmentCols+` FROM appointments WHERE confirmation_token = ?
	`, token).Scan(&row).Error
	if err != nil {
		return nil, err
	}
	if row.ID == uuid.Nil {
		return nil, gorm.ErrRecordNotFound
	}
	return row.toDomain(), nil
}

func AppointmentByIDAndClinic(ctx context.Context, db *gorm.DB, id, clinicID uuid.UUID) (*appointment.Appointment, error) {
	var row appointmentRow
	err := db.WithContext(ctx).Raw(`
		SELECT `+appointmentCols+` FROM appointments WHERE id = ? AND clinic_id = ?
	`, id, clinicID).Scan(&row).Error
	if err != nil {
		return nil, err
	}
	if row.ID == uuid.Nil {
		return nil, gorm.ErrRecordNotFound
	}
	return row.toDomain(), nil
}

// ConfirmAppointmentByToken stamps confirmed_at only while the row is still
// AGENDADO (conditional update = CAS on status). Returns the updated row, or
// gorm.ErrRecordNotFound when the guard matched no row.
func ConfirmAppointmentByToken(ctx context.Context, db *gorm.DB, token string, now time.Time) (*appointment.Appointment, error) {
	var row appointmentRow
	err := db.WithContext(ctx).Raw(`
		UPDATE appointments
		SET status = ?, confirmed_at = ?, updated_at = now()
		WHERE confirmation_token = ? AND status = ?
		RETURNING `+appointmentCols+`
	`, string(appointment.StatusConfirmed), now, token, string(appointment.StatusScheduled)).Scan(&row).Error
	if err != nil {
		return nil, err
	}
	if row.ID == uuid.Nil {
		return nil, gorm.ErrRecordNotFound
	}
	return row.toDomain(), nil
}

// CancelAppointmentByToken cancels while the row is still AGENDADO or
// CONFIRMADO, stamping cancelled_at and the reason.
func CancelAppointmentByToken(ctx context.Context, db *gorm.DB, token, reason string, now time.Time) (*appointment.Appointment, error) {
	var row appointmentRow
	err := db.WithContext(ctx).Raw(`
		UPDATE appointments
		SET status = ?, cancelled_at = ?, cancellation_reason = ?, updated_at = now()
		WHERE confirmation_token = ? AND status IN ?
		RETURNING `+appointmentCols+`
	`, string(appointment.StatusCancelled), now, reason, token,
		[]string{string(appointment.StatusScheduled), string(appointment.StatusConfirmed)}).Scan(&row).Error
	if err != nil {
		return nil, err
	}
	if row.ID == uuid.Nil {
		return nil, gorm.ErrRecordNotFound
	}
	return row.toDomain(), nil
}

// TransitionAppointment applies a staff-side transition with the allowed-from
// guard computed by the state machine. confirmed_at/cancelled_at are stamped
// according to the target status and never overwritten once set.
func TransitionAppointment(ctx context.Context, db *gorm.DB, id, clinicID uuid.UUID, allowedFrom []appointment.Status, to appointment.Status, reason *string, now time.Time) (*appointment.Appointment, error) {
	if len(allowedFrom) == 0 {
		return nil, gorm.ErrRecordNotFound
	}
	froms := make([]string, len(allowedFrom))
	for i, s := range allowedFrom {
		froms[i] = string(s)
	}
	set := "status = ?, updated_at = now()"
	args := []interface{}{string(to)}
	switch to {
	case appointment.StatusConfirmed:
		set = "status = ?, confirmed_at = COALESCE(confirmed_at, ?), updated_at = now()"
		args = append(args, now)
	case appointment.StatusCancelled:
		set = "status = ?, cancelled_at = ?, cancellation_reason = ?, updated_at = now()"
		args = append(args, now, reason)
	}
	args = append(args, id, clinicID, froms)
	var row appointmentRow
	err := db.WithContext(ctx).Raw(`
		UPDATE appointments SET `+set+`
		WHERE id = ? AND clinic_id = ? AND status IN ?
		RETURNING `+appointmentCols+`
	`, args...).Scan(&row).Error
	if err != nil {
		return nil, err
	}
	if row.ID == uuid.Nil {
		return nil, gorm.ErrRecordNotFound
	}
	return row.toDomain(), nil
}

// RescheduleAppointment moves date/times of a non-terminal appointment.
func RescheduleAppointment(ctx context.Context, db *gorm.DB, id, clinicID uuid.UUID, date time.Time, startTime, endTime string) error {
	result := db.WithContext(ctx).Exec(`
		UPDATE appointments SET appointment_date = ?, start_time = ?, end_time = ?, updated_at = now()
		WHERE id = ? AND clinic_id = ? AND status IN ?
	`, date, startTime, endTime, id, clinicID,
		[]string{string(appointment.StatusScheduled), string(appointment.StatusConfirmed)})
	if result.Error != nil {
		return result.Error
	}
	if result.RowsAffected == 0 {
		return gorm.ErrRecordNotFound
	}
	return nil
}

// ListAppointmentsByClinic returns the clinic agenda in [from, to]
// (inclusive), optionally filtered to one professional.
func ListAppointmentsByClinic(ctx context.Context, db *gorm.DB, clinicID uuid.UUID, from, to time.Time, professionalID *uuid.UUID) ([]*appointment.Appointment, error) {
	q := `SELECT ` + appointmentCols + `
		FROM appointments
		WHERE clinic_id = ? AND appointment_date >= ? AND appointment_date <= ?`
	args := []interface{}{clinicID, from, to}
	if professionalID != nil {
		q += ` AND professional_id = ?`
		args = append(args, *professionalID)
	}
	q += ` ORDER BY appointment_date, start_time`
	var rows []appointmentRow
	if err := db.WithContext(ctx).Raw(q, args...).Scan(&rows).Error; err != nil {
		return nil, err
	}
	out := make([]*appointment.Appointment, 0, len(rows))
	for i := range rows {
		out = append(out, rows[i].toDomain())
	}
	return out, nil
}

// AppointmentFactRow feeds the no-show and productivity projections.
type AppointmentFactRow struct {
	AppointmentID    uuid.UUID
	PatientID        uuid.UUID
	PatientName      string
	ProfessionalID   uuid.UUID
	ProfessionalName string
	AppointmentDate  string
	StartTime        string
	Status           string
}

// ListAppointmentFacts returns every appointment in [from, to] (inclusive)
// for the clinic, regardless of status, with patient and professional names.
// Soft-deleted relations come back as empty names.
func ListAppointmentFacts(ctx context.Context, db *gorm.DB, clinicID uuid.UUID, from, to time.Time) ([]AppointmentFactRow, error) {
	var list []AppointmentFactRow
	err := db.WithContext(ctx).Raw(`
		SELECT a.id as appointment_id, a.patient_id, COALESCE(p.full_name, '') as patient_name,
		       a.professional_id, COALESCE(pr.full_name, '') as professional_name,
		       a.appointment_date::text as appointment_date, a.start_time, a.status
		FROM appointments a
		LEFT JOIN patients p ON p.id = a.patient_id AND p.deleted_at IS NULL
		LEFT JOIN professionals pr ON pr.id = a.professional_id AND pr.deleted_at IS NULL
		WHERE a.clinic_id = ? AND a.appointment_date >= ? AND a.appointment_date <= ?
		ORDER BY a.appointment_date, a.start_time
	`, clinicID, from, to).Scan(&list).Error
	return list, err
}

// TimeStringToHHMM returns "HH:MM" from a DB time string ("HH:MM:SS" or "HH:MM").
func TimeStringToHHMM(s string) string {
	s = strings.TrimSpace(s)
	if len(s) >= 5 {
		return s[:5]
	}
	return s
}

// ConfirmationSummary is everything the public confirmation page renders.
type ConfirmationSummary struct {
	AppointmentID    uuid.UUID
	PatientName      string
	ProfessionalName string
	ClinicName       string
	ClinicAddress    string
	ClinicPhone      string
	AppointmentDate  time.Time
	StartTime        string
	EndTime          string
	Status           string
}

// ConfirmationSummaryByToken resolves the appointment plus display data by
// token only; IDs are never part of the public surface.
func ConfirmationSummaryByToken(ctx context.Context, db *gorm.DB, token string) (*ConfirmationSummary, error) {
	var s ConfirmationSummary
	err := db.WithContext(ctx).Raw(`
		SELECT a.id as appointment_id, COALESCE(p.full_name, '') as patient_name,
		       COALESCE(pr.full_name, '') as professional_name,
		       c.name as clinic_name, COALESCE(c.address, '') as clinic_address, COALESCE(c.phone, '') as clinic_phone,
		       a.appointment_date, a.start_time, a.end_time, a.status
		FROM appointments a
		JOIN clinics c ON c.id = a.clinic_id
		LEFT JOIN patients p ON p.id = a.patient_id AND p.deleted_at IS NULL
		LEFT JOIN professionals pr ON pr.id = a.professional_id AND pr.deleted_at IS NULL
		WHERE a.confirmation_token = ?
	`, token).Scan(&s).Error
	if err != nil {
		return nil, err
	}
	if s.AppointmentID == uuid.Nil {
		return nil, gorm.ErrRecordNotFound
	}
	return &s, nil
}

// ConfirmationLinkRow holds data to send one confirmation link by WhatsApp.
type ConfirmationLinkRow struct {
	AppointmentID     uuid.UUID
	PatientID         uuid.UUID
	PatientName       string
	PatientPhone      string
	AppointmentDate   time.Time
	StartTime         string
	ConfirmationToken string
}

// ListAppointmentsForConfirmationLink returns AGENDADO appointments on the
// given date whose patient has a phone, for the link-delivery job.
func ListAppointmentsForConfirmationLink(ctx context.Context, db *gorm.DB, date time.Time) ([]ConfirmationLinkRow, error) {
	dateStr := date.Format("2006-01-02")
	var list []ConfirmationLinkRow
	err := db.WithContext(ctx).Raw(`
		SELECT a.id as appointment_id, p.id as patient_id, COALESCE(p.full_name, '') as patient_name,
		       TRIM(p.phone) as patient_phone, a.appointment_date, a.start_time, a.confirmation_token
		FROM appointments a
		JOIN patients p ON p.id = a.patient_id AND p.deleted_at IS NULL
		WHERE a.appointment_date = ?::date
		  AND a.status = ?
		  AND p.phone IS NOT NULL AND TRIM(p.phone) != ''
		ORDER BY a.start_time, p.full_name
	`, dateStr, string(appointment.StatusScheduled)).Scan(&list).Error
	return list, err
}
