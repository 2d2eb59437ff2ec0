package repo

import (
	"context"
	"time"

	"github.com/google/uuid"
	"github.com/tecmax-dev/sisvida-sub014/internal/noshow"
	"gorm.io/gorm"
)

type Patient struct {
	ID                 uuid.UUID
	ClinicID           uuid.UUID
	FullName           string
	Phone              *string
	NoShowBlockedUntil *time.Time
	NoShowUnblockedAt  *time.Time
	NoShowUnblockedBy  *uuid.UUID
}

const patientCols = `id, clinic_id, full_name, phone, no_show_blocked_until, no_show_unblocked_at, no_show_unblocked_by`

func PatientByIDAndClinic(ctx context.Context, db *gorm.DB, id, clinicID uuid.UUID) (*Patient, error) {
	var p Patient
	err := db.WithContext(ctx).Raw(`
		SELECT `+patientCols+` FROM patients WHERE id = ? AND clinic_id = ? AND deleted_at IS NULL
	`, id, clinicID).Scan(&p).Error
	if err != nil {
		return nil, err
	}
	if p.ID == uuid.Nil {
		return nil, gorm.ErrRecordNotFound
	}
	return &p, nil
}

// PatientBlocksByClinic returns the block state of every patient of the
// clinic that currently has any block field set, keyed by patient id.
func PatientBlocksByClinic(ctx context.Context, db *gorm.DB, clinicID uuid.UUID) (map[uuid.UUID]noshow.Block, error) {
	var rows []struct {
		ID                 uuid.UUID
		NoShowBlockedUntil *time.Time
	}
	err := db.WithContext(ctx).Raw(`
		SELECT id, no_show_blocked_until FROM patients
		WHERE clinic_id = ? AND no_show_blocked_until IS NOT NULL
	`, clinicID).Scan(&rows).Error
	if err != nil {
		return nil, err
	}
	out := make(map[uuid.UUID]noshow.Block, len(rows))
	for _, r := range rows {
		out[r.ID] = noshow.Block{BlockedUntil: r.NoShowBlockedUntil}
	}
	return out, nil
}

// UnblockPatient clears the no-show block and stamps the audit fields. The
// stamps are only ever written here and by a new accrual block; they are
// never reset to null.
func UnblockPatient(ctx context.Context, db *gorm.DB, id, clinicID, actorID uuid.UUID, now time.Time) error {
	result := db.WithContext(ctx).Exec(`
		UPDATE patients
		SET no_show_blocked_until = NULL, no_show_unblocked_at = ?, no_show_unblocked_by = ?, updated_at = now()
		WHERE id = ? AND clinic_id = ? AND deleted_at IS NULL
	`, now, actorID, id, clinicID)
	if result.Error != nil {
		return result.Error
	}
	if result.RowsAffected == 0 {
		return gorm.ErrRecordNotFound
	}
	return nil
}

// BlockPatient sets a new no-show block expiry (accrual job).
func BlockPatient(ctx context.Context, db *gorm.DB, id uuid.UUID, until time.Time) error {
	result := db.WithContext(ctx).Exec(`
		UPDATE patients SET no_show_blocked_until = ?, updated_at = now()
		WHERE id = ? AND deleted_at IS NULL
	`, until, id)
	if result.Error != nil {
		return result.Error
	}
	if result.RowsAffected == 0 {
		return gorm.ErrRecordNotFound
	}
	return nil
}

// ListNoShowCountsSince returns, across all clinics, the per-patient NO_SHOW
// count in [from, now] with the current block expiry. Feeds the accrual job.
func ListNoShowCountsSince(ctx context.Context, db *gorm.DB, from time.Time) ([]noshow.PatientSummary, error) {
	var rows []struct {
		PatientID          uuid.UUID
		PatientName        string
		NoShowCount        int
		LatestDate         string
		NoShowBlockedUntil *time.Time
	}
	err := db.WithContext(ctx).Raw(`
		SELECT p.id as patient_id, COALESCE(p.full_name, '') as patient_name,
		       COUNT(*) as no_show_count, MAX(a.appointment_date)::text as latest_date,
		       p.no_show_blocked_until
		FROM appointments a
		JOIN patients p ON p.id = a.patient_id AND p.deleted_at IS NULL
		WHERE a.status = 'NO_SHOW' AND a.appointment_date >= ?
		GROUP BY p.id, p.full_name, p.no_show_blocked_until
	`, from).Scan(&rows).Error
	if err != nil {
		return nil, err
	}
	out := make([]noshow.PatientSummary, 0, len(rows))
	for _, r := range rows {
		out = append(out, noshow.PatientSummary{
			PatientID:    r.PatientID,
			PatientName:  r.PatientName,
			NoShowCount:  r.NoShowCount,
			LatestDate:   r.LatestDate,
			BlockedUntil: r.NoShowBlockedUntil,
		})
	}
	return out, nil
}
