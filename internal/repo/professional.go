package repo

import (
	"context"

	"github.com/google/uuid"
	"gorm.io/gorm"
)

// Professional is a staff member. SUPER_ADMIN rows are platform-level and
// have clinic_id NULL.
type Professional struct {
	ID           uuid.UUID
	ClinicID     *uuid.UUID
	FullName     string
	Email        string
	PasswordHash string
	Role         string
}

const professionalCols = `id, clinic_id, full_name, email, password_hash, role`

func ProfessionalByEmail(ctx context.Context, db *gorm.DB, email string) (*Professional, error) {
	var p Professional
	err := db.WithContext(ctx).Raw(`
		SELECT `+professionalCols+` FROM professionals WHERE LOWER(email) = LOWER(?) AND deleted_at IS NULL
	`, email).Scan(&p).Error
	if err != nil {
		return nil, err
	}
	if p.ID == uuid.Nil {
		return nil, gorm.ErrRecordNotFound
	}
	return &p, nil
}

func ProfessionalByID(ctx context.Context, db *gorm.DB, id uuid.UUID) (*Professional, error) {
	var p Professional
	err := db.WithContext(ctx).Raw(`
		SELECT `+professionalCols+` FROM professionals WHERE id = ? AND deleted_at IS NULL
	`, id).Scan(&p).Error
	if err != nil {
		return nil, err
	}
	if p.ID == uuid.Nil {
		return nil, gorm.ErrRecordNotFound
	}
	return &p, nil
}

func UpdateProfessionalPassword(ctx context.Context, db *gorm.DB, id uuid.UUID, passwordHash string) error {
	result := db.WithContext(ctx).Exec(`
		UPDATE professionals SET password_hash = ?, updated_at = now() WHERE id = ? AND deleted_at IS NULL
	`, passwordHash, id)
	if result.Error != nil {
		return result.Error
	}
	if result.RowsAffected == 0 {
		return gorm.ErrRecordNotFound
	}
	return nil
}
