package repo

import (
	"context"

	"github.com/google/uuid"
	"gorm.io/gorm"
)

type Clinic struct {
	ID      uuid.UUID
	Name    string
	Address *string
	Phone   *string
}

func ClinicByID(ctx context.Context, db *gorm.DB, id uuid.UUID) (*Clinic, error) {
	var c Clinic
	err := db.WithContext(ctx).Raw(`
		SELECT id, name, address, phone FROM clinics WHERE id = ?
	`, id).Scan(&c).Error
	if err != nil {
		return nil, err
	}
	if c.ID == uuid.Nil {
		return nil, gorm.ErrRecordNotFound
	}
	return &c, nil
}
