package repo

import (
	"context"
	"crypto/rand"
	"encoding/hex"
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"
)

type PasswordReset struct {
	ID             uuid.UUID
	ProfessionalID uuid.UUID
	Token          string
	ExpiresAt      time.Time
	UsedAt         *time.Time
}

// CreatePasswordReset issues a reset token valid until expiresAt.
func CreatePasswordReset(ctx context.Context, db *gorm.DB, professionalID uuid.UUID, expiresAt time.Time) (*PasswordReset, error) {
	b := make([]byte, 24)
	if _, err := rand.Read(b); err != nil {
		return nil, err
	}
	token := hex.EncodeToString(b)
	id := uuid.New()
	err := db.WithContext(ctx).Exec(`
		INSERT INTO password_resets (id, professional_id, token, expires_at) VALUES (?, ?, ?, ?)
	`, id, professionalID, token, expiresAt).Error
	if err != nil {
		return nil, err
	}
	return &PasswordReset{ID: id, ProfessionalID: professionalID, Token: token, ExpiresAt: expiresAt}, nil
}

// ConsumePasswordReset marks the token used and returns it. Expired or
// already-used tokens return gorm.ErrRecordNotFound.
func ConsumePasswordReset(ctx context.Context, db *gorm.DB, token string, now time.Time) (*PasswordReset, error) {
	var pr PasswordReset
	err := db.WithContext(ctx).Raw(`
		UPDATE password_resets SET used_at = ?
		WHERE token = ? AND used_at IS NULL AND expires_at > ?
		RETURNING id, professional_id, token, expires_at, used_at
	`, now, token, now).Scan(&pr).Error
	if err != nil {
		return nil, err
	}
	if pr.ID == uuid.Nil {
		return nil, gorm.ErrRecordNotFound
	}
	return &pr, nil
}
