package seed

import (
	"context"
	"log"

	"github.com/google/uuid"
	"github.com/tecmax-dev/sisvida-sub014/internal/auth"
	"gorm.io/gorm"
)

// Run cria o super-admin e uma clínica de exemplo na primeira subida.
// Idempotente: se já houver profissionais, não faz nada.
func Run(ctx context.Context, db *gorm.DB) error {
	var n int
	if err := db.WithContext(ctx).Raw("SELECT COUNT(*) FROM professionals").Scan(&n).Error; err != nil {
		return err
	}
	if n > 0 {
		return nil
	}

	adminHash, err := auth.HashPassword("Admin123!")
	if err != nil {
		return err
	}
	if err := db.WithContext(ctx).Exec(`
		INSERT INTO professionals (id, clinic_id, full_name, email, password_hash, role)
		VALUES (?, NULL, 'Super Admin', 'admin@sisvida.local', ?, 'SUPER_ADMIN')
	`, uuid.New(), adminHash).Error; err != nil {
		return err
	}

	clinicID := uuid.New()
	if err := db.WithContext(ctx).Exec(`
		INSERT INTO clinics (id, name, address, phone)
		VALUES (?, 'Clínica Exemplo', 'Rua das Flores, 100 - São Paulo/SP', '+5511999990000')
	`, clinicID).Error; err != nil {
		return err
	}

	ownerHash, err := auth.HashPassword("ChangeMe123!")
	if err != nil {
		return err
	}
	if err := db.WithContext(ctx).Exec(`
		INSERT INTO professionals (id, clinic_id, full_name, email, password_hash, role)
		VALUES (?, ?, 'Dra. Exemplo', 'dono@clinica-exemplo.local', ?, 'OWNER')
	`, uuid.New(), clinicID, ownerHash).Error; err != nil {
		return err
	}

	log.Printf("seed: super-admin e clínica exemplo criados")
	return nil
}
