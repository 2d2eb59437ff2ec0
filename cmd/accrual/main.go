package main

import (
	"context"
	"log"
	"os"
	"time"

	"github.com/tecmax-dev/sisvida-sub014/internal/accrual"
	"github.com/tecmax-dev/sisvida-sub014/internal/config"
	"github.com/tecmax-dev/sisvida-sub014/internal/confirmlink"
	"github.com/tecmax-dev/sisvida-sub014/internal/migrate"
	"gorm.io/driver/postgres"
	"gorm.io/gorm"
)

// Job diário: bloqueia pacientes que acumularam faltas e envia os links de
// confirmação dos compromissos de amanhã.
func main() {
	cfg := config.Load()
	if cfg.DatabaseURL == "" {
		log.Fatal("DATABASE_URL is required")
	}
	ctx := context.Background()
	db, err := gorm.Open(postgres.Open(cfg.DatabaseURL), &gorm.Config{})
	if err != nil {
		log.Fatalf("database: %v", err)
	}
	sqlDB, err := db.DB()
	if err != nil {
		log.Fatalf("db.DB: %v", err)
	}
	defer func() { _ = sqlDB.Close() }()
	if err := sqlDB.PingContext(ctx); err != nil {
		log.Fatalf("ping: %v", err)
	}
	if err := migrate.Run(ctx, db, "migrations"); err != nil {
		log.Fatalf("migrations: %v", err)
	}

	loc, err := time.LoadLocation(cfg.ClinicTZ)
	if err != nil {
		log.Printf("CLINIC_TZ=%s invalid, using UTC: %v", cfg.ClinicTZ, err)
		loc = time.UTC
	}
	now := time.Now().In(loc)

	blocked := accrual.Run(ctx, db, cfg.NoShowBlockThreshold, cfg.NoShowBlockDays, now)
	log.Printf("[accrual] done: blocked=%d threshold=%d days=%d", blocked, cfg.NoShowBlockThreshold, cfg.NoShowBlockDays)

	tomorrow := time.Date(now.Year(), now.Month(), now.Day(), 0, 0, 0, 0, loc).AddDate(0, 0, 1)
	sender := confirmlink.DefaultWhatsAppSender(cfg.TwilioAccountSid, cfg.TwilioAuthToken, cfg.TwilioWhatsAppFrom)
	sent, skipped := confirmlink.SendConfirmationLinks(ctx, db, tomorrow, sender, cfg.AppPublicURL)
	log.Printf("[confirmlink] done: sent=%d skipped=%d date=%s", sent, skipped, tomorrow.Format("2006-01-02"))
	os.Exit(0)
}
