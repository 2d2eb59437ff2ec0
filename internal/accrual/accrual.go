package accrual

import (
	"context"
	"log"
	"time"

	"github.com/google/uuid"
	"github.com/tecmax-dev/sisvida-sub014/internal/noshow"
	"github.com/tecmax-dev/sisvida-sub014/internal/repo"
	"gorm.io/gorm"
)

const auditActionBlocked = "PATIENT_NO_SHOW_BLOCKED"
const auditSourceSystem = "SYSTEM"

// Store is the persistence surface of the accrual job.
type Store interface {
	ListNoShowCountsSince(ctx context.Context, db *gorm.DB, from time.Time) ([]noshow.PatientSummary, error)
	BlockPatient(ctx context.Context, db *gorm.DB, id uuid.UUID, until time.Time) error
}

type repoStore struct{}

func (repoStore) ListNoShowCountsSince(ctx context.Context, db *gorm.DB, from time.Time) ([]noshow.PatientSummary, error) {
	return repo.ListNoShowCountsSince(ctx, db, from)
}

func (repoStore) BlockPatient(ctx context.Context, db *gorm.DB, id uuid.UUID, until time.Time) error {
	return repo.BlockPatient(ctx, db, id, until)
}

// Run blocks every patient who reached threshold NO_SHOWs in the last 3
// months and is not already under an active block. Returns how many patients
// got blocked.
func Run(ctx context.Context, db *gorm.DB, threshold, blockDays int, now time.Time) int {
	return RunWithStore(ctx, db, repoStore{}, threshold, blockDays, now)
}

// RunWithStore is like Run but accepts a store for tests.
func RunWithStore(ctx context.Context, db *gorm.DB, store Store, threshold, blockDays int, now time.Time) int {
	from := now.AddDate(0, -3, 0)
	counts, err := store.ListNoShowCountsSince(ctx, db, from)
	if err != nil {
		log.Printf("[accrual] ListNoShowCountsSince: %v", err)
		return 0
	}
	until := noshow.BlockUntil(now, blockDays)
	blocked := 0
	for _, id := range noshow.CandidatesToBlock(counts, threshold, now) {
		if err := store.BlockPatient(ctx, db, id, until); err != nil {
			log.Printf("[accrual] BlockPatient %s: %v", id, err)
			continue
		}
		blocked++
		log.Printf("[accrual] blocked patient=%s until=%s", id, until.Format("2006-01-02"))
		if db != nil {
			pid := id
			_ = repo.CreateAuditEvent(ctx, db, repo.AuditEvent{
				Action:       auditActionBlocked,
				ActorType:    auditSourceSystem,
				ResourceType: strPtr("PATIENT"),
				ResourceID:   &pid,
				PatientID:    &pid,
				Source:       strPtr(auditSourceSystem),
				Metadata:     map[string]string{"blocked_until": until.Format(time.RFC3339)},
			})
		}
	}
	return blocked
}

func strPtr(s string) *string { return &s }
