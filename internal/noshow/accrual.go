package noshow

import (
	"time"

	"github.com/google/uuid"
)

// CandidatesToBlock returns the patients whose no-show count in the accrual
// window reached the threshold and who are not already under an active block.
// Re-blocking a patient whose block expired is allowed. Order follows counts.
func CandidatesToBlock(counts []PatientSummary, threshold int, now time.Time) []uuid.UUID {
	if threshold <= 0 {
		threshold = 1
	}
	var ids []uuid.UUID
	for _, s := range counts {
		if s.NoShowCount < threshold {
			continue
		}
		if IsBlocked(s.BlockedUntil, now) {
			continue
		}
		ids = append(ids, s.PatientID)
	}
	return ids
}

// BlockUntil computes the expiry of a new block starting at now.
func BlockUntil(now time.Time, blockDays int) time.Time {
	if blockDays <= 0 {
		blockDays = 30
	}
	return now.AddDate(0, 0, blockDays)
}
