package noshow

import (
	"testing"
	"time"

	"github.com/google/uuid"
)

func TestCandidatesToBlock(t *testing.T) {
	now := time.Date(2024, 3, 15, 3, 0, 0, 0, time.UTC)
	future := now.AddDate(0, 0, 5)
	past := now.AddDate(0, 0, -5)
	overThreshold := uuid.New()
	atThreshold := uuid.New()
	underThreshold := uuid.New()
	alreadyBlocked := uuid.New()
	expiredBlock := uuid.New()
	counts := []PatientSummary{
		{PatientID: overThreshold, NoShowCount: 5},
		{PatientID: atThreshold, NoShowCount: 3},
		{PatientID: underThreshold, NoShowCount: 2},
		{PatientID: alreadyBlocked, NoShowCount: 4, BlockedUntil: &future},
		{PatientID: expiredBlock, NoShowCount: 4, BlockedUntil: &past},
	}
	got := CandidatesToBlock(counts, 3, now)
	want := map[uuid.UUID]bool{overThreshold: true, atThreshold: true, expiredBlock: true}
	if len(got) != len(want) {
		t.Fatalf("candidates: got %d, want %d", len(got), len(want))
	}
	for _, id := range got {
		if !want[id] {
			t.Errorf("unexpected candidate %s", id)
		}
	}
}

func TestBlockUntil(t *testing.T) {
	now := time.Date(2024, 3, 15, 3, 0, 0, 0, time.UTC)
	if got := BlockUntil(now, 30); !got.Equal(now.AddDate(0, 0, 30)) {
		t.Errorf("BlockUntil: got %v", got)
	}
	// Defaults defensivos
	if got := BlockUntil(now, 0); !got.Equal(now.AddDate(0, 0, 30)) {
		t.Errorf("BlockUntil default: got %v", got)
	}
}
