package noshow

import (
	"fmt"
	"math"
	"sort"
	"time"

	"github.com/google/uuid"
	"github.com/tecmax-dev/sisvida-sub014/internal/appointment"
)

// Period is one of the fixed report period selectors. Ranges are always
// recomputed from the "now" passed by the caller, never cached.
type Period string

const (
	PeriodCurrentMonth  Period = "current_month"
	PeriodPreviousMonth Period = "previous_month"
	PeriodLast3Months   Period = "last_3_months"
	PeriodLast6Months   Period = "last_6_months"
)

func ParsePeriod(s string) (Period, error) {
	switch Period(s) {
	case PeriodCurrentMonth, PeriodPreviousMonth, PeriodLast3Months, PeriodLast6Months:
		return Period(s), nil
	case "":
		return PeriodCurrentMonth, nil
	}
	return "", fmt.Errorf("período inválido: %q", s)
}

// Range returns the inclusive [from, to] calendar dates for the period,
// truncated to midnight in now's location.
func (p Period) Range(now time.Time) (from, to time.Time) {
	today := time.Date(now.Year(), now.Month(), now.Day(), 0, 0, 0, 0, now.Location())
	firstOfMonth := time.Date(now.Year(), now.Month(), 1, 0, 0, 0, 0, now.Location())
	switch p {
	case PeriodPreviousMonth:
		from = firstOfMonth.AddDate(0, -1, 0)
		to = firstOfMonth.AddDate(0, 0, -1)
	case PeriodLast3Months:
		from = today.AddDate(0, -3, 0)
		to = today
	case PeriodLast6Months:
		from = today.AddDate(0, -6, 0)
		to = today
	default: // PeriodCurrentMonth
		from = firstOfMonth
		to = firstOfMonth.AddDate(0, 1, -1)
	}
	return from, to
}

// Fact is the slice of an appointment the policy needs. Date is "YYYY-MM-DD";
// zero-padded ISO dates compare correctly as strings.
type Fact struct {
	PatientID   uuid.UUID
	PatientName string
	Date        string
	Status      appointment.Status
}

// Block is the patient-side block state read alongside the facts.
type Block struct {
	BlockedUntil *time.Time
}

// PatientSummary is one row of the no-show report.
type PatientSummary struct {
	PatientID    uuid.UUID
	PatientName  string
	NoShowCount  int
	LatestDate   string
	Blocked      bool
	BlockedUntil *time.Time
}

// Report aggregates the no-show facts of one clinic and period.
type Report struct {
	Patients          []PatientSummary
	TotalAppointments int
	NoShowTotal       int
	Rate              float64
}

// IsBlocked reports whether the block is still in force at now. A past or
// missing blocked_until means not blocked; the check is strict (exactly-now
// counts as expired).
func IsBlocked(until *time.Time, now time.Time) bool {
	return until != nil && until.After(now)
}

// Rate returns noShows/total*100 rounded to one decimal; 0 when total is 0.
func Rate(noShows, total int) float64 {
	if total == 0 {
		return 0
	}
	return math.Round(float64(noShows)/float64(total)*1000) / 10
}

// Summarize groups the NO_SHOW facts by patient, keeping per patient the
// running count and the latest date, and sorts by count descending. Ties keep
// encounter order (stable). Patient names may be blank for removed patients;
// the caller substitutes a placeholder for display.
func Summarize(facts []Fact, blocks map[uuid.UUID]Block, now time.Time) Report {
	var rep Report
	rep.TotalAppointments = len(facts)
	var order []uuid.UUID
	summaries := make(map[uuid.UUID]*PatientSummary)
	for _, f := range facts {
		if f.Status != appointment.StatusNoShow {
			continue
		}
		rep.NoShowTotal++
		s, ok := summaries[f.PatientID]
		if !ok {
			s = &PatientSummary{PatientID: f.PatientID, PatientName: f.PatientName}
			summaries[f.PatientID] = s
			order = append(order, f.PatientID)
		}
		s.NoShowCount++
		if f.Date > s.LatestDate {
			s.LatestDate = f.Date
		}
	}
	rep.Rate = Rate(rep.NoShowTotal, rep.TotalAppointments)
	rep.Patients = make([]PatientSummary, 0, len(order))
	for _, id := range order {
		s := summaries[id]
		if b, ok := blocks[id]; ok {
			s.BlockedUntil = b.BlockedUntil
			s.Blocked = IsBlocked(b.BlockedUntil, now)
		}
		rep.Patients = append(rep.Patients, *s)
	}
	sort.SliceStable(rep.Patients, func(i, j int) bool {
		return rep.Patients[i].NoShowCount > rep.Patients[j].NoShowCount
	})
	return rep
}
