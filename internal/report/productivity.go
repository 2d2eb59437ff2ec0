package report

import (
	"sort"

	"github.com/google/uuid"
	"github.com/tecmax-dev/sisvida-sub014/internal/appointment"
)

// PlaceholderName substitui nomes de profissionais/pacientes removidos
// (soft delete) para a projeção não falhar por vínculo ausente.
const PlaceholderName = "(removido)"

// Row is one appointment as read for the productivity charts.
type Row struct {
	ProfessionalID   uuid.UUID
	ProfessionalName string
	Date             string // YYYY-MM-DD
	Status           appointment.Status
}

type ProfessionalTotals struct {
	ProfessionalID   uuid.UUID
	ProfessionalName string
	Total            int
	Completed        int
	NoShows          int
	Cancelled        int
}

type DayTotals struct {
	Date  string
	Total int
}

// ByProfessional groups appointment counts per professional, ordered by
// total descending (ties keep encounter order).
func ByProfessional(rows []Row) []ProfessionalTotals {
	var order []uuid.UUID
	totals := make(map[uuid.UUID]*ProfessionalTotals)
	for _, r := range rows {
		t, ok := totals[r.ProfessionalID]
		if !ok {
			name := r.ProfessionalName
			if name == "" {
				name = PlaceholderName
			}
			t = &ProfessionalTotals{ProfessionalID: r.ProfessionalID, ProfessionalName: name}
			totals[r.ProfessionalID] = t
			order = append(order, r.ProfessionalID)
		}
		t.Total++
		switch r.Status {
		case appointment.StatusCompleted:
			t.Completed++
		case appointment.StatusNoShow:
			t.NoShows++
		case appointment.StatusCancelled:
			t.Cancelled++
		}
	}
	out := make([]ProfessionalTotals, 0, len(order))
	for _, id := range order {
		out = append(out, *totals[id])
	}
	sort.SliceStable(out, func(i, j int) bool { return out[i].Total > out[j].Total })
	return out
}

// ByDay counts appointments per calendar day, ordered by date ascending.
func ByDay(rows []Row) []DayTotals {
	totals := make(map[string]int)
	for _, r := range rows {
		totals[r.Date]++
	}
	out := make([]DayTotals, 0, len(totals))
	for d, n := range totals {
		out = append(out, DayTotals{Date: d, Total: n})
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Date < out[j].Date })
	return out
}
