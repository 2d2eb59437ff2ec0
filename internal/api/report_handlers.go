package api

import (
	"encoding/json"
	"fmt"
	"log"
	"net/http"

	"github.com/tecmax-dev/sisvida-sub014/internal/appointment"
	"github.com/tecmax-dev/sisvida-sub014/internal/auth"
	"github.com/tecmax-dev/sisvida-sub014/internal/noshow"
	"github.com/tecmax-dev/sisvida-sub014/internal/repo"
	"github.com/tecmax-dev/sisvida-sub014/internal/report"
)

type productivityProfessionalView struct {
	ProfessionalID   string `json:"professional_id"`
	ProfessionalName string `json:"professional_name"`
	Total            int    `json:"total"`
	Completed        int    `json:"completed"`
	NoShows          int    `json:"no_shows"`
	Cancelled        int    `json:"cancelled"`
}

type productivityDayView struct {
	Date  string `json:"date"`
	Total int    `json:"total"`
}

type productivityReportView struct {
	Period        string                         `json:"period"`
	From          string                         `json:"from"`
	To            string                         `json:"to"`
	Total         int                            `json:"total"`
	Professionals []productivityProfessionalView `json:"professionals"`
	Days          []productivityDayView          `json:"days"`
}

// GetProductivityReport agrega atendimentos por profissional e por dia.
// O resultado é cacheado por clínica+janela; escritas de agenda invalidam
// o prefixo "report:".
func (h *Handler) GetProductivityReport(w http.ResponseWriter, r *http.Request) {
	if !auth.CanViewReports(auth.RoleFrom(r.Context())) {
		http.Error(w, `{"error":"forbidden"}`, http.StatusForbidden)
		return
	}
	clinicID, ok := clinicIDFromClaims(w, r)
	if !ok {
		return
	}
	period, err := noshow.ParsePeriod(r.URL.Query().Get("period"))
	if err != nil {
		http.Error(w, `{"error":"period deve ser current_month, previous_month, last_3_months ou last_6_months"}`, http.StatusBadRequest)
		return
	}
	from, to := period.Range(h.nowClinic())
	fromStr, toStr := from.Format("2006-01-02"), to.Format("2006-01-02")

	cacheKey := fmt.Sprintf("report:productivity:%s:%s:%s", clinicID, fromStr, toStr)
	if h.Cache != nil {
		if data := h.Cache.Get(cacheKey); data != nil {
			w.Header().Set("Content-Type", "application/json")
			w.WriteHeader(http.StatusOK)
			_, _ = w.Write(data)
			return
		}
	}

	facts, err := repo.ListAppointmentFacts(r.Context(), h.DB, clinicID, from, to)
	if err != nil {
		log.Printf("[report] ListAppointmentFacts: %v", err)
		http.Error(w, `{"error":"internal"}`, http.StatusInternalServerError)
		return
	}
	rows := make([]report.Row, 0, len(facts))
	for _, f := range facts {
		rows = append(rows, report.Row{
			ProfessionalID:   f.ProfessionalID,
			ProfessionalName: f.ProfessionalName,
			Date:             f.AppointmentDate,
			Status:           appointment.Status(f.Status),
		})
	}
	view := productivityReportView{
		Period:        string(period),
		From:          fromStr,
		To:            toStr,
		Total:         len(rows),
		Professionals: make([]productivityProfessionalView, 0),
		Days:          make([]productivityDayView, 0),
	}
	for _, p := range report.ByProfessional(rows) {
		view.Professionals = append(view.Professionals, productivityProfessionalView{
			ProfessionalID:   p.ProfessionalID.String(),
			ProfessionalName: p.ProfessionalName,
			Total:            p.Total,
			Completed:        p.Completed,
			NoShows:          p.NoShows,
			Cancelled:        p.Cancelled,
		})
	}
	for _, d := range report.ByDay(rows) {
		view.Days = append(view.Days, productivityDayView{Date: d.Date, Total: d.Total})
	}

	data, err := json.Marshal(view)
	if err != nil {
		http.Error(w, `{"error":"internal"}`, http.StatusInternalServerError)
		return
	}
	if h.Cache != nil {
		h.Cache.Set(cacheKey, data)
	}
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(http.StatusOK)
	_, _ = w.Write(data)
}
