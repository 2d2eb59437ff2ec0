package api

import (
	"errors"
	"log"
	"net/http"

	"github.com/google/uuid"
	"github.com/gorilla/mux"
	"github.com/tecmax-dev/sisvida-sub014/internal/appointment"
	"github.com/tecmax-dev/sisvida-sub014/internal/auth"
	"github.com/tecmax-dev/sisvida-sub014/internal/middleware"
	"github.com/tecmax-dev/sisvida-sub014/internal/noshow"
	"github.com/tecmax-dev/sisvida-sub014/internal/repo"
	"gorm.io/gorm"
)

type noShowPatientView struct {
	PatientID    string  `json:"patient_id"`
	PatientName  string  `json:"patient_name"`
	NoShowCount  int     `json:"no_show_count"`
	LatestDate   string  `json:"latest_date"`
	Blocked      bool    `json:"blocked"`
	BlockedUntil *string `json:"blocked_until,omitempty"`
}

type noShowReportView struct {
	Period            string              `json:"period"`
	From              string              `json:"from"`
	To                string              `json:"to"`
	TotalAppointments int                 `json:"total_appointments"`
	NoShowTotal       int                 `json:"no_show_total"`
	Rate              float64             `json:"rate"`
	Patients          []noShowPatientView `json:"patients"`
}

// GetNoShowReport agrega faltas por paciente no período selecionado.
// O flag de bloqueio é recalculado a cada leitura ("now" avança).
func (h *Handler) GetNoShowReport(w http.ResponseWriter, r *http.Request) {
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
	now := h.nowClinic()
	from, to := period.Range(now)
	rows, err := repo.ListAppointmentFacts(r.Context(), h.DB, clinicID, from, to)
	if err != nil {
		log.Printf("[noshow] ListAppointmentFacts: %v", err)
		http.Error(w, `{"error":"internal"}`, http.StatusInternalServerError)
		return
	}
	blocks, err := repo.PatientBlocksByClinic(r.Context(), h.DB, clinicID)
	if err != nil {
		log.Printf("[noshow] PatientBlocksByClinic: %v", err)
		http.Error(w, `{"error":"internal"}`, http.StatusInternalServerError)
		return
	}
	facts := make([]noshow.Fact, 0, len(rows))
	for _, row := range rows {
		facts = append(facts, noshow.Fact{
			PatientID:   row.PatientID,
			PatientName: row.PatientName,
			Date:        row.AppointmentDate,
			Status:      appointment.Status(row.Status),
		})
	}
	rep := noshow.Summarize(facts, blocks, now)
	view := noShowReportView{
		Period:            string(period),
		From:              from.Format("2006-01-02"),
		To:                to.Format("2006-01-02"),
		TotalAppointments: rep.TotalAppointments,
		NoShowTotal:       rep.NoShowTotal,
		Rate:              rep.Rate,
		Patients:          make([]noShowPatientView, 0, len(rep.Patients)),
	}
	for _, p := range rep.Patients {
		name := p.PatientName
		if name == "" {
			name = "(removido)"
		}
		pv := noShowPatientView{
			PatientID:   p.PatientID.String(),
			PatientName: name,
			NoShowCount: p.NoShowCount,
			LatestDate:  p.LatestDate,
			Blocked:     p.Blocked,
		}
		if p.BlockedUntil != nil {
			s := p.BlockedUntil.UTC().Format("2006-01-02T15:04:05Z07:00")
			pv.BlockedUntil = &s
		}
		view.Patients = append(view.Patients, pv)
	}
	writeJSON(w, http.StatusOK, view)
}

// UnblockPatient limpa o bloqueio por falta. Exige papel administrativo; o
// desbloqueio fica auditável em no_show_unblocked_at/no_show_unblocked_by.
func (h *Handler) UnblockPatient(w http.ResponseWriter, r *http.Request) {
	if !auth.CanUnblock(auth.RoleFrom(r.Context())) {
		http.Error(w, `{"error":"forbidden"}`, http.StatusForbidden)
		return
	}
	clinicID, ok := clinicIDFromClaims(w, r)
	if !ok {
		return
	}
	patientID, err := uuid.Parse(mux.Vars(r)["patientId"])
	if err != nil {
		http.Error(w, `{"error":"invalid patient id"}`, http.StatusBadRequest)
		return
	}
	actorID, err := uuid.Parse(auth.UserIDFrom(r.Context()))
	if err != nil {
		http.Error(w, `{"error":"invalid user"}`, http.StatusBadRequest)
		return
	}
	now := h.nowClinic()
	err = repo.UnblockPatient(r.Context(), h.DB, patientID, clinicID, actorID, now)
	if errors.Is(err, gorm.ErrRecordNotFound) {
		http.Error(w, `{"error":"patient not found"}`, http.StatusNotFound)
		return
	}
	if err != nil {
		log.Printf("[noshow] UnblockPatient: %v", err)
		http.Error(w, `{"error":"internal"}`, http.StatusInternalServerError)
		return
	}
	_ = repo.CreateAuditEvent(r.Context(), h.DB, repo.AuditEvent{
		Action:       "PATIENT_NO_SHOW_UNBLOCKED",
		ActorType:    auth.RoleFrom(r.Context()),
		ActorID:      &actorID,
		ClinicID:     &clinicID,
		RequestID:    middleware.RequestIDFromContext(r.Context()),
		ResourceType: strPtr("PATIENT"),
		ResourceID:   &patientID,
		PatientID:    &patientID,
		Source:       strPtr("USER"),
	})
	writeJSON(w, http.StatusOK, map[string]string{"message": "Paciente desbloqueado."})
}
