package api

import (
	"encoding/json"
	"errors"
	"io"
	"log"
	"net/http"

	"github.com/gorilla/mux"
	"github.com/tecmax-dev/sisvida-sub014/internal/appointment"
	"github.com/tecmax-dev/sisvida-sub014/internal/auth"
	"github.com/tecmax-dev/sisvida-sub014/internal/middleware"
	"github.com/tecmax-dev/sisvida-sub014/internal/repo"
	"gorm.io/gorm"
)

// confirmationView is the public summary rendered at /confirmar/{token}.
type confirmationView struct {
	PatientName      string `json:"patient_name"`
	ProfessionalName string `json:"professional_name"`
	ClinicName       string `json:"clinic_name"`
	ClinicAddress    string `json:"clinic_address,omitempty"`
	ClinicPhone      string `json:"clinic_phone,omitempty"`
	Date             string `json:"date"`
	StartTime        string `json:"start_time"`
	EndTime          string `json:"end_time"`
	Status           string `json:"status"`
	Terminal         bool   `json:"terminal"`
}

// GetConfirmation retorna o resumo do compromisso pelo token (público).
// Quem já está em estado terminal vê o estado atual em vez das ações.
func (h *Handler) GetConfirmation(w http.ResponseWriter, r *http.Request) {
	token := mux.Vars(r)["token"]
	if token == "" {
		http.Error(w, `{"error":"token obrigatório"}`, http.StatusBadRequest)
		return
	}
	s, err := repo.ConfirmationSummaryByToken(r.Context(), h.DB, token)
	if errors.Is(err, gorm.ErrRecordNotFound) {
		http.Error(w, `{"error":"link inválido"}`, http.StatusNotFound)
		return
	}
	if err != nil {
		log.Printf("[confirmacao] ConfirmationSummaryByToken: %v", err)
		http.Error(w, `{"error":"erro interno"}`, http.StatusInternalServerError)
		return
	}
	writeJSON(w, http.StatusOK, confirmationView{
		PatientName:      s.PatientName,
		ProfessionalName: s.ProfessionalName,
		ClinicName:       s.ClinicName,
		ClinicAddress:    s.ClinicAddress,
		ClinicPhone:      s.ClinicPhone,
		Date:             s.AppointmentDate.Format("2006-01-02"),
		StartTime:        repo.TimeStringToHHMM(s.StartTime),
		EndTime:          repo.TimeStringToHHMM(s.EndTime),
		Status:           s.Status,
		Terminal:         appointment.Status(s.Status).Terminal(),
	})
}

type appointmentStateView struct {
	Status      string  `json:"status"`
	ConfirmedAt *string `json:"confirmed_at,omitempty"`
	CancelledAt *string `json:"cancelled_at,omitempty"`
}

func stateView(a *appointment.Appointment) appointmentStateView {
	v := appointmentStateView{Status: string(a.Status)}
	if a.ConfirmedAt != nil {
		s := a.ConfirmedAt.UTC().Format("2006-01-02T15:04:05Z07:00")
		v.ConfirmedAt = &s
	}
	if a.CancelledAt != nil {
		s := a.CancelledAt.UTC().Format("2006-01-02T15:04:05Z07:00")
		v.CancelledAt = &s
	}
	return v
}

func conflictBody(a *appointment.Appointment) map[string]interface{} {
	body := map[string]interface{}{"error": "já processado"}
	if a != nil {
		body["appointment"] = stateView(a)
	}
	return body
}

// ConfirmAppointment confirma presença via token (público, idempotente).
func (h *Handler) ConfirmAppointment(w http.ResponseWriter, r *http.Request) {
	token := mux.Vars(r)["token"]
	if token == "" {
		http.Error(w, `{"error":"token obrigatório"}`, http.StatusBadRequest)
		return
	}
	a, err := h.Appointments.Confirm(r.Context(), token, h.nowClinic())
	switch {
	case errors.Is(err, appointment.ErrNotFound):
		http.Error(w, `{"error":"link inválido"}`, http.StatusNotFound)
		return
	case errors.Is(err, appointment.ErrAlreadyProcessed):
		writeJSON(w, http.StatusConflict, conflictBody(a))
		return
	case err != nil:
		log.Printf("[confirmacao] Confirm: %v", err)
		http.Error(w, `{"error":"erro interno"}`, http.StatusInternalServerError)
		return
	}
	h.auditConfirmationAction(r, "APPOINTMENT_CONFIRMED_VIA_LINK", a)
	writeJSON(w, http.StatusOK, map[string]interface{}{
		"message": "Presença confirmada.", "appointment": stateView(a),
	})
}

// CancelAppointment cancela via token (público). Motivo opcional no corpo.
func (h *Handler) CancelAppointment(w http.ResponseWriter, r *http.Request) {
	token := mux.Vars(r)["token"]
	if token == "" {
		http.Error(w, `{"error":"token obrigatório"}`, http.StatusBadRequest)
		return
	}
	var req struct {
		Reason string `json:"reason"`
	}
	if r.Body != nil {
		// Corpo é opcional; erro de decode só importa se houver conteúdo malformado.
		if err := json.NewDecoder(r.Body).Decode(&req); err != nil && !errors.Is(err, io.EOF) {
			http.Error(w, `{"error":"corpo inválido"}`, http.StatusBadRequest)
			return
		}
	}
	a, err := h.Appointments.Cancel(r.Context(), token, req.Reason, h.nowClinic())
	switch {
	case errors.Is(err, appointment.ErrNotFound):
		http.Error(w, `{"error":"link inválido"}`, http.StatusNotFound)
		return
	case errors.Is(err, appointment.ErrAlreadyProcessed):
		writeJSON(w, http.StatusConflict, conflictBody(a))
		return
	case err != nil:
		log.Printf("[confirmacao] Cancel: %v", err)
		http.Error(w, `{"error":"erro interno"}`, http.StatusInternalServerError)
		return
	}
	h.auditConfirmationAction(r, "APPOINTMENT_CANCELLED_VIA_LINK", a)
	writeJSON(w, http.StatusOK, map[string]interface{}{
		"message": "Consulta cancelada.", "appointment": stateView(a),
	})
}

// auditConfirmationAction grava o evento da ação pública. O canal é anônimo;
// se houver JWT (equipe clicando o próprio link), o actor é enriquecido.
func (h *Handler) auditConfirmationAction(r *http.Request, action string, a *appointment.Appointment) {
	if h.DB == nil {
		return
	}
	ev := repo.AuditEvent{
		Action:       action,
		ActorType:    "PATIENT",
		ClinicID:     &a.ClinicID,
		RequestID:    middleware.RequestIDFromContext(r.Context()),
		ResourceType: strPtr("APPOINTMENT"),
		ResourceID:   &a.ID,
		PatientID:    &a.PatientID,
		Source:       strPtr("USER"),
		Metadata:     map[string]string{"via": "confirmation_link"},
	}
	if c := auth.ClaimsFrom(r.Context()); c != nil {
		ev.ActorType = c.Role
	}
	if err := repo.CreateAuditEvent(r.Context(), h.DB, ev); err != nil {
		log.Printf("[confirmacao] audit %s: %v", action, err)
	}
}
