package api

import (
	"encoding/json"
	"errors"
	"log"
	"net/http"
	"time"

	"github.com/google/uuid"
	"github.com/gorilla/mux"
	"github.com/tecmax-dev/sisvida-sub014/internal/appointment"
	"github.com/tecmax-dev/sisvida-sub014/internal/auth"
	"github.com/tecmax-dev/sisvida-sub014/internal/middleware"
	"github.com/tecmax-dev/sisvida-sub014/internal/repo"
	"gorm.io/gorm"
)

type appointmentView struct {
	ID                 string  `json:"id"`
	ProfessionalID     string  `json:"professional_id"`
	PatientID          string  `json:"patient_id"`
	ProcedureID        *string `json:"procedure_id,omitempty"`
	Date               string  `json:"date"`
	StartTime          string  `json:"start_time"`
	EndTime            string  `json:"end_time"`
	Status             string  `json:"status"`
	ConfirmedAt        *string `json:"confirmed_at,omitempty"`
	CancelledAt        *string `json:"cancelled_at,omitempty"`
	CancellationReason *string `json:"cancellation_reason,omitempty"`
}

func toAppointmentView(a *appointment.Appointment) appointmentView {
	v := appointmentView{
		ID:                 a.ID.String(),
		ProfessionalID:     a.ProfessionalID.String(),
		PatientID:          a.PatientID.String(),
		Date:               a.Date.Format("2006-01-02"),
		StartTime:          repo.TimeStringToHHMM(a.StartTime),
		EndTime:            repo.TimeStringToHHMM(a.EndTime),
		Status:             string(a.Status),
		CancellationReason: a.CancellationReason,
	}
	if a.ProcedureID != nil {
		s := a.ProcedureID.String()
		v.ProcedureID = &s
	}
	if a.ConfirmedAt != nil {
		s := a.ConfirmedAt.UTC().Format(time.RFC3339)
		v.ConfirmedAt = &s
	}
	if a.CancelledAt != nil {
		s := a.CancelledAt.UTC().Format(time.RFC3339)
		v.CancelledAt = &s
	}
	return v
}

// ListAppointments lista a agenda da clínica em [from, to]; filtro opcional
// por profissional via query professional_id.
func (h *Handler) ListAppointments(w http.ResponseWriter, r *http.Request) {
	clinicID, ok := clinicIDFromClaims(w, r)
	if !ok {
		return
	}
	q := r.URL.Query()
	from, err := time.ParseInLocation("2006-01-02", q.Get("from"), h.Loc)
	if err != nil {
		http.Error(w, `{"error":"from deve ser YYYY-MM-DD"}`, http.StatusBadRequest)
		return
	}
	to, err := time.ParseInLocation("2006-01-02", q.Get("to"), h.Loc)
	if err != nil {
		http.Error(w, `{"error":"to deve ser YYYY-MM-DD"}`, http.StatusBadRequest)
		return
	}
	var professionalID *uuid.UUID
	if s := q.Get("professional_id"); s != "" {
		id, perr := uuid.Parse(s)
		if perr != nil {
			http.Error(w, `{"error":"professional_id inválido"}`, http.StatusBadRequest)
			return
		}
		professionalID = &id
	}
	list, err := repo.ListAppointmentsByClinic(r.Context(), h.DB, clinicID, from, to, professionalID)
	if err != nil {
		log.Printf("[agenda] ListAppointmentsByClinic: %v", err)
		http.Error(w, `{"error":"internal"}`, http.StatusInternalServerError)
		return
	}
	views := make([]appointmentView, 0, len(list))
	for _, a := range list {
		views = append(views, toAppointmentView(a))
	}
	writeJSON(w, http.StatusOK, map[string]interface{}{"appointments": views})
}

type createAppointmentRequest struct {
	ProfessionalID string  `json:"professional_id" validate:"required,uuid"`
	PatientID      string  `json:"patient_id" validate:"required,uuid"`
	ProcedureID    *string `json:"procedure_id" validate:"omitempty,uuid"`
	Date           string  `json:"date" validate:"required,datetime=2006-01-02"`
	StartTime      string  `json:"start_time" validate:"required"`
	EndTime        string  `json:"end_time" validate:"required"`
}

// CreateAppointment agenda um novo compromisso (status AGENDADO) e gera o
// token público de confirmação.
func (h *Handler) CreateAppointment(w http.ResponseWriter, r *http.Request) {
	clinicID, ok := clinicIDFromClaims(w, r)
	if !ok {
		return
	}
	var req createAppointmentRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		http.Error(w, `{"error":"json inválido"}`, http.StatusBadRequest)
		return
	}
	if err := h.validate.Struct(&req); err != nil {
		http.Error(w, `{"error":"campos obrigatórios: professional_id, patient_id, date, start_time, end_time"}`, http.StatusBadRequest)
		return
	}
	professionalID, _ := uuid.Parse(req.ProfessionalID)
	patientID, _ := uuid.Parse(req.PatientID)
	var procedureID *uuid.UUID
	if req.ProcedureID != nil {
		id, err := uuid.Parse(*req.ProcedureID)
		if err != nil {
			http.Error(w, `{"error":"procedure_id inválido"}`, http.StatusBadRequest)
			return
		}
		procedureID = &id
	}
	date, _ := time.ParseInLocation("2006-01-02", req.Date, h.Loc)

	// O paciente precisa pertencer à clínica do chamador.
	if _, err := repo.PatientByIDAndClinic(r.Context(), h.DB, patientID, clinicID); err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			http.Error(w, `{"error":"paciente não encontrado"}`, http.StatusNotFound)
			return
		}
		http.Error(w, `{"error":"internal"}`, http.StatusInternalServerError)
		return
	}

	a, err := repo.CreateAppointment(r.Context(), h.DB, clinicID, professionalID, patientID, procedureID, date, req.StartTime, req.EndTime)
	if err != nil {
		log.Printf("[agenda] CreateAppointment: %v", err)
		http.Error(w, `{"error":"internal"}`, http.StatusInternalServerError)
		return
	}
	if h.Cache != nil {
		h.Cache.DeletePrefix("report:")
	}
	writeJSON(w, http.StatusCreated, toAppointmentView(a))
}

type patchAppointmentRequest struct {
	Status    *string `json:"status"`
	Reason    *string `json:"reason"`
	Date      *string `json:"date"`
	StartTime *string `json:"start_time"`
	EndTime   *string `json:"end_time"`
}

// PatchAppointment aplica transição de status (pela mesma tabela de
// transições do canal público) ou remarca data/horários.
func (h *Handler) PatchAppointment(w http.ResponseWriter, r *http.Request) {
	clinicID, ok := clinicIDFromClaims(w, r)
	if !ok {
		return
	}
	id, err := uuid.Parse(mux.Vars(r)["id"])
	if err != nil {
		http.Error(w, `{"error":"invalid id"}`, http.StatusBadRequest)
		return
	}
	var req patchAppointmentRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		http.Error(w, `{"error":"json inválido"}`, http.StatusBadRequest)
		return
	}

	if req.Status != nil {
		a, terr := h.Appointments.StaffTransition(r.Context(), id, clinicID, appointment.Status(*req.Status), req.Reason, h.nowClinic())
		switch {
		case errors.Is(terr, appointment.ErrInvalidTransition):
			http.Error(w, `{"error":"transição inválida"}`, http.StatusBadRequest)
			return
		case errors.Is(terr, appointment.ErrNotFound):
			http.Error(w, `{"error":"compromisso não encontrado"}`, http.StatusNotFound)
			return
		case errors.Is(terr, appointment.ErrAlreadyProcessed):
			body := map[string]interface{}{"error": "já processado"}
			if a != nil {
				body["state"] = toAppointmentView(a)
			}
			writeJSON(w, http.StatusConflict, body)
			return
		case terr != nil:
			log.Printf("[agenda] StaffTransition: %v", terr)
			http.Error(w, `{"error":"internal"}`, http.StatusInternalServerError)
			return
		}
		h.auditStaffTransition(r, a)
		if h.Cache != nil {
			h.Cache.DeletePrefix("report:")
		}
		writeJSON(w, http.StatusOK, toAppointmentView(a))
		return
	}

	if req.Date == nil || req.StartTime == nil || req.EndTime == nil {
		http.Error(w, `{"error":"informe status ou date+start_time+end_time"}`, http.StatusBadRequest)
		return
	}
	date, derr := time.ParseInLocation("2006-01-02", *req.Date, h.Loc)
	if derr != nil {
		http.Error(w, `{"error":"date deve ser YYYY-MM-DD"}`, http.StatusBadRequest)
		return
	}
	err = repo.RescheduleAppointment(r.Context(), h.DB, id, clinicID, date, *req.StartTime, *req.EndTime)
	if errors.Is(err, gorm.ErrRecordNotFound) {
		http.Error(w, `{"error":"compromisso não encontrado"}`, http.StatusNotFound)
		return
	}
	if err != nil {
		log.Printf("[agenda] RescheduleAppointment: %v", err)
		http.Error(w, `{"error":"internal"}`, http.StatusInternalServerError)
		return
	}
	a, err := repo.AppointmentByIDAndClinic(r.Context(), h.DB, id, clinicID)
	if err != nil {
		http.Error(w, `{"error":"internal"}`, http.StatusInternalServerError)
		return
	}
	if h.Cache != nil {
		h.Cache.DeletePrefix("report:")
	}
	writeJSON(w, http.StatusOK, toAppointmentView(a))
}

func (h *Handler) auditStaffTransition(r *http.Request, a *appointment.Appointment) {
	if h.DB == nil {
		return
	}
	var actorID *uuid.UUID
	if id, err := uuid.Parse(auth.UserIDFrom(r.Context())); err == nil {
		actorID = &id
	}
	if err := repo.CreateAuditEvent(r.Context(), h.DB, repo.AuditEvent{
		Action:       "APPOINTMENT_STATUS_" + string(a.Status),
		ActorType:    auth.RoleFrom(r.Context()),
		ActorID:      actorID,
		ClinicID:     &a.ClinicID,
		RequestID:    middleware.RequestIDFromContext(r.Context()),
		ResourceType: strPtr("APPOINTMENT"),
		ResourceID:   &a.ID,
		PatientID:    &a.PatientID,
		Source:       strPtr("USER"),
	}); err != nil {
		log.Printf("[agenda] audit: %v", err)
	}
}
