package api

import (
	"encoding/json"
	"net/http"
	"time"

	"github.com/go-playground/validator/v10"
	"github.com/google/uuid"
	"github.com/tecmax-dev/sisvida-sub014/internal/appointment"
	"github.com/tecmax-dev/sisvida-sub014/internal/auth"
	"github.com/tecmax-dev/sisvida-sub014/internal/cache"
	"github.com/tecmax-dev/sisvida-sub014/internal/config"
	"gorm.io/gorm"
)

type Handler struct {
	DB           *gorm.DB
	Cfg          *config.Config
	Cache        *cache.TTL
	Appointments *appointment.Service
	// Loc é o fuso da clínica; todo "now" de política sai daqui.
	Loc *time.Location

	validate               *validator.Validate
	now                    func() time.Time
	sendPasswordResetEmail func(to, resetURL string) error
}

func NewHandler(db *gorm.DB, cfg *config.Config, c *cache.TTL, svc *appointment.Service, loc *time.Location) *Handler {
	if loc == nil {
		loc = time.UTC
	}
	return &Handler{
		DB:           db,
		Cfg:          cfg,
		Cache:        c,
		Appointments: svc,
		Loc:          loc,
		validate:     validator.New(),
		now:          time.Now,
	}
}

func (h *Handler) SetNow(fn func() time.Time) { h.now = fn }
func (h *Handler) SetSendPasswordResetEmail(fn func(to, resetURL string) error) {
	h.sendPasswordResetEmail = fn
}

// nowClinic returns the current instant in the clinic timezone; policy code
// always receives it as a parameter.
func (h *Handler) nowClinic() time.Time {
	return h.now().In(h.Loc)
}

func writeJSON(w http.ResponseWriter, status int, v interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(v)
}

// clinicIDFromClaims resolves the caller's clinic. Returns uuid.Nil and a
// written response when absent/invalid.
func clinicIDFromClaims(w http.ResponseWriter, r *http.Request) (uuid.UUID, bool) {
	clinicIDStr := auth.ClinicIDFrom(r.Context())
	if clinicIDStr == nil || *clinicIDStr == "" {
		http.Error(w, `{"error":"no clinic"}`, http.StatusForbidden)
		return uuid.Nil, false
	}
	clinicID, err := uuid.Parse(*clinicIDStr)
	if err != nil {
		http.Error(w, `{"error":"invalid clinic"}`, http.StatusBadRequest)
		return uuid.Nil, false
	}
	return clinicID, true
}

func strPtr(s string) *string { return &s }
