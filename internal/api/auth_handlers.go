package api

import (
	"encoding/json"
	"errors"
	"log"
	"net/http"
	"time"

	"github.com/google/uuid"
	"github.com/tecmax-dev/sisvida-sub014/internal/auth"
	"github.com/tecmax-dev/sisvida-sub014/internal/repo"
	"gorm.io/gorm"
)

type loginRequest struct {
	Email    string `json:"email" validate:"required,email"`
	Password string `json:"password" validate:"required"`
}

type loginResponse struct {
	Token string   `json:"token"`
	User  userView `json:"user"`
}

type userView struct {
	ID       string  `json:"id"`
	Name     string  `json:"name"`
	Email    string  `json:"email"`
	Role     string  `json:"role"`
	ClinicID *string `json:"clinic_id,omitempty"`
}

func toUserView(p *repo.Professional) userView {
	v := userView{
		ID:    p.ID.String(),
		Name:  p.FullName,
		Email: p.Email,
		Role:  p.Role,
	}
	if p.ClinicID != nil {
		s := p.ClinicID.String()
		v.ClinicID = &s
	}
	return v
}

// Login autentica profissional ou super-admin e emite o JWT (12h).
func (h *Handler) Login(w http.ResponseWriter, r *http.Request) {
	var req loginRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		http.Error(w, `{"error":"json inválido"}`, http.StatusBadRequest)
		return
	}
	if err := h.validate.Struct(&req); err != nil {
		http.Error(w, `{"error":"email e password são obrigatórios"}`, http.StatusBadRequest)
		return
	}
	p, err := repo.ProfessionalByEmail(r.Context(), h.DB, req.Email)
	if errors.Is(err, gorm.ErrRecordNotFound) {
		http.Error(w, `{"error":"credenciais inválidas"}`, http.StatusUnauthorized)
		return
	}
	if err != nil {
		log.Printf("[auth] ProfessionalByEmail: %v", err)
		http.Error(w, `{"error":"internal"}`, http.StatusInternalServerError)
		return
	}
	if !auth.CheckPassword(p.PasswordHash, req.Password) {
		http.Error(w, `{"error":"credenciais inválidas"}`, http.StatusUnauthorized)
		return
	}
	var clinicID *string
	if p.ClinicID != nil {
		s := p.ClinicID.String()
		clinicID = &s
	}
	token, err := auth.BuildJWT(h.Cfg.JWTSecret, p.ID.String(), p.Role, clinicID, 12*time.Hour)
	if err != nil {
		log.Printf("[auth] BuildJWT: %v", err)
		http.Error(w, `{"error":"internal"}`, http.StatusInternalServerError)
		return
	}
	writeJSON(w, http.StatusOK, loginResponse{Token: token, User: toUserView(p)})
}

// Me devolve o usuário do token atual.
func (h *Handler) Me(w http.ResponseWriter, r *http.Request) {
	id, err := uuid.Parse(auth.UserIDFrom(r.Context()))
	if err != nil {
		http.Error(w, `{"error":"unauthorized"}`, http.StatusUnauthorized)
		return
	}
	p, err := repo.ProfessionalByID(r.Context(), h.DB, id)
	if errors.Is(err, gorm.ErrRecordNotFound) {
		http.Error(w, `{"error":"unauthorized"}`, http.StatusUnauthorized)
		return
	}
	if err != nil {
		http.Error(w, `{"error":"internal"}`, http.StatusInternalServerError)
		return
	}
	writeJSON(w, http.StatusOK, toUserView(p))
}

type forgotPasswordRequest struct {
	Email string `json:"email" validate:"required,email"`
}

// ForgotPassword emite um token de reset (1h) e envia o link por e-mail.
// Sempre responde 200 para não revelar quais e-mails existem.
func (h *Handler) ForgotPassword(w http.ResponseWriter, r *http.Request) {
	var req forgotPasswordRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		http.Error(w, `{"error":"json inválido"}`, http.StatusBadRequest)
		return
	}
	if err := h.validate.Struct(&req); err != nil {
		http.Error(w, `{"error":"email é obrigatório"}`, http.StatusBadRequest)
		return
	}
	resp := map[string]string{"message": "Se o e-mail existir, enviaremos as instruções."}
	p, err := repo.ProfessionalByEmail(r.Context(), h.DB, req.Email)
	if errors.Is(err, gorm.ErrRecordNotFound) {
		writeJSON(w, http.StatusOK, resp)
		return
	}
	if err != nil {
		log.Printf("[auth] ProfessionalByEmail: %v", err)
		http.Error(w, `{"error":"internal"}`, http.StatusInternalServerError)
		return
	}
	reset, err := repo.CreatePasswordReset(r.Context(), h.DB, p.ID, h.nowClinic().Add(1*time.Hour))
	if err != nil {
		log.Printf("[auth] CreatePasswordReset: %v", err)
		http.Error(w, `{"error":"internal"}`, http.StatusInternalServerError)
		return
	}
	if h.sendPasswordResetEmail != nil {
		resetURL := h.Cfg.AppPublicURL + "/redefinir-senha/" + reset.Token
		if err := h.sendPasswordResetEmail(p.Email, resetURL); err != nil {
			log.Printf("[auth] envio de e-mail de reset: %v", err)
		}
	}
	writeJSON(w, http.StatusOK, resp)
}

type resetPasswordRequest struct {
	Token    string `json:"token" validate:"required"`
	Password string `json:"password" validate:"required,min=8"`
}

// ResetPassword consome o token de reset e grava o novo hash.
func (h *Handler) ResetPassword(w http.ResponseWriter, r *http.Request) {
	var req resetPasswordRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		http.Error(w, `{"error":"json inválido"}`, http.StatusBadRequest)
		return
	}
	if err := h.validate.Struct(&req); err != nil {
		http.Error(w, `{"error":"token e password (mín. 8) são obrigatórios"}`, http.StatusBadRequest)
		return
	}
	reset, err := repo.ConsumePasswordReset(r.Context(), h.DB, req.Token, h.nowClinic())
	if errors.Is(err, gorm.ErrRecordNotFound) {
		http.Error(w, `{"error":"token inválido ou expirado"}`, http.StatusBadRequest)
		return
	}
	if err != nil {
		log.Printf("[auth] ConsumePasswordReset: %v", err)
		http.Error(w, `{"error":"internal"}`, http.StatusInternalServerError)
		return
	}
	hash, err := auth.HashPassword(req.Password)
	if err != nil {
		http.Error(w, `{"error":"internal"}`, http.StatusInternalServerError)
		return
	}
	if err := repo.UpdateProfessionalPassword(r.Context(), h.DB, reset.ProfessionalID, hash); err != nil {
		log.Printf("[auth] UpdateProfessionalPassword: %v", err)
		http.Error(w, `{"error":"internal"}`, http.StatusInternalServerError)
		return
	}
	writeJSON(w, http.StatusOK, map[string]string{"message": "Senha redefinida."})
}
