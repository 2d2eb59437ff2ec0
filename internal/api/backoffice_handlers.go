package api

import (
	"net/http"

	"github.com/tecmax-dev/sisvida-sub014/internal/accrual"
	"github.com/tecmax-dev/sisvida-sub014/internal/confirmlink"
)

// TriggerAccrual roda o job de bloqueio por faltas sob demanda (super-admin).
func (h *Handler) TriggerAccrual(w http.ResponseWriter, r *http.Request) {
	now := h.nowClinic()
	blocked := accrual.Run(r.Context(), h.DB, h.Cfg.NoShowBlockThreshold, h.Cfg.NoShowBlockDays, now)
	writeJSON(w, http.StatusOK, map[string]interface{}{"blocked": blocked})
}

// TriggerConfirmationLinks dispara o envio dos links de confirmação de
// amanhã por WhatsApp sob demanda (super-admin).
func (h *Handler) TriggerConfirmationLinks(w http.ResponseWriter, r *http.Request) {
	tomorrow := h.nowClinic().AddDate(0, 0, 1)
	sender := confirmlink.DefaultWhatsAppSender(h.Cfg.TwilioAccountSid, h.Cfg.TwilioAuthToken, h.Cfg.TwilioWhatsAppFrom)
	sent, skipped := confirmlink.SendConfirmationLinks(r.Context(), h.DB, tomorrow, sender, h.Cfg.AppPublicURL)
	writeJSON(w, http.StatusOK, map[string]interface{}{"sent": sent, "skipped": skipped})
}
