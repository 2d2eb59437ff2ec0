package confirmlink

import (
	"context"
	"log"
	"strings"
	"time"

	"github.com/tecmax-dev/sisvida-sub014/internal/repo"
	"github.com/tecmax-dev/sisvida-sub014/internal/whatsapp"
	"gorm.io/gorm"
)

const auditActionLinkSent = "APPOINTMENT_CONFIRMATION_LINK_SENT"
const auditSourceSystem = "SYSTEM"

// WhatsAppSender sends the confirmation link to a phone number.
type WhatsAppSender interface {
	SendConfirmationLink(phone, patientName, dateStr, timeStr, link string) error
}

// AppointmentLister returns the AGENDADO appointments of a given date.
type AppointmentLister interface {
	ListAppointmentsForConfirmationLink(ctx context.Context, db *gorm.DB, date time.Time) ([]repo.ConfirmationLinkRow, error)
}

type repoLister struct{}

func (repoLister) ListAppointmentsForConfirmationLink(ctx context.Context, db *gorm.DB, date time.Time) ([]repo.ConfirmationLinkRow, error) {
	return repo.ListAppointmentsForConfirmationLink(ctx, db, date)
}

// SendConfirmationLinks loads the AGENDADO appointments of the given date
// (tomorrow in practice) and sends one WhatsApp link per appointment whose
// patient has a phone.
// appPublicURL: base URL do frontend (ex: https://app.example.com); o link
// público é appPublicURL + "/confirmar/{token}".
func SendConfirmationLinks(ctx context.Context, db *gorm.DB, date time.Time, sender WhatsAppSender, appPublicURL string) (sent int, skipped int) {
	return SendConfirmationLinksWithLister(ctx, db, date, sender, repoLister{}, appPublicURL)
}

// SendConfirmationLinksWithLister is like SendConfirmationLinks but accepts a lister for tests.
func SendConfirmationLinksWithLister(ctx context.Context, db *gorm.DB, date time.Time, sender WhatsAppSender, lister AppointmentLister, appPublicURL string) (sent int, skipped int) {
	rows, err := lister.ListAppointmentsForConfirmationLink(ctx, db, date)
	if err != nil {
		log.Printf("[confirmlink] ListAppointmentsForConfirmationLink: %v", err)
		return 0, 0
	}
	if sender == nil {
		log.Printf("[confirmlink] WhatsApp not configured, would send %d links", len(rows))
		return 0, len(rows)
	}
	base := strings.TrimSuffix(appPublicURL, "/")
	dateStr := date.Format("02/01/2006")
	for _, r := range rows {
		link := base + "/confirmar/" + r.ConfirmationToken
		if err := sender.SendConfirmationLink(r.PatientPhone, r.PatientName, dateStr, repo.TimeStringToHHMM(r.StartTime), link); err != nil {
			log.Printf("[confirmlink] send failed appointment=%s phone=%s: %v", r.AppointmentID, r.PatientPhone, err)
			skipped++
			continue
		}
		sent++
		log.Printf("[confirmlink] sent appointment=%s to %s", r.AppointmentID, r.PatientPhone)
		if db != nil {
			_ = repo.CreateAuditEvent(ctx, db, repo.AuditEvent{
				Action:       auditActionLinkSent,
				ActorType:    auditSourceSystem,
				ResourceType: strPtr("APPOINTMENT"),
				ResourceID:   &r.AppointmentID,
				PatientID:    &r.PatientID,
				Source:       strPtr(auditSourceSystem),
				Metadata:     map[string]string{"appointment_id": r.AppointmentID.String()},
			})
		}
	}
	return sent, skipped
}

func strPtr(s string) *string { return &s }

// DefaultWhatsAppSender returns a whatsapp.Client from the given config, or nil if not configured.
func DefaultWhatsAppSender(accountSid, authToken, from string) WhatsAppSender {
	if accountSid == "" || authToken == "" || from == "" {
		return nil
	}
	return whatsapp.NewClient(whatsapp.Config{
		AccountSid: accountSid,
		AuthToken:  authToken,
		From:       from,
	})
}
