package confirmlink

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/tecmax-dev/sisvida-sub014/internal/repo"
	"gorm.io/gorm"
)

type fakeLister struct {
	rows []repo.ConfirmationLinkRow
	err  error
}

func (f fakeLister) ListAppointmentsForConfirmationLink(ctx context.Context, db *gorm.DB, date time.Time) ([]repo.ConfirmationLinkRow, error) {
	return f.rows, f.err
}

type sentMsg struct {
	phone, name, date, time, link string
}

type fakeSender struct {
	sent    []sentMsg
	failFor string // phone that errors
}

func (f *fakeSender) SendConfirmationLink(phone, patientName, dateStr, timeStr, link string) error {
	if phone == f.failFor {
		return errors.New("twilio: 400")
	}
	f.sent = append(f.sent, sentMsg{phone, patientName, dateStr, timeStr, link})
	return nil
}

func linkRow(phone, token string) repo.ConfirmationLinkRow {
	return repo.ConfirmationLinkRow{
		AppointmentID:     uuid.New(),
		PatientID:         uuid.New(),
		PatientName:       "Maria",
		PatientPhone:      phone,
		StartTime:         "09:30:00",
		ConfirmationToken: token,
	}
}

func TestSendConfirmationLinks_BuildsLink(t *testing.T) {
	lister := fakeLister{rows: []repo.ConfirmationLinkRow{linkRow("+5511999990000", "abc123")}}
	sender := &fakeSender{}
	date := time.Date(2024, 3, 16, 0, 0, 0, 0, time.UTC)

	sent, skipped := SendConfirmationLinksWithLister(context.Background(), nil, date, sender, lister, "https://app.example.com/")
	if sent != 1 || skipped != 0 {
		t.Fatalf("sent=%d skipped=%d", sent, skipped)
	}
	got := sender.sent[0]
	if got.link != "https://app.example.com/confirmar/abc123" {
		t.Errorf("link = %q", got.link)
	}
	if got.date != "16/03/2024" {
		t.Errorf("date = %q", got.date)
	}
	if got.time != "09:30" {
		t.Errorf("time = %q", got.time)
	}
}

func TestSendConfirmationLinks_SkipsFailures(t *testing.T) {
	lister := fakeLister{rows: []repo.ConfirmationLinkRow{
		linkRow("+5511999990000", "t1"),
		linkRow("+5511888880000", "t2"),
	}}
	sender := &fakeSender{failFor: "+5511999990000"}
	date := time.Date(2024, 3, 16, 0, 0, 0, 0, time.UTC)

	sent, skipped := SendConfirmationLinksWithLister(context.Background(), nil, date, sender, lister, "https://app.example.com")
	if sent != 1 || skipped != 1 {
		t.Fatalf("sent=%d skipped=%d", sent, skipped)
	}
}

func TestSendConfirmationLinks_NilSenderCountsSkipped(t *testing.T) {
	lister := fakeLister{rows: []repo.ConfirmationLinkRow{linkRow("+55", "t1"), linkRow("+55", "t2")}}
	date := time.Date(2024, 3, 16, 0, 0, 0, 0, time.UTC)

	sent, skipped := SendConfirmationLinksWithLister(context.Background(), nil, date, nil, lister, "")
	if sent != 0 || skipped != 2 {
		t.Fatalf("sent=%d skipped=%d", sent, skipped)
	}
}
