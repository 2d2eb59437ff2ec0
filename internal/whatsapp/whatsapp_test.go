package whatsapp

import (
	"testing"
)

func TestSendConfirmationLink_NotConfigured_ReturnsNil(t *testing.T) {
	// Cliente sem credenciais não envia e retorna nil (no-op).
	c := NewClient(Config{})
	err := c.SendConfirmationLink("+5511999990000", "Maria", "12/02/2025", "14:30", "https://app.local/confirmar/abc")
	if err != nil {
		t.Errorf("SendConfirmationLink sem config deve retornar nil, got %v", err)
	}
}

func TestSendConfirmationLink_EmptyAccountSid_ReturnsNil(t *testing.T) {
	c := NewClient(Config{AuthToken: "token", From: "whatsapp:+15551234567"})
	err := c.SendConfirmationLink("+5511999990000", "Maria", "12/02/2025", "14:30", "https://app.local/confirmar/abc")
	if err != nil {
		t.Errorf("SendConfirmationLink sem AccountSid deve retornar nil, got %v", err)
	}
}

func TestSendConfirmationLink_EmptyFrom_ReturnsNil(t *testing.T) {
	c := NewClient(Config{AccountSid: "sid", AuthToken: "token"})
	err := c.SendConfirmationLink("+5511999990000", "Maria", "12/02/2025", "14:30", "https://app.local/confirmar/abc")
	if err != nil {
		t.Errorf("SendConfirmationLink sem From deve retornar nil, got %v", err)
	}
}

func TestNewClient_ReturnsClient(t *testing.T) {
	c := NewClient(Config{AccountSid: "sid", AuthToken: "token", From: "whatsapp:+15551234567"})
	if c == nil {
		t.Fatal("NewClient não deve retornar nil quando config preenchido")
	}
}
