package email

import (
	"bytes"
	"fmt"
	"log"
	"net/smtp"
	"strconv"
	"text/template"
)

type Config struct {
	Host     string
	Port     int
	User     string
	Pass     string
	FromName string
	FromAddr string
}

func (c *Config) Send(to, subject, body string) error {
	if to == "" {
		log.Printf("[email] erro de config: destinatário (to) vazio")
		return fmt.Errorf("destinatário de e-mail vazio")
	}
	if c.Host == "" {
		log.Printf("[email] erro de config: SMTP host vazio (destinatário=%s)", to)
		return fmt.Errorf("SMTP host não configurado")
	}
	if c.FromAddr == "" {
		log.Printf("[email] erro de config: SMTP FromAddr vazio (destinatário=%s)", to)
		return fmt.Errorf("SMTP remetente (From) não configurado")
	}
	port := c.Port
	if port == 0 {
		port = 25
	}
	addr := fmt.Sprintf("%s:%d", c.Host, port)
	from := c.FromAddr
	if c.FromName != "" {
		from = fmt.Sprintf("%s <%s>", c.FromName, c.FromAddr)
	}
	headers := map[string]string{
		"From":         from,
		"To":           to,
		"Subject":      subject,
		"Content-Type": "text/plain; charset=UTF-8",
	}
	var buf bytes.Buffer
	for k, v := range headers {
		buf.WriteString(k + ": " + v + "\r\n")
	}
	buf.WriteString("\r\n")
	buf.WriteString(body)
	err := smtp.SendMail(addr, c.authForSend(), c.FromAddr, []string{to}, buf.Bytes())
	if err != nil {
		log.Printf("[email] falha ao enviar para %s assunto=%q: %v", to, subject, err)
		return err
	}
	log.Printf("[email] enviado para %s assunto=%q", to, subject)
	return nil
}

// authForSend returns nil when User is empty (e.g. MailHog), so no AUTH is sent.
func (c *Config) authForSend() smtp.Auth {
	if c.User != "" {
		return smtp.PlainAuth("", c.User, c.Pass, c.Host)
	}
	return nil
}

func (c *Config) SendPasswordReset(to, resetURL string) error {
	if to == "" || resetURL == "" {
		log.Printf("[email] SendPasswordReset: to ou resetURL vazio")
		return fmt.Errorf("to ou resetURL vazio")
	}
	tpl := `Olá,

Você solicitou a redefinição de senha. Clique no link abaixo (válido por 1 hora):

{{.ResetURL}}

Se você não solicitou isso, ignore este e-mail.`
	t, err := template.New("").Parse(tpl)
	if err != nil {
		return err
	}
	var b bytes.Buffer
	if err := t.Execute(&b, map[string]string{"ResetURL": resetURL}); err != nil {
		return err
	}
	return c.Send(to, "Redefinição de senha - SisVida", b.String())
}

// LogConfigSummary loga um resumo da config SMTP (sem senha) para diagnóstico.
func (c *Config) LogConfigSummary() {
	auth := "não"
	if c.User != "" {
		auth = "sim (user=" + c.User + ")"
	}
	log.Printf("[email] config SMTP: host=%s port=%d from=%q auth=%s", c.Host, c.Port, c.FromAddr, auth)
	if c.Host == "" || c.FromAddr == "" {
		log.Printf("[email] aviso: host ou from vazio; envios podem falhar")
	}
}

// PortFromString converts an SMTP port string to int; invalid or empty returns 25.
func PortFromString(s string) int {
	if n, err := strconv.Atoi(s); err == nil && n > 0 {
		return n
	}
	return 25
}
