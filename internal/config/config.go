package config

import (
	"os"
	"strconv"
	"strings"
)

type Config struct {
	Port              string
	DatabaseURL       string
	JWTSecret         []byte
	CORSOrigins       []string
	RequestTimeoutSec int
	// Fuso da clínica para cálculo de "amanhã" e dos períodos do relatório.
	ClinicTZ string
	// URL pública do frontend, usada no link /confirmar/{token}.
	AppPublicURL string
	// WhatsApp (Twilio) para envio do link de confirmação
	TwilioAccountSid   string
	TwilioAuthToken    string
	TwilioWhatsAppFrom string
	// SMTP para reset de senha
	SMTPHost      string
	SMTPPort      string
	SMTPUser      string
	SMTPPass      string
	SMTPFromName  string
	SMTPFromEmail string
	// Política de bloqueio por falta
	NoShowBlockThreshold int
	NoShowBlockDays      int
}

func Load() *Config {
	port := os.Getenv("PORT")
	if port == "" {
		port = "8080"
	}
	jwtSecret := os.Getenv("JWT_SECRET")
	if len(jwtSecret) < 32 {
		jwtSecret = "default-secret-min-32-chars-required!!"
	}
	cors := os.Getenv("CORS_ORIGINS")
	if cors == "" {
		cors = "http://localhost:5173"
	}
	var origins []string
	for _, o := range strings.Split(cors, ",") {
		if t := strings.TrimSpace(o); t != "" {
			origins = append(origins, t)
		}
	}
	return &Config{
		Port:                 port,
		DatabaseURL:          os.Getenv("DATABASE_URL"),
		JWTSecret:            []byte(jwtSecret),
		CORSOrigins:          origins,
		RequestTimeoutSec:    getEnvInt("REQUEST_TIMEOUT_SEC", 30),
		ClinicTZ:             getEnv("CLINIC_TZ", "America/Sao_Paulo"),
		AppPublicURL:         getEnv("APP_PUBLIC_URL", "http://localhost:5173"),
		TwilioAccountSid:     os.Getenv("TWILIO_ACCOUNT_SID"),
		TwilioAuthToken:      os.Getenv("TWILIO_AUTH_TOKEN"),
		TwilioWhatsAppFrom:   os.Getenv("TWILIO_WHATSAPP_FROM"),
		SMTPHost:             getEnv("SMTP_HOST", "localhost"),
		SMTPPort:             getEnv("SMTP_PORT", "1025"),
		SMTPUser:             os.Getenv("SMTP_USER"),
		SMTPPass:             os.Getenv("SMTP_PASS"),
		SMTPFromName:         getEnv("SMTP_FROM_NAME", "SisVida"),
		SMTPFromEmail:        getEnv("SMTP_FROM_EMAIL", "noreply@localhost"),
		NoShowBlockThreshold: getEnvInt("NO_SHOW_BLOCK_THRESHOLD", 3),
		NoShowBlockDays:      getEnvInt("NO_SHOW_BLOCK_DAYS", 30),
	}
}

func getEnv(k, d string) string {
	if v := os.Getenv(k); v != "" {
		return v
	}
	return d
}

func getEnvInt(k string, d int) int {
	if v := os.Getenv(k); v != "" {
		if n, err := strconv.Atoi(v); err == nil {
			return n
		}
	}
	return d
}
