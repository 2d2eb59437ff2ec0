package main

import (
	"context"
	"log"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/gorilla/mux"
	"github.com/tecmax-dev/sisvida-sub014/internal/api"
	"github.com/tecmax-dev/sisvida-sub014/internal/appointment"
	"github.com/tecmax-dev/sisvida-sub014/internal/auth"
	"github.com/tecmax-dev/sisvida-sub014/internal/cache"
	"github.com/tecmax-dev/sisvida-sub014/internal/config"
	"github.com/tecmax-dev/sisvida-sub014/internal/email"
	"github.com/tecmax-dev/sisvida-sub014/internal/middleware"
	"github.com/tecmax-dev/sisvida-sub014/internal/migrate"
	"github.com/tecmax-dev/sisvida-sub014/internal/repo"
	"github.com/tecmax-dev/sisvida-sub014/internal/seed"
	"gorm.io/driver/postgres"
	"gorm.io/gorm"
	"gorm.io/gorm/logger"
)

func main() {
	cfg := config.Load()
	port := cfg.Port
	if port == "" {
		port = "8080"
	}

	if cfg.DatabaseURL == "" {
		log.Fatal("DATABASE_URL é obrigatório")
	}
	db, err := gorm.Open(postgres.Open(cfg.DatabaseURL), &gorm.Config{
		Logger: logger.Default.LogMode(logger.Warn),
	})
	if err != nil {
		log.Fatalf("conexão postgres: %v", err)
	}
	sqlDB, err := db.DB()
	if err != nil {
		log.Fatalf("conexão postgres: %v", err)
	}
	defer sqlDB.Close()
	if err := sqlDB.PingContext(context.Background()); err != nil {
		log.Fatalf("ping postgres: %v", err)
	}
	if err := migrate.Run(context.Background(), db, "migrations"); err != nil {
		log.Fatalf("migrations: %v", err)
	}
	if err := seed.Run(context.Background(), db); err != nil {
		log.Printf("seed (ignorado se já aplicado): %v", err)
	}

	loc, err := time.LoadLocation(cfg.ClinicTZ)
	if err != nil {
		log.Printf("fuso %q inválido, usando UTC: %v", cfg.ClinicTZ, err)
		loc = time.UTC
	}

	r := mux.NewRouter()

	r.HandleFunc("/health", func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		w.WriteHeader(http.StatusOK)
		_, _ = w.Write([]byte(`{"status":"ok"}`))
	}).Methods(http.MethodGet)

	r.HandleFunc("/ready", func(w http.ResponseWriter, r *http.Request) {
		if err := sqlDB.PingContext(r.Context()); err != nil {
			w.WriteHeader(http.StatusServiceUnavailable)
			_, _ = w.Write([]byte(`{"status":"db unhealthy"}`))
			return
		}
		w.Header().Set("Content-Type", "application/json")
		w.WriteHeader(http.StatusOK)
		_, _ = w.Write([]byte(`{"status":"ready"}`))
	}).Methods(http.MethodGet)

	svc := &appointment.Service{Store: &repo.AppointmentStore{DB: db}}
	h := api.NewHandler(db, cfg, cache.New(30*time.Second), svc, loc)
	if cfg.AppPublicURL != "" {
		mailCfg := &email.Config{
			Host:     cfg.SMTPHost,
			Port:     email.PortFromString(cfg.SMTPPort),
			User:     cfg.SMTPUser,
			Pass:     cfg.SMTPPass,
			FromName: cfg.SMTPFromName,
			FromAddr: cfg.SMTPFromEmail,
		}
		mailCfg.LogConfigSummary()
		h.SetSendPasswordResetEmail(mailCfg.SendPasswordReset)
	} else {
		log.Printf("[email] Envio de e-mail desativado: APP_PUBLIC_URL vazio.")
	}

	apiRouter := r.PathPrefix("/api").Subrouter()
	apiRouter.HandleFunc("/auth/login", h.Login).Methods(http.MethodPost)
	apiRouter.HandleFunc("/auth/password/forgot", h.ForgotPassword).Methods(http.MethodPost)
	apiRouter.HandleFunc("/auth/password/reset", h.ResetPassword).Methods(http.MethodPost)

	// Canal público de confirmação: acessível só pelo token; se houver JWT,
	// enriquece a auditoria.
	optAuth := middleware.OptionalAuthMiddleware(cfg.JWTSecret)
	apiRouter.Handle("/appointments/confirm/{token}", optAuth(http.HandlerFunc(h.GetConfirmation))).Methods(http.MethodGet)
	apiRouter.Handle("/appointments/confirm/{token}/confirm", optAuth(http.HandlerFunc(h.ConfirmAppointment))).Methods(http.MethodPost)
	apiRouter.Handle("/appointments/confirm/{token}/cancel", optAuth(http.HandlerFunc(h.CancelAppointment))).Methods(http.MethodPost)

	protected := r.PathPrefix("/api").Subrouter()
	protected.Use(middleware.RequireAuthMiddleware(cfg.JWTSecret))
	protected.HandleFunc("/me", h.Me).Methods(http.MethodGet)
	staffRoles := []string{auth.RoleOwner, auth.RoleAdmin, auth.RoleProfessional, auth.RoleSuperAdmin}
	protected.Handle("/appointments", middleware.RequireRole(staffRoles...)(http.HandlerFunc(h.ListAppointments))).Methods(http.MethodGet)
	protected.Handle("/appointments", middleware.RequireRole(staffRoles...)(http.HandlerFunc(h.CreateAppointment))).Methods(http.MethodPost)
	protected.Handle("/appointments/{id}", middleware.RequireRole(staffRoles...)(http.HandlerFunc(h.PatchAppointment))).Methods(http.MethodPatch)
	protected.Handle("/reports/no-show", middleware.RequireRole(staffRoles...)(http.HandlerFunc(h.GetNoShowReport))).Methods(http.MethodGet)
	protected.Handle("/reports/productivity", middleware.RequireRole(staffRoles...)(http.HandlerFunc(h.GetProductivityReport))).Methods(http.MethodGet)
	protected.Handle("/patients/{patientId}/unblock", middleware.RequireRole(auth.RoleOwner, auth.RoleAdmin, auth.RoleSuperAdmin)(http.HandlerFunc(h.UnblockPatient))).Methods(http.MethodPost)
	protected.Handle("/backoffice/accrual/trigger", middleware.RequireRole(auth.RoleSuperAdmin)(http.HandlerFunc(h.TriggerAccrual))).Methods(http.MethodPost)
	protected.Handle("/backoffice/confirmation-links/trigger", middleware.RequireRole(auth.RoleSuperAdmin)(http.HandlerFunc(h.TriggerConfirmationLinks))).Methods(http.MethodPost)

	chain := middleware.RequestID(middleware.Recover(middleware.Timeout(cfg.RequestTimeoutSec)(middleware.CORS(cfg.CORSOrigins)(middleware.Gzip(r)))))

	srv := &http.Server{
		Addr:         ":" + port,
		Handler:      chain,
		ReadTimeout:  15 * time.Second,
		WriteTimeout: 15 * time.Second,
	}

	go func() {
		log.Printf("sisvida listening on :%s", port)
		if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			log.Fatal(err)
		}
	}()

	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit
	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	if err := srv.Shutdown(ctx); err != nil {
		log.Printf("shutdown: %v", err)
	}
	log.Println("sisvida stopped")
}
