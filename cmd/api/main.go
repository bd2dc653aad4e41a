package main

import (
	"context"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/quantalab/lims-api/internal/config"
	appointmentHandler "github.com/quantalab/lims-api/internal/handler/appointment"
	catalogHandler "github.com/quantalab/lims-api/internal/handler/catalog"
	healthHandler "github.com/quantalab/lims-api/internal/handler/health"
	testResultHandler "github.com/quantalab/lims-api/internal/handler/testresult"
	"github.com/quantalab/lims-api/internal/middleware"
	"github.com/quantalab/lims-api/internal/notification"
	"github.com/quantalab/lims-api/internal/repository/postgres"
	"github.com/quantalab/lims-api/internal/router"
	appointmentService "github.com/quantalab/lims-api/internal/service/appointment"
	"github.com/quantalab/lims-api/internal/service/audit"
	catalogService "github.com/quantalab/lims-api/internal/service/catalog"
	"github.com/quantalab/lims-api/internal/service/identity"
	testResultService "github.com/quantalab/lims-api/internal/service/testresult"
	"github.com/quantalab/lims-api/pkg/logger"
	"github.com/quantalab/lims-api/pkg/metrics"
)

func main() {
	cfg, err := config.Load()
	if err != nil {
		fmt.Fprintf(os.Stderr, "failed to load configuration: %v\n", err)
		os.Exit(1)
	}

	log := logger.NewLogger(&logger.Config{
		Level:      logger.ParseLevel(cfg.LogLevel),
		TimeFormat: time.RFC3339,
		Output:     os.Stdout,
	})

	db, err := postgres.NewDB(cfg.Database)
	if err != nil {
		log.Fatal(err, "failed to connect to database")
	}
	defer db.Close()

	accountRepo := postgres.NewAccountRepository(db)
	serviceRepo := postgres.NewServiceRepository(db)
	appointmentRepo := postgres.NewAppointmentRepository(db)
	testResultRepo := postgres.NewTestResultRepository(db)
	outboxRepo := postgres.NewOutboxRepository(db)

	m := metrics.NewMetrics("lims")

	resolver := identity.NewResolver(accountRepo, appointmentRepo)
	auditor := audit.NewRecorder(outboxRepo, log)
	catalogSvc := catalogService.NewService(serviceRepo)
	appointmentSvc := appointmentService.NewService(appointmentRepo, resolver, catalogSvc, auditor, m)

	mailer := notification.NewMailer(notification.SMTPConfig{
		Host:     cfg.SMTP.Host,
		Port:     cfg.SMTP.Port,
		Username: cfg.SMTP.Username,
		Password: cfg.SMTP.Password,
		From:     cfg.SMTP.From,
	})
	testResultSvc := testResultService.NewService(testResultRepo, accountRepo, resolver, auditor, mailer, log, m)

	auth := middleware.NewAuthMiddleware(cfg.JWT.Secret)

	r := router.New(
		router.Config{
			Mode:           cfg.Server.Mode,
			RateLimitRPS:   cfg.RateLimit.RPS,
			RateLimitBurst: cfg.RateLimit.Burst,
		},
		auth,
		healthHandler.NewHandler(db),
		catalogHandler.NewHandler(catalogSvc),
		appointmentHandler.NewHandler(appointmentSvc),
		testResultHandler.NewHandler(testResultSvc),
	)
	r.Setup()

	srv := &http.Server{
		Addr:         fmt.Sprintf(":%d", cfg.Server.Port),
		Handler:      r.Engine(),
		ReadTimeout:  time.Duration(cfg.Server.TimeoutSeconds) * time.Second,
		WriteTimeout: time.Duration(cfg.Server.TimeoutSeconds) * time.Second,
	}

	go func() {
		log.Info("starting API server", "port", cfg.Server.Port)
		if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			log.Fatal(err, "server failed")
		}
	}()

	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit

	log.Info("shutting down server")
	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	if err := srv.Shutdown(ctx); err != nil {
		log.Error(err, "forced shutdown")
	}
}
