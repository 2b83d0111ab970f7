package main

import (
	"context"
	"errors"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/candelahq/booking-engine/internal/app"
	"github.com/candelahq/booking-engine/internal/clock"
	"github.com/candelahq/booking-engine/internal/config"
	"github.com/candelahq/booking-engine/internal/events"
	"github.com/candelahq/booking-engine/internal/storage/postgres"
	transporthttp "github.com/candelahq/booking-engine/internal/transport/http"
	"github.com/candelahq/booking-engine/migrations"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/sirupsen/logrus"
)

func main() {
	logger := logrus.New()
	logger.SetFormatter(&logrus.TextFormatter{FullTimestamp: true})

	cfg, err := config.Load()
	if err != nil {
		logger.WithError(err).Fatal("load config")
	}

	if level, err := logrus.ParseLevel(cfg.LogLevel); err == nil {
		logger.SetLevel(level)
	} else {
		logger.WithField("level", cfg.LogLevel).Warn("unknown log level, using info")
	}
	if cfg.JWTSecret == "" {
		logger.Warn("JWT_SECRET not set, trusting X-Tenant-ID header (development only)")
	}

	startupCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	pool, err := pgxpool.New(startupCtx, cfg.DatabaseURL)
	if err != nil {
		logger.WithError(err).Fatal("connect to db")
	}
	defer pool.Close()

	if err := pool.Ping(startupCtx); err != nil {
		logger.WithError(err).Fatal("db ping")
	}
	if err := migrations.Apply(startupCtx, pool); err != nil {
		logger.WithError(err).Fatal("apply migrations")
	}

	var publisher *events.Publisher
	if len(cfg.KafkaBrokers) > 0 {
		publisher, err = events.New(cfg.KafkaBrokers, cfg.KafkaTopic, logger)
		if err != nil {
			logger.WithError(err).Fatal("kafka publisher")
		}
		defer func() { _ = publisher.Close() }()
	} else {
		logger.Warn("KAFKA_BROKERS not set, lifecycle events disabled")
	}

	bookingRepo := postgres.NewBookingRepository(pool)
	resourceRepo := postgres.NewResourceRepository(pool)

	opts := []app.BookingServiceOption{app.WithLogger(logger)}
	if publisher != nil {
		opts = append(opts, app.WithEventPublisher(publisher))
	}
	bookingSvc := app.NewBookingService(bookingRepo, clock.NewSystem(), opts...)
	registrySvc := app.NewRegistryService(resourceRepo)
	conflictSvc := app.NewConflictDetector(bookingRepo)
	capacitySvc := app.NewCapacityCalculator(bookingRepo)
	selectorSvc := app.NewSelector(bookingRepo, conflictSvc, capacitySvc)
	batchSvc := app.NewBatchOptimizer(selectorSvc, bookingSvc, capacitySvc)

	handler := transporthttp.NewRouter(transporthttp.Services{
		Registry:    registrySvc,
		Capacity:    capacitySvc,
		Bookings:    bookingSvc,
		Selector:    selectorSvc,
		Batch:       batchSvc,
		JWTSecret:   cfg.JWTSecret,
		CORSOrigins: cfg.CORSOrigins,
		Logger:      logger,
	})

	server := &http.Server{
		Addr:    ":" + cfg.Port,
		Handler: handler,
	}

	logger.WithField("port", cfg.Port).Info("api listening")

	srvErr := make(chan error, 1)
	go func() {
		srvErr <- server.ListenAndServe()
	}()

	stopCtx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	select {
	case err := <-srvErr:
		if err != nil && !errors.Is(err, http.ErrServerClosed) {
			logger.WithError(err).Error("server error")
		}
	case <-stopCtx.Done():
		logger.Info("shutdown signal received, stopping server")
	}

	shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), cfg.ShutdownTimeout)
	defer shutdownCancel()
	if err := server.Shutdown(shutdownCtx); err != nil && !errors.Is(err, http.ErrServerClosed) {
		logger.WithError(err).Error("server shutdown error")
	}
	logger.Info("server stopped")
}
