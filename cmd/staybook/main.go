package main

import (
	"context"
	"errors"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/joho/godotenv"

	appoutbox "staybook/internal/app/outbox"
	"staybook/internal/app/ratings"
	"staybook/internal/app/reservations"
	"staybook/internal/domain/booking"
	"staybook/internal/infra/config"
	ginserver "staybook/internal/infra/http/gin"
	"staybook/internal/infra/obs"
)

func main() {
	_ = godotenv.Load()

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	cfg, err := config.Load()
	if err != nil {
		slog.Error("configuration invalid", "error", err)
		os.Exit(1)
	}
	logger := obs.NewLogger(cfg.Env)

	store, err := buildStorage(ctx, cfg)
	if err != nil {
		logger.Error("storage init failed", "error", err)
		os.Exit(1)
	}
	defer store.close()

	locker := buildLocker(cfg, logger)

	aggregator := &ratings.Aggregator{
		Bookings:   store.bookings,
		Properties: store.properties,
		Locker:     locker,
		Logger:     logger,
	}

	svc := &reservations.Service{
		Bookings:     store.bookings,
		Properties:   store.properties,
		Availability: reservations.AvailabilityChecker{Bookings: store.bookings},
		Codes:        booking.CodeGenerator{Index: store.bookings},
		Locker:       locker,
		Outbox:       store.outbox,
		Encoder:      appoutbox.JSONEventEncoder{},
		Ratings:      aggregator,
		Policy:       booking.RefundPolicy{CancelPending: cfg.CancelPending},
		Logger:       logger,
	}

	startKafka(ctx, cfg, store, svc, logger)

	server := ginserver.NewServer(cfg, obs.Middleware{Logger: logger}, obs.HealthHandlers{
		Ready: store.ready,
	}, ginserver.Handlers{
		Booking: ginserver.BookingHandler{Service: svc},
	})

	go func() {
		<-ctx.Done()
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		if err := server.Shutdown(shutdownCtx); err != nil {
			logger.Error("http shutdown failed", "error", err)
		}
	}()

	logger.Info("HTTP server starting", "addr", cfg.HTTPAddr, "env", cfg.Env)
	if err := server.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
		logger.Error("http server failed", "error", err)
		os.Exit(1)
	}
	logger.Info("HTTP server stopped")
}
