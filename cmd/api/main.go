package main

import (
	"context"
	"errors"
	"net/http"
	"os/signal"
	"slotbook/cmd/internal/app"
	"slotbook/cmd/internal/config"
	"slotbook/cmd/internal/events"
	"slotbook/cmd/internal/jobs"
	"slotbook/cmd/internal/logger"
	"slotbook/cmd/internal/metrics"
	"slotbook/cmd/internal/obs"
	"syscall"
	"time"

	"github.com/labstack/gommon/log"
	"go.uber.org/zap"
)

func main() {
	cfg, err := config.Load()
	if err != nil {
		log.Fatal("failed to load configuration: ", err)
	}

	if err := logger.Init(cfg.LogLevel, cfg.Env, cfg.ServiceName); err != nil {
		log.Fatal("failed to initialize logger: ", err)
	}
	defer logger.Sync()
	lg := logger.Get()
	lg.Info("starting", cfg.LogFields()...)

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	db, err := app.OpenDB(cfg)
	if err != nil {
		lg.Fatal("failed to initialize database", zap.Error(err))
	}

	shutdownTracer, err := obs.InitTracer(ctx, cfg.ServiceName, cfg.Env, cfg.OTLPEndpoint)
	if err != nil {
		lg.Fatal("failed to initialize tracing", zap.Error(err))
	}

	var publisher events.Publisher = events.NopPublisher{}
	if cfg.RabbitURL != "" {
		publisher, err = events.NewAMQPPublisher(cfg.RabbitURL, cfg.BookingExchange)
		if err != nil {
			lg.Fatal("failed to connect to rabbitmq", zap.Error(err))
		}
	}

	metrics.Register()
	a := app.New(cfg, db, publisher)

	scheduler := jobs.NewScheduler()
	if err := scheduler.Schedule(cfg.PurgeSchedule, a.Purge); err != nil {
		lg.Fatal("failed to schedule idempotency purge", zap.Error(err))
	}
	scheduler.Start()

	go func() {
		if err := a.Echo.Start(cfg.HTTPAddr); err != nil && !errors.Is(err, http.ErrServerClosed) {
			lg.Fatal("http server stopped", zap.Error(err))
		}
	}()

	<-ctx.Done()
	lg.Info("shutting down")

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()

	if err := a.Echo.Shutdown(shutdownCtx); err != nil {
		lg.Error("http shutdown", zap.Error(err))
	}
	scheduler.Stop()
	if err := publisher.Close(); err != nil {
		lg.Error("close publisher", zap.Error(err))
	}
	if err := shutdownTracer(shutdownCtx); err != nil {
		lg.Error("tracer shutdown", zap.Error(err))
	}
	if sqlDB, err := db.DB(); err == nil {
		_ = sqlDB.Close()
	}
}
