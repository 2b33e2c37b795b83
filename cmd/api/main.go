package main

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"os/signal"
	"syscall"
	"time"

	"voice-emotion-go/internal/api"
	"voice-emotion-go/internal/app"
	"voice-emotion-go/internal/config"
	"voice-emotion-go/internal/logger"
)

func main() {
	cfg, err := config.Load() // loads .env
	if err != nil {
		logger.New().WithError(err).Fatal("invalid configuration")
	}
	logger.Configure(cfg.Environment, cfg.LogLevel, cfg.LogFile)
	log := logger.New()
	log.WithField("service", "voice-emotion-go").Info("starting service")
	a, err := app.New(cfg)
	if err != nil {
		log.WithError(err).Fatal("failed to build components")
	}
	log.WithField("transcriber", cfg.Transcriber).
		WithField("normalizer", cfg.Normalizer).
		WithField("notifier", cfg.Notifier).
		Info("components ready")

	// load the classifier now so the first upload does not pay for it
	if m, err := a.Models.Model(); err != nil {
		log.WithError(err).Warn("sentiment model not ready; will retry on first request")
	} else {
		log.WithField("classes", m.Classes).WithField("placeholder", m.Placeholder).Info("sentiment model ready")
	}

	srv := &http.Server{
		Addr:         fmt.Sprintf(":%s", cfg.Port),
		Handler:      api.NewServer(cfg, a.Normalizer, a.Pipeline, a.Sink).Routes(),
		ReadTimeout:  15 * time.Second,
		WriteTimeout: 120 * time.Second,
		IdleTimeout:  120 * time.Second,
	}

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()
	go func() {
		<-ctx.Done()
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
		defer cancel()
		if err := srv.Shutdown(shutdownCtx); err != nil {
			log.WithError(err).Error("shutdown")
		}
	}()

	log.WithField("addr", srv.Addr).Info("listening")
	if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
		log.WithError(err).Fatal("server terminated")
	}
	log.Info("server stopped")
}
