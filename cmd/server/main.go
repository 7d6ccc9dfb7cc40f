package main

import (
	"context"
	"io"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/vytor/stepple/internal/aggregator"
	"github.com/vytor/stepple/internal/api"
	"github.com/vytor/stepple/internal/auth"
	"github.com/vytor/stepple/internal/config"
	"github.com/vytor/stepple/internal/db"
	"github.com/vytor/stepple/internal/docstore"
	"github.com/vytor/stepple/internal/googlefit"
	"github.com/vytor/stepple/internal/jobs"
	"github.com/vytor/stepple/internal/logger"
	"github.com/vytor/stepple/internal/scheduler"
	"github.com/vytor/stepple/internal/services"
	"github.com/vytor/stepple/internal/stepstore"
	"github.com/vytor/stepple/internal/worker"
)

func main() {
	cfg := config.Load()

	var out io.Writer = os.Stdout
	colors := true
	if cfg.LogFile != "" {
		file := logger.RotatingFile(cfg.LogFile, cfg.LogMaxSizeMB)
		defer file.Close()
		out = io.MultiWriter(os.Stdout, file)
		colors = false
	}

	log := logger.New(
		logger.WithLevel(logger.ParseLevel(cfg.LogLevel)),
		logger.WithColors(colors),
		logger.WithOutput(out),
	)
	logger.SetDefault(log)

	log.Info("===========================================")
	log.Info("Stepple Server Starting")
	log.Info("===========================================")

	if err := cfg.Validate(); err != nil {
		log.Error("invalid configuration: %v", err)
		os.Exit(1)
	}
	if cfg.AuthSecret == "" {
		log.Error("AUTH_SECRET must be set")
		os.Exit(1)
	}
	if cfg.AdminToken == "" {
		log.Warn("ADMIN_TOKEN not set, admin routes are disabled")
	}
	log.Info("configuration loaded")
	log.Debug("addr=%s", cfg.Addr)
	log.Debug("db_path=%s", cfg.DBPath)
	log.Debug("log_level=%s", cfg.LogLevel)
	log.Debug("sync_interval=%s", cfg.SyncInterval)
	log.Debug("sync_on_start=%t", cfg.SyncOnStart)
	log.Debug("sync_concurrency=%d", cfg.SyncConcurrency)
	log.Debug("sync_window_days=%d", cfg.SyncWindowDays)
	log.Debug("provider_timeout=%s", cfg.ProviderTimeout)
	log.Debug("google_fit_configured=%t", cfg.HasGoogleFitCredentials())
	if !cfg.HasGoogleFitCredentials() {
		log.Warn("Google Fit client credentials are not configured; linking and sync will fail")
	}

	// Open database
	database, err := db.Open(cfg.DBPath)
	if err != nil {
		log.Error("failed to open database: %v", err)
		os.Exit(1)
	}
	defer func() {
		log.Debug("closing database connection")
		database.Close()
	}()

	store := stepstore.New(docstore.New(database.DB))
	fit := googlefit.New(googlefit.Config{
		ClientID:     cfg.GoogleFitClientID,
		ClientSecret: cfg.GoogleFitClientSecret,
		TokenURL:     cfg.GoogleTokenURL,
		BaseURL:      cfg.GoogleFitBaseURL,
	})
	agg := aggregator.New(store, fit, aggregator.Config{
		Concurrency: cfg.SyncConcurrency,
		WindowDays:  cfg.SyncWindowDays,
		Timeout:     cfg.ProviderTimeout,
	})

	syncPool := worker.NewPool(cfg.WorkerCount, cfg.WorkerQueueSize)
	queue := jobs.NewWorkerQueue(syncPool, agg)

	srv := &api.Server{
		DB:             database,
		LinkService:    services.NewLinkService(fit, store),
		StepsService:   services.NewStepsService(store),
		JobQueue:       queue,
		Auth:           auth.Config{Secret: cfg.AuthSecret, Issuer: cfg.AuthIssuer},
		Metrics:        promhttp.Handler(),
		RequestTimeout: cfg.RequestTimeout,
		AdminToken:     cfg.AdminToken,
	}

	ctx, cancel := context.WithCancel(context.Background())
	syncPool.Start(ctx)

	sched := scheduler.New(queue, cfg.SyncInterval, cfg.SyncOnStart)
	schedDone := make(chan struct{})
	go func() {
		defer close(schedDone)
		sched.Run(ctx)
	}()

	// Configure HTTP server
	httpServer := &http.Server{
		Addr:         cfg.Addr,
		Handler:      srv.Routes(),
		ReadTimeout:  15 * time.Second,
		WriteTimeout: 60 * time.Second,
		IdleTimeout:  60 * time.Second,
	}

	// Start HTTP server
	go func() {
		log.Info("HTTP server listening on %s", cfg.Addr)
		if err := httpServer.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			log.Error("HTTP server error: %v", err)
			os.Exit(1)
		}
	}()

	// Wait for shutdown signal
	stop := make(chan os.Signal, 1)
	signal.Notify(stop, syscall.SIGINT, syscall.SIGTERM)
	sig := <-stop

	log.Info("received signal %v, initiating graceful shutdown", sig)

	shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer shutdownCancel()

	log.Debug("stopping scheduler and sync pool")
	cancel()
	<-schedDone

	log.Debug("shutting down HTTP server")
	if err := httpServer.Shutdown(shutdownCtx); err != nil {
		log.Error("HTTP server shutdown error: %v", err)
	}

	syncPool.Stop()

	log.Info("===========================================")
	log.Info("Stepple Server Stopped")
	log.Info("===========================================")
}
