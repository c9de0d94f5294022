package main

import (
	"context"
	"log"
	"net/http"
	"os/signal"
	"syscall"

	"github.com/jonboulle/clockwork"

	httpapi "github.com/i474232898/weather-proxy/internal/api/http"
	"github.com/i474232898/weather-proxy/internal/config"
	"github.com/i474232898/weather-proxy/internal/observability"
	"github.com/i474232898/weather-proxy/internal/scheduler"
	"github.com/i474232898/weather-proxy/internal/store"
	"github.com/i474232898/weather-proxy/internal/weather"
	"github.com/i474232898/weather-proxy/internal/weather/providers"
)

func main() {
	// Load configuration.
	cfg, err := config.Load()
	if err != nil {
		log.Fatalf("failed to load config: %v", err)
	}

	logger, err := observability.NewLogger(cfg.LogLevel, cfg.LogFormat)
	if err != nil {
		log.Fatalf("failed to build logger: %v", err)
	}
	defer logger.Sync() //nolint:errcheck

	metrics := observability.NewMetrics()

	// Shared HTTP client for outbound provider calls.
	httpClient := &http.Client{
		Timeout: cfg.HTTPTimeout,
	}

	// One store for the whole process, handed to the service and the sweep.
	memStore := store.NewMemoryStore(clockwork.NewRealClock(), cfg.StoreWindow, cfg.StoreMaxHistory)

	provider := providers.NewOpenWeatherProvider(httpClient, cfg.APIBaseURL, cfg.APIBaseKey, cfg.APIKeyValue)
	service := weather.NewService(memStore, provider, logger, metrics)

	// Sweep that ages readings out of the window without new traffic.
	sched := scheduler.New(cfg.SweepInterval, memStore, logger, metrics)
	if err := sched.Start(); err != nil {
		logger.Fatalw("failed to start scheduler", "error", err)
	}
	defer sched.Stop()

	app := httpapi.NewApp(service, httpapi.Options{
		SecretAPIKey:  cfg.SecretAPIKey,
		CacheTime:     cfg.CacheTime,
		RateLimitMax:  cfg.RateLimitMax,
		RateLimitTime: cfg.RateLimitTime,
		StaticIndex:   cfg.StaticIndex,
	}, logger)

	go func() {
		logger.Infow("API proxy server listening", "addr", "http://localhost:"+cfg.Port)
		if err := app.Listen(":" + cfg.Port); err != nil {
			logger.Errorw("fiber server stopped", "error", err)
		}
	}()

	// Wait for termination signal
	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	<-ctx.Done()
	logger.Info("shutting down")

	shutdownCtx, cancel := context.WithTimeout(context.Background(), cfg.ShutdownTimeout)
	defer cancel()

	if err := app.ShutdownWithContext(shutdownCtx); err != nil {
		logger.Errorw("error during shutdown", "error", err)
	}
}
