package main

import (
	"context"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/usethallo/thallo-api/internal/config"
	"github.com/usethallo/thallo-api/internal/handler"
	"github.com/usethallo/thallo-api/internal/infra/cache"
	"github.com/usethallo/thallo-api/internal/infra/client"
	"github.com/usethallo/thallo-api/internal/infra/observability"
	"github.com/usethallo/thallo-api/internal/infra/resilience"
	"github.com/usethallo/thallo-api/internal/infra/supabase"
	"github.com/usethallo/thallo-api/internal/jobs"
	"github.com/usethallo/thallo-api/internal/service"

	"go.uber.org/zap"
)

func main() {
	// --- Load .env file (for local development) ---
	_ = config.LoadDotEnv(".env")

	// --- Config ---
	cfg := config.Load()

	// --- Logger ---
	logger := observability.NewLogger(cfg.LogLevel)
	defer logger.Sync()

	logger.Info("configuration loaded",
		zap.Int("port", cfg.Port),
		zap.String("log_level", cfg.LogLevel),
		zap.Duration("http_timeout", cfg.HTTPTimeout),
		zap.Duration("recurring_cache_ttl", cfg.RecurringCacheTTL),
		zap.Int("max_retries", cfg.MaxRetries),
		zap.Duration("initial_backoff", cfg.InitialBackoff),
		zap.Int("rate_limit_per_min", cfg.RateLimitPerMin),
		zap.String("snapshot_schedule", cfg.SnapshotSchedule),
	)

	if cfg.SupabaseURL == "" {
		logger.Fatal("SUPABASE_URL is required")
	}
	if cfg.SupabaseJWTSecret == "" {
		logger.Fatal("SUPABASE_JWT_SECRET is required")
	}

	// --- Tracing ---
	shutdown, err := observability.InitTracer(cfg.OTLPEndpoint, "thallo-api")
	if err != nil {
		logger.Fatal("failed to init tracer", zap.Error(err))
	}
	defer shutdown(context.Background())

	// --- Metrics ---
	metrics := observability.NewMetrics()

	// --- Cache ---
	recurringCache := cache.New[*service.RecurringReport](cfg.RecurringCacheTTL)

	// --- Resilience ---
	resilienceCfg := resilience.Config{
		MaxRetries:     cfg.MaxRetries,
		InitialBackoff: cfg.InitialBackoff,
		MaxConcurrency: cfg.MaxConcurrency,
	}
	supabaseCB := resilience.NewCircuitBreaker("supabase")
	openRouterCB := resilience.NewCircuitBreaker("openrouter")

	// --- Clients ---
	httpClient := &http.Client{Timeout: cfg.HTTPTimeout}

	store := supabase.NewClient(
		httpClient,
		cfg.SupabaseURL,
		cfg.SupabaseAnonKey,
		cfg.SupabaseServiceKey,
		supabaseCB,
		resilienceCfg,
		logger,
	)

	insightsClient := client.NewInsightsClient(
		httpClient,
		cfg.OpenRouterURL,
		cfg.OpenRouterAPIKey,
		cfg.OpenRouterModel,
		openRouterCB,
		resilienceCfg,
	)

	// --- Services ---
	scoreSvc := service.NewScoreService(store, store, store, store, store, store, store, metrics, logger)
	recurringSvc := service.NewRecurringService(store, store, recurringCache, metrics, logger)
	ledgerSvc := service.NewLedgerService(store, store, store, store, logger)
	budgetSvc := service.NewBudgetService(store, logger)
	ruleSvc := service.NewRuleService(store, store, logger)
	paycheckSvc := service.NewPaycheckService(store, recurringSvc, logger)
	insightsSvc := service.NewInsightsService(insightsClient, metrics, logger)
	exportSvc := service.NewExportService(store, logger)
	settingsSvc := service.NewSettingsService(store, store, logger)

	// --- Jobs ---
	snapshotJob := jobs.NewSnapshotJob(scoreSvc, store, cfg.SnapshotSchedule, logger)
	if err := snapshotJob.Start(); err != nil {
		logger.Fatal("failed to start snapshot job", zap.Error(err))
	}
	defer snapshotJob.Stop()

	// --- Router ---
	router := handler.NewRouter(handler.Services{
		Score:     scoreSvc,
		Recurring: recurringSvc,
		Ledger:    ledgerSvc,
		Budgets:   budgetSvc,
		Rules:     ruleSvc,
		Paycheck:  paycheckSvc,
		Insights:  insightsSvc,
		Export:    exportSvc,
		Settings:  settingsSvc,
	}, cfg.SupabaseJWTSecret, cfg.RateLimitPerMin, metrics, logger)

	// --- Server ---
	srv := &http.Server{
		Addr:         fmt.Sprintf(":%d", cfg.Port),
		Handler:      router,
		ReadTimeout:  10 * time.Second,
		WriteTimeout: 30 * time.Second,
		IdleTimeout:  60 * time.Second,
	}

	// --- Graceful shutdown ---
	go func() {
		logger.Info("server starting", zap.Int("port", cfg.Port))
		if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			logger.Fatal("server failed", zap.Error(err))
		}
	}()

	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit

	logger.Info("server shutting down...")
	ctx, cancel := context.WithTimeout(context.Background(), 15*time.Second)
	defer cancel()

	if err := srv.Shutdown(ctx); err != nil {
		logger.Fatal("server forced shutdown", zap.Error(err))
	}

	logger.Info("server stopped")
}
