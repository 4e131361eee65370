package handler

import (
	"net/http"
	"time"

	"github.com/usethallo/thallo-api/internal/domain"
	"github.com/usethallo/thallo-api/internal/infra/observability"
	"github.com/usethallo/thallo-api/internal/service"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"go.opentelemetry.io/otel"
	"go.uber.org/zap"
)

var tracer = otel.Tracer("handler")

// Services bundles everything the router dispatches to.
type Services struct {
	Score     *service.ScoreService
	Recurring *service.RecurringService
	Ledger    *service.LedgerService
	Budgets   *service.BudgetService
	Rules     *service.RuleService
	Paycheck  *service.PaycheckService
	Insights  *service.InsightsService
	Export    *service.ExportService
	Settings  *service.SettingsService
}

// NewRouter creates the HTTP router with all routes and middleware.
// Everything under /v1 requires a Supabase-issued Bearer token.
func NewRouter(svcs Services, jwtSecret string, rateLimitPerMin int, metrics *observability.Metrics, logger *zap.Logger) http.Handler {
	r := chi.NewRouter()

	// --- Middleware ---
	r.Use(middleware.RequestID)
	r.Use(middleware.RealIP)
	r.Use(observability.ZapLoggerMiddleware(logger))
	r.Use(observability.TracingMiddleware)
	r.Use(middleware.Recoverer)
	r.Use(middleware.Heartbeat("/ping"))

	// --- Operational endpoints ---
	r.Get("/healthz", healthzHandler(svcs.Ledger, logger))
	r.Get("/readyz", readyzHandler())
	r.Handle("/metrics", promhttp.HandlerFor(metrics.Registry, promhttp.HandlerOpts{}))

	// --- API v1 (authenticated) ---
	r.Route("/v1", func(r chi.Router) {
		r.Use(AuthMiddleware(jwtSecret, logger))
		r.Use(RateLimitMiddleware(rateLimitPerMin, logger))

		// =============================================
		// Financial Health Score
		// =============================================
		r.Get("/score", getScoreHandler(svcs.Score, logger))
		r.Get("/score/history", getScoreHistoryHandler(svcs.Score, logger))
		r.Get("/score/change", getScoreChangeHandler(svcs.Score, logger))
		r.Post("/score/snapshot", postScoreSnapshotHandler(svcs.Score, logger))

		// =============================================
		// Recurring charges
		// =============================================
		r.Get("/recurring", getRecurringHandler(svcs.Recurring, logger))

		// =============================================
		// Ledger reads
		// =============================================
		r.Get("/transactions", listTransactionsHandler(svcs.Ledger, logger))
		r.Get("/categories", listCategoriesHandler(svcs.Ledger, logger))
		r.Get("/goals", listGoalsHandler(svcs.Ledger, logger))
		r.Get("/debts", listDebtsHandler(svcs.Ledger, logger))

		// =============================================
		// Budgets
		// =============================================
		r.Get("/budgets", listBudgetsHandler(svcs.Budgets, logger))
		r.Post("/budgets", createBudgetHandler(svcs.Budgets, logger))
		r.Post("/budgets/transfer", budgetTransferHandler(svcs.Budgets, logger))

		// =============================================
		// Category rules
		// =============================================
		r.Get("/category-rules", listRulesHandler(svcs.Rules, logger))
		r.Post("/category-rules", createRuleHandler(svcs.Rules, logger))
		r.Delete("/category-rules/{ruleId}", deleteRuleHandler(svcs.Rules, logger))
		r.Post("/category-rules/apply", applyRulesHandler(svcs.Rules, svcs.Recurring, logger))

		// =============================================
		// Paycheck planning
		// =============================================
		r.Get("/paycheck/plan", paycheckPlanHandler(svcs.Paycheck, logger))

		// =============================================
		// AI insights
		// =============================================
		r.Post("/insights/analyze", insightsAnalyzeHandler(svcs.Insights, logger))
		r.Get("/metrics/insights", insightsMetricsHandler(metrics))

		// =============================================
		// Export & settings
		// =============================================
		r.Get("/export/transactions", exportTransactionsHandler(svcs.Export, logger))
		r.Get("/settings/profile", getProfileHandler(svcs.Settings, logger))
		r.Delete("/settings/account", deleteAccountHandler(svcs.Settings, logger))
	})

	return r
}

// ============================================================
// Operational handlers
// ============================================================

func healthzHandler(ledger *service.LedgerService, logger *zap.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		ctx := r.Context()
		now := time.Now().Format(time.RFC3339)

		services := []domain.ServiceHealth{
			{Name: "thallo-api", Status: "healthy", LatencyMs: 0, LastChecked: now},
		}

		if ledger != nil {
			start := time.Now()
			_, err := ledger.ListCategories(ctx, "health-check")
			latency := time.Since(start).Milliseconds()
			status := "healthy"
			if err != nil {
				status = "degraded"
				logger.Warn("healthz: supabase probe failed", zap.Error(err))
			}
			services = append(services, domain.ServiceHealth{
				Name: "supabase", Status: status, LatencyMs: latency, LastChecked: now,
			})
		}

		overallStatus := "healthy"
		for _, s := range services {
			if s.Status == "unhealthy" {
				overallStatus = "unhealthy"
				break
			}
			if s.Status == "degraded" {
				overallStatus = "degraded"
			}
		}

		writeJSON(w, http.StatusOK, domain.HealthStatus{
			Status:   overallStatus,
			Services: services,
		})
	}
}

func readyzHandler() http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		writeJSON(w, http.StatusOK, map[string]string{"status": "ready"})
	}
}

func insightsMetricsHandler(metrics *observability.Metrics) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		writeJSON(w, http.StatusOK, metrics.GetInsightsSnapshot())
	}
}
