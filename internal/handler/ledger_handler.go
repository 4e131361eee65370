package handler

import (
	"net/http"

	"github.com/usethallo/thallo-api/internal/domain"
	"github.com/usethallo/thallo-api/internal/service"

	"go.uber.org/zap"
)

// ============================================================
// Ledger reads — /v1/transactions, /v1/categories, /v1/goals, /v1/debts
// ============================================================

func listTransactionsHandler(svc *service.LedgerService, logger *zap.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		ctx, span := tracer.Start(r.Context(), "GET /v1/transactions")
		defer span.End()

		userID := UserIDFromContext(ctx)
		from := r.URL.Query().Get("from")
		to := r.URL.Query().Get("to")
		limit := parseLimit(r, 100, 500)

		transactions, err := svc.ListTransactions(ctx, userID, from, to, limit)
		if err != nil {
			handleServiceError(w, err, logger)
			return
		}

		writeJSON(w, http.StatusOK, domain.ListResponse[domain.Transaction]{
			Data:  transactions,
			Total: len(transactions),
		})
	}
}

func listCategoriesHandler(svc *service.LedgerService, logger *zap.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		ctx, span := tracer.Start(r.Context(), "GET /v1/categories")
		defer span.End()

		categories, err := svc.ListCategories(ctx, UserIDFromContext(ctx))
		if err != nil {
			handleServiceError(w, err, logger)
			return
		}

		writeJSON(w, http.StatusOK, domain.ListResponse[domain.Category]{
			Data:  categories,
			Total: len(categories),
		})
	}
}

func listGoalsHandler(svc *service.LedgerService, logger *zap.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		ctx, span := tracer.Start(r.Context(), "GET /v1/goals")
		defer span.End()

		goals, err := svc.ListGoals(ctx, UserIDFromContext(ctx))
		if err != nil {
			handleServiceError(w, err, logger)
			return
		}

		writeJSON(w, http.StatusOK, domain.ListResponse[domain.Goal]{
			Data:  goals,
			Total: len(goals),
		})
	}
}

func listDebtsHandler(svc *service.LedgerService, logger *zap.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		ctx, span := tracer.Start(r.Context(), "GET /v1/debts")
		defer span.End()

		debts, err := svc.ListDebts(ctx, UserIDFromContext(ctx))
		if err != nil {
			handleServiceError(w, err, logger)
			return
		}

		writeJSON(w, http.StatusOK, domain.ListResponse[domain.Debt]{
			Data:  debts,
			Total: len(debts),
		})
	}
}
