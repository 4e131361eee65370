package handler

import (
	"encoding/json"
	"net/http"

	"github.com/usethallo/thallo-api/internal/domain"
	"github.com/usethallo/thallo-api/internal/service"

	"go.uber.org/zap"
)

// ============================================================
// Budgets — /v1/budgets
// ============================================================

func listBudgetsHandler(svc *service.BudgetService, logger *zap.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		ctx, span := tracer.Start(r.Context(), "GET /v1/budgets")
		defer span.End()

		userID := UserIDFromContext(ctx)
		month := r.URL.Query().Get("month")

		budgets, err := svc.ListBudgets(ctx, userID, month)
		if err != nil {
			handleServiceError(w, err, logger)
			return
		}

		writeJSON(w, http.StatusOK, domain.ListResponse[domain.Budget]{
			Data:  budgets,
			Total: len(budgets),
		})
	}
}

func createBudgetHandler(svc *service.BudgetService, logger *zap.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		ctx, span := tracer.Start(r.Context(), "POST /v1/budgets")
		defer span.End()

		var budget domain.Budget
		if err := json.NewDecoder(r.Body).Decode(&budget); err != nil {
			writeError(w, http.StatusBadRequest, "invalid request body")
			return
		}

		created, err := svc.CreateBudget(ctx, UserIDFromContext(ctx), &budget)
		if err != nil {
			handleServiceError(w, err, logger)
			return
		}

		writeJSON(w, http.StatusCreated, created)
	}
}

func budgetTransferHandler(svc *service.BudgetService, logger *zap.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		ctx, span := tracer.Start(r.Context(), "POST /v1/budgets/transfer")
		defer span.End()

		var req domain.BudgetTransferRequest
		if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
			writeError(w, http.StatusBadRequest, "invalid request body")
			return
		}

		result, err := svc.Transfer(ctx, UserIDFromContext(ctx), &req)
		if err != nil {
			handleServiceError(w, err, logger)
			return
		}

		writeJSON(w, http.StatusOK, result)
	}
}
