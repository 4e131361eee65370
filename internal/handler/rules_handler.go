package handler

import (
	"encoding/json"
	"net/http"

	"github.com/usethallo/thallo-api/internal/domain"
	"github.com/usethallo/thallo-api/internal/service"

	"github.com/go-chi/chi/v5"
	"go.uber.org/zap"
)

// ============================================================
// Category rules — /v1/category-rules
// ============================================================

func listRulesHandler(svc *service.RuleService, logger *zap.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		ctx, span := tracer.Start(r.Context(), "GET /v1/category-rules")
		defer span.End()

		rules, err := svc.ListRules(ctx, UserIDFromContext(ctx))
		if err != nil {
			handleServiceError(w, err, logger)
			return
		}

		writeJSON(w, http.StatusOK, domain.ListResponse[domain.CategoryRule]{
			Data:  rules,
			Total: len(rules),
		})
	}
}

func createRuleHandler(svc *service.RuleService, logger *zap.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		ctx, span := tracer.Start(r.Context(), "POST /v1/category-rules")
		defer span.End()

		var rule domain.CategoryRule
		if err := json.NewDecoder(r.Body).Decode(&rule); err != nil {
			writeError(w, http.StatusBadRequest, "invalid request body")
			return
		}

		created, err := svc.CreateRule(ctx, UserIDFromContext(ctx), &rule)
		if err != nil {
			handleServiceError(w, err, logger)
			return
		}

		writeJSON(w, http.StatusCreated, created)
	}
}

func deleteRuleHandler(svc *service.RuleService, logger *zap.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		ctx, span := tracer.Start(r.Context(), "DELETE /v1/category-rules/{ruleId}")
		defer span.End()

		ruleID := chi.URLParam(r, "ruleId")
		if err := svc.DeleteRule(ctx, UserIDFromContext(ctx), ruleID); err != nil {
			handleServiceError(w, err, logger)
			return
		}

		writeJSON(w, http.StatusOK, domain.SuccessResponse{Message: "rule deleted", ID: ruleID})
	}
}

func applyRulesHandler(svc *service.RuleService, recurringSvc *service.RecurringService, logger *zap.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		ctx, span := tracer.Start(r.Context(), "POST /v1/category-rules/apply")
		defer span.End()

		userID := UserIDFromContext(ctx)
		result, err := svc.ApplyRules(ctx, userID)
		if err != nil {
			handleServiceError(w, err, logger)
			return
		}

		// Recategorizing transactions changes the recurring report's
		// category attribution, so the cached report is stale now.
		if result.Applied > 0 && recurringSvc != nil {
			recurringSvc.Invalidate(userID)
		}

		writeJSON(w, http.StatusOK, result)
	}
}
