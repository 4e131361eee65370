package handler

import (
	"net/http"

	"github.com/usethallo/thallo-api/internal/service"

	"go.uber.org/zap"
)

// ============================================================
// Paycheck planning — GET /v1/paycheck/plan
// ============================================================

func paycheckPlanHandler(svc *service.PaycheckService, logger *zap.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		ctx, span := tracer.Start(r.Context(), "GET /v1/paycheck/plan")
		defer span.End()

		userID := UserIDFromContext(ctx)

		plan, err := svc.Plan(ctx, userID)
		if err != nil {
			handleServiceError(w, err, logger)
			return
		}

		writeJSON(w, http.StatusOK, plan)
	}
}
