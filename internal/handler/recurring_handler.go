package handler

import (
	"net/http"

	"github.com/usethallo/thallo-api/internal/service"

	"go.opentelemetry.io/otel/attribute"
	"go.uber.org/zap"
)

// ============================================================
// Recurring charges — GET /v1/recurring
// ============================================================

func getRecurringHandler(svc *service.RecurringService, logger *zap.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		ctx, span := tracer.Start(r.Context(), "GET /v1/recurring")
		defer span.End()

		userID := UserIDFromContext(ctx)
		refresh := r.URL.Query().Get("refresh") == "true"
		span.SetAttributes(
			attribute.String("user.id", userID),
			attribute.Bool("refresh", refresh),
		)

		report, err := svc.GetRecurringCharges(ctx, userID, refresh)
		if err != nil {
			handleServiceError(w, err, logger)
			return
		}

		writeJSON(w, http.StatusOK, report)
	}
}
