package handler

import (
	"encoding/json"
	"net/http"

	"github.com/usethallo/thallo-api/internal/domain"
	"github.com/usethallo/thallo-api/internal/service"

	"go.uber.org/zap"
)

// ============================================================
// AI insights — POST /v1/insights/analyze
// ============================================================

func insightsAnalyzeHandler(svc *service.InsightsService, logger *zap.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		ctx, span := tracer.Start(r.Context(), "POST /v1/insights/analyze")
		defer span.End()

		var req domain.InsightRequest
		if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
			writeError(w, http.StatusBadRequest, "invalid request body")
			return
		}

		resp, err := svc.Analyze(ctx, UserIDFromContext(ctx), &req)
		if err != nil {
			handleServiceError(w, err, logger)
			return
		}

		writeJSON(w, http.StatusOK, resp)
	}
}
