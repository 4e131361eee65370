package handler

import (
	"net/http"

	"github.com/usethallo/thallo-api/internal/domain"
	"github.com/usethallo/thallo-api/internal/service"

	"go.opentelemetry.io/otel/attribute"
	"go.uber.org/zap"
)

// ============================================================
// Financial Health Score — /v1/score
// ============================================================

func getScoreHandler(svc *service.ScoreService, logger *zap.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		ctx, span := tracer.Start(r.Context(), "GET /v1/score")
		defer span.End()

		userID := UserIDFromContext(ctx)
		span.SetAttributes(attribute.String("user.id", userID))

		result, err := svc.GetScore(ctx, userID)
		if err != nil {
			handleServiceError(w, err, logger)
			return
		}

		writeJSON(w, http.StatusOK, result)
	}
}

func getScoreHistoryHandler(svc *service.ScoreService, logger *zap.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		ctx, span := tracer.Start(r.Context(), "GET /v1/score/history")
		defer span.End()

		userID := UserIDFromContext(ctx)
		limit := parseLimit(r, 90, 365)

		snapshots, err := svc.GetHistory(ctx, userID, limit)
		if err != nil {
			handleServiceError(w, err, logger)
			return
		}

		writeJSON(w, http.StatusOK, domain.ListResponse[domain.ScoreSnapshot]{
			Data:  snapshots,
			Total: len(snapshots),
		})
	}
}

func getScoreChangeHandler(svc *service.ScoreService, logger *zap.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		ctx, span := tracer.Start(r.Context(), "GET /v1/score/change")
		defer span.End()

		userID := UserIDFromContext(ctx)

		report, err := svc.GetChange(ctx, userID)
		if err != nil {
			handleServiceError(w, err, logger)
			return
		}

		writeJSON(w, http.StatusOK, report)
	}
}

func postScoreSnapshotHandler(svc *service.ScoreService, logger *zap.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		ctx, span := tracer.Start(r.Context(), "POST /v1/score/snapshot")
		defer span.End()

		userID := UserIDFromContext(ctx)

		result, err := svc.SnapshotNow(ctx, userID)
		if err != nil {
			handleServiceError(w, err, logger)
			return
		}

		writeJSON(w, http.StatusCreated, result)
	}
}
