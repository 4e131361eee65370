package handler

import (
	"encoding/json"
	"net/http"

	"github.com/usethallo/thallo-api/internal/domain"
	"github.com/usethallo/thallo-api/internal/service"

	"go.uber.org/zap"
)

// ============================================================
// Settings — profile and account deletion
// ============================================================

func getProfileHandler(svc *service.SettingsService, logger *zap.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		ctx, span := tracer.Start(r.Context(), "GET /v1/settings/profile")
		defer span.End()

		userID := UserIDFromContext(ctx)

		profile, err := svc.GetProfile(ctx, userID)
		if err != nil {
			handleServiceError(w, err, logger)
			return
		}

		writeJSON(w, http.StatusOK, profile)
	}
}

func deleteAccountHandler(svc *service.SettingsService, logger *zap.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		ctx, span := tracer.Start(r.Context(), "DELETE /v1/settings/account")
		defer span.End()

		userID := UserIDFromContext(ctx)

		var req domain.DeleteAccountRequest
		if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
			writeError(w, http.StatusBadRequest, "invalid request body")
			return
		}

		if err := svc.DeleteAccount(ctx, userID, &req); err != nil {
			handleServiceError(w, err, logger)
			return
		}

		writeJSON(w, http.StatusOK, domain.SuccessResponse{Message: "account deleted"})
	}
}
