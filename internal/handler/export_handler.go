package handler

import (
	"fmt"
	"net/http"

	"github.com/usethallo/thallo-api/internal/service"

	"go.uber.org/zap"
)

// ============================================================
// CSV export — GET /v1/export/transactions
// ============================================================

func exportTransactionsHandler(svc *service.ExportService, logger *zap.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		ctx, span := tracer.Start(r.Context(), "GET /v1/export/transactions")
		defer span.End()

		userID := UserIDFromContext(ctx)
		from := r.URL.Query().Get("from")
		to := r.URL.Query().Get("to")

		export, err := svc.ExportTransactionsCSV(ctx, userID, from, to)
		if err != nil {
			handleServiceError(w, err, logger)
			return
		}

		w.Header().Set("Content-Type", "text/csv")
		w.Header().Set("Content-Disposition", fmt.Sprintf(`attachment; filename=%q`, export.Filename))
		w.Header().Set("X-Export-Id", export.ID)
		w.WriteHeader(http.StatusOK)
		w.Write(export.Data)
	}
}
