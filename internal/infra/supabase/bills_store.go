package supabase

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"net/url"
	"time"

	"github.com/usethallo/thallo-api/internal/domain"

	"go.opentelemetry.io/otel/attribute"
)

// ============================================================
// Bills (implements port.BillStore)
// ============================================================

type billRow struct {
	PaidOnTime bool `json:"paid_on_time"`
}

// GetBillStats counts on-time payments over the last 12 months.
func (c *Client) GetBillStats(ctx context.Context, userID string) (*domain.BillStats, error) {
	ctx, span := tracer.Start(ctx, "Supabase.GetBillStats")
	defer span.End()
	span.SetAttributes(attribute.String("user.id", userID))

	since := time.Now().AddDate(-1, 0, 0).Format("2006-01-02")
	path := fmt.Sprintf("bill_payments?user_id=eq.%s&due_date=gte.%s&select=paid_on_time",
		url.QueryEscape(userID), since)

	stats := &domain.BillStats{}
	err := c.execute(ctx, func() error {
		body, err := c.doRequest(ctx, http.MethodGet, path)
		if err != nil {
			return err
		}
		if body == nil || string(body) == "[]" {
			return nil
		}

		var rows []billRow
		if err := json.Unmarshal(body, &rows); err != nil {
			return fmt.Errorf("failed to decode bill payments: %w", err)
		}

		stats.Total = len(rows)
		for _, r := range rows {
			if r.PaidOnTime {
				stats.PaidOnTime++
			}
		}
		return nil
	})
	if err != nil {
		return nil, &domain.ErrExternalService{Service: "supabase/bills", Err: err}
	}

	return stats, nil
}
