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
// Debts & debt history (implements port.DebtStore)
// ============================================================

type debtRow struct {
	ID             string  `json:"id"`
	UserID         string  `json:"user_id"`
	Name           string  `json:"name"`
	Balance        float64 `json:"balance"`
	InterestRate   float64 `json:"interest_rate"`
	MinimumPayment float64 `json:"minimum_payment"`
}

type debtHistoryRow struct {
	UserID     string  `json:"user_id"`
	TotalDebt  float64 `json:"total_debt"`
	RecordedAt string  `json:"recorded_at"`
}

// ListDebts fetches the user's tracked liabilities.
func (c *Client) ListDebts(ctx context.Context, userID string) ([]domain.Debt, error) {
	ctx, span := tracer.Start(ctx, "Supabase.ListDebts")
	defer span.End()
	span.SetAttributes(attribute.String("user.id", userID))

	path := fmt.Sprintf("debts?user_id=eq.%s&order=balance.desc", url.QueryEscape(userID))

	var debts []domain.Debt
	err := c.execute(ctx, func() error {
		body, err := c.doRequest(ctx, http.MethodGet, path)
		if err != nil {
			return err
		}
		if body == nil || string(body) == "[]" {
			debts = []domain.Debt{}
			return nil
		}

		var rows []debtRow
		if err := json.Unmarshal(body, &rows); err != nil {
			return fmt.Errorf("failed to decode debts: %w", err)
		}

		debts = make([]domain.Debt, 0, len(rows))
		for _, r := range rows {
			debts = append(debts, domain.Debt{
				ID:             r.ID,
				UserID:         r.UserID,
				Name:           r.Name,
				Balance:        r.Balance,
				InterestRate:   r.InterestRate,
				MinimumPayment: r.MinimumPayment,
			})
		}
		return nil
	})
	if err != nil {
		return nil, &domain.ErrExternalService{Service: "supabase/debts", Err: err}
	}

	return debts, nil
}

// TotalDebtAt returns the total debt recorded on the history row closest
// to (at or before) the given date. Zero with no error when the user has
// no history that far back.
func (c *Client) TotalDebtAt(ctx context.Context, userID string, at time.Time) (float64, error) {
	ctx, span := tracer.Start(ctx, "Supabase.TotalDebtAt")
	defer span.End()
	span.SetAttributes(
		attribute.String("user.id", userID),
		attribute.String("at", at.Format("2006-01-02")),
	)

	path := fmt.Sprintf("debt_history?user_id=eq.%s&recorded_at=lte.%s&order=recorded_at.desc&limit=1",
		url.QueryEscape(userID), at.Format("2006-01-02"))

	var total float64
	err := c.execute(ctx, func() error {
		body, err := c.doRequest(ctx, http.MethodGet, path)
		if err != nil {
			return err
		}
		if body == nil || string(body) == "[]" {
			total = 0
			return nil
		}

		var rows []debtHistoryRow
		if err := json.Unmarshal(body, &rows); err != nil {
			return fmt.Errorf("failed to decode debt history: %w", err)
		}
		if len(rows) > 0 {
			total = rows[0].TotalDebt
		}
		return nil
	})
	if err != nil {
		return 0, &domain.ErrExternalService{Service: "supabase/debt_history", Err: err}
	}

	return total, nil
}
