package supabase

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"net/url"

	"github.com/usethallo/thallo-api/internal/domain"

	"go.opentelemetry.io/otel/attribute"
)

// ============================================================
// Transactions (implements port.TransactionStore)
// ============================================================

// transactionRow maps the transactions table columns.
type transactionRow struct {
	ID            string  `json:"id"`
	UserID        string  `json:"user_id"`
	PayeeClean    string  `json:"payee_clean"`
	PayeeOriginal string  `json:"payee_original"`
	Amount        float64 `json:"amount"`
	Date          string  `json:"date"`
	CategoryID    string  `json:"category_id"`
	Notes         string  `json:"notes"`
}

func (r transactionRow) toDomain() domain.Transaction {
	return domain.Transaction{
		ID:            r.ID,
		UserID:        r.UserID,
		PayeeClean:    r.PayeeClean,
		PayeeOriginal: r.PayeeOriginal,
		Amount:        r.Amount,
		Date:          r.Date,
		CategoryID:    r.CategoryID,
		Notes:         r.Notes,
	}
}

// ListTransactions fetches ledger entries in [from, to), newest first.
// Empty from/to leave that bound open.
func (c *Client) ListTransactions(ctx context.Context, userID, from, to string, limit int) ([]domain.Transaction, error) {
	ctx, span := tracer.Start(ctx, "Supabase.ListTransactions")
	defer span.End()
	span.SetAttributes(attribute.String("user.id", userID))

	path := fmt.Sprintf("transactions?user_id=eq.%s&order=date.desc&limit=%d", url.QueryEscape(userID), limit)
	if from != "" {
		path += "&date=gte." + url.QueryEscape(from)
	}
	if to != "" {
		path += "&date=lt." + url.QueryEscape(to)
	}

	var transactions []domain.Transaction
	err := c.execute(ctx, func() error {
		body, err := c.doRequest(ctx, http.MethodGet, path)
		if err != nil {
			return err
		}
		if body == nil || string(body) == "[]" {
			transactions = []domain.Transaction{}
			return nil
		}

		var rows []transactionRow
		if err := json.Unmarshal(body, &rows); err != nil {
			return fmt.Errorf("failed to decode transactions: %w", err)
		}

		transactions = make([]domain.Transaction, 0, len(rows))
		for _, r := range rows {
			transactions = append(transactions, r.toDomain())
		}
		return nil
	})
	if err != nil {
		return nil, &domain.ErrExternalService{Service: "supabase/transactions", Err: err}
	}

	return transactions, nil
}

// ListUncategorized fetches entries with no category assigned, newest first.
func (c *Client) ListUncategorized(ctx context.Context, userID string, limit int) ([]domain.Transaction, error) {
	ctx, span := tracer.Start(ctx, "Supabase.ListUncategorized")
	defer span.End()
	span.SetAttributes(attribute.String("user.id", userID))

	path := fmt.Sprintf("transactions?user_id=eq.%s&category_id=is.null&order=date.desc&limit=%d",
		url.QueryEscape(userID), limit)

	var transactions []domain.Transaction
	err := c.execute(ctx, func() error {
		body, err := c.doRequest(ctx, http.MethodGet, path)
		if err != nil {
			return err
		}
		if body == nil || string(body) == "[]" {
			transactions = []domain.Transaction{}
			return nil
		}

		var rows []transactionRow
		if err := json.Unmarshal(body, &rows); err != nil {
			return fmt.Errorf("failed to decode transactions: %w", err)
		}

		transactions = make([]domain.Transaction, 0, len(rows))
		for _, r := range rows {
			transactions = append(transactions, r.toDomain())
		}
		return nil
	})
	if err != nil {
		return nil, &domain.ErrExternalService{Service: "supabase/transactions", Err: err}
	}

	return transactions, nil
}

// UpdateCategory assigns a category to a single entry owned by the user.
func (c *Client) UpdateCategory(ctx context.Context, userID, transactionID, categoryID string) error {
	ctx, span := tracer.Start(ctx, "Supabase.UpdateCategory")
	defer span.End()
	span.SetAttributes(
		attribute.String("user.id", userID),
		attribute.String("transaction.id", transactionID),
	)

	path := fmt.Sprintf("transactions?id=eq.%s&user_id=eq.%s",
		url.QueryEscape(transactionID), url.QueryEscape(userID))

	err := c.execute(ctx, func() error {
		return c.doPatch(ctx, path, map[string]any{"category_id": categoryID})
	})
	if err != nil {
		return &domain.ErrExternalService{Service: "supabase/transactions", Err: err}
	}
	return nil
}

// ListExpensesSince fetches negative-amount entries dated on or after
// since. This is the input window for the recurring charge detector.
func (c *Client) ListExpensesSince(ctx context.Context, userID, since string) ([]domain.Transaction, error) {
	ctx, span := tracer.Start(ctx, "Supabase.ListExpensesSince")
	defer span.End()
	span.SetAttributes(
		attribute.String("user.id", userID),
		attribute.String("since", since),
	)

	path := fmt.Sprintf("transactions?user_id=eq.%s&amount=lt.0&date=gte.%s&order=date.desc",
		url.QueryEscape(userID), url.QueryEscape(since))

	var transactions []domain.Transaction
	err := c.execute(ctx, func() error {
		body, err := c.doRequest(ctx, http.MethodGet, path)
		if err != nil {
			return err
		}
		if body == nil || string(body) == "[]" {
			transactions = []domain.Transaction{}
			return nil
		}

		var rows []transactionRow
		if err := json.Unmarshal(body, &rows); err != nil {
			return fmt.Errorf("failed to decode expenses: %w", err)
		}

		transactions = make([]domain.Transaction, 0, len(rows))
		for _, r := range rows {
			transactions = append(transactions, r.toDomain())
		}
		return nil
	})
	if err != nil {
		return nil, &domain.ErrExternalService{Service: "supabase/transactions", Err: err}
	}

	return transactions, nil
}
