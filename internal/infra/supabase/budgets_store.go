package supabase

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"net/url"

	"github.com/usethallo/thallo-api/internal/domain"

	"go.opentelemetry.io/otel/attribute"
)

// ============================================================
// Budgets (implements port.BudgetStore)
// ============================================================

type budgetRow struct {
	ID         string  `json:"id"`
	UserID     string  `json:"user_id"`
	CategoryID string  `json:"category_id"`
	Month      string  `json:"month"`
	Budgeted   float64 `json:"budgeted"`
	Spent      float64 `json:"spent"`
}

func (r budgetRow) toDomain() domain.Budget {
	return domain.Budget{
		ID:         r.ID,
		UserID:     r.UserID,
		CategoryID: r.CategoryID,
		Month:      r.Month,
		Budgeted:   r.Budgeted,
		Spent:      r.Spent,
	}
}

// ListBudgets fetches all envelopes for a month (YYYY-MM-DD, first of month).
func (c *Client) ListBudgets(ctx context.Context, userID, month string) ([]domain.Budget, error) {
	ctx, span := tracer.Start(ctx, "Supabase.ListBudgets")
	defer span.End()
	span.SetAttributes(
		attribute.String("user.id", userID),
		attribute.String("month", month),
	)

	path := fmt.Sprintf("budgets?user_id=eq.%s&month=eq.%s", url.QueryEscape(userID), url.QueryEscape(month))

	var budgets []domain.Budget
	err := c.execute(ctx, func() error {
		body, err := c.doRequest(ctx, http.MethodGet, path)
		if err != nil {
			return err
		}
		if body == nil || string(body) == "[]" {
			budgets = []domain.Budget{}
			return nil
		}

		var rows []budgetRow
		if err := json.Unmarshal(body, &rows); err != nil {
			return fmt.Errorf("failed to decode budgets: %w", err)
		}

		budgets = make([]domain.Budget, 0, len(rows))
		for _, r := range rows {
			budgets = append(budgets, r.toDomain())
		}
		return nil
	})
	if err != nil {
		return nil, &domain.ErrExternalService{Service: "supabase/budgets", Err: err}
	}

	return budgets, nil
}

// GetBudget fetches a single envelope by category and month.
func (c *Client) GetBudget(ctx context.Context, userID, categoryID, month string) (*domain.Budget, error) {
	ctx, span := tracer.Start(ctx, "Supabase.GetBudget")
	defer span.End()
	span.SetAttributes(
		attribute.String("user.id", userID),
		attribute.String("category.id", categoryID),
	)

	path := fmt.Sprintf("budgets?user_id=eq.%s&category_id=eq.%s&month=eq.%s&limit=1",
		url.QueryEscape(userID), url.QueryEscape(categoryID), url.QueryEscape(month))

	var budget *domain.Budget
	err := c.execute(ctx, func() error {
		body, err := c.doRequest(ctx, http.MethodGet, path)
		if err != nil {
			return err
		}
		if body == nil || string(body) == "[]" {
			return &domain.ErrNotFound{Resource: "budget", ID: categoryID}
		}

		var rows []budgetRow
		if err := json.Unmarshal(body, &rows); err != nil {
			return fmt.Errorf("failed to decode budget: %w", err)
		}
		if len(rows) == 0 {
			return &domain.ErrNotFound{Resource: "budget", ID: categoryID}
		}

		b := rows[0].toDomain()
		budget = &b
		return nil
	})
	if err != nil {
		var nf *domain.ErrNotFound
		if errors.As(err, &nf) {
			return nil, nf
		}
		return nil, &domain.ErrExternalService{Service: "supabase/budgets", Err: err}
	}

	return budget, nil
}

// CreateBudget inserts a new envelope and returns the stored row.
func (c *Client) CreateBudget(ctx context.Context, budget *domain.Budget) (*domain.Budget, error) {
	ctx, span := tracer.Start(ctx, "Supabase.CreateBudget")
	defer span.End()
	span.SetAttributes(attribute.String("user.id", budget.UserID))

	data := map[string]any{
		"user_id":     budget.UserID,
		"category_id": budget.CategoryID,
		"month":       budget.Month,
		"budgeted":    budget.Budgeted,
		"spent":       budget.Spent,
	}

	var created *domain.Budget
	err := c.execute(ctx, func() error {
		body, err := c.doPost(ctx, "budgets", data)
		if err != nil {
			return err
		}

		var rows []budgetRow
		if err := json.Unmarshal(body, &rows); err != nil {
			return fmt.Errorf("failed to decode created budget: %w", err)
		}
		if len(rows) == 0 {
			return fmt.Errorf("budget insert returned no rows")
		}

		b := rows[0].toDomain()
		created = &b
		return nil
	})
	if err != nil {
		return nil, &domain.ErrExternalService{Service: "supabase/budgets", Err: err}
	}

	return created, nil
}

// UpdateBudgeted sets the budgeted amount on an existing envelope.
func (c *Client) UpdateBudgeted(ctx context.Context, userID, budgetID string, budgeted float64) error {
	ctx, span := tracer.Start(ctx, "Supabase.UpdateBudgeted")
	defer span.End()
	span.SetAttributes(
		attribute.String("user.id", userID),
		attribute.String("budget.id", budgetID),
	)

	path := fmt.Sprintf("budgets?id=eq.%s&user_id=eq.%s", url.QueryEscape(budgetID), url.QueryEscape(userID))

	err := c.execute(ctx, func() error {
		return c.doPatch(ctx, path, map[string]any{"budgeted": budgeted})
	})
	if err != nil {
		return &domain.ErrExternalService{Service: "supabase/budgets", Err: err}
	}
	return nil
}
