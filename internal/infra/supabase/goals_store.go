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
// Goals (implements port.GoalStore)
// ============================================================

type goalRow struct {
	ID            string  `json:"id"`
	UserID        string  `json:"user_id"`
	Name          string  `json:"name"`
	TargetAmount  float64 `json:"target_amount"`
	CurrentAmount float64 `json:"current_amount"`
	TargetDate    string  `json:"target_date"`
}

// ListGoals fetches the user's savings goals.
func (c *Client) ListGoals(ctx context.Context, userID string) ([]domain.Goal, error) {
	ctx, span := tracer.Start(ctx, "Supabase.ListGoals")
	defer span.End()
	span.SetAttributes(attribute.String("user.id", userID))

	path := fmt.Sprintf("goals?user_id=eq.%s&order=created_at.asc", url.QueryEscape(userID))

	var goals []domain.Goal
	err := c.execute(ctx, func() error {
		body, err := c.doRequest(ctx, http.MethodGet, path)
		if err != nil {
			return err
		}
		if body == nil || string(body) == "[]" {
			goals = []domain.Goal{}
			return nil
		}

		var rows []goalRow
		if err := json.Unmarshal(body, &rows); err != nil {
			return fmt.Errorf("failed to decode goals: %w", err)
		}

		goals = make([]domain.Goal, 0, len(rows))
		for _, r := range rows {
			goals = append(goals, domain.Goal{
				ID:            r.ID,
				UserID:        r.UserID,
				Name:          r.Name,
				TargetAmount:  r.TargetAmount,
				CurrentAmount: r.CurrentAmount,
				TargetDate:    r.TargetDate,
			})
		}
		return nil
	})
	if err != nil {
		return nil, &domain.ErrExternalService{Service: "supabase/goals", Err: err}
	}

	return goals, nil
}
