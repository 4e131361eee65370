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
// Categories (implements port.CategoryStore)
// ============================================================

type categoryRow struct {
	ID       string `json:"id"`
	UserID   string `json:"user_id"`
	Name     string `json:"name"`
	Icon     string `json:"icon"`
	Color    string `json:"color"`
	IsSystem bool   `json:"is_system"`
}

// ListCategories fetches the categories visible to a user: their own
// plus the shared system set.
func (c *Client) ListCategories(ctx context.Context, userID string) ([]domain.Category, error) {
	ctx, span := tracer.Start(ctx, "Supabase.ListCategories")
	defer span.End()
	span.SetAttributes(attribute.String("user.id", userID))

	path := fmt.Sprintf("categories?or=(user_id.eq.%s,is_system.eq.true)&order=name.asc", url.QueryEscape(userID))

	var categories []domain.Category
	err := c.execute(ctx, func() error {
		body, err := c.doRequest(ctx, http.MethodGet, path)
		if err != nil {
			return err
		}
		if body == nil || string(body) == "[]" {
			categories = []domain.Category{}
			return nil
		}

		var rows []categoryRow
		if err := json.Unmarshal(body, &rows); err != nil {
			return fmt.Errorf("failed to decode categories: %w", err)
		}

		categories = make([]domain.Category, 0, len(rows))
		for _, r := range rows {
			categories = append(categories, domain.Category{
				ID:       r.ID,
				UserID:   r.UserID,
				Name:     r.Name,
				Icon:     r.Icon,
				Color:    r.Color,
				IsSystem: r.IsSystem,
			})
		}
		return nil
	})
	if err != nil {
		return nil, &domain.ErrExternalService{Service: "supabase/categories", Err: err}
	}

	return categories, nil
}
