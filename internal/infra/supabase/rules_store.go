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
// Category rules (implements port.RuleStore)
// ============================================================

type ruleRow struct {
	ID           string `json:"id"`
	UserID       string `json:"user_id"`
	PayeePattern string `json:"payee_pattern"`
	CategoryID   string `json:"category_id"`
	MatchType    string `json:"match_type"`
}

func (r ruleRow) toDomain() domain.CategoryRule {
	return domain.CategoryRule{
		ID:           r.ID,
		UserID:       r.UserID,
		PayeePattern: r.PayeePattern,
		CategoryID:   r.CategoryID,
		MatchType:    r.MatchType,
	}
}

// ListRules fetches the user's category rules.
func (c *Client) ListRules(ctx context.Context, userID string) ([]domain.CategoryRule, error) {
	ctx, span := tracer.Start(ctx, "Supabase.ListRules")
	defer span.End()
	span.SetAttributes(attribute.String("user.id", userID))

	path := fmt.Sprintf("category_rules?user_id=eq.%s&order=created_at.asc", url.QueryEscape(userID))

	var rules []domain.CategoryRule
	err := c.execute(ctx, func() error {
		body, err := c.doRequest(ctx, http.MethodGet, path)
		if err != nil {
			return err
		}
		if body == nil || string(body) == "[]" {
			rules = []domain.CategoryRule{}
			return nil
		}

		var rows []ruleRow
		if err := json.Unmarshal(body, &rows); err != nil {
			return fmt.Errorf("failed to decode category rules: %w", err)
		}

		rules = make([]domain.CategoryRule, 0, len(rows))
		for _, r := range rows {
			rules = append(rules, r.toDomain())
		}
		return nil
	})
	if err != nil {
		return nil, &domain.ErrExternalService{Service: "supabase/category_rules", Err: err}
	}

	return rules, nil
}

// CreateRule inserts a rule and returns the stored row.
func (c *Client) CreateRule(ctx context.Context, rule *domain.CategoryRule) (*domain.CategoryRule, error) {
	ctx, span := tracer.Start(ctx, "Supabase.CreateRule")
	defer span.End()
	span.SetAttributes(attribute.String("user.id", rule.UserID))

	data := map[string]any{
		"user_id":       rule.UserID,
		"payee_pattern": rule.PayeePattern,
		"category_id":   rule.CategoryID,
		"match_type":    rule.MatchType,
	}

	var created *domain.CategoryRule
	err := c.execute(ctx, func() error {
		body, err := c.doPost(ctx, "category_rules", data)
		if err != nil {
			return err
		}

		var rows []ruleRow
		if err := json.Unmarshal(body, &rows); err != nil {
			return fmt.Errorf("failed to decode created rule: %w", err)
		}
		if len(rows) == 0 {
			return fmt.Errorf("rule insert returned no rows")
		}

		r := rows[0].toDomain()
		created = &r
		return nil
	})
	if err != nil {
		return nil, &domain.ErrExternalService{Service: "supabase/category_rules", Err: err}
	}

	return created, nil
}

// DeleteRule removes a rule owned by the user.
func (c *Client) DeleteRule(ctx context.Context, userID, ruleID string) error {
	ctx, span := tracer.Start(ctx, "Supabase.DeleteRule")
	defer span.End()
	span.SetAttributes(
		attribute.String("user.id", userID),
		attribute.String("rule.id", ruleID),
	)

	path := fmt.Sprintf("category_rules?id=eq.%s&user_id=eq.%s", url.QueryEscape(ruleID), url.QueryEscape(userID))

	err := c.execute(ctx, func() error {
		return c.doDelete(ctx, path)
	})
	if err != nil {
		return &domain.ErrExternalService{Service: "supabase/category_rules", Err: err}
	}
	return nil
}
