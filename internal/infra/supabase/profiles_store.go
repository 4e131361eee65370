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
// Profiles (implements port.ProfileStore)
// ============================================================

type profileRow struct {
	ID            string  `json:"id"`
	Email         string  `json:"email"`
	MonthlyIncome float64 `json:"monthly_income"`
	PayFrequency  string  `json:"pay_frequency"`
	NextPayDate   string  `json:"next_pay_date"`
	Onboarded     bool    `json:"onboarded"`
}

// GetProfile fetches a user's settings row.
func (c *Client) GetProfile(ctx context.Context, userID string) (*domain.Profile, error) {
	ctx, span := tracer.Start(ctx, "Supabase.GetProfile")
	defer span.End()
	span.SetAttributes(attribute.String("user.id", userID))

	path := fmt.Sprintf("profiles?id=eq.%s&limit=1", url.QueryEscape(userID))

	var profile *domain.Profile
	err := c.execute(ctx, func() error {
		body, err := c.doRequest(ctx, http.MethodGet, path)
		if err != nil {
			return err
		}
		if body == nil || string(body) == "[]" {
			return &domain.ErrNotFound{Resource: "profile", ID: userID}
		}

		var rows []profileRow
		if err := json.Unmarshal(body, &rows); err != nil {
			return fmt.Errorf("failed to decode profile: %w", err)
		}
		if len(rows) == 0 {
			return &domain.ErrNotFound{Resource: "profile", ID: userID}
		}

		p := rows[0]
		profile = &domain.Profile{
			ID:            p.ID,
			Email:         p.Email,
			MonthlyIncome: p.MonthlyIncome,
			PayFrequency:  p.PayFrequency,
			NextPayDate:   p.NextPayDate,
			Onboarded:     p.Onboarded,
		}
		return nil
	})
	if err != nil {
		var nf *domain.ErrNotFound
		if errors.As(err, &nf) {
			return nil, nf
		}
		return nil, &domain.ErrExternalService{Service: "supabase/profiles", Err: err}
	}

	return profile, nil
}

// ListOnboardedUserIDs returns the IDs of all onboarded users. Feeds the
// nightly score snapshot job.
func (c *Client) ListOnboardedUserIDs(ctx context.Context) ([]string, error) {
	ctx, span := tracer.Start(ctx, "Supabase.ListOnboardedUserIDs")
	defer span.End()

	path := "profiles?onboarded=eq.true&select=id"

	var ids []string
	err := c.execute(ctx, func() error {
		body, err := c.doRequest(ctx, http.MethodGet, path)
		if err != nil {
			return err
		}
		if body == nil || string(body) == "[]" {
			ids = []string{}
			return nil
		}

		var rows []struct {
			ID string `json:"id"`
		}
		if err := json.Unmarshal(body, &rows); err != nil {
			return fmt.Errorf("failed to decode profile ids: %w", err)
		}

		ids = make([]string, 0, len(rows))
		for _, r := range rows {
			ids = append(ids, r.ID)
		}
		return nil
	})
	if err != nil {
		return nil, &domain.ErrExternalService{Service: "supabase/profiles", Err: err}
	}

	return ids, nil
}
