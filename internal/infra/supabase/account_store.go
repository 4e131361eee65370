package supabase

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"

	"github.com/usethallo/thallo-api/internal/domain"

	"go.opentelemetry.io/otel/attribute"
	"go.uber.org/zap"
)

// ============================================================
// Account deletion (implements port.AccountStore)
// GoTrue admin endpoints live under /auth/v1/admin.
// ============================================================

// userTables lists every table holding per-user rows, in deletion order.
// Children before parents so FK constraints never block the wipe.
var userTables = []string{
	"score_snapshots",
	"category_rules",
	"bill_payments",
	"debt_history",
	"debts",
	"goals",
	"budgets",
	"transactions",
	"categories",
	"profiles",
}

// GetPasswordHash fetches the user's bcrypt hash from the GoTrue admin
// API. Requires the service role key; self-hosted GoTrue includes
// encrypted_password in admin user responses.
func (c *Client) GetPasswordHash(ctx context.Context, userID string) (string, error) {
	ctx, span := tracer.Start(ctx, "Supabase.GetPasswordHash")
	defer span.End()
	span.SetAttributes(attribute.String("user.id", userID))

	var hash string
	err := c.execute(ctx, func() error {
		url := fmt.Sprintf("%s/auth/v1/admin/users/%s", c.baseURL, userID)
		req, err := http.NewRequestWithContext(ctx, http.MethodGet, url, nil)
		if err != nil {
			return err
		}
		req.Header.Set("apikey", c.apiKey)
		req.Header.Set("Authorization", fmt.Sprintf("Bearer %s", c.serviceRoleKey))

		resp, err := c.httpClient.Do(req)
		if err != nil {
			c.logger.Error("supabase: admin user lookup failed", zap.Error(err))
			return err
		}
		defer resp.Body.Close()

		body, err := io.ReadAll(resp.Body)
		if err != nil {
			return err
		}
		if resp.StatusCode == http.StatusNotFound {
			return &domain.ErrNotFound{Resource: "user", ID: userID}
		}
		if resp.StatusCode < 200 || resp.StatusCode >= 300 {
			return fmt.Errorf("gotrue admin returned %d: %s", resp.StatusCode, string(body))
		}

		var user struct {
			EncryptedPassword string `json:"encrypted_password"`
		}
		if err := json.Unmarshal(body, &user); err != nil {
			return fmt.Errorf("failed to decode admin user: %w", err)
		}
		hash = user.EncryptedPassword
		return nil
	})
	if err != nil {
		return "", &domain.ErrExternalService{Service: "supabase/auth", Err: err}
	}

	return hash, nil
}

// DeleteAccountData wipes every row the user owns, then removes the auth
// user itself. Table deletes run first so a failed auth delete leaves a
// retryable state rather than orphaned data.
func (c *Client) DeleteAccountData(ctx context.Context, userID string) error {
	ctx, span := tracer.Start(ctx, "Supabase.DeleteAccountData")
	defer span.End()
	span.SetAttributes(attribute.String("user.id", userID))

	for _, table := range userTables {
		column := "user_id"
		if table == "profiles" {
			column = "id"
		}
		path := fmt.Sprintf("%s?%s=eq.%s", table, column, url.QueryEscape(userID))

		err := c.execute(ctx, func() error {
			return c.doDelete(ctx, path)
		})
		if err != nil {
			return &domain.ErrExternalService{Service: "supabase/" + table, Err: err}
		}
	}

	err := c.execute(ctx, func() error {
		url := fmt.Sprintf("%s/auth/v1/admin/users/%s", c.baseURL, userID)
		req, err := http.NewRequestWithContext(ctx, http.MethodDelete, url, nil)
		if err != nil {
			return err
		}
		req.Header.Set("apikey", c.apiKey)
		req.Header.Set("Authorization", fmt.Sprintf("Bearer %s", c.serviceRoleKey))

		resp, err := c.httpClient.Do(req)
		if err != nil {
			c.logger.Error("supabase: admin user delete failed", zap.Error(err))
			return err
		}
		defer resp.Body.Close()

		// 404 means the auth user is already gone; the wipe is idempotent.
		if resp.StatusCode != http.StatusNotFound && (resp.StatusCode < 200 || resp.StatusCode >= 300) {
			body, _ := io.ReadAll(resp.Body)
			return fmt.Errorf("gotrue admin delete returned %d: %s", resp.StatusCode, string(body))
		}
		return nil
	})
	if err != nil {
		return &domain.ErrExternalService{Service: "supabase/auth", Err: err}
	}

	c.logger.Info("account data deleted", zap.String("user_id", userID))
	return nil
}
