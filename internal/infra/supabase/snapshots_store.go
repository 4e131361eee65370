package supabase

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"net/url"
	"time"

	"github.com/usethallo/thallo-api/internal/domain"

	"go.opentelemetry.io/otel/attribute"
)

// ============================================================
// Score snapshots (implements port.SnapshotStore)
// ============================================================

type snapshotRow struct {
	ID                 string    `json:"id"`
	UserID             string    `json:"user_id"`
	Total              int       `json:"total"`
	Level              int       `json:"level"`
	PaymentConsistency int       `json:"payment_consistency"`
	SavingsRate        int       `json:"savings_rate"`
	DebtVelocity       int       `json:"debt_velocity"`
	EmergencyBuffer    int       `json:"emergency_buffer"`
	BudgetDiscipline   int       `json:"budget_discipline"`
	DebtToIncome       int       `json:"debt_to_income"`
	CreatedAt          time.Time `json:"created_at"`
}

func (r snapshotRow) toDomain() domain.ScoreSnapshot {
	return domain.ScoreSnapshot{
		ID:                 r.ID,
		UserID:             r.UserID,
		Total:              r.Total,
		Level:              r.Level,
		PaymentConsistency: r.PaymentConsistency,
		SavingsRate:        r.SavingsRate,
		DebtVelocity:       r.DebtVelocity,
		EmergencyBuffer:    r.EmergencyBuffer,
		BudgetDiscipline:   r.BudgetDiscipline,
		DebtToIncome:       r.DebtToIncome,
		CreatedAt:          r.CreatedAt,
	}
}

// CreateSnapshot persists a computed score.
func (c *Client) CreateSnapshot(ctx context.Context, snap *domain.ScoreSnapshot) error {
	ctx, span := tracer.Start(ctx, "Supabase.CreateSnapshot")
	defer span.End()
	span.SetAttributes(attribute.String("user.id", snap.UserID))

	data := map[string]any{
		"user_id":             snap.UserID,
		"total":               snap.Total,
		"level":               snap.Level,
		"payment_consistency": snap.PaymentConsistency,
		"savings_rate":        snap.SavingsRate,
		"debt_velocity":       snap.DebtVelocity,
		"emergency_buffer":    snap.EmergencyBuffer,
		"budget_discipline":   snap.BudgetDiscipline,
		"debt_to_income":      snap.DebtToIncome,
	}

	err := c.execute(ctx, func() error {
		_, err := c.doPost(ctx, "score_snapshots", data)
		return err
	})
	if err != nil {
		return &domain.ErrExternalService{Service: "supabase/score_snapshots", Err: err}
	}
	return nil
}

// ListSnapshots fetches the user's snapshot history, newest first.
func (c *Client) ListSnapshots(ctx context.Context, userID string, limit int) ([]domain.ScoreSnapshot, error) {
	ctx, span := tracer.Start(ctx, "Supabase.ListSnapshots")
	defer span.End()
	span.SetAttributes(attribute.String("user.id", userID))

	path := fmt.Sprintf("score_snapshots?user_id=eq.%s&order=created_at.desc&limit=%d",
		url.QueryEscape(userID), limit)

	var snapshots []domain.ScoreSnapshot
	err := c.execute(ctx, func() error {
		body, err := c.doRequest(ctx, http.MethodGet, path)
		if err != nil {
			return err
		}
		if body == nil || string(body) == "[]" {
			snapshots = []domain.ScoreSnapshot{}
			return nil
		}

		var rows []snapshotRow
		if err := json.Unmarshal(body, &rows); err != nil {
			return fmt.Errorf("failed to decode snapshots: %w", err)
		}

		snapshots = make([]domain.ScoreSnapshot, 0, len(rows))
		for _, r := range rows {
			snapshots = append(snapshots, r.toDomain())
		}
		return nil
	})
	if err != nil {
		return nil, &domain.ErrExternalService{Service: "supabase/score_snapshots", Err: err}
	}

	return snapshots, nil
}

// LatestSnapshot fetches the most recent snapshot for change comparison.
func (c *Client) LatestSnapshot(ctx context.Context, userID string) (*domain.ScoreSnapshot, error) {
	ctx, span := tracer.Start(ctx, "Supabase.LatestSnapshot")
	defer span.End()
	span.SetAttributes(attribute.String("user.id", userID))

	path := fmt.Sprintf("score_snapshots?user_id=eq.%s&order=created_at.desc&limit=1", url.QueryEscape(userID))

	var snapshot *domain.ScoreSnapshot
	err := c.execute(ctx, func() error {
		body, err := c.doRequest(ctx, http.MethodGet, path)
		if err != nil {
			return err
		}
		if body == nil || string(body) == "[]" {
			return &domain.ErrNotFound{Resource: "snapshot", ID: userID}
		}

		var rows []snapshotRow
		if err := json.Unmarshal(body, &rows); err != nil {
			return fmt.Errorf("failed to decode snapshot: %w", err)
		}
		if len(rows) == 0 {
			return &domain.ErrNotFound{Resource: "snapshot", ID: userID}
		}

		s := rows[0].toDomain()
		snapshot = &s
		return nil
	})
	if err != nil {
		var nf *domain.ErrNotFound
		if errors.As(err, &nf) {
			return nil, nf
		}
		return nil, &domain.ErrExternalService{Service: "supabase/score_snapshots", Err: err}
	}

	return snapshot, nil
}
