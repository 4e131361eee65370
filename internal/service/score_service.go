// Package service orchestrates stores, caches and external clients into
// the operations exposed by the HTTP layer.
package service

import (
	"context"
	"errors"
	"time"

	"github.com/usethallo/thallo-api/internal/domain"
	"github.com/usethallo/thallo-api/internal/infra/observability"
	"github.com/usethallo/thallo-api/internal/port"
	"github.com/usethallo/thallo-api/internal/score"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"
)

var tracer = otel.Tracer("service/score")

// expenseWindowMonths is the trailing window averaged into monthlyExpenses.
const expenseWindowMonths = 3

// ScoreService assembles score inputs from the ledger and computes the
// Financial Health Score.
type ScoreService struct {
	transactions port.TransactionStore
	goals        port.GoalStore
	debts        port.DebtStore
	bills        port.BillStore
	budgets      port.BudgetStore
	profiles     port.ProfileStore
	snapshots    port.SnapshotStore
	metrics      *observability.Metrics
	logger       *zap.Logger
	now          func() time.Time
}

// NewScoreService creates the score service with all dependencies injected.
func NewScoreService(
	transactions port.TransactionStore,
	goals port.GoalStore,
	debts port.DebtStore,
	bills port.BillStore,
	budgets port.BudgetStore,
	profiles port.ProfileStore,
	snapshots port.SnapshotStore,
	metrics *observability.Metrics,
	logger *zap.Logger,
) *ScoreService {
	return &ScoreService{
		transactions: transactions,
		goals:        goals,
		debts:        debts,
		bills:        bills,
		budgets:      budgets,
		profiles:     profiles,
		snapshots:    snapshots,
		metrics:      metrics,
		logger:       logger,
		now:          time.Now,
	}
}

// GetScore assembles the user's current facts and computes their score.
func (s *ScoreService) GetScore(ctx context.Context, userID string) (*score.HealthScore, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	ctx, span := tracer.Start(ctx, "ScoreService.GetScore")
	defer span.End()
	span.SetAttributes(attribute.String("user.id", userID))

	start := time.Now()
	defer func() {
		s.metrics.RecordRequestDuration("score", time.Since(start))
	}()

	input, err := s.buildScoreInput(ctx, userID)
	if err != nil {
		return nil, err
	}

	result := score.Calculate(*input)
	s.metrics.IncrScoreComputed()
	return result, nil
}

// SnapshotNow computes the user's score and persists it. Used by the
// nightly snapshot job and after manual score requests that opt in.
func (s *ScoreService) SnapshotNow(ctx context.Context, userID string) (*score.HealthScore, error) {
	ctx, span := tracer.Start(ctx, "ScoreService.SnapshotNow")
	defer span.End()
	span.SetAttributes(attribute.String("user.id", userID))

	result, err := s.GetScore(ctx, userID)
	if err != nil {
		return nil, err
	}

	snap := snapshotFromScore(userID, result)
	if err := s.snapshots.CreateSnapshot(ctx, snap); err != nil {
		s.logger.Error("failed to persist score snapshot",
			zap.String("user_id", userID),
			zap.Error(err),
		)
		s.metrics.IncrExternalError("score_snapshots")
		return nil, err
	}

	return result, nil
}

// GetHistory returns persisted snapshots, newest first.
func (s *ScoreService) GetHistory(ctx context.Context, userID string, limit int) ([]domain.ScoreSnapshot, error) {
	ctx, span := tracer.Start(ctx, "ScoreService.GetHistory")
	defer span.End()

	if limit <= 0 || limit > 365 {
		limit = 90
	}
	return s.snapshots.ListSnapshots(ctx, userID, limit)
}

// GetChange compares the current score against the most recent snapshot.
// A user with no snapshot history gets a zero-change report.
func (s *ScoreService) GetChange(ctx context.Context, userID string) (*score.ChangeReport, error) {
	ctx, span := tracer.Start(ctx, "ScoreService.GetChange")
	defer span.End()
	span.SetAttributes(attribute.String("user.id", userID))

	current, err := s.GetScore(ctx, userID)
	if err != nil {
		return nil, err
	}

	snap, err := s.snapshots.LatestSnapshot(ctx, userID)
	if err != nil {
		var nf *domain.ErrNotFound
		if errors.As(err, &nf) {
			report := score.Change(current, current)
			return &report, nil
		}
		return nil, err
	}

	report := score.Change(current, scoreFromSnapshot(snap))
	return &report, nil
}

// buildScoreInput fans out to every store feeding the score and clamps
// negative aggregates to zero so the engine only sees sane facts.
func (s *ScoreService) buildScoreInput(ctx context.Context, userID string) (*score.Input, error) {
	var (
		profile   *domain.Profile
		goals     []domain.Goal
		debts     []domain.Debt
		billStats *domain.BillStats
		budgets   []domain.Budget
		expenses  []domain.Transaction
		income    []domain.Transaction
		pastDebt  float64
	)

	now := s.now()
	windowStart := now.AddDate(0, -expenseWindowMonths, 0).Format("2006-01-02")
	monthStart := time.Date(now.Year(), now.Month(), 1, 0, 0, 0, 0, time.UTC).Format("2006-01-02")

	g, gCtx := errgroup.WithContext(ctx)

	g.Go(func() error {
		p, err := s.profiles.GetProfile(gCtx, userID)
		if err != nil {
			s.metrics.IncrExternalError("profiles")
			return err
		}
		profile = p
		return nil
	})
	g.Go(func() error {
		gl, err := s.goals.ListGoals(gCtx, userID)
		if err != nil {
			s.metrics.IncrExternalError("goals")
			return err
		}
		goals = gl
		return nil
	})
	g.Go(func() error {
		d, err := s.debts.ListDebts(gCtx, userID)
		if err != nil {
			s.metrics.IncrExternalError("debts")
			return err
		}
		debts = d
		return nil
	})
	g.Go(func() error {
		past, err := s.debts.TotalDebtAt(gCtx, userID, now.AddDate(0, -3, 0))
		if err != nil {
			s.metrics.IncrExternalError("debt_history")
			return err
		}
		pastDebt = past
		return nil
	})
	g.Go(func() error {
		b, err := s.bills.GetBillStats(gCtx, userID)
		if err != nil {
			s.metrics.IncrExternalError("bills")
			return err
		}
		billStats = b
		return nil
	})
	g.Go(func() error {
		b, err := s.budgets.ListBudgets(gCtx, userID, monthStart)
		if err != nil {
			s.metrics.IncrExternalError("budgets")
			return err
		}
		budgets = b
		return nil
	})
	g.Go(func() error {
		e, err := s.transactions.ListExpensesSince(gCtx, userID, windowStart)
		if err != nil {
			s.metrics.IncrExternalError("transactions")
			return err
		}
		expenses = e
		return nil
	})
	g.Go(func() error {
		t, err := s.transactions.ListTransactions(gCtx, userID, monthStart, "", 1000)
		if err != nil {
			s.metrics.IncrExternalError("transactions")
			return err
		}
		income = t
		return nil
	})

	if err := g.Wait(); err != nil {
		s.logger.Error("score input assembly failed",
			zap.String("user_id", userID),
			zap.Error(err),
		)
		return nil, err
	}

	var totalSavings float64
	for _, goal := range goals {
		totalSavings += goal.CurrentAmount
	}

	var totalDebt float64
	for _, debt := range debts {
		totalDebt += debt.Balance
	}

	// Trailing-window expense average. Expense amounts are negative.
	var windowExpenses float64
	for _, tx := range expenses {
		windowExpenses += -tx.Amount
	}
	monthlyExpenses := windowExpenses / expenseWindowMonths

	// This month's net: income entries minus expense entries.
	var monthIn, monthOut float64
	for _, tx := range income {
		if tx.Amount > 0 {
			monthIn += tx.Amount
		} else {
			monthOut += -tx.Amount
		}
	}
	monthlySavings := monthIn - monthOut

	onTrack := 0
	for _, b := range budgets {
		if b.OnTrack() {
			onTrack++
		}
	}

	in := &score.Input{
		MonthlyIncome:      clampNonNegative(profile.MonthlyIncome),
		MonthlySavings:     monthlySavings,
		TotalSavings:       clampNonNegative(totalSavings),
		MonthlyExpenses:    clampNonNegative(monthlyExpenses),
		TotalDebt:          clampNonNegative(totalDebt),
		DebtThreeMonthsAgo: clampNonNegative(pastDebt),
		BillsPaidOnTime:    billStats.PaidOnTime,
		TotalBills:         billStats.Total,
		BudgetsOnTrack:     onTrack,
		TotalBudgets:       len(budgets),
	}
	return in, nil
}

func clampNonNegative(v float64) float64 {
	if v < 0 {
		return 0
	}
	return v
}

// snapshotFromScore flattens a computed score into its persisted form.
func snapshotFromScore(userID string, hs *score.HealthScore) *domain.ScoreSnapshot {
	b := hs.Breakdown
	return &domain.ScoreSnapshot{
		UserID:             userID,
		Total:              hs.Total,
		Level:              hs.Level,
		PaymentConsistency: b.PaymentConsistency.Score,
		SavingsRate:        b.SavingsRate.Score,
		DebtVelocity:       b.DebtVelocity.Score,
		EmergencyBuffer:    b.EmergencyBuffer.Score,
		BudgetDiscipline:   b.BudgetDiscipline.Score,
		DebtToIncome:       b.DebtToIncome.Score,
	}
}

// scoreFromSnapshot rebuilds the minimal score shape change comparison needs.
func scoreFromSnapshot(snap *domain.ScoreSnapshot) *score.HealthScore {
	return &score.HealthScore{
		Total: snap.Total,
		Level: snap.Level,
		Breakdown: score.Breakdown{
			PaymentConsistency: score.PaymentConsistency{Score: snap.PaymentConsistency},
			SavingsRate:        score.SavingsRate{Score: snap.SavingsRate},
			DebtVelocity:       score.DebtVelocity{Score: snap.DebtVelocity},
			EmergencyBuffer:    score.EmergencyBuffer{Score: snap.EmergencyBuffer},
			BudgetDiscipline:   score.BudgetDiscipline{Score: snap.BudgetDiscipline},
			DebtToIncome:       score.DebtToIncome{Score: snap.DebtToIncome},
		},
	}
}
