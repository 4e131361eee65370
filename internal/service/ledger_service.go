package service

import (
	"context"

	"github.com/usethallo/thallo-api/internal/domain"
	"github.com/usethallo/thallo-api/internal/port"

	"go.opentelemetry.io/otel"
	"go.uber.org/zap"
)

var ledgerTracer = otel.Tracer("service/ledger")

// LedgerService exposes plain reads over the user's ledger.
type LedgerService struct {
	transactions port.TransactionStore
	categories   port.CategoryStore
	goals        port.GoalStore
	debts        port.DebtStore
	logger       *zap.Logger
}

// NewLedgerService creates the ledger read service.
func NewLedgerService(
	transactions port.TransactionStore,
	categories port.CategoryStore,
	goals port.GoalStore,
	debts port.DebtStore,
	logger *zap.Logger,
) *LedgerService {
	return &LedgerService{
		transactions: transactions,
		categories:   categories,
		goals:        goals,
		debts:        debts,
		logger:       logger,
	}
}

// ListTransactions returns ledger entries in [from, to), newest first.
func (s *LedgerService) ListTransactions(ctx context.Context, userID, from, to string, limit int) ([]domain.Transaction, error) {
	ctx, span := ledgerTracer.Start(ctx, "LedgerService.ListTransactions")
	defer span.End()

	if limit <= 0 || limit > 500 {
		limit = 100
	}
	return s.transactions.ListTransactions(ctx, userID, from, to, limit)
}

// ListCategories returns the user's categories plus the system set.
func (s *LedgerService) ListCategories(ctx context.Context, userID string) ([]domain.Category, error) {
	ctx, span := ledgerTracer.Start(ctx, "LedgerService.ListCategories")
	defer span.End()

	return s.categories.ListCategories(ctx, userID)
}

// ListGoals returns the user's savings goals.
func (s *LedgerService) ListGoals(ctx context.Context, userID string) ([]domain.Goal, error) {
	ctx, span := ledgerTracer.Start(ctx, "LedgerService.ListGoals")
	defer span.End()

	return s.goals.ListGoals(ctx, userID)
}

// ListDebts returns the user's tracked debts.
func (s *LedgerService) ListDebts(ctx context.Context, userID string) ([]domain.Debt, error) {
	ctx, span := ledgerTracer.Start(ctx, "LedgerService.ListDebts")
	defer span.End()

	return s.debts.ListDebts(ctx, userID)
}
