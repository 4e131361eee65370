package service

import (
	"context"
	"errors"
	"time"

	"github.com/usethallo/thallo-api/internal/domain"
	"github.com/usethallo/thallo-api/internal/port"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.uber.org/zap"
)

var budgetTracer = otel.Tracer("service/budgets")

// BudgetService manages monthly category envelopes and transfers
// between them.
type BudgetService struct {
	budgets port.BudgetStore
	logger  *zap.Logger
	now     func() time.Time
}

// NewBudgetService creates the budget service.
func NewBudgetService(budgets port.BudgetStore, logger *zap.Logger) *BudgetService {
	return &BudgetService{
		budgets: budgets,
		logger:  logger,
		now:     time.Now,
	}
}

// ListBudgets returns the envelopes for a month. An empty month defaults
// to the current one.
func (s *BudgetService) ListBudgets(ctx context.Context, userID, month string) ([]domain.Budget, error) {
	ctx, span := budgetTracer.Start(ctx, "BudgetService.ListBudgets")
	defer span.End()

	if month == "" {
		month = firstOfMonth(s.now())
	} else if _, err := time.Parse("2006-01-02", month); err != nil {
		return nil, &domain.ErrValidation{Field: "month", Message: "must be YYYY-MM-DD"}
	}
	return s.budgets.ListBudgets(ctx, userID, month)
}

// CreateBudget creates a new envelope.
func (s *BudgetService) CreateBudget(ctx context.Context, userID string, budget *domain.Budget) (*domain.Budget, error) {
	ctx, span := budgetTracer.Start(ctx, "BudgetService.CreateBudget")
	defer span.End()

	if budget.CategoryID == "" {
		return nil, &domain.ErrValidation{Field: "category_id", Message: "required"}
	}
	if budget.Budgeted < 0 {
		return nil, &domain.ErrValidation{Field: "budgeted", Message: "must be non-negative"}
	}
	if budget.Month == "" {
		budget.Month = firstOfMonth(s.now())
	} else if _, err := time.Parse("2006-01-02", budget.Month); err != nil {
		return nil, &domain.ErrValidation{Field: "month", Message: "must be YYYY-MM-DD"}
	}

	if existing, err := s.budgets.GetBudget(ctx, userID, budget.CategoryID, budget.Month); err == nil && existing != nil {
		return nil, &domain.ErrConflict{Message: "budget already exists for this category and month"}
	}

	budget.UserID = userID
	return s.budgets.CreateBudget(ctx, budget)
}

// Transfer moves budgeted money from one category's envelope to another
// within the same month. The source must have at least the requested
// amount budgeted. On a failed destination update the source is restored.
func (s *BudgetService) Transfer(ctx context.Context, userID string, req *domain.BudgetTransferRequest) (*domain.BudgetTransferResult, error) {
	ctx, span := budgetTracer.Start(ctx, "BudgetService.Transfer")
	defer span.End()
	span.SetAttributes(
		attribute.String("user.id", userID),
		attribute.Float64("amount", req.Amount),
	)

	if req.Amount <= 0 {
		return nil, &domain.ErrValidation{Field: "amount", Message: "must be positive"}
	}
	if req.FromCategoryID == "" || req.ToCategoryID == "" {
		return nil, &domain.ErrValidation{Field: "category_id", Message: "both from and to are required"}
	}
	if req.FromCategoryID == req.ToCategoryID {
		return nil, &domain.ErrValidation{Field: "to_category_id", Message: "must differ from from_category_id"}
	}
	month := req.Month
	if month == "" {
		month = firstOfMonth(s.now())
	}

	from, err := s.budgets.GetBudget(ctx, userID, req.FromCategoryID, month)
	if err != nil {
		return nil, err
	}
	to, err := s.budgets.GetBudget(ctx, userID, req.ToCategoryID, month)
	if err != nil {
		var nf *domain.ErrNotFound
		if errors.As(err, &nf) {
			to, err = s.budgets.CreateBudget(ctx, &domain.Budget{
				UserID:     userID,
				CategoryID: req.ToCategoryID,
				Month:      month,
			})
		}
		if err != nil {
			return nil, err
		}
	}

	if from.Budgeted < req.Amount {
		return nil, &domain.ErrInsufficientBudget{Available: from.Budgeted, Requested: req.Amount}
	}

	newFrom := from.Budgeted - req.Amount
	newTo := to.Budgeted + req.Amount

	if err := s.budgets.UpdateBudgeted(ctx, userID, from.ID, newFrom); err != nil {
		return nil, err
	}
	if err := s.budgets.UpdateBudgeted(ctx, userID, to.ID, newTo); err != nil {
		// Restore the source side so the transfer is all-or-nothing.
		if rbErr := s.budgets.UpdateBudgeted(ctx, userID, from.ID, from.Budgeted); rbErr != nil {
			s.logger.Error("budget transfer rollback failed",
				zap.String("user_id", userID),
				zap.String("budget_id", from.ID),
				zap.Error(rbErr),
			)
		}
		return nil, err
	}

	s.logger.Info("budget transferred",
		zap.String("user_id", userID),
		zap.String("from", req.FromCategoryID),
		zap.String("to", req.ToCategoryID),
		zap.Float64("amount", req.Amount),
	)

	return &domain.BudgetTransferResult{
		Success: true,
		From: domain.BudgetTransferSide{
			CategoryID:  req.FromCategoryID,
			OldBudgeted: from.Budgeted,
			NewBudgeted: newFrom,
		},
		To: domain.BudgetTransferSide{
			CategoryID:  req.ToCategoryID,
			OldBudgeted: to.Budgeted,
			NewBudgeted: newTo,
		},
		Amount: req.Amount,
	}, nil
}

func firstOfMonth(t time.Time) string {
	return time.Date(t.Year(), t.Month(), 1, 0, 0, 0, 0, time.UTC).Format("2006-01-02")
}
