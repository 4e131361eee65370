// Package port defines the interfaces (ports) for external dependencies.
// Following hexagonal architecture, these ports decouple the domain/service
// layer from concrete implementations.
package port

import (
	"context"
	"time"

	"github.com/usethallo/thallo-api/internal/domain"
)

// TransactionStore retrieves ledger entries.
type TransactionStore interface {
	// ListTransactions returns entries with date in [from, to), newest first.
	ListTransactions(ctx context.Context, userID, from, to string, limit int) ([]domain.Transaction, error)
	// ListExpensesSince returns negative-amount entries dated on or after
	// since, newest first. This is the recurring detector's input window.
	ListExpensesSince(ctx context.Context, userID, since string) ([]domain.Transaction, error)
	// ListUncategorized returns entries with no category, newest first.
	ListUncategorized(ctx context.Context, userID string, limit int) ([]domain.Transaction, error)
	// UpdateCategory assigns a category to a single entry.
	UpdateCategory(ctx context.Context, userID, transactionID, categoryID string) error
}

// CategoryStore retrieves the categories visible to a user (own + system).
type CategoryStore interface {
	ListCategories(ctx context.Context, userID string) ([]domain.Category, error)
}

// BudgetStore manages monthly category envelopes.
type BudgetStore interface {
	ListBudgets(ctx context.Context, userID, month string) ([]domain.Budget, error)
	GetBudget(ctx context.Context, userID, categoryID, month string) (*domain.Budget, error)
	CreateBudget(ctx context.Context, budget *domain.Budget) (*domain.Budget, error)
	// UpdateBudgeted sets the budgeted amount on an existing envelope.
	UpdateBudgeted(ctx context.Context, userID, budgetID string, budgeted float64) error
}

// GoalStore retrieves savings goals.
type GoalStore interface {
	ListGoals(ctx context.Context, userID string) ([]domain.Goal, error)
}

// DebtStore retrieves debts and debt history.
type DebtStore interface {
	ListDebts(ctx context.Context, userID string) ([]domain.Debt, error)
	// TotalDebtAt returns the recorded total debt on the history row
	// closest to (at or before) the given date, or 0 when none exists.
	TotalDebtAt(ctx context.Context, userID string, at time.Time) (float64, error)
}

// BillStore retrieves bill payment statistics.
type BillStore interface {
	GetBillStats(ctx context.Context, userID string) (*domain.BillStats, error)
}

// ProfileStore retrieves user profiles.
type ProfileStore interface {
	GetProfile(ctx context.Context, userID string) (*domain.Profile, error)
	// ListOnboardedUserIDs feeds the nightly snapshot job.
	ListOnboardedUserIDs(ctx context.Context) ([]string, error)
}

// RuleStore manages category rules.
type RuleStore interface {
	ListRules(ctx context.Context, userID string) ([]domain.CategoryRule, error)
	CreateRule(ctx context.Context, rule *domain.CategoryRule) (*domain.CategoryRule, error)
	DeleteRule(ctx context.Context, userID, ruleID string) error
}

// SnapshotStore persists computed score snapshots.
type SnapshotStore interface {
	CreateSnapshot(ctx context.Context, snap *domain.ScoreSnapshot) error
	ListSnapshots(ctx context.Context, userID string, limit int) ([]domain.ScoreSnapshot, error)
	LatestSnapshot(ctx context.Context, userID string) (*domain.ScoreSnapshot, error)
}

// AccountStore handles destructive account operations.
type AccountStore interface {
	// GetPasswordHash fetches the user's bcrypt hash from the auth admin API.
	GetPasswordHash(ctx context.Context, userID string) (string, error)
	// DeleteAccountData wipes the user's rows and the auth user itself.
	DeleteAccountData(ctx context.Context, userID string) error
}

// InsightsCaller invokes the model API for spending analysis.
type InsightsCaller interface {
	Complete(ctx context.Context, system, user string) (string, *domain.CompletionUsage, error)
}

// Cache provides generic caching with TTL.
type Cache[T any] interface {
	Get(key string) (T, bool)
	Set(key string, value T)
	Delete(key string)
}
