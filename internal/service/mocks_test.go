package service_test

import (
	"context"
	"time"

	"github.com/usethallo/thallo-api/internal/domain"
)

// --- Shared mocks for the service tests ---

type mockTransactionStore struct {
	transactions  []domain.Transaction
	expenses      []domain.Transaction
	uncategorized []domain.Transaction
	err           error
	updateErr     error
	updated       map[string]string // transaction ID -> category ID
}

func (m *mockTransactionStore) ListTransactions(_ context.Context, _, _, _ string, _ int) ([]domain.Transaction, error) {
	return m.transactions, m.err
}

func (m *mockTransactionStore) ListExpensesSince(_ context.Context, _, _ string) ([]domain.Transaction, error) {
	return m.expenses, m.err
}

func (m *mockTransactionStore) ListUncategorized(_ context.Context, _ string, _ int) ([]domain.Transaction, error) {
	return m.uncategorized, m.err
}

func (m *mockTransactionStore) UpdateCategory(_ context.Context, _, transactionID, categoryID string) error {
	if m.updateErr != nil {
		return m.updateErr
	}
	if m.updated == nil {
		m.updated = make(map[string]string)
	}
	m.updated[transactionID] = categoryID
	return nil
}

type mockCategoryStore struct {
	categories []domain.Category
	err        error
}

func (m *mockCategoryStore) ListCategories(_ context.Context, _ string) ([]domain.Category, error) {
	return m.categories, m.err
}

type mockGoalStore struct {
	goals []domain.Goal
	err   error
}

func (m *mockGoalStore) ListGoals(_ context.Context, _ string) ([]domain.Goal, error) {
	return m.goals, m.err
}

type mockDebtStore struct {
	debts    []domain.Debt
	pastDebt float64
	err      error
}

func (m *mockDebtStore) ListDebts(_ context.Context, _ string) ([]domain.Debt, error) {
	return m.debts, m.err
}

func (m *mockDebtStore) TotalDebtAt(_ context.Context, _ string, _ time.Time) (float64, error) {
	return m.pastDebt, m.err
}

type mockBillStore struct {
	stats *domain.BillStats
	err   error
}

func (m *mockBillStore) GetBillStats(_ context.Context, _ string) (*domain.BillStats, error) {
	return m.stats, m.err
}

type mockBudgetStore struct {
	budgets    []domain.Budget
	created    []domain.Budget
	updates    []float64
	getErr     error
	updateErrs []error // consumed per UpdateBudgeted call, nil entries succeed
}

func (m *mockBudgetStore) ListBudgets(_ context.Context, _, _ string) ([]domain.Budget, error) {
	return m.budgets, nil
}

func (m *mockBudgetStore) GetBudget(_ context.Context, _, categoryID, _ string) (*domain.Budget, error) {
	if m.getErr != nil {
		return nil, m.getErr
	}
	for i := range m.budgets {
		if m.budgets[i].CategoryID == categoryID {
			b := m.budgets[i]
			return &b, nil
		}
	}
	return nil, &domain.ErrNotFound{Resource: "budget", ID: categoryID}
}

func (m *mockBudgetStore) CreateBudget(_ context.Context, budget *domain.Budget) (*domain.Budget, error) {
	b := *budget
	b.ID = "created-" + budget.CategoryID
	m.created = append(m.created, b)
	return &b, nil
}

func (m *mockBudgetStore) UpdateBudgeted(_ context.Context, _, _ string, budgeted float64) error {
	call := len(m.updates)
	m.updates = append(m.updates, budgeted)
	if call < len(m.updateErrs) && m.updateErrs[call] != nil {
		return m.updateErrs[call]
	}
	return nil
}

type mockProfileStore struct {
	profile *domain.Profile
	userIDs []string
	err     error
}

func (m *mockProfileStore) GetProfile(_ context.Context, _ string) (*domain.Profile, error) {
	return m.profile, m.err
}

func (m *mockProfileStore) ListOnboardedUserIDs(_ context.Context) ([]string, error) {
	return m.userIDs, m.err
}

type mockRuleStore struct {
	rules   []domain.CategoryRule
	deleted []string
	err     error
}

func (m *mockRuleStore) ListRules(_ context.Context, _ string) ([]domain.CategoryRule, error) {
	return m.rules, m.err
}

func (m *mockRuleStore) CreateRule(_ context.Context, rule *domain.CategoryRule) (*domain.CategoryRule, error) {
	r := *rule
	r.ID = "rule-1"
	return &r, m.err
}

func (m *mockRuleStore) DeleteRule(_ context.Context, _, ruleID string) error {
	m.deleted = append(m.deleted, ruleID)
	return m.err
}

type mockSnapshotStore struct {
	snapshots []domain.ScoreSnapshot
	latest    *domain.ScoreSnapshot
	created   []domain.ScoreSnapshot
	err       error
}

func (m *mockSnapshotStore) CreateSnapshot(_ context.Context, snap *domain.ScoreSnapshot) error {
	if m.err != nil {
		return m.err
	}
	m.created = append(m.created, *snap)
	return nil
}

func (m *mockSnapshotStore) ListSnapshots(_ context.Context, _ string, _ int) ([]domain.ScoreSnapshot, error) {
	return m.snapshots, m.err
}

func (m *mockSnapshotStore) LatestSnapshot(_ context.Context, userID string) (*domain.ScoreSnapshot, error) {
	if m.latest == nil {
		return nil, &domain.ErrNotFound{Resource: "snapshot", ID: userID}
	}
	return m.latest, nil
}

type mockAccountStore struct {
	hash       string
	hashErr    error
	deleteErr  error
	deletedIDs []string
}

func (m *mockAccountStore) GetPasswordHash(_ context.Context, _ string) (string, error) {
	return m.hash, m.hashErr
}

func (m *mockAccountStore) DeleteAccountData(_ context.Context, userID string) error {
	if m.deleteErr != nil {
		return m.deleteErr
	}
	m.deletedIDs = append(m.deletedIDs, userID)
	return nil
}

type mockInsightsCaller struct {
	answer string
	usage  *domain.CompletionUsage
	err    error
}

func (m *mockInsightsCaller) Complete(_ context.Context, _, _ string) (string, *domain.CompletionUsage, error) {
	return m.answer, m.usage, m.err
}
