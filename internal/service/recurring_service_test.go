package service_test

import (
	"context"
	"math"
	"testing"
	"time"

	"github.com/usethallo/thallo-api/internal/domain"
	"github.com/usethallo/thallo-api/internal/infra/cache"
	"github.com/usethallo/thallo-api/internal/infra/observability"
	"github.com/usethallo/thallo-api/internal/recurring"
	"github.com/usethallo/thallo-api/internal/service"

	"go.uber.org/zap"
)

func netflixExpenses() []domain.Transaction {
	return []domain.Transaction{
		{ID: "t1", PayeeClean: "netflix", Amount: -15.99, Date: "2024-01-01", CategoryID: "cat-stream"},
		{ID: "t2", PayeeClean: "netflix", Amount: -15.99, Date: "2024-02-01", CategoryID: "cat-stream"},
		{ID: "t3", PayeeClean: "netflix", Amount: -15.99, Date: "2024-03-01", CategoryID: "cat-stream"},
	}
}

func newRecurringService(tx *mockTransactionStore, cats *mockCategoryStore) *service.RecurringService {
	return service.NewRecurringService(
		tx, cats,
		cache.New[*service.RecurringReport](30*time.Minute),
		observability.NewMetrics(),
		zap.NewNop(),
	)
}

func TestGetRecurringCharges_DetectsAndEnriches(t *testing.T) {
	tx := &mockTransactionStore{expenses: netflixExpenses()}
	cats := &mockCategoryStore{categories: []domain.Category{
		{ID: "cat-stream", Name: "Streaming", Icon: "tv", Color: "#e50914"},
	}}

	svc := newRecurringService(tx, cats)

	report, err := svc.GetRecurringCharges(context.Background(), "u1", false)
	if err != nil {
		t.Fatalf("expected no error, got %v", err)
	}
	if len(report.Charges) != 1 {
		t.Fatalf("expected 1 charge, got %d", len(report.Charges))
	}

	charge := report.Charges[0]
	if charge.Payee != "netflix" {
		t.Errorf("payee = %q, want netflix", charge.Payee)
	}
	if charge.Frequency != recurring.Monthly {
		t.Errorf("frequency = %q, want monthly", charge.Frequency)
	}
	if charge.Category != "Streaming" || charge.CategoryIcon != "tv" {
		t.Errorf("category enrichment = %q/%q", charge.Category, charge.CategoryIcon)
	}
	if math.Abs(report.MonthlyTotal-15.99) > 1e-9 {
		t.Errorf("monthly total = %v, want 15.99", report.MonthlyTotal)
	}
	if report.DetectedAt.IsZero() {
		t.Error("expected DetectedAt to be set")
	}
}

func TestGetRecurringCharges_SecondCallHitsCache(t *testing.T) {
	tx := &mockTransactionStore{expenses: netflixExpenses()}
	cats := &mockCategoryStore{}

	svc := newRecurringService(tx, cats)

	first, err := svc.GetRecurringCharges(context.Background(), "u1", false)
	if err != nil {
		t.Fatalf("expected no error, got %v", err)
	}

	// Change the backing data; a cached result must not reflect it.
	tx.expenses = nil

	second, err := svc.GetRecurringCharges(context.Background(), "u1", false)
	if err != nil {
		t.Fatalf("expected no error, got %v", err)
	}
	if len(second.Charges) != len(first.Charges) {
		t.Errorf("cached charges = %d, want %d", len(second.Charges), len(first.Charges))
	}

	// A refresh bypasses the cache and sees the new data.
	refreshed, err := svc.GetRecurringCharges(context.Background(), "u1", true)
	if err != nil {
		t.Fatalf("expected no error, got %v", err)
	}
	if len(refreshed.Charges) != 0 {
		t.Errorf("refreshed charges = %d, want 0", len(refreshed.Charges))
	}
}

func TestGetRecurringCharges_InvalidateDropsCache(t *testing.T) {
	tx := &mockTransactionStore{expenses: netflixExpenses()}
	svc := newRecurringService(tx, &mockCategoryStore{})

	if _, err := svc.GetRecurringCharges(context.Background(), "u1", false); err != nil {
		t.Fatalf("expected no error, got %v", err)
	}

	tx.expenses = nil
	svc.Invalidate("u1")

	report, err := svc.GetRecurringCharges(context.Background(), "u1", false)
	if err != nil {
		t.Fatalf("expected no error, got %v", err)
	}
	if len(report.Charges) != 0 {
		t.Errorf("expected recompute after invalidate, got %d charges", len(report.Charges))
	}
}

func TestGetRecurringCharges_StoreError(t *testing.T) {
	tx := &mockTransactionStore{err: &domain.ErrExternalService{Service: "supabase/transactions"}}
	svc := newRecurringService(tx, &mockCategoryStore{})

	if _, err := svc.GetRecurringCharges(context.Background(), "u1", false); err == nil {
		t.Fatal("expected error when expense fetch fails")
	}
}
