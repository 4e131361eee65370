package service_test

import (
	"context"
	"math"
	"testing"
	"time"

	"github.com/usethallo/thallo-api/internal/domain"
	"github.com/usethallo/thallo-api/internal/infra/cache"
	"github.com/usethallo/thallo-api/internal/infra/observability"
	"github.com/usethallo/thallo-api/internal/service"

	"go.uber.org/zap"
)

func newPaycheckService(profiles *mockProfileStore, tx *mockTransactionStore) *service.PaycheckService {
	recurringSvc := service.NewRecurringService(
		tx, &mockCategoryStore{},
		cache.New[*service.RecurringReport](time.Minute),
		observability.NewMetrics(),
		zap.NewNop(),
	)
	return service.NewPaycheckService(profiles, recurringSvc, zap.NewNop())
}

func futureDate(days int) string {
	return time.Now().UTC().AddDate(0, 0, days).Format("2006-01-02")
}

func TestPlan_BiweeklyPaychecks(t *testing.T) {
	profiles := &mockProfileStore{profile: &domain.Profile{
		ID:            "u1",
		MonthlyIncome: 4340,
		PayFrequency:  service.PayBiweekly,
		NextPayDate:   futureDate(1),
	}}

	svc := newPaycheckService(profiles, &mockTransactionStore{})

	plan, err := svc.Plan(context.Background(), "u1")
	if err != nil {
		t.Fatalf("expected no error, got %v", err)
	}

	if plan.PayFrequency != service.PayBiweekly {
		t.Errorf("frequency = %q, want biweekly", plan.PayFrequency)
	}
	if len(plan.Paychecks) != 3 {
		t.Fatalf("expected 3 paychecks, got %d", len(plan.Paychecks))
	}

	// 4340 / 2.17 = 2000 per check.
	if math.Abs(plan.Paychecks[0].Amount-2000) > 1e-6 {
		t.Errorf("per-check amount = %v, want 2000", plan.Paychecks[0].Amount)
	}

	first, _ := time.Parse("2006-01-02", plan.Paychecks[0].Date)
	second, _ := time.Parse("2006-01-02", plan.Paychecks[1].Date)
	if second.Sub(first) != 14*24*time.Hour {
		t.Errorf("paychecks %v apart, want 14 days", second.Sub(first))
	}
}

func TestPlan_AssignsChargesToCoveringPaycheck(t *testing.T) {
	payDate := futureDate(2)
	profiles := &mockProfileStore{profile: &domain.Profile{
		ID:            "u1",
		MonthlyIncome: 3000,
		PayFrequency:  service.PayMonthly,
		NextPayDate:   payDate,
	}}

	// A monthly charge whose last occurrence puts the next expected date
	// a few days into the first pay period.
	last := time.Now().UTC().AddDate(0, -1, 5).Format("2006-01-02")
	prev := time.Now().UTC().AddDate(0, -2, 5).Format("2006-01-02")
	tx := &mockTransactionStore{expenses: []domain.Transaction{
		{ID: "t1", PayeeClean: "netflix", Amount: -15, Date: prev},
		{ID: "t2", PayeeClean: "netflix", Amount: -15, Date: last},
	}}

	svc := newPaycheckService(profiles, tx)

	plan, err := svc.Plan(context.Background(), "u1")
	if err != nil {
		t.Fatalf("expected no error, got %v", err)
	}

	var total float64
	var count int
	for _, check := range plan.Paychecks {
		count += len(check.Charges)
		total += check.TotalDue
		if check.Remaining != check.Amount-check.TotalDue {
			t.Errorf("remaining = %v, want %v", check.Remaining, check.Amount-check.TotalDue)
		}
	}
	if count == 0 {
		t.Fatal("expected the netflix charge to land in a pay period")
	}
	if total < 15 {
		t.Errorf("total due across plan = %v, want at least 15", total)
	}
}

func TestPlan_MissingPayFrequency(t *testing.T) {
	profiles := &mockProfileStore{profile: &domain.Profile{ID: "u1", MonthlyIncome: 3000}}
	svc := newPaycheckService(profiles, &mockTransactionStore{})

	if _, err := svc.Plan(context.Background(), "u1"); err == nil {
		t.Fatal("expected error when pay frequency is not set")
	}
}

func TestPlan_RollsPastPayDateForward(t *testing.T) {
	// next_pay_date two weeks in the past: the plan must start on or
	// after today, not in the past.
	profiles := &mockProfileStore{profile: &domain.Profile{
		ID:            "u1",
		MonthlyIncome: 2000,
		PayFrequency:  service.PayWeekly,
		NextPayDate:   time.Now().UTC().AddDate(0, 0, -14).Format("2006-01-02"),
	}}

	svc := newPaycheckService(profiles, &mockTransactionStore{})

	plan, err := svc.Plan(context.Background(), "u1")
	if err != nil {
		t.Fatalf("expected no error, got %v", err)
	}

	today := time.Now().UTC().Truncate(24 * time.Hour)
	first, _ := time.Parse("2006-01-02", plan.Paychecks[0].Date)
	if first.Before(today) {
		t.Errorf("first paycheck %v is before today", plan.Paychecks[0].Date)
	}
}
