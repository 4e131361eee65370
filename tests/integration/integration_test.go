package integration_test

import (
	"encoding/json"
	"fmt"
	"math"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/usethallo/thallo-api/internal/handler"
	"github.com/usethallo/thallo-api/internal/infra/cache"
	"github.com/usethallo/thallo-api/internal/infra/observability"
	"github.com/usethallo/thallo-api/internal/infra/resilience"
	"github.com/usethallo/thallo-api/internal/infra/supabase"
	"github.com/usethallo/thallo-api/internal/recurring"
	"github.com/usethallo/thallo-api/internal/score"
	"github.com/usethallo/thallo-api/internal/service"

	"github.com/golang-jwt/jwt/v5"
	"go.uber.org/zap"
)

const (
	testUserID = "user-integration-1"
	testSecret = "integration-test-secret"
)

// fakeSupabase serves the PostgREST tables the API reads during a full
// request flow, with canned rows for one user.
type fakeSupabase struct {
	snapshotInserts []map[string]any
	snapshotRows    []map[string]any
}

func (f *fakeSupabase) handler(t *testing.T) http.HandlerFunc {
	now := time.Now()
	date := func(monthsAgo int) string {
		return now.AddDate(0, -monthsAgo, 0).Format("2006-01-02")
	}

	expenses := []map[string]any{}
	// Netflix, same amount roughly a month apart. Should be detected.
	for i := 4; i >= 1; i-- {
		expenses = append(expenses, map[string]any{
			"id": fmt.Sprintf("tx-netflix-%d", i), "user_id": testUserID,
			"payee_clean": "Netflix", "payee_original": "NETFLIX.COM 866-579-7172",
			"amount": -15.99, "date": date(i), "category_id": "cat-fun",
		})
	}
	// Irregular grocery runs. Should not be detected.
	groceries := []float64{-82.17, -45.30, -120.55}
	for i, amt := range groceries {
		expenses = append(expenses, map[string]any{
			"id": fmt.Sprintf("tx-grocery-%d", i), "user_id": testUserID,
			"payee_clean": "Kroger", "payee_original": "KROGER #123",
			"amount": amt, "date": now.AddDate(0, 0, -(i*11 + 3)).Format("2006-01-02"),
			"category_id": "cat-groceries",
		})
	}

	incomeAndExpenses := append([]map[string]any{{
		"id": "tx-paycheck", "user_id": testUserID,
		"payee_clean": "Acme Payroll", "payee_original": "ACME PAYROLL DIR DEP",
		"amount": 5000.0, "date": now.Format("2006-01-02"), "category_id": "",
	}}, expenses...)

	writeRows := func(w http.ResponseWriter, rows any) {
		w.Header().Set("Content-Type", "application/json")
		json.NewEncoder(w).Encode(rows)
	}

	return func(w http.ResponseWriter, r *http.Request) {
		q := r.URL.Query()
		switch r.URL.Path {
		case "/rest/v1/profiles":
			writeRows(w, []map[string]any{{
				"id": testUserID, "email": "user@example.com",
				"monthly_income": 5000.0, "pay_frequency": "monthly",
				"next_pay_date": now.AddDate(0, 0, 7).Format("2006-01-02"),
				"onboarded": true,
			}})
		case "/rest/v1/goals":
			writeRows(w, []map[string]any{
				{"id": "goal-1", "user_id": testUserID, "name": "Emergency fund", "target_amount": 10000.0, "current_amount": 6000.0, "target_date": ""},
				{"id": "goal-2", "user_id": testUserID, "name": "Vacation", "target_amount": 3000.0, "current_amount": 1500.0, "target_date": ""},
			})
		case "/rest/v1/debts":
			writeRows(w, []map[string]any{
				{"id": "debt-1", "user_id": testUserID, "name": "Card", "balance": 4000.0, "interest_rate": 21.9, "minimum_payment": 120.0},
			})
		case "/rest/v1/debt_history":
			writeRows(w, []map[string]any{
				{"user_id": testUserID, "total_debt": 5000.0, "recorded_at": date(3)},
			})
		case "/rest/v1/bill_payments":
			writeRows(w, []map[string]any{
				{"paid_on_time": true}, {"paid_on_time": true}, {"paid_on_time": true},
				{"paid_on_time": true}, {"paid_on_time": true}, {"paid_on_time": false},
			})
		case "/rest/v1/budgets":
			writeRows(w, []map[string]any{
				{"id": "budget-1", "user_id": testUserID, "category_id": "cat-groceries", "month": "", "budgeted": 500.0, "spent": 300.0},
				{"id": "budget-2", "user_id": testUserID, "category_id": "cat-fun", "month": "", "budgeted": 100.0, "spent": 140.0},
			})
		case "/rest/v1/categories":
			writeRows(w, []map[string]any{
				{"id": "cat-fun", "user_id": "", "name": "Entertainment", "icon": "tv", "color": "#e50914", "is_system": true},
				{"id": "cat-groceries", "user_id": "", "name": "Groceries", "icon": "cart", "color": "#2ecc71", "is_system": true},
			})
		case "/rest/v1/transactions":
			if q.Get("amount") == "lt.0" {
				writeRows(w, expenses)
				return
			}
			writeRows(w, incomeAndExpenses)
		case "/rest/v1/score_snapshots":
			if r.Method == http.MethodPost {
				var row map[string]any
				if err := json.NewDecoder(r.Body).Decode(&row); err != nil {
					w.WriteHeader(http.StatusBadRequest)
					return
				}
				row["id"] = fmt.Sprintf("snap-%d", len(f.snapshotInserts)+1)
				row["created_at"] = now.Format(time.RFC3339)
				f.snapshotInserts = append(f.snapshotInserts, row)
				f.snapshotRows = append([]map[string]any{row}, f.snapshotRows...)
				w.WriteHeader(http.StatusCreated)
				writeRows(w, []map[string]any{row})
				return
			}
			writeRows(w, f.snapshotRows)
		default:
			t.Errorf("unexpected supabase path: %s %s", r.Method, r.URL.Path)
			w.WriteHeader(http.StatusNotFound)
		}
	}
}

func newTestStack(t *testing.T, fake *fakeSupabase) http.Handler {
	t.Helper()

	supabaseServer := httptest.NewServer(fake.handler(t))
	t.Cleanup(supabaseServer.Close)

	logger := zap.NewNop()
	metrics := observability.NewMetrics()
	cb := resilience.NewCircuitBreaker("integration")
	cfg := resilience.Config{MaxRetries: 1, InitialBackoff: 10 * time.Millisecond, MaxConcurrency: 10}
	httpClient := &http.Client{Timeout: 5 * time.Second}

	store := supabase.NewClient(httpClient, supabaseServer.URL, "anon-key", "service-key", cb, cfg, logger)
	recurringCache := cache.New[*service.RecurringReport](5 * time.Minute)

	scoreSvc := service.NewScoreService(store, store, store, store, store, store, store, metrics, logger)
	recurringSvc := service.NewRecurringService(store, store, recurringCache, metrics, logger)
	ledgerSvc := service.NewLedgerService(store, store, store, store, logger)

	return handler.NewRouter(handler.Services{
		Score:     scoreSvc,
		Recurring: recurringSvc,
		Ledger:    ledgerSvc,
	}, testSecret, 100, metrics, logger)
}

func authedRequest(t *testing.T, method, target string) *http.Request {
	t.Helper()
	token := jwt.NewWithClaims(jwt.SigningMethodHS256, jwt.MapClaims{
		"sub": testUserID,
		"exp": time.Now().Add(time.Hour).Unix(),
	})
	signed, err := token.SignedString([]byte(testSecret))
	if err != nil {
		t.Fatalf("signing token: %v", err)
	}
	req := httptest.NewRequest(method, target, nil)
	req.Header.Set("Authorization", "Bearer "+signed)
	return req
}

// TestIntegration_ScoreFlow exercises score compute, snapshot and change
// comparison against a fake Supabase backend.
func TestIntegration_ScoreFlow(t *testing.T) {
	fake := &fakeSupabase{}
	router := newTestStack(t, fake)

	// --- Current score ---
	rec := httptest.NewRecorder()
	router.ServeHTTP(rec, authedRequest(t, http.MethodGet, "/v1/score"))
	if rec.Code != http.StatusOK {
		t.Fatalf("GET /v1/score: expected 200, got %d. Body: %s", rec.Code, rec.Body.String())
	}

	var hs score.HealthScore
	if err := json.NewDecoder(rec.Body).Decode(&hs); err != nil {
		t.Fatalf("decoding score: %v", err)
	}
	if hs.MaxTotal != 1000 {
		t.Errorf("maxTotal = %d, want 1000", hs.MaxTotal)
	}
	if hs.Total < 0 || hs.Total > 1000 {
		t.Errorf("total = %d, out of range", hs.Total)
	}
	// Debt fell from 5000 to 4000, so debt velocity should earn points.
	if hs.Breakdown.DebtVelocity.Score <= 0 {
		t.Errorf("debt velocity score = %d, want > 0 for shrinking debt", hs.Breakdown.DebtVelocity.Score)
	}

	// --- Snapshot it ---
	rec = httptest.NewRecorder()
	router.ServeHTTP(rec, authedRequest(t, http.MethodPost, "/v1/score/snapshot"))
	if rec.Code != http.StatusCreated {
		t.Fatalf("POST /v1/score/snapshot: expected 201, got %d. Body: %s", rec.Code, rec.Body.String())
	}
	if len(fake.snapshotInserts) != 1 {
		t.Fatalf("expected 1 snapshot insert, got %d", len(fake.snapshotInserts))
	}

	// --- Change vs the snapshot just taken: nothing moved ---
	rec = httptest.NewRecorder()
	router.ServeHTTP(rec, authedRequest(t, http.MethodGet, "/v1/score/change"))
	if rec.Code != http.StatusOK {
		t.Fatalf("GET /v1/score/change: expected 200, got %d. Body: %s", rec.Code, rec.Body.String())
	}

	var change score.ChangeReport
	if err := json.NewDecoder(rec.Body).Decode(&change); err != nil {
		t.Fatalf("decoding change report: %v", err)
	}
	if change.Change != 0 {
		t.Errorf("change = %d, want 0 when nothing moved since the snapshot", change.Change)
	}
	if len(change.Improved) != 0 || len(change.Declined) != 0 {
		t.Errorf("expected no factor movement, got improved=%v declined=%v", change.Improved, change.Declined)
	}
}

// TestIntegration_RecurringFlow exercises recurring charge detection over
// the fake ledger: Netflix is regular, groceries are not.
func TestIntegration_RecurringFlow(t *testing.T) {
	fake := &fakeSupabase{}
	router := newTestStack(t, fake)

	rec := httptest.NewRecorder()
	router.ServeHTTP(rec, authedRequest(t, http.MethodGet, "/v1/recurring"))
	if rec.Code != http.StatusOK {
		t.Fatalf("GET /v1/recurring: expected 200, got %d. Body: %s", rec.Code, rec.Body.String())
	}

	var report service.RecurringReport
	if err := json.NewDecoder(rec.Body).Decode(&report); err != nil {
		t.Fatalf("decoding report: %v", err)
	}

	var netflix *recurring.Charge
	for i := range report.Charges {
		if strings.Contains(strings.ToLower(report.Charges[i].Payee), "netflix") {
			netflix = &report.Charges[i]
		}
		if strings.Contains(strings.ToLower(report.Charges[i].Payee), "kroger") {
			t.Error("irregular groceries should not be flagged as recurring")
		}
	}
	if netflix == nil {
		t.Fatal("expected Netflix to be detected as recurring")
	}
	if netflix.Frequency != recurring.Monthly {
		t.Errorf("frequency = %s, want monthly", netflix.Frequency)
	}
	if math.Abs(netflix.Amount-15.99) > 1e-9 {
		t.Errorf("amount = %.2f, want 15.99", netflix.Amount)
	}
	if netflix.Category != "Entertainment" {
		t.Errorf("category = %q, want Entertainment", netflix.Category)
	}
	if math.Abs(report.MonthlyTotal-15.99) > 1e-9 {
		t.Errorf("monthly total = %.2f, want 15.99", report.MonthlyTotal)
	}

	// A second request is served from cache; the report is identical.
	rec = httptest.NewRecorder()
	router.ServeHTTP(rec, authedRequest(t, http.MethodGet, "/v1/recurring"))
	if rec.Code != http.StatusOK {
		t.Fatalf("cached GET /v1/recurring: expected 200, got %d", rec.Code)
	}
}

// TestIntegration_Unauthenticated confirms the ledger surface rejects
// missing tokens outright.
func TestIntegration_Unauthenticated(t *testing.T) {
	fake := &fakeSupabase{}
	router := newTestStack(t, fake)

	rec := httptest.NewRecorder()
	router.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/v1/transactions", nil))
	if rec.Code != http.StatusUnauthorized {
		t.Fatalf("expected 401, got %d", rec.Code)
	}
}
