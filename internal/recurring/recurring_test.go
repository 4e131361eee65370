package recurring_test

import (
	"math"
	"reflect"
	"testing"

	"github.com/usethallo/thallo-api/internal/recurring"
)

func expense(id, payee, date string, amount float64) recurring.Transaction {
	return recurring.Transaction{ID: id, PayeeClean: payee, Amount: -amount, Date: date}
}

func TestDetect_NetflixScenario(t *testing.T) {
	txns := []recurring.Transaction{
		{ID: "t1", PayeeClean: "NETFLIX.COM", Amount: -15.99, Date: "2024-01-01"},
		{ID: "t2", PayeeClean: "Netflix", Amount: -15.99, Date: "2024-02-01"},
	}

	charges := recurring.Detect(txns, nil)

	if len(charges) != 1 {
		t.Fatalf("expected 1 charge, got %d", len(charges))
	}
	got := charges[0]
	if got.Payee != "netflix" {
		t.Errorf("payee = %q, want %q", got.Payee, "netflix")
	}
	if got.Frequency != recurring.Monthly {
		t.Errorf("frequency = %q, want monthly", got.Frequency)
	}
	if got.NextExpectedDate != "2024-03-01" {
		t.Errorf("nextExpectedDate = %q, want 2024-03-01", got.NextExpectedDate)
	}
	if got.LastDate != "2024-02-01" {
		t.Errorf("lastDate = %q, want 2024-02-01", got.LastDate)
	}
	if got.TransactionCount != 2 {
		t.Errorf("transactionCount = %d, want 2", got.TransactionCount)
	}
	if math.Abs(got.Amount-15.99) > 1e-9 {
		t.Errorf("amount = %v, want 15.99", got.Amount)
	}
}

func TestDetect_SingleOccurrenceNeverRecurring(t *testing.T) {
	txns := []recurring.Transaction{
		expense("t1", "Spotify", "2024-03-10", 9.99),
	}
	if charges := recurring.Detect(txns, nil); len(charges) != 0 {
		t.Errorf("expected no charges for a single occurrence, got %d", len(charges))
	}
}

func TestDetect_AmountTolerance(t *testing.T) {
	// The gate measures deviation from the group mean.
	// 10.00/12.50: mean 11.25, max deviation 1.25/11.25 ≈ 11.1% — excluded.
	wide := []recurring.Transaction{
		expense("t1", "Gym", "2024-01-05", 10.00),
		expense("t2", "Gym", "2024-02-05", 12.50),
	}
	if charges := recurring.Detect(wide, nil); len(charges) != 0 {
		t.Errorf("expected >10%% deviation from mean to be excluded, got %d charges", len(charges))
	}

	// 10.00/11.50: mean 10.75, max deviation 0.75/10.75 ≈ 7.0% — included,
	// even though the amounts differ by 15% of the smaller one.
	near := []recurring.Transaction{
		expense("t1", "Gym", "2024-01-05", 10.00),
		expense("t2", "Gym", "2024-02-05", 11.50),
	}
	charges := recurring.Detect(near, nil)
	if len(charges) != 1 {
		t.Fatalf("expected 7%% deviation from mean to be included, got %d charges", len(charges))
	}
	if math.Abs(charges[0].Amount-10.75) > 1e-9 {
		t.Errorf("amount = %v, want mean 10.75", charges[0].Amount)
	}
}

func TestDetect_FrequencyBuckets(t *testing.T) {
	cases := []struct {
		name  string
		dates []string
		want  recurring.Frequency
		match bool
	}{
		{"30 days is monthly", []string{"2024-01-01", "2024-01-31"}, recurring.Monthly, true},
		{"14 days is biweekly", []string{"2024-01-01", "2024-01-15"}, recurring.Biweekly, true},
		{"7 days is weekly", []string{"2024-01-01", "2024-01-08"}, recurring.Weekly, true},
		{"20 days matches nothing", []string{"2024-01-01", "2024-01-21"}, "", false},
		{"3 days matches nothing", []string{"2024-01-01", "2024-01-04"}, "", false},
	}

	for _, tc := range cases {
		txns := make([]recurring.Transaction, len(tc.dates))
		for i, d := range tc.dates {
			txns[i] = expense("t", "Acme", d, 20)
		}
		charges := recurring.Detect(txns, nil)
		if tc.match {
			if len(charges) != 1 {
				t.Errorf("%s: expected a charge, got %d", tc.name, len(charges))
				continue
			}
			if charges[0].Frequency != tc.want {
				t.Errorf("%s: frequency = %q, want %q", tc.name, charges[0].Frequency, tc.want)
			}
		} else if len(charges) != 0 {
			t.Errorf("%s: expected no charge, got %d", tc.name, len(charges))
		}
	}
}

func TestDetect_InconsistentGapsExcluded(t *testing.T) {
	// Mean gap is 30 days but individual gaps are 7 and 53.
	txns := []recurring.Transaction{
		expense("t1", "Cafe", "2024-01-01", 5),
		expense("t2", "Cafe", "2024-01-08", 5),
		expense("t3", "Cafe", "2024-03-01", 5),
	}
	if charges := recurring.Detect(txns, nil); len(charges) != 0 {
		t.Errorf("expected irregular gaps to be excluded, got %d charges", len(charges))
	}
}

func TestDetect_SortedByAmountDescending(t *testing.T) {
	txns := []recurring.Transaction{
		expense("t1", "Spotify", "2024-01-03", 9.99),
		expense("t2", "Spotify", "2024-02-03", 9.99),
		expense("t3", "Rent", "2024-01-01", 1200),
		expense("t4", "Rent", "2024-02-01", 1200),
		expense("t5", "Gym", "2024-01-10", 45),
		expense("t6", "Gym", "2024-02-10", 45),
	}

	charges := recurring.Detect(txns, nil)
	if len(charges) != 3 {
		t.Fatalf("expected 3 charges, got %d", len(charges))
	}

	var payees []string
	for _, c := range charges {
		payees = append(payees, c.Payee)
	}
	want := []string{"rent", "gym", "spotify"}
	if !reflect.DeepEqual(payees, want) {
		t.Errorf("order = %v, want %v", payees, want)
	}
}

func TestDetect_Idempotent(t *testing.T) {
	txns := []recurring.Transaction{
		expense("t1", "Netflix", "2024-01-01", 15.99),
		expense("t2", "Netflix", "2024-02-01", 15.99),
		expense("t3", "Gym", "2024-01-10", 45),
		expense("t4", "Gym", "2024-02-10", 45),
	}

	first := recurring.Detect(txns, nil)
	second := recurring.Detect(txns, nil)
	if !reflect.DeepEqual(first, second) {
		t.Error("same input produced different charges")
	}
}

func TestDetect_DominantCategoryTieBreak(t *testing.T) {
	categories := []recurring.Category{
		{ID: "c1", Name: "Streaming", Icon: "tv", Color: "#e50914"},
		{ID: "c2", Name: "Entertainment", Icon: "film", Color: "#222222"},
	}
	txns := []recurring.Transaction{
		{ID: "t1", PayeeClean: "Netflix", Amount: -15.99, Date: "2024-01-01", CategoryID: "c1"},
		{ID: "t2", PayeeClean: "Netflix", Amount: -15.99, Date: "2024-02-01", CategoryID: "c2"},
	}

	charges := recurring.Detect(txns, categories)
	if len(charges) != 1 {
		t.Fatalf("expected 1 charge, got %d", len(charges))
	}
	// Equal counts: first-encountered category wins.
	if charges[0].Category != "Streaming" {
		t.Errorf("category = %q, want Streaming", charges[0].Category)
	}
	if charges[0].CategoryIcon != "tv" || charges[0].CategoryColor != "#e50914" {
		t.Errorf("display hints = %q/%q, want tv/#e50914", charges[0].CategoryIcon, charges[0].CategoryColor)
	}
}

func TestDetect_NoCategory(t *testing.T) {
	txns := []recurring.Transaction{
		expense("t1", "Netflix", "2024-01-01", 15.99),
		expense("t2", "Netflix", "2024-02-01", 15.99),
	}
	charges := recurring.Detect(txns, []recurring.Category{{ID: "c1", Name: "Streaming"}})
	if charges[0].Category != "" {
		t.Errorf("category = %q, want empty when no transaction is categorized", charges[0].Category)
	}
}

func TestDetect_PayeeFallback(t *testing.T) {
	txns := []recurring.Transaction{
		{ID: "t1", PayeeOriginal: "HULU.COM", Amount: -7.99, Date: "2024-01-01"},
		{ID: "t2", PayeeOriginal: "hulu", Amount: -7.99, Date: "2024-02-01"},
	}
	charges := recurring.Detect(txns, nil)
	if len(charges) != 1 || charges[0].Payee != "hulu" {
		t.Fatalf("expected payee_original fallback to group as hulu, got %+v", charges)
	}
}

func TestDetect_MalformedDateExcludesGroup(t *testing.T) {
	txns := []recurring.Transaction{
		expense("t1", "Netflix", "2024-01-01", 15.99),
		{ID: "t2", PayeeClean: "Netflix", Amount: -15.99, Date: "not-a-date"},
	}
	if charges := recurring.Detect(txns, nil); len(charges) != 0 {
		t.Errorf("expected group with malformed date to be dropped, got %d charges", len(charges))
	}
}

func TestDetect_EmptyInput(t *testing.T) {
	charges := recurring.Detect(nil, nil)
	if len(charges) != 0 {
		t.Errorf("expected empty result, got %d charges", len(charges))
	}
	if total := recurring.MonthlyTotal(charges); total != 0 {
		t.Errorf("monthly total = %v, want 0", total)
	}
}

func TestMonthlyTotal(t *testing.T) {
	charges := []recurring.Charge{
		{Amount: 100, Frequency: recurring.Monthly},
		{Amount: 10, Frequency: recurring.Weekly},
		{Amount: 50, Frequency: recurring.Biweekly},
	}
	got := recurring.MonthlyTotal(charges)
	want := 100 + 10*4.33 + 50*2.17
	if math.Abs(got-want) > 1e-9 {
		t.Errorf("monthly total = %v, want %v", got, want)
	}
}

func TestNormalizePayee(t *testing.T) {
	cases := []struct{ in, want string }{
		{"NETFLIX.COM", "netflix"},
		{"Netflix", "netflix"},
		{"  Acme   Corp  ", "acme corp"},
		{"backup.io", "backup"},
		{"example.org", "example"},
		{"shop.com.br", "shop.com.br"}, // only trailing suffixes strip
	}
	for _, tc := range cases {
		if got := recurring.NormalizePayee(tc.in); got != tc.want {
			t.Errorf("NormalizePayee(%q) = %q, want %q", tc.in, got, tc.want)
		}
	}
}
