// Package domain holds the plain data types shared across the Thallo API.
package domain

import "time"

// ============================================================
// Ledger: transactions & categories
// ============================================================

// Transaction is a single ledger entry. Amounts are signed: negative
// values are expenses. Dates are ISO YYYY-MM-DD strings, matching the
// Supabase column type.
type Transaction struct {
	ID            string  `json:"id"`
	UserID        string  `json:"user_id"`
	PayeeClean    string  `json:"payee_clean"`
	PayeeOriginal string  `json:"payee_original"`
	Amount        float64 `json:"amount"`
	Date          string  `json:"date"`
	CategoryID    string  `json:"category_id"`
	Notes         string  `json:"notes,omitempty"`
}

// Category is a user-defined or system spending category.
type Category struct {
	ID       string `json:"id"`
	UserID   string `json:"user_id,omitempty"`
	Name     string `json:"name"`
	Icon     string `json:"icon"`
	Color    string `json:"color"`
	IsSystem bool   `json:"is_system"`
}

// ============================================================
// Budgets
// ============================================================

// Budget is one category's envelope for a given month. Month is the
// first day of the month as YYYY-MM-DD. Spent is denormalized by the
// backend so on-track checks are a single comparison.
type Budget struct {
	ID         string  `json:"id"`
	UserID     string  `json:"user_id"`
	CategoryID string  `json:"category_id"`
	Month      string  `json:"month"`
	Budgeted   float64 `json:"budgeted"`
	Spent      float64 `json:"spent"`
}

// OnTrack reports whether spending is still within the envelope.
func (b Budget) OnTrack() bool {
	return b.Spent <= b.Budgeted
}

// BudgetTransferRequest moves budgeted money between two categories in
// the same month.
type BudgetTransferRequest struct {
	FromCategoryID string  `json:"from_category_id"`
	ToCategoryID   string  `json:"to_category_id"`
	Amount         float64 `json:"amount"`
	Month          string  `json:"month"`
}

// BudgetTransferSide reports one side of a completed transfer.
type BudgetTransferSide struct {
	CategoryID  string  `json:"category_id"`
	OldBudgeted float64 `json:"old_budgeted"`
	NewBudgeted float64 `json:"new_budgeted"`
}

// BudgetTransferResult is the response for a completed transfer.
type BudgetTransferResult struct {
	Success bool               `json:"success"`
	From    BudgetTransferSide `json:"from"`
	To      BudgetTransferSide `json:"to"`
	Amount  float64            `json:"amount"`
}

// ============================================================
// Goals & debts
// ============================================================

// Goal is a savings goal.
type Goal struct {
	ID            string  `json:"id"`
	UserID        string  `json:"user_id"`
	Name          string  `json:"name"`
	TargetAmount  float64 `json:"target_amount"`
	CurrentAmount float64 `json:"current_amount"`
	TargetDate    string  `json:"target_date,omitempty"`
}

// Debt is a tracked liability.
type Debt struct {
	ID             string  `json:"id"`
	UserID         string  `json:"user_id"`
	Name           string  `json:"name"`
	Balance        float64 `json:"balance"`
	InterestRate   float64 `json:"interest_rate"`
	MinimumPayment float64 `json:"minimum_payment"`
}

// ============================================================
// Bills
// ============================================================

// BillStats summarizes on-time payment history over the last 12 months.
type BillStats struct {
	PaidOnTime int `json:"paid_on_time"`
	Total      int `json:"total"`
}

// ============================================================
// Profile
// ============================================================

// Profile is the per-user settings row.
type Profile struct {
	ID            string  `json:"id"`
	Email         string  `json:"email"`
	MonthlyIncome float64 `json:"monthly_income"`
	PayFrequency  string  `json:"pay_frequency"` // weekly, biweekly, semimonthly, monthly
	NextPayDate   string  `json:"next_pay_date,omitempty"`
	Onboarded     bool    `json:"onboarded"`
}

// ============================================================
// Category rules
// ============================================================

// Rule match types.
const (
	MatchExact    = "exact"
	MatchContains = "contains"
	MatchFuzzy    = "fuzzy"
)

// CategoryRule maps payees matching a pattern onto a category.
type CategoryRule struct {
	ID           string `json:"id"`
	UserID       string `json:"user_id"`
	PayeePattern string `json:"payee_pattern"`
	CategoryID   string `json:"category_id"`
	MatchType    string `json:"match_type"`
}

// ============================================================
// Rule application
// ============================================================

// RuleMatch reports one transaction matched by a category rule.
type RuleMatch struct {
	TransactionID string `json:"transaction_id"`
	Payee         string `json:"payee"`
	CategoryID    string `json:"category_id"`
	MatchType     string `json:"match_type"`
}

// RuleApplyResult is the response for POST /v1/category-rules/apply.
type RuleApplyResult struct {
	Scanned int         `json:"scanned"`
	Applied int         `json:"applied"`
	Matches []RuleMatch `json:"matches"`
}

// ============================================================
// Paycheck planning
// ============================================================

// UpcomingCharge is a recurring charge expected within a pay period.
type UpcomingCharge struct {
	Payee   string  `json:"payee"`
	Amount  float64 `json:"amount"`
	DueDate string  `json:"due_date"`
}

// Paycheck is one pay period with the charges that fall inside it.
type Paycheck struct {
	Date      string           `json:"date"`
	Amount    float64          `json:"amount"`
	Charges   []UpcomingCharge `json:"charges"`
	TotalDue  float64          `json:"total_due"`
	Remaining float64          `json:"remaining"`
}

// PaycheckPlan maps the next few paychecks onto expected recurring charges.
type PaycheckPlan struct {
	PayFrequency string     `json:"pay_frequency"`
	Paychecks    []Paycheck `json:"paychecks"`
}

// ============================================================
// Score snapshots
// ============================================================

// ScoreSnapshot is a persisted daily record of a computed score, kept so
// the change endpoint can compare against history.
type ScoreSnapshot struct {
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

// ============================================================
// Insights (AI analysis)
// ============================================================

// Insight actions accepted by the analyze endpoint.
const (
	ActionAnalyzeSpending = "analyze_spending"
	ActionFindSavings     = "find_savings"
)

// InsightRequest asks the model to analyze a blob of spending data.
type InsightRequest struct {
	Action string `json:"action"`
	Data   any    `json:"data"`
}

// InsightResponse carries the model's answer.
type InsightResponse struct {
	Result string `json:"result"`
}

// CompletionUsage is the token accounting returned by the model API.
type CompletionUsage struct {
	PromptTokens     int `json:"prompt_tokens"`
	CompletionTokens int `json:"completion_tokens"`
	TotalTokens      int `json:"total_tokens"`
}

// InsightsMetrics is the snapshot served by GET /v1/metrics/insights.
type InsightsMetrics struct {
	TotalRequests    int64   `json:"totalRequests"`
	ErrorRate        float64 `json:"errorRate"`
	AvgTokensPerCall float64 `json:"avgTokensPerCall"`
	EstimatedCostUsd float64 `json:"estimatedCostUsd"`
	CacheHitRate     float64 `json:"cacheHitRate"`
	Period           string  `json:"period"`
}

// ============================================================
// Account deletion
// ============================================================

// DeleteAccountRequest re-authenticates a destructive wipe.
type DeleteAccountRequest struct {
	Password string `json:"password"`
	Confirm  string `json:"confirm"` // must be the literal "DELETE"
}
