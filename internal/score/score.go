// Package score implements the Thallo Financial Health Score.
//
// The score measures the user's financial health on a 0-1000 scale, not
// their profitability to lenders: paying off debt, saving, and staying on
// budget are rewarded. Calculation is a pure function over a snapshot of
// facts, so the same Input always produces the same HealthScore.
package score

import (
	"fmt"
	"math"
	"sort"
)

// Input is the snapshot of financial facts a score is computed from.
// Zero is a meaningful value for every field, not "missing".
type Input struct {
	MonthlyIncome   float64 `json:"monthlyIncome"`
	MonthlySavings  float64 `json:"monthlySavings"`
	TotalSavings    float64 `json:"totalSavings"`
	MonthlyExpenses float64 `json:"monthlyExpenses"`

	TotalDebt          float64 `json:"totalDebt"`
	DebtThreeMonthsAgo float64 `json:"debtThreeMonthsAgo"`

	BillsPaidOnTime int `json:"billsPaidOnTime"`
	TotalBills      int `json:"totalBills"`

	BudgetsOnTrack int `json:"budgetsOnTrack"`
	TotalBudgets   int `json:"totalBudgets"`
}

// Factor maxima. The six together sum to 1000.
const (
	MaxPaymentConsistency = 250
	MaxSavingsRate        = 200
	MaxDebtVelocity       = 200
	MaxEmergencyBuffer    = 150
	MaxBudgetDiscipline   = 100
	MaxDebtToIncome       = 100
)

// Debt trend labels used by the debt velocity factor.
const (
	TrendDecreasing = "decreasing"
	TrendStable     = "stable"
	TrendIncreasing = "increasing"
	TrendNoDebt     = "no-debt"
)

// PaymentConsistency scores the share of bills paid on time.
type PaymentConsistency struct {
	Score      int     `json:"score"`
	MaxScore   int     `json:"maxScore"`
	Percentage float64 `json:"percentage"`
	Detail     string  `json:"detail"`
}

// SavingsRate scores the share of income saved this month.
type SavingsRate struct {
	Score    int     `json:"score"`
	MaxScore int     `json:"maxScore"`
	Rate     float64 `json:"rate"`
	Detail   string  `json:"detail"`
}

// DebtVelocity scores the trailing 3-month change in total debt.
type DebtVelocity struct {
	Score         int     `json:"score"`
	MaxScore      int     `json:"maxScore"`
	Trend         string  `json:"trend"`
	ChangePercent float64 `json:"changePercent"`
	Detail        string  `json:"detail"`
}

// EmergencyBuffer scores months of expenses covered by total savings.
type EmergencyBuffer struct {
	Score         int     `json:"score"`
	MaxScore      int     `json:"maxScore"`
	MonthsCovered float64 `json:"monthsCovered"`
	Detail        string  `json:"detail"`
}

// BudgetDiscipline scores the share of budgets within limit.
type BudgetDiscipline struct {
	Score      int     `json:"score"`
	MaxScore   int     `json:"maxScore"`
	Percentage float64 `json:"percentage"`
	Detail     string  `json:"detail"`
}

// DebtToIncome scores total debt against annualized income.
type DebtToIncome struct {
	Score    int     `json:"score"`
	MaxScore int     `json:"maxScore"`
	Ratio    float64 `json:"ratio"`
	Detail   string  `json:"detail"`
}

// Breakdown holds all six factors. Field order is the fixed factor
// declaration order relied on by tip generation and change reports.
type Breakdown struct {
	PaymentConsistency PaymentConsistency `json:"paymentConsistency"`
	SavingsRate        SavingsRate        `json:"savingsRate"`
	DebtVelocity       DebtVelocity       `json:"debtVelocity"`
	EmergencyBuffer    EmergencyBuffer    `json:"emergencyBuffer"`
	BudgetDiscipline   BudgetDiscipline   `json:"budgetDiscipline"`
	DebtToIncome       DebtToIncome       `json:"debtToIncome"`
}

// HealthScore is the complete computed score.
type HealthScore struct {
	Total     int       `json:"total"`
	MaxTotal  int       `json:"maxTotal"`
	Level     int       `json:"level"`
	Title     string    `json:"title"`
	Breakdown Breakdown `json:"breakdown"`
	Tips      []string  `json:"tips"`
}

// ChangeReport compares two scores factor by factor.
type ChangeReport struct {
	Change   int      `json:"change"`
	Improved []string `json:"improved"`
	Declined []string `json:"declined"`
}

// Calculate computes the complete Financial Health Score from a snapshot
// of facts. It performs no I/O and never fails; degenerate inputs (zero
// denominators, no tracked bills or budgets) resolve to the documented
// sentinel scores.
func Calculate(in Input) *HealthScore {
	breakdown := Breakdown{
		PaymentConsistency: calculatePaymentConsistency(in.BillsPaidOnTime, in.TotalBills),
		SavingsRate:        calculateSavingsRate(in.MonthlySavings, in.MonthlyIncome),
		DebtVelocity:       calculateDebtVelocity(in.TotalDebt, in.DebtThreeMonthsAgo),
		EmergencyBuffer:    calculateEmergencyBuffer(in.TotalSavings, in.MonthlyExpenses),
		BudgetDiscipline:   calculateBudgetDiscipline(in.BudgetsOnTrack, in.TotalBudgets),
		DebtToIncome:       calculateDebtToIncome(in.TotalDebt, in.MonthlyIncome),
	}

	total := breakdown.PaymentConsistency.Score +
		breakdown.SavingsRate.Score +
		breakdown.DebtVelocity.Score +
		breakdown.EmergencyBuffer.Score +
		breakdown.BudgetDiscipline.Score +
		breakdown.DebtToIncome.Score

	level, title := scoreLevel(total)

	return &HealthScore{
		Total:     total,
		MaxTotal:  1000,
		Level:     level,
		Title:     title,
		Breakdown: breakdown,
		Tips:      generateTips(breakdown),
	}
}

// calculatePaymentConsistency: 25% of total (250 points).
// No tracked bills is a perfect score, not a penalty.
func calculatePaymentConsistency(billsPaidOnTime, totalBills int) PaymentConsistency {
	if totalBills == 0 {
		return PaymentConsistency{
			Score:      MaxPaymentConsistency,
			MaxScore:   MaxPaymentConsistency,
			Percentage: 100,
			Detail:     "No bills tracked yet",
		}
	}

	percentage := float64(billsPaidOnTime) / float64(totalBills) * 100
	sc := int(math.Round(percentage / 100 * MaxPaymentConsistency))

	var detail string
	switch {
	case percentage == 100:
		detail = "Perfect payment history! 🎯"
	case percentage >= 95:
		detail = fmt.Sprintf("%.0f%% on-time - Excellent!", percentage)
	case percentage >= 90:
		detail = fmt.Sprintf("%.0f%% on-time - Good, room to improve", percentage)
	case percentage >= 80:
		detail = fmt.Sprintf("%.0f%% on-time - Needs attention", percentage)
	default:
		detail = fmt.Sprintf("%.0f%% on-time - Priority: Set up autopay", percentage)
	}

	return PaymentConsistency{Score: sc, MaxScore: MaxPaymentConsistency, Percentage: percentage, Detail: detail}
}

// calculateSavingsRate: 20% of total (200 points).
// Benchmark: 20%+ is the "pay yourself first" gold standard.
func calculateSavingsRate(monthlySavings, monthlyIncome float64) SavingsRate {
	if monthlyIncome == 0 {
		return SavingsRate{Score: 0, MaxScore: MaxSavingsRate, Rate: 0, Detail: "No income recorded"}
	}

	rate := monthlySavings / monthlyIncome * 100

	var sc int
	var detail string
	switch {
	case rate >= 20:
		sc = 200
		detail = fmt.Sprintf("%.0f%% savings rate - Crushing it! 🚀", rate)
	case rate >= 15:
		sc = 175
		detail = fmt.Sprintf("%.0f%% savings rate - Great progress!", rate)
	case rate >= 10:
		sc = 150
		detail = fmt.Sprintf("%.0f%% savings rate - Solid foundation", rate)
	case rate >= 5:
		sc = 100
		detail = fmt.Sprintf("%.0f%% savings rate - Building momentum", rate)
	case rate > 0:
		sc = 50
		detail = fmt.Sprintf("%.0f%% savings rate - Every bit counts!", rate)
	default:
		sc = 0
		detail = "No savings this month - Let's change that!"
	}

	return SavingsRate{Score: sc, MaxScore: MaxSavingsRate, Rate: rate, Detail: detail}
}

// calculateDebtVelocity: 20% of total (200 points).
// The inverse of credit-bureau logic: paying debt DOWN is what scores.
func calculateDebtVelocity(totalDebt, debtThreeMonthsAgo float64) DebtVelocity {
	if totalDebt == 0 && debtThreeMonthsAgo == 0 {
		return DebtVelocity{
			Score:    MaxDebtVelocity,
			MaxScore: MaxDebtVelocity,
			Trend:    TrendNoDebt,
			Detail:   "Debt-free! 🏆",
		}
	}

	// Just paid off everything.
	if totalDebt == 0 && debtThreeMonthsAgo > 0 {
		return DebtVelocity{
			Score:         MaxDebtVelocity,
			MaxScore:      MaxDebtVelocity,
			Trend:         TrendDecreasing,
			ChangePercent: -100,
			Detail:        "You paid off all your debt! 🎉",
		}
	}

	var changePercent float64
	if debtThreeMonthsAgo > 0 {
		changePercent = (totalDebt - debtThreeMonthsAgo) / debtThreeMonthsAgo * 100
	} else if totalDebt > 0 {
		changePercent = 100 // new debt from zero
	}

	var sc int
	var trend, detail string
	switch {
	case changePercent <= -15:
		sc = 200
		trend = TrendDecreasing
		detail = fmt.Sprintf("Debt down %.0f%% - Excellent progress!", math.Abs(changePercent))
	case changePercent <= -6:
		sc = 175
		trend = TrendDecreasing
		detail = fmt.Sprintf("Debt down %.0f%% - Great trajectory!", math.Abs(changePercent))
	case changePercent < 0:
		sc = 150
		trend = TrendDecreasing
		detail = fmt.Sprintf("Debt down %.0f%% - Moving in right direction", math.Abs(changePercent))
	case changePercent <= 2:
		sc = 100
		trend = TrendStable
		detail = "Debt stable - Can you accelerate payoff?"
	case changePercent <= 10:
		sc = 50
		trend = TrendIncreasing
		detail = fmt.Sprintf("Debt up %.0f%% - Time to course correct", changePercent)
	default:
		sc = 0
		trend = TrendIncreasing
		detail = fmt.Sprintf("Debt up %.0f%% - Urgent: Review spending", changePercent)
	}

	return DebtVelocity{Score: sc, MaxScore: MaxDebtVelocity, Trend: trend, ChangePercent: changePercent, Detail: detail}
}

// calculateEmergencyBuffer: 15% of total (150 points).
// Gold standard is 3-6 months of expenses in reserve.
func calculateEmergencyBuffer(totalSavings, monthlyExpenses float64) EmergencyBuffer {
	if monthlyExpenses == 0 {
		if totalSavings > 0 {
			// No expense history to divide by; report a capped 12 months.
			return EmergencyBuffer{
				Score:         MaxEmergencyBuffer,
				MaxScore:      MaxEmergencyBuffer,
				MonthsCovered: 12,
				Detail:        "Great savings!",
			}
		}
		return EmergencyBuffer{
			Score:    0,
			MaxScore: MaxEmergencyBuffer,
			Detail:   "No expenses tracked",
		}
	}

	monthsCovered := totalSavings / monthlyExpenses

	var sc int
	var detail string
	switch {
	case monthsCovered >= 6:
		sc = 150
		detail = fmt.Sprintf("%.1f months covered - Fortress mode! 🏰", monthsCovered)
	case monthsCovered >= 3:
		sc = 125
		detail = fmt.Sprintf("%.1f months covered - Solid safety net", monthsCovered)
	case monthsCovered >= 1:
		sc = 100
		detail = fmt.Sprintf("%.1f months covered - Keep building", monthsCovered)
	case monthsCovered >= 0.5:
		sc = 50
		detail = fmt.Sprintf("%.0f days covered - Growing!", math.Round(monthsCovered*30))
	case monthsCovered > 0:
		sc = 25
		detail = fmt.Sprintf("%.0f days covered - Starting out", math.Round(monthsCovered*30))
	default:
		sc = 0
		detail = "No emergency fund yet - Start small!"
	}

	return EmergencyBuffer{Score: sc, MaxScore: MaxEmergencyBuffer, MonthsCovered: monthsCovered, Detail: detail}
}

// calculateBudgetDiscipline: 10% of total (100 points).
// No budgets set is neutral: half credit, to encourage creating some.
func calculateBudgetDiscipline(budgetsOnTrack, totalBudgets int) BudgetDiscipline {
	if totalBudgets == 0 {
		return BudgetDiscipline{
			Score:    50,
			MaxScore: MaxBudgetDiscipline,
			Detail:   "No budgets set - Create some to track progress!",
		}
	}

	percentage := float64(budgetsOnTrack) / float64(totalBudgets) * 100
	sc := int(math.Round(percentage))

	var detail string
	switch {
	case percentage == 100:
		detail = fmt.Sprintf("All %d budgets on track! 🎯", totalBudgets)
	case percentage >= 80:
		detail = fmt.Sprintf("%d/%d budgets on track - Great!", budgetsOnTrack, totalBudgets)
	case percentage >= 60:
		detail = fmt.Sprintf("%d/%d budgets on track - Watch a few", budgetsOnTrack, totalBudgets)
	default:
		detail = fmt.Sprintf("%d/%d budgets on track - Needs focus", budgetsOnTrack, totalBudgets)
	}

	return BudgetDiscipline{Score: sc, MaxScore: MaxBudgetDiscipline, Percentage: percentage, Detail: detail}
}

// calculateDebtToIncome: 10% of total (100 points).
// Zero debt is a perfect score regardless of income.
func calculateDebtToIncome(totalDebt, monthlyIncome float64) DebtToIncome {
	if totalDebt == 0 {
		return DebtToIncome{
			Score:    MaxDebtToIncome,
			MaxScore: MaxDebtToIncome,
			Detail:   "No debt! Perfect score 🏆",
		}
	}

	annualIncome := monthlyIncome * 12
	if annualIncome == 0 {
		return DebtToIncome{Score: 0, MaxScore: MaxDebtToIncome, Detail: "No income recorded"}
	}

	ratio := totalDebt / annualIncome * 100

	var sc int
	var detail string
	switch {
	case ratio <= 10:
		sc = 100
		detail = fmt.Sprintf("%.0f%% DTI - Very healthy", ratio)
	case ratio <= 20:
		sc = 90
		detail = fmt.Sprintf("%.0f%% DTI - Good standing", ratio)
	case ratio <= 30:
		sc = 75
		detail = fmt.Sprintf("%.0f%% DTI - Manageable", ratio)
	case ratio <= 40:
		sc = 50
		detail = fmt.Sprintf("%.0f%% DTI - Getting heavy", ratio)
	case ratio <= 50:
		sc = 25
		detail = fmt.Sprintf("%.0f%% DTI - Debt is weighing you down", ratio)
	default:
		sc = 0
		detail = fmt.Sprintf("%.0f%% DTI - Debt exceeds half your income", ratio)
	}

	return DebtToIncome{Score: sc, MaxScore: MaxDebtToIncome, Ratio: ratio, Detail: detail}
}

// scoreLevel maps a total to its level and title.
func scoreLevel(total int) (int, string) {
	switch {
	case total >= 900:
		return 5, "Financial Freedom"
	case total >= 750:
		return 4, "Wealth Builder"
	case total >= 600:
		return 3, "Solid Ground"
	case total >= 400:
		return 2, "Foundation"
	case total >= 200:
		return 1, "Getting Started"
	default:
		return 0, "Beginning Journey"
	}
}

// generateTips emits canned tips for the weakest factors.
// The stable sort keeps factor declaration order on equal fractions, so
// output is reproducible.
func generateTips(b Breakdown) []string {
	areas := []struct {
		pct float64
		tip string
	}{
		{float64(b.PaymentConsistency.Score) / MaxPaymentConsistency, "Set up autopay for recurring bills to never miss a payment"},
		{float64(b.SavingsRate.Score) / MaxSavingsRate, "Try the \"pay yourself first\" rule: save before spending"},
		{float64(b.DebtVelocity.Score) / MaxDebtVelocity, "Use the avalanche method: pay minimums on all, extra on highest interest"},
		{float64(b.EmergencyBuffer.Score) / MaxEmergencyBuffer, "Build your emergency fund: aim for $1,000, then 1 month expenses"},
		{float64(b.BudgetDiscipline.Score) / MaxBudgetDiscipline, "Review overspent budgets - can you trim or reallocate?"},
		{float64(b.DebtToIncome.Score) / MaxDebtToIncome, "Focus on paying down high-interest debt first"},
	}

	sort.SliceStable(areas, func(i, j int) bool { return areas[i].pct < areas[j].pct })

	tips := make([]string, 0, 3)
	for _, area := range areas[:3] {
		if area.pct < 1 {
			tips = append(tips, area.tip)
		}
	}

	if len(tips) == 0 {
		tips = append(tips, "You're doing amazing! Keep up the great work 🌟")
	}

	return tips
}

// Factor display names, in declaration order, used by Change.
var factorNames = []string{
	"Payment Consistency",
	"Savings Rate",
	"Debt Progress",
	"Emergency Fund",
	"Budget Discipline",
	"Debt-to-Income",
}

// Change compares the current score against a previous one and buckets
// each factor as improved or declined. Unchanged factors appear in
// neither bucket. Bucket order follows factor declaration order.
func Change(current, previous *HealthScore) ChangeReport {
	currentScores := factorScores(current.Breakdown)
	previousScores := factorScores(previous.Breakdown)

	report := ChangeReport{
		Change:   current.Total - previous.Total,
		Improved: []string{},
		Declined: []string{},
	}

	for i, name := range factorNames {
		switch {
		case currentScores[i] > previousScores[i]:
			report.Improved = append(report.Improved, name)
		case currentScores[i] < previousScores[i]:
			report.Declined = append(report.Declined, name)
		}
	}

	return report
}

// factorScores flattens a breakdown into declaration order.
func factorScores(b Breakdown) [6]int {
	return [6]int{
		b.PaymentConsistency.Score,
		b.SavingsRate.Score,
		b.DebtVelocity.Score,
		b.EmergencyBuffer.Score,
		b.BudgetDiscipline.Score,
		b.DebtToIncome.Score,
	}
}
