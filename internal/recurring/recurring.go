// Package recurring detects subscription-like recurring charges from raw
// transaction history, with no user setup. The detector is a pure
// function: it reads a slice of transactions and known categories and
// produces the inferred charges, so callers can wrap it in any cache.
package recurring

import (
	"math"
	"sort"
	"strings"
	"time"
)

const dateLayout = "2006-01-02"

// Frequency is the inferred repeat cadence of a charge.
type Frequency string

const (
	Monthly  Frequency = "monthly"
	Biweekly Frequency = "biweekly"
	Weekly   Frequency = "weekly"
)

// Transaction is the minimal transaction shape the detector consumes.
// Amounts are signed; expenses are negative. Date is ISO YYYY-MM-DD.
type Transaction struct {
	ID            string  `json:"id"`
	PayeeClean    string  `json:"payee_clean"`
	PayeeOriginal string  `json:"payee_original"`
	Amount        float64 `json:"amount"`
	Date          string  `json:"date"`
	CategoryID    string  `json:"category_id"`
}

// Category carries the display info attached to detected charges.
type Category struct {
	ID    string `json:"id"`
	Name  string `json:"name"`
	Icon  string `json:"icon"`
	Color string `json:"color"`
}

// Charge is one detected recurring charge.
type Charge struct {
	Payee            string    `json:"payee"`
	Amount           float64   `json:"amount"`
	Frequency        Frequency `json:"frequency"`
	Category         string    `json:"category"`
	LastDate         string    `json:"lastDate"`
	NextExpectedDate string    `json:"nextExpectedDate"`
	TransactionCount int       `json:"transactionCount"`
	CategoryIcon     string    `json:"categoryIcon,omitempty"`
	CategoryColor    string    `json:"categoryColor,omitempty"`
}

// Detect scans transactions for recurring charges. A payee qualifies when
// it appears at least twice, all amounts sit within 10% of the group mean,
// and the gaps between occurrences are regular enough to classify as
// weekly, biweekly or monthly. Results are sorted by amount descending.
func Detect(transactions []Transaction, categories []Category) []Charge {
	keys, groups := groupByPayee(transactions)

	charges := make([]Charge, 0)
	for _, payee := range keys {
		group := groups[payee]
		if len(group) < 2 {
			continue
		}

		sorted, ok := sortByDate(group)
		if !ok {
			continue // unparseable date somewhere in the group
		}

		if !amountsSimilar(sorted) {
			continue
		}

		frequency, ok := detectFrequency(sorted)
		if !ok {
			continue
		}

		var sum float64
		for _, tx := range sorted {
			sum += math.Abs(tx.Amount)
		}
		avgAmount := sum / float64(len(sorted))

		lastDate := sorted[len(sorted)-1].Date

		charge := Charge{
			Payee:            payee,
			Amount:           avgAmount,
			Frequency:        frequency,
			LastDate:         lastDate,
			NextExpectedDate: nextDate(lastDate, frequency),
			TransactionCount: len(sorted),
		}

		if categoryID := dominantCategory(sorted); categoryID != "" {
			for _, c := range categories {
				if c.ID == categoryID {
					charge.Category = c.Name
					charge.CategoryIcon = c.Icon
					charge.CategoryColor = c.Color
					break
				}
			}
		}

		charges = append(charges, charge)
	}

	// Biggest charges first; stable so equal amounts keep input order.
	sort.SliceStable(charges, func(i, j int) bool { return charges[i].Amount > charges[j].Amount })

	return charges
}

// MonthlyTotal converts every charge to its monthly equivalent and sums:
// weekly charges recur ~4.33 times a month, biweekly ~2.17.
func MonthlyTotal(charges []Charge) float64 {
	var total float64
	for _, charge := range charges {
		switch charge.Frequency {
		case Weekly:
			total += charge.Amount * 4.33
		case Biweekly:
			total += charge.Amount * 2.17
		default:
			total += charge.Amount
		}
	}
	return total
}

// NormalizePayee canonicalizes a merchant name for grouping: lower-case,
// trailing .com/.net/.org/.io stripped, whitespace collapsed. Unrelated
// merchants sharing a normalized spelling will merge; that is an accepted
// limitation of the heuristic.
func NormalizePayee(payee string) string {
	p := strings.ToLower(payee)
	for _, suffix := range []string{".com", ".net", ".org", ".io"} {
		if strings.HasSuffix(p, suffix) {
			p = strings.TrimSuffix(p, suffix)
			break
		}
	}
	p = strings.Join(strings.Fields(p), " ")
	return strings.TrimSpace(p)
}

// groupByPayee buckets transactions by normalized payee, preserving
// first-encountered key order so downstream tie-breaks are deterministic.
func groupByPayee(transactions []Transaction) ([]string, map[string][]Transaction) {
	keys := make([]string, 0)
	groups := make(map[string][]Transaction)

	for _, tx := range transactions {
		name := tx.PayeeClean
		if name == "" {
			name = tx.PayeeOriginal
		}
		if name == "" {
			name = "Unknown"
		}
		payee := NormalizePayee(name)
		if _, seen := groups[payee]; !seen {
			keys = append(keys, payee)
		}
		groups[payee] = append(groups[payee], tx)
	}

	return keys, groups
}

// sortByDate returns the group ordered oldest-first. It reports false if
// any date fails to parse, which excludes the whole group.
func sortByDate(group []Transaction) ([]Transaction, bool) {
	type dated struct {
		tx Transaction
		at time.Time
	}

	items := make([]dated, 0, len(group))
	for _, tx := range group {
		at, err := time.Parse(dateLayout, tx.Date)
		if err != nil {
			return nil, false
		}
		items = append(items, dated{tx: tx, at: at})
	}

	sort.SliceStable(items, func(i, j int) bool { return items[i].at.Before(items[j].at) })

	sorted := make([]Transaction, len(items))
	for i, item := range items {
		sorted[i] = item.tx
	}
	return sorted, true
}

// amountsSimilar reports whether every absolute amount is within 10%
// relative deviation of the group mean.
func amountsSimilar(group []Transaction) bool {
	var sum float64
	for _, tx := range group {
		sum += math.Abs(tx.Amount)
	}
	avg := sum / float64(len(group))

	for _, tx := range group {
		if math.Abs(math.Abs(tx.Amount)-avg)/avg > 0.1 {
			return false
		}
	}
	return true
}

// detectFrequency classifies the mean day-gap between consecutive
// occurrences. Every gap must sit within 5 days of the mean, otherwise
// the pattern is too irregular to call recurring.
func detectFrequency(sorted []Transaction) (Frequency, bool) {
	gaps := make([]float64, 0, len(sorted)-1)
	for i := 1; i < len(sorted); i++ {
		prev, _ := time.Parse(dateLayout, sorted[i-1].Date)
		curr, _ := time.Parse(dateLayout, sorted[i].Date)
		gaps = append(gaps, math.Round(curr.Sub(prev).Hours()/24))
	}

	var sum float64
	for _, gap := range gaps {
		sum += gap
	}
	mean := sum / float64(len(gaps))

	for _, gap := range gaps {
		if math.Abs(gap-mean) > 5 {
			return "", false
		}
	}

	switch {
	case mean >= 25 && mean <= 35:
		return Monthly, true
	case mean >= 12 && mean <= 16:
		return Biweekly, true
	case mean >= 5 && mean <= 9:
		return Weekly, true
	}
	return "", false
}

// nextDate advances lastDate by one cadence unit.
func nextDate(lastDate string, frequency Frequency) string {
	at, err := time.Parse(dateLayout, lastDate)
	if err != nil {
		return lastDate
	}

	switch frequency {
	case Monthly:
		at = at.AddDate(0, 1, 0)
	case Biweekly:
		at = at.AddDate(0, 0, 14)
	case Weekly:
		at = at.AddDate(0, 0, 7)
	}

	return at.Format(dateLayout)
}

// dominantCategory returns the most frequent category id in the group.
// Counts are taken in slice order and only a strictly greater count wins,
// so ties resolve to the first-encountered category.
func dominantCategory(group []Transaction) string {
	counts := make(map[string]int)
	order := make([]string, 0)

	for _, tx := range group {
		if tx.CategoryID == "" {
			continue
		}
		if _, seen := counts[tx.CategoryID]; !seen {
			order = append(order, tx.CategoryID)
		}
		counts[tx.CategoryID]++
	}

	best := ""
	bestCount := 0
	for _, id := range order {
		if counts[id] > bestCount {
			best = id
			bestCount = counts[id]
		}
	}
	return best
}
