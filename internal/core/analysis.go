package core

import "github.com/shopspring/decimal"

// Breakdown keys used when a transaction carries no value for the grouping
// field.
const (
	UncategorizedKey  = "(uncategorized)"
	UnknownPaymentKey = "(unspecified)"
)

// Overview is the whole-range summary shown on dashboards.
type Overview struct {
	BucketStats
	// AvgDailyExpense is total expense divided by the number of distinct
	// days that have at least one transaction.
	AvgDailyExpense decimal.Decimal
}

// GroupTotals reduces transactions into per-key income/expense splits. Keys
// come from keyFn; map iteration order is up to the caller.
func GroupTotals(txs []Transaction, keyFn func(Transaction) string) map[string]BucketStats {
	groups := make(map[string]BucketStats)
	for _, t := range txs {
		key := keyFn(t)
		s, ok := groups[key]
		if !ok {
			s = BucketStats{Label: key, Income: decimal.Zero, Expense: decimal.Zero}
		}
		switch t.Kind {
		case Income:
			s.Income = s.Income.Add(t.NormalizedAmount)
			s.IncomeCount++
		default:
			s.Expense = s.Expense.Add(t.NormalizedAmount)
			s.ExpenseCount++
		}
		s.Balance = s.Income.Sub(s.Expense)
		groups[key] = s
	}
	return groups
}

// ByCategory groups by transaction category.
func ByCategory(t Transaction) string {
	if t.Category == "" {
		return UncategorizedKey
	}
	return t.Category
}

// ByPaymentMethod groups by payment method.
func ByPaymentMethod(t Transaction) string {
	if t.PaymentMethod == "" {
		return UnknownPaymentKey
	}
	return t.PaymentMethod
}

// ByDay groups by event date.
func ByDay(t Transaction) string {
	return t.EventDate.String()
}

// ComputeOverview computes whole-set totals plus the average daily expense
// over distinct transaction days.
func ComputeOverview(txs []Transaction) Overview {
	days := make(map[string]struct{}, len(txs))
	s := BucketStats{Label: "total", Income: decimal.Zero, Expense: decimal.Zero}
	for _, t := range txs {
		days[t.EventDate.String()] = struct{}{}
		switch t.Kind {
		case Income:
			s.Income = s.Income.Add(t.NormalizedAmount)
			s.IncomeCount++
		default:
			s.Expense = s.Expense.Add(t.NormalizedAmount)
			s.ExpenseCount++
		}
	}
	s.Balance = s.Income.Sub(s.Expense)
	o := Overview{BucketStats: s, AvgDailyExpense: decimal.Zero}
	if n := len(days); n > 0 {
		o.AvgDailyExpense = s.Expense.Div(decimal.NewFromInt(int64(n))).Round(2)
	}
	return o
}
