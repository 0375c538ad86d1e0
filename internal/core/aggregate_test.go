package core

import (
	"math/rand"
	"testing"

	"github.com/shopspring/decimal"
)

func gbp(s string) decimal.Decimal {
	d, err := decimal.NewFromString(s)
	if err != nil {
		panic(err)
	}
	return d
}

func tx(kind Kind, amount string, date Date) Transaction {
	return Transaction{
		Kind:             kind,
		Amount:           gbp(amount),
		Currency:         "GBP",
		NormalizedAmount: gbp(amount),
		EventDate:        date,
	}
}

func TestAggregateRange(t *testing.T) {
	txs := []Transaction{
		tx(Income, "100", NewDate(2025, 12, 5)),
		tx(Expense, "40", NewDate(2025, 12, 20)),
	}

	got := AggregateRange(txs, NewDate(2025, 12, 1), NewDate(2025, 12, 31))

	if !got.Income.Equal(gbp("100")) {
		t.Errorf("Income = %s, want 100", got.Income)
	}
	if !got.Expense.Equal(gbp("40")) {
		t.Errorf("Expense = %s, want 40", got.Expense)
	}
	if !got.Balance.Equal(gbp("60")) {
		t.Errorf("Balance = %s, want 60", got.Balance)
	}
	if got.IncomeCount != 1 || got.ExpenseCount != 1 {
		t.Errorf("counts = %d/%d, want 1/1", got.IncomeCount, got.ExpenseCount)
	}
}

func TestAggregate_EmptyBucketsKept(t *testing.T) {
	txs := []Transaction{
		tx(Expense, "10", NewDate(2025, 6, 2)),
	}
	buckets := DaysIn(NewDate(2025, 6, 1), NewDate(2025, 6, 5))

	stats := Aggregate(txs, buckets, DayLabel)

	if len(stats) != 5 {
		t.Fatalf("got %d stats, want 5", len(stats))
	}
	for i, s := range stats {
		if s.Label != buckets[i].Start.String() {
			t.Errorf("stats[%d].Label = %q, want %q", i, s.Label, buckets[i].Start.String())
		}
		if i == 1 {
			continue
		}
		if !s.Income.IsZero() || !s.Expense.IsZero() || !s.Balance.IsZero() || s.IncomeCount != 0 || s.ExpenseCount != 0 {
			t.Errorf("stats[%d] = %+v, want all-zero", i, s)
		}
	}
	if !stats[1].Expense.Equal(gbp("10")) {
		t.Errorf("stats[1].Expense = %s, want 10", stats[1].Expense)
	}
}

func TestAggregate_InputOrderIndependent(t *testing.T) {
	var txs []Transaction
	for i := 0; i < 50; i++ {
		kind := Income
		if i%3 == 0 {
			kind = Expense
		}
		txs = append(txs, tx(kind, "1.37", NewDate(2025, 3, 1).AddDays(i%28)))
	}
	buckets := WeeksIn(NewDate(2025, 3, 1), NewDate(2025, 3, 28))
	want := Aggregate(txs, buckets, SpanLabel)

	rng := rand.New(rand.NewSource(7))
	for trial := 0; trial < 10; trial++ {
		shuffled := append([]Transaction(nil), txs...)
		rng.Shuffle(len(shuffled), func(i, j int) { shuffled[i], shuffled[j] = shuffled[j], shuffled[i] })
		got := Aggregate(shuffled, buckets, SpanLabel)
		for i := range want {
			if !got[i].Income.Equal(want[i].Income) || !got[i].Expense.Equal(want[i].Expense) {
				t.Fatalf("trial %d: stats[%d] = %+v, want %+v", trial, i, got[i], want[i])
			}
		}
	}
}

// Bucket sums over any partition of the range must add up to the whole-range
// totals.
func TestAggregate_PartitionRoundTrip(t *testing.T) {
	var txs []Transaction
	for i := 0; i < 90; i++ {
		kind := Expense
		if i%4 == 0 {
			kind = Income
		}
		txs = append(txs, tx(kind, "2.53", NewDate(2025, 1, 1).AddDays(i)))
	}
	from, to := NewDate(2025, 1, 1), NewDate(2025, 3, 31)
	whole := AggregateRange(txs, from, to)

	partitions := map[string][]Range{
		"days":   DaysIn(from, to),
		"weeks":  WeeksIn(from, to),
		"months": MonthsIn(from, to),
	}
	for name, buckets := range partitions {
		t.Run(name, func(t *testing.T) {
			income, expense := decimal.Zero, decimal.Zero
			for _, s := range Aggregate(txs, buckets, SpanLabel) {
				income = income.Add(s.Income)
				expense = expense.Add(s.Expense)
			}
			if !income.Equal(whole.Income) {
				t.Errorf("summed income = %s, want %s", income, whole.Income)
			}
			if !expense.Equal(whole.Expense) {
				t.Errorf("summed expense = %s, want %s", expense, whole.Expense)
			}
		})
	}
}

func TestAggregateParallel_MatchesSerial(t *testing.T) {
	var txs []Transaction
	for i := 0; i < 200; i++ {
		kind := Income
		if i%2 == 0 {
			kind = Expense
		}
		txs = append(txs, tx(kind, "9.99", NewDate(2024, 1, 1).AddDays(i)))
	}
	buckets := MonthsIn(NewDate(2024, 1, 1), NewDate(2024, 7, 31))

	serial := Aggregate(txs, buckets, MonthLabel)
	parallel := AggregateParallel(txs, buckets, MonthLabel)

	if len(serial) != len(parallel) {
		t.Fatalf("length mismatch: %d vs %d", len(serial), len(parallel))
	}
	for i := range serial {
		if serial[i].Label != parallel[i].Label ||
			!serial[i].Income.Equal(parallel[i].Income) ||
			!serial[i].Expense.Equal(parallel[i].Expense) ||
			serial[i].IncomeCount != parallel[i].IncomeCount ||
			serial[i].ExpenseCount != parallel[i].ExpenseCount {
			t.Errorf("stats[%d]: serial %+v != parallel %+v", i, serial[i], parallel[i])
		}
	}
}

func TestAggregate_PanicsOnUnorderedBuckets(t *testing.T) {
	defer func() {
		if recover() == nil {
			t.Fatal("expected panic on out-of-order buckets")
		}
	}()
	buckets := []Range{
		{Start: NewDate(2025, 2, 1), End: NewDate(2025, 2, 28)},
		{Start: NewDate(2025, 1, 1), End: NewDate(2025, 1, 31)},
	}
	Aggregate(nil, buckets, SpanLabel)
}

func TestWeeksIn_LastBucketCutAtRangeEnd(t *testing.T) {
	buckets := WeeksIn(NewDate(2025, 1, 1), NewDate(2025, 1, 10))
	if len(buckets) != 2 {
		t.Fatalf("got %d buckets, want 2", len(buckets))
	}
	if !buckets[0].End.Equal(NewDate(2025, 1, 7)) {
		t.Errorf("first week ends %v, want 2025-01-07", buckets[0].End)
	}
	if !buckets[1].End.Equal(NewDate(2025, 1, 10)) {
		t.Errorf("last week ends %v, want 2025-01-10", buckets[1].End)
	}
}

func TestMonthsIn_ClampedToRange(t *testing.T) {
	buckets := MonthsIn(NewDate(2025, 1, 15), NewDate(2025, 3, 10))
	want := []Range{
		{Start: NewDate(2025, 1, 15), End: NewDate(2025, 1, 31)},
		{Start: NewDate(2025, 2, 1), End: NewDate(2025, 2, 28)},
		{Start: NewDate(2025, 3, 1), End: NewDate(2025, 3, 10)},
	}
	if len(buckets) != len(want) {
		t.Fatalf("got %d buckets, want %d: %v", len(buckets), len(want), buckets)
	}
	for i := range want {
		if !buckets[i].Start.Equal(want[i].Start) || !buckets[i].End.Equal(want[i].End) {
			t.Errorf("bucket[%d] = %v..%v, want %v..%v", i, buckets[i].Start, buckets[i].End, want[i].Start, want[i].End)
		}
	}
}
