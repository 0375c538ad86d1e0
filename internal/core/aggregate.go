package core

import (
	"fmt"

	"github.com/shopspring/decimal"
	"golang.org/x/sync/errgroup"
)

// Range is one aggregation bucket, both ends inclusive.
type Range struct {
	Start Date
	End   Date
}

// Contains reports whether d falls inside the range.
func (r Range) Contains(d Date) bool {
	return !d.Before(r.Start) && !d.After(r.End)
}

// Labeler renders a bucket's display label.
type Labeler func(Range) string

// DayLabel labels a one-day bucket with its date.
func DayLabel(r Range) string { return r.Start.String() }

// SpanLabel labels a bucket with its full span.
func SpanLabel(r Range) string { return r.Start.String() + ".." + r.End.String() }

// MonthLabel labels a calendar-month bucket as 2006-01.
func MonthLabel(r Range) string { return r.Start.Format("2006-01") }

// Aggregate reduces transactions into one BucketStats per bucket, aligned 1:1
// with buckets. Buckets with no matching transactions still appear with
// all-zero stats. Transactions are read only, so concurrent calls over the
// same slice are safe.
//
// Buckets must be ordered and non-overlapping; passing a non-monotonic list
// is a caller bug and panics.
func Aggregate(txs []Transaction, buckets []Range, label Labeler) []BucketStats {
	for i := 1; i < len(buckets); i++ {
		if !buckets[i].Start.After(buckets[i-1].End) {
			panic(fmt.Sprintf("core: buckets out of order at index %d: %s..%s then %s..%s",
				i, buckets[i-1].Start, buckets[i-1].End, buckets[i].Start, buckets[i].End))
		}
	}
	stats := make([]BucketStats, len(buckets))
	for i, b := range buckets {
		stats[i] = reduceRange(txs, b, label)
	}
	return stats
}

// AggregateParallel is Aggregate with one worker per bucket. Results are
// reassembled by bucket index, so output order matches the input buckets
// regardless of completion order.
func AggregateParallel(txs []Transaction, buckets []Range, label Labeler) []BucketStats {
	for i := 1; i < len(buckets); i++ {
		if !buckets[i].Start.After(buckets[i-1].End) {
			panic(fmt.Sprintf("core: buckets out of order at index %d: %s..%s then %s..%s",
				i, buckets[i-1].Start, buckets[i-1].End, buckets[i].Start, buckets[i].End))
		}
	}
	stats := make([]BucketStats, len(buckets))
	var g errgroup.Group
	for i, b := range buckets {
		g.Go(func() error {
			stats[i] = reduceRange(txs, b, label)
			return nil
		})
	}
	// Workers never return errors; Wait is only a join point.
	_ = g.Wait()
	return stats
}

// AggregateRange is the one-bucket form, used for whole-range summaries such
// as a billing cycle's totals.
func AggregateRange(txs []Transaction, from, to Date) BucketStats {
	return reduceRange(txs, Range{Start: from, End: to}, SpanLabel)
}

func reduceRange(txs []Transaction, b Range, label Labeler) BucketStats {
	s := BucketStats{
		Label:   label(b),
		Income:  decimal.Zero,
		Expense: decimal.Zero,
	}
	for _, t := range txs {
		if !b.Contains(t.EventDate) {
			continue
		}
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
	return s
}

// DaysIn returns one bucket per calendar day in [from, to].
func DaysIn(from, to Date) []Range {
	var buckets []Range
	for d := from; !d.After(to); d = d.AddDays(1) {
		buckets = append(buckets, Range{Start: d, End: d})
	}
	return buckets
}

// WeeksIn returns 7-day buckets anchored at from; the last bucket is cut at
// to so the buckets partition the range exactly.
func WeeksIn(from, to Date) []Range {
	var buckets []Range
	for d := from; !d.After(to); d = d.AddDays(7) {
		end := d.AddDays(6)
		if end.After(to) {
			end = to
		}
		buckets = append(buckets, Range{Start: d, End: end})
	}
	return buckets
}

// MonthsIn returns calendar-month buckets clamped to [from, to].
func MonthsIn(from, to Date) []Range {
	if from.After(to) {
		return nil
	}
	var buckets []Range
	y, m := from.Year(), from.Month()
	for {
		start := NewDate(y, m, 1)
		end := NewDate(y, m, daysInMonth(y, m))
		if start.Before(from) {
			start = from
		}
		if end.After(to) {
			end = to
		}
		buckets = append(buckets, Range{Start: start, End: end})
		if !end.Before(to) {
			return buckets
		}
		y, m = nextMonth(y, m)
	}
}
