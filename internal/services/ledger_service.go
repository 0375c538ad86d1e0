// Package services orchestrates the ledger: transaction writes with
// write-time currency normalization, cycle and window summaries, anchor
// configuration, and cycle budgets.
package services

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/shopspring/decimal"

	"countinghelper/internal/core"
	"countinghelper/internal/currency"
)

// Granularity selects how Summarize buckets a date range.
type Granularity string

const (
	ByDay   Granularity = "day"
	ByWeek  Granularity = "week"
	ByMonth Granularity = "month"
	ByCycle Granularity = "cycle"
)

// ParseGranularity maps a user-supplied string onto a Granularity.
func ParseGranularity(s string) (Granularity, error) {
	switch Granularity(s) {
	case ByDay, ByWeek, ByMonth, ByCycle:
		return Granularity(s), nil
	}
	return "", fmt.Errorf("unknown granularity %q", s)
}

// RecordInput is one transaction as entered by the user. The normalized
// amount is computed here, at write time, and frozen.
type RecordInput struct {
	Amount        decimal.Decimal
	Currency      string
	Description   string
	Category      string
	PaymentMethod string
	Kind          core.Kind
	EventDate     core.Date
}

// CycleSummary is one billing cycle with its aggregated stats and, when the
// owner annotated it, the expected budget.
type CycleSummary struct {
	Cycle  core.Cycle
	Stats  core.BucketStats
	Budget *core.CycleBudget
}

// AnalysisReport is the trailing-window breakdown behind the analysis view.
type AnalysisReport struct {
	Overview        core.Overview
	ByDay           map[string]core.BucketStats
	ByCategory      map[string]core.BucketStats
	ByPaymentMethod map[string]core.BucketStats
}

// Ledger wires the store, the currency normalizer, and the optional export
// event publisher together.
type Ledger struct {
	store      Store
	normalizer *currency.Normalizer
	events     EventPublisher
}

// NewLedger creates the service. events may be nil when no export pipeline is
// configured.
func NewLedger(store Store, normalizer *currency.Normalizer, events EventPublisher) *Ledger {
	return &Ledger{store: store, normalizer: normalizer, events: events}
}

// Record normalizes and stores one transaction, then publishes an export
// event. Publish failures are logged but never fail the write; the
// transaction is already durable locally.
func (l *Ledger) Record(ctx context.Context, ownerID int64, in RecordInput) (core.Transaction, error) {
	normalized, err := l.normalizer.Normalize(in.Amount, in.Currency)
	if err != nil {
		return core.Transaction{}, fmt.Errorf("normalize amount: %w", err)
	}

	t := core.Transaction{
		OwnerID:          ownerID,
		Amount:           in.Amount,
		Currency:         in.Currency,
		NormalizedAmount: normalized,
		Description:      in.Description,
		Category:         in.Category,
		PaymentMethod:    in.PaymentMethod,
		Kind:             in.Kind,
		EventDate:        in.EventDate,
		CreatedAt:        time.Now().UTC(),
	}
	if err := t.Validate(); err != nil {
		return core.Transaction{}, err
	}

	id, err := l.store.InsertTransaction(ctx, t)
	if err != nil {
		return core.Transaction{}, fmt.Errorf("save transaction: %w", err)
	}
	t.ID = id

	if l.events != nil {
		if err := l.events.PublishTransactionSync(ctx, ownerID, id, 1); err != nil {
			slog.ErrorContext(ctx, "Failed to publish sync message", "id", id, "error", err)
		}
	}
	return t, nil
}

// Delete removes a transaction and publishes a delete event, best effort.
func (l *Ledger) Delete(ctx context.Context, ownerID, id int64) error {
	if err := l.store.DeleteTransaction(ctx, ownerID, id); err != nil {
		return fmt.Errorf("delete transaction: %w", err)
	}
	if l.events != nil {
		if err := l.events.PublishTransactionDelete(ctx, ownerID, id); err != nil {
			slog.ErrorContext(ctx, "Failed to publish delete message", "id", id, "error", err)
		}
	}
	return nil
}

// Anchor returns the owner's cycle configuration, with defaults applied.
func (l *Ledger) Anchor(ctx context.Context, ownerID int64) (core.Anchor, error) {
	return l.store.Anchor(ctx, ownerID)
}

// SetAnchor validates and stores the cycle configuration. Invalid repayment
// days are rejected, not clamped. The change only affects future reads;
// summaries already computed against the old anchor are untouched.
func (l *Ledger) SetAnchor(ctx context.Context, ownerID int64, anchor core.Anchor) error {
	if err := anchor.Validate(); err != nil {
		return err
	}
	return l.store.SetAnchor(ctx, ownerID, anchor)
}

// ComputeCycles lists the owner's billing cycles overlapping [from, to].
func (l *Ledger) ComputeCycles(ctx context.Context, ownerID int64, from, to core.Date) ([]core.Cycle, error) {
	anchor, err := l.store.Anchor(ctx, ownerID)
	if err != nil {
		return nil, err
	}
	return core.CyclesOverlapping(from, to, anchor.RepaymentDay)
}

// Summarize buckets the owner's transactions over [from, to] by the given
// granularity. An empty range yields an empty result, not an error.
func (l *Ledger) Summarize(ctx context.Context, ownerID int64, from, to core.Date, g Granularity) ([]core.BucketStats, error) {
	if from.After(to) {
		return nil, nil
	}

	var (
		buckets []core.Range
		label   core.Labeler
	)
	switch g {
	case ByDay:
		buckets, label = core.DaysIn(from, to), core.DayLabel
	case ByWeek:
		buckets, label = core.WeeksIn(from, to), core.SpanLabel
	case ByMonth:
		buckets, label = core.MonthsIn(from, to), core.MonthLabel
	case ByCycle:
		cycles, err := l.ComputeCycles(ctx, ownerID, from, to)
		if err != nil {
			return nil, err
		}
		buckets, label = core.CycleRanges(cycles), cycleLabel
	default:
		return nil, fmt.Errorf("unknown granularity %q", g)
	}
	if len(buckets) == 0 {
		return nil, nil
	}

	// Cycle buckets can reach outside [from, to]; fetch the full span.
	txs, err := l.store.ListTransactions(ctx, ownerID, buckets[0].Start, buckets[len(buckets)-1].End)
	if err != nil {
		return nil, err
	}
	return core.AggregateParallel(txs, buckets, label), nil
}

// CycleWithBudget returns the cycle containing ref, its aggregated stats,
// and the budget annotation if one exists for the cycle start.
func (l *Ledger) CycleWithBudget(ctx context.Context, ownerID int64, ref core.Date) (CycleSummary, error) {
	anchor, err := l.store.Anchor(ctx, ownerID)
	if err != nil {
		return CycleSummary{}, err
	}
	cycle, err := core.CycleContaining(ref, anchor.RepaymentDay)
	if err != nil {
		return CycleSummary{}, err
	}

	txs, err := l.store.ListTransactions(ctx, ownerID, cycle.Start, cycle.End)
	if err != nil {
		return CycleSummary{}, err
	}
	summary := CycleSummary{
		Cycle: cycle,
		Stats: core.AggregateRange(txs, cycle.Start, cycle.End),
	}

	budget, err := l.store.GetBudget(ctx, ownerID, cycle.Start)
	switch {
	case err == nil:
		summary.Budget = &budget
	case errors.Is(err, core.ErrNotFound):
		// No annotation for this cycle.
	default:
		return CycleSummary{}, err
	}
	return summary, nil
}

// CyclesWithStats lists every cycle overlapping [from, to] with its stats,
// joined with budgets by cycle-start key.
func (l *Ledger) CyclesWithStats(ctx context.Context, ownerID int64, from, to core.Date) ([]CycleSummary, error) {
	cycles, err := l.ComputeCycles(ctx, ownerID, from, to)
	if err != nil || len(cycles) == 0 {
		return nil, err
	}

	txs, err := l.store.ListTransactions(ctx, ownerID, cycles[0].Start, cycles[len(cycles)-1].End)
	if err != nil {
		return nil, err
	}
	stats := core.AggregateParallel(txs, core.CycleRanges(cycles), cycleLabel)

	starts := make([]core.Date, len(cycles))
	for i, c := range cycles {
		starts[i] = c.Start
	}
	budgets, err := l.store.GetBudgets(ctx, ownerID, starts)
	if err != nil {
		return nil, err
	}

	summaries := make([]CycleSummary, len(cycles))
	for i, c := range cycles {
		summaries[i] = CycleSummary{Cycle: c, Stats: stats[i]}
		if b, ok := budgets[c.Start.String()]; ok {
			budget := b
			summaries[i].Budget = &budget
		}
	}
	return summaries, nil
}

// SetBudget stores the expected totals for a cycle, replacing both fields.
// Passing nil for a field clears it; there is no partial update.
func (l *Ledger) SetBudget(ctx context.Context, ownerID int64, cycleStart core.Date, expectedIncome, expectedExpense *decimal.Decimal) error {
	if err := cycleStart.Validate(); err != nil {
		return err
	}
	for _, v := range []*decimal.Decimal{expectedIncome, expectedExpense} {
		if v != nil && v.IsNegative() {
			return fmt.Errorf("budget: %w", core.ErrInvalidAmount)
		}
	}
	return l.store.UpsertBudget(ctx, core.CycleBudget{
		OwnerID:         ownerID,
		CycleStart:      cycleStart,
		ExpectedIncome:  expectedIncome,
		ExpectedExpense: expectedExpense,
	})
}

// Analysis periods, expressed as trailing windows ending today.
const (
	PeriodDay      = "day"
	PeriodThreeDay = "3days"
	PeriodWeek     = "week"
	PeriodMonth    = "month"
	PeriodAll      = "all"
)

// Analysis builds the trailing-window breakdown for the owner. "Today" is
// resolved in the owner's configured timezone.
func (l *Ledger) Analysis(ctx context.Context, ownerID int64, period string, now time.Time) (AnalysisReport, error) {
	anchor, err := l.store.Anchor(ctx, ownerID)
	if err != nil {
		return AnalysisReport{}, err
	}
	today := core.DateOf(now, anchor.Location())

	var from core.Date
	switch period {
	case PeriodDay:
		from = today
	case PeriodThreeDay:
		from = today.AddDays(-3)
	case PeriodWeek:
		from = today.AddDays(-7)
	case PeriodMonth:
		from = today.AddDays(-30)
	case PeriodAll:
		from = core.NewDate(1970, 1, 1)
	default:
		return AnalysisReport{}, fmt.Errorf("unknown analysis period %q", period)
	}

	txs, err := l.store.ListTransactions(ctx, ownerID, from, today)
	if err != nil {
		return AnalysisReport{}, err
	}
	return AnalysisReport{
		Overview:        core.ComputeOverview(txs),
		ByDay:           core.GroupTotals(txs, core.ByDay),
		ByCategory:      core.GroupTotals(txs, core.ByCategory),
		ByPaymentMethod: core.GroupTotals(txs, core.ByPaymentMethod),
	}, nil
}

func cycleLabel(r core.Range) string { return r.Start.String() }
