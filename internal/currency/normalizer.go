package currency

import (
	"errors"
	"fmt"

	"github.com/shopspring/decimal"

	"countinghelper/internal/core"
)

// DefaultBase is the ledger's base currency.
const DefaultBase = "GBP"

// Normalizer converts amounts into the base currency. It is stateless apart
// from its provider; concurrent calls with different providers never
// interfere.
type Normalizer struct {
	Base  string
	Rates RateProvider

	// LenientPairs makes a missing pair (both codes known, no rate between
	// them) fall back to rate 1.0 instead of failing. Unknown currency codes
	// always fail regardless of this flag.
	LenientPairs bool
}

// NewNormalizer returns a normalizer into base backed by rates, with the pair
// fallback enabled. Disable LenientPairs for strict conversion.
func NewNormalizer(base string, rates RateProvider) *Normalizer {
	if base == "" {
		base = DefaultBase
	}
	return &Normalizer{Base: base, Rates: rates, LenientPairs: true}
}

// Normalize converts amount from the given currency into the base currency,
// rounded to two decimal places. The amount must not be negative.
func (n *Normalizer) Normalize(amount decimal.Decimal, from string) (decimal.Decimal, error) {
	if amount.IsNegative() {
		return decimal.Zero, fmt.Errorf("%w: %s", core.ErrInvalidAmount, amount)
	}
	rate, err := n.Rates.Rate(from, n.Base)
	switch {
	case err == nil:
	case n.LenientPairs && errors.Is(err, core.ErrUnknownRatePair):
		// Documented leniency: known currencies without a quoted pair are
		// taken at par rather than rejected.
		rate = decimal.NewFromInt(1)
	default:
		return decimal.Zero, err
	}
	return amount.Mul(rate).Round(2), nil
}

// BatchError reports transactions that failed to normalize. The index refers
// to the input slice.
type BatchError struct {
	Index int
	Err   error
}

func (e BatchError) Error() string {
	return fmt.Sprintf("transaction %d: %v", e.Index, e.Err)
}

func (e BatchError) Unwrap() error { return e.Err }

// NormalizeAll fills NormalizedAmount on every transaction it can convert and
// collects per-transaction failures instead of aborting the batch. The input
// slice is not modified; converted copies are returned.
func (n *Normalizer) NormalizeAll(txs []core.Transaction) ([]core.Transaction, []BatchError) {
	out := make([]core.Transaction, 0, len(txs))
	var failed []BatchError
	for i, t := range txs {
		normalized, err := n.Normalize(t.Amount, t.Currency)
		if err != nil {
			failed = append(failed, BatchError{Index: i, Err: err})
			continue
		}
		t.NormalizedAmount = normalized
		out = append(out, t)
	}
	return out, failed
}
