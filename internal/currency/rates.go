// Package currency converts transaction amounts into the ledger's base
// currency. Conversion happens once, at write time; the stored normalized
// amount is never recomputed when rates move later.
package currency

import (
	"fmt"

	"github.com/shopspring/decimal"

	"countinghelper/internal/core"
)

// RateProvider supplies the multiplicative conversion factor for an ordered
// currency pair. Implementations must be safe for concurrent use.
type RateProvider interface {
	// Rate returns the factor that converts one unit of from into to.
	// It returns core.ErrUnsupportedCurrency when a code is unknown and
	// core.ErrUnknownRatePair when both codes are known but no rate exists
	// for the pair.
	Rate(from, to string) (decimal.Decimal, error)
}

// Table is a static in-memory rate matrix.
type Table struct {
	rates map[string]map[string]decimal.Decimal
}

// NewTable builds a provider from a from -> to -> rate matrix. A currency is
// "known" when it appears as a row or inside any row.
func NewTable(rates map[string]map[string]decimal.Decimal) *Table {
	copied := make(map[string]map[string]decimal.Decimal, len(rates))
	for from, row := range rates {
		dst := make(map[string]decimal.Decimal, len(row))
		for to, r := range row {
			dst[to] = r
		}
		copied[from] = dst
	}
	return &Table{rates: copied}
}

// DefaultTable returns the built-in GBP/CNY/USD/EUR matrix.
func DefaultTable() *Table {
	rate := func(s string) decimal.Decimal { return decimal.RequireFromString(s) }
	return NewTable(map[string]map[string]decimal.Decimal{
		"GBP": {"GBP": rate("1"), "CNY": rate("9.09"), "USD": rate("1.27"), "EUR": rate("1.16")},
		"CNY": {"GBP": rate("0.11"), "CNY": rate("1"), "USD": rate("0.14"), "EUR": rate("0.13")},
		"USD": {"GBP": rate("0.79"), "CNY": rate("7.14"), "USD": rate("1"), "EUR": rate("0.91")},
		"EUR": {"GBP": rate("0.86"), "CNY": rate("7.83"), "USD": rate("1.10"), "EUR": rate("1")},
	})
}

// Rate implements RateProvider.
func (t *Table) Rate(from, to string) (decimal.Decimal, error) {
	if !t.knows(from) {
		return decimal.Zero, fmt.Errorf("%w: %s", core.ErrUnsupportedCurrency, from)
	}
	if !t.knows(to) {
		return decimal.Zero, fmt.Errorf("%w: %s", core.ErrUnsupportedCurrency, to)
	}
	if row, ok := t.rates[from]; ok {
		if r, ok := row[to]; ok {
			return r, nil
		}
	}
	return decimal.Zero, fmt.Errorf("%w: %s->%s", core.ErrUnknownRatePair, from, to)
}

func (t *Table) knows(code string) bool {
	if _, ok := t.rates[code]; ok {
		return true
	}
	for _, row := range t.rates {
		if _, ok := row[code]; ok {
			return true
		}
	}
	return false
}
