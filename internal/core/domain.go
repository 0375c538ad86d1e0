package core

import (
	"errors"
	"strings"
	"time"

	"github.com/shopspring/decimal"
)

const (
	Income  Kind = "income"
	Expense Kind = "expense"
)

// Anchor defaults applied when an owner has never configured a cycle.
const (
	DefaultRepaymentDay = 15
	DefaultTimezone     = "Europe/London"
)

type (
	// Kind separates money coming in from money going out.
	Kind string

	// Transaction is an immutable ledger record. NormalizedAmount is the
	// base-currency value frozen at write time; it is never recomputed when
	// exchange rates change later.
	Transaction struct {
		ID               int64
		OwnerID          int64
		Amount           decimal.Decimal
		Currency         string
		NormalizedAmount decimal.Decimal
		Description      string
		Category         string
		PaymentMethod    string
		Kind             Kind
		EventDate        Date
		CreatedAt        time.Time
	}

	// Anchor is the per-owner billing cycle configuration.
	Anchor struct {
		RepaymentDay int
		Timezone     string
	}

	// Cycle is one billing interval, both ends inclusive. Cycles for a given
	// anchor are contiguous and non-overlapping; Start is the stable identity.
	Cycle struct {
		Start Date
		End   Date
	}

	// CycleBudget annotates a cycle with expected totals. Nil means unset.
	CycleBudget struct {
		OwnerID         int64
		CycleStart      Date
		ExpectedIncome  *decimal.Decimal
		ExpectedExpense *decimal.Decimal
	}

	// BucketStats is the reduction of one aggregation bucket.
	BucketStats struct {
		Label        string
		Income       decimal.Decimal
		Expense      decimal.Decimal
		Balance      decimal.Decimal
		IncomeCount  int
		ExpenseCount int
	}
)

var (
	ErrInvalidAnchor       = errors.New("repayment day must be between 1 and 31")
	ErrInvalidTimezone     = errors.New("unknown timezone")
	ErrUnsupportedCurrency = errors.New("unsupported currency")
	ErrUnknownRatePair     = errors.New("no rate for currency pair")
	ErrInvalidAmount       = errors.New("invalid amount")
	ErrInvalidDate         = errors.New("invalid date")
	ErrInvalidKind         = errors.New("invalid transaction kind")
	ErrNotFound            = errors.New("not found")
)

// DefaultAnchor returns the configuration used before an owner sets one.
func DefaultAnchor() Anchor {
	return Anchor{RepaymentDay: DefaultRepaymentDay, Timezone: DefaultTimezone}
}

func (a Anchor) Validate() error {
	if a.RepaymentDay < 1 || a.RepaymentDay > 31 {
		return ErrInvalidAnchor
	}
	if _, err := time.LoadLocation(a.Timezone); err != nil {
		return ErrInvalidTimezone
	}
	return nil
}

// Location resolves the anchor's IANA zone, falling back to the default when
// a stored value no longer loads.
func (a Anchor) Location() *time.Location {
	loc, err := time.LoadLocation(a.Timezone)
	if err != nil {
		loc, _ = time.LoadLocation(DefaultTimezone)
	}
	return loc
}

func (k Kind) Validate() error {
	switch k {
	case Income, Expense:
		return nil
	}
	return ErrInvalidKind
}

func (t Transaction) Validate() error {
	if err := t.EventDate.Validate(); err != nil {
		return err
	}
	if err := t.Kind.Validate(); err != nil {
		return err
	}
	if t.Amount.IsNegative() {
		return ErrInvalidAmount
	}
	if strings.TrimSpace(t.Currency) == "" {
		return ErrUnsupportedCurrency
	}
	if len(t.Description) > 200 {
		return errors.New("description too long (max 200 characters)")
	}
	return nil
}

// Days returns the number of calendar days in the cycle.
func (c Cycle) Days() int {
	return int(c.End.Sub(c.Start.Time).Hours()/24) + 1
}

// Contains reports whether d falls inside the cycle, both ends inclusive.
func (c Cycle) Contains(d Date) bool {
	return !d.Before(c.Start) && !d.After(c.End)
}

func (c Cycle) String() string {
	return c.Start.String() + ".." + c.End.String()
}
