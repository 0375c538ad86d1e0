package storage

import (
	"context"
	"errors"
	"path/filepath"
	"testing"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"countinghelper/internal/core"
)

func newTestRepo(t *testing.T) *SQLiteRepository {
	t.Helper()
	repo, err := NewSQLiteRepository(filepath.Join(t.TempDir(), "ledger.db"))
	require.NoError(t, err)
	t.Cleanup(func() { repo.Close() })
	return repo
}

func dec(s string) decimal.Decimal { return decimal.RequireFromString(s) }

func sample(owner int64, kind core.Kind, amount string, date core.Date) core.Transaction {
	return core.Transaction{
		OwnerID:          owner,
		Amount:           dec(amount),
		Currency:         "GBP",
		NormalizedAmount: dec(amount),
		Description:      "test entry",
		Category:         "misc",
		PaymentMethod:    "card",
		Kind:             kind,
		EventDate:        date,
	}
}

func TestInsertAndGetTransaction(t *testing.T) {
	repo := newTestRepo(t)
	ctx := context.Background()

	in := sample(1, core.Expense, "12.50", core.NewDate(2025, 6, 10))
	in.Amount = dec("15.82")
	in.Currency = "USD"
	in.NormalizedAmount = dec("12.50")

	id, err := repo.InsertTransaction(ctx, in)
	require.NoError(t, err)
	require.NotZero(t, id)

	got, err := repo.GetTransaction(ctx, 1, id)
	require.NoError(t, err)
	assert.Equal(t, id, got.ID)
	assert.Equal(t, int64(1), got.OwnerID)
	assert.True(t, got.Amount.Equal(dec("15.82")), "amount round trip")
	assert.Equal(t, "USD", got.Currency)
	assert.True(t, got.NormalizedAmount.Equal(dec("12.50")), "normalized amount round trip")
	assert.Equal(t, core.Expense, got.Kind)
	assert.True(t, got.EventDate.Equal(core.NewDate(2025, 6, 10)))
	assert.Equal(t, "test entry", got.Description)
}

// The stored normalized amount is a frozen snapshot: re-reads return exactly
// what was written, regardless of what any rate table says now.
func TestNormalizedAmountIsFrozen(t *testing.T) {
	repo := newTestRepo(t)
	ctx := context.Background()

	in := sample(1, core.Expense, "30", core.NewDate(2025, 6, 1))
	in.Currency = "USD"
	in.NormalizedAmount = dec("23.70") // written at rate 0.79

	id, err := repo.InsertTransaction(ctx, in)
	require.NoError(t, err)

	// A rate change to 0.75 would imply 22.50, but re-reads keep 23.70.
	got, err := repo.GetTransaction(ctx, 1, id)
	require.NoError(t, err)
	assert.True(t, got.NormalizedAmount.Equal(dec("23.70")),
		"normalized amount changed on re-read: %s", got.NormalizedAmount)
}

func TestGetTransaction_WrongOwner(t *testing.T) {
	repo := newTestRepo(t)
	ctx := context.Background()

	id, err := repo.InsertTransaction(ctx, sample(1, core.Income, "5", core.NewDate(2025, 1, 1)))
	require.NoError(t, err)

	_, err = repo.GetTransaction(ctx, 2, id)
	assert.ErrorIs(t, err, core.ErrNotFound)
}

func TestInsertTransaction_Invalid(t *testing.T) {
	repo := newTestRepo(t)

	bad := sample(1, "transfer", "5", core.NewDate(2025, 1, 1))
	_, err := repo.InsertTransaction(context.Background(), bad)
	assert.ErrorIs(t, err, core.ErrInvalidKind)
}

func TestListTransactions_RangeInclusive(t *testing.T) {
	repo := newTestRepo(t)
	ctx := context.Background()

	dates := []core.Date{
		core.NewDate(2025, 5, 31),
		core.NewDate(2025, 6, 1),
		core.NewDate(2025, 6, 15),
		core.NewDate(2025, 6, 30),
		core.NewDate(2025, 7, 1),
	}
	for _, d := range dates {
		_, err := repo.InsertTransaction(ctx, sample(1, core.Expense, "1", d))
		require.NoError(t, err)
	}
	// Another owner's rows must not leak in.
	_, err := repo.InsertTransaction(ctx, sample(2, core.Expense, "1", core.NewDate(2025, 6, 15)))
	require.NoError(t, err)

	txs, err := repo.ListTransactions(ctx, 1, core.NewDate(2025, 6, 1), core.NewDate(2025, 6, 30))
	require.NoError(t, err)
	require.Len(t, txs, 3)
	assert.True(t, txs[0].EventDate.Equal(core.NewDate(2025, 6, 1)))
	assert.True(t, txs[2].EventDate.Equal(core.NewDate(2025, 6, 30)))
}

func TestDeleteTransaction(t *testing.T) {
	repo := newTestRepo(t)
	ctx := context.Background()

	id, err := repo.InsertTransaction(ctx, sample(1, core.Expense, "5", core.NewDate(2025, 1, 1)))
	require.NoError(t, err)

	require.NoError(t, repo.DeleteTransaction(ctx, 1, id))

	_, err = repo.GetTransaction(ctx, 1, id)
	assert.ErrorIs(t, err, core.ErrNotFound)

	err = repo.DeleteTransaction(ctx, 1, id)
	assert.ErrorIs(t, err, core.ErrNotFound)
}

func TestAnchor_DefaultsAndRoundTrip(t *testing.T) {
	repo := newTestRepo(t)
	ctx := context.Background()

	anchor, err := repo.Anchor(ctx, 1)
	require.NoError(t, err)
	assert.Equal(t, core.DefaultAnchor(), anchor)

	want := core.Anchor{RepaymentDay: 28, Timezone: "Asia/Shanghai"}
	require.NoError(t, repo.SetAnchor(ctx, 1, want))

	anchor, err = repo.Anchor(ctx, 1)
	require.NoError(t, err)
	assert.Equal(t, want, anchor)

	// Other owners keep their defaults.
	anchor, err = repo.Anchor(ctx, 2)
	require.NoError(t, err)
	assert.Equal(t, core.DefaultAnchor(), anchor)
}

func TestAnchor_GarbageStoredValueFallsBack(t *testing.T) {
	repo := newTestRepo(t)
	ctx := context.Background()

	require.NoError(t, repo.setSetting(ctx, 1, settingRepaymentDay, "not-a-number"))

	anchor, err := repo.Anchor(ctx, 1)
	require.NoError(t, err)
	assert.Equal(t, core.DefaultRepaymentDay, anchor.RepaymentDay)
}

func TestBudget_UpsertReplacesBothFields(t *testing.T) {
	repo := newTestRepo(t)
	ctx := context.Background()
	start := core.NewDate(2025, 6, 15)

	income := dec("2000")
	expense := dec("1500")
	require.NoError(t, repo.UpsertBudget(ctx, core.CycleBudget{
		OwnerID: 1, CycleStart: start,
		ExpectedIncome: &income, ExpectedExpense: &expense,
	}))

	got, err := repo.GetBudget(ctx, 1, start)
	require.NoError(t, err)
	require.NotNil(t, got.ExpectedIncome)
	require.NotNil(t, got.ExpectedExpense)
	assert.True(t, got.ExpectedIncome.Equal(income))
	assert.True(t, got.ExpectedExpense.Equal(expense))

	// Setting only one field clears the other.
	newIncome := dec("2100")
	require.NoError(t, repo.UpsertBudget(ctx, core.CycleBudget{
		OwnerID: 1, CycleStart: start, ExpectedIncome: &newIncome,
	}))

	got, err = repo.GetBudget(ctx, 1, start)
	require.NoError(t, err)
	require.NotNil(t, got.ExpectedIncome)
	assert.True(t, got.ExpectedIncome.Equal(newIncome))
	assert.Nil(t, got.ExpectedExpense, "expected expense should be cleared by the overwrite")
}

func TestGetBudgets_OnlyRequestedStarts(t *testing.T) {
	repo := newTestRepo(t)
	ctx := context.Background()

	for _, start := range []core.Date{
		core.NewDate(2025, 5, 15),
		core.NewDate(2025, 6, 15),
		core.NewDate(2025, 7, 15),
	} {
		income := dec("1000")
		require.NoError(t, repo.UpsertBudget(ctx, core.CycleBudget{
			OwnerID: 1, CycleStart: start, ExpectedIncome: &income,
		}))
	}

	budgets, err := repo.GetBudgets(ctx, 1, []core.Date{
		core.NewDate(2025, 5, 15),
		core.NewDate(2025, 7, 15),
		core.NewDate(2025, 8, 15), // no budget stored
	})
	require.NoError(t, err)
	assert.Len(t, budgets, 2)
	assert.Contains(t, budgets, "2025-05-15")
	assert.Contains(t, budgets, "2025-07-15")
	assert.NotContains(t, budgets, "2025-06-15")
}

func TestGetBudgets_Empty(t *testing.T) {
	repo := newTestRepo(t)
	budgets, err := repo.GetBudgets(context.Background(), 1, nil)
	require.NoError(t, err)
	assert.Empty(t, budgets)
}

func TestGetBudget_NotFound(t *testing.T) {
	repo := newTestRepo(t)
	_, err := repo.GetBudget(context.Background(), 1, core.NewDate(2025, 1, 15))
	assert.True(t, errors.Is(err, core.ErrNotFound))
}
