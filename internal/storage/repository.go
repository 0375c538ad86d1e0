// Package storage persists the ledger in SQLite: transactions, per-owner
// settings, and billing-cycle budgets. Monetary values are stored as decimal
// strings so no precision is lost across round trips.
package storage

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"strconv"
	"time"

	"github.com/shopspring/decimal"
	_ "modernc.org/sqlite"

	"countinghelper/internal/core"
)

const (
	settingRepaymentDay = "repayment_day"
	settingTimezone     = "timezone"

	createdAtLayout = "2006-01-02 15:04:05"
)

type SQLiteRepository struct {
	db *sql.DB
}

func NewSQLiteRepository(dbPath string) (*SQLiteRepository, error) {
	if err := os.MkdirAll(filepath.Dir(dbPath), 0755); err != nil {
		return nil, fmt.Errorf("create db directory: %w", err)
	}

	db, err := sql.Open("sqlite", dbPath)
	if err != nil {
		return nil, fmt.Errorf("open sqlite database: %w", err)
	}

	if err := db.Ping(); err != nil {
		db.Close()
		return nil, fmt.Errorf("ping database: %w", err)
	}

	if err := RunMigrations(dbPath); err != nil {
		db.Close()
		return nil, fmt.Errorf("run migrations: %w", err)
	}

	return &SQLiteRepository{db: db}, nil
}

func (r *SQLiteRepository) Close() error {
	if r.db != nil {
		return r.db.Close()
	}
	return nil
}

// InsertTransaction stores a normalized transaction and returns its ID.
func (r *SQLiteRepository) InsertTransaction(ctx context.Context, t core.Transaction) (int64, error) {
	if err := t.Validate(); err != nil {
		return 0, err
	}
	createdAt := t.CreatedAt
	if createdAt.IsZero() {
		createdAt = time.Now().UTC()
	}
	res, err := r.db.ExecContext(ctx, `
		INSERT INTO transactions
			(owner_id, amount, currency, normalized_amount, description, category, payment_method, kind, event_date, created_at)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`,
		t.OwnerID,
		t.Amount.String(),
		t.Currency,
		t.NormalizedAmount.String(),
		t.Description,
		t.Category,
		t.PaymentMethod,
		string(t.Kind),
		t.EventDate.String(),
		createdAt.Format(createdAtLayout),
	)
	if err != nil {
		return 0, fmt.Errorf("insert transaction: %w", err)
	}
	id, err := res.LastInsertId()
	if err != nil {
		return 0, fmt.Errorf("transaction id: %w", err)
	}

	slog.InfoContext(ctx, "Transaction saved",
		"id", id,
		"owner_id", t.OwnerID,
		"kind", t.Kind,
		"currency", t.Currency,
		"event_date", t.EventDate.String())
	return id, nil
}

// GetTransaction fetches one transaction scoped to its owner.
func (r *SQLiteRepository) GetTransaction(ctx context.Context, ownerID, id int64) (core.Transaction, error) {
	row := r.db.QueryRowContext(ctx, `
		SELECT id, owner_id, amount, currency, normalized_amount, description, category, payment_method, kind, event_date, created_at
		FROM transactions
		WHERE id = ? AND owner_id = ?`, id, ownerID)
	t, err := scanTransaction(row)
	if errors.Is(err, sql.ErrNoRows) {
		return core.Transaction{}, fmt.Errorf("transaction %d: %w", id, core.ErrNotFound)
	}
	if err != nil {
		return core.Transaction{}, fmt.Errorf("get transaction: %w", err)
	}
	return t, nil
}

// ListTransactions returns an owner's transactions with event dates in
// [from, to], oldest first.
func (r *SQLiteRepository) ListTransactions(ctx context.Context, ownerID int64, from, to core.Date) ([]core.Transaction, error) {
	rows, err := r.db.QueryContext(ctx, `
		SELECT id, owner_id, amount, currency, normalized_amount, description, category, payment_method, kind, event_date, created_at
		FROM transactions
		WHERE owner_id = ? AND event_date >= ? AND event_date <= ?
		ORDER BY event_date, id`, ownerID, from.String(), to.String())
	if err != nil {
		return nil, fmt.Errorf("list transactions: %w", err)
	}
	defer rows.Close()

	var txs []core.Transaction
	for rows.Next() {
		t, err := scanTransaction(rows)
		if err != nil {
			return nil, fmt.Errorf("scan transaction: %w", err)
		}
		txs = append(txs, t)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("list transactions: %w", err)
	}
	return txs, nil
}

// DeleteTransaction removes one transaction scoped to its owner.
func (r *SQLiteRepository) DeleteTransaction(ctx context.Context, ownerID, id int64) error {
	res, err := r.db.ExecContext(ctx,
		`DELETE FROM transactions WHERE id = ? AND owner_id = ?`, id, ownerID)
	if err != nil {
		return fmt.Errorf("delete transaction: %w", err)
	}
	n, err := res.RowsAffected()
	if err != nil {
		return fmt.Errorf("delete transaction: %w", err)
	}
	if n == 0 {
		return fmt.Errorf("transaction %d: %w", id, core.ErrNotFound)
	}
	return nil
}

// Anchor returns the owner's cycle configuration, applying defaults when
// nothing is stored or a stored value no longer parses.
func (r *SQLiteRepository) Anchor(ctx context.Context, ownerID int64) (core.Anchor, error) {
	anchor := core.DefaultAnchor()

	day, err := r.setting(ctx, ownerID, settingRepaymentDay)
	if err != nil {
		return core.Anchor{}, err
	}
	if day != "" {
		if d, err := strconv.Atoi(day); err == nil && d >= 1 && d <= 31 {
			anchor.RepaymentDay = d
		}
	}

	tz, err := r.setting(ctx, ownerID, settingTimezone)
	if err != nil {
		return core.Anchor{}, err
	}
	if tz != "" {
		anchor.Timezone = tz
	}
	return anchor, nil
}

// SetAnchor stores the owner's cycle configuration. The anchor must already
// be validated; this is a plain write.
func (r *SQLiteRepository) SetAnchor(ctx context.Context, ownerID int64, anchor core.Anchor) error {
	if err := r.setSetting(ctx, ownerID, settingRepaymentDay, strconv.Itoa(anchor.RepaymentDay)); err != nil {
		return err
	}
	return r.setSetting(ctx, ownerID, settingTimezone, anchor.Timezone)
}

func (r *SQLiteRepository) setting(ctx context.Context, ownerID int64, key string) (string, error) {
	var value sql.NullString
	err := r.db.QueryRowContext(ctx,
		`SELECT setting_value FROM user_settings WHERE owner_id = ? AND setting_key = ?`,
		ownerID, key).Scan(&value)
	if errors.Is(err, sql.ErrNoRows) {
		return "", nil
	}
	if err != nil {
		return "", fmt.Errorf("get setting %s: %w", key, err)
	}
	return value.String, nil
}

func (r *SQLiteRepository) setSetting(ctx context.Context, ownerID int64, key, value string) error {
	_, err := r.db.ExecContext(ctx, `
		INSERT INTO user_settings (owner_id, setting_key, setting_value)
		VALUES (?, ?, ?)
		ON CONFLICT(owner_id, setting_key) DO UPDATE SET setting_value = excluded.setting_value`,
		ownerID, key, value)
	if err != nil {
		return fmt.Errorf("set setting %s: %w", key, err)
	}
	return nil
}

// UpsertBudget writes a cycle budget, replacing both expected fields
// atomically. A nil field clears the stored value.
func (r *SQLiteRepository) UpsertBudget(ctx context.Context, b core.CycleBudget) error {
	_, err := r.db.ExecContext(ctx, `
		INSERT INTO billing_cycle_budget (owner_id, cycle_start, expected_income, expected_expense)
		VALUES (?, ?, ?, ?)
		ON CONFLICT(owner_id, cycle_start) DO UPDATE SET
			expected_income = excluded.expected_income,
			expected_expense = excluded.expected_expense`,
		b.OwnerID, b.CycleStart.String(), decimalOrNull(b.ExpectedIncome), decimalOrNull(b.ExpectedExpense))
	if err != nil {
		return fmt.Errorf("upsert budget: %w", err)
	}
	return nil
}

// GetBudget fetches the budget for one cycle start.
func (r *SQLiteRepository) GetBudget(ctx context.Context, ownerID int64, cycleStart core.Date) (core.CycleBudget, error) {
	budgets, err := r.GetBudgets(ctx, ownerID, []core.Date{cycleStart})
	if err != nil {
		return core.CycleBudget{}, err
	}
	b, ok := budgets[cycleStart.String()]
	if !ok {
		return core.CycleBudget{}, fmt.Errorf("budget for %s: %w", cycleStart, core.ErrNotFound)
	}
	return b, nil
}

// GetBudgets fetches budgets for the given cycle starts, keyed by the
// cycle-start date string. Absent cycles are simply missing from the map.
func (r *SQLiteRepository) GetBudgets(ctx context.Context, ownerID int64, cycleStarts []core.Date) (map[string]core.CycleBudget, error) {
	budgets := make(map[string]core.CycleBudget, len(cycleStarts))
	if len(cycleStarts) == 0 {
		return budgets, nil
	}

	query := `SELECT cycle_start, expected_income, expected_expense
		FROM billing_cycle_budget WHERE owner_id = ? AND cycle_start IN (?` +
		repeatPlaceholder(len(cycleStarts)-1) + `)`
	args := make([]any, 0, len(cycleStarts)+1)
	args = append(args, ownerID)
	for _, d := range cycleStarts {
		args = append(args, d.String())
	}

	rows, err := r.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("get budgets: %w", err)
	}
	defer rows.Close()

	for rows.Next() {
		var (
			start           string
			income, expense sql.NullString
		)
		if err := rows.Scan(&start, &income, &expense); err != nil {
			return nil, fmt.Errorf("scan budget: %w", err)
		}
		startDate, err := core.ParseDate(start)
		if err != nil {
			return nil, fmt.Errorf("budget cycle start: %w", err)
		}
		b := core.CycleBudget{OwnerID: ownerID, CycleStart: startDate}
		if b.ExpectedIncome, err = nullDecimal(income); err != nil {
			return nil, fmt.Errorf("budget expected income: %w", err)
		}
		if b.ExpectedExpense, err = nullDecimal(expense); err != nil {
			return nil, fmt.Errorf("budget expected expense: %w", err)
		}
		budgets[start] = b
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("get budgets: %w", err)
	}
	return budgets, nil
}

type scanner interface {
	Scan(dest ...any) error
}

func scanTransaction(row scanner) (core.Transaction, error) {
	var (
		t                  core.Transaction
		amount, normalized string
		kind               string
		eventDate          string
		createdAt          string
	)
	err := row.Scan(&t.ID, &t.OwnerID, &amount, &t.Currency, &normalized,
		&t.Description, &t.Category, &t.PaymentMethod, &kind, &eventDate, &createdAt)
	if err != nil {
		return core.Transaction{}, err
	}
	if t.Amount, err = decimal.NewFromString(amount); err != nil {
		return core.Transaction{}, fmt.Errorf("amount %q: %w", amount, err)
	}
	if t.NormalizedAmount, err = decimal.NewFromString(normalized); err != nil {
		return core.Transaction{}, fmt.Errorf("normalized amount %q: %w", normalized, err)
	}
	t.Kind = core.Kind(kind)
	if t.EventDate, err = core.ParseDate(eventDate); err != nil {
		return core.Transaction{}, err
	}
	if ts, err := time.ParseInLocation(createdAtLayout, createdAt, time.UTC); err == nil {
		t.CreatedAt = ts
	}
	return t, nil
}

func decimalOrNull(d *decimal.Decimal) any {
	if d == nil {
		return nil
	}
	return d.String()
}

func nullDecimal(s sql.NullString) (*decimal.Decimal, error) {
	if !s.Valid {
		return nil, nil
	}
	d, err := decimal.NewFromString(s.String)
	if err != nil {
		return nil, err
	}
	return &d, nil
}

func repeatPlaceholder(n int) string {
	out := ""
	for i := 0; i < n; i++ {
		out += ", ?"
	}
	return out
}
