package memory

import (
	"context"
	"testing"
	"time"

	"github.com/shopspring/decimal"

	"countinghelper/internal/core"
)

func sample(id int64) core.Transaction {
	return core.Transaction{
		ID:               id,
		OwnerID:          1,
		Amount:           decimal.RequireFromString("10"),
		Currency:         "GBP",
		NormalizedAmount: decimal.RequireFromString("10"),
		Description:      "coffee",
		Kind:             core.Expense,
		EventDate:        core.NewDate(2026, 2, 10),
		CreatedAt:        time.Now().UTC(),
	}
}

func TestAppendAndDelete(t *testing.T) {
	s := New()
	ctx := context.Background()

	ref, err := s.Append(ctx, sample(1))
	if err != nil {
		t.Fatalf("Append: %v", err)
	}
	if ref != "mem:1" {
		t.Errorf("ref = %q, want mem:1", ref)
	}
	if _, err := s.Append(ctx, sample(2)); err != nil {
		t.Fatalf("Append: %v", err)
	}

	if err := s.DeleteRow(ctx, 1, 1); err != nil {
		t.Fatalf("DeleteRow: %v", err)
	}
	rows := s.Rows()
	if len(rows) != 1 || rows[0].ID != 2 {
		t.Errorf("rows after delete = %+v", rows)
	}

	// Deleting a missing or foreign row is a no-op.
	if err := s.DeleteRow(ctx, 1, 99); err != nil {
		t.Errorf("DeleteRow missing: %v", err)
	}
	if err := s.DeleteRow(ctx, 2, 2); err != nil {
		t.Errorf("DeleteRow wrong owner: %v", err)
	}
	if got := len(s.Rows()); got != 1 {
		t.Errorf("rows = %d, want 1", got)
	}
}

func TestAppendRejectsInvalid(t *testing.T) {
	s := New()
	bad := sample(1)
	bad.Kind = "transfer"
	if _, err := s.Append(context.Background(), bad); err == nil {
		t.Fatal("expected validation error")
	}
}
