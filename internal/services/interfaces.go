package services

import (
	"context"

	"countinghelper/internal/core"
)

// Store access is kept behind narrow interfaces so tests can run against
// in-memory fakes.
type (
	TransactionStore interface {
		InsertTransaction(ctx context.Context, t core.Transaction) (int64, error)
		GetTransaction(ctx context.Context, ownerID, id int64) (core.Transaction, error)
		ListTransactions(ctx context.Context, ownerID int64, from, to core.Date) ([]core.Transaction, error)
		DeleteTransaction(ctx context.Context, ownerID, id int64) error
	}

	SettingStore interface {
		Anchor(ctx context.Context, ownerID int64) (core.Anchor, error)
		SetAnchor(ctx context.Context, ownerID int64, anchor core.Anchor) error
	}

	BudgetStore interface {
		UpsertBudget(ctx context.Context, b core.CycleBudget) error
		GetBudget(ctx context.Context, ownerID int64, cycleStart core.Date) (core.CycleBudget, error)
		GetBudgets(ctx context.Context, ownerID int64, cycleStarts []core.Date) (map[string]core.CycleBudget, error)
	}

	// Store is what the SQLite repository provides.
	Store interface {
		TransactionStore
		SettingStore
		BudgetStore
	}

	// EventPublisher notifies the export pipeline about ledger writes.
	EventPublisher interface {
		PublishTransactionSync(ctx context.Context, ownerID, id, version int64) error
		PublishTransactionDelete(ctx context.Context, ownerID, id int64) error
	}
)
