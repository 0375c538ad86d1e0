package worker

import (
	"context"
	"testing"
	"time"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"countinghelper/internal/amqp"
	"countinghelper/internal/core"
	"countinghelper/internal/export/memory"
)

type stubStore struct {
	txs map[int64]core.Transaction
}

func (s *stubStore) InsertTransaction(_ context.Context, t core.Transaction) (int64, error) {
	s.txs[t.ID] = t
	return t.ID, nil
}

func (s *stubStore) GetTransaction(_ context.Context, ownerID, id int64) (core.Transaction, error) {
	t, ok := s.txs[id]
	if !ok || t.OwnerID != ownerID {
		return core.Transaction{}, core.ErrNotFound
	}
	return t, nil
}

func (s *stubStore) ListTransactions(_ context.Context, _ int64, _, _ core.Date) ([]core.Transaction, error) {
	return nil, nil
}

func (s *stubStore) DeleteTransaction(_ context.Context, _, id int64) error {
	delete(s.txs, id)
	return nil
}

func newFixture() (*ExportWorker, *stubStore, *memory.Store) {
	store := &stubStore{txs: make(map[int64]core.Transaction)}
	mirror := memory.New()
	return NewExportWorker(store, mirror), store, mirror
}

func tx(id, owner int64) core.Transaction {
	return core.Transaction{
		ID:               id,
		OwnerID:          owner,
		Amount:           decimal.RequireFromString("12.50"),
		Currency:         "GBP",
		NormalizedAmount: decimal.RequireFromString("12.50"),
		Description:      "lunch",
		Kind:             core.Expense,
		EventDate:        core.NewDate(2026, 2, 10),
		CreatedAt:        time.Now().UTC(),
	}
}

func TestHandleSyncMessageMirrorsTransaction(t *testing.T) {
	w, store, mirror := newFixture()
	ctx := context.Background()

	store.txs[7] = tx(7, 1)
	msg := amqp.NewTransactionSyncMessage(1, 7, 1)

	require.NoError(t, w.HandleSyncMessage(ctx, msg))

	rows := mirror.Rows()
	require.Len(t, rows, 1)
	assert.Equal(t, int64(7), rows[0].ID)
}

func TestHandleSyncMessageSkipsGoneTransaction(t *testing.T) {
	w, _, mirror := newFixture()

	msg := amqp.NewTransactionSyncMessage(1, 99, 1)
	require.NoError(t, w.HandleSyncMessage(context.Background(), msg),
		"a vanished transaction must not requeue forever")
	assert.Empty(t, mirror.Rows())
}

func TestHandleDeleteMessage(t *testing.T) {
	w, store, mirror := newFixture()
	ctx := context.Background()

	store.txs[7] = tx(7, 1)
	syncMsg := amqp.NewTransactionSyncMessage(1, 7, 1)
	require.NoError(t, w.HandleSyncMessage(ctx, syncMsg))

	delMsg := amqp.NewTransactionDeleteMessage(1, 7)
	require.NoError(t, w.HandleDeleteMessage(ctx, delMsg))
	assert.Empty(t, mirror.Rows())

	// Idempotent: a second delete for the same row succeeds.
	require.NoError(t, w.HandleDeleteMessage(ctx, delMsg))
}
