// Package worker mirrors ledger writes into the configured exporter,
// driven by AMQP messages.
package worker

import (
	"context"
	"errors"
	"fmt"
	"log/slog"

	"countinghelper/internal/amqp"
	"countinghelper/internal/core"
	"countinghelper/internal/export"
	"countinghelper/internal/services"
)

// ExportWorker consumes sync and delete messages and applies them to the
// exporter. The local SQLite ledger stays the source of truth; the mirror is
// rebuilt from it message by message.
type ExportWorker struct {
	store    services.TransactionStore
	exporter export.Exporter
}

func NewExportWorker(store services.TransactionStore, exporter export.Exporter) *ExportWorker {
	return &ExportWorker{store: store, exporter: exporter}
}

// HandleSyncMessage loads the transaction and appends it to the mirror. A
// transaction deleted before its sync message arrived is skipped, not
// requeued; the matching delete message follows it in the queue.
func (w *ExportWorker) HandleSyncMessage(ctx context.Context, msg *amqp.TransactionSyncMessage) error {
	slog.InfoContext(ctx, "Processing sync message",
		"id", msg.ID,
		"owner_id", msg.OwnerID,
		"version", msg.Version)

	t, err := w.store.GetTransaction(ctx, msg.OwnerID, msg.ID)
	if errors.Is(err, core.ErrNotFound) {
		slog.WarnContext(ctx, "Transaction gone before sync, skipping", "id", msg.ID)
		return nil
	}
	if err != nil {
		return fmt.Errorf("get transaction from storage: %w", err)
	}

	ref, err := w.exporter.Append(ctx, t)
	if err != nil {
		return fmt.Errorf("append transaction to mirror: %w", err)
	}
	slog.InfoContext(ctx, "Transaction mirrored", "id", msg.ID, "row", ref)
	return nil
}

// HandleDeleteMessage drops the mirrored row for the transaction.
func (w *ExportWorker) HandleDeleteMessage(ctx context.Context, msg *amqp.TransactionDeleteMessage) error {
	slog.InfoContext(ctx, "Processing delete message", "id", msg.ID, "owner_id", msg.OwnerID)

	if err := w.exporter.DeleteRow(ctx, msg.OwnerID, msg.ID); err != nil {
		return fmt.Errorf("delete mirrored row: %w", err)
	}
	return nil
}

// Run consumes the queue until ctx is cancelled.
func (w *ExportWorker) Run(ctx context.Context, client *amqp.Client) error {
	slog.InfoContext(ctx, "Export worker started")
	return client.ConsumeMessages(ctx, w.HandleSyncMessage, w.HandleDeleteMessage)
}
