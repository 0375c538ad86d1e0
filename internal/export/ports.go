// Package export defines the outbound ports for mirroring ledger
// transactions into an external spreadsheet.
package export

import (
	"context"

	"countinghelper/internal/core"
)

type (
	// RowAppender writes one transaction as a spreadsheet row and returns a
	// reference to the written row.
	RowAppender interface {
		Append(ctx context.Context, t core.Transaction) (rowRef string, err error)
	}

	// RowDeleter removes the row previously written for a transaction ID.
	RowDeleter interface {
		DeleteRow(ctx context.Context, ownerID, id int64) error
	}

	// Exporter is the full mirror surface used by the export worker.
	Exporter interface {
		RowAppender
		RowDeleter
	}
)
