// Package journal stores the ledger journal: one row per committed ledger
// operation, keyed by its sequence number.
package journal

import (
	"context"

	"github.com/dmitrijs2005/filetrade/internal/server/models"
)

type Repository interface {
	// Append inserts a record. A sequence number already present yields
	// common.ErrorAlreadyExists.
	Append(ctx context.Context, rec *models.JournalRecord) error

	// List returns records with seq > after in ascending order; limit 0
	// means no limit.
	List(ctx context.Context, after int64, limit int) ([]*models.JournalRecord, error)

	// LastSeq returns the highest stored sequence number, or 0.
	LastSeq(ctx context.Context) (int64, error)
}
