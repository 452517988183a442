package services

import (
	"bytes"
	"context"
	"database/sql"
	"encoding/json"
	"fmt"
	"time"

	"github.com/dmitrijs2005/filetrade/internal/common"
	"github.com/dmitrijs2005/filetrade/internal/dbx"
	"github.com/dmitrijs2005/filetrade/internal/ledger"
	"github.com/dmitrijs2005/filetrade/internal/server/models"
	"github.com/dmitrijs2005/filetrade/internal/server/repositories/repomanager"
)

// PostgresJournal persists ledger entries in the journal table. Each append
// runs in a serializable transaction that also checks the entry extends
// the stored sequence, so a second daemon on the same database fails
// instead of forking the ledger.
type PostgresJournal struct {
	db          *sql.DB
	repomanager repomanager.RepositoryManager
}

func NewPostgresJournal(db *sql.DB, m repomanager.RepositoryManager) *PostgresJournal {
	return &PostgresJournal{db: db, repomanager: m}
}

const commitCheckTimeout = 5 * time.Second

// Append stores e. When the transaction reports an error, the commit may
// still have reached the server (a connection lost after COMMIT), so the
// stored entry at e.Seq is read back: an identical entry means the append
// did happen and the error is dropped.
func (j *PostgresJournal) Append(ctx context.Context, e ledger.Entry) error {
	rec, err := encodeEntry(e)
	if err != nil {
		return err
	}

	err = j.append(ctx, rec)
	if err == nil {
		return nil
	}
	if j.committed(ctx, rec) {
		return nil
	}
	return err
}

func (j *PostgresJournal) append(ctx context.Context, rec *models.JournalRecord) error {
	return dbx.WithTx(ctx, j.db, dbx.Serializable, func(ctx context.Context, tx dbx.DBTX) error {
		repo := j.repomanager.Journal(tx)
		last, err := repo.LastSeq(ctx)
		if err != nil {
			return err
		}
		if last+1 != rec.Seq {
			return fmt.Errorf("journal at %d, appending %d: %w", last, rec.Seq, common.ErrJournalCorrupt)
		}
		return repo.Append(ctx, rec)
	})
}

// committed reports whether the journal already holds rec. The check
// outlives a cancelled ctx; a failed read counts as not committed.
func (j *PostgresJournal) committed(ctx context.Context, rec *models.JournalRecord) bool {
	ctx, cancel := context.WithTimeout(context.WithoutCancel(ctx), commitCheckTimeout)
	defer cancel()

	recs, err := j.repomanager.Journal(j.db).List(ctx, rec.Seq-1, 1)
	if err != nil || len(recs) == 0 || recs[0].Seq != rec.Seq || recs[0].Kind != rec.Kind {
		return false
	}
	stored, err := decodeRecord(recs[0])
	if err != nil {
		return false
	}
	again, err := encodeEntry(stored)
	if err != nil {
		return false
	}
	return bytes.Equal(again.Command, rec.Command) && bytes.Equal(again.Events, rec.Events)
}

// Entries returns entries after seq in order; limit 0 means all.
func (j *PostgresJournal) Entries(ctx context.Context, after uint64, limit int) ([]ledger.Entry, error) {
	recs, err := j.repomanager.Journal(j.db).List(ctx, int64(after), limit)
	if err != nil {
		return nil, err
	}

	out := make([]ledger.Entry, 0, len(recs))
	for _, rec := range recs {
		e, err := decodeRecord(rec)
		if err != nil {
			return nil, err
		}
		out = append(out, e)
	}
	return out, nil
}

func encodeEntry(e ledger.Entry) (*models.JournalRecord, error) {
	cmd, err := json.Marshal(e.Command)
	if err != nil {
		return nil, fmt.Errorf("encode command: %w", err)
	}
	events, err := json.Marshal(e.Events)
	if err != nil {
		return nil, fmt.Errorf("encode events: %w", err)
	}
	return &models.JournalRecord{
		Seq:        int64(e.Seq),
		Kind:       string(e.Command.Kind),
		Command:    cmd,
		Events:     events,
		RecordedAt: e.RecordedAt,
	}, nil
}

func decodeRecord(rec *models.JournalRecord) (ledger.Entry, error) {
	e := ledger.Entry{Seq: uint64(rec.Seq), RecordedAt: rec.RecordedAt.UTC()}
	if err := json.Unmarshal(rec.Command, &e.Command); err != nil {
		return e, fmt.Errorf("decode command %d: %v: %w", rec.Seq, err, common.ErrJournalCorrupt)
	}
	if err := json.Unmarshal(rec.Events, &e.Events); err != nil {
		return e, fmt.Errorf("decode events %d: %v: %w", rec.Seq, err, common.ErrJournalCorrupt)
	}
	if string(e.Command.Kind) != rec.Kind {
		return e, fmt.Errorf("record %d kind %q vs command %q: %w", rec.Seq, rec.Kind, e.Command.Kind, common.ErrJournalCorrupt)
	}
	return e, nil
}
