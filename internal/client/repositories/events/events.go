// Package events is the marketplace event index kept by marketctl. Rows
// are keyed by (seq, kind) so re-syncing an overlapping range is harmless.
package events

import (
	"context"
	"database/sql"
	"fmt"
	"strings"
	"time"

	"github.com/dmitrijs2005/filetrade/internal/dbx"
)

type Event struct {
	Seq        uint64
	Kind       string
	At         time.Time
	OfferingID uint64 // zero for events not tied to an offering
	Data       []byte
}

// Filter narrows List. Zero values match everything.
type Filter struct {
	OfferingID uint64
	Kind       string
	Limit      int
}

type Repository interface {
	Save(ctx context.Context, events []Event) (int, error)
	LastSeq(ctx context.Context) (uint64, error)
	List(ctx context.Context, f Filter) ([]Event, error)
	Clear(ctx context.Context) error
}

type SQLiteRepository struct {
	db *sql.DB
}

func NewSQLiteRepository(db *sql.DB) *SQLiteRepository {
	return &SQLiteRepository{db: db}
}

// Save stores events in one transaction and returns how many were new.
func (r *SQLiteRepository) Save(ctx context.Context, events []Event) (int, error) {
	if len(events) == 0 {
		return 0, nil
	}
	inserted := 0
	err := dbx.WithTx(ctx, r.db, nil, func(ctx context.Context, tx dbx.DBTX) error {
		for _, e := range events {
			var offering any
			if e.OfferingID != 0 {
				offering = int64(e.OfferingID)
			}
			res, err := tx.ExecContext(ctx, `
				INSERT OR IGNORE INTO events (seq, kind, at, offering_id, data)
				VALUES (?, ?, ?, ?, ?)
			`, int64(e.Seq), e.Kind, e.At.UTC().Format(time.RFC3339Nano), offering, e.Data)
			if err != nil {
				return fmt.Errorf("insert event %d/%s: %w", e.Seq, e.Kind, err)
			}
			n, err := res.RowsAffected()
			if err != nil {
				return err
			}
			inserted += int(n)
		}
		return nil
	})
	if err != nil {
		return 0, err
	}
	return inserted, nil
}

func (r *SQLiteRepository) LastSeq(ctx context.Context) (uint64, error) {
	var seq sql.NullInt64
	if err := r.db.QueryRowContext(ctx, `SELECT MAX(seq) FROM events`).Scan(&seq); err != nil {
		return 0, fmt.Errorf("last event seq: %w", err)
	}
	if !seq.Valid {
		return 0, nil
	}
	return uint64(seq.Int64), nil
}

func (r *SQLiteRepository) List(ctx context.Context, f Filter) ([]Event, error) {
	var (
		where []string
		args  []any
	)
	if f.OfferingID != 0 {
		where = append(where, "offering_id = ?")
		args = append(args, int64(f.OfferingID))
	}
	if f.Kind != "" {
		where = append(where, "kind = ?")
		args = append(args, f.Kind)
	}

	q := `SELECT seq, kind, at, offering_id, data FROM events`
	if len(where) > 0 {
		q += " WHERE " + strings.Join(where, " AND ")
	}
	q += " ORDER BY seq, kind"
	if f.Limit > 0 {
		q += " LIMIT ?"
		args = append(args, f.Limit)
	}

	rows, err := r.db.QueryContext(ctx, q, args...)
	if err != nil {
		return nil, fmt.Errorf("list events: %w", err)
	}
	defer rows.Close()

	var out []Event
	for rows.Next() {
		var (
			e        Event
			seq      int64
			at       string
			offering sql.NullInt64
		)
		if err := rows.Scan(&seq, &e.Kind, &at, &offering, &e.Data); err != nil {
			return nil, fmt.Errorf("scan event: %w", err)
		}
		e.Seq = uint64(seq)
		if offering.Valid {
			e.OfferingID = uint64(offering.Int64)
		}
		if e.At, err = time.Parse(time.RFC3339Nano, at); err != nil {
			return nil, fmt.Errorf("event %d: bad timestamp %q: %w", e.Seq, at, err)
		}
		out = append(out, e)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate events: %w", err)
	}
	return out, nil
}

func (r *SQLiteRepository) Clear(ctx context.Context) error {
	if _, err := r.db.ExecContext(ctx, `DELETE FROM events`); err != nil {
		return fmt.Errorf("clear events: %w", err)
	}
	return nil
}
