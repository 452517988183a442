package journal

import (
	"context"
	"fmt"

	"github.com/dmitrijs2005/filetrade/internal/common"
	"github.com/dmitrijs2005/filetrade/internal/dbx"
	"github.com/dmitrijs2005/filetrade/internal/server/models"
)

type PostgresRepository struct {
	db dbx.DBTX
}

func NewPostgresRepository(db dbx.DBTX) *PostgresRepository {
	return &PostgresRepository{db: db}
}

func (r *PostgresRepository) Append(ctx context.Context, rec *models.JournalRecord) error {
	query := `
		INSERT INTO journal (seq, kind, command, events, recorded_at)
		VALUES ($1, $2, $3, $4, $5)
	`
	_, err := r.db.ExecContext(ctx, query, rec.Seq, rec.Kind, rec.Command, rec.Events, rec.RecordedAt)
	if err != nil {
		if dbx.IsUniqueViolation(err) {
			return fmt.Errorf("journal seq %d: %w", rec.Seq, common.ErrorAlreadyExists)
		}
		return fmt.Errorf("db error: %w", err)
	}
	return nil
}

func (r *PostgresRepository) List(ctx context.Context, after int64, limit int) ([]*models.JournalRecord, error) {
	query := `
		SELECT seq, kind, command, events, recorded_at
		FROM journal
		WHERE seq > $1
		ORDER BY seq
		LIMIT NULLIF($2, 0)
	`
	rows, err := r.db.QueryContext(ctx, query, after, limit)
	if err != nil {
		return nil, fmt.Errorf("db error: %w", err)
	}
	defer rows.Close()

	var out []*models.JournalRecord
	for rows.Next() {
		rec := &models.JournalRecord{}
		if err := rows.Scan(&rec.Seq, &rec.Kind, &rec.Command, &rec.Events, &rec.RecordedAt); err != nil {
			return nil, fmt.Errorf("db error: %w", err)
		}
		out = append(out, rec)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("db error: %w", err)
	}
	return out, nil
}

func (r *PostgresRepository) LastSeq(ctx context.Context) (int64, error) {
	query := `SELECT COALESCE(MAX(seq), 0) FROM journal`

	var seq int64
	if err := r.db.QueryRowContext(ctx, query).Scan(&seq); err != nil {
		return 0, fmt.Errorf("db error: %w", err)
	}
	return seq, nil
}
