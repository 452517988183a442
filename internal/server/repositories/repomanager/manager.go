package repomanager

import (
	"context"
	"database/sql"

	"github.com/dmitrijs2005/filetrade/internal/dbx"
	"github.com/dmitrijs2005/filetrade/internal/server/repositories/accounts"
	"github.com/dmitrijs2005/filetrade/internal/server/repositories/journal"
	"github.com/dmitrijs2005/filetrade/internal/server/repositories/refreshtokens"
)

// RepositoryManager vends repositories bound to a DBTX, so the same code
// runs against *sql.DB or inside a transaction.
type RepositoryManager interface {
	RunMigrations(context.Context, *sql.DB) error
	Accounts(db dbx.DBTX) accounts.Repository
	RefreshTokens(db dbx.DBTX) refreshtokens.Repository
	Journal(db dbx.DBTX) journal.Repository
}
