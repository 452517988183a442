package services

import (
	"context"
	"database/sql"
	"errors"
	"slices"
	"testing"
	"time"

	"github.com/DATA-DOG/go-sqlmock"
	"github.com/stretchr/testify/require"

	"github.com/dmitrijs2005/filetrade/internal/common"
	"github.com/dmitrijs2005/filetrade/internal/dbx"
	"github.com/dmitrijs2005/filetrade/internal/server/models"
	"github.com/dmitrijs2005/filetrade/internal/server/repositories/accounts"
	"github.com/dmitrijs2005/filetrade/internal/server/repositories/journal"
	"github.com/dmitrijs2005/filetrade/internal/server/repositories/refreshtokens"
)

var errBoom = errors.New("boom")

func newSQLMockDB(t *testing.T) (*sql.DB, sqlmock.Sqlmock) {
	t.Helper()
	db, mock, err := sqlmock.New()
	require.NoError(t, err)
	t.Cleanup(func() { _ = db.Close() })
	return db, mock
}

type fakeAccountsRepo struct {
	byName    map[string]*models.Account
	createErr error
	getErr    error
}

func newFakeAccounts(accs ...*models.Account) *fakeAccountsRepo {
	f := &fakeAccountsRepo{byName: map[string]*models.Account{}}
	for _, a := range accs {
		f.byName[a.Name] = a
	}
	return f
}

func (f *fakeAccountsRepo) Create(_ context.Context, a *models.Account) (*models.Account, error) {
	if f.createErr != nil {
		return nil, f.createErr
	}
	if _, ok := f.byName[a.Name]; ok {
		return nil, common.ErrorAlreadyExists
	}
	a.ID = "id-" + a.Name
	f.byName[a.Name] = a
	return a, nil
}

func (f *fakeAccountsRepo) GetByName(_ context.Context, name string) (*models.Account, error) {
	if f.getErr != nil {
		return nil, f.getErr
	}
	a, ok := f.byName[name]
	if !ok {
		return nil, common.ErrorNotFound
	}
	return a, nil
}

func (f *fakeAccountsRepo) GetByID(_ context.Context, id string) (*models.Account, error) {
	if f.getErr != nil {
		return nil, f.getErr
	}
	for _, a := range f.byName {
		if a.ID == id {
			return a, nil
		}
	}
	return nil, common.ErrorNotFound
}

type fakeRefreshRepo struct {
	tokens    map[string]*models.RefreshToken
	findErr   error
	delErr    error
	createErr error
	purged    int64
}

func newFakeRefresh() *fakeRefreshRepo {
	return &fakeRefreshRepo{tokens: map[string]*models.RefreshToken{}}
}

func (f *fakeRefreshRepo) Create(_ context.Context, accountID, token string, validity time.Duration) error {
	if f.createErr != nil {
		return f.createErr
	}
	f.tokens[token] = &models.RefreshToken{AccountID: accountID, Token: token, Expires: time.Now().Add(validity)}
	return nil
}

func (f *fakeRefreshRepo) Find(_ context.Context, token string) (*models.RefreshToken, error) {
	if f.findErr != nil {
		return nil, f.findErr
	}
	t, ok := f.tokens[token]
	if !ok {
		return nil, common.ErrorNotFound
	}
	return t, nil
}

func (f *fakeRefreshRepo) Delete(_ context.Context, token string) error {
	if f.delErr != nil {
		return f.delErr
	}
	delete(f.tokens, token)
	return nil
}

func (f *fakeRefreshRepo) DeleteExpired(context.Context, time.Time) (int64, error) {
	return f.purged, nil
}

type fakeJournalRepo struct {
	records   []*models.JournalRecord
	appendErr error
	listErr   error

	// storedErr is returned after the record was stored, like a commit
	// whose acknowledgement was lost.
	storedErr error
}

func (f *fakeJournalRepo) Append(_ context.Context, rec *models.JournalRecord) error {
	if f.appendErr != nil {
		return f.appendErr
	}
	f.records = append(f.records, rec)
	if f.storedErr != nil {
		err := f.storedErr
		f.storedErr = nil
		return err
	}
	return nil
}

func (f *fakeJournalRepo) List(_ context.Context, after int64, limit int) ([]*models.JournalRecord, error) {
	if f.listErr != nil {
		return nil, f.listErr
	}
	var out []*models.JournalRecord
	for _, r := range f.records {
		if r.Seq > after {
			out = append(out, r)
		}
	}
	if limit > 0 && len(out) > limit {
		out = out[:limit]
	}
	return slices.Clone(out), nil
}

func (f *fakeJournalRepo) LastSeq(context.Context) (int64, error) {
	if len(f.records) == 0 {
		return 0, nil
	}
	return f.records[len(f.records)-1].Seq, nil
}

type fakeRepoManager struct {
	accounts *fakeAccountsRepo
	refresh  *fakeRefreshRepo
	journal  *fakeJournalRepo
}

func (m *fakeRepoManager) RunMigrations(context.Context, *sql.DB) error    { return nil }
func (m *fakeRepoManager) Accounts(dbx.DBTX) accounts.Repository           { return m.accounts }
func (m *fakeRepoManager) RefreshTokens(dbx.DBTX) refreshtokens.Repository { return m.refresh }
func (m *fakeRepoManager) Journal(dbx.DBTX) journal.Repository             { return m.journal }
