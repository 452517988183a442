// Package services holds the marketctl application services: session
// handling on top of the daemon client, and marketplace operations that
// combine the daemon, the file server and the local index.
package services

import (
	"context"
	"database/sql"
	"fmt"

	"github.com/dmitrijs2005/filetrade/internal/client/client"
	"github.com/dmitrijs2005/filetrade/internal/client/repositories/settings"
	"github.com/dmitrijs2005/filetrade/internal/dbx"
	"github.com/dmitrijs2005/filetrade/internal/logging"
)

// AuthAPI is the part of the daemon client used for sessions.
type AuthAPI interface {
	Ping(ctx context.Context) error
	Register(ctx context.Context, username, password string) error
	Login(ctx context.Context, username, password string) error
	SetTokens(accessToken, refreshToken string)
	OnTokens(sink client.TokenSink)
	Close() error
}

type AuthService interface {
	Register(ctx context.Context, username, password string) error
	Login(ctx context.Context, username, password string) error
	// Resume restores a saved session. It returns "" when there is none.
	Resume(ctx context.Context) (string, error)
	Logout(ctx context.Context) error
	Ping(ctx context.Context) error
	Close(ctx context.Context) error
}

type authService struct {
	api    AuthAPI
	db     *sql.DB
	logger logging.Logger
}

// NewAuthService keeps the session in db: refreshed tokens are written back
// as soon as the client obtains them.
func NewAuthService(api AuthAPI, db *sql.DB, logger logging.Logger) AuthService {
	a := &authService{api: api, db: db, logger: logger.With("module", "auth")}
	api.OnTokens(a.saveTokens)
	return a
}

func (a *authService) repo(db dbx.DBTX) settings.Repository {
	return settings.NewSQLiteRepository(db)
}

func (a *authService) saveTokens(accessToken, refreshToken string) {
	ctx := context.Background()
	err := dbx.WithTx(ctx, a.db, nil, func(ctx context.Context, tx dbx.DBTX) error {
		r := a.repo(tx)
		if err := r.Set(ctx, settings.KeyAccessToken, accessToken); err != nil {
			return err
		}
		return r.Set(ctx, settings.KeyRefreshToken, refreshToken)
	})
	if err != nil {
		a.logger.Error(ctx, "saving tokens failed", "error", err)
	}
}

func (a *authService) Register(ctx context.Context, username, password string) error {
	return a.api.Register(ctx, username, password)
}

// Login authenticates against the daemon. The token pair is persisted by
// the sink installed in NewAuthService; the account name is stored here.
func (a *authService) Login(ctx context.Context, username, password string) error {
	if err := a.api.Login(ctx, username, password); err != nil {
		return fmt.Errorf("login error: %w", err)
	}
	if err := a.repo(a.db).Set(ctx, settings.KeyAccount, username); err != nil {
		return fmt.Errorf("saving session: %w", err)
	}
	return nil
}

func (a *authService) Resume(ctx context.Context) (string, error) {
	r := a.repo(a.db)
	account, ok, err := r.Get(ctx, settings.KeyAccount)
	if err != nil || !ok {
		return "", err
	}
	access, _, err := r.Get(ctx, settings.KeyAccessToken)
	if err != nil {
		return "", err
	}
	refresh, _, err := r.Get(ctx, settings.KeyRefreshToken)
	if err != nil {
		return "", err
	}
	if access == "" && refresh == "" {
		return "", nil
	}
	a.api.SetTokens(access, refresh)
	return account, nil
}

// Logout forgets the session. The buyer key pair is kept.
func (a *authService) Logout(ctx context.Context) error {
	a.api.SetTokens("", "")
	return a.repo(a.db).Delete(ctx, settings.KeyAccount, settings.KeyAccessToken, settings.KeyRefreshToken)
}

func (a *authService) Ping(ctx context.Context) error {
	return a.api.Ping(ctx)
}

func (a *authService) Close(ctx context.Context) error {
	return a.api.Close()
}
