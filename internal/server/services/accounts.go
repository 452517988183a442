// Package services contains the daemon's business logic: accounts and
// tokens, and the market service that fronts the ledger.
package services

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"regexp"
	"time"

	"github.com/dmitrijs2005/filetrade/internal/common"
	"github.com/dmitrijs2005/filetrade/internal/dbx"
	"github.com/dmitrijs2005/filetrade/internal/server/auth"
	"github.com/dmitrijs2005/filetrade/internal/server/config"
	"github.com/dmitrijs2005/filetrade/internal/server/models"
	"github.com/dmitrijs2005/filetrade/internal/server/repositories/repomanager"
)

// TokenPair bundles a short-lived access token and a long-lived refresh token.
type TokenPair struct {
	AccessToken  string
	RefreshToken string
}

var accountNameRe = regexp.MustCompile(`^[A-Za-z0-9_.-]{1,64}$`)

const minPasswordLen = 8

// AccountService handles registration, login, and issuing/refreshing JWTs
// plus server-stored refresh tokens.
type AccountService struct {
	db                           *sql.DB
	repomanager                  repomanager.RepositoryManager
	jwtSecret                    []byte
	accessTokenValidityDuration  time.Duration
	refreshTokenValidityDuration time.Duration

	// owner is the ledger owner's account name. Register refuses it; the
	// account exists only through ProvisionOwner.
	owner string

	// dummyHash is verified against when the account is missing, so a
	// failed login costs the same either way.
	dummyHash string
}

func NewAccountService(db *sql.DB, m repomanager.RepositoryManager, cfg *config.Config) *AccountService {
	return &AccountService{
		db:                           db,
		repomanager:                  m,
		jwtSecret:                    []byte(cfg.SecretKey),
		accessTokenValidityDuration:  cfg.AccessTokenValidityDuration,
		refreshTokenValidityDuration: cfg.RefreshTokenValidityDuration,
		owner:                        cfg.LedgerOwner,
		dummyHash:                    auth.HashPassword("dummy-password"),
	}
}

// Register creates an account. The name becomes the account's ledger address.
func (s *AccountService) Register(ctx context.Context, name, password string) (*models.Account, error) {
	if !accountNameRe.MatchString(name) {
		return nil, fmt.Errorf("account name %q: %w", name, common.ErrInvalidRequest)
	}
	if len(password) < minPasswordLen {
		return nil, fmt.Errorf("password shorter than %d: %w", minPasswordLen, common.ErrInvalidRequest)
	}
	if name == s.owner {
		return nil, fmt.Errorf("account name %q is reserved: %w", name, common.ErrorAlreadyExists)
	}

	account := &models.Account{Name: name, PasswordHash: auth.HashPassword(password)}
	a, err := s.repomanager.Accounts(s.db).Create(ctx, account)
	if err != nil {
		return nil, fmt.Errorf("error creating account: %w", err)
	}
	return a, nil
}

// ProvisionOwner reserves owner as the ledger owner's account and creates it
// with password when it does not exist yet. An existing owner account must
// accept password, otherwise someone else holds the name and the daemon
// must not start. With an empty password the name stays reserved but
// nobody can log in as the owner.
func (s *AccountService) ProvisionOwner(ctx context.Context, owner, password string) error {
	s.owner = owner

	existing, err := s.repomanager.Accounts(s.db).GetByName(ctx, owner)
	switch {
	case err == nil:
		if password == "" {
			return nil
		}
		ok, err := auth.VerifyPassword(password, existing.PasswordHash)
		if err != nil {
			return fmt.Errorf("verify owner password: %w", err)
		}
		if !ok {
			return fmt.Errorf("owner account %q does not accept the configured password: %w", owner, common.ErrInvalidCredentials)
		}
		return nil
	case !errors.Is(err, common.ErrorNotFound):
		return fmt.Errorf("find owner account: %w", err)
	}

	if password == "" {
		return nil
	}
	if len(password) < minPasswordLen {
		return fmt.Errorf("owner password shorter than %d: %w", minPasswordLen, common.ErrInvalidRequest)
	}
	account := &models.Account{Name: owner, PasswordHash: auth.HashPassword(password)}
	if _, err := s.repomanager.Accounts(s.db).Create(ctx, account); err != nil {
		return fmt.Errorf("create owner account: %w", err)
	}
	return nil
}

// Login verifies the password and, on success, returns a new TokenPair.
func (s *AccountService) Login(ctx context.Context, name, password string) (*TokenPair, error) {
	account, err := s.repomanager.Accounts(s.db).GetByName(ctx, name)
	if err != nil {
		if errors.Is(err, common.ErrorNotFound) {
			_, _ = auth.VerifyPassword(password, s.dummyHash)
			return nil, common.ErrInvalidCredentials
		}
		return nil, fmt.Errorf("find account: %w", err)
	}

	ok, err := auth.VerifyPassword(password, account.PasswordHash)
	if err != nil {
		return nil, fmt.Errorf("verify password: %w", err)
	}
	if !ok {
		return nil, common.ErrInvalidCredentials
	}

	var pair *TokenPair
	err = dbx.WithTx(ctx, s.db, nil, func(ctx context.Context, tx dbx.DBTX) error {
		var genErr error
		pair, genErr = s.generateTokenPair(ctx, account, tx)
		return genErr
	})
	if err != nil {
		return nil, err
	}
	return pair, nil
}

// RefreshToken validates a refresh token, rotates it transactionally, and
// returns a fresh TokenPair.
func (s *AccountService) RefreshToken(ctx context.Context, refreshToken string) (*TokenPair, error) {
	token, err := s.repomanager.RefreshTokens(s.db).Find(ctx, refreshToken)
	if err != nil {
		if errors.Is(err, common.ErrorNotFound) {
			return nil, common.ErrInvalidToken
		}
		return nil, fmt.Errorf("error searching refresh token: %w", err)
	}
	if token.Expires.Before(time.Now()) {
		return nil, common.ErrRefreshTokenExpired
	}

	var pair *TokenPair
	err = dbx.WithTx(ctx, s.db, nil, func(ctx context.Context, tx dbx.DBTX) error {
		if err := s.repomanager.RefreshTokens(tx).Delete(ctx, refreshToken); err != nil {
			return fmt.Errorf("error deleting refresh token: %w", err)
		}
		account, err := s.repomanager.Accounts(tx).GetByID(ctx, token.AccountID)
		if err != nil {
			return fmt.Errorf("find account: %w", err)
		}
		pair, err = s.generateTokenPair(ctx, account, tx)
		return err
	})
	if err != nil {
		return nil, err
	}
	return pair, nil
}

// PurgeExpiredTokens drops refresh tokens past their expiry.
func (s *AccountService) PurgeExpiredTokens(ctx context.Context) (int64, error) {
	return s.repomanager.RefreshTokens(s.db).DeleteExpired(ctx, time.Now())
}

func (s *AccountService) generateTokenPair(ctx context.Context, account *models.Account, tx dbx.DBTX) (*TokenPair, error) {
	access, err := auth.GenerateToken(account.ID, account.Name, s.jwtSecret, s.accessTokenValidityDuration)
	if err != nil {
		return nil, fmt.Errorf("sign access token: %w", err)
	}
	refresh, err := common.MakeRandHexString(32)
	if err != nil {
		return nil, fmt.Errorf("generate refresh token: %w", err)
	}
	if err := s.repomanager.RefreshTokens(tx).Create(ctx, account.ID, refresh, s.refreshTokenValidityDuration); err != nil {
		return nil, fmt.Errorf("store refresh token: %w", err)
	}
	return &TokenPair{AccessToken: access, RefreshToken: refresh}, nil
}
