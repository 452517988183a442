// Package server wires the ledger daemon: it opens PostgreSQL, applies
// migrations, rebuilds the ledger from its journal and serves the gRPC API
// until a termination signal arrives.
package server

import (
	"context"
	"database/sql"
	"fmt"
	"os"
	"os/signal"
	"sync"
	"syscall"
	"time"

	"github.com/dmitrijs2005/filetrade/internal/logging"
	"github.com/dmitrijs2005/filetrade/internal/server/config"
	"github.com/dmitrijs2005/filetrade/internal/server/repositories/repomanager"
	"github.com/dmitrijs2005/filetrade/internal/server/services"

	gs "github.com/dmitrijs2005/filetrade/internal/server/grpc"
)

const tokenPurgeInterval = time.Hour

type App struct {
	config   *config.Config
	logger   logging.Logger
	db       *sql.DB
	accounts *services.AccountService
	market   *services.MarketService
}

func NewApp(ctx context.Context, c *config.Config) (*App, error) {
	logger := logging.NewJSON(os.Stdout, c.LogLevel)

	db, err := repomanager.OpenPostgres(ctx, c.DatabaseDSN)
	if err != nil {
		return nil, fmt.Errorf("db init error: %w", err)
	}

	rm := repomanager.NewPostgresRepositoryManager()
	if err := rm.RunMigrations(ctx, db); err != nil {
		_ = db.Close()
		return nil, fmt.Errorf("migrations: %w", err)
	}

	journal := services.NewPostgresJournal(db, rm)
	l, err := services.OpenLedger(ctx, journal, c, logger)
	if err != nil {
		_ = db.Close()
		return nil, err
	}

	// The journal's owner wins over config, so provision that name.
	accounts := services.NewAccountService(db, rm, c)
	if err := accounts.ProvisionOwner(ctx, string(l.Owner()), c.LedgerOwnerPassword); err != nil {
		_ = db.Close()
		return nil, fmt.Errorf("owner account: %w", err)
	}
	if c.LedgerOwnerPassword == "" {
		logger.Warn(ctx, "no owner password configured; owner operations are unavailable", "owner", l.Owner())
	}

	return &App{
		config:   c,
		logger:   logger,
		db:       db,
		accounts: accounts,
		market:   services.NewMarketService(l, journal, c, logger),
	}, nil
}

func (app *App) initSignalHandler(cancelFunc context.CancelFunc) {
	// Channel to catch OS signals.
	sigs := make(chan os.Signal, 1)
	signal.Notify(sigs, syscall.SIGINT, syscall.SIGTERM, syscall.SIGQUIT)

	go func() {
		<-sigs
		cancelFunc()
	}()
}

func (app *App) startGRPCServer(ctx context.Context, cancelFunc context.CancelFunc) {
	s := gs.NewGRPCServer(app.config.EndpointAddrGRPC, app.logger, app.accounts, app.market, app.config.SecretKey)
	if err := s.Run(ctx); err != nil {
		app.logger.Error(ctx, err.Error())
		cancelFunc()
	}
}

// purgeTokens drops expired refresh tokens until ctx is done.
func (app *App) purgeTokens(ctx context.Context) {
	ticker := time.NewTicker(tokenPurgeInterval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			n, err := app.accounts.PurgeExpiredTokens(ctx)
			if err != nil {
				app.logger.Warn(ctx, "refresh token purge failed", "error", err)
				continue
			}
			if n > 0 {
				app.logger.Info(ctx, "expired refresh tokens purged", "count", n)
			}
		}
	}
}

func (app *App) Run(ctx context.Context) {
	ctx, cancelFunc := context.WithCancel(ctx)
	defer cancelFunc()

	app.logger.Info(ctx, "Starting app...", "seq", app.market.Info().Seq)

	app.initSignalHandler(cancelFunc)

	var wg sync.WaitGroup

	wg.Add(2)
	go func() {
		defer wg.Done()
		app.startGRPCServer(ctx, cancelFunc)
	}()
	go func() {
		defer wg.Done()
		app.purgeTokens(ctx)
	}()

	wg.Wait()

	if err := app.db.Close(); err != nil {
		app.logger.Error(ctx, "db close", "error", err)
	}
	app.logger.Info(ctx, "App stopped")
}
