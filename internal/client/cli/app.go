package cli

import (
	"bufio"
	"context"
	"database/sql"
	"fmt"
	"io"
	"os"
	"sync"
	"time"

	"github.com/dmitrijs2005/filetrade/internal/client/client"
	"github.com/dmitrijs2005/filetrade/internal/client/config"
	"github.com/dmitrijs2005/filetrade/internal/client/fileclient"
	"github.com/dmitrijs2005/filetrade/internal/client/services"
	"github.com/dmitrijs2005/filetrade/internal/logging"
)

type Mode string

const (
	ModeOffline Mode = "offline"
	ModeOnline  Mode = "online"
)

const fileServerTimeout = 60 * time.Second

type App struct {
	config        *config.Config
	authService   services.AuthService
	marketService services.MarketService
	db            *sql.DB
	logger        logging.Logger

	reader *bufio.Reader
	out    io.Writer

	mu       sync.Mutex
	mode     Mode
	userName string
}

func NewApp(ctx context.Context, c *config.Config) (*App, error) {
	logger := logging.NewJSON(os.Stderr, "warn").With("app", "marketctl")

	db, err := client.InitDatabase(ctx, c.DatabasePath)
	if err != nil {
		return nil, fmt.Errorf("error initializing database: %w", err)
	}

	apiClient, err := client.NewMarketClient(c.ServerEndpointAddr)
	if err != nil {
		_ = db.Close()
		return nil, err
	}
	files := fileclient.New(c.FileServerURL, fileServerTimeout)

	return &App{
		config:        c,
		authService:   services.NewAuthService(apiClient, db, logger),
		marketService: services.NewMarketService(apiClient, files, db, logger),
		db:            db,
		logger:        logger,
		reader:        bufio.NewReader(os.Stdin),
		out:           os.Stdout,
	}, nil
}

func (a *App) setMode(mode Mode) {
	a.mu.Lock()
	defer a.mu.Unlock()
	if a.mode != mode {
		a.mode = mode
		a.logger.Info(context.Background(), "connectivity changed", "mode", mode)
	}
}

func (a *App) setUser(name string) {
	a.mu.Lock()
	defer a.mu.Unlock()
	a.userName = name
}

func (a *App) isLoggedIn() bool {
	a.mu.Lock()
	defer a.mu.Unlock()
	return a.userName != ""
}

func (a *App) getStatus() string {
	a.mu.Lock()
	defer a.mu.Unlock()
	s := ""
	if a.userName != "" {
		s = a.userName + " "
	}
	s += string(a.mode)
	if s != "" {
		s = fmt.Sprintf("(%s)", s)
	}
	return s
}

func (a *App) printf(format string, args ...any) {
	fmt.Fprintf(a.out, format, args...)
}

// Run resumes a saved session, starts the connectivity watcher and blocks
// in the REPL until the user exits or stdin closes.
func (a *App) Run(ctx context.Context) {
	defer func() {
		_ = a.authService.Close(ctx)
		_ = a.db.Close()
	}()

	ctx, cancel := context.WithCancel(ctx)
	defer cancel()

	a.printf("Welcome to marketctl (type 'help' for commands)\n")
	if name, err := a.authService.Resume(ctx); err != nil {
		a.printf("could not restore session: %v\n", err)
	} else if name != "" {
		a.setUser(name)
		a.printf("Signed in as %s\n", name)
	}

	a.probe()
	go a.StartOnlineStatusWatcher(ctx, a.config.OnlineCheckInterval)

	runREPL(ctx, a, a.getStatus, a.reader)
}

func (a *App) probe() {
	ctx, cancel := context.WithTimeout(context.Background(), 3*time.Second)
	defer cancel()
	if err := a.authService.Ping(ctx); err != nil {
		a.setMode(ModeOffline)
		return
	}
	a.setMode(ModeOnline)
}

func (a *App) StartOnlineStatusWatcher(ctx context.Context, interval time.Duration) {
	ticker := time.NewTicker(interval)
	defer ticker.Stop()

	for {
		select {
		case <-ticker.C:
			a.probe()
		case <-ctx.Done():
			return
		}
	}
}
