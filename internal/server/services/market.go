package services

import (
	"context"
	"errors"
	"fmt"
	"sync"

	"github.com/dmitrijs2005/filetrade/internal/common"
	"github.com/dmitrijs2005/filetrade/internal/ledger"
	"github.com/dmitrijs2005/filetrade/internal/logging"
	"github.com/dmitrijs2005/filetrade/internal/server/config"
)

// EntryReader reads committed journal entries back.
type EntryReader interface {
	Entries(ctx context.Context, after uint64, limit int) ([]ledger.Entry, error)
}

// Journal is a ledger journal that can also be read back.
type Journal interface {
	ledger.Journal
	EntryReader
}

// OpenLedger restores the ledger from the journal, or initializes a new one
// from config when the journal is empty. Owner and fee come from the
// journal once it exists; a config that disagrees is only logged.
func OpenLedger(ctx context.Context, j Journal, cfg *config.Config, logger logging.Logger) (*ledger.Ledger, error) {
	log := logger.With("module", "ledger")

	entries, err := j.Entries(ctx, 0, 0)
	if err != nil {
		return nil, fmt.Errorf("read journal: %w", err)
	}

	if len(entries) == 0 {
		l, err := ledger.New(ctx, ledger.Address(cfg.LedgerOwner), ledger.Amount(cfg.LedgerFee),
			ledger.WithJournal(j), ledger.WithLogger(log))
		if err != nil {
			return nil, fmt.Errorf("init ledger: %w", err)
		}
		log.Info(ctx, "ledger initialized", "owner", cfg.LedgerOwner, "fee", cfg.LedgerFee)
		return l, nil
	}

	l, err := ledger.Restore(ctx, entries, ledger.WithJournal(j), ledger.WithLogger(log))
	if err != nil {
		return nil, fmt.Errorf("restore ledger: %w", err)
	}
	if string(l.Owner()) != cfg.LedgerOwner || uint64(l.Fee()) != cfg.LedgerFee {
		log.Warn(ctx, "ledger config differs from journal; journal wins",
			"owner", l.Owner(), "fee", l.Fee(), "config_owner", cfg.LedgerOwner, "config_fee", cfg.LedgerFee)
	}
	return l, nil
}

const defaultWatchBuffer = 256

// MarketService fronts the ledger for the transport: it applies daemon
// policy (who may fund), logs outcomes and serves the event history.
type MarketService struct {
	ledger      *ledger.Ledger
	journal     EntryReader
	logger      logging.Logger
	faucet      bool
	watchBuffer int
}

func NewMarketService(l *ledger.Ledger, j EntryReader, cfg *config.Config, logger logging.Logger) *MarketService {
	return &MarketService{
		ledger:      l,
		journal:     j,
		logger:      logger.With("module", "market"),
		faucet:      cfg.FaucetEnabled,
		watchBuffer: defaultWatchBuffer,
	}
}

func (s *MarketService) Info() ledger.Snapshot {
	return s.ledger.Snapshot()
}

func (s *MarketService) Balance(account ledger.Address) ledger.Amount {
	return s.ledger.Balance(account)
}

// Fund credits account (the caller when empty). The owner may fund anyone;
// with the faucet enabled an account may fund itself.
func (s *MarketService) Fund(ctx context.Context, caller, account ledger.Address, amount ledger.Amount) (ledger.Amount, error) {
	if account == "" {
		account = caller
	}
	if caller != s.ledger.Owner() && !(s.faucet && caller == account) {
		s.logger.Warn(ctx, "fund rejected", "caller", caller, "account", account)
		return 0, fmt.Errorf("fund %s: %w", account, common.ErrorUnauthorized)
	}
	if err := s.ledger.Fund(ctx, account, amount); err != nil {
		s.reject(ctx, "fund", err, "caller", caller, "account", account, "amount", amount)
		return 0, err
	}
	s.logger.Info(ctx, "wallet funded", "caller", caller, "account", account, "amount", amount)
	return s.ledger.Balance(account), nil
}

func (s *MarketService) CreateOffering(ctx context.Context, caller ledger.Address, spec ledger.OfferingSpec, paid ledger.Amount) (uint64, error) {
	id, err := s.ledger.CreateOffering(ctx, caller, spec, paid)
	if err != nil {
		s.reject(ctx, "create offering", err, "caller", caller, "paid", paid)
		return 0, err
	}
	s.logger.Info(ctx, "offering created", "id", id, "offeror", caller, "price", spec.Price)
	return id, nil
}

func (s *MarketService) RemoveOffering(ctx context.Context, caller ledger.Address, id uint64) error {
	if err := s.ledger.RemoveOffering(ctx, caller, id); err != nil {
		s.reject(ctx, "remove offering", err, "caller", caller, "id", id)
		return err
	}
	s.logger.Info(ctx, "offering removed", "id", id, "caller", caller)
	return nil
}

func (s *MarketService) RequestFile(ctx context.Context, caller ledger.Address, offeringID uint64, publicKey []byte, paid ledger.Amount) (uint64, error) {
	id, err := s.ledger.RequestFile(ctx, caller, offeringID, publicKey, paid)
	if err != nil {
		s.reject(ctx, "request file", err, "caller", caller, "offering", offeringID, "paid", paid)
		return 0, err
	}
	s.logger.Info(ctx, "file requested", "offering", offeringID, "request", id, "buyer", caller)
	return id, nil
}

func (s *MarketService) Offering(id uint64) (ledger.Offering, error) {
	return s.ledger.Offering(id)
}

func (s *MarketService) ActiveOfferingIDs() []uint64 {
	return s.ledger.ActiveOfferingIDs()
}

func (s *MarketService) RequestIDs(offeringID uint64) ([]uint64, error) {
	return s.ledger.RequestIDs(offeringID)
}

func (s *MarketService) Request(offeringID, requestID uint64) (ledger.Request, error) {
	return s.ledger.Request(offeringID, requestID)
}

// Events returns committed events with seq > since, oldest first.
func (s *MarketService) Events(ctx context.Context, since uint64, limit int) ([]ledger.Event, error) {
	entries, err := s.journal.Entries(ctx, since, limit)
	if err != nil {
		return nil, fmt.Errorf("read journal: %w", err)
	}
	var out []ledger.Event
	for _, e := range entries {
		out = append(out, e.Events...)
	}
	return out, nil
}

// Watch sends every event with seq > since: first the journal backlog,
// then live events as they commit, until ctx ends or send fails. A
// consumer that falls behind the live buffer gets ErrSubscriberLagging.
func (s *MarketService) Watch(ctx context.Context, since uint64, send func(ledger.Event) error) error {
	live := make(chan ledger.Event, s.watchBuffer)
	lagging := make(chan struct{})
	var once sync.Once

	// Subscribe before reading the backlog so nothing falls in between.
	unsubscribe := s.ledger.Subscribe(func(e ledger.Event) {
		select {
		case live <- e:
		default:
			once.Do(func() { close(lagging) })
		}
	})
	defer unsubscribe()

	backlog, err := s.journal.Entries(ctx, since, 0)
	if err != nil {
		return fmt.Errorf("read journal: %w", err)
	}
	last := since
	for _, entry := range backlog {
		for _, e := range entry.Events {
			if err := send(e); err != nil {
				return err
			}
		}
		last = entry.Seq
	}

	for {
		select {
		case <-ctx.Done():
			return ctx.Err()
		case <-lagging:
			return common.ErrSubscriberLagging
		case e := <-live:
			if e.Seq <= last {
				continue
			}
			if err := send(e); err != nil {
				return err
			}
		}
	}
}

// reject logs a refused operation. Business rejections are warnings;
// anything else is an error.
func (s *MarketService) reject(ctx context.Context, op string, err error, args ...any) {
	args = append(args, "error", err)
	if isRejection(err) {
		s.logger.Warn(ctx, op+" rejected", args...)
		return
	}
	s.logger.Error(ctx, op+" failed", args...)
}

var rejections = []error{
	common.ErrorNotFound,
	common.ErrorUnauthorized,
	common.ErrInsufficientFee,
	common.ErrInsufficientDeposit,
	common.ErrInsufficientFunds,
	common.ErrAlreadyRemoved,
	common.ErrOfferingInactive,
	common.ErrInvalidOffering,
	common.ErrInvalidRequest,
	common.ErrAmountOverflow,
}

func isRejection(err error) bool {
	for _, target := range rejections {
		if errors.Is(err, target) {
			return true
		}
	}
	return false
}
