package services

import (
	"context"
	"crypto/rand"
	"database/sql"
	"encoding/base64"
	"encoding/json"
	"errors"
	"fmt"

	"github.com/dmitrijs2005/filetrade/internal/client/repositories/events"
	"github.com/dmitrijs2005/filetrade/internal/client/repositories/settings"
	"github.com/dmitrijs2005/filetrade/internal/common"
	"github.com/dmitrijs2005/filetrade/internal/contentid"
	"github.com/dmitrijs2005/filetrade/internal/ledger"
	"github.com/dmitrijs2005/filetrade/internal/logging"
	"github.com/dmitrijs2005/filetrade/internal/marketpb"
	"golang.org/x/crypto/nacl/box"
)

const syncPageSize = 500

var (
	ErrNoKeyPair     = errors.New("no key pair, run keygen first")
	ErrCannotDecrypt = errors.New("ciphertext was not sealed to this key pair")
)

// MarketAPI is the part of the daemon client used for ledger operations.
type MarketAPI interface {
	Info(ctx context.Context) (*marketpb.InfoResponse, error)
	Balance(ctx context.Context, account string) (*marketpb.BalanceResponse, error)
	Fund(ctx context.Context, account string, amount uint64) (*marketpb.FundResponse, error)
	CreateOffering(ctx context.Context, req *marketpb.CreateOfferingRequest) (uint64, error)
	RemoveOffering(ctx context.Context, offeringID uint64) error
	RequestFile(ctx context.Context, offeringID uint64, publicKey string, paid uint64) (uint64, error)
	GetOffering(ctx context.Context, offeringID uint64) (*marketpb.Offering, error)
	ActiveOfferingIDs(ctx context.Context) ([]uint64, error)
	RequestIDs(ctx context.Context, offeringID uint64) ([]uint64, error)
	GetRequest(ctx context.Context, offeringID, requestID uint64) (*marketpb.FileRequest, error)
	ListEvents(ctx context.Context, since uint64, limit uint32) ([]*marketpb.Event, error)
	SubscribeEvents(ctx context.Context, since uint64, fn func(*marketpb.Event) error) error
}

// FileServer is the offeror's file server.
type FileServer interface {
	ListFiles(ctx context.Context) ([]string, error)
	EncryptAndPublish(ctx context.Context, name, publicKey string) (string, error)
}

// OfferParams describes a new listing. Hash may be hex or a CID; an empty
// Hash makes a version 1 listing. Paid zero means "pay the current fee".
type OfferParams struct {
	FileName           string
	Hash               string
	Price              uint64
	DepositRequirement uint64
	Paid               uint64
}

type MarketService interface {
	Info(ctx context.Context) (*marketpb.InfoResponse, error)
	Balance(ctx context.Context, account string) (*marketpb.BalanceResponse, error)
	Fund(ctx context.Context, account string, amount uint64) (*marketpb.FundResponse, error)
	Offer(ctx context.Context, p OfferParams) (uint64, error)
	Remove(ctx context.Context, offeringID uint64) error
	Request(ctx context.Context, offeringID, paid uint64) (uint64, error)
	Offering(ctx context.Context, offeringID uint64) (*marketpb.Offering, error)
	ActiveOfferings(ctx context.Context) ([]*marketpb.Offering, error)
	Requests(ctx context.Context, offeringID uint64) ([]*marketpb.FileRequest, error)
	RequestInfo(ctx context.Context, offeringID, requestID uint64) (*marketpb.FileRequest, error)
	Deliver(ctx context.Context, offeringID, requestID uint64) (string, error)
	Files(ctx context.Context) ([]string, error)
	GenerateKeyPair(ctx context.Context) (string, error)
	PublicKey(ctx context.Context) (string, error)
	Open(ctx context.Context, sealed []byte) ([]byte, error)
	SyncEvents(ctx context.Context) (int, error)
	Follow(ctx context.Context, fn func(events.Event) error) error
	LocalEvents(ctx context.Context, f events.Filter) ([]events.Event, error)
}

type marketService struct {
	api      MarketAPI
	files    FileServer
	db       *sql.DB
	events   events.Repository
	settings settings.Repository
	logger   logging.Logger
}

func NewMarketService(api MarketAPI, files FileServer, db *sql.DB, logger logging.Logger) MarketService {
	return &marketService{
		api:      api,
		files:    files,
		db:       db,
		events:   events.NewSQLiteRepository(db),
		settings: settings.NewSQLiteRepository(db),
		logger:   logger.With("module", "market"),
	}
}

func (m *marketService) Info(ctx context.Context) (*marketpb.InfoResponse, error) {
	return m.api.Info(ctx)
}

func (m *marketService) Balance(ctx context.Context, account string) (*marketpb.BalanceResponse, error) {
	return m.api.Balance(ctx, account)
}

func (m *marketService) Fund(ctx context.Context, account string, amount uint64) (*marketpb.FundResponse, error) {
	return m.api.Fund(ctx, account, amount)
}

func (m *marketService) Offer(ctx context.Context, p OfferParams) (uint64, error) {
	req := &marketpb.CreateOfferingRequest{
		FileName:           p.FileName,
		Version:            1,
		Price:              p.Price,
		DepositRequirement: p.DepositRequirement,
		Paid:               p.Paid,
	}
	if p.Hash != "" {
		h, err := contentid.ParseHash(p.Hash)
		if err != nil {
			return 0, err
		}
		req.FileHash = h.String()
		req.Version = 2
	}
	if req.Paid == 0 {
		info, err := m.api.Info(ctx)
		if err != nil {
			return 0, fmt.Errorf("reading fee: %w", err)
		}
		req.Paid = info.Fee
	}
	return m.api.CreateOffering(ctx, req)
}

func (m *marketService) Remove(ctx context.Context, offeringID uint64) error {
	return m.api.RemoveOffering(ctx, offeringID)
}

// Request reserves offeringID with the stored public key. Paid zero means
// "post exactly the deposit requirement".
func (m *marketService) Request(ctx context.Context, offeringID, paid uint64) (uint64, error) {
	pk, err := m.PublicKey(ctx)
	if err != nil {
		return 0, err
	}
	if paid == 0 {
		o, err := m.api.GetOffering(ctx, offeringID)
		if err != nil {
			return 0, err
		}
		paid = o.DepositRequirement
	}
	return m.api.RequestFile(ctx, offeringID, pk, paid)
}

func (m *marketService) Offering(ctx context.Context, offeringID uint64) (*marketpb.Offering, error) {
	return m.api.GetOffering(ctx, offeringID)
}

func (m *marketService) ActiveOfferings(ctx context.Context) ([]*marketpb.Offering, error) {
	ids, err := m.api.ActiveOfferingIDs(ctx)
	if err != nil {
		return nil, err
	}
	out := make([]*marketpb.Offering, 0, len(ids))
	for _, id := range ids {
		o, err := m.api.GetOffering(ctx, id)
		if errors.Is(err, common.ErrorNotFound) {
			continue
		}
		if err != nil {
			return nil, err
		}
		out = append(out, o)
	}
	return out, nil
}

func (m *marketService) Requests(ctx context.Context, offeringID uint64) ([]*marketpb.FileRequest, error) {
	ids, err := m.api.RequestIDs(ctx, offeringID)
	if err != nil {
		return nil, err
	}
	out := make([]*marketpb.FileRequest, 0, len(ids))
	for _, id := range ids {
		r, err := m.api.GetRequest(ctx, offeringID, id)
		if err != nil {
			return nil, err
		}
		out = append(out, r)
	}
	return out, nil
}

func (m *marketService) RequestInfo(ctx context.Context, offeringID, requestID uint64) (*marketpb.FileRequest, error) {
	return m.api.GetRequest(ctx, offeringID, requestID)
}

// Deliver seals the offering's file to the request's public key on the
// file server and returns the CID of the published ciphertext.
func (m *marketService) Deliver(ctx context.Context, offeringID, requestID uint64) (string, error) {
	o, err := m.api.GetOffering(ctx, offeringID)
	if err != nil {
		return "", err
	}
	r, err := m.api.GetRequest(ctx, offeringID, requestID)
	if err != nil {
		return "", err
	}
	if r.Refunded {
		return "", fmt.Errorf("request %d/%d was refunded: %w", offeringID, requestID, common.ErrOfferingInactive)
	}
	c, err := m.files.EncryptAndPublish(ctx, o.FileName, r.PublicKey)
	if err != nil {
		return "", err
	}
	m.logger.Info(ctx, "file delivered", "offering", offeringID, "request", requestID, "cid", c)
	return c, nil
}

func (m *marketService) Files(ctx context.Context) ([]string, error) {
	return m.files.ListFiles(ctx)
}

// GenerateKeyPair creates and stores a new X25519 key pair, replacing any
// previous one, and returns the base64 public key.
func (m *marketService) GenerateKeyPair(ctx context.Context) (string, error) {
	pub, priv, err := box.GenerateKey(rand.Reader)
	if err != nil {
		return "", err
	}
	pk := base64.StdEncoding.EncodeToString(pub[:])
	if err := m.settings.Set(ctx, settings.KeyPublicKey, pk); err != nil {
		return "", err
	}
	if err := m.settings.Set(ctx, settings.KeyPrivateKey, base64.StdEncoding.EncodeToString(priv[:])); err != nil {
		return "", err
	}
	return pk, nil
}

func (m *marketService) PublicKey(ctx context.Context) (string, error) {
	pk, ok, err := m.settings.Get(ctx, settings.KeyPublicKey)
	if err != nil {
		return "", err
	}
	if !ok {
		return "", ErrNoKeyPair
	}
	return pk, nil
}

func (m *marketService) keyPair(ctx context.Context) (*[32]byte, *[32]byte, error) {
	var pub, priv [32]byte
	for _, k := range []struct {
		name string
		dst  *[32]byte
	}{{settings.KeyPublicKey, &pub}, {settings.KeyPrivateKey, &priv}} {
		v, ok, err := m.settings.Get(ctx, k.name)
		if err != nil {
			return nil, nil, err
		}
		if !ok {
			return nil, nil, ErrNoKeyPair
		}
		raw, err := base64.StdEncoding.DecodeString(v)
		if err != nil || len(raw) != len(k.dst) {
			return nil, nil, fmt.Errorf("stored %s is malformed", k.name)
		}
		copy(k.dst[:], raw)
	}
	return &pub, &priv, nil
}

// Open decrypts a file the offeror sealed to our public key.
func (m *marketService) Open(ctx context.Context, sealed []byte) ([]byte, error) {
	pub, priv, err := m.keyPair(ctx)
	if err != nil {
		return nil, err
	}
	plain, ok := box.OpenAnonymous(nil, sealed, pub, priv)
	if !ok {
		return nil, ErrCannotDecrypt
	}
	return plain, nil
}

// SyncEvents pulls every event newer than the local index and returns how
// many were stored.
func (m *marketService) SyncEvents(ctx context.Context) (int, error) {
	total := 0
	for {
		since, err := m.events.LastSeq(ctx)
		if err != nil {
			return total, err
		}
		page, err := m.api.ListEvents(ctx, since, syncPageSize)
		if err != nil {
			return total, err
		}
		if len(page) == 0 {
			return total, nil
		}
		rows, err := toRows(page)
		if err != nil {
			return total, err
		}
		n, err := m.events.Save(ctx, rows)
		if err != nil {
			return total, err
		}
		total += n
		m.logger.Debug(ctx, "events synced", "since", since, "received", len(page), "stored", n)
	}
}

// Follow stores and reports live events until ctx ends.
func (m *marketService) Follow(ctx context.Context, fn func(events.Event) error) error {
	since, err := m.events.LastSeq(ctx)
	if err != nil {
		return err
	}
	return m.api.SubscribeEvents(ctx, since, func(e *marketpb.Event) error {
		row, err := toRow(e)
		if err != nil {
			return err
		}
		if _, err := m.events.Save(ctx, []events.Event{row}); err != nil {
			return err
		}
		return fn(row)
	})
}

func (m *marketService) LocalEvents(ctx context.Context, f events.Filter) ([]events.Event, error) {
	return m.events.List(ctx, f)
}

type offeringRef struct {
	ID         uint64 `json:"id"`
	OfferingID uint64 `json:"offeringId"`
}

func toRow(e *marketpb.Event) (events.Event, error) {
	row := events.Event{Seq: e.Seq, Kind: e.Kind, At: e.At, Data: []byte(e.Data)}
	if len(e.Data) == 0 {
		row.Data = []byte("null")
		return row, nil
	}
	var ref offeringRef
	if err := json.Unmarshal(e.Data, &ref); err != nil {
		return events.Event{}, fmt.Errorf("event %d: %w", e.Seq, err)
	}
	switch e.Kind {
	case string(ledger.KindOfferingCreated), string(ledger.KindOfferingRemoved):
		row.OfferingID = ref.ID
	case string(ledger.KindFileRequested):
		row.OfferingID = ref.OfferingID
	}
	return row, nil
}

func toRows(in []*marketpb.Event) ([]events.Event, error) {
	out := make([]events.Event, 0, len(in))
	for _, e := range in {
		row, err := toRow(e)
		if err != nil {
			return nil, err
		}
		out = append(out, row)
	}
	return out, nil
}
