package services

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"path/filepath"
	"testing"
	"time"

	"github.com/dmitrijs2005/filetrade/internal/client/client"
	"github.com/dmitrijs2005/filetrade/internal/common"
	"github.com/dmitrijs2005/filetrade/internal/marketpb"
	"github.com/stretchr/testify/require"
)

func setupDB(t *testing.T) *sql.DB {
	t.Helper()
	db, err := client.InitDatabase(context.Background(), filepath.Join(t.TempDir(), "marketctl.db"))
	require.NoError(t, err)
	t.Cleanup(func() { _ = db.Close() })
	return db
}

// ---- fake daemon ----

type fakeAPI struct {
	access, refresh string
	sink            client.TokenSink
	closed          bool

	loginErr error
	pingErr  error

	info      *marketpb.InfoResponse
	offerings map[uint64]*marketpb.Offering
	requests  map[uint64][]*marketpb.FileRequest
	history   []*marketpb.Event
	live      []*marketpb.Event

	lastCreate  *marketpb.CreateOfferingRequest
	lastRequest struct {
		offeringID uint64
		publicKey  string
		paid       uint64
	}
	listCalls []uint64
}

func newFakeAPI() *fakeAPI {
	return &fakeAPI{
		info:      &marketpb.InfoResponse{Owner: "owner", Fee: 3},
		offerings: map[uint64]*marketpb.Offering{},
		requests:  map[uint64][]*marketpb.FileRequest{},
	}
}

func (f *fakeAPI) Ping(context.Context) error { return f.pingErr }
func (f *fakeAPI) Register(context.Context, string, string) error {
	return nil
}
func (f *fakeAPI) Login(_ context.Context, username, _ string) error {
	if f.loginErr != nil {
		return f.loginErr
	}
	f.access, f.refresh = "A-"+username, "R-"+username
	if f.sink != nil {
		f.sink(f.access, f.refresh)
	}
	return nil
}
func (f *fakeAPI) SetTokens(a, r string) { f.access, f.refresh = a, r }
func (f *fakeAPI) OnTokens(sink client.TokenSink) { f.sink = sink }
func (f *fakeAPI) Close() error { f.closed = true; return nil }
func (f *fakeAPI) Info(context.Context) (*marketpb.InfoResponse, error) {
	return f.info, nil
}
func (f *fakeAPI) Balance(_ context.Context, account string) (*marketpb.BalanceResponse, error) {
	return &marketpb.BalanceResponse{Account: account, Balance: 7}, nil
}
func (f *fakeAPI) Fund(_ context.Context, account string, amount uint64) (*marketpb.FundResponse, error) {
	return &marketpb.FundResponse{Account: account, Balance: amount}, nil
}
func (f *fakeAPI) CreateOffering(_ context.Context, req *marketpb.CreateOfferingRequest) (uint64, error) {
	f.lastCreate = req
	id := uint64(len(f.offerings) + 1)
	f.offerings[id] = &marketpb.Offering{
		ID: id, FileName: req.FileName, FileHash: req.FileHash, Version: req.Version,
		Price: req.Price, DepositRequirement: req.DepositRequirement, Active: true,
	}
	return id, nil
}
func (f *fakeAPI) RemoveOffering(_ context.Context, id uint64) error {
	o, ok := f.offerings[id]
	if !ok {
		return common.ErrorNotFound
	}
	o.Active = false
	for _, r := range f.requests[id] {
		r.Refunded = true
	}
	return nil
}
func (f *fakeAPI) RequestFile(_ context.Context, id uint64, pk string, paid uint64) (uint64, error) {
	f.lastRequest.offeringID, f.lastRequest.publicKey, f.lastRequest.paid = id, pk, paid
	rid := uint64(len(f.requests[id]) + 1)
	f.requests[id] = append(f.requests[id], &marketpb.FileRequest{ID: rid, OfferingID: id, PublicKey: pk, DepositHeld: paid})
	return rid, nil
}
func (f *fakeAPI) GetOffering(_ context.Context, id uint64) (*marketpb.Offering, error) {
	o, ok := f.offerings[id]
	if !ok {
		return nil, fmt.Errorf("%w: offering %d", common.ErrorNotFound, id)
	}
	return o, nil
}
func (f *fakeAPI) ActiveOfferingIDs(context.Context) ([]uint64, error) {
	var ids []uint64
	for id := uint64(1); id <= uint64(len(f.offerings)); id++ {
		if f.offerings[id].Active {
			ids = append(ids, id)
		}
	}
	return ids, nil
}
func (f *fakeAPI) RequestIDs(_ context.Context, id uint64) ([]uint64, error) {
	var ids []uint64
	for _, r := range f.requests[id] {
		ids = append(ids, r.ID)
	}
	return ids, nil
}
func (f *fakeAPI) GetRequest(_ context.Context, id, rid uint64) (*marketpb.FileRequest, error) {
	rs := f.requests[id]
	if rid == 0 || rid > uint64(len(rs)) {
		return nil, common.ErrorNotFound
	}
	return rs[rid-1], nil
}
func (f *fakeAPI) ListEvents(_ context.Context, since uint64, limit uint32) ([]*marketpb.Event, error) {
	f.listCalls = append(f.listCalls, since)
	var out []*marketpb.Event
	for _, e := range f.history {
		if e.Seq > since && uint32(len(out)) < limit {
			out = append(out, e)
		}
	}
	return out, nil
}
func (f *fakeAPI) SubscribeEvents(ctx context.Context, since uint64, fn func(*marketpb.Event) error) error {
	for _, e := range f.live {
		if e.Seq <= since {
			continue
		}
		if err := fn(e); err != nil {
			return err
		}
	}
	return nil
}

type fakeFiles struct {
	files     []string
	published [][2]string
	err       error
}

func (f *fakeFiles) ListFiles(context.Context) ([]string, error) { return f.files, f.err }
func (f *fakeFiles) EncryptAndPublish(_ context.Context, name, pk string) (string, error) {
	if f.err != nil {
		return "", f.err
	}
	f.published = append(f.published, [2]string{name, pk})
	return "bafk-" + name, nil
}

func event(seq uint64, kind string, payload any) *marketpb.Event {
	data, _ := json.Marshal(payload)
	return &marketpb.Event{Seq: seq, Kind: kind, At: time.Date(2026, 5, 1, 0, 0, int(seq), 0, time.UTC), Data: data}
}

var errBoom = errors.New("boom")
