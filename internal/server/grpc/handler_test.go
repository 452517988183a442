package grpc

import (
	"context"
	"encoding/json"
	"net"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"google.golang.org/grpc"
	"google.golang.org/grpc/codes"
	"google.golang.org/grpc/credentials/insecure"
	"google.golang.org/grpc/metadata"
	"google.golang.org/grpc/status"
	"google.golang.org/grpc/test/bufconn"
	"google.golang.org/protobuf/types/known/emptypb"

	"github.com/dmitrijs2005/filetrade/internal/common"
	"github.com/dmitrijs2005/filetrade/internal/ledger"
	"github.com/dmitrijs2005/filetrade/internal/logging"
	"github.com/dmitrijs2005/filetrade/internal/marketpb"
	"github.com/dmitrijs2005/filetrade/internal/server/auth"
	"github.com/dmitrijs2005/filetrade/internal/server/config"
	"github.com/dmitrijs2005/filetrade/internal/server/models"
	"github.com/dmitrijs2005/filetrade/internal/server/services"
)

// ---- fakes ----

type fakeAccounts struct {
	regResp     *models.Account
	regErr      error
	loginResp   *services.TokenPair
	loginErr    error
	refreshResp *services.TokenPair
	refreshErr  error
}

func (f *fakeAccounts) Register(context.Context, string, string) (*models.Account, error) {
	return f.regResp, f.regErr
}

func (f *fakeAccounts) Login(context.Context, string, string) (*services.TokenPair, error) {
	return f.loginResp, f.loginErr
}

func (f *fakeAccounts) RefreshToken(context.Context, string) (*services.TokenPair, error) {
	return f.refreshResp, f.refreshErr
}

type memJournal struct {
	*ledger.MemoryJournal
}

func (j memJournal) Entries(_ context.Context, after uint64, limit int) ([]ledger.Entry, error) {
	var out []ledger.Entry
	for _, e := range j.MemoryJournal.Entries() {
		if e.Seq > after {
			out = append(out, e)
		}
	}
	if limit > 0 && len(out) > limit {
		out = out[:limit]
	}
	return out, nil
}

// startServer serves a fresh ledger (owner "owner", fee 10) over an
// in-memory connection.
func startServer(t *testing.T, as AccountService) marketpb.MarketClient {
	t.Helper()

	j := memJournal{ledger.NewMemoryJournal()}
	cfg := &config.Config{LedgerOwner: "owner", LedgerFee: 10}
	l, err := services.OpenLedger(context.Background(), j, cfg, logging.Nop{})
	require.NoError(t, err)
	ms := services.NewMarketService(l, j, cfg, logging.Nop{})

	if as == nil {
		as = &fakeAccounts{}
	}
	s := NewGRPCServer("", logging.Nop{}, as, ms, testSecret)

	lis := bufconn.Listen(1 << 20)
	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan error, 1)
	go func() { done <- s.Serve(ctx, lis) }()

	conn, err := grpc.NewClient("passthrough:///bufnet",
		grpc.WithContextDialer(func(ctx context.Context, _ string) (net.Conn, error) { return lis.DialContext(ctx) }),
		grpc.WithTransportCredentials(insecure.NewCredentials()),
	)
	require.NoError(t, err)

	t.Cleanup(func() {
		_ = conn.Close()
		cancel()
		assert.NoError(t, <-done)
	})
	return marketpb.NewMarketClient(conn)
}

func asAccount(t *testing.T, account string) context.Context {
	t.Helper()
	token, err := auth.GenerateToken("id-"+account, account, []byte(testSecret), time.Hour)
	require.NoError(t, err)
	return metadata.AppendToOutgoingContext(context.Background(), common.AccessTokenHeaderName, token)
}

func TestPing(t *testing.T) {
	c := startServer(t, nil)

	var header metadata.MD
	resp, err := c.Ping(context.Background(), &emptypb.Empty{}, grpc.Header(&header))
	require.NoError(t, err)
	assert.Equal(t, "OK", resp.Status)
	assert.NotEmpty(t, header.Get(common.RequestIDHeaderName))
}

func TestAccountHandlers(t *testing.T) {
	fa := &fakeAccounts{
		regResp:     &models.Account{ID: "a-1", Name: "alice"},
		loginResp:   &services.TokenPair{AccessToken: "at", RefreshToken: "rt"},
		refreshResp: &services.TokenPair{AccessToken: "at2", RefreshToken: "rt2"},
	}
	c := startServer(t, fa)
	ctx := context.Background()

	reg, err := c.Register(ctx, &marketpb.RegisterRequest{Username: "alice", Password: "long enough"})
	require.NoError(t, err)
	assert.Equal(t, "a-1", reg.AccountID)

	login, err := c.Login(ctx, &marketpb.LoginRequest{Username: "alice", Password: "long enough"})
	require.NoError(t, err)
	assert.Equal(t, "at", login.AccessToken)
	assert.Equal(t, "rt", login.RefreshToken)

	ref, err := c.RefreshToken(ctx, &marketpb.RefreshTokenRequest{RefreshToken: "rt"})
	require.NoError(t, err)
	assert.Equal(t, "rt2", ref.RefreshToken)

	fa.regErr = common.ErrorAlreadyExists
	_, err = c.Register(ctx, &marketpb.RegisterRequest{Username: "alice", Password: "long enough"})
	assert.Equal(t, codes.AlreadyExists, status.Code(err))

	fa.loginErr = common.ErrInvalidCredentials
	_, err = c.Login(ctx, &marketpb.LoginRequest{Username: "alice", Password: "wrong"})
	assert.Equal(t, codes.Unauthenticated, status.Code(err))
}

func TestLedgerMethodsRequireToken(t *testing.T) {
	c := startServer(t, nil)

	_, err := c.Info(context.Background(), &marketpb.InfoRequest{})
	assert.Equal(t, codes.Unauthenticated, status.Code(err))

	stream, err := c.SubscribeEvents(context.Background(), &marketpb.SubscribeEventsRequest{})
	require.NoError(t, err)
	_, err = stream.Recv()
	assert.Equal(t, codes.Unauthenticated, status.Code(err))
}

func TestMarketFlow(t *testing.T) {
	c := startServer(t, nil)
	owner, alice, bob := asAccount(t, "owner"), asAccount(t, "alice"), asAccount(t, "bob")

	_, err := c.Fund(alice, &marketpb.FundRequest{Account: "bob", Amount: 100})
	assert.Equal(t, codes.PermissionDenied, status.Code(err))

	for _, acc := range []string{"alice", "bob"} {
		resp, err := c.Fund(owner, &marketpb.FundRequest{Account: acc, Amount: 100})
		require.NoError(t, err)
		assert.Equal(t, uint64(100), resp.Balance)
	}

	hash := strings.Repeat("ab", 32)
	_, err = c.CreateOffering(alice, &marketpb.CreateOfferingRequest{
		FileName: "song.mp3", FileHash: hash, Version: 2, Price: 30, DepositRequirement: 5, Paid: 9,
	})
	assert.Equal(t, codes.InvalidArgument, status.Code(err), "fee not covered")

	_, err = c.CreateOffering(alice, &marketpb.CreateOfferingRequest{
		FileName: "song.mp3", FileHash: "zz", Version: 2, Paid: 10,
	})
	assert.Equal(t, codes.InvalidArgument, status.Code(err), "bad hash")

	created, err := c.CreateOffering(alice, &marketpb.CreateOfferingRequest{
		FileName: "song.mp3", FileHash: "0x" + hash, Version: 2, Price: 30, DepositRequirement: 5, Paid: 10,
	})
	require.NoError(t, err)
	assert.Equal(t, uint64(1), created.OfferingID)

	off, err := c.GetOffering(bob, &marketpb.GetOfferingRequest{OfferingID: 1})
	require.NoError(t, err)
	assert.Equal(t, "song.mp3", off.FileName)
	assert.Equal(t, hash, off.FileHash)
	assert.Equal(t, "alice", off.Offeror)
	assert.True(t, off.Active)

	ids, err := c.GetActiveOfferingIds(bob, &marketpb.GetActiveOfferingIdsRequest{})
	require.NoError(t, err)
	assert.Equal(t, []uint64{1}, ids.Ids)

	_, err = c.RequestFile(bob, &marketpb.RequestFileRequest{OfferingID: 9, PublicKey: "pk", Paid: 5})
	assert.Equal(t, codes.NotFound, status.Code(err))

	req, err := c.RequestFile(bob, &marketpb.RequestFileRequest{OfferingID: 1, PublicKey: "pk", Paid: 5})
	require.NoError(t, err)
	assert.Equal(t, uint64(1), req.RequestID)

	got, err := c.GetRequest(alice, &marketpb.GetRequestRequest{OfferingID: 1, RequestID: 1})
	require.NoError(t, err)
	assert.Equal(t, "bob", got.Buyer)
	assert.Equal(t, "pk", got.PublicKey)
	assert.Equal(t, uint64(5), got.DepositHeld)

	reqIDs, err := c.GetRequestIds(alice, &marketpb.GetRequestIdsRequest{OfferingID: 1})
	require.NoError(t, err)
	assert.Equal(t, []uint64{1}, reqIDs.Ids)

	_, err = c.RemoveOffering(bob, &marketpb.RemoveOfferingRequest{OfferingID: 1})
	assert.Equal(t, codes.PermissionDenied, status.Code(err))
	_, err = c.RemoveOffering(alice, &marketpb.RemoveOfferingRequest{OfferingID: 1})
	require.NoError(t, err)
	_, err = c.RemoveOffering(alice, &marketpb.RemoveOfferingRequest{OfferingID: 1})
	assert.Equal(t, codes.FailedPrecondition, status.Code(err))

	bal, err := c.Balance(bob, &marketpb.BalanceRequest{})
	require.NoError(t, err)
	assert.Equal(t, "bob", bal.Account)
	assert.Equal(t, uint64(100), bal.Balance)

	info, err := c.Info(bob, &marketpb.InfoRequest{})
	require.NoError(t, err)
	assert.Equal(t, "owner", info.Owner)
	assert.Equal(t, uint64(10), info.Fees)
	assert.Zero(t, info.Custody)
	assert.Equal(t, uint64(1), info.Offerings)
	assert.Zero(t, info.ActiveOfferings)

	events, err := c.ListEvents(bob, &marketpb.ListEventsRequest{})
	require.NoError(t, err)
	var kinds []string
	for _, e := range events.Events {
		kinds = append(kinds, e.Kind)
	}
	assert.Equal(t, []string{
		"LedgerInitialized", "WalletFunded", "WalletFunded", "OfferingCreated", "FileRequested", "OfferingRemoved",
	}, kinds)

	page, err := c.ListEvents(bob, &marketpb.ListEventsRequest{Since: 3, Limit: 1})
	require.NoError(t, err)
	require.Len(t, page.Events, 1)
	var created2 ledger.OfferingCreated
	require.NoError(t, json.Unmarshal(page.Events[0].Data, &created2))
	assert.Equal(t, ledger.Address("alice"), created2.Offeror)
	assert.Equal(t, "song.mp3", string(created2.FileName))
}

func TestSubscribeEvents(t *testing.T) {
	c := startServer(t, nil)
	ctx, cancel := context.WithCancel(asAccount(t, "owner"))
	defer cancel()

	stream, err := c.SubscribeEvents(ctx, &marketpb.SubscribeEventsRequest{})
	require.NoError(t, err)

	first, err := stream.Recv()
	require.NoError(t, err)
	assert.Equal(t, "LedgerInitialized", first.Kind)

	_, err = c.Fund(asAccount(t, "owner"), &marketpb.FundRequest{Account: "alice", Amount: 7})
	require.NoError(t, err)

	next, err := stream.Recv()
	require.NoError(t, err)
	assert.Equal(t, uint64(2), next.Seq)
	var funded ledger.WalletFunded
	require.NoError(t, json.Unmarshal(next.Data, &funded))
	assert.Equal(t, ledger.WalletFunded{Party: "alice", Amount: 7}, funded)

	cancel()
	_, err = stream.Recv()
	assert.Equal(t, codes.Canceled, status.Code(err))
}
