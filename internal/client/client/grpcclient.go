package client

import (
	"context"
	"errors"
	"fmt"
	"io"
	"sync"

	"github.com/dmitrijs2005/filetrade/internal/common"
	"github.com/dmitrijs2005/filetrade/internal/marketpb"
	"google.golang.org/grpc"
	"google.golang.org/grpc/codes"
	"google.golang.org/grpc/credentials/insecure"
	"google.golang.org/grpc/metadata"
	"google.golang.org/grpc/status"
	"google.golang.org/protobuf/types/known/emptypb"
)

// TokenSink is told about every new token pair, including refreshes.
type TokenSink func(accessToken, refreshToken string)

type GRPCClient struct {
	endpointURL string
	conn        *grpc.ClientConn
	client      marketpb.MarketClient

	mu           sync.Mutex
	accessToken  string
	refreshToken string
	sink         TokenSink
}

func NewMarketClient(endpointURL string) (*GRPCClient, error) {
	c := &GRPCClient{endpointURL: endpointURL}
	if err := c.InitGRPCClient(); err != nil {
		return nil, err
	}
	return c, nil
}

func (s *GRPCClient) InitGRPCClient() error {
	conn, err := grpc.NewClient(s.endpointURL,
		grpc.WithTransportCredentials(insecure.NewCredentials()),
		grpc.WithUnaryInterceptor(s.accessTokenInterceptor),
		grpc.WithStreamInterceptor(s.streamAccessTokenInterceptor),
	)
	if err != nil {
		return err
	}
	s.conn = conn
	s.client = marketpb.NewMarketClient(conn)
	return nil
}

func (s *GRPCClient) Close() error {
	return s.conn.Close()
}

func withAccessToken(ctx context.Context, token string) context.Context {
	md, _ := metadata.FromOutgoingContext(ctx)
	md = md.Copy()
	if md == nil {
		md = metadata.MD{}
	}
	md.Set(common.AccessTokenHeaderName, token)
	return metadata.NewOutgoingContext(ctx, md)
}

// SetTokens installs a token pair, e.g. one restored from local storage.
func (s *GRPCClient) SetTokens(accessToken, refreshToken string) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.accessToken, s.refreshToken = accessToken, refreshToken
}

func (s *GRPCClient) Tokens() (string, string) {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.accessToken, s.refreshToken
}

func (s *GRPCClient) OnTokens(sink TokenSink) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.sink = sink
}

func (s *GRPCClient) storeTokens(accessToken, refreshToken string) {
	s.mu.Lock()
	s.accessToken, s.refreshToken = accessToken, refreshToken
	sink := s.sink
	s.mu.Unlock()
	if sink != nil {
		sink(accessToken, refreshToken)
	}
}

func isTokenExpired(err error) bool {
	st, ok := status.FromError(err)
	return ok && st.Code() == codes.Unauthenticated && st.Message() == common.ErrTokenExpired.Error()
}

// refresh swaps the refresh token for a new pair. It reports false when
// there is no refresh token to use.
func (s *GRPCClient) refresh(ctx context.Context) (bool, error) {
	_, refreshToken := s.Tokens()
	if refreshToken == "" {
		return false, nil
	}
	resp, err := s.client.RefreshToken(ctx, &marketpb.RefreshTokenRequest{RefreshToken: refreshToken})
	if err != nil {
		return false, err
	}
	s.storeTokens(resp.AccessToken, resp.RefreshToken)
	return true, nil
}

func (s *GRPCClient) accessTokenInterceptor(
	ctx context.Context,
	method string,
	req, reply interface{},
	cc *grpc.ClientConn,
	invoker grpc.UnaryInvoker,
	opts ...grpc.CallOption,
) error {
	accessToken, _ := s.Tokens()
	err := invoker(withAccessToken(ctx, accessToken), method, req, reply, cc, opts...)
	if err == nil || !isTokenExpired(err) {
		return err
	}

	ok, rerr := s.refresh(ctx)
	if rerr != nil {
		return rerr
	}
	if !ok {
		return err
	}

	accessToken, _ = s.Tokens()
	return invoker(withAccessToken(ctx, accessToken), method, req, reply, cc, opts...)
}

func (s *GRPCClient) streamAccessTokenInterceptor(
	ctx context.Context,
	desc *grpc.StreamDesc,
	cc *grpc.ClientConn,
	method string,
	streamer grpc.Streamer,
	opts ...grpc.CallOption,
) (grpc.ClientStream, error) {
	accessToken, _ := s.Tokens()
	return streamer(withAccessToken(ctx, accessToken), desc, cc, method, opts...)
}

func (s *GRPCClient) mapError(err error) error {
	if err == nil {
		return nil
	}
	st, _ := status.FromError(err)
	switch st.Code() {
	case codes.Unauthenticated:
		return ErrUnauthorized
	case codes.Unavailable, codes.DeadlineExceeded:
		return ErrUnavailable
	case codes.PermissionDenied:
		return fmt.Errorf("%w: %s", ErrForbidden, st.Message())
	case codes.NotFound:
		return fmt.Errorf("%w: %s", common.ErrorNotFound, st.Message())
	case codes.InvalidArgument, codes.FailedPrecondition, codes.AlreadyExists, codes.ResourceExhausted:
		return fmt.Errorf("%w: %s", ErrRejected, st.Message())
	default:
		return fmt.Errorf("rpc error: %w", err)
	}
}

func (s *GRPCClient) Ping(ctx context.Context) error {
	resp, err := s.client.Ping(ctx, &emptypb.Empty{})
	if err != nil {
		return s.mapError(err)
	}
	if resp.Status != "OK" {
		return ErrUnavailable
	}
	return nil
}

func (s *GRPCClient) Register(ctx context.Context, username, password string) error {
	_, err := s.client.Register(ctx, &marketpb.RegisterRequest{Username: username, Password: password})
	return s.mapError(err)
}

func (s *GRPCClient) Login(ctx context.Context, username, password string) error {
	resp, err := s.client.Login(ctx, &marketpb.LoginRequest{Username: username, Password: password})
	if err != nil {
		return s.mapError(err)
	}
	s.storeTokens(resp.AccessToken, resp.RefreshToken)
	return nil
}

func (s *GRPCClient) Info(ctx context.Context) (*marketpb.InfoResponse, error) {
	resp, err := s.client.Info(ctx, &marketpb.InfoRequest{})
	if err != nil {
		return nil, s.mapError(err)
	}
	return resp, nil
}

// Balance returns the balance of account, or of the caller when account is empty.
func (s *GRPCClient) Balance(ctx context.Context, account string) (*marketpb.BalanceResponse, error) {
	resp, err := s.client.Balance(ctx, &marketpb.BalanceRequest{Account: account})
	if err != nil {
		return nil, s.mapError(err)
	}
	return resp, nil
}

func (s *GRPCClient) Fund(ctx context.Context, account string, amount uint64) (*marketpb.FundResponse, error) {
	resp, err := s.client.Fund(ctx, &marketpb.FundRequest{Account: account, Amount: amount})
	if err != nil {
		return nil, s.mapError(err)
	}
	return resp, nil
}

func (s *GRPCClient) CreateOffering(ctx context.Context, req *marketpb.CreateOfferingRequest) (uint64, error) {
	resp, err := s.client.CreateOffering(ctx, req)
	if err != nil {
		return 0, s.mapError(err)
	}
	return resp.OfferingID, nil
}

func (s *GRPCClient) RemoveOffering(ctx context.Context, offeringID uint64) error {
	_, err := s.client.RemoveOffering(ctx, &marketpb.RemoveOfferingRequest{OfferingID: offeringID})
	return s.mapError(err)
}

func (s *GRPCClient) RequestFile(ctx context.Context, offeringID uint64, publicKey string, paid uint64) (uint64, error) {
	resp, err := s.client.RequestFile(ctx, &marketpb.RequestFileRequest{
		OfferingID: offeringID,
		PublicKey:  publicKey,
		Paid:       paid,
	})
	if err != nil {
		return 0, s.mapError(err)
	}
	return resp.RequestID, nil
}

func (s *GRPCClient) GetOffering(ctx context.Context, offeringID uint64) (*marketpb.Offering, error) {
	resp, err := s.client.GetOffering(ctx, &marketpb.GetOfferingRequest{OfferingID: offeringID})
	if err != nil {
		return nil, s.mapError(err)
	}
	return resp, nil
}

func (s *GRPCClient) ActiveOfferingIDs(ctx context.Context) ([]uint64, error) {
	resp, err := s.client.GetActiveOfferingIds(ctx, &marketpb.GetActiveOfferingIdsRequest{})
	if err != nil {
		return nil, s.mapError(err)
	}
	return resp.Ids, nil
}

func (s *GRPCClient) RequestIDs(ctx context.Context, offeringID uint64) ([]uint64, error) {
	resp, err := s.client.GetRequestIds(ctx, &marketpb.GetRequestIdsRequest{OfferingID: offeringID})
	if err != nil {
		return nil, s.mapError(err)
	}
	return resp.Ids, nil
}

func (s *GRPCClient) GetRequest(ctx context.Context, offeringID, requestID uint64) (*marketpb.FileRequest, error) {
	resp, err := s.client.GetRequest(ctx, &marketpb.GetRequestRequest{OfferingID: offeringID, RequestID: requestID})
	if err != nil {
		return nil, s.mapError(err)
	}
	return resp, nil
}

func (s *GRPCClient) ListEvents(ctx context.Context, since uint64, limit uint32) ([]*marketpb.Event, error) {
	resp, err := s.client.ListEvents(ctx, &marketpb.ListEventsRequest{Since: since, Limit: limit})
	if err != nil {
		return nil, s.mapError(err)
	}
	return resp.Events, nil
}

// SubscribeEvents calls fn for every event after since until ctx ends, the
// stream closes or fn fails. The server authenticates the stream on the
// first receive, so an expired token is refreshed and the stream reopened
// once, but only before anything was delivered.
func (s *GRPCClient) SubscribeEvents(ctx context.Context, since uint64, fn func(*marketpb.Event) error) error {
	retried := false
	delivered := false
	for {
		err := s.follow(ctx, since, func(e *marketpb.Event) error {
			delivered = true
			since = e.Seq
			return fn(e)
		})
		if err == nil || retried || delivered || !isTokenExpired(err) {
			return s.mapStreamError(ctx, err)
		}
		retried = true
		ok, rerr := s.refresh(ctx)
		if rerr != nil {
			return s.mapError(rerr)
		}
		if !ok {
			return s.mapError(err)
		}
	}
}

type callbackError struct{ err error }

func (e callbackError) Error() string { return e.err.Error() }
func (e callbackError) Unwrap() error { return e.err }

func (s *GRPCClient) follow(ctx context.Context, since uint64, fn func(*marketpb.Event) error) error {
	ctx, cancel := context.WithCancel(ctx)
	defer cancel()

	stream, err := s.client.SubscribeEvents(ctx, &marketpb.SubscribeEventsRequest{Since: since})
	if err != nil {
		return err
	}
	for {
		e, err := stream.Recv()
		if err != nil {
			if errors.Is(err, io.EOF) {
				return nil
			}
			return err
		}
		if err := fn(e); err != nil {
			return callbackError{err}
		}
	}
}

func (s *GRPCClient) mapStreamError(ctx context.Context, err error) error {
	var cbErr callbackError
	switch {
	case err == nil:
		return nil
	case errors.As(err, &cbErr):
		return cbErr.err
	case ctx.Err() != nil:
		return ctx.Err()
	default:
		return s.mapError(err)
	}
}
