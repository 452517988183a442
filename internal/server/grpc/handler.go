package grpc

import (
	"context"
	"math"

	"google.golang.org/grpc"
	"google.golang.org/grpc/codes"
	"google.golang.org/grpc/status"
	"google.golang.org/protobuf/types/known/emptypb"

	"github.com/dmitrijs2005/filetrade/internal/ledger"
	"github.com/dmitrijs2005/filetrade/internal/marketpb"
)

func caller(ctx context.Context) (ledger.Address, error) {
	a, ok := AccountFromContext(ctx)
	if !ok {
		return "", status.Error(codes.Unauthenticated, "missing token")
	}
	return a, nil
}

func (s *GRPCServer) Ping(ctx context.Context, _ *emptypb.Empty) (*marketpb.PingResponse, error) {
	return &marketpb.PingResponse{Status: "OK"}, nil
}

func (s *GRPCServer) Register(ctx context.Context, req *marketpb.RegisterRequest) (*marketpb.RegisterResponse, error) {
	s.logger.Info(ctx, "Registration request", "username", req.Username)

	a, err := s.accounts.Register(ctx, req.Username, req.Password)
	if err != nil {
		s.logger.Warn(ctx, "Registration failed", "username", req.Username, "error", err)
		return nil, toStatus(err)
	}

	s.logger.Info(ctx, "Registered", "username", a.Name, "id", a.ID)
	return &marketpb.RegisterResponse{AccountID: a.ID, Username: a.Name}, nil
}

func (s *GRPCServer) Login(ctx context.Context, req *marketpb.LoginRequest) (*marketpb.LoginResponse, error) {
	tokens, err := s.accounts.Login(ctx, req.Username, req.Password)
	if err != nil {
		return nil, toStatus(err)
	}
	return &marketpb.LoginResponse{AccessToken: tokens.AccessToken, RefreshToken: tokens.RefreshToken}, nil
}

func (s *GRPCServer) RefreshToken(ctx context.Context, req *marketpb.RefreshTokenRequest) (*marketpb.RefreshTokenResponse, error) {
	tokens, err := s.accounts.RefreshToken(ctx, req.RefreshToken)
	if err != nil {
		return nil, toStatus(err)
	}
	return &marketpb.RefreshTokenResponse{AccessToken: tokens.AccessToken, RefreshToken: tokens.RefreshToken}, nil
}

func (s *GRPCServer) Info(ctx context.Context, _ *marketpb.InfoRequest) (*marketpb.InfoResponse, error) {
	snap := s.market.Info()
	return &marketpb.InfoResponse{
		Owner:           string(snap.Owner),
		Fee:             uint64(snap.Fee),
		Custody:         uint64(snap.Custody),
		Fees:            uint64(snap.Fees),
		Funded:          uint64(snap.Funded),
		Seq:             snap.Seq,
		Offerings:       uint64(snap.Offerings),
		ActiveOfferings: uint64(snap.Active),
	}, nil
}

func (s *GRPCServer) Balance(ctx context.Context, req *marketpb.BalanceRequest) (*marketpb.BalanceResponse, error) {
	account := ledger.Address(req.Account)
	if account == "" {
		c, err := caller(ctx)
		if err != nil {
			return nil, err
		}
		account = c
	}
	return &marketpb.BalanceResponse{Account: string(account), Balance: uint64(s.market.Balance(account))}, nil
}

func (s *GRPCServer) Fund(ctx context.Context, req *marketpb.FundRequest) (*marketpb.FundResponse, error) {
	c, err := caller(ctx)
	if err != nil {
		return nil, err
	}
	account := ledger.Address(req.Account)
	if account == "" {
		account = c
	}

	bal, err := s.market.Fund(ctx, c, account, ledger.Amount(req.Amount))
	if err != nil {
		return nil, toStatus(err)
	}
	return &marketpb.FundResponse{Account: string(account), Balance: uint64(bal)}, nil
}

func (s *GRPCServer) CreateOffering(ctx context.Context, req *marketpb.CreateOfferingRequest) (*marketpb.CreateOfferingResponse, error) {
	c, err := caller(ctx)
	if err != nil {
		return nil, err
	}
	if req.Version > math.MaxUint8 {
		return nil, status.Errorf(codes.InvalidArgument, "unknown listing version %d", req.Version)
	}

	spec := ledger.OfferingSpec{
		FileName:           []byte(req.FileName),
		Version:            ledger.ListingVersion(req.Version),
		Price:              ledger.Amount(req.Price),
		DepositRequirement: ledger.Amount(req.DepositRequirement),
	}
	if req.FileHash != "" {
		spec.FileHash, err = ledger.ParseHash(req.FileHash)
		if err != nil {
			return nil, status.Errorf(codes.InvalidArgument, "file hash: %v", err)
		}
	}

	id, err := s.market.CreateOffering(ctx, c, spec, ledger.Amount(req.Paid))
	if err != nil {
		return nil, toStatus(err)
	}
	return &marketpb.CreateOfferingResponse{OfferingID: id}, nil
}

func (s *GRPCServer) RemoveOffering(ctx context.Context, req *marketpb.RemoveOfferingRequest) (*marketpb.RemoveOfferingResponse, error) {
	c, err := caller(ctx)
	if err != nil {
		return nil, err
	}
	if err := s.market.RemoveOffering(ctx, c, req.OfferingID); err != nil {
		return nil, toStatus(err)
	}
	return &marketpb.RemoveOfferingResponse{}, nil
}

func (s *GRPCServer) RequestFile(ctx context.Context, req *marketpb.RequestFileRequest) (*marketpb.RequestFileResponse, error) {
	c, err := caller(ctx)
	if err != nil {
		return nil, err
	}
	id, err := s.market.RequestFile(ctx, c, req.OfferingID, []byte(req.PublicKey), ledger.Amount(req.Paid))
	if err != nil {
		return nil, toStatus(err)
	}
	return &marketpb.RequestFileResponse{RequestID: id}, nil
}

func (s *GRPCServer) GetOffering(ctx context.Context, req *marketpb.GetOfferingRequest) (*marketpb.Offering, error) {
	o, err := s.market.Offering(req.OfferingID)
	if err != nil {
		return nil, toStatus(err)
	}
	return offeringToPB(o), nil
}

func (s *GRPCServer) GetActiveOfferingIds(ctx context.Context, _ *marketpb.GetActiveOfferingIdsRequest) (*marketpb.IdList, error) {
	return &marketpb.IdList{Ids: s.market.ActiveOfferingIDs()}, nil
}

func (s *GRPCServer) GetRequestIds(ctx context.Context, req *marketpb.GetRequestIdsRequest) (*marketpb.IdList, error) {
	ids, err := s.market.RequestIDs(req.OfferingID)
	if err != nil {
		return nil, toStatus(err)
	}
	return &marketpb.IdList{Ids: ids}, nil
}

func (s *GRPCServer) GetRequest(ctx context.Context, req *marketpb.GetRequestRequest) (*marketpb.FileRequest, error) {
	r, err := s.market.Request(req.OfferingID, req.RequestID)
	if err != nil {
		return nil, toStatus(err)
	}
	return requestToPB(r), nil
}

func (s *GRPCServer) ListEvents(ctx context.Context, req *marketpb.ListEventsRequest) (*marketpb.ListEventsResponse, error) {
	events, err := s.market.Events(ctx, req.Since, int(req.Limit))
	if err != nil {
		return nil, toStatus(err)
	}

	out := make([]*marketpb.Event, 0, len(events))
	for _, e := range events {
		pe, err := eventToPB(e)
		if err != nil {
			s.logger.Error(ctx, "event conversion failed", "error", err)
			return nil, status.Error(codes.Internal, "internal error")
		}
		out = append(out, pe)
	}
	return &marketpb.ListEventsResponse{Events: out}, nil
}

func (s *GRPCServer) SubscribeEvents(req *marketpb.SubscribeEventsRequest, stream grpc.ServerStreamingServer[marketpb.Event]) error {
	ctx := stream.Context()
	s.logger.Info(ctx, "event subscription", "since", req.Since)

	err := s.market.Watch(ctx, req.Since, func(e ledger.Event) error {
		pe, err := eventToPB(e)
		if err != nil {
			return err
		}
		return stream.Send(pe)
	})
	return toStatus(err)
}
