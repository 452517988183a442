// Package grpc exposes the marketplace ledger and account services over
// gRPC using the JSON codec from marketpb.
package grpc

import (
	"context"
	"net"

	"google.golang.org/grpc"

	"github.com/dmitrijs2005/filetrade/internal/ledger"
	"github.com/dmitrijs2005/filetrade/internal/logging"
	"github.com/dmitrijs2005/filetrade/internal/marketpb"
	"github.com/dmitrijs2005/filetrade/internal/server/models"
	"github.com/dmitrijs2005/filetrade/internal/server/services"
)

// AccountService is what the transport needs from account management.
type AccountService interface {
	Register(ctx context.Context, name, password string) (*models.Account, error)
	Login(ctx context.Context, name, password string) (*services.TokenPair, error)
	RefreshToken(ctx context.Context, refreshToken string) (*services.TokenPair, error)
}

// MarketService is what the transport needs from the ledger front.
type MarketService interface {
	Info() ledger.Snapshot
	Balance(account ledger.Address) ledger.Amount
	Fund(ctx context.Context, caller, account ledger.Address, amount ledger.Amount) (ledger.Amount, error)
	CreateOffering(ctx context.Context, caller ledger.Address, spec ledger.OfferingSpec, paid ledger.Amount) (uint64, error)
	RemoveOffering(ctx context.Context, caller ledger.Address, id uint64) error
	RequestFile(ctx context.Context, caller ledger.Address, offeringID uint64, publicKey []byte, paid ledger.Amount) (uint64, error)
	Offering(id uint64) (ledger.Offering, error)
	ActiveOfferingIDs() []uint64
	RequestIDs(offeringID uint64) ([]uint64, error)
	Request(offeringID, requestID uint64) (ledger.Request, error)
	Events(ctx context.Context, since uint64, limit int) ([]ledger.Event, error)
	Watch(ctx context.Context, since uint64, send func(ledger.Event) error) error
}

type GRPCServer struct {
	marketpb.UnimplementedMarketServer
	address   string
	accounts  AccountService
	market    MarketService
	logger    logging.Logger
	jwtSecret []byte
}

func NewGRPCServer(address string, l logging.Logger, as AccountService, ms MarketService, secretKey string) *GRPCServer {
	return &GRPCServer{
		address:   address,
		logger:    l.With("module", "grpc_server"),
		accounts:  as,
		market:    ms,
		jwtSecret: []byte(secretKey),
	}
}

func (s *GRPCServer) Run(ctx context.Context) error {
	// announces address
	listen, err := net.Listen("tcp", s.address)
	if err != nil {
		return err
	}
	return s.Serve(ctx, listen)
}

// Serve accepts connections on lis until ctx is cancelled, then stops
// gracefully.
func (s *GRPCServer) Serve(ctx context.Context, lis net.Listener) error {
	srv := grpc.NewServer(
		grpc.ChainUnaryInterceptor(s.requestIDInterceptor, s.accessTokenInterceptor),
		grpc.ChainStreamInterceptor(s.streamRequestIDInterceptor, s.streamAccessTokenInterceptor),
	)
	marketpb.RegisterMarketServer(srv, s)

	stopped := make(chan struct{})
	defer close(stopped)
	go func() {
		select {
		case <-ctx.Done():
			s.logger.Info(ctx, "Stopping gRPC server...")
			srv.GracefulStop()
		case <-stopped:
		}
	}()

	s.logger.Info(ctx, "Starting gRPC server", "address", lis.Addr().String())

	if err := srv.Serve(lis); err != nil {
		return err
	}
	return nil
}
