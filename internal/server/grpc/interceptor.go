package grpc

import (
	"context"
	"errors"
	"time"

	"github.com/google/uuid"
	"google.golang.org/grpc"
	"google.golang.org/grpc/codes"
	"google.golang.org/grpc/metadata"
	"google.golang.org/grpc/status"

	"github.com/dmitrijs2005/filetrade/internal/common"
	"github.com/dmitrijs2005/filetrade/internal/ledger"
	"github.com/dmitrijs2005/filetrade/internal/marketpb"
	"github.com/dmitrijs2005/filetrade/internal/server/auth"
)

type ctxKey string

const (
	accountKey   ctxKey = "account"
	requestIDKey ctxKey = "requestID"
)

// publicMethods can be called without an access token.
var publicMethods = map[string]bool{
	marketpb.Market_Ping_FullMethodName:         true,
	marketpb.Market_Register_FullMethodName:     true,
	marketpb.Market_Login_FullMethodName:        true,
	marketpb.Market_RefreshToken_FullMethodName: true,
}

// AccountFromContext returns the authenticated caller.
func AccountFromContext(ctx context.Context) (ledger.Address, bool) {
	a, ok := ctx.Value(accountKey).(ledger.Address)
	return a, ok && a != ""
}

// RequestIDFromContext returns the correlation id of the current call.
func RequestIDFromContext(ctx context.Context) string {
	id, _ := ctx.Value(requestIDKey).(string)
	return id
}

func firstMetadata(ctx context.Context, key string) string {
	if md, ok := metadata.FromIncomingContext(ctx); ok {
		if values := md.Get(key); len(values) > 0 {
			return values[0]
		}
	}
	return ""
}

func (s *GRPCServer) authenticate(ctx context.Context) (context.Context, error) {
	accessToken := firstMetadata(ctx, common.AccessTokenHeaderName)
	if len(accessToken) == 0 {
		return nil, status.Error(codes.Unauthenticated, "missing token")
	}

	claims, err := auth.ParseToken(accessToken, s.jwtSecret)
	if err != nil {
		if errors.Is(err, common.ErrTokenExpired) {
			return nil, status.Error(codes.Unauthenticated, "token expired")
		}
		return nil, status.Error(codes.Unauthenticated, "invalid token")
	}

	return context.WithValue(ctx, accountKey, ledger.Address(claims.Account)), nil
}

func (s *GRPCServer) accessTokenInterceptor(ctx context.Context, req any, info *grpc.UnaryServerInfo, handler grpc.UnaryHandler) (any, error) {
	if publicMethods[info.FullMethod] {
		return handler(ctx, req)
	}

	ctx, err := s.authenticate(ctx)
	if err != nil {
		return nil, err
	}
	return handler(ctx, req)
}

func (s *GRPCServer) withRequestID(ctx context.Context) (context.Context, string) {
	id := firstMetadata(ctx, common.RequestIDHeaderName)
	if id == "" {
		id = uuid.NewString()
	}
	_ = grpc.SetHeader(ctx, metadata.Pairs(common.RequestIDHeaderName, id))
	return context.WithValue(ctx, requestIDKey, id), id
}

func (s *GRPCServer) logCall(ctx context.Context, method, id string, start time.Time, err error) {
	code := status.Code(err)
	args := []any{"method", method, "request_id", id, "code", code.String(), "duration", time.Since(start)}
	if code == codes.Internal || code == codes.Unknown {
		s.logger.Error(ctx, "rpc failed", append(args, "error", err)...)
		return
	}
	s.logger.Info(ctx, "rpc", args...)
}

func (s *GRPCServer) requestIDInterceptor(ctx context.Context, req any, info *grpc.UnaryServerInfo, handler grpc.UnaryHandler) (any, error) {
	start := time.Now()
	ctx, id := s.withRequestID(ctx)
	resp, err := handler(ctx, req)
	s.logCall(ctx, info.FullMethod, id, start, err)
	return resp, err
}

// serverStream overrides the context of a wrapped stream.
type serverStream struct {
	grpc.ServerStream
	ctx context.Context
}

func (w *serverStream) Context() context.Context {
	return w.ctx
}

func (s *GRPCServer) streamRequestIDInterceptor(srv any, ss grpc.ServerStream, info *grpc.StreamServerInfo, handler grpc.StreamHandler) error {
	start := time.Now()
	ctx, id := s.withRequestID(ss.Context())
	err := handler(srv, &serverStream{ServerStream: ss, ctx: ctx})
	s.logCall(ctx, info.FullMethod, id, start, err)
	return err
}

func (s *GRPCServer) streamAccessTokenInterceptor(srv any, ss grpc.ServerStream, info *grpc.StreamServerInfo, handler grpc.StreamHandler) error {
	if publicMethods[info.FullMethod] {
		return handler(srv, ss)
	}

	ctx, err := s.authenticate(ss.Context())
	if err != nil {
		return err
	}
	return handler(srv, &serverStream{ServerStream: ss, ctx: ctx})
}
