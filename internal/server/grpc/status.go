package grpc

import (
	"context"
	"errors"

	"google.golang.org/grpc/codes"
	"google.golang.org/grpc/status"

	"github.com/dmitrijs2005/filetrade/internal/common"
)

var statusCodes = []struct {
	err  error
	code codes.Code
}{
	{common.ErrorNotFound, codes.NotFound},
	{common.ErrorAlreadyExists, codes.AlreadyExists},
	{common.ErrorUnauthorized, codes.PermissionDenied},
	{common.ErrAlreadyRemoved, codes.FailedPrecondition},
	{common.ErrOfferingInactive, codes.FailedPrecondition},
	{common.ErrInsufficientFee, codes.InvalidArgument},
	{common.ErrInsufficientDeposit, codes.InvalidArgument},
	{common.ErrInsufficientFunds, codes.InvalidArgument},
	{common.ErrInvalidOffering, codes.InvalidArgument},
	{common.ErrInvalidRequest, codes.InvalidArgument},
	{common.ErrAmountOverflow, codes.InvalidArgument},
	{common.ErrInvalidToken, codes.Unauthenticated},
	{common.ErrTokenExpired, codes.Unauthenticated},
	{common.ErrRefreshTokenExpired, codes.Unauthenticated},
	{common.ErrInvalidCredentials, codes.Unauthenticated},
	{common.ErrSubscriberLagging, codes.ResourceExhausted},
	{context.Canceled, codes.Canceled},
	{context.DeadlineExceeded, codes.DeadlineExceeded},
}

// toStatus converts a service error into a gRPC status error. Errors
// without a mapping become Internal and their text is not sent.
func toStatus(err error) error {
	if err == nil {
		return nil
	}
	if _, ok := status.FromError(err); ok {
		return err
	}
	for _, m := range statusCodes {
		if errors.Is(err, m.err) {
			return status.Error(m.code, err.Error())
		}
	}
	return status.Error(codes.Internal, "internal error")
}
