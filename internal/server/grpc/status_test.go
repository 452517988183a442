package grpc

import (
	"context"
	"errors"
	"fmt"
	"testing"

	"github.com/stretchr/testify/assert"
	"google.golang.org/grpc/codes"
	"google.golang.org/grpc/status"

	"github.com/dmitrijs2005/filetrade/internal/common"
)

func TestToStatus(t *testing.T) {
	tests := []struct {
		err  error
		code codes.Code
	}{
		{fmt.Errorf("offering 3: %w", common.ErrorNotFound), codes.NotFound},
		{common.ErrorUnauthorized, codes.PermissionDenied},
		{common.ErrAlreadyRemoved, codes.FailedPrecondition},
		{common.ErrOfferingInactive, codes.FailedPrecondition},
		{common.ErrInsufficientFee, codes.InvalidArgument},
		{common.ErrInsufficientDeposit, codes.InvalidArgument},
		{common.ErrInsufficientFunds, codes.InvalidArgument},
		{common.ErrInvalidOffering, codes.InvalidArgument},
		{common.ErrAmountOverflow, codes.InvalidArgument},
		{common.ErrorAlreadyExists, codes.AlreadyExists},
		{common.ErrInvalidCredentials, codes.Unauthenticated},
		{common.ErrRefreshTokenExpired, codes.Unauthenticated},
		{common.ErrSubscriberLagging, codes.ResourceExhausted},
		{context.Canceled, codes.Canceled},
		{status.Error(codes.Aborted, "kept"), codes.Aborted},
	}
	for _, tt := range tests {
		assert.Equal(t, tt.code, status.Code(toStatus(tt.err)), tt.err.Error())
	}
}

func TestToStatus_HidesInternalErrors(t *testing.T) {
	err := toStatus(errors.New("pq: connection refused at 10.0.0.3"))
	assert.Equal(t, codes.Internal, status.Code(err))
	assert.Equal(t, "internal error", status.Convert(err).Message())

	assert.NoError(t, toStatus(nil))
}
