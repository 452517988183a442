// Package common defines shared constants and sentinel errors used across
// the ledger daemon, the file server and the client. Callers should use
// errors.Is to match these values.
package common

import "errors"

var (
	// Repository-level errors.
	ErrorNotFound      = errors.New("not found")
	ErrorAlreadyExists = errors.New("already exists")

	// Service-level errors.
	ErrorInternal     = errors.New("internal error")
	ErrorUnauthorized = errors.New("unauthorized")

	// Auth errors (invalid or malformed token).
	ErrInvalidToken        = errors.New("invalid token")
	ErrTokenExpired        = errors.New("token expired")
	ErrRefreshTokenExpired = errors.New("refresh token expired")
	ErrInvalidCredentials  = errors.New("invalid username or password")

	// Ledger rejections.
	ErrInsufficientFee     = errors.New("insufficient fee")
	ErrInsufficientDeposit = errors.New("insufficient deposit")
	ErrInsufficientFunds   = errors.New("insufficient funds")
	ErrAlreadyRemoved      = errors.New("offering already removed")
	ErrOfferingInactive    = errors.New("offering inactive")
	ErrInvalidOffering     = errors.New("invalid offering")
	ErrInvalidRequest      = errors.New("invalid request")
	ErrAmountOverflow      = errors.New("amount overflow")

	// Journal and event stream errors.
	ErrJournalCorrupt    = errors.New("journal corrupt")
	ErrSubscriberLagging = errors.New("event subscriber fell behind")
)
