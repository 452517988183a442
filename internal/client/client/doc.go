// Package client talks to the filetrade ledger daemon over gRPC.
//
// GRPCClient attaches the access token to every call, refreshes an expired
// token once and retries, and maps gRPC status codes to the sentinel errors
// in errors.go so callers can match them with errors.Is.
package client
