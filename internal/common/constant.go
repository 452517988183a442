package common

// AccessTokenHeaderName is the gRPC metadata key used to carry the
// access token on outbound requests.
const AccessTokenHeaderName = "access_token"

// RequestIDHeaderName carries a per-call correlation id; the server
// generates one when the client did not send it.
const RequestIDHeaderName = "x-request-id"
