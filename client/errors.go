package client

import "errors"

// Failure classes reported by the transport. Returned errors wrap exactly one
// of these, so callers classify them with errors.Is.
var (
	// ErrAuthentication means the server rejected every offered credential.
	ErrAuthentication = errors.New("authentication failed")
	// ErrReadTimeout means the expected prompt was not seen in time, or the
	// discovered prompt did not match the configured terminator.
	ErrReadTimeout = errors.New("timed out waiting for prompt")
	// ErrConnection covers dial failures, handshake timeouts and a channel
	// that closed underneath an open shell.
	ErrConnection = errors.New("connection failed")
)
