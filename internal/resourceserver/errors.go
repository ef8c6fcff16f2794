package resourceserver

import (
	"errors"
	"fmt"
)

// ErrNotAuthenticated is returned whenever the presented token is rejected,
// whether because the token-info endpoint answered 400 (or any other non-200
// status) or because the request URL could not be built (spec.md §4.6 step 1).
var ErrNotAuthenticated = errors.New("not authenticated")

// ErrTokenInfoUnparsable means the token-info endpoint replied 200 but its
// body was not the expected JSON shape.
var ErrTokenInfoUnparsable = errors.New("token-info response unparsable")

// ConnectionError wraps the transport failure of the last attempt against a
// token-info endpoint (the fallback's, when one is configured and was tried).
type ConnectionError struct {
	Message string
}

func (e *ConnectionError) Error() string { return "connection: " + e.Message }

// UnknownError covers retry exhaustion with no more specific classification.
type UnknownError struct {
	Message string
}

func (e *UnknownError) Error() string { return "unknown: " + e.Message }

// InitializationError reports a misconfigured Authenticator: an empty
// token-info URL or query parameter name fails construction (spec.md §4.6).
type InitializationError struct {
	Msg string
}

func (e *InitializationError) Error() string { return fmt.Sprintf("initialization error: %s", e.Msg) }
