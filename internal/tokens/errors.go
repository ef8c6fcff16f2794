package tokens

import (
	"errors"
	"fmt"
)

// CredentialsErrorKind classifies a credentials-provider failure.
type CredentialsErrorKind string

const (
	CredentialsIOError       CredentialsErrorKind = "io_error"
	CredentialsDecodingError CredentialsErrorKind = "decoding_error"
)

// CredentialsError is returned by a CredentialsProvider when it cannot
// produce a fresh Credentials value.
type CredentialsError struct {
	Kind CredentialsErrorKind
	Msg  string
	Err  error
}

func (e *CredentialsError) Error() string {
	if e.Err != nil {
		return fmt.Sprintf("credentials %s: %s: %v", e.Kind, e.Msg, e.Err)
	}
	return fmt.Sprintf("credentials %s: %s", e.Kind, e.Msg)
}

func (e *CredentialsError) Unwrap() error { return e.Err }

// RequestAccessTokenErrorKind classifies an access-token provider failure.
type RequestAccessTokenErrorKind string

const (
	KindInternalError      RequestAccessTokenErrorKind = "internal_error"
	KindConnectionError    RequestAccessTokenErrorKind = "connection_error"
	KindIOError            RequestAccessTokenErrorKind = "io_error"
	KindRequestError       RequestAccessTokenErrorKind = "request_error"
	KindInvalidCredentials RequestAccessTokenErrorKind = "invalid_credentials"
	KindParsingError       RequestAccessTokenErrorKind = "parsing_error"
)

// RequestAccessTokenError is returned by an AccessTokenProvider.
type RequestAccessTokenError struct {
	Kind   RequestAccessTokenErrorKind
	Status int    // populated for KindRequestError
	Body   string // populated for KindRequestError
	Err    error
}

func (e *RequestAccessTokenError) Error() string {
	switch e.Kind {
	case KindRequestError:
		return fmt.Sprintf("access token request failed: status=%d body=%q", e.Status, e.Body)
	case KindInvalidCredentials:
		return "access token request failed: invalid credentials"
	default:
		if e.Err != nil {
			return fmt.Sprintf("access token request failed: %s: %v", e.Kind, e.Err)
		}
		return fmt.Sprintf("access token request failed: %s", e.Kind)
	}
}

func (e *RequestAccessTokenError) Unwrap() error { return e.Err }

// IsInvalidCredentials reports whether err is (or wraps) an InvalidCredentials
// classification, which per spec.md §4.3 is never retried at the provider layer.
func IsInvalidCredentials(err error) bool {
	var rae *RequestAccessTokenError
	return errors.As(err, &rae) && rae.Kind == KindInvalidCredentials
}

// ErrNoToken is published for a managed token's name before its first
// refresh attempt completes, and is returned for any name the manager does
// not manage.
var ErrNoToken = errors.New("no token: managed token has not been refreshed yet")

// ErrManagerInternal signals a defect in the manager's own bookkeeping that a
// healthy loop can never produce (a name missing from the shared map reports
// ErrNoToken instead); it exists so callers have a stable sentinel to check for it.
var ErrManagerInternal = errors.New("internal error: token manager state is inconsistent")

// TokenLookupError wraps the most recent refresh failure for a managed token
// whose previous successful token has since expired (spec.md §7, "Token
// lookup"). A stale-but-still-valid token is never wrapped this way: it is
// reported as the prior Ok() value until a newer refresh succeeds or fails
// past expiry.
type TokenLookupError struct {
	Name string
	Err  error
}

func (e *TokenLookupError) Error() string {
	return fmt.Sprintf("token %q: %v", e.Name, e.Err)
}

func (e *TokenLookupError) Unwrap() error { return e.Err }

// InitializationError reports a misconfiguration discovered before any
// goroutine starts: a missing environment variable, an unparseable float, an
// empty required URL, and so on.
type InitializationError struct {
	Msg string
}

func (e *InitializationError) Error() string { return "initialization error: " + e.Msg }
