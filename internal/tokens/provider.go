package tokens

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"
	"time"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	oteltrace "go.opentelemetry.io/otel/trace"
	"go.uber.org/zap"
)

// AccessTokenProvider performs one OAuth2 Resource Owner Password Credentials
// round-trip against the token-provider endpoint.
type AccessTokenProvider interface {
	GetAccessToken(ctx context.Context, scopes ScopeSet, pair CredentialsPair) (AccessToken, error)
}

// HTTPAccessTokenProvider is the production AccessTokenProvider: it POSTs to
// a configured URL with a realm query parameter, retries transport failures a
// bounded number of times with a fixed short back-off, and never retries a
// 401 (spec.md §4.3).
type HTTPAccessTokenProvider struct {
	BaseURL string
	Realm   string
	Client  *http.Client
	Logger  *zap.Logger

	// MaxAttempts and RetryBackoff default to 3 and 30ms, matching spec.md §4.3.
	MaxAttempts  int
	RetryBackoff time.Duration

	tracer oteltrace.Tracer
}

// NewHTTPAccessTokenProvider builds a provider with the spec-mandated retry
// defaults; callers may override Client for custom timeouts.
func NewHTTPAccessTokenProvider(baseURL, realm string, client *http.Client, logger *zap.Logger) *HTTPAccessTokenProvider {
	if client == nil {
		client = &http.Client{Timeout: 10 * time.Second}
	}
	return &HTTPAccessTokenProvider{
		BaseURL:      baseURL,
		Realm:        realm,
		Client:       client,
		Logger:       logger,
		MaxAttempts:  3,
		RetryBackoff: 30 * time.Millisecond,
		tracer:       otel.Tracer("rusty-tokens/access-token-provider"),
	}
}

type tokenProviderResponse struct {
	AccessToken string `json:"access_token"`
	ExpiresIn   int64  `json:"expires_in"`
}

// GetAccessToken implements AccessTokenProvider.
func (p *HTTPAccessTokenProvider) GetAccessToken(ctx context.Context, scopes ScopeSet, pair CredentialsPair) (AccessToken, error) {
	ctx, span := p.tracer.Start(ctx, "access_token.request")
	defer span.End()

	reqURL := p.BaseURL + "?realm=" + url.QueryEscape(p.Realm)
	form := url.Values{}
	form.Set("grant_type", "password")
	form.Set("username", pair.User.ID)
	form.Set("password", pair.User.Secret)
	form.Set("scope", scopes.SpaceJoined())
	body := form.Encode()

	maxAttempts := p.MaxAttempts
	if maxAttempts <= 0 {
		maxAttempts = 3
	}
	backoff := p.RetryBackoff
	if backoff <= 0 {
		backoff = 30 * time.Millisecond
	}

	var lastErr error
	for attempt := 1; attempt <= maxAttempts; attempt++ {
		req, err := http.NewRequestWithContext(ctx, http.MethodPost, reqURL, strings.NewReader(body))
		if err != nil {
			span.RecordError(err)
			return AccessToken{}, &RequestAccessTokenError{Kind: KindInternalError, Err: err}
		}
		req.SetBasicAuth(pair.Client.ID, pair.Client.Secret)
		req.Header.Set("Content-Type", "application/x-www-form-urlencoded")

		resp, err := p.Client.Do(req)
		if err != nil {
			lastErr = &RequestAccessTokenError{Kind: KindConnectionError, Err: err}
			p.Logger.Warn("access token request transport error",
				zap.Int("attempt", attempt), zap.Int("max_attempts", maxAttempts), zap.Error(err))
			if attempt < maxAttempts {
				time.Sleep(backoff)
				continue
			}
			span.RecordError(err)
			span.SetStatus(codes.Error, "transport error")
			return AccessToken{}, lastErr
		}

		at, classErr := p.handleResponse(resp)
		if classErr != nil {
			if rae, ok := classErr.(*RequestAccessTokenError); ok && rae.Kind == KindInvalidCredentials {
				// 401 surfaces immediately, never retried (spec.md §4.3).
				span.SetStatus(codes.Error, "invalid credentials")
				return AccessToken{}, classErr
			}
			span.RecordError(classErr)
			return AccessToken{}, classErr
		}
		span.SetAttributes(attribute.Int("rusty_tokens.scope_count", len(scopes)))
		return at, nil
	}

	return AccessToken{}, lastErr
}

func (p *HTTPAccessTokenProvider) handleResponse(resp *http.Response) (AccessToken, error) {
	defer resp.Body.Close()
	raw, err := io.ReadAll(resp.Body)
	if err != nil {
		return AccessToken{}, &RequestAccessTokenError{Kind: KindIOError, Err: err}
	}

	switch resp.StatusCode {
	case http.StatusOK:
		var parsed tokenProviderResponse
		if err := json.Unmarshal(raw, &parsed); err != nil {
			return AccessToken{}, &RequestAccessTokenError{Kind: KindParsingError, Err: fmt.Errorf("decode token response: %w", err)}
		}

		jwtTok, err := DecodeJWT(parsed.AccessToken)
		if err != nil {
			return AccessToken{}, err
		}
		planb, err := ProjectPlanB(jwtTok)
		if err != nil {
			return AccessToken{}, err
		}

		// JWT claims are authoritative over expires_in (spec.md §9 open question).
		return AccessToken{
			Token:         Token(parsed.AccessToken),
			IssuedAtUTC:   planb.IssueDateUTC,
			ValidUntilUTC: planb.ExpirationUTC,
		}, nil

	case http.StatusUnauthorized:
		return AccessToken{}, &RequestAccessTokenError{Kind: KindInvalidCredentials, Status: resp.StatusCode, Body: string(raw)}

	default:
		return AccessToken{}, &RequestAccessTokenError{Kind: KindRequestError, Status: resp.StatusCode, Body: string(raw)}
	}
}
