package resourceserver

import (
	"context"
	"encoding/json"
	"io"
	"net/http"
	"net/url"
	"time"

	"github.com/google/uuid"
	"go.opentelemetry.io/otel"
	oteltrace "go.opentelemetry.io/otel/trace"
	"go.uber.org/zap"

	"github.com/kocoro-labs/rusty-tokens-go/internal/tokens"
)

// Authenticator validates a bearer token against a remote token-info
// endpoint, with an optional fallback endpoint and a bounded retry budget per
// endpoint (spec.md §4.6).
type Authenticator struct {
	tokenInfoURL string
	fallbackURL  string // empty means "not configured"
	queryParam   string
	client       *http.Client
	logger       *zap.Logger
	tracer       oteltrace.Tracer
	cache        Cache
	cacheTTL     time.Duration
}

// NewAuthenticator validates the required configuration and constructs an
// Authenticator. tokenInfoURL and queryParam must be non-empty.
func NewAuthenticator(tokenInfoURL, fallbackURL, queryParam string, client *http.Client, logger *zap.Logger) (*Authenticator, error) {
	if tokenInfoURL == "" {
		return nil, &InitializationError{Msg: "token_info_url must not be empty"}
	}
	if queryParam == "" {
		return nil, &InitializationError{Msg: "query_parameter must not be empty"}
	}
	if client == nil {
		client = &http.Client{Timeout: 5 * time.Second}
	}
	return &Authenticator{
		tokenInfoURL: tokenInfoURL,
		fallbackURL:  fallbackURL,
		queryParam:   queryParam,
		client:       client,
		logger:       logger,
		tracer:       otel.Tracer("rusty-tokens/authenticator"),
		cacheTTL:     30 * time.Second,
	}, nil
}

// WithCache attaches an optional token-info decision cache.
func (a *Authenticator) WithCache(c Cache) *Authenticator {
	a.cache = c
	return a
}

type tokenInfoResponse struct {
	UID   *string  `json:"uid"`
	Scope []string `json:"scope"`
}

// Authenticate implements C6: attempt the primary URL up to 2 times, then (if
// every primary attempt errored and a fallback is configured) the fallback up
// to 2 times.
func (a *Authenticator) Authenticate(ctx context.Context, token tokens.Token) (*AuthenticatedUser, error) {
	requestID := uuid.NewString()
	ctx, span := a.tracer.Start(ctx, "resourceserver.authenticate")
	defer span.End()

	if a.cache != nil {
		if user, ok := a.cache.Get(ctx, token); ok {
			cacheHits.WithLabelValues("hit").Inc()
			return user, nil
		}
		cacheHits.WithLabelValues("miss").Inc()
	}

	user, err := a.tryEndpoint(ctx, a.tokenInfoURL, token, 2, requestID)
	if err == nil {
		if a.cache != nil {
			a.cache.Set(ctx, token, user, a.cacheTTL)
		}
		authenticateTotal.WithLabelValues("ok").Inc()
		return user, nil
	}

	if a.fallbackURL == "" {
		authenticateTotal.WithLabelValues("rejected").Inc()
		return nil, err
	}

	a.logger.Warn("primary token-info endpoint failed, trying fallback",
		zap.String("request_id", requestID), zap.Error(err))

	user, fallbackErr := a.tryEndpoint(ctx, a.fallbackURL, token, 2, requestID)
	if fallbackErr != nil {
		authenticateTotal.WithLabelValues("error").Inc()
		return nil, fallbackErr
	}
	if a.cache != nil {
		a.cache.Set(ctx, token, user, a.cacheTTL)
	}
	authenticateTotal.WithLabelValues("fallback_ok").Inc()
	return user, nil
}

func (a *Authenticator) tryEndpoint(ctx context.Context, base string, token tokens.Token, attempts int, requestID string) (*AuthenticatedUser, error) {
	reqURL := base + "?" + a.queryParam + "=" + url.QueryEscape(string(token))

	var lastErr error
	for attempt := 1; attempt <= attempts; attempt++ {
		req, err := http.NewRequestWithContext(ctx, http.MethodGet, reqURL, nil)
		if err != nil {
			// A malformed URL/URI is not a transport error; it surfaces
			// immediately as not-authenticated (spec.md §4.6 step 1).
			return nil, ErrNotAuthenticated
		}

		resp, err := a.client.Do(req)
		if err != nil {
			lastErr = &ConnectionError{Message: err.Error()}
			a.logger.Debug("token-info request failed",
				zap.String("request_id", requestID), zap.Int("attempt", attempt), zap.Error(err))
			continue
		}

		user, classified := a.handleResponse(resp, requestID)
		return user, classified
	}

	if lastErr != nil {
		return nil, lastErr
	}
	return nil, &UnknownError{Message: "No response after multiple retries"}
}

func (a *Authenticator) handleResponse(resp *http.Response, requestID string) (*AuthenticatedUser, error) {
	defer resp.Body.Close()

	switch resp.StatusCode {
	case http.StatusOK:
		raw, err := io.ReadAll(resp.Body)
		if err != nil {
			return nil, ErrTokenInfoUnparsable
		}
		var parsed tokenInfoResponse
		if err := json.Unmarshal(raw, &parsed); err != nil {
			return nil, ErrTokenInfoUnparsable
		}
		return &AuthenticatedUser{
			UID:    parsed.UID,
			Scopes: tokens.NewScopeSet(parsed.Scope...),
		}, nil

	case http.StatusBadRequest:
		return nil, ErrNotAuthenticated

	default:
		a.logger.Info("token-info endpoint returned non-success status",
			zap.String("request_id", requestID), zap.Int("status", resp.StatusCode))
		return nil, ErrNotAuthenticated
	}
}
