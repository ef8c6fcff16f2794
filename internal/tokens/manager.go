package tokens

import (
	"context"
	"sync"
	"time"

	"go.uber.org/zap"
	"golang.org/x/time/rate"
)

const (
	// maxSleep caps the end-of-iteration sleep (spec.md §4.4 step 6).
	maxSleep = 5 * time.Second
	// nextUpdateCapSeconds upper-bounds next_update_at so a stuck fleet still
	// wakes periodically (spec.md §4.4 step 2).
	nextUpdateCapSeconds = 10800
	// credentialsFailureSleep is the minimum spacing between iteration
	// restarts after credentials-provider failures (spec.md §4.4 step 1); the
	// first restart after a quiet period is immediate.
	credentialsFailureSleep = 1 * time.Second
)

// Config is the manager's construction-time configuration: the refresh and
// warning thresholds, and the fixed set of tokens to keep fresh. 0 <=
// RefreshFactor <= WarningFactor <= 1 is the expected range; values outside it
// are accepted here and not clamped: ScaleTime applies them as given (spec.md §4.4).
type Config struct {
	RefreshFactor float32
	WarningFactor float32
	ManagedTokens []ManagedToken
}

// Manager is the thread-safe façade (C5) over the background refresh loop
// (C4): a shared, lock-protected token map plus a cooperative stop flag. The
// zero value is not usable; construct with NewManager.
type Manager struct {
	shared *SharedTokenMap
	logger *zap.Logger

	stopMu  sync.RWMutex
	stopped bool

	wg sync.WaitGroup
}

// NewManager constructs the shared map, spawns the single dedicated loop
// goroutine, and returns immediately. Call Stop to request shutdown and Wait
// to block until the loop goroutine has exited.
func NewManager(cfg Config, creds CredentialsProvider, provider AccessTokenProvider, logger *zap.Logger) *Manager {
	names := make([]string, len(cfg.ManagedTokens))
	for i, mt := range cfg.ManagedTokens {
		names[i] = mt.Name
	}

	m := &Manager{
		shared: newSharedTokenMap(names),
		logger: logger,
	}

	m.wg.Add(1)
	go m.loop(cfg, creds, provider)
	return m
}

// GetToken looks up the current token for name. A name never configured on
// this manager, or one configured but never yet refreshed, both report
// ErrNoToken (spec.md §4.5: "Missing name ⇒ NoToken"); any other error is the
// most recent refresh failure for an already-expired token (spec.md §7).
func (m *Manager) GetToken(name string) (Token, error) {
	return m.shared.Get(name)
}

// Stop requests the loop goroutine to exit at the end of its current
// iteration. Idempotent.
func (m *Manager) Stop() {
	m.stopMu.Lock()
	m.stopped = true
	m.stopMu.Unlock()
}

func (m *Manager) stopRequested() bool {
	m.stopMu.RLock()
	defer m.stopMu.RUnlock()
	return m.stopped
}

// Wait blocks until the loop goroutine has exited, i.e. until some time after
// Stop is called.
func (m *Manager) Wait() {
	m.wg.Wait()
}

func (m *Manager) loop(cfg Config, creds CredentialsProvider, provider AccessTokenProvider) {
	defer m.wg.Done()

	start := time.Now().UTC()
	slots := make([]*tokenData, len(cfg.ManagedTokens))
	for i, mt := range cfg.ManagedTokens {
		slots[i] = newTokenData(mt, start)
	}

	// Paces the credentials-failure retry path so a persistently broken
	// credentials source cannot spin the loop faster than once per
	// credentialsFailureSleep (burst of one).
	credsLimiter := rate.NewLimiter(rate.Every(credentialsFailureSleep), 1)
	ctx := context.Background()

	for {
		pair, err := GetCredentialsPair(ctx, creds)
		if err != nil {
			credentialsFailures.Inc()
			m.logger.Error("credentials provider failed; retrying iteration", zap.Error(err))
			if m.stopRequested() {
				m.logger.Info("Manager loop stopped")
				return
			}
			_ = credsLimiter.Wait(ctx)
			continue
		}

		now := time.Now().UTC()
		nextUpdateAt := now.Add(nextUpdateCapSeconds * time.Second)
		pending := make(map[string]tokenEntry)

		for _, td := range slots {
			if !td.updateLatest.After(now) {
				m.refreshOne(ctx, provider, td, pair, now, cfg, pending)
			}

			if td.warnAfter.Before(now) {
				agingWarnings.WithLabelValues(td.name).Inc()
				m.logger.Warn("managed token is aging past its warning deadline",
					zap.String("name", td.name), zap.Time("warn_after", td.warnAfter))
			}

			if td.updateLatest.Before(nextUpdateAt) {
				nextUpdateAt = td.updateLatest
			}
		}

		m.shared.ApplyBatch(pending)

		if m.stopRequested() {
			m.logger.Info("Manager loop stopped")
			return
		}

		time.Sleep(CalcSleep(time.Now().UTC(), nextUpdateAt, maxSleep))
	}
}

func (m *Manager) refreshOne(ctx context.Context, provider AccessTokenProvider, td *tokenData, pair CredentialsPair, now time.Time, cfg Config, pending map[string]tokenEntry) {
	start := time.Now()
	at, err := provider.GetAccessToken(ctx, td.scopes, pair)
	refreshDuration.WithLabelValues(td.name).Observe(time.Since(start).Seconds())

	if err == nil {
		td.validUntil = at.ValidUntilUTC
		td.updateLatest = ScaleTime(now, td.validUntil, cfg.RefreshFactor)
		td.warnAfter = ScaleTime(now, td.validUntil, cfg.WarningFactor)
		tok := at.Token
		td.token = &tok
		pending[td.name] = tokenEntry{token: tok}
		refreshTotal.WithLabelValues(td.name, "success").Inc()
		return
	}

	if td.validUntil.After(now) {
		// Previous token is still valid: warn only, leave the published value
		// untouched (spec.md §4.4 step 3).
		refreshTotal.WithLabelValues(td.name, "failure_stale_ok").Inc()
		m.logger.Warn("token refresh failed, previous token still valid",
			zap.String("name", td.name), zap.Time("valid_until", td.validUntil), zap.Error(err))
		return
	}

	refreshTotal.WithLabelValues(td.name, "failure_expired").Inc()
	m.logger.Error("token refresh failed and previous token has expired",
		zap.String("name", td.name), zap.Error(err))
	pending[td.name] = tokenEntry{err: &TokenLookupError{Name: td.name, Err: err}}
}
