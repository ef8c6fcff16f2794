package rtconfig

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// clearClientEnv ensures no ambient RUSTY_TOKENS_* variable from the test
// runner's environment leaks into a case that expects the overlay to supply
// a value.
func clearClientEnv(t *testing.T) {
	t.Helper()
	for _, name := range []string{
		"RUSTY_TOKENS_TOKEN_PROVIDER_URL", "RUSTY_TOKENS_TOKEN_PROVIDER_URL_ENV_VAR",
		"RUSTY_TOKENS_TOKEN_PROVIDER_REALM",
		"RUSTY_TOKENS_TOKEN_MANAGER_REFRESH_FACTOR",
		"RUSTY_TOKENS_TOKEN_MANAGER_WARNING_FACTOR",
		"RUSTY_TOKENS_TOKEN_INFO_URL", "RUSTY_TOKENS_TOKEN_INFO_URL_ENV_VAR",
		"RUSTY_TOKENS_TOKEN_INFO_URL_QUERY_PARAMETER",
		"RUSTY_TOKENS_FALLBACK_TOKEN_INFO_URL",
		"CONFIG_PATH",
	} {
		t.Setenv(name, "")
	}
}

func writeOverlayFile(t *testing.T, yaml string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "rusty-tokens.yaml")
	require.NoError(t, os.WriteFile(path, []byte(yaml), 0o600))
	return path
}

func TestLoadOverlay_NoConfigPathIsNotAnError(t *testing.T) {
	clearClientEnv(t)
	overlay, err := LoadOverlay()
	require.NoError(t, err)
	assert.Equal(t, &Overlay{}, overlay)
}

func TestLoadOverlay_ReadsYAMLFile(t *testing.T) {
	clearClientEnv(t)
	path := writeOverlayFile(t, `
token_provider_url: https://token-provider.example/oauth2/access_token
realm: /services
refresh_factor: 0.5
warning_factor: 0.9
token_info_url: https://token-info.example/oauth2/tokeninfo
query_parameter: access_token
fallback_token_info_url: https://fallback.example/oauth2/tokeninfo
`)
	t.Setenv("CONFIG_PATH", path)

	overlay, err := LoadOverlay()
	require.NoError(t, err)
	assert.Equal(t, "https://token-provider.example/oauth2/access_token", overlay.TokenProviderURL)
	assert.Equal(t, "/services", overlay.Realm)
	assert.Equal(t, float32(0.5), overlay.RefreshFactor)
	assert.Equal(t, float32(0.9), overlay.WarningFactor)
	assert.Equal(t, "https://token-info.example/oauth2/tokeninfo", overlay.TokenInfoURL)
	assert.Equal(t, "access_token", overlay.QueryParameter)
	assert.Equal(t, "https://fallback.example/oauth2/tokeninfo", overlay.FallbackURL)
}

func TestLoadOverlay_UnreadableFileFails(t *testing.T) {
	clearClientEnv(t)
	t.Setenv("CONFIG_PATH", filepath.Join(t.TempDir(), "missing.yaml"))

	_, err := LoadOverlay()
	require.Error(t, err)
}

// TestLoadClientConfig_FallsBackToOverlay matches SPEC_FULL §2/§3: when the
// environment leaves RUSTY_TOKENS_* unset, LoadClientConfig is satisfied
// entirely from the viper-backed Overlay instead of failing.
func TestLoadClientConfig_FallsBackToOverlay(t *testing.T) {
	clearClientEnv(t)
	path := writeOverlayFile(t, `
token_provider_url: https://token-provider.example/oauth2/access_token
realm: /services
refresh_factor: 0.5
warning_factor: 0.9
`)
	t.Setenv("CONFIG_PATH", path)

	cfg, err := LoadClientConfig()
	require.NoError(t, err)
	assert.Equal(t, "https://token-provider.example/oauth2/access_token", cfg.TokenProviderURL)
	assert.Equal(t, "/services", cfg.Realm)
	assert.Equal(t, float32(0.5), cfg.RefreshFactor)
	assert.Equal(t, float32(0.9), cfg.WarningFactor)
}

// TestLoadClientConfig_EnvTakesPrecedenceOverOverlay matches the doc comment
// on LoadClientConfig: the overlay only fills gaps the environment leaves.
func TestLoadClientConfig_EnvTakesPrecedenceOverOverlay(t *testing.T) {
	clearClientEnv(t)
	path := writeOverlayFile(t, `
token_provider_url: https://overlay.example/oauth2/access_token
realm: /overlay-realm
refresh_factor: 0.1
warning_factor: 0.2
`)
	t.Setenv("CONFIG_PATH", path)
	t.Setenv("RUSTY_TOKENS_TOKEN_PROVIDER_URL", "https://env.example/oauth2/access_token")
	t.Setenv("RUSTY_TOKENS_TOKEN_PROVIDER_REALM", "/env-realm")
	t.Setenv("RUSTY_TOKENS_TOKEN_MANAGER_REFRESH_FACTOR", "0.5")
	t.Setenv("RUSTY_TOKENS_TOKEN_MANAGER_WARNING_FACTOR", "0.9")

	cfg, err := LoadClientConfig()
	require.NoError(t, err)
	assert.Equal(t, "https://env.example/oauth2/access_token", cfg.TokenProviderURL)
	assert.Equal(t, "/env-realm", cfg.Realm)
	assert.Equal(t, float32(0.5), cfg.RefreshFactor)
	assert.Equal(t, float32(0.9), cfg.WarningFactor)
}

func TestLoadClientConfig_MissingEverywhereFails(t *testing.T) {
	clearClientEnv(t)
	_, err := LoadClientConfig()
	require.Error(t, err)
}

// TestLoadResourceServerConfig_FallsBackToOverlay matches SPEC_FULL §2/§3 for
// the resource-server config surface.
func TestLoadResourceServerConfig_FallsBackToOverlay(t *testing.T) {
	clearClientEnv(t)
	path := writeOverlayFile(t, `
token_info_url: https://token-info.example/oauth2/tokeninfo
query_parameter: access_token
fallback_token_info_url: https://fallback.example/oauth2/tokeninfo
`)
	t.Setenv("CONFIG_PATH", path)

	cfg, err := LoadResourceServerConfig()
	require.NoError(t, err)
	assert.Equal(t, "https://token-info.example/oauth2/tokeninfo", cfg.TokenInfoURL)
	assert.Equal(t, "access_token", cfg.QueryParameter)
	assert.Equal(t, "https://fallback.example/oauth2/tokeninfo", cfg.FallbackURL)
}
