// Package rtconfig loads the environment-variable configuration surface from
// spec.md §6: client config (token-provider URL/realm, refresh/warning
// factors), file-credentials config, and resource-server config
// (token-info/fallback URLs, query parameter). An optional YAML file
// (CONFIG_PATH) supplies client and resource-server values the environment
// leaves unset, following the teacher's internal/config/config.go
// viper-overlay pattern; it does not cover the file-credentials config.
package rtconfig

import (
	"os"
	"strconv"
	"strings"

	"github.com/spf13/viper"

	"github.com/kocoro-labs/rusty-tokens-go/internal/tokens"
)

// envOrIndirect implements the "_ENV_VAR" indirection spec.md §6 describes:
// if `<name>_ENV_VAR` is set to FOO, read FOO instead of `<name>`.
func envOrIndirect(name string) string {
	if indirectName := os.Getenv(name + "_ENV_VAR"); indirectName != "" {
		return os.Getenv(indirectName)
	}
	return os.Getenv(name)
}

func requireEnv(name, value string) (string, error) {
	if value == "" {
		return "", &tokens.InitializationError{Msg: "missing required environment variable " + name}
	}
	return value, nil
}

// parseFactor parses a factor as float32, matching ScaleTime's float32
// carry of RefreshFactor/WarningFactor (see internal/tokens/scale.go).
func parseFactor(name, value string) (float32, error) {
	f, err := strconv.ParseFloat(strings.TrimSpace(value), 32)
	if err != nil {
		return 0, &tokens.InitializationError{Msg: "environment variable " + name + " is not a float: " + err.Error()}
	}
	return float32(f), nil
}

// ClientConfig is the resolved configuration for the manager/client role.
type ClientConfig struct {
	TokenProviderURL string
	Realm            string
	RefreshFactor    float32
	WarningFactor    float32
}

// LoadClientConfig reads RUSTY_TOKENS_TOKEN_PROVIDER_URL (indirected),
// RUSTY_TOKENS_TOKEN_PROVIDER_REALM, RUSTY_TOKENS_TOKEN_MANAGER_REFRESH_FACTOR
// and RUSTY_TOKENS_TOKEN_MANAGER_WARNING_FACTOR, falling back to the optional
// viper-backed Overlay (see LoadOverlay) for any field the environment leaves
// unset.
func LoadClientConfig() (*ClientConfig, error) {
	overlay, err := LoadOverlay()
	if err != nil {
		return nil, err
	}

	url, err := requireEnv("RUSTY_TOKENS_TOKEN_PROVIDER_URL", firstNonEmpty(envOrIndirect("RUSTY_TOKENS_TOKEN_PROVIDER_URL"), overlay.TokenProviderURL))
	if err != nil {
		return nil, err
	}
	realm, err := requireEnv("RUSTY_TOKENS_TOKEN_PROVIDER_REALM", firstNonEmpty(os.Getenv("RUSTY_TOKENS_TOKEN_PROVIDER_REALM"), overlay.Realm))
	if err != nil {
		return nil, err
	}

	refresh, err := loadFactor("RUSTY_TOKENS_TOKEN_MANAGER_REFRESH_FACTOR", overlay.RefreshFactor)
	if err != nil {
		return nil, err
	}
	warning, err := loadFactor("RUSTY_TOKENS_TOKEN_MANAGER_WARNING_FACTOR", overlay.WarningFactor)
	if err != nil {
		return nil, err
	}
	if refresh > warning {
		return nil, &tokens.InitializationError{Msg: "refresh factor must be <= warning factor"}
	}
	if refresh < 0 || warning > 1 {
		return nil, &tokens.InitializationError{Msg: "refresh and warning factors must be within [0, 1]"}
	}

	return &ClientConfig{
		TokenProviderURL: url,
		Realm:            realm,
		RefreshFactor:    refresh,
		WarningFactor:    warning,
	}, nil
}

// loadFactor reads name from the environment; if unset, it falls back to
// overlayValue (the zero value means "the overlay didn't set it either",
// which is reported as a descriptive InitializationError).
func loadFactor(name string, overlayValue float32) (float32, error) {
	raw := os.Getenv(name)
	if raw == "" {
		if overlayValue != 0 {
			return overlayValue, nil
		}
		return 0, &tokens.InitializationError{Msg: "missing required environment variable " + name}
	}
	return parseFactor(name, raw)
}

func firstNonEmpty(values ...string) string {
	for _, v := range values {
		if v != "" {
			return v
		}
	}
	return ""
}

// FileCredentialsConfig is the resolved configuration for a file-backed
// CredentialsProvider.
type FileCredentialsConfig struct {
	Dir            string
	ClientFileName string
	UserFileName   string
}

// LoadFileCredentialsConfig reads RUSTY_TOKENS_CREDENTIALS_DIR (indirected),
// RUSTY_TOKENS_CLIENT_CREDENTIALS_FILE_NAME, RUSTY_TOKENS_USER_CREDENTIALS_FILE_NAME.
func LoadFileCredentialsConfig() (*FileCredentialsConfig, error) {
	dir, err := requireEnv("RUSTY_TOKENS_CREDENTIALS_DIR", envOrIndirect("RUSTY_TOKENS_CREDENTIALS_DIR"))
	if err != nil {
		return nil, err
	}
	clientFile, err := requireEnv("RUSTY_TOKENS_CLIENT_CREDENTIALS_FILE_NAME", os.Getenv("RUSTY_TOKENS_CLIENT_CREDENTIALS_FILE_NAME"))
	if err != nil {
		return nil, err
	}
	userFile, err := requireEnv("RUSTY_TOKENS_USER_CREDENTIALS_FILE_NAME", os.Getenv("RUSTY_TOKENS_USER_CREDENTIALS_FILE_NAME"))
	if err != nil {
		return nil, err
	}
	return &FileCredentialsConfig{Dir: dir, ClientFileName: clientFile, UserFileName: userFile}, nil
}

// ResourceServerConfig is the resolved configuration for the authenticator.
type ResourceServerConfig struct {
	TokenInfoURL   string
	QueryParameter string
	FallbackURL    string // empty means unconfigured
}

// LoadResourceServerConfig reads RUSTY_TOKENS_TOKEN_INFO_URL (indirected),
// RUSTY_TOKENS_TOKEN_INFO_URL_QUERY_PARAMETER, and the optional
// RUSTY_TOKENS_FALLBACK_TOKEN_INFO_URL, falling back to the optional
// viper-backed Overlay for any field the environment leaves unset.
func LoadResourceServerConfig() (*ResourceServerConfig, error) {
	overlay, err := LoadOverlay()
	if err != nil {
		return nil, err
	}

	url, err := requireEnv("RUSTY_TOKENS_TOKEN_INFO_URL", firstNonEmpty(envOrIndirect("RUSTY_TOKENS_TOKEN_INFO_URL"), overlay.TokenInfoURL))
	if err != nil {
		return nil, err
	}
	param, err := requireEnv("RUSTY_TOKENS_TOKEN_INFO_URL_QUERY_PARAMETER", firstNonEmpty(os.Getenv("RUSTY_TOKENS_TOKEN_INFO_URL_QUERY_PARAMETER"), overlay.QueryParameter))
	if err != nil {
		return nil, err
	}
	return &ResourceServerConfig{
		TokenInfoURL:   url,
		QueryParameter: param,
		FallbackURL:    firstNonEmpty(os.Getenv("RUSTY_TOKENS_FALLBACK_TOKEN_INFO_URL"), overlay.FallbackURL),
	}, nil
}

// Overlay represents optional YAML-file overrides for the client and
// resource-server config surfaces, mirroring internal/config/config.go's
// Load(). It is consulted only for fields the environment loader above
// leaves unset (empty string / zero factor).
type Overlay struct {
	TokenProviderURL string  `mapstructure:"token_provider_url"`
	Realm            string  `mapstructure:"realm"`
	RefreshFactor    float32 `mapstructure:"refresh_factor"`
	WarningFactor    float32 `mapstructure:"warning_factor"`
	TokenInfoURL     string  `mapstructure:"token_info_url"`
	QueryParameter   string  `mapstructure:"query_parameter"`
	FallbackURL      string  `mapstructure:"fallback_token_info_url"`
}

// LoadOverlay reads an optional YAML file named by CONFIG_PATH. A missing
// CONFIG_PATH is not an error: it just means no overlay applies.
func LoadOverlay() (*Overlay, error) {
	path := os.Getenv("CONFIG_PATH")
	if path == "" {
		return &Overlay{}, nil
	}
	v := viper.New()
	v.SetConfigFile(path)
	if err := v.ReadInConfig(); err != nil {
		return nil, &tokens.InitializationError{Msg: "read config " + path + ": " + err.Error()}
	}
	var o Overlay
	if err := v.Unmarshal(&o); err != nil {
		return nil, &tokens.InitializationError{Msg: "unmarshal config " + path + ": " + err.Error()}
	}
	return &o, nil
}
