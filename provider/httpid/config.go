package httpid

import (
	"net/http"
	"strings"
	"time"
)

// Config holds identity service connection settings.
type Config struct {
	// BaseURL is the identity service root (e.g. "https://id.example.com").
	BaseURL string

	// HTTPClient overrides the transport (optional).
	HTTPClient *http.Client

	// Timeout bounds each identity call when HTTPClient is not supplied.
	// Default: 10 seconds.
	Timeout time.Duration

	// ValidatePath, LoginPath, LogoutPath override the endpoint paths
	// (optional). Defaults: "/v1/session/validate", "/v1/session/login",
	// "/v1/session/logout".
	ValidatePath string
	LoginPath    string
	LogoutPath   string

	// JWKSURL enables local token verification when set (see TokenValidator).
	// Default: "{BaseURL}/.well-known/jwks.json" when used via the validator
	// constructor with an empty value.
	JWKSURL string

	// JWKSRefreshInterval is how often the JWKS cache refreshes.
	// Default: 1 hour.
	JWKSRefreshInterval time.Duration
}

// DefaultConfig returns a Config with sensible defaults.
func DefaultConfig(baseURL string) Config {
	return Config{
		BaseURL: baseURL,
		Timeout: 10 * time.Second,
	}
}

func (c Config) baseURL() string {
	return strings.TrimRight(strings.TrimSpace(c.BaseURL), "/")
}

func (c Config) validatePath() string {
	if c.ValidatePath != "" {
		return c.ValidatePath
	}
	return "/v1/session/validate"
}

func (c Config) loginPath() string {
	if c.LoginPath != "" {
		return c.LoginPath
	}
	return "/v1/session/login"
}

func (c Config) logoutPath() string {
	if c.LogoutPath != "" {
		return c.LogoutPath
	}
	return "/v1/session/logout"
}

func (c Config) jwksURL() string {
	if c.JWKSURL != "" {
		return c.JWKSURL
	}
	base := c.baseURL()
	if base == "" {
		return ""
	}
	return base + "/.well-known/jwks.json"
}

func (c Config) httpClient() *http.Client {
	if c.HTTPClient != nil {
		return c.HTTPClient
	}

	timeout := c.Timeout
	if timeout == 0 {
		timeout = 10 * time.Second
	}

	return &http.Client{Timeout: timeout}
}
