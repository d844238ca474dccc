package httpid

import (
	"bytes"
	"context"
	"encoding/json"
	"io"
	"net/http"

	goerrors "github.com/goliatone/go-errors"
	"github.com/goliatone/go-session"
)

// Client talks to the platform identity service over JSON/HTTP.
type Client struct {
	config    Config
	http      *http.Client
	validator *TokenValidator
	logger    session.Logger
}

var _ session.IdentityAPI = (*Client)(nil)

// New creates an identity client from the config.
func New(cfg Config) *Client {
	return &Client{
		config: cfg,
		http:   cfg.httpClient(),
		logger: noopLogger{},
	}
}

// WithLogger overrides the logger.
func (c *Client) WithLogger(logger session.Logger) *Client {
	if logger != nil {
		c.logger = logger
	}
	return c
}

// WithTokenValidator installs a local JWKS validator; credentials failing
// local verification are rejected without a network round trip.
func (c *Client) WithTokenValidator(validator *TokenValidator) *Client {
	c.validator = validator
	return c
}

type userEnvelope struct {
	User *session.User `json:"user"`
}

type loginRequest struct {
	Identifier string `json:"identifier"`
	Password   string `json:"password"`
}

type loginEnvelope struct {
	Credential string        `json:"credential"`
	User       *session.User `json:"user"`
}

type errorEnvelope struct {
	Error struct {
		Code    string `json:"code"`
		Message string `json:"message"`
	} `json:"error"`
}

// ValidateSession asks the identity service to validate the credential and
// returns the current user profile.
func (c *Client) ValidateSession(ctx context.Context, credential string) (*session.User, error) {
	if c.validator != nil {
		if err := c.validator.Validate(credential); err != nil {
			return nil, err
		}
	}

	resp, err := c.do(ctx, http.MethodPost, c.config.validatePath(), credential, nil)
	if err != nil {
		return nil, err
	}
	defer resp.Body.Close()

	if err := c.checkStatus(resp, false); err != nil {
		return nil, err
	}

	envelope := userEnvelope{}
	if err := json.NewDecoder(resp.Body).Decode(&envelope); err != nil || envelope.User == nil {
		return nil, withMeta(session.ErrServerError, map[string]any{
			"reason": "undecodable validate response",
		})
	}

	return envelope.User, nil
}

// Login exchanges an identifier/password pair for a credential and profile.
func (c *Client) Login(ctx context.Context, identifier, password string) (string, *session.User, error) {
	body, err := json.Marshal(loginRequest{Identifier: identifier, Password: password})
	if err != nil {
		return "", nil, goerrors.Wrap(err, goerrors.CategoryInternal, "failed to encode login request")
	}

	resp, err := c.do(ctx, http.MethodPost, c.config.loginPath(), "", body)
	if err != nil {
		return "", nil, err
	}
	defer resp.Body.Close()

	if err := c.checkStatus(resp, true); err != nil {
		return "", nil, err
	}

	envelope := loginEnvelope{}
	if err := json.NewDecoder(resp.Body).Decode(&envelope); err != nil || envelope.Credential == "" || envelope.User == nil {
		return "", nil, withMeta(session.ErrServerError, map[string]any{
			"reason": "undecodable login response",
		})
	}

	return envelope.Credential, envelope.User, nil
}

// Logout tells the identity service to revoke the credential. Best effort;
// callers log failures and move on.
func (c *Client) Logout(ctx context.Context, credential string) error {
	resp, err := c.do(ctx, http.MethodPost, c.config.logoutPath(), credential, nil)
	if err != nil {
		return err
	}
	defer resp.Body.Close()

	if resp.StatusCode >= 400 {
		return c.checkStatus(resp, false)
	}

	return nil
}

func (c *Client) do(ctx context.Context, method, path, credential string, body []byte) (*http.Response, error) {
	var reader io.Reader
	if body != nil {
		reader = bytes.NewReader(body)
	}

	req, err := http.NewRequestWithContext(ctx, method, c.config.baseURL()+path, reader)
	if err != nil {
		return nil, goerrors.Wrap(err, goerrors.CategoryInternal, "failed to build identity request")
	}

	req.Header.Set("Accept", "application/json")
	if body != nil {
		req.Header.Set("Content-Type", "application/json")
	}
	if credential != "" {
		req.Header.Set("Authorization", "Bearer "+credential)
	}

	resp, err := c.http.Do(req)
	if err != nil {
		c.logger.Debug("identity request failed", "path", path, "error", err)
		return nil, withMeta(session.ErrNetworkFailure, map[string]any{
			"path":  path,
			"cause": err.Error(),
		})
	}

	return resp, nil
}

// checkStatus maps HTTP failures onto the session error taxonomy. forLogin
// selects the credential-rejection mapping (a 401 during login means wrong
// credentials, during validation it means the session itself died).
func (c *Client) checkStatus(resp *http.Response, forLogin bool) error {
	if resp.StatusCode < 400 {
		return nil
	}

	envelope := errorEnvelope{}
	payload, _ := io.ReadAll(io.LimitReader(resp.Body, 4096))
	_ = json.Unmarshal(payload, &envelope)

	meta := map[string]any{
		"status": resp.StatusCode,
		"code":   envelope.Error.Code,
	}

	switch {
	case resp.StatusCode >= 500:
		return withMeta(session.ErrServerError, meta)
	case forLogin:
		return withMeta(session.ErrInvalidCredentials, meta)
	case resp.StatusCode == http.StatusForbidden, envelope.Error.Code == "revoked":
		return withMeta(session.ErrSessionRevoked, meta)
	default:
		return withMeta(session.ErrSessionExpired, meta)
	}
}

func withMeta(base *goerrors.Error, meta map[string]any) error {
	clone := base.Clone()
	if clone == nil {
		return base
	}
	return clone.WithMetadata(meta)
}

type noopLogger struct{}

func (noopLogger) Debug(string, ...any) {}
func (noopLogger) Info(string, ...any)  {}
func (noopLogger) Warn(string, ...any)  {}
func (noopLogger) Error(string, ...any) {}
