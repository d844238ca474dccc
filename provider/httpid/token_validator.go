package httpid

import (
	stderrors "errors"
	"fmt"
	"time"

	"github.com/MicahParks/keyfunc/v2"
	"github.com/golang-jwt/jwt/v5"
	"github.com/goliatone/go-session"
)

// TokenValidator verifies identity-service JWTs locally against the
// provider's JWKS. It is a pre-flight check: a credential that fails
// signature or expiry here is rejected without a network round trip, but a
// credential that passes still goes through remote validation (revocation is
// only known server side).
type TokenValidator struct {
	jwks *keyfunc.JWKS
}

// NewTokenValidator fetches the JWKS and keeps it refreshed in the
// background.
func NewTokenValidator(cfg Config) (*TokenValidator, error) {
	url := cfg.jwksURL()
	if url == "" {
		return nil, fmt.Errorf("httpid: a base URL or JWKS URL is required")
	}

	refreshInterval := cfg.JWKSRefreshInterval
	if refreshInterval == 0 {
		refreshInterval = time.Hour
	}

	jwks, err := keyfunc.Get(url, keyfunc.Options{
		RefreshInterval:   refreshInterval,
		RefreshRateLimit:  time.Minute * 5,
		RefreshTimeout:    time.Second * 10,
		RefreshUnknownKID: true,
	})
	if err != nil {
		return nil, fmt.Errorf("httpid: failed to get JWKS: %w", err)
	}

	return &TokenValidator{jwks: jwks}, nil
}

// Validate checks the credential's signature and expiry.
func (v *TokenValidator) Validate(credential string) error {
	token, err := jwt.ParseWithClaims(credential, &jwt.RegisteredClaims{}, v.jwks.Keyfunc)
	if err != nil {
		if jwtErrorIsExpiry(err) {
			return session.ErrSessionExpired
		}
		return session.ErrInvalidCredentials
	}

	if !token.Valid {
		return session.ErrInvalidCredentials
	}

	return nil
}

// Close stops the background JWKS refresh.
func (v *TokenValidator) Close() {
	if v.jwks != nil {
		v.jwks.EndBackground()
	}
}

func jwtErrorIsExpiry(err error) bool {
	return stderrors.Is(err, jwt.ErrTokenExpired)
}
