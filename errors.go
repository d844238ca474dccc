package session

import (
	"github.com/goliatone/go-errors"
)

const (
	textCodeInvalidCredentials = "INVALID_CREDENTIALS"
	textCodeSessionExpired     = "SESSION_EXPIRED"
	textCodeSessionRevoked     = "SESSION_REVOKED"
	textCodeNetworkFailure     = "IDENTITY_NETWORK_FAILURE"
	textCodeServerError        = "IDENTITY_SERVER_ERROR"
	textCodeStorageUnavailable = "SESSION_STORAGE_UNAVAILABLE"
	textCodeStorageCorrupt     = "SESSION_STORAGE_CORRUPT"
	textCodeProducerFailed     = "CACHE_PRODUCER_FAILED"
	textCodeInvalidTransition  = "INVALID_SESSION_TRANSITION"
)

// ErrInvalidCredentials is returned by Login when the identity API rejects
// the supplied identifier/password pair.
var ErrInvalidCredentials = errors.New("invalid credentials", errors.CategoryAuth).
	WithTextCode(textCodeInvalidCredentials).
	WithCode(errors.CodeUnauthorized)

// ErrSessionExpired is returned when a stored credential is past its expiry.
var ErrSessionExpired = errors.New("session expired", errors.CategoryAuth).
	WithTextCode(textCodeSessionExpired).
	WithCode(errors.CodeUnauthorized)

// ErrSessionRevoked is returned when the identity API reports the credential
// was invalidated server side.
var ErrSessionRevoked = errors.New("session revoked", errors.CategoryAuth).
	WithTextCode(textCodeSessionRevoked).
	WithCode(errors.CodeUnauthorized)

// ErrNetworkFailure is returned when the identity API could not be reached.
var ErrNetworkFailure = errors.New("identity API unreachable", errors.CategoryOperation).
	WithTextCode(textCodeNetworkFailure).
	WithCode(errors.CodeInternal)

// ErrServerError is returned when the identity API fails on its side.
var ErrServerError = errors.New("identity API server error", errors.CategoryOperation).
	WithTextCode(textCodeServerError).
	WithCode(errors.CodeInternal)

// ErrStorageUnavailable is returned when the persisted session store cannot
// be read or written.
var ErrStorageUnavailable = errors.New("session storage unavailable", errors.CategoryInternal).
	WithTextCode(textCodeStorageUnavailable).
	WithCode(errors.CodeInternal)

// ErrStorageCorrupt is returned when a stored snapshot fails to deserialize.
// Callers must treat it the same as a missing session, never as a forged
// authenticated state.
var ErrStorageCorrupt = errors.New("session storage corrupt", errors.CategoryInternal).
	WithTextCode(textCodeStorageCorrupt).
	WithCode(errors.CodeInternal)

// ErrProducerFailed wraps a cache producer failure. The cache keeps the
// previous value when it surfaces this error.
var ErrProducerFailed = errors.New("cache producer failed", errors.CategoryOperation).
	WithTextCode(textCodeProducerFailed).
	WithCode(errors.CodeInternal)

// ErrInvalidTransition is returned when a requested status change is not in
// the session transition table.
var ErrInvalidTransition = errors.New("invalid session state transition", errors.CategoryConflict).
	WithTextCode(textCodeInvalidTransition).
	WithCode(errors.CodeConflict)

// IsAuthError reports whether err belongs to the authentication taxonomy
// (invalid credentials, expired, revoked).
func IsAuthError(err error) bool {
	var richErr *errors.Error
	if !errors.As(err, &richErr) {
		return false
	}
	return richErr.Category == errors.CategoryAuth
}

// IsExpired reports whether err carries the session expired text code.
func IsExpired(err error) bool {
	return hasTextCode(err, textCodeSessionExpired)
}

// IsRevoked reports whether err carries the session revoked text code.
func IsRevoked(err error) bool {
	return hasTextCode(err, textCodeSessionRevoked)
}

// IsInvalidCredentials reports whether err carries the invalid credentials
// text code.
func IsInvalidCredentials(err error) bool {
	return hasTextCode(err, textCodeInvalidCredentials)
}

// IsStorageError reports whether err belongs to the storage taxonomy.
func IsStorageError(err error) bool {
	return hasTextCode(err, textCodeStorageUnavailable) || hasTextCode(err, textCodeStorageCorrupt)
}

// IsProducerFailure reports whether err wraps a cache producer failure.
func IsProducerFailure(err error) bool {
	return hasTextCode(err, textCodeProducerFailed)
}

func hasTextCode(err error, code string) bool {
	var richErr *errors.Error
	if !errors.As(err, &richErr) {
		return false
	}
	return richErr.TextCode == code
}

func wrapProducerFailure(key string, cause error) error {
	return errors.Wrap(cause, errors.CategoryOperation, "cache producer failed").
		WithTextCode(textCodeProducerFailed).
		WithCode(errors.CodeInternal).
		WithMetadata(map[string]any{"key": key})
}

func wrapStorageFailure(op string, cause error) error {
	return errors.Wrap(cause, errors.CategoryInternal, "session storage unavailable").
		WithTextCode(textCodeStorageUnavailable).
		WithCode(errors.CodeInternal).
		WithMetadata(map[string]any{"op": op})
}
