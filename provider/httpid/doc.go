// Package httpid is a JSON-over-HTTP identity API client for go-session.
//
// It implements session.IdentityAPI against the platform identity service
// and maps transport and response failures onto the session error taxonomy,
// so the Manager never needs to know which provider backs it. The optional
// TokenValidator verifies issued JWTs locally against the provider's JWKS
// endpoint before a remote response is trusted.
package httpid
