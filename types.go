package session

import (
	"context"
	"fmt"
)

type Logger interface {
	Debug(format string, args ...any)
	Info(format string, args ...any)
	Warn(format string, args ...any)
	Error(format string, args ...any)
}

// IdentityAPI is the remote identity provider boundary. Transport and wire
// format belong to the implementation; the core only needs these three
// semantic operations and the error taxonomy in errors.go.
type IdentityAPI interface {
	ValidateSession(ctx context.Context, credential string) (*User, error)
	Login(ctx context.Context, identifier, password string) (string, *User, error)
	Logout(ctx context.Context, credential string) error
}

// LoginPayload carries the credentials a caller submits to Manager.Login.
type LoginPayload interface {
	GetIdentifier() string
	GetPassword() string
}

// Navigator consumes redirect intents emitted by the Guard. The core never
// navigates itself, it only requests navigation.
type Navigator interface {
	Navigate(path string)
}

// NavigatorFunc adapts a function to the Navigator interface.
type NavigatorFunc func(path string)

// Navigate implements Navigator.
func (f NavigatorFunc) Navigate(path string) {
	if f != nil {
		f(path)
	}
}

// Config holds session options
type Config interface {
	GetLoginPath() string
	GetLandingPath() string
	GetStorageKey() string
}

type defLogger struct{}

func (d defLogger) Error(format string, args ...any) {
	fmt.Printf("[ERR] SESSION "+newline(format), args...)
}

func (d defLogger) Warn(format string, args ...any) {
	fmt.Printf("[WRN] SESSION "+newline(format), args...)
}

func (d defLogger) Info(format string, args ...any) {
	fmt.Printf("[INF] SESSION "+newline(format), args...)
}

func (d defLogger) Debug(format string, args ...any) {
	fmt.Printf("[DBG] SESSION "+newline(format), args...)
}

func newline(s string) string {
	if len(s) > 0 && s[len(s)-1] != '\n' {
		s += "\n"
	}
	return s
}
