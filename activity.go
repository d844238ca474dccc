package session

import (
	"context"
	"crypto/rand"
	"time"

	"github.com/oklog/ulid/v2"
)

// ActivityEventType enumerates supported activity categories.
type ActivityEventType string

const (
	ActivityEventLoginSuccess   ActivityEventType = "session.login.success"
	ActivityEventLoginFailure   ActivityEventType = "session.login.failure"
	ActivityEventLogout         ActivityEventType = "session.logout"
	ActivityEventValidated      ActivityEventType = "session.validated"
	ActivityEventExpired        ActivityEventType = "session.expired"
	ActivityEventRefreshFailure ActivityEventType = "session.refresh.failure"
)

// ActivityEvent captures audit-friendly information about a session action.
type ActivityEvent struct {
	ID         string
	EventType  ActivityEventType
	UserID     string
	FromStatus Status
	ToStatus   Status
	Metadata   map[string]any
	OccurredAt time.Time
}

// ActivitySink consumes activity events for auditing/telemetry purposes.
// Sinks run best-effort: errors are logged by the emitter, never propagated,
// so forwarding to a queue or database cannot block a login.
type ActivitySink interface {
	Record(ctx context.Context, event ActivityEvent) error
}

// ActivitySinkFunc adapts a function to the ActivitySink interface.
type ActivitySinkFunc func(ctx context.Context, event ActivityEvent) error

// Record implements ActivitySink.
func (f ActivitySinkFunc) Record(ctx context.Context, event ActivityEvent) error {
	if f == nil {
		return nil
	}
	return f(ctx, event)
}

type noopActivitySink struct{}

func (noopActivitySink) Record(context.Context, ActivityEvent) error {
	return nil
}

func normalizeActivitySink(s ActivitySink) ActivitySink {
	if s == nil {
		return noopActivitySink{}
	}
	return s
}

func newActivityEventID(now time.Time) string {
	id, err := ulid.New(ulid.Timestamp(now), rand.Reader)
	if err != nil {
		return ""
	}
	return id.String()
}
