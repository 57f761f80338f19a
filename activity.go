package authist

import (
	"context"
	"time"
)

// ActivityEventType names what happened. Values are dotted so sinks can
// route on prefixes.
type ActivityEventType string

const (
	ActivityEventLoginSuccess           ActivityEventType = "auth.login.success"
	ActivityEventLoginFailure           ActivityEventType = "auth.login.failure"
	ActivityEventSocialLogin            ActivityEventType = "auth.social.login"
	ActivityEventUserRegistered         ActivityEventType = "auth.user.registered"
	ActivityEventTokenRefreshed         ActivityEventType = "auth.token.refreshed"
	ActivityEventPasswordResetRequested ActivityEventType = "auth.password.reset.requested"
	ActivityEventPasswordResetSuccess   ActivityEventType = "auth.password.reset"
)

// IsSignIn reports whether t marks a completed sign-in through any provider.
func (t ActivityEventType) IsSignIn() bool {
	return t == ActivityEventLoginSuccess || t == ActivityEventSocialLogin
}

// ActivityEvent is emitted after sign-in, refresh and password reset
// operations. UserID is empty when no user was resolved.
type ActivityEvent struct {
	EventType  ActivityEventType
	Provider   string
	UserID     string
	Metadata   map[string]any
	OccurredAt time.Time
}

// ActivitySink consumes activity events. Sinks are best-effort: a failing
// sink never changes the outcome of the operation that emitted the event.
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

func emitActivity(ctx context.Context, sink ActivitySink, logger Logger, event ActivityEvent) {
	if sink == nil {
		return
	}
	if event.Metadata == nil {
		event.Metadata = map[string]any{}
	}
	if event.OccurredAt.IsZero() {
		event.OccurredAt = time.Now()
	}
	if err := sink.Record(ctx, event); err != nil {
		logger.Warn("authist: activity sink %s: %v", event.EventType, err)
	}
}
