package auth

import (
	"context"
	"time"
)

// ActivityEventType enumerates supported activity categories.
type ActivityEventType string

const (
	ActivityEventLoginSuccess ActivityEventType = "auth.login.success"
	ActivityEventLoginFailure ActivityEventType = "auth.login.failure"
	ActivityEventSocialLogin  ActivityEventType = "auth.social.login"
	ActivityEventTokenRefresh ActivityEventType = "auth.token.refresh"
	ActivityEventLogout       ActivityEventType = "auth.logout"
)

// ActorRef identifies who triggered an event.
type ActorRef struct {
	ID   string
	Type string
}

// ActivityEvent captures audit-friendly information about an action.
type ActivityEvent struct {
	EventType  ActivityEventType
	Actor      ActorRef
	UserID     string
	Metadata   map[string]any
	OccurredAt time.Time
}

// ActivitySink consumes activity events for auditing/telemetry purposes.
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

func actorFromUser(u *User) ActorRef {
	if u == nil {
		return ActorRef{Type: "unknown"}
	}
	return ActorRef{ID: u.ID.String(), Type: "user"}
}

func emitActivity(ctx context.Context, sink ActivitySink, logger Logger, eventType ActivityEventType, user *User, metadata map[string]any) {
	event := ActivityEvent{
		EventType:  eventType,
		Actor:      actorFromUser(user),
		Metadata:   metadata,
		OccurredAt: time.Now(),
	}
	if user != nil {
		event.UserID = user.ID.String()
	}
	if event.Metadata == nil {
		event.Metadata = map[string]any{}
	}

	if err := normalizeActivitySink(sink).Record(ctx, event); err != nil {
		logger.Warn("activity sink record error", "event", eventType, "error", err)
	}
}
