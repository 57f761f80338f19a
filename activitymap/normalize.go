// Package activitymap flattens authist activity events into rows suited for
// audit tables and event streams.
package activitymap

import (
	"maps"
	"strings"
	"time"

	"github.com/goliatone/go-authist"
)

// MetadataKeyProvider stores the provider that produced the event.
const MetadataKeyProvider = "provider"

// Normalized is a transport-agnostic activity shape for downstream systems.
type Normalized struct {
	ActorID    string         `json:"actor_id"`
	Verb       string         `json:"verb"`
	ObjectType string         `json:"object_type,omitempty"`
	ObjectID   string         `json:"object_id,omitempty"`
	Channel    string         `json:"channel,omitempty"`
	Metadata   map[string]any `json:"metadata,omitempty"`
	OccurredAt time.Time      `json:"occurred_at"`
}

// Mapper turns events into Normalized records. The zero value is not usable;
// build one with New.
type Mapper struct {
	channel    string
	objectType string
	anonymous  string
	objectID   func(authist.ActivityEvent) string
	now        func() time.Time
}

// Option configures a Mapper.
type Option func(*Mapper)

// New returns a Mapper with the "auth" channel, the "user" object type and
// "anonymous" as the actor for events without a user.
func New(opts ...Option) *Mapper {
	m := &Mapper{
		channel:    "auth",
		objectType: "user",
		anonymous:  "anonymous",
		objectID: func(e authist.ActivityEvent) string {
			return e.UserID
		},
		now: time.Now,
	}
	for _, opt := range opts {
		if opt != nil {
			opt(m)
		}
	}
	return m
}

// Normalize maps a single event with a throwaway Mapper.
func Normalize(event authist.ActivityEvent, opts ...Option) Normalized {
	return New(opts...).Map(event)
}

// Map converts event. The event metadata is copied, never mutated.
func (m *Mapper) Map(event authist.ActivityEvent) Normalized {
	actor := strings.TrimSpace(event.UserID)
	if actor == "" {
		actor = m.anonymous
	}

	occurredAt := event.OccurredAt
	if occurredAt.IsZero() {
		occurredAt = m.now()
	}

	return Normalized{
		ActorID:    actor,
		Verb:       string(event.EventType),
		ObjectType: m.objectType,
		ObjectID:   strings.TrimSpace(m.objectID(event)),
		Channel:    m.channel,
		Metadata:   metadata(event),
		OccurredAt: occurredAt.UTC(),
	}
}

// WithDefaultChannel sets the channel for normalized records.
func WithDefaultChannel(channel string) Option {
	return func(m *Mapper) {
		m.channel = strings.TrimSpace(channel)
	}
}

// WithDefaultObjectType sets the object type for normalized records.
func WithDefaultObjectType(objectType string) Option {
	return func(m *Mapper) {
		m.objectType = strings.TrimSpace(objectType)
	}
}

// WithObjectIDResolver overrides how the object id is read from an event.
func WithObjectIDResolver(resolver func(authist.ActivityEvent) string) Option {
	return func(m *Mapper) {
		if resolver != nil {
			m.objectID = resolver
		}
	}
}

// WithActorFallback sets the actor id used when the event has no user,
// e.g. failed sign-ins.
func WithActorFallback(actorID string) Option {
	return func(m *Mapper) {
		if actorID = strings.TrimSpace(actorID); actorID != "" {
			m.anonymous = actorID
		}
	}
}

// WithClock stamps events that carry no timestamp.
func WithClock(now func() time.Time) Option {
	return func(m *Mapper) {
		if now != nil {
			m.now = now
		}
	}
}

func metadata(event authist.ActivityEvent) map[string]any {
	provider := strings.TrimSpace(event.Provider)
	if len(event.Metadata) == 0 && provider == "" {
		return nil
	}

	out := make(map[string]any, len(event.Metadata)+1)
	maps.Copy(out, event.Metadata)
	if _, ok := out[MetadataKeyProvider]; !ok && provider != "" {
		out[MetadataKeyProvider] = provider
	}
	return out
}
