package activitymap_test

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"

	"github.com/goliatone/go-authist"
	"github.com/goliatone/go-authist/activitymap"
)

func TestMapDefaults(t *testing.T) {
	ts := time.Date(2026, 1, 10, 9, 30, 0, 0, time.UTC)
	event := authist.ActivityEvent{
		EventType:  authist.ActivityEventSocialLogin,
		Provider:   "facebook",
		UserID:     "user-100",
		Metadata:   map[string]any{"ip": "10.0.0.1"},
		OccurredAt: ts,
	}

	out := activitymap.New().Map(event)

	assert.Equal(t, activitymap.Normalized{
		ActorID:    "user-100",
		Verb:       "auth.social.login",
		ObjectType: "user",
		ObjectID:   "user-100",
		Channel:    "auth",
		Metadata: map[string]any{
			"ip":                            "10.0.0.1",
			activitymap.MetadataKeyProvider: "facebook",
		},
		OccurredAt: ts,
	}, out)
	assert.Len(t, event.Metadata, 1, "source metadata must not change")
}

func TestMapOptions(t *testing.T) {
	now := time.Date(2026, 3, 1, 12, 0, 0, 0, time.UTC)
	mapper := activitymap.New(
		activitymap.WithDefaultChannel("security"),
		activitymap.WithDefaultObjectType("account"),
		activitymap.WithObjectIDResolver(func(e authist.ActivityEvent) string {
			jti, _ := e.Metadata["jti"].(string)
			return jti
		}),
		activitymap.WithClock(func() time.Time { return now }),
	)

	out := mapper.Map(authist.ActivityEvent{
		EventType: authist.ActivityEventPasswordResetSuccess,
		Provider:  authist.ProviderEmailPassword,
		UserID:    "user-200",
		Metadata: map[string]any{
			"jti":                           "reset-1",
			activitymap.MetadataKeyProvider: "existing",
		},
	})

	assert.Equal(t, "security", out.Channel)
	assert.Equal(t, "account", out.ObjectType)
	assert.Equal(t, "reset-1", out.ObjectID)
	assert.Equal(t, "existing", out.Metadata[activitymap.MetadataKeyProvider])
	assert.Equal(t, now, out.OccurredAt)
}

func TestMapActor(t *testing.T) {
	tests := []struct {
		name   string
		event  authist.ActivityEvent
		opts   []activitymap.Option
		expect string
	}{
		{"user id when present", authist.ActivityEvent{UserID: "user-2"}, nil, "user-2"},
		{"anonymous for failed sign-ins", authist.ActivityEvent{EventType: authist.ActivityEventLoginFailure}, nil, "anonymous"},
		{"configured fallback", authist.ActivityEvent{}, []activitymap.Option{activitymap.WithActorFallback("job")}, "job"},
		{"blank fallback ignored", authist.ActivityEvent{}, []activitymap.Option{activitymap.WithActorFallback("  ")}, "anonymous"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.expect, activitymap.Normalize(tt.event, tt.opts...).ActorID)
		})
	}
}

func TestMapWithoutMetadata(t *testing.T) {
	out := activitymap.Normalize(authist.ActivityEvent{EventType: authist.ActivityEventTokenRefreshed})
	assert.Nil(t, out.Metadata)
	assert.False(t, out.OccurredAt.IsZero())
}
