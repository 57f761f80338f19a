package authist_test

import (
	"context"
	"encoding/json"
	"errors"
	"sync"
	"testing"

	"github.com/goliatone/go-authist"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type recordingSink struct {
	mu     sync.Mutex
	events []authist.ActivityEvent
}

func (s *recordingSink) Record(_ context.Context, event authist.ActivityEvent) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.events = append(s.events, event)
	return nil
}

func (s *recordingSink) types() []authist.ActivityEventType {
	s.mu.Lock()
	defer s.mu.Unlock()
	out := make([]authist.ActivityEventType, 0, len(s.events))
	for _, e := range s.events {
		out = append(out, e.EventType)
	}
	return out
}

func newAuthist(t *testing.T, store *memoryStore, mutate func(*authist.Options)) *authist.Authist {
	t.Helper()
	opts := authist.Options{
		Token:       authist.TokenOptions{Secret: "test-secret"},
		GetUserByID: store.GetUserByID,
		EmailPassword: &authist.PasswordProviderOptions{
			GetIdentity:             store.GetIdentity,
			SaveNonExistingIdentity: store.SaveEmail,
			UpdatePassword:          store.UpdatePassword,
			AutoRegister:            true,
			BcryptCost:              4,
		},
		Logger: nopLogger{},
	}
	if mutate != nil {
		mutate(&opts)
	}
	a, err := authist.New(opts)
	require.NoError(t, err)
	t.Cleanup(a.Close)
	return a
}

func TestNew_Validation(t *testing.T) {
	_, err := authist.New(authist.Options{})
	assert.Error(t, err)

	store := newMemoryStore()
	_, err = authist.New(authist.Options{
		GetUserByID:   store.GetUserByID,
		EmailPassword: &authist.PasswordProviderOptions{},
	})
	assert.Error(t, err)

	_, err = authist.New(authist.Options{
		GetUserByID: store.GetUserByID,
		OAuth: map[string]*authist.OAuthProviderOptions{
			"google": {GetIdentity: store.GetIdentity},
		},
	})
	assert.Error(t, err)
}

func TestAuthist_AutoRegisterScenario(t *testing.T) {
	ctx := context.Background()
	store := newMemoryStore()
	a := newAuthist(t, store, nil)

	uc, err := a.SignInWithEmailAndPassword(ctx, "tester@test.com", "***")
	require.NoError(t, err)

	assert.Equal(t, "tester@test.com", uc.User.Email)
	assert.NotEmpty(t, uc.User.UID)
	assert.NotEmpty(t, uc.Credentials.AccessToken)
	assert.NotEmpty(t, uc.Credentials.RefreshToken)
	assert.Equal(t, int64(3600), uc.Credentials.ExpiresIn)
	assert.Equal(t, int64(86400), uc.Credentials.RefreshExpiresIn)
	assert.Equal(t, 1, store.saveCount())

	raw, err := json.Marshal(uc)
	require.NoError(t, err)
	var decoded map[string]map[string]any
	require.NoError(t, json.Unmarshal(raw, &decoded))
	assert.Equal(t, "tester@test.com", decoded["user"]["email"])
	assert.EqualValues(t, 3600, decoded["credentials"]["expiresIn"])
	assert.EqualValues(t, 86400, decoded["credentials"]["refreshExpiresIn"])

	claims, err := a.Codec().Verify(uc.Credentials.AccessToken, authist.KindAccess)
	require.NoError(t, err)
	assert.Equal(t, uc.User.UID, claims.UserID())

	again, err := a.SignInWithEmailAndPassword(ctx, "tester@test.com", "***")
	require.NoError(t, err)
	assert.Equal(t, uc.User.UID, again.User.UID)
	assert.Equal(t, 1, store.saveCount())
}

func TestAuthist_SignInFailures(t *testing.T) {
	ctx := context.Background()
	store := newMemoryStore()
	failures := &failureRecorder{}
	sink := &recordingSink{}
	a := newAuthist(t, store, func(o *authist.Options) {
		o.EmailPassword.AutoRegister = false
		o.OnAuthenticationFailure = failures.Hook
		o.ActivitySink = sink
	})

	_, err := a.SignInWithEmailAndPassword(ctx, "nobody@example.com", "pw")
	assert.ErrorIs(t, err, authist.ErrUserNotFound)

	_, err = a.SignInWithUsernameAndPassword(ctx, "nobody", "pw")
	assert.ErrorIs(t, err, authist.ErrProviderNotConfigured)

	_, err = a.SignInWithProvider(ctx, "github", "token")
	assert.ErrorIs(t, err, authist.ErrProviderNotConfigured)

	assert.Len(t, failures.All(), 3)
	assert.Equal(t, []authist.ActivityEventType{
		authist.ActivityEventLoginFailure,
		authist.ActivityEventLoginFailure,
		authist.ActivityEventLoginFailure,
	}, sink.types())
	assert.Equal(t, string(authist.CodeUserNotFound), sink.events[0].Metadata["code"])
}

func TestAuthist_FullFlow(t *testing.T) {
	ctx := context.Background()
	store := newMemoryStore()
	sink := &recordingSink{}
	a := newAuthist(t, store, func(o *authist.Options) {
		o.ActivitySink = sink
	})

	created, err := a.CreateUser(ctx, "flow@example.com", "first-password")
	require.NoError(t, err)

	uc, err := a.SignInWithEmailAndPassword(ctx, "flow@example.com", "first-password")
	require.NoError(t, err)
	assert.Equal(t, created.UID, uc.User.UID)

	user, err := a.VerifyBearer(ctx, "Bearer "+uc.Credentials.AccessToken)
	require.NoError(t, err)
	assert.Equal(t, created.UID, user.UID)

	_, err = a.VerifyBearer(ctx, "Bearer "+uc.Credentials.RefreshToken)
	assert.ErrorIs(t, err, authist.ErrInvalidTokenType)

	refreshed, err := a.RefreshToken(ctx, uc.Credentials.RefreshToken)
	require.NoError(t, err)
	assert.Equal(t, created.UID, refreshed.User.UID)

	reset, err := a.RequestPasswordReset(ctx, "flow@example.com")
	require.NoError(t, err)

	_, err = a.VerifyBearer(ctx, "Bearer "+reset.Token)
	assert.ErrorIs(t, err, authist.ErrInvalidTokenType)
	_, err = a.RefreshToken(ctx, reset.Token)
	assert.ErrorIs(t, err, authist.ErrInvalidTokenType)

	require.NoError(t, a.ResetPassword(ctx, reset.Token, "second-password"))

	_, err = a.SignInWithEmailAndPassword(ctx, "flow@example.com", "first-password")
	assert.ErrorIs(t, err, authist.ErrPasswordMismatch)
	_, err = a.SignInWithEmailAndPassword(ctx, "flow@example.com", "second-password")
	assert.NoError(t, err)

	assert.Equal(t, []authist.ActivityEventType{
		authist.ActivityEventUserRegistered,
		authist.ActivityEventLoginSuccess,
		authist.ActivityEventTokenRefreshed,
		authist.ActivityEventPasswordResetRequested,
		authist.ActivityEventPasswordResetSuccess,
		authist.ActivityEventLoginFailure,
		authist.ActivityEventLoginSuccess,
	}, sink.types())
}

func TestAuthist_SocialSignIn(t *testing.T) {
	ctx := context.Background()
	store := newMemoryStore()
	sink := &recordingSink{}
	a := newAuthist(t, store, func(o *authist.Options) {
		o.ActivitySink = sink
		o.OAuth = map[string]*authist.OAuthProviderOptions{
			"facebook": {
				Fetcher: &stubFetcher{name: "facebook", profile: &authist.Profile{
					ID:    "fb-1",
					Email: "fb@example.com",
				}},
				GetIdentity:             store.GetIdentity,
				SaveNonExistingIdentity: store.SaveProfile,
			},
		}
	})

	assert.Equal(t, []string{"emailPassword", "facebook"}, a.Providers())

	uc, err := a.SignInWithProvider(ctx, "facebook", "fb-token")
	require.NoError(t, err)
	assert.Equal(t, "fb@example.com", uc.User.Email)
	assert.Equal(t, "facebook", uc.User.ProviderData.ProviderID)

	assert.Equal(t, []authist.ActivityEventType{
		authist.ActivityEventUserRegistered,
		authist.ActivityEventSocialLogin,
	}, sink.types())
}

func TestAuthist_ActivitySinkErrorsAreIgnored(t *testing.T) {
	store := newMemoryStore()
	a := newAuthist(t, store, func(o *authist.Options) {
		o.ActivitySink = authist.ActivitySinkFunc(func(context.Context, authist.ActivityEvent) error {
			return errors.New("sink down")
		})
	})

	_, err := a.SignInWithEmailAndPassword(context.Background(), "sink@example.com", "pw")
	assert.NoError(t, err)
}

func TestAuthist_WithoutEmailProvider(t *testing.T) {
	store := newMemoryStore()
	a, err := authist.New(authist.Options{
		Token:       authist.TokenOptions{Secret: "s"},
		GetUserByID: store.GetUserByID,
		Logger:      nopLogger{},
	})
	require.NoError(t, err)

	_, err = a.CreateUser(context.Background(), "x@example.com", "pw")
	assert.ErrorIs(t, err, authist.ErrSaveNonExistingUserNotImplemented)

	err = a.ResetPassword(context.Background(), "token", "pw")
	assert.ErrorIs(t, err, authist.ErrUpdatePasswordNotImplemented)

	_, err = a.RequestPasswordReset(context.Background(), "x@example.com")
	assert.ErrorIs(t, err, authist.ErrProviderNotConfigured)
}

func TestActivityEventType_IsSignIn(t *testing.T) {
	assert.True(t, authist.ActivityEventLoginSuccess.IsSignIn())
	assert.True(t, authist.ActivityEventSocialLogin.IsSignIn())
	assert.False(t, authist.ActivityEventLoginFailure.IsSignIn())
	assert.False(t, authist.ActivityEventTokenRefreshed.IsSignIn())
}

type apiKeyProvider struct {
	keys map[string]*authist.User
}

func (p apiKeyProvider) Name() string { return "apiKey" }

func (p apiKeyProvider) ResolveIdentity(_ context.Context, key, _ string) (*authist.User, error) {
	user, ok := p.keys[key]
	if !ok {
		return nil, authist.ErrUserNotFound
	}
	return user, nil
}

func TestAuthist_CustomProvider(t *testing.T) {
	ctx := context.Background()
	store := newMemoryStore()
	identity := store.add("svc@example.com", "")
	sink := &recordingSink{}
	a := newAuthist(t, store, func(o *authist.Options) {
		o.ActivitySink = sink
		o.Providers = []authist.Provider{apiKeyProvider{
			keys: map[string]*authist.User{"key-1": &identity.User},
		}}
	})

	assert.Equal(t, []string{"apiKey", "emailPassword"}, a.Providers())

	uc, err := a.SignIn(ctx, "apiKey", "key-1", "")
	require.NoError(t, err)
	assert.Equal(t, identity.UID, uc.User.UID)
	assert.NotEmpty(t, uc.Credentials.AccessToken)

	_, err = a.SignIn(ctx, "apiKey", "unknown", "")
	assert.ErrorIs(t, err, authist.ErrUserNotFound)

	assert.Equal(t, []authist.ActivityEventType{
		authist.ActivityEventLoginSuccess,
		authist.ActivityEventLoginFailure,
	}, sink.types())
}

func TestAuthist_RejectsNilProvider(t *testing.T) {
	store := newMemoryStore()
	_, err := authist.New(authist.Options{
		Token:       authist.TokenOptions{Secret: "s"},
		GetUserByID: store.GetUserByID,
		Providers:   []authist.Provider{nil},
		Logger:      nopLogger{},
	})
	assert.ErrorContains(t, err, "Options.Providers[0] is nil")
}
