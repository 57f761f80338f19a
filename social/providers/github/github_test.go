package github

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/goliatone/go-authist/social"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newServer(t *testing.T, emailsStatus int) *httptest.Server {
	t.Helper()
	return httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "Bearer gh-token", r.Header.Get("Authorization"))
		w.Header().Set("Content-Type", "application/json")

		switch r.URL.Path {
		case "/user":
			_ = json.NewEncoder(w).Encode(map[string]any{
				"id":         42,
				"login":      "octocat",
				"email":      "public@example.com",
				"avatar_url": "https://avatars.example.com/42",
			})
		case "/user/emails":
			if emailsStatus != http.StatusOK {
				w.WriteHeader(emailsStatus)
				_, _ = w.Write([]byte(`{"message":"Resource not accessible by integration"}`))
				return
			}
			_ = json.NewEncoder(w).Encode([]map[string]any{
				{"email": "other@example.com", "primary": false, "verified": true},
				{"email": "octo@example.com", "primary": true, "verified": true},
			})
		}
	}))
}

func TestFetcherFetchProfile(t *testing.T) {
	server := newServer(t, http.StatusOK)
	defer server.Close()

	fetcher := New(Config{
		UserURL:    server.URL + "/user",
		EmailsURL:  server.URL + "/user/emails",
		HTTPClient: server.Client(),
	})
	assert.Equal(t, "github", fetcher.Name())

	profile, err := fetcher.FetchProfile(context.Background(), "gh-token")
	require.NoError(t, err)
	assert.Equal(t, "42", profile.ID)
	assert.Equal(t, "octo@example.com", profile.Email)
	assert.True(t, profile.EmailVerified)
	assert.Equal(t, "octocat", profile.DisplayName)
	assert.Equal(t, "https://avatars.example.com/42", profile.PhotoURL)
}

func TestFetcherFallsBackToPublicEmail(t *testing.T) {
	for _, status := range []int{http.StatusForbidden, http.StatusNotFound} {
		t.Run(http.StatusText(status), func(t *testing.T) {
			server := newServer(t, status)
			defer server.Close()

			profile, err := New(Config{
				UserURL:    server.URL + "/user",
				EmailsURL:  server.URL + "/user/emails",
				HTTPClient: server.Client(),
			}).FetchProfile(context.Background(), "gh-token")
			require.NoError(t, err)
			assert.Equal(t, "public@example.com", profile.Email)
			assert.False(t, profile.EmailVerified)
		})
	}
}

func TestFetcherEmailsOutage(t *testing.T) {
	server := newServer(t, http.StatusServiceUnavailable)
	defer server.Close()

	profile, err := New(Config{
		UserURL:    server.URL + "/user",
		EmailsURL:  server.URL + "/user/emails",
		HTTPClient: server.Client(),
	}).FetchProfile(context.Background(), "gh-token")
	require.Error(t, err)
	assert.Nil(t, profile)

	perr, ok := social.AsProviderError(err)
	require.True(t, ok)
	assert.Equal(t, "emails", perr.Operation)
	assert.Equal(t, http.StatusServiceUnavailable, perr.Status)
	assert.True(t, perr.Retryable())
}

func TestFetcherUserError(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusUnauthorized)
		_, _ = w.Write([]byte(`{"message":"Bad credentials"}`))
	}))
	defer server.Close()

	_, err := New(Config{UserURL: server.URL, HTTPClient: server.Client()}).
		FetchProfile(context.Background(), "bad")

	perr, ok := social.AsProviderError(err)
	require.True(t, ok)
	assert.Equal(t, http.StatusUnauthorized, perr.Status)
	assert.Equal(t, "github", perr.Provider)
	assert.Equal(t, "Bad credentials", perr.Description)
}

func TestPickEmail(t *testing.T) {
	tests := []struct {
		name   string
		emails []githubEmail
		want   string
		ok     bool
	}{
		{"empty", nil, "", false},
		{"primary wins", []githubEmail{{Email: "v@x.io", Verified: true}, {Email: "p@x.io", Primary: true}}, "p@x.io", true},
		{"first verified", []githubEmail{{Email: "u@x.io"}, {Email: "v1@x.io", Verified: true}, {Email: "v2@x.io", Verified: true}}, "v1@x.io", true},
		{"none usable", []githubEmail{{Email: "u@x.io"}}, "", false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, ok := pickEmail(tt.emails)
			assert.Equal(t, tt.ok, ok)
			assert.Equal(t, tt.want, got.Email)
		})
	}
}
