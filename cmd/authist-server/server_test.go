package main

import (
	"context"
	"io"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/goliatone/go-authist/internal/config"
)

func TestServerWiring(t *testing.T) {
	cfg := &config.App{
		Name:            "authist-test",
		Env:             "test",
		HTTPAddr:        ":0",
		ShutdownTimeout: time.Second,
		Token: config.Token{
			Secret:          "test-secret",
			Lifetime:        time.Hour,
			RefreshLifetime: 24 * time.Hour,
		},
		Password: config.Password{
			AutoRegister: true,
			BcryptCost:   4,
			MinLength:    3,
			MaxLength:    72,
		},
		Database: config.Database{DSN: "file::memory:"},
		Providers: config.Providers{
			GitHub:   true,
			Facebook: true,
		},
	}

	s, err := newServer(context.Background(), cfg)
	require.NoError(t, err)
	defer s.close()

	assert.Equal(t, []string{"emailPassword", "facebook", "github", "usernamePassword"}, s.auth.Providers())

	resp, err := s.app.Test(httptest.NewRequest(http.MethodGet, "/healthz", nil))
	require.NoError(t, err)
	assert.Equal(t, http.StatusNoContent, resp.StatusCode)

	req := httptest.NewRequest(http.MethodPost, "/auth/signin/email", strings.NewReader(`{"email":"server@test.com","password":"secret"}`))
	req.Header.Set("Content-Type", "application/json")
	resp, err = s.app.Test(req)
	require.NoError(t, err)
	assert.Equal(t, http.StatusOK, resp.StatusCode)

	req = httptest.NewRequest(http.MethodPost, "/auth/signin/email", strings.NewReader(`{"email":"not-an-email","password":"secret"}`))
	req.Header.Set("Content-Type", "application/json")
	resp, err = s.app.Test(req)
	require.NoError(t, err)
	assert.Equal(t, http.StatusBadRequest, resp.StatusCode)

	resp, err = s.app.Test(httptest.NewRequest(http.MethodGet, "/metrics", nil))
	require.NoError(t, err)
	body, err := io.ReadAll(resp.Body)
	require.NoError(t, err)
	assert.Contains(t, string(body), "authist_events_total")
	assert.Contains(t, string(body), "authist_failures_total")
}
