package config

import (
	"crypto/ecdsa"
	"crypto/ed25519"
	"crypto/elliptic"
	"crypto/rand"
	"crypto/rsa"
	"crypto/x509"
	"encoding/pem"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestLoadDefaults(t *testing.T) {
	cfg, err := Load()
	require.NoError(t, err)

	assert.Equal(t, "authist", cfg.Name)
	assert.Equal(t, ":8080", cfg.HTTPAddr)
	assert.Equal(t, time.Hour, cfg.Token.Lifetime)
	assert.Equal(t, 24*time.Hour, cfg.Token.RefreshLifetime)
	assert.True(t, cfg.Password.AutoRegister)
	assert.Equal(t, 12, cfg.Password.BcryptCost)
	assert.False(t, cfg.Database.UsesPostgres())
	assert.False(t, cfg.IsProduction())
}

func TestLoadFromEnv(t *testing.T) {
	t.Setenv("APP_ENV", "production")
	t.Setenv("AUTHIST_SECRET", "s3cret")
	t.Setenv("AUTHIST_TOKEN_LIFETIME", "10m")
	t.Setenv("AUTHIST_AUDIENCE", "api,web")
	t.Setenv("DATABASE_DSN", "postgres://user:pw@localhost/authist")
	t.Setenv("REDIS_PASSWORD", "redis-pw")
	t.Setenv("AUTHIST_GOOGLE", "true")

	cfg, err := Load()
	require.NoError(t, err)

	assert.True(t, cfg.IsProduction())
	assert.Equal(t, 10*time.Minute, cfg.Token.Lifetime)
	assert.Equal(t, []string{"api", "web"}, cfg.Token.Audience)
	assert.True(t, cfg.Database.UsesPostgres())
	assert.True(t, cfg.Providers.Google)

	redacted := cfg.Redacted()
	assert.Equal(t, "******", redacted.Token.Secret)
	assert.Equal(t, "******", redacted.Redis.Password)
	assert.Equal(t, "******", redacted.Database.DSN)
	assert.Equal(t, "s3cret", cfg.Token.Secret)
}

func TestLoadRejectsInvalid(t *testing.T) {
	t.Setenv("AUTHIST_REFRESH_LIFETIME", "0s")
	_, err := Load()
	assert.Error(t, err)
}

func TestLoadRequiresOIDCClient(t *testing.T) {
	t.Setenv("AUTHIST_OIDC_ISSUER", "https://idp.example.com")
	_, err := Load()
	assert.Error(t, err)
}

func writePEM(t *testing.T, blockType string, der []byte) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "key.pem")
	require.NoError(t, os.WriteFile(path, pem.EncodeToMemory(&pem.Block{Type: blockType, Bytes: der}), 0o600))
	return path
}

func TestLoadSigner(t *testing.T) {
	rsaKey, err := rsa.GenerateKey(rand.Reader, 2048)
	require.NoError(t, err)
	ecKey, err := ecdsa.GenerateKey(elliptic.P256(), rand.Reader)
	require.NoError(t, err)
	_, edKey, err := ed25519.GenerateKey(rand.Reader)
	require.NoError(t, err)

	pkcs8, err := x509.MarshalPKCS8PrivateKey(edKey)
	require.NoError(t, err)
	sec1, err := x509.MarshalECPrivateKey(ecKey)
	require.NoError(t, err)

	signer, err := LoadSigner(writePEM(t, "PRIVATE KEY", pkcs8))
	require.NoError(t, err)
	assert.IsType(t, ed25519.PrivateKey{}, signer)

	signer, err = LoadSigner(writePEM(t, "RSA PRIVATE KEY", x509.MarshalPKCS1PrivateKey(rsaKey)))
	require.NoError(t, err)
	assert.IsType(t, &rsa.PrivateKey{}, signer)

	signer, err = LoadSigner(writePEM(t, "EC PRIVATE KEY", sec1))
	require.NoError(t, err)
	assert.IsType(t, &ecdsa.PrivateKey{}, signer)

	rsaPKCS8, err := x509.MarshalPKCS8PrivateKey(rsaKey)
	require.NoError(t, err)
	signer, err = ParseSigner(pem.EncodeToMemory(&pem.Block{Type: "PRIVATE KEY", Bytes: rsaPKCS8}))
	require.NoError(t, err)
	assert.IsType(t, &rsa.PrivateKey{}, signer)

	ecPKCS8, err := x509.MarshalPKCS8PrivateKey(ecKey)
	require.NoError(t, err)
	signer, err = ParseSigner(pem.EncodeToMemory(&pem.Block{Type: "PRIVATE KEY", Bytes: ecPKCS8}))
	require.NoError(t, err)
	assert.IsType(t, &ecdsa.PrivateKey{}, signer)

	_, err = ParseSigner([]byte("not pem"))
	assert.Error(t, err)

	_, err = ParseSigner(pem.EncodeToMemory(&pem.Block{Type: "PRIVATE KEY", Bytes: []byte("garbage")}))
	assert.ErrorContains(t, err, "unsupported key type")

	_, err = LoadSigner(filepath.Join(t.TempDir(), "missing.pem"))
	assert.Error(t, err)
}
