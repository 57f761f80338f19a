package config

import (
	"fmt"
	"strings"
	"time"

	"github.com/caarlos0/env/v10"
)

// App holds the runtime configuration of authist-server.
type App struct {
	Name            string        `env:"APP_NAME" envDefault:"authist"`
	Env             string        `env:"APP_ENV" envDefault:"development"`
	HTTPAddr        string        `env:"HTTP_ADDR" envDefault:":8080"`
	ShutdownTimeout time.Duration `env:"GRACEFUL_SHUTDOWN_TIMEOUT" envDefault:"10s"`
	Debug           bool          `env:"AUTHIST_DEBUG"`

	Token     Token
	Password  Password
	Database  Database
	Redis     Redis
	Providers Providers
}

// Token configures the token codec.
type Token struct {
	Secret          string        `env:"AUTHIST_SECRET"`
	PrivateKeyFile  string        `env:"AUTHIST_PRIVATE_KEY_FILE"`
	JWKSURL         string        `env:"AUTHIST_JWKS_URL"`
	Lifetime        time.Duration `env:"AUTHIST_TOKEN_LIFETIME" envDefault:"60m"`
	RefreshLifetime time.Duration `env:"AUTHIST_REFRESH_LIFETIME" envDefault:"24h"`
	Issuer          string        `env:"AUTHIST_ISSUER"`
	Audience        []string      `env:"AUTHIST_AUDIENCE" envSeparator:","`
}

// Password configures the password providers.
type Password struct {
	AutoRegister     bool `env:"AUTHIST_AUTO_REGISTER" envDefault:"true"`
	BcryptCost       int  `env:"AUTHIST_BCRYPT_COST" envDefault:"12"`
	MinLength        int  `env:"AUTHIST_PASSWORD_MIN" envDefault:"8"`
	MaxLength        int  `env:"AUTHIST_PASSWORD_MAX" envDefault:"72"`
	ExposeResetToken bool `env:"AUTHIST_EXPOSE_RESET_TOKEN"`
	RequireConfirm   bool `env:"AUTHIST_REQUIRE_PASSWORD_CONFIRMATION"`
}

// Database selects the identity store. DSNs starting with postgres:// use
// pgx, anything else is opened as SQLite through Bun.
type Database struct {
	DSN    string `env:"DATABASE_DSN" envDefault:"file:authist.db?cache=shared"`
	Hashid bool   `env:"AUTHIST_HASHID_UIDS"`
}

// Redis enables shared refresh token revocation when Addr is set.
type Redis struct {
	Addr      string `env:"REDIS_ADDR"`
	Password  string `env:"REDIS_PASSWORD"`
	DB        int    `env:"REDIS_DB" envDefault:"0"`
	KeyPrefix string `env:"REDIS_KEY_PREFIX" envDefault:"authist:revoked:"`
}

// Providers toggles the OAuth profile fetchers.
type Providers struct {
	Google       bool   `env:"AUTHIST_GOOGLE"`
	GitHub       bool   `env:"AUTHIST_GITHUB"`
	Facebook     bool   `env:"AUTHIST_FACEBOOK"`
	Instagram    bool   `env:"AUTHIST_INSTAGRAM"`
	OIDCIssuer   string `env:"AUTHIST_OIDC_ISSUER"`
	OIDCClientID string `env:"AUTHIST_OIDC_CLIENT_ID"`
	OIDCName     string `env:"AUTHIST_OIDC_NAME" envDefault:"oidc"`
	PhoneRegion  string `env:"AUTHIST_PHONE_REGION" envDefault:"US"`
}

// Load parses environment variables into App.
func Load() (*App, error) {
	cfg := &App{}
	if err := env.Parse(cfg); err != nil {
		return nil, fmt.Errorf("parse config: %w", err)
	}
	if cfg.Token.Lifetime <= 0 || cfg.Token.RefreshLifetime <= 0 {
		return nil, fmt.Errorf("parse config: token lifetimes must be positive")
	}
	if cfg.Providers.OIDCIssuer != "" && cfg.Providers.OIDCClientID == "" {
		return nil, fmt.Errorf("parse config: AUTHIST_OIDC_CLIENT_ID is required with AUTHIST_OIDC_ISSUER")
	}
	return cfg, nil
}

// IsProduction reports whether Env names a production deployment.
func (a *App) IsProduction() bool {
	return strings.EqualFold(a.Env, "production")
}

// UsesPostgres reports whether the DSN targets PostgreSQL.
func (d Database) UsesPostgres() bool {
	return strings.HasPrefix(d.DSN, "postgres://") || strings.HasPrefix(d.DSN, "postgresql://")
}

// Redacted returns a copy safe to log.
func (a App) Redacted() App {
	a.Token.Secret = redact(a.Token.Secret)
	a.Redis.Password = redact(a.Redis.Password)
	if a.Database.UsesPostgres() {
		a.Database.DSN = redact(a.Database.DSN)
	}
	return a
}

func redact(value string) string {
	if value == "" {
		return ""
	}
	return "******"
}
