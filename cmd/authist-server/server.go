package main

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"net/http"

	"github.com/gofiber/fiber/v2"
	"github.com/gofiber/fiber/v2/middleware/adaptor"
	"github.com/goliatone/go-print"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/redis/go-redis/v9"
	"github.com/rs/zerolog"
	"github.com/uptrace/bun"
	"github.com/uptrace/bun/dialect/sqlitedialect"
	"github.com/uptrace/bun/driver/sqliteshim"

	"github.com/goliatone/go-authist"
	"github.com/goliatone/go-authist/adapters/fiberauth"
	"github.com/goliatone/go-authist/internal/config"
	"github.com/goliatone/go-authist/internal/logging"
	"github.com/goliatone/go-authist/metrics"
	"github.com/goliatone/go-authist/revocation"
	"github.com/goliatone/go-authist/social/providers/facebook"
	"github.com/goliatone/go-authist/social/providers/github"
	"github.com/goliatone/go-authist/social/providers/google"
	"github.com/goliatone/go-authist/social/providers/oidc"
	"github.com/goliatone/go-authist/store/bunstore"
	"github.com/goliatone/go-authist/store/pgxstore"
)

// identityStore is the storage surface shared by bunstore and pgxstore.
type identityStore interface {
	GetUserByID(ctx context.Context, uid string) (*authist.User, error)
	GetIdentityByEmail(ctx context.Context, email string) (*authist.Identity, error)
	GetIdentityByUsername(ctx context.Context, username string) (*authist.Identity, error)
	SaveIdentity(ctx context.Context, info authist.UserInfo, hashed string) (*authist.User, error)
	SaveProfileIdentity(ctx context.Context, info authist.UserInfo, profile *authist.Profile) (*authist.User, error)
	UpdatePassword(ctx context.Context, hashed string, user *authist.User) error
	CreateSchema(ctx context.Context) error
}

type server struct {
	cfg     *config.App
	logger  zerolog.Logger
	app     *fiber.App
	auth    *authist.Authist
	closers []func() error
}

func newServer(ctx context.Context, cfg *config.App) (*server, error) {
	logger := logging.New(cfg.Name, cfg.Env, cfg.Debug)
	authLogger := authist.NewZerologLogger(logger)

	if cfg.Debug {
		logger.Debug().Msg(print.MaybePrettyJSON(cfg.Redacted()))
	}

	s := &server{cfg: cfg, logger: logger}

	store, activity, err := s.openStore(ctx)
	if err != nil {
		s.close()
		return nil, err
	}
	if err := store.CreateSchema(ctx); err != nil {
		s.close()
		return nil, fmt.Errorf("create schema: %w", err)
	}

	revocations, err := s.openRevocations(ctx)
	if err != nil {
		s.close()
		return nil, err
	}

	collector, err := metrics.New(prometheus.DefaultRegisterer)
	if err != nil {
		s.close()
		return nil, fmt.Errorf("register metrics: %w", err)
	}

	tokenOpts := authist.TokenOptions{
		Lifetime:        cfg.Token.Lifetime,
		RefreshLifetime: cfg.Token.RefreshLifetime,
		Secret:          cfg.Token.Secret,
		JWKSURL:         cfg.Token.JWKSURL,
		Issuer:          cfg.Token.Issuer,
		Audience:        cfg.Token.Audience,
		RevocationStore: revocations,
	}
	if cfg.Token.PrivateKeyFile != "" {
		signer, err := config.LoadSigner(cfg.Token.PrivateKeyFile)
		if err != nil {
			s.close()
			return nil, err
		}
		tokenOpts.PrivateKey = signer
	}

	oauth, err := s.oauthProviders(ctx, store)
	if err != nil {
		s.close()
		return nil, err
	}

	passwordPolicy := authist.PasswordPolicy(cfg.Password.MinLength, cfg.Password.MaxLength)

	auth, err := authist.New(authist.Options{
		Token:       tokenOpts,
		GetUserByID: store.GetUserByID,
		EmailPassword: &authist.PasswordProviderOptions{
			GetIdentity:             store.GetIdentityByEmail,
			SaveNonExistingIdentity: store.SaveIdentity,
			ValidateIdentity:        authist.RequireEmailFormat,
			UpdatePassword:          store.UpdatePassword,
			ValidatePassword:        passwordPolicy,
			BcryptCost:              cfg.Password.BcryptCost,
			AutoRegister:            cfg.Password.AutoRegister,
			SendResetPasswordEmail: func(_ context.Context, _ string, user *authist.User) error {
				logger.Info().Str("uid", user.UID).Msg("password reset requested, no mailer configured")
				return nil
			},
		},
		UsernamePassword: &authist.PasswordProviderOptions{
			GetIdentity:             store.GetIdentityByUsername,
			SaveNonExistingIdentity: store.SaveIdentity,
			BcryptCost:              cfg.Password.BcryptCost,
			AutoRegister:            cfg.Password.AutoRegister,
		},
		OAuth:                   oauth,
		OnAuthenticationFailure: collector.OnFailure,
		ActivitySink:            metrics.Fanout(collector, activity),
		Logger:                  authLogger,
	})
	if err != nil {
		s.close()
		return nil, err
	}
	s.auth = auth
	s.closers = append(s.closers, func() error {
		auth.Close()
		return nil
	})

	s.app = fiber.New(fiber.Config{
		AppName:               cfg.Name,
		DisableStartupMessage: cfg.IsProduction(),
	})
	s.app.Use(logging.Requests(logger))
	s.app.Get("/healthz", func(c *fiber.Ctx) error {
		return c.SendStatus(fiber.StatusNoContent)
	})
	s.app.Get("/metrics", adaptor.HTTPHandler(promhttp.Handler()))

	fiberauth.New(auth, fiberauth.Config{
		ExposeResetToken: cfg.Password.ExposeResetToken && !cfg.IsProduction(),
		ConfirmPassword:  cfg.Password.RequireConfirm,
		Logger:           authLogger,
	}).RegisterRoutes(s.app)

	logger.Info().Strs("providers", auth.Providers()).Msg("authist ready")
	return s, nil
}

// openStore picks pgx for postgres DSNs and Bun over SQLite otherwise.
// The returned sink is nil when the store does not persist activity.
func (s *server) openStore(ctx context.Context) (identityStore, authist.ActivitySink, error) {
	if s.cfg.Database.UsesPostgres() {
		pool, err := pgxpool.New(ctx, s.cfg.Database.DSN)
		if err != nil {
			return nil, nil, fmt.Errorf("connect postgres: %w", err)
		}
		s.closers = append(s.closers, func() error {
			pool.Close()
			return nil
		})
		if err := pool.Ping(ctx); err != nil {
			return nil, nil, fmt.Errorf("ping postgres: %w", err)
		}
		store := pgxstore.New(pool)
		return store, store.ActivitySink(), nil
	}

	sqldb, err := sql.Open(sqliteshim.ShimName, s.cfg.Database.DSN)
	if err != nil {
		return nil, nil, fmt.Errorf("open sqlite: %w", err)
	}
	sqldb.SetMaxOpenConns(1)

	db := bun.NewDB(sqldb, sqlitedialect.New())
	s.closers = append(s.closers, db.Close)

	var opts []bunstore.Option
	if s.cfg.Database.Hashid {
		opts = append(opts, bunstore.WithHashid())
	}
	store := bunstore.New(db, opts...)
	return store, store.ActivityLog(), nil
}

func (s *server) openRevocations(ctx context.Context) (authist.RevocationStore, error) {
	if s.cfg.Redis.Addr == "" {
		s.logger.Warn().Msg("REDIS_ADDR not set, refresh token revocations are kept in memory")
		return revocation.NewMemoryStore(), nil
	}

	client, err := revocation.DialRedis(ctx, s.cfg.Redis.Addr, s.cfg.Redis.Password, s.cfg.Redis.DB)
	if err != nil {
		return nil, err
	}
	s.closers = append(s.closers, client.Close)
	return revocation.NewRedisStore(redis.UniversalClient(client), s.cfg.Redis.KeyPrefix), nil
}

func (s *server) oauthProviders(ctx context.Context, store identityStore) (map[string]*authist.OAuthProviderOptions, error) {
	var fetchers []authist.ProfileFetcher
	p := s.cfg.Providers

	if p.Google {
		fetchers = append(fetchers, google.New(google.Config{PhoneRegion: p.PhoneRegion}))
	}
	if p.GitHub {
		fetchers = append(fetchers, github.New(github.Config{}))
	}
	if p.Facebook {
		fetchers = append(fetchers, facebook.New(facebook.Config{}))
	}
	if p.Instagram {
		fetchers = append(fetchers, facebook.NewInstagram(facebook.Config{}))
	}
	if p.OIDCIssuer != "" {
		fetcher, err := oidc.New(ctx, oidc.Config{
			Name:     p.OIDCName,
			Issuer:   p.OIDCIssuer,
			ClientID: p.OIDCClientID,
		})
		if err != nil {
			return nil, err
		}
		fetchers = append(fetchers, fetcher)
	}

	providers := make(map[string]*authist.OAuthProviderOptions, len(fetchers))
	for _, fetcher := range fetchers {
		providers[fetcher.Name()] = &authist.OAuthProviderOptions{
			Fetcher:                 fetcher,
			GetIdentity:             store.GetIdentityByEmail,
			SaveNonExistingIdentity: store.SaveProfileIdentity,
		}
	}
	return providers, nil
}

// Run serves until ctx is cancelled, then shuts down gracefully.
func (s *server) Run(ctx context.Context) error {
	defer s.close()

	errs := make(chan error, 1)
	go func() {
		s.logger.Info().Str("addr", s.cfg.HTTPAddr).Msg("http server listening")
		errs <- s.app.Listen(s.cfg.HTTPAddr)
	}()

	select {
	case err := <-errs:
		if err != nil && !errors.Is(err, http.ErrServerClosed) {
			return err
		}
		return nil
	case <-ctx.Done():
	}

	s.logger.Info().Msg("shutting down")
	return s.app.ShutdownWithTimeout(s.cfg.ShutdownTimeout)
}

func (s *server) close() {
	for i := len(s.closers) - 1; i >= 0; i-- {
		if err := s.closers[i](); err != nil {
			s.logger.Warn().Err(err).Msg("close failed")
		}
	}
	s.closers = nil
}
