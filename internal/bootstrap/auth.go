package bootstrap

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"log/slog"

	"github.com/redis/go-redis/v9"

	"github.com/target/storefront-gate/config"
	"github.com/target/storefront-gate/internal/adapters/authroles"
	"github.com/target/storefront-gate/internal/adapters/devauth"
	"github.com/target/storefront-gate/internal/adapters/jwtauth"
	"github.com/target/storefront-gate/internal/adapters/memstate"
	"github.com/target/storefront-gate/internal/adapters/oidc"
	redisadapter "github.com/target/storefront-gate/internal/adapters/redis"
	"github.com/target/storefront-gate/internal/data"
	"github.com/target/storefront-gate/internal/observability/statsd"
	"github.com/target/storefront-gate/internal/ports"
	"github.com/target/storefront-gate/internal/service"
)

const (
	sessionKeyPrefix = "session:"
	stateChanPrefix  = "authstate:"
)

// AuthConfig contains configuration for the auth services.
type AuthConfig struct {
	Auth        config.AuthConfig
	RedisClient redis.UniversalClient
	PubSub      bool    // fan state changes out over Redis; in-process only when false
	DB          *sql.DB // profile store; nil serves the role captured in the session
	Metrics     statsd.Sink
	Logger      *slog.Logger
}

// AuthServices bundles the services built by BuildAuthServices.
type AuthServices struct {
	Auth     *service.AuthService
	Profiles *service.ProfileService
	State    *service.AuthStateService
	Tokens   *jwtauth.Verifier // nil when bearer tokens are disabled
}

// BuildAuthServices wires the provider selected by the auth mode, Redis
// sessions, role mapping, profiles and the state bus.
func BuildAuthServices(ctx context.Context, cfg AuthConfig) (*AuthServices, error) {
	if cfg.RedisClient == nil {
		return nil, errors.New("auth services require a redis client")
	}
	logger := cfg.Logger
	if logger == nil {
		logger = slog.Default()
	}

	provider, err := buildAuthProvider(ctx, cfg.Auth, logger)
	if err != nil {
		return nil, err
	}
	roles, err := buildRoleMapper(cfg.Auth)
	if err != nil {
		return nil, err
	}
	tokens, err := buildTokenVerifier(cfg.Auth)
	if err != nil {
		return nil, err
	}

	var store ports.ProfileStore
	if cfg.DB != nil {
		store = data.NewProfileRepo(cfg.DB)
	}
	profiles := service.NewProfileService(service.ProfileServiceOptions{Store: store, Logger: logger})
	bus := buildStateBus(cfg.RedisClient, cfg.PubSub, logger)

	authSvc := service.NewAuthService(service.AuthServiceOptions{
		Provider: provider,
		Sessions: redisadapter.NewSessionStoreWithPrefix(cfg.RedisClient, sessionKeyPrefix),
		Roles:    roles,
		Extras: service.AuthServiceExtras{
			Profiles:   profiles,
			Bus:        bus,
			Logger:     logger,
			SessionTTL: cfg.Auth.SessionTTL,
		},
	})

	stateCfg := service.AuthStateConfig{
		Bus:     bus,
		Metrics: cfg.Metrics,
		Logger:  logger,
		Timeout: cfg.Auth.ResolveTimeout,
	}
	if tokens != nil {
		stateCfg.Tokens = tokens
	}

	return &AuthServices{
		Auth:     authSvc,
		Profiles: profiles,
		State: service.NewAuthStateService(service.AuthStateServiceOptions{
			Auth:     authSvc,
			Profiles: profiles,
			Config:   stateCfg,
		}),
		Tokens: tokens,
	}, nil
}

//nolint:ireturn // the auth mode picks the provider implementation at runtime.
func buildAuthProvider(ctx context.Context, cfg config.AuthConfig, logger *slog.Logger) (ports.AuthProvider, error) {
	switch cfg.Mode {
	case config.AuthModeMock:
		logger.Warn("mock auth mode enabled; every login signs in as the dev identity",
			"user_id", cfg.DevAuth.UserID,
			"groups", cfg.DevAuth.Groups)
		prov, err := devauth.NewProvider(devauth.Config{
			UserID:          cfg.DevAuth.UserID,
			Email:           cfg.DevAuth.Email,
			FirstName:       cfg.DevAuth.FirstName,
			LastName:        cfg.DevAuth.LastName,
			Groups:          cfg.DevAuth.Groups,
			SessionDuration: cfg.SessionTTL,
		})
		if err != nil {
			return nil, fmt.Errorf("dev auth provider: %w", err)
		}
		return prov, nil

	case config.AuthModeOAuth:
		oauth := cfg.OAuth
		prov, err := oidc.NewProvider(ctx, oidc.ProviderConfig{
			ClientID:     oauth.ClientID,
			ClientSecret: oauth.ClientSecret,
			RedirectURL:  oauth.RedirectURL,
			Scope:        oauth.Scope,
			DiscoveryURL: oauth.DiscoveryURL,
		})
		if err != nil {
			return nil, fmt.Errorf("oidc provider: %w", err)
		}
		return prov, nil

	default:
		return nil, fmt.Errorf("unsupported auth mode %q", cfg.Mode)
	}
}

// buildRoleMapper maps IdP groups onto roles, consulting the configured
// JMESPath claim first when one is set.
//
//nolint:ireturn // the claim mapper wraps the static mapper only when configured.
func buildRoleMapper(cfg config.AuthConfig) (ports.RoleMapper, error) {
	static := authroles.StaticRoleMapper{
		AdminGroup:   cfg.AdminGroup,
		ManagerGroup: cfg.ManagerGroup,
	}
	if cfg.OAuth.RoleClaim == "" {
		return static, nil
	}
	m, err := authroles.NewClaimRoleMapper(cfg.OAuth.RoleClaim, static)
	if err != nil {
		return nil, fmt.Errorf("role claim: %w", err)
	}
	return m, nil
}

func buildTokenVerifier(cfg config.AuthConfig) (*jwtauth.Verifier, error) {
	if !cfg.BearerEnabled() {
		return nil, nil //nolint:nilnil // bearer auth is optional
	}
	v, err := jwtauth.NewVerifier(jwtauth.Options{
		Secret: []byte(cfg.TokenSecret),
		Issuer: cfg.TokenIssuer,
	})
	if err != nil {
		return nil, fmt.Errorf("token verifier: %w", err)
	}
	return v, nil
}

//nolint:ireturn // Redis Pub/Sub or the in-process bus depending on config.
func buildStateBus(client redis.UniversalClient, pubsub bool, logger *slog.Logger) ports.StateBus {
	if client == nil || !pubsub {
		return memstate.New()
	}
	return redisadapter.NewStateBus(redisadapter.StateBusOptions{
		Client: client,
		Prefix: stateChanPrefix,
		Logger: logger,
	})
}
