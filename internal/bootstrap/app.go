package bootstrap

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"log/slog"

	"github.com/redis/go-redis/v9"

	"github.com/target/storefront-gate/config"
	httpx "github.com/target/storefront-gate/internal/http"
	"github.com/target/storefront-gate/internal/observability/statsd"
	"github.com/target/storefront-gate/internal/service"
)

// AppDeps holds the infrastructure handed to Run.
type AppDeps struct {
	Config      *config.AppConfig
	DB          *sql.DB // nil when profiles are disabled
	RedisClient redis.UniversalClient
	Logger      *slog.Logger
}

// BuildRouterServices assembles everything the HTTP router needs.
func BuildRouterServices(ctx context.Context, deps AppDeps) (httpx.RouterServices, func(), error) {
	if deps.Config == nil {
		return httpx.RouterServices{}, nil, errors.New("app config is required")
	}
	cfg := deps.Config
	logger := deps.Logger
	if logger == nil {
		logger = slog.Default()
	}

	client := BuildMetricsSink(cfg.Observability.Metrics, logger)
	cleanup := func() {
		if err := client.Close(); err != nil {
			logger.Warn("close statsd client failed", "error", err)
		}
	}
	var metrics statsd.Sink
	if client != nil {
		metrics = client
	}

	authSvcs, err := BuildAuthServices(ctx, AuthConfig{
		Auth:        cfg.Auth,
		RedisClient: deps.RedisClient,
		PubSub:      cfg.Redis.PubSub,
		DB:          deps.DB,
		Metrics:     metrics,
		Logger:      logger,
	})
	if err != nil {
		cleanup()
		return httpx.RouterServices{}, nil, fmt.Errorf("build auth services: %w", err)
	}

	routes, err := BuildRouteTable(cfg.Guard)
	if err != nil {
		cleanup()
		return httpx.RouterServices{}, nil, fmt.Errorf("build route table: %w", err)
	}

	upstream, err := BuildUpstream(cfg.HTTP.UpstreamURL, logger)
	if err != nil {
		cleanup()
		return httpx.RouterServices{}, nil, err
	}

	return httpx.RouterServices{
		Auth:             authSvcs.Auth,
		State:            authSvcs.State,
		Metrics:          service.NewGuardMetrics(metrics, logger),
		Routes:           routes,
		Upstream:         upstream,
		HealthChecks:     healthChecks(deps),
		UnauthorizedPath: cfg.Guard.UnauthorizedPath,
		CookieDomain:     cfg.HTTP.CookieDomain,
		IsDev:            cfg.IsDev,
		Logger:           logger,
	}, cleanup, nil
}

func healthChecks(deps AppDeps) map[string]httpx.HealthCheck {
	checks := make(map[string]httpx.HealthCheck, 2)
	if deps.RedisClient != nil {
		checks["redis"] = func(ctx context.Context) error { return deps.RedisClient.Ping(ctx).Err() }
	}
	if deps.DB != nil {
		checks["postgres"] = deps.DB.PingContext
	}
	return checks
}

// Run serves the gateway until ctx is cancelled.
func Run(ctx context.Context, deps AppDeps) error {
	services, cleanup, err := BuildRouterServices(ctx, deps)
	if err != nil {
		return err
	}
	defer cleanup()

	logger := services.Logger
	logger.InfoContext(ctx, "guarding routes", "count", len(services.Routes.Routes()),
		"upstream", deps.Config.HTTP.UpstreamURL != "")

	return ServeHTTP(ctx, ServeConfig{
		Server:          NewHTTPServer(deps.Config.HTTP.Addr, BuildHTTPHandler(services, logger)),
		ShutdownTimeout: deps.Config.HTTP.ShutdownTimeout,
		Logger:          logger,
	})
}
