package bootstrap

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"log/slog"
	"net"
	"net/url"
	"strconv"
	"strings"
	"time"

	_ "github.com/jackc/pgx/v5/stdlib" // registers the "pgx" database/sql driver
	"github.com/redis/go-redis/v9"

	"github.com/target/storefront-gate/config"
	"github.com/target/storefront-gate/internal/migrate"
)

const connectTimeout = 5 * time.Second

// DatabaseConfig contains configuration for database connections.
type DatabaseConfig struct {
	DBConfig    config.DBConfig
	RedisConfig config.RedisConfig
	Logger      *slog.Logger
}

// PostgresDSN builds the connection URL, escaping credentials.
func PostgresDSN(cfg config.DBConfig) string {
	u := &url.URL{
		Scheme: "postgres",
		User:   url.UserPassword(cfg.User, cfg.Password),
		Host:   net.JoinHostPort(cfg.Host, strconv.Itoa(cfg.Port)),
		Path:   "/" + cfg.Name,
	}
	q := u.Query()
	q.Set("sslmode", cfg.SSLMode)
	u.RawQuery = q.Encode()
	return u.String()
}

// ConnectDB opens the profile database and verifies it answers.
func ConnectDB(ctx context.Context, cfg DatabaseConfig) (*sql.DB, error) {
	db, err := sql.Open("pgx", PostgresDSN(cfg.DBConfig))
	if err != nil {
		return nil, fmt.Errorf("open database: %w", err)
	}

	// Profile lookups are short point reads.
	db.SetMaxOpenConns(10)
	db.SetMaxIdleConns(5)
	db.SetConnMaxLifetime(5 * time.Minute)

	pingCtx, cancel := context.WithTimeout(ctx, connectTimeout)
	defer cancel()

	if pingErr := db.PingContext(pingCtx); pingErr != nil {
		if closeErr := db.Close(); closeErr != nil {
			pingErr = errors.Join(pingErr, fmt.Errorf("close database connection: %w", closeErr))
		}
		return nil, fmt.Errorf("ping database: %w", pingErr)
	}

	if cfg.Logger != nil {
		cfg.Logger.InfoContext(ctx, "database connected",
			"host", cfg.DBConfig.Host,
			"port", cfg.DBConfig.Port,
			"database", cfg.DBConfig.Name,
		)
	}

	return db, nil
}

// ConnectRedis connects to a single node, a sentinel-managed master or a
// cluster depending on configuration.
//
//nolint:ireturn // returning redis.UniversalClient lets us pick single, sentinel, or cluster clients at runtime.
func ConnectRedis(ctx context.Context, cfg DatabaseConfig) (redis.UniversalClient, error) {
	opts, addrDesc, err := RedisOptions(cfg.RedisConfig)
	if err != nil {
		return nil, err
	}
	client := redis.NewUniversalClient(opts)

	pingCtx, cancel := context.WithTimeout(ctx, connectTimeout)
	defer cancel()

	if pingErr := client.Ping(pingCtx).Err(); pingErr != nil {
		if closeErr := client.Close(); closeErr != nil {
			pingErr = errors.Join(pingErr, fmt.Errorf("close redis client: %w", closeErr))
		}
		return nil, fmt.Errorf("ping redis: %w", pingErr)
	}

	if cfg.Logger != nil {
		cfg.Logger.InfoContext(ctx, "redis connected", "addr", addrDesc)
	}

	return client, nil
}

// RedisOptions maps configuration onto universal client options and returns
// a credential-free description of the target for logs.
func RedisOptions(cfg config.RedisConfig) (*redis.UniversalOptions, string, error) {
	switch {
	case cfg.UseCluster:
		return clusterOptions(cfg)
	case cfg.UseSentinel:
		if len(normalizeAddrs(cfg.SentinelNodes)) == 0 {
			return nil, "", errors.New("redis sentinel configuration requires at least one sentinel node")
		}
		return &redis.UniversalOptions{
			MasterName:       cfg.SentinelMasterName,
			Addrs:            normalizeAddrs(cfg.SentinelNodes),
			Password:         cfg.Password,
			SentinelPassword: cfg.SentinelPassword,
		}, "sentinel:" + cfg.SentinelMasterName, nil
	default:
		return directOptions(cfg)
	}
}

func clusterOptions(cfg config.RedisConfig) (*redis.UniversalOptions, string, error) {
	opts := &redis.UniversalOptions{
		Addrs:         normalizeAddrs(cfg.ClusterNodes),
		Password:      cfg.Password,
		IsClusterMode: true,
	}

	// A redis:// URI may stand in for the node list.
	if len(opts.Addrs) == 0 && strings.TrimSpace(cfg.URI) != "" {
		uri := strings.TrimSpace(cfg.URI)
		if !isRedisURL(uri) {
			opts.Addrs = []string{uri}
		} else {
			parsed, err := redis.ParseURL(uri)
			if err != nil {
				return nil, "", fmt.Errorf("parse redis cluster url: %w", err)
			}
			opts.Addrs = []string{parsed.Addr}
			opts.Username = parsed.Username
			if parsed.Password != "" {
				opts.Password = parsed.Password
			}
			opts.TLSConfig = parsed.TLSConfig
		}
	}

	if len(opts.Addrs) == 0 {
		return nil, "", errors.New("redis cluster configuration requires at least one address")
	}
	return opts, "cluster:" + strings.Join(opts.Addrs, ","), nil
}

func directOptions(cfg config.RedisConfig) (*redis.UniversalOptions, string, error) {
	uri := strings.TrimSpace(cfg.URI)
	if uri == "" {
		return nil, "", errors.New("redis direct configuration requires a URI")
	}
	if !isRedisURL(uri) {
		return &redis.UniversalOptions{Addrs: []string{uri}, Password: cfg.Password}, uri, nil
	}

	parsed, err := redis.ParseURL(uri)
	if err != nil {
		return nil, "", fmt.Errorf("parse redis url: %w", err)
	}
	return &redis.UniversalOptions{
		Addrs:     []string{parsed.Addr},
		Username:  parsed.Username,
		Password:  parsed.Password,
		DB:        parsed.DB,
		TLSConfig: parsed.TLSConfig,
	}, parsed.Addr, nil
}

func normalizeAddrs(raw []string) []string {
	result := make([]string, 0, len(raw))
	for _, addr := range raw {
		if trimmed := strings.TrimSpace(addr); trimmed != "" {
			result = append(result, trimmed)
		}
	}
	return result
}

func isRedisURL(value string) bool {
	return strings.HasPrefix(value, "redis://") || strings.HasPrefix(value, "rediss://")
}

// RunMigrations applies pending profile schema migrations.
func RunMigrations(ctx context.Context, db *sql.DB, logger *slog.Logger) error {
	if err := migrate.Run(ctx, db); err != nil {
		return fmt.Errorf("run migrations: %w", err)
	}

	if logger != nil {
		logger.InfoContext(ctx, "database migrations completed")
	}

	return nil
}
