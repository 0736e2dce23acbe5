// Package testutil provides database, Redis and fixture helpers for storefront-gate tests.
// Infrastructure-backed helpers skip the calling test when the service is unreachable,
// unless TEST_REQUIRE_INFRA (or the per-service TEST_REQUIRE_DB / TEST_REQUIRE_REDIS) is set.
package testutil

import (
	"context"
	"database/sql"
	"fmt"
	"net"
	"os"
	"strconv"
	"strings"
	"time"

	// Import pgx driver for database/sql compatibility in tests.
	_ "github.com/jackc/pgx/v5/stdlib"
	"github.com/redis/go-redis/v9"

	"github.com/target/storefront-gate/internal/migrate"
)

// TestingTB covers both *testing.T and *testing.B.
type TestingTB interface {
	Helper()
	Skip(args ...any)
	Skipf(format string, args ...any)
	Fatal(args ...any)
	Fatalf(format string, args ...any)
	Logf(format string, args ...any)
	Cleanup(func())
}

// TestDBConfig holds configuration for the test database.
type TestDBConfig struct {
	Host     string
	Port     string
	User     string
	Password string
	DBName   string
}

// DefaultTestDBConfig reads TEST_DB_* and defaults to the local compose
// profile on port 55432. CI sets TEST_DB_PORT=5432 explicitly.
func DefaultTestDBConfig() TestDBConfig {
	return TestDBConfig{
		Host:     getEnvOrDefault("TEST_DB_HOST", "localhost"),
		Port:     getEnvOrDefault("TEST_DB_PORT", "55432"),
		User:     getEnvOrDefault("TEST_DB_USER", "storefront"),
		Password: getEnvOrDefault("TEST_DB_PASSWORD", "storefront"),
		DBName:   getEnvOrDefault("TEST_DB_NAME", "storefront_gate"),
	}
}

// DSN renders the config as a postgres URL.
func (c TestDBConfig) DSN() string {
	return fmt.Sprintf("postgres://%s:%s@%s/%s?sslmode=%s",
		c.User, c.Password, net.JoinHostPort(c.Host, c.Port), c.DBName,
		getEnvOrDefault("DB_SSL_MODE", "disable"))
}

// SkipIfNoTestDB skips the test if the test database is not reachable.
func SkipIfNoTestDB(t TestingTB) {
	t.Helper()
	db, err := sql.Open("pgx", DefaultTestDBConfig().DSN())
	if err == nil {
		defer db.Close()
		ctx, cancel := context.WithTimeout(context.Background(), 2*time.Second)
		defer cancel()
		err = db.PingContext(ctx)
	}
	if err != nil {
		if requireDB() {
			t.Fatal("Test database not available:", err)
		}
		t.Skip("Test database not available:", err)
	}
}

// SetupTestDB opens the test database, applies migrations and truncates
// storefront tables. The connection is closed on test cleanup.
func SetupTestDB(t TestingTB) *sql.DB {
	t.Helper()
	SkipIfNoTestDB(t)

	db, err := sql.Open("pgx", DefaultTestDBConfig().DSN())
	if err != nil {
		t.Fatal("Failed to open database:", err)
	}
	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()

	if err := migrate.Run(ctx, db); err != nil {
		t.Fatal("Failed to run migrations:", err)
	}
	CleanupTestDB(t, db)
	t.Cleanup(func() {
		CleanupTestDB(t, db)
		if err := db.Close(); err != nil {
			t.Logf("warning: failed to close test db: %v", err)
		}
	})
	return db
}

// CleanupTestDB removes all rows written by tests.
func CleanupTestDB(t TestingTB, db *sql.DB) {
	t.Helper()
	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	if _, err := db.ExecContext(ctx, "DELETE FROM profiles"); err != nil {
		t.Fatalf("Failed to clean up table profiles: %v", err)
	}
}

// GetTestRedisAddr returns the first reachable Redis address among REDIS_ADDR,
// the CI service names and the local test port 56379.
func GetTestRedisAddr(t TestingTB) (string, bool) {
	t.Helper()
	candidates := []string{"redis:6379", "localhost:6379", "localhost:56379"}
	if addr := os.Getenv("REDIS_ADDR"); addr != "" {
		candidates = []string{addr}
	}
	for _, addr := range candidates {
		if pingRedis(addr, 0) == nil {
			return addr, true
		}
	}
	t.Logf("Redis not available at %s", strings.Join(candidates, ", "))
	return candidates[len(candidates)-1], false
}

func pingRedis(addr string, db int) error {
	client := redis.NewClient(&redis.Options{Addr: addr, DB: db})
	defer client.Close()
	ctx, cancel := context.WithTimeout(context.Background(), 2*time.Second)
	defer cancel()
	return client.Ping(ctx).Err()
}

// SetupTestRedis returns a client on a flushed test DB. The DB index comes
// from TEST_REDIS_DB or is reserved with a lock key in DB 0 so parallel
// packages do not flush each other.
func SetupTestRedis(t TestingTB) *redis.Client {
	t.Helper()
	addr, ok := GetTestRedisAddr(t)
	if !ok {
		if requireRedis() {
			t.Fatal("Redis not available for testing")
		}
		t.Skip("Redis not available for testing")
	}

	client := redis.NewClient(&redis.Options{Addr: addr, DB: selectTestRedisDB(t, addr)})
	ctx, cancel := context.WithTimeout(context.Background(), 2*time.Second)
	defer cancel()
	if err := client.FlushDB(ctx).Err(); err != nil {
		_ = client.Close()
		t.Skipf("Redis not usable at %s: %v", addr, err)
	}
	return client
}

func selectTestRedisDB(t TestingTB, addr string) int {
	if v := os.Getenv("TEST_REDIS_DB"); v != "" {
		if i, err := strconv.Atoi(v); err == nil && i >= 0 {
			return i
		}
		t.Logf("Invalid TEST_REDIS_DB=%q, falling back to auto-select", v)
	}

	meta := redis.NewClient(&redis.Options{Addr: addr, DB: 0})
	defer meta.Close()
	for i := 1; i <= 15; i++ {
		lockKey := fmt.Sprintf("storefront-gate:testutil:db_lock:%d", i)
		ctx, cancel := context.WithTimeout(context.Background(), 2*time.Second)
		ok, err := meta.SetNX(ctx, lockKey, strconv.Itoa(os.Getpid()), 30*time.Minute).Result()
		cancel()
		if err != nil || !ok {
			continue
		}
		t.Cleanup(func() {
			c := redis.NewClient(&redis.Options{Addr: addr, DB: 0})
			defer c.Close()
			ctx, cancel := context.WithTimeout(context.Background(), 2*time.Second)
			defer cancel()
			if err := c.Del(ctx, lockKey).Err(); err != nil {
				t.Logf("warning: failed to release redis db lock %s: %v", lockKey, err)
			}
		})
		return i
	}
	t.Logf("Falling back to Redis DB=1 for tests at %s", addr)
	return 1
}

func getEnvOrDefault(key, defaultValue string) string {
	if value := os.Getenv(key); value != "" {
		return value
	}
	return defaultValue
}

func envBool(key string) bool {
	switch strings.ToLower(os.Getenv(key)) {
	case "1", "true", "yes", "y":
		return true
	}
	return false
}

func requireDB() bool    { return envBool("TEST_REQUIRE_DB") || envBool("TEST_REQUIRE_INFRA") }
func requireRedis() bool { return envBool("TEST_REQUIRE_REDIS") || envBool("TEST_REQUIRE_INFRA") }
