package config

import (
	"os"
	"strings"
)

// AppConfig is the main application configuration struct that composes
// domain-specific configuration from separate files.
//
// Configuration is loaded from environment variables using the
// github.com/caarlos0/env library. See individual domain config
// files for details on available environment variables:
//   - auth.go: Authentication and auth state resolution
//   - guard.go: Route guard paths, admin roles and the route policy file
//   - database.go: Postgres profiles and Redis sessions
//   - http.go: HTTP server configuration
//   - observability.go: Metrics
type AppConfig struct {
	// IsDev controls development mode behavior (hot reloading, caching, etc.)
	// Set DEV=true or NODE_ENV=development for development mode.
	IsDev bool `env:"DEV" envDefault:"false"`

	Auth  AuthConfig
	Guard GuardConfig

	Postgres DBConfig       `envPrefix:"DB_"`
	Profiles ProfilesConfig `envPrefix:"PROFILES_"`
	Redis    RedisConfig    `envPrefix:"REDIS_"`

	HTTP HTTPConfig

	Observability ObservabilityConfig
}

// Sanitize applies guardrails to configuration values loaded from env.
// This should be called after loading configuration from environment variables.
func (c *AppConfig) Sanitize() {
	c.Auth.Sanitize()
	c.Guard.Sanitize()
	c.HTTP.Sanitize()
	c.Observability.Sanitize()

	c.detectDevMode()
}

// detectDevMode checks both DEV and NODE_ENV environment variables.
// NODE_ENV is checked as a fallback (common in frontend tooling).
func (c *AppConfig) detectDevMode() {
	if !c.IsDev {
		nodeEnv := strings.ToLower(os.Getenv("NODE_ENV"))
		c.IsDev = nodeEnv == "development" || nodeEnv == "dev"
	}
}
