package config

import (
	"strings"
	"time"
)

// HTTPConfig contains HTTP server configuration.
type HTTPConfig struct {
	// Addr is the address to bind the HTTP server to.
	Addr string `env:"HTTP_ADDR" envDefault:":8080"`

	// CookieDomain is the domain for session cookies.
	// Leave empty to use the request domain.
	CookieDomain string `env:"APP_COOKIE_DOMAIN" envDefault:""`

	// UpstreamURL is the storefront origin that guarded routes are proxied to.
	// When empty, guarded routes answer with the signed-in profile.
	UpstreamURL string `env:"UPSTREAM_URL" envDefault:""`

	// ShutdownTimeout bounds graceful shutdown.
	ShutdownTimeout time.Duration `env:"HTTP_SHUTDOWN_TIMEOUT" envDefault:"10s"`
}

// Sanitize applies guardrails to HTTP configuration values.
func (h *HTTPConfig) Sanitize() {
	h.UpstreamURL = strings.TrimRight(strings.TrimSpace(h.UpstreamURL), "/")
	if h.ShutdownTimeout <= 0 {
		h.ShutdownTimeout = 10 * time.Second
	}
	if strings.TrimSpace(h.Addr) == "" {
		h.Addr = ":8080"
	}
}
