package bootstrap

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net"
	"net/http"
	"net/url"
	"time"

	"golang.org/x/sync/errgroup"

	httpx "github.com/target/storefront-gate/internal/http"
)

// BuildHTTPHandler wraps the router with the request middleware chain.
// Order: Recover -> Logging -> Router
func BuildHTTPHandler(services httpx.RouterServices, logger *slog.Logger) http.Handler {
	if logger == nil {
		logger = slog.Default()
	}
	h := httpx.NewRouter(services)
	h = httpx.Logging(logger)(h)
	h = httpx.Recover(logger)(h)
	return h
}

// BuildUpstream returns a reverse proxy to rawURL, or nil when rawURL is empty.
func BuildUpstream(rawURL string, logger *slog.Logger) (http.Handler, error) {
	if rawURL == "" {
		return nil, nil //nolint:nilnil // no upstream configured
	}
	target, err := url.Parse(rawURL)
	if err != nil {
		return nil, fmt.Errorf("parse upstream url: %w", err)
	}
	proxy, err := httpx.NewUpstreamProxy(target, logger)
	if err != nil {
		return nil, err
	}
	return proxy, nil
}

// NewHTTPServer builds the server. WriteTimeout stays unset so state
// streams are not cut off; slow clients are bounded by the read timeouts.
func NewHTTPServer(addr string, handler http.Handler) *http.Server {
	// Guard against empty addr to avoid listening on Go default
	if addr == "" {
		addr = ":8080"
	}
	return &http.Server{
		Addr:              addr,
		Handler:           handler,
		ReadHeaderTimeout: 10 * time.Second,
		ReadTimeout:       30 * time.Second,
		IdleTimeout:       120 * time.Second,
	}
}

// ServeConfig contains dependencies for ServeHTTP.
type ServeConfig struct {
	Server          *http.Server
	ShutdownTimeout time.Duration
	Logger          *slog.Logger
}

// ServeHTTP runs the server until ctx is cancelled, then shuts it down
// gracefully. It returns the first listener or shutdown error.
func ServeHTTP(ctx context.Context, cfg ServeConfig) error {
	if cfg.Server == nil {
		return errors.New("http server is required")
	}
	logger := cfg.Logger
	if logger == nil {
		logger = slog.Default()
	}
	timeout := cfg.ShutdownTimeout
	if timeout <= 0 {
		timeout = 10 * time.Second
	}

	// Request contexts end once shutdown begins so open state streams return.
	base, stopRequests := context.WithCancel(context.WithoutCancel(ctx))
	defer stopRequests()
	cfg.Server.BaseContext = func(net.Listener) context.Context { return base }
	cfg.Server.RegisterOnShutdown(stopRequests)

	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		logger.Info("starting HTTP server", "addr", cfg.Server.Addr)
		if err := cfg.Server.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			return fmt.Errorf("http server: %w", err)
		}
		return nil
	})
	g.Go(func() error {
		<-gctx.Done()
		logger.Info("shutting down HTTP server")
		shutdownCtx, cancel := context.WithTimeout(context.WithoutCancel(ctx), timeout)
		defer cancel()
		if err := cfg.Server.Shutdown(shutdownCtx); err != nil {
			return fmt.Errorf("shutdown http server: %w", err)
		}
		logger.Info("HTTP server stopped")
		return nil
	})
	return g.Wait()
}
