package httpx

import (
	"io/fs"
	"log/slog"
	"net/http"
	"os"

	storefrontgate "github.com/target/storefront-gate"
	"github.com/target/storefront-gate/internal/domain/guard"
	"github.com/target/storefront-gate/internal/service"
)

// RouterServices holds all the services needed by the HTTP router.
type RouterServices struct {
	Auth    AuthServiceInterface // Optional: auth endpoints are not registered when nil
	State   StateWatcher         // Required when Routes protects anything
	Metrics *service.GuardMetrics
	Routes  *RouteTable
	// Optional: guarded routes and every unclaimed path are proxied here.
	// When nil, guarded routes answer with WhoAmI and unclaimed paths 404.
	Upstream     http.Handler
	HealthChecks map[string]HealthCheck
	// UnauthorizedPath serves the access-denied page. Defaults to /unauthorized.
	UnauthorizedPath string
	CookieDomain     string
	IsDev        bool         // Re-parse templates from disk on every render
	Logger       *slog.Logger // Logger for template and HTTP errors (optional)
}

// NewRouter creates and configures a new HTTP router with browser middleware.
func NewRouter(services RouterServices) http.Handler {
	logger := services.Logger
	if logger == nil {
		logger = slog.Default()
	}
	mux := http.NewServeMux()
	renderer := setupRenderer(services.IsDev, logger)
	pages := &PageHandlers{Renderer: renderer}

	mux.Handle("GET /healthz", http.HandlerFunc(healthHandler))
	mux.Handle("HEAD /healthz", http.HandlerFunc(healthHandler))
	mux.Handle("GET /readyz", readinessHandler(services.HealthChecks))
	unauthorized := services.UnauthorizedPath
	if unauthorized == "" {
		unauthorized = guard.DefaultRoutes().Unauthorized
	}
	mux.HandleFunc("GET "+unauthorized, pages.Unauthorized)

	if services.Auth != nil {
		registerAuthRoutes(mux, &AuthHandlers{
			Svc:          services.Auth,
			Renderer:     renderer,
			CookieDomain: services.CookieDomain,
			Logger:       logger,
		})
	}
	if services.State != nil {
		registerStateRoutes(mux, &StateHandlers{
			State:   services.State,
			Metrics: services.Metrics,
			Routes:  services.Routes,
			Logger:  logger,
		})
	}

	content := services.Upstream
	if content == nil {
		content = http.HandlerFunc(pages.WhoAmI)
	}
	rootClaimed := registerProtectedRoutes(mux, services, content, renderer)

	if !rootClaimed {
		fallback := services.Upstream
		if fallback == nil {
			fallback = http.HandlerFunc(pages.NotFound)
		}
		mux.Handle("/", fallback)
	}

	// Apply browser detection middleware
	return BrowserDetection()(mux)
}

// setupRenderer loads page templates from disk in dev mode and from the
// embedded copy otherwise. Pages degrade to plain text when parsing fails.
func setupRenderer(isDev bool, logger *slog.Logger) *TemplateRenderer {
	var templateFS fs.FS
	if isDev {
		templateFS = os.DirFS(TemplatePathFromRoot)
	} else {
		sub, err := fs.Sub(storefrontgate.TemplateFS, TemplatePathFromRoot)
		if err != nil {
			logger.Error("failed to open embedded templates", slog.Any("error", err))
			return nil
		}
		templateFS = sub
	}

	tr, err := NewTemplateRenderer(TemplateRendererConfig{
		TemplateFS: templateFS,
		DevMode:    isDev,
		Logger:     logger,
	})
	if err != nil {
		logger.Error("failed to create template renderer", slog.Any("error", err))
		return nil
	}
	return tr
}

// registerProtectedRoutes wraps content in a Guarded middleware per route and
// reports whether a route claimed the root pattern.
func registerProtectedRoutes(mux *http.ServeMux, services RouterServices, content http.Handler, renderer *TemplateRenderer) bool {
	rootClaimed := false
	for _, rt := range services.Routes.Routes() {
		guarded := Guarded(GuardedOptions{
			Guard:    rt.Guard,
			State:    services.State,
			Metrics:  services.Metrics,
			Renderer: renderer,
			Logger:   services.Logger,
		})
		mux.Handle(rt.Pattern, guarded(content))
		if rt.Pattern == "/" {
			rootClaimed = true
		}
	}
	return rootClaimed
}

func registerAuthRoutes(mux *http.ServeMux, h *AuthHandlers) {
	mux.HandleFunc("GET "+PathLogin, h.Login)
	mux.HandleFunc("GET /auth/callback", h.Callback)
	mux.HandleFunc("POST /auth/logout", h.Logout)
	mux.HandleFunc("GET /auth/status", h.Status)
	mux.HandleFunc("GET "+PathSignedOut, h.SignedOut)
	mux.HandleFunc("GET "+PathVerifyEmail, h.VerifyEmail)
}

func registerStateRoutes(mux *http.ServeMux, h *StateHandlers) {
	mux.HandleFunc("GET /auth/state", h.Current)
	mux.HandleFunc("GET /auth/state/stream", h.Stream)
}
