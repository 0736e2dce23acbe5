package httpx

import (
	"context"
	"errors"
	"log/slog"
	"net/http"

	domainauth "github.com/target/storefront-gate/internal/domain/auth"
	"github.com/target/storefront-gate/internal/domain/guard"
	"github.com/target/storefront-gate/internal/service"
)

// StateResolver turns request credentials into an auth state.
type StateResolver interface {
	Resolve(ctx context.Context, creds service.Credentials) domainauth.AuthState
}

// GuardedOptions configures the Guarded middleware.
type GuardedOptions struct {
	Guard    guard.Guard
	State    StateResolver         // Required
	Metrics  *service.GuardMetrics // Optional: decisions are still made when nil
	Renderer *TemplateRenderer     // Optional: plain-text pages when nil
	Logger   *slog.Logger
}

// Guarded returns a middleware that resolves the caller's auth state,
// evaluates opts.Guard for the request location and applies the intent:
//   - render: the state is stored in the request context and next runs;
//   - loading: 503 with Retry-After so the client asks again;
//   - redirect to login: 303 for browsers, Hx-Redirect for HTMX, 401 for APIs;
//   - redirect to unauthorized: 303 for browsers, Hx-Redirect for HTMX, 403 for APIs.
func Guarded(opts GuardedOptions) func(http.Handler) http.Handler {
	if opts.State == nil {
		panic("Guarded requires a StateResolver")
	}
	logger := opts.Logger
	if logger == nil {
		logger = slog.Default()
	}

	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			st := opts.State.Resolve(r.Context(), credentialsFromRequest(r))
			d := opts.Metrics.Decide(r.Context(), opts.Guard, st, redirectPathForRequest(r))

			switch d.Intent.Kind {
			case guard.KindRender:
				next.ServeHTTP(w, r.WithContext(SetAuthStateInContext(r.Context(), st)))
			case guard.KindLoading:
				writeLoading(w, r, opts.Renderer)
			case guard.KindRedirect:
				if d.Outcome == guard.OutcomeUnauthenticated {
					writeLoginRedirect(w, r, d.Intent)
					return
				}
				writeUnauthorized(w, r, d.Intent)
			default:
				logger.ErrorContext(r.Context(), "unhandled guard intent", "intent", d.Intent.String())
				WriteError(w, ErrorParams{
					Code:    http.StatusInternalServerError,
					ErrCode: "guard_failed",
					Err:     errors.New("unable to authorize request"),
				})
			}
		})
	}
}

// credentialsFromRequest collects the bearer token and session cookie.
func credentialsFromRequest(r *http.Request) service.Credentials {
	creds := service.Credentials{BearerToken: bearerToken(r)}
	if c, err := r.Cookie(cookieSession); err == nil {
		creds.SessionID = c.Value
	}
	return creds
}

func writeLoading(w http.ResponseWriter, r *http.Request, renderer *TemplateRenderer) {
	w.Header().Set("Retry-After", "1")
	w.Header().Set("Cache-Control", "no-store")
	if !IsBrowserRequest(r) {
		WriteError(w, ErrorParams{
			Code:    http.StatusServiceUnavailable,
			ErrCode: "auth_pending",
			Err:     errors.New("authentication state is still resolving"),
		})
		return
	}
	renderPage(w, r, renderer, http.StatusServiceUnavailable, PageData{
		Title:       "Signing you in",
		Page:        PageLoading,
		AutoRefresh: true,
	})
}

func writeLoginRedirect(w http.ResponseWriter, r *http.Request, in guard.Intent) {
	target := withRedirectURI(in.Target, in.ReturnTo)
	switch {
	case IsHTMX(r):
		SetHXRedirect(w, target)
		w.WriteHeader(http.StatusOK)
	case !IsBrowserRequest(r):
		WriteError(w, ErrorParams{
			Code:    http.StatusUnauthorized,
			ErrCode: "authentication_required",
			Err:     errors.New("authentication required"),
		})
	default:
		http.Redirect(w, r, target, http.StatusSeeOther)
	}
}

func writeUnauthorized(w http.ResponseWriter, r *http.Request, in guard.Intent) {
	switch {
	case IsHTMX(r):
		SetHXRedirect(w, in.Target)
		w.WriteHeader(http.StatusOK)
	case !IsBrowserRequest(r):
		WriteError(w, ErrorParams{
			Code:    http.StatusForbidden,
			ErrCode: "insufficient_permissions",
			Err:     errors.New("insufficient permissions"),
		})
	default:
		http.Redirect(w, r, in.Target, http.StatusSeeOther)
	}
}
