package httpx

import (
	"context"
	"errors"
	"log/slog"
	"net/http"
	"strings"
	"time"

	domainauth "github.com/target/storefront-gate/internal/domain/auth"
	"github.com/target/storefront-gate/internal/service"
)

// AuthServiceInterface defines the interface for auth service operations.
type AuthServiceInterface interface {
	BeginLogin(ctx context.Context, redirectURL string) (*service.BeginLoginResult, error)
	CompleteLogin(ctx context.Context, input service.CompleteLoginInput) (*service.CompleteLoginResult, error)
	GetSession(ctx context.Context, sessionID string) (*domainauth.Session, error)
	Logout(ctx context.Context, sessionID string) error
}

// AuthHandlers provides HTTP handlers for authentication operations.
type AuthHandlers struct {
	Svc          AuthServiceInterface
	Renderer     *TemplateRenderer
	CookieDomain string
	Logger       *slog.Logger
}

func (h *AuthHandlers) logger() *slog.Logger {
	if h != nil && h.Logger != nil {
		return h.Logger
	}
	return slog.Default()
}

// Login handles the login initiation endpoint.
// GET /auth/login?redirect_uri=<optional_redirect>.
func (h *AuthHandlers) Login(w http.ResponseWriter, r *http.Request) {
	// Only same-origin relative paths survive; anything else resumes at "/".
	redirectURI := safeRedirectPath(r.URL.Query().Get("redirect_uri"))

	// Begin login flow
	result, err := h.Svc.BeginLogin(r.Context(), redirectURI)
	if err != nil {
		WriteError(w, ErrorParams{
			Code:    http.StatusInternalServerError,
			ErrCode: "login_failed",
			Err:     err,
		})
		return
	}

	// Store state, nonce, and the original redirect URI in secure cookies
	h.setOAuthCookies(w, r, oauthCookieParams{State: result.State, Nonce: result.Nonce, RedirectURI: redirectURI})

	// Redirect to the identity provider
	http.Redirect(w, r, result.AuthURL, http.StatusFound)
}

// Callback handles the OAuth callback endpoint.
// GET /auth/callback?code=<code>&state=<state>.
func (h *AuthHandlers) Callback(w http.ResponseWriter, r *http.Request) {
	// Read and validate basic params
	code := r.URL.Query().Get("code")
	state := r.URL.Query().Get("state")
	if code == "" {
		WriteError(w, ErrorParams{
			Code:    http.StatusBadRequest,
			ErrCode: "missing_code",
			Err:     errors.New("authorization code is required"),
		})
		return
	}
	if state == "" {
		WriteError(w, ErrorParams{
			Code:    http.StatusBadRequest,
			ErrCode: "missing_state",
			Err:     errors.New("state parameter is required"),
		})
		return
	}

	// Verify state and read nonce
	stateCookie, err := r.Cookie(cookieOAuthState)
	if err != nil || stateCookie.Value != state {
		WriteError(w, ErrorParams{
			Code:    http.StatusBadRequest,
			ErrCode: "invalid_state",
			Err:     errors.New("invalid or missing state parameter"),
		})
		return
	}
	nonceCookie, err := r.Cookie(cookieOAuthNonce)
	if err != nil {
		WriteError(w, ErrorParams{
			Code:    http.StatusBadRequest,
			ErrCode: "missing_nonce",
			Err:     errors.New("missing nonce parameter"),
		})
		return
	}

	// Complete the login flow
	result, err := h.Svc.CompleteLogin(r.Context(), service.CompleteLoginInput{
		Code:  code,
		State: state,
		Nonce: nonceCookie.Value,
	})
	if err != nil {
		WriteError(w, ErrorParams{
			Code:    http.StatusInternalServerError,
			ErrCode: "login_completion_failed",
			Err:     err,
		})
		return
	}

	// Set session cookie and clear temporary OAuth cookies
	h.setSessionCookie(w, r, result.Session)
	h.clearCookie(w, r, cookieOAuthState)
	h.clearCookie(w, r, cookieOAuthNonce)

	// Redirect to the original destination, by way of the verification
	// prompt for accounts that have not confirmed their email yet.
	redirectURI := h.getPostLoginRedirect(w, r)
	if !result.Session.EmailVerified {
		redirectURI = withRedirectURI(PathVerifyEmail, redirectURI)
	}
	http.Redirect(w, r, redirectURI, http.StatusFound)
}

// Logout handles the logout endpoint.
// POST /auth/logout.
func (h *AuthHandlers) Logout(w http.ResponseWriter, r *http.Request) {
	// Get session ID from cookie and invalidate server-side session if present
	if sessionCookie, err := r.Cookie(cookieSession); err == nil {
		if logoutErr := h.Svc.Logout(r.Context(), sessionCookie.Value); logoutErr != nil {
			h.logger().WarnContext(r.Context(), "logout failed", "error", logoutErr)
		}
	}

	// Clear session cookie on the client
	h.clearCookie(w, r, cookieSession)

	// Determine desired post-login destination (where user wanted to be after re-auth)
	redirectURI := r.FormValue("redirect_uri")
	if redirectURI == "" {
		redirectURI = r.URL.Query().Get("redirect_uri")
	}
	if redirectURI == "" {
		redirectURI = "/"
	}
	signedOutURL := withRedirectURI(PathSignedOut, safeRedirectPath(redirectURI))

	// AJAX/HTMX requests get a JSON payload; regular requests redirect
	isAJAX := strings.Contains(r.Header.Get("Accept"), "application/json") ||
		strings.EqualFold(r.Header.Get("Hx-Request"), "true") ||
		strings.EqualFold(r.Header.Get("X-Requested-With"), "XMLHttpRequest")
	if isAJAX {
		WriteJSON(w, http.StatusOK, map[string]string{
			"status":      "success",
			"redirect_to": signedOutURL,
		})
		return
	}

	http.Redirect(w, r, signedOutURL, http.StatusFound)
}

// Status returns the current authentication status.
// GET /auth/status.
func (h *AuthHandlers) Status(w http.ResponseWriter, r *http.Request) {
	sessionCookie, err := r.Cookie(cookieSession)
	if err != nil {
		WriteJSON(w, http.StatusOK, map[string]any{
			"authenticated": false,
		})
		return
	}

	session, err := h.Svc.GetSession(r.Context(), sessionCookie.Value)
	if err != nil {
		// Session is invalid or expired, clear the cookie
		h.clearCookie(w, r, cookieSession)
		WriteJSON(w, http.StatusOK, map[string]any{
			"authenticated": false,
		})
		return
	}

	WriteJSON(w, http.StatusOK, map[string]any{
		"authenticated": true,
		"user": map[string]any{
			"id":             session.UserID,
			"first_name":     session.FirstName,
			"last_name":      session.LastName,
			"email":          session.Email,
			"email_verified": session.EmailVerified,
			"role":           session.Role,
		},
		"expires_at": session.ExpiresAt,
	})
}

// SignedOut renders the signed-out page with a link back into the login flow.
// GET /auth/signed-out?redirect_uri=<path>.
func (h *AuthHandlers) SignedOut(w http.ResponseWriter, r *http.Request) {
	redirectURI := safeRedirectPath(r.URL.Query().Get("redirect_uri"))
	renderPage(w, r, h.Renderer, http.StatusOK, PageData{
		Title:    "Signed out",
		Page:     PageSignedOut,
		Location: redirectURI,
		LoginURL: withRedirectURI(PathLogin, redirectURI),
	})
}

// VerifyEmail prompts the user to confirm their email address.
// GET /auth/verify-email?redirect_uri=<path>.
func (h *AuthHandlers) VerifyEmail(w http.ResponseWriter, r *http.Request) {
	data := PageData{
		Title:    "Verify your email",
		Page:     PageVerifyEmail,
		Location: safeRedirectPath(r.URL.Query().Get("redirect_uri")),
	}
	if c, err := r.Cookie(cookieSession); err == nil {
		if session, getErr := h.Svc.GetSession(r.Context(), c.Value); getErr == nil {
			data.Profile = domainauth.ProfileFromSession(*session)
		}
	}
	renderPage(w, r, h.Renderer, http.StatusOK, data)
}

// clearCookie clears a cookie by setting it to expire immediately.
// It mirrors key attributes (Secure, Path, Domain, SameSite) used when setting cookies
// to maximize compatibility across browsers during deletion.
func (h *AuthHandlers) clearCookie(w http.ResponseWriter, r *http.Request, name string) {
	isSecure := r.TLS != nil || strings.EqualFold(r.Header.Get("X-Forwarded-Proto"), "https")
	cd := h.CookieDomain
	http.SetCookie(w, &http.Cookie{
		Name:     name,
		Value:    "",
		Path:     "/",
		Domain:   cd,
		HttpOnly: true,
		Secure:   isSecure,
		MaxAge:   -1,
		Expires:  time.Unix(0, 0).UTC(),
		SameSite: http.SameSiteLaxMode,
	})
}

// oauthCookieParams groups values needed to set OAuth cookies.
type oauthCookieParams struct {
	State       string
	Nonce       string
	RedirectURI string
}

// setOAuthCookies stores OAuth state, nonce, and the post-login redirect in secure cookies.
func (h *AuthHandlers) setOAuthCookies(w http.ResponseWriter, r *http.Request, p oauthCookieParams) {
	isSecure := r.TLS != nil || strings.EqualFold(r.Header.Get("X-Forwarded-Proto"), "https")
	cd := h.CookieDomain

	http.SetCookie(w, &http.Cookie{
		Name:     cookieOAuthState,
		Value:    p.State,
		Path:     "/",
		Domain:   cd,
		HttpOnly: true,
		Secure:   isSecure,
		SameSite: http.SameSiteLaxMode,
		MaxAge:   600, // 10 minutes
	})

	http.SetCookie(w, &http.Cookie{
		Name:     cookieOAuthNonce,
		Value:    p.Nonce,
		Path:     "/",
		Domain:   cd,
		HttpOnly: true,
		Secure:   isSecure,
		SameSite: http.SameSiteLaxMode,
		MaxAge:   600, // 10 minutes
	})

	http.SetCookie(w, &http.Cookie{
		Name:     cookiePostLoginRedirect,
		Value:    p.RedirectURI,
		Path:     "/",
		Domain:   cd,
		HttpOnly: true,
		Secure:   isSecure,
		SameSite: http.SameSiteLaxMode,
		MaxAge:   600, // 10 minutes
	})
}

// setSessionCookie writes the session cookie based on the session's expiry.
func (h *AuthHandlers) setSessionCookie(w http.ResponseWriter, r *http.Request, s domainauth.Session) {
	isSecure := r.TLS != nil || strings.EqualFold(r.Header.Get("X-Forwarded-Proto"), "https")
	cd := h.CookieDomain
	http.SetCookie(w, &http.Cookie{
		Name:     cookieSession,
		Value:    s.ID,
		Path:     "/",
		Domain:   cd,
		HttpOnly: true,
		Secure:   isSecure,
		SameSite: http.SameSiteLaxMode,
		MaxAge:   int(time.Until(s.ExpiresAt).Seconds()),
	})
}

// getPostLoginRedirect returns the post-login redirect URL and clears the cookie.
func (h *AuthHandlers) getPostLoginRedirect(w http.ResponseWriter, r *http.Request) string {
	redirectURI := "/"
	if redirectCookie, err := r.Cookie(cookiePostLoginRedirect); err == nil {
		redirectURI = safeRedirectPath(redirectCookie.Value)
		h.clearCookie(w, r, cookiePostLoginRedirect)
	}
	return redirectURI
}
