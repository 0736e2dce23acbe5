package httpx

// Page identifiers; each maps to web/templates/<page>.html.
const (
	PageLoading      = "loading"
	PageUnauthorized = "unauthorized"
	PageVerifyEmail  = "verify_email"
	PageNotFound     = "not_found"
	PageSignedOut    = "signed_out"
	PageWhoAmI       = "whoami"
)

// Pages lists every page template the renderer must load.
func Pages() []string {
	return []string{PageLoading, PageUnauthorized, PageVerifyEmail, PageNotFound, PageSignedOut, PageWhoAmI}
}

// Cookie names shared by the auth handlers and the guard middleware.
const (
	cookieSession           = "session_id"
	cookieOAuthState        = "oauth_state"
	cookieOAuthNonce        = "oauth_nonce"
	cookiePostLoginRedirect = "post_login_redirect"
)

// Fixed paths served by this process.
const (
	PathLogin       = "/auth/login"
	PathSignedOut   = "/auth/signed-out"
	PathVerifyEmail = "/auth/verify-email"
)

// TemplatePathFromRoot is where page templates live on disk in dev mode.
const TemplatePathFromRoot = "web/templates"
