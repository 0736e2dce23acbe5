package config

import (
	"fmt"
	"strings"
	"time"
)

// AuthMode represents the authentication mode for the application.
type AuthMode string

const (
	// AuthModeOAuth uses OAuth/OIDC for authentication.
	AuthModeOAuth AuthMode = "oauth"
	// AuthModeMock uses mock/dev authentication (for development only).
	AuthModeMock AuthMode = "mock"
)

// UnmarshalText implements encoding.TextUnmarshaler for AuthMode.
func (a *AuthMode) UnmarshalText(text []byte) error {
	v := strings.ToLower(string(text))
	switch v {
	case "oauth", "mock":
		*a = AuthMode(v)
		return nil
	default:
		return fmt.Errorf("invalid AuthMode: %q (valid options: oauth, mock)", v)
	}
}

// OAuthConfig contains OAuth/OIDC configuration.
type OAuthConfig struct {
	ClientID     string `env:"CLIENT_ID"     envDefault:"storefront"`
	ClientSecret string `env:"CLIENT_SECRET" envDefault:"storefront"`
	RedirectURL  string `env:"REDIRECT_URL"  envDefault:"http://localhost:8080/auth/callback"`
	Scope        string `env:"SCOPE"         envDefault:"openid profile email groups"`
	DiscoveryURL string `env:"DISCOVERY_URL"`
	LogoutURL    string `env:"LOGOUT_URL"`
	// RoleClaim is a JMESPath expression evaluated over the raw ID token claims,
	// e.g. "app_metadata.role" or "groups". Empty maps groups only.
	RoleClaim string `env:"ROLE_CLAIM"`
}

// DevAuthConfig controls mock/dev authentication identity.
// Used when AUTH_MODE=mock for development and testing.
type DevAuthConfig struct {
	UserID    string   `env:"USER_ID"    envDefault:"dev-user"`
	Email     string   `env:"EMAIL"      envDefault:"dev@example.com"`
	FirstName string   `env:"FIRST_NAME" envDefault:"Dev"`
	LastName  string   `env:"LAST_NAME"  envDefault:"Shopper"`
	Groups    []string `env:"GROUPS"     envDefault:"customers" envSeparator:";"`
}

// AuthConfig groups all authentication-related configuration.
type AuthConfig struct {
	// Mode determines which authentication provider to use.
	Mode AuthMode `env:"AUTH_MODE" envDefault:"oauth"`

	// OAuth configuration (used when Mode=oauth).
	OAuth OAuthConfig `envPrefix:"OAUTH_"`

	// DevAuth configuration (used when Mode=mock).
	DevAuth DevAuthConfig `envPrefix:"DEV_AUTH_"`

	// AdminGroup and ManagerGroup are IdP group names mapped to the admin and manager roles.
	AdminGroup   string `env:"ADMIN_GROUP"   envDefault:"admins"`
	ManagerGroup string `env:"MANAGER_GROUP" envDefault:"managers"`

	// ResolveTimeout bounds identity resolution per request. Requests that
	// exceed it are answered with the loading placeholder.
	ResolveTimeout time.Duration `env:"AUTH_RESOLVE_TIMEOUT" envDefault:"2s"`

	// SessionTTL applies when the IdP token carries no expiry.
	SessionTTL time.Duration `env:"AUTH_SESSION_TTL" envDefault:"8h"`

	// TokenSecret is the HS256 key for API bearer tokens. Bearer auth is off when empty.
	TokenSecret string `env:"AUTH_TOKEN_SECRET"`
	TokenIssuer string `env:"AUTH_TOKEN_ISSUER" envDefault:"storefront-gate"`
}

// Sanitize applies guardrails to auth configuration values.
func (a *AuthConfig) Sanitize() {
	if a.ResolveTimeout <= 0 {
		a.ResolveTimeout = 2 * time.Second
	}
	if a.SessionTTL <= 0 {
		a.SessionTTL = 8 * time.Hour
	}
	a.OAuth.RoleClaim = strings.TrimSpace(a.OAuth.RoleClaim)
	a.TokenSecret = strings.TrimSpace(a.TokenSecret)
}

// BearerEnabled reports whether API bearer tokens are accepted.
func (a *AuthConfig) BearerEnabled() bool { return a.TokenSecret != "" }
