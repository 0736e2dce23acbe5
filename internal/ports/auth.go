// Package ports defines interfaces (hexagonal ports) for auth-related behavior.
// Implementations live in internal/adapters and internal/data; orchestration in internal/service.
package ports

import (
	"context"

	domainauth "github.com/target/storefront-gate/internal/domain/auth"
)

// BeginInput carries inputs for initiating an auth flow.
type BeginInput struct {
	RedirectURL string
}

// AuthProvider initiates and completes an authentication flow against an IdP.
type AuthProvider interface {
	// Begin starts the login flow and returns the provider auth URL, an opaque state, and a nonce.
	Begin(ctx context.Context, in BeginInput) (authURL, state, nonce string, err error)

	// Exchange completes the login flow, verifying state and nonce, and returns the authenticated identity.
	Exchange(ctx context.Context, in ExchangeInput) (domainauth.Identity, error)
}

// ExchangeInput groups parameters for the code/token exchange.
type ExchangeInput struct {
	Code  string
	State string
	Nonce string
}

// SessionStore persists and retrieves user sessions.
type SessionStore interface {
	Save(ctx context.Context, sess domainauth.Session) error
	Get(ctx context.Context, id string) (domainauth.Session, error)
	Delete(ctx context.Context, id string) error
}

// RoleMapper maps a provider identity to an application role.
type RoleMapper interface {
	Map(id domainauth.Identity) domainauth.Role
}

// ProfileStore persists role-bearing user profiles.
// Get returns an error wrapping data.ErrProfileNotFound when no row exists.
type ProfileStore interface {
	Get(ctx context.Context, userID string) (*domainauth.Profile, error)
	Upsert(ctx context.Context, p domainauth.Profile) (*domainauth.Profile, error)
	SetRole(ctx context.Context, userID string, role domainauth.Role) (*domainauth.Profile, error)
}

// TokenVerifier validates bearer tokens presented by API clients.
type TokenVerifier interface {
	Verify(ctx context.Context, token string) (domainauth.Identity, error)
}

// StateBus fans out auth state changes keyed by session ID.
type StateBus interface {
	Publish(ctx context.Context, sessionID string, state domainauth.AuthState) error
	// Subscribe returns a channel of pushed states and a cancel func that
	// releases the subscription and closes the channel.
	Subscribe(ctx context.Context, sessionID string) (<-chan domainauth.AuthState, func(), error)
}
