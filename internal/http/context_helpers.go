package httpx

import (
	"context"

	domainauth "github.com/target/storefront-gate/internal/domain/auth"
)

// authStateKey is an unexported context key type to avoid collisions across packages.
// Centralized in this file so all handlers/middleware use the same key.
type authStateKey struct{}

// SetAuthStateInContext returns a child context carrying the state a guard
// authorized the request with.
func SetAuthStateInContext(ctx context.Context, st domainauth.AuthState) context.Context {
	return context.WithValue(ctx, authStateKey{}, st)
}

// GetAuthStateFromContext returns the auth state stored by Guarded and a
// boolean indicating presence.
func GetAuthStateFromContext(ctx context.Context) (domainauth.AuthState, bool) {
	st, ok := ctx.Value(authStateKey{}).(domainauth.AuthState)
	return st, ok
}

// GetProfileFromContext returns the signed-in profile, if the request was
// authorized with one.
func GetProfileFromContext(ctx context.Context) (*domainauth.Profile, bool) {
	st, ok := GetAuthStateFromContext(ctx)
	if !ok || st.Profile == nil {
		return nil, false
	}
	return st.Profile, true
}
