// Package auth contains domain-level types for authentication, sessions and
// the auth state snapshot consumed by access guards.
// It is pure and free of framework/adapter concerns.
package auth

import (
	"strings"
	"time"
)

// Role represents a storefront authorization role.
// Keep string form for easy persistence, tokens and cookies.
type Role string

const (
	RoleAdmin    Role = "admin"
	RoleManager  Role = "manager"
	RoleCustomer Role = "customer"
)

// ParseRole normalizes a role string. Unknown values are kept as-is (lowercased)
// so allow-lists can name roles this package does not define.
func ParseRole(s string) Role {
	return Role(strings.ToLower(strings.TrimSpace(s)))
}

// Identity represents the authenticated principal returned by an IdP or a bearer token.
// Adapters map provider-specific claims into this shape.
type Identity struct {
	UserID        string // stable user identifier (e.g., sub)
	FirstName     string
	LastName      string
	Email         string
	EmailVerified bool
	Groups        []string
	// Role is set when the credential already carries an application role (bearer tokens).
	Role Role
	// Claims holds the raw provider claims for claim-based role mapping.
	Claims    map[string]any
	ExpiresAt time.Time // absolute expiry from IdP token
}

// DisplayName joins first and last name, falling back to the email address.
func (i Identity) DisplayName() string {
	name := strings.TrimSpace(i.FirstName + " " + i.LastName)
	if name == "" {
		return i.Email
	}
	return name
}

// Session is the server-side record we persist for an authenticated user.
// ID is an opaque session identifier (e.g., random URL-safe string).
type Session struct {
	ID            string    `json:"id"`
	UserID        string    `json:"user_id"`
	FirstName     string    `json:"first_name"`
	LastName      string    `json:"last_name"`
	Email         string    `json:"email"`
	EmailVerified bool      `json:"email_verified"`
	Role          Role      `json:"role"`
	ExpiresAt     time.Time `json:"expires_at"`
}

// Profile is the role-bearing user record attached to an authenticated AuthState.
type Profile struct {
	UserID        string    `json:"user_id"`
	Email         string    `json:"email"`
	DisplayName   string    `json:"display_name"`
	Role          Role      `json:"role"`
	EmailVerified bool      `json:"email_verified"`
	UpdatedAt     time.Time `json:"updated_at,omitzero"`
}

// ProfileFromSession derives a profile from the role captured at login.
func ProfileFromSession(s Session) *Profile {
	name := strings.TrimSpace(s.FirstName + " " + s.LastName)
	if name == "" {
		name = s.Email
	}
	return &Profile{
		UserID:        s.UserID,
		Email:         s.Email,
		DisplayName:   name,
		Role:          s.Role,
		EmailVerified: s.EmailVerified,
	}
}
