package testutil

import (
	"time"

	"github.com/google/uuid"

	domainauth "github.com/target/storefront-gate/internal/domain/auth"
)

// SessionBuilder provides a fluent interface for building sessions in tests.
type SessionBuilder struct {
	sess domainauth.Session
}

// NewSession returns a builder for a verified customer session valid for an hour.
func NewSession() *SessionBuilder {
	return &SessionBuilder{sess: domainauth.Session{
		ID:            uuid.NewString(),
		UserID:        "shopper-1",
		FirstName:     "Sam",
		LastName:      "Shopper",
		Email:         "shopper@example.com",
		EmailVerified: true,
		Role:          domainauth.RoleCustomer,
		ExpiresAt:     time.Now().Add(time.Hour),
	}}
}

// WithID sets the session ID.
func (b *SessionBuilder) WithID(id string) *SessionBuilder {
	b.sess.ID = id
	return b
}

// WithUser sets the user ID.
func (b *SessionBuilder) WithUser(userID string) *SessionBuilder {
	b.sess.UserID = userID
	return b
}

// WithRole sets the role captured at login.
func (b *SessionBuilder) WithRole(role domainauth.Role) *SessionBuilder {
	b.sess.Role = role
	return b
}

// Unverified clears the verified-email flag.
func (b *SessionBuilder) Unverified() *SessionBuilder {
	b.sess.EmailVerified = false
	return b
}

// ExpiresIn sets the expiry relative to now; negative values build an expired session.
func (b *SessionBuilder) ExpiresIn(d time.Duration) *SessionBuilder {
	b.sess.ExpiresAt = time.Now().Add(d)
	return b
}

// Build returns the session.
func (b *SessionBuilder) Build() domainauth.Session { return b.sess }

// ProfileFor returns the profile a login with sess would have stored.
func ProfileFor(sess domainauth.Session) domainauth.Profile {
	return *domainauth.ProfileFromSession(sess)
}

// FixedTimeFunc returns a function that always returns t.
func FixedTimeFunc(t time.Time) func() time.Time {
	return func() time.Time { return t }
}
