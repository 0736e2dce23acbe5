// Package devauth provides a config-driven AuthProvider for local development.
package devauth

import (
	"context"
	"crypto/rand"
	"errors"
	"net/url"
	"sync"
	"time"

	domainauth "github.com/target/storefront-gate/internal/domain/auth"
	"github.com/target/storefront-gate/internal/ports"
)

var _ ports.AuthProvider = (*Provider)(nil)

// Config controls the dev auth provider behavior.
// UserID and Email are required.
type Config struct {
	UserID    string
	Email     string
	FirstName string
	LastName  string
	Groups    []string
	// Role pins the application role and bypasses group mapping when set.
	Role            domainauth.Role
	SessionDuration time.Duration // default 8h when zero
}

// Provider implements ports.AuthProvider without an IdP round trip.
// Begin points straight back at our own callback; Exchange returns the
// configured identity.
type Provider struct {
	mu              sync.Mutex
	identity        domainauth.Identity
	sessionDuration time.Duration
}

// NewProvider constructs a dev auth provider from Config.
func NewProvider(cfg Config) (*Provider, error) {
	if cfg.UserID == "" {
		return nil, errors.New("dev auth: UserID is required")
	}
	if cfg.Email == "" {
		return nil, errors.New("dev auth: Email is required")
	}
	dur := cfg.SessionDuration
	if dur == 0 {
		dur = 8 * time.Hour
	}
	return &Provider{
		identity: domainauth.Identity{
			UserID:        cfg.UserID,
			FirstName:     cfg.FirstName,
			LastName:      cfg.LastName,
			Email:         cfg.Email,
			EmailVerified: true,
			Groups:        append([]string(nil), cfg.Groups...),
			Role:          cfg.Role,
			ExpiresAt:     time.Now().Add(dur),
		},
		sessionDuration: dur,
	}, nil
}

// Begin returns a local callback URL with fresh state and nonce.
func (p *Provider) Begin(_ context.Context, _ ports.BeginInput) (string, string, string, error) {
	state := rand.Text()
	nonce := rand.Text()
	q := url.Values{"code": {"dev"}, "state": {state}}
	return "/auth/callback?" + q.Encode(), state, nonce, nil
}

// Exchange returns the dev identity. State and nonce are checked by the callback handler.
func (p *Provider) Exchange(_ context.Context, _ ports.ExchangeInput) (domainauth.Identity, error) {
	p.mu.Lock()
	defer p.mu.Unlock()
	if time.Until(p.identity.ExpiresAt) < 5*time.Minute {
		p.identity.ExpiresAt = time.Now().Add(p.sessionDuration)
	}
	id := p.identity
	id.Groups = append([]string(nil), p.identity.Groups...)
	return id, nil
}
