package service

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/google/uuid"

	domainauth "github.com/target/storefront-gate/internal/domain/auth"
	"github.com/target/storefront-gate/internal/ports"
)

// DefaultSessionTTL applies when the provider identity carries no expiry.
const DefaultSessionTTL = 8 * time.Hour

// AuthServiceOptions groups dependencies for AuthService.
type AuthServiceOptions struct {
	Provider ports.AuthProvider
	Sessions ports.SessionStore
	Roles    ports.RoleMapper
	Extras   AuthServiceExtras
}

// AuthServiceExtras holds optional collaborators of AuthService.
type AuthServiceExtras struct {
	Profiles   *ProfileService // records profiles at login; nil keeps the session role only
	Bus        ports.StateBus  // receives signed-out pushes on logout and expiry
	Logger     *slog.Logger
	SessionTTL time.Duration
}

// AuthService orchestrates authentication flows by coordinating provider, role mapping, and session persistence.
type AuthService struct {
	provider ports.AuthProvider
	sessions ports.SessionStore
	roles    ports.RoleMapper
	profiles *ProfileService
	bus      ports.StateBus
	logger   *slog.Logger
	ttl      time.Duration
}

// ErrSessionExpired is returned by GetSession for sessions past their expiry.
var ErrSessionExpired = errors.New("session expired")

// NewAuthService constructs a new AuthService.
func NewAuthService(opts AuthServiceOptions) *AuthService {
	if opts.Provider == nil || opts.Sessions == nil || opts.Roles == nil {
		panic("auth service requires provider, session store and role mapper")
	}
	logger := opts.Extras.Logger
	if logger == nil {
		logger = slog.Default()
	}
	ttl := opts.Extras.SessionTTL
	if ttl <= 0 {
		ttl = DefaultSessionTTL
	}
	return &AuthService{
		provider: opts.Provider,
		sessions: opts.Sessions,
		roles:    opts.Roles,
		profiles: opts.Extras.Profiles,
		bus:      opts.Extras.Bus,
		logger:   logger.With("component", "auth_service"),
		ttl:      ttl,
	}
}

// BeginLoginResult contains the result of beginning a login flow.
type BeginLoginResult struct {
	AuthURL string
	State   string
	Nonce   string
}

// BeginLogin initiates an authentication flow and returns the provider auth URL with state and nonce.
func (s *AuthService) BeginLogin(ctx context.Context, redirectURL string) (*BeginLoginResult, error) {
	if redirectURL == "" {
		return nil, errors.New("redirect URL is required")
	}

	authURL, state, nonce, err := s.provider.Begin(ctx, ports.BeginInput{RedirectURL: redirectURL})
	if err != nil {
		return nil, fmt.Errorf("begin auth flow: %w", err)
	}

	return &BeginLoginResult{AuthURL: authURL, State: state, Nonce: nonce}, nil
}

// CompleteLoginInput groups parameters for completing a login flow.
type CompleteLoginInput struct {
	Code  string
	State string
	Nonce string
}

// CompleteLoginResult contains the result of completing a login flow.
type CompleteLoginResult struct {
	Session domainauth.Session
	Profile *domainauth.Profile
}

// CompleteLogin exchanges the code for an identity, maps its role, records the
// profile and persists a session. When a stored profile already carries a
// role (granted by an administrator) the session takes that role.
func (s *AuthService) CompleteLogin(ctx context.Context, input CompleteLoginInput) (*CompleteLoginResult, error) {
	if input.Code == "" {
		return nil, errors.New("authorization code is required")
	}
	if input.State == "" {
		return nil, errors.New("state parameter is required")
	}
	if input.Nonce == "" {
		return nil, errors.New("nonce parameter is required")
	}

	identity, err := s.provider.Exchange(ctx, ports.ExchangeInput{
		Code:  input.Code,
		State: input.State,
		Nonce: input.Nonce,
	})
	if err != nil {
		return nil, fmt.Errorf("exchange authorization code: %w", err)
	}

	expiresAt := identity.ExpiresAt
	if expiresAt.IsZero() {
		expiresAt = time.Now().Add(s.ttl)
	}

	session := domainauth.Session{
		ID:            uuid.NewString(),
		UserID:        identity.UserID,
		FirstName:     identity.FirstName,
		LastName:      identity.LastName,
		Email:         identity.Email,
		EmailVerified: identity.EmailVerified,
		Role:          s.roles.Map(identity),
		ExpiresAt:     expiresAt,
	}

	profile := domainauth.ProfileFromSession(session)
	if s.profiles != nil {
		stored, recErr := s.profiles.Record(ctx, *profile)
		if recErr != nil {
			return nil, fmt.Errorf("record profile: %w", recErr)
		}
		profile = stored
		if profile.Role != "" {
			session.Role = profile.Role
		}
	}

	if saveErr := s.sessions.Save(ctx, session); saveErr != nil {
		return nil, fmt.Errorf("save session: %w", saveErr)
	}
	s.publish(ctx, session.ID, domainauth.SignedIn(profile))

	s.logger.InfoContext(ctx, "user signed in",
		"user_id", session.UserID,
		"role", string(session.Role),
		"email_verified", session.EmailVerified)

	return &CompleteLoginResult{Session: session, Profile: profile}, nil
}

// GetSession retrieves a session by ID. Expired sessions are deleted and
// reported with ErrSessionExpired.
func (s *AuthService) GetSession(ctx context.Context, sessionID string) (*domainauth.Session, error) {
	if sessionID == "" {
		return nil, errors.New("session ID is required")
	}

	session, err := s.sessions.Get(ctx, sessionID)
	if err != nil {
		return nil, fmt.Errorf("get session: %w", err)
	}

	if time.Now().After(session.ExpiresAt) {
		s.publish(ctx, sessionID, domainauth.SignedOut())
		if deleteErr := s.sessions.Delete(ctx, sessionID); deleteErr != nil {
			return nil, errors.Join(ErrSessionExpired, fmt.Errorf("delete session: %w", deleteErr))
		}
		return nil, ErrSessionExpired
	}

	return &session, nil
}

// Logout removes a session and notifies watchers of that session.
func (s *AuthService) Logout(ctx context.Context, sessionID string) error {
	if sessionID == "" {
		return nil
	}

	if err := s.sessions.Delete(ctx, sessionID); err != nil {
		return fmt.Errorf("delete session: %w", err)
	}
	s.publish(ctx, sessionID, domainauth.SignedOut())

	return nil
}

// publish is best effort; a lost push only delays the next re-evaluation.
func (s *AuthService) publish(ctx context.Context, sessionID string, st domainauth.AuthState) {
	if s.bus == nil {
		return
	}
	if err := s.bus.Publish(ctx, sessionID, st); err != nil {
		s.logger.WarnContext(ctx, "publish auth state failed", "error", err)
	}
}
