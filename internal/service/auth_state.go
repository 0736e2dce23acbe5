package service

import (
	"context"
	"errors"
	"log/slog"
	"time"

	domainauth "github.com/target/storefront-gate/internal/domain/auth"
	"github.com/target/storefront-gate/internal/observability/metrics"
	"github.com/target/storefront-gate/internal/observability/statsd"
	"github.com/target/storefront-gate/internal/ports"
)

// DefaultResolveTimeout bounds a single auth state resolution.
const DefaultResolveTimeout = 2 * time.Second

// Credentials are what a request presents to prove identity.
// A bearer token is tried before the session cookie.
type Credentials struct {
	BearerToken string
	SessionID   string
}

// Empty reports whether no credential was presented.
func (c Credentials) Empty() bool { return c.BearerToken == "" && c.SessionID == "" }

// AuthStateServiceOptions groups dependencies for AuthStateService.
type AuthStateServiceOptions struct {
	Auth     *AuthService    // Required: session lookups
	Profiles *ProfileService // Required: profile attachment
	Config   AuthStateConfig
}

// AuthStateConfig holds optional collaborators and limits.
type AuthStateConfig struct {
	Tokens  ports.TokenVerifier // bearer auth disabled when nil
	Bus     ports.StateBus      // Watch only yields the current state when nil
	Metrics statsd.Sink
	Logger  *slog.Logger
	Timeout time.Duration
}

// AuthStateService resolves request credentials into the AuthState snapshot
// that guards evaluate, and streams state changes for a session.
type AuthStateService struct {
	auth     *AuthService
	profiles *ProfileService
	tokens   ports.TokenVerifier
	bus      ports.StateBus
	metrics  statsd.Sink
	logger   *slog.Logger
	timeout  time.Duration
}

// NewAuthStateService constructs a new AuthStateService.
func NewAuthStateService(opts AuthStateServiceOptions) *AuthStateService {
	if opts.Auth == nil || opts.Profiles == nil {
		panic("auth state service requires auth and profile services")
	}
	cfg := opts.Config
	logger := cfg.Logger
	if logger == nil {
		logger = slog.Default()
	}
	timeout := cfg.Timeout
	if timeout <= 0 {
		timeout = DefaultResolveTimeout
	}
	return &AuthStateService{
		auth:     opts.Auth,
		profiles: opts.Profiles,
		tokens:   cfg.Tokens,
		bus:      cfg.Bus,
		metrics:  cfg.Metrics,
		logger:   logger.With("component", "auth_state"),
		timeout:  timeout,
	}
}

// Resolve turns creds into an AuthState. It never fails:
//   - the resolve deadline elapsing yields Pending (identity still resolving);
//   - missing, invalid or expired credentials yield SignedOut;
//   - a valid credential whose profile cannot be loaded yields SignedIn(nil).
func (s *AuthStateService) Resolve(ctx context.Context, creds Credentials) domainauth.AuthState {
	start := time.Now()
	ctx, cancel := context.WithTimeout(ctx, s.timeout)
	defer cancel()

	source := "none"
	switch {
	case creds.BearerToken != "" && s.tokens != nil:
		source = "bearer"
	case creds.SessionID != "":
		source = "session"
	}

	st, err := s.resolve(ctx, source, creds)
	result := metrics.ResultSuccess
	if errors.Is(err, context.DeadlineExceeded) {
		st, result = domainauth.Pending(), metrics.ResultTimeout
		s.logger.WarnContext(ctx, "auth state resolution timed out", "source", source, "timeout", s.timeout)
	} else if err != nil {
		result = metrics.ResultError
		s.logger.DebugContext(ctx, "auth state degraded", "source", source, "error", err)
	}

	metrics.EmitAuthResolve(s.metrics, metrics.ResolveMetric{
		Source:   source,
		State:    stateLabel(st),
		Result:   result,
		Duration: time.Since(start),
		Err:      err,
	})
	return st
}

// resolve returns the best state it could build along with the error that
// degraded it, if any.
func (s *AuthStateService) resolve(ctx context.Context, source string, creds Credentials) (domainauth.AuthState, error) {
	var (
		userID   string
		fallback *domainauth.Profile
	)
	switch source {
	case "bearer":
		id, err := s.tokens.Verify(ctx, creds.BearerToken)
		if err != nil {
			return domainauth.SignedOut(), err
		}
		userID = id.UserID
		fallback = &domainauth.Profile{
			UserID:        id.UserID,
			Email:         id.Email,
			DisplayName:   id.DisplayName(),
			Role:          id.Role,
			EmailVerified: id.EmailVerified,
		}
	case "session":
		sess, err := s.auth.GetSession(ctx, creds.SessionID)
		if err != nil {
			return domainauth.SignedOut(), err
		}
		userID = sess.UserID
		fallback = domainauth.ProfileFromSession(*sess)
	default:
		return domainauth.SignedOut(), nil
	}

	profile, err := s.profiles.Load(ctx, userID, fallback)
	if err != nil {
		return domainauth.SignedIn(nil), err
	}
	return domainauth.SignedIn(profile), nil
}

// Watch yields the current state for sessionID followed by every state pushed
// on the bus for it. A push is a notification; the state is re-resolved so
// profile changes made elsewhere are picked up. The channel closes when ctx
// is done or the subscription ends.
func (s *AuthStateService) Watch(ctx context.Context, sessionID string) (<-chan domainauth.AuthState, error) {
	var (
		pushes  <-chan domainauth.AuthState
		release = func() {}
	)
	if s.bus != nil && sessionID != "" {
		ch, cancel, err := s.bus.Subscribe(ctx, sessionID)
		if err != nil {
			return nil, err
		}
		pushes, release = ch, cancel
	}

	out := make(chan domainauth.AuthState, 1)
	go func() {
		defer close(out)
		defer release()

		creds := Credentials{SessionID: sessionID}
		if !send(ctx, out, s.Resolve(ctx, creds)) {
			return
		}
		for {
			select {
			case <-ctx.Done():
				return
			case pushed, ok := <-pushes:
				if !ok {
					return
				}
				st := pushed
				if !pushed.Loading {
					st = s.Resolve(ctx, creds)
				}
				if !send(ctx, out, st) {
					return
				}
			}
		}
	}()
	return out, nil
}

func send(ctx context.Context, out chan<- domainauth.AuthState, st domainauth.AuthState) bool {
	select {
	case out <- st:
		return true
	case <-ctx.Done():
		return false
	}
}

func stateLabel(st domainauth.AuthState) string {
	switch {
	case st.Loading:
		return "loading"
	case st.Authenticated:
		return "signed_in"
	default:
		return "signed_out"
	}
}
