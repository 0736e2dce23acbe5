package service

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strings"
	"time"

	"golang.org/x/sync/singleflight"

	"github.com/target/storefront-gate/internal/data"
	domainauth "github.com/target/storefront-gate/internal/domain/auth"
	"github.com/target/storefront-gate/internal/ports"
)

const defaultProfileLoadTimeout = 5 * time.Second

// ErrProfilesDisabled is returned by write operations when no profile store is configured.
var ErrProfilesDisabled = errors.New("profile store not configured")

// ProfileServiceOptions groups dependencies for ProfileService.
type ProfileServiceOptions struct {
	Store  ports.ProfileStore // Optional: nil serves the role captured in the session
	Logger *slog.Logger
	// Timeout bounds one shared store lookup. Defaults to 5s.
	Timeout time.Duration
}

// ProfileService loads the role-bearing profile attached to an authenticated state.
// Concurrent loads of the same user share one store round trip.
type ProfileService struct {
	store   ports.ProfileStore
	logger  *slog.Logger
	timeout time.Duration
	group   singleflight.Group
}

// NewProfileService constructs a new ProfileService.
func NewProfileService(opts ProfileServiceOptions) *ProfileService {
	logger := opts.Logger
	if logger == nil {
		logger = slog.Default()
	}
	timeout := opts.Timeout
	if timeout <= 0 {
		timeout = defaultProfileLoadTimeout
	}
	return &ProfileService{
		store:   opts.Store,
		logger:  logger.With("component", "profile_service"),
		timeout: timeout,
	}
}

// Enabled reports whether profiles come from a store.
func (s *ProfileService) Enabled() bool { return s.store != nil }

// Load returns the stored profile for userID. Without a store, or when the
// store has no row for userID, it returns fallback, which callers derive from
// the session or token.
//
// Concurrent callers share one lookup that runs detached from any single
// request; each caller still stops waiting when its own ctx is done.
func (s *ProfileService) Load(ctx context.Context, userID string, fallback *domainauth.Profile) (*domainauth.Profile, error) {
	if s.store == nil {
		return fallback, nil
	}
	if userID == "" {
		return nil, errors.New("user ID is required")
	}

	ch := s.group.DoChan(userID, func() (any, error) {
		lookupCtx, cancel := context.WithTimeout(context.WithoutCancel(ctx), s.timeout)
		defer cancel()
		return s.store.Get(lookupCtx, userID)
	})

	var res singleflight.Result
	select {
	case <-ctx.Done():
		return nil, fmt.Errorf("load profile: %w", ctx.Err())
	case res = <-ch:
	}

	if errors.Is(res.Err, data.ErrProfileNotFound) {
		return fallback, nil
	}
	if res.Err != nil {
		return nil, fmt.Errorf("load profile: %w", res.Err)
	}
	p, _ := res.Val.(*domainauth.Profile)
	if p == nil {
		return nil, fmt.Errorf("load profile %s: empty result", userID)
	}
	if res.Shared {
		s.logger.DebugContext(ctx, "profile load shared", "user_id", userID)
	}
	// Callers may hold the pointer past the shared call; hand each a copy.
	cp := *p
	return &cp, nil
}

// Record stores the profile seen at sign-in and returns the effective profile.
func (s *ProfileService) Record(ctx context.Context, p domainauth.Profile) (*domainauth.Profile, error) {
	if s.store == nil {
		return &p, nil
	}
	out, err := s.store.Upsert(ctx, p)
	if err != nil {
		return nil, fmt.Errorf("record profile: %w", err)
	}
	s.group.Forget(p.UserID)
	return out, nil
}

// SetRole grants role to userID. The role is normalised with ParseRole.
func (s *ProfileService) SetRole(ctx context.Context, userID, role string) (*domainauth.Profile, error) {
	if s.store == nil {
		return nil, ErrProfilesDisabled
	}
	userID = strings.TrimSpace(userID)
	r := domainauth.ParseRole(role)
	if userID == "" || r == "" {
		return nil, errors.New("user ID and role are required")
	}
	out, err := s.store.SetRole(ctx, userID, r)
	if err != nil {
		return nil, fmt.Errorf("set role: %w", err)
	}
	s.group.Forget(userID)
	s.logger.InfoContext(ctx, "profile role changed", "user_id", userID, "role", string(r))
	return out, nil
}
