// Package auth contains simple hand-written test doubles for auth ports.
// These are lightweight and suitable for unit tests without codegen.
package auth

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"time"

	"github.com/target/storefront-gate/internal/data"
	domainauth "github.com/target/storefront-gate/internal/domain/auth"
	"github.com/target/storefront-gate/internal/ports"
)

// Ensure compile-time conformance to ports.
var (
	_ ports.AuthProvider = (*MockAuthProvider)(nil)
	_ ports.SessionStore = (*MemorySessionStore)(nil)
	_ ports.RoleMapper   = (*StaticRoleMapper)(nil)
	_ ports.ProfileStore = (*MemoryProfileStore)(nil)
)

// ErrNotFound is returned by the in-memory stores when an entity is not present.
var ErrNotFound = errors.New("not found")

// errProfileNotFound matches both ErrNotFound and data.ErrProfileNotFound,
// as the ProfileStore contract requires.
var errProfileNotFound = fmt.Errorf("%w: %w", ErrNotFound, data.ErrProfileNotFound)

// MockAuthProvider simulates an IdP with deterministic state/nonce values.
type MockAuthProvider struct {
	BeginFunc    func(ctx context.Context, in ports.BeginInput) (authURL, state, nonce string, err error)
	ExchangeFunc func(ctx context.Context, in ports.ExchangeInput) (domainauth.Identity, error)

	AuthURL     string
	DefaultUser domainauth.Identity

	mu    sync.Mutex
	calls int
}

// NewMockAuthProvider creates a MockAuthProvider that signs in a customer.
func NewMockAuthProvider() *MockAuthProvider {
	return &MockAuthProvider{
		AuthURL: "https://mock-idp/auth",
		DefaultUser: domainauth.Identity{
			UserID:        "mock-user-1",
			FirstName:     "Mock",
			LastName:      "Shopper",
			Email:         "mock.shopper@example.com",
			EmailVerified: true,
			Groups:        []string{"customers"},
		},
	}
}

func (m *MockAuthProvider) Begin(ctx context.Context, in ports.BeginInput) (string, string, string, error) {
	if m.BeginFunc != nil {
		return m.BeginFunc(ctx, in)
	}
	m.mu.Lock()
	m.calls++
	n := m.calls
	m.mu.Unlock()

	authURL := m.AuthURL
	if authURL == "" {
		authURL = "https://mock-idp/auth"
	}
	return authURL, fmt.Sprintf("state-%d", n), fmt.Sprintf("nonce-%d", n), nil
}

func (m *MockAuthProvider) Exchange(ctx context.Context, in ports.ExchangeInput) (domainauth.Identity, error) {
	if m.ExchangeFunc != nil {
		return m.ExchangeFunc(ctx, in)
	}
	user := m.DefaultUser
	if user.UserID == "" {
		user = NewMockAuthProvider().DefaultUser
	}
	// fresh expiry on every exchange
	user.ExpiresAt = time.Now().Add(time.Hour)
	return user, nil
}

// MemorySessionStore is an in-memory session store for unit tests.
type MemorySessionStore struct {
	mu       sync.RWMutex
	sessions map[string]domainauth.Session
}

// NewMemorySessionStore creates a new in-memory session store.
func NewMemorySessionStore() *MemorySessionStore {
	return &MemorySessionStore{sessions: make(map[string]domainauth.Session)}
}

func (m *MemorySessionStore) Save(_ context.Context, sess domainauth.Session) error {
	if sess.ID == "" {
		return errors.New("session ID cannot be empty")
	}
	m.mu.Lock()
	defer m.mu.Unlock()
	m.sessions[sess.ID] = sess
	return nil
}

func (m *MemorySessionStore) Get(_ context.Context, id string) (domainauth.Session, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	sess, ok := m.sessions[id]
	if !ok || id == "" {
		return domainauth.Session{}, ErrNotFound
	}
	return sess, nil
}

func (m *MemorySessionStore) Delete(_ context.Context, id string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	delete(m.sessions, id)
	return nil
}

// StaticRoleMapper maps groups by simple membership; everyone else is a customer.
type StaticRoleMapper struct {
	AdminGroup   string
	ManagerGroup string
}

func (m StaticRoleMapper) Map(id domainauth.Identity) domainauth.Role {
	if id.Role != "" {
		return id.Role
	}
	for _, g := range id.Groups {
		if m.AdminGroup != "" && g == m.AdminGroup {
			return domainauth.RoleAdmin
		}
	}
	for _, g := range id.Groups {
		if m.ManagerGroup != "" && g == m.ManagerGroup {
			return domainauth.RoleManager
		}
	}
	return domainauth.RoleCustomer
}

// MemoryProfileStore keeps profiles in a map. GetErr, when set, is returned by Get.
type MemoryProfileStore struct {
	GetErr error

	mu       sync.RWMutex
	profiles map[string]domainauth.Profile
	gets     int
}

// NewMemoryProfileStore creates an empty profile store.
func NewMemoryProfileStore() *MemoryProfileStore {
	return &MemoryProfileStore{profiles: make(map[string]domainauth.Profile)}
}

func (m *MemoryProfileStore) Get(_ context.Context, userID string) (*domainauth.Profile, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.gets++
	if m.GetErr != nil {
		return nil, m.GetErr
	}
	p, ok := m.profiles[userID]
	if !ok {
		return nil, errProfileNotFound
	}
	return &p, nil
}

func (m *MemoryProfileStore) Upsert(_ context.Context, p domainauth.Profile) (*domainauth.Profile, error) {
	if p.UserID == "" {
		return nil, errors.New("user ID cannot be empty")
	}
	m.mu.Lock()
	defer m.mu.Unlock()
	p.UpdatedAt = time.Now().UTC()
	m.profiles[p.UserID] = p
	return &p, nil
}

func (m *MemoryProfileStore) SetRole(_ context.Context, userID string, role domainauth.Role) (*domainauth.Profile, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	p, ok := m.profiles[userID]
	if !ok {
		return nil, errProfileNotFound
	}
	p.Role = role
	p.UpdatedAt = time.Now().UTC()
	m.profiles[userID] = p
	return &p, nil
}

// Gets returns how many times Get has been called.
func (m *MemoryProfileStore) Gets() int {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return m.gets
}
