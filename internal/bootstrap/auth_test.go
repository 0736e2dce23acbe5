package bootstrap

import (
	"context"
	"io"
	"log/slog"
	"testing"

	"github.com/target/storefront-gate/config"
	"github.com/target/storefront-gate/internal/adapters/authroles"
	"github.com/target/storefront-gate/internal/adapters/memstate"
	domainauth "github.com/target/storefront-gate/internal/domain/auth"
	"github.com/target/storefront-gate/internal/service"
	"github.com/target/storefront-gate/internal/testutil"
)

func discardLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}

func mockAuthConfig() config.AuthConfig {
	return config.AuthConfig{
		Mode:         config.AuthModeMock,
		AdminGroup:   "admins",
		ManagerGroup: "managers",
		DevAuth: config.DevAuthConfig{
			UserID: "dev",
			Email:  "dev@example.com",
			Groups: []string{"admins"},
		},
	}
}

func TestBuildAuthServicesRequiresRedis(t *testing.T) {
	_, err := BuildAuthServices(context.Background(), AuthConfig{
		Auth:   mockAuthConfig(),
		Logger: discardLogger(),
	})
	if err == nil {
		t.Fatal("BuildAuthServices() without redis returned nil error")
	}
}

func TestBuildAuthProvider(t *testing.T) {
	ctx := context.Background()

	if _, err := buildAuthProvider(ctx, mockAuthConfig(), discardLogger()); err != nil {
		t.Fatalf("mock provider: %v", err)
	}

	missing := mockAuthConfig()
	missing.DevAuth.UserID = ""
	if _, err := buildAuthProvider(ctx, missing, discardLogger()); err == nil {
		t.Fatal("mock provider without user id returned nil error")
	}

	oauth := config.AuthConfig{Mode: config.AuthModeOAuth}
	if _, err := buildAuthProvider(ctx, oauth, discardLogger()); err == nil {
		t.Fatal("oauth provider without client config returned nil error")
	}

	if _, err := buildAuthProvider(ctx, config.AuthConfig{Mode: "saml"}, discardLogger()); err == nil {
		t.Fatal("unknown mode returned nil error")
	}
}

func TestBuildRoleMapper(t *testing.T) {
	cfg := mockAuthConfig()

	m, err := buildRoleMapper(cfg)
	if err != nil {
		t.Fatalf("buildRoleMapper: %v", err)
	}
	if _, ok := m.(authroles.StaticRoleMapper); !ok {
		t.Fatalf("mapper = %T, want StaticRoleMapper", m)
	}
	if got := m.Map(domainauth.Identity{Groups: []string{"managers"}}); got != domainauth.RoleManager {
		t.Fatalf("Map(managers) = %q", got)
	}

	cfg.OAuth.RoleClaim = "app_metadata.role"
	m, err = buildRoleMapper(cfg)
	if err != nil {
		t.Fatalf("buildRoleMapper with claim: %v", err)
	}
	id := domainauth.Identity{
		Groups: []string{"customers"},
		Claims: map[string]any{"app_metadata": map[string]any{"role": "admin"}},
	}
	if got := m.Map(id); got != domainauth.RoleAdmin {
		t.Fatalf("Map(claim admin) = %q", got)
	}

	cfg.OAuth.RoleClaim = "app_metadata..role"
	if _, err = buildRoleMapper(cfg); err == nil {
		t.Fatal("invalid claim expression returned nil error")
	}
}

func TestBuildTokenVerifier(t *testing.T) {
	v, err := buildTokenVerifier(config.AuthConfig{})
	if err != nil || v != nil {
		t.Fatalf("disabled verifier = %v, %v; want nil, nil", v, err)
	}

	v, err = buildTokenVerifier(config.AuthConfig{TokenSecret: "s3cret", TokenIssuer: "storefront-gate"})
	if err != nil || v == nil {
		t.Fatalf("enabled verifier = %v, %v", v, err)
	}
}

func TestBuildStateBusFallsBackInProcess(t *testing.T) {
	bus := buildStateBus(nil, true, discardLogger())
	if _, ok := bus.(*memstate.Bus); !ok {
		t.Fatalf("bus = %T, want *memstate.Bus", bus)
	}
}

func TestBuildAuthServicesWithRedis(t *testing.T) {
	client := testutil.SetupTestRedis(t)

	svcs, err := BuildAuthServices(context.Background(), AuthConfig{
		Auth:        mockAuthConfig(),
		RedisClient: client,
		PubSub:      true,
		Logger:      discardLogger(),
	})
	if err != nil {
		t.Fatalf("BuildAuthServices: %v", err)
	}
	if svcs.Tokens != nil {
		t.Fatal("bearer verifier built without a secret")
	}
	if svcs.Profiles.Enabled() {
		t.Fatal("profile store enabled without a database")
	}

	st := svcs.State.Resolve(context.Background(), service.Credentials{})
	if st.Loading || st.Authenticated {
		t.Fatalf("anonymous state = %+v, want signed out", st)
	}
}
