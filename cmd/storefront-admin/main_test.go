package main

import (
	"bytes"
	"context"
	"encoding/json"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/target/storefront-gate/config"
	"github.com/target/storefront-gate/internal/adapters/jwtauth"
	"github.com/target/storefront-gate/internal/bootstrap"
	domainauth "github.com/target/storefront-gate/internal/domain/auth"
	"github.com/target/storefront-gate/internal/domain/guard"
	httpx "github.com/target/storefront-gate/internal/http"
)

func defaultTable(t *testing.T) *httpx.RouteTable {
	t.Helper()
	table, err := bootstrap.BuildRouteTable(config.GuardConfig{AdminRoles: []string{"admin", "manager"}})
	require.NoError(t, err)
	return table
}

func TestParseEvaluateFlags(t *testing.T) {
	opts, err := parseEvaluateFlags([]string{"--location", "/admin/", "--role", "Manager"})
	require.NoError(t, err)
	assert.Equal(t, stateSignedIn, opts.State)
	role, ok := opts.authState().Role()
	require.True(t, ok)
	assert.Equal(t, domainauth.RoleManager, role)

	_, err = parseEvaluateFlags([]string{"--location", "admin"})
	require.Error(t, err)

	_, err = parseEvaluateFlags([]string{"--location", "/", "--state", "maybe"})
	require.Error(t, err)
}

func TestEvaluate(t *testing.T) {
	table := defaultTable(t)

	tests := []struct {
		name    string
		opts    evaluateOptions
		guarded bool
		want    guard.Decision
	}{
		{
			name:    "unguarded location",
			opts:    evaluateOptions{Location: "/", State: stateSignedOut},
			guarded: false,
		},
		{
			name:    "loading",
			opts:    evaluateOptions{Location: "/account/", State: stateLoading},
			guarded: true,
			want:    guard.Decision{Outcome: guard.OutcomeLoading, Intent: guard.ShowLoading()},
		},
		{
			name:    "signed out carries return path",
			opts:    evaluateOptions{Location: "/account/orders", State: stateSignedOut},
			guarded: true,
			want: guard.Decision{
				Outcome: guard.OutcomeUnauthenticated,
				Intent:  guard.RedirectTo("/auth/login", "/account/orders"),
			},
		},
		{
			name:    "customer denied admin",
			opts:    evaluateOptions{Location: "/admin/", State: stateSignedIn, Role: "customer"},
			guarded: true,
			want: guard.Decision{
				Outcome: guard.OutcomeAuthorizedRoleDenied,
				Intent:  guard.RedirectTo("/unauthorized", ""),
			},
		},
		{
			name:    "missing profile denied",
			opts:    evaluateOptions{Location: "/admin/", State: stateSignedIn, NoProfile: true},
			guarded: true,
			want: guard.Decision{
				Outcome: guard.OutcomeAuthorizedRoleDenied,
				Intent:  guard.RedirectTo("/unauthorized", ""),
			},
		},
		{
			name:    "manager renders admin",
			opts:    evaluateOptions{Location: "/admin/", State: stateSignedIn, Role: "manager"},
			guarded: true,
			want:    guard.Decision{Outcome: guard.OutcomeAuthorizedRoleOK, Intent: guard.RenderChildren()},
		},
		{
			name:    "explicit policy",
			opts:    evaluateOptions{Location: "/", State: stateSignedIn, Role: "customer", Policy: guard.PolicyAuth},
			guarded: true,
			want:    guard.Decision{Outcome: guard.OutcomeAuthorizedNoRoleCheck, Intent: guard.RenderChildren()},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			res, err := evaluate(table, tt.opts)
			require.NoError(t, err)
			assert.Equal(t, tt.guarded, res.Guarded)
			if !tt.guarded {
				assert.Nil(t, res.Decision)
				return
			}
			require.NotNil(t, res.Decision)
			assert.Equal(t, tt.want, *res.Decision)
		})
	}
}

func TestEvaluateUnknownPolicy(t *testing.T) {
	_, err := evaluate(defaultTable(t), evaluateOptions{Location: "/", State: stateSignedIn, Policy: "roles"})
	require.Error(t, err)
}

func TestEvaluateResultJSON(t *testing.T) {
	res, err := evaluate(defaultTable(t), evaluateOptions{Location: "/admin/", State: stateSignedOut})
	require.NoError(t, err)

	raw, err := json.Marshal(res)
	require.NoError(t, err)
	assert.JSONEq(t, `{
		"location": "/admin/",
		"guarded": true,
		"policy": "admin",
		"decision": {
			"outcome": "unauthenticated",
			"intent": {"kind": "redirect", "target": "/auth/login", "return_to": "/admin/"}
		}
	}`, string(raw))
}

func TestPrintRoutes(t *testing.T) {
	var buf bytes.Buffer
	require.NoError(t, printRoutes(&buf, defaultTable(t)))

	out := buf.String()
	assert.Contains(t, out, "PATTERN")
	assert.Regexp(t, `/account/\s+auth\s+-\s+/auth/login\s+/unauthorized`, out)
	assert.Regexp(t, `/admin/\s+admin\s+admin,manager`, out)
}

func TestIssueTokenRoundTrip(t *testing.T) {
	cfg := config.AuthConfig{TokenSecret: "test-secret", TokenIssuer: "storefront-gate"}

	token, err := issueToken(cfg, issueTokenOptions{
		UserID:   "user-9",
		Role:     "Manager",
		Email:    "ops@example.com",
		TTL:      time.Hour,
		Verified: true,
	})
	require.NoError(t, err)

	v, err := jwtauth.NewVerifier(jwtauth.Options{Secret: []byte(cfg.TokenSecret), Issuer: cfg.TokenIssuer})
	require.NoError(t, err)
	id, err := v.Verify(context.Background(), token)
	require.NoError(t, err)
	assert.Equal(t, "user-9", id.UserID)
	assert.Equal(t, domainauth.RoleManager, id.Role)
	assert.True(t, id.EmailVerified)
}

func TestIssueTokenRequiresSecret(t *testing.T) {
	_, err := issueToken(config.AuthConfig{}, issueTokenOptions{UserID: "u", Role: "admin", TTL: time.Hour})
	require.Error(t, err)
}

func TestParseIssueTokenFlags(t *testing.T) {
	opts, err := parseIssueTokenFlags([]string{"--ttl", "30m", "user-1", "admin"})
	require.NoError(t, err)
	assert.Equal(t, "user-1", opts.UserID)
	assert.Equal(t, "admin", opts.Role)
	assert.Equal(t, 30*time.Minute, opts.TTL)

	_, err = parseIssueTokenFlags([]string{"user-1"})
	require.Error(t, err)
}

func TestParseSetRoleArgs(t *testing.T) {
	opts, err := parseSetRoleArgs([]string{"user-1", "manager"})
	require.NoError(t, err)
	assert.Equal(t, setRoleOptions{UserID: "user-1", Role: "manager"}, opts)

	_, err = parseSetRoleArgs(nil)
	require.Error(t, err)
}

func TestPrintPending(t *testing.T) {
	var buf bytes.Buffer
	require.NoError(t, printPending(&buf, nil))
	assert.Equal(t, "No pending migrations.\n", buf.String())

	buf.Reset()
	require.NoError(t, printPending(&buf, []string{"0001_profiles"}))
	assert.Equal(t, "pending 0001_profiles\n", buf.String())
}
