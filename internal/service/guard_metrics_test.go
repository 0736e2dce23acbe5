package service

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	domainauth "github.com/target/storefront-gate/internal/domain/auth"
	"github.com/target/storefront-gate/internal/domain/guard"
	"github.com/target/storefront-gate/internal/observability/statsd"
)

func TestGuardMetrics_DecideRecordsOutcome(t *testing.T) {
	rec := &statsd.Recorder{}
	m := NewGuardMetrics(rec, nil)
	g := guard.New(guard.Routes{}, guard.Admin())

	manager := domainauth.SignedIn(&domainauth.Profile{UserID: "u-1", Role: domainauth.RoleManager})
	customer := domainauth.SignedIn(&domainauth.Profile{UserID: "u-2", Role: domainauth.RoleCustomer})

	d := m.Decide(context.Background(), g, manager, "/orders/42")
	assert.Equal(t, guard.RenderChildren(), d.Intent)

	d = m.Decide(context.Background(), g, customer, "/orders/42")
	assert.Equal(t, guard.RedirectTo("/unauthorized", ""), d.Intent)

	samples := rec.Named("guard.decision")
	require.Len(t, samples, 2)
	assert.Equal(t, "admin", samples[0].Tags["policy"])
	assert.Equal(t, "authorized_role_ok", samples[0].Tags["outcome"])
	assert.Equal(t, "render", samples[0].Tags["intent"])
	assert.Equal(t, "authorized_role_denied", samples[1].Tags["outcome"])
	assert.Equal(t, "redirect", samples[1].Tags["intent"])
}

func TestGuardMetrics_NilStillDecides(t *testing.T) {
	var m *GuardMetrics
	d := m.Decide(context.Background(), guard.New(guard.Routes{}, guard.RequireAuth()), domainauth.SignedOut(), "/account")
	assert.Equal(t, guard.OutcomeUnauthenticated, d.Outcome)
	assert.Equal(t, guard.RedirectTo("/auth/login", "/account"), d.Intent)
}
