// Package guard decides whether a requested view may render for a given auth state.
//
// A Guard is a pure function of an injected auth.AuthState, a static Policy and
// static Routes. It performs no I/O and keeps no state, so it can be evaluated
// from HTTP middleware, from a stream of pushed state changes (Watch), or from
// tests with arbitrary fixtures.
package guard

import (
	"slices"

	"github.com/target/storefront-gate/internal/domain/auth"
)

// Policy names.
const (
	PolicyAuth  = "auth"
	PolicyAdmin = "admin"
)

// Routes holds the redirect targets configured once per deployment.
type Routes struct {
	Login        string
	Unauthorized string
}

// DefaultRoutes returns the stock login and unauthorized targets.
func DefaultRoutes() Routes {
	return Routes{Login: "/auth/login", Unauthorized: "/unauthorized"}
}

// WithDefaults fills empty targets from DefaultRoutes.
func (r Routes) WithDefaults() Routes {
	d := DefaultRoutes()
	if r.Login == "" {
		r.Login = d.Login
	}
	if r.Unauthorized == "" {
		r.Unauthorized = d.Unauthorized
	}
	return r
}

// Policy is the guard configuration: plain authentication or a role allow-list.
// The zero value is plain authentication.
type Policy struct {
	Name           string
	roleRestricted bool
	allowed        map[auth.Role]struct{}
}

// RequireAuth admits any authenticated user.
func RequireAuth() Policy { return Policy{Name: PolicyAuth} }

// RequireRoles admits authenticated users whose profile role is in roles.
// With no roles every user is denied.
func RequireRoles(name string, roles ...auth.Role) Policy {
	allowed := make(map[auth.Role]struct{}, len(roles))
	for _, r := range roles {
		if r == "" {
			continue
		}
		allowed[r] = struct{}{}
	}
	return Policy{Name: name, roleRestricted: true, allowed: allowed}
}

// Admin is the role-restricted policy for back-office views.
func Admin() Policy {
	return RequireRoles(PolicyAdmin, auth.RoleAdmin, auth.RoleManager)
}

// RoleRestricted reports whether the policy checks the profile role.
func (p Policy) RoleRestricted() bool { return p.roleRestricted }

// Allows reports whether role is in the allow-list. Always false for an empty role.
func (p Policy) Allows(role auth.Role) bool {
	if role == "" {
		return false
	}
	_, ok := p.allowed[role]
	return ok
}

// AllowedRoles returns the allow-list sorted, or nil for plain authentication.
func (p Policy) AllowedRoles() []auth.Role {
	if !p.roleRestricted {
		return nil
	}
	out := make([]auth.Role, 0, len(p.allowed))
	for r := range p.allowed {
		out = append(out, r)
	}
	slices.Sort(out)
	return out
}

// Guard binds a policy to the deployment's redirect targets.
type Guard struct {
	Routes Routes
	Policy Policy
}

// New returns a Guard, filling empty routes from DefaultRoutes.
func New(routes Routes, policy Policy) Guard {
	return Guard{Routes: routes.WithDefaults(), Policy: policy}
}

// Evaluate returns what the caller should do for a request at location.
func (g Guard) Evaluate(state auth.AuthState, location string) Intent {
	return g.Decide(state, location).Intent
}

// Decide is Evaluate plus the outcome branch, for logging and metrics.
//
// Checks run in a fixed order: loading, authentication, then the role
// allow-list when the policy is role-restricted. A missing profile or role
// is treated as not allowed.
func (g Guard) Decide(state auth.AuthState, location string) Decision {
	if state.Loading {
		return Decision{Outcome: OutcomeLoading, Intent: ShowLoading()}
	}
	if !state.Authenticated {
		return Decision{
			Outcome: OutcomeUnauthenticated,
			Intent:  RedirectTo(g.Routes.Login, location),
		}
	}
	if !g.Policy.RoleRestricted() {
		return Decision{Outcome: OutcomeAuthorizedNoRoleCheck, Intent: RenderChildren()}
	}
	role, ok := state.Role()
	if !ok || !g.Policy.Allows(role) {
		return Decision{
			Outcome: OutcomeAuthorizedRoleDenied,
			Intent:  RedirectTo(g.Routes.Unauthorized, ""),
		}
	}
	return Decision{Outcome: OutcomeAuthorizedRoleOK, Intent: RenderChildren()}
}
