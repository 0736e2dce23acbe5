package bootstrap

import (
	"fmt"

	"github.com/target/storefront-gate/config"
	domainauth "github.com/target/storefront-gate/internal/domain/auth"
	"github.com/target/storefront-gate/internal/domain/guard"
	httpx "github.com/target/storefront-gate/internal/http"
)

// BuildRouteTable turns the route policy file (or the built-in defaults)
// into guarded routes sharing the configured redirect targets.
func BuildRouteTable(cfg config.GuardConfig) (*httpx.RouteTable, error) {
	rules, err := config.LoadRouteRules(cfg.PolicyFile)
	if err != nil {
		return nil, err
	}
	routes := guard.Routes{Login: cfg.LoginPath, Unauthorized: cfg.UnauthorizedPath}.WithDefaults()

	protected := make([]httpx.ProtectedRoute, 0, len(rules))
	for _, rule := range rules {
		policy, err := policyForRule(rule, cfg.AdminRoles)
		if err != nil {
			return nil, err
		}
		protected = append(protected, httpx.ProtectedRoute{
			Pattern: rule.Pattern,
			Guard:   guard.New(routes, policy),
		})
	}
	return httpx.NewRouteTable(protected), nil
}

func policyForRule(rule config.RouteRule, adminRoles []string) (guard.Policy, error) {
	var policy guard.Policy
	switch rule.Policy {
	case config.RoutePolicyAuth:
		policy = guard.RequireAuth()
	case config.RoutePolicyAdmin:
		policy = guard.RequireRoles(guard.PolicyAdmin, toRoles(adminRoles)...)
	case config.RoutePolicyRoles:
		policy = guard.RequireRoles(config.RoutePolicyRoles, toRoles(rule.Roles)...)
	default:
		return guard.Policy{}, fmt.Errorf("pattern %q: unknown policy %q", rule.Pattern, rule.Policy)
	}
	policy.Name = rule.PolicyName()
	return policy, nil
}

// toRoles parses configured names the same way runtime roles are parsed.
func toRoles(names []string) []domainauth.Role {
	out := make([]domainauth.Role, 0, len(names))
	for _, n := range names {
		if r := domainauth.ParseRole(n); r != "" {
			out = append(out, r)
		}
	}
	return out
}
