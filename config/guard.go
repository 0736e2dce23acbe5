package config

import (
	"errors"
	"fmt"
	"os"
	"sort"
	"strings"

	"github.com/BurntSushi/toml"
)

// Route policy names accepted in the policy file.
const (
	RoutePolicyAuth  = "auth"
	RoutePolicyAdmin = "admin"
	RoutePolicyRoles = "roles"
)

// GuardConfig controls redirect targets and the route policy table.
type GuardConfig struct {
	LoginPath        string   `env:"GUARD_LOGIN_PATH"        envDefault:"/auth/login"`
	UnauthorizedPath string   `env:"GUARD_UNAUTHORIZED_PATH" envDefault:"/unauthorized"`
	AdminRoles       []string `env:"GUARD_ADMIN_ROLES"       envDefault:"admin;manager" envSeparator:";"`
	// PolicyFile is a TOML file of [[route]] tables. Built-in defaults apply when empty.
	PolicyFile string `env:"GUARD_POLICY_FILE"`
}

// Sanitize applies guardrails to guard configuration values.
func (g *GuardConfig) Sanitize() {
	g.LoginPath = normalizePath(g.LoginPath, "/auth/login")
	g.UnauthorizedPath = normalizePath(g.UnauthorizedPath, "/unauthorized")
	g.AdminRoles = normalizeRoles(g.AdminRoles)
	g.PolicyFile = strings.TrimSpace(g.PolicyFile)
}

// normalizeRoles lowercases role names and drops blanks, matching how roles
// are read from sessions and tokens.
func normalizeRoles(in []string) []string {
	if in == nil {
		return nil
	}
	out := make([]string, 0, len(in))
	for _, r := range in {
		if r = strings.ToLower(strings.TrimSpace(r)); r != "" {
			out = append(out, r)
		}
	}
	return out
}

func normalizePath(p, fallback string) string {
	p = strings.TrimSpace(p)
	if p == "" {
		return fallback
	}
	if !strings.HasPrefix(p, "/") {
		p = "/" + p
	}
	return p
}

// RouteRule binds a ServeMux pattern to a guard policy.
type RouteRule struct {
	Pattern string   `toml:"pattern"`
	Policy  string   `toml:"policy"`
	Roles   []string `toml:"roles"`
	// Name labels the policy in /auth/state lookups and metrics. Optional.
	Name string `toml:"name"`
}

// PolicyName returns the explicit name, else "roles:<pattern>" for role
// lists, else the policy itself.
func (r RouteRule) PolicyName() string {
	switch {
	case r.Name != "":
		return r.Name
	case r.Policy == RoutePolicyRoles:
		return RoutePolicyRoles + ":" + r.Pattern
	default:
		return r.Policy
	}
}

// Validate reports configuration errors in a single rule.
func (r RouteRule) Validate() error {
	if strings.TrimSpace(r.Pattern) == "" {
		return errors.New("pattern is required")
	}
	if !strings.HasPrefix(r.Pattern, "/") {
		return fmt.Errorf("pattern %q: must be a path starting with /", r.Pattern)
	}
	switch r.Policy {
	case RoutePolicyAuth, RoutePolicyAdmin:
		if len(r.Roles) > 0 {
			return fmt.Errorf("pattern %q: roles are only valid with policy %q", r.Pattern, RoutePolicyRoles)
		}
	case RoutePolicyRoles:
	default:
		return fmt.Errorf("pattern %q: unknown policy %q", r.Pattern, r.Policy)
	}
	return nil
}

// RouteFile is the decoded route policy file.
type RouteFile struct {
	Routes []RouteRule `toml:"route"`
}

// DefaultRouteRules guard account pages for any signed-in user and the
// admin area for admin roles.
func DefaultRouteRules() []RouteRule {
	return []RouteRule{
		{Pattern: "/account/", Policy: RoutePolicyAuth},
		{Pattern: "/admin/", Policy: RoutePolicyAdmin},
	}
}

// ParseRouteRules decodes and validates a TOML route policy document.
func ParseRouteRules(doc string) ([]RouteRule, error) {
	var f RouteFile
	md, err := toml.Decode(doc, &f)
	if err != nil {
		return nil, fmt.Errorf("parsing route policy: %w", err)
	}
	if undecoded := md.Undecoded(); len(undecoded) > 0 {
		keys := make([]string, 0, len(undecoded))
		for _, k := range undecoded {
			keys = append(keys, k.String())
		}
		sort.Strings(keys)
		return nil, fmt.Errorf("parsing route policy: unknown keys %s", strings.Join(keys, ", "))
	}
	if len(f.Routes) == 0 {
		return nil, errors.New("route policy defines no routes")
	}

	seen := make(map[string]struct{}, len(f.Routes))
	names := make(map[string]struct{}, len(f.Routes))
	for i := range f.Routes {
		r := &f.Routes[i]
		r.Pattern = strings.TrimSpace(r.Pattern)
		r.Policy = strings.ToLower(strings.TrimSpace(r.Policy))
		r.Name = strings.TrimSpace(r.Name)
		r.Roles = normalizeRoles(r.Roles)
		if err := r.Validate(); err != nil {
			return nil, fmt.Errorf("route %d: %w", i+1, err)
		}
		if _, dup := seen[r.Pattern]; dup {
			return nil, fmt.Errorf("route %d: duplicate pattern %q", i+1, r.Pattern)
		}
		seen[r.Pattern] = struct{}{}
		if r.Name != "" {
			if _, dup := names[r.Name]; dup {
				return nil, fmt.Errorf("route %d: duplicate name %q", i+1, r.Name)
			}
			names[r.Name] = struct{}{}
		}
	}
	return f.Routes, nil
}

// LoadRouteRules returns the rules from path, or DefaultRouteRules when path is empty.
func LoadRouteRules(path string) ([]RouteRule, error) {
	if path == "" {
		return DefaultRouteRules(), nil
	}
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("reading route policy: %w", err)
	}
	return ParseRouteRules(string(data))
}
