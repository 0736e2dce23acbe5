package httpx

import (
	"net/url"
	"strings"

	"github.com/target/storefront-gate/internal/domain/guard"
)

// ProtectedRoute binds a ServeMux path pattern to the guard that protects it.
// A pattern ending in "/" protects the whole subtree.
type ProtectedRoute struct {
	Pattern string
	Guard   guard.Guard
}

// RouteTable answers which guard applies to a location, for callers that
// evaluate a guard outside the request being guarded.
type RouteTable struct {
	routes []ProtectedRoute
	named  map[string]guard.Guard
}

// NewRouteTable indexes routes. When several routes share a policy name the
// first one is returned by Named.
func NewRouteTable(routes []ProtectedRoute) *RouteTable {
	t := &RouteTable{
		routes: append([]ProtectedRoute(nil), routes...),
		named:  make(map[string]guard.Guard, len(routes)),
	}
	for _, rt := range routes {
		if _, ok := t.named[rt.Guard.Policy.Name]; !ok {
			t.named[rt.Guard.Policy.Name] = rt.Guard
		}
	}
	return t
}

// Routes returns the protected routes in registration order.
func (t *RouteTable) Routes() []ProtectedRoute {
	if t == nil {
		return nil
	}
	return append([]ProtectedRoute(nil), t.routes...)
}

// Named returns the guard registered under a policy name.
func (t *RouteTable) Named(policy string) (guard.Guard, bool) {
	if t == nil {
		return guard.Guard{}, false
	}
	g, ok := t.named[policy]
	return g, ok
}

// Match returns the guard for location using ServeMux precedence for plain
// path patterns: an exact pattern wins, otherwise the longest subtree.
func (t *RouteTable) Match(location string) (guard.Guard, bool) {
	if t == nil {
		return guard.Guard{}, false
	}
	path := location
	if u, err := url.Parse(location); err == nil {
		path = u.Path
	}

	var (
		best    guard.Guard
		bestLen = -1
	)
	for _, rt := range t.routes {
		switch {
		case rt.Pattern == path:
			return rt.Guard, true
		case strings.HasSuffix(rt.Pattern, "/") && strings.HasPrefix(path, rt.Pattern):
			if len(rt.Pattern) > bestLen {
				best, bestLen = rt.Guard, len(rt.Pattern)
			}
		}
	}
	return best, bestLen >= 0
}
