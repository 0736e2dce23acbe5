package authroles

import (
	"errors"
	"fmt"
	"strings"

	jmespath "github.com/jmespath-community/go-jmespath"

	domainauth "github.com/target/storefront-gate/internal/domain/auth"
	"github.com/target/storefront-gate/internal/ports"
)

var _ ports.RoleMapper = (*ClaimRoleMapper)(nil)

// rolePriority orders roles when a claim yields several values.
var rolePriority = []domainauth.Role{
	domainauth.RoleAdmin,
	domainauth.RoleManager,
	domainauth.RoleCustomer,
}

// ClaimRoleMapper extracts the role from raw IdP claims with a JMESPath
// expression such as `app_metadata.role` or `realm_access.roles`.
// When the expression yields nothing usable, Fallback decides.
type ClaimRoleMapper struct {
	expr     string
	fallback ports.RoleMapper
}

// NewClaimRoleMapper validates expr and returns a mapper. fallback must not be nil.
func NewClaimRoleMapper(expr string, fallback ports.RoleMapper) (*ClaimRoleMapper, error) {
	expr = strings.TrimSpace(expr)
	if expr == "" {
		return nil, errors.New("role claim expression is required")
	}
	if fallback == nil {
		return nil, errors.New("fallback role mapper is required")
	}
	if _, err := jmespath.Compile(expr); err != nil {
		return nil, fmt.Errorf("compile role claim expression: %w", err)
	}
	return &ClaimRoleMapper{expr: expr, fallback: fallback}, nil
}

func (m *ClaimRoleMapper) Map(id domainauth.Identity) domainauth.Role {
	if id.Role != "" || len(id.Claims) == 0 {
		return m.fallback.Map(id)
	}
	res, err := jmespath.Search(m.expr, id.Claims)
	if err != nil {
		return m.fallback.Map(id)
	}
	if role := roleFromResult(res); role != "" {
		return role
	}
	return m.fallback.Map(id)
}

func roleFromResult(res any) domainauth.Role {
	switch v := res.(type) {
	case string:
		return domainauth.ParseRole(v)
	case []any:
		found := make(map[domainauth.Role]bool, len(v))
		var first domainauth.Role
		for _, item := range v {
			s, ok := item.(string)
			if !ok {
				continue
			}
			r := domainauth.ParseRole(s)
			if r == "" {
				continue
			}
			if first == "" {
				first = r
			}
			found[r] = true
		}
		for _, r := range rolePriority {
			if found[r] {
				return r
			}
		}
		return first
	default:
		return ""
	}
}
