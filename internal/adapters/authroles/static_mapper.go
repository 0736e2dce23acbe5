// Package authroles maps identity provider groups and claims to storefront roles.
package authroles

import (
	domainauth "github.com/target/storefront-gate/internal/domain/auth"
	"github.com/target/storefront-gate/internal/ports"
)

var _ ports.RoleMapper = StaticRoleMapper{}

// StaticRoleMapper maps groups by simple string membership rules.
// Admin membership wins over manager; everyone else is a customer.
type StaticRoleMapper struct {
	AdminGroup   string
	ManagerGroup string
}

func (m StaticRoleMapper) Map(id domainauth.Identity) domainauth.Role {
	// bearer tokens already carry the application role
	if id.Role != "" {
		return id.Role
	}
	if m.AdminGroup != "" && hasGroup(id.Groups, m.AdminGroup) {
		return domainauth.RoleAdmin
	}
	if m.ManagerGroup != "" && hasGroup(id.Groups, m.ManagerGroup) {
		return domainauth.RoleManager
	}
	return domainauth.RoleCustomer
}

func hasGroup(groups []string, want string) bool {
	for _, g := range groups {
		if g == want {
			return true
		}
	}
	return false
}
