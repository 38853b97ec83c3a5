package access

import (
	"github.com/lalith-99/unionline/internal/identity"
	"github.com/lalith-99/unionline/internal/models"
)

// Request is what a collection policy sees: who is calling and whether the
// call mutates.
type Request struct {
	Principal *identity.Principal
	Write     bool
}

// Policy is one named collection-level rule.
type Policy struct {
	Name  string
	Allow func(req Request, role models.Role, hasRole bool) bool
}

// Chain is an ordered conjunction of policies. Evaluation stops at the
// first failure so the reported policy name is deterministic.
type Chain []Policy

// Evaluate returns the name of the first failing policy, or "" when every
// policy passes. The role is resolved once for the whole chain.
func (c Chain) Evaluate(req Request) string {
	role, ok := identity.ResolveRole(req.Principal)
	for _, p := range c {
		if !p.Allow(req, role, ok) {
			return p.Name
		}
	}
	return ""
}

var (
	// HasRole refuses callers without a business role.
	HasRole = Policy{
		Name: "has_role",
		Allow: func(_ Request, _ models.Role, ok bool) bool {
			return ok
		},
	}

	// ReadOnlyUnlessAdmin lets every role read; only admins write.
	ReadOnlyUnlessAdmin = Policy{
		Name: "read_only_unless_admin",
		Allow: func(req Request, role models.Role, ok bool) bool {
			if !ok {
				return false
			}
			return !req.Write || role == models.RoleAdmin
		},
	}

	// ReadOnlyUnlessAdminOrPoleManager is the pôle-governed variant.
	ReadOnlyUnlessAdminOrPoleManager = Policy{
		Name: "read_only_unless_admin_or_pole_manager",
		Allow: func(req Request, role models.Role, ok bool) bool {
			if !ok {
				return false
			}
			return !req.Write || role == models.RoleAdmin || role == models.RolePoleManager
		},
	}

	// AdminOnly guards administrative actions regardless of method.
	AdminOnly = Policy{
		Name: "admin_only",
		Allow: func(_ Request, role models.Role, ok bool) bool {
			return ok && role == models.RoleAdmin
		},
	}

	// Authenticated only requires a logged-in, active user. Used for
	// self-service endpoints such as the caller's own profile.
	Authenticated = Policy{
		Name: "authenticated",
		Allow: func(req Request, _ models.Role, _ bool) bool {
			return req.Principal != nil && req.Principal.User.IsActive
		},
	}
)
