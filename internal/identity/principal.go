// Package identity turns an authenticated user into the facts every
// authorization decision needs: one effective role, the pôles the user
// belongs to, and the companies the user represents as a delegate.
//
// A Principal is loaded fresh for every request. Nothing here is cached
// across requests because roles and memberships can change between them.
package identity

import (
	"github.com/lalith-99/unionline/internal/models"
)

// Principal is an authenticated user plus the records that shape their
// rights. A nil *Principal is the anonymous caller.
type Principal struct {
	User     models.User
	Profile  *models.Profile
	Mandates []models.DelegateMandate

	// PoleIDs are the pôles the user heads or holds a membership in.
	PoleIDs []int64
}

// ID returns the user id, or 0 for the anonymous caller.
func (p *Principal) ID() int64 {
	if p == nil {
		return 0
	}
	return p.User.ID
}

// ResolveRole derives the single effective role of p.
//
// The administrative flags win over any stored profile role. The second
// return value is false when no business role applies (anonymous caller,
// deactivated account, missing or unknown profile role); callers must deny.
func ResolveRole(p *Principal) (models.Role, bool) {
	if p == nil || p.User.ID == 0 || !p.User.IsActive {
		return "", false
	}
	if p.User.IsSuperuser || p.User.IsStaff {
		return models.RoleAdmin, true
	}
	if p.Profile == nil || !p.Profile.Role.Valid() {
		return "", false
	}
	return p.Profile.Role, true
}

// Poles is polesOf(principal): every pôle where p is head or member.
func (p *Principal) Poles() []int64 {
	if p == nil {
		return nil
	}
	return p.PoleIDs
}

// InPole reports whether p heads or belongs to poleID.
func (p *Principal) InPole(poleID int64) bool {
	for _, id := range p.Poles() {
		if id == poleID {
			return true
		}
	}
	return false
}

// ActiveCompanies returns the companies of p's active delegate mandates,
// without duplicates, in mandate order.
func (p *Principal) ActiveCompanies() []int64 {
	if p == nil {
		return nil
	}
	seen := make(map[int64]bool, len(p.Mandates))
	var out []int64
	for _, m := range p.Mandates {
		if !m.Active || seen[m.CompanyID] {
			continue
		}
		seen[m.CompanyID] = true
		out = append(out, m.CompanyID)
	}
	return out
}
