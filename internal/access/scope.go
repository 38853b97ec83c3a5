package access

import (
	"github.com/lalith-99/unionline/internal/identity"
	"github.com/lalith-99/unionline/internal/models"
)

// ScopeMode says which predicate narrows a listing.
type ScopeMode int

const (
	// ScopeNone matches nothing. Used when no role resolves.
	ScopeNone ScopeMode = iota
	ScopeAll
	// ScopeCompanies keeps rows tied to one of CompanyIDs.
	ScopeCompanies
	// ScopePoles keeps rows whose pôle is in PoleIDs.
	ScopePoles
	// ScopeOwner keeps rows the user owns as worker.
	ScopeOwner
	// ScopeRecipient keeps notifications addressed to UserID.
	ScopeRecipient
)

// Scope is a role-derived filter. Repositories translate it per entity kind:
// a requête matches ScopeCompanies through its own company, a dossier
// through any linked requête, a réunion through its dossier, and so on.
type Scope struct {
	Mode       ScopeMode
	CompanyIDs []int64
	PoleIDs    []int64
	UserID     int64
}

func (s Scope) String() string {
	switch s.Mode {
	case ScopeAll:
		return "all"
	case ScopeCompanies:
		return "companies"
	case ScopePoles:
		return "poles"
	case ScopeOwner:
		return "owner"
	case ScopeRecipient:
		return "recipient"
	}
	return "none"
}

// ScopeFor narrows Requête, Dossier, Réunion and PièceJointe listings.
//
// Admins see everything. A delegate with at least one active mandate sees
// the rows of the mandated companies. Everyone else, including a delegate
// without an active mandate, sees their pôles, or only what they own when
// they belong to no pôle.
func ScopeFor(p *identity.Principal) Scope {
	role, ok := identity.ResolveRole(p)
	if !ok {
		return Scope{Mode: ScopeNone}
	}
	if role == models.RoleAdmin {
		return Scope{Mode: ScopeAll}
	}
	if role == models.RoleDelegate {
		if companies := p.ActiveCompanies(); len(companies) > 0 {
			return Scope{Mode: ScopeCompanies, CompanyIDs: companies}
		}
	}
	if poles := p.Poles(); len(poles) > 0 {
		return Scope{Mode: ScopePoles, PoleIDs: poles}
	}
	return Scope{Mode: ScopeOwner, UserID: p.ID()}
}

// DocumentScopeFor narrows union document listings. It follows ScopeFor
// except that nothing is owned: a caller outside every pôle sees no
// document.
func DocumentScopeFor(p *identity.Principal) Scope {
	s := ScopeFor(p)
	if s.Mode == ScopeOwner {
		return Scope{Mode: ScopeNone}
	}
	return s
}

// NotificationScopeFor never uses pôles: notifications are personal.
func NotificationScopeFor(p *identity.Principal) Scope {
	role, ok := identity.ResolveRole(p)
	if !ok {
		return Scope{Mode: ScopeNone}
	}
	if role == models.RoleAdmin {
		return Scope{Mode: ScopeAll}
	}
	return Scope{Mode: ScopeRecipient, UserID: p.ID()}
}
