package postgres

import (
	"github.com/lalith-99/unionline/internal/access"
)

// Scope predicates. Each function renders a WHERE fragment for one table
// alias and appends its parameters to a.

// requeteScope filters the requetes alias r.
func requeteScope(s access.Scope, a *args) string {
	switch s.Mode {
	case access.ScopeAll:
		return "TRUE"
	case access.ScopeCompanies:
		return "r.company_id = ANY(" + a.add(s.CompanyIDs) + ")"
	case access.ScopePoles:
		return "r.pole_id = ANY(" + a.add(s.PoleIDs) + ")"
	case access.ScopeOwner:
		return "r.worker_id = " + a.add(s.UserID)
	}
	return "FALSE"
}

// dossierScope filters the dossiers alias d. Delegates and owners reach a
// dossier through any of its linked requêtes.
func dossierScope(s access.Scope, a *args) string {
	switch s.Mode {
	case access.ScopeAll:
		return "TRUE"
	case access.ScopePoles:
		return "d.pole_id = ANY(" + a.add(s.PoleIDs) + ")"
	case access.ScopeCompanies, access.ScopeOwner:
		return `EXISTS (
			SELECT 1 FROM dossier_requetes dr
			JOIN requetes r ON r.id = dr.requete_id
			WHERE dr.dossier_id = d.id AND ` + requeteScope(s, a) + `)`
	}
	return "FALSE"
}

// documentScope filters the documents alias doc. A delegate reaches the
// pôles that received a requête from one of the mandated companies.
func documentScope(s access.Scope, a *args) string {
	switch s.Mode {
	case access.ScopeAll:
		return "TRUE"
	case access.ScopePoles:
		return "doc.pole_id = ANY(" + a.add(s.PoleIDs) + ")"
	case access.ScopeCompanies:
		return `doc.pole_id IN (
			SELECT r.pole_id FROM requetes r WHERE r.company_id = ANY(` + a.add(s.CompanyIDs) + `))`
	}
	return "FALSE"
}

// notificationScope filters the notifications alias n.
func notificationScope(s access.Scope, a *args) string {
	switch s.Mode {
	case access.ScopeAll:
		return "TRUE"
	case access.ScopeRecipient:
		return "n.user_id = " + a.add(s.UserID)
	}
	return "FALSE"
}
