// Package access decides who may see and change what.
//
// Three pieces live here:
//   - Engine: per-object read/write decisions (detail and mutation paths).
//   - Chain: collection-level policies, an ordered conjunction evaluated
//     before any object is loaded.
//   - Scope: the read-side projection used to narrow listings.
package access

import (
	"github.com/lalith-99/unionline/internal/apperr"
	"github.com/lalith-99/unionline/internal/identity"
	"github.com/lalith-99/unionline/internal/models"
)

// Target is the relationship data an object decision needs. Build it with
// one of the constructors below so derived kinds (Réunion, PièceJointe)
// inherit the facts of their owning Dossier or Requête.
type Target struct {
	Kind            models.EntityKind
	PoleID          int64
	WorkerIDs       []int64
	DelegateUserIDs []int64
	RecipientID     int64
}

func RequeteTarget(r *models.Requete) Target {
	t := Target{
		Kind:      models.KindRequete,
		PoleID:    r.PoleID,
		WorkerIDs: []int64{r.WorkerID},
	}
	if r.DelegateUserID != nil {
		t.DelegateUserIDs = []int64{*r.DelegateUserID}
	}
	return t
}

// DossierTarget grants delegates and members through any linked requête.
func DossierTarget(d *models.Dossier, linked []models.Requete) Target {
	t := Target{Kind: models.KindDossier, PoleID: d.PoleID}
	for i := range linked {
		t.WorkerIDs = append(t.WorkerIDs, linked[i].WorkerID)
		if linked[i].DelegateUserID != nil {
			t.DelegateUserIDs = append(t.DelegateUserIDs, *linked[i].DelegateUserID)
		}
	}
	return t
}

// ReunionTarget derives from the owning dossier's target.
func ReunionTarget(dossier Target) Target {
	dossier.Kind = models.KindReunion
	return dossier
}

// PieceJointeTarget derives from the owning requête's target.
func PieceJointeTarget(requete Target) Target {
	requete.Kind = models.KindPieceJointe
	return requete
}

func NotificationTarget(n *models.Notification) Target {
	return Target{Kind: models.KindNotification, RecipientID: n.UserID}
}

// DenyHook observes denials; used for metrics. The argument names the rule
// that failed.
type DenyHook func(rule string)

// Engine evaluates object-level permissions. It holds no per-principal
// state and is safe for concurrent use.
type Engine struct {
	onDeny DenyHook
}

func NewEngine(onDeny DenyHook) *Engine {
	return &Engine{onDeny: onDeny}
}

// CanRead reports whether p may see t.
func (e *Engine) CanRead(p *identity.Principal, t Target) bool {
	return e.decide(p, t)
}

// CanWrite reports whether p may change t. Reads and writes share the same
// object table; the asymmetric cases are expressed by collection policies.
func (e *Engine) CanWrite(p *identity.Principal, t Target) bool {
	return e.decide(p, t)
}

// Authorize returns apperr.ErrForbidden when the decision is negative.
func (e *Engine) Authorize(p *identity.Principal, t Target, write bool) error {
	allowed := e.CanRead(p, t)
	if write {
		allowed = e.CanWrite(p, t)
	}
	if !allowed {
		if e.onDeny != nil {
			e.onDeny("object:" + string(t.Kind))
		}
		return apperr.ErrForbidden
	}
	return nil
}

func (e *Engine) decide(p *identity.Principal, t Target) bool {
	role, ok := identity.ResolveRole(p)
	if !ok {
		return false
	}
	if role == models.RoleAdmin {
		return true
	}
	if t.Kind == models.KindNotification {
		return t.RecipientID == p.ID()
	}

	switch role {
	case models.RolePoleManager:
		return p.InPole(t.PoleID)
	case models.RoleDelegate:
		return contains(t.DelegateUserIDs, p.ID())
	case models.RoleMember:
		return contains(t.WorkerIDs, p.ID())
	}
	return false
}

func contains(ids []int64, id int64) bool {
	for _, v := range ids {
		if v == id {
			return true
		}
	}
	return false
}
