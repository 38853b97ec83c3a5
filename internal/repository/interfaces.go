package repository

import (
	"context"
	"time"

	"github.com/lalith-99/unionline/internal/access"
	"github.com/lalith-99/unionline/internal/audit"
	"github.com/lalith-99/unionline/internal/identity"
	"github.com/lalith-99/unionline/internal/models"
	"github.com/lalith-99/unionline/internal/numbering"
)

// Conventions shared by every implementation:
//
//   - context.Context first, on every method.
//   - Get* methods return nil, nil when the row does not exist. Scoped
//     lookups also return nil, nil when the row exists but falls outside
//     the scope, so callers cannot tell the two apart.
//   - List* methods return an empty slice, never nil.
//   - Create* methods fill generated ids and timestamps on the argument.
//   - Unique-constraint violations surface as *apperr.ConflictError;
//     deadlocks and serialization failures as apperr.ErrTransient.

// Store is the entry point: non-transactional access through Repos, and
// WithTx for operations that must commit as one unit.
type Store interface {
	Repos

	// WithTx runs fn inside one transaction. A non-nil error from fn (or a
	// panic) rolls back every write made through tx.
	WithTx(ctx context.Context, fn func(tx Repos) error) error
}

// Repos groups the per-entity repositories bound to one connection or
// transaction.
type Repos interface {
	Users() UserRepository
	Profiles() ProfileRepository
	Principals() PrincipalRepository
	Companies() CompanyRepository
	Poles() PoleRepository
	Delegates() DelegateRepository
	Requetes() RequeteRepository
	Dossiers() DossierRepository
	Reunions() ReunionRepository
	Attachments() AttachmentRepository
	Documents() DocumentRepository
	Notifications() NotificationRepository
	Audit() AuditRepository
	Numbers() Numberer
}

type UserRepository interface {
	Create(ctx context.Context, u *models.User) error
	GetByID(ctx context.Context, id int64) (*models.User, error)
	// GetByEmail matches case-insensitively.
	GetByEmail(ctx context.Context, email string) (*models.User, error)
	Update(ctx context.Context, u *models.User) error
}

type ProfileRepository interface {
	Create(ctx context.Context, p *models.Profile) error
	GetByUser(ctx context.Context, userID int64) (*models.Profile, error)
	Update(ctx context.Context, p *models.Profile) error
	List(ctx context.Context) ([]models.Profile, error)
}

// PrincipalRepository assembles the authorization facts of a user in one
// round trip: user row, profile, delegate mandates, and pôles the user
// heads or belongs to.
type PrincipalRepository interface {
	LoadPrincipal(ctx context.Context, userID int64) (*identity.Principal, error)
}

type CompanyRepository interface {
	Create(ctx context.Context, c *models.Company) error
	GetByID(ctx context.Context, id int64) (*models.Company, error)
	List(ctx context.Context) ([]models.Company, error)
	Update(ctx context.Context, c *models.Company) error
}

type PoleRepository interface {
	Create(ctx context.Context, p *models.Pole) error
	GetByID(ctx context.Context, id int64) (*models.Pole, error)
	List(ctx context.Context) ([]models.Pole, error)
	AddMember(ctx context.Context, m *models.PoleMembership) error
	GetMember(ctx context.Context, poleID, userID int64) (*models.PoleMembership, error)
	ListMembers(ctx context.Context, poleID int64) ([]models.PoleMembership, error)
	// UpdateMember rewrites the role of an existing membership.
	UpdateMember(ctx context.Context, m *models.PoleMembership) error
	// SetMemberRoles sets role on every membership of userID.
	SetMemberRoles(ctx context.Context, userID int64, role models.PoleRole) error
}

type DelegateRepository interface {
	Create(ctx context.Context, m *models.DelegateMandate) error
	GetByID(ctx context.Context, id int64) (*models.DelegateMandate, error)
	List(ctx context.Context) ([]models.DelegateMandate, error)
	Update(ctx context.Context, m *models.DelegateMandate) error
}

// RequeteRepository reads are scoped; ListByIDs is not and is meant for
// internal consistency checks only.
type RequeteRepository interface {
	Create(ctx context.Context, r *models.Requete) error
	GetByID(ctx context.Context, scope access.Scope, id int64) (*models.Requete, error)
	// LockByID is GetByID plus a row lock held until the transaction ends.
	LockByID(ctx context.Context, scope access.Scope, id int64) (*models.Requete, error)
	List(ctx context.Context, scope access.Scope) ([]models.Requete, error)
	ListByIDs(ctx context.Context, ids []int64) ([]models.Requete, error)
	Update(ctx context.Context, r *models.Requete) error
}

type DossierRepository interface {
	// Create inserts the dossier and its requête links.
	Create(ctx context.Context, d *models.Dossier) error
	GetByID(ctx context.Context, scope access.Scope, id int64) (*models.Dossier, error)
	LockByID(ctx context.Context, scope access.Scope, id int64) (*models.Dossier, error)
	List(ctx context.Context, scope access.Scope) ([]models.Dossier, error)
	// Update writes the fields and replaces the link set with d.RequeteIDs.
	Update(ctx context.Context, d *models.Dossier) error
}

type ReunionRepository interface {
	Create(ctx context.Context, r *models.Reunion) error
	GetByID(ctx context.Context, scope access.Scope, id int64) (*models.Reunion, error)
	List(ctx context.Context, scope access.Scope) ([]models.Reunion, error)
	Update(ctx context.Context, r *models.Reunion) error
}

type AttachmentRepository interface {
	Create(ctx context.Context, a *models.PieceJointe) error
	GetByID(ctx context.Context, scope access.Scope, id int64) (*models.PieceJointe, error)
	List(ctx context.Context, scope access.Scope) ([]models.PieceJointe, error)
	// ListByRequete is unscoped: callers authorize on the requête first.
	ListByRequete(ctx context.Context, requeteID int64) ([]models.PieceJointe, error)
}

// DocumentFilter narrows a document listing. Zero values match anything.
type DocumentFilter struct {
	Category string
	Year     int
}

// DocumentRepository reads are scoped. ScopePoles matches the document's
// pôle; ScopeCompanies matches pôles that received a requête from one of the
// companies. Documents without a pôle only match ScopeAll.
type DocumentRepository interface {
	Create(ctx context.Context, d *models.Document) error
	GetByID(ctx context.Context, scope access.Scope, id int64) (*models.Document, error)
	List(ctx context.Context, scope access.Scope, f DocumentFilter) ([]models.Document, error)
	Update(ctx context.Context, d *models.Document) error
}

type NotificationRepository interface {
	Create(ctx context.Context, n *models.Notification) error
	GetByID(ctx context.Context, scope access.Scope, id int64) (*models.Notification, error)
	List(ctx context.Context, scope access.Scope) ([]models.Notification, error)
	MarkRead(ctx context.Context, id int64) error
}

// AuditRepository is append-only: there is no update or delete.
type AuditRepository interface {
	audit.Appender
	audit.Reader
}

// Numberer allocates the next reference number for kind in now's year.
// It must be called through a transaction's Repos: the allocation is
// serialized per prefix until that transaction commits or rolls back.
type Numberer interface {
	NextNumber(ctx context.Context, kind numbering.Kind, now time.Time) (string, error)
}
