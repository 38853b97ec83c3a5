package models

import (
	"time"
)

// User is an authenticated identity (a "principal").
//
// IsStaff and IsSuperuser are the administrative override flags. They are
// never read directly for authorization: identity.ResolveRole folds them
// together with the profile role into one effective role per request.
type User struct {
	ID           int64     `json:"id"`
	Email        string    `json:"email"`
	PasswordHash string    `json:"-"`
	FirstName    string    `json:"first_name"`
	LastName     string    `json:"last_name"`
	IsStaff      bool      `json:"is_staff"`
	IsSuperuser  bool      `json:"is_superuser"`
	IsActive     bool      `json:"is_active"`
	CreatedAt    time.Time `json:"created_at"`
}

// Profile carries the business role of a user. Exactly one per user, created
// in the same transaction as the user with RoleMember.
type Profile struct {
	ID           int64      `json:"id"`
	UserID       int64      `json:"user_id"`
	Role         Role       `json:"role"`
	CompanyID    *int64     `json:"company_id"`
	Phone        string     `json:"phone"`
	JobTitle     string     `json:"job_title"`
	Department   string     `json:"department"`
	ContractType string     `json:"contract_type"`
	HiredOn      *time.Time `json:"hired_on"`
	CreatedAt    time.Time  `json:"created_at"`
}

// Company is an external employer.
type Company struct {
	ID      int64  `json:"id"`
	Name    string `json:"name"`
	Code    string `json:"code"`
	Address string `json:"address"`
	Sector  string `json:"sector"`
}

// Pole is a department of the union. HeadUserID is set to the creator and
// is protected against deletion while referenced.
type Pole struct {
	ID           int64    `json:"id"`
	Name         string   `json:"name"`
	Description  string   `json:"description"`
	HeadUserID   int64    `json:"head_user_id"`
	ProblemTypes []string `json:"problem_types"`
}

// PoleMembership tags a user with a pôle-local role. Unique per (pole, user).
type PoleMembership struct {
	ID        int64     `json:"id"`
	PoleID    int64     `json:"pole_id"`
	UserID    int64     `json:"user_id"`
	Role      PoleRole  `json:"role"`
	CreatedAt time.Time `json:"created_at"`
}

// DelegateMandate links a user to the company they represent.
// Unique per (user, company).
type DelegateMandate struct {
	ID        int64     `json:"id"`
	UserID    int64     `json:"user_id"`
	CompanyID int64     `json:"company_id"`
	Phone     string    `json:"phone"`
	Email     string    `json:"email"`
	Active    bool      `json:"active"`
	CreatedAt time.Time `json:"created_at"`
}

// Requete is a ticket filed by a worker.
//
// DelegateUserID is not a column: repositories fill it from the mandate row
// so access checks can compare it with the principal without another query.
type Requete struct {
	ID              int64           `json:"id"`
	ReferenceNumber string          `json:"reference_number"`
	WorkerID        int64           `json:"worker_id"`
	PoleID          int64           `json:"pole_id"`
	CompanyID       int64           `json:"company_id"`
	DelegateID      *int64          `json:"delegate_id"`
	DelegateUserID  *int64          `json:"-"`
	DossierID       *int64          `json:"dossier_id"`
	ProblemType     string          `json:"problem_type"`
	Title           string          `json:"title"`
	Description     string          `json:"description"`
	Status          RequeteStatus   `json:"status"`
	Priority        RequetePriority `json:"priority"`
	CreatedAt       time.Time       `json:"created_at"`
	UpdatedAt       time.Time       `json:"updated_at"`
}

// Dossier groups requêtes of one pôle.
type Dossier struct {
	ID            int64         `json:"id"`
	DossierNumber string        `json:"dossier_number"`
	PoleID        int64         `json:"pole_id"`
	Title         string        `json:"title"`
	ResponsibleID int64         `json:"responsible_id"`
	Status        DossierStatus `json:"status"`
	OpenedOn      time.Time     `json:"opened_on"`
	ClosedOn      *time.Time    `json:"closed_on"`
	Synthesis     *string       `json:"synthesis"`
	RequeteIDs    []int64       `json:"requete_ids"`
	CreatedAt     time.Time     `json:"created_at"`
	UpdatedAt     time.Time     `json:"updated_at"`
}

// MayClose reports whether every linked requête is resolved or closed.
// A dossier without requêtes is never closable.
func (d *Dossier) MayClose(linked []Requete) bool {
	if len(linked) == 0 {
		return false
	}
	for _, r := range linked {
		if !r.Status.IsSettled() {
			return false
		}
	}
	return true
}

// Reunion is a meeting about a dossier.
type Reunion struct {
	ID             int64         `json:"id"`
	DossierID      int64         `json:"dossier_id"`
	Type           ReunionType   `json:"type"`
	ScheduledAt    time.Time     `json:"scheduled_at"`
	Location       *string       `json:"location"`
	ParticipantIDs []int64       `json:"participant_ids"`
	Agenda         string        `json:"agenda"`
	Minutes        *string       `json:"minutes"`
	Status         ReunionStatus `json:"status"`
	CreatedBy      int64         `json:"created_by"`
	CreatedAt      time.Time     `json:"created_at"`
}

// PieceJointe references a stored file attached to a requête. The core never
// reads the file, FileKey is an opaque storage key.
type PieceJointe struct {
	ID           int64        `json:"id"`
	RequeteID    int64        `json:"requete_id"`
	FileKey      string       `json:"file_key"`
	DocumentType DocumentType `json:"document_type"`
	Description  string       `json:"description"`
	UploadedBy   int64        `json:"uploaded_by"`
	UploadedAt   time.Time    `json:"uploaded_at"`
}

// Document is an internal union document, optionally owned by a pôle.
// Version counts file replacements and starts at 1.
type Document struct {
	ID          int64     `json:"id"`
	Name        string    `json:"name"`
	Description string    `json:"description"`
	PoleID      *int64    `json:"pole_id"`
	Year        int       `json:"year"`
	Category    string    `json:"category"`
	FileKey     string    `json:"file_key"`
	Version     int       `json:"version"`
	UploadedBy  int64     `json:"uploaded_by"`
	CreatedAt   time.Time `json:"created_at"`
	UpdatedAt   time.Time `json:"updated_at"`
}

// Notification is addressed to exactly one user.
type Notification struct {
	ID        int64            `json:"id"`
	UserID    int64            `json:"user_id"`
	Title     string           `json:"title"`
	Message   string           `json:"message"`
	Type      NotificationType `json:"type"`
	RequeteID *int64           `json:"requete_id"`
	Read      bool             `json:"read"`
	CreatedAt time.Time        `json:"created_at"`
}

// AuditEntry is one immutable row of the action ledger. The subject is a
// (kind, id) pair rather than a foreign key so one table serves every kind.
type AuditEntry struct {
	ID          int64       `json:"id"`
	SubjectKind EntityKind  `json:"subject_kind"`
	SubjectID   int64       `json:"subject_id"`
	ActorID     int64       `json:"actor_id"`
	Action      AuditAction `json:"action"`
	Field       *string     `json:"field"`
	OldValue    *string     `json:"old_value"`
	NewValue    *string     `json:"new_value"`
	Comment     *string     `json:"comment"`
	CreatedAt   time.Time   `json:"created_at"`
}
