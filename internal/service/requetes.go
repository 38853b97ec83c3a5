package service

import (
	"context"
	"fmt"
	"strings"

	"go.uber.org/zap"

	"github.com/lalith-99/unionline/internal/access"
	"github.com/lalith-99/unionline/internal/apperr"
	"github.com/lalith-99/unionline/internal/audit"
	"github.com/lalith-99/unionline/internal/identity"
	"github.com/lalith-99/unionline/internal/models"
	"github.com/lalith-99/unionline/internal/numbering"
	"github.com/lalith-99/unionline/internal/repository"
	"github.com/lalith-99/unionline/internal/workflow"
)

// unscoped is used for consistency checks the caller's visibility must not
// influence, such as "does this dossier belong to the same pôle".
var unscoped = access.Scope{Mode: access.ScopeAll}

type CreateRequeteInput struct {
	// WorkerID defaults to the caller.
	WorkerID    *int64                 `json:"worker_id"`
	PoleID      int64                  `json:"pole_id"`
	CompanyID   int64                  `json:"company_id"`
	DelegateID  *int64                 `json:"delegate_id"`
	DossierID   *int64                 `json:"dossier_id"`
	ProblemType string                 `json:"problem_type"`
	Title       string                 `json:"title"`
	Description string                 `json:"description"`
	Priority    models.RequetePriority `json:"priority"`
}

// RequetePatch is a partial update; nil fields are left alone.
type RequetePatch struct {
	Title       *string                 `json:"title"`
	Description *string                 `json:"description"`
	ProblemType *string                 `json:"problem_type"`
	Priority    *models.RequetePriority `json:"priority"`
	Status      *string                 `json:"status"`
	DelegateID  *int64                  `json:"delegate_id"`
	DossierID   *int64                  `json:"dossier_id"`
	Comment     string                  `json:"comment"`
}

type AttachmentInput struct {
	FileKey      string              `json:"file_key"`
	DocumentType models.DocumentType `json:"document_type"`
	Description  string              `json:"description"`
}

func (in *CreateRequeteInput) validate() error {
	var v apperr.Validation
	if in.PoleID <= 0 {
		v.Add("pole_id", "required")
	}
	if in.CompanyID <= 0 {
		v.Add("company_id", "required")
	}
	if strings.TrimSpace(in.Title) == "" {
		v.Add("title", "required")
	}
	if !models.ValidProblemType(in.ProblemType) {
		v.Add("problem_type", fmt.Sprintf("unknown problem type %q", in.ProblemType))
	}
	if in.Priority == "" {
		in.Priority = models.PriorityMedium
	} else if !in.Priority.Valid() {
		v.Add("priority", fmt.Sprintf("unknown priority %q", in.Priority))
	}
	return v.Err()
}

// CreateRequete numbers and stores a new requête in status new, records
// its creation and notifies the worker.
func (s *Service) CreateRequete(ctx context.Context, p *identity.Principal, in CreateRequeteInput) (*models.Requete, error) {
	if err := s.guard(p, roleChain, true); err != nil {
		return nil, err
	}
	if err := in.validate(); err != nil {
		return nil, err
	}
	workerID := p.ID()
	if in.WorkerID != nil {
		workerID = *in.WorkerID
	}
	if role, _ := identity.ResolveRole(p); role == models.RoleMember && workerID != p.ID() {
		return nil, apperr.Invalid("worker_id", "members can only file requêtes for themselves")
	}

	var created *models.Requete
	err := s.inTx(ctx, func(tx repository.Repos, fx *effects) error {
		if err := s.checkRequeteRefs(ctx, tx, workerID, in); err != nil {
			return err
		}

		number, err := tx.Numbers().NextNumber(ctx, numbering.KindRequete, s.now())
		if err != nil {
			return err
		}
		r := &models.Requete{
			ReferenceNumber: number,
			WorkerID:        workerID,
			PoleID:          in.PoleID,
			CompanyID:       in.CompanyID,
			DelegateID:      in.DelegateID,
			DossierID:       in.DossierID,
			ProblemType:     in.ProblemType,
			Title:           strings.TrimSpace(in.Title),
			Description:     in.Description,
			Status:          models.RequeteNew,
			Priority:        in.Priority,
		}
		if err := tx.Requetes().Create(ctx, r); err != nil {
			return err
		}
		fx.numbers = append(fx.numbers, string(numbering.KindRequete))

		if _, err := s.ledger.Record(ctx, tx.Audit(), audit.RequeteSubject(r.ID), p.ID(), models.ActionCreation,
			audit.Comment("Création de la requête.")); err != nil {
			return err
		}
		if err := fx.notify(ctx, tx, &models.Notification{
			UserID:    r.WorkerID,
			Title:     "Requête créée",
			Message:   fmt.Sprintf("Votre requête %s a été créée.", r.ReferenceNumber),
			Type:      models.NotificationTicketUpdate,
			RequeteID: &r.ID,
		}); err != nil {
			return err
		}
		created = r
		return nil
	})
	if err != nil {
		return nil, err
	}
	s.logger.Info("requete created",
		zap.Int64("requete_id", created.ID),
		zap.String("reference_number", created.ReferenceNumber),
		zap.Int64("actor_id", p.ID()),
	)
	return created, nil
}

// checkRequeteRefs verifies every referenced row exists and that the
// delegate represents the requête's company and the dossier shares its pôle.
func (s *Service) checkRequeteRefs(ctx context.Context, tx repository.Repos, workerID int64, in CreateRequeteInput) error {
	worker, err := tx.Users().GetByID(ctx, workerID)
	if err != nil {
		return err
	}
	if worker == nil {
		return apperr.Invalid("worker_id", "unknown user")
	}
	pole, err := tx.Poles().GetByID(ctx, in.PoleID)
	if err != nil {
		return err
	}
	if pole == nil {
		return apperr.Invalid("pole_id", "unknown pôle")
	}
	company, err := tx.Companies().GetByID(ctx, in.CompanyID)
	if err != nil {
		return err
	}
	if company == nil {
		return apperr.Invalid("company_id", "unknown company")
	}
	if err := checkDelegate(ctx, tx, in.DelegateID, in.CompanyID); err != nil {
		return err
	}
	return checkPrimaryDossier(ctx, tx, in.DossierID, in.PoleID)
}

func checkDelegate(ctx context.Context, tx repository.Repos, delegateID *int64, companyID int64) error {
	if delegateID == nil {
		return nil
	}
	m, err := tx.Delegates().GetByID(ctx, *delegateID)
	if err != nil {
		return err
	}
	if m == nil {
		return apperr.Invalid("delegate_id", "unknown delegate")
	}
	if m.CompanyID != companyID {
		return apperr.Invalid("delegate_id", "delegate does not represent the requête's company")
	}
	return nil
}

func checkPrimaryDossier(ctx context.Context, tx repository.Repos, dossierID *int64, poleID int64) error {
	if dossierID == nil {
		return nil
	}
	d, err := tx.Dossiers().GetByID(ctx, unscoped, *dossierID)
	if err != nil {
		return err
	}
	if d == nil {
		return apperr.Invalid("dossier_id", "unknown dossier")
	}
	if d.PoleID != poleID {
		return apperr.Invalid("dossier_id", "dossier belongs to another pôle")
	}
	return nil
}

func (s *Service) GetRequete(ctx context.Context, p *identity.Principal, id int64) (*models.Requete, error) {
	if err := s.guard(p, roleChain, false); err != nil {
		return nil, err
	}
	return s.readRequete(ctx, s.store, p, id)
}

// readRequete resolves a requête through the caller's scope, then applies
// the object policy. Out of scope reads as not found.
func (s *Service) readRequete(ctx context.Context, repos repository.Repos, p *identity.Principal, id int64) (*models.Requete, error) {
	r, err := repos.Requetes().GetByID(ctx, access.ScopeFor(p), id)
	if err != nil {
		return nil, err
	}
	if r == nil {
		return nil, apperr.NotFound("requete")
	}
	if err := s.engine.Authorize(p, access.RequeteTarget(r), false); err != nil {
		return nil, err
	}
	return r, nil
}

// lockRequete is the write-side lookup used inside transactions.
func (s *Service) lockRequete(ctx context.Context, tx repository.Repos, p *identity.Principal, id int64) (*models.Requete, error) {
	r, err := tx.Requetes().LockByID(ctx, access.ScopeFor(p), id)
	if err != nil {
		return nil, err
	}
	if r == nil {
		return nil, apperr.NotFound("requete")
	}
	if err := s.engine.Authorize(p, access.RequeteTarget(r), true); err != nil {
		return nil, err
	}
	return r, nil
}

func (s *Service) ListRequetes(ctx context.Context, p *identity.Principal) ([]models.Requete, error) {
	if err := s.guard(p, roleChain, false); err != nil {
		return nil, err
	}
	return s.store.Requetes().List(ctx, access.ScopeFor(p))
}

// UpdateRequete applies patch. A status change goes through the requête
// machine and produces one MODIFICATION_STATUT entry plus a notification.
// An assignment change is logged as ASSIGNATION, alongside the status entry
// when both move. Any other edit without a status change is logged as
// MODIFICATION. A patch that changes nothing writes nothing.
func (s *Service) UpdateRequete(ctx context.Context, p *identity.Principal, id int64, patch RequetePatch) (*models.Requete, error) {
	if err := s.guard(p, roleChain, true); err != nil {
		return nil, err
	}

	var updated *models.Requete
	err := s.inTx(ctx, func(tx repository.Repos, fx *effects) error {
		r, err := s.lockRequete(ctx, tx, p, id)
		if err != nil {
			return err
		}
		from := r.Status
		changed, err := applyRequetePatch(r, patch)
		if err != nil {
			return err
		}
		if r.Status != from {
			changed = append(changed, "status")
		}
		if containsField(changed, "delegate_id") {
			if err := checkDelegate(ctx, tx, r.DelegateID, r.CompanyID); err != nil {
				return err
			}
		}
		if containsField(changed, "dossier_id") {
			if err := checkPrimaryDossier(ctx, tx, r.DossierID, r.PoleID); err != nil {
				return err
			}
		}
		if len(changed) == 0 {
			updated = r
			return nil
		}

		r.UpdatedAt = s.now().UTC()
		if err := tx.Requetes().Update(ctx, r); err != nil {
			return err
		}

		subject := audit.RequeteSubject(r.ID)
		comment := patch.Comment
		if r.Status != from {
			if err := s.requeteStatusChanged(ctx, tx, fx, r, from, p.ID(), comment); err != nil {
				return err
			}
			comment = ""
		}
		others := withoutField(changed, "status")
		switch {
		case containsField(others, "delegate_id"):
			_, err = s.ledger.Record(ctx, tx.Audit(), subject, p.ID(), models.ActionAssignment,
				audit.Fields(strings.Join(others, ",")), audit.Comment(comment))
		case r.Status == from:
			_, err = s.ledger.Record(ctx, tx.Audit(), subject, p.ID(), models.ActionModification,
				audit.Fields(strings.Join(others, ",")), audit.Comment(comment))
		}
		if err != nil {
			return err
		}
		updated = r
		return nil
	})
	if err != nil {
		return nil, err
	}
	return updated, nil
}

// applyRequetePatch mutates r and returns the names of the fields that
// actually changed, status excluded.
func applyRequetePatch(r *models.Requete, patch RequetePatch) ([]string, error) {
	var v apperr.Validation
	var changed []string

	if patch.Title != nil {
		title := strings.TrimSpace(*patch.Title)
		if title == "" {
			v.Add("title", "required")
		} else if title != r.Title {
			r.Title = title
			changed = append(changed, "title")
		}
	}
	if patch.Description != nil && *patch.Description != r.Description {
		r.Description = *patch.Description
		changed = append(changed, "description")
	}
	if patch.ProblemType != nil && *patch.ProblemType != r.ProblemType {
		if !models.ValidProblemType(*patch.ProblemType) {
			v.Add("problem_type", fmt.Sprintf("unknown problem type %q", *patch.ProblemType))
		} else {
			r.ProblemType = *patch.ProblemType
			changed = append(changed, "problem_type")
		}
	}
	if patch.Priority != nil && *patch.Priority != r.Priority {
		if !patch.Priority.Valid() {
			v.Add("priority", fmt.Sprintf("unknown priority %q", *patch.Priority))
		} else {
			r.Priority = *patch.Priority
			changed = append(changed, "priority")
		}
	}
	if patch.DelegateID != nil && (r.DelegateID == nil || *r.DelegateID != *patch.DelegateID) {
		id := *patch.DelegateID
		r.DelegateID = &id
		changed = append(changed, "delegate_id")
	}
	if patch.DossierID != nil && (r.DossierID == nil || *r.DossierID != *patch.DossierID) {
		id := *patch.DossierID
		r.DossierID = &id
		changed = append(changed, "dossier_id")
	}
	if patch.Status != nil {
		change, err := workflow.RequeteMachine.Plan(r.Status, *patch.Status, false)
		if err != nil {
			return nil, err
		}
		r.Status = change.To
	}
	return changed, v.Err()
}

func containsField(fields []string, name string) bool {
	for _, f := range fields {
		if f == name {
			return true
		}
	}
	return false
}

func withoutField(fields []string, name string) []string {
	out := make([]string, 0, len(fields))
	for _, f := range fields {
		if f != name {
			out = append(out, f)
		}
	}
	return out
}

// ChangeRequeteStatus is the dedicated transition action. Requesting the
// current status is accepted and changes nothing.
func (s *Service) ChangeRequeteStatus(ctx context.Context, p *identity.Principal, id int64, status, comment string) (*models.Requete, error) {
	return s.UpdateRequete(ctx, p, id, RequetePatch{Status: &status, Comment: comment})
}

// requeteStatusChanged is the single place a requête status change is
// recorded: one audit entry carrying old and new values and one
// notification to the worker.
func (s *Service) requeteStatusChanged(ctx context.Context, tx repository.Repos, fx *effects, r *models.Requete, from models.RequeteStatus, actorID int64, comment string) error {
	if _, err := s.ledger.Record(ctx, tx.Audit(), audit.RequeteSubject(r.ID), actorID, models.ActionStatusChange,
		audit.FieldChange("status", string(from), string(r.Status)), audit.Comment(comment)); err != nil {
		return err
	}
	if err := fx.notify(ctx, tx, &models.Notification{
		UserID:    r.WorkerID,
		Title:     "Mise à jour de requête",
		Message:   "Statut mis à jour: " + r.Status.Label(),
		Type:      models.NotificationTicketUpdate,
		RequeteID: &r.ID,
	}); err != nil {
		return err
	}
	fx.transitions = append(fx.transitions, [2]string{string(models.KindRequete), string(r.Status)})
	return nil
}

// AddAttachment stores a reference to an uploaded file. The file itself
// lives in external storage under FileKey.
func (s *Service) AddAttachment(ctx context.Context, p *identity.Principal, requeteID int64, in AttachmentInput) (*models.PieceJointe, error) {
	if err := s.guard(p, roleChain, true); err != nil {
		return nil, err
	}
	var v apperr.Validation
	if strings.TrimSpace(in.FileKey) == "" {
		v.Add("file_key", "required")
	}
	if in.DocumentType == "" {
		in.DocumentType = models.DocumentAutre
	} else if !in.DocumentType.Valid() {
		v.Add("document_type", fmt.Sprintf("unknown document type %q", in.DocumentType))
	}
	if err := v.Err(); err != nil {
		return nil, err
	}

	var created *models.PieceJointe
	err := s.inTx(ctx, func(tx repository.Repos, fx *effects) error {
		r, err := s.lockRequete(ctx, tx, p, requeteID)
		if err != nil {
			return err
		}
		a := &models.PieceJointe{
			RequeteID:    r.ID,
			FileKey:      strings.TrimSpace(in.FileKey),
			DocumentType: in.DocumentType,
			Description:  in.Description,
			UploadedBy:   p.ID(),
			UploadedAt:   s.now().UTC(),
		}
		if err := tx.Attachments().Create(ctx, a); err != nil {
			return err
		}
		if _, err := s.ledger.Record(ctx, tx.Audit(), audit.RequeteSubject(r.ID), p.ID(), models.ActionAttachmentAdded); err != nil {
			return err
		}
		created = a
		return nil
	})
	if err != nil {
		return nil, err
	}
	return created, nil
}

// AddComment logs a comment on the requête and tells the worker when
// someone else wrote it.
func (s *Service) AddComment(ctx context.Context, p *identity.Principal, requeteID int64, text string) (*models.AuditEntry, error) {
	if err := s.guard(p, roleChain, true); err != nil {
		return nil, err
	}
	text = strings.TrimSpace(text)
	if text == "" {
		return nil, apperr.Invalid("comment", "required")
	}

	var entry *models.AuditEntry
	err := s.inTx(ctx, func(tx repository.Repos, fx *effects) error {
		r, err := s.lockRequete(ctx, tx, p, requeteID)
		if err != nil {
			return err
		}
		entry, err = s.ledger.Record(ctx, tx.Audit(), audit.RequeteSubject(r.ID), p.ID(), models.ActionComment, audit.Comment(text))
		if err != nil {
			return err
		}
		if r.WorkerID == p.ID() {
			return nil
		}
		return fx.notify(ctx, tx, &models.Notification{
			UserID:    r.WorkerID,
			Title:     "Nouveau commentaire",
			Message:   fmt.Sprintf("Un commentaire a été ajouté à votre requête %s.", r.ReferenceNumber),
			Type:      models.NotificationNewMessage,
			RequeteID: &r.ID,
		})
	})
	if err != nil {
		return nil, err
	}
	return entry, nil
}

func (s *Service) RequeteHistory(ctx context.Context, p *identity.Principal, id int64) ([]models.AuditEntry, error) {
	if err := s.guard(p, roleChain, false); err != nil {
		return nil, err
	}
	r, err := s.readRequete(ctx, s.store, p, id)
	if err != nil {
		return nil, err
	}
	return s.ledger.History(ctx, s.store.Audit(), audit.RequeteSubject(r.ID))
}

func (s *Service) ListRequeteAttachments(ctx context.Context, p *identity.Principal, requeteID int64) ([]models.PieceJointe, error) {
	if err := s.guard(p, roleChain, false); err != nil {
		return nil, err
	}
	r, err := s.readRequete(ctx, s.store, p, requeteID)
	if err != nil {
		return nil, err
	}
	return s.store.Attachments().ListByRequete(ctx, r.ID)
}

func (s *Service) ListAttachments(ctx context.Context, p *identity.Principal) ([]models.PieceJointe, error) {
	if err := s.guard(p, roleChain, false); err != nil {
		return nil, err
	}
	return s.store.Attachments().List(ctx, access.ScopeFor(p))
}

// GetAttachment authorizes through the owning requête.
func (s *Service) GetAttachment(ctx context.Context, p *identity.Principal, id int64) (*models.PieceJointe, error) {
	if err := s.guard(p, roleChain, false); err != nil {
		return nil, err
	}
	a, err := s.store.Attachments().GetByID(ctx, access.ScopeFor(p), id)
	if err != nil {
		return nil, err
	}
	if a == nil {
		return nil, apperr.NotFound("piece_jointe")
	}
	owner, err := s.store.Requetes().GetByID(ctx, unscoped, a.RequeteID)
	if err != nil {
		return nil, err
	}
	if owner == nil {
		return nil, apperr.NotFound("piece_jointe")
	}
	if err := s.engine.Authorize(p, access.PieceJointeTarget(access.RequeteTarget(owner)), false); err != nil {
		return nil, err
	}
	return a, nil
}
