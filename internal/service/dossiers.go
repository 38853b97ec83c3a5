package service

import (
	"context"
	"fmt"
	"slices"
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

type CreateDossierInput struct {
	PoleID int64  `json:"pole_id"`
	Title  string `json:"title"`
	// ResponsibleID defaults to the caller.
	ResponsibleID *int64  `json:"responsible_id"`
	RequeteIDs    []int64 `json:"requete_ids"`
}

type DossierPatch struct {
	Title         *string  `json:"title"`
	ResponsibleID *int64   `json:"responsible_id"`
	Status        *string  `json:"status"`
	RequeteIDs    *[]int64 `json:"requete_ids"`
	Comment       string   `json:"comment"`
}

// DossierDetail is a dossier with its linked requêtes and the derived
// closability flag.
type DossierDetail struct {
	models.Dossier
	MayClose bool             `json:"may_close"`
	Requetes []models.Requete `json:"requetes"`
}

// linkedRequetes loads ids and enforces that all exist and share poleID.
func linkedRequetes(ctx context.Context, tx repository.Repos, poleID int64, ids []int64) ([]models.Requete, error) {
	linked, err := tx.Requetes().ListByIDs(ctx, ids)
	if err != nil {
		return nil, err
	}
	want := slices.Compact(slices.Sorted(slices.Values(ids)))
	if len(linked) != len(want) {
		return nil, apperr.Invalid("requete_ids", "unknown requête")
	}
	for _, r := range linked {
		if r.PoleID != poleID {
			return nil, apperr.Invalid("requete_ids", fmt.Sprintf("requête %s belongs to another pôle", r.ReferenceNumber))
		}
	}
	return linked, nil
}

// CreateDossier numbers and stores a new open dossier. The caller must be
// allowed to write the dossier it is about to create.
func (s *Service) CreateDossier(ctx context.Context, p *identity.Principal, in CreateDossierInput) (*models.Dossier, error) {
	if err := s.guard(p, roleChain, true); err != nil {
		return nil, err
	}
	var v apperr.Validation
	if in.PoleID <= 0 {
		v.Add("pole_id", "required")
	}
	if strings.TrimSpace(in.Title) == "" {
		v.Add("title", "required")
	}
	if err := v.Err(); err != nil {
		return nil, err
	}
	responsibleID := p.ID()
	if in.ResponsibleID != nil {
		responsibleID = *in.ResponsibleID
	}

	var created *models.Dossier
	err := s.inTx(ctx, func(tx repository.Repos, fx *effects) error {
		pole, err := tx.Poles().GetByID(ctx, in.PoleID)
		if err != nil {
			return err
		}
		if pole == nil {
			return apperr.Invalid("pole_id", "unknown pôle")
		}
		if err := userExists(ctx, tx, "responsible_id", responsibleID); err != nil {
			return err
		}
		linked, err := linkedRequetes(ctx, tx, in.PoleID, in.RequeteIDs)
		if err != nil {
			return err
		}

		d := &models.Dossier{
			PoleID:        in.PoleID,
			Title:         strings.TrimSpace(in.Title),
			ResponsibleID: responsibleID,
			Status:        models.DossierOpen,
			OpenedOn:      s.today(),
			RequeteIDs:    in.RequeteIDs,
		}
		if err := s.engine.Authorize(p, access.DossierTarget(d, linked), true); err != nil {
			return err
		}

		number, err := tx.Numbers().NextNumber(ctx, numbering.KindDossier, s.now())
		if err != nil {
			return err
		}
		d.DossierNumber = number
		if err := tx.Dossiers().Create(ctx, d); err != nil {
			return err
		}
		fx.numbers = append(fx.numbers, string(numbering.KindDossier))

		if _, err := s.ledger.Record(ctx, tx.Audit(), audit.DossierSubject(d.ID), p.ID(), models.ActionCreation,
			audit.Comment("Création du dossier.")); err != nil {
			return err
		}
		created = d
		return nil
	})
	if err != nil {
		return nil, err
	}
	s.logger.Info("dossier created",
		zap.Int64("dossier_id", created.ID),
		zap.String("dossier_number", created.DossierNumber),
		zap.Int64("actor_id", p.ID()),
	)
	return created, nil
}

func userExists(ctx context.Context, tx repository.Repos, field string, id int64) error {
	u, err := tx.Users().GetByID(ctx, id)
	if err != nil {
		return err
	}
	if u == nil {
		return apperr.Invalid(field, "unknown user")
	}
	return nil
}

// loadDossier resolves a dossier through the caller's scope and authorizes
// it against its linked requêtes. With write set the row is locked.
func (s *Service) loadDossier(ctx context.Context, repos repository.Repos, p *identity.Principal, id int64, write bool) (*models.Dossier, []models.Requete, error) {
	lookup := repos.Dossiers().GetByID
	if write {
		lookup = repos.Dossiers().LockByID
	}
	d, err := lookup(ctx, access.ScopeFor(p), id)
	if err != nil {
		return nil, nil, err
	}
	if d == nil {
		return nil, nil, apperr.NotFound("dossier")
	}
	linked, err := repos.Requetes().ListByIDs(ctx, d.RequeteIDs)
	if err != nil {
		return nil, nil, err
	}
	if err := s.engine.Authorize(p, access.DossierTarget(d, linked), write); err != nil {
		return nil, nil, err
	}
	return d, linked, nil
}

func (s *Service) GetDossier(ctx context.Context, p *identity.Principal, id int64) (*DossierDetail, error) {
	if err := s.guard(p, roleChain, false); err != nil {
		return nil, err
	}
	d, linked, err := s.loadDossier(ctx, s.store, p, id, false)
	if err != nil {
		return nil, err
	}
	return &DossierDetail{Dossier: *d, MayClose: d.MayClose(linked), Requetes: linked}, nil
}

func (s *Service) ListDossiers(ctx context.Context, p *identity.Principal) ([]models.Dossier, error) {
	if err := s.guard(p, roleChain, false); err != nil {
		return nil, err
	}
	return s.store.Dossiers().List(ctx, access.ScopeFor(p))
}

// UpdateDossier applies patch. Entering closed stamps the close date and
// leaving it for an active status clears the date again.
func (s *Service) UpdateDossier(ctx context.Context, p *identity.Principal, id int64, patch DossierPatch) (*models.Dossier, error) {
	if err := s.guard(p, roleChain, true); err != nil {
		return nil, err
	}

	var updated *models.Dossier
	err := s.inTx(ctx, func(tx repository.Repos, fx *effects) error {
		d, _, err := s.loadDossier(ctx, tx, p, id, true)
		if err != nil {
			return err
		}
		from := d.Status

		var changed []string
		if patch.Title != nil {
			title := strings.TrimSpace(*patch.Title)
			if title == "" {
				return apperr.Invalid("title", "required")
			}
			if title != d.Title {
				d.Title = title
				changed = append(changed, "title")
			}
		}
		if patch.ResponsibleID != nil && *patch.ResponsibleID != d.ResponsibleID {
			if err := userExists(ctx, tx, "responsible_id", *patch.ResponsibleID); err != nil {
				return err
			}
			d.ResponsibleID = *patch.ResponsibleID
			changed = append(changed, "responsible_id")
		}
		if patch.RequeteIDs != nil {
			if _, err := linkedRequetes(ctx, tx, d.PoleID, *patch.RequeteIDs); err != nil {
				return err
			}
			ids := slices.Compact(slices.Sorted(slices.Values(*patch.RequeteIDs)))
			if !slices.Equal(ids, d.RequeteIDs) {
				d.RequeteIDs = ids
				changed = append(changed, "requete_ids")
			}
		}
		if patch.Status != nil {
			change, err := workflow.DossierMachine.Plan(d.Status, *patch.Status, false)
			if err != nil {
				return err
			}
			s.moveDossier(d, change.To)
		}

		if len(changed) == 0 && d.Status == from {
			updated = d
			return nil
		}
		d.UpdatedAt = s.now().UTC()
		if err := tx.Dossiers().Update(ctx, d); err != nil {
			return err
		}
		if d.Status != from {
			err = s.dossierStatusChanged(ctx, tx, fx, d, from, p.ID(), models.ActionStatusChange, patch.Comment)
		} else {
			_, err = s.ledger.Record(ctx, tx.Audit(), audit.DossierSubject(d.ID), p.ID(), models.ActionModification,
				audit.Fields(strings.Join(changed, ",")), audit.Comment(patch.Comment))
		}
		if err != nil {
			return err
		}
		updated = d
		return nil
	})
	if err != nil {
		return nil, err
	}
	return updated, nil
}

func (s *Service) ChangeDossierStatus(ctx context.Context, p *identity.Principal, id int64, status, comment string) (*models.Dossier, error) {
	return s.UpdateDossier(ctx, p, id, DossierPatch{Status: &status, Comment: comment})
}

// TransmitDossier forces the dossier to transmitted_to_bureau regardless
// of its current status.
func (s *Service) TransmitDossier(ctx context.Context, p *identity.Principal, id int64) (*models.Dossier, error) {
	if err := s.guard(p, roleChain, true); err != nil {
		return nil, err
	}

	var updated *models.Dossier
	err := s.inTx(ctx, func(tx repository.Repos, fx *effects) error {
		d, _, err := s.loadDossier(ctx, tx, p, id, true)
		if err != nil {
			return err
		}
		change, err := workflow.DossierMachine.Plan(d.Status, string(models.DossierTransmittedToBureau), true)
		if err != nil {
			return err
		}
		updated = d
		if !change.Changed {
			return nil
		}
		s.moveDossier(d, change.To)
		d.UpdatedAt = s.now().UTC()
		if err := tx.Dossiers().Update(ctx, d); err != nil {
			return err
		}
		return s.dossierStatusChanged(ctx, tx, fx, d, change.From, p.ID(), models.ActionTransmission, "")
	})
	if err != nil {
		return nil, err
	}
	return updated, nil
}

func (s *Service) moveDossier(d *models.Dossier, to models.DossierStatus) {
	switch {
	case to == models.DossierClosed && d.Status != models.DossierClosed:
		closed := s.today()
		d.ClosedOn = &closed
	case to != models.DossierClosed && to != models.DossierArchived:
		d.ClosedOn = nil
	}
	d.Status = to
}

// dossierStatusChanged records one entry with the status pair. Dossier
// transitions notify nobody.
func (s *Service) dossierStatusChanged(ctx context.Context, tx repository.Repos, fx *effects, d *models.Dossier, from models.DossierStatus, actorID int64, action models.AuditAction, comment string) error {
	if _, err := s.ledger.Record(ctx, tx.Audit(), audit.DossierSubject(d.ID), actorID, action,
		audit.FieldChange("status", string(from), string(d.Status)), audit.Comment(comment)); err != nil {
		return err
	}
	fx.transitions = append(fx.transitions, [2]string{string(models.KindDossier), string(d.Status)})
	return nil
}

// GenerateSynthesis writes a plain-text summary of the dossier and its
// linked requêtes into the synthesis field.
func (s *Service) GenerateSynthesis(ctx context.Context, p *identity.Principal, id int64) (*models.Dossier, error) {
	if err := s.guard(p, roleChain, true); err != nil {
		return nil, err
	}

	var updated *models.Dossier
	err := s.inTx(ctx, func(tx repository.Repos, fx *effects) error {
		d, linked, err := s.loadDossier(ctx, tx, p, id, true)
		if err != nil {
			return err
		}
		pole, err := tx.Poles().GetByID(ctx, d.PoleID)
		if err != nil {
			return err
		}
		poleName := ""
		if pole != nil {
			poleName = pole.Name
		}

		text := synthesis(d, poleName, linked)
		d.Synthesis = &text
		d.UpdatedAt = s.now().UTC()
		if err := tx.Dossiers().Update(ctx, d); err != nil {
			return err
		}
		if _, err := s.ledger.Record(ctx, tx.Audit(), audit.DossierSubject(d.ID), p.ID(), models.ActionModification,
			audit.Fields("synthesis")); err != nil {
			return err
		}
		updated = d
		return nil
	})
	if err != nil {
		return nil, err
	}
	return updated, nil
}

func synthesis(d *models.Dossier, poleName string, linked []models.Requete) string {
	lines := []string{
		fmt.Sprintf("Dossier %s - %s", d.DossierNumber, d.Title),
		"Pôle: " + poleName,
		"Statut: " + d.Status.Label(),
	}
	for _, r := range linked {
		lines = append(lines, fmt.Sprintf("- %s: %s", r.ReferenceNumber, r.Title))
	}
	return strings.Join(lines, "\n")
}

func (s *Service) DossierHistory(ctx context.Context, p *identity.Principal, id int64) ([]models.AuditEntry, error) {
	if err := s.guard(p, roleChain, false); err != nil {
		return nil, err
	}
	d, _, err := s.loadDossier(ctx, s.store, p, id, false)
	if err != nil {
		return nil, err
	}
	return s.ledger.History(ctx, s.store.Audit(), audit.DossierSubject(d.ID))
}
