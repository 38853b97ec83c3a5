package service

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/lalith-99/unionline/internal/access"
	"github.com/lalith-99/unionline/internal/apperr"
	"github.com/lalith-99/unionline/internal/audit"
	"github.com/lalith-99/unionline/internal/identity"
	"github.com/lalith-99/unionline/internal/models"
	"github.com/lalith-99/unionline/internal/repository"
)

type ReunionInput struct {
	Type           models.ReunionType `json:"type"`
	ScheduledAt    time.Time          `json:"scheduled_at"`
	Location       *string            `json:"location"`
	ParticipantIDs []int64            `json:"participant_ids"`
	Agenda         string             `json:"agenda"`
}

type ReunionPatch struct {
	Type           *models.ReunionType   `json:"type"`
	ScheduledAt    *time.Time            `json:"scheduled_at"`
	Location       *string               `json:"location"`
	ParticipantIDs *[]int64              `json:"participant_ids"`
	Agenda         *string               `json:"agenda"`
	Minutes        *string               `json:"minutes"`
	Status         *models.ReunionStatus `json:"status"`
	Comment        string                `json:"comment"`
}

// normalizeLocation turns a blank location into none and rejects a
// location on a phone réunion.
func normalizeLocation(typ models.ReunionType, location *string) (*string, error) {
	if location == nil || strings.TrimSpace(*location) == "" {
		return nil, nil
	}
	if typ == models.ReunionPhone {
		return nil, apperr.Invalid("location", "must be empty for a phone réunion")
	}
	loc := strings.TrimSpace(*location)
	return &loc, nil
}

// ScheduleReunion plans a meeting for a dossier. The dossier status is left
// alone; the dossier history gets a REUNION_PLANIFIEE entry.
func (s *Service) ScheduleReunion(ctx context.Context, p *identity.Principal, dossierID int64, in ReunionInput) (*models.Reunion, error) {
	if err := s.guard(p, roleChain, true); err != nil {
		return nil, err
	}
	var v apperr.Validation
	if !in.Type.Valid() {
		v.Add("type", fmt.Sprintf("unknown réunion type %q", in.Type))
	}
	if in.ScheduledAt.IsZero() {
		v.Add("scheduled_at", "required")
	}
	if strings.TrimSpace(in.Agenda) == "" {
		v.Add("agenda", "required")
	}
	if err := v.Err(); err != nil {
		return nil, err
	}
	location, err := normalizeLocation(in.Type, in.Location)
	if err != nil {
		return nil, err
	}

	var created *models.Reunion
	err = s.inTx(ctx, func(tx repository.Repos, fx *effects) error {
		d, _, err := s.loadDossier(ctx, tx, p, dossierID, true)
		if err != nil {
			return err
		}
		r := &models.Reunion{
			DossierID:      d.ID,
			Type:           in.Type,
			ScheduledAt:    in.ScheduledAt.UTC(),
			Location:       location,
			ParticipantIDs: in.ParticipantIDs,
			Agenda:         in.Agenda,
			Status:         models.ReunionPlanned,
			CreatedBy:      p.ID(),
		}
		if err := tx.Reunions().Create(ctx, r); err != nil {
			return err
		}
		if _, err := s.ledger.Record(ctx, tx.Audit(), audit.DossierSubject(d.ID), p.ID(), models.ActionMeetingPlanned,
			audit.Comment(fmt.Sprintf("Réunion planifiée le %s.", r.ScheduledAt.Format("02/01/2006 15:04")))); err != nil {
			return err
		}
		created = r
		return nil
	})
	if err != nil {
		return nil, err
	}
	return created, nil
}

func (s *Service) ListReunions(ctx context.Context, p *identity.Principal) ([]models.Reunion, error) {
	if err := s.guard(p, roleChain, false); err != nil {
		return nil, err
	}
	return s.store.Reunions().List(ctx, access.ScopeFor(p))
}

func (s *Service) GetReunion(ctx context.Context, p *identity.Principal, id int64) (*models.Reunion, error) {
	if err := s.guard(p, roleChain, false); err != nil {
		return nil, err
	}
	return s.loadReunion(ctx, s.store, p, id, false)
}

// loadReunion authorizes a réunion through its dossier.
func (s *Service) loadReunion(ctx context.Context, repos repository.Repos, p *identity.Principal, id int64, write bool) (*models.Reunion, error) {
	r, err := repos.Reunions().GetByID(ctx, access.ScopeFor(p), id)
	if err != nil {
		return nil, err
	}
	if r == nil {
		return nil, apperr.NotFound("reunion")
	}
	d, err := repos.Dossiers().GetByID(ctx, unscoped, r.DossierID)
	if err != nil {
		return nil, err
	}
	if d == nil {
		return nil, apperr.NotFound("reunion")
	}
	linked, err := repos.Requetes().ListByIDs(ctx, d.RequeteIDs)
	if err != nil {
		return nil, err
	}
	if err := s.engine.Authorize(p, access.ReunionTarget(access.DossierTarget(d, linked)), write); err != nil {
		return nil, err
	}
	return r, nil
}

// UpdateReunion edits a réunion. The phone rule is checked against the
// resulting type and location, so switching a réunion to phone requires
// clearing its location in the same call.
func (s *Service) UpdateReunion(ctx context.Context, p *identity.Principal, id int64, patch ReunionPatch) (*models.Reunion, error) {
	if err := s.guard(p, roleChain, true); err != nil {
		return nil, err
	}

	var updated *models.Reunion
	err := s.inTx(ctx, func(tx repository.Repos, fx *effects) error {
		r, err := s.loadReunion(ctx, tx, p, id, true)
		if err != nil {
			return err
		}
		from := r.Status
		changed, err := applyReunionPatch(r, patch)
		if err != nil {
			return err
		}
		if len(changed) == 0 && r.Status == from {
			updated = r
			return nil
		}
		if err := tx.Reunions().Update(ctx, r); err != nil {
			return err
		}

		subject := audit.ReunionSubject(r.ID)
		if r.Status != from {
			_, err = s.ledger.Record(ctx, tx.Audit(), subject, p.ID(), models.ActionStatusChange,
				audit.FieldChange("status", string(from), string(r.Status)), audit.Comment(patch.Comment))
		} else {
			_, err = s.ledger.Record(ctx, tx.Audit(), subject, p.ID(), models.ActionModification,
				audit.Fields(strings.Join(changed, ",")), audit.Comment(patch.Comment))
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

// applyReunionPatch returns the changed field names, status excluded.
func applyReunionPatch(r *models.Reunion, patch ReunionPatch) ([]string, error) {
	var changed []string
	if patch.Type != nil && *patch.Type != r.Type {
		if !patch.Type.Valid() {
			return nil, apperr.Invalid("type", fmt.Sprintf("unknown réunion type %q", *patch.Type))
		}
		r.Type = *patch.Type
		changed = append(changed, "type")
	}
	location := r.Location
	if patch.Location != nil {
		location = patch.Location
	}
	normalized, err := normalizeLocation(r.Type, location)
	if err != nil {
		return nil, err
	}
	if !sameString(normalized, r.Location) {
		r.Location = normalized
		changed = append(changed, "location")
	}
	if patch.ScheduledAt != nil && !patch.ScheduledAt.Equal(r.ScheduledAt) {
		if patch.ScheduledAt.IsZero() {
			return nil, apperr.Invalid("scheduled_at", "required")
		}
		r.ScheduledAt = patch.ScheduledAt.UTC()
		changed = append(changed, "scheduled_at")
	}
	if patch.ParticipantIDs != nil {
		r.ParticipantIDs = *patch.ParticipantIDs
		changed = append(changed, "participant_ids")
	}
	if patch.Agenda != nil && *patch.Agenda != r.Agenda {
		if strings.TrimSpace(*patch.Agenda) == "" {
			return nil, apperr.Invalid("agenda", "required")
		}
		r.Agenda = *patch.Agenda
		changed = append(changed, "agenda")
	}
	if patch.Minutes != nil && !sameString(patch.Minutes, r.Minutes) {
		minutes := *patch.Minutes
		r.Minutes = &minutes
		changed = append(changed, "minutes")
	}
	if patch.Status != nil && *patch.Status != r.Status {
		if !patch.Status.Valid() {
			return nil, apperr.Invalid("status", fmt.Sprintf("unknown réunion status %q", *patch.Status))
		}
		r.Status = *patch.Status
	}
	return changed, nil
}

func sameString(a, b *string) bool {
	if a == nil || b == nil {
		return a == b
	}
	return *a == *b
}
