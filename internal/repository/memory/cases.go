package memory

import (
	"context"
	"sort"
	"time"

	"github.com/lalith-99/unionline/internal/access"
	"github.com/lalith-99/unionline/internal/apperr"
	"github.com/lalith-99/unionline/internal/models"
)

func now() time.Time { return time.Now().UTC() }

func containsID(ids []int64, id int64) bool {
	for _, v := range ids {
		if v == id {
			return true
		}
	}
	return false
}

// The match functions mirror the SQL predicates of the postgres store.

func matchRequete(s access.Scope, r *models.Requete) bool {
	switch s.Mode {
	case access.ScopeAll:
		return true
	case access.ScopeCompanies:
		return containsID(s.CompanyIDs, r.CompanyID)
	case access.ScopePoles:
		return containsID(s.PoleIDs, r.PoleID)
	case access.ScopeOwner:
		return r.WorkerID == s.UserID
	}
	return false
}

func matchDossier(t *tables, s access.Scope, d *models.Dossier) bool {
	switch s.Mode {
	case access.ScopeAll:
		return true
	case access.ScopePoles:
		return containsID(s.PoleIDs, d.PoleID)
	case access.ScopeCompanies, access.ScopeOwner:
		for _, id := range d.RequeteIDs {
			if r, ok := t.requetes[id]; ok && matchRequete(s, &r) {
				return true
			}
		}
	}
	return false
}

func withDelegateUser(t *tables, r models.Requete) models.Requete {
	r.DelegateUserID = nil
	if r.DelegateID != nil {
		if m, ok := t.mandates[*r.DelegateID]; ok {
			uid := m.UserID
			r.DelegateUserID = &uid
		}
	}
	return r
}

func copyDossier(d models.Dossier) models.Dossier {
	d.RequeteIDs = append([]int64{}, d.RequeteIDs...)
	return d
}

func copyReunion(r models.Reunion) models.Reunion {
	r.ParticipantIDs = append([]int64{}, r.ParticipantIDs...)
	return r
}

type requeteRepo struct{ *view }

func (r requeteRepo) Create(ctx context.Context, q *models.Requete) error {
	t, unlock, err := r.lock(ctx)
	if err != nil {
		return err
	}
	defer unlock()

	for _, existing := range t.requetes {
		if existing.ReferenceNumber == q.ReferenceNumber {
			return apperr.Conflict("reference_number", "already allocated")
		}
	}
	q.ID = t.nextID("requetes")
	ts := now()
	if q.CreatedAt.IsZero() {
		q.CreatedAt = ts
	}
	if q.UpdatedAt.IsZero() {
		q.UpdatedAt = q.CreatedAt
	}
	stored := *q
	stored.DelegateUserID = nil
	t.requetes[q.ID] = stored
	*q = withDelegateUser(t, stored)
	return nil
}

func (r requeteRepo) GetByID(ctx context.Context, scope access.Scope, id int64) (*models.Requete, error) {
	t, unlock, err := r.lock(ctx)
	if err != nil {
		return nil, err
	}
	defer unlock()

	q, ok := t.requetes[id]
	if !ok || !matchRequete(scope, &q) {
		return nil, nil
	}
	q = withDelegateUser(t, q)
	return &q, nil
}

// LockByID needs no extra locking: a transaction already owns the store.
func (r requeteRepo) LockByID(ctx context.Context, scope access.Scope, id int64) (*models.Requete, error) {
	return r.GetByID(ctx, scope, id)
}

func (r requeteRepo) List(ctx context.Context, scope access.Scope) ([]models.Requete, error) {
	t, unlock, err := r.lock(ctx)
	if err != nil {
		return nil, err
	}
	defer unlock()

	out := make([]models.Requete, 0)
	for _, q := range t.requetes {
		if matchRequete(scope, &q) {
			out = append(out, withDelegateUser(t, q))
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].ID > out[j].ID })
	return out, nil
}

func (r requeteRepo) ListByIDs(ctx context.Context, ids []int64) ([]models.Requete, error) {
	t, unlock, err := r.lock(ctx)
	if err != nil {
		return nil, err
	}
	defer unlock()

	out := make([]models.Requete, 0, len(ids))
	seen := make(map[int64]bool, len(ids))
	for _, id := range ids {
		if seen[id] {
			continue
		}
		seen[id] = true
		if q, ok := t.requetes[id]; ok {
			out = append(out, withDelegateUser(t, q))
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].ID < out[j].ID })
	return out, nil
}

func (r requeteRepo) Update(ctx context.Context, q *models.Requete) error {
	t, unlock, err := r.lock(ctx)
	if err != nil {
		return err
	}
	defer unlock()

	existing, ok := t.requetes[q.ID]
	if !ok {
		return missing("requete", q.ID)
	}
	stored := *q
	stored.ReferenceNumber = existing.ReferenceNumber
	stored.CreatedAt = existing.CreatedAt
	stored.DelegateUserID = nil
	t.requetes[q.ID] = stored
	*q = withDelegateUser(t, stored)
	return nil
}

type dossierRepo struct{ *view }

func (r dossierRepo) Create(ctx context.Context, d *models.Dossier) error {
	t, unlock, err := r.lock(ctx)
	if err != nil {
		return err
	}
	defer unlock()

	for _, existing := range t.dossiers {
		if existing.DossierNumber == d.DossierNumber {
			return apperr.Conflict("dossier_number", "already allocated")
		}
	}
	d.ID = t.nextID("dossiers")
	if d.CreatedAt.IsZero() {
		d.CreatedAt = now()
	}
	if d.UpdatedAt.IsZero() {
		d.UpdatedAt = d.CreatedAt
	}
	d.RequeteIDs = uniqueSorted(d.RequeteIDs)
	t.dossiers[d.ID] = copyDossier(*d)
	return nil
}

func uniqueSorted(ids []int64) []int64 {
	seen := make(map[int64]bool, len(ids))
	out := make([]int64, 0, len(ids))
	for _, id := range ids {
		if !seen[id] {
			seen[id] = true
			out = append(out, id)
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i] < out[j] })
	return out
}

func (r dossierRepo) GetByID(ctx context.Context, scope access.Scope, id int64) (*models.Dossier, error) {
	t, unlock, err := r.lock(ctx)
	if err != nil {
		return nil, err
	}
	defer unlock()

	d, ok := t.dossiers[id]
	if !ok || !matchDossier(t, scope, &d) {
		return nil, nil
	}
	d = copyDossier(d)
	return &d, nil
}

func (r dossierRepo) LockByID(ctx context.Context, scope access.Scope, id int64) (*models.Dossier, error) {
	return r.GetByID(ctx, scope, id)
}

func (r dossierRepo) List(ctx context.Context, scope access.Scope) ([]models.Dossier, error) {
	t, unlock, err := r.lock(ctx)
	if err != nil {
		return nil, err
	}
	defer unlock()

	out := make([]models.Dossier, 0)
	for _, d := range t.dossiers {
		if matchDossier(t, scope, &d) {
			out = append(out, copyDossier(d))
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].ID > out[j].ID })
	return out, nil
}

func (r dossierRepo) Update(ctx context.Context, d *models.Dossier) error {
	t, unlock, err := r.lock(ctx)
	if err != nil {
		return err
	}
	defer unlock()

	existing, ok := t.dossiers[d.ID]
	if !ok {
		return missing("dossier", d.ID)
	}
	d.DossierNumber = existing.DossierNumber
	d.CreatedAt = existing.CreatedAt
	d.RequeteIDs = uniqueSorted(d.RequeteIDs)
	t.dossiers[d.ID] = copyDossier(*d)
	return nil
}

type reunionRepo struct{ *view }

func (r reunionRepo) Create(ctx context.Context, m *models.Reunion) error {
	t, unlock, err := r.lock(ctx)
	if err != nil {
		return err
	}
	defer unlock()

	m.ID = t.nextID("reunions")
	if m.CreatedAt.IsZero() {
		m.CreatedAt = now()
	}
	t.reunions[m.ID] = copyReunion(*m)
	return nil
}

func (r reunionRepo) GetByID(ctx context.Context, scope access.Scope, id int64) (*models.Reunion, error) {
	t, unlock, err := r.lock(ctx)
	if err != nil {
		return nil, err
	}
	defer unlock()

	m, ok := t.reunions[id]
	if !ok {
		return nil, nil
	}
	d, ok := t.dossiers[m.DossierID]
	if !ok || !matchDossier(t, scope, &d) {
		return nil, nil
	}
	m = copyReunion(m)
	return &m, nil
}

func (r reunionRepo) List(ctx context.Context, scope access.Scope) ([]models.Reunion, error) {
	t, unlock, err := r.lock(ctx)
	if err != nil {
		return nil, err
	}
	defer unlock()

	out := make([]models.Reunion, 0)
	for _, m := range t.reunions {
		if d, ok := t.dossiers[m.DossierID]; ok && matchDossier(t, scope, &d) {
			out = append(out, copyReunion(m))
		}
	}
	sort.Slice(out, func(i, j int) bool {
		if !out[i].ScheduledAt.Equal(out[j].ScheduledAt) {
			return out[i].ScheduledAt.Before(out[j].ScheduledAt)
		}
		return out[i].ID < out[j].ID
	})
	return out, nil
}

func (r reunionRepo) Update(ctx context.Context, m *models.Reunion) error {
	t, unlock, err := r.lock(ctx)
	if err != nil {
		return err
	}
	defer unlock()

	existing, ok := t.reunions[m.ID]
	if !ok {
		return missing("reunion", m.ID)
	}
	m.DossierID = existing.DossierID
	m.CreatedBy = existing.CreatedBy
	m.CreatedAt = existing.CreatedAt
	t.reunions[m.ID] = copyReunion(*m)
	return nil
}

type attachmentRepo struct{ *view }

func (r attachmentRepo) Create(ctx context.Context, a *models.PieceJointe) error {
	t, unlock, err := r.lock(ctx)
	if err != nil {
		return err
	}
	defer unlock()

	a.ID = t.nextID("attachments")
	if a.UploadedAt.IsZero() {
		a.UploadedAt = now()
	}
	t.attachments[a.ID] = *a
	return nil
}

func (r attachmentRepo) GetByID(ctx context.Context, scope access.Scope, id int64) (*models.PieceJointe, error) {
	t, unlock, err := r.lock(ctx)
	if err != nil {
		return nil, err
	}
	defer unlock()

	a, ok := t.attachments[id]
	if !ok {
		return nil, nil
	}
	q, ok := t.requetes[a.RequeteID]
	if !ok || !matchRequete(scope, &q) {
		return nil, nil
	}
	return &a, nil
}

func (r attachmentRepo) List(ctx context.Context, scope access.Scope) ([]models.PieceJointe, error) {
	t, unlock, err := r.lock(ctx)
	if err != nil {
		return nil, err
	}
	defer unlock()

	out := make([]models.PieceJointe, 0)
	for _, a := range t.attachments {
		if q, ok := t.requetes[a.RequeteID]; ok && matchRequete(scope, &q) {
			out = append(out, a)
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].ID > out[j].ID })
	return out, nil
}

func (r attachmentRepo) ListByRequete(ctx context.Context, requeteID int64) ([]models.PieceJointe, error) {
	t, unlock, err := r.lock(ctx)
	if err != nil {
		return nil, err
	}
	defer unlock()

	out := make([]models.PieceJointe, 0)
	for _, a := range t.attachments {
		if a.RequeteID == requeteID {
			out = append(out, a)
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].ID < out[j].ID })
	return out, nil
}
