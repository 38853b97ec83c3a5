package memory

import (
	"context"
	"sort"

	"github.com/lalith-99/unionline/internal/access"
	"github.com/lalith-99/unionline/internal/models"
	"github.com/lalith-99/unionline/internal/repository"
)

type documentRepo struct{ *view }

func matchDocument(t *tables, s access.Scope, d *models.Document) bool {
	if s.Mode == access.ScopeAll {
		return true
	}
	if d.PoleID == nil {
		return false
	}
	switch s.Mode {
	case access.ScopePoles:
		return containsID(s.PoleIDs, *d.PoleID)
	case access.ScopeCompanies:
		for _, r := range t.requetes {
			if r.PoleID == *d.PoleID && containsID(s.CompanyIDs, r.CompanyID) {
				return true
			}
		}
	}
	return false
}

func copyDocument(d models.Document) models.Document {
	if d.PoleID != nil {
		id := *d.PoleID
		d.PoleID = &id
	}
	return d
}

func (r documentRepo) Create(ctx context.Context, d *models.Document) error {
	t, unlock, err := r.lock(ctx)
	if err != nil {
		return err
	}
	defer unlock()

	d.ID = t.nextID("documents")
	if d.Version == 0 {
		d.Version = 1
	}
	if d.CreatedAt.IsZero() {
		d.CreatedAt = now()
	}
	d.UpdatedAt = d.CreatedAt
	t.documents[d.ID] = copyDocument(*d)
	return nil
}

func (r documentRepo) GetByID(ctx context.Context, scope access.Scope, id int64) (*models.Document, error) {
	t, unlock, err := r.lock(ctx)
	if err != nil {
		return nil, err
	}
	defer unlock()

	d, ok := t.documents[id]
	if !ok || !matchDocument(t, scope, &d) {
		return nil, nil
	}
	d = copyDocument(d)
	return &d, nil
}

func (r documentRepo) List(ctx context.Context, scope access.Scope, f repository.DocumentFilter) ([]models.Document, error) {
	t, unlock, err := r.lock(ctx)
	if err != nil {
		return nil, err
	}
	defer unlock()

	out := make([]models.Document, 0)
	for _, d := range t.documents {
		if f.Category != "" && d.Category != f.Category {
			continue
		}
		if f.Year != 0 && d.Year != f.Year {
			continue
		}
		if matchDocument(t, scope, &d) {
			out = append(out, copyDocument(d))
		}
	}
	sort.Slice(out, func(i, j int) bool {
		if out[i].Year != out[j].Year {
			return out[i].Year > out[j].Year
		}
		return out[i].ID > out[j].ID
	})
	return out, nil
}

func (r documentRepo) Update(ctx context.Context, d *models.Document) error {
	t, unlock, err := r.lock(ctx)
	if err != nil {
		return err
	}
	defer unlock()

	existing, ok := t.documents[d.ID]
	if !ok {
		return missing("document", d.ID)
	}
	d.UploadedBy = existing.UploadedBy
	d.CreatedAt = existing.CreatedAt
	d.UpdatedAt = now()
	t.documents[d.ID] = copyDocument(*d)
	return nil
}
