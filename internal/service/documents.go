package service

import (
	"context"
	"strings"

	"go.uber.org/zap"

	"github.com/lalith-99/unionline/internal/access"
	"github.com/lalith-99/unionline/internal/apperr"
	"github.com/lalith-99/unionline/internal/identity"
	"github.com/lalith-99/unionline/internal/models"
	"github.com/lalith-99/unionline/internal/repository"
)

type DocumentInput struct {
	Name        string `json:"name" binding:"required"`
	Description string `json:"description"`
	PoleID      *int64 `json:"pole_id"`
	Year        int    `json:"year" binding:"required,min=1"`
	Category    string `json:"category" binding:"required"`
	FileKey     string `json:"file_key" binding:"required"`
}

type DocumentPatch struct {
	Name        *string `json:"name"`
	Description *string `json:"description"`
	PoleID      *int64  `json:"pole_id"`
	Year        *int    `json:"year"`
	Category    *string `json:"category"`
	FileKey     *string `json:"file_key"`
}

// ListDocuments returns the union documents the caller may see: all of
// them for an admin, those of the pôles a delegate's companies filed
// requêtes with, otherwise those of the caller's pôles.
func (s *Service) ListDocuments(ctx context.Context, p *identity.Principal, f repository.DocumentFilter) ([]models.Document, error) {
	if err := s.guard(p, roleChain, false); err != nil {
		return nil, err
	}
	return s.store.Documents().List(ctx, access.DocumentScopeFor(p), f)
}

func (s *Service) GetDocument(ctx context.Context, p *identity.Principal, id int64) (*models.Document, error) {
	if err := s.guard(p, roleChain, false); err != nil {
		return nil, err
	}
	return s.document(ctx, s.store, p, id)
}

func (s *Service) document(ctx context.Context, repos repository.Repos, p *identity.Principal, id int64) (*models.Document, error) {
	d, err := repos.Documents().GetByID(ctx, access.DocumentScopeFor(p), id)
	if err != nil {
		return nil, err
	}
	if d == nil {
		return nil, apperr.NotFound("document")
	}
	return d, nil
}

// CreateDocument files a document as uploaded by the caller. Only admins
// may file outside a pôle or in a pôle they do not belong to.
func (s *Service) CreateDocument(ctx context.Context, p *identity.Principal, in DocumentInput) (*models.Document, error) {
	if err := s.guard(p, roleChain, true); err != nil {
		return nil, err
	}
	in.Name = strings.TrimSpace(in.Name)
	in.Category = strings.TrimSpace(in.Category)
	if err := apperr.FromValidator(inputs.Struct(&in)); err != nil {
		return nil, err
	}

	d := &models.Document{
		Name:        in.Name,
		Description: in.Description,
		PoleID:      in.PoleID,
		Year:        in.Year,
		Category:    in.Category,
		FileKey:     in.FileKey,
		Version:     1,
		UploadedBy:  p.ID(),
	}
	err := s.store.WithTx(ctx, func(tx repository.Repos) error {
		if err := s.checkDocumentPole(ctx, tx, p, d.PoleID); err != nil {
			return err
		}
		return tx.Documents().Create(ctx, d)
	})
	if err != nil {
		return nil, err
	}
	s.logger.Info("document filed", zap.Int64("document_id", d.ID), zap.Int64("uploaded_by", d.UploadedBy))
	return d, nil
}

// UpdateDocument edits a visible document. Replacing the file bumps the
// version.
func (s *Service) UpdateDocument(ctx context.Context, p *identity.Principal, id int64, patch DocumentPatch) (*models.Document, error) {
	if err := s.guard(p, roleChain, true); err != nil {
		return nil, err
	}

	var updated *models.Document
	err := s.store.WithTx(ctx, func(tx repository.Repos) error {
		d, err := s.document(ctx, tx, p, id)
		if err != nil {
			return err
		}
		if err := s.checkDocumentPole(ctx, tx, p, d.PoleID); err != nil {
			return err
		}
		if patch.PoleID != nil {
			if err := s.checkDocumentPole(ctx, tx, p, patch.PoleID); err != nil {
				return err
			}
			d.PoleID = patch.PoleID
		}

		var v apperr.Validation
		if patch.Name != nil {
			if name := strings.TrimSpace(*patch.Name); name == "" {
				v.Add("name", "required")
			} else {
				d.Name = name
			}
		}
		if patch.Category != nil {
			if category := strings.TrimSpace(*patch.Category); category == "" {
				v.Add("category", "required")
			} else {
				d.Category = category
			}
		}
		if patch.Year != nil {
			if *patch.Year < 1 {
				v.Add("year", "must be at least 1")
			} else {
				d.Year = *patch.Year
			}
		}
		if patch.FileKey != nil && *patch.FileKey != d.FileKey {
			if *patch.FileKey == "" {
				v.Add("file_key", "required")
			} else {
				d.FileKey = *patch.FileKey
				d.Version++
			}
		}
		setString(&d.Description, patch.Description)
		if err := v.Err(); err != nil {
			return err
		}
		if err := tx.Documents().Update(ctx, d); err != nil {
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

func (s *Service) checkDocumentPole(ctx context.Context, tx repository.Repos, p *identity.Principal, poleID *int64) error {
	if poleID != nil {
		if _, err := s.pole(ctx, tx, *poleID); err != nil {
			if apperr.IsNotFound(err) {
				return apperr.Invalid("pole_id", "unknown pôle")
			}
			return err
		}
	}
	if role, _ := identity.ResolveRole(p); role == models.RoleAdmin {
		return nil
	}
	if poleID == nil || !p.InPole(*poleID) {
		s.metrics.Denied("object:document")
		return apperr.ErrForbidden
	}
	return nil
}
