package postgres

import (
	"context"
	"errors"
	"fmt"

	"github.com/jackc/pgx/v5"

	"github.com/lalith-99/unionline/internal/access"
	"github.com/lalith-99/unionline/internal/models"
	"github.com/lalith-99/unionline/internal/repository"
)

const documentColumns = `doc.id, doc.name, doc.description, doc.pole_id, doc.year, doc.category,
	doc.file_key, doc.version, doc.uploaded_by, doc.created_at, doc.updated_at`

type DocumentStore struct {
	q querier
}

func scanDocument(row pgx.Row) (*models.Document, error) {
	var d models.Document
	err := row.Scan(&d.ID, &d.Name, &d.Description, &d.PoleID, &d.Year, &d.Category,
		&d.FileKey, &d.Version, &d.UploadedBy, &d.CreatedAt, &d.UpdatedAt)
	if err != nil {
		return nil, err
	}
	return &d, nil
}

func (s *DocumentStore) Create(ctx context.Context, d *models.Document) error {
	if d.Version == 0 {
		d.Version = 1
	}
	query := `
		INSERT INTO documents (name, description, pole_id, year, category, file_key, version, uploaded_by)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8)
		RETURNING id, created_at, updated_at`

	err := s.q.QueryRow(ctx, query,
		d.Name, d.Description, d.PoleID, d.Year, d.Category, d.FileKey, d.Version, d.UploadedBy,
	).Scan(&d.ID, &d.CreatedAt, &d.UpdatedAt)
	if err != nil {
		return wrap("insert document", err)
	}
	return nil
}

func (s *DocumentStore) GetByID(ctx context.Context, scope access.Scope, id int64) (*models.Document, error) {
	var a args
	query := `SELECT ` + documentColumns + ` FROM documents doc
		WHERE doc.id = ` + a.add(id) + ` AND ` + documentScope(scope, &a)

	d, err := scanDocument(s.q.QueryRow(ctx, query, a...))
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, nil
		}
		return nil, fmt.Errorf("get document: %w", err)
	}
	return d, nil
}

func (s *DocumentStore) List(ctx context.Context, scope access.Scope, f repository.DocumentFilter) ([]models.Document, error) {
	var a args
	query := `SELECT ` + documentColumns + ` FROM documents doc WHERE ` + documentScope(scope, &a)
	if f.Category != "" {
		query += ` AND doc.category = ` + a.add(f.Category)
	}
	if f.Year != 0 {
		query += ` AND doc.year = ` + a.add(f.Year)
	}
	query += ` ORDER BY doc.year DESC, doc.id DESC`

	rows, err := s.q.Query(ctx, query, a...)
	if err != nil {
		return nil, fmt.Errorf("list documents: %w", err)
	}
	defer rows.Close()

	documents := make([]models.Document, 0)
	for rows.Next() {
		d, err := scanDocument(rows)
		if err != nil {
			return nil, fmt.Errorf("scan document: %w", err)
		}
		documents = append(documents, *d)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate documents: %w", err)
	}
	return documents, nil
}

func (s *DocumentStore) Update(ctx context.Context, d *models.Document) error {
	query := `
		UPDATE documents
		SET name = $2, description = $3, pole_id = $4, year = $5, category = $6,
		    file_key = $7, version = $8, updated_at = now()
		WHERE id = $1
		RETURNING uploaded_by, created_at, updated_at`

	err := s.q.QueryRow(ctx, query,
		d.ID, d.Name, d.Description, d.PoleID, d.Year, d.Category, d.FileKey, d.Version,
	).Scan(&d.UploadedBy, &d.CreatedAt, &d.UpdatedAt)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return fmt.Errorf("update document %d: no such row", d.ID)
		}
		return wrap("update document", err)
	}
	return nil
}
