package postgres

import (
	"context"
	"errors"
	"fmt"
	"slices"

	"github.com/jackc/pgx/v5"

	"github.com/lalith-99/unionline/internal/access"
	"github.com/lalith-99/unionline/internal/models"
)

// requeteSelect joins the mandate so DelegateUserID is filled for access
// checks.
const requeteSelect = `
	SELECT r.id, r.reference_number, r.worker_id, r.pole_id, r.company_id,
	       r.delegate_id, dm.user_id, r.dossier_id, r.problem_type, r.title,
	       r.description, r.status, r.priority, r.created_at, r.updated_at
	FROM requetes r
	LEFT JOIN delegate_mandates dm ON dm.id = r.delegate_id`

type RequeteStore struct {
	q querier
}

func scanRequete(row pgx.Row) (*models.Requete, error) {
	var r models.Requete
	err := row.Scan(
		&r.ID,
		&r.ReferenceNumber,
		&r.WorkerID,
		&r.PoleID,
		&r.CompanyID,
		&r.DelegateID,
		&r.DelegateUserID,
		&r.DossierID,
		&r.ProblemType,
		&r.Title,
		&r.Description,
		&r.Status,
		&r.Priority,
		&r.CreatedAt,
		&r.UpdatedAt,
	)
	if err != nil {
		return nil, err
	}
	return &r, nil
}

func collectRequetes(rows pgx.Rows) ([]models.Requete, error) {
	defer rows.Close()
	requetes := make([]models.Requete, 0)
	for rows.Next() {
		r, err := scanRequete(rows)
		if err != nil {
			return nil, fmt.Errorf("scan requete: %w", err)
		}
		requetes = append(requetes, *r)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate requetes: %w", err)
	}
	return requetes, nil
}

func (s *RequeteStore) Create(ctx context.Context, r *models.Requete) error {
	query := `
		INSERT INTO requetes (reference_number, worker_id, pole_id, company_id, delegate_id, dossier_id,
		                      problem_type, title, description, status, priority, created_at, updated_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, now(), now())
		RETURNING id, created_at, updated_at,
		          (SELECT user_id FROM delegate_mandates WHERE id = $5)`

	err := s.q.QueryRow(ctx, query,
		r.ReferenceNumber, r.WorkerID, r.PoleID, r.CompanyID, r.DelegateID, r.DossierID,
		r.ProblemType, r.Title, r.Description, r.Status, r.Priority,
	).Scan(&r.ID, &r.CreatedAt, &r.UpdatedAt, &r.DelegateUserID)
	if err != nil {
		return wrap("insert requete", err)
	}
	return nil
}

func (s *RequeteStore) get(ctx context.Context, scope access.Scope, id int64, lock bool) (*models.Requete, error) {
	var a args
	query := requeteSelect + ` WHERE r.id = ` + a.add(id) + ` AND ` + requeteScope(scope, &a)
	if lock {
		query += ` FOR UPDATE OF r`
	}

	r, err := scanRequete(s.q.QueryRow(ctx, query, a...))
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, nil
		}
		return nil, fmt.Errorf("get requete: %w", err)
	}
	return r, nil
}

func (s *RequeteStore) GetByID(ctx context.Context, scope access.Scope, id int64) (*models.Requete, error) {
	return s.get(ctx, scope, id, false)
}

func (s *RequeteStore) LockByID(ctx context.Context, scope access.Scope, id int64) (*models.Requete, error) {
	return s.get(ctx, scope, id, true)
}

func (s *RequeteStore) List(ctx context.Context, scope access.Scope) ([]models.Requete, error) {
	var a args
	query := requeteSelect + ` WHERE ` + requeteScope(scope, &a) + ` ORDER BY r.created_at DESC, r.id DESC`

	rows, err := s.q.Query(ctx, query, a...)
	if err != nil {
		return nil, fmt.Errorf("list requetes: %w", err)
	}
	return collectRequetes(rows)
}

func (s *RequeteStore) ListByIDs(ctx context.Context, ids []int64) ([]models.Requete, error) {
	if len(ids) == 0 {
		return []models.Requete{}, nil
	}
	rows, err := s.q.Query(ctx, requeteSelect+` WHERE r.id = ANY($1) ORDER BY r.id`, ids)
	if err != nil {
		return nil, fmt.Errorf("list requetes by id: %w", err)
	}
	return collectRequetes(rows)
}

func (s *RequeteStore) Update(ctx context.Context, r *models.Requete) error {
	query := `
		UPDATE requetes
		SET worker_id = $2, pole_id = $3, company_id = $4, delegate_id = $5, dossier_id = $6,
		    problem_type = $7, title = $8, description = $9, status = $10, priority = $11,
		    updated_at = $12
		WHERE id = $1
		RETURNING (SELECT user_id FROM delegate_mandates WHERE id = $5)`

	err := s.q.QueryRow(ctx, query,
		r.ID, r.WorkerID, r.PoleID, r.CompanyID, r.DelegateID, r.DossierID,
		r.ProblemType, r.Title, r.Description, r.Status, r.Priority, r.UpdatedAt,
	).Scan(&r.DelegateUserID)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return fmt.Errorf("update requete %d: no such row", r.ID)
		}
		return wrap("update requete", err)
	}
	return nil
}

const dossierSelect = `
	SELECT d.id, d.dossier_number, d.pole_id, d.title, d.responsible_id, d.status,
	       d.opened_on, d.closed_on, d.synthesis, d.created_at, d.updated_at,
	       COALESCE((SELECT array_agg(dr.requete_id ORDER BY dr.requete_id)
	                 FROM dossier_requetes dr WHERE dr.dossier_id = d.id), '{}')
	FROM dossiers d`

type DossierStore struct {
	q querier
}

func scanDossier(row pgx.Row) (*models.Dossier, error) {
	var d models.Dossier
	err := row.Scan(
		&d.ID,
		&d.DossierNumber,
		&d.PoleID,
		&d.Title,
		&d.ResponsibleID,
		&d.Status,
		&d.OpenedOn,
		&d.ClosedOn,
		&d.Synthesis,
		&d.CreatedAt,
		&d.UpdatedAt,
		&d.RequeteIDs,
	)
	if err != nil {
		return nil, err
	}
	return &d, nil
}

func (s *DossierStore) Create(ctx context.Context, d *models.Dossier) error {
	query := `
		INSERT INTO dossiers (dossier_number, pole_id, title, responsible_id, status,
		                      opened_on, closed_on, synthesis, created_at, updated_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, now(), now())
		RETURNING id, created_at, updated_at`

	err := s.q.QueryRow(ctx, query,
		d.DossierNumber, d.PoleID, d.Title, d.ResponsibleID, d.Status, d.OpenedOn, d.ClosedOn, d.Synthesis,
	).Scan(&d.ID, &d.CreatedAt, &d.UpdatedAt)
	if err != nil {
		return wrap("insert dossier", err)
	}
	return s.replaceLinks(ctx, d)
}

// replaceLinks rewrites the dossier's requête set and normalizes
// d.RequeteIDs to what was stored.
func (s *DossierStore) replaceLinks(ctx context.Context, d *models.Dossier) error {
	if _, err := s.q.Exec(ctx, `DELETE FROM dossier_requetes WHERE dossier_id = $1`, d.ID); err != nil {
		return wrap("clear dossier links", err)
	}
	ids := d.RequeteIDs
	if ids == nil {
		ids = []int64{}
	}
	query := `
		INSERT INTO dossier_requetes (dossier_id, requete_id)
		SELECT $1, unnest($2::bigint[])
		ON CONFLICT DO NOTHING
		RETURNING requete_id`

	rows, err := s.q.Query(ctx, query, d.ID, ids)
	if err != nil {
		return wrap("link dossier requetes", err)
	}
	linked, err := pgx.CollectRows(rows, pgx.RowTo[int64])
	if err != nil {
		return wrap("link dossier requetes", err)
	}
	slices.Sort(linked)
	d.RequeteIDs = linked
	return nil
}

func (s *DossierStore) get(ctx context.Context, scope access.Scope, id int64, lock bool) (*models.Dossier, error) {
	var a args
	query := dossierSelect + ` WHERE d.id = ` + a.add(id) + ` AND ` + dossierScope(scope, &a)
	if lock {
		query += ` FOR UPDATE OF d`
	}

	d, err := scanDossier(s.q.QueryRow(ctx, query, a...))
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, nil
		}
		return nil, fmt.Errorf("get dossier: %w", err)
	}
	return d, nil
}

func (s *DossierStore) GetByID(ctx context.Context, scope access.Scope, id int64) (*models.Dossier, error) {
	return s.get(ctx, scope, id, false)
}

func (s *DossierStore) LockByID(ctx context.Context, scope access.Scope, id int64) (*models.Dossier, error) {
	return s.get(ctx, scope, id, true)
}

func (s *DossierStore) List(ctx context.Context, scope access.Scope) ([]models.Dossier, error) {
	var a args
	query := dossierSelect + ` WHERE ` + dossierScope(scope, &a) + ` ORDER BY d.created_at DESC, d.id DESC`

	rows, err := s.q.Query(ctx, query, a...)
	if err != nil {
		return nil, fmt.Errorf("list dossiers: %w", err)
	}
	defer rows.Close()

	dossiers := make([]models.Dossier, 0)
	for rows.Next() {
		d, err := scanDossier(rows)
		if err != nil {
			return nil, fmt.Errorf("scan dossier: %w", err)
		}
		dossiers = append(dossiers, *d)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate dossiers: %w", err)
	}
	return dossiers, nil
}

func (s *DossierStore) Update(ctx context.Context, d *models.Dossier) error {
	query := `
		UPDATE dossiers
		SET pole_id = $2, title = $3, responsible_id = $4, status = $5,
		    closed_on = $6, synthesis = $7, updated_at = $8
		WHERE id = $1`

	tag, err := s.q.Exec(ctx, query,
		d.ID, d.PoleID, d.Title, d.ResponsibleID, d.Status, d.ClosedOn, d.Synthesis, d.UpdatedAt,
	)
	if err != nil {
		return wrap("update dossier", err)
	}
	if tag.RowsAffected() == 0 {
		return fmt.Errorf("update dossier %d: no such row", d.ID)
	}
	return s.replaceLinks(ctx, d)
}

const reunionSelect = `
	SELECT m.id, m.dossier_id, m.type, m.scheduled_at, m.location, m.participant_ids,
	       m.agenda, m.minutes, m.status, m.created_by, m.created_at
	FROM reunions m
	JOIN dossiers d ON d.id = m.dossier_id`

type ReunionStore struct {
	q querier
}

func scanReunion(row pgx.Row) (*models.Reunion, error) {
	var m models.Reunion
	err := row.Scan(
		&m.ID,
		&m.DossierID,
		&m.Type,
		&m.ScheduledAt,
		&m.Location,
		&m.ParticipantIDs,
		&m.Agenda,
		&m.Minutes,
		&m.Status,
		&m.CreatedBy,
		&m.CreatedAt,
	)
	if err != nil {
		return nil, err
	}
	return &m, nil
}

func participants(ids []int64) []int64 {
	if ids == nil {
		return []int64{}
	}
	return ids
}

func (s *ReunionStore) Create(ctx context.Context, m *models.Reunion) error {
	query := `
		INSERT INTO reunions (dossier_id, type, scheduled_at, location, participant_ids,
		                      agenda, minutes, status, created_by, created_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, now())
		RETURNING id, created_at`

	err := s.q.QueryRow(ctx, query,
		m.DossierID, m.Type, m.ScheduledAt, m.Location, participants(m.ParticipantIDs),
		m.Agenda, m.Minutes, m.Status, m.CreatedBy,
	).Scan(&m.ID, &m.CreatedAt)
	if err != nil {
		return wrap("insert reunion", err)
	}
	return nil
}

func (s *ReunionStore) GetByID(ctx context.Context, scope access.Scope, id int64) (*models.Reunion, error) {
	var a args
	query := reunionSelect + ` WHERE m.id = ` + a.add(id) + ` AND ` + dossierScope(scope, &a)

	m, err := scanReunion(s.q.QueryRow(ctx, query, a...))
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, nil
		}
		return nil, fmt.Errorf("get reunion: %w", err)
	}
	return m, nil
}

func (s *ReunionStore) List(ctx context.Context, scope access.Scope) ([]models.Reunion, error) {
	var a args
	query := reunionSelect + ` WHERE ` + dossierScope(scope, &a) + ` ORDER BY m.scheduled_at, m.id`

	rows, err := s.q.Query(ctx, query, a...)
	if err != nil {
		return nil, fmt.Errorf("list reunions: %w", err)
	}
	defer rows.Close()

	reunions := make([]models.Reunion, 0)
	for rows.Next() {
		m, err := scanReunion(rows)
		if err != nil {
			return nil, fmt.Errorf("scan reunion: %w", err)
		}
		reunions = append(reunions, *m)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate reunions: %w", err)
	}
	return reunions, nil
}

func (s *ReunionStore) Update(ctx context.Context, m *models.Reunion) error {
	query := `
		UPDATE reunions
		SET type = $2, scheduled_at = $3, location = $4, participant_ids = $5,
		    agenda = $6, minutes = $7, status = $8
		WHERE id = $1`

	tag, err := s.q.Exec(ctx, query,
		m.ID, m.Type, m.ScheduledAt, m.Location, participants(m.ParticipantIDs), m.Agenda, m.Minutes, m.Status,
	)
	if err != nil {
		return wrap("update reunion", err)
	}
	if tag.RowsAffected() == 0 {
		return fmt.Errorf("update reunion %d: no such row", m.ID)
	}
	return nil
}

const attachmentColumns = `p.id, p.requete_id, p.file_key, p.document_type, p.description, p.uploaded_by, p.uploaded_at`

type AttachmentStore struct {
	q querier
}

func collectAttachments(rows pgx.Rows) ([]models.PieceJointe, error) {
	defer rows.Close()
	attachments := make([]models.PieceJointe, 0)
	for rows.Next() {
		var p models.PieceJointe
		if err := rows.Scan(&p.ID, &p.RequeteID, &p.FileKey, &p.DocumentType, &p.Description, &p.UploadedBy, &p.UploadedAt); err != nil {
			return nil, fmt.Errorf("scan piece jointe: %w", err)
		}
		attachments = append(attachments, p)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate pieces jointes: %w", err)
	}
	return attachments, nil
}

func (s *AttachmentStore) Create(ctx context.Context, p *models.PieceJointe) error {
	query := `
		INSERT INTO pieces_jointes (requete_id, file_key, document_type, description, uploaded_by, uploaded_at)
		VALUES ($1, $2, $3, $4, $5, now())
		RETURNING id, uploaded_at`

	err := s.q.QueryRow(ctx, query, p.RequeteID, p.FileKey, p.DocumentType, p.Description, p.UploadedBy).
		Scan(&p.ID, &p.UploadedAt)
	if err != nil {
		return wrap("insert piece jointe", err)
	}
	return nil
}

func (s *AttachmentStore) GetByID(ctx context.Context, scope access.Scope, id int64) (*models.PieceJointe, error) {
	var a args
	query := `SELECT ` + attachmentColumns + `
		FROM pieces_jointes p JOIN requetes r ON r.id = p.requete_id
		WHERE p.id = ` + a.add(id) + ` AND ` + requeteScope(scope, &a)

	var p models.PieceJointe
	err := s.q.QueryRow(ctx, query, a...).
		Scan(&p.ID, &p.RequeteID, &p.FileKey, &p.DocumentType, &p.Description, &p.UploadedBy, &p.UploadedAt)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, nil
		}
		return nil, fmt.Errorf("get piece jointe: %w", err)
	}
	return &p, nil
}

func (s *AttachmentStore) List(ctx context.Context, scope access.Scope) ([]models.PieceJointe, error) {
	var a args
	query := `SELECT ` + attachmentColumns + `
		FROM pieces_jointes p JOIN requetes r ON r.id = p.requete_id
		WHERE ` + requeteScope(scope, &a) + `
		ORDER BY p.uploaded_at DESC, p.id DESC`

	rows, err := s.q.Query(ctx, query, a...)
	if err != nil {
		return nil, fmt.Errorf("list pieces jointes: %w", err)
	}
	return collectAttachments(rows)
}

func (s *AttachmentStore) ListByRequete(ctx context.Context, requeteID int64) ([]models.PieceJointe, error) {
	query := `SELECT ` + attachmentColumns + ` FROM pieces_jointes p WHERE p.requete_id = $1 ORDER BY p.id`

	rows, err := s.q.Query(ctx, query, requeteID)
	if err != nil {
		return nil, fmt.Errorf("list pieces jointes of requete: %w", err)
	}
	return collectAttachments(rows)
}
