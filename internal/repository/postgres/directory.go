package postgres

import (
	"context"
	"errors"
	"fmt"

	"github.com/jackc/pgx/v5"

	"github.com/lalith-99/unionline/internal/models"
)

type CompanyStore struct {
	q querier
}

func (s *CompanyStore) Create(ctx context.Context, c *models.Company) error {
	query := `
		INSERT INTO companies (name, code, address, sector)
		VALUES ($1, $2, $3, $4)
		RETURNING id`

	if err := s.q.QueryRow(ctx, query, c.Name, c.Code, c.Address, c.Sector).Scan(&c.ID); err != nil {
		return wrap("insert company", err)
	}
	return nil
}

func (s *CompanyStore) GetByID(ctx context.Context, id int64) (*models.Company, error) {
	query := `SELECT id, name, code, address, sector FROM companies WHERE id = $1`

	var c models.Company
	err := s.q.QueryRow(ctx, query, id).Scan(&c.ID, &c.Name, &c.Code, &c.Address, &c.Sector)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, nil
		}
		return nil, fmt.Errorf("get company: %w", err)
	}
	return &c, nil
}

func (s *CompanyStore) List(ctx context.Context) ([]models.Company, error) {
	query := `SELECT id, name, code, address, sector FROM companies ORDER BY name`

	rows, err := s.q.Query(ctx, query)
	if err != nil {
		return nil, fmt.Errorf("list companies: %w", err)
	}
	defer rows.Close()

	companies := make([]models.Company, 0)
	for rows.Next() {
		var c models.Company
		if err := rows.Scan(&c.ID, &c.Name, &c.Code, &c.Address, &c.Sector); err != nil {
			return nil, fmt.Errorf("scan company: %w", err)
		}
		companies = append(companies, c)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate companies: %w", err)
	}
	return companies, nil
}

func (s *CompanyStore) Update(ctx context.Context, c *models.Company) error {
	query := `UPDATE companies SET name = $2, code = $3, address = $4, sector = $5 WHERE id = $1`

	tag, err := s.q.Exec(ctx, query, c.ID, c.Name, c.Code, c.Address, c.Sector)
	if err != nil {
		return wrap("update company", err)
	}
	if tag.RowsAffected() == 0 {
		return fmt.Errorf("update company %d: no such row", c.ID)
	}
	return nil
}

type PoleStore struct {
	q querier
}

func (s *PoleStore) Create(ctx context.Context, p *models.Pole) error {
	query := `
		INSERT INTO poles (name, description, head_user_id, problem_types)
		VALUES ($1, $2, $3, $4)
		RETURNING id`

	problemTypes := p.ProblemTypes
	if problemTypes == nil {
		problemTypes = []string{}
	}
	err := s.q.QueryRow(ctx, query, p.Name, p.Description, p.HeadUserID, problemTypes).Scan(&p.ID)
	if err != nil {
		return wrap("insert pole", err)
	}
	return nil
}

func (s *PoleStore) GetByID(ctx context.Context, id int64) (*models.Pole, error) {
	query := `SELECT id, name, description, head_user_id, problem_types FROM poles WHERE id = $1`

	var p models.Pole
	err := s.q.QueryRow(ctx, query, id).Scan(&p.ID, &p.Name, &p.Description, &p.HeadUserID, &p.ProblemTypes)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, nil
		}
		return nil, fmt.Errorf("get pole: %w", err)
	}
	return &p, nil
}

func (s *PoleStore) List(ctx context.Context) ([]models.Pole, error) {
	query := `SELECT id, name, description, head_user_id, problem_types FROM poles ORDER BY name`

	rows, err := s.q.Query(ctx, query)
	if err != nil {
		return nil, fmt.Errorf("list poles: %w", err)
	}
	defer rows.Close()

	poles := make([]models.Pole, 0)
	for rows.Next() {
		var p models.Pole
		if err := rows.Scan(&p.ID, &p.Name, &p.Description, &p.HeadUserID, &p.ProblemTypes); err != nil {
			return nil, fmt.Errorf("scan pole: %w", err)
		}
		poles = append(poles, p)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate poles: %w", err)
	}
	return poles, nil
}

// AddMember is not idempotent: a second membership for the same user is a
// conflict the caller reports.
func (s *PoleStore) AddMember(ctx context.Context, m *models.PoleMembership) error {
	query := `
		INSERT INTO pole_memberships (pole_id, user_id, role, created_at)
		VALUES ($1, $2, $3, now())
		RETURNING id, created_at`

	if err := s.q.QueryRow(ctx, query, m.PoleID, m.UserID, m.Role).Scan(&m.ID, &m.CreatedAt); err != nil {
		return wrap("add pole member", err)
	}
	return nil
}

func (s *PoleStore) GetMember(ctx context.Context, poleID, userID int64) (*models.PoleMembership, error) {
	query := `
		SELECT id, pole_id, user_id, role, created_at
		FROM pole_memberships
		WHERE pole_id = $1 AND user_id = $2`

	var m models.PoleMembership
	err := s.q.QueryRow(ctx, query, poleID, userID).Scan(&m.ID, &m.PoleID, &m.UserID, &m.Role, &m.CreatedAt)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, nil
		}
		return nil, fmt.Errorf("get pole member: %w", err)
	}
	return &m, nil
}

func (s *PoleStore) UpdateMember(ctx context.Context, m *models.PoleMembership) error {
	query := `
		UPDATE pole_memberships SET role = $2
		WHERE id = $1
		RETURNING pole_id, user_id, created_at`

	err := s.q.QueryRow(ctx, query, m.ID, m.Role).Scan(&m.PoleID, &m.UserID, &m.CreatedAt)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return fmt.Errorf("update pole membership %d: no such row", m.ID)
		}
		return wrap("update pole member", err)
	}
	return nil
}

func (s *PoleStore) SetMemberRoles(ctx context.Context, userID int64, role models.PoleRole) error {
	if _, err := s.q.Exec(ctx, `UPDATE pole_memberships SET role = $2 WHERE user_id = $1`, userID, role); err != nil {
		return wrap("set member roles", err)
	}
	return nil
}

func (s *PoleStore) ListMembers(ctx context.Context, poleID int64) ([]models.PoleMembership, error) {
	query := `
		SELECT id, pole_id, user_id, role, created_at
		FROM pole_memberships
		WHERE pole_id = $1
		ORDER BY id`

	rows, err := s.q.Query(ctx, query, poleID)
	if err != nil {
		return nil, fmt.Errorf("list pole members: %w", err)
	}
	defer rows.Close()

	members := make([]models.PoleMembership, 0)
	for rows.Next() {
		var m models.PoleMembership
		if err := rows.Scan(&m.ID, &m.PoleID, &m.UserID, &m.Role, &m.CreatedAt); err != nil {
			return nil, fmt.Errorf("scan pole member: %w", err)
		}
		members = append(members, m)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate pole members: %w", err)
	}
	return members, nil
}

const mandateColumns = `id, user_id, company_id, phone, email, active, created_at`

type DelegateStore struct {
	q querier
}

func scanMandate(row pgx.Row) (*models.DelegateMandate, error) {
	var m models.DelegateMandate
	if err := row.Scan(&m.ID, &m.UserID, &m.CompanyID, &m.Phone, &m.Email, &m.Active, &m.CreatedAt); err != nil {
		return nil, err
	}
	return &m, nil
}

func (s *DelegateStore) Create(ctx context.Context, m *models.DelegateMandate) error {
	query := `
		INSERT INTO delegate_mandates (user_id, company_id, phone, email, active, created_at)
		VALUES ($1, $2, $3, $4, $5, now())
		RETURNING id, created_at`

	err := s.q.QueryRow(ctx, query, m.UserID, m.CompanyID, m.Phone, m.Email, m.Active).Scan(&m.ID, &m.CreatedAt)
	if err != nil {
		return wrap("insert delegate mandate", err)
	}
	return nil
}

func (s *DelegateStore) GetByID(ctx context.Context, id int64) (*models.DelegateMandate, error) {
	m, err := scanMandate(s.q.QueryRow(ctx, `SELECT `+mandateColumns+` FROM delegate_mandates WHERE id = $1`, id))
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, nil
		}
		return nil, fmt.Errorf("get delegate mandate: %w", err)
	}
	return m, nil
}

func (s *DelegateStore) List(ctx context.Context) ([]models.DelegateMandate, error) {
	rows, err := s.q.Query(ctx, `SELECT `+mandateColumns+` FROM delegate_mandates ORDER BY id`)
	if err != nil {
		return nil, fmt.Errorf("list delegate mandates: %w", err)
	}
	defer rows.Close()

	mandates := make([]models.DelegateMandate, 0)
	for rows.Next() {
		m, err := scanMandate(rows)
		if err != nil {
			return nil, fmt.Errorf("scan delegate mandate: %w", err)
		}
		mandates = append(mandates, *m)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate delegate mandates: %w", err)
	}
	return mandates, nil
}

func (s *DelegateStore) Update(ctx context.Context, m *models.DelegateMandate) error {
	query := `
		UPDATE delegate_mandates
		SET user_id = $2, company_id = $3, phone = $4, email = $5, active = $6
		WHERE id = $1`

	tag, err := s.q.Exec(ctx, query, m.ID, m.UserID, m.CompanyID, m.Phone, m.Email, m.Active)
	if err != nil {
		return wrap("update delegate mandate", err)
	}
	if tag.RowsAffected() == 0 {
		return fmt.Errorf("update delegate mandate %d: no such row", m.ID)
	}
	return nil
}
