package postgres

import (
	"context"
	"errors"
	"fmt"

	"github.com/jackc/pgx/v5"

	"github.com/lalith-99/unionline/internal/identity"
	"github.com/lalith-99/unionline/internal/models"
)

const userColumns = `id, email, password_hash, first_name, last_name, is_staff, is_superuser, is_active, created_at`

type UserStore struct {
	q querier
}

func scanUser(row pgx.Row) (*models.User, error) {
	var u models.User
	err := row.Scan(
		&u.ID,
		&u.Email,
		&u.PasswordHash,
		&u.FirstName,
		&u.LastName,
		&u.IsStaff,
		&u.IsSuperuser,
		&u.IsActive,
		&u.CreatedAt,
	)
	if err != nil {
		return nil, err
	}
	return &u, nil
}

// Create inserts a new user row. Postgres generates the id and timestamp.
func (s *UserStore) Create(ctx context.Context, u *models.User) error {
	query := `
		INSERT INTO users (email, password_hash, first_name, last_name, is_staff, is_superuser, is_active, created_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7, now())
		RETURNING id, created_at`

	err := s.q.QueryRow(ctx, query,
		u.Email, u.PasswordHash, u.FirstName, u.LastName, u.IsStaff, u.IsSuperuser, u.IsActive,
	).Scan(&u.ID, &u.CreatedAt)
	if err != nil {
		return wrap("insert user", err)
	}
	return nil
}

func (s *UserStore) GetByID(ctx context.Context, id int64) (*models.User, error) {
	query := `SELECT ` + userColumns + ` FROM users WHERE id = $1`

	u, err := scanUser(s.q.QueryRow(ctx, query, id))
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, nil
		}
		return nil, fmt.Errorf("get user: %w", err)
	}
	return u, nil
}

// GetByEmail is used for login. The unique index is on lower(email).
func (s *UserStore) GetByEmail(ctx context.Context, email string) (*models.User, error) {
	query := `SELECT ` + userColumns + ` FROM users WHERE lower(email) = lower($1)`

	u, err := scanUser(s.q.QueryRow(ctx, query, email))
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, nil
		}
		return nil, fmt.Errorf("get user by email: %w", err)
	}
	return u, nil
}

func (s *UserStore) Update(ctx context.Context, u *models.User) error {
	query := `
		UPDATE users
		SET email = $2, password_hash = $3, first_name = $4, last_name = $5,
		    is_staff = $6, is_superuser = $7, is_active = $8
		WHERE id = $1`

	tag, err := s.q.Exec(ctx, query,
		u.ID, u.Email, u.PasswordHash, u.FirstName, u.LastName, u.IsStaff, u.IsSuperuser, u.IsActive,
	)
	if err != nil {
		return wrap("update user", err)
	}
	if tag.RowsAffected() == 0 {
		return fmt.Errorf("update user %d: no such row", u.ID)
	}
	return nil
}

const profileColumns = `id, user_id, role, company_id, phone, job_title, department, contract_type, hired_on, created_at`

type ProfileStore struct {
	q querier
}

func scanProfile(row pgx.Row) (*models.Profile, error) {
	var p models.Profile
	err := row.Scan(
		&p.ID,
		&p.UserID,
		&p.Role,
		&p.CompanyID,
		&p.Phone,
		&p.JobTitle,
		&p.Department,
		&p.ContractType,
		&p.HiredOn,
		&p.CreatedAt,
	)
	if err != nil {
		return nil, err
	}
	return &p, nil
}

func (s *ProfileStore) Create(ctx context.Context, p *models.Profile) error {
	query := `
		INSERT INTO profiles (user_id, role, company_id, phone, job_title, department, contract_type, hired_on, created_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, now())
		RETURNING id, created_at`

	err := s.q.QueryRow(ctx, query,
		p.UserID, p.Role, p.CompanyID, p.Phone, p.JobTitle, p.Department, p.ContractType, p.HiredOn,
	).Scan(&p.ID, &p.CreatedAt)
	if err != nil {
		return wrap("insert profile", err)
	}
	return nil
}

func (s *ProfileStore) GetByUser(ctx context.Context, userID int64) (*models.Profile, error) {
	query := `SELECT ` + profileColumns + ` FROM profiles WHERE user_id = $1`

	p, err := scanProfile(s.q.QueryRow(ctx, query, userID))
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, nil
		}
		return nil, fmt.Errorf("get profile: %w", err)
	}
	return p, nil
}

func (s *ProfileStore) Update(ctx context.Context, p *models.Profile) error {
	query := `
		UPDATE profiles
		SET role = $2, company_id = $3, phone = $4, job_title = $5,
		    department = $6, contract_type = $7, hired_on = $8
		WHERE id = $1`

	tag, err := s.q.Exec(ctx, query,
		p.ID, p.Role, p.CompanyID, p.Phone, p.JobTitle, p.Department, p.ContractType, p.HiredOn,
	)
	if err != nil {
		return wrap("update profile", err)
	}
	if tag.RowsAffected() == 0 {
		return fmt.Errorf("update profile %d: no such row", p.ID)
	}
	return nil
}

func (s *ProfileStore) List(ctx context.Context) ([]models.Profile, error) {
	query := `SELECT ` + profileColumns + ` FROM profiles ORDER BY id`

	rows, err := s.q.Query(ctx, query)
	if err != nil {
		return nil, fmt.Errorf("list profiles: %w", err)
	}
	defer rows.Close()

	profiles := make([]models.Profile, 0)
	for rows.Next() {
		p, err := scanProfile(rows)
		if err != nil {
			return nil, fmt.Errorf("scan profile: %w", err)
		}
		profiles = append(profiles, *p)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate profiles: %w", err)
	}
	return profiles, nil
}

type PrincipalStore struct {
	q querier
}

// LoadPrincipal sends the four lookups as one batch.
func (s *PrincipalStore) LoadPrincipal(ctx context.Context, userID int64) (*identity.Principal, error) {
	batch := &pgx.Batch{}
	batch.Queue(`SELECT `+userColumns+` FROM users WHERE id = $1`, userID)
	batch.Queue(`SELECT `+profileColumns+` FROM profiles WHERE user_id = $1`, userID)
	batch.Queue(`SELECT `+mandateColumns+` FROM delegate_mandates WHERE user_id = $1 ORDER BY id`, userID)
	batch.Queue(`
		SELECT id FROM poles WHERE head_user_id = $1
		UNION
		SELECT pole_id FROM pole_memberships WHERE user_id = $1
		ORDER BY 1`, userID)

	br := s.q.SendBatch(ctx, batch)
	defer br.Close()

	u, err := scanUser(br.QueryRow())
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, nil
		}
		return nil, fmt.Errorf("load principal user: %w", err)
	}
	p := &identity.Principal{User: *u}

	profile, err := scanProfile(br.QueryRow())
	switch {
	case err == nil:
		p.Profile = profile
	case !errors.Is(err, pgx.ErrNoRows):
		return nil, fmt.Errorf("load principal profile: %w", err)
	}

	rows, err := br.Query()
	if err != nil {
		return nil, fmt.Errorf("load principal mandates: %w", err)
	}
	for rows.Next() {
		m, err := scanMandate(rows)
		if err != nil {
			rows.Close()
			return nil, fmt.Errorf("scan mandate: %w", err)
		}
		p.Mandates = append(p.Mandates, *m)
	}
	rows.Close()
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate mandates: %w", err)
	}

	rows, err = br.Query()
	if err != nil {
		return nil, fmt.Errorf("load principal poles: %w", err)
	}
	p.PoleIDs, err = pgx.CollectRows(rows, pgx.RowTo[int64])
	if err != nil {
		return nil, fmt.Errorf("collect poles: %w", err)
	}
	return p, nil
}
