package postgres

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/lalith-99/unionline/internal/apperr"
	"github.com/lalith-99/unionline/internal/repository"
)

// querier is the subset of pgx shared by *pgxpool.Pool and pgx.Tx, so the
// same store code runs inside and outside a transaction.
type querier interface {
	Exec(ctx context.Context, sql string, args ...any) (pgconn.CommandTag, error)
	Query(ctx context.Context, sql string, args ...any) (pgx.Rows, error)
	QueryRow(ctx context.Context, sql string, args ...any) pgx.Row
	SendBatch(ctx context.Context, b *pgx.Batch) pgx.BatchResults
}

// Store implements repository.Store on a pgx pool.
type Store struct {
	pool *pgxpool.Pool
	*conn
}

func NewStore(pool *pgxpool.Pool) *Store {
	return &Store{pool: pool, conn: &conn{q: pool}}
}

// WithTx runs fn in a READ COMMITTED transaction. Row locks taken by
// LockByID and NextNumber are held until fn returns.
func (s *Store) WithTx(ctx context.Context, fn func(tx repository.Repos) error) error {
	err := pgx.BeginFunc(ctx, s.pool, func(tx pgx.Tx) error {
		return fn(&conn{q: tx})
	})
	if isTransient(err) {
		return fmt.Errorf("transaction: %w", apperr.ErrTransient)
	}
	return err
}

// conn binds the repositories to one querier.
type conn struct {
	q querier
}

func (c *conn) Users() repository.UserRepository                 { return &UserStore{q: c.q} }
func (c *conn) Profiles() repository.ProfileRepository           { return &ProfileStore{q: c.q} }
func (c *conn) Principals() repository.PrincipalRepository       { return &PrincipalStore{q: c.q} }
func (c *conn) Companies() repository.CompanyRepository          { return &CompanyStore{q: c.q} }
func (c *conn) Poles() repository.PoleRepository                 { return &PoleStore{q: c.q} }
func (c *conn) Delegates() repository.DelegateRepository         { return &DelegateStore{q: c.q} }
func (c *conn) Requetes() repository.RequeteRepository           { return &RequeteStore{q: c.q} }
func (c *conn) Dossiers() repository.DossierRepository           { return &DossierStore{q: c.q} }
func (c *conn) Reunions() repository.ReunionRepository           { return &ReunionStore{q: c.q} }
func (c *conn) Attachments() repository.AttachmentRepository     { return &AttachmentStore{q: c.q} }
func (c *conn) Documents() repository.DocumentRepository         { return &DocumentStore{q: c.q} }
func (c *conn) Notifications() repository.NotificationRepository { return &NotificationStore{q: c.q} }
func (c *conn) Audit() repository.AuditRepository                { return &AuditStore{q: c.q} }
func (c *conn) Numbers() repository.Numberer                     { return &SequenceStore{q: c.q} }

var (
	_ repository.Store = (*Store)(nil)
	_ repository.Repos = (*conn)(nil)
)

// conflictFields maps unique constraints to the input field that collided.
var conflictFields = map[string]string{
	"users_email_key":                          "email",
	"profiles_user_id_key":                     "user_id",
	"companies_code_key":                       "code",
	"poles_name_key":                           "name",
	"pole_memberships_pole_id_user_id_key":     "user_id",
	"delegate_mandates_user_id_company_id_key": "company_id",
	"requetes_reference_number_key":            "reference_number",
	"dossiers_dossier_number_key":              "dossier_number",
}

func isTransient(err error) bool {
	var pgErr *pgconn.PgError
	if !errors.As(err, &pgErr) {
		return false
	}
	// deadlock_detected, serialization_failure
	return pgErr.Code == "40P01" || pgErr.Code == "40001"
}

// wrap annotates err with op and translates the Postgres errors callers
// are expected to handle.
func wrap(op string, err error) error {
	var pgErr *pgconn.PgError
	if errors.As(err, &pgErr) {
		switch pgErr.Code {
		case "23505": // unique_violation
			field, ok := conflictFields[pgErr.ConstraintName]
			if !ok {
				field = pgErr.ConstraintName
			}
			return apperr.Conflict(field, "already exists")
		case "23503": // foreign_key_violation
			return apperr.Invalid(foreignKeyField(pgErr), "references a missing record")
		case "40P01", "40001":
			return fmt.Errorf("%s: %w", op, apperr.ErrTransient)
		}
	}
	return fmt.Errorf("%s: %w", op, err)
}

// foreignKeyField turns "requetes_pole_id_fkey" into "pole_id".
func foreignKeyField(pgErr *pgconn.PgError) string {
	name := strings.TrimSuffix(pgErr.ConstraintName, "_fkey")
	name = strings.TrimPrefix(name, pgErr.TableName+"_")
	if name == "" {
		return "reference"
	}
	return name
}

// args collects positional parameters while a query is being assembled.
type args []any

func (a *args) add(v any) string {
	*a = append(*a, v)
	return fmt.Sprintf("$%d", len(*a))
}
