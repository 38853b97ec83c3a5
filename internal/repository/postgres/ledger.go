package postgres

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/jackc/pgx/v5"

	"github.com/lalith-99/unionline/internal/access"
	"github.com/lalith-99/unionline/internal/audit"
	"github.com/lalith-99/unionline/internal/models"
	"github.com/lalith-99/unionline/internal/numbering"
)

const notificationColumns = `n.id, n.user_id, n.title, n.message, n.type, n.requete_id, n.read, n.created_at`

type NotificationStore struct {
	q querier
}

func scanNotification(row pgx.Row) (*models.Notification, error) {
	var n models.Notification
	if err := row.Scan(&n.ID, &n.UserID, &n.Title, &n.Message, &n.Type, &n.RequeteID, &n.Read, &n.CreatedAt); err != nil {
		return nil, err
	}
	return &n, nil
}

func (s *NotificationStore) Create(ctx context.Context, n *models.Notification) error {
	query := `
		INSERT INTO notifications (user_id, title, message, type, requete_id, read, created_at)
		VALUES ($1, $2, $3, $4, $5, $6, now())
		RETURNING id, created_at`

	err := s.q.QueryRow(ctx, query, n.UserID, n.Title, n.Message, n.Type, n.RequeteID, n.Read).
		Scan(&n.ID, &n.CreatedAt)
	if err != nil {
		return wrap("insert notification", err)
	}
	return nil
}

func (s *NotificationStore) GetByID(ctx context.Context, scope access.Scope, id int64) (*models.Notification, error) {
	var a args
	query := `SELECT ` + notificationColumns + ` FROM notifications n
		WHERE n.id = ` + a.add(id) + ` AND ` + notificationScope(scope, &a)

	n, err := scanNotification(s.q.QueryRow(ctx, query, a...))
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, nil
		}
		return nil, fmt.Errorf("get notification: %w", err)
	}
	return n, nil
}

func (s *NotificationStore) List(ctx context.Context, scope access.Scope) ([]models.Notification, error) {
	var a args
	query := `SELECT ` + notificationColumns + ` FROM notifications n
		WHERE ` + notificationScope(scope, &a) + `
		ORDER BY n.created_at DESC, n.id DESC`

	rows, err := s.q.Query(ctx, query, a...)
	if err != nil {
		return nil, fmt.Errorf("list notifications: %w", err)
	}
	defer rows.Close()

	notifications := make([]models.Notification, 0)
	for rows.Next() {
		n, err := scanNotification(rows)
		if err != nil {
			return nil, fmt.Errorf("scan notification: %w", err)
		}
		notifications = append(notifications, *n)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate notifications: %w", err)
	}
	return notifications, nil
}

// MarkRead is idempotent.
func (s *NotificationStore) MarkRead(ctx context.Context, id int64) error {
	tag, err := s.q.Exec(ctx, `UPDATE notifications SET read = TRUE WHERE id = $1`, id)
	if err != nil {
		return wrap("mark notification read", err)
	}
	if tag.RowsAffected() == 0 {
		return fmt.Errorf("mark notification %d read: no such row", id)
	}
	return nil
}

// AuditStore only ever inserts and selects; the table has no UPDATE path.
type AuditStore struct {
	q querier
}

func (s *AuditStore) AppendAudit(ctx context.Context, e *models.AuditEntry) error {
	query := `
		INSERT INTO audit_entries (subject_kind, subject_id, actor_id, action, field, old_value, new_value, comment, created_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9)
		RETURNING id`

	err := s.q.QueryRow(ctx, query,
		e.SubjectKind, e.SubjectID, e.ActorID, e.Action, e.Field, e.OldValue, e.NewValue, e.Comment, e.CreatedAt,
	).Scan(&e.ID)
	if err != nil {
		return wrap("insert audit entry", err)
	}
	return nil
}

func (s *AuditStore) ListAudit(ctx context.Context, kind models.EntityKind, id int64) ([]models.AuditEntry, error) {
	query := `
		SELECT id, subject_kind, subject_id, actor_id, action, field, old_value, new_value, comment, created_at
		FROM audit_entries
		WHERE subject_kind = $1 AND subject_id = $2
		ORDER BY created_at, id`

	rows, err := s.q.Query(ctx, query, kind, id)
	if err != nil {
		return nil, fmt.Errorf("list audit entries: %w", err)
	}
	defer rows.Close()

	entries := make([]models.AuditEntry, 0)
	for rows.Next() {
		var (
			e       models.AuditEntry
			rawKind string
		)
		if err := rows.Scan(
			&e.ID,
			&rawKind,
			&e.SubjectID,
			&e.ActorID,
			&e.Action,
			&e.Field,
			&e.OldValue,
			&e.NewValue,
			&e.Comment,
			&e.CreatedAt,
		); err != nil {
			return nil, fmt.Errorf("scan audit entry: %w", err)
		}
		subject, err := audit.ParseSubject(rawKind, e.SubjectID)
		if err != nil {
			return nil, fmt.Errorf("audit entry %d: %w", e.ID, err)
		}
		e.SubjectKind = subject.Kind()
		entries = append(entries, e)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate audit entries: %w", err)
	}
	return entries, nil
}

// numberedTables names where each kind stores its numbers. Only these
// constants are ever spliced into SQL.
var numberedTables = map[numbering.Kind]struct{ table, column string }{
	numbering.KindRequete: {"requetes", "reference_number"},
	numbering.KindDossier: {"dossiers", "dossier_number"},
}

type SequenceStore struct {
	q querier
}

// NextNumber allocates through an upsert on reference_sequences. The row
// for the prefix stays locked until the surrounding transaction ends, so
// concurrent creators queue behind it and a rollback frees the value.
// A missing row is seeded from the highest number already stored, which
// keeps allocation correct on databases filled before the table existed.
func (s *SequenceStore) NextNumber(ctx context.Context, kind numbering.Kind, at time.Time) (string, error) {
	target, ok := numberedTables[kind]
	if !ok {
		return "", fmt.Errorf("unknown numbering kind %q", kind)
	}
	prefix := numbering.Prefix(kind, at)

	query := `
		INSERT INTO reference_sequences (prefix, last_value)
		VALUES ($1, COALESCE((
			SELECT max(split_part(` + target.column + `, '-', 3)::int)
			FROM ` + target.table + `
			WHERE ` + target.column + ` LIKE $1 || '%'
		), 0) + 1)
		ON CONFLICT (prefix) DO UPDATE SET last_value = reference_sequences.last_value + 1
		RETURNING last_value`

	var seq int
	if err := s.q.QueryRow(ctx, query, prefix).Scan(&seq); err != nil {
		return "", wrap("allocate "+string(kind)+" number", err)
	}
	return numbering.Format(prefix, seq), nil
}
