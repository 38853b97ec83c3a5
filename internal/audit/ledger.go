// Package audit is the append-only action ledger.
//
// An entry points at its subject through a tagged (kind, id) pair, so one
// table serves requêtes, dossiers, réunions and attachments alike. Subjects
// can only be built through the constructors below or ParseSubject, which
// rejects unknown tags; a stored entry therefore always resolves to a known
// entity kind.
package audit

import (
	"context"
	"fmt"
	"time"

	"github.com/lalith-99/unionline/internal/models"
)

// Subject identifies the entity an entry is about.
type Subject struct {
	kind models.EntityKind
	id   int64
}

func (s Subject) Kind() models.EntityKind { return s.kind }
func (s Subject) ID() int64               { return s.id }

func (s Subject) String() string {
	return fmt.Sprintf("%s#%d", s.kind, s.id)
}

func RequeteSubject(id int64) Subject     { return Subject{kind: models.KindRequete, id: id} }
func DossierSubject(id int64) Subject     { return Subject{kind: models.KindDossier, id: id} }
func ReunionSubject(id int64) Subject     { return Subject{kind: models.KindReunion, id: id} }
func PieceJointeSubject(id int64) Subject { return Subject{kind: models.KindPieceJointe, id: id} }

// ParseSubject rebuilds a subject from stored or user-supplied parts.
func ParseSubject(kind string, id int64) (Subject, error) {
	switch k := models.EntityKind(kind); k {
	case models.KindRequete, models.KindDossier, models.KindReunion, models.KindPieceJointe:
		if id <= 0 {
			return Subject{}, fmt.Errorf("invalid audit subject id %d", id)
		}
		return Subject{kind: k, id: id}, nil
	}
	return Subject{}, fmt.Errorf("unknown audit subject kind %q", kind)
}

// Appender persists entries. Implementations are transaction-bound so the
// entry commits or rolls back with the mutation it describes.
type Appender interface {
	AppendAudit(ctx context.Context, e *models.AuditEntry) error
}

// Reader lists the entries of one subject, oldest first.
type Reader interface {
	ListAudit(ctx context.Context, kind models.EntityKind, id int64) ([]models.AuditEntry, error)
}

// Option decorates an entry before it is appended.
type Option func(*models.AuditEntry)

// FieldChange records which field moved and its before/after values.
func FieldChange(field, oldValue, newValue string) Option {
	return func(e *models.AuditEntry) {
		e.Field = &field
		e.OldValue = &oldValue
		e.NewValue = &newValue
	}
}

// Fields records changed field names without values.
func Fields(names string) Option {
	return func(e *models.AuditEntry) {
		e.Field = &names
	}
}

func Comment(text string) Option {
	return func(e *models.AuditEntry) {
		if text == "" {
			return
		}
		e.Comment = &text
	}
}

// Ledger records entries through an Appender.
type Ledger struct {
	now func() time.Time
}

func NewLedger(now func() time.Time) *Ledger {
	if now == nil {
		now = time.Now
	}
	return &Ledger{now: now}
}

// Record appends one entry and returns it with its id set.
func (l *Ledger) Record(ctx context.Context, w Appender, subject Subject, actorID int64, action models.AuditAction, opts ...Option) (*models.AuditEntry, error) {
	if subject.id == 0 || subject.kind == "" {
		return nil, fmt.Errorf("record %s: empty subject", action)
	}
	e := &models.AuditEntry{
		SubjectKind: subject.kind,
		SubjectID:   subject.id,
		ActorID:     actorID,
		Action:      action,
		CreatedAt:   l.now().UTC(),
	}
	for _, opt := range opts {
		opt(e)
	}
	if err := w.AppendAudit(ctx, e); err != nil {
		return nil, fmt.Errorf("append audit entry: %w", err)
	}
	return e, nil
}

// History returns the entries of subject ordered by creation time.
func (l *Ledger) History(ctx context.Context, r Reader, subject Subject) ([]models.AuditEntry, error) {
	entries, err := r.ListAudit(ctx, subject.kind, subject.id)
	if err != nil {
		return nil, fmt.Errorf("list audit entries for %s: %w", subject, err)
	}
	return entries, nil
}
