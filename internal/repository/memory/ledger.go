package memory

import (
	"context"
	"fmt"
	"sort"
	"strings"
	"time"

	"github.com/lalith-99/unionline/internal/access"
	"github.com/lalith-99/unionline/internal/audit"
	"github.com/lalith-99/unionline/internal/models"
	"github.com/lalith-99/unionline/internal/numbering"
)

type notificationRepo struct{ *view }

func matchNotification(s access.Scope, n *models.Notification) bool {
	switch s.Mode {
	case access.ScopeAll:
		return true
	case access.ScopeRecipient:
		return n.UserID == s.UserID
	}
	return false
}

func (r notificationRepo) Create(ctx context.Context, n *models.Notification) error {
	t, unlock, err := r.lock(ctx)
	if err != nil {
		return err
	}
	defer unlock()

	n.ID = t.nextID("notifications")
	if n.CreatedAt.IsZero() {
		n.CreatedAt = now()
	}
	t.notifications[n.ID] = *n
	return nil
}

func (r notificationRepo) GetByID(ctx context.Context, scope access.Scope, id int64) (*models.Notification, error) {
	t, unlock, err := r.lock(ctx)
	if err != nil {
		return nil, err
	}
	defer unlock()

	n, ok := t.notifications[id]
	if !ok || !matchNotification(scope, &n) {
		return nil, nil
	}
	return &n, nil
}

func (r notificationRepo) List(ctx context.Context, scope access.Scope) ([]models.Notification, error) {
	t, unlock, err := r.lock(ctx)
	if err != nil {
		return nil, err
	}
	defer unlock()

	out := make([]models.Notification, 0)
	for _, n := range t.notifications {
		if matchNotification(scope, &n) {
			out = append(out, n)
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].ID > out[j].ID })
	return out, nil
}

func (r notificationRepo) MarkRead(ctx context.Context, id int64) error {
	t, unlock, err := r.lock(ctx)
	if err != nil {
		return err
	}
	defer unlock()

	n, ok := t.notifications[id]
	if !ok {
		return missing("notification", id)
	}
	n.Read = true
	t.notifications[id] = n
	return nil
}

type auditRepo struct{ *view }

func (r auditRepo) AppendAudit(ctx context.Context, e *models.AuditEntry) error {
	t, unlock, err := r.lock(ctx)
	if err != nil {
		return err
	}
	defer unlock()

	if _, err := audit.ParseSubject(string(e.SubjectKind), e.SubjectID); err != nil {
		return err
	}
	e.ID = t.nextID("audit")
	t.audit = append(t.audit, *e)
	return nil
}

func (r auditRepo) ListAudit(ctx context.Context, kind models.EntityKind, id int64) ([]models.AuditEntry, error) {
	t, unlock, err := r.lock(ctx)
	if err != nil {
		return nil, err
	}
	defer unlock()

	out := make([]models.AuditEntry, 0)
	for _, e := range t.audit {
		if e.SubjectKind != kind || e.SubjectID != id {
			continue
		}
		subject, err := audit.ParseSubject(string(e.SubjectKind), e.SubjectID)
		if err != nil {
			return nil, fmt.Errorf("audit entry %d: %w", e.ID, err)
		}
		e.SubjectKind = subject.Kind()
		out = append(out, e)
	}
	return out, nil
}

type numberRepo struct{ *view }

// NextNumber seeds a prefix from the highest number already stored, then
// counts up. The store mutex makes the read-increment atomic.
func (r numberRepo) NextNumber(ctx context.Context, kind numbering.Kind, at time.Time) (string, error) {
	t, unlock, err := r.lock(ctx)
	if err != nil {
		return "", err
	}
	defer unlock()

	prefix := numbering.Prefix(kind, at)
	last, ok := t.sequences[prefix]
	if !ok {
		last = highestStored(t, kind, prefix)
	}
	last++
	t.sequences[prefix] = last
	return numbering.Format(prefix, last), nil
}

func highestStored(t *tables, kind numbering.Kind, prefix string) int {
	var numbers []string
	switch kind {
	case numbering.KindRequete:
		for _, q := range t.requetes {
			numbers = append(numbers, q.ReferenceNumber)
		}
	case numbering.KindDossier:
		for _, d := range t.dossiers {
			numbers = append(numbers, d.DossierNumber)
		}
	}
	highest := 0
	for _, n := range numbers {
		if !strings.HasPrefix(n, prefix) {
			continue
		}
		if seq, ok := numbering.Sequence(n); ok && seq > highest {
			highest = seq
		}
	}
	return highest
}
