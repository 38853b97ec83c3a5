package audit

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/lalith-99/unionline/internal/models"
)

type sliceAppender struct {
	entries []models.AuditEntry
	err     error
}

func (s *sliceAppender) AppendAudit(_ context.Context, e *models.AuditEntry) error {
	if s.err != nil {
		return s.err
	}
	e.ID = int64(len(s.entries) + 1)
	s.entries = append(s.entries, *e)
	return nil
}

func (s *sliceAppender) ListAudit(_ context.Context, kind models.EntityKind, id int64) ([]models.AuditEntry, error) {
	var out []models.AuditEntry
	for _, e := range s.entries {
		if e.SubjectKind == kind && e.SubjectID == id {
			out = append(out, e)
		}
	}
	return out, nil
}

func TestRecord(t *testing.T) {
	fixed := time.Date(2026, 5, 1, 9, 30, 0, 0, time.UTC)
	l := NewLedger(func() time.Time { return fixed })
	store := &sliceAppender{}

	e, err := l.Record(context.Background(), store, RequeteSubject(42), 7, models.ActionStatusChange,
		FieldChange("status", "new", "processing"), Comment("triage"))
	require.NoError(t, err)

	assert.Equal(t, int64(1), e.ID)
	assert.Equal(t, models.KindRequete, e.SubjectKind)
	assert.Equal(t, int64(42), e.SubjectID)
	assert.Equal(t, "status", *e.Field)
	assert.Equal(t, "new", *e.OldValue)
	assert.Equal(t, "processing", *e.NewValue)
	assert.Equal(t, "triage", *e.Comment)
	assert.Equal(t, fixed, e.CreatedAt)
}

func TestRecordWithoutOptionalParts(t *testing.T) {
	store := &sliceAppender{}
	e, err := NewLedger(nil).Record(context.Background(), store, DossierSubject(3), 1, models.ActionCreation, Comment(""))
	require.NoError(t, err)
	assert.Nil(t, e.Field)
	assert.Nil(t, e.Comment)
}

func TestRecordRejectsZeroSubject(t *testing.T) {
	_, err := NewLedger(nil).Record(context.Background(), &sliceAppender{}, Subject{}, 1, models.ActionCreation)
	assert.Error(t, err)
}

func TestRecordWrapsStoreError(t *testing.T) {
	boom := errors.New("boom")
	_, err := NewLedger(nil).Record(context.Background(), &sliceAppender{err: boom}, RequeteSubject(1), 1, models.ActionCreation)
	assert.ErrorIs(t, err, boom)
}

func TestHistoryIsPerSubject(t *testing.T) {
	l := NewLedger(nil)
	store := &sliceAppender{}
	ctx := context.Background()
	_, _ = l.Record(ctx, store, RequeteSubject(1), 1, models.ActionCreation)
	_, _ = l.Record(ctx, store, DossierSubject(1), 1, models.ActionCreation)
	_, _ = l.Record(ctx, store, RequeteSubject(1), 1, models.ActionComment, Comment("hello"))

	entries, err := l.History(ctx, store, RequeteSubject(1))
	require.NoError(t, err)
	require.Len(t, entries, 2)
	assert.Equal(t, models.ActionCreation, entries[0].Action)
	assert.Equal(t, models.ActionComment, entries[1].Action)
}

func TestParseSubject(t *testing.T) {
	s, err := ParseSubject("dossier", 9)
	require.NoError(t, err)
	assert.Equal(t, DossierSubject(9), s)

	_, err = ParseSubject("user", 9)
	assert.Error(t, err)
	_, err = ParseSubject("requete", 0)
	assert.Error(t, err)
}
