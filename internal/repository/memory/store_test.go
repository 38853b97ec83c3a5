package memory

import (
	"context"
	"errors"
	"fmt"
	"sort"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"golang.org/x/sync/errgroup"

	"github.com/lalith-99/unionline/internal/access"
	"github.com/lalith-99/unionline/internal/apperr"
	"github.com/lalith-99/unionline/internal/models"
	"github.com/lalith-99/unionline/internal/numbering"
	"github.com/lalith-99/unionline/internal/repository"
)

var year2026 = time.Date(2026, 3, 14, 10, 0, 0, 0, time.UTC)

func createRequete(ctx context.Context, tx repository.Repos, worker, pole, company int64) (*models.Requete, error) {
	ref, err := tx.Numbers().NextNumber(ctx, numbering.KindRequete, year2026)
	if err != nil {
		return nil, err
	}
	q := &models.Requete{
		ReferenceNumber: ref,
		WorkerID:        worker,
		PoleID:          pole,
		CompanyID:       company,
		ProblemType:     "other",
		Title:           "t",
		Description:     "d",
		Status:          models.RequeteNew,
		Priority:        models.PriorityMedium,
	}
	return q, tx.Requetes().Create(ctx, q)
}

func TestConcurrentNumberingIsGapless(t *testing.T) {
	s := New()
	ctx := context.Background()
	const n = 40

	refs := make([]string, n)
	var g errgroup.Group
	for i := 0; i < n; i++ {
		g.Go(func() error {
			return s.WithTx(ctx, func(tx repository.Repos) error {
				q, err := createRequete(ctx, tx, 1, 1, 1)
				if err != nil {
					return err
				}
				refs[i] = q.ReferenceNumber
				return nil
			})
		})
	}
	require.NoError(t, g.Wait())

	sort.Strings(refs)
	for i, ref := range refs {
		assert.Equal(t, fmt.Sprintf("REQ-2026-%05d", i+1), ref)
	}
}

func TestRollbackReleasesNumber(t *testing.T) {
	s := New()
	ctx := context.Background()
	boom := errors.New("boom")

	err := s.WithTx(ctx, func(tx repository.Repos) error {
		if _, err := createRequete(ctx, tx, 1, 1, 1); err != nil {
			return err
		}
		return boom
	})
	require.ErrorIs(t, err, boom)

	all, err := s.Requetes().List(ctx, access.Scope{Mode: access.ScopeAll})
	require.NoError(t, err)
	assert.Empty(t, all)

	require.NoError(t, s.WithTx(ctx, func(tx repository.Repos) error {
		q, err := createRequete(ctx, tx, 1, 1, 1)
		if err == nil {
			assert.Equal(t, "REQ-2026-00001", q.ReferenceNumber)
		}
		return err
	}))
}

func TestNumberingSeedsFromStoredRows(t *testing.T) {
	s := New()
	ctx := context.Background()
	s.data.requetes[1] = models.Requete{ID: 1, ReferenceNumber: "REQ-2026-00041"}
	s.data.requetes[2] = models.Requete{ID: 2, ReferenceNumber: "REQ-2025-00099"}

	ref, err := s.Numbers().NextNumber(ctx, numbering.KindRequete, year2026)
	require.NoError(t, err)
	assert.Equal(t, "REQ-2026-00042", ref)

	dos, err := s.Numbers().NextNumber(ctx, numbering.KindDossier, year2026)
	require.NoError(t, err)
	assert.Equal(t, "DOS-2026-00001", dos)
}

func TestRequeteScopes(t *testing.T) {
	s := New()
	ctx := context.Background()
	require.NoError(t, s.WithTx(ctx, func(tx repository.Repos) error {
		for _, r := range []struct{ worker, pole, company int64 }{
			{10, 1, 100}, {11, 1, 200}, {10, 2, 200},
		} {
			if _, err := createRequete(ctx, tx, r.worker, r.pole, r.company); err != nil {
				return err
			}
		}
		return nil
	}))

	count := func(scope access.Scope) int {
		out, err := s.Requetes().List(ctx, scope)
		require.NoError(t, err)
		return len(out)
	}
	assert.Equal(t, 3, count(access.Scope{Mode: access.ScopeAll}))
	assert.Equal(t, 2, count(access.Scope{Mode: access.ScopeCompanies, CompanyIDs: []int64{200}}))
	assert.Equal(t, 2, count(access.Scope{Mode: access.ScopePoles, PoleIDs: []int64{1}}))
	assert.Equal(t, 2, count(access.Scope{Mode: access.ScopeOwner, UserID: 10}))
	assert.Equal(t, 0, count(access.Scope{Mode: access.ScopeNone}))

	got, err := s.Requetes().GetByID(ctx, access.Scope{Mode: access.ScopeOwner, UserID: 11}, 1)
	require.NoError(t, err)
	assert.Nil(t, got, "out-of-scope lookups look like missing rows")
}

func TestDossierScopeFollowsLinkedRequetes(t *testing.T) {
	s := New()
	ctx := context.Background()
	require.NoError(t, s.WithTx(ctx, func(tx repository.Repos) error {
		q, err := createRequete(ctx, tx, 10, 1, 100)
		if err != nil {
			return err
		}
		return tx.Dossiers().Create(ctx, &models.Dossier{
			DossierNumber: "DOS-2026-00001", PoleID: 1, RequeteIDs: []int64{q.ID, q.ID},
		})
	}))

	d, err := s.Dossiers().GetByID(ctx, access.Scope{Mode: access.ScopeCompanies, CompanyIDs: []int64{100}}, 1)
	require.NoError(t, err)
	require.NotNil(t, d)
	assert.Equal(t, []int64{1}, d.RequeteIDs)

	d, err = s.Dossiers().GetByID(ctx, access.Scope{Mode: access.ScopeOwner, UserID: 99}, 1)
	require.NoError(t, err)
	assert.Nil(t, d)
}

func TestReunionAndAttachmentScopesFollowRequetes(t *testing.T) {
	s := New()
	ctx := context.Background()
	var reunionID, attachmentID int64
	require.NoError(t, s.WithTx(ctx, func(tx repository.Repos) error {
		q, err := createRequete(ctx, tx, 10, 1, 100)
		if err != nil {
			return err
		}
		if _, err := createRequete(ctx, tx, 11, 2, 200); err != nil {
			return err
		}
		d := &models.Dossier{DossierNumber: "DOS-2026-00001", PoleID: 1, RequeteIDs: []int64{q.ID}}
		if err := tx.Dossiers().Create(ctx, d); err != nil {
			return err
		}
		m := &models.Reunion{DossierID: d.ID, Type: models.ReunionInPerson, ScheduledAt: year2026, Agenda: "point"}
		if err := tx.Reunions().Create(ctx, m); err != nil {
			return err
		}
		a := &models.PieceJointe{RequeteID: q.ID, FileKey: "k", UploadedBy: 10}
		if err := tx.Attachments().Create(ctx, a); err != nil {
			return err
		}
		reunionID, attachmentID = m.ID, a.ID
		return nil
	}))

	tests := []struct {
		name    string
		scope   access.Scope
		visible bool
	}{
		{"delegate of linked company", access.Scope{Mode: access.ScopeCompanies, CompanyIDs: []int64{100}}, true},
		{"delegate of other company", access.Scope{Mode: access.ScopeCompanies, CompanyIDs: []int64{200}}, false},
		{"worker who filed", access.Scope{Mode: access.ScopeOwner, UserID: 10}, true},
		{"unrelated worker", access.Scope{Mode: access.ScopeOwner, UserID: 11}, false},
		{"pole member", access.Scope{Mode: access.ScopePoles, PoleIDs: []int64{1}}, true},
		{"no scope", access.Scope{Mode: access.ScopeNone}, false},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			reunions, err := s.Reunions().List(ctx, tt.scope)
			require.NoError(t, err)
			attachments, err := s.Attachments().List(ctx, tt.scope)
			require.NoError(t, err)
			m, err := s.Reunions().GetByID(ctx, tt.scope, reunionID)
			require.NoError(t, err)
			a, err := s.Attachments().GetByID(ctx, tt.scope, attachmentID)
			require.NoError(t, err)

			if tt.visible {
				assert.Len(t, reunions, 1)
				assert.Len(t, attachments, 1)
				assert.NotNil(t, m)
				assert.NotNil(t, a)
			} else {
				assert.Empty(t, reunions)
				assert.Empty(t, attachments)
				assert.Nil(t, m)
				assert.Nil(t, a)
			}
		})
	}
}

func TestAuditRejectsUnknownSubject(t *testing.T) {
	s := New()
	ctx := context.Background()

	err := s.Audit().AppendAudit(ctx, &models.AuditEntry{SubjectKind: "user", SubjectID: 1, Action: models.ActionModification})
	assert.Error(t, err)

	require.NoError(t, s.Audit().AppendAudit(ctx, &models.AuditEntry{SubjectKind: models.KindRequete, SubjectID: 1, Action: models.ActionModification}))
	entries, err := s.Audit().ListAudit(ctx, models.KindRequete, 1)
	require.NoError(t, err)
	require.Len(t, entries, 1)
	assert.Equal(t, models.KindRequete, entries[0].SubjectKind)
}

func TestUniqueConstraints(t *testing.T) {
	s := New()
	ctx := context.Background()

	require.NoError(t, s.Users().Create(ctx, &models.User{Email: "a@example.org"}))
	err := s.Users().Create(ctx, &models.User{Email: "A@example.org"})
	assert.True(t, apperr.IsConflict(err))

	require.NoError(t, s.Poles().AddMember(ctx, &models.PoleMembership{PoleID: 1, UserID: 1, Role: models.PoleRoleMember}))
	err = s.Poles().AddMember(ctx, &models.PoleMembership{PoleID: 1, UserID: 1, Role: models.PoleRoleAssistant})
	assert.True(t, apperr.IsConflict(err))

	require.NoError(t, s.Delegates().Create(ctx, &models.DelegateMandate{UserID: 1, CompanyID: 5, Active: true}))
	err = s.Delegates().Create(ctx, &models.DelegateMandate{UserID: 1, CompanyID: 5})
	assert.True(t, apperr.IsConflict(err))
}

func TestLoadPrincipal(t *testing.T) {
	s := New()
	ctx := context.Background()

	u := &models.User{Email: "head@example.org", IsActive: true}
	require.NoError(t, s.Users().Create(ctx, u))
	require.NoError(t, s.Profiles().Create(ctx, &models.Profile{UserID: u.ID, Role: models.RolePoleManager}))
	headed := &models.Pole{Name: "Juridique", HeadUserID: u.ID}
	require.NoError(t, s.Poles().Create(ctx, headed))
	require.NoError(t, s.Poles().AddMember(ctx, &models.PoleMembership{PoleID: 7, UserID: u.ID, Role: models.PoleRoleMember}))
	require.NoError(t, s.Delegates().Create(ctx, &models.DelegateMandate{UserID: u.ID, CompanyID: 3, Active: true}))

	p, err := s.Principals().LoadPrincipal(ctx, u.ID)
	require.NoError(t, err)
	require.NotNil(t, p.Profile)
	assert.Equal(t, models.RolePoleManager, p.Profile.Role)
	assert.Equal(t, []int64{headed.ID, 7}, p.PoleIDs)
	assert.Equal(t, []int64{3}, p.ActiveCompanies())

	missing, err := s.Principals().LoadPrincipal(ctx, 999)
	require.NoError(t, err)
	assert.Nil(t, missing)
}

func TestCanceledContext(t *testing.T) {
	s := New()
	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	_, err := s.Users().GetByID(ctx, 1)
	assert.ErrorIs(t, err, context.Canceled)
	assert.ErrorIs(t, s.WithTx(ctx, func(repository.Repos) error { return nil }), context.Canceled)
}
