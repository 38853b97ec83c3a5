package access

import (
	"testing"

	"github.com/stretchr/testify/assert"

	"github.com/lalith-99/unionline/internal/apperr"
	"github.com/lalith-99/unionline/internal/identity"
	"github.com/lalith-99/unionline/internal/models"
)

const (
	poleA int64 = 1
	poleB int64 = 2
)

func principal(id int64, role models.Role, poles ...int64) *identity.Principal {
	return &identity.Principal{
		User:    models.User{ID: id, IsActive: true},
		Profile: &models.Profile{UserID: id, Role: role},
		PoleIDs: poles,
	}
}

func ptr(v int64) *int64 { return &v }

// The fixtures: worker 10 owns requête r, delegate 20 is assigned to it,
// both live in pôle A. Dossier d links r.
func fixtures() (models.Requete, models.Dossier) {
	r := models.Requete{ID: 100, PoleID: poleA, WorkerID: 10, DelegateUserID: ptr(20)}
	d := models.Dossier{ID: 200, PoleID: poleA, RequeteIDs: []int64{r.ID}}
	return r, d
}

func TestEngineDecisionTable(t *testing.T) {
	r, d := fixtures()
	reqT := RequeteTarget(&r)
	dosT := DossierTarget(&d, []models.Requete{r})
	targets := map[string]Target{
		"requete":      reqT,
		"dossier":      dosT,
		"reunion":      ReunionTarget(dosT),
		"piece_jointe": PieceJointeTarget(reqT),
	}

	cases := []struct {
		name  string
		p     *identity.Principal
		allow bool
	}{
		{"admin by profile", principal(1, models.RoleAdmin), true},
		{"admin by staff flag", &identity.Principal{User: models.User{ID: 2, IsActive: true, IsStaff: true}}, true},
		{"pole manager in pole", principal(3, models.RolePoleManager, poleA), true},
		{"pole manager other pole", principal(4, models.RolePoleManager, poleB), false},
		{"assigned delegate", principal(20, models.RoleDelegate), true},
		{"other delegate", principal(21, models.RoleDelegate, poleA), false},
		{"owning member", principal(10, models.RoleMember), true},
		{"other member in same pole", principal(11, models.RoleMember, poleA), false},
		{"no role", &identity.Principal{User: models.User{ID: 10, IsActive: true}}, false},
		{"anonymous", nil, false},
	}

	e := NewEngine(nil)
	for _, c := range cases {
		for kind, target := range targets {
			t.Run(c.name+"/"+kind, func(t *testing.T) {
				assert.Equal(t, c.allow, e.CanRead(c.p, target))
				assert.Equal(t, c.allow, e.CanWrite(c.p, target))
			})
		}
	}
}

func TestEngineDossierWithoutLinkedRequetes(t *testing.T) {
	d := models.Dossier{ID: 1, PoleID: poleA}
	target := DossierTarget(&d, nil)
	e := NewEngine(nil)

	assert.False(t, e.CanRead(principal(10, models.RoleMember), target))
	assert.False(t, e.CanRead(principal(20, models.RoleDelegate), target))
	assert.True(t, e.CanRead(principal(3, models.RolePoleManager, poleA), target))
}

func TestEngineNotification(t *testing.T) {
	n := models.Notification{ID: 5, UserID: 10}
	target := NotificationTarget(&n)
	e := NewEngine(nil)

	assert.True(t, e.CanRead(principal(10, models.RoleMember), target))
	assert.False(t, e.CanRead(principal(11, models.RolePoleManager, poleA), target))
	assert.True(t, e.CanWrite(principal(1, models.RoleAdmin), target))
	assert.False(t, e.CanRead(nil, target))
}

func TestAuthorizeReportsDenial(t *testing.T) {
	r, _ := fixtures()
	var denied []string
	e := NewEngine(func(rule string) { denied = append(denied, rule) })

	err := e.Authorize(principal(11, models.RoleMember), RequeteTarget(&r), true)
	assert.ErrorIs(t, err, apperr.ErrForbidden)
	assert.Equal(t, []string{"object:requete"}, denied)

	assert.NoError(t, e.Authorize(principal(10, models.RoleMember), RequeteTarget(&r), false))
	assert.Len(t, denied, 1)
}
