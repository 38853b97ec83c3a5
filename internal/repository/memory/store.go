// Package memory is an in-process implementation of repository.Store.
//
// Every call, transactional or not, runs under one store-wide mutex.
// WithTx holds that mutex for the whole callback, so transactions are
// serializable, and restores a snapshot when the callback fails. The store
// backs the service and HTTP tests; it is not meant for production traffic.
package memory

import (
	"context"
	"fmt"
	"sync"

	"github.com/lalith-99/unionline/internal/models"
	"github.com/lalith-99/unionline/internal/repository"
)

type tables struct {
	ids map[string]int64

	users         map[int64]models.User
	profiles      map[int64]models.Profile
	companies     map[int64]models.Company
	poles         map[int64]models.Pole
	memberships   map[int64]models.PoleMembership
	mandates      map[int64]models.DelegateMandate
	requetes      map[int64]models.Requete
	dossiers      map[int64]models.Dossier
	reunions      map[int64]models.Reunion
	attachments   map[int64]models.PieceJointe
	documents     map[int64]models.Document
	notifications map[int64]models.Notification
	audit         []models.AuditEntry
	sequences     map[string]int
}

func newTables() *tables {
	return &tables{
		ids:           make(map[string]int64),
		users:         make(map[int64]models.User),
		profiles:      make(map[int64]models.Profile),
		companies:     make(map[int64]models.Company),
		poles:         make(map[int64]models.Pole),
		memberships:   make(map[int64]models.PoleMembership),
		mandates:      make(map[int64]models.DelegateMandate),
		requetes:      make(map[int64]models.Requete),
		dossiers:      make(map[int64]models.Dossier),
		reunions:      make(map[int64]models.Reunion),
		attachments:   make(map[int64]models.PieceJointe),
		documents:     make(map[int64]models.Document),
		notifications: make(map[int64]models.Notification),
		sequences:     make(map[string]int),
	}
}

// clone copies every table. Stored values never share slices with callers
// (see the put helpers), so copying the maps is enough.
func (t *tables) clone() *tables {
	c := &tables{
		ids:           cloneMap(t.ids),
		users:         cloneMap(t.users),
		profiles:      cloneMap(t.profiles),
		companies:     cloneMap(t.companies),
		poles:         cloneMap(t.poles),
		memberships:   cloneMap(t.memberships),
		mandates:      cloneMap(t.mandates),
		requetes:      cloneMap(t.requetes),
		dossiers:      cloneMap(t.dossiers),
		reunions:      cloneMap(t.reunions),
		attachments:   cloneMap(t.attachments),
		documents:     cloneMap(t.documents),
		notifications: cloneMap(t.notifications),
		audit:         append([]models.AuditEntry(nil), t.audit...),
		sequences:     cloneMap(t.sequences),
	}
	return c
}

func cloneMap[K comparable, V any](m map[K]V) map[K]V {
	out := make(map[K]V, len(m))
	for k, v := range m {
		out[k] = v
	}
	return out
}

func (t *tables) nextID(table string) int64 {
	t.ids[table]++
	return t.ids[table]
}

// Store implements repository.Store in memory.
type Store struct {
	mu   sync.Mutex
	data *tables
}

func New() *Store {
	return &Store{data: newTables()}
}

// WithTx runs fn with exclusive access to the store. Repos handed to fn
// must not be used after fn returns.
func (s *Store) WithTx(ctx context.Context, fn func(tx repository.Repos) error) (err error) {
	if err := ctx.Err(); err != nil {
		return err
	}
	s.mu.Lock()
	defer s.mu.Unlock()

	snapshot := s.data.clone()
	defer func() {
		if p := recover(); p != nil {
			s.data = snapshot
			panic(p)
		}
		if err != nil {
			s.data = snapshot
		}
	}()
	return fn(&view{s: s, inTx: true})
}

func (s *Store) root() *view { return &view{s: s} }

func (s *Store) Users() repository.UserRepository                 { return s.root().Users() }
func (s *Store) Profiles() repository.ProfileRepository           { return s.root().Profiles() }
func (s *Store) Principals() repository.PrincipalRepository       { return s.root().Principals() }
func (s *Store) Companies() repository.CompanyRepository          { return s.root().Companies() }
func (s *Store) Poles() repository.PoleRepository                 { return s.root().Poles() }
func (s *Store) Delegates() repository.DelegateRepository         { return s.root().Delegates() }
func (s *Store) Requetes() repository.RequeteRepository           { return s.root().Requetes() }
func (s *Store) Dossiers() repository.DossierRepository           { return s.root().Dossiers() }
func (s *Store) Reunions() repository.ReunionRepository           { return s.root().Reunions() }
func (s *Store) Attachments() repository.AttachmentRepository     { return s.root().Attachments() }
func (s *Store) Documents() repository.DocumentRepository         { return s.root().Documents() }
func (s *Store) Notifications() repository.NotificationRepository { return s.root().Notifications() }
func (s *Store) Audit() repository.AuditRepository                { return s.root().Audit() }
func (s *Store) Numbers() repository.Numberer                     { return s.root().Numbers() }

// view is a Repos bound to the store. Inside WithTx the mutex is already
// held, so a view only locks when used outside a transaction.
type view struct {
	s    *Store
	inTx bool
}

func (v *view) lock(ctx context.Context) (*tables, func(), error) {
	if err := ctx.Err(); err != nil {
		return nil, nil, err
	}
	if v.inTx {
		return v.s.data, func() {}, nil
	}
	v.s.mu.Lock()
	return v.s.data, v.s.mu.Unlock, nil
}

func (v *view) Users() repository.UserRepository                 { return userRepo{v} }
func (v *view) Profiles() repository.ProfileRepository           { return profileRepo{v} }
func (v *view) Principals() repository.PrincipalRepository       { return principalRepo{v} }
func (v *view) Companies() repository.CompanyRepository          { return companyRepo{v} }
func (v *view) Poles() repository.PoleRepository                 { return poleRepo{v} }
func (v *view) Delegates() repository.DelegateRepository         { return delegateRepo{v} }
func (v *view) Requetes() repository.RequeteRepository           { return requeteRepo{v} }
func (v *view) Dossiers() repository.DossierRepository           { return dossierRepo{v} }
func (v *view) Reunions() repository.ReunionRepository           { return reunionRepo{v} }
func (v *view) Attachments() repository.AttachmentRepository     { return attachmentRepo{v} }
func (v *view) Documents() repository.DocumentRepository         { return documentRepo{v} }
func (v *view) Notifications() repository.NotificationRepository { return notificationRepo{v} }
func (v *view) Audit() repository.AuditRepository                { return auditRepo{v} }
func (v *view) Numbers() repository.Numberer                     { return numberRepo{v} }

func missing(table string, id int64) error {
	return fmt.Errorf("update %s %d: no such row", table, id)
}

var (
	_ repository.Store = (*Store)(nil)
	_ repository.Repos = (*view)(nil)
)
