// Package service runs the business operations: it resolves what the
// caller may see, applies workflow rules, and commits every mutation
// together with its audit entry and notifications in one transaction.
//
// Every exported method takes the calling principal explicitly. Principals
// are loaded per request by the middleware; nothing here caches them.
package service

import (
	"context"
	"time"

	"go.uber.org/zap"

	"github.com/lalith-99/unionline/internal/access"
	"github.com/lalith-99/unionline/internal/apperr"
	"github.com/lalith-99/unionline/internal/audit"
	"github.com/lalith-99/unionline/internal/identity"
	"github.com/lalith-99/unionline/internal/models"
	"github.com/lalith-99/unionline/internal/notify"
	"github.com/lalith-99/unionline/internal/repository"
)

// Recorder receives business counters. *observ.Metrics implements it.
type Recorder interface {
	StatusChanged(kind, to string)
	NumberAllocated(kind string)
	Denied(rule string)
}

type nopRecorder struct{}

func (nopRecorder) StatusChanged(string, string) {}
func (nopRecorder) NumberAllocated(string)       {}
func (nopRecorder) Denied(string)                {}

type Service struct {
	store      repository.Store
	engine     *access.Engine
	ledger     *audit.Ledger
	dispatcher notify.Dispatcher
	metrics    Recorder
	logger     *zap.Logger
	now        func() time.Time
}

type Option func(*Service)

func WithDispatcher(d notify.Dispatcher) Option {
	return func(s *Service) { s.dispatcher = d }
}

func WithRecorder(r Recorder) Option {
	return func(s *Service) { s.metrics = r }
}

// WithClock fixes the time source; numbering and audit timestamps use it.
func WithClock(now func() time.Time) Option {
	return func(s *Service) { s.now = now }
}

func New(store repository.Store, engine *access.Engine, logger *zap.Logger, opts ...Option) *Service {
	s := &Service{
		store:      store,
		engine:     engine,
		dispatcher: notify.Nop{},
		metrics:    nopRecorder{},
		logger:     logger,
		now:        time.Now,
	}
	for _, opt := range opts {
		opt(s)
	}
	s.ledger = audit.NewLedger(s.now)
	return s
}

var (
	roleChain      = access.Chain{access.HasRole}
	adminChain     = access.Chain{access.AdminOnly}
	selfChain      = access.Chain{access.Authenticated}
	referenceChain = access.Chain{access.ReadOnlyUnlessAdmin}
	poleChain      = access.Chain{access.ReadOnlyUnlessAdminOrPoleManager}
)

// guard evaluates a collection policy chain.
func (s *Service) guard(p *identity.Principal, chain access.Chain, write bool) error {
	if rule := chain.Evaluate(access.Request{Principal: p, Write: write}); rule != "" {
		s.metrics.Denied(rule)
		return apperr.ErrForbidden
	}
	return nil
}

// effects collects what must happen once the transaction has committed.
type effects struct {
	notifications []models.Notification
	transitions   [][2]string
	numbers       []string
}

func (fx *effects) notify(ctx context.Context, tx repository.Repos, n *models.Notification) error {
	if err := tx.Notifications().Create(ctx, n); err != nil {
		return err
	}
	fx.notifications = append(fx.notifications, *n)
	return nil
}

// inTx runs fn in one transaction and, only after a commit, dispatches the
// collected notifications and records metrics.
func (s *Service) inTx(ctx context.Context, fn func(tx repository.Repos, fx *effects) error) error {
	fx := &effects{}
	err := s.store.WithTx(ctx, func(tx repository.Repos) error {
		*fx = effects{}
		return fn(tx, fx)
	})
	if err != nil {
		return err
	}
	for _, t := range fx.transitions {
		s.metrics.StatusChanged(t[0], t[1])
	}
	for _, kind := range fx.numbers {
		s.metrics.NumberAllocated(kind)
	}
	s.dispatcher.Dispatch(ctx, fx.notifications)
	return nil
}

func (s *Service) today() time.Time {
	n := s.now().UTC()
	return time.Date(n.Year(), n.Month(), n.Day(), 0, 0, 0, 0, time.UTC)
}
