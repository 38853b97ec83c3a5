package service

import (
	"context"

	"github.com/lalith-99/unionline/internal/access"
	"github.com/lalith-99/unionline/internal/apperr"
	"github.com/lalith-99/unionline/internal/identity"
	"github.com/lalith-99/unionline/internal/models"
)

// ListNotifications returns the caller's notifications, newest first.
// Admins see every notification.
func (s *Service) ListNotifications(ctx context.Context, p *identity.Principal) ([]models.Notification, error) {
	if err := s.guard(p, roleChain, false); err != nil {
		return nil, err
	}
	return s.store.Notifications().List(ctx, access.NotificationScopeFor(p))
}

func (s *Service) MarkNotificationRead(ctx context.Context, p *identity.Principal, id int64) (*models.Notification, error) {
	if err := s.guard(p, roleChain, true); err != nil {
		return nil, err
	}
	n, err := s.store.Notifications().GetByID(ctx, access.NotificationScopeFor(p), id)
	if err != nil {
		return nil, err
	}
	if n == nil {
		return nil, apperr.NotFound("notification")
	}
	if err := s.engine.Authorize(p, access.NotificationTarget(n), true); err != nil {
		return nil, err
	}
	if n.Read {
		return n, nil
	}
	if err := s.store.Notifications().MarkRead(ctx, n.ID); err != nil {
		return nil, err
	}
	n.Read = true
	return n, nil
}
