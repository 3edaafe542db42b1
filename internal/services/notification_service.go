package services

import (
	"context"
	"errors"

	"gorm.io/gorm"

	"github.com/tbourn/go-vehicle-backend/internal/domain"
	"github.com/tbourn/go-vehicle-backend/internal/repo"
)

// NotificationService reads and acknowledges in-app notifications. Writes
// come from the claim and inspection services as post-commit side effects.
type NotificationService struct {
	DB *gorm.DB
}

// Inbox is a user's notification list plus the unread counter shown in the
// navigation badge.
type Inbox struct {
	Notifications []domain.Notification `json:"notifications"`
	UnreadCount   int64                 `json:"unread_count"`
}

// ListForUser returns the user's notifications, unread first then newest
// first, together with the unread count.
func (s *NotificationService) ListForUser(ctx context.Context, userID string) (*Inbox, error) {
	items, err := repo.ListNotifications(ctx, s.DB, userID)
	if err != nil {
		return nil, err
	}
	unread, err := repo.CountUnreadNotifications(ctx, s.DB, userID)
	if err != nil {
		return nil, err
	}
	return &Inbox{Notifications: items, UnreadCount: unread}, nil
}

// MarkRead flags one of the user's notifications as read. Another user's
// notification is reported as not found, never touched.
func (s *NotificationService) MarkRead(ctx context.Context, id, userID string) error {
	err := repo.MarkNotificationRead(ctx, s.DB, id, userID)
	if errors.Is(err, repo.ErrNotFound) {
		return ErrNotificationNotFound
	}
	return err
}
