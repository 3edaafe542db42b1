// Package repo implements the data persistence layer for domain entities,
// backed by GORM. This file provides repository functions for user-facing
// notifications. Rows are created as side effects of claim status changes
// and report-ready events; only the is_read flag is ever mutated.
package repo

import (
	"context"
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"

	"github.com/tbourn/go-vehicle-backend/internal/domain"
)

// CreateNotification inserts a notification row for userID.
func CreateNotification(ctx context.Context, db *gorm.DB, userID, typ, title, message, link string) (*domain.Notification, error) {
	n := &domain.Notification{
		ID:        uuid.NewString(),
		UserID:    userID,
		Type:      typ,
		Title:     title,
		Message:   message,
		Link:      link,
		CreatedAt: time.Now().UTC(),
	}
	if err := db.WithContext(ctx).Create(n).Error; err != nil {
		return nil, err
	}
	return n, nil
}

// ListNotifications returns the user's notifications, unread first and
// newest first within each group.
func ListNotifications(ctx context.Context, db *gorm.DB, userID string) ([]domain.Notification, error) {
	var out []domain.Notification
	err := db.WithContext(ctx).
		Where("user_id = ?", userID).
		Order("is_read ASC, created_at DESC, id DESC").
		Find(&out).Error
	return out, err
}

// CountUnreadNotifications returns the user's unread badge count.
func CountUnreadNotifications(ctx context.Context, db *gorm.DB, userID string) (int64, error) {
	var total int64
	err := db.WithContext(ctx).
		Model(&domain.Notification{}).
		Where("user_id = ? AND is_read = ?", userID, false).
		Count(&total).Error
	return total, err
}

// MarkNotificationRead flips is_read for a notification owned by userID.
// Returns ErrNotFound when the row is missing or owned by someone else.
func MarkNotificationRead(ctx context.Context, db *gorm.DB, id, userID string) error {
	res := db.WithContext(ctx).
		Model(&domain.Notification{}).
		Where("id = ? AND user_id = ?", id, userID).
		Update("is_read", true)
	if res.Error != nil {
		return res.Error
	}
	if res.RowsAffected == 0 {
		return gorm.ErrRecordNotFound
	}
	return nil
}
