// Package repo implements the data persistence layer for domain entities,
// backed by GORM. This file provides repository functions for the User model.
//
// All functions are context-aware and accept a *gorm.DB handle, making them
// safe for use within transactions or connection-scoped operations. They
// follow the "thin repository" approach: no business logic, only CRUD
// persistence and query composition. Identity resolution (email-or-mobile
// matching, conflict detection, auto-provisioning) lives in the service
// layer; the repository only answers point lookups.
package repo

import (
	"context"

	"gorm.io/gorm"

	"github.com/tbourn/go-vehicle-backend/internal/domain"
)

// ErrNotFound is returned when a requested record does not exist.
// It aliases gorm.ErrRecordNotFound for convenience and consistency
// across the service layer and handlers.
var ErrNotFound = gorm.ErrRecordNotFound

// CreateUser inserts a fully populated user row. The caller (identity
// service) is responsible for generating the ID and hashing the password.
func CreateUser(ctx context.Context, db *gorm.DB, u *domain.User) error {
	return db.WithContext(ctx).Create(u).Error
}

// GetUser fetches a single user by ID, or ErrNotFound.
func GetUser(ctx context.Context, db *gorm.DB, id string) (*domain.User, error) {
	var u domain.User
	if err := db.WithContext(ctx).Where("id = ?", id).First(&u).Error; err != nil {
		return nil, err
	}
	return &u, nil
}

// FindUserByEmail returns the user with the given email, or ErrNotFound.
func FindUserByEmail(ctx context.Context, db *gorm.DB, email string) (*domain.User, error) {
	var u domain.User
	if err := db.WithContext(ctx).Where("email = ?", email).First(&u).Error; err != nil {
		return nil, err
	}
	return &u, nil
}

// FindUserByMobile returns the first user with the given mobile number, or
// ErrNotFound. Mobile is not unique at the schema level, so the oldest match
// wins deterministically.
func FindUserByMobile(ctx context.Context, db *gorm.DB, mobile string) (*domain.User, error) {
	var u domain.User
	err := db.WithContext(ctx).
		Where("mobile = ?", mobile).
		Order("created_at ASC, id ASC").
		First(&u).Error
	if err != nil {
		return nil, err
	}
	return &u, nil
}
