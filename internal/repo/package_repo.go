// Package repo implements the data persistence layer for domain entities,
// backed by GORM. This file provides repository functions for the package
// ledger: per-user PDI entitlements with remaining/used counters.
//
// Consumption is implemented as a conditional decrement guarded by the
// current remaining value, so two concurrent inspection submissions for the
// same user can never both deduct from a package holding a single credit:
// one of the UPDATEs matches zero rows and the loser moves on to the next
// eligible package (or none).
package repo

import (
	"context"
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"

	"github.com/tbourn/go-vehicle-backend/internal/domain"
)

// CreatePackage inserts a new entitlement for userID with count PDI credits.
func CreatePackage(ctx context.Context, db *gorm.DB, userID, packageName string, count int) (*domain.UserPackage, error) {
	p := &domain.UserPackage{
		ID:           uuid.NewString(),
		UserID:       userID,
		PackageName:  packageName,
		PDIRemaining: count,
		PDIUsed:      0,
		Status:       domain.PackageActive,
		PurchasedAt:  time.Now().UTC(),
	}
	if err := db.WithContext(ctx).Create(p).Error; err != nil {
		return nil, err
	}
	return p, nil
}

// GetPackage fetches a single package by ID, or ErrNotFound.
func GetPackage(ctx context.Context, db *gorm.DB, id string) (*domain.UserPackage, error) {
	var p domain.UserPackage
	if err := db.WithContext(ctx).Where("id = ?", id).First(&p).Error; err != nil {
		return nil, err
	}
	return &p, nil
}

// ListUserPackages returns all packages for userID, oldest purchase first
// (the consumption order).
func ListUserPackages(ctx context.Context, db *gorm.DB, userID string) ([]domain.UserPackage, error) {
	var out []domain.UserPackage
	err := db.WithContext(ctx).
		Where("user_id = ?", userID).
		Order("purchased_at ASC, id ASC").
		Find(&out).Error
	return out, err
}

// OldestActivePackage returns the user's oldest ACTIVE package that still
// holds credits, or ErrNotFound when no package is eligible. FIFO across
// multiple concurrently active packages. Packages listed in excluded are
// skipped so a caller that lost a consume race can fall through to the
// next-oldest one.
func OldestActivePackage(ctx context.Context, db *gorm.DB, userID string, excluded ...string) (*domain.UserPackage, error) {
	var p domain.UserPackage
	q := db.WithContext(ctx).
		Where("user_id = ? AND status = ? AND pdi_remaining > 0", userID, domain.PackageActive)
	if len(excluded) > 0 {
		q = q.Where("id NOT IN ?", excluded)
	}
	err := q.Order("purchased_at ASC, id ASC").First(&p).Error
	if err != nil {
		return nil, err
	}
	return &p, nil
}

// ConsumePDICredit atomically deducts one credit from the package: remaining
// is decremented and used incremented only when remaining is still positive.
// Returns false when the guard matched no row (package already drained by a
// concurrent writer). When the decrement lands on zero the package status is
// flipped to EXHAUSTED in the same call.
func ConsumePDICredit(ctx context.Context, db *gorm.DB, packageID string) (bool, error) {
	res := db.WithContext(ctx).
		Model(&domain.UserPackage{}).
		Where("id = ? AND pdi_remaining > 0", packageID).
		Updates(map[string]any{
			"pdi_remaining": gorm.Expr("pdi_remaining - 1"),
			"pdi_used":      gorm.Expr("pdi_used + 1"),
		})
	if res.Error != nil {
		return false, res.Error
	}
	if res.RowsAffected == 0 {
		return false, nil
	}

	err := db.WithContext(ctx).
		Model(&domain.UserPackage{}).
		Where("id = ? AND pdi_remaining = 0", packageID).
		Update("status", domain.PackageExhausted).Error
	if err != nil {
		return false, err
	}
	return true, nil
}
