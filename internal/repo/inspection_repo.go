// Package repo implements the data persistence layer for domain entities,
// backed by GORM. This file provides repository functions for PDI inspection
// reports, their responses, and attached images.
package repo

import (
	"context"
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"

	"github.com/tbourn/go-vehicle-backend/internal/domain"
)

// CreateInspection inserts the inspection row together with the Responses
// the caller populated (one bulk write via the association). Leakage
// responses are created separately with CreateLeakageResponse, matching the
// original flow where they are written row by row inside the same
// transaction.
func CreateInspection(ctx context.Context, db *gorm.DB, insp *domain.PDIInspection) error {
	return db.WithContext(ctx).Create(insp).Error
}

// CreateLeakageResponse inserts one leakage finding for an inspection.
func CreateLeakageResponse(ctx context.Context, db *gorm.DB, inspectionID, itemID, status, notes string) error {
	lr := &domain.PDILeakageResponse{
		ID:           uuid.NewString(),
		InspectionID: inspectionID,
		ItemID:       itemID,
		Status:       status,
		Notes:        notes,
		CreatedAt:    time.Now().UTC(),
	}
	return db.WithContext(ctx).Create(lr).Error
}

// GetInspection fetches a report with every nested collection preloaded:
// responses with their item and section, leakage responses with their item,
// images in upload order, and the minimal owner projection.
func GetInspection(ctx context.Context, db *gorm.DB, id string) (*domain.PDIInspection, error) {
	var insp domain.PDIInspection
	err := db.WithContext(ctx).
		Preload("Responses.Item.Section").
		Preload("LeakageResponses.Item").
		Preload("Images", func(db *gorm.DB) *gorm.DB {
			return db.Order("uploaded_at ASC, id ASC")
		}).
		Preload("User").
		Where("id = ?", id).
		First(&insp).Error
	if err != nil {
		return nil, err
	}
	return &insp, nil
}

// ListInspections returns every report, newest first. No pagination: the
// admin list view consumes the full set.
func ListInspections(ctx context.Context, db *gorm.DB) ([]domain.PDIInspection, error) {
	var out []domain.PDIInspection
	err := db.WithContext(ctx).
		Preload("User").
		Order("created_at DESC, id DESC").
		Find(&out).Error
	return out, err
}

// ListUserInspections returns a user's reports, newest first.
func ListUserInspections(ctx context.Context, db *gorm.DB, userID string) ([]domain.PDIInspection, error) {
	var out []domain.PDIInspection
	err := db.WithContext(ctx).
		Where("user_id = ?", userID).
		Order("created_at DESC, id DESC").
		Find(&out).Error
	return out, err
}

// AddInspectionImage records image metadata after the file has been moved
// into the per-inspection media directory.
func AddInspectionImage(ctx context.Context, db *gorm.DB, inspectionID, fileName, fileURL string) (*domain.PDIImage, error) {
	img := &domain.PDIImage{
		ID:           uuid.NewString(),
		InspectionID: inspectionID,
		FileName:     fileName,
		FileURL:      fileURL,
		UploadedAt:   time.Now().UTC(),
	}
	if err := db.WithContext(ctx).Create(img).Error; err != nil {
		return nil, err
	}
	return img, nil
}
