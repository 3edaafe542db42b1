// Package repo implements the data persistence layer for domain entities,
// backed by GORM. This file provides repository functions for insurance
// claims, their documents, and the append-only status event log.
//
// Error semantics:
//   - When a claim is not found, functions return gorm.ErrRecordNotFound
//     (also exported here as ErrNotFound for convenience).
//   - On DB errors (constraint violations, connectivity issues, etc.),
//     the raw gorm error is propagated. Claim-number uniqueness violations
//     are mapped to a stable sentinel by the service layer, which owns the
//     generate-and-retry loop.
package repo

import (
	"context"
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"

	"github.com/tbourn/go-vehicle-backend/internal/domain"
)

// ClaimFilter narrows admin claim listings. Zero values mean "no filter".
// Search is a free-text OR across claim number, policy number, customer name
// and customer email.
type ClaimFilter struct {
	Status string
	Source string
	Search string
}

// CreateClaim inserts a claim row together with any nested documents the
// caller populated on c.Documents (GORM persists the association in the same
// write). The caller assigns ID, ClaimNumber and Status.
func CreateClaim(ctx context.Context, db *gorm.DB, c *domain.InsuranceClaim) error {
	return db.WithContext(ctx).Create(c).Error
}

// GetClaim fetches a single claim with its documents and the minimal owner
// projection preloaded, or ErrNotFound.
func GetClaim(ctx context.Context, db *gorm.DB, id string) (*domain.InsuranceClaim, error) {
	var c domain.InsuranceClaim
	err := db.WithContext(ctx).
		Preload("Documents").
		Preload("User").
		Where("id = ?", id).
		First(&c).Error
	if err != nil {
		return nil, err
	}
	return &c, nil
}

// LastClaimNumber returns the lexicographically greatest claim number with
// the given prefix (e.g. "CLM-2026-"), or "" when none exists. Soft-deleted
// claims are included: their numbers still occupy the unique index and must
// never be reissued.
func LastClaimNumber(ctx context.Context, db *gorm.DB, prefix string) (string, error) {
	var row struct {
		ClaimNumber string
	}
	err := db.WithContext(ctx).
		Unscoped().
		Model(&domain.InsuranceClaim{}).
		Select("claim_number").
		Where("claim_number LIKE ?", prefix+"%").
		Order("claim_number DESC").
		Limit(1).
		Scan(&row).Error
	return row.ClaimNumber, err
}

// UpdateClaimStatus overwrites status, admin notes and reviewer, and stamps
// ReviewedAt. Returns ErrNotFound when the claim does not exist.
func UpdateClaimStatus(ctx context.Context, db *gorm.DB, id, status, adminNotes, reviewedBy string) error {
	res := db.WithContext(ctx).
		Model(&domain.InsuranceClaim{}).
		Where("id = ?", id).
		Updates(map[string]any{
			"status":      status,
			"admin_notes": adminNotes,
			"reviewed_by": reviewedBy,
			"reviewed_at": time.Now().UTC(),
		})
	if res.Error != nil {
		return res.Error
	}
	if res.RowsAffected == 0 {
		return gorm.ErrRecordNotFound
	}
	return nil
}

// UpdateClaimPDF stamps the rendered report URL and generation time.
// Returns ErrNotFound when the claim does not exist.
func UpdateClaimPDF(ctx context.Context, db *gorm.DB, id, pdfURL string) error {
	res := db.WithContext(ctx).
		Model(&domain.InsuranceClaim{}).
		Where("id = ?", id).
		Updates(map[string]any{
			"pdf_url":          pdfURL,
			"pdf_generated_at": time.Now().UTC(),
		})
	if res.Error != nil {
		return res.Error
	}
	if res.RowsAffected == 0 {
		return gorm.ErrRecordNotFound
	}
	return nil
}

// claimListQuery composes the filtered base query for admin listings.
// Built fresh for count and page queries so GORM statement state is never
// shared between the two.
func claimListQuery(ctx context.Context, db *gorm.DB, f ClaimFilter) *gorm.DB {
	q := db.WithContext(ctx).Model(&domain.InsuranceClaim{})
	if f.Status != "" {
		q = q.Where("insurance_claims.status = ?", f.Status)
	}
	if f.Source != "" {
		q = q.Where("insurance_claims.source = ?", f.Source)
	}
	if f.Search != "" {
		pat := "%" + f.Search + "%"
		q = q.Joins("JOIN users ON users.id = insurance_claims.user_id").
			Where("insurance_claims.claim_number LIKE ? OR insurance_claims.policy_number LIKE ? OR users.name LIKE ? OR users.email LIKE ?",
				pat, pat, pat, pat)
	}
	return q
}

// CountClaims returns the number of claims matching the filter.
func CountClaims(ctx context.Context, db *gorm.DB, f ClaimFilter) (int64, error) {
	var total int64
	err := claimListQuery(ctx, db, f).Count(&total).Error
	return total, err
}

// ListClaimsPage returns a page of claims matching the filter, newest first,
// with documents and owner projection preloaded. The caller computes offset
// and limit (e.g. (page-1)*pageSize).
func ListClaimsPage(ctx context.Context, db *gorm.DB, f ClaimFilter, offset, limit int) ([]domain.InsuranceClaim, error) {
	var out []domain.InsuranceClaim
	err := claimListQuery(ctx, db, f).
		Preload("Documents").
		Preload("User").
		Order("insurance_claims.created_at DESC, insurance_claims.id DESC").
		Offset(offset).
		Limit(limit).
		Find(&out).Error
	return out, err
}

// CountUserClaims returns the number of claims owned by userID, optionally
// filtered by source ("" means all).
func CountUserClaims(ctx context.Context, db *gorm.DB, userID, source string) (int64, error) {
	q := db.WithContext(ctx).Model(&domain.InsuranceClaim{}).Where("user_id = ?", userID)
	if source != "" {
		q = q.Where("source = ?", source)
	}
	var total int64
	err := q.Count(&total).Error
	return total, err
}

// ListUserClaimsPage returns a page of the user's claims, newest first,
// optionally filtered by source. Used to separate "My Requests" (ONLINE)
// from admin walk-in views.
func ListUserClaimsPage(ctx context.Context, db *gorm.DB, userID, source string, offset, limit int) ([]domain.InsuranceClaim, error) {
	q := db.WithContext(ctx).Where("user_id = ?", userID)
	if source != "" {
		q = q.Where("source = ?", source)
	}
	var out []domain.InsuranceClaim
	err := q.
		Preload("Documents").
		Order("created_at DESC, id DESC").
		Offset(offset).
		Limit(limit).
		Find(&out).Error
	return out, err
}

// CreateClaimStatusEvent appends one audit row for a status write.
func CreateClaimStatusEvent(ctx context.Context, db *gorm.DB, claimID, status, createdBy string) error {
	ev := &domain.ClaimStatusEvent{
		ID:        uuid.NewString(),
		ClaimID:   claimID,
		Status:    status,
		CreatedBy: createdBy,
		CreatedAt: time.Now().UTC(),
	}
	return db.WithContext(ctx).Create(ev).Error
}

// ListClaimStatusEvents returns the audit trail for a claim, oldest first.
func ListClaimStatusEvents(ctx context.Context, db *gorm.DB, claimID string) ([]domain.ClaimStatusEvent, error) {
	var out []domain.ClaimStatusEvent
	err := db.WithContext(ctx).
		Where("claim_id = ?", claimID).
		Order("created_at ASC, id ASC").
		Find(&out).Error
	return out, err
}
