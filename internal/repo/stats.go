// Package repo implements the data persistence layer for domain entities,
// backed by GORM. This file provides the aggregate queries behind the admin
// dashboard cards. Nothing is cached: every call computes fresh counts.
package repo

import (
	"context"
	"time"

	"gorm.io/gorm"

	"github.com/tbourn/go-vehicle-backend/internal/domain"
)

// ClaimStats aggregates claim counts per status plus the estimated damage
// total across all claims.
type ClaimStats struct {
	Total                int64            `json:"total"`
	ByStatus             map[string]int64 `json:"by_status"`
	EstimatedDamageTotal float64          `json:"estimated_damage_total"`
}

// GetClaimStats returns per-status claim counts and the sum of estimated
// damage over every claim.
//
// Every known status appears in ByStatus, zero-valued when absent, so
// dashboard cards render without nil checks.
func GetClaimStats(ctx context.Context, db *gorm.DB) (*ClaimStats, error) {
	stats := &ClaimStats{ByStatus: make(map[string]int64, len(domain.ClaimStatuses))}
	for _, s := range domain.ClaimStatuses {
		stats.ByStatus[s] = 0
	}

	var rows []struct {
		Status string
		N      int64
	}
	err := db.WithContext(ctx).
		Model(&domain.InsuranceClaim{}).
		Select("status, COUNT(*) AS n").
		Group("status").
		Scan(&rows).Error
	if err != nil {
		return nil, err
	}
	for _, r := range rows {
		stats.ByStatus[r.Status] = r.N
		stats.Total += r.N
	}

	var sum struct {
		Total float64
	}
	err = db.WithContext(ctx).
		Model(&domain.InsuranceClaim{}).
		Select("COALESCE(SUM(estimated_damage), 0) AS total").
		Scan(&sum).Error
	if err != nil {
		return nil, err
	}
	stats.EstimatedDamageTotal = sum.Total

	return stats, nil
}

// InspectionStats aggregates counts for the PDI dashboard card.
type InspectionStats struct {
	Total     int64 `json:"total"`
	ThisMonth int64 `json:"this_month"`
}

// GetInspectionStats returns the inspection totals; monthStart bounds the
// "this month" counter (caller supplies the boundary for testability).
func GetInspectionStats(ctx context.Context, db *gorm.DB, monthStart time.Time) (*InspectionStats, error) {
	stats := &InspectionStats{}
	if err := db.WithContext(ctx).Model(&domain.PDIInspection{}).Count(&stats.Total).Error; err != nil {
		return nil, err
	}
	err := db.WithContext(ctx).
		Model(&domain.PDIInspection{}).
		Where("created_at >= ?", monthStart).
		Count(&stats.ThisMonth).Error
	if err != nil {
		return nil, err
	}
	return stats, nil
}
