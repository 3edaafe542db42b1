// Package repo implements the data persistence layer for domain entities,
// backed by GORM. This file maintains the PDI checklist templates: sections,
// their items, and the secondary leakage checklist. Ordering is an explicit
// position column; inserts append at max(position)+1 and reordering is a
// bulk update of caller-supplied positions (driven by the service layer
// inside one transaction).
package repo

import (
	"context"
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"

	"github.com/tbourn/go-vehicle-backend/internal/domain"
)

// ListStructure returns the full checklist template: sections in position
// order, each with its items in position order.
func ListStructure(ctx context.Context, db *gorm.DB) ([]domain.PDISection, error) {
	var out []domain.PDISection
	err := db.WithContext(ctx).
		Preload("Items", func(db *gorm.DB) *gorm.DB {
			return db.Order("position ASC, id ASC")
		}).
		Order("position ASC, id ASC").
		Find(&out).Error
	return out, err
}

// ListLeakageItems returns the leakage checklist template in position order.
func ListLeakageItems(ctx context.Context, db *gorm.DB) ([]domain.PDILeakageItem, error) {
	var out []domain.PDILeakageItem
	err := db.WithContext(ctx).
		Order("position ASC, id ASC").
		Find(&out).Error
	return out, err
}

// nextPosition computes max(position)+1 over the rows matched by q.
func nextPosition(q *gorm.DB) (int, error) {
	var max int
	if err := q.Select("COALESCE(MAX(position), 0)").Scan(&max).Error; err != nil {
		return 0, err
	}
	return max + 1, nil
}

// CreateSection appends a new checklist section.
func CreateSection(ctx context.Context, db *gorm.DB, title string) (*domain.PDISection, error) {
	pos, err := nextPosition(db.WithContext(ctx).Model(&domain.PDISection{}))
	if err != nil {
		return nil, err
	}
	s := &domain.PDISection{
		ID:        uuid.NewString(),
		Title:     title,
		Position:  pos,
		CreatedAt: time.Now().UTC(),
	}
	if err := db.WithContext(ctx).Create(s).Error; err != nil {
		return nil, err
	}
	return s, nil
}

// CreateItem appends a new item to a section.
func CreateItem(ctx context.Context, db *gorm.DB, sectionID, label string) (*domain.PDIItem, error) {
	pos, err := nextPosition(db.WithContext(ctx).Model(&domain.PDIItem{}).Where("section_id = ?", sectionID))
	if err != nil {
		return nil, err
	}
	it := &domain.PDIItem{
		ID:        uuid.NewString(),
		SectionID: sectionID,
		Label:     label,
		Position:  pos,
		CreatedAt: time.Now().UTC(),
	}
	if err := db.WithContext(ctx).Create(it).Error; err != nil {
		return nil, err
	}
	return it, nil
}

// CreateLeakageItem appends a new leakage checklist entry.
func CreateLeakageItem(ctx context.Context, db *gorm.DB, label string) (*domain.PDILeakageItem, error) {
	pos, err := nextPosition(db.WithContext(ctx).Model(&domain.PDILeakageItem{}))
	if err != nil {
		return nil, err
	}
	it := &domain.PDILeakageItem{
		ID:        uuid.NewString(),
		Label:     label,
		Position:  pos,
		CreatedAt: time.Now().UTC(),
	}
	if err := db.WithContext(ctx).Create(it).Error; err != nil {
		return nil, err
	}
	return it, nil
}

// UpdateSectionTitle renames a section. Returns ErrNotFound when missing.
func UpdateSectionTitle(ctx context.Context, db *gorm.DB, id, title string) error {
	return updateByID(ctx, db, &domain.PDISection{}, id, map[string]any{"title": title})
}

// UpdateItemLabel renames an item. Returns ErrNotFound when missing.
func UpdateItemLabel(ctx context.Context, db *gorm.DB, id, label string) error {
	return updateByID(ctx, db, &domain.PDIItem{}, id, map[string]any{"label": label})
}

// UpdateLeakageItemLabel renames a leakage entry. Returns ErrNotFound when missing.
func UpdateLeakageItemLabel(ctx context.Context, db *gorm.DB, id, label string) error {
	return updateByID(ctx, db, &domain.PDILeakageItem{}, id, map[string]any{"label": label})
}

// UpdateSectionPosition moves a section to an explicit position.
func UpdateSectionPosition(ctx context.Context, db *gorm.DB, id string, position int) error {
	return updateByID(ctx, db, &domain.PDISection{}, id, map[string]any{"position": position})
}

// UpdateItemPosition moves an item to an explicit position.
func UpdateItemPosition(ctx context.Context, db *gorm.DB, id string, position int) error {
	return updateByID(ctx, db, &domain.PDIItem{}, id, map[string]any{"position": position})
}

// UpdateLeakageItemPosition moves a leakage entry to an explicit position.
func UpdateLeakageItemPosition(ctx context.Context, db *gorm.DB, id string, position int) error {
	return updateByID(ctx, db, &domain.PDILeakageItem{}, id, map[string]any{"position": position})
}

// DeleteSection removes a section and its items. Completed inspections keep
// their responses: deletion is rejected by the DB when any response still
// references one of the section's items.
func DeleteSection(ctx context.Context, db *gorm.DB, id string) error {
	if err := db.WithContext(ctx).Where("section_id = ?", id).Delete(&domain.PDIItem{}).Error; err != nil {
		return err
	}
	res := db.WithContext(ctx).Where("id = ?", id).Delete(&domain.PDISection{})
	if res.Error != nil {
		return res.Error
	}
	if res.RowsAffected == 0 {
		return gorm.ErrRecordNotFound
	}
	return nil
}

// DeleteItem removes one checklist item.
func DeleteItem(ctx context.Context, db *gorm.DB, id string) error {
	return deleteByID(ctx, db, &domain.PDIItem{}, id)
}

// DeleteLeakageItem removes one leakage checklist entry.
func DeleteLeakageItem(ctx context.Context, db *gorm.DB, id string) error {
	return deleteByID(ctx, db, &domain.PDILeakageItem{}, id)
}

func updateByID(ctx context.Context, db *gorm.DB, model any, id string, vals map[string]any) error {
	res := db.WithContext(ctx).Model(model).Where("id = ?", id).Updates(vals)
	if res.Error != nil {
		return res.Error
	}
	if res.RowsAffected == 0 {
		return gorm.ErrRecordNotFound
	}
	return nil
}

func deleteByID(ctx context.Context, db *gorm.DB, model any, id string) error {
	res := db.WithContext(ctx).Where("id = ?", id).Delete(model)
	if res.Error != nil {
		return res.Error
	}
	if res.RowsAffected == 0 {
		return gorm.ErrRecordNotFound
	}
	return nil
}
