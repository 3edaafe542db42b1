package services

import (
	"context"
	"errors"
	"strings"
	"time"

	"gorm.io/gorm"

	"github.com/tbourn/go-vehicle-backend/internal/domain"
	"github.com/tbourn/go-vehicle-backend/internal/repo"
)

// ChecklistService manages the inspection checklist templates: the ordered
// sections with their items, and the flat leakage checklist.
type ChecklistService struct {
	DB        *gorm.DB
	TxTimeout time.Duration
}

// Structure returns every section with its items, both ordered by position.
func (s *ChecklistService) Structure(ctx context.Context) ([]domain.PDISection, error) {
	return repo.ListStructure(ctx, s.DB)
}

// LeakageItems returns the leakage checklist ordered by position.
func (s *ChecklistService) LeakageItems(ctx context.Context) ([]domain.PDILeakageItem, error) {
	return repo.ListLeakageItems(ctx, s.DB)
}

// CreateSection appends a section at the end of the checklist.
func (s *ChecklistService) CreateSection(ctx context.Context, title string) (*domain.PDISection, error) {
	title = strings.TrimSpace(title)
	if title == "" {
		return nil, ErrEmptyLabel
	}
	return repo.CreateSection(ctx, s.DB, title)
}

// CreateItem appends an item at the end of its section.
func (s *ChecklistService) CreateItem(ctx context.Context, sectionID, label string) (*domain.PDIItem, error) {
	label = strings.TrimSpace(label)
	if label == "" {
		return nil, ErrEmptyLabel
	}
	item, err := repo.CreateItem(ctx, s.DB, sectionID, label)
	if isForeignKeyViolation(err) {
		return nil, ErrSectionNotFound
	}
	return item, err
}

// CreateLeakageItem appends an entry to the leakage checklist.
func (s *ChecklistService) CreateLeakageItem(ctx context.Context, label string) (*domain.PDILeakageItem, error) {
	label = strings.TrimSpace(label)
	if label == "" {
		return nil, ErrEmptyLabel
	}
	return repo.CreateLeakageItem(ctx, s.DB, label)
}

// RenameSection updates a section title.
func (s *ChecklistService) RenameSection(ctx context.Context, id, title string) error {
	title = strings.TrimSpace(title)
	if title == "" {
		return ErrEmptyLabel
	}
	return mapChecklistErr(repo.UpdateSectionTitle(ctx, s.DB, id, title), ErrSectionNotFound)
}

// RenameItem updates an item label.
func (s *ChecklistService) RenameItem(ctx context.Context, id, label string) error {
	label = strings.TrimSpace(label)
	if label == "" {
		return ErrEmptyLabel
	}
	return mapChecklistErr(repo.UpdateItemLabel(ctx, s.DB, id, label), ErrItemNotFound)
}

// RenameLeakageItem updates a leakage checklist label.
func (s *ChecklistService) RenameLeakageItem(ctx context.Context, id, label string) error {
	label = strings.TrimSpace(label)
	if label == "" {
		return ErrEmptyLabel
	}
	return mapChecklistErr(repo.UpdateLeakageItemLabel(ctx, s.DB, id, label), ErrItemNotFound)
}

// DeleteSection removes a section and all of its items.
func (s *ChecklistService) DeleteSection(ctx context.Context, id string) error {
	return mapChecklistErr(repo.DeleteSection(ctx, s.DB, id), ErrSectionNotFound)
}

// DeleteItem removes one checklist item.
func (s *ChecklistService) DeleteItem(ctx context.Context, id string) error {
	return mapChecklistErr(repo.DeleteItem(ctx, s.DB, id), ErrItemNotFound)
}

// DeleteLeakageItem removes one leakage checklist entry.
func (s *ChecklistService) DeleteLeakageItem(ctx context.Context, id string) error {
	return mapChecklistErr(repo.DeleteLeakageItem(ctx, s.DB, id), ErrItemNotFound)
}

// ReorderSections rewrites section positions to match the given ID order,
// in one transaction so a bad ID leaves the ordering untouched.
func (s *ChecklistService) ReorderSections(ctx context.Context, orderedIDs []string) error {
	return s.reorder(ctx, orderedIDs, repo.UpdateSectionPosition, ErrSectionNotFound)
}

// ReorderItems rewrites item positions within a section to the given order.
func (s *ChecklistService) ReorderItems(ctx context.Context, orderedIDs []string) error {
	return s.reorder(ctx, orderedIDs, repo.UpdateItemPosition, ErrItemNotFound)
}

// ReorderLeakageItems rewrites leakage checklist positions to the given order.
func (s *ChecklistService) ReorderLeakageItems(ctx context.Context, orderedIDs []string) error {
	return s.reorder(ctx, orderedIDs, repo.UpdateLeakageItemPosition, ErrItemNotFound)
}

func (s *ChecklistService) reorder(ctx context.Context, ids []string,
	setPos func(context.Context, *gorm.DB, string, int) error, missing error) error {

	txCtx, cancel := context.WithTimeout(ctx, s.txTimeout())
	defer cancel()
	return s.DB.WithContext(txCtx).Transaction(func(tx *gorm.DB) error {
		for i, id := range ids {
			if err := setPos(txCtx, tx, id, i+1); err != nil {
				return mapChecklistErr(err, missing)
			}
		}
		return nil
	})
}

func (s *ChecklistService) txTimeout() time.Duration {
	if s.TxTimeout > 0 {
		return s.TxTimeout
	}
	return defaultTxTimeout
}

func mapChecklistErr(err, missing error) error {
	if errors.Is(err, repo.ErrNotFound) {
		return missing
	}
	return err
}

// isForeignKeyViolation sniffs driver-specific FK error text, the same way
// duplicate detection works: gorm does not normalize constraint errors.
func isForeignKeyViolation(err error) bool {
	if err == nil {
		return false
	}
	msg := strings.ToLower(err.Error())
	return strings.Contains(msg, "foreign key")
}
