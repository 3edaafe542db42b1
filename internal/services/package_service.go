package services

import (
	"context"
	"errors"

	"gorm.io/gorm"

	"github.com/tbourn/go-vehicle-backend/internal/domain"
	"github.com/tbourn/go-vehicle-backend/internal/repo"
)

// PackageService exposes the PDI package ledger: granting credit bundles to
// customers and listing what a customer holds. Consumption happens inside
// InspectionService.CreateReport.
type PackageService struct {
	DB *gorm.DB
}

// Grant creates a new ACTIVE package of count credits for a customer.
func (s *PackageService) Grant(ctx context.Context, userID, packageName string, count int) (*domain.UserPackage, error) {
	if count <= 0 {
		return nil, ErrInvalidPackageCount
	}
	if _, err := repo.GetUser(ctx, s.DB, userID); err != nil {
		if errors.Is(err, repo.ErrNotFound) {
			return nil, ErrUserNotFound
		}
		return nil, err
	}
	return repo.CreatePackage(ctx, s.DB, userID, packageName, count)
}

// ListForUser returns a customer's packages, oldest purchase first, the same
// order consumption walks them.
func (s *PackageService) ListForUser(ctx context.Context, userID string) ([]domain.UserPackage, error) {
	return repo.ListUserPackages(ctx, s.DB, userID)
}
