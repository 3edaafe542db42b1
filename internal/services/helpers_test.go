package services

import (
	"context"
	"fmt"
	"sync"
	"testing"
	"time"

	sqlite "github.com/glebarez/sqlite"
	"github.com/google/uuid"
	"gorm.io/gorm"
	"gorm.io/gorm/logger"

	"github.com/tbourn/go-vehicle-backend/internal/domain"
	"github.com/tbourn/go-vehicle-backend/internal/repo"
)

// newServiceDB opens a named in-memory database with the full schema and
// foreign keys enforced. Each test passes a distinct name so shared-cache
// databases never bleed state into each other.
func newServiceDB(t *testing.T, name string) *gorm.DB {
	t.Helper()
	dsn := fmt.Sprintf("file:%s?mode=memory&cache=shared", name)
	db, err := gorm.Open(sqlite.Open(dsn), &gorm.Config{
		Logger: logger.Default.LogMode(logger.Silent),
	})
	if err != nil {
		t.Fatalf("open sqlite: %v", err)
	}
	// Single connection so the pragma holds for every statement.
	if sqlDB, err := db.DB(); err == nil {
		sqlDB.SetMaxOpenConns(1)
	}
	db.Exec("PRAGMA foreign_keys=ON;")
	if err := repo.AutoMigrate(db); err != nil {
		t.Fatalf("automigrate: %v", err)
	}
	return db
}

// seedUser inserts an approved client account and returns it.
func seedUser(t *testing.T, db *gorm.DB, email string, mobile *string) *domain.User {
	t.Helper()
	u := &domain.User{
		ID:            uuid.NewString(),
		Email:         email,
		Mobile:        mobile,
		Name:          "Seed User",
		PasswordHash:  "x",
		Role:          domain.RoleClient,
		Status:        domain.UserApproved,
		EmailVerified: true,
	}
	if err := repo.CreateUser(context.Background(), db, u); err != nil {
		t.Fatalf("seed user: %v", err)
	}
	return u
}

// seedPackage inserts a package with an explicit purchase time so FIFO order
// is deterministic in tests.
func seedPackage(t *testing.T, db *gorm.DB, userID, name string, remaining int, purchasedAt time.Time) *domain.UserPackage {
	t.Helper()
	p := &domain.UserPackage{
		ID:           uuid.NewString(),
		UserID:       userID,
		PackageName:  name,
		PDIRemaining: remaining,
		Status:       domain.PackageActive,
		PurchasedAt:  purchasedAt,
	}
	if err := db.Create(p).Error; err != nil {
		t.Fatalf("seed package: %v", err)
	}
	return p
}

// seedChecklist creates one section with one item plus one leakage entry and
// returns their IDs.
func seedChecklist(t *testing.T, db *gorm.DB) (itemID, leakItemID string) {
	t.Helper()
	ctx := context.Background()
	sec, err := repo.CreateSection(ctx, db, "Engine Bay")
	if err != nil {
		t.Fatalf("seed section: %v", err)
	}
	item, err := repo.CreateItem(ctx, db, sec.ID, "Coolant level")
	if err != nil {
		t.Fatalf("seed item: %v", err)
	}
	leak, err := repo.CreateLeakageItem(ctx, db, "Engine oil")
	if err != nil {
		t.Fatalf("seed leakage item: %v", err)
	}
	return item.ID, leak.ID
}

// fakeMailer records sent mail for assertions. Safe for concurrent use.
type fakeMailer struct {
	mu       sync.Mutex
	welcomes []string
	reports  []string
	lastPwd  string
	fail     bool
}

func (f *fakeMailer) SendWelcome(to, name, password string) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.fail {
		return fmt.Errorf("smtp down")
	}
	f.welcomes = append(f.welcomes, to)
	f.lastPwd = password
	return nil
}

func (f *fakeMailer) SendReportReady(to, name, subject, refID string) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.fail {
		return fmt.Errorf("smtp down")
	}
	f.reports = append(f.reports, to)
	return nil
}

func (f *fakeMailer) welcomeCount() int {
	f.mu.Lock()
	defer f.mu.Unlock()
	return len(f.welcomes)
}

func (f *fakeMailer) reportCount() int {
	f.mu.Lock()
	defer f.mu.Unlock()
	return len(f.reports)
}
