// Handler wiring for the vehicle marketplace API.
//
// This file declares the service contracts the HTTP layer consumes, the
// Handlers aggregate that binds them, and shared request helpers. Handlers
// are transport-thin: they validate input, call application services, and
// translate results into HTTP responses.
package handlers

import (
	"context"
	"strings"

	"github.com/gin-gonic/gin"

	"github.com/tbourn/go-vehicle-backend/internal/domain"
	"github.com/tbourn/go-vehicle-backend/internal/repo"
	"github.com/tbourn/go-vehicle-backend/internal/services"
	"github.com/tbourn/go-vehicle-backend/internal/utils"
)

//
// Service contracts (context-aware)
//

// ClaimAPI defines the claim lifecycle operations consumed by HTTP handlers.
//
// Implementations should be safe for concurrent use and must honor the
// provided context for cancellation and timeouts.
type ClaimAPI interface {
	// Create submits an ONLINE claim for the session user.
	Create(ctx context.Context, userID string, in services.ClaimInput) (*domain.InsuranceClaim, error)
	// CreateWalkIn submits a staff-entered claim, resolving the customer account.
	CreateWalkIn(ctx context.Context, in services.WalkInClaimInput) (*services.WalkInClaimResult, error)
	// Get fetches one claim with documents and customer preloaded.
	Get(ctx context.Context, id string) (*domain.InsuranceClaim, error)
	// UpdateStatus transitions a claim and records who reviewed it.
	UpdateStatus(ctx context.Context, claimID, status, adminNotes, reviewedBy string) (*domain.InsuranceClaim, error)
	// AttachPDF records the generated report location on a claim.
	AttachPDF(ctx context.Context, claimID, pdfURL string) (*domain.InsuranceClaim, error)
	// List returns the filtered, searched, paginated admin view.
	List(ctx context.Context, f services.ListFilter) (*services.ClaimPage, error)
	// ListForUser returns one customer's claims, paginated.
	ListForUser(ctx context.Context, userID string, page, pageSize int, source string) (*services.ClaimPage, error)
	// Stats returns per-status counts and the estimated damage sum.
	Stats(ctx context.Context) (*repo.ClaimStats, error)
	// Events returns a claim's status history, oldest first.
	Events(ctx context.Context, claimID string) ([]domain.ClaimStatusEvent, error)
}

// InspectionAPI defines the PDI report operations consumed by HTTP handlers.
type InspectionAPI interface {
	// CreateReport persists a completed inspection with its responses.
	CreateReport(ctx context.Context, in services.ReportInput) (*services.ReportResult, error)
	// Get fetches one report with all nested collections preloaded.
	Get(ctx context.Context, id string) (*domain.PDIInspection, error)
	// ListAll returns every report, newest first.
	ListAll(ctx context.Context) ([]domain.PDIInspection, error)
	// ListForUser returns one customer's reports, newest first.
	ListForUser(ctx context.Context, userID string) ([]domain.PDIInspection, error)
	// Stats returns total and current-month inspection counts.
	Stats(ctx context.Context) (*repo.InspectionStats, error)
}

// ChecklistAPI defines the checklist template administration operations.
type ChecklistAPI interface {
	Structure(ctx context.Context) ([]domain.PDISection, error)
	LeakageItems(ctx context.Context) ([]domain.PDILeakageItem, error)
	CreateSection(ctx context.Context, title string) (*domain.PDISection, error)
	CreateItem(ctx context.Context, sectionID, label string) (*domain.PDIItem, error)
	CreateLeakageItem(ctx context.Context, label string) (*domain.PDILeakageItem, error)
	RenameSection(ctx context.Context, id, title string) error
	RenameItem(ctx context.Context, id, label string) error
	RenameLeakageItem(ctx context.Context, id, label string) error
	DeleteSection(ctx context.Context, id string) error
	DeleteItem(ctx context.Context, id string) error
	DeleteLeakageItem(ctx context.Context, id string) error
	ReorderSections(ctx context.Context, orderedIDs []string) error
	ReorderItems(ctx context.Context, orderedIDs []string) error
	ReorderLeakageItems(ctx context.Context, orderedIDs []string) error
}

// PackageAPI defines the package ledger operations consumed by HTTP handlers.
type PackageAPI interface {
	// Grant creates a new ACTIVE credit package for a customer.
	Grant(ctx context.Context, userID, packageName string, count int) (*domain.UserPackage, error)
	// ListForUser returns a customer's packages, oldest purchase first.
	ListForUser(ctx context.Context, userID string) ([]domain.UserPackage, error)
}

// NotificationAPI defines the notification inbox operations.
type NotificationAPI interface {
	// ListForUser returns the inbox with its unread counter.
	ListForUser(ctx context.Context, userID string) (*services.Inbox, error)
	// MarkRead flags one of the user's notifications as read.
	MarkRead(ctx context.Context, id, userID string) error
}

//
// Handler wiring
//

// Handlers groups HTTP endpoints for claims, inspections, checklist
// administration, packages, and notifications. It depends on abstract service
// interfaces to keep transport concerns separate from business logic.
type Handlers struct {
	claimSvc ClaimAPI
	inspSvc  InspectionAPI
	chkSvc   ChecklistAPI
	pkgSvc   PackageAPI
	notifSvc NotificationAPI
}

// New constructs and returns a Handlers instance bound to the given services.
func New(claimSvc ClaimAPI, inspSvc InspectionAPI, chkSvc ChecklistAPI, pkgSvc PackageAPI, notifSvc NotificationAPI) *Handlers {
	return &Handlers{
		claimSvc: claimSvc,
		inspSvc:  inspSvc,
		chkSvc:   chkSvc,
		pkgSvc:   pkgSvc,
		notifSvc: notifSvc,
	}
}

// userID extracts the authenticated user id from Gin context (set by upstream
// middleware). If absent, it falls back to "X-User-ID" header (tests use it),
// and finally to "demo-user". It never touches c.Request if it's nil.
func userID(c *gin.Context) string {
	if v, ok := c.Get("userID"); ok {
		if s, ok := v.(string); ok && s != "" {
			return s
		}
	}
	if c != nil && c.Request != nil {
		if h := strings.TrimSpace(c.GetHeader("X-User-ID")); h != "" {
			return h
		}
	}
	return "demo-user"
}

//
// Helpers
//

// clampPagination parses and bounds page and page_size query params to sane
// defaults and limits, returning (page, pageSize).
func clampPagination(c *gin.Context) (page, pageSize int) {
	page = utils.AtoiDefault(c.Query("page"), 1)
	pageSize = utils.AtoiDefault(c.Query("page_size"), utils.DefaultPageSize)
	return utils.ClampPage(page, pageSize)
}
