// Package services – InspectionService
//
// This file implements the PDI (pre-delivery inspection) report lifecycle.
// CreateReport is the most involved operation in the system: inside one
// bounded transaction it resolves (or provisions) the customer account,
// consumes one package credit FIFO across the customer's active packages,
// and persists the inspection with all its checklist responses; after the
// commit it moves images into place and sends the staged emails, each step
// independently best-effort.
package services

import (
	"context"
	"errors"
	"path"
	"path/filepath"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/rs/zerolog"
	"gorm.io/gorm"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/trace"

	"github.com/tbourn/go-vehicle-backend/internal/domain"
	"github.com/tbourn/go-vehicle-backend/internal/mail"
	"github.com/tbourn/go-vehicle-backend/internal/repo"
	"github.com/tbourn/go-vehicle-backend/internal/storage"
)

// InspectionService implements the use-cases around PDI reports.
type InspectionService struct {
	DB       *gorm.DB
	Identity *IdentityService
	Mailer   mail.Mailer
	Log      zerolog.Logger

	// MediaDir is the root of the permanent media tree; images land under
	// MediaDir/pdi/<inspection-id>/.
	MediaDir string

	// TxTimeout bounds the create transaction. Zero means the 15s default.
	TxTimeout time.Duration
}

// ResponseInput is one checklist verdict supplied with a report.
type ResponseInput struct {
	ItemID string
	Status string
	Notes  string
}

// ImageInput references one uploaded photo sitting at a temporary path.
type ImageInput struct {
	TempPath string
	FileName string
}

// ReportInput is a full inspection submission.
type ReportInput struct {
	// UserID is the session user for self-service submissions; nil for
	// walk-in reports, where the customer contact fields drive resolution.
	UserID *string

	CustomerName   string
	CustomerEmail  string
	CustomerMobile *string

	VehicleMake    string
	VehicleModel   string
	VehicleYear    int
	RegistrationNo string
	ChassisNo      string
	OdometerKM     int

	InspectionDate    time.Time
	DigitalSignature  string
	CustomerSignature string

	// SkipPackageDeduction bypasses the ledger entirely; admin-created
	// reports set it.
	SkipPackageDeduction bool

	Responses        []ResponseInput
	LeakageResponses []ResponseInput
	Images           []ImageInput
}

// ReportResult reports the created inspection plus what happened around it.
type ReportResult struct {
	Inspection      *domain.PDIInspection `json:"inspection"`
	NewUserCreated  bool                  `json:"new_user_created"`
	PackageConsumed bool                  `json:"package_consumed"`
}

// CreateReport persists a completed inspection.
//
// Inside one transaction, in order:
//  1. Resolve the customer to a user when no session user was given and
//     contact info is present. Resolution failure for lack of an email is
//     not an error: the inspection is stored unlinked (UserID null).
//  2. Unless bypassed, consume one credit from the owner's oldest ACTIVE
//     package holding credits. No eligible package is not an error either.
//  3. Insert the inspection row with every checklist response in one write.
//  4. Insert the leakage findings row by row.
//
// After the commit, each independently caught-and-logged: image moves plus
// their metadata rows, the staged welcome mail, and the report-ready notice.
func (s *InspectionService) CreateReport(ctx context.Context, in ReportInput) (*ReportResult, error) {
	tr := otel.Tracer("services/InspectionService")
	ctx, span := tr.Start(ctx, "CreateReport",
		trace.WithAttributes(
			attribute.Int("responses", len(in.Responses)),
			attribute.Bool("skip_deduction", in.SkipPackageDeduction),
		),
	)
	defer span.End()

	if len(in.Responses) == 0 {
		return nil, ErrNoResponses
	}
	for _, r := range append(in.Responses[:len(in.Responses):len(in.Responses)], in.LeakageResponses...) {
		if !validResponseStatus(r.Status) {
			return nil, ErrInvalidResponseStatus
		}
	}

	var (
		result  ReportResult
		welcome *WelcomeMail
	)
	txCtx, cancel := context.WithTimeout(ctx, s.txTimeout())
	defer cancel()
	err := s.DB.WithContext(txCtx).Transaction(func(tx *gorm.DB) error {
		userID := ""
		if in.UserID != nil {
			userID = *in.UserID
		}
		if userID == "" && (in.CustomerEmail != "" || in.CustomerMobile != nil) {
			id, created, staged, err := s.Identity.Resolve(txCtx, tx, IdentityInput{
				Email:  in.CustomerEmail,
				Mobile: in.CustomerMobile,
				Name:   in.CustomerName,
			})
			if err != nil {
				return err
			}
			userID = id
			result.NewUserCreated = created
			welcome = staged
		}

		if userID != "" && !in.SkipPackageDeduction {
			var drained []string
			for {
				pkg, err := repo.OldestActivePackage(txCtx, tx, userID, drained...)
				if errors.Is(err, repo.ErrNotFound) {
					// No eligible package: proceed without deduction.
					break
				}
				if err != nil {
					return err
				}
				ok, err := repo.ConsumePDICredit(txCtx, tx, pkg.ID)
				if err != nil {
					return err
				}
				if ok {
					result.PackageConsumed = true
					break
				}
				// Lost the consume race on this package; fall through to
				// the next-oldest one.
				drained = append(drained, pkg.ID)
			}
		}

		insp := s.newInspection(userID, in)
		if err := repo.CreateInspection(txCtx, tx, insp); err != nil {
			return err
		}
		for _, lr := range in.LeakageResponses {
			if err := repo.CreateLeakageResponse(txCtx, tx, insp.ID, lr.ItemID, lr.Status, lr.Notes); err != nil {
				return err
			}
		}
		result.Inspection = insp
		return nil
	})
	if err != nil {
		return nil, err
	}

	inspectionsCreated.Inc()
	if result.PackageConsumed {
		pdiCreditsConsumed.Inc()
	}
	if result.NewUserCreated {
		accountsProvisioned.Inc()
	}

	s.storeImages(ctx, result.Inspection.ID, in.Images)

	if welcome != nil {
		afterCommit(s.Log, "inspection welcome mail", func() error {
			return s.Mailer.SendWelcome(welcome.To, welcome.Name, welcome.Password)
		})
	}
	if in.CustomerEmail != "" {
		afterCommit(s.Log, "inspection report-ready mail", func() error {
			return s.Mailer.SendReportReady(in.CustomerEmail, in.CustomerName,
				"Your PDI report is ready", result.Inspection.ID)
		})
	}
	if owner := result.Inspection.UserID; owner != nil {
		inspID := result.Inspection.ID
		afterCommit(s.Log, "inspection notification", func() error {
			_, err := repo.CreateNotification(ctx, s.DB, *owner,
				domain.NotificationPDIReport,
				"PDI report ready",
				"Your pre-delivery inspection report for "+in.VehicleMake+" "+in.VehicleModel+" is available.",
				"/pdi/reports/"+inspID)
			return err
		})
	}

	return &result, nil
}

// Get fetches a report with all nested collections preloaded.
func (s *InspectionService) Get(ctx context.Context, id string) (*domain.PDIInspection, error) {
	insp, err := repo.GetInspection(ctx, s.DB, id)
	if errors.Is(err, repo.ErrNotFound) {
		return nil, ErrInspectionNotFound
	}
	return insp, err
}

// ListAll returns every report, newest first.
func (s *InspectionService) ListAll(ctx context.Context) ([]domain.PDIInspection, error) {
	return repo.ListInspections(ctx, s.DB)
}

// ListForUser returns one customer's reports, newest first.
func (s *InspectionService) ListForUser(ctx context.Context, userID string) ([]domain.PDIInspection, error) {
	return repo.ListUserInspections(ctx, s.DB, userID)
}

// Stats returns the inspection totals for the admin dashboard, with the
// running-month counter bounded at the first of the current UTC month.
func (s *InspectionService) Stats(ctx context.Context) (*repo.InspectionStats, error) {
	now := time.Now().UTC()
	monthStart := time.Date(now.Year(), now.Month(), 1, 0, 0, 0, 0, time.UTC)
	return repo.GetInspectionStats(ctx, s.DB, monthStart)
}

// newInspection builds the row plus its response children for a bulk write.
func (s *InspectionService) newInspection(userID string, in ReportInput) *domain.PDIInspection {
	inspID := uuid.NewString()

	responses := make([]domain.PDIResponse, 0, len(in.Responses))
	for _, r := range in.Responses {
		responses = append(responses, domain.PDIResponse{
			ID:           uuid.NewString(),
			InspectionID: inspID,
			ItemID:       r.ItemID,
			Status:       r.Status,
			Notes:        r.Notes,
			CreatedAt:    time.Now().UTC(),
		})
	}

	var owner *string
	if userID != "" {
		owner = &userID
	}
	date := in.InspectionDate
	if date.IsZero() {
		date = time.Now().UTC()
	}

	return &domain.PDIInspection{
		ID:                inspID,
		UserID:            owner,
		CustomerName:      in.CustomerName,
		CustomerEmail:     strings.ToLower(strings.TrimSpace(in.CustomerEmail)),
		CustomerMobile:    in.CustomerMobile,
		VehicleMake:       in.VehicleMake,
		VehicleModel:      in.VehicleModel,
		VehicleYear:       in.VehicleYear,
		RegistrationNo:    in.RegistrationNo,
		ChassisNo:         in.ChassisNo,
		OdometerKM:        in.OdometerKM,
		Status:            domain.PDIInspectionCompleted,
		DigitalSignature:  in.DigitalSignature,
		CustomerSignature: in.CustomerSignature,
		InspectionDate:    date,
		CreatedAt:         time.Now().UTC(),
		Responses:         responses,
	}
}

// storeImages moves each uploaded file into the per-inspection media
// directory and records its metadata row. A failed move is logged and that
// image skipped; the rest still go through.
func (s *InspectionService) storeImages(ctx context.Context, inspectionID string, images []ImageInput) {
	if len(images) == 0 {
		return
	}
	destDir := filepath.Join(s.MediaDir, "pdi", inspectionID)
	for _, img := range images {
		img := img
		afterCommit(s.Log, "inspection image "+img.FileName, func() error {
			if _, err := storage.MoveIntoPlace(img.TempPath, destDir, img.FileName); err != nil {
				return err
			}
			url := path.Join("/media/pdi", inspectionID, img.FileName)
			_, err := repo.AddInspectionImage(ctx, s.DB, inspectionID, img.FileName, url)
			return err
		})
	}
}

func (s *InspectionService) txTimeout() time.Duration {
	if s.TxTimeout > 0 {
		return s.TxTimeout
	}
	return defaultTxTimeout
}

func validResponseStatus(status string) bool {
	switch status {
	case domain.PDIPass, domain.PDIFail, domain.PDIWarn:
		return true
	}
	return false
}
