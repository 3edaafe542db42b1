// Package services – ClaimService
//
// This file implements the insurance claim lifecycle: claim number
// allocation, online and walk-in creation, the advisory status machine with
// its audit trail, PDF attachment, listings with filtering and free-text
// search, and the dashboard aggregates.
//
// Atomicity: each create runs inside one transaction with a bounded budget,
// so a walk-in customer account and their first claim either both persist or
// neither does. Notifications and emails are post-commit best-effort.
//
// Claim numbers are CLM-YYYY-NNNNN, monotonically increasing per year. The
// read-then-increment allocation is raced under concurrent writers, so the
// number column carries a unique index and creation retries with a fresh
// number on a duplicate-key failure.
package services

import (
	"context"
	"errors"
	"fmt"
	"strconv"
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
	"github.com/tbourn/go-vehicle-backend/internal/sysutil"
	"github.com/tbourn/go-vehicle-backend/internal/utils"
)

const (
	claimNumberPrefix   = "CLM"
	claimNumberAttempts = 3

	defaultTxTimeout = 15 * time.Second
)

// ClaimService implements the use-cases around insurance claims.
type ClaimService struct {
	DB       *gorm.DB
	Identity *IdentityService
	Mailer   mail.Mailer
	Log      zerolog.Logger

	// TxTimeout bounds the multi-step create transactions. Zero means the
	// 15s default.
	TxTimeout time.Duration
}

// DocumentInput describes one file attached at claim creation.
type DocumentInput struct {
	FileName string
	FileURL  string
	FileType string
}

// ClaimInput carries the vehicle/policy/incident details of a submission.
// Required-field validation is the transport layer's job; the service
// persists what it is given.
type ClaimInput struct {
	PolicyNumber     string
	VehicleMake      string
	VehicleModel     string
	VehicleYear      int
	RegistrationNo   string
	IncidentDate     *time.Time
	IncidentLocation string
	Description      string
	EstimatedDamage  float64
	Documents        []DocumentInput
}

// WalkInClaimInput is a staff-entered submission for a customer physically
// present. The customer may not have an account yet.
type WalkInClaimInput struct {
	ClaimInput
	CustomerName   string
	CustomerEmail  string
	CustomerMobile *string
	EnteredBy      string
}

// WalkInClaimResult reports the created claim and whether a customer account
// was auto-provisioned as part of it.
type WalkInClaimResult struct {
	Claim          *domain.InsuranceClaim `json:"claim"`
	NewUserCreated bool                   `json:"new_user_created"`
}

// ClaimPage is a paginated claim listing.
type ClaimPage struct {
	Claims     []domain.InsuranceClaim `json:"claims"`
	Total      int64                   `json:"total"`
	Pagination utils.Pagination        `json:"pagination"`
}

// Create persists an ONLINE claim for an authenticated customer. The caller
// supplies the session user ID; the claim starts in SUBMITTED with a fresh
// claim number and its documents written in the same transaction.
func (s *ClaimService) Create(ctx context.Context, userID string, in ClaimInput) (*domain.InsuranceClaim, error) {
	tr := otel.Tracer("services/ClaimService")
	ctx, span := tr.Start(ctx, "Create",
		trace.WithAttributes(attribute.String("user.id", userID)),
	)
	defer span.End()

	var out *domain.InsuranceClaim
	err := s.createWithUniqueNumber(ctx, func(txCtx context.Context, tx *gorm.DB) error {
		claim, err := s.newClaim(txCtx, tx, userID, domain.SourceOnline, in)
		if err != nil {
			return err
		}
		if err := repo.CreateClaimStatusEvent(txCtx, tx, claim.ID, domain.ClaimSubmitted, "customer"); err != nil {
			return err
		}
		out = claim
		return nil
	})
	if err != nil {
		return nil, err
	}
	claimsCreated.WithLabelValues(domain.SourceOnline).Inc()
	return out, nil
}

// CreateWalkIn resolves (or provisions) the customer account and persists
// their claim in one transaction, so a new user and their first claim are
// atomic. The welcome credential email is dispatched only after the commit.
func (s *ClaimService) CreateWalkIn(ctx context.Context, in WalkInClaimInput) (*WalkInClaimResult, error) {
	tr := otel.Tracer("services/ClaimService")
	ctx, span := tr.Start(ctx, "CreateWalkIn")
	defer span.End()

	var (
		out     WalkInClaimResult
		welcome *WelcomeMail
	)
	err := s.createWithUniqueNumber(ctx, func(txCtx context.Context, tx *gorm.DB) error {
		userID, created, staged, err := s.Identity.Resolve(txCtx, tx, IdentityInput{
			Email:  in.CustomerEmail,
			Mobile: in.CustomerMobile,
			Name:   in.CustomerName,
		})
		if err != nil {
			return err
		}
		if userID == "" {
			// A claim always has an owner; without an email there is no
			// account to hang it on.
			return ErrCustomerUnresolved
		}

		claim, err := s.newClaim(txCtx, tx, userID, domain.SourceWalkIn, in.ClaimInput)
		if err != nil {
			return err
		}
		enteredBy := in.EnteredBy
		if enteredBy == "" {
			enteredBy = "admin"
		}
		if err := repo.CreateClaimStatusEvent(txCtx, tx, claim.ID, domain.ClaimSubmitted, enteredBy); err != nil {
			return err
		}

		out = WalkInClaimResult{Claim: claim, NewUserCreated: created}
		welcome = staged
		return nil
	})
	if err != nil {
		return nil, err
	}

	claimsCreated.WithLabelValues(domain.SourceWalkIn).Inc()
	if out.NewUserCreated {
		accountsProvisioned.Inc()
		ev := s.Log.Info().Str("email", sysutil.MaskEmail(in.CustomerEmail))
		if in.CustomerMobile != nil {
			ev = ev.Str("mobile", sysutil.MaskMobile(*in.CustomerMobile))
		}
		ev.Msg("customer account provisioned for walk-in claim")
	}
	if welcome != nil {
		afterCommit(s.Log, "walk-in welcome mail", func() error {
			return s.Mailer.SendWelcome(welcome.To, welcome.Name, welcome.Password)
		})
	}
	return &out, nil
}

// Get fetches a claim with documents and owner projection.
func (s *ClaimService) Get(ctx context.Context, id string) (*domain.InsuranceClaim, error) {
	c, err := repo.GetClaim(ctx, s.DB, id)
	if errors.Is(err, repo.ErrNotFound) {
		return nil, ErrClaimNotFound
	}
	return c, err
}

// UpdateStatus overwrites the claim status and admin notes, stamps the
// reviewer, and appends an audit event, all atomically. Status transitions
// are advisory: any known status may be written. Exactly one notification
// for the claim owner is then created best-effort; its failure never undoes
// the status write.
func (s *ClaimService) UpdateStatus(ctx context.Context, claimID, status, adminNotes, reviewedBy string) (*domain.InsuranceClaim, error) {
	tr := otel.Tracer("services/ClaimService")
	ctx, span := tr.Start(ctx, "UpdateStatus",
		trace.WithAttributes(
			attribute.String("claim.id", claimID),
			attribute.String("claim.status", status),
		),
	)
	defer span.End()

	if !knownClaimStatus(status) {
		return nil, ErrUnknownClaimStatus
	}

	var claim *domain.InsuranceClaim
	txCtx, cancel := context.WithTimeout(ctx, s.txTimeout())
	defer cancel()
	err := s.DB.WithContext(txCtx).Transaction(func(tx *gorm.DB) error {
		c, err := repo.GetClaim(txCtx, tx, claimID)
		if err != nil {
			if errors.Is(err, repo.ErrNotFound) {
				return ErrClaimNotFound
			}
			return err
		}
		if err := repo.UpdateClaimStatus(txCtx, tx, claimID, status, adminNotes, reviewedBy); err != nil {
			return err
		}
		createdBy := reviewedBy
		if createdBy == "" {
			createdBy = "admin"
		}
		if err := repo.CreateClaimStatusEvent(txCtx, tx, claimID, status, createdBy); err != nil {
			return err
		}
		c.Status = status
		c.AdminNotes = adminNotes
		c.ReviewedBy = reviewedBy
		claim = c
		return nil
	})
	if err != nil {
		return nil, err
	}

	claimStatusChanges.WithLabelValues(status).Inc()
	afterCommit(s.Log, "claim status notification", func() error {
		_, err := repo.CreateNotification(ctx, s.DB,
			claim.UserID,
			domain.NotificationInsuranceClaim,
			fmt.Sprintf("Claim %s updated", claim.ClaimNumber),
			fmt.Sprintf("Your insurance claim %s is now %s.", claim.ClaimNumber, status),
			"/claims/"+claim.ID,
		)
		return err
	})
	return claim, nil
}

// AttachPDF stamps the rendered report URL and emits a best-effort
// report-ready notification (in-app row plus email when the owner has an
// address on file).
func (s *ClaimService) AttachPDF(ctx context.Context, claimID, pdfURL string) (*domain.InsuranceClaim, error) {
	claim, err := s.Get(ctx, claimID)
	if err != nil {
		return nil, err
	}
	if err := repo.UpdateClaimPDF(ctx, s.DB, claimID, pdfURL); err != nil {
		if errors.Is(err, repo.ErrNotFound) {
			return nil, ErrClaimNotFound
		}
		return nil, err
	}
	claim.PDFURL = pdfURL

	afterCommit(s.Log, "claim pdf notification", func() error {
		_, err := repo.CreateNotification(ctx, s.DB,
			claim.UserID,
			domain.NotificationInsuranceClaim,
			fmt.Sprintf("Claim %s report ready", claim.ClaimNumber),
			fmt.Sprintf("The report for your insurance claim %s is ready to download.", claim.ClaimNumber),
			"/claims/"+claim.ID,
		)
		return err
	})
	if claim.User != nil && claim.User.Email != "" {
		afterCommit(s.Log, "claim pdf mail", func() error {
			return s.Mailer.SendReportReady(claim.User.Email, claim.User.Name,
				"Your insurance claim report is ready", claim.ClaimNumber)
		})
	}
	return claim, nil
}

// ListFilter narrows the admin claim listing.
type ListFilter struct {
	Status   string
	Source   string
	Search   string
	Page     int
	PageSize int
}

// List returns a filtered, searched, paginated admin view of all claims.
func (s *ClaimService) List(ctx context.Context, f ListFilter) (*ClaimPage, error) {
	page, size := utils.ClampPage(f.Page, f.PageSize)
	rf := repo.ClaimFilter{Status: f.Status, Source: f.Source, Search: strings.TrimSpace(f.Search)}

	total, err := repo.CountClaims(ctx, s.DB, rf)
	if err != nil {
		return nil, err
	}
	claims := []domain.InsuranceClaim{}
	if total > 0 {
		claims, err = repo.ListClaimsPage(ctx, s.DB, rf, (page-1)*size, size)
		if err != nil {
			return nil, err
		}
	}
	return &ClaimPage{
		Claims:     claims,
		Total:      total,
		Pagination: utils.NewPagination(page, size, total),
	}, nil
}

// ListForUser returns one customer's claims, optionally narrowed by source
// ("" for all). The ONLINE filter backs "My Requests"; WALK_IN backs the
// staff-entered history view.
func (s *ClaimService) ListForUser(ctx context.Context, userID string, page, pageSize int, source string) (*ClaimPage, error) {
	p, size := utils.ClampPage(page, pageSize)

	total, err := repo.CountUserClaims(ctx, s.DB, userID, source)
	if err != nil {
		return nil, err
	}
	claims := []domain.InsuranceClaim{}
	if total > 0 {
		claims, err = repo.ListUserClaimsPage(ctx, s.DB, userID, source, (p-1)*size, size)
		if err != nil {
			return nil, err
		}
	}
	return &ClaimPage{
		Claims:     claims,
		Total:      total,
		Pagination: utils.NewPagination(p, size, total),
	}, nil
}

// Stats computes the dashboard aggregates, fresh on every call.
func (s *ClaimService) Stats(ctx context.Context) (*repo.ClaimStats, error) {
	return repo.GetClaimStats(ctx, s.DB)
}

// Events returns the status audit trail of a claim, oldest first.
func (s *ClaimService) Events(ctx context.Context, claimID string) ([]domain.ClaimStatusEvent, error) {
	if _, err := s.Get(ctx, claimID); err != nil {
		return nil, err
	}
	return repo.ListClaimStatusEvents(ctx, s.DB, claimID)
}

// newClaim allocates the next claim number and inserts the claim with its
// nested documents. Runs on the caller's transaction handle.
func (s *ClaimService) newClaim(ctx context.Context, tx *gorm.DB, userID, source string, in ClaimInput) (*domain.InsuranceClaim, error) {
	number, err := s.nextClaimNumber(ctx, tx, time.Now().UTC())
	if err != nil {
		return nil, err
	}

	docs := make([]domain.InsuranceDocument, 0, len(in.Documents))
	for _, d := range in.Documents {
		ft := d.FileType
		if ft == "" {
			ft = domain.FileTypeOther
		}
		docs = append(docs, domain.InsuranceDocument{
			ID:       uuid.NewString(),
			FileName: d.FileName,
			FileURL:  d.FileURL,
			FileType: ft,
		})
	}

	claim := &domain.InsuranceClaim{
		ID:               uuid.NewString(),
		ClaimNumber:      number,
		UserID:           userID,
		Source:           source,
		Status:           domain.ClaimSubmitted,
		PolicyNumber:     in.PolicyNumber,
		VehicleMake:      in.VehicleMake,
		VehicleModel:     in.VehicleModel,
		VehicleYear:      in.VehicleYear,
		RegistrationNo:   in.RegistrationNo,
		IncidentDate:     in.IncidentDate,
		IncidentLocation: in.IncidentLocation,
		Description:      in.Description,
		EstimatedDamage:  in.EstimatedDamage,
		CreatedAt:        time.Now().UTC(),
		Documents:        docs,
	}
	if err := repo.CreateClaim(ctx, tx, claim); err != nil {
		return nil, err
	}
	return claim, nil
}

// nextClaimNumber reads the year's greatest allocated number and proposes
// the next one, zero-padded to five digits. Callers must be prepared for a
// duplicate-key failure on insert and retry with a regenerated number.
func (s *ClaimService) nextClaimNumber(ctx context.Context, tx *gorm.DB, now time.Time) (string, error) {
	prefix := fmt.Sprintf("%s-%d-", claimNumberPrefix, now.Year())
	last, err := repo.LastClaimNumber(ctx, tx, prefix)
	if err != nil {
		return "", err
	}
	seq := 1
	if last != "" {
		if n, err := strconv.Atoi(strings.TrimPrefix(last, prefix)); err == nil {
			seq = n + 1
		}
	}
	return fmt.Sprintf("%s%05d", prefix, seq), nil
}

// createWithUniqueNumber runs fn in a bounded transaction and retries the
// whole transaction with a fresh claim number when the unique index on
// claim_number rejects the insert.
func (s *ClaimService) createWithUniqueNumber(ctx context.Context, fn func(context.Context, *gorm.DB) error) error {
	var lastErr error
	for attempt := 0; attempt < claimNumberAttempts; attempt++ {
		txCtx, cancel := context.WithTimeout(ctx, s.txTimeout())
		err := s.DB.WithContext(txCtx).Transaction(func(tx *gorm.DB) error {
			return fn(txCtx, tx)
		})
		cancel()
		if err == nil {
			return nil
		}
		if !isDuplicate(err) {
			return err
		}
		lastErr = err
	}
	if lastErr != nil {
		return ErrClaimNumberExhausted
	}
	return nil
}

func (s *ClaimService) txTimeout() time.Duration {
	if s.TxTimeout > 0 {
		return s.TxTimeout
	}
	return defaultTxTimeout
}

func knownClaimStatus(status string) bool {
	for _, v := range domain.ClaimStatuses {
		if v == status {
			return true
		}
	}
	return false
}

// isDuplicate attempts to detect unique-constraint violations across drivers
// that may not map to gorm.ErrDuplicatedKey.
func isDuplicate(err error) bool {
	if errors.Is(err, gorm.ErrDuplicatedKey) {
		return true
	}
	msg := strings.ToLower(err.Error())
	return strings.Contains(msg, "unique constraint") ||
		strings.Contains(msg, "duplicate key")
}
