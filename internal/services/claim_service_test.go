package services

import (
	"context"
	"errors"
	"fmt"
	"regexp"
	"testing"
	"time"

	"github.com/rs/zerolog"
	"golang.org/x/crypto/bcrypt"
	"gorm.io/gorm"

	"github.com/tbourn/go-vehicle-backend/internal/domain"
	"github.com/tbourn/go-vehicle-backend/internal/repo"
)

func newClaimService(t *testing.T, name string) (*ClaimService, *gorm.DB, *fakeMailer) {
	t.Helper()
	db := newServiceDB(t, name)
	m := &fakeMailer{}
	svc := &ClaimService{
		DB:        db,
		Identity:  &IdentityService{BcryptCost: bcrypt.MinCost},
		Mailer:    m,
		Log:       zerolog.Nop(),
		TxTimeout: 5 * time.Second,
	}
	return svc, db, m
}

var claimNumberRE = regexp.MustCompile(`^CLM-\d{4}-\d{5}$`)

func TestClaimCreate_NumberFormatAndSequence(t *testing.T) {
	svc, db, _ := newClaimService(t, "claim_numbers")
	u := seedUser(t, db, "claims@example.com", nil)
	ctx := context.Background()

	first, err := svc.Create(ctx, u.ID, ClaimInput{PolicyNumber: "POL-1001"})
	if err != nil {
		t.Fatalf("create: %v", err)
	}
	if !claimNumberRE.MatchString(first.ClaimNumber) {
		t.Fatalf("claim number %q does not match CLM-YYYY-NNNNN", first.ClaimNumber)
	}
	year := time.Now().UTC().Year()
	want := fmt.Sprintf("CLM-%d-00001", year)
	if first.ClaimNumber != want {
		t.Fatalf("first claim number = %q; want %q", first.ClaimNumber, want)
	}

	second, err := svc.Create(ctx, u.ID, ClaimInput{PolicyNumber: "POL-1002"})
	if err != nil {
		t.Fatalf("create second: %v", err)
	}
	if second.ClaimNumber != fmt.Sprintf("CLM-%d-00002", year) {
		t.Fatalf("second claim number = %q", second.ClaimNumber)
	}
}

func TestClaimCreate_StatusDocumentsAndAuditTrail(t *testing.T) {
	svc, db, _ := newClaimService(t, "claim_create")
	u := seedUser(t, db, "docs@example.com", nil)
	ctx := context.Background()

	claim, err := svc.Create(ctx, u.ID, ClaimInput{
		PolicyNumber:    "POL-2001",
		VehicleMake:     "Tata",
		VehicleModel:    "Nexon",
		VehicleYear:     2024,
		EstimatedDamage: 45000,
		Documents: []DocumentInput{
			{FileName: "front.jpg", FileURL: "/media/claims/front.jpg", FileType: domain.FileTypePhoto},
			{FileName: "scan.pdf", FileURL: "/media/claims/scan.pdf"}, // no type
		},
	})
	if err != nil {
		t.Fatalf("create: %v", err)
	}
	if claim.Status != domain.ClaimSubmitted || claim.Source != domain.SourceOnline {
		t.Fatalf("unexpected status/source: %q/%q", claim.Status, claim.Source)
	}

	got, err := svc.Get(ctx, claim.ID)
	if err != nil {
		t.Fatalf("get: %v", err)
	}
	if len(got.Documents) != 2 {
		t.Fatalf("documents = %d; want 2", len(got.Documents))
	}
	for _, d := range got.Documents {
		if d.FileName == "scan.pdf" && d.FileType != domain.FileTypeOther {
			t.Fatalf("missing file type should default to OTHER, got %q", d.FileType)
		}
	}

	events, err := svc.Events(ctx, claim.ID)
	if err != nil {
		t.Fatalf("events: %v", err)
	}
	if len(events) != 1 || events[0].Status != domain.ClaimSubmitted || events[0].CreatedBy != "customer" {
		t.Fatalf("unexpected initial audit trail: %+v", events)
	}
}

func TestClaimCreateWalkIn_ProvisionsCustomerAtomically(t *testing.T) {
	svc, db, m := newClaimService(t, "claim_walkin")
	ctx := context.Background()

	out, err := svc.CreateWalkIn(ctx, WalkInClaimInput{
		ClaimInput:    ClaimInput{PolicyNumber: "POL-3001"},
		CustomerName:  "Walk In",
		CustomerEmail: "walkin@example.com",
		EnteredBy:     "agent-7",
	})
	if err != nil {
		t.Fatalf("walk-in: %v", err)
	}
	if !out.NewUserCreated {
		t.Fatalf("expected a provisioned account")
	}
	if out.Claim.Source != domain.SourceWalkIn {
		t.Fatalf("source = %q", out.Claim.Source)
	}

	u, err := repo.FindUserByEmail(ctx, db, "walkin@example.com")
	if err != nil {
		t.Fatalf("provisioned user missing: %v", err)
	}
	if out.Claim.UserID != u.ID {
		t.Fatalf("claim not linked to provisioned user")
	}
	if m.welcomeCount() != 1 {
		t.Fatalf("welcome mails = %d; want 1", m.welcomeCount())
	}

	events, err := svc.Events(ctx, out.Claim.ID)
	if err != nil || len(events) != 1 {
		t.Fatalf("events: %v (%d)", err, len(events))
	}
	if events[0].CreatedBy != "agent-7" {
		t.Fatalf("audit author = %q; want agent-7", events[0].CreatedBy)
	}

	// existing customer: no second account, no second welcome
	out2, err := svc.CreateWalkIn(ctx, WalkInClaimInput{
		ClaimInput:    ClaimInput{PolicyNumber: "POL-3002"},
		CustomerEmail: "walkin@example.com",
	})
	if err != nil {
		t.Fatalf("second walk-in: %v", err)
	}
	if out2.NewUserCreated || out2.Claim.UserID != u.ID {
		t.Fatalf("expected reuse of existing account")
	}
	if m.welcomeCount() != 1 {
		t.Fatalf("welcome mails after reuse = %d; want 1", m.welcomeCount())
	}
}

func TestClaimCreateWalkIn_UnresolvedAndConflict(t *testing.T) {
	svc, db, m := newClaimService(t, "claim_walkin_err")
	ctx := context.Background()

	// mobile only, no matching account: claim cannot be owned
	_, err := svc.CreateWalkIn(ctx, WalkInClaimInput{
		ClaimInput:     ClaimInput{PolicyNumber: "POL-4001"},
		CustomerName:   "No Mail",
		CustomerMobile: strPtr("123123123"),
	})
	if !errors.Is(err, ErrCustomerUnresolved) {
		t.Fatalf("expected ErrCustomerUnresolved, got %v", err)
	}
	var n int64
	if db.Model(&domain.InsuranceClaim{}).Count(&n); n != 0 {
		t.Fatalf("claim persisted despite rollback: %d", n)
	}
	if m.welcomeCount() != 0 {
		t.Fatalf("no mail expected for a rolled-back submission")
	}

	a := seedUser(t, db, "owner-a@example.com", nil)
	b := seedUser(t, db, "owner-b@example.com", strPtr("555666777"))
	_, err = svc.CreateWalkIn(ctx, WalkInClaimInput{
		ClaimInput:     ClaimInput{PolicyNumber: "POL-4002"},
		CustomerEmail:  a.Email,
		CustomerMobile: b.Mobile,
	})
	if !errors.Is(err, ErrIdentityConflict) {
		t.Fatalf("expected ErrIdentityConflict, got %v", err)
	}
}

func TestClaimUpdateStatus(t *testing.T) {
	svc, db, _ := newClaimService(t, "claim_status")
	u := seedUser(t, db, "status@example.com", nil)
	ctx := context.Background()

	claim, err := svc.Create(ctx, u.ID, ClaimInput{PolicyNumber: "POL-5001"})
	if err != nil {
		t.Fatalf("create: %v", err)
	}

	if _, err := svc.UpdateStatus(ctx, claim.ID, "LOST", "", "admin"); !errors.Is(err, ErrUnknownClaimStatus) {
		t.Fatalf("expected ErrUnknownClaimStatus, got %v", err)
	}
	if _, err := svc.UpdateStatus(ctx, "no-such-claim", domain.ClaimApproved, "", "admin"); !errors.Is(err, ErrClaimNotFound) {
		t.Fatalf("expected ErrClaimNotFound, got %v", err)
	}

	updated, err := svc.UpdateStatus(ctx, claim.ID, domain.ClaimUnderReview, "checking photos", "reviewer-1")
	if err != nil {
		t.Fatalf("update: %v", err)
	}
	if updated.Status != domain.ClaimUnderReview || updated.AdminNotes != "checking photos" {
		t.Fatalf("unexpected result: %+v", updated)
	}

	got, err := svc.Get(ctx, claim.ID)
	if err != nil {
		t.Fatalf("get: %v", err)
	}
	if got.Status != domain.ClaimUnderReview || got.ReviewedBy != "reviewer-1" || got.ReviewedAt == nil {
		t.Fatalf("status write not persisted: %+v", got)
	}

	events, err := svc.Events(ctx, claim.ID)
	if err != nil {
		t.Fatalf("events: %v", err)
	}
	if len(events) != 2 || events[1].Status != domain.ClaimUnderReview || events[1].CreatedBy != "reviewer-1" {
		t.Fatalf("audit trail: %+v", events)
	}

	// owner gets exactly one notification per status write
	var notes []domain.Notification
	if err := db.Where("user_id = ?", u.ID).Find(&notes).Error; err != nil {
		t.Fatalf("notifications: %v", err)
	}
	if len(notes) != 1 || notes[0].Type != domain.NotificationInsuranceClaim {
		t.Fatalf("notifications: %+v", notes)
	}
}

func TestClaimAttachPDF(t *testing.T) {
	svc, db, m := newClaimService(t, "claim_pdf")
	u := seedUser(t, db, "pdf@example.com", nil)
	ctx := context.Background()

	claim, err := svc.Create(ctx, u.ID, ClaimInput{PolicyNumber: "POL-6001"})
	if err != nil {
		t.Fatalf("create: %v", err)
	}

	if _, err := svc.AttachPDF(ctx, "nope", "/media/x.pdf"); !errors.Is(err, ErrClaimNotFound) {
		t.Fatalf("expected ErrClaimNotFound, got %v", err)
	}

	got, err := svc.AttachPDF(ctx, claim.ID, "/media/claims/"+claim.ID+".pdf")
	if err != nil {
		t.Fatalf("attach: %v", err)
	}
	if got.PDFURL == "" {
		t.Fatalf("pdf url not set")
	}

	stored, _ := svc.Get(ctx, claim.ID)
	if stored.PDFURL != got.PDFURL || stored.PDFGeneratedAt == nil {
		t.Fatalf("pdf stamp not persisted: %+v", stored)
	}
	if m.reportCount() != 1 {
		t.Fatalf("report-ready mails = %d; want 1", m.reportCount())
	}
}

func TestClaimList_FilterSearchPagination(t *testing.T) {
	svc, db, _ := newClaimService(t, "claim_list")
	u := seedUser(t, db, "lister@example.com", nil)
	ctx := context.Background()

	for i := 0; i < 3; i++ {
		if _, err := svc.Create(ctx, u.ID, ClaimInput{PolicyNumber: fmt.Sprintf("POL-70%02d", i)}); err != nil {
			t.Fatalf("seed claim %d: %v", i, err)
		}
	}
	wk, err := svc.CreateWalkIn(ctx, WalkInClaimInput{
		ClaimInput:    ClaimInput{PolicyNumber: "POL-7100"},
		CustomerEmail: "other@example.com",
	})
	if err != nil {
		t.Fatalf("walk-in: %v", err)
	}
	if _, err := svc.UpdateStatus(ctx, wk.Claim.ID, domain.ClaimApproved, "", "admin"); err != nil {
		t.Fatalf("approve: %v", err)
	}

	all, err := svc.List(ctx, ListFilter{})
	if err != nil {
		t.Fatalf("list: %v", err)
	}
	if all.Total != 4 || len(all.Claims) != 4 {
		t.Fatalf("total=%d len=%d; want 4/4", all.Total, len(all.Claims))
	}

	approved, err := svc.List(ctx, ListFilter{Status: domain.ClaimApproved})
	if err != nil || approved.Total != 1 {
		t.Fatalf("status filter: total=%d err=%v", approved.Total, err)
	}
	walkins, err := svc.List(ctx, ListFilter{Source: domain.SourceWalkIn})
	if err != nil || walkins.Total != 1 {
		t.Fatalf("source filter: total=%d err=%v", walkins.Total, err)
	}

	byPolicy, err := svc.List(ctx, ListFilter{Search: "POL-7100"})
	if err != nil || byPolicy.Total != 1 {
		t.Fatalf("policy search: total=%d err=%v", byPolicy.Total, err)
	}
	byEmail, err := svc.List(ctx, ListFilter{Search: "other@example.com"})
	if err != nil || byEmail.Total != 1 {
		t.Fatalf("email search: total=%d err=%v", byEmail.Total, err)
	}
	// The admin view shows who the claim belongs to.
	if cust := byEmail.Claims[0].Customer; cust == nil || cust.Email != "other@example.com" {
		t.Fatalf("owner projection missing from admin list: %+v", cust)
	}
	none, err := svc.List(ctx, ListFilter{Search: "zzz-no-match"})
	if err != nil || none.Total != 0 || len(none.Claims) != 0 {
		t.Fatalf("empty search: %+v err=%v", none, err)
	}

	page, err := svc.List(ctx, ListFilter{Page: 2, PageSize: 3})
	if err != nil {
		t.Fatalf("page: %v", err)
	}
	if page.Total != 4 || len(page.Claims) != 1 {
		t.Fatalf("page 2 of 3: total=%d len=%d", page.Total, len(page.Claims))
	}
	if page.Pagination.TotalPages != 2 {
		t.Fatalf("total pages = %d; want 2", page.Pagination.TotalPages)
	}

	mine, err := svc.ListForUser(ctx, u.ID, 1, 10, domain.SourceOnline)
	if err != nil || mine.Total != 3 {
		t.Fatalf("user online claims: total=%d err=%v", mine.Total, err)
	}
	mineAll, err := svc.ListForUser(ctx, u.ID, 1, 10, "")
	if err != nil || mineAll.Total != 3 {
		t.Fatalf("user all claims: total=%d err=%v", mineAll.Total, err)
	}
}

func TestClaimStats(t *testing.T) {
	svc, db, _ := newClaimService(t, "claim_stats")
	u := seedUser(t, db, "stats@example.com", nil)
	ctx := context.Background()

	c1, _ := svc.Create(ctx, u.ID, ClaimInput{EstimatedDamage: 100})
	if _, err := svc.Create(ctx, u.ID, ClaimInput{EstimatedDamage: 250}); err != nil {
		t.Fatalf("create: %v", err)
	}
	if _, err := svc.UpdateStatus(ctx, c1.ID, domain.ClaimApproved, "", "admin"); err != nil {
		t.Fatalf("approve: %v", err)
	}

	stats, err := svc.Stats(ctx)
	if err != nil {
		t.Fatalf("stats: %v", err)
	}
	if stats.Total != 2 {
		t.Fatalf("total = %d; want 2", stats.Total)
	}
	if stats.ByStatus[domain.ClaimApproved] != 1 || stats.ByStatus[domain.ClaimSubmitted] != 1 {
		t.Fatalf("by status: %+v", stats.ByStatus)
	}
	// every known status is present, zero or not
	for _, s := range domain.ClaimStatuses {
		if _, ok := stats.ByStatus[s]; !ok {
			t.Fatalf("status %q missing from stats", s)
		}
	}
	if stats.EstimatedDamageTotal != 350 {
		t.Fatalf("damage total = %v; want 350", stats.EstimatedDamageTotal)
	}
}

func TestCreateWithUniqueNumber_RetriesAndGivesUp(t *testing.T) {
	svc, _, _ := newClaimService(t, "claim_retry")

	dup := errors.New("UNIQUE constraint failed: insurance_claims.claim_number")

	// persistent duplicates exhaust the attempts
	calls := 0
	err := svc.createWithUniqueNumber(context.Background(), func(context.Context, *gorm.DB) error {
		calls++
		return dup
	})
	if !errors.Is(err, ErrClaimNumberExhausted) {
		t.Fatalf("expected ErrClaimNumberExhausted, got %v", err)
	}
	if calls != claimNumberAttempts {
		t.Fatalf("attempts = %d; want %d", calls, claimNumberAttempts)
	}

	// a duplicate followed by success is transparent
	calls = 0
	err = svc.createWithUniqueNumber(context.Background(), func(context.Context, *gorm.DB) error {
		calls++
		if calls == 1 {
			return dup
		}
		return nil
	})
	if err != nil || calls != 2 {
		t.Fatalf("retry then success: calls=%d err=%v", calls, err)
	}

	// non-duplicate failures are not retried
	boom := errors.New("disk on fire")
	calls = 0
	err = svc.createWithUniqueNumber(context.Background(), func(context.Context, *gorm.DB) error {
		calls++
		return boom
	})
	if !errors.Is(err, boom) || calls != 1 {
		t.Fatalf("non-duplicate: calls=%d err=%v", calls, err)
	}
}

func Test_nextClaimNumber_YearPrefix(t *testing.T) {
	svc, db, _ := newClaimService(t, "claim_year")
	ctx := context.Background()

	now := time.Date(2031, 3, 1, 0, 0, 0, 0, time.UTC)
	n, err := svc.nextClaimNumber(ctx, db, now)
	if err != nil {
		t.Fatalf("next: %v", err)
	}
	if n != "CLM-2031-00001" {
		t.Fatalf("first of year = %q", n)
	}

	// continues from the year's greatest allocated number
	u := seedUser(t, db, "year@example.com", nil)
	seeded := &domain.InsuranceClaim{
		ID:          "seeded-claim",
		ClaimNumber: "CLM-2031-00041",
		UserID:      u.ID,
		Source:      domain.SourceOnline,
		Status:      domain.ClaimSubmitted,
	}
	if err := db.Create(seeded).Error; err != nil {
		t.Fatalf("seed claim: %v", err)
	}
	next, err := svc.nextClaimNumber(ctx, db, now)
	if err != nil {
		t.Fatalf("next after seed: %v", err)
	}
	if next != "CLM-2031-00042" {
		t.Fatalf("next = %q; want CLM-2031-00042", next)
	}

	// numbers restart per year
	otherYear, err := svc.nextClaimNumber(ctx, db, now.AddDate(1, 0, 0))
	if err != nil {
		t.Fatalf("next year: %v", err)
	}
	if otherYear != "CLM-2032-00001" {
		t.Fatalf("next year's first = %q", otherYear)
	}
}
