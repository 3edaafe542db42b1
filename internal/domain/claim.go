package domain

import (
	"time"

	"gorm.io/gorm"
)

// Claim sources.
const (
	SourceOnline = "ONLINE"
	SourceWalkIn = "WALK_IN"
)

// Claim statuses. Transitions are advisory: SUBMITTED → UNDER_REVIEW →
// {APPROVED | REJECTED | PENDING_DOCUMENTS} → COMPLETED, with
// PENDING_DOCUMENTS allowed back to UNDER_REVIEW. REJECTED and COMPLETED
// are terminal by convention; the service layer accepts any known status
// from an admin update.
const (
	ClaimSubmitted        = "SUBMITTED"
	ClaimUnderReview      = "UNDER_REVIEW"
	ClaimApproved         = "APPROVED"
	ClaimRejected         = "REJECTED"
	ClaimPendingDocuments = "PENDING_DOCUMENTS"
	ClaimCompleted        = "COMPLETED"
)

// ClaimStatuses lists every status an admin update may write.
var ClaimStatuses = []string{
	ClaimSubmitted,
	ClaimUnderReview,
	ClaimApproved,
	ClaimRejected,
	ClaimPendingDocuments,
	ClaimCompleted,
}

// Document file types.
const (
	FileTypePhoto    = "PHOTO"
	FileTypePolicy   = "POLICY"
	FileTypeEstimate = "ESTIMATE"
	FileTypeOther    = "OTHER"
)

// InsuranceClaim represents a single claim submission. The claim number is
// unique and immutable after creation; rows are never physically deleted in
// observed flows (soft delete retains them for audit).
//
// Fields:
//   - ClaimNumber: human-facing identifier, format CLM-YYYY-NNNNN, unique.
//   - UserID: owning customer, resolved before creation, never null.
//   - Source: ONLINE (self-service) or WALK_IN (staff-entered).
//   - Status: see the status constants above.
//   - Vehicle/policy/incident detail fields are optional except the subset
//     the transport layer requires.
//   - AdminNotes / ReviewedBy / ReviewedAt: stamped by status updates.
//   - PDFURL / PDFGeneratedAt: stamped when the claim report is rendered.
type InsuranceClaim struct {
	ID          string `json:"id"           gorm:"type:char(36);primaryKey"`
	ClaimNumber string `json:"claim_number" gorm:"type:varchar(20);not null;uniqueIndex"`
	UserID      string `json:"user_id"      gorm:"type:char(36);not null;index:idx_user_claims"`
	Source      string `json:"source"       gorm:"type:varchar(16);not null;check:source IN ('ONLINE','WALK_IN')"`
	Status      string `json:"status"       gorm:"type:varchar(32);not null;default:'SUBMITTED'"`

	PolicyNumber     string     `json:"policy_number"     gorm:"type:varchar(64);index"`
	VehicleMake      string     `json:"vehicle_make"      gorm:"type:varchar(64)"`
	VehicleModel     string     `json:"vehicle_model"     gorm:"type:varchar(64)"`
	VehicleYear      int        `json:"vehicle_year"`
	RegistrationNo   string     `json:"registration_no"   gorm:"type:varchar(32)"`
	IncidentDate     *time.Time `json:"incident_date,omitempty"`
	IncidentLocation string     `json:"incident_location" gorm:"type:varchar(255)"`
	Description      string     `json:"description"       gorm:"type:text"`
	EstimatedDamage  float64    `json:"estimated_damage"`

	AdminNotes     string     `json:"admin_notes"  gorm:"type:text"`
	ReviewedBy     string     `json:"reviewed_by"  gorm:"type:varchar(255)"`
	ReviewedAt     *time.Time `json:"reviewed_at,omitempty"`
	PDFURL         string     `json:"pdf_url"      gorm:"type:varchar(512)"`
	PDFGeneratedAt *time.Time `json:"pdf_generated_at,omitempty"`

	CreatedAt time.Time      `json:"created_at"`
	UpdatedAt time.Time      `json:"updated_at"`
	DeletedAt gorm.DeletedAt `json:"-" gorm:"index"`

	// Documents are owned exclusively by the claim and cascade with it.
	Documents []InsuranceDocument `json:"documents" gorm:"foreignKey:ClaimID"`
	User      *User               `json:"-"         gorm:"foreignKey:UserID;references:ID"`

	// Customer is the minimal owner projection exposed in API payloads.
	// The full User record never serializes.
	Customer *UserRef `json:"customer,omitempty" gorm:"-"`
}

// TableName returns the database table name for InsuranceClaim.
func (InsuranceClaim) TableName() string { return "insurance_claims" }

// AfterFind projects the preloaded owner into the Customer field.
func (c *InsuranceClaim) AfterFind(*gorm.DB) error {
	c.Customer = c.User.Ref()
	return nil
}

// InsuranceDocument is file metadata attached to exactly one claim. Its
// lifecycle is bound to the parent claim.
type InsuranceDocument struct {
	ID        string    `json:"id"        gorm:"type:char(36);primaryKey"`
	ClaimID   string    `json:"claim_id"  gorm:"type:char(36);not null;index:idx_claim_documents"`
	FileName  string    `json:"file_name" gorm:"type:varchar(255);not null"`
	FileURL   string    `json:"file_url"  gorm:"type:varchar(512);not null"`
	FileType  string    `json:"file_type" gorm:"type:varchar(16);not null;check:file_type IN ('PHOTO','POLICY','ESTIMATE','OTHER')"`
	CreatedAt time.Time `json:"created_at"`

	Claim InsuranceClaim `json:"-" gorm:"foreignKey:ClaimID;references:ID;constraint:OnUpdate:CASCADE,OnDelete:CASCADE"`
}

// TableName returns the database table name for InsuranceDocument.
func (InsuranceDocument) TableName() string { return "insurance_documents" }

// ClaimStatusEvent is an append-only audit row recorded on every status
// write, including the initial SUBMITTED entry at creation.
type ClaimStatusEvent struct {
	ID        string    `json:"id"         gorm:"type:char(36);primaryKey"`
	ClaimID   string    `json:"claim_id"   gorm:"type:char(36);not null;index:idx_claim_events"`
	Status    string    `json:"status"     gorm:"type:varchar(32);not null"`
	CreatedBy string    `json:"created_by" gorm:"type:varchar(255);not null"`
	CreatedAt time.Time `json:"created_at"`

	Claim InsuranceClaim `json:"-" gorm:"foreignKey:ClaimID;references:ID;constraint:OnUpdate:CASCADE,OnDelete:CASCADE"`
}

// TableName returns the database table name for ClaimStatusEvent.
func (ClaimStatusEvent) TableName() string { return "claim_status_events" }
