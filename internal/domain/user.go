// Package domain defines the persistence models for the vehicle marketplace
// service core: users, insurance claims, PDI inspections, entitlement
// packages, and notifications. These types are mapped with GORM and are
// shared across the repository and service layers.
package domain

import (
	"time"

	"gorm.io/gorm"
)

// User roles.
const (
	RoleClient = "CLIENT"
	RoleDealer = "DEALER"
	RoleAgent  = "AGENT"
	RoleAdmin  = "ADMIN"
)

// User approval statuses.
const (
	UserPending  = "PENDING"
	UserApproved = "APPROVED"
	UserRejected = "REJECTED"
)

// User is an identity record. Accounts are created either through regular
// registration (out of scope here) or auto-provisioned when staff enter a
// walk-in claim or inspection on behalf of a customer who has no account yet.
//
// Fields:
//   - ID: stable UUID primary key (char(36)).
//   - Email: unique login/contact address; required.
//   - Mobile: optional contact number, indexed for walk-in lookup.
//   - Name: display name, normalized at provisioning time.
//   - PasswordHash: bcrypt hash; never the plaintext.
//   - Role: CLIENT, DEALER, AGENT or ADMIN (enforced by DB constraint).
//   - Status: approval status; auto-provisioned accounts start APPROVED.
//   - EmailVerified: true for auto-provisioned accounts (staff vouched).
type User struct {
	ID            string         `json:"id"             gorm:"type:char(36);primaryKey"`
	Email         string         `json:"email"          gorm:"type:varchar(255);not null;uniqueIndex"`
	Mobile        *string        `json:"mobile,omitempty" gorm:"type:varchar(32);index"`
	Name          string         `json:"name"           gorm:"type:varchar(255);not null"`
	PasswordHash  string         `json:"-"              gorm:"type:varchar(128);not null"`
	Role          string         `json:"role"           gorm:"type:varchar(16);not null;default:'CLIENT';check:role IN ('CLIENT','DEALER','AGENT','ADMIN')"`
	Status        string         `json:"status"         gorm:"type:varchar(16);not null;default:'PENDING';check:status IN ('PENDING','APPROVED','REJECTED')"`
	EmailVerified bool           `json:"email_verified" gorm:"not null;default:false"`
	CreatedAt     time.Time      `json:"created_at"`
	UpdatedAt     time.Time      `json:"updated_at"`
	DeletedAt     gorm.DeletedAt `json:"-"              gorm:"index"`
}

// TableName returns the database table name for User.
func (User) TableName() string { return "users" }

// UserRef is the minimal projection of a user embedded in claim and
// inspection payloads. Handlers never expose the full User record.
type UserRef struct {
	ID    string `json:"id"`
	Name  string `json:"name"`
	Email string `json:"email"`
}

// Ref returns the minimal projection of u.
func (u *User) Ref() *UserRef {
	if u == nil {
		return nil
	}
	return &UserRef{ID: u.ID, Name: u.Name, Email: u.Email}
}

// Package statuses.
const (
	PackageActive    = "ACTIVE"
	PackageExhausted = "EXHAUSTED"
)

// UserPackage is a purchased entitlement bundling a count of PDI inspections
// a client may consume. The remaining counter is only ever decremented (there
// is no refund path); status flips to EXHAUSTED when it reaches zero.
type UserPackage struct {
	ID           string    `json:"id"            gorm:"type:char(36);primaryKey"`
	UserID       string    `json:"user_id"       gorm:"type:char(36);not null;index:idx_user_packages"`
	PackageName  string    `json:"package_name"  gorm:"type:varchar(128);not null"`
	PDIRemaining int       `json:"pdi_remaining" gorm:"not null;check:pdi_remaining >= 0"`
	PDIUsed      int       `json:"pdi_used"      gorm:"not null;default:0"`
	Status       string    `json:"status"        gorm:"type:varchar(16);not null;default:'ACTIVE';check:status IN ('ACTIVE','EXHAUSTED')"`
	PurchasedAt  time.Time `json:"purchased_at"  gorm:"not null;index"`
	CreatedAt    time.Time `json:"created_at"`
	UpdatedAt    time.Time `json:"updated_at"`

	User User `json:"-" gorm:"foreignKey:UserID;references:ID;constraint:OnUpdate:CASCADE,OnDelete:CASCADE"`
}

// TableName returns the database table name for UserPackage.
func (UserPackage) TableName() string { return "user_packages" }

// Notification types.
const (
	NotificationInsuranceClaim = "INSURANCE_CLAIM"
	NotificationPDIReport      = "PDI_REPORT"
)

// Notification is a user-facing event record created as a side effect of
// claim status changes and report-ready events. Only the IsRead flag is
// ever mutated after creation.
type Notification struct {
	ID        string    `json:"id"      gorm:"type:char(36);primaryKey"`
	UserID    string    `json:"user_id" gorm:"type:char(36);not null;index:idx_user_notifications"`
	Type      string    `json:"type"    gorm:"type:varchar(32);not null"`
	Title     string    `json:"title"   gorm:"type:varchar(255);not null"`
	Message   string    `json:"message" gorm:"type:text;not null"`
	Link      string    `json:"link"    gorm:"type:varchar(512)"`
	IsRead    bool      `json:"is_read" gorm:"not null;default:false"`
	CreatedAt time.Time `json:"created_at"`

	User User `json:"-" gorm:"foreignKey:UserID;references:ID;constraint:OnUpdate:CASCADE,OnDelete:CASCADE"`
}

// TableName returns the database table name for Notification.
func (Notification) TableName() string { return "notifications" }
