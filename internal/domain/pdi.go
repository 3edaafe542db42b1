package domain

import (
	"time"

	"gorm.io/gorm"
)

// PDI response statuses.
const (
	PDIPass = "PASS"
	PDIFail = "FAIL"
	PDIWarn = "WARN"
)

// PDIInspectionCompleted is the only inspection status written in observed
// flows: reports are created already completed, with the checklist filled in.
const PDIInspectionCompleted = "COMPLETED"

// PDISection groups checklist items (e.g. "Engine Bay", "Electricals").
// Sections and their items form the global checklist template maintained by
// admins; Position drives display order.
type PDISection struct {
	ID        string    `json:"id"       gorm:"type:char(36);primaryKey"`
	Title     string    `json:"title"    gorm:"type:varchar(255);not null"`
	Position  int       `json:"position" gorm:"not null;index"`
	CreatedAt time.Time `json:"created_at"`
	UpdatedAt time.Time `json:"updated_at"`

	Items []PDIItem `json:"items" gorm:"foreignKey:SectionID"`
}

// TableName returns the database table name for PDISection.
func (PDISection) TableName() string { return "pdi_sections" }

// PDIItem is one checklist entry within a section.
type PDIItem struct {
	ID        string    `json:"id"         gorm:"type:char(36);primaryKey"`
	SectionID string    `json:"section_id" gorm:"type:char(36);not null;index:idx_section_items"`
	Label     string    `json:"label"      gorm:"type:varchar(255);not null"`
	Position  int       `json:"position"   gorm:"not null;index"`
	CreatedAt time.Time `json:"created_at"`
	UpdatedAt time.Time `json:"updated_at"`

	Section PDISection `json:"-" gorm:"foreignKey:SectionID;references:ID;constraint:OnUpdate:CASCADE,OnDelete:CASCADE"`
}

// TableName returns the database table name for PDIItem.
func (PDIItem) TableName() string { return "pdi_items" }

// PDILeakageItem is an entry of the secondary fluid-leak checklist, distinct
// from the general pass/fail template.
type PDILeakageItem struct {
	ID        string    `json:"id"       gorm:"type:char(36);primaryKey"`
	Label     string    `json:"label"    gorm:"type:varchar(255);not null"`
	Position  int       `json:"position" gorm:"not null;index"`
	CreatedAt time.Time `json:"created_at"`
	UpdatedAt time.Time `json:"updated_at"`
}

// TableName returns the database table name for PDILeakageItem.
func (PDILeakageItem) TableName() string { return "pdi_leakage_items" }

// PDIInspection is a completed vehicle inspection report. It is created
// atomically with its responses in one transaction; images are attached as a
// secondary best-effort step after commit.
//
// UserID may be null only when no email or mobile was resolvable to (or
// creatable as) a user account for the customer.
type PDIInspection struct {
	ID     string  `json:"id"      gorm:"type:char(36);primaryKey"`
	UserID *string `json:"user_id,omitempty" gorm:"type:char(36);index:idx_user_inspections"`

	CustomerName   string  `json:"customer_name"   gorm:"type:varchar(255);not null"`
	CustomerEmail  string  `json:"customer_email"  gorm:"type:varchar(255)"`
	CustomerMobile *string `json:"customer_mobile,omitempty" gorm:"type:varchar(32)"`

	VehicleMake    string `json:"vehicle_make"    gorm:"type:varchar(64)"`
	VehicleModel   string `json:"vehicle_model"   gorm:"type:varchar(64)"`
	VehicleYear    int    `json:"vehicle_year"`
	RegistrationNo string `json:"registration_no" gorm:"type:varchar(32)"`
	ChassisNo      string `json:"chassis_no"      gorm:"type:varchar(64)"`
	OdometerKM     int    `json:"odometer_km"`

	Status            string    `json:"status" gorm:"type:varchar(16);not null;default:'COMPLETED'"`
	DigitalSignature  string    `json:"digital_signature"  gorm:"type:text"`
	CustomerSignature string    `json:"customer_signature" gorm:"type:text"`
	InspectionDate    time.Time `json:"inspection_date" gorm:"not null"`

	CreatedAt time.Time      `json:"created_at" gorm:"index"`
	UpdatedAt time.Time      `json:"updated_at"`
	DeletedAt gorm.DeletedAt `json:"-" gorm:"index"`

	Responses        []PDIResponse        `json:"responses"         gorm:"foreignKey:InspectionID"`
	LeakageResponses []PDILeakageResponse `json:"leakage_responses" gorm:"foreignKey:InspectionID"`
	Images           []PDIImage           `json:"images"            gorm:"foreignKey:InspectionID"`
	User             *User                `json:"-"                 gorm:"foreignKey:UserID;references:ID"`

	// Customer is the minimal account projection exposed in API payloads;
	// nil for unlinked inspections. The full User record never serializes.
	Customer *UserRef `json:"customer,omitempty" gorm:"-"`
}

// TableName returns the database table name for PDIInspection.
func (PDIInspection) TableName() string { return "pdi_inspections" }

// AfterFind projects the preloaded account into the Customer field.
func (i *PDIInspection) AfterFind(*gorm.DB) error {
	i.Customer = i.User.Ref()
	return nil
}

// PDIResponse is one line item of an inspection: a reference to a template
// item plus a PASS/FAIL/WARN verdict and free-text notes. Responses are
// immutable after creation.
type PDIResponse struct {
	ID           string    `json:"id"            gorm:"type:char(36);primaryKey"`
	InspectionID string    `json:"inspection_id" gorm:"type:char(36);not null;index:idx_inspection_responses"`
	ItemID       string    `json:"item_id"       gorm:"type:char(36);not null;index"`
	Status       string    `json:"status"        gorm:"type:varchar(8);not null;check:status IN ('PASS','FAIL','WARN')"`
	Notes        string    `json:"notes"         gorm:"type:text"`
	CreatedAt    time.Time `json:"created_at"`

	Inspection PDIInspection `json:"-" gorm:"foreignKey:InspectionID;references:ID;constraint:OnUpdate:CASCADE,OnDelete:CASCADE"`
	Item       PDIItem       `json:"item" gorm:"foreignKey:ItemID;references:ID;constraint:OnUpdate:CASCADE,OnDelete:RESTRICT"`
}

// TableName returns the database table name for PDIResponse.
func (PDIResponse) TableName() string { return "pdi_responses" }

// PDILeakageResponse is one finding of the fluid-leak checklist.
type PDILeakageResponse struct {
	ID           string    `json:"id"            gorm:"type:char(36);primaryKey"`
	InspectionID string    `json:"inspection_id" gorm:"type:char(36);not null;index:idx_inspection_leaks"`
	ItemID       string    `json:"item_id"       gorm:"type:char(36);not null;index"`
	Status       string    `json:"status"        gorm:"type:varchar(8);not null;check:status IN ('PASS','FAIL','WARN')"`
	Notes        string    `json:"notes"         gorm:"type:text"`
	CreatedAt    time.Time `json:"created_at"`

	Inspection PDIInspection  `json:"-" gorm:"foreignKey:InspectionID;references:ID;constraint:OnUpdate:CASCADE,OnDelete:CASCADE"`
	Item       PDILeakageItem `json:"item" gorm:"foreignKey:ItemID;references:ID;constraint:OnUpdate:CASCADE,OnDelete:RESTRICT"`
}

// TableName returns the database table name for PDILeakageResponse.
func (PDILeakageResponse) TableName() string { return "pdi_leakage_responses" }

// PDIImage is photo metadata recorded after the image file has been moved
// from its temporary upload path into the per-inspection media directory.
type PDIImage struct {
	ID           string    `json:"id"            gorm:"type:char(36);primaryKey"`
	InspectionID string    `json:"inspection_id" gorm:"type:char(36);not null;index:idx_inspection_images"`
	FileName     string    `json:"file_name"     gorm:"type:varchar(255);not null"`
	FileURL      string    `json:"file_url"      gorm:"type:varchar(512);not null"`
	UploadedAt   time.Time `json:"uploaded_at"   gorm:"not null;index"`

	Inspection PDIInspection `json:"-" gorm:"foreignKey:InspectionID;references:ID;constraint:OnUpdate:CASCADE,OnDelete:CASCADE"`
}

// TableName returns the database table name for PDIImage.
func (PDIImage) TableName() string { return "pdi_images" }
