package models

import "gorm.io/datatypes"

// Role extensions attach role-specific data 1:1 to an Account. Exactly one
// variant exists per account, matching Account.Role; rows are created with
// their parent and removed with it (cascade).

// CustomerExtension holds optional free-form customer preferences.
type CustomerExtension struct {
	BaseModel

	AccountID   string         `gorm:"uniqueIndex;type:uuid;not null" json:"account_id"`
	Account     *Account       `gorm:"constraint:OnDelete:CASCADE" json:"-"`
	Preferences datatypes.JSON `json:"preferences,omitempty"`
}

// OrganizerExtension carries the business identity of an event organizer.
type OrganizerExtension struct {
	BaseModel

	AccountID      string   `gorm:"uniqueIndex;type:uuid;not null" json:"account_id"`
	Account        *Account `gorm:"constraint:OnDelete:CASCADE" json:"-"`
	CompanyName    string   `json:"company_name"`
	CompanyAddress string   `json:"company_address"`
	BusinessEmail  string   `json:"business_email"`
	BusinessPhone  string   `json:"business_phone"`
}

// CoordinatorExtension describes a coordinator's specialization. The organizer
// link is assigned by a separate flow after creation and stays empty here.
type CoordinatorExtension struct {
	BaseModel

	AccountID      string   `gorm:"uniqueIndex;type:uuid;not null" json:"account_id"`
	Account        *Account `gorm:"constraint:OnDelete:CASCADE" json:"-"`
	Specialization string   `json:"specialization"`
	OrganizerID    *string  `gorm:"type:uuid" json:"organizer_id,omitempty"`
}

// VenueAdminExtension links a venue administrator to a venue. The venue is
// assigned after creation, never during provisioning.
type VenueAdminExtension struct {
	BaseModel

	AccountID string   `gorm:"uniqueIndex;type:uuid;not null" json:"account_id"`
	Account   *Account `gorm:"constraint:OnDelete:CASCADE" json:"-"`
	VenueID   *string  `gorm:"type:uuid" json:"venue_id,omitempty"`
}

// DefaultAdministratorPosition is applied when an administrator is provisioned
// without an explicit position.
const DefaultAdministratorPosition = "System Administrator"

// AdministratorExtension records an administrator's position and duties.
type AdministratorExtension struct {
	BaseModel

	AccountID       string   `gorm:"uniqueIndex;type:uuid;not null" json:"account_id"`
	Account         *Account `gorm:"constraint:OnDelete:CASCADE" json:"-"`
	Position        string   `gorm:"not null" json:"position"`
	RoleDescription string   `json:"role_description"`
}
