package models

// AccountRole is the closed set of platform roles. A role is assigned once at
// provisioning time and never changes afterwards.
type AccountRole string

const (
	RoleCustomer       AccountRole = "customer"
	RoleEventOrganizer AccountRole = "event_organizer"
	RoleCoordinator    AccountRole = "coordinator"
	RoleVenueAdmin     AccountRole = "venue_admin"
	RoleAdministrator  AccountRole = "administrator"
)

// AllRoles lists every supported role in display order.
func AllRoles() []AccountRole {
	return []AccountRole{
		RoleCustomer,
		RoleEventOrganizer,
		RoleCoordinator,
		RoleVenueAdmin,
		RoleAdministrator,
	}
}

// Valid reports whether the role belongs to the closed set.
func (r AccountRole) Valid() bool {
	switch r {
	case RoleCustomer, RoleEventOrganizer, RoleCoordinator, RoleVenueAdmin, RoleAdministrator:
		return true
	}
	return false
}

// Account is the primary identity record, one per platform user. It is the
// aggregate root owning exactly one role extension, one verification token,
// and one one-time code.
type Account struct {
	BaseModel

	Email     string      `gorm:"uniqueIndex;not null" json:"email"`
	FirstName string      `gorm:"not null" json:"first_name"`
	LastName  string      `gorm:"not null" json:"last_name"`
	Phone     string      `json:"phone,omitempty"`
	Role      AccountRole `gorm:"not null;index" json:"role"`

	// CredentialRef is the opaque identifier returned by the authentication
	// provider when the credential pair was created.
	CredentialRef string `gorm:"not null" json:"-"`

	AvatarURL string `json:"avatar_url,omitempty"`
	IsActive  bool   `gorm:"default:true" json:"is_active"`

	Verification *VerificationToken `gorm:"foreignKey:AccountID;constraint:OnDelete:CASCADE" json:"-"`
	OneTimeCode  *OneTimeCode       `gorm:"foreignKey:AccountID;constraint:OnDelete:CASCADE" json:"-"`
}
