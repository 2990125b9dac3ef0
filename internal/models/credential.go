package models

// Credential is the local realization of the authentication provider
// collaborator: one bcrypt-hashed credential per email. Accounts reference
// credentials only through the opaque id returned at creation time.
type Credential struct {
	BaseModel

	Email        string `gorm:"uniqueIndex;not null" json:"email"`
	PasswordHash string `gorm:"not null" json:"-"`
}
