package models

import "time"

// OneTimeCode stores the hashed 6-digit login code issued during provisioning.
// Only the hash is persisted; the display code is surfaced once through the
// notification collaborator.
type OneTimeCode struct {
	BaseModel

	AccountID  string    `gorm:"uniqueIndex;type:uuid;not null" json:"account_id"`
	CodeHash   string    `gorm:"size:64;not null" json:"-"`
	ExpiresAt  time.Time `gorm:"index;not null" json:"expires_at"`
	Attempts   int       `gorm:"default:0" json:"attempts"`
	LastSentAt time.Time `json:"last_sent_at"`
}
