package models

import "time"

// VerificationToken stores the hashed email-verification token issued during
// provisioning. Operator-created accounts are pre-marked verified; the token
// still exists so the notification collaborator can deliver it.
type VerificationToken struct {
	BaseModel

	AccountID  string    `gorm:"uniqueIndex;type:uuid;not null" json:"account_id"`
	TokenHash  string    `gorm:"size:64;index;not null" json:"-"`
	ExpiresAt  time.Time `gorm:"index;not null" json:"expires_at"`
	Verified   bool      `gorm:"default:false" json:"verified"`
	LastSentAt time.Time `json:"last_sent_at"`
}
