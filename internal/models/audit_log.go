package models

// AuditLog records provisioning and account lifecycle events with enough
// context (action, resource, metadata) to support manual reconciliation of
// partial failures.
type AuditLog struct {
	BaseModel

	AccountID *string `gorm:"type:uuid;index" json:"account_id,omitempty"`
	Action    string  `gorm:"index;not null" json:"action"`
	Resource  string  `gorm:"index" json:"resource"`
	Result    string  `gorm:"index;not null" json:"result"`
	Metadata  string  `json:"metadata,omitempty"`
}
