package models

import (
	"time"

	"gorm.io/datatypes"
)

// AuditLog records security-relevant actions across the platform.
type AuditLog struct {
	BaseModel

	UserID    string         `gorm:"type:uuid;index" json:"user_id"`
	Action    string         `gorm:"not null;index" json:"action"`
	Resource  string         `gorm:"index" json:"resource"`
	TargetID  string         `json:"target_id"`
	IPAddress string         `json:"ip_address"`
	UserAgent string         `json:"user_agent"`
	Success   bool           `gorm:"default:true" json:"success"`
	Details   datatypes.JSON `json:"details,omitempty"`
	Timestamp time.Time      `gorm:"index" json:"timestamp"`
}
