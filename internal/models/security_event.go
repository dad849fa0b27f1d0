package models

import (
	"time"

	"gorm.io/datatypes"
)

// SecurityEvent is an immutable, append-only security log entry.
type SecurityEvent struct {
	ID uint64 `gorm:"primaryKey;autoIncrement"` // Primary key.

	Type     string `gorm:"type:text;not null;index"` // Event type from the fixed taxonomy.
	Severity string `gorm:"type:text;not null;index"` // INFO, WARNING, ALERT, or CRITICAL.

	UserID *uint64 `gorm:"index"` // Related user, nil when unresolvable.

	IP        string `gorm:"type:text"` // Client address.
	UserAgent string `gorm:"type:text"` // Client user agent.

	Details  string         `gorm:"type:text"`  // Human-readable description.
	Metadata datatypes.JSON `gorm:"type:jsonb"` // Optional structured payload.

	Timestamp time.Time `gorm:"not null;index"` // Event time, assigned at log time when absent.
}
