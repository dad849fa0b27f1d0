package models

import "time"

// Device represents a distinct device signature seen for a user.
type Device struct {
	ID uint64 `gorm:"primaryKey;autoIncrement"` // Primary key.

	UserID      uint64 `gorm:"not null;index;uniqueIndex:idx_devices_user_fingerprint"` // Owning user ID.
	Fingerprint string `gorm:"type:text;not null;uniqueIndex:idx_devices_user_fingerprint"` // Deterministic device hash.

	Device string `gorm:"type:text"` // Free-text device descriptor.

	Trusted   bool    `gorm:"not null;default:false"`        // Set by explicit action, never inferred.
	RiskScore float64 `gorm:"type:decimal(5,2);not null;default:0"` // Last computed risk score.

	FirstSeen time.Time `gorm:"not null"` // First login attempt from this device.
	LastSeen  time.Time `gorm:"not null"` // Most recent login attempt.

	CreatedAt time.Time `gorm:"not null;autoCreateTime"` // Creation timestamp.
	UpdatedAt time.Time `gorm:"not null;autoUpdateTime"` // Last update timestamp.
}

// LoginRecord is one append-only login history entry for a device.
type LoginRecord struct {
	ID uint64 `gorm:"primaryKey;autoIncrement"` // Primary key.

	UserID      uint64 `gorm:"not null;index:idx_login_records_user_fp"` // Owning user ID.
	Fingerprint string `gorm:"type:text;not null;index:idx_login_records_user_fp"` // Device hash.

	IP       string `gorm:"type:text"`     // Originating address.
	Success  bool   `gorm:"not null"`      // Whether the attempt succeeded.
	Location string `gorm:"type:text"`     // Coarse location label, externally supplied.

	AttemptedAt time.Time `gorm:"not null;index"` // When the attempt happened.
}
