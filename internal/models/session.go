package models

import "time"

// Session represents one authenticated session owned by a user.
type Session struct {
	ID uint64 `gorm:"primaryKey;autoIncrement"` // Primary key, doubles as insertion order.

	UserID uint64 `gorm:"not null;index"`                 // Owning user ID.
	Token  string `gorm:"type:text;not null;uniqueIndex"` // Opaque session token.

	Device string `gorm:"type:text"` // Free-text device descriptor.
	IP     string `gorm:"type:text"` // Originating address.

	LastActivity time.Time `gorm:"not null;index"` // Most recent touch.
	ExpiresAt    time.Time `gorm:"not null;index"` // Validity bound.

	CreatedAt time.Time `gorm:"not null;autoCreateTime"` // Creation timestamp.
}
