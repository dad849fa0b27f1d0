package models

import (
	"encoding/json"
	"time"
)

// Setting stores one keyed configuration value as raw JSON.
type Setting struct {
	Key   string          `gorm:"primaryKey;type:text"` // Setting key.
	Value json.RawMessage `gorm:"type:jsonb"`           // Raw JSON value.

	UpdatedAt time.Time `gorm:"not null;autoUpdateTime"` // Last update timestamp.
}
