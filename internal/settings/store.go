package settings

import (
	"context"
	"encoding/json"
	"sync"
	"time"

	"gorm.io/gorm"
)

// snapshot holds the latest settings rows keyed by setting key.
var (
	snapshotMu sync.RWMutex
	snapshot   map[string]json.RawMessage
)

// ReplaceSnapshot swaps the cached settings snapshot.
func ReplaceSnapshot(values map[string]json.RawMessage) {
	copied := make(map[string]json.RawMessage, len(values))
	for key, value := range values {
		copied[key] = append(json.RawMessage(nil), value...)
	}
	snapshotMu.Lock()
	snapshot = copied
	snapshotMu.Unlock()
}

// DBConfigValue returns the cached raw value for a setting key.
func DBConfigValue(key string) (json.RawMessage, bool) {
	snapshotMu.RLock()
	defer snapshotMu.RUnlock()
	value, ok := snapshot[key]
	if !ok {
		return nil, false
	}
	return value, true
}

// settingRow mirrors the columns needed to refresh the snapshot.
type settingRow struct {
	Key   string
	Value json.RawMessage
}

// RefreshSnapshot reloads the snapshot from the settings table.
func RefreshSnapshot(ctx context.Context, conn *gorm.DB) error {
	if conn == nil {
		return nil
	}
	if ctx == nil {
		ctx = context.Background()
	}
	ctxQuery, cancel := context.WithTimeout(ctx, 10*time.Second)
	defer cancel()

	var rows []settingRow
	if errFind := conn.WithContext(ctxQuery).
		Table("settings").
		Select("key", "value").
		Find(&rows).Error; errFind != nil {
		return errFind
	}

	values := make(map[string]json.RawMessage, len(rows))
	for _, row := range rows {
		values[row.Key] = row.Value
	}
	ReplaceSnapshot(values)
	return nil
}

// IntValue returns a cached integer setting or the fallback.
func IntValue(key string, fallback int) int {
	raw, ok := DBConfigValue(key)
	if !ok {
		return fallback
	}
	value, okParse := ParseNonNegativeInt(raw)
	if !okParse {
		return fallback
	}
	return value
}
