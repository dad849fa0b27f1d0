package db

import (
	"encoding/json"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/newsforge/accountguard/internal/models"
	internalsettings "github.com/newsforge/accountguard/internal/settings"
	"gorm.io/gorm"
)

// Migrate runs database migrations for the current dialect.
func Migrate(conn *gorm.DB) error {
	if conn == nil {
		return fmt.Errorf("db: nil connection")
	}

	if errAutoMigrate := conn.AutoMigrate(
		&models.User{},
		&models.Session{},
		&models.Device{},
		&models.LoginRecord{},
		&models.SecurityEvent{},
		&models.Setting{},
	); errAutoMigrate != nil {
		return fmt.Errorf("db: migrate: %w", errAutoMigrate)
	}

	if errSeed := ensureDefaultSettings(conn); errSeed != nil {
		return errSeed
	}

	// ddl defines an index or DDL statement to apply.
	type ddl struct {
		name string // Human-readable name for error reporting.
		sql  string // SQL to execute.
	}
	ddls := []ddl{
		{
			name: "idx_sessions_user_id_expires_at",
			sql: `
				CREATE INDEX IF NOT EXISTS idx_sessions_user_id_expires_at
				ON sessions (user_id, expires_at)
			`,
		},
		{
			name: "idx_sessions_user_id_last_activity",
			sql: `
				CREATE INDEX IF NOT EXISTS idx_sessions_user_id_last_activity
				ON sessions (user_id, last_activity ASC, id ASC)
			`,
		},
		{
			name: "idx_security_events_timestamp_id",
			sql: `
				CREATE INDEX IF NOT EXISTS idx_security_events_timestamp_id
				ON security_events (timestamp DESC, id DESC)
			`,
		},
		{
			name: "idx_security_events_user_id_timestamp",
			sql: `
				CREATE INDEX IF NOT EXISTS idx_security_events_user_id_timestamp
				ON security_events (user_id, timestamp DESC)
			`,
		},
		{
			name: "idx_security_events_type_timestamp",
			sql: `
				CREATE INDEX IF NOT EXISTS idx_security_events_type_timestamp
				ON security_events (type, timestamp DESC)
			`,
		},
		{
			name: "idx_security_events_severity_timestamp",
			sql: `
				CREATE INDEX IF NOT EXISTS idx_security_events_severity_timestamp
				ON security_events (severity, timestamp DESC)
			`,
		},
		{
			name: "idx_login_records_user_fp_attempted_at",
			sql: `
				CREATE INDEX IF NOT EXISTS idx_login_records_user_fp_attempted_at
				ON login_records (user_id, fingerprint, attempted_at DESC)
			`,
		},
		{
			name: "idx_users_lock_until",
			sql: `
				CREATE INDEX IF NOT EXISTS idx_users_lock_until
				ON users (lock_until)
				WHERE lock_until IS NOT NULL
			`,
		},
	}
	for _, item := range ddls {
		if errDDL := conn.Exec(item.sql).Error; errDDL != nil {
			return fmt.Errorf("db: create index %s: %w", item.name, errDDL)
		}
	}

	return nil
}

// ensureDefaultSettings seeds policy settings that are absent or empty.
func ensureDefaultSettings(conn *gorm.DB) error {
	for key, value := range internalsettings.Defaults() {
		if errEnsure := ensureSetting(conn, key, value); errEnsure != nil {
			return errEnsure
		}
	}
	return nil
}

// ensureSetting ensures a setting exists and defaults when empty.
func ensureSetting(conn *gorm.DB, key string, value json.RawMessage) error {
	var existing models.Setting
	if errFind := conn.Where("key = ?", key).First(&existing).Error; errFind == nil {
		trimmed := strings.TrimSpace(string(existing.Value))
		if len(existing.Value) == 0 || trimmed == "" || trimmed == "null" {
			if errUpdate := conn.Model(&existing).Updates(map[string]any{
				"value":      value,
				"updated_at": time.Now().UTC(),
			}).Error; errUpdate != nil {
				return fmt.Errorf("db: update %s setting: %w", key, errUpdate)
			}
		}
		return nil
	} else if !errors.Is(errFind, gorm.ErrRecordNotFound) {
		return fmt.Errorf("db: query %s setting: %w", key, errFind)
	}

	setting := models.Setting{
		Key:       key,
		Value:     value,
		UpdatedAt: time.Now().UTC(),
	}
	if errCreate := conn.Create(&setting).Error; errCreate != nil {
		return fmt.Errorf("db: create %s setting: %w", key, errCreate)
	}
	return nil
}
