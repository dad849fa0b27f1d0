// Package events persists the append-only security event log. Logging never
// blocks or fails the calling flow: storage errors are reported to the
// application log and swallowed.
package events

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	log "github.com/sirupsen/logrus"
	"gorm.io/gorm"

	"github.com/newsforge/accountguard/internal/models"
)

// Event types. The taxonomy is fixed: handlers and queries rely on these
// exact strings.
const (
	TypeLoginSuccess               = "LOGIN_SUCCESS"
	TypeLoginFailure               = "LOGIN_FAILURE"
	TypeLogout                     = "LOGOUT"
	TypePasswordChanged            = "PASSWORD_CHANGED"
	TypePasswordChangeError        = "PASSWORD_CHANGE_ERROR"
	TypeInvalidCurrentPassword     = "INVALID_CURRENT_PASSWORD"
	TypeUnauthorizedPasswordChange = "UNAUTHORIZED_PASSWORD_CHANGE"
	TypeInvalidPasswordFormat      = "INVALID_PASSWORD_FORMAT"
	TypeInvalidRequest             = "INVALID_REQUEST"
	TypeUserNotFound               = "USER_NOT_FOUND"
	TypePasswordResetRequest       = "PASSWORD_RESET_REQUEST"
	TypePasswordResetDone          = "PASSWORD_RESET_COMPLETE"
	TypeAccountLockout             = "ACCOUNT_LOCKOUT"
	TypeAccountUnlock              = "ACCOUNT_UNLOCK"
	TypeTokenRefresh               = "TOKEN_REFRESH"
	TypeTokenBlacklist             = "TOKEN_BLACKLIST"
	TypeTwoFactorSetup             = "TWO_FACTOR_SETUP"
	TypeTwoFactorDisable           = "TWO_FACTOR_DISABLE"
	TypeSecurityQuestionsUpdate    = "SECURITY_QUESTIONS_UPDATE"
	TypeRoleChange                 = "ROLE_CHANGE"
	TypeSuspiciousActivity         = "SUSPICIOUS_ACTIVITY"
	TypeRateLimitExceeded          = "RATE_LIMIT_EXCEEDED"
)

// Additional event types beyond the core taxonomy.
const (
	TypeLoginNewDevice  = "LOGIN_NEW_DEVICE"
	TypeAccountCreated  = "ACCOUNT_CREATED"
	TypeEmailVerified   = "EMAIL_VERIFIED"
	TypePasswordExpired = "PASSWORD_EXPIRED"
	TypeSessionCreated  = "SESSION_CREATED"
	TypeDeviceTrusted   = "DEVICE_TRUSTED"
)

// Severities, ordered from least to most urgent.
const (
	SeverityInfo     = "INFO"
	SeverityWarning  = "WARNING"
	SeverityAlert    = "ALERT"
	SeverityCritical = "CRITICAL"
)

const (
	// recentLimitCap bounds any single query over the event log.
	recentLimitCap = 100
	// Retention bounds accepted by CleanupOldEvents.
	minRetentionDays = 30
	maxRetentionDays = 365
)

var defaultSeverities = map[string]string{
	TypeLoginSuccess:               SeverityInfo,
	TypeLoginFailure:               SeverityWarning,
	TypeLogout:                     SeverityInfo,
	TypePasswordChanged:            SeverityInfo,
	TypePasswordChangeError:        SeverityWarning,
	TypeInvalidCurrentPassword:     SeverityWarning,
	TypeUnauthorizedPasswordChange: SeverityAlert,
	TypeInvalidPasswordFormat:      SeverityInfo,
	TypeInvalidRequest:             SeverityInfo,
	TypeUserNotFound:               SeverityWarning,
	TypePasswordResetRequest:       SeverityWarning,
	TypePasswordResetDone:          SeverityWarning,
	TypeAccountLockout:             SeverityAlert,
	TypeAccountUnlock:              SeverityInfo,
	TypeTokenRefresh:               SeverityInfo,
	TypeTokenBlacklist:             SeverityInfo,
	TypeTwoFactorSetup:             SeverityInfo,
	TypeTwoFactorDisable:           SeverityWarning,
	TypeSecurityQuestionsUpdate:    SeverityInfo,
	TypeRoleChange:                 SeverityWarning,
	TypeSuspiciousActivity:         SeverityAlert,
	TypeRateLimitExceeded:          SeverityWarning,
	TypeLoginNewDevice:             SeverityWarning,
	TypeAccountCreated:             SeverityInfo,
	TypeEmailVerified:              SeverityInfo,
	TypePasswordExpired:            SeverityWarning,
	TypeSessionCreated:             SeverityInfo,
	TypeDeviceTrusted:              SeverityInfo,
}

// SeverityFor returns the default severity for an event type.
func SeverityFor(eventType string) string {
	if severity, ok := defaultSeverities[eventType]; ok {
		return severity
	}
	return SeverityInfo
}

// Entry describes one event to log. Severity defaults by type when empty
// and Timestamp defaults to the logger clock when zero.
type Entry struct {
	Type      string
	Severity  string
	Timestamp time.Time
	UserID    *uint64
	IP        string
	UserAgent string
	Details   string
	Metadata  map[string]any
}

// Logger writes and queries security events.
type Logger struct {
	db    *gorm.DB
	nowFn func() time.Time
}

// NewLogger constructs a Logger backed by the given database handle.
func NewLogger(db *gorm.DB) *Logger {
	return &Logger{db: db, nowFn: time.Now}
}

// Log appends one event. Storage failures are logged and swallowed so the
// security log can never take down an authentication flow.
func (l *Logger) Log(ctx context.Context, entry Entry) {
	if l == nil || l.db == nil || entry.Type == "" {
		return
	}
	severity := entry.Severity
	if severity == "" {
		severity = SeverityFor(entry.Type)
	}
	timestamp := entry.Timestamp
	if timestamp.IsZero() {
		timestamp = l.nowFn()
	}
	event := models.SecurityEvent{
		Type:      entry.Type,
		Severity:  severity,
		UserID:    entry.UserID,
		IP:        entry.IP,
		UserAgent: entry.UserAgent,
		Details:   entry.Details,
		Timestamp: timestamp,
	}
	if len(entry.Metadata) > 0 {
		data, errMarshal := json.Marshal(entry.Metadata)
		if errMarshal != nil {
			log.WithError(errMarshal).WithField("type", entry.Type).Warn("events: drop metadata")
		} else {
			event.Metadata = data
		}
	}
	if errCreate := l.db.WithContext(ctx).Create(&event).Error; errCreate != nil {
		log.WithError(errCreate).WithField("type", entry.Type).Warn("events: store event")
	}
}

// Recent returns the newest events, optionally filtered to one user. The
// limit is clamped to at most 100 rows.
func (l *Logger) Recent(ctx context.Context, userID *uint64, limit int) ([]models.SecurityEvent, error) {
	query := l.query(ctx)
	if userID != nil {
		query = query.Where("user_id = ?", *userID)
	}
	return fetch(query, limit)
}

// ByType returns the newest events of one type.
func (l *Logger) ByType(ctx context.Context, eventType string, limit int) ([]models.SecurityEvent, error) {
	return fetch(l.query(ctx).Where("type = ?", eventType), limit)
}

// BySeverity returns the newest events at one severity.
func (l *Logger) BySeverity(ctx context.Context, severity string, limit int) ([]models.SecurityEvent, error) {
	return fetch(l.query(ctx).Where("severity = ?", severity), limit)
}

func (l *Logger) query(ctx context.Context) *gorm.DB {
	return l.db.WithContext(ctx).Model(&models.SecurityEvent{})
}

func fetch(query *gorm.DB, limit int) ([]models.SecurityEvent, error) {
	if limit <= 0 || limit > recentLimitCap {
		limit = recentLimitCap
	}
	var rows []models.SecurityEvent
	err := query.Order("timestamp DESC, id DESC").Limit(limit).Find(&rows).Error
	if err != nil {
		return nil, fmt.Errorf("events: query: %w", err)
	}
	return rows, nil
}

// CleanupOldEvents deletes events older than the retention period. The
// period must be between 30 and 365 days; anything else is rejected so a
// bad configuration cannot wipe the log.
func (l *Logger) CleanupOldEvents(ctx context.Context, daysToKeep int) (int64, error) {
	if l == nil || l.db == nil {
		return 0, fmt.Errorf("events: logger not initialized")
	}
	if daysToKeep < minRetentionDays || daysToKeep > maxRetentionDays {
		return 0, fmt.Errorf("events: retention %d days outside [%d, %d]", daysToKeep, minRetentionDays, maxRetentionDays)
	}
	cutoff := l.nowFn().AddDate(0, 0, -daysToKeep)
	result := l.db.WithContext(ctx).
		Where("timestamp < ?", cutoff).
		Delete(&models.SecurityEvent{})
	if result.Error != nil {
		return 0, fmt.Errorf("events: cleanup: %w", result.Error)
	}
	return result.RowsAffected, nil
}
