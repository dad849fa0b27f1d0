// Package sessions tracks the bounded set of concurrent sessions per user.
package sessions

import (
	"context"
	"errors"
	"fmt"
	"strconv"
	"time"

	"github.com/newsforge/accountguard/internal/locks"
	"github.com/newsforge/accountguard/internal/models"
	internalsettings "github.com/newsforge/accountguard/internal/settings"
	"gorm.io/gorm"
)

// Registry manages session records with purge-then-evict semantics.
type Registry struct {
	db        *gorm.DB
	nowFn     func() time.Time
	userLocks *locks.KeyedMutex

	maxConcurrent int
	timeout       time.Duration
}

// NewRegistry constructs a Registry with default dependencies when nil.
func NewRegistry(db *gorm.DB, nowFn func() time.Time) *Registry {
	if nowFn == nil {
		nowFn = time.Now
	}
	return &Registry{
		db:        db,
		nowFn:     nowFn,
		userLocks: locks.NewKeyedMutex(),
		maxConcurrent: internalsettings.IntValue(
			internalsettings.MaxConcurrentSessionsKey, internalsettings.DefaultMaxConcurrentSessions),
		timeout: time.Duration(internalsettings.IntValue(
			internalsettings.SessionTimeoutHoursKey, internalsettings.DefaultSessionTimeoutHours)) * time.Hour,
	}
}

// IsValid reports whether a session is valid at the given instant.
func IsValid(session *models.Session, now time.Time) bool {
	if session == nil {
		return false
	}
	return now.Before(session.ExpiresAt)
}

func userKey(userID uint64) string {
	return strconv.FormatUint(userID, 10)
}

// Create purges expired sessions, evicts the least-recently-active session
// when the user is at capacity, and appends the new session.
func (r *Registry) Create(ctx context.Context, userID uint64, token, device, ip string) (*models.Session, error) {
	if r == nil || r.db == nil {
		return nil, fmt.Errorf("sessions: not initialized")
	}
	if userID == 0 || token == "" {
		return nil, fmt.Errorf("sessions: missing user or token")
	}
	now := r.nowFn().UTC()

	key := userKey(userID)
	r.userLocks.Lock(key)
	defer r.userLocks.Unlock(key)

	if errPurge := r.db.WithContext(ctx).
		Where("user_id = ? AND expires_at <= ?", userID, now).
		Delete(&models.Session{}).Error; errPurge != nil {
		return nil, fmt.Errorf("sessions: purge expired: %w", errPurge)
	}

	var active []models.Session
	if errFind := r.db.WithContext(ctx).
		Where("user_id = ?", userID).
		Order("last_activity ASC, id ASC").
		Find(&active).Error; errFind != nil {
		return nil, fmt.Errorf("sessions: list active: %w", errFind)
	}

	// Ties on last_activity fall back to id, which preserves insertion order.
	for len(active) >= r.maxConcurrent {
		oldest := active[0]
		if errEvict := r.db.WithContext(ctx).
			Where("id = ?", oldest.ID).
			Delete(&models.Session{}).Error; errEvict != nil {
			return nil, fmt.Errorf("sessions: evict: %w", errEvict)
		}
		active = active[1:]
	}

	session := models.Session{
		UserID:       userID,
		Token:        token,
		Device:       device,
		IP:           ip,
		LastActivity: now,
		ExpiresAt:    now.Add(r.timeout),
		CreatedAt:    now,
	}
	if errCreate := r.db.WithContext(ctx).Create(&session).Error; errCreate != nil {
		return nil, fmt.Errorf("sessions: create: %w", errCreate)
	}
	return &session, nil
}

// Touch refreshes last activity for a valid session.
// A missing or expired session is a no-op; the caller re-authenticates.
func (r *Registry) Touch(ctx context.Context, userID uint64, token string) error {
	if r == nil || r.db == nil {
		return fmt.Errorf("sessions: not initialized")
	}
	now := r.nowFn().UTC()
	if errUpdate := r.db.WithContext(ctx).
		Model(&models.Session{}).
		Where("user_id = ? AND token = ? AND expires_at > ?", userID, token, now).
		Update("last_activity", now).Error; errUpdate != nil {
		return fmt.Errorf("sessions: touch: %w", errUpdate)
	}
	return nil
}

// Get returns the session with the given token, or nil when absent.
func (r *Registry) Get(ctx context.Context, userID uint64, token string) (*models.Session, error) {
	if r == nil || r.db == nil {
		return nil, fmt.Errorf("sessions: not initialized")
	}
	var session models.Session
	errFind := r.db.WithContext(ctx).
		Where("user_id = ? AND token = ?", userID, token).
		First(&session).Error
	if errFind != nil {
		if errors.Is(errFind, gorm.ErrRecordNotFound) {
			return nil, nil
		}
		return nil, fmt.Errorf("sessions: get: %w", errFind)
	}
	return &session, nil
}

// Revoke removes the session with the matching token. Idempotent.
func (r *Registry) Revoke(ctx context.Context, userID uint64, token string) error {
	if r == nil || r.db == nil {
		return fmt.Errorf("sessions: not initialized")
	}
	if errDelete := r.db.WithContext(ctx).
		Where("user_id = ? AND token = ?", userID, token).
		Delete(&models.Session{}).Error; errDelete != nil {
		return fmt.Errorf("sessions: revoke: %w", errDelete)
	}
	return nil
}

// RevokeAll removes every session for the user, optionally keeping one token.
func (r *Registry) RevokeAll(ctx context.Context, userID uint64, keepToken string) error {
	if r == nil || r.db == nil {
		return fmt.Errorf("sessions: not initialized")
	}
	q := r.db.WithContext(ctx).Where("user_id = ?", userID)
	if keepToken != "" {
		q = q.Where("token <> ?", keepToken)
	}
	if errDelete := q.Delete(&models.Session{}).Error; errDelete != nil {
		return fmt.Errorf("sessions: revoke all: %w", errDelete)
	}
	return nil
}

// CountActive returns the number of currently valid sessions.
func (r *Registry) CountActive(ctx context.Context, userID uint64) (int, error) {
	if r == nil || r.db == nil {
		return 0, fmt.Errorf("sessions: not initialized")
	}
	now := r.nowFn().UTC()
	var count int64
	if errCount := r.db.WithContext(ctx).
		Model(&models.Session{}).
		Where("user_id = ? AND expires_at > ?", userID, now).
		Count(&count).Error; errCount != nil {
		return 0, fmt.Errorf("sessions: count active: %w", errCount)
	}
	return int(count), nil
}

// ListActive returns the valid sessions ordered most recently active first.
func (r *Registry) ListActive(ctx context.Context, userID uint64) ([]models.Session, error) {
	if r == nil || r.db == nil {
		return nil, fmt.Errorf("sessions: not initialized")
	}
	now := r.nowFn().UTC()
	var rows []models.Session
	if errFind := r.db.WithContext(ctx).
		Where("user_id = ? AND expires_at > ?", userID, now).
		Order("last_activity DESC, id DESC").
		Find(&rows).Error; errFind != nil {
		return nil, fmt.Errorf("sessions: list active: %w", errFind)
	}
	return rows, nil
}
