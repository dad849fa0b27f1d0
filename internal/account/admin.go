package account

import (
	"context"
	"fmt"
	"strings"

	"github.com/newsforge/accountguard/internal/db"
	"github.com/newsforge/accountguard/internal/events"
	"github.com/newsforge/accountguard/internal/models"
	"github.com/newsforge/accountguard/internal/rbac"
)

// ChangeRoles replaces a user's role set. Every role must belong to the
// fixed taxonomy and the set must keep at least the base role.
func (s *Service) ChangeRoles(ctx context.Context, actorID, userID uint64, roles []string) error {
	if len(roles) == 0 {
		return ErrInvalidRole
	}
	cleaned := make(models.StringList, 0, len(roles))
	for _, role := range roles {
		role = strings.TrimSpace(role)
		if !rbac.ValidRole(role) {
			return ErrInvalidRole
		}
		if !cleaned.Contains(role) {
			cleaned = append(cleaned, role)
		}
	}

	result := s.db.WithContext(ctx).
		Model(&models.User{}).
		Where("id = ?", userID).
		Update("roles", cleaned)
	if result.Error != nil {
		return fmt.Errorf("account: change roles: %w", result.Error)
	}
	if result.RowsAffected == 0 {
		return ErrUserNotFound
	}
	s.events.Log(ctx, events.Entry{
		Type:    events.TypeRoleChange,
		UserID:  &userID,
		Details: fmt.Sprintf("roles set to %s by user %d", strings.Join(cleaned, ","), actorID),
	})
	return nil
}

// Unlock clears a lockout ahead of its expiry.
func (s *Service) Unlock(ctx context.Context, actorID, userID uint64) error {
	key := userLockKey(userID)
	s.userLocks.Lock(key)
	defer s.userLocks.Unlock(key)

	result := s.db.WithContext(ctx).
		Model(&models.User{}).
		Where("id = ?", userID).
		Updates(map[string]any{
			"failed_login_attempts": 0,
			"last_login_attempt":    nil,
			"lock_until":            nil,
		})
	if result.Error != nil {
		return fmt.Errorf("account: unlock: %w", result.Error)
	}
	if result.RowsAffected == 0 {
		return ErrUserNotFound
	}
	s.events.Log(ctx, events.Entry{
		Type:    events.TypeAccountUnlock,
		UserID:  &userID,
		Details: fmt.Sprintf("unlocked by user %d", actorID),
	})
	return nil
}

// SetActive enables or disables an account. Disabling revokes every session.
func (s *Service) SetActive(ctx context.Context, actorID, userID uint64, active bool) error {
	result := s.db.WithContext(ctx).
		Model(&models.User{}).
		Where("id = ?", userID).
		Update("active", active)
	if result.Error != nil {
		return fmt.Errorf("account: set active: %w", result.Error)
	}
	if result.RowsAffected == 0 {
		return ErrUserNotFound
	}
	if !active {
		if errRevoke := s.sessions.RevokeAll(ctx, userID, ""); errRevoke != nil {
			return errRevoke
		}
	}
	return nil
}

// ListUsers returns accounts page by page for admin review. A non-empty
// search term matches username or email case-insensitively.
func (s *Service) ListUsers(ctx context.Context, search string, offset, limit int) ([]models.User, int64, error) {
	if limit <= 0 || limit > 100 {
		limit = 50
	}
	if offset < 0 {
		offset = 0
	}
	query := s.db.WithContext(ctx).Model(&models.User{})
	if term := strings.TrimSpace(search); term != "" {
		pattern := db.NormalizeLikePattern(s.db, "%"+term+"%")
		query = query.Where(
			s.db.Where(db.CaseInsensitiveLikeExpr(s.db, "username"), pattern).
				Or(db.CaseInsensitiveLikeExpr(s.db, "email"), pattern),
		)
	}
	var total int64
	if errCount := query.Count(&total).Error; errCount != nil {
		return nil, 0, fmt.Errorf("account: count users: %w", errCount)
	}
	var users []models.User
	errFind := query.
		Order("id ASC").
		Offset(offset).
		Limit(limit).
		Find(&users).Error
	if errFind != nil {
		return nil, 0, fmt.Errorf("account: list users: %w", errFind)
	}
	return users, total, nil
}
