package account

import (
	"context"
	"errors"
	"fmt"

	"gorm.io/gorm"

	"github.com/newsforge/accountguard/internal/events"
	"github.com/newsforge/accountguard/internal/models"
	"github.com/newsforge/accountguard/internal/ratelimit"
	"github.com/newsforge/accountguard/internal/security"
)

// ChangePassword rotates the password after verifying the current one. The
// new password must satisfy the policy and must not appear in the reuse
// history. Every other session is revoked; keepToken survives.
func (s *Service) ChangePassword(ctx context.Context, userID uint64, currentPassword, newPassword, keepToken string) error {
	key := userLockKey(userID)
	s.userLocks.Lock(key)
	defer s.userLocks.Unlock(key)

	user, errUser := s.GetUser(ctx, userID)
	if errUser != nil {
		return errUser
	}
	if !security.VerifyPassword(user.PasswordHash, currentPassword) {
		s.events.Log(ctx, events.Entry{
			Type:    events.TypeInvalidCurrentPassword,
			UserID:  &userID,
			Details: "password change rejected, current password wrong",
		})
		return ErrInvalidCredentials
	}
	if errApply := s.applyNewPassword(ctx, user, newPassword); errApply != nil {
		return errApply
	}
	if errRevoke := s.sessions.RevokeAll(ctx, userID, keepToken); errRevoke != nil {
		return errRevoke
	}
	s.events.Log(ctx, events.Entry{
		Type:    events.TypePasswordChanged,
		UserID:  &userID,
		Details: "password changed, other sessions revoked",
	})
	return nil
}

// RequestPasswordReset issues a reset token for the address. An unknown
// address still returns success so the endpoint cannot be used to enumerate
// accounts.
func (s *Service) RequestPasswordReset(ctx context.Context, email, ip string) error {
	if errLimit := s.checkLimit(ctx, ratelimit.ActionPasswordReset, ratelimit.IPKey(ratelimit.ActionPasswordReset, ip), nil, ip); errLimit != nil {
		return errLimit
	}
	var user models.User
	errFind := s.db.WithContext(ctx).Where("email = ?", email).First(&user).Error
	if errFind != nil {
		if errors.Is(errFind, gorm.ErrRecordNotFound) {
			return nil
		}
		return fmt.Errorf("account: request reset: %w", errFind)
	}

	token := security.NewSessionToken()
	expires := s.nowFn().Add(resetTokenTTL)
	errUpdate := s.db.WithContext(ctx).
		Model(&models.User{}).
		Where("id = ?", user.ID).
		Updates(map[string]any{
			"reset_token_hash":       security.HashToken(token),
			"reset_token_expires_at": expires,
		}).Error
	if errUpdate != nil {
		return fmt.Errorf("account: request reset: %w", errUpdate)
	}
	if errSend := s.mail.SendPasswordReset(ctx, user.Email, token); errSend != nil {
		return fmt.Errorf("account: send reset: %w", errSend)
	}
	s.events.Log(ctx, events.Entry{
		Type:    events.TypePasswordResetRequest,
		UserID:  &user.ID,
		IP:      ip,
		Details: "password reset requested",
	})
	return nil
}

// CompletePasswordReset consumes a reset token, sets the new password, clears
// any lockout, and revokes every session.
func (s *Service) CompletePasswordReset(ctx context.Context, token, newPassword string) error {
	if token == "" {
		return ErrInvalidResetToken
	}
	var user models.User
	errFind := s.db.WithContext(ctx).
		Where("reset_token_hash = ?", security.HashToken(token)).
		First(&user).Error
	if errFind != nil {
		if errors.Is(errFind, gorm.ErrRecordNotFound) {
			s.events.Log(ctx, events.Entry{
				Type:    events.TypeUnauthorizedPasswordChange,
				Details: "password reset attempted with unknown token",
			})
			return ErrInvalidResetToken
		}
		return fmt.Errorf("account: complete reset: %w", errFind)
	}
	now := s.nowFn()
	if user.ResetTokenExpiresAt == nil || now.After(*user.ResetTokenExpiresAt) {
		s.events.Log(ctx, events.Entry{
			Type:    events.TypeUnauthorizedPasswordChange,
			UserID:  &user.ID,
			Details: "password reset attempted with expired token",
		})
		return ErrInvalidResetToken
	}

	key := userLockKey(user.ID)
	s.userLocks.Lock(key)
	defer s.userLocks.Unlock(key)

	user.ResetTokenHash = ""
	user.ResetTokenExpiresAt = nil
	user.FailedLoginAttempts = 0
	user.LastLoginAttempt = nil
	user.LockUntil = nil
	if errApply := s.applyNewPassword(ctx, &user, newPassword); errApply != nil {
		return errApply
	}
	if errRevoke := s.sessions.RevokeAll(ctx, user.ID, ""); errRevoke != nil {
		return errRevoke
	}
	s.events.Log(ctx, events.Entry{
		Type:    events.TypePasswordResetDone,
		UserID:  &user.ID,
		Details: "password reset completed, all sessions revoked",
	})
	return nil
}

// applyNewPassword validates, hashes, and persists a new password along with
// the rotated reuse history and recomputed expiry. The caller holds the
// per-user lock.
func (s *Service) applyNewPassword(ctx context.Context, user *models.User, newPassword string) error {
	if errPolicy := security.ValidatePasswordPolicy(newPassword); errPolicy != nil {
		s.events.Log(ctx, events.Entry{
			Type:    events.TypeInvalidPasswordFormat,
			UserID:  &user.ID,
			Details: errPolicy.Error(),
		})
		return errPolicy
	}
	if errHistory := security.CheckPasswordHistory(user.PasswordHash, user.PasswordHistory, newPassword); errHistory != nil {
		s.events.Log(ctx, events.Entry{
			Type:    events.TypePasswordChangeError,
			UserID:  &user.ID,
			Details: "new password matches a recently used password",
		})
		return errHistory
	}
	hash, errHash := security.HashPassword(newPassword)
	if errHash != nil {
		return errHash
	}
	now := s.nowFn()
	user.PasswordHistory = security.PushPasswordHistory(user.PasswordHistory, user.PasswordHash, s.passwordHistorySize())
	user.PasswordHash = hash
	user.LastPasswordChange = now
	user.PasswordExpiresAt = now.AddDate(0, 0, s.passwordMaxAgeDays())
	if errSave := s.saveUser(ctx, user); errSave != nil {
		s.events.Log(ctx, events.Entry{
			Type:    events.TypePasswordChangeError,
			UserID:  &user.ID,
			Details: "failed to persist new password",
		})
		return errSave
	}
	return nil
}

// SetSecurityQuestions replaces the user's security questions. Answers are
// normalized and stored hashed.
func (s *Service) SetSecurityQuestions(ctx context.Context, userID uint64, pairs map[string]string) error {
	if len(pairs) == 0 || len(pairs) > models.MaxSecurityQuestions {
		return fmt.Errorf("account: between 1 and %d security questions required", models.MaxSecurityQuestions)
	}
	questions := make(models.QuestionList, 0, len(pairs))
	for question, answer := range pairs {
		answerHash, errHash := security.HashSecurityAnswer(answer)
		if errHash != nil {
			return errHash
		}
		questions = append(questions, models.SecurityQuestion{
			Question:   question,
			AnswerHash: answerHash,
		})
	}
	errUpdate := s.db.WithContext(ctx).
		Model(&models.User{}).
		Where("id = ?", userID).
		Update("security_questions", questions).Error
	if errUpdate != nil {
		return fmt.Errorf("account: set security questions: %w", errUpdate)
	}
	s.events.Log(ctx, events.Entry{
		Type:    events.TypeSecurityQuestionsUpdate,
		UserID:  &userID,
		Details: fmt.Sprintf("security questions replaced, %d configured", len(questions)),
	})
	return nil
}

// VerifySecurityQuestion checks one answer against the stored hash.
func (s *Service) VerifySecurityQuestion(ctx context.Context, userID uint64, question, answer string) error {
	user, errUser := s.GetUser(ctx, userID)
	if errUser != nil {
		return errUser
	}
	if !security.VerifySecurityAnswer(user.SecurityQuestions, question, answer) {
		return ErrSecurityAnswer
	}
	return nil
}
