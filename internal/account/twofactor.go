package account

import (
	"context"
	"fmt"

	"github.com/newsforge/accountguard/internal/events"
	"github.com/newsforge/accountguard/internal/models"
	"github.com/newsforge/accountguard/internal/security"
)

// SetupTwoFactor generates a TOTP secret for the user and returns it with
// the provisioning URL. The secret stays inactive until confirmed with a
// valid code.
func (s *Service) SetupTwoFactor(ctx context.Context, userID uint64) (secret, url string, err error) {
	user, errUser := s.GetUser(ctx, userID)
	if errUser != nil {
		return "", "", errUser
	}
	secret, url, errGenerate := security.GenerateTOTPSecret(user.Username)
	if errGenerate != nil {
		return "", "", errGenerate
	}
	errUpdate := s.db.WithContext(ctx).
		Model(&models.User{}).
		Where("id = ?", userID).
		Updates(map[string]any{"totp_secret": secret, "totp_confirmed": false}).Error
	if errUpdate != nil {
		return "", "", fmt.Errorf("account: setup two-factor: %w", errUpdate)
	}
	return secret, url, nil
}

// ConfirmTwoFactor activates two-factor after the user proves possession of
// the secret with a current code.
func (s *Service) ConfirmTwoFactor(ctx context.Context, userID uint64, code string) error {
	user, errUser := s.GetUser(ctx, userID)
	if errUser != nil {
		return errUser
	}
	if user.TOTPSecret == "" {
		return fmt.Errorf("account: two-factor setup not started")
	}
	if !security.ValidateTOTPCode(user.TOTPSecret, code) {
		return ErrTwoFactorInvalid
	}
	errUpdate := s.db.WithContext(ctx).
		Model(&models.User{}).
		Where("id = ?", userID).
		Update("totp_confirmed", true).Error
	if errUpdate != nil {
		return fmt.Errorf("account: confirm two-factor: %w", errUpdate)
	}
	s.events.Log(ctx, events.Entry{
		Type:    events.TypeTwoFactorSetup,
		UserID:  &userID,
		Details: "two-factor authentication enabled",
	})
	return nil
}

// DisableTwoFactor turns two-factor off after validating a current code.
func (s *Service) DisableTwoFactor(ctx context.Context, userID uint64, code string) error {
	user, errUser := s.GetUser(ctx, userID)
	if errUser != nil {
		return errUser
	}
	if user.TOTPSecret == "" || !user.TOTPConfirmed {
		return fmt.Errorf("account: two-factor not enabled")
	}
	if !security.ValidateTOTPCode(user.TOTPSecret, code) {
		return ErrTwoFactorInvalid
	}
	errUpdate := s.db.WithContext(ctx).
		Model(&models.User{}).
		Where("id = ?", userID).
		Updates(map[string]any{"totp_secret": "", "totp_confirmed": false}).Error
	if errUpdate != nil {
		return fmt.Errorf("account: disable two-factor: %w", errUpdate)
	}
	s.events.Log(ctx, events.Entry{
		Type:    events.TypeTwoFactorDisable,
		UserID:  &userID,
		Details: "two-factor authentication disabled",
	})
	return nil
}
