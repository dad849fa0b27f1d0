package security

import (
	"errors"
	"fmt"
	"time"
	"unicode"

	"golang.org/x/crypto/bcrypt"
)

// Password policy violations surfaced to callers.
var (
	// ErrPasswordTooShort indicates the password is under the minimum length.
	ErrPasswordTooShort = errors.New("password must be at least 8 characters")
	// ErrPasswordTooWeak indicates missing character classes.
	ErrPasswordTooWeak = errors.New("password must contain upper, lower, and numeric characters")
	// ErrPasswordReused indicates the password matches a remembered prior hash.
	ErrPasswordReused = errors.New("password was used recently")
)

// minPasswordLength is the floor for accepted passwords.
const minPasswordLength = 8

// HashPassword hashes a plaintext password with bcrypt.
func HashPassword(password string) (string, error) {
	hash, errHash := bcrypt.GenerateFromPassword([]byte(password), bcrypt.DefaultCost)
	if errHash != nil {
		return "", fmt.Errorf("security: hash password: %w", errHash)
	}
	return string(hash), nil
}

// VerifyPassword reports whether the plaintext matches the stored hash.
func VerifyPassword(hash, password string) bool {
	return bcrypt.CompareHashAndPassword([]byte(hash), []byte(password)) == nil
}

// ValidatePasswordPolicy checks length and character class requirements.
func ValidatePasswordPolicy(password string) error {
	if len(password) < minPasswordLength {
		return ErrPasswordTooShort
	}
	var hasUpper, hasLower, hasDigit bool
	for _, r := range password {
		switch {
		case unicode.IsUpper(r):
			hasUpper = true
		case unicode.IsLower(r):
			hasLower = true
		case unicode.IsDigit(r):
			hasDigit = true
		}
	}
	if !hasUpper || !hasLower || !hasDigit {
		return ErrPasswordTooWeak
	}
	return nil
}

// CheckPasswordHistory rejects a password matching the current or any remembered hash.
func CheckPasswordHistory(currentHash string, history []string, password string) error {
	if VerifyPassword(currentHash, password) {
		return ErrPasswordReused
	}
	for _, prior := range history {
		if VerifyPassword(prior, password) {
			return ErrPasswordReused
		}
	}
	return nil
}

// PushPasswordHistory prepends a hash and trims the history to the bound.
func PushPasswordHistory(history []string, hash string, size int) []string {
	if size <= 0 {
		return nil
	}
	updated := make([]string, 0, size)
	updated = append(updated, hash)
	for _, prior := range history {
		if len(updated) >= size {
			break
		}
		updated = append(updated, prior)
	}
	return updated
}

// PasswordExpired reports whether the expiry timestamp has passed.
func PasswordExpired(expiresAt time.Time, now time.Time) bool {
	if expiresAt.IsZero() {
		return false
	}
	return !now.Before(expiresAt)
}
