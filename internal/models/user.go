package models

import "time"

// Role tags stored on a user profile.
const (
	// RoleUser is the default role for registered accounts.
	RoleUser = "user"
	// RoleModerator grants content moderation capabilities.
	RoleModerator = "moderator"
	// RoleAdmin grants full administrative capabilities.
	RoleAdmin = "admin"
)

// MaxSecurityQuestions bounds the stored security question pairs.
const MaxSecurityQuestions = 3

// User represents an account security profile stored in the database.
type User struct {
	ID uint64 `gorm:"primaryKey;autoIncrement"` // Primary key.

	Username string `gorm:"type:text;not null;uniqueIndex"` // Unique login name.
	Email    string `gorm:"type:text;uniqueIndex"`          // Email address.

	PasswordHash    string     `gorm:"type:text;not null"`               // Current credential digest.
	PasswordHistory StringList `gorm:"type:jsonb;not null;default:'[]'"` // Prior digests, newest first, bounded.

	LastPasswordChange time.Time `gorm:"not null"` // When the password last changed.
	PasswordExpiresAt  time.Time `gorm:"not null"` // Change time plus the policy window.

	FailedLoginAttempts int        `gorm:"not null;default:0"` // Consecutive failed login counter.
	LastLoginAttempt    *time.Time // Most recent failed attempt.
	LockUntil           *time.Time // Account locked while in the future.

	Roles             StringList   `gorm:"type:jsonb;not null;default:'[]'"` // Role tags (user/moderator/admin).
	SecurityQuestions QuestionList `gorm:"type:jsonb;not null;default:'[]'"` // Question and hashed-answer pairs.

	TOTPSecret    string `gorm:"type:text"`              // TOTP secret, empty when two-factor is off.
	TOTPConfirmed bool   `gorm:"not null;default:false"` // Whether the secret was confirmed with a code.

	EmailVerified bool `gorm:"not null;default:false"` // Whether the address was verified.
	Active        bool `gorm:"not null;default:true"`  // Whether the account can sign in.

	VerifyTokenHash     string     `gorm:"type:text"` // Hash of the pending email verification token.
	ResetTokenHash      string     `gorm:"type:text"` // Hash of the pending password reset token.
	ResetTokenExpiresAt *time.Time // Reset token validity bound.

	Sessions []Session `gorm:"foreignKey:UserID"` // Related sessions.

	CreatedAt time.Time `gorm:"not null;autoCreateTime"` // Creation timestamp.
	UpdatedAt time.Time `gorm:"not null;autoUpdateTime"` // Last update timestamp.
}
