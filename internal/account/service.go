// Package account orchestrates the account security flows: registration,
// login with lockout and risk checks, session issuance, password lifecycle,
// and two-factor management.
package account

import (
	"context"
	"errors"
	"fmt"
	"strconv"
	"time"

	log "github.com/sirupsen/logrus"
	"gorm.io/gorm"

	"github.com/newsforge/accountguard/internal/config"
	"github.com/newsforge/accountguard/internal/events"
	"github.com/newsforge/accountguard/internal/fingerprint"
	"github.com/newsforge/accountguard/internal/locks"
	"github.com/newsforge/accountguard/internal/mailer"
	"github.com/newsforge/accountguard/internal/models"
	"github.com/newsforge/accountguard/internal/ratelimit"
	"github.com/newsforge/accountguard/internal/security"
	"github.com/newsforge/accountguard/internal/sessions"
	"github.com/newsforge/accountguard/internal/settings"
)

const resetTokenTTL = time.Hour

// Service wires the credential store, lockout policy, session registry,
// risk engine, rate limiter, and event log into the account flows.
type Service struct {
	db        *gorm.DB
	sessions  *sessions.Registry
	risk      *fingerprint.Engine
	limiter   *ratelimit.Manager
	events    *events.Logger
	mail      mailer.Mailer
	jwt       config.JWTConfig
	userLocks *locks.KeyedMutex
	nowFn     func() time.Time
}

// NewService constructs the account service.
func NewService(db *gorm.DB, registry *sessions.Registry, risk *fingerprint.Engine, limiter *ratelimit.Manager, eventLog *events.Logger, mail mailer.Mailer, jwtCfg config.JWTConfig) *Service {
	if mail == nil {
		mail = mailer.NewLogMailer()
	}
	return &Service{
		db:        db,
		sessions:  registry,
		risk:      risk,
		limiter:   limiter,
		events:    eventLog,
		mail:      mail,
		jwt:       jwtCfg,
		userLocks: locks.NewKeyedMutex(),
		nowFn:     time.Now,
	}
}

func userLockKey(userID uint64) string {
	return "user:" + strconv.FormatUint(userID, 10)
}

// RegisterInput carries the fields needed to create an account.
type RegisterInput struct {
	Username  string
	Email     string
	Password  string
	IP        string
	UserAgent string
}

// Register creates a new account with the default role and a pending email
// verification token. A failed verification mail rolls the account back so
// the address can be retried.
func (s *Service) Register(ctx context.Context, input RegisterInput) (*models.User, error) {
	if key := ratelimit.IPKey(ratelimit.ActionRegister, input.IP); key != "" {
		if errLimit := s.checkLimit(ctx, ratelimit.ActionRegister, key, nil, input.IP); errLimit != nil {
			return nil, errLimit
		}
	}
	if input.Username == "" || input.Email == "" {
		s.events.Log(ctx, events.Entry{
			Type:      events.TypeInvalidRequest,
			IP:        input.IP,
			UserAgent: input.UserAgent,
			Details:   "registration missing username or email",
		})
		return nil, fmt.Errorf("account: register: missing username or email")
	}
	if errPolicy := security.ValidatePasswordPolicy(input.Password); errPolicy != nil {
		return nil, errPolicy
	}

	var existing int64
	errCount := s.db.WithContext(ctx).
		Model(&models.User{}).
		Where("username = ? OR email = ?", input.Username, input.Email).
		Count(&existing).Error
	if errCount != nil {
		return nil, fmt.Errorf("account: register: %w", errCount)
	}
	if existing > 0 {
		return nil, ErrUserExists
	}

	hash, errHash := security.HashPassword(input.Password)
	if errHash != nil {
		return nil, errHash
	}
	now := s.nowFn()
	verifyToken := security.NewSessionToken()
	user := models.User{
		Username:           input.Username,
		Email:              input.Email,
		PasswordHash:       hash,
		PasswordHistory:    models.StringList{},
		LastPasswordChange: now,
		PasswordExpiresAt:  now.AddDate(0, 0, s.passwordMaxAgeDays()),
		Roles:              models.StringList{models.RoleUser},
		SecurityQuestions:  models.QuestionList{},
		Active:             true,
		VerifyTokenHash:    security.HashToken(verifyToken),
	}
	if errCreate := s.db.WithContext(ctx).Create(&user).Error; errCreate != nil {
		return nil, fmt.Errorf("account: register: %w", errCreate)
	}

	if errSend := s.mail.SendVerification(ctx, user.Email, verifyToken); errSend != nil {
		if errDelete := s.db.WithContext(ctx).Delete(&models.User{}, user.ID).Error; errDelete != nil {
			log.WithError(errDelete).WithField("user_id", user.ID).Error("account: rollback after mail failure")
		}
		return nil, fmt.Errorf("account: send verification: %w", errSend)
	}

	s.events.Log(ctx, events.Entry{
		Type:      events.TypeAccountCreated,
		UserID:    &user.ID,
		IP:        input.IP,
		UserAgent: input.UserAgent,
		Details:   "account registered",
	})
	return &user, nil
}

// VerifyEmail marks the account matching the token as verified.
func (s *Service) VerifyEmail(ctx context.Context, token string) error {
	if token == "" {
		return ErrInvalidVerifyToken
	}
	var user models.User
	errFind := s.db.WithContext(ctx).
		Where("verify_token_hash = ?", security.HashToken(token)).
		First(&user).Error
	if errFind != nil {
		if errors.Is(errFind, gorm.ErrRecordNotFound) {
			return ErrInvalidVerifyToken
		}
		return fmt.Errorf("account: verify email: %w", errFind)
	}
	errUpdate := s.db.WithContext(ctx).
		Model(&models.User{}).
		Where("id = ?", user.ID).
		Updates(map[string]any{"email_verified": true, "verify_token_hash": ""}).Error
	if errUpdate != nil {
		return fmt.Errorf("account: verify email: %w", errUpdate)
	}
	s.events.Log(ctx, events.Entry{
		Type:    events.TypeEmailVerified,
		UserID:  &user.ID,
		Details: "email address verified",
	})
	return nil
}

// GetUser loads one account by ID.
func (s *Service) GetUser(ctx context.Context, userID uint64) (*models.User, error) {
	var user models.User
	errFind := s.db.WithContext(ctx).First(&user, userID).Error
	if errFind != nil {
		if errors.Is(errFind, gorm.ErrRecordNotFound) {
			return nil, ErrUserNotFound
		}
		return nil, fmt.Errorf("account: get user: %w", errFind)
	}
	return &user, nil
}

func (s *Service) userByUsername(ctx context.Context, username string) (*models.User, error) {
	var user models.User
	errFind := s.db.WithContext(ctx).Where("username = ?", username).First(&user).Error
	if errFind != nil {
		if errors.Is(errFind, gorm.ErrRecordNotFound) {
			return nil, ErrUserNotFound
		}
		return nil, fmt.Errorf("account: find user: %w", errFind)
	}
	return &user, nil
}

// checkLimit deducts one token and converts a denial into RateLimitedError
// with a RATE_LIMIT_EXCEEDED event. Limiter backend errors fail open.
func (s *Service) checkLimit(ctx context.Context, action ratelimit.Action, key string, userID *uint64, ip string) error {
	result, errCheck := s.limiter.Check(ctx, action, key)
	if errCheck != nil {
		log.WithError(errCheck).WithField("action", string(action)).Warn("account: rate limit check failed")
		return nil
	}
	if result.Allowed {
		return nil
	}
	s.events.Log(ctx, events.Entry{
		Type:    events.TypeRateLimitExceeded,
		UserID:  userID,
		IP:      ip,
		Details: fmt.Sprintf("action %s throttled", action),
	})
	return &RateLimitedError{RetryAfter: result.RetryAfter}
}

func (s *Service) passwordMaxAgeDays() int {
	return settings.IntValue(settings.PasswordMaxAgeDaysKey, settings.DefaultPasswordMaxAgeDays)
}

func (s *Service) passwordHistorySize() int {
	return settings.IntValue(settings.PasswordHistorySizeKey, settings.DefaultPasswordHistorySize)
}

// RecentEvents returns the user's newest security events.
func (s *Service) RecentEvents(ctx context.Context, userID uint64, limit int) ([]models.SecurityEvent, error) {
	return s.events.Recent(ctx, &userID, limit)
}

func logAttemptError(userID uint64, err error) {
	log.WithError(err).WithField("user_id", userID).Warn("account: record login attempt")
}

func (s *Service) saveUser(ctx context.Context, user *models.User) error {
	if errSave := s.db.WithContext(ctx).Save(user).Error; errSave != nil {
		return fmt.Errorf("account: save user: %w", errSave)
	}
	return nil
}
