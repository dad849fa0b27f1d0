package account

import (
	"context"
	"errors"
	"fmt"

	"github.com/newsforge/accountguard/internal/events"
	"github.com/newsforge/accountguard/internal/fingerprint"
	"github.com/newsforge/accountguard/internal/lockout"
	"github.com/newsforge/accountguard/internal/models"
	"github.com/newsforge/accountguard/internal/ratelimit"
	"github.com/newsforge/accountguard/internal/security"
	"github.com/newsforge/accountguard/internal/sessions"
)

// LoginInput carries the credentials and client signals for one attempt.
type LoginInput struct {
	Username  string
	Password  string
	TOTPCode  string
	IP        string
	UserAgent string
	Location  string
	// Signals are extra client fingerprint attributes such as screen
	// resolution or timezone.
	Signals map[string]string
}

// LoginResult describes a successful authentication.
type LoginResult struct {
	User        *models.User
	Session     *models.Session
	AccessToken string
	RiskScore   float64
	NewDevice   bool
}

// Login runs the full authentication pipeline: rate limit, lockout state,
// password, account state, two-factor, password age, then session issuance
// with device risk scoring. Credential failures are indistinguishable for
// unknown users and wrong passwords.
func (s *Service) Login(ctx context.Context, input LoginInput) (*LoginResult, error) {
	if errLimit := s.checkLimit(ctx, ratelimit.ActionLogin, ratelimit.IPKey(ratelimit.ActionLogin, input.IP), nil, input.IP); errLimit != nil {
		return nil, errLimit
	}

	user, errFind := s.userByUsername(ctx, input.Username)
	if errFind != nil {
		if errors.Is(errFind, ErrUserNotFound) {
			s.events.Log(ctx, events.Entry{
				Type:      events.TypeUserNotFound,
				IP:        input.IP,
				UserAgent: input.UserAgent,
				Details:   "login attempt for unknown username",
			})
			return nil, ErrInvalidCredentials
		}
		return nil, errFind
	}

	// Lockout state and the failure counter are read-modify-write, so the
	// whole check runs under the per-user lock.
	key := userLockKey(user.ID)
	s.userLocks.Lock(key)
	defer s.userLocks.Unlock(key)

	now := s.nowFn()
	policy := lockout.SettingsPolicy()
	if policy.IsLocked(user, now) {
		s.events.Log(ctx, events.Entry{
			Type:      events.TypeLoginFailure,
			UserID:    &user.ID,
			IP:        input.IP,
			UserAgent: input.UserAgent,
			Details:   "attempt while locked",
		})
		return nil, ErrAccountLocked
	}

	fp := fingerprint.Compute(input.UserAgent, input.Signals)

	if !security.VerifyPassword(user.PasswordHash, input.Password) {
		locked := policy.RecordFailedAttempt(user, now)
		if errSave := s.saveUser(ctx, user); errSave != nil {
			return nil, errSave
		}
		s.recordAttempt(ctx, user.ID, fp, input, false)
		s.events.Log(ctx, events.Entry{
			Type:      events.TypeLoginFailure,
			UserID:    &user.ID,
			IP:        input.IP,
			UserAgent: input.UserAgent,
			Details:   "wrong password",
		})
		if locked {
			s.events.Log(ctx, events.Entry{
				Type:      events.TypeAccountLockout,
				UserID:    &user.ID,
				IP:        input.IP,
				UserAgent: input.UserAgent,
				Details:   fmt.Sprintf("locked after %d failed attempts", user.FailedLoginAttempts),
			})
			return nil, ErrAccountLocked
		}
		return nil, ErrInvalidCredentials
	}

	if !user.Active {
		return nil, ErrAccountDisabled
	}
	if !user.EmailVerified {
		return nil, ErrEmailNotVerified
	}

	if user.TOTPConfirmed {
		if input.TOTPCode == "" {
			return nil, ErrTwoFactorRequired
		}
		if !security.ValidateTOTPCode(user.TOTPSecret, input.TOTPCode) {
			s.events.Log(ctx, events.Entry{
				Type:      events.TypeLoginFailure,
				UserID:    &user.ID,
				IP:        input.IP,
				UserAgent: input.UserAgent,
				Details:   "invalid two-factor code",
			})
			return nil, ErrTwoFactorInvalid
		}
	}

	if security.PasswordExpired(user.PasswordExpiresAt, now) {
		s.events.Log(ctx, events.Entry{
			Type:    events.TypePasswordExpired,
			UserID:  &user.ID,
			IP:      input.IP,
			Details: "login rejected, password aged out",
		})
		return nil, ErrPasswordExpired
	}

	// Score before recording the attempt so first sight of the device
	// still counts as novelty.
	known, errKnown := s.risk.IsKnownDevice(ctx, user.ID, fp)
	if errKnown != nil {
		return nil, errKnown
	}
	score, errScore := s.risk.Score(ctx, user.ID, fp, input.IP)
	if errScore != nil {
		return nil, errScore
	}

	policy.RecordSuccess(user, now)
	if errSave := s.saveUser(ctx, user); errSave != nil {
		return nil, errSave
	}
	s.recordAttempt(ctx, user.ID, fp, input, true)
	if errStore := s.risk.StoreScore(ctx, user.ID, fp, score); errStore != nil {
		return nil, errStore
	}

	token := security.NewSessionToken()
	device := fingerprint.ParseUserAgent(input.UserAgent).String()
	session, errSession := s.sessions.Create(ctx, user.ID, token, device, input.IP)
	if errSession != nil {
		return nil, errSession
	}
	access, errIssue := security.IssueAccessToken(s.jwt.Secret, s.jwt.Expiry, user.ID, token, user.Roles, now)
	if errIssue != nil {
		return nil, errIssue
	}

	s.events.Log(ctx, events.Entry{
		Type:      events.TypeLoginSuccess,
		UserID:    &user.ID,
		IP:        input.IP,
		UserAgent: input.UserAgent,
		Details:   "login succeeded",
		Metadata:  map[string]any{"fingerprint": fp, "risk_score": score},
	})
	s.events.Log(ctx, events.Entry{
		Type:      events.TypeSessionCreated,
		UserID:    &user.ID,
		IP:        input.IP,
		UserAgent: input.UserAgent,
		Details:   "session created",
	})
	if !known {
		s.events.Log(ctx, events.Entry{
			Type:      events.TypeLoginNewDevice,
			UserID:    &user.ID,
			IP:        input.IP,
			UserAgent: input.UserAgent,
			Details:   "login from unrecognized device",
			Metadata:  map[string]any{"fingerprint": fp},
		})
	}
	if score >= fingerprint.AlertThreshold() {
		s.events.Log(ctx, events.Entry{
			Type:      events.TypeSuspiciousActivity,
			UserID:    &user.ID,
			IP:        input.IP,
			UserAgent: input.UserAgent,
			Details:   fmt.Sprintf("risk score %.0f at or above alert threshold", score),
			Metadata:  map[string]any{"fingerprint": fp, "risk_score": score},
		})
	}

	return &LoginResult{
		User:        user,
		Session:     session,
		AccessToken: access,
		RiskScore:   score,
		NewDevice:   !known,
	}, nil
}

func (s *Service) recordAttempt(ctx context.Context, userID uint64, fp string, input LoginInput, success bool) {
	label := fingerprint.ParseUserAgent(input.UserAgent).String()
	if errRecord := s.risk.RecordLogin(ctx, userID, fp, input.IP, input.Location, label, success); errRecord != nil {
		// Login history is advisory, a write failure must not fail the login.
		logAttemptError(userID, errRecord)
	}
}

// Logout revokes the session. Revoking an already absent session succeeds.
func (s *Service) Logout(ctx context.Context, userID uint64, sessionToken string) error {
	if errRevoke := s.sessions.Revoke(ctx, userID, sessionToken); errRevoke != nil {
		return errRevoke
	}
	s.events.Log(ctx, events.Entry{
		Type:    events.TypeLogout,
		UserID:  &userID,
		Details: "session logged out",
	})
	return nil
}

// RevokeSession terminates one session on behalf of its owner or an admin.
func (s *Service) RevokeSession(ctx context.Context, userID uint64, sessionToken string) error {
	if errRevoke := s.sessions.Revoke(ctx, userID, sessionToken); errRevoke != nil {
		return errRevoke
	}
	s.events.Log(ctx, events.Entry{
		Type:    events.TypeTokenBlacklist,
		UserID:  &userID,
		Details: "session token revoked and invalidated",
	})
	return nil
}

// RefreshToken validates the session, slides its activity window, and issues
// a fresh access token.
func (s *Service) RefreshToken(ctx context.Context, userID uint64, sessionToken, ip string) (string, error) {
	if errLimit := s.checkLimit(ctx, ratelimit.ActionTokenRefresh, ratelimit.UserKey(ratelimit.ActionTokenRefresh, userID), &userID, ip); errLimit != nil {
		return "", errLimit
	}
	session, errGet := s.sessions.Get(ctx, userID, sessionToken)
	if errGet != nil {
		return "", errGet
	}
	if session == nil || !sessions.IsValid(session, s.nowFn()) {
		return "", ErrSessionNotFound
	}
	user, errUser := s.GetUser(ctx, userID)
	if errUser != nil {
		return "", errUser
	}
	if errTouch := s.sessions.Touch(ctx, userID, sessionToken); errTouch != nil {
		return "", errTouch
	}
	access, errIssue := security.IssueAccessToken(s.jwt.Secret, s.jwt.Expiry, userID, sessionToken, user.Roles, s.nowFn())
	if errIssue != nil {
		return "", errIssue
	}
	s.events.Log(ctx, events.Entry{
		Type:    events.TypeTokenRefresh,
		UserID:  &userID,
		IP:      ip,
		Details: "access token refreshed",
	})
	return access, nil
}

// ValidateSession confirms the session is active and slides its activity
// window. Expired and revoked sessions return ErrSessionNotFound.
func (s *Service) ValidateSession(ctx context.Context, userID uint64, sessionToken string) error {
	session, errGet := s.sessions.Get(ctx, userID, sessionToken)
	if errGet != nil {
		return errGet
	}
	if session == nil || !sessions.IsValid(session, s.nowFn()) {
		return ErrSessionNotFound
	}
	return s.sessions.Touch(ctx, userID, sessionToken)
}

// Sessions lists the user's active sessions.
func (s *Service) Sessions(ctx context.Context, userID uint64) ([]models.Session, error) {
	return s.sessions.ListActive(ctx, userID)
}

// Devices lists the user's recorded devices.
func (s *Service) Devices(ctx context.Context, userID uint64) ([]models.Device, error) {
	return s.risk.Devices(ctx, userID)
}

// TrustDevice marks one of the user's devices as trusted.
func (s *Service) TrustDevice(ctx context.Context, userID uint64, fp string) error {
	if errTrust := s.risk.TrustDevice(ctx, userID, fp); errTrust != nil {
		return errTrust
	}
	s.events.Log(ctx, events.Entry{
		Type:     events.TypeDeviceTrusted,
		UserID:   &userID,
		Details:  "device marked trusted",
		Metadata: map[string]any{"fingerprint": fp},
	})
	return nil
}
