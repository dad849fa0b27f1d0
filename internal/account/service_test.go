package account

import (
	"context"
	"errors"
	"path/filepath"
	"testing"
	"time"

	"github.com/glebarez/sqlite"
	"github.com/pquerna/otp/totp"
	"gorm.io/gorm"
	gormlogger "gorm.io/gorm/logger"

	"github.com/newsforge/accountguard/internal/config"
	"github.com/newsforge/accountguard/internal/events"
	"github.com/newsforge/accountguard/internal/fingerprint"
	"github.com/newsforge/accountguard/internal/models"
	"github.com/newsforge/accountguard/internal/ratelimit"
	"github.com/newsforge/accountguard/internal/security"
	"github.com/newsforge/accountguard/internal/sessions"
	"github.com/newsforge/accountguard/internal/settings"
)

const (
	testPassword = "Sup3rSecret"
	testUA       = "Mozilla/5.0 (Windows NT 10.0; Win64; x64) AppleWebKit/537.36 (KHTML, like Gecko) Chrome/125.0.0.0 Safari/537.36"
)

type captureMailer struct {
	verifyToken string
	resetToken  string
	fail        bool
}

func (m *captureMailer) SendVerification(_ context.Context, _, token string) error {
	if m.fail {
		return errors.New("smtp unavailable")
	}
	m.verifyToken = token
	return nil
}

func (m *captureMailer) SendPasswordReset(_ context.Context, _, token string) error {
	if m.fail {
		return errors.New("smtp unavailable")
	}
	m.resetToken = token
	return nil
}

type harness struct {
	service *Service
	mail    *captureMailer
	db      *gorm.DB
	now     *time.Time
}

func newHarness(t *testing.T) *harness {
	t.Helper()
	settings.ReplaceSnapshot(settings.Defaults())

	conn, errOpen := gorm.Open(sqlite.Open(filepath.Join(t.TempDir(), "account.db")), &gorm.Config{
		Logger: gormlogger.Default.LogMode(gormlogger.Silent),
	})
	if errOpen != nil {
		t.Fatalf("open sqlite: %v", errOpen)
	}
	errMigrate := conn.AutoMigrate(
		&models.User{}, &models.Session{}, &models.Device{},
		&models.LoginRecord{}, &models.SecurityEvent{},
	)
	if errMigrate != nil {
		t.Fatalf("migrate: %v", errMigrate)
	}

	now := time.Date(2035, 6, 1, 12, 0, 0, 0, time.UTC)
	nowFn := func() time.Time { return now }
	mail := &captureMailer{}
	limiter := ratelimit.NewManager(func() ratelimit.SettingsConfig { return ratelimit.SettingsConfig{} }, nowFn, nil)
	service := NewService(
		conn,
		sessions.NewRegistry(conn, nowFn),
		fingerprint.NewEngine(conn),
		limiter,
		events.NewLogger(conn),
		mail,
		config.JWTConfig{Secret: "test-secret", Expiry: time.Hour},
	)
	service.nowFn = nowFn

	return &harness{service: service, mail: mail, db: conn, now: &now}
}

func (h *harness) register(t *testing.T, username string) *models.User {
	t.Helper()
	user, errRegister := h.service.Register(context.Background(), RegisterInput{
		Username: username,
		Email:    username + "@example.com",
		Password: testPassword,
		IP:       "10.0.0.1",
	})
	if errRegister != nil {
		t.Fatalf("register: %v", errRegister)
	}
	if errVerify := h.service.VerifyEmail(context.Background(), h.mail.verifyToken); errVerify != nil {
		t.Fatalf("verify email: %v", errVerify)
	}
	return user
}

func (h *harness) login(username, password, ip string) (*LoginResult, error) {
	return h.service.Login(context.Background(), LoginInput{
		Username:  username,
		Password:  password,
		IP:        ip,
		UserAgent: testUA,
	})
}

func (h *harness) hasEvent(t *testing.T, eventType string) bool {
	t.Helper()
	rows, errQuery := h.service.events.ByType(context.Background(), eventType, 10)
	if errQuery != nil {
		t.Fatalf("query events: %v", errQuery)
	}
	return len(rows) > 0
}

func TestRegisterVerifyLogin(t *testing.T) {
	h := newHarness(t)
	h.register(t, "alice")

	result, errLogin := h.login("alice", testPassword, "10.0.0.1")
	if errLogin != nil {
		t.Fatalf("login: %v", errLogin)
	}
	if result.Session == nil || result.Session.Token == "" {
		t.Fatalf("login did not create a session")
	}
	if !result.NewDevice {
		t.Fatalf("first login must flag a new device")
	}
	if result.RiskScore != float64(settings.DefaultRiskWeightNovelty) {
		t.Fatalf("expected pure novelty score, got %v", result.RiskScore)
	}

	claims, errParse := security.ParseAccessToken("test-secret", result.AccessToken)
	if errParse != nil {
		t.Fatalf("parse access token: %v", errParse)
	}
	if claims.UserID != result.User.ID || claims.SessionToken != result.Session.Token {
		t.Fatalf("token claims do not match session")
	}

	for _, eventType := range []string{
		events.TypeAccountCreated, events.TypeEmailVerified,
		events.TypeLoginSuccess, events.TypeSessionCreated, events.TypeLoginNewDevice,
	} {
		if !h.hasEvent(t, eventType) {
			t.Fatalf("missing %s event", eventType)
		}
	}
}

func TestRegisterRollsBackOnMailFailure(t *testing.T) {
	h := newHarness(t)
	h.mail.fail = true

	_, errRegister := h.service.Register(context.Background(), RegisterInput{
		Username: "bob",
		Email:    "bob@example.com",
		Password: testPassword,
	})
	if errRegister == nil {
		t.Fatalf("expected registration failure when mail cannot be sent")
	}
	var count int64
	if errCount := h.db.Model(&models.User{}).Count(&count).Error; errCount != nil {
		t.Fatalf("count users: %v", errCount)
	}
	if count != 0 {
		t.Fatalf("account not rolled back after mail failure")
	}
}

func TestRegisterDuplicate(t *testing.T) {
	h := newHarness(t)
	h.register(t, "alice")

	_, errRegister := h.service.Register(context.Background(), RegisterInput{
		Username: "alice",
		Email:    "other@example.com",
		Password: testPassword,
	})
	if !errors.Is(errRegister, ErrUserExists) {
		t.Fatalf("expected ErrUserExists, got %v", errRegister)
	}
}

func TestRegisterRejectsMissingFields(t *testing.T) {
	h := newHarness(t)

	_, errRegister := h.service.Register(context.Background(), RegisterInput{
		Email:    "alice@example.com",
		Password: testPassword,
		IP:       "10.0.0.1",
	})
	if errRegister == nil {
		t.Fatalf("expected rejection without a username")
	}
	if !h.hasEvent(t, events.TypeInvalidRequest) {
		t.Fatalf("missing INVALID_REQUEST event")
	}
}

func TestLoginFailuresAreIndistinguishable(t *testing.T) {
	h := newHarness(t)
	h.register(t, "alice")

	_, errUnknown := h.login("nobody", testPassword, "10.0.0.1")
	_, errWrong := h.login("alice", "Wr0ngPassword", "10.0.0.1")
	if !errors.Is(errUnknown, ErrInvalidCredentials) || !errors.Is(errWrong, ErrInvalidCredentials) {
		t.Fatalf("expected ErrInvalidCredentials for both, got %v and %v", errUnknown, errWrong)
	}

	// The audit trail separates the causes the response hides.
	if !h.hasEvent(t, events.TypeUserNotFound) {
		t.Fatalf("missing USER_NOT_FOUND event for unknown username")
	}
	if !h.hasEvent(t, events.TypeLoginFailure) {
		t.Fatalf("missing LOGIN_FAILURE event for wrong password")
	}
}

func TestLockoutAfterThresholdFailures(t *testing.T) {
	h := newHarness(t)
	user := h.register(t, "alice")

	var lastErr error
	for i := 0; i < settings.DefaultLockoutThreshold; i++ {
		_, lastErr = h.login("alice", "Wr0ngPassword", "10.0.0.1")
	}
	if !errors.Is(lastErr, ErrAccountLocked) {
		t.Fatalf("expected lock on failure %d, got %v", settings.DefaultLockoutThreshold, lastErr)
	}
	if !h.hasEvent(t, events.TypeAccountLockout) {
		t.Fatalf("missing ACCOUNT_LOCKED event")
	}

	// Even the correct password is rejected while the lock holds. Advance
	// past the limiter window so the next attempt reaches the lock check.
	*h.now = h.now.Add(6 * time.Minute)
	if _, errLogin := h.login("alice", testPassword, "10.0.0.1"); !errors.Is(errLogin, ErrAccountLocked) {
		t.Fatalf("expected ErrAccountLocked with correct password, got %v", errLogin)
	}

	// Admin unlock restores access immediately.
	if errUnlock := h.service.Unlock(context.Background(), 99, user.ID); errUnlock != nil {
		t.Fatalf("unlock: %v", errUnlock)
	}
	if _, errLogin := h.login("alice", testPassword, "10.0.0.1"); errLogin != nil {
		t.Fatalf("login after unlock: %v", errLogin)
	}
}

func TestLoginRateLimitedPerIP(t *testing.T) {
	h := newHarness(t)
	h.register(t, "alice")

	for i := 0; i < 5; i++ {
		if _, errLogin := h.login("alice", testPassword, "10.0.0.9"); errLogin != nil {
			t.Fatalf("login %d: %v", i, errLogin)
		}
	}
	_, errLogin := h.login("alice", testPassword, "10.0.0.9")
	retryAfter, limited := IsRateLimited(errLogin)
	if !limited {
		t.Fatalf("expected rate limit rejection, got %v", errLogin)
	}
	if retryAfter <= 0 {
		t.Fatalf("expected positive retry-after, got %v", retryAfter)
	}
	if !h.hasEvent(t, events.TypeRateLimitExceeded) {
		t.Fatalf("missing RATE_LIMIT_EXCEEDED event")
	}

	// A different address is not throttled.
	if _, errOther := h.login("alice", testPassword, "10.0.0.10"); errOther != nil {
		t.Fatalf("login from other ip: %v", errOther)
	}
}

func TestChangePasswordRejectsReuseAndRevokesOtherSessions(t *testing.T) {
	h := newHarness(t)
	user := h.register(t, "alice")
	ctx := context.Background()

	first, errLogin := h.login("alice", testPassword, "10.0.0.1")
	if errLogin != nil {
		t.Fatalf("login: %v", errLogin)
	}
	second, errLogin := h.login("alice", testPassword, "10.0.0.2")
	if errLogin != nil {
		t.Fatalf("second login: %v", errLogin)
	}

	errChange := h.service.ChangePassword(ctx, user.ID, "NotTheP4ssword", "N3wSecret99", first.Session.Token)
	if !errors.Is(errChange, ErrInvalidCredentials) {
		t.Fatalf("expected current password rejection, got %v", errChange)
	}
	if !h.hasEvent(t, events.TypeInvalidCurrentPassword) {
		t.Fatalf("missing INVALID_CURRENT_PASSWORD event")
	}

	errChange = h.service.ChangePassword(ctx, user.ID, testPassword, testPassword, first.Session.Token)
	if !errors.Is(errChange, security.ErrPasswordReused) {
		t.Fatalf("expected reuse rejection, got %v", errChange)
	}
	if !h.hasEvent(t, events.TypePasswordChangeError) {
		t.Fatalf("missing PASSWORD_CHANGE_ERROR event for reuse")
	}

	errChange = h.service.ChangePassword(ctx, user.ID, testPassword, "N3wSecret99", first.Session.Token)
	if errChange != nil {
		t.Fatalf("change password: %v", errChange)
	}

	if session, _ := h.service.sessions.Get(ctx, user.ID, first.Session.Token); session == nil {
		t.Fatalf("kept session was revoked")
	}
	if session, _ := h.service.sessions.Get(ctx, user.ID, second.Session.Token); session != nil {
		t.Fatalf("other session survived password change")
	}

	// The old password is remembered and rejected on the next change.
	errChange = h.service.ChangePassword(ctx, user.ID, "N3wSecret99", testPassword, first.Session.Token)
	if !errors.Is(errChange, security.ErrPasswordReused) {
		t.Fatalf("expected history rejection, got %v", errChange)
	}
}

func TestPasswordResetFlow(t *testing.T) {
	h := newHarness(t)
	user := h.register(t, "alice")
	ctx := context.Background()

	if errRequest := h.service.RequestPasswordReset(ctx, "alice@example.com", "10.0.0.1"); errRequest != nil {
		t.Fatalf("request reset: %v", errRequest)
	}
	if h.mail.resetToken == "" {
		t.Fatalf("no reset token delivered")
	}

	// Unknown addresses report success without sending anything.
	delivered := h.mail.resetToken
	if errRequest := h.service.RequestPasswordReset(ctx, "ghost@example.com", "10.0.0.1"); errRequest != nil {
		t.Fatalf("request reset for unknown address: %v", errRequest)
	}
	if h.mail.resetToken != delivered {
		t.Fatalf("unknown address produced a reset token")
	}

	if errComplete := h.service.CompletePasswordReset(ctx, h.mail.resetToken, "N3wSecret99"); errComplete != nil {
		t.Fatalf("complete reset: %v", errComplete)
	}
	if _, errLogin := h.login("alice", testPassword, "10.0.0.2"); errLogin == nil {
		t.Fatalf("old password still accepted")
	}
	if _, errLogin := h.login("alice", "N3wSecret99", "10.0.0.3"); errLogin != nil {
		t.Fatalf("login with reset password: %v", errLogin)
	}

	// The token is single use.
	if errAgain := h.service.CompletePasswordReset(ctx, h.mail.resetToken, "An0therSecret"); !errors.Is(errAgain, ErrInvalidResetToken) {
		t.Fatalf("expected consumed token rejection, got %v", errAgain)
	}
	_ = user
}

func TestCompleteResetClearsLockout(t *testing.T) {
	h := newHarness(t)
	user := h.register(t, "alice")
	ctx := context.Background()

	for i := 0; i < settings.DefaultLockoutThreshold; i++ {
		_, _ = h.login("alice", "Wr0ngPassword", "10.0.0.1")
	}
	if errRequest := h.service.RequestPasswordReset(ctx, "alice@example.com", "10.0.0.2"); errRequest != nil {
		t.Fatalf("request reset: %v", errRequest)
	}
	if errComplete := h.service.CompletePasswordReset(ctx, h.mail.resetToken, "N3wSecret99"); errComplete != nil {
		t.Fatalf("complete reset: %v", errComplete)
	}
	updated, errGet := h.service.GetUser(ctx, user.ID)
	if errGet != nil {
		t.Fatalf("get user: %v", errGet)
	}
	if updated.LockUntil != nil || updated.FailedLoginAttempts != 0 {
		t.Fatalf("lockout state survived the reset")
	}
	if _, errLogin := h.login("alice", "N3wSecret99", "10.0.0.3"); errLogin != nil {
		t.Fatalf("login after reset: %v", errLogin)
	}
}

func TestPasswordResetTokenExpires(t *testing.T) {
	h := newHarness(t)
	h.register(t, "alice")
	ctx := context.Background()

	if errRequest := h.service.RequestPasswordReset(ctx, "alice@example.com", "10.0.0.1"); errRequest != nil {
		t.Fatalf("request reset: %v", errRequest)
	}
	*h.now = h.now.Add(resetTokenTTL + time.Minute)
	if errComplete := h.service.CompletePasswordReset(ctx, h.mail.resetToken, "N3wSecret99"); !errors.Is(errComplete, ErrInvalidResetToken) {
		t.Fatalf("expected expired token rejection, got %v", errComplete)
	}
	if !h.hasEvent(t, events.TypeUnauthorizedPasswordChange) {
		t.Fatalf("missing UNAUTHORIZED_PASSWORD_CHANGE event for expired token")
	}
}

func TestTwoFactorLogin(t *testing.T) {
	h := newHarness(t)
	user := h.register(t, "alice")
	ctx := context.Background()

	secret, url, errSetup := h.service.SetupTwoFactor(ctx, user.ID)
	if errSetup != nil {
		t.Fatalf("setup two-factor: %v", errSetup)
	}
	if secret == "" || url == "" {
		t.Fatalf("empty secret or provisioning url")
	}

	// Login stays single-factor until the secret is confirmed.
	if _, errLogin := h.login("alice", testPassword, "10.0.0.1"); errLogin != nil {
		t.Fatalf("login before confirmation: %v", errLogin)
	}

	code, errCode := totp.GenerateCode(secret, time.Now())
	if errCode != nil {
		t.Fatalf("generate code: %v", errCode)
	}
	if errConfirm := h.service.ConfirmTwoFactor(ctx, user.ID, code); errConfirm != nil {
		t.Fatalf("confirm two-factor: %v", errConfirm)
	}

	if _, errLogin := h.login("alice", testPassword, "10.0.0.2"); !errors.Is(errLogin, ErrTwoFactorRequired) {
		t.Fatalf("expected two-factor requirement, got %v", errLogin)
	}

	code, errCode = totp.GenerateCode(secret, time.Now())
	if errCode != nil {
		t.Fatalf("generate code: %v", errCode)
	}
	result, errLogin := h.service.Login(ctx, LoginInput{
		Username:  "alice",
		Password:  testPassword,
		TOTPCode:  code,
		IP:        "10.0.0.3",
		UserAgent: testUA,
	})
	if errLogin != nil {
		t.Fatalf("two-factor login: %v", errLogin)
	}
	if result.Session == nil {
		t.Fatalf("two-factor login created no session")
	}
}

func TestLoginRejectsExpiredPassword(t *testing.T) {
	h := newHarness(t)
	user := h.register(t, "alice")

	expired := h.now.Add(-time.Hour)
	errUpdate := h.db.Model(&models.User{}).
		Where("id = ?", user.ID).
		Update("password_expires_at", expired).Error
	if errUpdate != nil {
		t.Fatalf("age password: %v", errUpdate)
	}

	if _, errLogin := h.login("alice", testPassword, "10.0.0.1"); !errors.Is(errLogin, ErrPasswordExpired) {
		t.Fatalf("expected ErrPasswordExpired, got %v", errLogin)
	}
	if !h.hasEvent(t, events.TypePasswordExpired) {
		t.Fatalf("missing PASSWORD_EXPIRED event")
	}
}

func TestSecurityQuestions(t *testing.T) {
	h := newHarness(t)
	user := h.register(t, "alice")
	ctx := context.Background()

	errSet := h.service.SetSecurityQuestions(ctx, user.ID, map[string]string{
		"First pet": "Rex",
	})
	if errSet != nil {
		t.Fatalf("set questions: %v", errSet)
	}
	if !h.hasEvent(t, events.TypeSecurityQuestionsUpdate) {
		t.Fatalf("missing SECURITY_QUESTIONS_UPDATE event")
	}

	// Answers match case-insensitively with surrounding space ignored.
	if errVerify := h.service.VerifySecurityQuestion(ctx, user.ID, "First pet", "  rex "); errVerify != nil {
		t.Fatalf("verify answer: %v", errVerify)
	}
	if errVerify := h.service.VerifySecurityQuestion(ctx, user.ID, "First pet", "Fido"); !errors.Is(errVerify, ErrSecurityAnswer) {
		t.Fatalf("expected answer rejection, got %v", errVerify)
	}

	tooMany := map[string]string{"a": "1", "b": "2", "c": "3", "d": "4"}
	if errSet := h.service.SetSecurityQuestions(ctx, user.ID, tooMany); errSet == nil {
		t.Fatalf("expected rejection above %d questions", models.MaxSecurityQuestions)
	}
}

func TestRefreshTokenSlidesSession(t *testing.T) {
	h := newHarness(t)
	user := h.register(t, "alice")
	ctx := context.Background()

	result, errLogin := h.login("alice", testPassword, "10.0.0.1")
	if errLogin != nil {
		t.Fatalf("login: %v", errLogin)
	}

	*h.now = h.now.Add(time.Hour)
	access, errRefresh := h.service.RefreshToken(ctx, user.ID, result.Session.Token, "10.0.0.1")
	if errRefresh != nil {
		t.Fatalf("refresh: %v", errRefresh)
	}
	if access == "" {
		t.Fatalf("empty refreshed token")
	}
	session, errGet := h.service.sessions.Get(ctx, user.ID, result.Session.Token)
	if errGet != nil {
		t.Fatalf("get session: %v", errGet)
	}
	if session == nil || !session.LastActivity.After(result.Session.LastActivity) {
		t.Fatalf("refresh did not slide the activity window")
	}

	if _, errMissing := h.service.RefreshToken(ctx, user.ID, "no-such-token", "10.0.0.1"); !errors.Is(errMissing, ErrSessionNotFound) {
		t.Fatalf("expected ErrSessionNotFound, got %v", errMissing)
	}
}

func TestChangeRolesValidatesTaxonomy(t *testing.T) {
	h := newHarness(t)
	user := h.register(t, "alice")
	ctx := context.Background()

	if errChange := h.service.ChangeRoles(ctx, 99, user.ID, []string{"root"}); !errors.Is(errChange, ErrInvalidRole) {
		t.Fatalf("expected ErrInvalidRole, got %v", errChange)
	}
	if errChange := h.service.ChangeRoles(ctx, 99, user.ID, []string{models.RoleUser, models.RoleModerator}); errChange != nil {
		t.Fatalf("change roles: %v", errChange)
	}
	updated, errGet := h.service.GetUser(ctx, user.ID)
	if errGet != nil {
		t.Fatalf("get user: %v", errGet)
	}
	if !updated.Roles.Contains(models.RoleModerator) {
		t.Fatalf("moderator role not applied")
	}
	if !h.hasEvent(t, events.TypeRoleChange) {
		t.Fatalf("missing ROLES_CHANGED event")
	}
	if errChange := h.service.ChangeRoles(ctx, 99, 424242, []string{models.RoleUser}); !errors.Is(errChange, ErrUserNotFound) {
		t.Fatalf("expected ErrUserNotFound, got %v", errChange)
	}
}

func TestDisabledAccountCannotLogin(t *testing.T) {
	h := newHarness(t)
	user := h.register(t, "alice")
	ctx := context.Background()

	result, errLogin := h.login("alice", testPassword, "10.0.0.1")
	if errLogin != nil {
		t.Fatalf("login: %v", errLogin)
	}
	if errDisable := h.service.SetActive(ctx, 99, user.ID, false); errDisable != nil {
		t.Fatalf("disable: %v", errDisable)
	}
	if session, _ := h.service.sessions.Get(ctx, user.ID, result.Session.Token); session != nil {
		t.Fatalf("sessions survived deactivation")
	}
	if _, errAgain := h.login("alice", testPassword, "10.0.0.2"); !errors.Is(errAgain, ErrAccountDisabled) {
		t.Fatalf("expected ErrAccountDisabled, got %v", errAgain)
	}
}

func TestTrustDeviceRequiresKnownFingerprint(t *testing.T) {
	h := newHarness(t)
	user := h.register(t, "alice")
	ctx := context.Background()

	if _, errLogin := h.login("alice", testPassword, "10.0.0.1"); errLogin != nil {
		t.Fatalf("login: %v", errLogin)
	}
	devices, errDevices := h.service.Devices(ctx, user.ID)
	if errDevices != nil {
		t.Fatalf("devices: %v", errDevices)
	}
	if len(devices) != 1 {
		t.Fatalf("expected 1 device, got %d", len(devices))
	}
	if errTrust := h.service.TrustDevice(ctx, user.ID, devices[0].Fingerprint); errTrust != nil {
		t.Fatalf("trust device: %v", errTrust)
	}
	if errTrust := h.service.TrustDevice(ctx, user.ID, "unseen"); errTrust == nil {
		t.Fatalf("expected failure for unseen fingerprint")
	}
	if !h.hasEvent(t, events.TypeDeviceTrusted) {
		t.Fatalf("missing DEVICE_TRUSTED event")
	}
}

func TestUnverifiedEmailCannotLogin(t *testing.T) {
	h := newHarness(t)
	if _, errRegister := h.service.Register(context.Background(), RegisterInput{
		Username: "carol",
		Email:    "carol@example.com",
		Password: testPassword,
	}); errRegister != nil {
		t.Fatalf("register: %v", errRegister)
	}
	if _, errLogin := h.login("carol", testPassword, "10.0.0.1"); !errors.Is(errLogin, ErrEmailNotVerified) {
		t.Fatalf("expected ErrEmailNotVerified, got %v", errLogin)
	}
}

func TestListUsersSearch(t *testing.T) {
	h := newHarness(t)
	h.register(t, "alice")
	h.register(t, "bob")
	ctx := context.Background()

	users, total, errList := h.service.ListUsers(ctx, "", 0, 50)
	if errList != nil {
		t.Fatalf("list users: %v", errList)
	}
	if total != 2 || len(users) != 2 {
		t.Fatalf("total = %d, rows = %d, want 2 and 2", total, len(users))
	}

	users, total, errList = h.service.ListUsers(ctx, "ALI", 0, 50)
	if errList != nil {
		t.Fatalf("search users: %v", errList)
	}
	if total != 1 || len(users) != 1 || users[0].Username != "alice" {
		t.Fatalf("unexpected search result: total=%d rows=%v", total, users)
	}

	users, _, errList = h.service.ListUsers(ctx, "bob@example", 0, 50)
	if errList != nil {
		t.Fatalf("search by email: %v", errList)
	}
	if len(users) != 1 || users[0].Username != "bob" {
		t.Fatalf("email search missed: %v", users)
	}
}
