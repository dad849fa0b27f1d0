package security

import (
	"errors"
	"strings"
	"testing"
	"time"

	"github.com/pquerna/otp/totp"

	"github.com/newsforge/accountguard/internal/models"
)

func TestValidatePasswordPolicy(t *testing.T) {
	cases := []struct {
		password string
		want     error
	}{
		{"Sup3rSecret", nil},
		{"Ab1", ErrPasswordTooShort},
		{"alllowercase1", ErrPasswordTooWeak},
		{"ALLUPPERCASE1", ErrPasswordTooWeak},
		{"NoDigitsHere", ErrPasswordTooWeak},
	}
	for _, tc := range cases {
		if got := ValidatePasswordPolicy(tc.password); !errors.Is(got, tc.want) {
			t.Fatalf("ValidatePasswordPolicy(%q) = %v, want %v", tc.password, got, tc.want)
		}
	}
}

func TestHashAndVerifyPassword(t *testing.T) {
	hash, errHash := HashPassword("Sup3rSecret")
	if errHash != nil {
		t.Fatalf("HashPassword: %v", errHash)
	}
	if hash == "Sup3rSecret" {
		t.Fatal("hash must not equal plaintext")
	}
	if !VerifyPassword(hash, "Sup3rSecret") {
		t.Fatal("expected hash to verify")
	}
	if VerifyPassword(hash, "WrongPass1") {
		t.Fatal("expected mismatch to fail")
	}
}

func TestCheckPasswordHistory(t *testing.T) {
	current, _ := HashPassword("Curr3ntPass")
	prior, _ := HashPassword("Pr1orPass")

	if err := CheckPasswordHistory(current, []string{prior}, "Curr3ntPass"); !errors.Is(err, ErrPasswordReused) {
		t.Fatalf("current password reuse = %v, want ErrPasswordReused", err)
	}
	if err := CheckPasswordHistory(current, []string{prior}, "Pr1orPass"); !errors.Is(err, ErrPasswordReused) {
		t.Fatalf("prior password reuse = %v, want ErrPasswordReused", err)
	}
	if err := CheckPasswordHistory(current, []string{prior}, "Fr3shPass"); err != nil {
		t.Fatalf("fresh password = %v, want nil", err)
	}
}

func TestPushPasswordHistoryBounds(t *testing.T) {
	history := []string{"h1", "h2", "h3"}
	updated := PushPasswordHistory(history, "h0", 3)
	if len(updated) != 3 {
		t.Fatalf("history length = %d, want 3", len(updated))
	}
	if updated[0] != "h0" || updated[1] != "h1" || updated[2] != "h2" {
		t.Fatalf("unexpected history order: %v", updated)
	}
	if got := PushPasswordHistory(history, "h0", 0); got != nil {
		t.Fatalf("zero-size history = %v, want nil", got)
	}
}

func TestPasswordExpired(t *testing.T) {
	now := time.Date(2025, 6, 1, 12, 0, 0, 0, time.UTC)
	if PasswordExpired(time.Time{}, now) {
		t.Fatal("zero expiry must never expire")
	}
	if PasswordExpired(now.Add(time.Minute), now) {
		t.Fatal("future expiry should not be expired")
	}
	if !PasswordExpired(now, now) {
		t.Fatal("expiry at now should be expired")
	}
}

func TestAccessTokenRoundTrip(t *testing.T) {
	now := time.Now()
	session := NewSessionToken()
	signed, errIssue := IssueAccessToken("secret", time.Hour, 42, session, []string{"user", "admin"}, now)
	if errIssue != nil {
		t.Fatalf("IssueAccessToken: %v", errIssue)
	}

	claims, errParse := ParseAccessToken("secret", signed)
	if errParse != nil {
		t.Fatalf("ParseAccessToken: %v", errParse)
	}
	if claims.UserID != 42 {
		t.Fatalf("UserID = %d, want 42", claims.UserID)
	}
	if claims.SessionToken != session {
		t.Fatalf("SessionToken = %q, want %q", claims.SessionToken, session)
	}
	if len(claims.Roles) != 2 || claims.Roles[1] != "admin" {
		t.Fatalf("unexpected roles: %v", claims.Roles)
	}
}

func TestParseAccessTokenRejectsBadInput(t *testing.T) {
	now := time.Now()
	signed, errIssue := IssueAccessToken("secret", time.Hour, 1, NewSessionToken(), nil, now)
	if errIssue != nil {
		t.Fatalf("IssueAccessToken: %v", errIssue)
	}

	if _, errParse := ParseAccessToken("other-secret", signed); !errors.Is(errParse, ErrInvalidToken) {
		t.Fatalf("wrong secret = %v, want ErrInvalidToken", errParse)
	}
	if _, errParse := ParseAccessToken("secret", "not-a-jwt"); !errors.Is(errParse, ErrInvalidToken) {
		t.Fatalf("garbage token = %v, want ErrInvalidToken", errParse)
	}

	expired, errIssue := IssueAccessToken("secret", time.Hour, 1, NewSessionToken(), nil, now.Add(-2*time.Hour))
	if errIssue != nil {
		t.Fatalf("IssueAccessToken: %v", errIssue)
	}
	if _, errParse := ParseAccessToken("secret", expired); !errors.Is(errParse, ErrInvalidToken) {
		t.Fatalf("expired token = %v, want ErrInvalidToken", errParse)
	}
}

func TestIssueAccessTokenRequiresSecret(t *testing.T) {
	if _, errIssue := IssueAccessToken("  ", time.Hour, 1, NewSessionToken(), nil, time.Now()); errIssue == nil {
		t.Fatal("expected error for empty secret")
	}
}

func TestHashToken(t *testing.T) {
	digest := HashToken("reset-token")
	if len(digest) != 64 {
		t.Fatalf("digest length = %d, want 64", len(digest))
	}
	if digest != HashToken("reset-token") {
		t.Fatal("digest must be deterministic")
	}
	if digest == HashToken("other-token") {
		t.Fatal("distinct tokens must not collide")
	}
}

func TestSecurityAnswerNormalization(t *testing.T) {
	hash, errHash := HashSecurityAnswer("  Rex  ")
	if errHash != nil {
		t.Fatalf("HashSecurityAnswer: %v", errHash)
	}
	questions := models.QuestionList{{Question: "first pet", AnswerHash: hash}}

	if !VerifySecurityAnswer(questions, "first pet", "rex") {
		t.Fatal("expected case-insensitive match")
	}
	if !VerifySecurityAnswer(questions, "first pet", " REX ") {
		t.Fatal("expected trimmed match")
	}
	if VerifySecurityAnswer(questions, "first pet", "fido") {
		t.Fatal("expected wrong answer to fail")
	}
	if VerifySecurityAnswer(questions, "first car", "rex") {
		t.Fatal("expected unknown question to fail")
	}
	if _, errEmpty := HashSecurityAnswer("   "); errEmpty == nil {
		t.Fatal("expected error for blank answer")
	}
}

func TestTOTPLifecycle(t *testing.T) {
	secret, url, errGenerate := GenerateTOTPSecret("alice@example.com")
	if errGenerate != nil {
		t.Fatalf("GenerateTOTPSecret: %v", errGenerate)
	}
	if secret == "" {
		t.Fatal("expected non-empty secret")
	}
	if !strings.Contains(url, "otpauth://") || !strings.Contains(url, totpIssuer) {
		t.Fatalf("unexpected provisioning url: %q", url)
	}

	code, errCode := totp.GenerateCode(secret, time.Now())
	if errCode != nil {
		t.Fatalf("GenerateCode: %v", errCode)
	}
	if !ValidateTOTPCode(secret, code) {
		t.Fatal("expected generated code to validate")
	}
	if ValidateTOTPCode(secret, "000000") {
		t.Fatal("expected bogus code to fail")
	}
	if ValidateTOTPCode("", code) {
		t.Fatal("expected empty secret to fail")
	}
	if _, _, errEmpty := GenerateTOTPSecret(" "); errEmpty == nil {
		t.Fatal("expected error for empty account")
	}
}
