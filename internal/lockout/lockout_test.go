package lockout

import (
	"testing"
	"time"

	"github.com/newsforge/accountguard/internal/models"
)

func testPolicy() Policy {
	return Policy{
		Threshold:    5,
		LockDuration: 30 * time.Minute,
		StaleWindow:  30 * time.Minute,
	}
}

func TestLocksAfterThresholdFailures(t *testing.T) {
	policy := testPolicy()
	now := time.Date(2025, 6, 1, 12, 0, 0, 0, time.UTC)
	profile := &models.User{}

	for i := 0; i < 4; i++ {
		now = now.Add(10 * time.Second)
		if locked := policy.RecordFailedAttempt(profile, now); locked {
			t.Fatalf("locked after %d failures", i+1)
		}
		if policy.IsLocked(profile, now) {
			t.Fatalf("IsLocked=true after %d failures", i+1)
		}
	}

	now = now.Add(10 * time.Second)
	if locked := policy.RecordFailedAttempt(profile, now); !locked {
		t.Fatalf("expected lock transition on 5th failure")
	}
	if !policy.IsLocked(profile, now) {
		t.Fatalf("expected IsLocked=true after 5th failure")
	}
	if profile.LockUntil == nil {
		t.Fatalf("expected LockUntil to be set")
	}
	if got, want := *profile.LockUntil, now.Add(30*time.Minute); !got.Equal(want) {
		t.Fatalf("expected LockUntil=%s, got %s", want, got)
	}
}

func TestStaleFailureResetsCounter(t *testing.T) {
	policy := testPolicy()
	now := time.Date(2025, 6, 1, 12, 0, 0, 0, time.UTC)
	profile := &models.User{}

	for i := 0; i < 4; i++ {
		policy.RecordFailedAttempt(profile, now)
		now = now.Add(time.Minute)
	}
	if profile.FailedLoginAttempts != 4 {
		t.Fatalf("expected 4 failures, got %d", profile.FailedLoginAttempts)
	}

	// Next failure lands past the stale window: counter restarts at 1.
	now = now.Add(31 * time.Minute)
	policy.RecordFailedAttempt(profile, now)
	if profile.FailedLoginAttempts != 1 {
		t.Fatalf("expected counter reset to 1, got %d", profile.FailedLoginAttempts)
	}
	if policy.IsLocked(profile, now) {
		t.Fatalf("expected unlocked after stale reset")
	}
}

func TestBoundaryFailureDoesNotDoubleReset(t *testing.T) {
	policy := testPolicy()
	base := time.Date(2025, 6, 1, 12, 0, 0, 0, time.UTC)
	profile := &models.User{}

	policy.RecordFailedAttempt(profile, base)

	// Exactly at the window boundary: not stale (strictly greater required).
	atBoundary := base.Add(30 * time.Minute)
	policy.RecordFailedAttempt(profile, atBoundary)
	if profile.FailedLoginAttempts != 2 {
		t.Fatalf("expected counter 2 at boundary, got %d", profile.FailedLoginAttempts)
	}

	// One nanosecond past the boundary relative to the prior attempt: stale.
	pastBoundary := atBoundary.Add(30*time.Minute + time.Nanosecond)
	policy.RecordFailedAttempt(profile, pastBoundary)
	if profile.FailedLoginAttempts != 1 {
		t.Fatalf("expected counter 1 past boundary, got %d", profile.FailedLoginAttempts)
	}
}

func TestRecordSuccessClearsLock(t *testing.T) {
	policy := testPolicy()
	now := time.Date(2025, 6, 1, 12, 0, 0, 0, time.UTC)
	profile := &models.User{}

	for i := 0; i < 5; i++ {
		now = now.Add(time.Second)
		policy.RecordFailedAttempt(profile, now)
	}
	if !policy.IsLocked(profile, now) {
		t.Fatalf("expected locked")
	}

	policy.RecordSuccess(profile, now.Add(time.Minute))
	if profile.FailedLoginAttempts != 0 {
		t.Fatalf("expected counter 0 after success, got %d", profile.FailedLoginAttempts)
	}
	if profile.LockUntil != nil {
		t.Fatalf("expected LockUntil cleared")
	}
	if policy.IsLocked(profile, now.Add(time.Minute)) {
		t.Fatalf("expected unlocked after success")
	}
}

func TestLockExpiresWithoutStateTransition(t *testing.T) {
	policy := testPolicy()
	now := time.Date(2025, 6, 1, 12, 0, 0, 0, time.UTC)
	profile := &models.User{}

	for i := 0; i < 5; i++ {
		now = now.Add(time.Second)
		policy.RecordFailedAttempt(profile, now)
	}

	afterLock := now.Add(31 * time.Minute)
	if policy.IsLocked(profile, afterLock) {
		t.Fatalf("expected lock expired")
	}
	// IsLocked must not mutate the profile.
	if profile.LockUntil == nil {
		t.Fatalf("expected LockUntil untouched by IsLocked")
	}
}

func TestScenarioFourFailuresThenFifthLocks(t *testing.T) {
	policy := testPolicy()
	now := time.Date(2025, 6, 1, 9, 0, 0, 0, time.UTC)
	profile := &models.User{}

	for i := 0; i < 4; i++ {
		now = now.Add(2 * time.Minute)
		policy.RecordFailedAttempt(profile, now)
	}
	if policy.IsLocked(profile, now) {
		t.Fatalf("expected unlocked after 4 failures")
	}

	now = now.Add(2 * time.Minute)
	policy.RecordFailedAttempt(profile, now)
	if !policy.IsLocked(profile, now) {
		t.Fatalf("expected locked after 5th failure")
	}
	if got, want := *profile.LockUntil, now.Add(30*time.Minute); !got.Equal(want) {
		t.Fatalf("expected LockUntil=%s, got %s", want, got)
	}

	profile.LockUntil = nil
	policy.RecordSuccess(profile, now.Add(time.Minute))
	if profile.FailedLoginAttempts != 0 {
		t.Fatalf("expected counter reset by success, got %d", profile.FailedLoginAttempts)
	}
}
