// Package lockout implements the failed-login lockout policy.
package lockout

import (
	"time"

	"github.com/newsforge/accountguard/internal/models"
	internalsettings "github.com/newsforge/accountguard/internal/settings"
)

// Policy holds the lockout thresholds.
type Policy struct {
	Threshold    int           // Consecutive failures that trigger a lock.
	LockDuration time.Duration // How long a lock lasts.
	StaleWindow  time.Duration // Failures older than this reset the counter.
}

// DefaultPolicy returns the built-in lockout policy.
func DefaultPolicy() Policy {
	return Policy{
		Threshold:    internalsettings.DefaultLockoutThreshold,
		LockDuration: internalsettings.DefaultLockoutDurationMinutes * time.Minute,
		StaleWindow:  internalsettings.DefaultLockoutStaleWindowMinutes * time.Minute,
	}
}

// SettingsPolicy returns the lockout policy from the settings snapshot.
func SettingsPolicy() Policy {
	return Policy{
		Threshold: internalsettings.IntValue(
			internalsettings.LockoutThresholdKey, internalsettings.DefaultLockoutThreshold),
		LockDuration: time.Duration(internalsettings.IntValue(
			internalsettings.LockoutDurationMinutesKey, internalsettings.DefaultLockoutDurationMinutes)) * time.Minute,
		StaleWindow: time.Duration(internalsettings.IntValue(
			internalsettings.LockoutStaleWindowMinutesKey, internalsettings.DefaultLockoutStaleWindowMinutes)) * time.Minute,
	}
}

// shouldResetFailedAttempts reports whether the standing counter is stale.
// The decision uses the attempt timestamp recorded before this call started,
// so two attempts straddling the window boundary cannot double-reset.
func (p Policy) shouldResetFailedAttempts(profile *models.User, now time.Time) bool {
	if profile.LastLoginAttempt == nil {
		return false
	}
	return now.Sub(*profile.LastLoginAttempt) > p.StaleWindow
}

// RecordFailedAttempt applies one failed login to the profile.
// Returns true when this failure transitioned the account into the locked state.
func (p Policy) RecordFailedAttempt(profile *models.User, now time.Time) bool {
	if profile == nil {
		return false
	}
	if p.shouldResetFailedAttempts(profile, now) {
		profile.FailedLoginAttempts = 0
	}
	profile.FailedLoginAttempts++
	attemptAt := now
	profile.LastLoginAttempt = &attemptAt

	if profile.FailedLoginAttempts >= p.Threshold {
		lockUntil := now.Add(p.LockDuration)
		profile.LockUntil = &lockUntil
		return true
	}
	return false
}

// RecordSuccess clears the counter and any standing lock.
func (p Policy) RecordSuccess(profile *models.User, now time.Time) {
	if profile == nil {
		return
	}
	profile.FailedLoginAttempts = 0
	profile.LockUntil = nil
	attemptAt := now
	profile.LastLoginAttempt = &attemptAt
}

// IsLocked reports whether the profile is locked at the given instant.
// An expired lock is not cleared here; RecordSuccess or the next failure
// cycle performs the actual state transition.
func (p Policy) IsLocked(profile *models.User, now time.Time) bool {
	if profile == nil || profile.LockUntil == nil {
		return false
	}
	return profile.LockUntil.After(now)
}
