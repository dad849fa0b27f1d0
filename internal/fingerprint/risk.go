package fingerprint

import (
	"context"
	"errors"
	"fmt"
	"time"

	"gorm.io/gorm"

	"github.com/newsforge/accountguard/internal/models"
	"github.com/newsforge/accountguard/internal/settings"
)

const (
	velocityWindow   = time.Hour
	reputationWindow = 24 * time.Hour
	failureWindow    = 24 * time.Hour

	// velocitySaturation is the distinct IP count at which the velocity
	// factor reaches its full weight.
	velocitySaturation = 4
)

// Weights controls the relative contribution of each risk factor. Each value
// is the maximum number of points the factor can add to the final score.
type Weights struct {
	Novelty    float64
	Velocity   float64
	Reputation float64
	Failure    float64
}

// DefaultWeights returns the built-in factor weights.
func DefaultWeights() Weights {
	return Weights{
		Novelty:    settings.DefaultRiskWeightNovelty,
		Velocity:   settings.DefaultRiskWeightVelocity,
		Reputation: settings.DefaultRiskWeightReputation,
		Failure:    settings.DefaultRiskWeightFailure,
	}
}

// SettingsWeights builds factor weights from the live settings snapshot,
// falling back to the defaults for any missing key.
func SettingsWeights() Weights {
	base := DefaultWeights()
	return Weights{
		Novelty:    float64(settings.IntValue(settings.RiskWeightNoveltyKey, int(base.Novelty))),
		Velocity:   float64(settings.IntValue(settings.RiskWeightVelocityKey, int(base.Velocity))),
		Reputation: float64(settings.IntValue(settings.RiskWeightReputationKey, int(base.Reputation))),
		Failure:    float64(settings.IntValue(settings.RiskWeightFailureKey, int(base.Failure))),
	}
}

// Engine records login observations and scores attempts against the history
// stored in the devices and login_records tables.
type Engine struct {
	db      *gorm.DB
	nowFn   func() time.Time
	weights func() Weights
}

// NewEngine constructs a risk engine backed by the given database handle.
func NewEngine(db *gorm.DB) *Engine {
	return &Engine{db: db, nowFn: time.Now, weights: SettingsWeights}
}

// IsKnownDevice reports whether the fingerprint has been seen for the user.
func (e *Engine) IsKnownDevice(ctx context.Context, userID uint64, fp string) (bool, error) {
	if e == nil || e.db == nil {
		return false, fmt.Errorf("fingerprint: engine not initialized")
	}
	var count int64
	err := e.db.WithContext(ctx).
		Model(&models.Device{}).
		Where("user_id = ? AND fingerprint = ?", userID, fp).
		Count(&count).Error
	if err != nil {
		return false, fmt.Errorf("fingerprint: count devices: %w", err)
	}
	return count > 0, nil
}

// RecordLogin persists a login attempt and, on first sight of a fingerprint,
// creates an untrusted device row for the user labeled with the parsed
// device descriptor.
func (e *Engine) RecordLogin(ctx context.Context, userID uint64, fp, ip, location, label string, success bool) error {
	if e == nil || e.db == nil {
		return fmt.Errorf("fingerprint: engine not initialized")
	}
	now := e.nowFn()
	record := models.LoginRecord{
		UserID:      userID,
		Fingerprint: fp,
		IP:          ip,
		Success:     success,
		Location:    location,
		AttemptedAt: now,
	}
	if err := e.db.WithContext(ctx).Create(&record).Error; err != nil {
		return fmt.Errorf("fingerprint: record login: %w", err)
	}

	// The device row is created on first sight whether or not the attempt
	// succeeded. A failed attempt from a new fingerprint is exactly what
	// the novelty factor should remember.
	var device models.Device
	err := e.db.WithContext(ctx).
		Where("user_id = ? AND fingerprint = ?", userID, fp).
		First(&device).Error
	switch {
	case err == nil:
		return e.db.WithContext(ctx).
			Model(&models.Device{}).
			Where("id = ?", device.ID).
			Update("last_seen", now).Error
	case errors.Is(err, gorm.ErrRecordNotFound):
		device = models.Device{
			UserID:      userID,
			Fingerprint: fp,
			Device:      label,
			Trusted:     false,
			FirstSeen:   now,
			LastSeen:    now,
		}
		if createErr := e.db.WithContext(ctx).Create(&device).Error; createErr != nil {
			return fmt.Errorf("fingerprint: create device: %w", createErr)
		}
		return nil
	default:
		return fmt.Errorf("fingerprint: lookup device: %w", err)
	}
}

// TrustDevice marks a known device as trusted for the user.
func (e *Engine) TrustDevice(ctx context.Context, userID uint64, fp string) error {
	if e == nil || e.db == nil {
		return fmt.Errorf("fingerprint: engine not initialized")
	}
	result := e.db.WithContext(ctx).
		Model(&models.Device{}).
		Where("user_id = ? AND fingerprint = ?", userID, fp).
		Update("trusted", true)
	if result.Error != nil {
		return fmt.Errorf("fingerprint: trust device: %w", result.Error)
	}
	if result.RowsAffected == 0 {
		return gorm.ErrRecordNotFound
	}
	return nil
}

// Score rates a login attempt between 0 (benign) and 100 (maximal risk).
// It combines device novelty, login velocity across distinct IPs, the IP's
// recent failure reputation, and the user's overall failure ratio. Adding a
// risk signal never lowers the score.
func (e *Engine) Score(ctx context.Context, userID uint64, fp, ip string) (float64, error) {
	if e == nil || e.db == nil {
		return 0, fmt.Errorf("fingerprint: engine not initialized")
	}
	now := e.nowFn()
	weights := e.weights()
	score := 0.0

	known, err := e.IsKnownDevice(ctx, userID, fp)
	if err != nil {
		return 0, err
	}
	if !known {
		score += weights.Novelty
	}

	var distinctIPs int64
	err = e.db.WithContext(ctx).
		Model(&models.LoginRecord{}).
		Where("user_id = ? AND attempted_at > ?", userID, now.Add(-velocityWindow)).
		Distinct("ip").
		Count(&distinctIPs).Error
	if err != nil {
		return 0, fmt.Errorf("fingerprint: count recent ips: %w", err)
	}
	if distinctIPs > 1 {
		fraction := float64(distinctIPs-1) / float64(velocitySaturation-1)
		if fraction > 1 {
			fraction = 1
		}
		score += weights.Velocity * fraction
	}

	var ipFailures int64
	err = e.db.WithContext(ctx).
		Model(&models.LoginRecord{}).
		Where("ip = ? AND success = ? AND attempted_at > ?", ip, false, now.Add(-reputationWindow)).
		Count(&ipFailures).Error
	if err != nil {
		return 0, fmt.Errorf("fingerprint: count ip failures: %w", err)
	}
	if ipFailures > 0 {
		fraction := float64(ipFailures) / 10
		if fraction > 1 {
			fraction = 1
		}
		score += weights.Reputation * fraction
	}

	var total, failures int64
	window := now.Add(-failureWindow)
	err = e.db.WithContext(ctx).
		Model(&models.LoginRecord{}).
		Where("user_id = ? AND attempted_at > ?", userID, window).
		Count(&total).Error
	if err != nil {
		return 0, fmt.Errorf("fingerprint: count attempts: %w", err)
	}
	if total > 0 {
		err = e.db.WithContext(ctx).
			Model(&models.LoginRecord{}).
			Where("user_id = ? AND success = ? AND attempted_at > ?", userID, false, window).
			Count(&failures).Error
		if err != nil {
			return 0, fmt.Errorf("fingerprint: count failures: %w", err)
		}
		score += weights.Failure * float64(failures) / float64(total)
	}

	if score < 0 {
		score = 0
	}
	if score > 100 {
		score = 100
	}
	return score, nil
}

// StoreScore persists the most recent risk score on the device row. A missing
// device is not an error: first-sight attempts are scored before the device
// row exists.
func (e *Engine) StoreScore(ctx context.Context, userID uint64, fp string, score float64) error {
	if e == nil || e.db == nil {
		return fmt.Errorf("fingerprint: engine not initialized")
	}
	err := e.db.WithContext(ctx).
		Model(&models.Device{}).
		Where("user_id = ? AND fingerprint = ?", userID, fp).
		Update("risk_score", score).Error
	if err != nil {
		return fmt.Errorf("fingerprint: store score: %w", err)
	}
	return nil
}

// Devices lists every device recorded for the user, most recently seen first.
func (e *Engine) Devices(ctx context.Context, userID uint64) ([]models.Device, error) {
	if e == nil || e.db == nil {
		return nil, fmt.Errorf("fingerprint: engine not initialized")
	}
	var devices []models.Device
	err := e.db.WithContext(ctx).
		Where("user_id = ?", userID).
		Order("last_seen DESC").
		Find(&devices).Error
	if err != nil {
		return nil, fmt.Errorf("fingerprint: list devices: %w", err)
	}
	return devices, nil
}

// AlertThreshold returns the score at or above which a risk alert fires.
func AlertThreshold() float64 {
	return float64(settings.IntValue(settings.RiskAlertThresholdKey, settings.DefaultRiskAlertThreshold))
}
