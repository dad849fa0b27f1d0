// Package watcher keeps the in-memory settings snapshot in sync with the
// settings table and runs the periodic storage sweeps.
package watcher

import (
	"context"
	"encoding/json"
	"errors"
	"strings"
	"time"

	log "github.com/sirupsen/logrus"
	"gorm.io/gorm"

	"github.com/newsforge/accountguard/internal/models"
	internalsettings "github.com/newsforge/accountguard/internal/settings"
)

// Default timings for the watcher loop.
const (
	// defaultPollInterval controls how often the settings snapshot is refreshed.
	defaultPollInterval = 2 * time.Second
	// defaultQueryTimeout bounds DB query duration.
	defaultQueryTimeout = 10 * time.Second
	// defaultSweepInterval controls how often expired sessions are purged.
	defaultSweepInterval = 5 * time.Minute
)

// dbWatcher polls the settings table and sweeps expired sessions.
type dbWatcher struct {
	db *gorm.DB

	pollInterval  time.Duration
	sweepInterval time.Duration

	// settings snapshot change detection
	settingsLatestAt  time.Time
	settingsLatestKey string
	hasSettingsLatest bool

	lastSweep time.Time
}

// Start launches the watcher loop until the context is canceled.
func Start(ctx context.Context, db *gorm.DB) {
	w := &dbWatcher{
		db:            db,
		pollInterval:  defaultPollInterval,
		sweepInterval: defaultSweepInterval,
	}
	go w.run(ctx)
}

// run executes the periodic polling loop until the context is canceled.
func (w *dbWatcher) run(ctx context.Context) {
	w.pollSettings(ctx, true)

	ticker := time.NewTicker(w.pollInterval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			w.pollSettings(ctx, false)
			w.maybeSweep(ctx)
		}
	}
}

// pollSettings reloads the settings snapshot when changes are detected.
func (w *dbWatcher) pollSettings(ctx context.Context, force bool) {
	if w == nil || w.db == nil {
		return
	}
	qctx, cancel := context.WithTimeout(ctx, defaultQueryTimeout)
	defer cancel()

	// latestRow captures the newest setting timestamp for change detection.
	type latestRow struct {
		Key       string     `gorm:"column:key"`        // Latest settings key.
		UpdatedAt *time.Time `gorm:"column:updated_at"` // Latest settings update time.
	}
	var latest latestRow
	hasLatest := false
	errLatest := w.db.WithContext(qctx).
		Model(&models.Setting{}).
		Select("key", "updated_at").
		Order("updated_at DESC, key DESC").
		Limit(1).
		Take(&latest).Error
	if errLatest != nil {
		if errors.Is(errLatest, context.Canceled) {
			return
		}
		if !errors.Is(errLatest, gorm.ErrRecordNotFound) {
			log.WithError(errLatest).Warn("db watcher: query settings latest row failed")
			return
		}
	} else {
		hasLatest = true
	}

	latestKey := strings.TrimSpace(latest.Key)
	latestAt := time.Time{}
	if hasLatest && latest.UpdatedAt != nil {
		latestAt = latest.UpdatedAt.UTC()
	}

	if !force {
		if !hasLatest || latest.UpdatedAt == nil {
			if !w.hasSettingsLatest {
				return
			}
		} else if w.hasSettingsLatest && latestAt.Equal(w.settingsLatestAt) && latestKey == w.settingsLatestKey {
			return
		}
	}

	log.Infof("db watcher: settings changed, reloading (latest_updated_at=%s latest_key=%s)", latestAt.Format(time.RFC3339Nano), latestKey)

	var rows []models.Setting
	if errFind := w.db.WithContext(qctx).
		Select("key", "value", "updated_at").
		Order("key ASC").
		Find(&rows).Error; errFind != nil {
		if errors.Is(errFind, context.Canceled) {
			return
		}
		log.WithError(errFind).Warn("db watcher: query settings failed")
		return
	}

	values := make(map[string]json.RawMessage, len(rows))
	for _, row := range rows {
		key := strings.TrimSpace(row.Key)
		if key == "" {
			continue
		}
		values[key] = row.Value
	}
	internalsettings.ReplaceSnapshot(values)

	if !hasLatest || latest.UpdatedAt == nil || latestKey == "" {
		w.settingsLatestAt = time.Time{}
		w.settingsLatestKey = ""
		w.hasSettingsLatest = false
		return
	}
	w.settingsLatestAt = latestAt
	w.settingsLatestKey = latestKey
	w.hasSettingsLatest = true
}

// maybeSweep deletes expired sessions once per sweep interval.
func (w *dbWatcher) maybeSweep(ctx context.Context) {
	now := time.Now()
	if !w.lastSweep.IsZero() && now.Sub(w.lastSweep) < w.sweepInterval {
		return
	}
	w.lastSweep = now

	qctx, cancel := context.WithTimeout(ctx, defaultQueryTimeout)
	defer cancel()

	result := w.db.WithContext(qctx).
		Where("expires_at <= ?", now.UTC()).
		Delete(&models.Session{})
	if result.Error != nil {
		log.WithError(result.Error).Warn("db watcher: purge expired sessions failed")
		return
	}
	if result.RowsAffected > 0 {
		log.Infof("db watcher: purged %d expired sessions", result.RowsAffected)
	}
}
