// Package app wires the database, services, HTTP layer, and background
// watcher into a runnable server.
package app

import (
	"context"
	"errors"
	"fmt"
	"io"
	"net/http"
	"os"
	"time"

	"github.com/gin-gonic/gin"
	log "github.com/sirupsen/logrus"
	"gopkg.in/natefinch/lumberjack.v2"

	"github.com/newsforge/accountguard/internal/account"
	"github.com/newsforge/accountguard/internal/config"
	"github.com/newsforge/accountguard/internal/db"
	"github.com/newsforge/accountguard/internal/events"
	"github.com/newsforge/accountguard/internal/fingerprint"
	"github.com/newsforge/accountguard/internal/http/api"
	"github.com/newsforge/accountguard/internal/ratelimit"
	"github.com/newsforge/accountguard/internal/sessions"
	internalsettings "github.com/newsforge/accountguard/internal/settings"
	"github.com/newsforge/accountguard/internal/watcher"
)

// shutdownTimeout bounds graceful HTTP server shutdown.
const shutdownTimeout = 10 * time.Second

// Migrate opens the database and runs migrations.
func Migrate(ctx context.Context, cfg config.AppConfig) error {
	configPath := config.ResolveConfigPath(cfg.ConfigPath)
	dsn, err := config.LoadDatabaseDSN(configPath)
	if err != nil {
		return err
	}
	conn, err := db.Open(dsn)
	if err != nil {
		return err
	}
	return db.Migrate(conn)
}

// RunServer boots the account security API with database-backed components.
func RunServer(ctx context.Context, cfg config.AppConfig, portOverride int) error {
	configPath := config.ResolveConfigPath(cfg.ConfigPath)
	dsn, err := config.LoadDatabaseDSN(configPath)
	if err != nil {
		return err
	}

	serverCfg, err := config.LoadServerConfig(configPath)
	if err != nil {
		return err
	}
	if portOverride > 0 {
		serverCfg.Port = portOverride
	}
	setupLogging(serverCfg)

	jwtCfg, err := config.LoadJWTConfig(configPath)
	if err != nil {
		return err
	}
	if jwtCfg.Secret == "" {
		return fmt.Errorf("app: jwt secret not configured (set `jwt.secret` or env %s)", config.EnvJWTSecret)
	}

	conn, err := db.Open(dsn)
	if err != nil {
		return err
	}
	if errMigrate := db.Migrate(conn); errMigrate != nil {
		return errMigrate
	}

	if errRefresh := internalsettings.RefreshSnapshot(ctx, conn); errRefresh != nil {
		log.WithError(errRefresh).Warn("initial settings load failed, using defaults")
	}

	registry := sessions.NewRegistry(conn, nil)
	risk := fingerprint.NewEngine(conn)
	limiter := ratelimit.NewManager(nil, nil, nil)
	eventLog := events.NewLogger(conn)
	service := account.NewService(conn, registry, risk, limiter, eventLog, nil, jwtCfg)

	watcher.Start(ctx, conn)

	gin.SetMode(gin.ReleaseMode)
	engine := gin.New()
	engine.Use(gin.Recovery())
	api.RegisterRoutes(engine, conn, service, eventLog, limiter, jwtCfg)

	server := &http.Server{
		Addr:    fmt.Sprintf(":%d", serverCfg.Port),
		Handler: engine,
	}

	errCh := make(chan error, 1)
	go func() {
		log.WithField("port", serverCfg.Port).Info("server listening")
		errCh <- server.ListenAndServe()
	}()

	select {
	case <-ctx.Done():
		shutdownCtx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
		defer cancel()
		if errShutdown := server.Shutdown(shutdownCtx); errShutdown != nil {
			return fmt.Errorf("app: shutdown: %w", errShutdown)
		}
		return nil
	case errServe := <-errCh:
		if errServe != nil && !errors.Is(errServe, http.ErrServerClosed) {
			return fmt.Errorf("app: serve: %w", errServe)
		}
		return nil
	}
}

// setupLogging configures logrus output and rotation from server settings.
func setupLogging(cfg config.ServerConfig) {
	log.SetFormatter(&log.TextFormatter{FullTimestamp: true})
	if cfg.LogFile == "" {
		return
	}
	rotator := &lumberjack.Logger{
		Filename:   cfg.LogFile,
		MaxSize:    50,
		MaxBackups: 5,
		MaxAge:     30,
		Compress:   true,
	}
	log.SetOutput(io.MultiWriter(os.Stdout, rotator))
}

// ConfigExists reports whether the config file is present on disk.
func ConfigExists(path string) bool {
	info, errStat := os.Stat(path)
	if errStat != nil {
		return false
	}
	return !info.IsDir()
}
