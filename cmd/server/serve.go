// Archivist - Storage Backup Job Orchestration
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/archivist

package main

import (
	"context"
	"errors"
	"fmt"
	"net"
	"net/http"
	"os"
	"strconv"
	"time"

	"github.com/juju/clock"

	"github.com/tomtom215/archivist/internal/api"
	"github.com/tomtom215/archivist/internal/auth"
	"github.com/tomtom215/archivist/internal/backup"
	"github.com/tomtom215/archivist/internal/config"
	"github.com/tomtom215/archivist/internal/history"
	"github.com/tomtom215/archivist/internal/logging"
	"github.com/tomtom215/archivist/internal/process"
	"github.com/tomtom215/archivist/internal/supervisor"
	"github.com/tomtom215/archivist/internal/supervisor/services"
	ws "github.com/tomtom215/archivist/internal/websocket"
)

// managerShutdownTimeout bounds how long running exports get to stop.
const managerShutdownTimeout = 30 * time.Second

// runServer wires every component and runs the supervisor tree until ctx is
// canceled.
func runServer(ctx context.Context) error {
	cfg, err := config.LoadWithKoanf()
	if err != nil {
		return fmt.Errorf("failed to load configuration: %w", err)
	}

	logging.Init(logging.Config{
		Level:     cfg.Logging.Level,
		Format:    cfg.Logging.Format,
		Caller:    cfg.Logging.Caller,
		Timestamp: true,
		Service:   "archivist",
		Version:   version,
		Output:    os.Stderr,
	})

	logging.Info().
		Str("version", version).
		Str("environment", cfg.Server.Environment).
		Str("auth_mode", cfg.Security.AuthMode).
		Str("backup_dir", cfg.Backup.Dir).
		Msg("Starting Archivist")
	warnAboutSecurity(cfg)

	launcher := process.NewSupervisor(process.Options{})

	manager, err := backup.NewManager(cfg.BackupSettings(), nil, launcher, clock.WallClock)
	if err != nil {
		return fmt.Errorf("failed to create backup manager: %w", err)
	}

	restorer, err := backup.NewRestorer(cfg.RestoreSettings(), launcher, clock.WallClock)
	if err != nil {
		return fmt.Errorf("failed to create restorer: %w", err)
	}

	var historyReader api.HistoryReader
	if cfg.History.Enabled {
		store, err := history.Open(cfg.HistorySettings())
		if err != nil {
			return fmt.Errorf("failed to open restore history: %w", err)
		}
		defer func() {
			if err := store.Close(); err != nil {
				logging.Error().Err(err).Msg("Error closing restore history")
			}
		}()
		restorer.OnComplete(store.Observer())
		historyReader = store
		logging.Info().Bool("in_memory", cfg.History.InMemory).Str("path", cfg.History.Path).Msg("Restore history enabled")
	} else {
		logging.Info().Msg("Restore history disabled (HISTORY_ENABLED=false)")
	}

	status := manager.SystemStatus()
	restorer.SystemStatus(&status)
	logStartupStatus(status)

	authMiddleware, err := auth.NewMiddleware(&cfg.Security)
	if err != nil {
		return fmt.Errorf("failed to create auth middleware: %w", err)
	}

	hub := ws.NewHub()
	handler := api.NewHandler(api.HandlerOptions{
		Backups:  manager,
		Restores: restorer,
		History:  historyReader,
		Hub:      hub,
		Config:   cfg,
		Version:  version,
	})
	router := api.NewRouter(handler, authMiddleware, api.NewChiMiddlewareFromConfig(cfg.Security))

	addr := net.JoinHostPort(cfg.Server.Host, strconv.Itoa(cfg.Server.Port))
	server := &http.Server{
		Addr:              addr,
		Handler:           router.SetupChi(),
		ReadHeaderTimeout: cfg.Server.Timeout,
		IdleTimeout:       2 * time.Minute,
		// ReadTimeout and WriteTimeout stay unset: uploads and downloads
		// stream for as long as the archive takes.
	}

	tree, err := supervisor.NewSupervisorTree(logging.NewSlogLogger("supervisor"), supervisor.TreeConfig{
		FailureThreshold: 5,
		FailureBackoff:   15 * time.Second,
		ShutdownTimeout:  managerShutdownTimeout + 5*time.Second,
	})
	if err != nil {
		return fmt.Errorf("failed to create supervisor tree: %w", err)
	}

	tree.AddLifecycleService(backup.NewSweeper(manager, clock.WallClock))
	tree.AddLifecycleService(services.NewShutdownService("backup-manager", manager, managerShutdownTimeout))
	tree.AddMessagingService(hub)
	tree.AddAPIService(services.NewHTTPServerService(server, 10*time.Second))

	logging.Info().Str("addr", addr).Msg("Starting supervisor tree")
	errCh := tree.ServeBackground(ctx)

	select {
	case <-ctx.Done():
		logging.Info().Msg("Shutdown signal received, waiting for services to stop")
	case err := <-errCh:
		if err != nil && !errors.Is(err, context.Canceled) {
			logging.Error().Err(err).Msg("Supervisor tree stopped unexpectedly")
		}
	}

	for err := range errCh {
		if err != nil && !errors.Is(err, context.Canceled) {
			logging.Error().Err(err).Msg("Supervisor shutdown error")
		}
	}

	if unstopped, _ := tree.UnstoppedServiceReport(); len(unstopped) > 0 {
		for _, svc := range unstopped {
			logging.Warn().Str("service", svc.Name).Msg("Service failed to stop within timeout")
		}
	}

	logging.Info().Msg("Archivist stopped")
	return nil
}

func warnAboutSecurity(cfg *config.Config) {
	if cfg.Security.AuthMode == string(auth.AuthModeNone) {
		logging.Warn().Msg("AUTH_MODE=none: capability tokens are opaque strings chosen by clients")
	}
	if cfg.ShouldWarnAboutCORS() {
		logging.Warn().Strs("cors_origins", cfg.Security.CORSOrigins).Msg("Wildcard CORS origin with signed tokens; set CORS_ORIGINS explicitly")
	}
	if cfg.Security.RateLimitDisabled {
		logging.Warn().Msg("Rate limiting is disabled (DISABLE_RATE_LIMIT=true)")
	}
}

// logStartupStatus reports missing programs and an unwritable artifact
// directory. The server still starts; readiness reflects the problem.
func logStartupStatus(status backup.SystemStatus) {
	if !status.StoreWritable {
		logging.Error().Str("dir", status.ArtifactDir).Str("error", status.StoreError).Msg("Artifact directory is not writable")
	}
	if !status.ExportAvailable {
		logging.Warn().Str("error", status.ExportError).Msg("Export program not found; backups will fail until it is installed")
	} else {
		logging.Info().Str("program", status.ExportProgram).Msg("Export program resolved")
	}
	if !status.ImportAvailable {
		logging.Warn().Str("error", status.ImportError).Msg("Import program not found; restores will fail until it is installed")
	} else {
		logging.Info().Str("program", status.ImportProgram).Msg("Import program resolved")
	}
}
