// Package main is the entry point for the wedding RSVP server.
//
// The main package stays minimal. Its job is to:
// 1. Read configuration (.env and environment variables)
// 2. Create the logger
// 3. Start the server
//
// All actual logic lives in internal/.
package main

import (
	"log/slog"
	"os"
	"path/filepath"

	"github.com/sakif/wedding-rsvp/internal/config"
	"github.com/sakif/wedding-rsvp/internal/logger"
	"github.com/sakif/wedding-rsvp/internal/server"
)

func main() {
	// === 1. READ CONFIGURATION ===
	cfg, err := config.Load()
	if err != nil {
		slog.Error("invalid configuration", slog.String("error", err.Error()))
		os.Exit(1)
	}

	// === 2. SET UP LOGGING ===
	log, err := logger.New(os.Stdout, cfg.LogLevel, cfg.LogFormat)
	if err != nil {
		slog.Error("invalid logger settings", slog.String("error", err.Error()))
		os.Exit(1)
	}
	slog.SetDefault(log)

	if !cfg.GoogleConfigured() {
		log.Warn("GOOGLE_CLIENT_ID / GOOGLE_CLIENT_SECRET not set; RSVPs will answer 'not configured' until they are")
	}
	if cfg.GoogleSheetID != "" {
		log.Info("using fixed spreadsheet", slog.String("spreadsheetId", cfg.GoogleSheetID))
	}
	if cfg.TokenEncryptionKey == "" {
		log.Info("TOKEN_ENCRYPTION_KEY not set; Google credentials are stored unencrypted")
	}

	// === 3. DATABASE DIRECTORY ===
	// os.MkdirAll is a no-op for the default "wedding.db" in the working directory.
	if dir := filepath.Dir(cfg.DBPath); dir != "." {
		if err := os.MkdirAll(dir, 0o755); err != nil {
			log.Error("failed to create database directory",
				slog.String("dir", dir),
				slog.String("error", err.Error()),
			)
			os.Exit(1)
		}
	}

	// === 4. CREATE AND START THE SERVER ===
	srv, err := server.New(cfg, log)
	if err != nil {
		log.Error("failed to create server", slog.String("error", err.Error()))
		os.Exit(1)
	}

	// Start() blocks until the server is shut down (via Ctrl+C or SIGTERM)
	if err := srv.Start(); err != nil {
		log.Error("server error", slog.String("error", err.Error()))
		os.Exit(1)
	}
}
