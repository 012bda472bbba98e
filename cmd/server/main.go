// Package main is the entry point for the deckshare API server.
//
// main stays minimal: load configuration from the environment, build the
// logger, hand both to the server package. All actual behavior lives in
// internal/.
package main

import (
	"log/slog"
	"os"
	"path/filepath"
	"strconv"
	"strings"

	"github.com/joho/godotenv"

	"github.com/sakif/deckshare/internal/mailer"
	"github.com/sakif/deckshare/internal/server"
)

func main() {
	// .env is a local-dev convenience; in production the variables come
	// from the real environment and the file simply isn't there.
	_ = godotenv.Load()

	logger := slog.New(slog.NewTextHandler(os.Stdout, &slog.HandlerOptions{
		Level: logLevel(),
	}))

	port := 8080
	if portStr := os.Getenv("PORT"); portStr != "" {
		var err error
		port, err = strconv.Atoi(portStr)
		if err != nil {
			logger.Error("invalid PORT value", slog.String("value", portStr))
			os.Exit(1)
		}
	}

	dbPath := "data/deckshare.db"
	if envDB := os.Getenv("DB_PATH"); envDB != "" {
		dbPath = envDB
	}
	if err := os.MkdirAll(filepath.Dir(dbPath), 0755); err != nil {
		logger.Error("failed to create database directory",
			slog.String("dir", filepath.Dir(dbPath)),
			slog.String("error", err.Error()),
		)
		os.Exit(1)
	}

	// EMAIL_TOKEN_SECRET signs email-verification tokens. It is NOT used
	// for sessions — those are opaque server-side tokens. Generate with:
	//   EMAIL_TOKEN_SECRET=$(openssl rand -hex 32)
	secret := os.Getenv("EMAIL_TOKEN_SECRET")
	if secret == "" {
		logger.Error("EMAIL_TOKEN_SECRET is required (at least 16 characters)")
		os.Exit(1)
	}

	// Comma-separated list of allowed frontend origins.
	origins := []string{"http://localhost:5173"}
	if envOrigins := os.Getenv("CORS_ORIGINS"); envOrigins != "" {
		origins = origins[:0]
		for _, o := range strings.Split(envOrigins, ",") {
			if o = strings.TrimSpace(o); o != "" {
				origins = append(origins, o)
			}
		}
	}

	frontendURL := os.Getenv("FRONTEND_URL")
	if frontendURL == "" {
		frontendURL = origins[0]
	}

	smtpPort := 587
	if p := os.Getenv("SMTP_PORT"); p != "" {
		var err error
		smtpPort, err = strconv.Atoi(p)
		if err != nil {
			logger.Error("invalid SMTP_PORT value", slog.String("value", p))
			os.Exit(1)
		}
	}

	cfg := server.Config{
		Port:             port,
		DBPath:           dbPath,
		EmailTokenSecret: secret,
		AllowedOrigins:   origins,
		SecureCookies:    os.Getenv("SECURE_COOKIES") == "true",
		Mail: mailer.Config{
			// Empty SMTP_HOST switches to the log-only mailer, which is
			// what you want for local development.
			Host:        os.Getenv("SMTP_HOST"),
			Port:        smtpPort,
			Username:    os.Getenv("SMTP_USERNAME"),
			Password:    os.Getenv("SMTP_PASSWORD"),
			From:        os.Getenv("SMTP_FROM"),
			FrontendURL: frontendURL,
		},
	}

	srv, err := server.New(cfg, logger)
	if err != nil {
		logger.Error("failed to create server", slog.String("error", err.Error()))
		os.Exit(1)
	}

	if err := srv.Start(); err != nil {
		logger.Error("server error", slog.String("error", err.Error()))
		os.Exit(1)
	}
}

func logLevel() slog.Level {
	switch strings.ToLower(os.Getenv("LOG_LEVEL")) {
	case "debug":
		return slog.LevelDebug
	case "warn":
		return slog.LevelWarn
	case "error":
		return slog.LevelError
	default:
		return slog.LevelInfo
	}
}
