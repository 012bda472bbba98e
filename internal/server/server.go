// Package server sets up the HTTP server, router, and all route definitions.
//
// This is the composition root: the one place where the database, services,
// handlers and middleware get wired together. Each layer only receives what
// it needs — services get repository interfaces, handlers get services, and
// nobody below this package touches HTTP and SQL at the same time.
package server

import (
	"context"
	"fmt"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/go-chi/chi/v5"
	chimiddleware "github.com/go-chi/chi/v5/middleware"
	"github.com/rs/cors"

	"github.com/sakif/deckshare/internal/auth"
	"github.com/sakif/deckshare/internal/handler"
	"github.com/sakif/deckshare/internal/mailer"
	"github.com/sakif/deckshare/internal/middleware"
	sqliteRepo "github.com/sakif/deckshare/internal/repository/sqlite"
	"github.com/sakif/deckshare/internal/service"
)

// Config holds server configuration, loaded by main from the environment.
type Config struct {
	Port             int
	DBPath           string
	EmailTokenSecret string   // signs email-verification tokens
	AllowedOrigins   []string // CORS: the frontend's origin(s)
	SecureCookies    bool     // true behind HTTPS
	Mail             mailer.Config
}

// Server owns the router and the resources that must be released on
// shutdown (currently just the database connection).
type Server struct {
	router *chi.Mux
	config Config
	logger *slog.Logger
	db     *sqliteRepo.DB
}

// New opens the database and assembles the full dependency chain.
func New(cfg Config, logger *slog.Logger) (*Server, error) {
	db, err := sqliteRepo.New(cfg.DBPath)
	if err != nil {
		return nil, fmt.Errorf("opening database: %w", err)
	}

	s := &Server{
		router: chi.NewRouter(),
		config: cfg,
		logger: logger,
		db:     db,
	}

	if err := s.setupRoutes(); err != nil {
		db.Close()
		return nil, fmt.Errorf("setting up routes: %w", err)
	}

	return s, nil
}

// setupRoutes configures middleware and the full route table.
//
// ROUTE TABLE:
//
//	POST   /api/auth/register         → create account + session  [rate limited 3/hour]
//	POST   /api/auth/login            → create session            [rate limited 5/min]
//	POST   /api/auth/logout           → destroy session
//	GET    /api/auth/me               → own account               [auth required]
//	POST   /api/auth/verify-email     → redeem verification token
//	POST   /api/auth/forgot-password  → request reset email       [rate limited 5/min]
//	POST   /api/auth/reset-password   → redeem reset token
//	GET    /api/subjects              → own subjects              [optional auth]
//	POST   /api/subjects              → create subject            [auth required]
//	GET    /api/decks                 → own decks                 [optional auth]
//	POST   /api/decks                 → create deck + cards       [auth required]
//	GET    /api/decks/{slug}          → own deck detail           [auth required]
//	PUT    /api/decks/{slug}          → update deck               [auth required]
//	DELETE /api/decks/{slug}          → delete deck               [auth required]
//	PUT    /api/decks/{slug}/cards    → replace card set          [auth required]
//	GET    /api/study/{slug}          → public study view         [no auth]
//
// MIDDLEWARE ORDER: RequestID and RealIP run first so the logger and the
// per-IP rate limiters see correct values; Recoverer runs inside them so a
// panicking handler still gets its request logged.
func (s *Server) setupRoutes() error {
	s.router.Use(chimiddleware.RequestID)
	s.router.Use(chimiddleware.RealIP)
	s.router.Use(middleware.Logger(s.logger))
	s.router.Use(chimiddleware.Recoverer)

	// The frontend lives on a different origin and sends the session
	// cookie, so AllowCredentials is required — and that forbids a
	// wildcard origin. The allowed origins come from config.
	s.router.Use(cors.New(cors.Options{
		AllowedOrigins:   s.config.AllowedOrigins,
		AllowedMethods:   []string{"GET", "POST", "PUT", "DELETE", "OPTIONS"},
		AllowedHeaders:   []string{"Content-Type"},
		AllowCredentials: true,
		MaxAge:           300,
	}).Handler)

	// Services — one sqlite.DB implements every repository interface.
	passwords := auth.NewPasswordService()
	emailTokens, err := auth.NewEmailTokenService(s.config.EmailTokenSecret)
	if err != nil {
		return fmt.Errorf("creating email token service: %w", err)
	}
	mail := mailer.New(s.config.Mail, s.logger)

	authService := service.NewAuthService(s.db, s.db, s.db, passwords, emailTokens, mail, s.logger)
	deckService := service.NewDeckService(s.db, s.db, s.db, s.logger)
	subjectService := service.NewSubjectService(s.db, s.logger)

	authHandler := handler.NewAuthHandler(authService, s.logger, s.config.SecureCookies)
	deckHandler := handler.NewDeckHandler(deckService, s.logger)
	subjectHandler := handler.NewSubjectHandler(subjectService, s.logger)
	studyHandler := handler.NewStudyHandler(deckService, s.logger)

	requireSession := auth.RequireSession(authService)
	optionalSession := auth.OptionalSession(authService)

	// Separate budgets per endpoint: login gets guessed, register gets
	// spammed, forgot-password gets used to bombard inboxes.
	loginLimiter := middleware.NewRateLimiter(5, time.Minute, 5)
	registerLimiter := middleware.NewRateLimiter(3, time.Hour, 3)
	resetLimiter := middleware.NewRateLimiter(5, time.Minute, 5)

	s.router.Route("/api", func(r chi.Router) {
		r.Route("/auth", func(r chi.Router) {
			r.With(registerLimiter.Middleware).Post("/register", authHandler.HandleRegister)
			r.With(loginLimiter.Middleware).Post("/login", authHandler.HandleLogin)
			r.Post("/logout", authHandler.HandleLogout)
			r.With(requireSession).Get("/me", authHandler.HandleMe)
			r.Post("/verify-email", authHandler.HandleVerifyEmail)
			r.With(resetLimiter.Middleware).Post("/forgot-password", authHandler.HandleForgotPassword)
			r.Post("/reset-password", authHandler.HandleResetPassword)
		})

		r.Route("/subjects", func(r chi.Router) {
			r.With(optionalSession).Get("/", subjectHandler.HandleList)
			r.With(requireSession).Post("/", subjectHandler.HandleCreate)
		})

		r.Route("/decks", func(r chi.Router) {
			r.With(optionalSession).Get("/", deckHandler.HandleList)
			r.With(requireSession).Post("/", deckHandler.HandleCreate)
			r.With(requireSession).Get("/{slug}", deckHandler.HandleGet)
			r.With(requireSession).Put("/{slug}", deckHandler.HandleUpdate)
			r.With(requireSession).Delete("/{slug}", deckHandler.HandleDelete)
			r.With(requireSession).Put("/{slug}/cards", deckHandler.HandleReplaceCards)
		})

		// The one route students hit. No session, no cookie, just a slug.
		r.Get("/study/{slug}", studyHandler.HandleGet)
	})

	return nil
}

// Start runs the HTTP server until SIGINT/SIGTERM, then shuts down
// gracefully: stop accepting connections, drain in-flight requests for up
// to 30 seconds, close the database so the WAL is flushed.
func (s *Server) Start() error {
	defer s.db.Close()

	srv := &http.Server{
		Addr:         fmt.Sprintf(":%d", s.config.Port),
		Handler:      s.router,
		ReadTimeout:  15 * time.Second,
		WriteTimeout: 15 * time.Second,
		IdleTimeout:  60 * time.Second,
	}

	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)

	serverErrors := make(chan error, 1)

	go func() {
		s.logger.Info("server starting",
			slog.Int("port", s.config.Port),
			slog.String("database", s.config.DBPath),
		)
		serverErrors <- srv.ListenAndServe()
	}()

	select {
	case err := <-serverErrors:
		if err != http.ErrServerClosed {
			return fmt.Errorf("server error: %w", err)
		}

	case sig := <-quit:
		s.logger.Info("shutdown signal received", slog.String("signal", sig.String()))

		ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
		defer cancel()

		if err := srv.Shutdown(ctx); err != nil {
			return fmt.Errorf("graceful shutdown failed: %w", err)
		}
		s.logger.Info("server stopped gracefully")
	}

	return nil
}
