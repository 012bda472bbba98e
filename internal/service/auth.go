// Package service contains the business logic layer of the application.
//
// THE THREE-LAYER ARCHITECTURE:
//
//	Handler (HTTP layer)     → parses requests, writes responses
//	Service (Business layer) → validates, enforces policy, orchestrates
//	Repository (Data layer)  → reads/writes to the database
//
// The service layer is where the access policy lives: every owner-scoped
// operation takes the acting teacher's ID as an explicit parameter and
// checks it against the target resource. Identity is never an ambient
// lookup down here — the session middleware resolves it once, and from
// there it travels as a plain argument.
package service

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net/mail"
	"strings"
	"time"

	gonanoid "github.com/matoous/go-nanoid/v2"

	"github.com/sakif/deckshare/internal/apperror"
	"github.com/sakif/deckshare/internal/auth"
	"github.com/sakif/deckshare/internal/mailer"
	"github.com/sakif/deckshare/internal/model"
	"github.com/sakif/deckshare/internal/repository"
)

const (
	MaxTeacherNameLength = 100
	MaxEmailLength       = 254

	resetTokenTTL    = time.Hour
	resetTokenLength = 32

	// invalidCredentials is the single message for every login failure.
	// Unknown email and wrong password must be indistinguishable — naming
	// the difference would let anyone probe which addresses have accounts.
	invalidCredentials = "invalid credentials"
)

// AuthService handles registration, login, sessions and the email flows.
//
// DEPENDENCIES (injected via NewAuthService):
//   - teachers  repository.TeacherRepository    → account rows
//   - sessions  repository.SessionRepository    → server-side session table
//   - resets    repository.ResetTokenRepository → single-use reset tokens
//   - passwords *auth.PasswordService           → bcrypt hashing + policy
//   - emailTokens *auth.EmailTokenService       → signed verification links
//   - mail      mailer.Mailer                   → fire-and-forget email
type AuthService struct {
	teachers    repository.TeacherRepository
	sessions    repository.SessionRepository
	resets      repository.ResetTokenRepository
	passwords   *auth.PasswordService
	emailTokens *auth.EmailTokenService
	mail        mailer.Mailer
	logger      *slog.Logger
}

// NewAuthService creates an AuthService with all required dependencies.
func NewAuthService(
	teachers repository.TeacherRepository,
	sessions repository.SessionRepository,
	resets repository.ResetTokenRepository,
	passwords *auth.PasswordService,
	emailTokens *auth.EmailTokenService,
	mail mailer.Mailer,
	logger *slog.Logger,
) *AuthService {
	return &AuthService{
		teachers:    teachers,
		sessions:    sessions,
		resets:      resets,
		passwords:   passwords,
		emailTokens: emailTokens,
		mail:        mail,
		logger:      logger,
	}
}

// compile-time check: AuthService is the middleware's session resolver
var _ auth.SessionResolver = (*AuthService)(nil)

// Register creates a teacher account and logs them straight in.
//
// Validation order: name, email shape, password policy — the first failure
// wins. Duplicate email surfaces as Conflict from the repository's UNIQUE
// constraint, so a re-registration can never create a second row.
//
// The verification email is fire-and-forget: a send failure is logged and
// the registration still succeeds.
func (s *AuthService) Register(ctx context.Context, name, email, rawPassword string) (*model.Teacher, *model.Session, error) {
	name = strings.TrimSpace(name)
	email = normalizeEmail(email)

	if name == "" {
		return nil, nil, apperror.ValidationFailed("name", "name is required")
	}
	if len(name) > MaxTeacherNameLength {
		return nil, nil, apperror.ValidationFailed("name",
			fmt.Sprintf("name must be %d characters or less", MaxTeacherNameLength))
	}
	if email == "" {
		return nil, nil, apperror.ValidationFailed("email", "email is required")
	}
	if len(email) > MaxEmailLength {
		return nil, nil, apperror.ValidationFailed("email",
			fmt.Sprintf("email must be %d characters or less", MaxEmailLength))
	}
	if _, err := mail.ParseAddress(email); err != nil {
		return nil, nil, apperror.ValidationFailed("email", "invalid email address")
	}
	if msg := auth.CheckPolicy(rawPassword); msg != "" {
		return nil, nil, apperror.ValidationFailed("password", msg)
	}

	hash, err := s.passwords.Hash(rawPassword)
	if err != nil {
		return nil, nil, apperror.ValidationFailed("password", "password must be 72 bytes or fewer")
	}

	teacher := &model.Teacher{
		Name:         name,
		Email:        email,
		PasswordHash: hash,
	}
	if err := s.teachers.CreateTeacher(ctx, teacher); err != nil {
		// Conflict (duplicate email) passes through as-is
		return nil, nil, err
	}

	s.logger.Info("teacher registered",
		slog.String("teacherID", teacher.ID),
		slog.String("email", teacher.Email),
	)

	s.sendVerificationEmail(ctx, teacher)

	session, err := s.createSession(ctx, teacher.ID)
	if err != nil {
		return nil, nil, err
	}

	return teacher, session, nil
}

// Login verifies credentials and establishes a session.
//
// RESPONSE-SHAPE PARITY:
// Both failure cases — unknown email and wrong password — return the exact
// same Unauthenticated error, and both cost one bcrypt comparison (a dummy
// one for unknown emails). Neither the response nor its timing says which
// case occurred.
func (s *AuthService) Login(ctx context.Context, email, rawPassword string) (*model.Teacher, *model.Session, error) {
	email = normalizeEmail(email)

	teacher, err := s.teachers.GetTeacherByEmail(ctx, email)
	if err != nil {
		if errors.Is(err, apperror.ErrNotFound) {
			_ = s.passwords.VerifyDummy(rawPassword)
			return nil, nil, apperror.Unauthenticated(invalidCredentials)
		}
		return nil, nil, fmt.Errorf("service/auth: looking up teacher: %w", err)
	}

	if err := s.passwords.Verify(teacher.PasswordHash, rawPassword); err != nil {
		return nil, nil, apperror.Unauthenticated(invalidCredentials)
	}

	session, err := s.createSession(ctx, teacher.ID)
	if err != nil {
		return nil, nil, err
	}

	s.logger.Info("teacher logged in", slog.String("teacherID", teacher.ID))

	return teacher, session, nil
}

// Logout invalidates the session belonging to token. Unknown tokens are
// not an error — logging out twice is fine.
func (s *AuthService) Logout(ctx context.Context, token string) error {
	if token == "" {
		return nil
	}
	if err := s.sessions.DeleteSession(ctx, token); err != nil {
		return fmt.Errorf("service/auth: deleting session: %w", err)
	}
	return nil
}

// ResolveSession maps a raw session token to a teacher ID. This is what
// the auth middleware calls on every request carrying the session cookie.
//
// A session past its fixed TTL is treated exactly like an unknown token,
// and its row is deleted on the way out (lazy cleanup — no background
// sweeper needed).
func (s *AuthService) ResolveSession(ctx context.Context, token string) (string, error) {
	if token == "" {
		return "", apperror.Unauthenticated("no session")
	}

	session, err := s.sessions.GetSessionByToken(ctx, token)
	if err != nil {
		return "", apperror.Unauthenticated("invalid session")
	}

	if session.Expired(time.Now()) {
		if derr := s.sessions.DeleteSession(ctx, token); derr != nil {
			s.logger.Warn("failed to delete expired session", slog.String("error", derr.Error()))
		}
		return "", apperror.Unauthenticated("session expired")
	}

	return session.TeacherID, nil
}

// GetTeacherByID returns the teacher for the given internal ID.
// Used by the /api/auth/me handler after the middleware resolves identity.
func (s *AuthService) GetTeacherByID(ctx context.Context, id string) (*model.Teacher, error) {
	if id == "" {
		return nil, apperror.Unauthenticated("authentication required")
	}
	teacher, err := s.teachers.GetTeacherByID(ctx, id)
	if err != nil {
		return nil, fmt.Errorf("service/auth: fetching teacher %s: %w", id, err)
	}
	return teacher, nil
}

// VerifyEmail redeems a signed verification token and marks the teacher's
// email verified. Invalid and expired tokens both fail with a validation
// error.
func (s *AuthService) VerifyEmail(ctx context.Context, token string) error {
	teacherID, err := s.emailTokens.ValidateVerification(token)
	if err != nil {
		return apperror.ValidationFailed("token", "invalid or expired verification token")
	}

	if err := s.teachers.MarkEmailVerified(ctx, teacherID); err != nil {
		return fmt.Errorf("service/auth: marking teacher %s verified: %w", teacherID, err)
	}

	s.logger.Info("email verified", slog.String("teacherID", teacherID))
	return nil
}

// RequestPasswordReset issues a single-use reset token and emails it.
//
// It succeeds whether or not the email has an account — the response must
// not reveal which addresses are registered. For unknown emails nothing is
// created or sent.
func (s *AuthService) RequestPasswordReset(ctx context.Context, email string) error {
	email = normalizeEmail(email)

	teacher, err := s.teachers.GetTeacherByEmail(ctx, email)
	if err != nil {
		if errors.Is(err, apperror.ErrNotFound) {
			s.logger.Info("password reset requested for unknown email")
			return nil
		}
		return fmt.Errorf("service/auth: looking up teacher for reset: %w", err)
	}

	tokenStr, err := gonanoid.New(resetTokenLength)
	if err != nil {
		return fmt.Errorf("service/auth: generating reset token: %w", err)
	}

	token := &model.PasswordResetToken{
		Token:     tokenStr,
		TeacherID: teacher.ID,
		ExpiresAt: time.Now().Add(resetTokenTTL),
	}
	if err := s.resets.CreateResetToken(ctx, token); err != nil {
		return fmt.Errorf("service/auth: storing reset token: %w", err)
	}

	// Fire-and-forget, same as the verification email.
	if err := s.mail.SendPasswordReset(ctx, teacher.Email, teacher.Name, tokenStr); err != nil {
		s.logger.Warn("failed to send password reset email",
			slog.String("teacherID", teacher.ID),
			slog.String("error", err.Error()),
		)
	}

	s.logger.Info("password reset token issued", slog.String("teacherID", teacher.ID))
	return nil
}

// ResetPassword redeems a reset token and sets a new password.
//
// The token is consumed atomically — a second redemption attempt, or an
// attempt after the 1-hour expiry, fails identically to an unknown token.
func (s *AuthService) ResetPassword(ctx context.Context, token, newPassword string) error {
	if msg := auth.CheckPolicy(newPassword); msg != "" {
		return apperror.ValidationFailed("password", msg)
	}

	consumed, err := s.resets.ConsumeResetToken(ctx, token, time.Now())
	if err != nil {
		if errors.Is(err, apperror.ErrNotFound) {
			return apperror.ValidationFailed("token", "invalid or expired reset token")
		}
		return fmt.Errorf("service/auth: consuming reset token: %w", err)
	}

	hash, err := s.passwords.Hash(newPassword)
	if err != nil {
		return apperror.ValidationFailed("password", "password must be 72 bytes or fewer")
	}

	if err := s.teachers.UpdatePassword(ctx, consumed.TeacherID, hash); err != nil {
		return fmt.Errorf("service/auth: updating password for teacher %s: %w", consumed.TeacherID, err)
	}

	s.logger.Info("password reset", slog.String("teacherID", consumed.TeacherID))
	return nil
}

// createSession mints a random token and stores a session with the fixed
// 24h TTL from now.
func (s *AuthService) createSession(ctx context.Context, teacherID string) (*model.Session, error) {
	token, err := auth.NewSessionToken()
	if err != nil {
		return nil, fmt.Errorf("service/auth: generating session token: %w", err)
	}

	now := time.Now()
	session := &model.Session{
		Token:     token,
		TeacherID: teacherID,
		CreatedAt: now,
		ExpiresAt: now.Add(auth.SessionTTL),
	}
	if err := s.sessions.CreateSession(ctx, session); err != nil {
		return nil, fmt.Errorf("service/auth: storing session: %w", err)
	}

	return session, nil
}

// sendVerificationEmail mints a signed verification token for teacher and
// sends it. Failures are logged, never returned.
func (s *AuthService) sendVerificationEmail(ctx context.Context, teacher *model.Teacher) {
	token, err := s.emailTokens.GenerateVerification(teacher.ID)
	if err != nil {
		s.logger.Warn("failed to generate verification token",
			slog.String("teacherID", teacher.ID),
			slog.String("error", err.Error()),
		)
		return
	}

	if err := s.mail.SendVerification(ctx, teacher.Email, teacher.Name, token); err != nil {
		s.logger.Warn("failed to send verification email",
			slog.String("teacherID", teacher.ID),
			slog.String("error", err.Error()),
		)
	}
}

// normalizeEmail lowercases and trims an email address so lookups and the
// UNIQUE constraint treat "A@X.com" and "a@x.com " as the same account.
func normalizeEmail(email string) string {
	return strings.ToLower(strings.TrimSpace(email))
}
