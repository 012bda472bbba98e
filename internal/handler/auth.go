package handler

import (
	"log/slog"
	"net/http"

	"github.com/sakif/deckshare/internal/auth"
	"github.com/sakif/deckshare/internal/model"
	"github.com/sakif/deckshare/internal/service"
)

// AuthHandler exposes registration, login and the account-recovery flows.
//
// COOKIE STRATEGY:
// The session token travels only in an HttpOnly cookie — JavaScript never
// sees it, so an XSS can't exfiltrate it. SameSite=Lax stops the cookie
// riding along on cross-site POSTs, which covers CSRF for the mutating
// endpoints. The response body carries the teacher, never the token.
type AuthHandler struct {
	auth          *service.AuthService
	logger        *slog.Logger
	secureCookies bool // true behind HTTPS, false for local dev
}

// NewAuthHandler creates an AuthHandler.
func NewAuthHandler(authSvc *service.AuthService, logger *slog.Logger, secureCookies bool) *AuthHandler {
	return &AuthHandler{auth: authSvc, logger: logger, secureCookies: secureCookies}
}

type registerRequest struct {
	Name     string `json:"name"`
	Email    string `json:"email"`
	Password string `json:"password"`
}

type loginRequest struct {
	Email    string `json:"email"`
	Password string `json:"password"`
}

type tokenRequest struct {
	Token string `json:"token"`
}

type forgotPasswordRequest struct {
	Email string `json:"email"`
}

type resetPasswordRequest struct {
	Token       string `json:"token"`
	NewPassword string `json:"newPassword"`
}

// HandleRegister creates a teacher account and logs it straight in.
//
// HTTP: POST /api/auth/register
// REQUEST BODY: {"name": "...", "email": "...", "password": "..."}
//
// On success the session cookie is set and the new teacher is returned
// with 201. A duplicate email answers 409.
func (h *AuthHandler) HandleRegister(w http.ResponseWriter, r *http.Request) {
	var req registerRequest
	if err := decodeJSON(r, &req); err != nil {
		writeError(w, err)
		return
	}

	teacher, session, err := h.auth.Register(r.Context(), req.Name, req.Email, req.Password)
	if err != nil {
		writeError(w, err)
		return
	}

	h.setSessionCookie(w, session)
	writeJSON(w, http.StatusCreated, teacher)
}

// HandleLogin verifies credentials and establishes a session.
//
// HTTP: POST /api/auth/login
// REQUEST BODY: {"email": "...", "password": "..."}
//
// Bad credentials answer 401 with a deliberately uniform message.
func (h *AuthHandler) HandleLogin(w http.ResponseWriter, r *http.Request) {
	var req loginRequest
	if err := decodeJSON(r, &req); err != nil {
		writeError(w, err)
		return
	}

	teacher, session, err := h.auth.Login(r.Context(), req.Email, req.Password)
	if err != nil {
		writeError(w, err)
		return
	}

	h.setSessionCookie(w, session)
	writeJSON(w, http.StatusOK, teacher)
}

// HandleLogout invalidates the current session and clears the cookie.
//
// HTTP: POST /api/auth/logout
//
// Always answers 204 — logging out without a session is not an error.
func (h *AuthHandler) HandleLogout(w http.ResponseWriter, r *http.Request) {
	if cookie, err := r.Cookie(auth.SessionCookieName); err == nil {
		if err := h.auth.Logout(r.Context(), cookie.Value); err != nil {
			h.logger.Warn("logout failed", slog.String("error", err.Error()))
		}
	}

	h.clearSessionCookie(w)
	w.WriteHeader(http.StatusNoContent)
}

// HandleMe returns the authenticated teacher's own account.
//
// HTTP: GET /api/auth/me (behind RequireSession)
func (h *AuthHandler) HandleMe(w http.ResponseWriter, r *http.Request) {
	teacherID, _ := auth.TeacherIDFromContext(r.Context())

	teacher, err := h.auth.GetTeacherByID(r.Context(), teacherID)
	if err != nil {
		writeError(w, err)
		return
	}

	writeJSON(w, http.StatusOK, teacher)
}

// HandleVerifyEmail redeems an email-verification token.
//
// HTTP: POST /api/auth/verify-email
// REQUEST BODY: {"token": "..."}
func (h *AuthHandler) HandleVerifyEmail(w http.ResponseWriter, r *http.Request) {
	var req tokenRequest
	if err := decodeJSON(r, &req); err != nil {
		writeError(w, err)
		return
	}

	if err := h.auth.VerifyEmail(r.Context(), req.Token); err != nil {
		writeError(w, err)
		return
	}

	writeJSON(w, http.StatusOK, map[string]string{"status": "verified"})
}

// HandleForgotPassword starts the password-reset flow.
//
// HTTP: POST /api/auth/forgot-password
// REQUEST BODY: {"email": "..."}
//
// Answers 202 whether or not the email has an account — the response must
// not reveal which addresses are registered.
func (h *AuthHandler) HandleForgotPassword(w http.ResponseWriter, r *http.Request) {
	var req forgotPasswordRequest
	if err := decodeJSON(r, &req); err != nil {
		writeError(w, err)
		return
	}

	if err := h.auth.RequestPasswordReset(r.Context(), req.Email); err != nil {
		writeError(w, err)
		return
	}

	writeJSON(w, http.StatusAccepted, map[string]string{
		"status": "if that email has an account, a reset link is on its way",
	})
}

// HandleResetPassword redeems a reset token and sets a new password.
//
// HTTP: POST /api/auth/reset-password
// REQUEST BODY: {"token": "...", "newPassword": "..."}
func (h *AuthHandler) HandleResetPassword(w http.ResponseWriter, r *http.Request) {
	var req resetPasswordRequest
	if err := decodeJSON(r, &req); err != nil {
		writeError(w, err)
		return
	}

	if err := h.auth.ResetPassword(r.Context(), req.Token, req.NewPassword); err != nil {
		writeError(w, err)
		return
	}

	writeJSON(w, http.StatusOK, map[string]string{"status": "password updated"})
}

func (h *AuthHandler) setSessionCookie(w http.ResponseWriter, session *model.Session) {
	http.SetCookie(w, &http.Cookie{
		Name:     auth.SessionCookieName,
		Value:    session.Token,
		Path:     "/",
		Expires:  session.ExpiresAt,
		MaxAge:   int(auth.SessionTTL.Seconds()),
		HttpOnly: true,
		Secure:   h.secureCookies,
		SameSite: http.SameSiteLaxMode,
	})
}

func (h *AuthHandler) clearSessionCookie(w http.ResponseWriter) {
	http.SetCookie(w, &http.Cookie{
		Name:     auth.SessionCookieName,
		Value:    "",
		Path:     "/",
		MaxAge:   -1, // delete immediately
		HttpOnly: true,
		Secure:   h.secureCookies,
		SameSite: http.SameSiteLaxMode,
	})
}
