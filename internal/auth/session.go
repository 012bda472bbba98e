// Package auth provides authentication building blocks: password hashing
// and policy, session tokens and the middleware that resolves them, and
// signed email-verification tokens.
//
// AUTHENTICATION FLOW OVERVIEW:
// 1. Teacher registers or logs in with email + password
// 2. Server creates a row in the sessions table and sets its token in an
//    HttpOnly cookie
// 3. On subsequent API calls, middleware reads the cookie and looks the
//    token up server-side; the matching teacher ID goes into the request
//    context
// 4. Logout deletes the session row and clears the cookie
//
// WHY SERVER-SIDE SESSIONS (NOT JWT)?
// The token is an opaque random string — it proves nothing by itself.
// Identity comes only from the sessions table lookup, which means logout
// and expiry are immediate and absolute: delete the row and the token is
// dead everywhere. A signed stateless token can't be revoked like that.
package auth

import (
	"context"
	"net/http"
	"time"

	gonanoid "github.com/matoous/go-nanoid/v2"
)

// SessionCookieName is the cookie carrying the session token.
const SessionCookieName = "deckshare_session"

// SessionTTL is the fixed session lifetime, measured from creation.
// Activity does not extend it.
const SessionTTL = 24 * time.Hour

// sessionTokenLength gives ~190 bits of entropy with nanoid's default
// 64-character alphabet — far beyond brute-force range.
const sessionTokenLength = 32

// NewSessionToken mints a random, URL-safe session token.
func NewSessionToken() (string, error) {
	return gonanoid.New(sessionTokenLength)
}

// SessionResolver maps a raw session token to a teacher ID.
// Implemented by the auth service, which backs it with the sessions table.
// Returns an error for unknown or expired tokens.
type SessionResolver interface {
	ResolveSession(ctx context.Context, token string) (string, error)
}

// contextKey is an unexported type used for context keys in this package.
//
// WHY A CUSTOM TYPE FOR CONTEXT KEYS?
// context.WithValue uses any as the key type. If you use a plain string like
// context.WithValue(ctx, "teacherID", id), ANY package that knows the string
// can read or shadow your value. A package-private type prevents collisions:
// only this package can create a key of type contextKey.
type contextKey string

const teacherIDKey contextKey = "teacherID"

// RequireSession is a middleware that enforces authentication on
// owner-scoped routes.
//
// It reads the session cookie, resolves the token against the session
// store, and puts the teacher ID in the request context. A missing,
// unknown, or expired token ends the request with 401.
func RequireSession(sessions SessionResolver) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			teacherID, err := resolveTeacherID(r, sessions)
			if err != nil {
				w.Header().Set("Content-Type", "application/json")
				w.WriteHeader(http.StatusUnauthorized)
				_, _ = w.Write([]byte(`{"error":"unauthenticated","message":"authentication required"}`))
				return
			}

			ctx := context.WithValue(r.Context(), teacherIDKey, teacherID)
			next.ServeHTTP(w, r.WithContext(ctx))
		})
	}
}

// OptionalSession resolves the caller's identity if a valid session cookie
// is present but never blocks the request.
//
// Used on routes like GET /api/decks where an anonymous caller is legal and
// simply sees an empty, unscoped result rather than a 401.
func OptionalSession(sessions SessionResolver) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			if teacherID, err := resolveTeacherID(r, sessions); err == nil && teacherID != "" {
				r = r.WithContext(context.WithValue(r.Context(), teacherIDKey, teacherID))
			}
			next.ServeHTTP(w, r)
		})
	}
}

// TeacherIDFromContext retrieves the authenticated teacher's ID from the
// request context.
//
// Returns ("", false) for an anonymous request. Handlers pass the ID into
// the service layer explicitly — identity is always a parameter, never an
// ambient lookup past this point.
func TeacherIDFromContext(ctx context.Context) (string, bool) {
	id, ok := ctx.Value(teacherIDKey).(string)
	return id, ok && id != ""
}

// ContextWithTeacherID returns a context carrying the given teacher ID.
// Exported for handler tests, which need to simulate an authenticated
// request without running the middleware.
func ContextWithTeacherID(ctx context.Context, teacherID string) context.Context {
	return context.WithValue(ctx, teacherIDKey, teacherID)
}

func resolveTeacherID(r *http.Request, sessions SessionResolver) (string, error) {
	cookie, err := r.Cookie(SessionCookieName)
	if err != nil {
		// http.ErrNoCookie — not an error, just anonymous
		return "", err
	}
	return sessions.ResolveSession(r.Context(), cookie.Value)
}
