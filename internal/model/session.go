package model

import "time"

// Session is a server-side login session.
//
// The token is a random string handed to the browser in an HttpOnly cookie.
// It carries no information itself — identity comes only from looking the
// token up in the sessions table. No signed or stateless tokens are accepted
// as proof of identity in this design.
//
// Lifetime is a fixed TTL from creation (24h), independent of activity.
type Session struct {
	Token     string    `json:"-"`
	TeacherID string    `json:"teacherId"`
	CreatedAt time.Time `json:"createdAt"`
	ExpiresAt time.Time `json:"expiresAt"`
}

// Expired reports whether the session's TTL has elapsed at time now.
func (s *Session) Expired(now time.Time) bool {
	return !now.Before(s.ExpiresAt)
}

// PasswordResetToken is a stored, single-use credential-reset token.
// It expires one hour after issue and is consumed on redemption.
type PasswordResetToken struct {
	Token     string
	TeacherID string
	ExpiresAt time.Time
	UsedAt    *time.Time // nil until redeemed
}
