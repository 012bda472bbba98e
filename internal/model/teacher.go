// Package model defines the data structures used throughout the application.
package model

import "time"

// Teacher represents a registered teacher account — the tenant root.
// Every Subject, Deck and Card in the system is transitively owned by
// exactly one Teacher.
//
// WHY PasswordHash json:"-"?
// The hash must never leave the server, not even accidentally. Tagging the
// field with "-" means encoding/json skips it entirely, so a Teacher can be
// serialized in API responses without a separate "safe" copy of the struct.
type Teacher struct {
	ID            string    `json:"id"`
	Name          string    `json:"name"`
	Email         string    `json:"email"` // unique across all teachers
	PasswordHash  string    `json:"-"`     // bcrypt hash, never serialized
	EmailVerified bool      `json:"emailVerified"`
	CreatedAt     time.Time `json:"createdAt"`
	UpdatedAt     time.Time `json:"updatedAt"`
}
