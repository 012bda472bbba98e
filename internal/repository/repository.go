// Package repository defines the storage interfaces consumed by the
// service layer. The sqlite subpackage implements them; tests swap in
// in-memory mocks.
package repository

import (
	"context"
	"time"

	"github.com/sakif/deckshare/internal/model"
)

// DeckSummary is a deck row plus its card count, for list views that
// shouldn't drag every card out of the database.
type DeckSummary struct {
	model.Deck
	CardCount int
}

// SubjectSummary is a subject row plus its deck count.
type SubjectSummary struct {
	model.Subject
	DeckCount int
}

// Method names avoid colliding across interfaces because the sqlite.DB
// type implements all of them on one receiver. The deck aggregate gets the
// plain names; the rest are prefixed.

type TeacherRepository interface {
	// CreateTeacher inserts a new teacher. Returns a Conflict error if the
	// email is already registered — never a second row.
	CreateTeacher(ctx context.Context, teacher *model.Teacher) error
	GetTeacherByID(ctx context.Context, id string) (*model.Teacher, error)
	GetTeacherByEmail(ctx context.Context, email string) (*model.Teacher, error)
	UpdatePassword(ctx context.Context, id, passwordHash string) error
	MarkEmailVerified(ctx context.Context, id string) error
}

type SubjectRepository interface {
	// CreateSubject inserts a subject; returns a Conflict error if the
	// teacher already has a subject with that name.
	CreateSubject(ctx context.Context, subject *model.Subject) error

	// GetOrCreateSubject returns the subject named name under teacherID,
	// creating it if absent. The (name, teacher) pair is unique.
	GetOrCreateSubject(ctx context.Context, teacherID, name string) (*model.Subject, error)

	GetSubjectByID(ctx context.Context, id string) (*model.Subject, error)
	ListSubjectsByTeacher(ctx context.Context, teacherID string) ([]SubjectSummary, error)
}

type DeckRepository interface {
	// Create assigns the deck's slug and inserts the deck together with its
	// initial cards in a single transaction. Card order and deck ownership
	// must already be set by the caller; the repository assigns row IDs.
	Create(ctx context.Context, deck *model.Deck, cards []model.Card) error

	GetBySlug(ctx context.Context, slug string) (*model.Deck, error)
	ListByTeacher(ctx context.Context, teacherID string) ([]DeckSummary, error)

	// Update persists title, metadata and visibility. Slug, ownership and
	// CreatedAt are immutable and never written.
	Update(ctx context.Context, deck *model.Deck) error

	// Delete removes the deck; cards go with it (ON DELETE CASCADE).
	Delete(ctx context.Context, id string) error

	// CardsByDeck returns a deck's cards in presentation order.
	CardsByDeck(ctx context.Context, deckID string) ([]model.Card, error)

	// ReplaceCards deletes all existing cards for deckID and inserts the
	// given set, atomically: a failure partway never leaves the deck with
	// neither the old cards nor the new ones.
	ReplaceCards(ctx context.Context, deckID string, cards []model.Card) error
}

type SessionRepository interface {
	CreateSession(ctx context.Context, session *model.Session) error
	GetSessionByToken(ctx context.Context, token string) (*model.Session, error)

	// DeleteSession removes a session. Idempotent — deleting an absent
	// token is not an error.
	DeleteSession(ctx context.Context, token string) error
}

type ResetTokenRepository interface {
	CreateResetToken(ctx context.Context, token *model.PasswordResetToken) error

	// ConsumeResetToken atomically redeems an unused, unexpired token and
	// returns it. Unknown, already-used and expired tokens all fail
	// identically with a NotFound error.
	ConsumeResetToken(ctx context.Context, token string, now time.Time) (*model.PasswordResetToken, error)
}
