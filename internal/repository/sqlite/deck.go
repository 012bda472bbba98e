package sqlite

import (
	"context"
	"database/sql"
	"fmt"
	"time"

	"github.com/rs/xid"
	"github.com/sakif/deckshare/internal/apperror"
	"github.com/sakif/deckshare/internal/model"
	"github.com/sakif/deckshare/internal/repository"
	"github.com/sakif/deckshare/internal/slug"
)

var _ repository.DeckRepository = (*DB)(nil)

// Create assigns the deck's slug and inserts the deck plus its initial
// cards as one transaction. If anything fails the whole creation rolls
// back — there is never a deck row without its cards, or a burned slug
// without a deck.
//
// SLUG ASSIGNMENT:
// The uniqueness recheck loop runs on this same transaction, so each
// candidate is validated against live state rather than a precomputed
// snapshot. That still can't beat a concurrent committer with the same
// base slug, so the UNIQUE index on decks.slug remains the final
// authority: a violation on insert surfaces as a Conflict error rather
// than a corrupt state.
func (db *DB) Create(ctx context.Context, deck *model.Deck, cards []model.Card) error {
	tx, err := db.conn.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("sqlite: beginning deck create: %w", err)
	}
	// Rollback after Commit is a no-op, so the defer is safe on the
	// success path too.
	defer tx.Rollback()

	deck.Slug, err = slug.Unique(ctx, deck.Title, func(ctx context.Context, candidate string) (bool, error) {
		var n int
		err := tx.QueryRowContext(ctx, `SELECT COUNT(*) FROM decks WHERE slug = ?`, candidate).Scan(&n)
		return n > 0, err
	})
	if err != nil {
		return fmt.Errorf("sqlite: assigning slug: %w", err)
	}

	deck.ID = xid.New().String()
	now := time.Now()
	deck.CreatedAt = now
	deck.UpdatedAt = now

	_, err = tx.ExecContext(ctx,
		`INSERT INTO decks (id, title, slug, subject_id, teacher_id, exam_board, year_group, target_grade, is_public, created_at, updated_at)
		 VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`,
		deck.ID,
		deck.Title,
		deck.Slug,
		deck.SubjectID,
		deck.TeacherID,
		deck.ExamBoard,
		deck.YearGroup,
		deck.TargetGrade,
		deck.IsPublic,
		deck.CreatedAt,
		deck.UpdatedAt,
	)
	if err != nil {
		if isUniqueViolation(err) {
			return apperror.Conflict("deck", deck.Slug)
		}
		return fmt.Errorf("sqlite: inserting deck: %w", err)
	}

	if err := insertCards(ctx, tx, deck.ID, cards); err != nil {
		return err
	}

	if err := tx.Commit(); err != nil {
		return fmt.Errorf("sqlite: committing deck create: %w", err)
	}

	return nil
}

// insertCards writes cards for deckID on the given transaction, assigning
// row IDs. Card order must already be set by the caller.
func insertCards(ctx context.Context, tx *sql.Tx, deckID string, cards []model.Card) error {
	for i := range cards {
		cards[i].ID = xid.New().String()
		cards[i].DeckID = deckID

		_, err := tx.ExecContext(ctx,
			`INSERT INTO cards (id, deck_id, question, answer, card_order)
			 VALUES (?, ?, ?, ?, ?)`,
			cards[i].ID,
			cards[i].DeckID,
			cards[i].Question,
			cards[i].Answer,
			cards[i].Order,
		)
		if err != nil {
			return fmt.Errorf("sqlite: inserting card %d: %w", i, err)
		}
	}
	return nil
}

// GetBySlug retrieves a single deck by its slug, public or not.
// Visibility policy is the service layer's concern, not the store's.
func (db *DB) GetBySlug(ctx context.Context, slugStr string) (*model.Deck, error) {
	var d model.Deck

	err := db.conn.QueryRowContext(ctx,
		`SELECT id, title, slug, subject_id, teacher_id, exam_board, year_group, target_grade, is_public, created_at, updated_at
		 FROM decks WHERE slug = ?`,
		slugStr,
	).Scan(
		&d.ID,
		&d.Title,
		&d.Slug,
		&d.SubjectID,
		&d.TeacherID,
		&d.ExamBoard,
		&d.YearGroup,
		&d.TargetGrade,
		&d.IsPublic,
		&d.CreatedAt,
		&d.UpdatedAt,
	)
	if err != nil {
		if err == sql.ErrNoRows {
			return nil, apperror.NotFound("deck", slugStr)
		}
		return nil, fmt.Errorf("sqlite: getting deck %s: %w", slugStr, err)
	}

	return &d, nil
}

// ListByTeacher returns the teacher's decks with card counts, newest first.
func (db *DB) ListByTeacher(ctx context.Context, teacherID string) ([]repository.DeckSummary, error) {
	rows, err := db.conn.QueryContext(ctx,
		`SELECT d.id, d.title, d.slug, d.subject_id, d.teacher_id, d.exam_board, d.year_group, d.target_grade, d.is_public, d.created_at, d.updated_at, COUNT(c.id)
		 FROM decks d
		 LEFT JOIN cards c ON c.deck_id = d.id
		 WHERE d.teacher_id = ?
		 GROUP BY d.id
		 ORDER BY d.created_at DESC`,
		teacherID,
	)
	if err != nil {
		return nil, fmt.Errorf("sqlite: listing decks: %w", err)
	}
	defer rows.Close()

	decks := []repository.DeckSummary{}
	for rows.Next() {
		var d repository.DeckSummary
		if err := rows.Scan(
			&d.ID, &d.Title, &d.Slug, &d.SubjectID, &d.TeacherID,
			&d.ExamBoard, &d.YearGroup, &d.TargetGrade, &d.IsPublic,
			&d.CreatedAt, &d.UpdatedAt, &d.CardCount,
		); err != nil {
			return nil, fmt.Errorf("sqlite: scanning deck row: %w", err)
		}
		decks = append(decks, d)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("sqlite: iterating decks: %w", err)
	}

	return decks, nil
}

// Update persists title, metadata and visibility for an existing deck.
// Slug, ownership and created_at are deliberately absent from the SET
// list — they're immutable after creation.
func (db *DB) Update(ctx context.Context, deck *model.Deck) error {
	deck.UpdatedAt = time.Now()

	result, err := db.conn.ExecContext(ctx,
		`UPDATE decks
		 SET title = ?, exam_board = ?, year_group = ?, target_grade = ?, is_public = ?, updated_at = ?
		 WHERE id = ?`,
		deck.Title,
		deck.ExamBoard,
		deck.YearGroup,
		deck.TargetGrade,
		deck.IsPublic,
		deck.UpdatedAt,
		deck.ID,
	)
	if err != nil {
		return fmt.Errorf("sqlite: updating deck %s: %w", deck.ID, err)
	}

	rowsAffected, err := result.RowsAffected()
	if err != nil {
		return fmt.Errorf("sqlite: checking rows affected: %w", err)
	}
	if rowsAffected == 0 {
		return apperror.NotFound("deck", deck.ID)
	}

	return nil
}

// Delete removes a deck by its ID. The ON DELETE CASCADE on cards.deck_id
// takes its cards with it.
func (db *DB) Delete(ctx context.Context, id string) error {
	result, err := db.conn.ExecContext(ctx,
		`DELETE FROM decks WHERE id = ?`,
		id,
	)
	if err != nil {
		return fmt.Errorf("sqlite: deleting deck %s: %w", id, err)
	}

	rowsAffected, err := result.RowsAffected()
	if err != nil {
		return fmt.Errorf("sqlite: checking rows affected: %w", err)
	}
	if rowsAffected == 0 {
		return apperror.NotFound("deck", id)
	}

	return nil
}

// CardsByDeck returns a deck's cards in presentation order.
func (db *DB) CardsByDeck(ctx context.Context, deckID string) ([]model.Card, error) {
	rows, err := db.conn.QueryContext(ctx,
		`SELECT id, deck_id, question, answer, card_order
		 FROM cards WHERE deck_id = ?
		 ORDER BY card_order`,
		deckID,
	)
	if err != nil {
		return nil, fmt.Errorf("sqlite: listing cards for deck %s: %w", deckID, err)
	}
	defer rows.Close()

	cards := []model.Card{}
	for rows.Next() {
		var c model.Card
		if err := rows.Scan(&c.ID, &c.DeckID, &c.Question, &c.Answer, &c.Order); err != nil {
			return nil, fmt.Errorf("sqlite: scanning card row: %w", err)
		}
		cards = append(cards, c)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("sqlite: iterating cards: %w", err)
	}

	return cards, nil
}

// ReplaceCards deletes all of deckID's cards and inserts the given set,
// atomically. This is a full replace, not a diff — no card identity
// survives the call. The transaction guarantees a failure partway never
// leaves the deck stripped of its old cards with nothing in their place.
func (db *DB) ReplaceCards(ctx context.Context, deckID string, cards []model.Card) error {
	tx, err := db.conn.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("sqlite: beginning card replace: %w", err)
	}
	defer tx.Rollback()

	if _, err := tx.ExecContext(ctx, `DELETE FROM cards WHERE deck_id = ?`, deckID); err != nil {
		return fmt.Errorf("sqlite: deleting cards for deck %s: %w", deckID, err)
	}

	if err := insertCards(ctx, tx, deckID, cards); err != nil {
		return err
	}

	// Touch the deck's updated_at so list views reflect the edit.
	if _, err := tx.ExecContext(ctx,
		`UPDATE decks SET updated_at = ? WHERE id = ?`, time.Now(), deckID,
	); err != nil {
		return fmt.Errorf("sqlite: touching deck %s: %w", deckID, err)
	}

	if err := tx.Commit(); err != nil {
		return fmt.Errorf("sqlite: committing card replace: %w", err)
	}

	return nil
}
