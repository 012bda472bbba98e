package sqlite

import (
	"context"
	"database/sql"
	"fmt"
	"time"

	"github.com/sakif/deckshare/internal/apperror"
	"github.com/sakif/deckshare/internal/model"
	"github.com/sakif/deckshare/internal/repository"
)

var _ repository.SessionRepository = (*DB)(nil)
var _ repository.ResetTokenRepository = (*DB)(nil)

// CreateSession inserts a new login session. Token generation and TTL are the
// caller's business; this layer just persists the row.
func (db *DB) CreateSession(ctx context.Context, session *model.Session) error {
	_, err := db.conn.ExecContext(ctx,
		`INSERT INTO sessions (token, teacher_id, created_at, expires_at)
		 VALUES (?, ?, ?, ?)`,
		session.Token,
		session.TeacherID,
		session.CreatedAt,
		session.ExpiresAt,
	)
	if err != nil {
		return fmt.Errorf("sqlite: creating session: %w", err)
	}
	return nil
}

// GetSessionByToken retrieves a session by its token.
// Expiry is NOT checked here — the service decides what expiry means
// (treat as absent and clean up). Unknown tokens return ErrNotFound.
func (db *DB) GetSessionByToken(ctx context.Context, token string) (*model.Session, error) {
	var s model.Session

	err := db.conn.QueryRowContext(ctx,
		`SELECT token, teacher_id, created_at, expires_at
		 FROM sessions WHERE token = ?`,
		token,
	).Scan(&s.Token, &s.TeacherID, &s.CreatedAt, &s.ExpiresAt)
	if err != nil {
		if err == sql.ErrNoRows {
			return nil, apperror.NotFound("session", "token")
		}
		return nil, fmt.Errorf("sqlite: getting session: %w", err)
	}

	return &s, nil
}

// DeleteSession removes a session row. Deleting an already-absent token is
// not an error — logout must be idempotent.
func (db *DB) DeleteSession(ctx context.Context, token string) error {
	if _, err := db.conn.ExecContext(ctx, `DELETE FROM sessions WHERE token = ?`, token); err != nil {
		return fmt.Errorf("sqlite: deleting session: %w", err)
	}
	return nil
}

// CreateResetToken persists a password-reset token row.
func (db *DB) CreateResetToken(ctx context.Context, token *model.PasswordResetToken) error {
	_, err := db.conn.ExecContext(ctx,
		`INSERT INTO reset_tokens (token, teacher_id, expires_at, used_at)
		 VALUES (?, ?, ?, NULL)`,
		token.Token,
		token.TeacherID,
		token.ExpiresAt,
	)
	if err != nil {
		return fmt.Errorf("sqlite: creating reset token: %w", err)
	}
	return nil
}

// ConsumeResetToken atomically redeems a reset token: the UPDATE only
// matches a row that is unused and unexpired, so two concurrent redemption
// attempts can't both succeed. Unknown, used and expired tokens all fail
// with the same NotFound error — a caller probing tokens learns nothing
// about which case they hit.
func (db *DB) ConsumeResetToken(ctx context.Context, token string, now time.Time) (*model.PasswordResetToken, error) {
	result, err := db.conn.ExecContext(ctx,
		`UPDATE reset_tokens SET used_at = ?
		 WHERE token = ? AND used_at IS NULL AND expires_at > ?`,
		now, token, now,
	)
	if err != nil {
		return nil, fmt.Errorf("sqlite: consuming reset token: %w", err)
	}

	rowsAffected, err := result.RowsAffected()
	if err != nil {
		return nil, fmt.Errorf("sqlite: checking rows affected: %w", err)
	}
	if rowsAffected == 0 {
		return nil, apperror.NotFound("reset token", "token")
	}

	var t model.PasswordResetToken
	var usedAt sql.NullTime
	err = db.conn.QueryRowContext(ctx,
		`SELECT token, teacher_id, expires_at, used_at FROM reset_tokens WHERE token = ?`,
		token,
	).Scan(&t.Token, &t.TeacherID, &t.ExpiresAt, &usedAt)
	if err != nil {
		return nil, fmt.Errorf("sqlite: reading consumed reset token: %w", err)
	}
	if usedAt.Valid {
		t.UsedAt = &usedAt.Time
	}

	return &t, nil
}
