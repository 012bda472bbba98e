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
)

// COMPILE-TIME INTERFACE CHECK:
// `var _ X = (*Y)(nil)` assigns a nil *Y to a variable of interface type X.
// If *Y doesn't implement X, compilation fails right here instead of at
// some distant call site. Standard practice for every implementation in
// this package.
var _ repository.TeacherRepository = (*DB)(nil)

// CreateTeacher inserts a new teacher account.
//
// The UNIQUE constraint on teachers.email is the authority on duplicate
// registration: we don't pre-check, we insert and translate the violation.
// Under concurrent registrations for the same email a pre-check would race;
// the constraint cannot.
func (db *DB) CreateTeacher(ctx context.Context, teacher *model.Teacher) error {
	teacher.ID = xid.New().String()

	now := time.Now()
	teacher.CreatedAt = now
	teacher.UpdatedAt = now

	_, err := db.conn.ExecContext(ctx,
		`INSERT INTO teachers (id, name, email, password_hash, email_verified, created_at, updated_at)
		 VALUES (?, ?, ?, ?, ?, ?, ?)`,
		teacher.ID,
		teacher.Name,
		teacher.Email,
		teacher.PasswordHash,
		teacher.EmailVerified,
		teacher.CreatedAt,
		teacher.UpdatedAt,
	)
	if err != nil {
		if isUniqueViolation(err) {
			return apperror.Conflict("teacher", teacher.Email)
		}
		return fmt.Errorf("sqlite: creating teacher: %w", err)
	}

	return nil
}

// GetTeacherByID retrieves a teacher by their internal ID.
// Returns apperror.ErrNotFound if no teacher exists with that ID.
func (db *DB) GetTeacherByID(ctx context.Context, id string) (*model.Teacher, error) {
	return db.getTeacher(ctx, `WHERE id = ?`, id)
}

// GetTeacherByEmail retrieves a teacher by their unique email address.
func (db *DB) GetTeacherByEmail(ctx context.Context, email string) (*model.Teacher, error) {
	return db.getTeacher(ctx, `WHERE email = ?`, email)
}

func (db *DB) getTeacher(ctx context.Context, where string, arg any) (*model.Teacher, error) {
	var t model.Teacher

	err := db.conn.QueryRowContext(ctx,
		`SELECT id, name, email, password_hash, email_verified, created_at, updated_at
		 FROM teachers `+where,
		arg,
	).Scan(
		&t.ID,
		&t.Name,
		&t.Email,
		&t.PasswordHash,
		&t.EmailVerified,
		&t.CreatedAt,
		&t.UpdatedAt,
	)
	if err != nil {
		if err == sql.ErrNoRows {
			return nil, apperror.NotFound("teacher", fmt.Sprintf("%v", arg))
		}
		return nil, fmt.Errorf("sqlite: getting teacher %v: %w", arg, err)
	}

	return &t, nil
}

// UpdatePassword replaces a teacher's stored password hash.
// Used by the reset flow; the raw password never reaches this layer.
func (db *DB) UpdatePassword(ctx context.Context, id, passwordHash string) error {
	result, err := db.conn.ExecContext(ctx,
		`UPDATE teachers SET password_hash = ?, updated_at = ? WHERE id = ?`,
		passwordHash, time.Now(), id,
	)
	if err != nil {
		return fmt.Errorf("sqlite: updating password for teacher %s: %w", id, err)
	}

	rowsAffected, err := result.RowsAffected()
	if err != nil {
		return fmt.Errorf("sqlite: checking rows affected: %w", err)
	}
	if rowsAffected == 0 {
		return apperror.NotFound("teacher", id)
	}

	return nil
}

// MarkEmailVerified flips the verified flag. Idempotent — verifying an
// already-verified account is fine.
func (db *DB) MarkEmailVerified(ctx context.Context, id string) error {
	result, err := db.conn.ExecContext(ctx,
		`UPDATE teachers SET email_verified = 1, updated_at = ? WHERE id = ?`,
		time.Now(), id,
	)
	if err != nil {
		return fmt.Errorf("sqlite: marking teacher %s verified: %w", id, err)
	}

	rowsAffected, err := result.RowsAffected()
	if err != nil {
		return fmt.Errorf("sqlite: checking rows affected: %w", err)
	}
	if rowsAffected == 0 {
		return apperror.NotFound("teacher", id)
	}

	return nil
}
