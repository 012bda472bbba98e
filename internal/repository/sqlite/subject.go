package sqlite

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"github.com/rs/xid"
	"github.com/sakif/deckshare/internal/apperror"
	"github.com/sakif/deckshare/internal/model"
	"github.com/sakif/deckshare/internal/repository"
)

var _ repository.SubjectRepository = (*DB)(nil)

// CreateSubject inserts a subject row. The UNIQUE (name, teacher_id)
// constraint rejects a duplicate name for the same teacher as Conflict.
func (db *DB) CreateSubject(ctx context.Context, subject *model.Subject) error {
	subject.ID = xid.New().String()
	subject.CreatedAt = time.Now()

	_, err := db.conn.ExecContext(ctx,
		`INSERT INTO subjects (id, name, teacher_id, created_at) VALUES (?, ?, ?, ?)`,
		subject.ID, subject.Name, subject.TeacherID, subject.CreatedAt,
	)
	if err != nil {
		if isUniqueViolation(err) {
			return apperror.Conflict("subject", subject.Name)
		}
		return fmt.Errorf("sqlite: creating subject %q: %w", subject.Name, err)
	}

	return nil
}

// GetOrCreateSubject returns the subject named name under teacherID,
// creating it on first reference. This is how subjects normally come into
// existence — a teacher's first deck under "Biology" creates the "Biology"
// subject.
//
// RACE HANDLING:
// Lookup then insert races with a concurrent identical request. The UNIQUE
// (name, teacher_id) constraint catches the loser, and we re-read the row
// the winner created instead of failing the request — both callers wanted
// the same subject to exist, and now it does.
func (db *DB) GetOrCreateSubject(ctx context.Context, teacherID, name string) (*model.Subject, error) {
	subject, err := db.getSubjectByName(ctx, teacherID, name)
	if err == nil {
		return subject, nil
	}
	if err != sql.ErrNoRows {
		return nil, fmt.Errorf("sqlite: looking up subject %q: %w", name, err)
	}

	s := &model.Subject{Name: name, TeacherID: teacherID}
	if err := db.CreateSubject(ctx, s); err != nil {
		if errors.Is(err, apperror.ErrConflict) {
			// Lost the race — the subject exists now, return it.
			subject, rerr := db.getSubjectByName(ctx, teacherID, name)
			if rerr != nil {
				return nil, fmt.Errorf("sqlite: re-reading subject %q after conflict: %w", name, rerr)
			}
			return subject, nil
		}
		return nil, err
	}

	return s, nil
}

func (db *DB) getSubjectByName(ctx context.Context, teacherID, name string) (*model.Subject, error) {
	var s model.Subject
	err := db.conn.QueryRowContext(ctx,
		`SELECT id, name, teacher_id, created_at
		 FROM subjects WHERE teacher_id = ? AND name = ?`,
		teacherID, name,
	).Scan(&s.ID, &s.Name, &s.TeacherID, &s.CreatedAt)
	if err != nil {
		return nil, err
	}
	return &s, nil
}

// GetSubjectByID retrieves a subject by its ID.
func (db *DB) GetSubjectByID(ctx context.Context, id string) (*model.Subject, error) {
	var s model.Subject
	err := db.conn.QueryRowContext(ctx,
		`SELECT id, name, teacher_id, created_at FROM subjects WHERE id = ?`,
		id,
	).Scan(&s.ID, &s.Name, &s.TeacherID, &s.CreatedAt)
	if err != nil {
		if err == sql.ErrNoRows {
			return nil, apperror.NotFound("subject", id)
		}
		return nil, fmt.Errorf("sqlite: getting subject %s: %w", id, err)
	}
	return &s, nil
}

// ListSubjectsByTeacher returns the teacher's subjects with deck counts,
// newest first. Scoping happens here — callers never see another teacher's
// rows.
func (db *DB) ListSubjectsByTeacher(ctx context.Context, teacherID string) ([]repository.SubjectSummary, error) {
	rows, err := db.conn.QueryContext(ctx,
		`SELECT s.id, s.name, s.teacher_id, s.created_at, COUNT(d.id)
		 FROM subjects s
		 LEFT JOIN decks d ON d.subject_id = s.id
		 WHERE s.teacher_id = ?
		 GROUP BY s.id
		 ORDER BY s.created_at DESC`,
		teacherID,
	)
	if err != nil {
		return nil, fmt.Errorf("sqlite: listing subjects: %w", err)
	}
	defer rows.Close()

	subjects := []repository.SubjectSummary{}
	for rows.Next() {
		var s repository.SubjectSummary
		if err := rows.Scan(&s.ID, &s.Name, &s.TeacherID, &s.CreatedAt, &s.DeckCount); err != nil {
			return nil, fmt.Errorf("sqlite: scanning subject row: %w", err)
		}
		subjects = append(subjects, s)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("sqlite: iterating subjects: %w", err)
	}

	return subjects, nil
}
