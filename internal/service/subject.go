package service

import (
	"context"
	"fmt"
	"log/slog"
	"strings"

	"github.com/sakif/deckshare/internal/apperror"
	"github.com/sakif/deckshare/internal/model"
	"github.com/sakif/deckshare/internal/repository"
)

// SubjectService manages a teacher's subject namespace. Subjects are
// per-teacher: two teachers can each have a "Physics" without colliding.
type SubjectService struct {
	subjects repository.SubjectRepository
	logger   *slog.Logger
}

// NewSubjectService creates a SubjectService.
func NewSubjectService(subjects repository.SubjectRepository, logger *slog.Logger) *SubjectService {
	return &SubjectService{subjects: subjects, logger: logger}
}

// Create explicitly creates a subject, unlike the implicit get-or-create
// that deck creation uses. Creating a name that already exists for this
// teacher is a Conflict here, not a silent reuse.
func (s *SubjectService) Create(ctx context.Context, teacherID, name string) (*model.Subject, error) {
	if teacherID == "" {
		return nil, apperror.Unauthenticated("authentication required")
	}

	name = strings.TrimSpace(name)
	if name == "" {
		return nil, apperror.ValidationFailed("name", "subject name is required")
	}
	if len(name) > MaxSubjectNameLength {
		return nil, apperror.ValidationFailed("name",
			fmt.Sprintf("subject name must be %d characters or less", MaxSubjectNameLength))
	}

	subject := &model.Subject{Name: name, TeacherID: teacherID}
	if err := s.subjects.CreateSubject(ctx, subject); err != nil {
		return nil, err
	}

	s.logger.Info("subject created",
		slog.String("subjectID", subject.ID),
		slog.String("name", subject.Name),
		slog.String("teacherID", teacherID),
	)

	return subject, nil
}

// List returns the caller's subjects with deck counts. Anonymous callers
// get an empty list.
func (s *SubjectService) List(ctx context.Context, teacherID string) ([]repository.SubjectSummary, error) {
	if teacherID == "" {
		return []repository.SubjectSummary{}, nil
	}

	subjects, err := s.subjects.ListSubjectsByTeacher(ctx, teacherID)
	if err != nil {
		s.logger.Error("failed to list subjects", slog.String("error", err.Error()))
		return nil, fmt.Errorf("listing subjects: %w", err)
	}
	return subjects, nil
}
