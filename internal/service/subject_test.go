package service

import (
	"context"
	"errors"
	"testing"

	"github.com/sakif/deckshare/internal/apperror"
)

func newTestSubjectService(t *testing.T) (*SubjectService, *mockStore) {
	t.Helper()
	store := newMockStore()
	return NewSubjectService(store, testLogger()), store
}

func TestSubjectCreate_Success(t *testing.T) {
	svc, store := newTestSubjectService(t)
	teacherID := seedTeacher(t, store, "Ada", "ada@school.edu")

	subject, err := svc.Create(context.Background(), teacherID, "  Physics  ")
	if err != nil {
		t.Fatalf("Create() error = %v", err)
	}
	if subject.Name != "Physics" {
		t.Errorf("Name = %q, want trimmed %q", subject.Name, "Physics")
	}
	if subject.TeacherID != teacherID {
		t.Errorf("TeacherID = %q, want %q", subject.TeacherID, teacherID)
	}
}

func TestSubjectCreate_DuplicateNameConflicts(t *testing.T) {
	svc, store := newTestSubjectService(t)
	teacherID := seedTeacher(t, store, "Ada", "ada@school.edu")

	if _, err := svc.Create(context.Background(), teacherID, "Physics"); err != nil {
		t.Fatalf("setup: Create() error = %v", err)
	}

	// Explicit creation doesn't get the get-or-create treatment.
	_, err := svc.Create(context.Background(), teacherID, "Physics")
	if !errors.Is(err, apperror.ErrConflict) {
		t.Errorf("error = %v, want ErrConflict", err)
	}
}

func TestSubjectCreate_Anonymous(t *testing.T) {
	svc, _ := newTestSubjectService(t)

	_, err := svc.Create(context.Background(), "", "Physics")
	if !errors.Is(err, apperror.ErrUnauthenticated) {
		t.Errorf("error = %v, want ErrUnauthenticated", err)
	}
}

func TestSubjectCreate_EmptyName(t *testing.T) {
	svc, store := newTestSubjectService(t)
	teacherID := seedTeacher(t, store, "Ada", "ada@school.edu")

	_, err := svc.Create(context.Background(), teacherID, "   ")
	if !errors.Is(err, apperror.ErrValidation) {
		t.Errorf("error = %v, want ErrValidation", err)
	}
}

func TestSubjectList_WithDeckCounts(t *testing.T) {
	subjectSvc, store := newTestSubjectService(t)
	deckSvc := NewDeckService(store, store, store, testLogger())
	teacherID := seedTeacher(t, store, "Ada", "ada@school.edu")

	for _, title := range []string{"Mechanics", "Waves"} {
		if _, err := deckSvc.Create(context.Background(), teacherID, CreateDeckInput{
			Title: title, SubjectName: "Physics", Cards: twoCards(),
		}); err != nil {
			t.Fatalf("setup: deck Create() error = %v", err)
		}
	}

	subjects, err := subjectSvc.List(context.Background(), teacherID)
	if err != nil {
		t.Fatalf("List() error = %v", err)
	}
	if len(subjects) != 1 {
		t.Fatalf("subjects = %d, want 1", len(subjects))
	}
	if subjects[0].DeckCount != 2 {
		t.Errorf("DeckCount = %d, want 2", subjects[0].DeckCount)
	}
}

func TestSubjectList_AnonymousGetsEmptyList(t *testing.T) {
	svc, _ := newTestSubjectService(t)

	subjects, err := svc.List(context.Background(), "")
	if err != nil {
		t.Fatalf("List() error = %v", err)
	}
	if len(subjects) != 0 {
		t.Errorf("subjects = %d, want 0", len(subjects))
	}
}
