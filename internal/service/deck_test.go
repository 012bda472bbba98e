package service

import (
	"context"
	"errors"
	"strings"
	"testing"

	"github.com/sakif/deckshare/internal/apperror"
	"github.com/sakif/deckshare/internal/model"
)

func newTestDeckService(t *testing.T) (*DeckService, *mockStore) {
	t.Helper()
	store := newMockStore()
	svc := NewDeckService(store, store, store, testLogger())
	return svc, store
}

// seedTeacher inserts a teacher row directly and returns its ID. Deck
// tests don't need the whole registration flow.
func seedTeacher(t *testing.T, store *mockStore, name, email string) string {
	t.Helper()
	teacher := &model.Teacher{Name: name, Email: email, PasswordHash: "irrelevant"}
	if err := store.CreateTeacher(context.Background(), teacher); err != nil {
		t.Fatalf("seeding teacher: %v", err)
	}
	return teacher.ID
}

func twoCards() []CardInput {
	return []CardInput{
		{Question: "What is 2+2?", Answer: "4"},
		{Question: "What is the capital of France?", Answer: "Paris"},
	}
}

// =========================================================================
// CREATE TESTS
// =========================================================================

func TestDeckCreate_Success(t *testing.T) {
	svc, store := newTestDeckService(t)
	teacherID := seedTeacher(t, store, "Ada", "ada@school.edu")

	detail, err := svc.Create(context.Background(), teacherID, CreateDeckInput{
		Title:       "Algebra Basics",
		SubjectName: "Maths",
		IsPublic:    true,
		Cards:       twoCards(),
	})
	if err != nil {
		t.Fatalf("Create() error = %v", err)
	}

	if detail.Deck.Slug != "algebra-basics" {
		t.Errorf("Slug = %q, want %q", detail.Deck.Slug, "algebra-basics")
	}
	if detail.Deck.TeacherID != teacherID {
		t.Errorf("TeacherID = %q, want %q", detail.Deck.TeacherID, teacherID)
	}
	if detail.SubjectName != "Maths" {
		t.Errorf("SubjectName = %q, want %q", detail.SubjectName, "Maths")
	}
	if len(detail.Cards) != 2 {
		t.Fatalf("cards = %d, want 2", len(detail.Cards))
	}
	for i, c := range detail.Cards {
		if c.Order != i {
			t.Errorf("card %d Order = %d, want %d", i, c.Order, i)
		}
	}
}

func TestDeckCreate_SlugCollisionGetsSuffix(t *testing.T) {
	svc, store := newTestDeckService(t)
	teacherID := seedTeacher(t, store, "Ada", "ada@school.edu")

	first, err := svc.Create(context.Background(), teacherID, CreateDeckInput{
		Title: "Algebra", SubjectName: "Maths", Cards: twoCards(),
	})
	if err != nil {
		t.Fatalf("first Create() error = %v", err)
	}
	second, err := svc.Create(context.Background(), teacherID, CreateDeckInput{
		Title: "Algebra", SubjectName: "Maths", Cards: twoCards(),
	})
	if err != nil {
		t.Fatalf("second Create() error = %v", err)
	}

	if first.Deck.Slug != "algebra" {
		t.Errorf("first Slug = %q, want %q", first.Deck.Slug, "algebra")
	}
	if second.Deck.Slug != "algebra-1" {
		t.Errorf("second Slug = %q, want %q", second.Deck.Slug, "algebra-1")
	}
}

func TestDeckCreate_ReusesExistingSubject(t *testing.T) {
	svc, store := newTestDeckService(t)
	teacherID := seedTeacher(t, store, "Ada", "ada@school.edu")

	a, err := svc.Create(context.Background(), teacherID, CreateDeckInput{
		Title: "Mechanics", SubjectName: "Physics", Cards: twoCards(),
	})
	if err != nil {
		t.Fatalf("Create() error = %v", err)
	}
	b, err := svc.Create(context.Background(), teacherID, CreateDeckInput{
		Title: "Waves", SubjectName: "Physics", Cards: twoCards(),
	})
	if err != nil {
		t.Fatalf("Create() error = %v", err)
	}

	if a.Deck.SubjectID != b.Deck.SubjectID {
		t.Errorf("subject IDs differ (%q vs %q), want the same subject reused",
			a.Deck.SubjectID, b.Deck.SubjectID)
	}
}

func TestDeckCreate_SameSubjectNameDifferentTeachers(t *testing.T) {
	svc, store := newTestDeckService(t)
	ada := seedTeacher(t, store, "Ada", "ada@school.edu")
	bob := seedTeacher(t, store, "Bob", "bob@school.edu")

	a, err := svc.Create(context.Background(), ada, CreateDeckInput{
		Title: "Cells", SubjectName: "Biology", Cards: twoCards(),
	})
	if err != nil {
		t.Fatalf("Create() error = %v", err)
	}
	b, err := svc.Create(context.Background(), bob, CreateDeckInput{
		Title: "Genetics", SubjectName: "Biology", Cards: twoCards(),
	})
	if err != nil {
		t.Fatalf("Create() error = %v", err)
	}

	if a.Deck.SubjectID == b.Deck.SubjectID {
		t.Error("subjects with the same name under different teachers must be distinct rows")
	}
}

func TestDeckCreate_Validation(t *testing.T) {
	svc, store := newTestDeckService(t)
	teacherID := seedTeacher(t, store, "Ada", "ada@school.edu")

	tests := []struct {
		name string
		in   CreateDeckInput
	}{
		{"empty title", CreateDeckInput{SubjectName: "Maths", Cards: twoCards()}},
		{"title too long", CreateDeckInput{
			Title: strings.Repeat("a", MaxDeckTitleLength+1), SubjectName: "Maths", Cards: twoCards()}},
		{"empty subject", CreateDeckInput{Title: "Algebra", Cards: twoCards()}},
		{"card missing question", CreateDeckInput{
			Title: "Algebra", SubjectName: "Maths",
			Cards: []CardInput{{Question: "  ", Answer: "4"}}}},
		{"card missing answer", CreateDeckInput{
			Title: "Algebra", SubjectName: "Maths",
			Cards: []CardInput{{Question: "2+2?", Answer: ""}}}},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := svc.Create(context.Background(), teacherID, tt.in)
			if !errors.Is(err, apperror.ErrValidation) {
				t.Errorf("error = %v, want ErrValidation", err)
			}
		})
	}
}

func TestDeckCreate_Anonymous(t *testing.T) {
	svc, _ := newTestDeckService(t)

	_, err := svc.Create(context.Background(), "", CreateDeckInput{
		Title: "Algebra", SubjectName: "Maths", Cards: twoCards(),
	})
	if !errors.Is(err, apperror.ErrUnauthenticated) {
		t.Errorf("error = %v, want ErrUnauthenticated", err)
	}
}

// =========================================================================
// ACCESS POLICY TESTS
// =========================================================================

func TestDeckGet_OwnerSeesPrivateDeck(t *testing.T) {
	svc, store := newTestDeckService(t)
	teacherID := seedTeacher(t, store, "Ada", "ada@school.edu")

	created, err := svc.Create(context.Background(), teacherID, CreateDeckInput{
		Title: "Secret Notes", SubjectName: "Maths", IsPublic: false, Cards: twoCards(),
	})
	if err != nil {
		t.Fatalf("setup: Create() error = %v", err)
	}

	detail, err := svc.Get(context.Background(), teacherID, created.Deck.Slug)
	if err != nil {
		t.Fatalf("Get() error = %v", err)
	}
	if detail.Deck.ID != created.Deck.ID {
		t.Errorf("Deck.ID = %q, want %q", detail.Deck.ID, created.Deck.ID)
	}
}

func TestDeckGet_NonOwnerForbidden(t *testing.T) {
	svc, store := newTestDeckService(t)
	ada := seedTeacher(t, store, "Ada", "ada@school.edu")
	bob := seedTeacher(t, store, "Bob", "bob@school.edu")

	created, err := svc.Create(context.Background(), ada, CreateDeckInput{
		Title: "Algebra", SubjectName: "Maths", IsPublic: true, Cards: twoCards(),
	})
	if err != nil {
		t.Fatalf("setup: Create() error = %v", err)
	}

	// Even a public deck: the owner-scoped detail path belongs to the owner.
	_, err = svc.Get(context.Background(), bob, created.Deck.Slug)
	if !errors.Is(err, apperror.ErrForbidden) {
		t.Errorf("error = %v, want ErrForbidden", err)
	}
}

func TestDeckGet_Anonymous(t *testing.T) {
	svc, _ := newTestDeckService(t)

	_, err := svc.Get(context.Background(), "", "some-slug")
	if !errors.Is(err, apperror.ErrUnauthenticated) {
		t.Errorf("error = %v, want ErrUnauthenticated", err)
	}
}

func TestGetPublic_PrivateAndMissingLookTheSame(t *testing.T) {
	svc, store := newTestDeckService(t)
	teacherID := seedTeacher(t, store, "Ada", "ada@school.edu")

	created, err := svc.Create(context.Background(), teacherID, CreateDeckInput{
		Title: "Private Deck", SubjectName: "Maths", IsPublic: false, Cards: twoCards(),
	})
	if err != nil {
		t.Fatalf("setup: Create() error = %v", err)
	}

	_, errPrivate := svc.GetPublic(context.Background(), created.Deck.Slug)
	_, errMissing := svc.GetPublic(context.Background(), "no-such-deck")

	if !errors.Is(errPrivate, apperror.ErrNotFound) {
		t.Errorf("private deck error = %v, want ErrNotFound", errPrivate)
	}
	if !errors.Is(errMissing, apperror.ErrNotFound) {
		t.Errorf("missing deck error = %v, want ErrNotFound", errMissing)
	}
}

func TestGetPublic_Success(t *testing.T) {
	svc, store := newTestDeckService(t)
	teacherID := seedTeacher(t, store, "Ada", "ada@school.edu")

	created, err := svc.Create(context.Background(), teacherID, CreateDeckInput{
		Title: "Open Deck", SubjectName: "Maths", IsPublic: true, Cards: twoCards(),
	})
	if err != nil {
		t.Fatalf("setup: Create() error = %v", err)
	}

	detail, err := svc.GetPublic(context.Background(), created.Deck.Slug)
	if err != nil {
		t.Fatalf("GetPublic() error = %v", err)
	}
	if detail.TeacherName != "Ada" {
		t.Errorf("TeacherName = %q, want %q", detail.TeacherName, "Ada")
	}
	if len(detail.Cards) != 2 {
		t.Errorf("cards = %d, want 2", len(detail.Cards))
	}
}

func TestDeckList_ScopedToCaller(t *testing.T) {
	svc, store := newTestDeckService(t)
	ada := seedTeacher(t, store, "Ada", "ada@school.edu")
	bob := seedTeacher(t, store, "Bob", "bob@school.edu")

	if _, err := svc.Create(context.Background(), ada, CreateDeckInput{
		Title: "Algebra", SubjectName: "Maths", Cards: twoCards(),
	}); err != nil {
		t.Fatalf("setup: Create() error = %v", err)
	}

	adaDecks, err := svc.List(context.Background(), ada)
	if err != nil {
		t.Fatalf("List() error = %v", err)
	}
	if len(adaDecks) != 1 {
		t.Errorf("ada's decks = %d, want 1", len(adaDecks))
	}
	if adaDecks[0].CardCount != 2 {
		t.Errorf("CardCount = %d, want 2", adaDecks[0].CardCount)
	}

	bobDecks, err := svc.List(context.Background(), bob)
	if err != nil {
		t.Fatalf("List() error = %v", err)
	}
	if len(bobDecks) != 0 {
		t.Errorf("bob's decks = %d, want 0", len(bobDecks))
	}
}

func TestDeckList_AnonymousGetsEmptyList(t *testing.T) {
	svc, _ := newTestDeckService(t)

	decks, err := svc.List(context.Background(), "")
	if err != nil {
		t.Fatalf("List() error = %v, want nil for anonymous caller", err)
	}
	if decks == nil || len(decks) != 0 {
		t.Errorf("decks = %v, want empty non-nil slice", decks)
	}
}

// =========================================================================
// UPDATE / DELETE TESTS
// =========================================================================

func TestDeckUpdate_SlugSurvivesRename(t *testing.T) {
	svc, store := newTestDeckService(t)
	teacherID := seedTeacher(t, store, "Ada", "ada@school.edu")

	created, err := svc.Create(context.Background(), teacherID, CreateDeckInput{
		Title: "Old Title", SubjectName: "Maths", IsPublic: true, Cards: twoCards(),
	})
	if err != nil {
		t.Fatalf("setup: Create() error = %v", err)
	}

	private := false
	updated, err := svc.Update(context.Background(), teacherID, created.Deck.Slug, UpdateDeckInput{
		Title: "Completely New Title", ExamBoard: "AQA", IsPublic: &private,
	})
	if err != nil {
		t.Fatalf("Update() error = %v", err)
	}

	if updated.Deck.Title != "Completely New Title" {
		t.Errorf("Title = %q, want updated title", updated.Deck.Title)
	}
	if updated.Deck.Slug != created.Deck.Slug {
		t.Errorf("Slug changed from %q to %q; shared links would break",
			created.Deck.Slug, updated.Deck.Slug)
	}
	if updated.Deck.ExamBoard != "AQA" {
		t.Errorf("ExamBoard = %q, want %q", updated.Deck.ExamBoard, "AQA")
	}
	if updated.Deck.IsPublic {
		t.Error("IsPublic should have been set to false")
	}
}

func TestDeckUpdate_OmittedVisibilityKeepsCurrent(t *testing.T) {
	svc, store := newTestDeckService(t)
	teacherID := seedTeacher(t, store, "Ada", "ada@school.edu")

	created, err := svc.Create(context.Background(), teacherID, CreateDeckInput{
		Title: "Revision Notes", SubjectName: "Maths", IsPublic: false, Cards: twoCards(),
	})
	if err != nil {
		t.Fatalf("setup: Create() error = %v", err)
	}

	updated, err := svc.Update(context.Background(), teacherID, created.Deck.Slug, UpdateDeckInput{
		Title: "Revision Notes v2",
	})
	if err != nil {
		t.Fatalf("Update() error = %v", err)
	}
	if updated.Deck.IsPublic {
		t.Error("metadata-only update flipped a private deck public")
	}
}

func TestDeckUpdate_NonOwnerForbidden(t *testing.T) {
	svc, store := newTestDeckService(t)
	ada := seedTeacher(t, store, "Ada", "ada@school.edu")
	bob := seedTeacher(t, store, "Bob", "bob@school.edu")

	created, err := svc.Create(context.Background(), ada, CreateDeckInput{
		Title: "Algebra", SubjectName: "Maths", Cards: twoCards(),
	})
	if err != nil {
		t.Fatalf("setup: Create() error = %v", err)
	}

	_, err = svc.Update(context.Background(), bob, created.Deck.Slug, UpdateDeckInput{Title: "Hijacked"})
	if !errors.Is(err, apperror.ErrForbidden) {
		t.Errorf("error = %v, want ErrForbidden", err)
	}
}

func TestDeckDelete_Success(t *testing.T) {
	svc, store := newTestDeckService(t)
	teacherID := seedTeacher(t, store, "Ada", "ada@school.edu")

	created, err := svc.Create(context.Background(), teacherID, CreateDeckInput{
		Title: "Doomed", SubjectName: "Maths", Cards: twoCards(),
	})
	if err != nil {
		t.Fatalf("setup: Create() error = %v", err)
	}

	if err := svc.Delete(context.Background(), teacherID, created.Deck.Slug); err != nil {
		t.Fatalf("Delete() error = %v", err)
	}
	if _, err := svc.Get(context.Background(), teacherID, created.Deck.Slug); !errors.Is(err, apperror.ErrNotFound) {
		t.Errorf("Get() after delete error = %v, want ErrNotFound", err)
	}
}

func TestDeckDelete_NonOwnerForbidden(t *testing.T) {
	svc, store := newTestDeckService(t)
	ada := seedTeacher(t, store, "Ada", "ada@school.edu")
	bob := seedTeacher(t, store, "Bob", "bob@school.edu")

	created, err := svc.Create(context.Background(), ada, CreateDeckInput{
		Title: "Algebra", SubjectName: "Maths", Cards: twoCards(),
	})
	if err != nil {
		t.Fatalf("setup: Create() error = %v", err)
	}

	if err := svc.Delete(context.Background(), bob, created.Deck.Slug); !errors.Is(err, apperror.ErrForbidden) {
		t.Errorf("error = %v, want ErrForbidden", err)
	}
	// Still there.
	if _, err := svc.Get(context.Background(), ada, created.Deck.Slug); err != nil {
		t.Errorf("deck should have survived the failed delete, Get() error = %v", err)
	}
}

// =========================================================================
// REPLACE CARDS TESTS
// =========================================================================

func TestReplaceCards_OrderFromPosition(t *testing.T) {
	svc, store := newTestDeckService(t)
	teacherID := seedTeacher(t, store, "Ada", "ada@school.edu")

	created, err := svc.Create(context.Background(), teacherID, CreateDeckInput{
		Title: "Algebra", SubjectName: "Maths", Cards: twoCards(),
	})
	if err != nil {
		t.Fatalf("setup: Create() error = %v", err)
	}

	detail, err := svc.ReplaceCards(context.Background(), teacherID, created.Deck.Slug, []CardInput{
		{Question: "Q1", Answer: "A1"},
		{Question: "Q2", Answer: "A2"},
		{Question: "Q3", Answer: "A3"},
	})
	if err != nil {
		t.Fatalf("ReplaceCards() error = %v", err)
	}

	if len(detail.Cards) != 3 {
		t.Fatalf("cards = %d, want 3", len(detail.Cards))
	}
	for i, c := range detail.Cards {
		if c.Order != i {
			t.Errorf("card %d Order = %d, want %d", i, c.Order, i)
		}
		if c.Question != []string{"Q1", "Q2", "Q3"}[i] {
			t.Errorf("card %d Question = %q, out of input order", i, c.Question)
		}
	}
}

func TestReplaceCards_EmptySetEmptiesDeck(t *testing.T) {
	svc, store := newTestDeckService(t)
	teacherID := seedTeacher(t, store, "Ada", "ada@school.edu")

	created, err := svc.Create(context.Background(), teacherID, CreateDeckInput{
		Title: "Algebra", SubjectName: "Maths", Cards: twoCards(),
	})
	if err != nil {
		t.Fatalf("setup: Create() error = %v", err)
	}

	detail, err := svc.ReplaceCards(context.Background(), teacherID, created.Deck.Slug, nil)
	if err != nil {
		t.Fatalf("ReplaceCards() error = %v", err)
	}
	if len(detail.Cards) != 0 {
		t.Errorf("cards = %d, want 0", len(detail.Cards))
	}
}

func TestReplaceCards_NonOwnerForbidden(t *testing.T) {
	svc, store := newTestDeckService(t)
	ada := seedTeacher(t, store, "Ada", "ada@school.edu")
	bob := seedTeacher(t, store, "Bob", "bob@school.edu")

	created, err := svc.Create(context.Background(), ada, CreateDeckInput{
		Title: "Algebra", SubjectName: "Maths", Cards: twoCards(),
	})
	if err != nil {
		t.Fatalf("setup: Create() error = %v", err)
	}

	_, err = svc.ReplaceCards(context.Background(), bob, created.Deck.Slug, twoCards())
	if !errors.Is(err, apperror.ErrForbidden) {
		t.Errorf("error = %v, want ErrForbidden", err)
	}
}
