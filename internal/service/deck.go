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

// Validation constants.
const (
	MaxDeckTitleLength   = 200
	MaxSubjectNameLength = 100
	MaxMetadataLength    = 50
	MaxCardTextLength    = 10000
	MaxCardsPerDeck      = 500
)

// CardInput is one question/answer pair as supplied by a client.
//
// There is deliberately no order field: card order is always derived from
// position in the input slice. A client-supplied order value has nowhere
// to even arrive.
type CardInput struct {
	Question string
	Answer   string
}

// CreateDeckInput carries everything needed to create a deck.
type CreateDeckInput struct {
	Title       string
	SubjectName string
	ExamBoard   string
	YearGroup   string
	TargetGrade string
	IsPublic    bool
	Cards       []CardInput
}

// UpdateDeckInput carries a deck update. Empty title and nil IsPublic
// both mean "keep the current value", so a metadata-only edit cannot
// silently flip a private deck public. Metadata fields are always applied.
type UpdateDeckInput struct {
	Title       string
	ExamBoard   string
	YearGroup   string
	TargetGrade string
	IsPublic    *bool
}

/// DeckDetail is the full read model for a single deck: the deck row plus
// resolved subject/teacher names and the ordered card set. Both the
// owner-scoped detail path and the public study path return this shape.
type DeckDetail struct {
	Deck        model.Deck
	SubjectName string
	TeacherName string
	Cards       []model.Card
}

// DeckService owns the deck/card aggregate and enforces the access policy
// on it.
//
// THE ACCESS POLICY, IN ONE PLACE:
//   - Owner-scoped operations: Unauthenticated (401) when teacherID is
//     empty, Forbidden (403) when it doesn't match the deck's owner.
//   - Caller-scoped lists: never an error — an anonymous caller just gets
//     an empty result.
//   - Exactly one ownership bypass: GetPublic, read-only, which succeeds
//     iff the deck is public and otherwise reports NotFound — deliberately
//     identical to a slug that doesn't exist, so a probe can't distinguish
//     "private" from "missing".
type DeckService struct {
	decks    repository.DeckRepository
	subjects repository.SubjectRepository
	teachers repository.TeacherRepository
	logger   *slog.Logger
}

// NewDeckService creates a DeckService.
func NewDeckService(
	decks repository.DeckRepository,
	subjects repository.SubjectRepository,
	teachers repository.TeacherRepository,
	logger *slog.Logger,
) *DeckService {
	return &DeckService{
		decks:    decks,
		subjects: subjects,
		teachers: teachers,
		logger:   logger,
	}
}

// Create validates input, resolves (or creates) the subject, and persists
// the deck with its initial cards.
//
// OWNERSHIP HAS ONE WRITE PATH:
// The deck's TeacherID is copied from the resolved subject right here —
// never taken from input, never written anywhere else. That's what keeps
// the deck.teacher == subject.teacher invariant true by construction
// instead of by auditing.
func (s *DeckService) Create(ctx context.Context, teacherID string, in CreateDeckInput) (*DeckDetail, error) {
	if teacherID == "" {
		return nil, apperror.Unauthenticated("authentication required")
	}

	in.Title = strings.TrimSpace(in.Title)
	in.SubjectName = strings.TrimSpace(in.SubjectName)

	if in.Title == "" {
		return nil, apperror.ValidationFailed("title", "deck title is required")
	}
	if len(in.Title) > MaxDeckTitleLength {
		return nil, apperror.ValidationFailed("title",
			fmt.Sprintf("deck title must be %d characters or less", MaxDeckTitleLength))
	}
	if in.SubjectName == "" {
		return nil, apperror.ValidationFailed("subject_name", "subject name is required")
	}
	if len(in.SubjectName) > MaxSubjectNameLength {
		return nil, apperror.ValidationFailed("subject_name",
			fmt.Sprintf("subject name must be %d characters or less", MaxSubjectNameLength))
	}
	if err := validateMetadata(in.ExamBoard, in.YearGroup, in.TargetGrade); err != nil {
		return nil, err
	}
	cards, err := buildCards(in.Cards)
	if err != nil {
		return nil, err
	}

	subject, err := s.subjects.GetOrCreateSubject(ctx, teacherID, in.SubjectName)
	if err != nil {
		s.logger.Error("failed to resolve subject",
			slog.String("name", in.SubjectName),
			slog.String("error", err.Error()),
		)
		return nil, fmt.Errorf("resolving subject: %w", err)
	}

	deck := &model.Deck{
		Title:       in.Title,
		SubjectID:   subject.ID,
		TeacherID:   subject.TeacherID, // the single ownership write path
		ExamBoard:   strings.TrimSpace(in.ExamBoard),
		YearGroup:   strings.TrimSpace(in.YearGroup),
		TargetGrade: strings.TrimSpace(in.TargetGrade),
		IsPublic:    in.IsPublic,
	}

	if err := s.decks.Create(ctx, deck, cards); err != nil {
		s.logger.Error("failed to create deck",
			slog.String("title", in.Title),
			slog.String("error", err.Error()),
		)
		return nil, err
	}

	s.logger.Info("deck created",
		slog.String("deckID", deck.ID),
		slog.String("slug", deck.Slug),
		slog.String("teacherID", teacherID),
		slog.Int("cards", len(cards)),
	)

	return s.detail(ctx, deck)
}

// Get returns the owner's full detail view of a deck.
// This is the owner-scoped path — a private deck is visible here to its
// owner and to nobody else.
func (s *DeckService) Get(ctx context.Context, teacherID, slug string) (*DeckDetail, error) {
	deck, err := s.ownedDeck(ctx, teacherID, slug)
	if err != nil {
		return nil, err
	}
	return s.detail(ctx, deck)
}

// List returns the caller's decks as summaries. An anonymous caller gets
// an empty list, not an error — scoping, not gating.
func (s *DeckService) List(ctx context.Context, teacherID string) ([]repository.DeckSummary, error) {
	if teacherID == "" {
		return []repository.DeckSummary{}, nil
	}

	decks, err := s.decks.ListByTeacher(ctx, teacherID)
	if err != nil {
		s.logger.Error("failed to list decks", slog.String("error", err.Error()))
		return nil, fmt.Errorf("listing decks: %w", err)
	}
	return decks, nil
}

// Update applies title/metadata/visibility changes to an owned deck.
// The slug never changes, whatever happens to the title — study links
// shared with students keep working.
func (s *DeckService) Update(ctx context.Context, teacherID, slug string, in UpdateDeckInput) (*DeckDetail, error) {
	deck, err := s.ownedDeck(ctx, teacherID, slug)
	if err != nil {
		return nil, err
	}

	if title := strings.TrimSpace(in.Title); title != "" {
		if len(title) > MaxDeckTitleLength {
			return nil, apperror.ValidationFailed("title",
				fmt.Sprintf("deck title must be %d characters or less", MaxDeckTitleLength))
		}
		deck.Title = title
	}
	if err := validateMetadata(in.ExamBoard, in.YearGroup, in.TargetGrade); err != nil {
		return nil, err
	}
	deck.ExamBoard = strings.TrimSpace(in.ExamBoard)
	deck.YearGroup = strings.TrimSpace(in.YearGroup)
	deck.TargetGrade = strings.TrimSpace(in.TargetGrade)
	if in.IsPublic != nil {
		deck.IsPublic = *in.IsPublic
	}

	if err := s.decks.Update(ctx, deck); err != nil {
		s.logger.Error("failed to update deck",
			slog.String("slug", slug),
			slog.String("error", err.Error()),
		)
		return nil, fmt.Errorf("updating deck: %w", err)
	}

	s.logger.Info("deck updated", slog.String("deckID", deck.ID), slog.String("slug", deck.Slug))

	return s.detail(ctx, deck)
}

// Delete removes an owned deck and, by cascade, its cards.
func (s *DeckService) Delete(ctx context.Context, teacherID, slug string) error {
	deck, err := s.ownedDeck(ctx, teacherID, slug)
	if err != nil {
		return err
	}

	if err := s.decks.Delete(ctx, deck.ID); err != nil {
		return err
	}

	s.logger.Info("deck deleted", slog.String("deckID", deck.ID), slog.String("slug", slug))
	return nil
}

// ReplaceCards atomically swaps a deck's entire card set for newCards,
// with order assigned from input position starting at 0. No card identity
// survives the call; replacing with an empty slice empties the deck.
func (s *DeckService) ReplaceCards(ctx context.Context, teacherID, slug string, newCards []CardInput) (*DeckDetail, error) {
	deck, err := s.ownedDeck(ctx, teacherID, slug)
	if err != nil {
		return nil, err
	}

	cards, err := buildCards(newCards)
	if err != nil {
		return nil, err
	}

	if err := s.decks.ReplaceCards(ctx, deck.ID, cards); err != nil {
		s.logger.Error("failed to replace cards",
			slog.String("deckID", deck.ID),
			slog.String("error", err.Error()),
		)
		return nil, fmt.Errorf("replacing cards: %w", err)
	}

	s.logger.Info("cards replaced",
		slog.String("deckID", deck.ID),
		slog.Int("cards", len(cards)),
	)

	return s.detail(ctx, deck)
}

// GetPublic is the one operation that bypasses ownership: fetch a deck by
// slug for read-only study access, succeeding iff the deck is public.
//
// A private deck answers NotFound here — the same NotFound a nonexistent
// slug produces. Answering Forbidden instead would confirm the deck
// exists, which is exactly the leak this is built to avoid.
func (s *DeckService) GetPublic(ctx context.Context, slug string) (*DeckDetail, error) {
	deck, err := s.decks.GetBySlug(ctx, slug)
	if err != nil {
		return nil, err
	}
	if !deck.IsPublic {
		return nil, apperror.NotFound("deck", slug)
	}
	return s.detail(ctx, deck)
}

// ownedDeck fetches a deck and applies the owner gate: 401 for anonymous
// callers, 403 for a caller who isn't the owner.
func (s *DeckService) ownedDeck(ctx context.Context, teacherID, slug string) (*model.Deck, error) {
	if teacherID == "" {
		return nil, apperror.Unauthenticated("authentication required")
	}

	slug = strings.TrimSpace(slug)
	if slug == "" {
		return nil, apperror.ValidationFailed("slug", "deck slug is required")
	}

	deck, err := s.decks.GetBySlug(ctx, slug)
	if err != nil {
		return nil, err
	}
	if deck.TeacherID != teacherID {
		return nil, apperror.Forbidden("you do not own this deck")
	}

	return deck, nil
}

// detail assembles the full read model for a deck.
func (s *DeckService) detail(ctx context.Context, deck *model.Deck) (*DeckDetail, error) {
	cards, err := s.decks.CardsByDeck(ctx, deck.ID)
	if err != nil {
		return nil, fmt.Errorf("loading cards for deck %s: %w", deck.ID, err)
	}

	subject, err := s.subjects.GetSubjectByID(ctx, deck.SubjectID)
	if err != nil {
		return nil, fmt.Errorf("loading subject for deck %s: %w", deck.ID, err)
	}

	teacher, err := s.teachers.GetTeacherByID(ctx, deck.TeacherID)
	if err != nil {
		return nil, fmt.Errorf("loading teacher for deck %s: %w", deck.ID, err)
	}

	return &DeckDetail{
		Deck:        *deck,
		SubjectName: subject.Name,
		TeacherName: teacher.Name,
		Cards:       cards,
	}, nil
}

// buildCards validates client card input and assigns contiguous order
// values from slice position. Whatever order the client believes in, the
// array is the truth.
func buildCards(in []CardInput) ([]model.Card, error) {
	if len(in) > MaxCardsPerDeck {
		return nil, apperror.ValidationFailed("cards",
			fmt.Sprintf("a deck can hold at most %d cards", MaxCardsPerDeck))
	}

	cards := make([]model.Card, 0, len(in))
	for i, c := range in {
		question := strings.TrimSpace(c.Question)
		answer := strings.TrimSpace(c.Answer)

		if question == "" {
			return nil, apperror.ValidationFailed("cards",
				fmt.Sprintf("card %d: question is required", i))
		}
		if answer == "" {
			return nil, apperror.ValidationFailed("cards",
				fmt.Sprintf("card %d: answer is required", i))
		}
		if len(question) > MaxCardTextLength || len(answer) > MaxCardTextLength {
			return nil, apperror.ValidationFailed("cards",
				fmt.Sprintf("card %d: text must be %d characters or less", i, MaxCardTextLength))
		}

		cards = append(cards, model.Card{
			Question: question,
			Answer:   answer,
			Order:    i, // position in the input sequence, nothing else
		})
	}

	return cards, nil
}

func validateMetadata(examBoard, yearGroup, targetGrade string) error {
	for field, v := range map[string]string{
		"exam_board":   examBoard,
		"year_group":   yearGroup,
		"target_grade": targetGrade,
	} {
		if len(strings.TrimSpace(v)) > MaxMetadataLength {
			return apperror.ValidationFailed(field,
				fmt.Sprintf("%s must be %d characters or less", field, MaxMetadataLength))
		}
	}
	return nil
}
