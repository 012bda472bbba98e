package service

import (
	"context"
	"fmt"
	"log/slog"
	"os"
	"sort"
	"sync"
	"time"

	"github.com/sakif/deckshare/internal/apperror"
	"github.com/sakif/deckshare/internal/model"
	"github.com/sakif/deckshare/internal/repository"
)

// =========================================================================
// IN-MEMORY MOCK STORE
// =========================================================================
//
// One mock implements all the repository interfaces, the same way the real
// sqlite.DB does. Data lives in maps; tests run in microseconds and can't
// interfere with each other through shared state.
//
// The mock mirrors the real store's behavioral contract — Conflict on
// duplicate email / (name, teacher) / slug, NotFound on missing rows,
// idempotent session deletes — because the services lean on exactly those
// behaviors.

type mockStore struct {
	mu       sync.Mutex
	teachers map[string]*model.Teacher            // by ID
	subjects map[string]*model.Subject            // by ID
	decks    map[string]*model.Deck               // by ID
	cards    map[string][]model.Card              // by deck ID, in order
	sessions map[string]*model.Session            // by token
	resets   map[string]*model.PasswordResetToken // by token
	nextID   int
}

func newMockStore() *mockStore {
	return &mockStore{
		teachers: make(map[string]*model.Teacher),
		subjects: make(map[string]*model.Subject),
		decks:    make(map[string]*model.Deck),
		cards:    make(map[string][]model.Card),
		sessions: make(map[string]*model.Session),
		resets:   make(map[string]*model.PasswordResetToken),
	}
}

func (m *mockStore) id() string {
	m.nextID++
	return fmt.Sprintf("mock-%d", m.nextID)
}

// --- TeacherRepository ---

func (m *mockStore) CreateTeacher(_ context.Context, teacher *model.Teacher) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	for _, t := range m.teachers {
		if t.Email == teacher.Email {
			return apperror.Conflict("teacher", teacher.Email)
		}
	}
	teacher.ID = m.id()
	teacher.CreatedAt = time.Now()
	teacher.UpdatedAt = teacher.CreatedAt
	stored := *teacher
	m.teachers[teacher.ID] = &stored
	return nil
}

func (m *mockStore) GetTeacherByID(_ context.Context, id string) (*model.Teacher, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	t, ok := m.teachers[id]
	if !ok {
		return nil, apperror.NotFound("teacher", id)
	}
	result := *t
	return &result, nil
}

func (m *mockStore) GetTeacherByEmail(_ context.Context, email string) (*model.Teacher, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	for _, t := range m.teachers {
		if t.Email == email {
			result := *t
			return &result, nil
		}
	}
	return nil, apperror.NotFound("teacher", email)
}

func (m *mockStore) UpdatePassword(_ context.Context, id, passwordHash string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	t, ok := m.teachers[id]
	if !ok {
		return apperror.NotFound("teacher", id)
	}
	t.PasswordHash = passwordHash
	t.UpdatedAt = time.Now()
	return nil
}

func (m *mockStore) MarkEmailVerified(_ context.Context, id string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	t, ok := m.teachers[id]
	if !ok {
		return apperror.NotFound("teacher", id)
	}
	t.EmailVerified = true
	t.UpdatedAt = time.Now()
	return nil
}

// --- SubjectRepository ---

func (m *mockStore) CreateSubject(_ context.Context, subject *model.Subject) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	for _, s := range m.subjects {
		if s.TeacherID == subject.TeacherID && s.Name == subject.Name {
			return apperror.Conflict("subject", subject.Name)
		}
	}
	subject.ID = m.id()
	subject.CreatedAt = time.Now()
	stored := *subject
	m.subjects[subject.ID] = &stored
	return nil
}

func (m *mockStore) GetOrCreateSubject(ctx context.Context, teacherID, name string) (*model.Subject, error) {
	m.mu.Lock()
	for _, s := range m.subjects {
		if s.TeacherID == teacherID && s.Name == name {
			result := *s
			m.mu.Unlock()
			return &result, nil
		}
	}
	m.mu.Unlock()
	subject := &model.Subject{Name: name, TeacherID: teacherID}
	if err := m.CreateSubject(ctx, subject); err != nil {
		return nil, err
	}
	return subject, nil
}

func (m *mockStore) GetSubjectByID(_ context.Context, id string) (*model.Subject, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	s, ok := m.subjects[id]
	if !ok {
		return nil, apperror.NotFound("subject", id)
	}
	result := *s
	return &result, nil
}

func (m *mockStore) ListSubjectsByTeacher(_ context.Context, teacherID string) ([]repository.SubjectSummary, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	result := []repository.SubjectSummary{}
	for _, s := range m.subjects {
		if s.TeacherID != teacherID {
			continue
		}
		count := 0
		for _, d := range m.decks {
			if d.SubjectID == s.ID {
				count++
			}
		}
		result = append(result, repository.SubjectSummary{Subject: *s, DeckCount: count})
	}
	sort.Slice(result, func(i, j int) bool { return result[i].Name < result[j].Name })
	return result, nil
}

// --- DeckRepository ---

func (m *mockStore) Create(_ context.Context, deck *model.Deck, cards []model.Card) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	// Mimic the real store's slug assignment: base, base-1, base-2...
	base := slugify(deck.Title)
	candidate := base
	for n := 1; m.slugTaken(candidate); n++ {
		candidate = fmt.Sprintf("%s-%d", base, n)
	}
	deck.ID = m.id()
	deck.Slug = candidate
	deck.CreatedAt = time.Now()
	deck.UpdatedAt = deck.CreatedAt
	stored := *deck
	m.decks[deck.ID] = &stored

	withIDs := make([]model.Card, len(cards))
	for i, c := range cards {
		c.ID = m.id()
		c.DeckID = deck.ID
		withIDs[i] = c
	}
	m.cards[deck.ID] = withIDs
	return nil
}

func (m *mockStore) slugTaken(slug string) bool {
	for _, d := range m.decks {
		if d.Slug == slug {
			return true
		}
	}
	return false
}

func (m *mockStore) GetBySlug(_ context.Context, slug string) (*model.Deck, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	for _, d := range m.decks {
		if d.Slug == slug {
			result := *d
			return &result, nil
		}
	}
	return nil, apperror.NotFound("deck", slug)
}

func (m *mockStore) ListByTeacher(_ context.Context, teacherID string) ([]repository.DeckSummary, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	result := []repository.DeckSummary{}
	for _, d := range m.decks {
		if d.TeacherID != teacherID {
			continue
		}
		result = append(result, repository.DeckSummary{Deck: *d, CardCount: len(m.cards[d.ID])})
	}
	sort.Slice(result, func(i, j int) bool { return result[i].Slug < result[j].Slug })
	return result, nil
}

func (m *mockStore) Update(_ context.Context, deck *model.Deck) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	existing, ok := m.decks[deck.ID]
	if !ok {
		return apperror.NotFound("deck", deck.ID)
	}
	existing.Title = deck.Title
	existing.ExamBoard = deck.ExamBoard
	existing.YearGroup = deck.YearGroup
	existing.TargetGrade = deck.TargetGrade
	existing.IsPublic = deck.IsPublic
	existing.UpdatedAt = time.Now()
	return nil
}

func (m *mockStore) Delete(_ context.Context, id string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if _, ok := m.decks[id]; !ok {
		return apperror.NotFound("deck", id)
	}
	delete(m.decks, id)
	delete(m.cards, id)
	return nil
}

func (m *mockStore) CardsByDeck(_ context.Context, deckID string) ([]model.Card, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	return append([]model.Card{}, m.cards[deckID]...), nil
}

func (m *mockStore) ReplaceCards(_ context.Context, deckID string, cards []model.Card) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if _, ok := m.decks[deckID]; !ok {
		return apperror.NotFound("deck", deckID)
	}
	withIDs := make([]model.Card, len(cards))
	for i, c := range cards {
		c.ID = m.id()
		c.DeckID = deckID
		withIDs[i] = c
	}
	m.cards[deckID] = withIDs
	m.decks[deckID].UpdatedAt = time.Now()
	return nil
}

// slugify is a deliberately crude stand-in for the real slug package —
// good enough for the simple ASCII titles these tests use.
func slugify(title string) string {
	out := make([]rune, 0, len(title))
	for _, r := range title {
		switch {
		case r >= 'a' && r <= 'z' || r >= '0' && r <= '9':
			out = append(out, r)
		case r >= 'A' && r <= 'Z':
			out = append(out, r+('a'-'A'))
		default:
			if len(out) > 0 && out[len(out)-1] != '-' {
				out = append(out, '-')
			}
		}
	}
	return string(out)
}

// --- SessionRepository ---

func (m *mockStore) CreateSession(_ context.Context, session *model.Session) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	stored := *session
	m.sessions[session.Token] = &stored
	return nil
}

func (m *mockStore) GetSessionByToken(_ context.Context, token string) (*model.Session, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	s, ok := m.sessions[token]
	if !ok {
		return nil, apperror.NotFound("session", token)
	}
	result := *s
	return &result, nil
}

func (m *mockStore) DeleteSession(_ context.Context, token string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	delete(m.sessions, token) // idempotent, like the real thing
	return nil
}

// --- ResetTokenRepository ---

func (m *mockStore) CreateResetToken(_ context.Context, token *model.PasswordResetToken) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	stored := *token
	m.resets[token.Token] = &stored
	return nil
}

func (m *mockStore) ConsumeResetToken(_ context.Context, token string, now time.Time) (*model.PasswordResetToken, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	t, ok := m.resets[token]
	if !ok || t.UsedAt != nil || !now.Before(t.ExpiresAt) {
		return nil, apperror.NotFound("reset token", token)
	}
	used := now
	t.UsedAt = &used
	result := *t
	return &result, nil
}

// Compile-time checks: the mock satisfies every interface the services
// consume, just like sqlite.DB.
var (
	_ repository.TeacherRepository    = (*mockStore)(nil)
	_ repository.SubjectRepository    = (*mockStore)(nil)
	_ repository.DeckRepository       = (*mockStore)(nil)
	_ repository.SessionRepository    = (*mockStore)(nil)
	_ repository.ResetTokenRepository = (*mockStore)(nil)
)

// =========================================================================
// MOCK MAILER
// =========================================================================

// mockMailer records sends instead of delivering them, and can be told to
// fail to exercise the fire-and-forget paths.
type mockMailer struct {
	mu            sync.Mutex
	verifications []string // "email:token"
	resets        []string // "email:token"
	failSends     bool
}

func (m *mockMailer) SendVerification(_ context.Context, toEmail, _, token string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.failSends {
		return fmt.Errorf("smtp unavailable")
	}
	m.verifications = append(m.verifications, toEmail+":"+token)
	return nil
}

func (m *mockMailer) SendPasswordReset(_ context.Context, toEmail, _, token string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.failSends {
		return fmt.Errorf("smtp unavailable")
	}
	m.resets = append(m.resets, toEmail+":"+token)
	return nil
}

// testLogger only surfaces errors so test output stays readable.
func testLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(os.Stderr, &slog.HandlerOptions{Level: slog.LevelError}))
}
