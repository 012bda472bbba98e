package handler

import (
	"log/slog"
	"net/http"
	"time"

	"github.com/sakif/deckshare/internal/auth"
	"github.com/sakif/deckshare/internal/model"
	"github.com/sakif/deckshare/internal/repository"
	"github.com/sakif/deckshare/internal/service"
)

// DeckHandler exposes the owner-facing deck CRUD endpoints.
//
// Identity always comes from the request context (set by the session
// middleware) and is passed to the service explicitly. The handler never
// trusts an owner field in a payload — there isn't one to trust.
type DeckHandler struct {
	decks  *service.DeckService
	logger *slog.Logger
}

// NewDeckHandler creates a DeckHandler.
func NewDeckHandler(decks *service.DeckService, logger *slog.Logger) *DeckHandler {
	return &DeckHandler{decks: decks, logger: logger}
}

// cardRequest is one card in a create/replace payload.
//
// The Order field is accepted and deliberately ignored: position in the
// array is the only order the server honors. Accepting the field keeps old
// clients that still send it from tripping the strict JSON decoder.
type cardRequest struct {
	Question string `json:"question"`
	Answer   string `json:"answer"`
	Order    int    `json:"order"`
}

type createDeckRequest struct {
	Title       string        `json:"title"`
	SubjectName string        `json:"subjectName"`
	ExamBoard   string        `json:"examBoard"`
	YearGroup   string        `json:"yearGroup"`
	TargetGrade string        `json:"targetGrade"`
	IsPublic    *bool         `json:"isPublic"` // nil means "not sent" → default true
	Cards       []cardRequest `json:"cards"`
}

type updateDeckRequest struct {
	Title       string `json:"title"`
	ExamBoard   string `json:"examBoard"`
	YearGroup   string `json:"yearGroup"`
	TargetGrade string `json:"targetGrade"`
	IsPublic    *bool  `json:"isPublic"`
}

type replaceCardsRequest struct {
	Cards []cardRequest `json:"cards"`
}

// deckSummaryResponse is one row in the deck list.
type deckSummaryResponse struct {
	ID          string    `json:"id"`
	Title       string    `json:"title"`
	Slug        string    `json:"slug"`
	SubjectID   string    `json:"subjectId"`
	ExamBoard   string    `json:"examBoard"`
	YearGroup   string    `json:"yearGroup"`
	TargetGrade string    `json:"targetGrade"`
	IsPublic    bool      `json:"isPublic"`
	CardCount   int       `json:"cardCount"`
	CreatedAt   time.Time `json:"createdAt"`
	UpdatedAt   time.Time `json:"updatedAt"`
}

/// deckDetailResponse is the full deck view: the deck plus resolved names
// and the ordered card set. The study endpoint reuses it.
type deckDetailResponse struct {
	model.Deck
	SubjectName string       `json:"subjectName"`
	TeacherName string       `json:"teacherName"`
	Cards       []model.Card `json:"cards"`
}

// HandleList returns the caller's decks.
//
// HTTP: GET /api/decks (behind OptionalSession)
//
// Anonymous callers get an empty list, not a 401 — the list is scoped to
// whoever is asking.
func (h *DeckHandler) HandleList(w http.ResponseWriter, r *http.Request) {
	teacherID, _ := auth.TeacherIDFromContext(r.Context())

	decks, err := h.decks.List(r.Context(), teacherID)
	if err != nil {
		writeError(w, err)
		return
	}

	writeJSON(w, http.StatusOK, toDeckSummaries(decks))
}

// HandleCreate creates a deck with its initial cards.
//
// HTTP: POST /api/decks (behind RequireSession)
// REQUEST BODY:
//
//	{
//	  "title": "Algebra Basics",
//	  "subjectName": "Maths",
//	  "examBoard": "AQA",
//	  "cards": [{"question": "...", "answer": "..."}, ...]
//	}
//
// Visibility defaults to public when isPublic is omitted.
func (h *DeckHandler) HandleCreate(w http.ResponseWriter, r *http.Request) {
	teacherID, _ := auth.TeacherIDFromContext(r.Context())

	var req createDeckRequest
	if err := decodeJSON(r, &req); err != nil {
		writeError(w, err)
		return
	}

	isPublic := true
	if req.IsPublic != nil {
		isPublic = *req.IsPublic
	}

	detail, err := h.decks.Create(r.Context(), teacherID, service.CreateDeckInput{
		Title:       req.Title,
		SubjectName: req.SubjectName,
		ExamBoard:   req.ExamBoard,
		YearGroup:   req.YearGroup,
		TargetGrade: req.TargetGrade,
		IsPublic:    isPublic,
		Cards:       toCardInputs(req.Cards),
	})
	if err != nil {
		writeError(w, err)
		return
	}

	writeJSON(w, http.StatusCreated, toDeckDetail(detail))
}

// HandleGet returns the owner's full view of one deck.
//
// HTTP: GET /api/decks/{slug} (behind RequireSession)
func (h *DeckHandler) HandleGet(w http.ResponseWriter, r *http.Request) {
	teacherID, _ := auth.TeacherIDFromContext(r.Context())

	detail, err := h.decks.Get(r.Context(), teacherID, r.PathValue("slug"))
	if err != nil {
		writeError(w, err)
		return
	}

	writeJSON(w, http.StatusOK, toDeckDetail(detail))
}

// HandleUpdate applies title/metadata/visibility changes.
//
// HTTP: PUT /api/decks/{slug} (behind RequireSession)
//
// The slug in the URL is the deck's permanent identity — retitling never
// changes it.
func (h *DeckHandler) HandleUpdate(w http.ResponseWriter, r *http.Request) {
	teacherID, _ := auth.TeacherIDFromContext(r.Context())

	var req updateDeckRequest
	if err := decodeJSON(r, &req); err != nil {
		writeError(w, err)
		return
	}

	detail, err := h.decks.Update(r.Context(), teacherID, r.PathValue("slug"), service.UpdateDeckInput{
		Title:       req.Title,
		ExamBoard:   req.ExamBoard,
		YearGroup:   req.YearGroup,
		TargetGrade: req.TargetGrade,
		IsPublic:    req.IsPublic,
	})
	if err != nil {
		writeError(w, err)
		return
	}

	writeJSON(w, http.StatusOK, toDeckDetail(detail))
}

// HandleDelete removes a deck and all its cards.
//
// HTTP: DELETE /api/decks/{slug} (behind RequireSession)
func (h *DeckHandler) HandleDelete(w http.ResponseWriter, r *http.Request) {
	teacherID, _ := auth.TeacherIDFromContext(r.Context())

	if err := h.decks.Delete(r.Context(), teacherID, r.PathValue("slug")); err != nil {
		writeError(w, err)
		return
	}

	w.WriteHeader(http.StatusNoContent)
}

// HandleReplaceCards swaps a deck's entire card set.
//
// HTTP: PUT /api/decks/{slug}/cards (behind RequireSession)
// REQUEST BODY: {"cards": [{"question": "...", "answer": "..."}, ...]}
//
// This is the only card mutation there is — no per-card PATCH. The new
// set's order is its array order; an empty array empties the deck.
func (h *DeckHandler) HandleReplaceCards(w http.ResponseWriter, r *http.Request) {
	teacherID, _ := auth.TeacherIDFromContext(r.Context())

	var req replaceCardsRequest
	if err := decodeJSON(r, &req); err != nil {
		writeError(w, err)
		return
	}

	detail, err := h.decks.ReplaceCards(r.Context(), teacherID, r.PathValue("slug"), toCardInputs(req.Cards))
	if err != nil {
		writeError(w, err)
		return
	}

	writeJSON(w, http.StatusOK, toDeckDetail(detail))
}

func toCardInputs(cards []cardRequest) []service.CardInput {
	inputs := make([]service.CardInput, len(cards))
	for i, c := range cards {
		inputs[i] = service.CardInput{Question: c.Question, Answer: c.Answer}
	}
	return inputs
}

func toDeckSummaries(decks []repository.DeckSummary) []deckSummaryResponse {
	out := make([]deckSummaryResponse, len(decks))
	for i, d := range decks {
		out[i] = deckSummaryResponse{
			ID:          d.ID,
			Title:       d.Title,
			Slug:        d.Slug,
			SubjectID:   d.SubjectID,
			ExamBoard:   d.ExamBoard,
			YearGroup:   d.YearGroup,
			TargetGrade: d.TargetGrade,
			IsPublic:    d.IsPublic,
			CardCount:   d.CardCount,
			CreatedAt:   d.CreatedAt,
			UpdatedAt:   d.UpdatedAt,
		}
	}
	return out
}

func toDeckDetail(detail *service.DeckDetail) deckDetailResponse {
	return deckDetailResponse{
		Deck:        detail.Deck,
		SubjectName: detail.SubjectName,
		TeacherName: detail.TeacherName,
		Cards:       detail.Cards,
	}
}
