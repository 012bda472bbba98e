package handler

import (
	"log/slog"
	"net/http"

	"github.com/sakif/deckshare/internal/service"
)

// StudyHandler serves the public, read-only study view of a deck.
//
// This is the student-facing side of the whole system: no account, no
// session, just a slug from a shared link. It is also the only route that
// can see a deck without owning it.
type StudyHandler struct {
	decks  *service.DeckService
	logger *slog.Logger
}

// NewStudyHandler creates a StudyHandler.
func NewStudyHandler(decks *service.DeckService, logger *slog.Logger) *StudyHandler {
	return &StudyHandler{decks: decks, logger: logger}
}

// HandleGet returns a public deck with its cards in study order.
//
// HTTP: GET /api/study/{slug} (no auth)
//
// A private deck and a nonexistent slug both answer the same 404 — the
// response never confirms that a hidden deck exists.
func (h *StudyHandler) HandleGet(w http.ResponseWriter, r *http.Request) {
	detail, err := h.decks.GetPublic(r.Context(), r.PathValue("slug"))
	if err != nil {
		writeError(w, err)
		return
	}

	writeJSON(w, http.StatusOK, toDeckDetail(detail))
}
