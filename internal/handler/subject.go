package handler

import (
	"log/slog"
	"net/http"
	"time"

	"github.com/sakif/deckshare/internal/auth"
	"github.com/sakif/deckshare/internal/repository"
	"github.com/sakif/deckshare/internal/service"
)

// SubjectHandler exposes the subject endpoints. Small surface: subjects
// are mostly created implicitly through deck creation, so this is a list
// plus an explicit create.
type SubjectHandler struct {
	subjects *service.SubjectService
	logger   *slog.Logger
}

// NewSubjectHandler creates a SubjectHandler.
func NewSubjectHandler(subjects *service.SubjectService, logger *slog.Logger) *SubjectHandler {
	return &SubjectHandler{subjects: subjects, logger: logger}
}

type createSubjectRequest struct {
	Name string `json:"name"`
}

type subjectSummaryResponse struct {
	ID        string    `json:"id"`
	Name      string    `json:"name"`
	DeckCount int       `json:"deckCount"`
	CreatedAt time.Time `json:"createdAt"`
}

// HandleList returns the caller's subjects with deck counts.
//
// HTTP: GET /api/subjects (behind OptionalSession)
//
// Anonymous callers get an empty list.
func (h *SubjectHandler) HandleList(w http.ResponseWriter, r *http.Request) {
	teacherID, _ := auth.TeacherIDFromContext(r.Context())

	subjects, err := h.subjects.List(r.Context(), teacherID)
	if err != nil {
		writeError(w, err)
		return
	}

	writeJSON(w, http.StatusOK, toSubjectSummaries(subjects))
}

// HandleCreate explicitly creates a subject.
//
// HTTP: POST /api/subjects (behind RequireSession)
// REQUEST BODY: {"name": "Physics"}
//
// A name the teacher already uses answers 409.
func (h *SubjectHandler) HandleCreate(w http.ResponseWriter, r *http.Request) {
	teacherID, _ := auth.TeacherIDFromContext(r.Context())

	var req createSubjectRequest
	if err := decodeJSON(r, &req); err != nil {
		writeError(w, err)
		return
	}

	subject, err := h.subjects.Create(r.Context(), teacherID, req.Name)
	if err != nil {
		writeError(w, err)
		return
	}

	writeJSON(w, http.StatusCreated, subject)
}

func toSubjectSummaries(subjects []repository.SubjectSummary) []subjectSummaryResponse {
	out := make([]subjectSummaryResponse, len(subjects))
	for i, s := range subjects {
		out[i] = subjectSummaryResponse{
			ID:        s.ID,
			Name:      s.Name,
			DeckCount: s.DeckCount,
			CreatedAt: s.CreatedAt,
		}
	}
	return out
}
