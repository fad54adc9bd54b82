package handlers

import (
	"context"
	"net/http"

	"github.com/pharmacie-web/backend/internal/application/services"
	"github.com/pharmacie-web/backend/internal/infrastructure/observability"
)

// QuizSessions defines the operations of quiz sessions
type QuizSessions interface {
	Start(ctx context.Context, slug string) (*services.QuizView, error)
	Get(ctx context.Context, id string) (*services.QuizView, error)
	SetAnswer(ctx context.Context, id, questionID, value string) (*services.QuizView, error)
	Next(ctx context.Context, id string) (*services.QuizView, error)
	Previous(ctx context.Context, id string) (*services.QuizView, error)
	GoTo(ctx context.Context, id string, index int) (*services.QuizView, error)
	Complete(ctx context.Context, id string) (*services.QuizView, error)
	Reset(ctx context.Context, id string) (*services.QuizView, error)
	Close(ctx context.Context, id string) error
}

// QuizHandler handles quiz session requests
type QuizHandler struct {
	sessions QuizSessions
}

// NewQuizHandler creates a new quiz handler
func NewQuizHandler(sessions QuizSessions) *QuizHandler {
	return &QuizHandler{sessions: sessions}
}

// Create handles POST /api/quiz-sessions
func (h *QuizHandler) Create(w http.ResponseWriter, r *http.Request) {
	var req struct {
		Slug string `json:"slug"`
	}
	if err := decodeJSON(r, &req); err != nil {
		respondWithAppError(w, err)
		return
	}
	if req.Slug == "" {
		respondWithError(w, http.StatusBadRequest, "slug is required")
		return
	}

	view, err := h.sessions.Start(r.Context(), req.Slug)
	if err != nil {
		respondWithAppError(w, err)
		return
	}
	observability.AnnotateSession(r.Context(), quizSessionLog, view.ID)
	respondWithJSON(w, http.StatusCreated, view)
}

// Get handles GET /api/quiz-sessions/{id}
func (h *QuizHandler) Get(w http.ResponseWriter, r *http.Request) {
	h.respond(w, func() (*services.QuizView, error) {
		return h.sessions.Get(r.Context(), sessionID(r, quizSessionLog))
	})
}

// SetAnswer handles PUT /api/quiz-sessions/{id}/answers/{questionId}
func (h *QuizHandler) SetAnswer(w http.ResponseWriter, r *http.Request) {
	var req struct {
		Value string `json:"value"`
	}
	if err := decodeJSON(r, &req); err != nil {
		respondWithAppError(w, err)
		return
	}
	h.respond(w, func() (*services.QuizView, error) {
		return h.sessions.SetAnswer(r.Context(), sessionID(r, quizSessionLog), r.PathValue("questionId"), req.Value)
	})
}

// Next handles POST /api/quiz-sessions/{id}/next
func (h *QuizHandler) Next(w http.ResponseWriter, r *http.Request) {
	h.respond(w, func() (*services.QuizView, error) {
		return h.sessions.Next(r.Context(), sessionID(r, quizSessionLog))
	})
}

// Previous handles POST /api/quiz-sessions/{id}/previous
func (h *QuizHandler) Previous(w http.ResponseWriter, r *http.Request) {
	h.respond(w, func() (*services.QuizView, error) {
		return h.sessions.Previous(r.Context(), sessionID(r, quizSessionLog))
	})
}

// GoTo handles POST /api/quiz-sessions/{id}/goto
func (h *QuizHandler) GoTo(w http.ResponseWriter, r *http.Request) {
	var req struct {
		Index *int `json:"index"`
	}
	if err := decodeJSON(r, &req); err != nil {
		respondWithAppError(w, err)
		return
	}
	if req.Index == nil {
		respondWithError(w, http.StatusBadRequest, "index is required")
		return
	}
	h.respond(w, func() (*services.QuizView, error) {
		return h.sessions.GoTo(r.Context(), sessionID(r, quizSessionLog), *req.Index)
	})
}

// Complete handles POST /api/quiz-sessions/{id}/complete
func (h *QuizHandler) Complete(w http.ResponseWriter, r *http.Request) {
	h.respond(w, func() (*services.QuizView, error) {
		return h.sessions.Complete(r.Context(), sessionID(r, quizSessionLog))
	})
}

// Reset handles POST /api/quiz-sessions/{id}/reset
func (h *QuizHandler) Reset(w http.ResponseWriter, r *http.Request) {
	h.respond(w, func() (*services.QuizView, error) {
		return h.sessions.Reset(r.Context(), sessionID(r, quizSessionLog))
	})
}

// Delete handles DELETE /api/quiz-sessions/{id}
func (h *QuizHandler) Delete(w http.ResponseWriter, r *http.Request) {
	if err := h.sessions.Close(r.Context(), sessionID(r, quizSessionLog)); err != nil {
		respondWithAppError(w, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

func (h *QuizHandler) respond(w http.ResponseWriter, fn func() (*services.QuizView, error)) {
	view, err := fn()
	if err != nil {
		respondWithAppError(w, err)
		return
	}
	respondWithJSON(w, http.StatusOK, view)
}
