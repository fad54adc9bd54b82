package handlers

import (
	"context"
	"net/http"
	"strconv"

	"github.com/pharmacie-web/backend/internal/application/services"
	"github.com/pharmacie-web/backend/internal/domain/entities"
)

// CatalogService defines the read operations over services, the team and quizzes
type CatalogService interface {
	ListServices(ctx context.Context) ([]entities.AppointmentService, error)
	AvailablePharmacists(ctx context.Context, serviceID string) ([]entities.Pharmacist, error)
	ListQuizzes(ctx context.Context, filter services.QuizFilter) ([]entities.Quiz, error)
	FeaturedQuizzes(ctx context.Context) ([]entities.Quiz, error)
	PopularQuizzes(ctx context.Context, limit int) ([]entities.Quiz, error)
	GetQuizBySlug(ctx context.Context, slug string) (*entities.Quiz, error)
	Categories(ctx context.Context) ([]services.CategorySummary, error)
}

// CatalogHandler handles catalog requests
type CatalogHandler struct {
	catalog CatalogService
}

// NewCatalogHandler creates a new catalog handler
func NewCatalogHandler(catalog CatalogService) *CatalogHandler {
	return &CatalogHandler{catalog: catalog}
}

// ListServices handles GET /api/services
func (h *CatalogHandler) ListServices(w http.ResponseWriter, r *http.Request) {
	list, err := h.catalog.ListServices(r.Context())
	if err != nil {
		respondWithAppError(w, err)
		return
	}
	respondWithJSON(w, http.StatusOK, map[string]interface{}{
		"services": list,
		"count":    len(list),
	})
}

// ListPharmacists handles GET /api/services/{id}/pharmacists
func (h *CatalogHandler) ListPharmacists(w http.ResponseWriter, r *http.Request) {
	list, err := h.catalog.AvailablePharmacists(r.Context(), r.PathValue("id"))
	if err != nil {
		respondWithAppError(w, err)
		return
	}
	respondWithJSON(w, http.StatusOK, map[string]interface{}{
		"pharmacists": list,
		"count":       len(list),
	})
}

// ListQuizzes handles GET /api/quizzes?category=&difficulty=&max_minutes=&q=
func (h *CatalogHandler) ListQuizzes(w http.ResponseWriter, r *http.Request) {
	query := r.URL.Query()
	filter := services.QuizFilter{
		Category:   query.Get("category"),
		Difficulty: entities.Difficulty(query.Get("difficulty")),
		Query:      query.Get("q"),
	}
	var ok bool
	if filter.MaxMinutes, ok = intParam(w, query.Get("max_minutes"), "max_minutes"); !ok {
		return
	}

	list, err := h.catalog.ListQuizzes(r.Context(), filter)
	if err != nil {
		respondWithAppError(w, err)
		return
	}
	respondWithJSON(w, http.StatusOK, map[string]interface{}{
		"quizzes": list,
		"count":   len(list),
	})
}

// FeaturedQuizzes handles GET /api/quizzes/featured
func (h *CatalogHandler) FeaturedQuizzes(w http.ResponseWriter, r *http.Request) {
	list, err := h.catalog.FeaturedQuizzes(r.Context())
	if err != nil {
		respondWithAppError(w, err)
		return
	}
	respondWithJSON(w, http.StatusOK, map[string]interface{}{
		"quizzes": list,
		"count":   len(list),
	})
}

// PopularQuizzes handles GET /api/quizzes/popular?limit=
func (h *CatalogHandler) PopularQuizzes(w http.ResponseWriter, r *http.Request) {
	limit, ok := intParam(w, r.URL.Query().Get("limit"), "limit")
	if !ok {
		return
	}
	list, err := h.catalog.PopularQuizzes(r.Context(), limit)
	if err != nil {
		respondWithAppError(w, err)
		return
	}
	respondWithJSON(w, http.StatusOK, map[string]interface{}{
		"quizzes": list,
		"count":   len(list),
	})
}

// GetQuiz handles GET /api/quizzes/{slug}
func (h *CatalogHandler) GetQuiz(w http.ResponseWriter, r *http.Request) {
	quiz, err := h.catalog.GetQuizBySlug(r.Context(), r.PathValue("slug"))
	if err != nil {
		respondWithAppError(w, err)
		return
	}
	respondWithJSON(w, http.StatusOK, quiz)
}

// ListCategories handles GET /api/quiz-categories
func (h *CatalogHandler) ListCategories(w http.ResponseWriter, r *http.Request) {
	list, err := h.catalog.Categories(r.Context())
	if err != nil {
		respondWithAppError(w, err)
		return
	}
	respondWithJSON(w, http.StatusOK, map[string]interface{}{
		"categories": list,
	})
}

// intParam parses an optional non-negative integer query parameter. It writes
// the 400 response itself and returns false on bad input.
func intParam(w http.ResponseWriter, raw, name string) (int, bool) {
	if raw == "" {
		return 0, true
	}
	n, err := strconv.Atoi(raw)
	if err != nil || n < 0 {
		respondWithError(w, http.StatusBadRequest, "invalid "+name+" parameter")
		return 0, false
	}
	return n, true
}
