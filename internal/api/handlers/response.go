package handlers

import (
	"encoding/json"
	"errors"
	"net/http"

	"github.com/pharmacie-web/backend/internal/infrastructure/observability"
	apperrors "github.com/pharmacie-web/backend/pkg/errors"
	"github.com/rs/zerolog/log"
)

// Session kinds tagged on request logs
const (
	bookingSessionLog = "booking"
	quizSessionLog    = "quiz"
)

// sessionID returns the {id} path value and tags the request log with it
func sessionID(r *http.Request, kind string) string {
	id := r.PathValue("id")
	observability.AnnotateSession(r.Context(), kind, id)
	return id
}

// errorResponse is the body of every failed request
type errorResponse struct {
	Error string `json:"error"`
}

func respondWithJSON(w http.ResponseWriter, statusCode int, payload interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(statusCode)
	if err := json.NewEncoder(w).Encode(payload); err != nil {
		log.Error().Err(err).Msg("Failed to encode response")
	}
}

func respondWithError(w http.ResponseWriter, statusCode int, message string) {
	respondWithJSON(w, statusCode, errorResponse{Error: message})
}

// statusFor maps an error to the HTTP status of its AppError type
func statusFor(err error) int {
	switch apperrors.TypeOf(err) {
	case apperrors.ErrorTypeNotFound:
		return http.StatusNotFound
	case apperrors.ErrorTypeValidation:
		return http.StatusBadRequest
	case apperrors.ErrorTypeConflict:
		return http.StatusConflict
	case apperrors.ErrorTypeExternal:
		return http.StatusBadGateway
	default:
		return http.StatusInternalServerError
	}
}

// errorMessage hides internal details and keeps AppError messages
func errorMessage(err error) string {
	var appErr *apperrors.AppError
	if !errors.As(err, &appErr) || appErr.Type == apperrors.ErrorTypeInternal {
		return "internal server error"
	}
	return appErr.Message
}

func respondWithAppError(w http.ResponseWriter, err error) {
	status := statusFor(err)
	if status == http.StatusInternalServerError {
		log.Error().Err(err).Msg("Request failed")
	}
	respondWithError(w, status, errorMessage(err))
}

func decodeJSON(r *http.Request, dst interface{}) error {
	if err := json.NewDecoder(r.Body).Decode(dst); err != nil {
		return apperrors.NewValidationError("invalid request payload")
	}
	return nil
}
