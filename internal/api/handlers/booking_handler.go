package handlers

import (
	"context"
	"net/http"
	"reflect"
	"regexp"
	"strings"

	"github.com/go-playground/validator/v10"
	"github.com/pharmacie-web/backend/internal/application/services"
	"github.com/pharmacie-web/backend/internal/domain/entities"
	"github.com/pharmacie-web/backend/internal/infrastructure/observability"
)

// BookingSessions defines the operations of the booking wizard sessions
type BookingSessions interface {
	Start(ctx context.Context) *services.BookingSession
	Get(ctx context.Context, id string) (*services.BookingSession, error)
	SelectService(ctx context.Context, id, serviceID string) (*services.BookingSession, error)
	SelectPharmacist(ctx context.Context, id, pharmacistID string) (*services.BookingSession, error)
	SelectTimeSlot(ctx context.Context, id, date, startTime string) (*services.BookingSession, error)
	Advance(ctx context.Context, id string) (*services.BookingSession, error)
	GoBack(ctx context.Context, id string) (*services.BookingSession, error)
	SetCustomerInfo(ctx context.Context, id string, info entities.CustomerInfo) (*services.BookingSession, error)
	Submit(ctx context.Context, id string) (*services.BookingSession, error)
	Reset(ctx context.Context, id string) (*services.BookingSession, error)
	Close(ctx context.Context, id string) error
}

var frenchPhone = regexp.MustCompile(`^(\+33|0)[1-9]\d{8}$`)

// customerRequest is the contact form. Phone is checked without spaces.
type customerRequest struct {
	FirstName string `json:"first_name" validate:"required"`
	LastName  string `json:"last_name" validate:"required"`
	Email     string `json:"email" validate:"required,email"`
	Phone     string `json:"phone" validate:"required,frphone"`
	Notes     string `json:"notes" validate:"max=1000"`
}

// submitResponse carries the session alongside the error so clients can show BookingState.Error
type submitResponse struct {
	Error   string                   `json:"error"`
	Session *services.BookingSession `json:"session"`
}

// BookingHandler handles booking wizard requests
type BookingHandler struct {
	sessions BookingSessions
	validate *validator.Validate
}

// NewBookingHandler creates a new booking handler
func NewBookingHandler(sessions BookingSessions) *BookingHandler {
	v := validator.New(validator.WithRequiredStructEnabled())
	v.RegisterTagNameFunc(func(f reflect.StructField) string {
		return strings.SplitN(f.Tag.Get("json"), ",", 2)[0]
	})
	if err := v.RegisterValidation("frphone", func(fl validator.FieldLevel) bool {
		return frenchPhone.MatchString(strings.ReplaceAll(fl.Field().String(), " ", ""))
	}); err != nil {
		panic(err)
	}
	return &BookingHandler{
		sessions: sessions,
		validate: v,
	}
}

// Create handles POST /api/bookings
func (h *BookingHandler) Create(w http.ResponseWriter, r *http.Request) {
	session := h.sessions.Start(r.Context())
	observability.AnnotateSession(r.Context(), bookingSessionLog, session.ID)
	respondWithJSON(w, http.StatusCreated, session)
}

// Get handles GET /api/bookings/{id}
func (h *BookingHandler) Get(w http.ResponseWriter, r *http.Request) {
	h.respond(w, func() (*services.BookingSession, error) {
		return h.sessions.Get(r.Context(), sessionID(r, bookingSessionLog))
	})
}

// SelectService handles POST /api/bookings/{id}/service
func (h *BookingHandler) SelectService(w http.ResponseWriter, r *http.Request) {
	var req struct {
		ServiceID string `json:"service_id"`
	}
	if err := decodeJSON(r, &req); err != nil {
		respondWithAppError(w, err)
		return
	}
	if req.ServiceID == "" {
		respondWithError(w, http.StatusBadRequest, "service_id is required")
		return
	}
	h.respond(w, func() (*services.BookingSession, error) {
		return h.sessions.SelectService(r.Context(), sessionID(r, bookingSessionLog), req.ServiceID)
	})
}

// SelectPharmacist handles POST /api/bookings/{id}/pharmacist
func (h *BookingHandler) SelectPharmacist(w http.ResponseWriter, r *http.Request) {
	var req struct {
		PharmacistID string `json:"pharmacist_id"`
	}
	if err := decodeJSON(r, &req); err != nil {
		respondWithAppError(w, err)
		return
	}
	if req.PharmacistID == "" {
		respondWithError(w, http.StatusBadRequest, "pharmacist_id is required")
		return
	}
	h.respond(w, func() (*services.BookingSession, error) {
		return h.sessions.SelectPharmacist(r.Context(), sessionID(r, bookingSessionLog), req.PharmacistID)
	})
}

// SelectTimeSlot handles POST /api/bookings/{id}/slot
func (h *BookingHandler) SelectTimeSlot(w http.ResponseWriter, r *http.Request) {
	var req struct {
		Date      string `json:"date"`
		StartTime string `json:"start_time"`
	}
	if err := decodeJSON(r, &req); err != nil {
		respondWithAppError(w, err)
		return
	}
	if req.Date == "" || req.StartTime == "" {
		respondWithError(w, http.StatusBadRequest, "date and start_time are required")
		return
	}
	h.respond(w, func() (*services.BookingSession, error) {
		return h.sessions.SelectTimeSlot(r.Context(), sessionID(r, bookingSessionLog), req.Date, req.StartTime)
	})
}

// Advance handles POST /api/bookings/{id}/advance
func (h *BookingHandler) Advance(w http.ResponseWriter, r *http.Request) {
	h.respond(w, func() (*services.BookingSession, error) {
		return h.sessions.Advance(r.Context(), sessionID(r, bookingSessionLog))
	})
}

// GoBack handles POST /api/bookings/{id}/back
func (h *BookingHandler) GoBack(w http.ResponseWriter, r *http.Request) {
	h.respond(w, func() (*services.BookingSession, error) {
		return h.sessions.GoBack(r.Context(), sessionID(r, bookingSessionLog))
	})
}

// SetCustomerInfo handles PUT /api/bookings/{id}/customer
func (h *BookingHandler) SetCustomerInfo(w http.ResponseWriter, r *http.Request) {
	var req customerRequest
	if err := decodeJSON(r, &req); err != nil {
		respondWithAppError(w, err)
		return
	}
	if err := h.validate.Struct(req); err != nil {
		respondWithJSON(w, http.StatusUnprocessableEntity, map[string]interface{}{
			"error":  "invalid contact information",
			"fields": invalidFields(err),
		})
		return
	}

	info := entities.CustomerInfo{
		FirstName: strings.TrimSpace(req.FirstName),
		LastName:  strings.TrimSpace(req.LastName),
		Email:     strings.TrimSpace(req.Email),
		Phone:     strings.ReplaceAll(req.Phone, " ", ""),
		Notes:     req.Notes,
	}
	h.respond(w, func() (*services.BookingSession, error) {
		return h.sessions.SetCustomerInfo(r.Context(), sessionID(r, bookingSessionLog), info)
	})
}

// Submit handles POST /api/bookings/{id}/submit
func (h *BookingHandler) Submit(w http.ResponseWriter, r *http.Request) {
	session, err := h.sessions.Submit(r.Context(), sessionID(r, bookingSessionLog))
	if err != nil {
		if session == nil {
			respondWithAppError(w, err)
			return
		}
		respondWithJSON(w, statusFor(err), submitResponse{Error: errorMessage(err), Session: session})
		return
	}
	respondWithJSON(w, http.StatusOK, session)
}

// Reset handles POST /api/bookings/{id}/reset
func (h *BookingHandler) Reset(w http.ResponseWriter, r *http.Request) {
	h.respond(w, func() (*services.BookingSession, error) {
		return h.sessions.Reset(r.Context(), sessionID(r, bookingSessionLog))
	})
}

// Delete handles DELETE /api/bookings/{id}
func (h *BookingHandler) Delete(w http.ResponseWriter, r *http.Request) {
	if err := h.sessions.Close(r.Context(), sessionID(r, bookingSessionLog)); err != nil {
		respondWithAppError(w, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

func (h *BookingHandler) respond(w http.ResponseWriter, fn func() (*services.BookingSession, error)) {
	session, err := fn()
	if err != nil {
		respondWithAppError(w, err)
		return
	}
	respondWithJSON(w, http.StatusOK, session)
}

// invalidFields lists the json names of the fields that failed validation
func invalidFields(err error) map[string]string {
	out := map[string]string{}
	verrs, ok := err.(validator.ValidationErrors)
	if !ok {
		return out
	}
	for _, fe := range verrs {
		out[fe.Field()] = fe.Tag()
	}
	return out
}
