package handlers

import (
	"context"
	"net/http"
	"time"

	"github.com/pharmacie-web/backend/internal/domain/entities"
	"github.com/pharmacie-web/backend/internal/domain/repositories"
)

// AppointmentService defines slot availability and stored appointment lookups
type AppointmentService interface {
	GetAvailableSlots(ctx context.Context, pharmacistID, serviceID string, date time.Time) ([]entities.TimeSlot, error)
	GetAppointment(ctx context.Context, id string) (*entities.Appointment, error)
	ListAppointments(ctx context.Context, pharmacistID string, filter repositories.AppointmentFilter) ([]*entities.Appointment, error)
}

// AppointmentHandler handles availability and appointment requests
type AppointmentHandler struct {
	service AppointmentService
	now     func() time.Time
}

// NewAppointmentHandler creates a new appointment handler
func NewAppointmentHandler(service AppointmentService) *AppointmentHandler {
	return &AppointmentHandler{
		service: service,
		now:     time.Now,
	}
}

// GetAvailability handles GET /api/pharmacists/{id}/slots?service=&date=
// The date defaults to today.
func (h *AppointmentHandler) GetAvailability(w http.ResponseWriter, r *http.Request) {
	pharmacistID := r.PathValue("id")
	serviceID := r.URL.Query().Get("service")
	if serviceID == "" {
		respondWithError(w, http.StatusBadRequest, "service query parameter is required")
		return
	}

	date := h.now()
	if raw := r.URL.Query().Get("date"); raw != "" {
		parsed, err := time.Parse(time.DateOnly, raw)
		if err != nil {
			respondWithError(w, http.StatusBadRequest, "invalid date format (use YYYY-MM-DD)")
			return
		}
		date = parsed
	}

	slots, err := h.service.GetAvailableSlots(r.Context(), pharmacistID, serviceID, date)
	if err != nil {
		respondWithAppError(w, err)
		return
	}

	respondWithJSON(w, http.StatusOK, map[string]interface{}{
		"slots": slots,
		"date":  date.Format(time.DateOnly),
	})
}

// GetAppointment handles GET /api/appointments/{id}
func (h *AppointmentHandler) GetAppointment(w http.ResponseWriter, r *http.Request) {
	appointment, err := h.service.GetAppointment(r.Context(), r.PathValue("id"))
	if err != nil {
		respondWithAppError(w, err)
		return
	}
	respondWithJSON(w, http.StatusOK, appointment)
}

// ListAppointments handles GET /api/pharmacists/{id}/appointments?date=&status=&limit=&offset=
func (h *AppointmentHandler) ListAppointments(w http.ResponseWriter, r *http.Request) {
	query := r.URL.Query()
	filter := repositories.AppointmentFilter{
		Status: entities.AppointmentStatus(query.Get("status")),
		Date:   query.Get("date"),
	}
	if filter.Date != "" {
		if _, err := time.Parse(time.DateOnly, filter.Date); err != nil {
			respondWithError(w, http.StatusBadRequest, "invalid date format (use YYYY-MM-DD)")
			return
		}
	}
	var ok bool
	if filter.Limit, ok = intParam(w, query.Get("limit"), "limit"); !ok {
		return
	}
	if filter.Offset, ok = intParam(w, query.Get("offset"), "offset"); !ok {
		return
	}

	list, err := h.service.ListAppointments(r.Context(), r.PathValue("id"), filter)
	if err != nil {
		respondWithAppError(w, err)
		return
	}
	respondWithJSON(w, http.StatusOK, map[string]interface{}{
		"appointments": list,
		"count":        len(list),
	})
}
