package repositories

import (
	"context"

	"github.com/pharmacie-web/backend/internal/domain/entities"
)

// AppointmentRepository defines the interface for appointment data operations
type AppointmentRepository interface {
	// Create stores a new appointment. Booking an already booked slot is a CONFLICT error.
	Create(ctx context.Context, appointment *entities.Appointment) error

	// GetByID retrieves an appointment by ID
	GetByID(ctx context.Context, id string) (*entities.Appointment, error)

	// ListByPharmacist retrieves appointments of a pharmacist
	ListByPharmacist(ctx context.Context, pharmacistID string, filter AppointmentFilter) ([]*entities.Appointment, error)

	// BookedSlotIDs returns the ids of the non-cancelled slots booked for a pharmacist on date (2006-01-02)
	BookedSlotIDs(ctx context.Context, pharmacistID, date string) (map[string]struct{}, error)
}

// AppointmentFilter defines filters for listing appointments
type AppointmentFilter struct {
	Status entities.AppointmentStatus
	// Date restricts the listing to one day, formatted 2006-01-02
	Date   string
	Limit  int
	Offset int
}
