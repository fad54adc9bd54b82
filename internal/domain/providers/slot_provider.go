package providers

import (
	"context"
	"time"

	"github.com/pharmacie-web/backend/internal/domain/entities"
)

// SlotProvider computes the bookable slots of a pharmacist for one day.
// Slots are recomputed on every call; availability is a snapshot.
type SlotProvider interface {
	GetAvailableSlots(ctx context.Context, pharmacistID, serviceID string, date time.Time) ([]entities.TimeSlot, error)

	// LookupSlot resolves a slot from its day (YYYY-MM-DD) and start time
	// (HH:MM). Unknown slots fail with a validation error, booked ones with
	// a conflict.
	LookupSlot(ctx context.Context, pharmacistID, date, startTime string) (*entities.TimeSlot, error)
}
