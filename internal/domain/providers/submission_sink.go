package providers

import (
	"context"

	"github.com/pharmacie-web/backend/internal/domain/entities"
)

// SubmissionSink receives confirmed booking requests (simulated delay, database, remote API...)
type SubmissionSink interface {
	// SubmitAppointment hands the appointment over. A nil error means it was accepted.
	SubmitAppointment(ctx context.Context, appointment *entities.Appointment) error
}
