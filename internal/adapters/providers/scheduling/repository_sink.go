package scheduling

import (
	"context"
	"time"

	"github.com/pharmacie-web/backend/internal/domain/entities"
	"github.com/pharmacie-web/backend/internal/domain/providers"
	"github.com/pharmacie-web/backend/internal/domain/repositories"
	"github.com/rs/zerolog/log"
)

// RepositorySink stores submitted appointments through an AppointmentRepository
type RepositorySink struct {
	repo repositories.AppointmentRepository
}

var _ providers.SubmissionSink = (*RepositorySink)(nil)

// NewRepositorySink creates a sink writing to repo
func NewRepositorySink(repo repositories.AppointmentRepository) *RepositorySink {
	return &RepositorySink{repo: repo}
}

// SubmitAppointment persists the appointment as pending. A slot that is
// already booked fails with a CONFLICT error from the repository.
func (s *RepositorySink) SubmitAppointment(ctx context.Context, appointment *entities.Appointment) error {
	stored := *appointment
	stored.Status = entities.AppointmentStatusPending
	if stored.CreatedAt.IsZero() {
		stored.CreatedAt = time.Now()
	}

	if err := s.repo.Create(ctx, &stored); err != nil {
		log.Warn().Err(err).
			Str("appointment_id", stored.ID).
			Str("time_slot_id", stored.TimeSlotID).
			Msg("Failed to store appointment")
		return err
	}

	log.Info().
		Str("appointment_id", stored.ID).
		Str("pharmacist_id", stored.PharmacistID).
		Str("time_slot_id", stored.TimeSlotID).
		Msg("Appointment stored")
	return nil
}
