package services

import (
	"context"
	"fmt"
	"time"

	"github.com/pharmacie-web/backend/internal/domain/entities"
	"github.com/pharmacie-web/backend/internal/domain/providers"
	"github.com/pharmacie-web/backend/internal/domain/repositories"
	apperrors "github.com/pharmacie-web/backend/pkg/errors"
)

// SchedulingService resolves the slots a pharmacist can offer for a service
// and looks up stored appointments
type SchedulingService struct {
	catalog  *CatalogService
	provider providers.SlotProvider
	repo     repositories.AppointmentRepository
}

// NewSchedulingService creates a new scheduling service. repo may be nil
// when appointments are not persisted.
func NewSchedulingService(
	catalog *CatalogService,
	provider providers.SlotProvider,
	repo repositories.AppointmentRepository,
) *SchedulingService {
	return &SchedulingService{
		catalog:  catalog,
		provider: provider,
		repo:     repo,
	}
}

// GetAvailableSlots returns the available slots of a pharmacist on date.
// Slots are recomputed on every call.
func (s *SchedulingService) GetAvailableSlots(ctx context.Context, pharmacistID, serviceID string, date time.Time) ([]entities.TimeSlot, error) {
	service, err := s.catalog.GetService(ctx, serviceID)
	if err != nil {
		return nil, err
	}
	pharmacist, err := s.catalog.GetPharmacist(ctx, pharmacistID)
	if err != nil {
		return nil, err
	}
	if !s.catalog.CanProvide(*service, *pharmacist) {
		return nil, apperrors.NewValidationError(fmt.Sprintf("pharmacist %s does not provide service %s", pharmacistID, serviceID))
	}

	slots, err := s.provider.GetAvailableSlots(ctx, pharmacistID, serviceID, date)
	if err != nil {
		return nil, apperrors.NewExternalError("failed to fetch availability", err)
	}
	if slots == nil {
		slots = []entities.TimeSlot{}
	}
	return slots, nil
}

// GetAppointment returns a stored appointment
func (s *SchedulingService) GetAppointment(ctx context.Context, id string) (*entities.Appointment, error) {
	if s.repo == nil {
		return nil, apperrors.NewNotFoundError(fmt.Sprintf("appointment with id %s not found", id))
	}
	return s.repo.GetByID(ctx, id)
}

// ListAppointments returns the stored appointments of a pharmacist
func (s *SchedulingService) ListAppointments(ctx context.Context, pharmacistID string, filter repositories.AppointmentFilter) ([]*entities.Appointment, error) {
	if _, err := s.catalog.GetPharmacist(ctx, pharmacistID); err != nil {
		return nil, err
	}
	if s.repo == nil {
		return []*entities.Appointment{}, nil
	}
	return s.repo.ListByPharmacist(ctx, pharmacistID, filter)
}
