package services

import (
	"context"
	"errors"
	"strings"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/pharmacie-web/backend/internal/domain/entities"
	"github.com/pharmacie-web/backend/internal/domain/providers"
	apperrors "github.com/pharmacie-web/backend/pkg/errors"
)

// User-facing messages stored in BookingState.Error
const (
	MessageMissingInformation = "Informations manquantes pour confirmer le rendez-vous"
	MessageSubmissionFailed   = "Erreur lors de la prise de rendez-vous. Veuillez réessayer."
	MessageNotReady           = "Veuillez compléter les étapes précédentes avant de confirmer"
)

var (
	// ErrSubmissionInProgress is returned while a submission is awaiting the sink
	ErrSubmissionInProgress = apperrors.NewConflictError("submission already in progress")

	// ErrSubmissionSuperseded is returned when the flow was reset during the submission
	ErrSubmissionSuperseded = apperrors.NewConflictError("booking was reset while the submission was in flight")

	// ErrBookingConfirmed is returned for any change after confirmation; only Reset is allowed
	ErrBookingConfirmed = apperrors.NewConflictError("booking is already confirmed")

	// ErrPharmacistRequired is returned when a slot is chosen before a pharmacist
	ErrPharmacistRequired = apperrors.NewValidationError("select a pharmacist before choosing a time slot")

	// ErrMissingInformation is returned by Submit when service, slot or email is missing
	ErrMissingInformation = apperrors.NewValidationError("missing information")
)

// BookingFlowOption configures a BookingFlow
type BookingFlowOption func(*BookingFlow)

// WithBookingClock overrides the clock used to stamp appointments
func WithBookingClock(now func() time.Time) BookingFlowOption {
	return func(f *BookingFlow) { f.now = now }
}

// WithAppointmentIDs overrides the appointment id generator
func WithAppointmentIDs(next func() string) BookingFlowOption {
	return func(f *BookingFlow) { f.newID = next }
}

// BookingFlow is the four-step appointment wizard of one session:
// service selection, slot selection, contact details, confirmation.
//
// It is safe for concurrent use. The lock is released while the sink
// handles a submission, so Reset can run meanwhile; the late result is
// then discarded.
type BookingFlow struct {
	mu         sync.Mutex
	state      entities.BookingState
	generation uint64

	sink  providers.SubmissionSink
	now   func() time.Time
	newID func() string
}

// NewBookingFlow creates a flow in its initial state
func NewBookingFlow(sink providers.SubmissionSink, opts ...BookingFlowOption) *BookingFlow {
	return RestoreBookingFlow(entities.NewBookingState(), sink, opts...)
}

// RestoreBookingFlow recreates a flow from a snapshot. A submission that was
// in flight when the snapshot was taken is considered lost.
func RestoreBookingFlow(state entities.BookingState, sink providers.SubmissionSink, opts ...BookingFlowOption) *BookingFlow {
	f := &BookingFlow{
		state: state.Clone(),
		sink:  sink,
		now:   time.Now,
		newID: func() string { return uuid.New().String() },
	}
	if !f.state.CurrentStep.Valid() {
		f.state.CurrentStep = entities.StepServiceSelection
	}
	f.state.IsLoading = false
	for _, opt := range opts {
		opt(f)
	}
	return f
}

// State returns a copy of the current state
func (f *BookingFlow) State() entities.BookingState {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.state.Clone()
}

// SelectService sets the service and clears the pharmacist and slot, even
// when the same service is selected again. The step does not change.
func (f *BookingFlow) SelectService(service entities.AppointmentService) error {
	f.mu.Lock()
	defer f.mu.Unlock()

	if err := f.checkMutable(); err != nil {
		return err
	}
	f.state.SelectedService = &service
	f.state.SelectedPharmacist = nil
	f.state.SelectedTimeSlot = nil
	return nil
}

// SelectPharmacist sets the pharmacist and clears the slot
func (f *BookingFlow) SelectPharmacist(pharmacist entities.Pharmacist) error {
	f.mu.Lock()
	defer f.mu.Unlock()

	if err := f.checkMutable(); err != nil {
		return err
	}
	svc := f.state.SelectedService
	if svc == nil {
		return apperrors.NewValidationError("select a service before choosing a pharmacist")
	}
	if svc.PharmacistID != "" && svc.PharmacistID != pharmacist.ID {
		return apperrors.NewValidationError("service " + svc.ID + " is only provided by " + svc.PharmacistID)
	}

	pharmacist.Specialties = append([]string(nil), pharmacist.Specialties...)
	f.state.SelectedPharmacist = &pharmacist
	f.state.SelectedTimeSlot = nil
	return nil
}

// SelectTimeSlot sets the slot. It must belong to the selected pharmacist and be available.
func (f *BookingFlow) SelectTimeSlot(slot entities.TimeSlot) error {
	f.mu.Lock()
	defer f.mu.Unlock()

	if err := f.checkMutable(); err != nil {
		return err
	}
	p := f.state.SelectedPharmacist
	if p == nil {
		return ErrPharmacistRequired
	}
	if slot.PharmacistID != p.ID {
		return apperrors.NewValidationError("time slot " + slot.ID + " does not belong to " + p.ID)
	}
	if !slot.IsAvailable {
		return apperrors.NewValidationError("time slot " + slot.ID + " is not available")
	}

	f.state.SelectedTimeSlot = &slot
	return nil
}

// Advance moves to the next step: 1→2 needs a service, 2→3 needs a slot.
// Leaving the contact step is only possible through Submit.
func (f *BookingFlow) Advance() error {
	f.mu.Lock()
	defer f.mu.Unlock()

	if err := f.checkMutable(); err != nil {
		return err
	}
	switch f.state.CurrentStep {
	case entities.StepServiceSelection:
		if f.state.SelectedService == nil {
			return apperrors.NewValidationError("a service must be selected to continue")
		}
	case entities.StepSlotSelection:
		if f.state.SelectedTimeSlot == nil {
			return apperrors.NewValidationError("a time slot must be selected to continue")
		}
	default:
		return apperrors.NewConflictError("cannot advance from step " + f.state.CurrentStep.String() + "; submit the booking instead")
	}
	f.state.CurrentStep++
	return nil
}

// GoBack moves one step back from the slot or contact step. Selections are kept.
func (f *BookingFlow) GoBack() error {
	f.mu.Lock()
	defer f.mu.Unlock()

	if err := f.checkMutable(); err != nil {
		return err
	}
	if f.state.CurrentStep != entities.StepSlotSelection && f.state.CurrentStep != entities.StepContactInfo {
		return apperrors.NewConflictError("cannot go back from step " + f.state.CurrentStep.String())
	}
	f.state.CurrentStep--
	return nil
}

// SetCustomerInfo replaces the contact details. The caller validates them.
func (f *BookingFlow) SetCustomerInfo(info entities.CustomerInfo) error {
	f.mu.Lock()
	defer f.mu.Unlock()

	if err := f.checkMutable(); err != nil {
		return err
	}
	if f.state.CurrentStep != entities.StepContactInfo {
		return apperrors.NewConflictError("contact details can only be set in step " + entities.StepContactInfo.String())
	}
	f.state.CustomerInfo = info
	return nil
}

// Submit hands the booking to the sink. Service, slot and email are required.
// On success the flow reaches the confirmation step; on failure it stays on
// the contact step with an error message and the caller must submit again.
func (f *BookingFlow) Submit(ctx context.Context) (*entities.Appointment, error) {
	f.mu.Lock()
	if f.state.IsLoading {
		f.mu.Unlock()
		return nil, ErrSubmissionInProgress
	}
	if f.state.CurrentStep == entities.StepConfirmation {
		f.mu.Unlock()
		return nil, ErrBookingConfirmed
	}
	if f.state.SelectedService == nil || f.state.SelectedTimeSlot == nil || strings.TrimSpace(f.state.CustomerInfo.Email) == "" {
		f.setError(MessageMissingInformation)
		f.mu.Unlock()
		return nil, ErrMissingInformation
	}
	if f.state.CurrentStep != entities.StepContactInfo {
		f.setError(MessageNotReady)
		f.mu.Unlock()
		return nil, apperrors.NewConflictError("booking can only be submitted from step " + entities.StepContactInfo.String())
	}

	appointment := f.appointmentLocked()
	f.state.IsLoading = true
	f.state.Error = nil
	generation := f.generation
	f.mu.Unlock()

	err := f.sink.SubmitAppointment(ctx, appointment)

	f.mu.Lock()
	defer f.mu.Unlock()

	if f.generation != generation {
		return nil, ErrSubmissionSuperseded
	}
	f.state.IsLoading = false
	if err != nil {
		f.setError(MessageSubmissionFailed)
		var appErr *apperrors.AppError
		if errors.As(err, &appErr) {
			return nil, err
		}
		return nil, apperrors.NewExternalError("appointment submission failed", err)
	}

	f.state.CurrentStep = entities.StepConfirmation
	confirmed := *appointment
	f.state.Appointment = &confirmed
	return appointment, nil
}

// Reset returns to the initial state from any state. A submission in flight
// is superseded and its outcome ignored.
func (f *BookingFlow) Reset() {
	f.mu.Lock()
	defer f.mu.Unlock()

	f.generation++
	f.state = entities.NewBookingState()
}

func (f *BookingFlow) checkMutable() error {
	if f.state.IsLoading {
		return ErrSubmissionInProgress
	}
	if f.state.CurrentStep == entities.StepConfirmation {
		return ErrBookingConfirmed
	}
	return nil
}

func (f *BookingFlow) setError(msg string) {
	f.state.Error = &msg
}

func (f *BookingFlow) appointmentLocked() *entities.Appointment {
	slot := f.state.SelectedTimeSlot
	pharmacistID := slot.PharmacistID
	if f.state.SelectedPharmacist != nil {
		pharmacistID = f.state.SelectedPharmacist.ID
	}
	return &entities.Appointment{
		ID:           f.newID(),
		ServiceID:    f.state.SelectedService.ID,
		PharmacistID: pharmacistID,
		TimeSlotID:   slot.ID,
		Date:         slot.Date,
		StartTime:    slot.StartTime,
		EndTime:      slot.EndTime,
		Customer:     f.state.CustomerInfo,
		Status:       entities.AppointmentStatusPending,
		CreatedAt:    f.now(),
	}
}
