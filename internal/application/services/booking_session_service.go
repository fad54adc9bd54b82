package services

import (
	"context"
	"encoding/json"
	"errors"
	"time"

	"github.com/google/uuid"
	"github.com/pharmacie-web/backend/internal/domain/entities"
	"github.com/pharmacie-web/backend/internal/domain/providers"
	apperrors "github.com/pharmacie-web/backend/pkg/errors"
	"github.com/rs/zerolog/log"
)

const bookingSessionKind = "booking"

// SessionMetrics receives session counters. *observability.Metrics implements it.
type SessionMetrics interface {
	RecordBookingSubmission(ctx context.Context, serviceID, outcome string)
	RecordQuizCompletion(ctx context.Context, quizID, profileType string)
	AddActiveSessions(ctx context.Context, kind string, delta int64)
}

// SessionDeps holds the optional collaborators of the session services
type SessionDeps struct {
	// Cache stores session snapshots; nil keeps sessions in memory only
	Cache providers.CacheProvider
	// Bus receives terminal-state events; nil disables publishing
	Bus providers.EventBus
	// Metrics may be nil
	Metrics SessionMetrics
	TTL     time.Duration
}

// BookingSession is the view of one booking wizard returned to clients
type BookingSession struct {
	ID    string                `json:"id"`
	State entities.BookingState `json:"state"`
}

// BookingSessionService runs one BookingFlow per session
type BookingSessionService struct {
	catalog *CatalogService
	slots   providers.SlotProvider
	sink    providers.SubmissionSink
	bus     providers.EventBus
	metrics SessionMetrics
	opts    []BookingFlowOption
	store   *sessionStore[*BookingFlow]
}

// NewBookingSessionService creates a new booking session service. Selected
// time slots are resolved through slots.
func NewBookingSessionService(
	catalog *CatalogService,
	slots providers.SlotProvider,
	sink providers.SubmissionSink,
	deps SessionDeps,
	opts ...BookingFlowOption,
) *BookingSessionService {
	s := &BookingSessionService{
		catalog: catalog,
		slots:   slots,
		sink:    sink,
		bus:     deps.Bus,
		metrics: deps.Metrics,
		opts:    opts,
	}
	s.store = newSessionStore(bookingSessionKind, deps.TTL, deps.Cache,
		func(f *BookingFlow) any { return f.State() },
		func(data []byte) (*BookingFlow, error) {
			var state entities.BookingState
			if err := json.Unmarshal(data, &state); err != nil {
				return nil, err
			}
			return RestoreBookingFlow(state, s.sink, s.opts...), nil
		},
	)
	if deps.Metrics != nil {
		s.store.onChange = func(ctx context.Context, delta int64) {
			deps.Metrics.AddActiveSessions(ctx, bookingSessionKind, delta)
		}
	}
	return s
}

// StartJanitor evicts idle sessions every interval until ctx is done
func (s *BookingSessionService) StartJanitor(ctx context.Context, interval time.Duration) {
	s.store.startJanitor(ctx, interval)
}

// Start opens a new booking wizard
func (s *BookingSessionService) Start(ctx context.Context) *BookingSession {
	id := uuid.New().String()
	flow := NewBookingFlow(s.sink, s.opts...)
	s.store.put(ctx, id, flow)

	log.Debug().Str("session_id", id).Msg("Booking session started")
	return &BookingSession{ID: id, State: flow.State()}
}

// Get returns the current state of a session
func (s *BookingSessionService) Get(ctx context.Context, id string) (*BookingSession, error) {
	flow, err := s.store.get(ctx, id)
	if err != nil {
		return nil, err
	}
	return &BookingSession{ID: id, State: flow.State()}, nil
}

// SelectService selects a service by id
func (s *BookingSessionService) SelectService(ctx context.Context, id, serviceID string) (*BookingSession, error) {
	service, err := s.catalog.GetService(ctx, serviceID)
	if err != nil {
		return nil, err
	}
	return s.mutate(ctx, id, func(f *BookingFlow) error {
		return f.SelectService(*service)
	})
}

// SelectPharmacist selects a pharmacist by id. The pharmacist must be able to
// provide the selected service.
func (s *BookingSessionService) SelectPharmacist(ctx context.Context, id, pharmacistID string) (*BookingSession, error) {
	pharmacist, err := s.catalog.GetPharmacist(ctx, pharmacistID)
	if err != nil {
		return nil, err
	}
	return s.mutate(ctx, id, func(f *BookingFlow) error {
		if svc := f.State().SelectedService; svc != nil && !s.catalog.CanProvide(*svc, *pharmacist) {
			return apperrors.NewValidationError("pharmacist " + pharmacistID + " does not provide " + svc.ID)
		}
		return f.SelectPharmacist(*pharmacist)
	})
}

// SelectTimeSlot selects the slot of the selected pharmacist starting at
// startTime on date. The slot is resolved by the slot provider; the client
// only names it.
func (s *BookingSessionService) SelectTimeSlot(ctx context.Context, id, date, startTime string) (*BookingSession, error) {
	flow, err := s.store.get(ctx, id)
	if err != nil {
		return nil, err
	}
	pharmacist := flow.State().SelectedPharmacist
	if pharmacist == nil {
		return nil, ErrPharmacistRequired
	}

	slot, err := s.slots.LookupSlot(ctx, pharmacist.ID, date, startTime)
	if err != nil {
		var appErr *apperrors.AppError
		if errors.As(err, &appErr) {
			return nil, err
		}
		return nil, apperrors.NewExternalError("failed to resolve time slot", err)
	}

	return s.mutate(ctx, id, func(f *BookingFlow) error {
		return f.SelectTimeSlot(*slot)
	})
}

// Advance moves to the next step
func (s *BookingSessionService) Advance(ctx context.Context, id string) (*BookingSession, error) {
	return s.mutate(ctx, id, (*BookingFlow).Advance)
}

// GoBack moves to the previous step
func (s *BookingSessionService) GoBack(ctx context.Context, id string) (*BookingSession, error) {
	return s.mutate(ctx, id, (*BookingFlow).GoBack)
}

// SetCustomerInfo stores the contact details
func (s *BookingSessionService) SetCustomerInfo(ctx context.Context, id string, info entities.CustomerInfo) (*BookingSession, error) {
	return s.mutate(ctx, id, func(f *BookingFlow) error {
		return f.SetCustomerInfo(info)
	})
}

// Submit hands the appointment to the sink. The returned session reflects
// the outcome, including the user-facing error message on failure.
func (s *BookingSessionService) Submit(ctx context.Context, id string) (*BookingSession, error) {
	flow, err := s.store.get(ctx, id)
	if err != nil {
		return nil, err
	}

	appointment, err := flow.Submit(ctx)
	state := flow.State()
	s.store.save(ctx, id, flow)

	serviceID := ""
	if state.SelectedService != nil {
		serviceID = state.SelectedService.ID
	}

	if err != nil {
		if !errors.Is(err, ErrSubmissionInProgress) {
			s.recordSubmission(ctx, serviceID, string(apperrors.TypeOf(err)))
		}
		log.Warn().Err(err).Str("session_id", id).Msg("Appointment submission failed")
		return &BookingSession{ID: id, State: state}, err
	}

	s.recordSubmission(ctx, serviceID, "success")
	s.publish(ctx, id, appointment)

	log.Info().
		Str("session_id", id).
		Str("appointment_id", appointment.ID).
		Str("service_id", appointment.ServiceID).
		Str("pharmacist_id", appointment.PharmacistID).
		Str("slot", appointment.TimeSlotID).
		Msg("Appointment submitted")
	return &BookingSession{ID: id, State: state}, nil
}

// Reset returns the wizard to its initial state
func (s *BookingSessionService) Reset(ctx context.Context, id string) (*BookingSession, error) {
	return s.mutate(ctx, id, func(f *BookingFlow) error {
		f.Reset()
		return nil
	})
}

// Close discards a session
func (s *BookingSessionService) Close(ctx context.Context, id string) error {
	return s.store.remove(ctx, id)
}

func (s *BookingSessionService) mutate(ctx context.Context, id string, fn func(*BookingFlow) error) (*BookingSession, error) {
	flow, err := s.store.get(ctx, id)
	if err != nil {
		return nil, err
	}
	if err := fn(flow); err != nil {
		return nil, err
	}
	s.store.save(ctx, id, flow)
	return &BookingSession{ID: id, State: flow.State()}, nil
}

func (s *BookingSessionService) recordSubmission(ctx context.Context, serviceID, outcome string) {
	if s.metrics != nil {
		s.metrics.RecordBookingSubmission(ctx, serviceID, outcome)
	}
}

func (s *BookingSessionService) publish(ctx context.Context, id string, appointment *entities.Appointment) {
	if s.bus == nil {
		return
	}
	event := entities.NewDomainEvent(entities.EventAppointmentSubmitted, id, map[string]interface{}{
		"appointment_id": appointment.ID,
		"service_id":     appointment.ServiceID,
		"pharmacist_id":  appointment.PharmacistID,
		"time_slot_id":   appointment.TimeSlotID,
		"date":           appointment.Date,
		"start_time":     appointment.StartTime,
	})
	if err := s.bus.Publish(ctx, event); err != nil {
		log.Warn().Err(err).Str("session_id", id).Msg("Failed to publish appointment event")
	}
}
