package scheduling

import (
	"context"
	"fmt"
	"math/rand/v2"
	"slices"
	"sync"
	"time"

	"github.com/pharmacie-web/backend/internal/domain/entities"
	"github.com/pharmacie-web/backend/internal/domain/providers"
	apperrors "github.com/pharmacie-web/backend/pkg/errors"
	"github.com/rs/zerolog/log"
)

const (
	// DefaultAvailability is the share of generated slots reported available
	DefaultAvailability = 0.7

	// SlotLength is the duration of one bookable slot
	SlotLength = 30 * time.Minute

	dateLayout = "2006-01-02"
	timeLayout = "15:04"
)

// BaseSlotTimes are the opening slot start times: mornings and afternoons, half-hourly
var BaseSlotTimes = []string{
	"09:00", "09:30", "10:00", "10:30", "11:00", "11:30",
	"14:00", "14:30", "15:00", "15:30", "16:00", "16:30", "17:00",
}

// BookedSlots reports the slots already taken for a pharmacist on a day
type BookedSlots interface {
	BookedSlotIDs(ctx context.Context, pharmacistID, date string) (map[string]struct{}, error)
}

// MockSlotOption configures a MockSlotProvider
type MockSlotOption func(*MockSlotProvider)

// WithRandSource sets the source drawing slot availability
func WithRandSource(src rand.Source) MockSlotOption {
	return func(p *MockSlotProvider) { p.rng = rand.New(src) }
}

// WithAvailability sets the share of slots reported available, between 0 and 1
func WithAvailability(ratio float64) MockSlotOption {
	return func(p *MockSlotProvider) { p.availability = ratio }
}

// WithLatency delays every lookup
func WithLatency(d time.Duration) MockSlotOption {
	return func(p *MockSlotProvider) { p.latency = d }
}

// WithBookings marks slots found in bookings as unavailable
func WithBookings(bookings BookedSlots) MockSlotOption {
	return func(p *MockSlotProvider) { p.bookings = bookings }
}

// WithClock sets the clock deciding which days are already past
func WithClock(now func() time.Time) MockSlotOption {
	return func(p *MockSlotProvider) { p.now = now }
}

// MockSlotProvider generates a simulated daily schedule. Availability is
// drawn at random for every lookup, so two lookups may disagree.
type MockSlotProvider struct {
	mu           sync.Mutex
	rng          *rand.Rand
	availability float64
	latency      time.Duration
	bookings     BookedSlots
	now          func() time.Time
}

var _ providers.SlotProvider = (*MockSlotProvider)(nil)

// NewMockSlotProvider creates a mock slot provider
func NewMockSlotProvider(opts ...MockSlotOption) *MockSlotProvider {
	p := &MockSlotProvider{
		rng:          rand.New(rand.NewPCG(uint64(time.Now().UnixNano()), rand.Uint64())),
		availability: DefaultAvailability,
		now:          time.Now,
	}
	for _, opt := range opts {
		opt(p)
	}
	return p
}

// GenerateSlots returns every slot of the day, available or not
func (p *MockSlotProvider) GenerateSlots(pharmacistID string, date time.Time) []entities.TimeSlot {
	day := date.Format(dateLayout)

	p.mu.Lock()
	defer p.mu.Unlock()

	slots := make([]entities.TimeSlot, 0, len(BaseSlotTimes))
	for _, start := range BaseSlotTimes {
		slots = append(slots, entities.TimeSlot{
			ID:           SlotID(pharmacistID, day, start),
			PharmacistID: pharmacistID,
			Date:         day,
			StartTime:    start,
			EndTime:      slotEnd(start),
			IsAvailable:  p.rng.Float64() < p.availability,
		})
	}
	return slots
}

// GetAvailableSlots returns the available slots of a pharmacist on date
func (p *MockSlotProvider) GetAvailableSlots(ctx context.Context, pharmacistID, serviceID string, date time.Time) ([]entities.TimeSlot, error) {
	if err := wait(ctx, p.latency); err != nil {
		return nil, err
	}

	slots := p.GenerateSlots(pharmacistID, date)

	var booked map[string]struct{}
	if p.bookings != nil {
		var err error
		booked, err = p.bookings.BookedSlotIDs(ctx, pharmacistID, date.Format(dateLayout))
		if err != nil {
			return nil, fmt.Errorf("failed to load booked slots: %w", err)
		}
	}

	available := make([]entities.TimeSlot, 0, len(slots))
	for _, slot := range slots {
		if _, taken := booked[slot.ID]; taken || !slot.IsAvailable {
			continue
		}
		available = append(available, slot)
	}

	log.Debug().
		Str("pharmacist_id", pharmacistID).
		Str("service_id", serviceID).
		Str("date", date.Format(dateLayout)).
		Int("available", len(available)).
		Msg("Generated simulated slots")

	return available, nil
}

// LookupSlot resolves the slot of pharmacistID starting at startTime on date.
// The start must be on the opening schedule and the day must not be past.
// The random availability draw does not apply: a scheduled slot is bookable
// unless a stored appointment holds it.
func (p *MockSlotProvider) LookupSlot(ctx context.Context, pharmacistID, date, startTime string) (*entities.TimeSlot, error) {
	day, err := time.Parse(dateLayout, date)
	if err != nil {
		return nil, apperrors.NewValidationError("date must use the YYYY-MM-DD format")
	}
	date = day.Format(dateLayout)
	if today := p.now().Format(dateLayout); date < today {
		return nil, apperrors.NewValidationError(fmt.Sprintf("date %s is in the past", date))
	}
	if !slices.Contains(BaseSlotTimes, startTime) {
		return nil, apperrors.NewValidationError(fmt.Sprintf("no slot starts at %q", startTime))
	}

	slot := &entities.TimeSlot{
		ID:           SlotID(pharmacistID, date, startTime),
		PharmacistID: pharmacistID,
		Date:         date,
		StartTime:    startTime,
		EndTime:      slotEnd(startTime),
		IsAvailable:  true,
	}
	if p.bookings == nil {
		return slot, nil
	}

	booked, err := p.bookings.BookedSlotIDs(ctx, pharmacistID, date)
	if err != nil {
		return nil, fmt.Errorf("failed to load booked slots: %w", err)
	}
	if _, taken := booked[slot.ID]; taken {
		return nil, apperrors.NewConflictError(fmt.Sprintf("time slot %s is already booked", slot.ID))
	}
	return slot, nil
}

// SimulatedSink accepts every appointment after a delay, standing in for a booking backend
type SimulatedSink struct {
	delay time.Duration
}

var _ providers.SubmissionSink = (*SimulatedSink)(nil)

// NewSimulatedSink creates a sink answering after delay
func NewSimulatedSink(delay time.Duration) *SimulatedSink {
	return &SimulatedSink{delay: delay}
}

// SubmitAppointment waits for the configured delay. It fails only when ctx is done first.
func (s *SimulatedSink) SubmitAppointment(ctx context.Context, appointment *entities.Appointment) error {
	if err := wait(ctx, s.delay); err != nil {
		return err
	}
	log.Info().
		Str("appointment_id", appointment.ID).
		Str("service_id", appointment.ServiceID).
		Str("time_slot_id", appointment.TimeSlotID).
		Msg("Simulated appointment submission accepted")
	return nil
}

// SlotID builds the identifier of a slot: <pharmacist>-<date>-<start>
func SlotID(pharmacistID, date, start string) string {
	return fmt.Sprintf("%s-%s-%s", pharmacistID, date, start)
}

func slotEnd(start string) string {
	t, err := time.Parse(timeLayout, start)
	if err != nil {
		return start
	}
	return t.Add(SlotLength).Format(timeLayout)
}

func wait(ctx context.Context, d time.Duration) error {
	if d <= 0 {
		return ctx.Err()
	}
	timer := time.NewTimer(d)
	defer timer.Stop()
	select {
	case <-ctx.Done():
		return ctx.Err()
	case <-timer.C:
		return nil
	}
}
