package services_test

import (
	"context"
	"sync"
	"testing"
	"time"

	"github.com/pharmacie-web/backend/internal/adapters/catalog"
	"github.com/pharmacie-web/backend/internal/adapters/providers/scheduling"
	"github.com/pharmacie-web/backend/internal/application/services"
	"github.com/pharmacie-web/backend/internal/domain/entities"
	"github.com/pharmacie-web/backend/internal/domain/providers"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"
)

// MockSubmissionSink is a testify mock of providers.SubmissionSink
type MockSubmissionSink struct {
	mock.Mock
}

func (m *MockSubmissionSink) SubmitAppointment(ctx context.Context, appointment *entities.Appointment) error {
	args := m.Called(ctx, appointment)
	return args.Error(0)
}

// gateSink blocks every submission until release is closed
type gateSink struct {
	entered chan struct{}
	release chan struct{}
	err     error
}

func newGateSink() *gateSink {
	return &gateSink{entered: make(chan struct{}, 1), release: make(chan struct{})}
}

func (s *gateSink) SubmitAppointment(ctx context.Context, _ *entities.Appointment) error {
	s.entered <- struct{}{}
	select {
	case <-s.release:
		return s.err
	case <-ctx.Done():
		return ctx.Err()
	}
}

// memoryCache is an in-memory providers.CacheProvider
type memoryCache struct {
	mu   sync.Mutex
	data map[string][]byte
}

func newMemoryCache() *memoryCache {
	return &memoryCache{data: make(map[string][]byte)}
}

func (c *memoryCache) Get(_ context.Context, key string) ([]byte, error) {
	c.mu.Lock()
	defer c.mu.Unlock()
	v, ok := c.data[key]
	if !ok {
		return nil, providers.ErrCacheMiss
	}
	return append([]byte(nil), v...), nil
}

func (c *memoryCache) Set(_ context.Context, key string, value []byte, _ time.Duration) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.data[key] = append([]byte(nil), value...)
	return nil
}

func (c *memoryCache) Delete(_ context.Context, key string) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	delete(c.data, key)
	return nil
}

func (c *memoryCache) has(key string) bool {
	c.mu.Lock()
	defer c.mu.Unlock()
	_, ok := c.data[key]
	return ok
}

// recordingMetrics counts what the session services report
type recordingMetrics struct {
	mu          sync.Mutex
	submissions map[string]int
	completions map[string]int
	active      map[string]int64
}

func newRecordingMetrics() *recordingMetrics {
	return &recordingMetrics{
		submissions: make(map[string]int),
		completions: make(map[string]int),
		active:      make(map[string]int64),
	}
}

func (m *recordingMetrics) RecordBookingSubmission(_ context.Context, _ string, outcome string) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.submissions[outcome]++
}

func (m *recordingMetrics) RecordQuizCompletion(_ context.Context, _ string, profileType string) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.completions[profileType]++
}

func (m *recordingMetrics) AddActiveSessions(_ context.Context, kind string, delta int64) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.active[kind] += delta
}

func newCatalogService(t *testing.T) *services.CatalogService {
	t.Helper()
	c, err := catalog.Default()
	require.NoError(t, err)
	return services.NewCatalogService(c, c)
}

func podologie() entities.AppointmentService {
	return entities.AppointmentService{ID: "podologie", Name: "Podologie", Duration: 45, PharmacistID: "thomas-legrand"}
}

func consultation() entities.AppointmentService {
	return entities.AppointmentService{ID: "entretien-pharmaceutique", Name: "Entretien pharmaceutique", Duration: 30}
}

func thomas() entities.Pharmacist {
	return entities.Pharmacist{ID: "thomas-legrand", Name: "Thomas Legrand", Role: "Préparateur spécialisé", Specialties: []string{"Podologie"}}
}

func alexandre() entities.Pharmacist {
	return entities.Pharmacist{ID: "alexandre-dupont", Name: "Alexandre Dupont", Role: "Pharmacien adjoint", Specialties: []string{"Entretiens pharmaceutiques"}}
}

// slotDay is the day every fixture slot falls on
const slotDay = "2026-03-12"

func slotFor(pharmacistID, start string) entities.TimeSlot {
	begin, err := time.Parse("15:04", start)
	if err != nil {
		panic(err)
	}
	return entities.TimeSlot{
		ID:           scheduling.SlotID(pharmacistID, slotDay, start),
		PharmacistID: pharmacistID,
		Date:         slotDay,
		StartTime:    start,
		EndTime:      begin.Add(scheduling.SlotLength).Format("15:04"),
		IsAvailable:  true,
	}
}

// newSlotProvider serves the simulated schedule with the clock set before slotDay
func newSlotProvider() *scheduling.MockSlotProvider {
	return scheduling.NewMockSlotProvider(scheduling.WithClock(func() time.Time {
		return time.Date(2026, 3, 1, 9, 0, 0, 0, time.UTC)
	}))
}

func customer() entities.CustomerInfo {
	return entities.CustomerInfo{FirstName: "Jeanne", LastName: "Martin", Email: "jeanne@example.fr", Phone: "0612345678"}
}

// flowAtContactStep returns a flow with podologie booked on a slot of Thomas, in step 3
func flowAtContactStep(t *testing.T, sink providers.SubmissionSink, opts ...services.BookingFlowOption) *services.BookingFlow {
	t.Helper()
	f := services.NewBookingFlow(sink, opts...)
	require.NoError(t, f.SelectService(podologie()))
	require.NoError(t, f.Advance())
	require.NoError(t, f.SelectPharmacist(thomas()))
	require.NoError(t, f.SelectTimeSlot(slotFor("thomas-legrand", "10:00")))
	require.NoError(t, f.Advance())
	return f
}
