package scheduling

import (
	"fmt"
	"time"

	"github.com/pharmacie-web/backend/internal/domain/providers"
	"github.com/pharmacie-web/backend/internal/domain/repositories"
)

// Sink kinds accepted by NewSubmissionSink
const (
	SinkSimulated = "simulated"
	SinkPostgres  = "postgres"
)

// SinkConfig configures the submission sink
type SinkConfig struct {
	Kind  string
	Delay time.Duration
}

// SlotProviderConfig configures the slot provider
type SlotProviderConfig struct {
	Availability float64
	Latency      time.Duration
}

// NewSubmissionSink picks the sink for cfg.Kind. The postgres sink needs a repository.
func NewSubmissionSink(cfg SinkConfig, repo repositories.AppointmentRepository) (providers.SubmissionSink, error) {
	switch cfg.Kind {
	case "", SinkSimulated:
		return NewSimulatedSink(cfg.Delay), nil
	case SinkPostgres:
		if repo == nil {
			return nil, fmt.Errorf("booking sink %q requires an appointment repository", cfg.Kind)
		}
		return NewRepositorySink(repo), nil
	default:
		return nil, fmt.Errorf("unknown booking sink %q", cfg.Kind)
	}
}

// NewSlotProvider creates the simulated slot provider. When repo is set,
// stored appointments mark their slots as taken.
func NewSlotProvider(cfg SlotProviderConfig, repo repositories.AppointmentRepository) providers.SlotProvider {
	opts := []MockSlotOption{
		WithAvailability(cfg.Availability),
		WithLatency(cfg.Latency),
	}
	if repo != nil {
		opts = append(opts, WithBookings(repo))
	}
	return NewMockSlotProvider(opts...)
}
