package providers

import (
	"context"
	"fmt"

	"github.com/pharmacie-web/backend/internal/domain/entities"
	apperrors "github.com/pharmacie-web/backend/pkg/errors"
)

// EventChannel names a stream of domain events. Each event type is carried
// by exactly one channel.
type EventChannel string

const (
	// EventChannelBookings carries appointment events
	EventChannelBookings EventChannel = "pharmacie:bookings"

	// EventChannelQuizzes carries quiz completion events
	EventChannelQuizzes EventChannel = "pharmacie:quizzes"
)

// EventChannels lists every channel
var EventChannels = []EventChannel{EventChannelBookings, EventChannelQuizzes}

// ChannelFor returns the channel carrying events of type t
func ChannelFor(t entities.DomainEventType) (EventChannel, bool) {
	switch t {
	case entities.EventAppointmentSubmitted:
		return EventChannelBookings, true
	case entities.EventQuizCompleted:
		return EventChannelQuizzes, true
	default:
		return "", false
	}
}

// RouteEvent returns the channel of event, or a validation error when its
// type has no channel
func RouteEvent(event *entities.DomainEvent) (EventChannel, error) {
	if event == nil {
		return "", apperrors.NewValidationError("event is required")
	}
	channel, ok := ChannelFor(event.Type)
	if !ok {
		return "", apperrors.NewValidationError(fmt.Sprintf("no channel carries events of type %q", event.Type))
	}
	return channel, nil
}

// Valid reports whether c is a known channel
func (c EventChannel) Valid() bool {
	for _, known := range EventChannels {
		if c == known {
			return true
		}
	}
	return false
}

// Carries reports whether events of type t belong on c
func (c EventChannel) Carries(t entities.DomainEventType) bool {
	channel, ok := ChannelFor(t)
	return ok && channel == c
}

// EventBus publishes domain events and fans them out to subscribers
type EventBus interface {
	// Publish sends event on the channel of its type
	Publish(ctx context.Context, event *entities.DomainEvent) error

	// Subscribe returns a channel receiving the events of channel until ctx is done.
	// Unknown channels fail with a validation error.
	Subscribe(ctx context.Context, channel EventChannel) (<-chan *entities.DomainEvent, error)

	// Close closes the event bus and all subscriptions
	Close() error
}
