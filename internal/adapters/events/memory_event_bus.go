package events

import (
	"context"

	"github.com/pharmacie-web/backend/internal/domain/entities"
	"github.com/pharmacie-web/backend/internal/domain/providers"
	apperrors "github.com/pharmacie-web/backend/pkg/errors"
	"github.com/rs/zerolog/log"
)

// MemoryEventBus is an in-process EventBus used when Redis is disabled
type MemoryEventBus struct {
	fanout *fanout
}

// NewMemoryEventBus creates an in-process event bus
func NewMemoryEventBus() providers.EventBus {
	return &MemoryEventBus{fanout: newFanout()}
}

// Publish delivers event to the current subscribers of its channel
func (b *MemoryEventBus) Publish(_ context.Context, event *entities.DomainEvent) error {
	channel, err := providers.RouteEvent(event)
	if err != nil {
		return err
	}
	n := b.fanout.deliver(channel, event)
	log.Debug().Str("channel", string(channel)).Str("event_type", string(event.Type)).Int("delivered", n).Msg("Published event")
	return nil
}

// Subscribe returns a channel receiving the events of channel until ctx is done
func (b *MemoryEventBus) Subscribe(ctx context.Context, channel providers.EventChannel) (<-chan *entities.DomainEvent, error) {
	if !channel.Valid() {
		return nil, apperrors.NewValidationError("unknown event channel " + string(channel))
	}
	sub, _ := b.fanout.add(channel)

	go func() {
		<-ctx.Done()
		b.fanout.remove(channel, sub)
	}()
	return sub, nil
}

// Close closes every subscription
func (b *MemoryEventBus) Close() error {
	b.fanout.closeAll()
	return nil
}
