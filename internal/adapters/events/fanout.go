package events

import (
	"sync"

	"github.com/pharmacie-web/backend/internal/domain/entities"
	"github.com/pharmacie-web/backend/internal/domain/providers"
	"github.com/rs/zerolog/log"
)

const subscriberBuffer = 100

// fanout keeps the local subscribers of each channel. Both buses deliver
// through it; only the transport in front of it differs.
type fanout struct {
	mu     sync.RWMutex
	subs   map[providers.EventChannel]map[chan *entities.DomainEvent]struct{}
	closed bool
}

func newFanout() *fanout {
	return &fanout{subs: make(map[providers.EventChannel]map[chan *entities.DomainEvent]struct{})}
}

// add registers a subscriber. first is true when channel had none before.
// A closed fanout returns an already closed channel.
func (f *fanout) add(channel providers.EventChannel) (sub chan *entities.DomainEvent, first bool) {
	sub = make(chan *entities.DomainEvent, subscriberBuffer)

	f.mu.Lock()
	defer f.mu.Unlock()

	if f.closed {
		close(sub)
		return sub, false
	}
	if f.subs[channel] == nil {
		f.subs[channel] = make(map[chan *entities.DomainEvent]struct{})
		first = true
	}
	f.subs[channel][sub] = struct{}{}
	return sub, first
}

// remove closes sub. last is true when channel has no subscriber left.
func (f *fanout) remove(channel providers.EventChannel, sub chan *entities.DomainEvent) (last bool) {
	f.mu.Lock()
	defer f.mu.Unlock()

	subs := f.subs[channel]
	if _, ok := subs[sub]; !ok {
		return false
	}
	delete(subs, sub)
	close(sub)
	if len(subs) > 0 {
		return false
	}
	delete(f.subs, channel)
	return true
}

// deliver hands event to the subscribers of channel. Events whose type does
// not belong on channel are discarded, and so are events for full buffers.
func (f *fanout) deliver(channel providers.EventChannel, event *entities.DomainEvent) (delivered int) {
	if !channel.Carries(event.Type) {
		log.Warn().Str("channel", string(channel)).Str("event_type", string(event.Type)).Msg("Discarding event of a foreign type")
		return 0
	}

	f.mu.RLock()
	defer f.mu.RUnlock()

	for sub := range f.subs[channel] {
		select {
		case sub <- event:
			delivered++
		default:
			log.Warn().Str("channel", string(channel)).Str("event_id", event.ID).Msg("Subscriber buffer full, dropping event")
		}
	}
	return delivered
}

func (f *fanout) subscribers(channel providers.EventChannel) int {
	f.mu.RLock()
	defer f.mu.RUnlock()
	return len(f.subs[channel])
}

func (f *fanout) closeAll() {
	f.mu.Lock()
	defer f.mu.Unlock()

	for channel, subs := range f.subs {
		for sub := range subs {
			close(sub)
		}
		delete(f.subs, channel)
	}
	f.closed = true
}
