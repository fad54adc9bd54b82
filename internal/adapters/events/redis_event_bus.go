package events

import (
	"context"
	"encoding/json"
	"fmt"
	"sync"

	"github.com/pharmacie-web/backend/internal/domain/entities"
	"github.com/pharmacie-web/backend/internal/domain/providers"
	redisclient "github.com/pharmacie-web/backend/internal/infrastructure/clients/redis"
	apperrors "github.com/pharmacie-web/backend/pkg/errors"
	"github.com/redis/go-redis/v9"
	"github.com/rs/zerolog/log"
)

// RedisEventBus carries domain events over Redis Pub/Sub so that the API and
// the stream server share them. One Pub/Sub connection serves every channel:
// a channel is subscribed with its first local subscriber and unsubscribed
// with its last.
type RedisEventBus struct {
	client redis.UniversalClient
	fanout *fanout

	mu        sync.Mutex
	pubsub    *redis.PubSub
	receiving bool
	ctx       context.Context
	cancel    context.CancelFunc
}

// NewRedisEventBus creates a new Redis-based event bus
func NewRedisEventBus(client *redisclient.Client) providers.EventBus {
	return newRedisEventBus(client.Client())
}

func newRedisEventBus(client redis.UniversalClient) *RedisEventBus {
	ctx, cancel := context.WithCancel(context.Background())
	return &RedisEventBus{
		client: client,
		fanout: newFanout(),
		ctx:    ctx,
		cancel: cancel,
	}
}

// Publish sends event on the Redis channel of its type
func (b *RedisEventBus) Publish(ctx context.Context, event *entities.DomainEvent) error {
	channel, err := providers.RouteEvent(event)
	if err != nil {
		return err
	}
	data, err := json.Marshal(event)
	if err != nil {
		return fmt.Errorf("failed to marshal event: %w", err)
	}

	receivers, err := b.client.Publish(ctx, string(channel), data).Result()
	if err != nil {
		return fmt.Errorf("failed to publish %s event: %w", event.Type, err)
	}

	log.Debug().
		Str("channel", string(channel)).
		Str("event_id", event.ID).
		Str("event_type", string(event.Type)).
		Int64("receivers", receivers).
		Msg("Published event")
	return nil
}

// Subscribe returns a channel receiving the events of channel until ctx is done
func (b *RedisEventBus) Subscribe(ctx context.Context, channel providers.EventChannel) (<-chan *entities.DomainEvent, error) {
	if !channel.Valid() {
		return nil, apperrors.NewValidationError("unknown event channel " + string(channel))
	}

	sub, first := b.fanout.add(channel)
	if first {
		if err := b.listen(channel); err != nil {
			b.fanout.remove(channel, sub)
			return nil, err
		}
	}
	log.Info().Str("channel", string(channel)).Int("subscribers", b.fanout.subscribers(channel)).Msg("Subscribed to channel")

	go func() {
		<-ctx.Done()
		if b.fanout.remove(channel, sub) {
			b.unlisten(channel)
		}
	}()
	return sub, nil
}

// listen adds channel to the shared Pub/Sub connection, opening it on first use
func (b *RedisEventBus) listen(channel providers.EventChannel) error {
	b.mu.Lock()
	defer b.mu.Unlock()

	if b.ctx.Err() != nil {
		return fmt.Errorf("event bus is closed")
	}
	if b.pubsub == nil {
		b.pubsub = b.client.Subscribe(b.ctx)
	}
	if err := b.pubsub.Subscribe(b.ctx, string(channel)); err != nil {
		return fmt.Errorf("failed to subscribe to %s: %w", channel, err)
	}
	if !b.receiving {
		b.receiving = true
		go b.receive(b.pubsub.Channel())
	}
	return nil
}

func (b *RedisEventBus) unlisten(channel providers.EventChannel) {
	b.mu.Lock()
	defer b.mu.Unlock()

	// a new subscriber may have arrived since the last one left
	if b.pubsub == nil || b.ctx.Err() != nil || b.fanout.subscribers(channel) > 0 {
		return
	}
	if err := b.pubsub.Unsubscribe(b.ctx, string(channel)); err != nil {
		log.Warn().Err(err).Str("channel", string(channel)).Msg("Failed to unsubscribe from channel")
		return
	}
	log.Info().Str("channel", string(channel)).Msg("Closed subscription")
}

func (b *RedisEventBus) receive(messages <-chan *redis.Message) {
	for {
		select {
		case <-b.ctx.Done():
			return
		case msg, ok := <-messages:
			if !ok {
				return
			}
			b.dispatch(providers.EventChannel(msg.Channel), msg.Payload)
		}
	}
}

// dispatch decodes one Pub/Sub payload and hands it to the local subscribers
func (b *RedisEventBus) dispatch(channel providers.EventChannel, payload string) {
	var event entities.DomainEvent
	if err := json.Unmarshal([]byte(payload), &event); err != nil {
		log.Warn().Err(err).Str("channel", string(channel)).Msg("Failed to unmarshal event")
		return
	}
	b.fanout.deliver(channel, &event)
}

// Close stops receiving and closes every subscription
func (b *RedisEventBus) Close() error {
	b.cancel()

	b.mu.Lock()
	pubsub := b.pubsub
	b.pubsub = nil
	b.mu.Unlock()

	b.fanout.closeAll()
	if pubsub != nil {
		if err := pubsub.Close(); err != nil {
			return fmt.Errorf("failed to close event bus: %w", err)
		}
	}
	log.Info().Msg("Event bus closed")
	return nil
}
