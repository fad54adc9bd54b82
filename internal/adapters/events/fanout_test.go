package events

import (
	"context"
	"encoding/json"
	"testing"

	"github.com/pharmacie-web/backend/internal/domain/entities"
	"github.com/pharmacie-web/backend/internal/domain/providers"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestFanout_AddRemove(t *testing.T) {
	f := newFanout()

	a, first := f.add(providers.EventChannelBookings)
	assert.True(t, first)
	b, first := f.add(providers.EventChannelBookings)
	assert.False(t, first)
	assert.Equal(t, 2, f.subscribers(providers.EventChannelBookings))

	assert.False(t, f.remove(providers.EventChannelBookings, a))
	assert.False(t, f.remove(providers.EventChannelBookings, a), "second remove is a no-op")
	assert.True(t, f.remove(providers.EventChannelBookings, b))
	assert.Equal(t, 0, f.subscribers(providers.EventChannelBookings))

	_, ok := <-a
	assert.False(t, ok)
}

func TestFanout_DeliverChecksEventType(t *testing.T) {
	f := newFanout()
	sub, _ := f.add(providers.EventChannelQuizzes)

	booking := entities.NewDomainEvent(entities.EventAppointmentSubmitted, "s1", nil)
	assert.Equal(t, 0, f.deliver(providers.EventChannelQuizzes, booking))

	quiz := entities.NewDomainEvent(entities.EventQuizCompleted, "s2", nil)
	assert.Equal(t, 1, f.deliver(providers.EventChannelQuizzes, quiz))

	got := <-sub
	assert.Equal(t, quiz.ID, got.ID)
	assert.Empty(t, sub)
}

func TestFanout_DropsForFullSubscribers(t *testing.T) {
	f := newFanout()
	sub, _ := f.add(providers.EventChannelQuizzes)

	for i := 0; i < subscriberBuffer; i++ {
		require.Equal(t, 1, f.deliver(providers.EventChannelQuizzes, entities.NewDomainEvent(entities.EventQuizCompleted, "s", nil)))
	}
	assert.Equal(t, 0, f.deliver(providers.EventChannelQuizzes, entities.NewDomainEvent(entities.EventQuizCompleted, "s", nil)))
	assert.Len(t, sub, subscriberBuffer)
}

func TestRedisEventBus_Dispatch(t *testing.T) {
	bus := newRedisEventBus(nil)
	sub, _ := bus.fanout.add(providers.EventChannelBookings)

	event := entities.NewDomainEvent(entities.EventAppointmentSubmitted, "s1", map[string]interface{}{
		"pharmacist_id": "thomas-legrand",
	})
	data, err := json.Marshal(event)
	require.NoError(t, err)

	bus.dispatch(providers.EventChannelBookings, "{not json")
	bus.dispatch(providers.EventChannelBookings, `{"id":"x","type":"quiz.completed"}`)
	bus.dispatch(providers.EventChannelBookings, string(data))

	got := <-sub
	assert.Equal(t, event.ID, got.ID)
	assert.Equal(t, "thomas-legrand", got.Payload["pharmacist_id"])
	assert.Empty(t, sub, "malformed and foreign events are dropped")
}

func TestRedisEventBus_RejectsBeforeTouchingRedis(t *testing.T) {
	bus := newRedisEventBus(nil)
	ctx := context.Background()

	assert.Error(t, bus.Publish(ctx, entities.NewDomainEvent("stock.updated", "s1", nil)))
	_, err := bus.Subscribe(ctx, providers.EventChannel("pharmacie:stock"))
	assert.Error(t, err)

	require.NoError(t, bus.Close())
}
