package events_test

import (
	"context"
	"testing"
	"time"

	"github.com/pharmacie-web/backend/internal/adapters/events"
	"github.com/pharmacie-web/backend/internal/domain/entities"
	"github.com/pharmacie-web/backend/internal/domain/providers"
	apperrors "github.com/pharmacie-web/backend/pkg/errors"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestMemoryEventBus_DeliversToSubscribers(t *testing.T) {
	bus := events.NewMemoryEventBus()
	defer bus.Close()

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	ch, err := bus.Subscribe(ctx, providers.EventChannelQuizzes)
	require.NoError(t, err)

	event := entities.NewDomainEvent(entities.EventQuizCompleted, "s1", map[string]interface{}{"profile_type": "gras"})
	require.NoError(t, bus.Publish(ctx, event))
	require.NoError(t, bus.Publish(ctx, entities.NewDomainEvent(entities.EventAppointmentSubmitted, "s2", nil)))

	select {
	case got := <-ch:
		assert.Equal(t, event.ID, got.ID)
		assert.Equal(t, "gras", got.Payload["profile_type"])
	case <-time.After(time.Second):
		t.Fatal("event not delivered")
	}

	select {
	case got := <-ch:
		t.Fatalf("unexpected event %v", got)
	default:
	}
}

func TestMemoryEventBus_ClosesOnContextDone(t *testing.T) {
	bus := events.NewMemoryEventBus()
	defer bus.Close()

	ctx, cancel := context.WithCancel(context.Background())
	ch, err := bus.Subscribe(ctx, providers.EventChannelBookings)
	require.NoError(t, err)

	cancel()

	select {
	case _, ok := <-ch:
		assert.False(t, ok)
	case <-time.After(time.Second):
		t.Fatal("subscription not closed")
	}
}

func TestMemoryEventBus_Close(t *testing.T) {
	bus := events.NewMemoryEventBus()
	ch, err := bus.Subscribe(context.Background(), providers.EventChannelBookings)
	require.NoError(t, err)

	require.NoError(t, bus.Close())

	_, ok := <-ch
	assert.False(t, ok)
}

func TestMemoryEventBus_RejectsUnroutableEvents(t *testing.T) {
	bus := events.NewMemoryEventBus()
	defer bus.Close()
	ctx := context.Background()

	err := bus.Publish(ctx, entities.NewDomainEvent("appointment.cancelled", "s1", nil))
	assert.True(t, apperrors.IsType(err, apperrors.ErrorTypeValidation))

	err = bus.Publish(ctx, nil)
	assert.True(t, apperrors.IsType(err, apperrors.ErrorTypeValidation))

	_, err = bus.Subscribe(ctx, providers.EventChannel("pharmacie:unknown"))
	assert.True(t, apperrors.IsType(err, apperrors.ErrorTypeValidation))
}

func TestMemoryEventBus_SubscribeAfterClose(t *testing.T) {
	bus := events.NewMemoryEventBus()
	require.NoError(t, bus.Close())

	ch, err := bus.Subscribe(context.Background(), providers.EventChannelQuizzes)
	require.NoError(t, err)
	_, ok := <-ch
	assert.False(t, ok)
}
