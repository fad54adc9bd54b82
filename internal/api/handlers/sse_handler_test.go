package handlers_test

import (
	"bufio"
	"context"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/pharmacie-web/backend/internal/adapters/events"
	"github.com/pharmacie-web/backend/internal/api/handlers"
	"github.com/pharmacie-web/backend/internal/domain/entities"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// readEvent returns the next event name and data line of an SSE stream
func readEvent(t *testing.T, reader *bufio.Reader) (string, string) {
	t.Helper()
	var name, data string
	for {
		line, err := reader.ReadString('\n')
		require.NoError(t, err)
		line = strings.TrimRight(line, "\n")
		switch {
		case strings.HasPrefix(line, "event: "):
			name = strings.TrimPrefix(line, "event: ")
		case strings.HasPrefix(line, "data: "):
			data = strings.TrimPrefix(line, "data: ")
		case line == "" && name != "":
			return name, data
		}
	}
}

func openStream(t *testing.T, ctx context.Context, url string) *http.Response {
	t.Helper()
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, url, nil)
	require.NoError(t, err)
	resp, err := http.DefaultClient.Do(req)
	require.NoError(t, err)
	return resp
}

func TestSSEHandler_StreamBookings(t *testing.T) {
	bus := events.NewMemoryEventBus()
	defer bus.Close()
	handler := handlers.NewSSEHandler(bus)

	mux := http.NewServeMux()
	mux.HandleFunc("GET /api/stream/bookings", handler.StreamBookings)
	server := httptest.NewServer(mux)
	defer server.Close()

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	resp := openStream(t, ctx, server.URL+"/api/stream/bookings?pharmacist=thomas-legrand")
	defer resp.Body.Close()

	assert.Equal(t, "text/event-stream", resp.Header.Get("Content-Type"))
	assert.Equal(t, "no-cache", resp.Header.Get("Cache-Control"))

	reader := bufio.NewReader(resp.Body)
	name, data := readEvent(t, reader)
	assert.Equal(t, "connected", name)
	assert.Contains(t, data, `"pharmacist_id":"thomas-legrand"`)
	assert.Equal(t, 1, handler.GetClientCount())

	other := entities.NewDomainEvent(entities.EventAppointmentSubmitted, "s1", map[string]interface{}{
		"appointment_id": "apt-other",
		"pharmacist_id":  "alexandre-dupont",
	})
	mine := entities.NewDomainEvent(entities.EventAppointmentSubmitted, "s2", map[string]interface{}{
		"appointment_id": "apt-mine",
		"pharmacist_id":  "thomas-legrand",
	})
	require.NoError(t, bus.Publish(ctx, other))
	require.NoError(t, bus.Publish(ctx, mine))

	name, data = readEvent(t, reader)
	assert.Equal(t, string(entities.EventAppointmentSubmitted), name)
	assert.Contains(t, data, "apt-mine")
	assert.NotContains(t, data, "apt-other")

	cancel()
	assert.Eventually(t, func() bool {
		return handler.GetClientCount() == 0
	}, 2*time.Second, 10*time.Millisecond)
}

func TestSSEHandler_StreamQuizzesHeartbeat(t *testing.T) {
	bus := events.NewMemoryEventBus()
	defer bus.Close()
	handler := handlers.NewSSEHandler(bus).WithHeartbeat(20 * time.Millisecond)

	mux := http.NewServeMux()
	mux.HandleFunc("GET /api/stream/quizzes", handler.StreamQuizzes)
	server := httptest.NewServer(mux)
	defer server.Close()

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	resp := openStream(t, ctx, server.URL+"/api/stream/quizzes")
	defer resp.Body.Close()

	reader := bufio.NewReader(resp.Body)
	name, _ := readEvent(t, reader)
	assert.Equal(t, "connected", name)

	name, _ = readEvent(t, reader)
	assert.Equal(t, "heartbeat", name)

	event := entities.NewDomainEvent(entities.EventQuizCompleted, "q1", map[string]interface{}{
		"quiz_id":      "routine-cheveux",
		"profile_type": "gras",
	})
	require.NoError(t, bus.Publish(ctx, event))

	for {
		name, data := readEvent(t, reader)
		if name == "heartbeat" {
			continue
		}
		assert.Equal(t, string(entities.EventQuizCompleted), name)
		assert.Contains(t, data, `"profile_type":"gras"`)
		break
	}
}
