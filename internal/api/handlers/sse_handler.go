package handlers

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"sync"
	"time"

	"github.com/pharmacie-web/backend/internal/domain/entities"
	"github.com/pharmacie-web/backend/internal/domain/providers"
	"github.com/rs/zerolog/log"
)

const defaultHeartbeat = 30 * time.Second

// SSEHandler streams domain events to back-office clients with Server-Sent Events
type SSEHandler struct {
	eventBus  providers.EventBus
	heartbeat time.Duration
	clients   map[providers.EventChannel]map[chan *entities.DomainEvent]bool
	mu        sync.RWMutex
}

// NewSSEHandler creates a new SSE handler
func NewSSEHandler(eventBus providers.EventBus) *SSEHandler {
	return &SSEHandler{
		eventBus:  eventBus,
		heartbeat: defaultHeartbeat,
		clients:   make(map[providers.EventChannel]map[chan *entities.DomainEvent]bool),
	}
}

// WithHeartbeat overrides the keep-alive interval
func (h *SSEHandler) WithHeartbeat(d time.Duration) *SSEHandler {
	h.heartbeat = d
	return h
}

// StreamBookings handles GET /api/stream/bookings?pharmacist=
// An optional pharmacist restricts the stream to that pharmacist's appointments.
func (h *SSEHandler) StreamBookings(w http.ResponseWriter, r *http.Request) {
	pharmacistID := r.URL.Query().Get("pharmacist")
	filter := func(event *entities.DomainEvent) bool {
		return pharmacistID == "" || event.Payload["pharmacist_id"] == pharmacistID
	}
	h.stream(w, r, providers.EventChannelBookings, filter, map[string]interface{}{
		"pharmacist_id": pharmacistID,
	})
}

// StreamQuizzes handles GET /api/stream/quizzes?quiz=
func (h *SSEHandler) StreamQuizzes(w http.ResponseWriter, r *http.Request) {
	quizID := r.URL.Query().Get("quiz")
	filter := func(event *entities.DomainEvent) bool {
		return quizID == "" || event.Payload["quiz_id"] == quizID
	}
	h.stream(w, r, providers.EventChannelQuizzes, filter, map[string]interface{}{
		"quiz_id": quizID,
	})
}

func (h *SSEHandler) stream(w http.ResponseWriter, r *http.Request, channel providers.EventChannel, filter func(*entities.DomainEvent) bool, hello map[string]interface{}) {
	flusher, ok := w.(http.Flusher)
	if !ok {
		respondWithError(w, http.StatusInternalServerError, "streaming not supported")
		return
	}

	eventChan, err := h.eventBus.Subscribe(r.Context(), channel)
	if err != nil {
		log.Error().Err(err).Str("channel", string(channel)).Msg("Failed to subscribe to channel")
		respondWithError(w, http.StatusServiceUnavailable, "event stream unavailable")
		return
	}

	w.Header().Set("Content-Type", "text/event-stream")
	w.Header().Set("Cache-Control", "no-cache")
	w.Header().Set("Connection", "keep-alive")

	clientChan := make(chan *entities.DomainEvent, 10)
	h.registerClient(channel, clientChan)
	defer h.unregisterClient(channel, clientChan)

	hello["timestamp"] = time.Now()
	h.sendEvent(w, "connected", hello)
	flusher.Flush()

	go h.forwardEvents(r.Context(), eventChan, clientChan, filter)

	ticker := time.NewTicker(h.heartbeat)
	defer ticker.Stop()

	for {
		select {
		case <-r.Context().Done():
			log.Debug().Str("channel", string(channel)).Msg("Client disconnected from event stream")
			return
		case <-ticker.C:
			h.sendEvent(w, "heartbeat", map[string]interface{}{
				"timestamp": time.Now(),
			})
			flusher.Flush()
		case event := <-clientChan:
			if event == nil {
				continue
			}
			h.sendEvent(w, string(event.Type), event)
			flusher.Flush()
		}
	}
}

// forwardEvents copies matching bus events to the client, dropping them when the client lags
func (h *SSEHandler) forwardEvents(ctx context.Context, eventChan <-chan *entities.DomainEvent, clientChan chan<- *entities.DomainEvent, filter func(*entities.DomainEvent) bool) {
	for {
		select {
		case <-ctx.Done():
			return
		case event, ok := <-eventChan:
			if !ok {
				return
			}
			if !filter(event) {
				continue
			}
			select {
			case clientChan <- event:
			default:
				// Client channel full, skip event
			}
		}
	}
}

func (h *SSEHandler) registerClient(channel providers.EventChannel, clientChan chan *entities.DomainEvent) {
	h.mu.Lock()
	defer h.mu.Unlock()

	if h.clients[channel] == nil {
		h.clients[channel] = make(map[chan *entities.DomainEvent]bool)
	}
	h.clients[channel][clientChan] = true
	log.Debug().Str("channel", string(channel)).Int("clients", len(h.clients[channel])).Msg("Stream client registered")
}

func (h *SSEHandler) unregisterClient(channel providers.EventChannel, clientChan chan *entities.DomainEvent) {
	h.mu.Lock()
	defer h.mu.Unlock()

	if clients, exists := h.clients[channel]; exists {
		delete(clients, clientChan)
		if len(clients) == 0 {
			delete(h.clients, channel)
		}
	}
}

func (h *SSEHandler) sendEvent(w http.ResponseWriter, eventType string, data interface{}) {
	jsonData, err := json.Marshal(data)
	if err != nil {
		log.Error().Err(err).Msg("Failed to marshal event data")
		return
	}

	fmt.Fprintf(w, "event: %s\n", eventType)
	fmt.Fprintf(w, "data: %s\n\n", jsonData)
}

// GetClientCount returns the number of connected stream clients
func (h *SSEHandler) GetClientCount() int {
	h.mu.RLock()
	defer h.mu.RUnlock()

	count := 0
	for _, clients := range h.clients {
		count += len(clients)
	}
	return count
}
