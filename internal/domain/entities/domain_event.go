package entities

import (
	"time"

	"github.com/google/uuid"
)

// DomainEventType represents the type of a published event
type DomainEventType string

const (
	EventAppointmentSubmitted DomainEventType = "appointment.submitted"
	EventQuizCompleted        DomainEventType = "quiz.completed"
)

// DomainEvent is published on the event bus when a session reaches a terminal state
type DomainEvent struct {
	ID        string                 `json:"id"`
	Type      DomainEventType        `json:"type"`
	SessionID string                 `json:"session_id"`
	Timestamp time.Time              `json:"timestamp"`
	Payload   map[string]interface{} `json:"payload"`
}

// NewDomainEvent creates a new event stamped with the current time
func NewDomainEvent(eventType DomainEventType, sessionID string, payload map[string]interface{}) *DomainEvent {
	return &DomainEvent{
		ID:        uuid.New().String(),
		Type:      eventType,
		SessionID: sessionID,
		Timestamp: time.Now(),
		Payload:   payload,
	}
}
