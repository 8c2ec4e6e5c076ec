package event

import (
	"time"

	"github.com/google/uuid"

	"github.com/garyjia/approval-letters/internal/domain/entity"
)

// Payload keys
const (
	KeyActorID   = "actor_id"
	KeyLevel     = "level"
	KeyReason    = "reason"
	KeySubmitter = "submitter_email"
)

// Event represents a lifecycle change of an approval request
type Event struct {
	ID            string                 `json:"id"`
	Type          Type                   `json:"type"`
	RequestID     string                 `json:"request_id"`
	Status        entity.Status          `json:"status"`
	Payload       map[string]interface{} `json:"payload"`
	Timestamp     time.Time              `json:"timestamp"`
	CorrelationID string                 `json:"correlation_id"`
}

// NewEvent creates a new domain event with auto-generated ID and timestamp
func NewEvent(eventType Type, requestID string, status entity.Status, payload map[string]interface{}) *Event {
	id := uuid.NewString()
	if payload == nil {
		payload = make(map[string]interface{})
	}
	return &Event{
		ID:            id,
		Type:          eventType,
		RequestID:     requestID,
		Status:        status,
		Payload:       payload,
		Timestamp:     time.Now(),
		CorrelationID: id,
	}
}

// WithCorrelation returns a copy of e linked to an existing correlation chain,
// typically the HTTP request id that caused it.
func (e *Event) WithCorrelation(correlationID string) *Event {
	if correlationID == "" {
		return e
	}
	cp := *e
	cp.Payload = make(map[string]interface{}, len(e.Payload))
	for k, v := range e.Payload {
		cp.Payload[k] = v
	}
	cp.CorrelationID = correlationID
	return &cp
}

// WithPayload returns a new Event with an added payload key-value pair
func (e *Event) WithPayload(key string, value interface{}) *Event {
	newPayload := make(map[string]interface{}, len(e.Payload)+1)
	for k, v := range e.Payload {
		newPayload[k] = v
	}
	newPayload[key] = value

	cp := *e
	cp.Payload = newPayload
	return &cp
}

// GetPayloadString retrieves a string value from the payload
func (e *Event) GetPayloadString(key string) string {
	if val, ok := e.Payload[key]; ok {
		if str, ok := val.(string); ok {
			return str
		}
	}
	return ""
}

// GetPayloadInt retrieves an integer value from the payload
func (e *Event) GetPayloadInt(key string) int64 {
	if val, ok := e.Payload[key]; ok {
		switch v := val.(type) {
		case int64:
			return v
		case int:
			return int64(v)
		case float64:
			return int64(v)
		}
	}
	return 0
}
