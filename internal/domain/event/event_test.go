package event

import (
	"testing"

	"github.com/garyjia/approval-letters/internal/domain/entity"
)

func TestType_IsValid(t *testing.T) {
	tests := []struct {
		name      string
		eventType Type
		want      bool
	}{
		{"submitted", TypeRequestSubmitted, true},
		{"approved", TypeRequestApproved, true},
		{"fully approved", TypeRequestFullyApproved, true},
		{"rejected", TypeRequestRejected, true},
		{"unknown", Type("request.archived"), false},
		{"empty", Type(""), false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := tt.eventType.IsValid(); got != tt.want {
				t.Errorf("IsValid() = %v, want %v", got, tt.want)
			}
		})
	}
}

func TestNewEvent(t *testing.T) {
	e := NewEvent(TypeRequestApproved, "req-1", entity.StatusLevel1Approved, map[string]interface{}{KeyLevel: 1})

	if e.ID == "" {
		t.Error("expected generated ID")
	}
	if e.CorrelationID != e.ID {
		t.Errorf("CorrelationID = %q, want %q", e.CorrelationID, e.ID)
	}
	if e.RequestID != "req-1" || e.Status != entity.StatusLevel1Approved {
		t.Errorf("unexpected event: %+v", e)
	}
	if e.Timestamp.IsZero() {
		t.Error("expected timestamp")
	}
	if got := e.GetPayloadInt(KeyLevel); got != 1 {
		t.Errorf("GetPayloadInt() = %d, want 1", got)
	}

	other := NewEvent(TypeRequestApproved, "req-1", entity.StatusLevel1Approved, nil)
	if other.ID == e.ID {
		t.Error("event IDs should be unique")
	}
	if other.Payload == nil {
		t.Error("nil payload should be replaced with an empty map")
	}
}

func TestWithPayload_DoesNotMutateOriginal(t *testing.T) {
	e := NewEvent(TypeRequestRejected, "req-2", entity.StatusRejected, nil)
	e2 := e.WithPayload(KeyReason, "policy violation")

	if e.GetPayloadString(KeyReason) != "" {
		t.Error("original event was mutated")
	}
	if e2.GetPayloadString(KeyReason) != "policy violation" {
		t.Errorf("GetPayloadString() = %q", e2.GetPayloadString(KeyReason))
	}
	if e2.ID != e.ID {
		t.Error("WithPayload should preserve the ID")
	}
}

func TestWithCorrelation(t *testing.T) {
	e := NewEvent(TypeRequestSubmitted, "req-3", entity.StatusPending, map[string]interface{}{KeySubmitter: "a@b.c"})

	if got := e.WithCorrelation(""); got != e {
		t.Error("empty correlation id should return the same event")
	}

	c := e.WithCorrelation("http-req-9")
	if c.CorrelationID != "http-req-9" {
		t.Errorf("CorrelationID = %q", c.CorrelationID)
	}
	if e.CorrelationID == "http-req-9" {
		t.Error("original event was mutated")
	}
	if c.GetPayloadString(KeySubmitter) != "a@b.c" {
		t.Error("payload not carried over")
	}
}
