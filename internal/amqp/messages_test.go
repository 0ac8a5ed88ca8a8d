package amqp

import (
	"testing"
	"time"
)

func TestGoalCompletedMessageRoundTrip(t *testing.T) {
	completedAt := time.Date(2025, 6, 1, 12, 0, 0, 0, time.UTC)
	msg := NewGoalCompletedMessage("goal-123", completedAt)

	body, err := msg.ToJSON()
	if err != nil {
		t.Fatalf("ToJSON: %v", err)
	}

	decoded, err := GoalCompletedMessageFromJSON(body)
	if err != nil {
		t.Fatalf("FromJSON: %v", err)
	}
	if decoded.GoalID != "goal-123" {
		t.Errorf("GoalID = %q, want goal-123", decoded.GoalID)
	}
	if !decoded.CompletedAt.Equal(completedAt) {
		t.Errorf("CompletedAt = %v, want %v", decoded.CompletedAt, completedAt)
	}
	if decoded.Timestamp.IsZero() {
		t.Error("Timestamp was not set")
	}
}

func TestGoalCompletedMessageFromJSONInvalid(t *testing.T) {
	if _, err := GoalCompletedMessageFromJSON([]byte("not json")); err == nil {
		t.Error("expected error for malformed payload")
	}
}
