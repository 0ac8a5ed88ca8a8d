package amqp

import (
	"encoding/json"
	"time"
)

// GoalCompletedMessage announces that a goal reached its target. It carries
// only the goal ID; the worker fetches the full report from the database so
// stale payloads never reach the exporter.
type GoalCompletedMessage struct {
	GoalID      string    `json:"goal_id"`
	CompletedAt time.Time `json:"completed_at"`
	Timestamp   time.Time `json:"timestamp"`
}

// NewGoalCompletedMessage creates a completion message for a goal
func NewGoalCompletedMessage(goalID string, completedAt time.Time) *GoalCompletedMessage {
	return &GoalCompletedMessage{
		GoalID:      goalID,
		CompletedAt: completedAt,
		Timestamp:   time.Now(),
	}
}

// ToJSON converts the message to JSON bytes
func (m *GoalCompletedMessage) ToJSON() ([]byte, error) {
	return json.Marshal(m)
}

// GoalCompletedMessageFromJSON creates a message from JSON bytes
func GoalCompletedMessageFromJSON(data []byte) (*GoalCompletedMessage, error) {
	var msg GoalCompletedMessage
	if err := json.Unmarshal(data, &msg); err != nil {
		return nil, err
	}
	return &msg, nil
}
