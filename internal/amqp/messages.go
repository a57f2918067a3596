package amqp

import (
	"encoding/json"
	"time"
)

// NotificationMessage is the wire form of a user-visible outcome published
// after a mutation succeeds or fails.
type NotificationMessage struct {
	Level     string    `json:"level"`
	Title     string    `json:"title"`
	Message   string    `json:"message"`
	Operation string    `json:"operation,omitempty"`
	Resource  string    `json:"resource,omitempty"`
	RequestID string    `json:"requestId,omitempty"`
	Timestamp time.Time `json:"timestamp"`
}

// NewNotificationMessage creates a message stamped with the current time
func NewNotificationMessage(level, title, message, operation string) *NotificationMessage {
	return &NotificationMessage{
		Level:     level,
		Title:     title,
		Message:   message,
		Operation: operation,
		Timestamp: time.Now(),
	}
}

// ToJSON converts the message to JSON bytes
func (m *NotificationMessage) ToJSON() ([]byte, error) {
	return json.Marshal(m)
}

// NotificationMessageFromJSON creates a message from JSON bytes
func NotificationMessageFromJSON(data []byte) (*NotificationMessage, error) {
	var msg NotificationMessage
	if err := json.Unmarshal(data, &msg); err != nil {
		return nil, err
	}
	return &msg, nil
}
