package model

import (
	"time"
)

// EventType represents the type of thread event.
type EventType string

const (
	EventTypeThreadCreated EventType = "created"
	EventTypeThreadUpdated EventType = "updated"
	EventTypePreference    EventType = "preference"
)

// ThreadEvent is published to JetStream whenever a thread changes.
type ThreadEvent struct {
	ID          string    `json:"id"`
	ThreadID    string    `json:"thread_id"`
	UserID      string    `json:"user_id"`
	Type        EventType `json:"type"`
	Provider    string    `json:"provider,omitempty"`
	ResponseKey string    `json:"response_key,omitempty"`
	CreatedAt   time.Time `json:"created_at"`
}
