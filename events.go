package bingo

import (
	"time"

	"github.com/google/uuid"
)

// GenerationEventType indicates whether a generation request succeeded.
type GenerationEventType string

const (
	EventTypeGenerated GenerationEventType = "generated"
	EventTypeFailed    GenerationEventType = "failed"
)

// GenerationEvent describes the outcome of a single generation request. It is
// dispatched to every interested subscriber once the request has finished.
type GenerationEvent struct {
	ID      uuid.UUID           `json:"id"`
	Type    GenerationEventType `json:"event_type"`
	Created time.Time           `json:"creation_timestamp"`
	Message string              `json:"message"`
	// GridID is uuid.Nil for failed generations
	GridID   uuid.UUID `json:"grid_id"`
	Mode     Mode      `json:"mode"`
	Size     int       `json:"size"`
	Free     bool      `json:"free"`
	Pool     int       `json:"pool"`
	Attempts int       `json:"attempts"`
	Score    int       `json:"score"`
}

// EventSubscriber is anything that lets a system listen to generation events.
type EventSubscriber interface {
	// Subscribe lets any external system subscribe to generation events of
	// specific types. If the provided slice is nil or empty, that causes the
	// system to subscribe to ALL events.
	Subscribe(types []GenerationEventType) (eventReceiver <-chan GenerationEvent, unsubscribe func(), err error)
}
