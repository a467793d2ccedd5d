// Package events defines the event types carried by the EventBus.
package events

import (
	"time"

	"github.com/mcnotify/mcnotify/internal/status"
)

// EventType represents the type of event emitted through the EventBus.
type EventType string

const (
	// EventStatusChanged carries a *status.Status whose online player count
	// differs from the previous successful probe.
	EventStatusChanged EventType = "status_changed"

	// EventShutdown is emitted once when the process stops polling.
	EventShutdown EventType = "shutdown"
)

// Event represents a single event in the system.
type Event struct {
	Type      EventType
	Source    string
	Payload   interface{}
	Timestamp time.Time
}

// StatusChanged returns the event announcing st.
func StatusChanged(source string, st *status.Status) Event {
	return Event{
		Type:      EventStatusChanged,
		Source:    source,
		Payload:   st,
		Timestamp: time.Now(),
	}
}

// Status returns the status carried by an EventStatusChanged event.
func (e Event) Status() (*status.Status, bool) {
	st, ok := e.Payload.(*status.Status)
	return st, ok && st != nil
}
