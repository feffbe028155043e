package batch

import (
	"sync"

	"github.com/apexwatch/face-enroll/internal/constants"
)

// EventType identifies a pipeline event.
type EventType string

// Pipeline event types. Progress fires after every item-state change;
// Completed fires exactly once per run.
const (
	EventItemAdded   EventType = "item_added"
	EventItemUpdated EventType = "item_updated"
	EventItemRemoved EventType = "item_removed"
	EventCleared     EventType = "cleared"
	EventProgress    EventType = "progress"
	EventPaused      EventType = "paused"
	EventResumed     EventType = "resumed"
	EventCompleted   EventType = "completed"
)

// Event is one pipeline notification delivered to subscribers.
type Event struct {
	Type    EventType `json:"type"`
	Message string    `json:"message,omitempty"`
	Data    any       `json:"data,omitempty"`
}

// EventBroadcaster provides listener management and event fan-out for the
// pipeline. Registration is symmetric: every AddListener must be paired with
// a RemoveListener or the channel leaks across batch runs.
type EventBroadcaster struct {
	mu        sync.RWMutex
	listeners []chan Event
}

// AddListener adds an event listener.
func (b *EventBroadcaster) AddListener() chan Event {
	b.mu.Lock()
	defer b.mu.Unlock()
	ch := make(chan Event, constants.EventBufferSize)
	b.listeners = append(b.listeners, ch)
	return ch
}

// RemoveListener removes an event listener and closes its channel.
func (b *EventBroadcaster) RemoveListener(ch chan Event) {
	b.mu.Lock()
	defer b.mu.Unlock()
	for i, listener := range b.listeners {
		if listener == ch {
			b.listeners = append(b.listeners[:i], b.listeners[i+1:]...)
			close(ch)
			return
		}
	}
}

// SendEvent sends an event to all listeners.
func (b *EventBroadcaster) SendEvent(event Event) {
	b.mu.RLock()
	defer b.mu.RUnlock()
	for _, listener := range b.listeners {
		select {
		case listener <- event:
		default:
			// Listener buffer full, skip.
		}
	}
}
