package service

import (
	"sync"
	"time"
)

// EventType defines the type of event
type EventType string

const (
	EventRecordResolved    EventType = "record-resolved"
	EventAlignmentComplete EventType = "alignment-complete"
	EventGraphBuilt        EventType = "graph-built"
	EventPipelineFailed    EventType = "pipeline-failed"
)

// Event represents an event that occurred in the pipeline
type Event struct {
	Type      EventType   `json:"type"`
	Timestamp time.Time   `json:"timestamp"`
	Payload   interface{} `json:"payload,omitempty"`
}

// EventBus allows publishing and subscribing to events
type EventBus struct {
	mu          sync.RWMutex
	subscribers []chan<- Event
}

// NewEventBus creates a new event bus
func NewEventBus() *EventBus {
	return &EventBus{
		subscribers: make([]chan<- Event, 0),
	}
}

// Subscribe adds a subscriber to receive events
func (eb *EventBus) Subscribe(ch chan<- Event) {
	eb.mu.Lock()
	defer eb.mu.Unlock()
	eb.subscribers = append(eb.subscribers, ch)
}

// Publish sends an event to all subscribers without blocking
func (eb *EventBus) Publish(event Event) {
	if event.Timestamp.IsZero() {
		event.Timestamp = time.Now().UTC()
	}

	eb.mu.RLock()
	defer eb.mu.RUnlock()
	for _, ch := range eb.subscribers {
		select {
		case ch <- event:
		default:
			// Subscriber is slow, skip
		}
	}
}

// Forward relays every event to fn until stop is closed
func (eb *EventBus) Forward(fn func(Event), stop <-chan struct{}) {
	ch := make(chan Event, 256)
	eb.Subscribe(ch)
	go func() {
		for {
			select {
			case ev := <-ch:
				fn(ev)
			case <-stop:
				return
			}
		}
	}()
}

// EventName names the event on the SSE stream
func (e Event) EventName() string {
	return string(e.Type)
}
