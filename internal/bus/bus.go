// Package bus provides the in-process telemetry stream: a bounded replay
// ring with handler fan-out, plus derived counters.
package bus

import (
	"sync"
	"time"

	"github.com/google/uuid"
)

// Event types published by the gateway.
const (
	EventQueryReceived    = "query_received"
	EventPrivacyProcessed = "privacy_processed"
	EventRiskBlocked      = "risk_blocked"
	EventConsentRequired  = "consent_required"
	EventConsentDecision  = "consent_decision"
	EventIngestSuccess    = "ingest_success"
	EventIngestError      = "ingest_error"
	EventAnswerRequest    = "archestra_request"
	EventAnswerResponse   = "archestra_response"
	EventMemorySaved      = "memory_saved"
)

// DefaultCapacity bounds the replay ring when no capacity is configured.
const DefaultCapacity = 200

// Event is one telemetry record.
type Event struct {
	ID        string         `json:"id"`
	Type      string         `json:"type"`
	Timestamp string         `json:"timestamp"`
	Payload   map[string]any `json:"payload,omitempty"`
}

// Handler receives every published event.
type Handler func(Event)

// Bus fans events out to handlers and keeps the most recent N for replay.
type Bus struct {
	mu       sync.Mutex
	ring     []Event
	capacity int
	handlers map[int]Handler
	nextID   int
}

// New creates a bus with the given ring capacity.
func New(capacity int) *Bus {
	if capacity <= 0 {
		capacity = DefaultCapacity
	}
	return &Bus{
		capacity: capacity,
		handlers: make(map[int]Handler),
	}
}

// Publish assigns an id and timestamp, appends with front eviction on
// overflow, and invokes every handler. Handler panics are swallowed so one
// broken subscriber cannot break telemetry.
func (b *Bus) Publish(eventType string, payload map[string]any) Event {
	ev := Event{
		ID:        uuid.NewString(),
		Type:      eventType,
		Timestamp: time.Now().UTC().Format(time.RFC3339Nano),
		Payload:   payload,
	}

	b.mu.Lock()
	b.ring = append(b.ring, ev)
	if len(b.ring) > b.capacity {
		b.ring = b.ring[len(b.ring)-b.capacity:]
	}
	handlers := make([]Handler, 0, len(b.handlers))
	for _, h := range b.handlers {
		handlers = append(handlers, h)
	}
	b.mu.Unlock()

	for _, h := range handlers {
		safeInvoke(h, ev)
	}
	return ev
}

func safeInvoke(h Handler, ev Event) {
	defer func() {
		_ = recover()
	}()
	h(ev)
}

// Subscribe registers a handler and returns an unsubscribe func.
func (b *Bus) Subscribe(h Handler) func() {
	b.mu.Lock()
	id := b.nextID
	b.nextID++
	b.handlers[id] = h
	b.mu.Unlock()

	return func() {
		b.mu.Lock()
		delete(b.handlers, id)
		b.mu.Unlock()
	}
}

// Events returns a copy of the replay ring, oldest first.
func (b *Bus) Events() []Event {
	b.mu.Lock()
	defer b.mu.Unlock()
	out := make([]Event, len(b.ring))
	copy(out, b.ring)
	return out
}
