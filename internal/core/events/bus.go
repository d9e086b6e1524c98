// Package events is a thread-safe, in-process pub/sub bus for engine
// signals (scene switches, collision notifications, export progress).
//
// Key characteristics:
// - Type-based fan-out: handlers subscribe by Event.Type string.
// - Synchronous delivery: Publish calls handlers in the caller goroutine.
// - Error aggregation: handler errors are joined and returned from Publish.
//
// Handlers run on the tick thread when the engine publishes; they should
// be quick or offload heavy work.
package events

import (
	"errors"
	"sync"
	"time"

	"github.com/google/uuid"
)

// Well-known engine signal types.
const (
	TypeSceneActivated   = "scene.activated"
	TypeSceneDeactivated = "scene.deactivated"
	TypeCollision        = "physics.collision"
	TypeTimerTimeout     = "timer.timeout"
	TypeExportProgress   = "export.progress"
)

// Event is an immutable message. Type is the routing key; Data is an
// opaque payload for consumers.
type Event struct {
	Type      string
	Source    string
	Timestamp time.Time
	Data      any
}

// New builds an event stamped with the current time.
func New(typ, source string, data any) Event {
	return Event{Type: typ, Source: source, Timestamp: time.Now(), Data: data}
}

// Handler is invoked per delivered event. A returned error is aggregated
// into the Publish result without stopping delivery to other handlers.
type Handler func(Event) error

// Filter decides whether an event is delivered. Any filter returning
// false drops the event silently.
type Filter func(Event) bool

// Subscription is a handle for a registered handler.
type Subscription struct {
	id        string
	eventType string
	bus       *Bus
}

func (s *Subscription) ID() string        { return s.id }
func (s *Subscription) EventType() string { return s.eventType }

// Cancel unregisters the handler. Safe to call more than once.
func (s *Subscription) Cancel() {
	if s.bus != nil {
		s.bus.remove(s.eventType, s.id)
		s.bus = nil
	}
}

// Bus is the in-memory implementation. The zero value is not usable; use
// NewBus.
type Bus struct {
	mu       sync.RWMutex
	handlers map[string]map[string]Handler
}

func NewBus() *Bus {
	return &Bus{handlers: make(map[string]map[string]Handler)}
}

// Subscribe registers a handler for an event type.
func (b *Bus) Subscribe(eventType string, h Handler) *Subscription {
	b.mu.Lock()
	defer b.mu.Unlock()
	m, ok := b.handlers[eventType]
	if !ok {
		m = make(map[string]Handler)
		b.handlers[eventType] = m
	}
	id := uuid.NewString()
	m[id] = h
	return &Subscription{id: id, eventType: eventType, bus: b}
}

// Publish delivers the event synchronously to all subscribers of its
// type. Handler errors are joined and returned.
func (b *Bus) Publish(ev Event) error {
	b.mu.RLock()
	m := b.handlers[ev.Type]
	snapshot := make([]Handler, 0, len(m))
	for _, h := range m {
		snapshot = append(snapshot, h)
	}
	b.mu.RUnlock()

	var errs []error
	for _, h := range snapshot {
		if err := h(ev); err != nil {
			errs = append(errs, err)
		}
	}
	return errors.Join(errs...)
}

// PublishWithFilters applies filters before delivery; a rejected event is
// dropped without error.
func (b *Bus) PublishWithFilters(ev Event, filters ...Filter) error {
	for _, f := range filters {
		if !f(ev) {
			return nil
		}
	}
	return b.Publish(ev)
}

// PublishAsync delivers on a separate goroutine; the returned channel
// receives the joined error (or nil) and is then closed.
func (b *Bus) PublishAsync(ev Event) <-chan error {
	ch := make(chan error, 1)
	go func() {
		ch <- b.Publish(ev)
		close(ch)
	}()
	return ch
}

// SubscriberCount reports active handlers for an event type.
func (b *Bus) SubscriberCount(eventType string) int {
	b.mu.RLock()
	defer b.mu.RUnlock()
	return len(b.handlers[eventType])
}

func (b *Bus) remove(eventType, id string) {
	b.mu.Lock()
	defer b.mu.Unlock()
	if m, ok := b.handlers[eventType]; ok {
		delete(m, id)
		if len(m) == 0 {
			delete(b.handlers, eventType)
		}
	}
}
