package inbound

import (
	"context"
	"sync"
	"time"
)

// EventKind identifies what happened to a call.
type EventKind string

const (
	// EventInvalidSignature is emitted for every rejected signature
	EventInvalidSignature EventKind = "invalid_signature"
	// EventInvalidMessage is emitted when a transport cannot turn a request into a call
	EventInvalidMessage EventKind = "invalid_inbound_message"
	EventSkipped        EventKind = "skipped"
	EventStored         EventKind = "stored"
	EventDispatched     EventKind = "dispatched"
	EventDispatchFailed EventKind = "dispatch_failed"
)

// Event describes one observable outcome of the pipeline.
type Event struct {
	Kind     EventKind
	Endpoint string
	// Call is set for events raised while processing a call
	Call     *Call
	RecordID string
	// Reason and RawPayload are set for EventInvalidMessage
	Reason     string
	RawPayload []byte
	Err        error
	OccurredAt time.Time
}

// Listener observes pipeline events. Notify is called synchronously on the
// request path, so implementations must hand off anything slow.
type Listener interface {
	Notify(ctx context.Context, ev Event)
}

// ListenerFunc adapts a function to a Listener
type ListenerFunc func(ctx context.Context, ev Event)

func (f ListenerFunc) Notify(ctx context.Context, ev Event) {
	f(ctx, ev)
}

// Notifier fans events out to its listeners.
type Notifier struct {
	mu        sync.RWMutex
	listeners []Listener
	now       func() time.Time
}

// NewNotifier creates a notifier with the given listeners
func NewNotifier(listeners ...Listener) *Notifier {
	return &Notifier{listeners: listeners, now: time.Now}
}

// Subscribe adds a listener
func (n *Notifier) Subscribe(l Listener) {
	n.mu.Lock()
	defer n.mu.Unlock()
	n.listeners = append(n.listeners, l)
}

// Notify delivers ev to every listener in subscription order
func (n *Notifier) Notify(ctx context.Context, ev Event) {
	if n == nil {
		return
	}
	if ev.OccurredAt.IsZero() {
		ev.OccurredAt = n.now()
	}

	n.mu.RLock()
	listeners := n.listeners
	n.mu.RUnlock()

	for _, l := range listeners {
		l.Notify(ctx, ev)
	}
}

// InvalidMessage emits EventInvalidMessage for a request that could not be read
func (n *Notifier) InvalidMessage(ctx context.Context, endpoint, reason string, rawPayload []byte) {
	n.Notify(ctx, Event{
		Kind:       EventInvalidMessage,
		Endpoint:   endpoint,
		Reason:     reason,
		RawPayload: rawPayload,
	})
}
