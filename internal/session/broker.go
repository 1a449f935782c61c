// Package session owns sign-up, sign-in and the rest of the account
// lifecycle, and announces every change on a Broker so other parts of the
// process can react without sharing mutable state.
package session

import (
	"log/slog"
	"sync"
	"time"
)

// EventType names a session state change.
type EventType string

const (
	SignedUp      EventType = "signed_up"
	SignedIn      EventType = "signed_in"
	SignedOut     EventType = "signed_out"
	Refreshed     EventType = "refreshed"
	EmailVerified EventType = "email_verified"
)

// Event is one session state change.
type Event struct {
	Type   EventType
	UserID string
	Email  string
	At     time.Time
}

// Broker fans session events out to subscribers.  Publish never blocks: a
// subscriber whose buffer is full misses the event and a warning is logged.
type Broker struct {
	mu     sync.RWMutex
	subs   map[int]chan Event
	next   int
	buffer int
	closed bool
	logger *slog.Logger
}

// NewBroker returns a broker whose subscriber channels hold buffer events.
func NewBroker(buffer int, logger *slog.Logger) *Broker {
	if buffer <= 0 {
		buffer = 16
	}
	return &Broker{subs: make(map[int]chan Event), buffer: buffer, logger: logger.With("component", "session-broker")}
}

// Subscribe registers a new subscriber.  The returned func unsubscribes and
// closes the channel; calling it twice is safe.
func (b *Broker) Subscribe() (<-chan Event, func()) {
	b.mu.Lock()
	defer b.mu.Unlock()
	ch := make(chan Event, b.buffer)
	if b.closed {
		close(ch)
		return ch, func() {}
	}
	id := b.next
	b.next++
	b.subs[id] = ch
	var once sync.Once
	return ch, func() {
		once.Do(func() {
			b.mu.Lock()
			defer b.mu.Unlock()
			if c, ok := b.subs[id]; ok {
				delete(b.subs, id)
				close(c)
			}
		})
	}
}

// Publish delivers ev to every subscriber.
func (b *Broker) Publish(ev Event) {
	if ev.At.IsZero() {
		ev.At = time.Now().UTC()
	}
	b.mu.RLock()
	defer b.mu.RUnlock()
	if b.closed {
		return
	}
	for id, ch := range b.subs {
		select {
		case ch <- ev:
		default:
			b.logger.Warn("subscriber buffer full, event dropped", "subscriber", id, "event", ev.Type, "user_id", ev.UserID)
		}
	}
}

// Close closes every subscriber channel.  Later publishes are ignored.
func (b *Broker) Close() {
	b.mu.Lock()
	defer b.mu.Unlock()
	if b.closed {
		return
	}
	b.closed = true
	for id, ch := range b.subs {
		close(ch)
		delete(b.subs, id)
	}
}
