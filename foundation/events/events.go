// Package events fans event strings out to any number of subscribers, such
// as websocket clients following the ledger and the miner.
package events

import (
	"fmt"
	"sync"
	"sync/atomic"

	"github.com/google/uuid"
)

// messageBuffer is the number of events held for a subscriber that isn't
// ready to receive. Events beyond that are dropped for that subscriber.
const messageBuffer = 100

// Events maintains the set of subscriber channels.
type Events struct {
	mu      sync.RWMutex
	subs    map[string]chan string
	dropped atomic.Uint64
}

// New constructs an Events value for registering and receiving events.
func New() *Events {
	return &Events{
		subs: make(map[string]chan string),
	}
}

// Acquire registers a new subscriber and returns its id along with the
// channel the events arrive on.
func (evt *Events) Acquire() (string, <-chan string) {
	evt.mu.Lock()
	defer evt.mu.Unlock()

	id := uuid.NewString()
	ch := make(chan string, messageBuffer)
	evt.subs[id] = ch

	return id, ch
}

// Release closes and removes the channel for the subscriber.
func (evt *Events) Release(id string) error {
	evt.mu.Lock()
	defer evt.mu.Unlock()

	ch, exists := evt.subs[id]
	if !exists {
		return fmt.Errorf("subscriber %q does not exist", id)
	}

	delete(evt.subs, id)
	close(ch)

	return nil
}

// Shutdown closes and removes every subscriber channel.
func (evt *Events) Shutdown() {
	evt.mu.Lock()
	defer evt.mu.Unlock()

	for id, ch := range evt.subs {
		delete(evt.subs, id)
		close(ch)
	}
}

// Send delivers the event to every subscriber. Send never blocks waiting
// on a subscriber.
func (evt *Events) Send(s string) {
	evt.mu.RLock()
	defer evt.mu.RUnlock()

	for _, ch := range evt.subs {
		select {
		case ch <- s:
		default:
			evt.dropped.Add(1)
		}
	}
}

// Subscribers returns the number of registered subscribers.
func (evt *Events) Subscribers() int {
	evt.mu.RLock()
	defer evt.mu.RUnlock()

	return len(evt.subs)
}

// Dropped returns the number of events not delivered because a
// subscriber's buffer was full.
func (evt *Events) Dropped() uint64 {
	return evt.dropped.Load()
}
