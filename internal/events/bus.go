// Package events delivers canonical data updates to subscribers. Each
// subscriber owns a buffered channel drained by its own goroutine, so
// a slow consumer can never block the publisher; when a subscriber
// falls too far behind, updates are dropped for that subscriber only.
package events

import (
	"sync"

	"github.com/google/uuid"

	"github.com/Brobert48/nhl-led-scoreboard/internal/logger"
)

// Handler receives one canonical payload per fresh update.
type Handler func(domainName string, payload map[string]any)

// update is one queued delivery.
type update struct {
	domain  string
	payload map[string]any
}

// subscriber is one registered handler with its delivery queue.
type subscriber struct {
	id      string
	handler Handler
	queue   chan update
}

// subscriberBuffer is how many undelivered updates a subscriber may
// accumulate before new ones are dropped for it.
const subscriberBuffer = 16

// Bus fans canonical updates out to per-domain subscribers. Safe for
// concurrent use.
type Bus struct {
	log logger.Interface

	mu     sync.RWMutex
	subs   map[string]map[string]*subscriber
	closed bool

	wg sync.WaitGroup
}

// NewBus creates an empty bus.
func NewBus(log logger.Interface) *Bus {
	return &Bus{
		log:  log,
		subs: make(map[string]map[string]*subscriber),
	}
}

// Subscribe registers a handler for a domain and returns the
// subscription id used to unsubscribe.
func (b *Bus) Subscribe(domainName string, handler Handler) string {
	sub := &subscriber{
		id:      uuid.NewString(),
		handler: handler,
		queue:   make(chan update, subscriberBuffer),
	}

	b.mu.Lock()
	defer b.mu.Unlock()

	if b.closed {
		return sub.id
	}

	if b.subs[domainName] == nil {
		b.subs[domainName] = make(map[string]*subscriber)
	}
	b.subs[domainName][sub.id] = sub

	b.wg.Add(1)
	go b.deliver(sub)

	return sub.id
}

// Unsubscribe removes a subscription. Unknown ids are a no-op.
func (b *Bus) Unsubscribe(domainName, id string) {
	b.mu.Lock()
	defer b.mu.Unlock()

	sub, ok := b.subs[domainName][id]
	if !ok {
		return
	}

	delete(b.subs[domainName], id)
	close(sub.queue)
}

// Publish queues a payload for every subscriber of the domain. Never
// blocks: a subscriber with a full queue misses this update.
func (b *Bus) Publish(domainName string, payload map[string]any) {
	b.mu.RLock()
	defer b.mu.RUnlock()

	if b.closed {
		return
	}

	for _, sub := range b.subs[domainName] {
		select {
		case sub.queue <- update{domain: domainName, payload: payload}:
		default:
			b.log.Warn("dropping update for slow subscriber",
				"domain", domainName,
				"subscriber", sub.id,
			)
		}
	}
}

// deliver drains one subscriber's queue until it is closed.
func (b *Bus) deliver(sub *subscriber) {
	defer b.wg.Done()

	for u := range sub.queue {
		sub.handler(u.domain, u.payload)
	}
}

// Close stops accepting publishes, closes every queue and waits for
// in-flight deliveries to finish.
func (b *Bus) Close() {
	b.mu.Lock()
	if b.closed {
		b.mu.Unlock()
		return
	}
	b.closed = true

	for _, domainSubs := range b.subs {
		for id, sub := range domainSubs {
			delete(domainSubs, id)
			close(sub.queue)
		}
	}
	b.mu.Unlock()

	b.wg.Wait()
}
