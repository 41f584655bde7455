// Package eventbus is the process-wide Event Channel.
package eventbus

import (
	"sync"

	"github.com/goran-ethernal/DDOIndexor/internal/logger"
	"github.com/goran-ethernal/DDOIndexor/pkg/indexer"
)

// AnyKind subscribes to every event kind.
const AnyKind indexer.EventKind = "*"

const defaultBuffer = 256

// Handler receives notifications on the subscriber's own goroutine.
type Handler func(indexer.WorkerEvent)

type subscriber struct {
	id      uint64
	kind    indexer.EventKind
	ch      chan indexer.WorkerEvent
	handler Handler
	once    sync.Once
}

// Bus broadcasts notifications to subscribers.
// Publishing never blocks: a subscriber whose queue is full misses the notification.
type Bus struct {
	mu     sync.RWMutex
	subs   map[indexer.EventKind]map[uint64]*subscriber
	nextID uint64
	buffer int
	closed bool
	wg     sync.WaitGroup
	log    *logger.Logger
}

// New creates a bus whose subscribers queue up to buffer notifications each.
func New(buffer int, log *logger.Logger) *Bus {
	if buffer <= 0 {
		buffer = defaultBuffer
	}
	return &Bus{
		subs:   make(map[indexer.EventKind]map[uint64]*subscriber),
		buffer: buffer,
		log:    log,
	}
}

// Subscribe registers handler for kind and returns the function that removes it.
// Use AnyKind to receive every notification.
func (b *Bus) Subscribe(kind indexer.EventKind, handler Handler) (unsubscribe func()) {
	b.mu.Lock()
	defer b.mu.Unlock()

	if b.closed {
		return func() {}
	}

	b.nextID++
	sub := &subscriber{
		id:      b.nextID,
		kind:    kind,
		ch:      make(chan indexer.WorkerEvent, b.buffer),
		handler: handler,
	}

	if b.subs[kind] == nil {
		b.subs[kind] = make(map[uint64]*subscriber)
	}
	b.subs[kind][sub.id] = sub
	subscribersGauge.Inc()

	b.wg.Add(1)
	go b.deliver(sub)

	return func() { b.remove(sub) }
}

func (b *Bus) deliver(sub *subscriber) {
	defer b.wg.Done()
	for ev := range sub.ch {
		b.safeCall(sub, ev)
	}
}

func (b *Bus) safeCall(sub *subscriber, ev indexer.WorkerEvent) {
	defer func() {
		if r := recover(); r != nil {
			b.log.Errorw("event handler panicked", "kind", ev.Kind, "subscriber", sub.id, "panic", r)
		}
	}()
	sub.handler(ev)
}

func (b *Bus) remove(sub *subscriber) {
	b.mu.Lock()
	defer b.mu.Unlock()
	b.closeSubscriber(sub)
}

// closeSubscriber must be called with mu held.
func (b *Bus) closeSubscriber(sub *subscriber) {
	sub.once.Do(func() {
		delete(b.subs[sub.kind], sub.id)
		close(sub.ch)
		subscribersGauge.Dec()
	})
}

// Publish offers ev to every subscriber of its kind and of AnyKind.
// It returns the number of subscribers that accepted it.
func (b *Bus) Publish(ev indexer.WorkerEvent) int {
	b.mu.RLock()
	defer b.mu.RUnlock()

	if b.closed {
		return 0
	}

	delivered := 0
	for _, kind := range []indexer.EventKind{ev.Kind, AnyKind} {
		for _, sub := range b.subs[kind] {
			select {
			case sub.ch <- ev:
				delivered++
			default:
				eventsDropped.WithLabelValues(string(ev.Kind)).Inc()
				b.log.Warnw("subscriber queue full, notification dropped",
					"kind", ev.Kind, "chain_id", ev.ChainID, "did", ev.DID, "subscriber", sub.id)
			}
		}
	}

	eventsPublished.WithLabelValues(string(ev.Kind)).Inc()
	return delivered
}

// Close removes every subscriber and waits for queued notifications to be handled.
func (b *Bus) Close() {
	b.mu.Lock()
	if b.closed {
		b.mu.Unlock()
		return
	}
	b.closed = true
	for _, subs := range b.subs {
		for _, sub := range subs {
			b.closeSubscriber(sub)
		}
	}
	b.mu.Unlock()

	b.wg.Wait()
}
