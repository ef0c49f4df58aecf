package hub

import (
	"fmt"
	"sync"
	"sync/atomic"

	drepo "TradePulse/internal/domain/repository"
	applogger "TradePulse/pkg/logger"
)

// Envelope is what subscribers receive: the group the payload was
// published to plus the payload itself.
type Envelope struct {
	Hub     string
	Group   string
	Payload interface{}
}

type subscriber struct {
	id string
	ch chan Envelope
}

// Broadcaster fans payloads out to channel-based subscribers through
// the registry's connection/group bookkeeping. Each subscriber is a
// synthetic hub connection; a payload is delivered at most once per
// connection even when published to overlapping groups. Slow consumers
// lose the oldest buffered envelope rather than stalling publishers.
type Broadcaster struct {
	registry *Registry
	logger   *applogger.Logger
	metrics  drepo.Metrics

	mu     sync.RWMutex
	subs   map[string]*subscriber // connID -> subscriber
	nextID atomic.Uint64
}

// NewBroadcaster wires a Broadcaster over the registry.
func NewBroadcaster(registry *Registry, logger *applogger.Logger, metrics drepo.Metrics) *Broadcaster {
	return &Broadcaster{
		registry: registry,
		logger:   logger,
		metrics:  metrics,
		subs:     make(map[string]*subscriber),
	}
}

// Subscribe registers a synthetic connection in the hub, joins it to the
// group, and returns its delivery channel plus a cancel func that tears
// the subscription down. The buffer bounds how far a slow consumer may
// lag before envelopes are dropped oldest-first.
func (b *Broadcaster) Subscribe(hub, group string, buffer int) (<-chan Envelope, func()) {
	if buffer <= 0 {
		buffer = 64
	}
	id := fmt.Sprintf("sub-%d", b.nextID.Add(1))
	sub := &subscriber{id: id, ch: make(chan Envelope, buffer)}

	b.mu.Lock()
	b.subs[id] = sub
	b.mu.Unlock()

	b.registry.RegisterConnection(hub, id)
	b.registry.AddToGroup(hub, id, group)

	cancel := func() {
		b.registry.UnregisterConnection(hub, id)
		b.mu.Lock()
		if cur, ok := b.subs[id]; ok && cur == sub {
			delete(b.subs, id)
			close(sub.ch)
		}
		b.mu.Unlock()
	}
	return sub.ch, cancel
}

// Join adds an existing subscription's connection to another group on
// the same hub.
func (b *Broadcaster) Join(hub, connID, group string) {
	b.registry.AddToGroup(hub, connID, group)
}

// Publish delivers the payload to every connection subscribed to the
// group, once per connection.
func (b *Broadcaster) Publish(hub, group string, payload interface{}) {
	members := b.registry.GroupMembers(hub, group)
	if len(members) == 0 {
		return
	}
	env := Envelope{Hub: hub, Group: group, Payload: payload}

	b.mu.RLock()
	defer b.mu.RUnlock()
	delivered := 0
	for _, id := range members {
		sub, ok := b.subs[id]
		if !ok {
			continue
		}
		b.deliver(sub, env)
		delivered++
	}
	if delivered > 0 && b.metrics != nil {
		b.metrics.RecordBroadcast(hub)
	}
}

// deliver enqueues with drop-oldest semantics: if the subscriber's
// buffer is full, the oldest envelope is discarded to make room.
func (b *Broadcaster) deliver(sub *subscriber, env Envelope) {
	select {
	case sub.ch <- env:
		return
	default:
	}
	select {
	case <-sub.ch:
	default:
	}
	select {
	case sub.ch <- env:
	default:
		// subscriber is being torn down concurrently; drop
		if b.logger != nil {
			b.logger.Debug("hub: dropped envelope for slow subscriber", applogger.String("sub", sub.id))
		}
	}
}

var _ drepo.Broadcaster = (*Broadcaster)(nil)
