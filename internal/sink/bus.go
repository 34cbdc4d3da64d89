// Package sink delivers interaction events from the frame loop to their consumers.
package sink

import (
	"context"
	"sync"
	"sync/atomic"

	"go.uber.org/zap"

	"github.com/ayusman/pinchglobe/internal/gesture"
)

// Sink consumes interaction events.
type Sink interface {
	Handle(e gesture.Event)
}

// SinkFunc adapts a function to the Sink interface.
type SinkFunc func(e gesture.Event)

// Handle calls f(e).
func (f SinkFunc) Handle(e gesture.Event) { f(e) }

// Subscription is a buffered channel of events fed by a Bus.
type Subscription struct {
	id   uint64
	ch   chan gesture.Event
	bus  *Bus
	once sync.Once
}

// C returns the channel events arrive on. It is closed by Close.
func (s *Subscription) C() <-chan gesture.Event {
	return s.ch
}

// Close detaches the subscription from its bus.
func (s *Subscription) Close() {
	s.once.Do(func() {
		s.bus.unsubscribe(s.id)
	})
}

// Bus fans events out to attached sinks and channel subscribers.
//
// Attached sinks run synchronously inside Publish and must not block.
// Subscribers are fed without blocking; when a subscriber's buffer is
// full the event is dropped for that subscriber and counted.
type Bus struct {
	log *zap.Logger

	mu     sync.RWMutex
	sinks  []Sink
	subs   map[uint64]*Subscription
	nextID uint64

	published atomic.Uint64
	dropped   atomic.Uint64
}

// NewBus creates an empty bus.
func NewBus(log *zap.Logger) *Bus {
	if log == nil {
		log = zap.NewNop()
	}
	return &Bus{
		log:  log.With(zap.String("component", "bus")),
		subs: make(map[uint64]*Subscription),
	}
}

// Attach adds a synchronous sink.
func (b *Bus) Attach(s Sink) {
	b.mu.Lock()
	defer b.mu.Unlock()
	b.sinks = append(b.sinks, s)
}

// Subscribe returns a subscription with the given buffer size.
func (b *Bus) Subscribe(buffer int) *Subscription {
	if buffer < 1 {
		buffer = 1
	}

	b.mu.Lock()
	defer b.mu.Unlock()

	b.nextID++
	sub := &Subscription{id: b.nextID, ch: make(chan gesture.Event, buffer), bus: b}
	b.subs[sub.id] = sub
	return sub
}

func (b *Bus) unsubscribe(id uint64) {
	b.mu.Lock()
	defer b.mu.Unlock()

	if sub, ok := b.subs[id]; ok {
		delete(b.subs, id)
		close(sub.ch)
	}
}

// Publish delivers events in order to every sink and subscriber.
func (b *Bus) Publish(events ...gesture.Event) {
	if len(events) == 0 {
		return
	}

	b.mu.RLock()
	defer b.mu.RUnlock()

	for _, e := range events {
		b.published.Add(1)
		for _, s := range b.sinks {
			s.Handle(e)
		}
		for _, sub := range b.subs {
			select {
			case sub.ch <- e:
			default:
				if b.dropped.Add(1)%100 == 1 {
					b.log.Warn("subscriber buffer full, dropping events",
						zap.Uint64("subscriber", sub.id),
						zap.Uint64("dropped_total", b.dropped.Load()),
					)
				}
			}
		}
	}
}

// Published returns the number of events published so far.
func (b *Bus) Published() uint64 {
	return b.published.Load()
}

// Dropped returns the number of subscriber deliveries dropped so far.
func (b *Bus) Dropped() uint64 {
	return b.dropped.Load()
}

// Subscribers returns the number of active subscriptions.
func (b *Bus) Subscribers() int {
	b.mu.RLock()
	defer b.mu.RUnlock()
	return len(b.subs)
}

// Forward feeds a sink from its own subscription until ctx is done.
// Use it for sinks that perform I/O or are not safe to call from the
// frame loop.
func (b *Bus) Forward(ctx context.Context, buffer int, s Sink) {
	sub := b.Subscribe(buffer)
	go func() {
		defer sub.Close()
		for {
			select {
			case <-ctx.Done():
				return
			case e, ok := <-sub.C():
				if !ok {
					return
				}
				s.Handle(e)
			}
		}
	}()
}
