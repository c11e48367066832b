// Package events republishes decoded worker events to the presentation
// layer over a single bounded, ordered channel.
package events

import (
	"sync"

	"github.com/ojin-ai/agents-desktop/backend/internal/logging"
	"github.com/ojin-ai/agents-desktop/backend/internal/protocol"
	"go.uber.org/zap"
)

// subscriberBuffer bounds in-flight deliveries to a slow subscriber. At
// 30fps video this is several seconds of headroom.
const subscriberBuffer = 256

// Emitter fans worker events out to exactly one active subscriber.
//
// Subscription is idempotent in effect: subscribing again revokes the
// previous subscription instead of duplicating delivery. This guards
// against double-initialization in the presentation layer: a duplicate
// subscriber must never see a second copy of the stream.
type Emitter struct {
	log *logging.Logger

	mu      sync.Mutex
	active  *Subscription
	dropped func() // metrics hook, may be nil
}

// Subscription is one subscriber's view of the event stream. C yields
// events in exact arrival order and is closed when the subscription is
// revoked or closed.
type Subscription struct {
	C <-chan protocol.Event

	emitter *Emitter
	ch      chan protocol.Event
	once    sync.Once
}

// NewEmitter creates an emitter with no subscriber attached.
func NewEmitter(log *logging.Logger) *Emitter {
	return &Emitter{log: log.Component("events")}
}

// OnDrop registers a hook invoked whenever a delivery is dropped.
func (e *Emitter) OnDrop(fn func()) {
	e.mu.Lock()
	defer e.mu.Unlock()
	e.dropped = fn
}

// Subscribe attaches the caller as the single active subscriber, revoking
// any previous subscription.
func (e *Emitter) Subscribe() *Subscription {
	ch := make(chan protocol.Event, subscriberBuffer)
	sub := &Subscription{C: ch, emitter: e, ch: ch}

	e.mu.Lock()
	prev := e.active
	e.active = sub
	e.mu.Unlock()

	if prev != nil {
		e.log.Warn("replacing existing event subscriber")
		prev.release()
	}
	return sub
}

// Publish delivers ev to the active subscriber. With no subscriber, or a
// subscriber too far behind, the event is dropped, never reordered or
// held back. Frame latency matters more than completeness for a stalled
// presentation layer.
func (e *Emitter) Publish(ev protocol.Event) {
	// The send happens under the mutex so a concurrent Subscribe cannot
	// close the channel between the nil check and the send. The send is
	// non-blocking, so holding the lock here is cheap.
	e.mu.Lock()
	defer e.mu.Unlock()

	if e.active == nil {
		if e.dropped != nil {
			e.dropped()
		}
		return
	}

	select {
	case e.active.ch <- ev:
	default:
		e.log.Warn("subscriber too slow, dropping event", zap.String("type", string(ev.Type)))
		if e.dropped != nil {
			e.dropped()
		}
	}
}

// Close detaches the subscription. Safe to call multiple times; after the
// first call C drains and then closes.
func (s *Subscription) Close() {
	s.emitter.mu.Lock()
	if s.emitter.active == s {
		s.emitter.active = nil
	}
	s.emitter.mu.Unlock()
	s.release()
}

// release closes the delivery channel exactly once. The close runs under
// the emitter mutex so it cannot race a Publish in flight; by the time
// release is reached the subscription is no longer active, so no further
// sends can target it.
func (s *Subscription) release() {
	s.once.Do(func() {
		s.emitter.mu.Lock()
		close(s.ch)
		s.emitter.mu.Unlock()
	})
}
