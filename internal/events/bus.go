// ABOUTME: Synchronous in-order publish/subscribe router with failure isolation
// ABOUTME: Subscriber table is owned by the dispatch loop; cancellation is lock-free

package events

import (
	"fmt"
	"log/slog"
	"runtime/debug"
	"sync/atomic"

	"github.com/google/uuid"
)

// Handler receives an event. A returned error is reported, never propagated.
type Handler func(Event) error

// FailureHook is told about handler errors and recovered panics.
type FailureHook func(ev Event, subscriptionID string, err error)

// Subscription is the handle returned by Subscribe. Cancelling it stops
// future delivery.
type Subscription struct {
	id        string
	eventType Type
	handler   Handler
	cancelled atomic.Bool
	onCancel  func()
}

// ID returns the unique subscription identifier.
func (s *Subscription) ID() string { return s.id }

// Type returns the event type this subscription filters on.
func (s *Subscription) Type() Type { return s.eventType }

// Active reports whether the subscription still receives events.
func (s *Subscription) Active() bool { return !s.cancelled.Load() }

// Cancel stops delivery. Safe to call from any goroutine, more than once.
func (s *Subscription) Cancel() {
	if !s.cancelled.CompareAndSwap(false, true) {
		return
	}
	if s.onCancel != nil {
		s.onCancel()
	}
}

func (s *Subscription) matches(t Type) bool {
	return s.eventType == AnyType || s.eventType == t
}

// Bus routes events to subscribers. Publish and Subscribe must be called
// from the single loop that owns core state.
type Bus struct {
	subs      []*Subscription // registration order
	pending   []Event         // published while dispatching
	inflight  bool
	onFailure FailureHook
	logger    *slog.Logger
}

// NewBus creates a bus. Pass nil logger for default.
func NewBus(logger *slog.Logger) *Bus {
	if logger == nil {
		logger = slog.Default()
	}
	return &Bus{
		logger: logger.With("component", "bus"),
	}
}

// OnHandlerError installs the hook told about failing handlers.
func (b *Bus) OnHandlerError(hook FailureHook) {
	b.onFailure = hook
}

// Subscribe registers handler for events of type t (or AnyType).
func (b *Bus) Subscribe(t Type, handler Handler) *Subscription {
	sub := &Subscription{
		id:        uuid.New().String(),
		eventType: t,
		handler:   handler,
	}
	b.subs = append(b.subs, sub)

	b.logger.Debug("subscriber added",
		"event_type", t,
		"sub_id", sub.id)
	return sub
}

// Publish delivers ev to every live matching subscriber, in registration
// order, before returning. An event published from inside a handler is
// queued and delivered after the current event reaches every subscriber, so
// every subscriber sees events in publish order.
func (b *Bus) Publish(ev Event) {
	b.pending = append(b.pending, ev)
	if b.inflight {
		return
	}

	b.inflight = true
	defer func() { b.inflight = false }()

	for len(b.pending) > 0 {
		next := b.pending[0]
		b.pending = b.pending[1:]
		b.dispatch(next)
	}
	b.pending = nil
	b.prune()
}

// Len returns the number of live subscriptions.
func (b *Bus) Len() int {
	n := 0
	for _, sub := range b.subs {
		if sub.Active() {
			n++
		}
	}
	return n
}

func (b *Bus) dispatch(ev Event) {
	// Snapshot: subscribers added by a handler are not called for ev.
	targets := make([]*Subscription, len(b.subs))
	copy(targets, b.subs)

	for _, sub := range targets {
		if !sub.Active() || !sub.matches(ev.Type) {
			continue
		}
		if err := b.invoke(sub, ev); err != nil {
			b.fail(ev, sub, err)
		}
	}
}

func (b *Bus) invoke(sub *Subscription, ev Event) (err error) {
	defer func() {
		if r := recover(); r != nil {
			b.logger.Error("subscriber panicked",
				"event_type", ev.Type,
				"sub_id", sub.id,
				"panic", r,
				"stack", string(debug.Stack()))
			err = fmt.Errorf("handler panic: %v", r)
		}
	}()
	return sub.handler(ev)
}

func (b *Bus) fail(ev Event, sub *Subscription, err error) {
	b.logger.Warn("subscriber failed",
		"event_type", ev.Type,
		"event_id", ev.ID,
		"sub_id", sub.id,
		"error", err)

	if b.onFailure == nil {
		return
	}
	// The hook is outside our control; it must not break dispatch either.
	defer func() {
		if r := recover(); r != nil {
			b.logger.Error("failure hook panicked", "panic", r)
		}
	}()
	b.onFailure(ev, sub.id, err)
}

// prune drops cancelled subscriptions. Only runs between dispatches.
func (b *Bus) prune() {
	live := b.subs[:0]
	for _, sub := range b.subs {
		if sub.Active() {
			live = append(live, sub)
		}
	}
	for i := len(live); i < len(b.subs); i++ {
		b.subs[i] = nil
	}
	b.subs = live
}
