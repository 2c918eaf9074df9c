// ABOUTME: Pull-based, unbounded subscription for consumers on other goroutines
// ABOUTME: Exposes Next and an iter.Seq that cancels when the consumer stops

package events

import (
	"context"
	"iter"
	"sync"
)

// Feed buffers matching events until the consumer pulls them.
type Feed struct {
	sub    *Subscription
	mu     sync.Mutex
	queue  []Event
	closed bool
	notify chan struct{}
	done   chan struct{}
}

// SubscribeAsync registers a Feed for events of type t. The feed ends when
// ctx is cancelled, when Cancel is called, or when a range over All stops.
// Like Subscribe, it must be called on the dispatch loop; the returned Feed
// may be consumed from any goroutine.
func (b *Bus) SubscribeAsync(ctx context.Context, t Type) *Feed {
	f := &Feed{
		notify: make(chan struct{}, 1),
		done:   make(chan struct{}),
	}
	f.sub = b.Subscribe(t, func(ev Event) error {
		f.push(ev)
		return nil
	})
	f.sub.onCancel = f.close

	if ctx.Done() != nil {
		go func() {
			select {
			case <-ctx.Done():
				f.Cancel()
			case <-f.done:
			}
		}()
	}
	return f
}

// Subscription returns the underlying bus subscription.
func (f *Feed) Subscription() *Subscription { return f.sub }

// Cancel stops the feed. Events already queued can still be pulled.
func (f *Feed) Cancel() {
	f.sub.Cancel()
}

// Done is closed once the feed is cancelled.
func (f *Feed) Done() <-chan struct{} { return f.done }

// Len returns the number of queued, unpulled events.
func (f *Feed) Len() int {
	f.mu.Lock()
	defer f.mu.Unlock()
	return len(f.queue)
}

// Next blocks until an event is available, the feed is cancelled and
// drained, or ctx ends. The boolean is false when no event was returned.
func (f *Feed) Next(ctx context.Context) (Event, bool) {
	for {
		f.mu.Lock()
		if len(f.queue) > 0 {
			ev := f.queue[0]
			f.queue[0] = Event{}
			f.queue = f.queue[1:]
			f.mu.Unlock()
			return ev, true
		}
		closed := f.closed
		f.mu.Unlock()

		if closed {
			return Event{}, false
		}

		select {
		case <-f.notify:
		case <-f.done:
		case <-ctx.Done():
			return Event{}, false
		}
	}
}

// All yields events until the feed ends. Stopping the range cancels the feed.
func (f *Feed) All(ctx context.Context) iter.Seq[Event] {
	return func(yield func(Event) bool) {
		defer f.Cancel()
		for {
			ev, ok := f.Next(ctx)
			if !ok || !yield(ev) {
				return
			}
		}
	}
}

func (f *Feed) push(ev Event) {
	f.mu.Lock()
	if f.closed {
		f.mu.Unlock()
		return
	}
	f.queue = append(f.queue, ev)
	f.mu.Unlock()

	select {
	case f.notify <- struct{}{}:
	default:
		// Consumer already signalled
	}
}

func (f *Feed) close() {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.closed {
		return
	}
	f.closed = true
	close(f.done)
}
