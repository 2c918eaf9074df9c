// ABOUTME: Tests for the event bus and async feeds
// ABOUTME: Covers ordering, snapshot semantics, cancellation and failure isolation

package events

import (
	"context"
	"errors"
	"fmt"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func updated(id, content string) Event {
	return New("test", MessageUpdated{ID: id, Content: content, Streaming: true})
}

func TestBus_DeliversInRegistrationOrder(t *testing.T) {
	bus := NewBus(nil)

	var order []string
	for _, name := range []string{"a", "b", "c"} {
		bus.Subscribe(TypeMessageUpdated, func(Event) error {
			order = append(order, name)
			return nil
		})
	}

	bus.Publish(updated("m1", "x"))
	assert.Equal(t, []string{"a", "b", "c"}, order)
}

func TestBus_FiltersByType(t *testing.T) {
	bus := NewBus(nil)

	var updates, all int
	bus.Subscribe(TypeMessageUpdated, func(Event) error { updates++; return nil })
	bus.Subscribe(AnyType, func(Event) error { all++; return nil })

	bus.Publish(updated("m1", "x"))
	bus.Publish(New("test", MessagesCleared{Removed: 1}))

	assert.Equal(t, 1, updates)
	assert.Equal(t, 2, all)
}

func TestBus_SubscriberAddedMidDispatchMissesCurrentEvent(t *testing.T) {
	bus := NewBus(nil)

	var late []string
	bus.Subscribe(TypeMessageUpdated, func(ev Event) error {
		if len(late) == 0 && ev.Payload.(MessageUpdated).Content == "first" {
			bus.Subscribe(TypeMessageUpdated, func(ev Event) error {
				late = append(late, ev.Payload.(MessageUpdated).Content)
				return nil
			})
		}
		return nil
	})

	bus.Publish(updated("m1", "first"))
	bus.Publish(updated("m1", "second"))

	assert.Equal(t, []string{"second"}, late)
}

func TestBus_CancelStopsDelivery(t *testing.T) {
	bus := NewBus(nil)

	count := 0
	sub := bus.Subscribe(TypeMessageUpdated, func(Event) error { count++; return nil })

	bus.Publish(updated("m1", "a"))
	sub.Cancel()
	sub.Cancel() // idempotent
	bus.Publish(updated("m1", "b"))

	assert.Equal(t, 1, count)
	assert.False(t, sub.Active())
	assert.Equal(t, 0, bus.Len())
}

func TestBus_CancelDuringDispatchSkipsLaterSubscriber(t *testing.T) {
	bus := NewBus(nil)

	var second *Subscription
	called := false
	bus.Subscribe(TypeMessageUpdated, func(Event) error {
		second.Cancel()
		return nil
	})
	second = bus.Subscribe(TypeMessageUpdated, func(Event) error {
		called = true
		return nil
	})

	bus.Publish(updated("m1", "a"))
	assert.False(t, called)
}

func TestBus_FailingHandlerDoesNotBlockOthers(t *testing.T) {
	bus := NewBus(nil)

	var failures []error
	bus.OnHandlerError(func(_ Event, _ string, err error) {
		failures = append(failures, err)
	})

	reached := 0
	bus.Subscribe(TypeMessageUpdated, func(Event) error { return errors.New("nope") })
	bus.Subscribe(TypeMessageUpdated, func(Event) error { panic("kaboom") })
	bus.Subscribe(TypeMessageUpdated, func(Event) error { reached++; return nil })

	bus.Publish(updated("m1", "a"))
	bus.Publish(updated("m1", "b"))

	assert.Equal(t, 2, reached)
	require.Len(t, failures, 4)
	assert.EqualError(t, failures[0], "nope")
	assert.Contains(t, failures[1].Error(), "kaboom")
}

func TestBus_PanickingFailureHookIsContained(t *testing.T) {
	bus := NewBus(nil)
	bus.OnHandlerError(func(Event, string, error) { panic("hook") })

	reached := false
	bus.Subscribe(TypeMessageUpdated, func(Event) error { return errors.New("x") })
	bus.Subscribe(TypeMessageUpdated, func(Event) error { reached = true; return nil })

	assert.NotPanics(t, func() { bus.Publish(updated("m1", "a")) })
	assert.True(t, reached)
}

func TestBus_NestedPublishPreservesOrderForEverySubscriber(t *testing.T) {
	bus := NewBus(nil)

	bus.Subscribe(TypeMessageAdded, func(Event) error {
		bus.Publish(updated("m1", "nested"))
		return nil
	})

	var seen []Type
	bus.Subscribe(AnyType, func(ev Event) error {
		seen = append(seen, ev.Type)
		return nil
	})

	bus.Publish(New("test", MessageAdded{Message: MessageSnapshot{ID: "m1"}}))
	assert.Equal(t, []Type{TypeMessageAdded, TypeMessageUpdated}, seen)
}

func TestBus_EveryLiveSubscriberGetsEachEventOnce(t *testing.T) {
	bus := NewBus(nil)

	got := map[int][]string{}
	subs := make([]*Subscription, 5)
	for i := range subs {
		subs[i] = bus.Subscribe(TypeMessageUpdated, func(ev Event) error {
			got[i] = append(got[i], ev.Payload.(MessageUpdated).Content)
			return nil
		})
	}

	for n := range 10 {
		if n == 5 {
			subs[2].Cancel()
		}
		bus.Publish(updated("m1", fmt.Sprint(n)))
	}

	want := []string{"0", "1", "2", "3", "4", "5", "6", "7", "8", "9"}
	assert.Equal(t, want, got[0])
	assert.Equal(t, want, got[4])
	assert.Equal(t, want[:5], got[2])
}

func TestEvent_NewSetsTypeFromPayload(t *testing.T) {
	ev := New("orchestrator", ConversationStarted{SessionID: "s1"})

	assert.Equal(t, TypeConversationStarted, ev.Type)
	assert.Equal(t, "orchestrator", ev.Source)
	assert.NotEmpty(t, ev.ID)
	assert.False(t, ev.Time.IsZero())
	assert.Equal(t, FamilyLifecycle, ev.Type.Family())
	assert.Equal(t, FamilyStreaming, TypeStreamProgress.Family())
	assert.Equal(t, FamilyMessage, TypeMessagesPrepended.Family())
	assert.Equal(t, Family(""), AnyType.Family())
}

func TestFeed_PullsEventsInOrder(t *testing.T) {
	bus := NewBus(nil)
	feed := bus.SubscribeAsync(t.Context(), TypeMessageUpdated)

	for i := range 3 {
		bus.Publish(updated("m1", fmt.Sprint(i)))
	}
	bus.Publish(New("test", MessagesCleared{}))

	require.Equal(t, 3, feed.Len())
	for i := range 3 {
		ev, ok := feed.Next(t.Context())
		require.True(t, ok)
		assert.Equal(t, fmt.Sprint(i), ev.Payload.(MessageUpdated).Content)
	}
}

func TestFeed_NextBlocksUntilPublish(t *testing.T) {
	bus := NewBus(nil)
	feed := bus.SubscribeAsync(t.Context(), AnyType)

	got := make(chan Event, 1)
	go func() {
		ev, ok := feed.Next(context.Background())
		if ok {
			got <- ev
		}
	}()

	time.Sleep(10 * time.Millisecond)
	bus.Publish(updated("m1", "late"))

	select {
	case ev := <-got:
		assert.Equal(t, TypeMessageUpdated, ev.Type)
	case <-time.After(time.Second):
		t.Fatal("feed never delivered")
	}
}

func TestFeed_BreakingRangeCancelsSubscription(t *testing.T) {
	bus := NewBus(nil)
	feed := bus.SubscribeAsync(t.Context(), AnyType)

	bus.Publish(updated("m1", "a"))
	bus.Publish(updated("m1", "b"))

	for range feed.All(t.Context()) {
		break
	}

	assert.False(t, feed.Subscription().Active())
	bus.Publish(updated("m1", "c"))
	assert.Equal(t, 0, bus.Len())
}

func TestFeed_ContextCancellationEndsFeed(t *testing.T) {
	bus := NewBus(nil)
	ctx, cancel := context.WithCancel(context.Background())
	feed := bus.SubscribeAsync(ctx, AnyType)

	bus.Publish(updated("m1", "queued"))
	cancel()

	select {
	case <-feed.Done():
	case <-time.After(time.Second):
		t.Fatal("feed not cancelled with context")
	}

	// Queued events drain, then the feed reports the end.
	ev, ok := feed.Next(context.Background())
	require.True(t, ok)
	assert.Equal(t, "queued", ev.Payload.(MessageUpdated).Content)

	_, ok = feed.Next(context.Background())
	assert.False(t, ok)
}

func TestFeed_UnboundedQueue(t *testing.T) {
	bus := NewBus(nil)
	feed := bus.SubscribeAsync(t.Context(), AnyType)

	for i := range 10_000 {
		bus.Publish(updated("m1", fmt.Sprint(i)))
	}
	assert.Equal(t, 10_000, feed.Len())
}
