// Package events is the typed publish/subscribe router that decouples
// coven-desk components.
//
// # Events
//
// An Event is an immutable tagged value: an ID, the publishing component's
// Source name, a Type discriminator, a timestamp and a Payload. Payload is a
// sealed interface; only the variants declared in this package satisfy it,
// so consumers can switch over payload types exhaustively:
//
//	switch p := ev.Payload.(type) {
//	case events.MessageAdded:
//	case events.MessageUpdated:
//	case events.StreamCompleted:
//	}
//
// Variants are grouped into three families:
//
//   - Lifecycle: conversation.started, conversation.error, conversation.expired
//   - Message:   message.added, message.updated, messages.cleared, messages.prepended
//   - Streaming: stream.progress, stream.completed
//
// # Bus
//
// A Bus is constructed explicitly and injected into every component; there is
// no package-level instance. It is not safe for concurrent use: Publish and
// Subscribe run on the single loop that owns core state (see package loop).
//
//	bus := events.NewBus(logger)
//	sub := bus.Subscribe(events.TypeMessageUpdated, func(ev events.Event) error {
//		return render(ev)
//	})
//	defer sub.Cancel()
//
// Delivery is synchronous and in registration order. Subscribers added while
// an event is being dispatched do not see that event. A handler that returns
// an error or panics is reported through the failure hook and delivery
// continues with the next handler.
//
// # Feeds
//
// SubscribeAsync returns a pull-based Feed backed by an unbounded queue, for
// consumers that live on their own goroutine (persistence, tests):
//
//	feed := bus.SubscribeAsync(ctx, events.AnyType)
//	for ev := range feed.All(ctx) {
//		...
//	}
//
// Breaking out of the range, cancelling ctx or calling Cancel ends the feed.
package events
