// ABOUTME: Capped, ordered message log announcing every mutation on the bus
// ABOUTME: Linked list plus id index gives O(1) lookup and oldest-first eviction

package messages

import (
	"container/list"
	"log/slog"
	"slices"
	"strings"

	"github.com/2389/coven-desk/internal/events"
)

// DefaultMaxMessages is used when the Log is created with a cap below 1.
const DefaultMaxMessages = 500

const source = "messages"

// Publisher is the slice of the bus the Log needs.
type Publisher interface {
	Publish(ev events.Event)
}

// Log is the ordered conversation history (oldest at front).
type Log struct {
	order  *list.List // of *Message
	index  map[string]*list.Element
	max    int
	bus    Publisher
	logger *slog.Logger
}

// NewLog creates a Log holding at most maxMessages entries.
func NewLog(bus Publisher, maxMessages int, logger *slog.Logger) *Log {
	if maxMessages < 1 {
		maxMessages = DefaultMaxMessages
	}
	if logger == nil {
		logger = slog.Default()
	}
	return &Log{
		order:  list.New(),
		index:  make(map[string]*list.Element),
		max:    maxMessages,
		bus:    bus,
		logger: logger.With("component", "messages"),
	}
}

// Cap returns the maximum number of messages retained.
func (l *Log) Cap() int { return l.max }

// Len returns the number of messages held.
func (l *Log) Len() int { return l.order.Len() }

// Append adds msg at the tail, evicting the oldest entries beyond the cap.
// A message whose id is already present is ignored and false is returned.
func (l *Log) Append(msg Message) bool {
	if _, exists := l.index[msg.ID]; exists {
		l.logger.Warn("duplicate message id ignored", "message_id", msg.ID)
		return false
	}

	stored := msg
	l.index[msg.ID] = l.order.PushBack(&stored)
	evicted := l.enforceCap()

	l.bus.Publish(events.New(source, events.MessageAdded{
		Message: stored.Snapshot(),
		Evicted: evicted,
	}))
	return true
}

// Mutate replaces the content of message id and sets its streaming flag.
// Returns false without publishing when the id is unknown, the message is
// already finalized, or a streaming write would drop the published prefix.
func (l *Log) Mutate(id, content string, streaming bool) bool {
	elem, ok := l.index[id]
	if !ok {
		return false
	}
	msg := elem.Value.(*Message)

	if !msg.Streaming {
		l.logger.Warn("mutate on finalized message rejected", "message_id", id)
		return false
	}
	if streaming && !strings.HasPrefix(content, msg.Content) {
		l.logger.Warn("streaming mutate would shrink content",
			"message_id", id,
			"have", len(msg.Content),
			"got", len(content))
		return false
	}

	msg.Content = content
	msg.Streaming = streaming

	l.bus.Publish(events.New(source, events.MessageUpdated{
		ID:        id,
		Content:   content,
		Streaming: streaming,
	}))
	return true
}

// Clear removes every message.
func (l *Log) Clear() {
	removed := l.order.Len()
	l.order.Init()
	clear(l.index)

	l.bus.Publish(events.New(source, events.MessagesCleared{Removed: removed}))
}

// PrependHistorical inserts older messages before the current head, keeping
// batch order and skipping ids already present. The cap is applied from the
// tail, so the newest messages survive: batch entries that do not fit are
// dropped and live messages are never removed. Returns the number added.
func (l *Log) PrependHistorical(batch []Message) int {
	added := 0
	var dropped []string
	seen := make(map[string]struct{}, len(batch))
	for i := len(batch) - 1; i >= 0; i-- {
		msg := batch[i]
		if _, exists := l.index[msg.ID]; exists {
			continue
		}
		if _, dup := seen[msg.ID]; dup {
			continue
		}
		seen[msg.ID] = struct{}{}
		if l.order.Len() >= l.max {
			dropped = append(dropped, msg.ID)
			continue
		}
		stored := msg
		stored.Streaming = false
		l.index[msg.ID] = l.order.PushFront(&stored)
		added++
	}
	slices.Reverse(dropped)

	l.bus.Publish(events.New(source, events.MessagesPrepended{
		Added:   added,
		Dropped: dropped,
	}))
	return added
}

// Get returns a copy of message id.
func (l *Log) Get(id string) (Message, bool) {
	elem, ok := l.index[id]
	if !ok {
		return Message{}, false
	}
	return *elem.Value.(*Message), true
}

// Messages returns copies of all messages, oldest first.
func (l *Log) Messages() []Message {
	out := make([]Message, 0, l.order.Len())
	for e := l.order.Front(); e != nil; e = e.Next() {
		out = append(out, *e.Value.(*Message))
	}
	return out
}

// Recent returns up to n of the newest messages, oldest first, skipping
// excludeID.
func (l *Log) Recent(n int, excludeID string) []Message {
	if n <= 0 {
		return nil
	}
	var rev []Message
	for e := l.order.Back(); e != nil && len(rev) < n; e = e.Prev() {
		msg := e.Value.(*Message)
		if msg.ID == excludeID {
			continue
		}
		rev = append(rev, *msg)
	}

	out := make([]Message, len(rev))
	for i, msg := range rev {
		out[len(rev)-1-i] = msg
	}
	return out
}

// enforceCap evicts from the front until the log fits and returns the
// evicted ids.
func (l *Log) enforceCap() []string {
	var evicted []string
	for l.order.Len() > l.max {
		front := l.order.Front()
		msg := front.Value.(*Message)
		l.order.Remove(front)
		delete(l.index, msg.ID)
		evicted = append(evicted, msg.ID)
	}
	return evicted
}
