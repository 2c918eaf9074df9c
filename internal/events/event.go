// ABOUTME: Event envelope and the closed set of payload variants
// ABOUTME: Lifecycle, message and streaming families keyed by Type

package events

import (
	"time"

	"github.com/google/uuid"
)

// Type discriminates event variants.
type Type string

// Family groups related event types.
type Family string

const (
	FamilyLifecycle Family = "lifecycle"
	FamilyMessage   Family = "message"
	FamilyStreaming Family = "streaming"
)

const (
	// AnyType matches every event when used as a subscription filter.
	AnyType Type = "*"

	TypeConversationStarted Type = "conversation.started"
	TypeConversationError   Type = "conversation.error"
	TypeConversationExpired Type = "conversation.expired"

	TypeMessageAdded      Type = "message.added"
	TypeMessageUpdated    Type = "message.updated"
	TypeMessagesCleared   Type = "messages.cleared"
	TypeMessagesPrepended Type = "messages.prepended"

	TypeStreamProgress  Type = "stream.progress"
	TypeStreamCompleted Type = "stream.completed"
)

// Family returns the family the type belongs to, or "" for unknown types.
func (t Type) Family() Family {
	switch t {
	case TypeConversationStarted, TypeConversationError, TypeConversationExpired:
		return FamilyLifecycle
	case TypeMessageAdded, TypeMessageUpdated, TypeMessagesCleared, TypeMessagesPrepended:
		return FamilyMessage
	case TypeStreamProgress, TypeStreamCompleted:
		return FamilyStreaming
	default:
		return ""
	}
}

// Event is an immutable notification published on a Bus.
type Event struct {
	ID      string
	Source  string
	Type    Type
	Time    time.Time
	Payload Payload
}

// New builds an Event whose Type is taken from the payload.
func New(source string, payload Payload) Event {
	return Event{
		ID:      uuid.New().String(),
		Source:  source,
		Type:    payload.EventType(),
		Time:    time.Now(),
		Payload: payload,
	}
}

// Payload is implemented only by the variants in this package.
type Payload interface {
	EventType() Type
	sealed()
}

// ConversationStarted announces a new Conversation Context.
type ConversationStarted struct {
	SessionID string
	PersonaID string
	ModelID   string
	// PreviousSessionID is the context this one supersedes, if any.
	PreviousSessionID string
}

// ConversationError announces a turn that failed before streaming began.
type ConversationError struct {
	SessionID string
	PersonaID string
	Kind      string
	Message   string
}

// ConversationExpired announces a context dropped for inactivity.
type ConversationExpired struct {
	SessionID string
	PersonaID string
	IdleFor   time.Duration
}

// MessageSnapshot is a copy of a Message Log entry at publish time.
type MessageSnapshot struct {
	ID        string
	Speaker   string
	Content   string
	CreatedAt time.Time
	Streaming bool
	ModelID   string
}

// MessageAdded announces an appended message.
type MessageAdded struct {
	Message MessageSnapshot
	// Evicted lists ids removed to keep the log under its cap.
	Evicted []string
}

// MessageUpdated announces a full-text replacement of a message.
type MessageUpdated struct {
	ID        string
	Content   string
	Streaming bool
}

// MessagesCleared announces that the log was emptied.
type MessagesCleared struct {
	Removed int
}

// MessagesPrepended announces historical messages inserted before the head.
type MessagesPrepended struct {
	Added int
	// Dropped lists batch ids, oldest first, left out because the log was full.
	Dropped []string
}

// StreamProgress is the lightweight liveness notice for an in-flight stream.
// It never carries content.
type StreamProgress struct {
	MessageID string
	PersonaID string
	Fragments int
	Length    int
}

// StreamCompleted is published exactly once per stream run.
type StreamCompleted struct {
	MessageID string
	PersonaID string
	Success   bool
	Cancelled bool
	Error     string
	Length    int
	Metadata  map[string]string
}

func (ConversationStarted) EventType() Type { return TypeConversationStarted }
func (ConversationError) EventType() Type   { return TypeConversationError }
func (ConversationExpired) EventType() Type { return TypeConversationExpired }
func (MessageAdded) EventType() Type        { return TypeMessageAdded }
func (MessageUpdated) EventType() Type      { return TypeMessageUpdated }
func (MessagesCleared) EventType() Type     { return TypeMessagesCleared }
func (MessagesPrepended) EventType() Type   { return TypeMessagesPrepended }
func (StreamProgress) EventType() Type      { return TypeStreamProgress }
func (StreamCompleted) EventType() Type     { return TypeStreamCompleted }

func (ConversationStarted) sealed() {}
func (ConversationError) sealed()   {}
func (ConversationExpired) sealed() {}
func (MessageAdded) sealed()        {}
func (MessageUpdated) sealed()      {}
func (MessagesCleared) sealed()     {}
func (MessagesPrepended) sealed()   {}
func (StreamProgress) sealed()      {}
func (StreamCompleted) sealed()     {}
