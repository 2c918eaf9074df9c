// ABOUTME: Message type for a single conversation turn
// ABOUTME: Constructors assign an immutable uuid identifier

package messages

import (
	"time"

	"github.com/google/uuid"

	"github.com/2389/coven-desk/internal/events"
)

// SpeakerUser identifies messages typed by the local user. Assistant
// messages use the persona id as speaker.
const SpeakerUser = "user"

// Message is one conversation turn. The Log hands out copies, so changing a
// returned Message never changes the stored one.
type Message struct {
	ID        string
	Speaker   string
	Content   string
	CreatedAt time.Time
	Streaming bool
	ModelID   string
}

// NewUser creates a finalized user message.
func NewUser(content string) Message {
	return Message{
		ID:        uuid.New().String(),
		Speaker:   SpeakerUser,
		Content:   content,
		CreatedAt: time.Now(),
	}
}

// NewPlaceholder creates an empty assistant message that is still streaming.
func NewPlaceholder(personaID, modelID string) Message {
	return Message{
		ID:        uuid.New().String(),
		Speaker:   personaID,
		CreatedAt: time.Now(),
		Streaming: true,
		ModelID:   modelID,
	}
}

// FromUser reports whether the local user wrote the message.
func (m Message) FromUser() bool { return m.Speaker == SpeakerUser }

// Snapshot converts the message to its event representation.
func (m Message) Snapshot() events.MessageSnapshot {
	return events.MessageSnapshot{
		ID:        m.ID,
		Speaker:   m.Speaker,
		Content:   m.Content,
		CreatedAt: m.CreatedAt,
		Streaming: m.Streaming,
		ModelID:   m.ModelID,
	}
}
