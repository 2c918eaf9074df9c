// ABOUTME: Conversation Context, the session-scoped state for one run of turns
// ABOUTME: Values are replaced on change so published snapshots never move

package conversation

import (
	"time"

	"github.com/google/uuid"
)

// Context is the session state for an uninterrupted run of turns under one
// persona.
type Context struct {
	SessionID    string
	PersonaID    string
	ModelID      string
	StartedAt    time.Time
	LastActivity time.Time
	PreviousID   string
}

func newContext(personaID, modelID, previousID string, now time.Time) *Context {
	return &Context{
		SessionID:    uuid.New().String(),
		PersonaID:    personaID,
		ModelID:      modelID,
		StartedAt:    now,
		LastActivity: now,
		PreviousID:   previousID,
	}
}

// touched returns a copy with LastActivity set to now.
func (c *Context) touched(now time.Time) *Context {
	next := *c
	next.LastActivity = now
	return &next
}

// expired reports whether the context has been idle longer than timeout.
// A zero timeout never expires.
func (c *Context) expired(now time.Time, timeout time.Duration) bool {
	return timeout > 0 && now.Sub(c.LastActivity) > timeout
}
