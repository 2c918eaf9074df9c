// ABOUTME: Store interface and data types for coven-desk persistence
// ABOUTME: Defines Message, Session and ErrorReport records kept outside the core

package store

import (
	"context"
	"errors"
	"time"
)

// ErrNotFound is returned when a requested entity does not exist
var ErrNotFound = errors.New("not found")

// Message is a finalized conversation turn as persisted on disk
type Message struct {
	ID        string
	Speaker   string
	Content   string
	ModelID   string
	CreatedAt time.Time
}

// Session is a persisted Conversation Context
type Session struct {
	ID           string
	PersonaID    string
	ModelID      string
	StartedAt    time.Time
	LastActivity time.Time
	// PreviousID links to the session this one superseded
	PreviousID string
}

// ErrorReport is one entry written by the error reporter
type ErrorReport struct {
	ID        string
	Source    string
	Severity  string // "info", "warning", "error"
	Kind      string
	Message   string
	CreatedAt time.Time
}

// Store defines the interface for history, session and report persistence
type Store interface {
	// Messages
	SaveMessage(ctx context.Context, msg *Message) error
	ListRecentMessages(ctx context.Context, limit int) ([]*Message, error)
	DeleteAllMessages(ctx context.Context) error

	// Sessions
	SaveSession(ctx context.Context, session *Session) error
	GetSession(ctx context.Context, id string) (*Session, error)

	// Error reports
	SaveReport(ctx context.Context, report *ErrorReport) error
	ListReports(ctx context.Context, limit int) ([]*ErrorReport, error)

	Close() error
}
