// ABOUTME: Mock Store implementation for testing
// ABOUTME: Allows tests to run without SQLite

package store

import (
	"context"
	"errors"
	"sort"
	"sync"
)

// MockStore is an in-memory Store implementation for testing.
type MockStore struct {
	mu       sync.RWMutex
	messages map[string]*Message // keyed by message ID
	order    map[string]int      // message ID -> insertion sequence
	seq      int
	sessions map[string]*Session // keyed by session ID
	reports  []*ErrorReport

	// FailWrites makes every write return an error, for failure-path tests.
	FailWrites bool
}

var _ Store = (*MockStore)(nil)

// errMockWrite is returned by writes when FailWrites is set.
var errMockWrite = errors.New("mock store: write failed")

// NewMockStore creates a new MockStore.
func NewMockStore() *MockStore {
	return &MockStore{
		messages: make(map[string]*Message),
		order:    make(map[string]int),
		sessions: make(map[string]*Session),
	}
}

// SaveMessage inserts or updates a message, keeping its original position.
func (m *MockStore) SaveMessage(ctx context.Context, msg *Message) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	if m.FailWrites {
		return errMockWrite
	}

	// Make a copy to avoid external modification
	cp := *msg
	if existing, ok := m.messages[cp.ID]; ok {
		cp.Speaker = existing.Speaker
		cp.CreatedAt = existing.CreatedAt
	} else {
		m.seq++
		m.order[cp.ID] = m.seq
	}
	m.messages[cp.ID] = &cp
	return nil
}

// ListRecentMessages returns up to limit newest messages, oldest first.
func (m *MockStore) ListRecentMessages(ctx context.Context, limit int) ([]*Message, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()

	all := make([]*Message, 0, len(m.messages))
	for _, msg := range m.messages {
		cp := *msg
		all = append(all, &cp)
	}
	sort.Slice(all, func(i, j int) bool {
		if !all[i].CreatedAt.Equal(all[j].CreatedAt) {
			return all[i].CreatedAt.Before(all[j].CreatedAt)
		}
		return m.order[all[i].ID] < m.order[all[j].ID]
	})

	if limit > 0 && len(all) > limit {
		all = all[len(all)-limit:]
	}
	return all, nil
}

// DeleteAllMessages removes every message.
func (m *MockStore) DeleteAllMessages(ctx context.Context) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	if m.FailWrites {
		return errMockWrite
	}
	clear(m.messages)
	clear(m.order)
	return nil
}

// SaveSession inserts a session or refreshes its last activity.
func (m *MockStore) SaveSession(ctx context.Context, session *Session) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	if m.FailWrites {
		return errMockWrite
	}
	if existing, ok := m.sessions[session.ID]; ok {
		existing.LastActivity = session.LastActivity
		return nil
	}
	cp := *session
	m.sessions[cp.ID] = &cp
	return nil
}

// GetSession retrieves a session by ID.
func (m *MockStore) GetSession(ctx context.Context, id string) (*Session, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()

	session, ok := m.sessions[id]
	if !ok {
		return nil, ErrNotFound
	}
	cp := *session
	return &cp, nil
}

// SaveReport appends an error report.
func (m *MockStore) SaveReport(ctx context.Context, report *ErrorReport) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	if m.FailWrites {
		return errMockWrite
	}
	cp := *report
	m.reports = append(m.reports, &cp)
	return nil
}

// ListReports returns up to limit newest reports, newest first.
func (m *MockStore) ListReports(ctx context.Context, limit int) ([]*ErrorReport, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()

	if limit <= 0 {
		limit = 50
	}
	var out []*ErrorReport
	for i := len(m.reports) - 1; i >= 0 && len(out) < limit; i-- {
		cp := *m.reports[i]
		out = append(out, &cp)
	}
	return out, nil
}

// Close is a no-op.
func (m *MockStore) Close() error {
	return nil
}
