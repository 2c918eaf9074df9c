// ABOUTME: Tests for SQLite store implementation
// ABOUTME: Covers message upsert/ordering/limits, sessions and error reports

package store

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// newTestStore creates a temporary SQLite store for testing.
func newTestStore(t *testing.T) *SQLiteStore {
	t.Helper()
	dbPath := filepath.Join(t.TempDir(), "test.db")

	store, err := NewSQLiteStore(dbPath)
	require.NoError(t, err)
	t.Cleanup(func() { store.Close() })
	return store
}

func TestNewSQLiteStore_CreatesDirectory(t *testing.T) {
	dbPath := filepath.Join(t.TempDir(), "subdir", "nested", "test.db")

	store, err := NewSQLiteStore(dbPath)
	require.NoError(t, err)
	defer store.Close()

	_, err = os.Stat(dbPath)
	assert.NoError(t, err, "database file was not created in nested directory")
}

func TestNewSQLiteStore_FreshSchemaHasSessionLink(t *testing.T) {
	store := newTestStore(t)

	var exists int
	err := store.db.QueryRow(`SELECT 1 FROM pragma_table_info('sessions') WHERE name = 'previous_id'`).Scan(&exists)
	require.NoError(t, err)
	assert.Equal(t, 1, exists)
}

func TestNewSQLiteStore_ReopenIsIdempotent(t *testing.T) {
	dbPath := filepath.Join(t.TempDir(), "test.db")

	first, err := NewSQLiteStore(dbPath)
	require.NoError(t, err)
	require.NoError(t, first.SaveMessage(context.Background(), &Message{
		ID: "m1", Speaker: "user", Content: "kept", CreatedAt: time.Now(),
	}))
	require.NoError(t, first.Close())

	second, err := NewSQLiteStore(dbPath)
	require.NoError(t, err)
	defer second.Close()

	msgs, err := second.ListRecentMessages(context.Background(), 0)
	require.NoError(t, err)
	require.Len(t, msgs, 1)
	assert.Equal(t, "kept", msgs[0].Content)
}

func TestSaveMessage_UpsertKeepsPosition(t *testing.T) {
	store := newTestStore(t)
	ctx := context.Background()
	base := time.Now().UTC()

	require.NoError(t, store.SaveMessage(ctx, &Message{ID: "a", Speaker: "user", Content: "first", CreatedAt: base}))
	require.NoError(t, store.SaveMessage(ctx, &Message{ID: "b", Speaker: "claude", Content: "", CreatedAt: base.Add(time.Millisecond)}))
	require.NoError(t, store.SaveMessage(ctx, &Message{ID: "b", Speaker: "claude", Content: "full reply", ModelID: "claude-sonnet", CreatedAt: base.Add(time.Millisecond)}))

	msgs, err := store.ListRecentMessages(ctx, 0)
	require.NoError(t, err)
	require.Len(t, msgs, 2)
	assert.Equal(t, "a", msgs[0].ID)
	assert.Equal(t, "b", msgs[1].ID)
	assert.Equal(t, "full reply", msgs[1].Content)
	assert.Equal(t, "claude-sonnet", msgs[1].ModelID)
	assert.True(t, msgs[0].CreatedAt.Equal(base))
}

func TestListRecentMessages_LimitReturnsNewestInOrder(t *testing.T) {
	store := newTestStore(t)
	ctx := context.Background()
	base := time.Now().UTC()

	for i := range 10 {
		require.NoError(t, store.SaveMessage(ctx, &Message{
			ID:        fmt.Sprintf("m%d", i),
			Speaker:   "user",
			Content:   fmt.Sprintf("message %d", i),
			CreatedAt: base.Add(time.Duration(i) * time.Microsecond),
		}))
	}

	msgs, err := store.ListRecentMessages(ctx, 3)
	require.NoError(t, err)
	require.Len(t, msgs, 3)
	assert.Equal(t, "m7", msgs[0].ID)
	assert.Equal(t, "m8", msgs[1].ID)
	assert.Equal(t, "m9", msgs[2].ID)
}

func TestListRecentMessages_SubSecondOrdering(t *testing.T) {
	store := newTestStore(t)
	ctx := context.Background()
	base := time.Date(2026, 1, 2, 3, 4, 5, 0, time.UTC)

	// Saved out of order; the half-second message must sort after the whole second.
	require.NoError(t, store.SaveMessage(ctx, &Message{ID: "later", Speaker: "user", Content: "x", CreatedAt: base.Add(500 * time.Millisecond)}))
	require.NoError(t, store.SaveMessage(ctx, &Message{ID: "earlier", Speaker: "user", Content: "x", CreatedAt: base}))

	msgs, err := store.ListRecentMessages(ctx, 0)
	require.NoError(t, err)
	require.Len(t, msgs, 2)
	assert.Equal(t, "earlier", msgs[0].ID)
	assert.Equal(t, "later", msgs[1].ID)
}

func TestDeleteAllMessages(t *testing.T) {
	store := newTestStore(t)
	ctx := context.Background()

	require.NoError(t, store.SaveMessage(ctx, &Message{ID: "a", Speaker: "user", Content: "x", CreatedAt: time.Now()}))
	require.NoError(t, store.DeleteAllMessages(ctx))

	msgs, err := store.ListRecentMessages(ctx, 0)
	require.NoError(t, err)
	assert.Empty(t, msgs)
}

func TestSessions_SaveAndGet(t *testing.T) {
	store := newTestStore(t)
	ctx := context.Background()
	started := time.Now().UTC().Truncate(time.Microsecond)

	session := &Session{
		ID:           "s1",
		PersonaID:    "claude",
		ModelID:      "claude-sonnet",
		StartedAt:    started,
		LastActivity: started,
		PreviousID:   "s0",
	}
	require.NoError(t, store.SaveSession(ctx, session))

	session.LastActivity = started.Add(time.Minute)
	session.PersonaID = "ignored-on-update"
	require.NoError(t, store.SaveSession(ctx, session))

	got, err := store.GetSession(ctx, "s1")
	require.NoError(t, err)
	assert.Equal(t, "claude", got.PersonaID)
	assert.Equal(t, "s0", got.PreviousID)
	assert.True(t, got.StartedAt.Equal(started))
	assert.True(t, got.LastActivity.Equal(started.Add(time.Minute)))

	_, err = store.GetSession(ctx, "missing")
	assert.ErrorIs(t, err, ErrNotFound)
}

func TestReports_SaveAndList(t *testing.T) {
	store := newTestStore(t)
	ctx := context.Background()
	base := time.Now().UTC()

	for i := range 3 {
		require.NoError(t, store.SaveReport(ctx, &ErrorReport{
			ID:        fmt.Sprintf("r%d", i),
			Source:    "conversation",
			Severity:  "error",
			Kind:      "network",
			Message:   "boom",
			CreatedAt: base.Add(time.Duration(i) * time.Second),
		}))
	}

	reports, err := store.ListReports(ctx, 2)
	require.NoError(t, err)
	require.Len(t, reports, 2)
	assert.Equal(t, "r2", reports[0].ID)
	assert.Equal(t, "r1", reports[1].ID)
}

func TestReports_RejectsUnknownSeverity(t *testing.T) {
	store := newTestStore(t)

	err := store.SaveReport(context.Background(), &ErrorReport{
		ID: "r", Source: "x", Severity: "fatal", Kind: "k", Message: "m", CreatedAt: time.Now(),
	})
	assert.Error(t, err)
}
