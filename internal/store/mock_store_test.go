// ABOUTME: Unit tests for MockStore to ensure behavior matches SQLiteStore
// ABOUTME: Focuses on ordering, upsert and failure injection

package store

import (
	"context"
	"fmt"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestMockStore_MessagesMatchSQLiteOrdering(t *testing.T) {
	ctx := context.Background()
	base := time.Now()

	for _, s := range []Store{NewMockStore(), newTestStore(t)} {
		for i := range 5 {
			require.NoError(t, s.SaveMessage(ctx, &Message{
				ID:        fmt.Sprintf("m%d", i),
				Speaker:   "user",
				Content:   "x",
				CreatedAt: base.Add(time.Duration(i) * time.Millisecond),
			}))
		}
		require.NoError(t, s.SaveMessage(ctx, &Message{ID: "m0", Speaker: "user", Content: "updated", CreatedAt: base}))

		msgs, err := s.ListRecentMessages(ctx, 2)
		require.NoError(t, err)
		require.Len(t, msgs, 2)
		assert.Equal(t, "m3", msgs[0].ID)
		assert.Equal(t, "m4", msgs[1].ID)

		all, err := s.ListRecentMessages(ctx, 0)
		require.NoError(t, err)
		require.Len(t, all, 5)
		assert.Equal(t, "updated", all[0].Content)
	}
}

func TestMockStore_FailWrites(t *testing.T) {
	s := NewMockStore()
	s.FailWrites = true
	ctx := context.Background()

	assert.Error(t, s.SaveMessage(ctx, &Message{ID: "a"}))
	assert.Error(t, s.SaveSession(ctx, &Session{ID: "s"}))
	assert.Error(t, s.SaveReport(ctx, &ErrorReport{ID: "r"}))
	assert.Error(t, s.DeleteAllMessages(ctx))
}

func TestMockStore_SessionsAndReports(t *testing.T) {
	s := NewMockStore()
	ctx := context.Background()

	require.NoError(t, s.SaveSession(ctx, &Session{ID: "s1", PersonaID: "claude"}))
	got, err := s.GetSession(ctx, "s1")
	require.NoError(t, err)
	assert.Equal(t, "claude", got.PersonaID)

	_, err = s.GetSession(ctx, "nope")
	assert.ErrorIs(t, err, ErrNotFound)

	require.NoError(t, s.SaveReport(ctx, &ErrorReport{ID: "r1"}))
	require.NoError(t, s.SaveReport(ctx, &ErrorReport{ID: "r2"}))
	reports, err := s.ListReports(ctx, 0)
	require.NoError(t, err)
	require.Len(t, reports, 2)
	assert.Equal(t, "r2", reports[0].ID)
}
