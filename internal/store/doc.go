// Package store provides persistent storage for coven-desk using SQLite.
//
// # Architecture
//
// The store sits outside the conversation core. The Message Log never calls
// it directly; the desk persists by consuming bus events on its own
// goroutine and restores history through Log.PrependHistorical on start.
//
//   - Store: the interface consumed by the desk and the error reporter
//   - SQLiteStore: modernc.org/sqlite implementation (pure Go, no cgo)
//   - MockStore: in-memory implementation for tests
//
// # Data Models
//
//   - Message: a finalized conversation turn (id, speaker, content, model)
//   - Session: a persisted Conversation Context (persona, model, activity)
//   - ErrorReport: an entry written by the error reporter
//
// # Usage
//
//	s, err := store.NewSQLiteStore("~/.local/share/coven/desk.db")
//	if err != nil {
//		return err
//	}
//	defer s.Close()
//
//	err = s.SaveMessage(ctx, &store.Message{ID: id, Speaker: "user", Content: text})
//	recent, err := s.ListRecentMessages(ctx, 100) // oldest first
//
// # Ordering
//
// Timestamps are stored as fixed-width RFC 3339 strings with nanoseconds, so
// text ordering matches time ordering; rowid breaks ties. SaveMessage is an
// upsert that keeps a message's original position.
//
// # Schema
//
// Tables and indexes are created on open with CREATE ... IF NOT EXISTS.
package store
