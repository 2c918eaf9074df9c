// ABOUTME: Tests for the console presenter and output helpers
// ABOUTME: Feeds bus events straight into the presenter and checks the terminal text

package main

import (
	"bytes"
	"context"
	"log/slog"
	"strings"
	"testing"
	"time"

	"github.com/fatih/color"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/2389/coven-desk/internal/config"
	"github.com/2389/coven-desk/internal/events"
	"github.com/2389/coven-desk/internal/messages"
	"github.com/2389/coven-desk/internal/store"
)

func init() {
	color.NoColor = true
}

func ev(p events.Payload) events.Event { return events.New("test", p) }

func TestPresenter_PrintsOnlyNewSuffix(t *testing.T) {
	var out bytes.Buffer
	p := newPresenter(&out)

	p.handle(ev(events.MessageAdded{Message: events.MessageSnapshot{ID: "u1", Speaker: messages.SpeakerUser, Content: "hi"}}))
	p.handle(ev(events.MessageAdded{Message: events.MessageSnapshot{ID: "a1", Speaker: "claude", Streaming: true}}))
	p.handle(ev(events.MessageUpdated{ID: "a1", Content: "Hel", Streaming: true}))
	p.handle(ev(events.MessageUpdated{ID: "a1", Content: "Hello", Streaming: true}))
	p.handle(ev(events.MessageUpdated{ID: "a1", Content: "Hello!", Streaming: false}))

	assert.Equal(t, "claude: Hello!\n", out.String())
	assert.Empty(t, p.printed)
}

func TestPresenter_IgnoresUnknownUpdates(t *testing.T) {
	var out bytes.Buffer
	p := newPresenter(&out)

	p.handle(ev(events.MessageUpdated{ID: "restored", Content: "x", Streaming: false}))
	assert.Empty(t, out.String())
}

func TestPresenter_SignalsTurnEnd(t *testing.T) {
	var out bytes.Buffer
	p := newPresenter(&out)

	p.handle(ev(events.StreamCompleted{MessageID: "a1", Success: false, Cancelled: true}))
	p.handle(ev(events.ConversationError{Message: "No API key is configured for this provider."}))

	select {
	case <-p.settled:
	default:
		t.Fatal("settled not signalled")
	}
	assert.Contains(t, out.String(), "(cancelled)")
	assert.Contains(t, out.String(), "error: No API key is configured for this provider.")
}

func TestPresenter_LifecycleNotices(t *testing.T) {
	var out bytes.Buffer
	p := newPresenter(&out)

	p.handle(ev(events.ConversationStarted{PersonaID: "claude", ModelID: "claude-sonnet-4-5"}))
	p.handle(ev(events.ConversationExpired{PersonaID: "claude", IdleFor: 31*time.Minute + 400*time.Millisecond}))
	p.handle(ev(events.MessagesPrepended{Added: 3}))
	p.handle(ev(events.MessagesPrepended{Added: 0}))
	p.handle(ev(events.MessagesCleared{Removed: 4}))

	text := out.String()
	assert.Contains(t, text, "new session with claude (claude-sonnet-4-5)")
	assert.Contains(t, text, "expired after 31m0s idle")
	assert.Contains(t, text, "restored 3 messages")
	assert.Equal(t, 1, strings.Count(text, "restored"))
	assert.Contains(t, text, "cleared 4 messages")
}

func TestPresenter_RunStopsWithFeed(t *testing.T) {
	var out bytes.Buffer
	p := newPresenter(&out)
	bus := events.NewBus(nil)
	feed := bus.SubscribeAsync(context.Background(), events.AnyType)

	bus.Publish(ev(events.MessagesCleared{Removed: 1}))
	feed.Cancel()

	done := make(chan struct{})
	go func() {
		p.run(context.Background(), feed)
		close(done)
	}()
	select {
	case <-done:
	case <-time.After(time.Second):
		t.Fatal("presenter did not stop")
	}
	assert.Contains(t, out.String(), "cleared 1 messages")
}

func TestPrintHistory(t *testing.T) {
	var out bytes.Buffer
	printHistory(&out, nil)
	assert.Equal(t, "No conversation history\n", out.String())

	out.Reset()
	printHistory(&out, []*store.Message{
		{ID: "1", Speaker: messages.SpeakerUser, Content: "line one\nline two", CreatedAt: time.Now()},
		{ID: "2", Speaker: "claude", Content: strings.Repeat("x", 300), CreatedAt: time.Now()},
	})
	text := out.String()
	assert.Contains(t, text, "Recent history (2 messages)")
	assert.Contains(t, text, "you: line one line two")
	assert.Contains(t, text, "claude: "+strings.Repeat("x", 197)+"...")
}

func TestTruncate(t *testing.T) {
	assert.Equal(t, "short", truncate("short", 10))
	assert.Equal(t, "héllo w...", truncate("héllo world", 10))
}

func TestColorHandler(t *testing.T) {
	var out bytes.Buffer
	logger := setupLogger(config.LoggingConfig{Level: "debug", Format: "text"}, &out)

	logger.With("component", "desk").WithGroup("turn").Debug("settled", "persona", "claude")
	require.NotEmpty(t, out.String())

	line := out.String()
	assert.Contains(t, line, "DBG settled")
	assert.Contains(t, line, "component=desk")
	assert.Contains(t, line, "turn.persona=claude")

	out.Reset()
	quiet := setupLogger(config.LoggingConfig{Level: "warn"}, &out)
	quiet.Info("hidden")
	assert.Empty(t, out.String())
}

func TestJSONLogger(t *testing.T) {
	var out bytes.Buffer
	logger := setupLogger(config.LoggingConfig{Level: "info", Format: "json"}, &out)
	logger.Info("hello", "k", "v")
	assert.Contains(t, out.String(), `"msg":"hello"`)
	assert.Contains(t, out.String(), `"k":"v"`)
}

func TestParseLevel(t *testing.T) {
	assert.Equal(t, slog.LevelDebug, parseLevel("DEBUG"))
	assert.Equal(t, slog.LevelInfo, parseLevel("bogus"))
	assert.Equal(t, slog.LevelError, parseLevel("error"))
}
