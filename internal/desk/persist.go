// ABOUTME: Persistence subscriber that mirrors the message log into the store
// ABOUTME: Runs on its own goroutine, fed by an unbounded bus feed

package desk

import (
	"context"
	"time"

	"github.com/2389/coven-desk/internal/events"
	"github.com/2389/coven-desk/internal/messages"
	"github.com/2389/coven-desk/internal/report"
	"github.com/2389/coven-desk/internal/store"
)

const saveTimeout = 5 * time.Second

// persister is only touched by its own goroutine.
type persister struct {
	d       *Desk
	feed    *events.Feed
	pending map[string]events.MessageSnapshot // streaming messages by id
	session *store.Session
}

func (p *persister) run() {
	defer close(p.d.persistDone)
	for ev := range p.feed.All(context.Background()) {
		p.handle(ev)
	}
	p.d.logger.Debug("persistence feed drained")
}

func (p *persister) handle(ev events.Event) {
	switch pl := ev.Payload.(type) {
	case events.MessageAdded:
		for _, id := range pl.Evicted {
			delete(p.pending, id)
		}
		if pl.Message.Streaming {
			p.pending[pl.Message.ID] = pl.Message
			return
		}
		p.saveMessage(pl.Message)

	case events.MessageUpdated:
		snap, ok := p.pending[pl.ID]
		if !ok {
			return
		}
		snap.Content = pl.Content
		if pl.Streaming {
			p.pending[pl.ID] = snap
			return
		}
		delete(p.pending, pl.ID)
		p.saveMessage(snap)

	case events.MessagesCleared:
		clear(p.pending)
		p.write("delete messages", func(ctx context.Context) error {
			return p.d.store.DeleteAllMessages(ctx)
		})

	case events.ConversationStarted:
		p.session = &store.Session{
			ID:           pl.SessionID,
			PersonaID:    pl.PersonaID,
			ModelID:      pl.ModelID,
			StartedAt:    ev.Time,
			LastActivity: ev.Time,
			PreviousID:   pl.PreviousSessionID,
		}
		p.saveSession()

	case events.StreamCompleted:
		if p.session != nil {
			p.session.LastActivity = ev.Time
			p.saveSession()
		}
	}
}

func (p *persister) saveMessage(snap events.MessageSnapshot) {
	msg := &store.Message{
		ID:        snap.ID,
		Speaker:   snap.Speaker,
		Content:   snap.Content,
		ModelID:   snap.ModelID,
		CreatedAt: snap.CreatedAt,
	}
	p.write("save message", func(ctx context.Context) error {
		return p.d.store.SaveMessage(ctx, msg)
	})
}

func (p *persister) saveSession() {
	session := *p.session
	p.write("save session", func(ctx context.Context) error {
		return p.d.store.SaveSession(ctx, &session)
	})
}

// write runs op with its own timeout; failures are reported, never fatal.
func (p *persister) write(what string, op func(ctx context.Context) error) {
	ctx, cancel := context.WithTimeout(context.Background(), saveTimeout)
	defer cancel()

	if err := op(ctx); err != nil {
		p.d.logger.Error("persistence failed", "op", what, "error", err)
		p.d.reporter.Report(err, "store", report.SeverityWarning)
	}
}

// FromStored converts persisted rows to log messages, oldest first.
func FromStored(rows []*store.Message) []messages.Message {
	out := make([]messages.Message, 0, len(rows))
	for _, r := range rows {
		out = append(out, messages.Message{
			ID:        r.ID,
			Speaker:   r.Speaker,
			Content:   r.Content,
			CreatedAt: r.CreatedAt,
			ModelID:   r.ModelID,
		})
	}
	return out
}
