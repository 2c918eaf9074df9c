// ABOUTME: Console presenter that renders bus events as streaming terminal output
// ABOUTME: Prints only the new suffix of each update so replies appear word by word

package main

import (
	"context"
	"fmt"
	"io"
	"strings"
	"time"

	"github.com/fatih/color"

	"github.com/2389/coven-desk/internal/events"
	"github.com/2389/coven-desk/internal/messages"
)

var (
	grayText   = color.New(color.FgHiBlack)
	greenText  = color.New(color.FgGreen, color.Bold)
	yellowText = color.New(color.FgYellow)
	redText    = color.New(color.FgRed)
)

// presenter is driven by a single goroutine ranging over a feed.
type presenter struct {
	out     io.Writer
	printed map[string]string // streaming message id -> text already shown
	settled chan struct{}
}

func newPresenter(out io.Writer) *presenter {
	return &presenter{
		out:     out,
		printed: make(map[string]string),
		settled: make(chan struct{}, 1),
	}
}

// run renders events until the feed ends.
func (p *presenter) run(ctx context.Context, feed *events.Feed) {
	for ev := range feed.All(ctx) {
		p.handle(ev)
	}
}

func (p *presenter) handle(ev events.Event) {
	switch pl := ev.Payload.(type) {
	case events.ConversationStarted:
		grayText.Fprintf(p.out, "── new session with %s (%s)\n", pl.PersonaID, pl.ModelID)

	case events.ConversationExpired:
		grayText.Fprintf(p.out, "── session with %s expired after %s idle\n", pl.PersonaID, pl.IdleFor.Round(time.Second))

	case events.MessageAdded:
		if pl.Message.Speaker == messages.SpeakerUser || !pl.Message.Streaming {
			return
		}
		greenText.Fprintf(p.out, "%s: ", pl.Message.Speaker)
		p.printed[pl.Message.ID] = ""

	case events.MessageUpdated:
		shown, ok := p.printed[pl.ID]
		if !ok {
			return
		}
		if rest, grew := strings.CutPrefix(pl.Content, shown); grew {
			fmt.Fprint(p.out, rest)
		} else {
			fmt.Fprint(p.out, "\n"+pl.Content)
		}
		if pl.Streaming {
			p.printed[pl.ID] = pl.Content
			return
		}
		fmt.Fprintln(p.out)
		delete(p.printed, pl.ID)

	case events.MessagesPrepended:
		if pl.Added > 0 {
			grayText.Fprintf(p.out, "── restored %d messages\n", pl.Added)
		}

	case events.MessagesCleared:
		grayText.Fprintf(p.out, "── cleared %d messages\n", pl.Removed)

	case events.StreamCompleted:
		if pl.Cancelled {
			yellowText.Fprintln(p.out, "(cancelled)")
		}
		p.signal()

	case events.ConversationError:
		redText.Fprintf(p.out, "error: %s\n", pl.Message)
		p.signal()
	}
}

// signal marks the end of a turn without blocking the feed.
func (p *presenter) signal() {
	select {
	case p.settled <- struct{}{}:
	default:
	}
}
