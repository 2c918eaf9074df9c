// ABOUTME: Local provider that streams the request text back word by word
// ABOUTME: Stands in for network providers in the CLI and in tests

package llm

import (
	"context"
	"strings"
	"time"
)

// EchoOptions configures an Echo provider.
type EchoOptions struct {
	Name string
	// ModelPrefixes lists the model id prefixes served; empty serves all.
	ModelPrefixes []string
	// Delay is the pause between fragments.
	Delay time.Duration
	// RequireKey makes the Router check credentials for Name.
	RequireKey bool
}

// Echo is a Provider that replies with the user's own words.
type Echo struct {
	opts EchoOptions
}

// NewEcho creates an Echo provider. An empty name becomes "echo".
func NewEcho(opts EchoOptions) *Echo {
	if opts.Name == "" {
		opts.Name = "echo"
	}
	return &Echo{opts: opts}
}

func (e *Echo) Name() string   { return e.opts.Name }
func (e *Echo) NeedsKey() bool { return e.opts.RequireKey }

func (e *Echo) Serves(modelID string) bool {
	if len(e.opts.ModelPrefixes) == 0 {
		return true
	}
	lower := strings.ToLower(modelID)
	for _, prefix := range e.opts.ModelPrefixes {
		if strings.HasPrefix(lower, strings.ToLower(prefix)) {
			return true
		}
	}
	return false
}

// Send streams a metadata fragment, the words of req.Text, then Done.
func (e *Echo) Send(ctx context.Context, req *Request) (<-chan Fragment, error) {
	words := strings.SplitAfter(req.Text, " ")
	out := make(chan Fragment, 16)

	go func() {
		defer close(out)

		meta := Metadata(map[string]string{
			"provider": e.opts.Name,
			"model":    req.ModelID,
		})
		if !e.emit(ctx, out, meta) {
			return
		}
		for _, w := range words {
			if w == "" {
				continue
			}
			if !e.emit(ctx, out, Content(w)) {
				return
			}
		}
		e.emit(ctx, out, Done())
	}()

	return out, nil
}

// emit waits out the delay and sends f; false means ctx ended first.
func (e *Echo) emit(ctx context.Context, out chan<- Fragment, f Fragment) bool {
	if e.opts.Delay > 0 {
		timer := time.NewTimer(e.opts.Delay)
		select {
		case <-timer.C:
		case <-ctx.Done():
			timer.Stop()
			return false
		}
	}
	select {
	case out <- f:
		return true
	case <-ctx.Done():
		return false
	}
}
