// ABOUTME: Stream processor pulling provider fragments into the message log
// ABOUTME: Pulls on a goroutine, applies on the loop, finalizes exactly once per run

package stream

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"maps"
	"strings"

	"github.com/2389/coven-desk/internal/events"
	"github.com/2389/coven-desk/internal/llm"
	"github.com/2389/coven-desk/internal/report"
)

// DefaultProgressInterval is the number of content fragments between
// progress events.
const DefaultProgressInterval = 10

// CancelledMarker replaces the content of a run cancelled before any text.
const CancelledMarker = "[cancelled]"

const source = "stream"

var (
	// ErrAlreadyStreaming is returned when a run for the message id is active.
	ErrAlreadyStreaming = errors.New("message is already streaming")

	// ErrNoActiveRun is returned by Cancel when nothing streams to the id.
	ErrNoActiveRun = errors.New("no active stream for message")

	// ErrNoFragments is returned when a job has no fragment channel.
	ErrNoFragments = errors.New("job has no fragment stream")
)

// Poster marshals work onto the loop.
type Poster interface {
	Post(fn func()) bool
}

// Mutator is the slice of the Message Log the processor writes through.
type Mutator interface {
	Mutate(id, content string, streaming bool) bool
}

// Publisher is the slice of the bus the processor needs.
type Publisher interface {
	Publish(ev events.Event)
}

// Reporter receives stream failures.
type Reporter interface {
	Report(err error, source string, severity report.Severity)
}

// Job describes one stream to drive.
type Job struct {
	MessageID string
	PersonaID string
	Fragments <-chan llm.Fragment
	// Stop releases the provider once the processor stops pulling. Optional.
	Stop context.CancelFunc
	// OnComplete is called on the loop after the completion event. Optional.
	OnComplete func(Outcome)
}

// Outcome summarizes a finished run.
type Outcome struct {
	MessageID string
	PersonaID string
	Success   bool
	Cancelled bool
	Err       error
	Content   string
	Fragments int
	Metadata  map[string]string
}

// Options configures a Processor.
type Options struct {
	ProgressInterval int
	Logger           *slog.Logger
}

type run struct {
	job       Job
	acc       strings.Builder
	fragments int
	metadata  map[string]string
	finished  bool
	ctx       context.Context
	stopPull  context.CancelFunc
}

// Processor owns all active stream runs.
type Processor struct {
	loop     Poster
	log      Mutator
	bus      Publisher
	reporter Reporter
	interval int
	runs     map[string]*run
	logger   *slog.Logger
}

// New creates a Processor.
func New(loop Poster, log Mutator, bus Publisher, reporter Reporter, opts Options) *Processor {
	if opts.ProgressInterval < 1 {
		opts.ProgressInterval = DefaultProgressInterval
	}
	logger := opts.Logger
	if logger == nil {
		logger = slog.Default()
	}
	return &Processor{
		loop:     loop,
		log:      log,
		bus:      bus,
		reporter: reporter,
		interval: opts.ProgressInterval,
		runs:     make(map[string]*run),
		logger:   logger.With("component", "stream"),
	}
}

// Process starts driving job. It returns immediately; completion is signalled
// by the stream.completed event and job.OnComplete.
func (p *Processor) Process(job Job) error {
	if job.Fragments == nil {
		return ErrNoFragments
	}
	if _, busy := p.runs[job.MessageID]; busy {
		p.logger.Warn("rejected second stream for message", "message_id", job.MessageID)
		return fmt.Errorf("%w: %s", ErrAlreadyStreaming, job.MessageID)
	}

	ctx, stop := context.WithCancel(context.Background())
	r := &run{
		job:      job,
		metadata: make(map[string]string),
		ctx:      ctx,
		stopPull: stop,
	}
	p.runs[job.MessageID] = r

	p.logger.Debug("stream started",
		"message_id", job.MessageID,
		"persona", job.PersonaID)

	go p.pull(r)
	return nil
}

// Cancel stops the run writing to messageID and finalizes it now.
func (p *Processor) Cancel(messageID string) error {
	r, ok := p.runs[messageID]
	if !ok {
		return fmt.Errorf("%w: %s", ErrNoActiveRun, messageID)
	}
	p.finish(r, nil, true)
	return nil
}

// CancelAll cancels every active run. Used on shutdown.
func (p *Processor) CancelAll() {
	for _, r := range p.runs {
		p.finish(r, nil, true)
	}
}

// Active reports whether a run is writing to messageID.
func (p *Processor) Active(messageID string) bool {
	_, ok := p.runs[messageID]
	return ok
}

// ActiveCount returns the number of active runs.
func (p *Processor) ActiveCount() int {
	return len(p.runs)
}

// pull runs on its own goroutine and only forwards fragments to the loop.
func (p *Processor) pull(r *run) {
	for {
		select {
		case <-r.ctx.Done():
			return
		case f, ok := <-r.job.Fragments:
			if !ok {
				p.loop.Post(func() { p.finish(r, nil, false) })
				return
			}
			if !p.loop.Post(func() { p.apply(r, f) }) {
				return
			}
			if f.Terminal() {
				return
			}
		}
	}
}

// apply runs on the loop.
func (p *Processor) apply(r *run, f llm.Fragment) {
	if r.finished {
		return
	}

	switch f.Kind {
	case llm.FragmentContent:
		r.acc.WriteString(f.Text)
		r.fragments++
		if !p.log.Mutate(r.job.MessageID, r.acc.String(), true) {
			// The target message is gone (cleared or evicted).
			p.logger.Warn("stream target no longer writable",
				"message_id", r.job.MessageID)
			p.finish(r, nil, true)
			return
		}
		if r.fragments%p.interval == 0 {
			p.bus.Publish(events.New(source, events.StreamProgress{
				MessageID: r.job.MessageID,
				PersonaID: r.job.PersonaID,
				Fragments: r.fragments,
				Length:    r.acc.Len(),
			}))
		}

	case llm.FragmentMetadata:
		maps.Copy(r.metadata, f.Metadata)

	case llm.FragmentError:
		err := f.Err
		if err == nil {
			err = llm.ErrStreaming
		}
		p.finish(r, err, false)

	case llm.FragmentDone:
		p.finish(r, nil, false)
	}
}

// finish finalizes r exactly once, on the loop.
func (p *Processor) finish(r *run, err error, cancelled bool) {
	if r.finished {
		return
	}
	r.finished = true
	delete(p.runs, r.job.MessageID)
	r.stopPull()
	if r.job.Stop != nil {
		r.job.Stop()
	}

	content := r.acc.String()
	switch {
	case cancelled:
		if content == "" {
			content = CancelledMarker
		}
	case err != nil:
		content += ErrorSuffix(err)
		if p.reporter != nil {
			p.reporter.Report(err, source, report.SeverityError)
		}
	}

	p.log.Mutate(r.job.MessageID, content, false)

	out := Outcome{
		MessageID: r.job.MessageID,
		PersonaID: r.job.PersonaID,
		Success:   err == nil && !cancelled,
		Cancelled: cancelled,
		Err:       err,
		Content:   content,
		Fragments: r.fragments,
		Metadata:  maps.Clone(r.metadata),
	}

	completed := events.StreamCompleted{
		MessageID: out.MessageID,
		PersonaID: out.PersonaID,
		Success:   out.Success,
		Cancelled: cancelled,
		Length:    len(content),
		Metadata:  maps.Clone(r.metadata),
	}
	if err != nil {
		completed.Error = llm.Describe(err)
	}
	p.bus.Publish(events.New(source, completed))

	p.logger.Debug("stream finished",
		"message_id", out.MessageID,
		"success", out.Success,
		"cancelled", cancelled,
		"fragments", r.fragments,
		"length", len(content))

	if r.job.OnComplete != nil {
		r.job.OnComplete(out)
	}
}

// ErrorSuffix is appended to partial content when a stream fails.
func ErrorSuffix(err error) string {
	return "\n\n[Error: " + llm.Describe(err) + "]"
}
