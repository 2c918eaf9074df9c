// ABOUTME: Desk composition root: one loop, one bus, one log, one orchestrator
// ABOUTME: Thread-safe facade that marshals every call onto the loop

package desk

import (
	"context"
	"fmt"
	"log/slog"
	"sync"

	"github.com/2389/coven-desk/internal/config"
	"github.com/2389/coven-desk/internal/conversation"
	"github.com/2389/coven-desk/internal/events"
	"github.com/2389/coven-desk/internal/llm"
	"github.com/2389/coven-desk/internal/loop"
	"github.com/2389/coven-desk/internal/messages"
	"github.com/2389/coven-desk/internal/persona"
	"github.com/2389/coven-desk/internal/report"
	"github.com/2389/coven-desk/internal/store"
	"github.com/2389/coven-desk/internal/stream"
)

// Deps overrides collaborators. Nil fields are built from the config,
// except Store: without one nothing is persisted.
type Deps struct {
	Store    store.Store
	Client   llm.Client
	Resolver conversation.Resolver
}

// Desk is the running conversation core.
type Desk struct {
	cfg      *config.Config
	loop     *loop.Loop
	bus      *events.Bus
	log      *messages.Log
	streams  *stream.Processor
	orch     *conversation.Orchestrator
	reporter *report.Reporter
	store    store.Store
	logger   *slog.Logger

	startOnce   sync.Once
	closeOnce   sync.Once
	feed        *events.Feed
	persistDone chan struct{}
}

// New wires a Desk. The loop runs from here on; call Close to stop it.
func New(cfg *config.Config, deps Deps, logger *slog.Logger) (*Desk, error) {
	if cfg == nil {
		cfg = config.Default()
	}
	if logger == nil {
		logger = slog.Default()
	}

	resolver := deps.Resolver
	if resolver == nil {
		reg, err := persona.Load(cfg.Personas.Path, cfg.Personas.Default)
		if err != nil {
			return nil, fmt.Errorf("loading personas: %w", err)
		}
		resolver = reg
	}
	client := deps.Client
	if client == nil {
		client = NewClient(cfg, logger)
	}

	var sink report.Sink
	if deps.Store != nil {
		sink = deps.Store
	}

	d := &Desk{
		cfg:         cfg,
		loop:        loop.New(logger),
		bus:         events.NewBus(logger),
		reporter:    report.New(sink, logger),
		store:       deps.Store,
		logger:      logger.With("component", "desk"),
		persistDone: make(chan struct{}),
	}
	d.log = messages.NewLog(d.bus, cfg.Conversation.MaxMessages, logger)
	d.streams = stream.New(d.loop, d.log, d.bus, d.reporter, stream.Options{
		ProgressInterval: cfg.Streaming.ProgressInterval,
		Logger:           logger,
	})
	d.orch = conversation.New(conversation.Deps{
		Loop:     d.loop,
		Bus:      d.bus,
		Log:      d.log,
		Streams:  d.streams,
		Resolver: resolver,
		Client:   client,
		Reporter: d.reporter,
	}, conversation.Options{
		MaxContextMessages: contextWindow(cfg.Conversation.MaxContextMessages),
		InactivityTimeout:  cfg.Conversation.InactivityTimeout,
		Logger:             logger,
	})

	d.bus.OnHandlerError(func(ev events.Event, subID string, err error) {
		d.reporter.Report(fmt.Errorf("subscriber %s on %s: %w", subID, ev.Type, err), "bus", report.SeverityWarning)
	})

	return d, nil
}

// contextWindow maps the config's "0 = no history" to the orchestrator's.
func contextWindow(n int) int {
	if n == 0 {
		return -1
	}
	return n
}

// Start restores history from the store and begins persisting. ctx bounds
// the restore only; persistence runs until Close. Calling it again is a no-op.
func (d *Desk) Start(ctx context.Context) error {
	var err error
	d.startOnce.Do(func() { err = d.start(ctx) })
	return err
}

func (d *Desk) start(ctx context.Context) error {
	if d.store == nil {
		close(d.persistDone)
		return nil
	}

	// The feed outlives ctx; Close ends it after the last stream is finalized.
	p := &persister{d: d, pending: make(map[string]events.MessageSnapshot)}
	if err := d.loop.Call(ctx, func() {
		p.feed = d.bus.SubscribeAsync(context.Background(), events.AnyType)
	}); err != nil {
		close(d.persistDone)
		return err
	}
	d.feed = p.feed
	go p.run()

	if d.cfg.History.LoadLimit == 0 {
		return nil
	}
	rows, err := d.store.ListRecentMessages(ctx, d.cfg.History.LoadLimit)
	if err != nil {
		d.logger.Warn("history not restored", "error", err)
		d.reporter.Report(fmt.Errorf("restoring history: %w", err), "desk", report.SeverityWarning)
		return nil
	}

	var added int
	if err := d.loop.Call(ctx, func() {
		added = d.log.PrependHistorical(FromStored(rows))
	}); err != nil {
		return err
	}
	d.logger.Info("history restored", "messages", added)
	return nil
}

// Submit starts a turn. It returns once the turn is accepted or rejected.
func (d *Desk) Submit(ctx context.Context, text string) error {
	var err error
	if callErr := d.loop.Call(ctx, func() { err = d.orch.Submit(text) }); callErr != nil {
		return callErr
	}
	return err
}

// Cancel stops the streaming response, if any.
func (d *Desk) Cancel(ctx context.Context) error {
	var err error
	if callErr := d.loop.Call(ctx, func() { err = d.orch.Cancel() }); callErr != nil {
		return callErr
	}
	return err
}

// Clear cancels any streaming response and empties the message log. The
// persisted history is removed through the messages.cleared event.
func (d *Desk) Clear(ctx context.Context) error {
	return d.loop.Call(ctx, func() {
		d.streams.CancelAll()
		d.log.Clear()
	})
}

// Messages returns a copy of the log, oldest first.
func (d *Desk) Messages(ctx context.Context) ([]messages.Message, error) {
	var msgs []messages.Message
	err := d.loop.Call(ctx, func() { msgs = d.log.Messages() })
	return msgs, err
}

// Status is a snapshot of the orchestrator.
type Status struct {
	State       conversation.State
	LastSettled conversation.State
	Context     conversation.Context
	HasContext  bool
	Messages    int
}

// Status reports the orchestrator's state.
func (d *Desk) Status(ctx context.Context) (Status, error) {
	var s Status
	err := d.loop.Call(ctx, func() {
		s.State = d.orch.State()
		s.LastSettled = d.orch.LastSettled()
		s.Context, s.HasContext = d.orch.Context()
		s.Messages = d.log.Len()
	})
	return s, err
}

// Subscribe opens a feed of events of type t. The feed ends when ctx ends.
func (d *Desk) Subscribe(ctx context.Context, t events.Type) (*events.Feed, error) {
	var feed *events.Feed
	if err := d.loop.Call(ctx, func() { feed = d.bus.SubscribeAsync(ctx, t) }); err != nil {
		return nil, err
	}
	return feed, nil
}

// Close cancels any streaming response, stops the loop and flushes
// persistence. Safe to call more than once.
func (d *Desk) Close() error {
	var err error
	d.closeOnce.Do(func() {
		// Finalize open streams so their last content reaches the store.
		_ = d.loop.Call(context.Background(), d.streams.CancelAll)
		d.loop.Close()

		if d.feed != nil {
			d.feed.Cancel()
			<-d.persistDone
		}
		d.reporter.Flush()

		if d.store != nil {
			err = d.store.Close()
		}
		d.logger.Debug("desk closed")
	})
	return err
}
