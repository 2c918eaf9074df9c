// ABOUTME: Conversation Orchestrator, the turn state machine
// ABOUTME: Resolve, record, request, then stream; every path clears the in-flight guard

package conversation

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strings"
	"time"

	"github.com/2389/coven-desk/internal/events"
	"github.com/2389/coven-desk/internal/llm"
	"github.com/2389/coven-desk/internal/messages"
	"github.com/2389/coven-desk/internal/report"
	"github.com/2389/coven-desk/internal/stream"
)

// DefaultMaxContextMessages bounds the history sent with each request.
const DefaultMaxContextMessages = 20

const source = "orchestrator"

var (
	// ErrTurnInFlight is returned by Submit while a turn is unsettled.
	ErrTurnInFlight = errors.New("a turn is already in flight")

	// ErrEmptyInput is returned by Submit for blank text.
	ErrEmptyInput = errors.New("message is empty")

	// ErrNothingToCancel is returned by Cancel when no response is streaming.
	ErrNothingToCancel = errors.New("no streaming response to cancel")
)

// Resolver maps raw user text to a persona and its model.
type Resolver interface {
	Resolve(raw string) (personaID, cleaned string)
	SystemPrompt(personaID string) string
	ModelFor(personaID string) string
}

// Log is the slice of the Message Log the orchestrator uses.
type Log interface {
	Append(msg messages.Message) bool
	Mutate(id, content string, streaming bool) bool
	Recent(n int, excludeID string) []messages.Message
}

// Streamer runs assistant streams.
type Streamer interface {
	Process(job stream.Job) error
	Cancel(messageID string) error
}

// Publisher is the slice of the bus the orchestrator needs.
type Publisher interface {
	Publish(ev events.Event)
}

// Poster marshals work onto the loop.
type Poster interface {
	Post(fn func()) bool
}

// Reporter receives turn failures.
type Reporter interface {
	Report(err error, source string, severity report.Severity)
}

// Deps are the orchestrator's collaborators. All are required.
type Deps struct {
	Loop     Poster
	Bus      Publisher
	Log      Log
	Streams  Streamer
	Resolver Resolver
	Client   llm.Client
	Reporter Reporter
}

// Options tunes an Orchestrator.
type Options struct {
	// MaxContextMessages is the history window; zero means the default,
	// negative sends no history.
	MaxContextMessages int
	// InactivityTimeout expires the context; zero disables expiry.
	InactivityTimeout time.Duration
	// Now overrides the clock in tests.
	Now    func() time.Time
	Logger *slog.Logger
}

type turn struct {
	userID        string
	personaID     string
	modelID       string
	placeholderID string
	stop          context.CancelFunc
	submitted     time.Time
}

// Orchestrator drives one turn at a time.
type Orchestrator struct {
	deps       Deps
	maxContext int
	timeout    time.Duration
	now        func() time.Time
	logger     *slog.Logger

	state   State
	last    State
	current *Context
	turn    *turn
}

// New creates an Orchestrator in the Idle state.
func New(deps Deps, opts Options) *Orchestrator {
	maxContext := opts.MaxContextMessages
	switch {
	case maxContext == 0:
		maxContext = DefaultMaxContextMessages
	case maxContext < 0:
		maxContext = 0
	}
	now := opts.Now
	if now == nil {
		now = time.Now
	}
	logger := opts.Logger
	if logger == nil {
		logger = slog.Default()
	}
	return &Orchestrator{
		deps:       deps,
		maxContext: maxContext,
		timeout:    opts.InactivityTimeout,
		now:        now,
		logger:     logger.With("component", "orchestrator"),
		state:      StateIdle,
		last:       StateIdle,
	}
}

// State returns the current lifecycle state.
func (o *Orchestrator) State() State { return o.state }

// LastSettled returns how the most recent turn ended, or StateIdle before
// the first turn settles.
func (o *Orchestrator) LastSettled() State { return o.last }

// InFlight reports whether a turn is unsettled.
func (o *Orchestrator) InFlight() bool { return o.turn != nil }

// Context returns a copy of the active Conversation Context.
func (o *Orchestrator) Context() (Context, bool) {
	if o.current == nil {
		return Context{}, false
	}
	return *o.current, true
}

// StreamingMessageID returns the placeholder id of the streaming turn.
func (o *Orchestrator) StreamingMessageID() (string, bool) {
	if o.turn == nil || o.turn.placeholderID == "" {
		return "", false
	}
	return o.turn.placeholderID, true
}

// Submit starts a turn for raw. It returns once the request is handed to
// the client; the response arrives through the bus. A rejected submit
// changes neither the log nor the context.
func (o *Orchestrator) Submit(raw string) error {
	if o.turn != nil {
		o.logger.Warn("submit rejected, turn in flight", "state", o.state)
		return ErrTurnInFlight
	}
	if strings.TrimSpace(raw) == "" {
		return ErrEmptyInput
	}

	now := o.now()
	o.state = StateResolving

	personaID, text := o.deps.Resolver.Resolve(raw)
	text = strings.TrimSpace(text)
	if text == "" {
		text = strings.TrimSpace(raw)
	}
	modelID := o.deps.Resolver.ModelFor(personaID)

	o.enterContext(personaID, modelID, now)

	user := messages.NewUser(text)
	o.deps.Log.Append(user)

	req := &llm.Request{
		Text:         text,
		PersonaID:    personaID,
		SystemPrompt: o.deps.Resolver.SystemPrompt(personaID),
		ModelID:      modelID,
		History:      o.history(user.ID),
	}

	ctx, stop := context.WithCancel(context.Background())
	t := &turn{
		userID:    user.ID,
		personaID: personaID,
		modelID:   modelID,
		stop:      stop,
		submitted: now,
	}
	o.turn = t
	o.state = StateRequesting

	o.logger.Info("turn submitted",
		"session_id", o.current.SessionID,
		"persona", personaID,
		"model", modelID,
		"history", len(req.History))

	go o.send(ctx, t, req)
	return nil
}

// Cancel stops the streaming response. Turns still waiting on the client
// cannot be cancelled.
func (o *Orchestrator) Cancel() error {
	if o.turn == nil || o.state != StateStreaming {
		return ErrNothingToCancel
	}
	return o.deps.Streams.Cancel(o.turn.placeholderID)
}

// enterContext keeps, supersedes or expires the active context.
func (o *Orchestrator) enterContext(personaID, modelID string, now time.Time) {
	previous := ""
	if c := o.current; c != nil {
		switch {
		case c.expired(now, o.timeout):
			idle := now.Sub(c.LastActivity)
			o.logger.Info("conversation expired",
				"session_id", c.SessionID,
				"idle_for", idle)
			o.deps.Bus.Publish(events.New(source, events.ConversationExpired{
				SessionID: c.SessionID,
				PersonaID: c.PersonaID,
				IdleFor:   idle,
			}))
			previous = c.SessionID
		case c.PersonaID != personaID:
			previous = c.SessionID
		default:
			o.current = c.touched(now)
			return
		}
	}

	o.current = newContext(personaID, modelID, previous, now)
	o.logger.Info("conversation started",
		"session_id", o.current.SessionID,
		"persona", personaID,
		"previous_session_id", previous)
	o.deps.Bus.Publish(events.New(source, events.ConversationStarted{
		SessionID:         o.current.SessionID,
		PersonaID:         personaID,
		ModelID:           modelID,
		PreviousSessionID: previous,
	}))
}

// history returns finalized log entries before the user's new message.
func (o *Orchestrator) history(excludeID string) []llm.Turn {
	recent := o.deps.Log.Recent(o.maxContext, excludeID)
	turns := make([]llm.Turn, 0, len(recent))
	for _, m := range recent {
		if m.Streaming {
			continue
		}
		role := llm.RoleAssistant
		if m.FromUser() {
			role = llm.RoleUser
		}
		turns = append(turns, llm.Turn{Role: role, Speaker: m.Speaker, Content: m.Content})
	}
	return turns
}

// send runs off the loop; the client may block while connecting.
func (o *Orchestrator) send(ctx context.Context, t *turn, req *llm.Request) {
	frags, err := o.callClient(ctx, req)
	if !o.deps.Loop.Post(func() { o.sent(t, frags, err) }) {
		t.stop()
	}
}

func (o *Orchestrator) callClient(ctx context.Context, req *llm.Request) (frags <-chan llm.Fragment, err error) {
	defer func() {
		if r := recover(); r != nil {
			frags, err = nil, fmt.Errorf("%w: client panic: %v", llm.ErrInvalidResponse, r)
		}
	}()
	return o.deps.Client.Send(ctx, req)
}

// sent runs on the loop with the client's answer.
func (o *Orchestrator) sent(t *turn, frags <-chan llm.Fragment, err error) {
	if o.turn != t {
		t.stop()
		return
	}
	if err == nil && frags == nil {
		err = fmt.Errorf("%w: client returned no stream", llm.ErrInvalidResponse)
	}
	if err != nil {
		o.fail(t, err)
		return
	}

	placeholder := messages.NewPlaceholder(t.personaID, t.modelID)
	o.deps.Log.Append(placeholder)
	t.placeholderID = placeholder.ID
	o.state = StateStreaming

	err = o.deps.Streams.Process(stream.Job{
		MessageID:  placeholder.ID,
		PersonaID:  t.personaID,
		Fragments:  frags,
		Stop:       t.stop,
		OnComplete: func(out stream.Outcome) { o.completed(t, out) },
	})
	if err != nil {
		o.deps.Log.Mutate(placeholder.ID, stream.ErrorSuffix(err), false)
		o.fail(t, err)
	}
}

func (o *Orchestrator) fail(t *turn, err error) {
	t.stop()
	o.deps.Reporter.Report(err, source, report.SeverityError)
	if o.current != nil {
		o.deps.Bus.Publish(events.New(source, events.ConversationError{
			SessionID: o.current.SessionID,
			PersonaID: t.personaID,
			Kind:      string(llm.Classify(err)),
			Message:   llm.Describe(err),
		}))
	}
	o.settle(t, StateFailed, err)
}

func (o *Orchestrator) completed(t *turn, out stream.Outcome) {
	if o.turn != t {
		return
	}
	if o.current != nil {
		o.current = o.current.touched(o.now())
	}
	state := StateSucceeded
	if !out.Success {
		state = StateFailed
	}
	o.settle(t, state, out.Err)
}

func (o *Orchestrator) settle(t *turn, state State, err error) {
	o.turn = nil
	o.last = state
	o.state = StateIdle

	attrs := []any{
		"user_message_id", t.userID,
		"persona", t.personaID,
		"outcome", state,
		"elapsed", o.now().Sub(t.submitted),
	}
	if err != nil {
		attrs = append(attrs, "error", err)
	}
	o.logger.Info("turn settled", attrs...)
}
