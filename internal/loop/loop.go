// ABOUTME: Single-goroutine serialized task queue for core state mutation
// ABOUTME: Components marshal closures here instead of sharing locks

package loop

import (
	"context"
	"errors"
	"log/slog"
	"runtime/debug"
	"sync"
)

// ErrClosed is returned when work is submitted to a closed Loop.
var ErrClosed = errors.New("loop closed")

// Loop runs submitted tasks sequentially on a dedicated goroutine.
type Loop struct {
	mu      sync.Mutex
	queue   []func()
	wake    chan struct{}
	closed  bool
	stopped chan struct{}
	logger  *slog.Logger
}

// New creates a Loop and starts its goroutine. Pass nil logger for default.
func New(logger *slog.Logger) *Loop {
	if logger == nil {
		logger = slog.Default()
	}
	l := &Loop{
		wake:    make(chan struct{}, 1),
		stopped: make(chan struct{}),
		logger:  logger.With("component", "loop"),
	}
	go l.run()
	return l
}

// Post enqueues fn to run on the loop. Returns false if the loop is closed.
func (l *Loop) Post(fn func()) bool {
	l.mu.Lock()
	if l.closed {
		l.mu.Unlock()
		return false
	}
	l.queue = append(l.queue, fn)
	select {
	case l.wake <- struct{}{}:
	default:
		// Already signalled
	}
	l.mu.Unlock()
	return true
}

// Call runs fn on the loop and waits for it to finish or for ctx to end.
// If ctx ends first, fn may still run later. A task queued before Close is
// always run, so Call never hangs on a closing loop.
func (l *Loop) Call(ctx context.Context, fn func()) error {
	done := make(chan struct{})
	if !l.Post(func() {
		defer close(done)
		fn()
	}) {
		return ErrClosed
	}

	select {
	case <-done:
		return nil
	case <-ctx.Done():
		return ctx.Err()
	}
}

// Close stops accepting tasks, runs everything already queued, and waits for
// the loop goroutine to exit. It is safe to call multiple times.
func (l *Loop) Close() {
	l.mu.Lock()
	if !l.closed {
		l.closed = true
		close(l.wake)
	}
	l.mu.Unlock()

	<-l.stopped
}

func (l *Loop) run() {
	defer close(l.stopped)

	for {
		_, ok := <-l.wake
		for {
			batch := l.take()
			if len(batch) == 0 {
				break
			}
			for _, fn := range batch {
				l.exec(fn)
			}
		}
		if !ok {
			return
		}
	}
}

// take swaps out the pending queue.
func (l *Loop) take() []func() {
	l.mu.Lock()
	defer l.mu.Unlock()

	batch := l.queue
	l.queue = nil
	return batch
}

func (l *Loop) exec(fn func()) {
	defer func() {
		if r := recover(); r != nil {
			l.logger.Error("task panicked",
				"panic", r,
				"stack", string(debug.Stack()))
		}
	}()
	fn()
}
