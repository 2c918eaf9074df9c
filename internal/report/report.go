// ABOUTME: Fire-and-forget error reporter with slog output and optional persistence
// ABOUTME: Sink writes run asynchronously under a timeout and never fail the caller

package report

import (
	"context"
	"log/slog"
	"sync"
	"sync/atomic"
	"time"

	"github.com/google/uuid"

	"github.com/2389/coven-desk/internal/llm"
	"github.com/2389/coven-desk/internal/store"
)

// Severity grades a report.
type Severity string

const (
	SeverityInfo    Severity = "info"
	SeverityWarning Severity = "warning"
	SeverityError   Severity = "error"
)

// sinkTimeout bounds each persisted write.
const sinkTimeout = 5 * time.Second

// Sink persists reports.
type Sink interface {
	SaveReport(ctx context.Context, report *store.ErrorReport) error
}

// Reporter records errors from any component. It is safe for concurrent use.
type Reporter struct {
	sink    Sink
	logger  *slog.Logger
	pending sync.WaitGroup
	count   atomic.Int64
}

// New creates a Reporter. sink may be nil; pass nil logger for default.
func New(sink Sink, logger *slog.Logger) *Reporter {
	if logger == nil {
		logger = slog.Default()
	}
	return &Reporter{
		sink:   sink,
		logger: logger.With("component", "reporter"),
	}
}

// Report logs err and hands it to the sink without blocking. A nil err is ignored.
func (r *Reporter) Report(err error, source string, severity Severity) {
	if err == nil {
		return
	}
	r.count.Add(1)

	kind := llm.Classify(err)
	attrs := []any{
		"source", source,
		"severity", severity,
		"kind", kind,
		"error", err,
	}
	switch severity {
	case SeverityInfo:
		r.logger.Info("reported", attrs...)
	case SeverityWarning:
		r.logger.Warn("reported", attrs...)
	default:
		r.logger.Error("reported", attrs...)
	}

	if r.sink == nil {
		return
	}

	entry := &store.ErrorReport{
		ID:        uuid.New().String(),
		Source:    source,
		Severity:  string(severity),
		Kind:      string(kind),
		Message:   err.Error(),
		CreatedAt: time.Now(),
	}
	r.pending.Go(func() { r.save(entry) })
}

// Count returns how many reports have been made.
func (r *Reporter) Count() int64 {
	return r.count.Load()
}

// Flush waits for in-flight sink writes.
func (r *Reporter) Flush() {
	r.pending.Wait()
}

// save writes a report with its own timeout context, so persistence does
// not depend on the caller's lifetime.
func (r *Reporter) save(entry *store.ErrorReport) {
	defer func() {
		if p := recover(); p != nil {
			r.logger.Error("report sink panicked", "panic", p, "report_id", entry.ID)
		}
	}()

	ctx, cancel := context.WithTimeout(context.Background(), sinkTimeout)
	defer cancel()

	if err := r.sink.SaveReport(ctx, entry); err != nil {
		r.logger.Error("failed to save report",
			"error", err,
			"report_id", entry.ID,
			"source", entry.Source)
	}
}
