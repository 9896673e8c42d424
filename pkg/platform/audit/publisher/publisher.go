// Package publisher delivers audit events to a sink, synchronously by default
// or through a buffered channel when async mode is configured.
package publisher

import (
	"context"
	"log/slog"
	"sync"
	"time"

	audit "visado/pkg/platform/audit"
)

// Sink receives audit events. Implementations: in-memory store (tests,
// single-node deployments) and Kafka (production fan-out).
type Sink interface {
	Append(ctx context.Context, event audit.Event) error
}

// Publisher emits audit events to its sink. In async mode a full buffer drops
// the event rather than blocking the request path; audit delivery must never
// stall an eligibility decision.
type Publisher struct {
	sink   Sink
	logger *slog.Logger

	ch     chan audit.Event
	wg     sync.WaitGroup
	closed chan struct{}
	once   sync.Once
}

// Option configures a Publisher.
type Option func(*Publisher)

// WithAsyncBuffer enables asynchronous delivery with the given buffer size.
func WithAsyncBuffer(size int) Option {
	return func(p *Publisher) {
		if size > 0 {
			p.ch = make(chan audit.Event, size)
		}
	}
}

// WithLogger sets the logger used for delivery failures.
func WithLogger(logger *slog.Logger) Option {
	return func(p *Publisher) {
		p.logger = logger
	}
}

// NewPublisher constructs a publisher over the given sink.
func NewPublisher(sink Sink, opts ...Option) *Publisher {
	p := &Publisher{
		sink:   sink,
		closed: make(chan struct{}),
	}
	for _, opt := range opts {
		opt(p)
	}

	if p.ch != nil {
		p.wg.Add(1)
		go p.drain()
	}
	return p
}

// Emit delivers an event. Sets the timestamp if unset. In async mode a full
// buffer drops the event and logs a warning.
func (p *Publisher) Emit(ctx context.Context, event audit.Event) error {
	if event.Timestamp.IsZero() {
		event.Timestamp = time.Now()
	}

	if p.ch == nil {
		return p.sink.Append(ctx, event)
	}

	select {
	case p.ch <- event:
		return nil
	default:
		if p.logger != nil {
			p.logger.Warn("audit buffer full, dropping event",
				"action", event.Action,
				"case_id", event.CaseID,
			)
		}
		return nil
	}
}

func (p *Publisher) drain() {
	defer p.wg.Done()
	for event := range p.ch {
		// Detached context: the originating request may be long gone.
		if err := p.sink.Append(context.Background(), event); err != nil && p.logger != nil {
			p.logger.Error("audit event delivery failed",
				"action", event.Action,
				"error", err,
			)
		}
	}
}

// Close drains any buffered events and stops the background worker.
func (p *Publisher) Close() {
	p.once.Do(func() {
		close(p.closed)
		if p.ch != nil {
			close(p.ch)
			p.wg.Wait()
		}
	})
}
