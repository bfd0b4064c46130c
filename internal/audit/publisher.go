package audit

import (
	"context"
	"log/slog"
	"sync"
	"time"

	"github.com/google/uuid"
)

// Publisher captures structured audit records. It is append-only and writes
// through the storage layer so tests can swap sinks easily. Extra sinks
// (e.g. the Kafka stream) receive every record best-effort after the primary
// store accepted it.
type Publisher struct {
	store  Store
	sinks  []Appender
	logger *slog.Logger

	inbox chan Record
	wg    sync.WaitGroup
	once  sync.Once
}

type PublisherOption func(*Publisher)

func WithLogger(logger *slog.Logger) PublisherOption {
	return func(p *Publisher) { p.logger = logger }
}

// WithSink adds a best-effort secondary sink.
func WithSink(sink Appender) PublisherOption {
	return func(p *Publisher) {
		if sink != nil {
			p.sinks = append(p.sinks, sink)
		}
	}
}

// WithAsyncBuffer switches Emit to a buffered channel drained by a background
// worker. A full buffer drops the record rather than blocking the request
// path; Close drains whatever is queued.
func WithAsyncBuffer(size int) PublisherOption {
	return func(p *Publisher) {
		if size > 0 {
			p.inbox = make(chan Record, size)
		}
	}
}

func NewPublisher(store Store, opts ...PublisherOption) *Publisher {
	p := &Publisher{store: store, logger: slog.Default()}
	for _, opt := range opts {
		opt(p)
	}
	if p.inbox != nil {
		p.wg.Add(1)
		go p.drain()
	}
	return p
}

// Emit records one audit entry. In async mode the write happens in the
// background and a full buffer is reported but not fatal; the primary
// operation must never be aborted by audit failures.
func (p *Publisher) Emit(ctx context.Context, record Record) error {
	if record.ID == "" {
		record.ID = uuid.NewString()
	}
	if record.Timestamp.IsZero() {
		record.Timestamp = time.Now()
	}

	if p.inbox != nil {
		select {
		case p.inbox <- record:
			return nil
		default:
			p.logger.Warn("audit buffer full, dropping record",
				"operator", record.OperatorCode, "operation", record.Operation)
			return nil
		}
	}
	return p.write(ctx, record)
}

// List exposes the primary store's read path for the dashboard.
func (p *Publisher) List(ctx context.Context, operatorCode string, limit int) ([]Record, error) {
	return p.store.ListByOperator(ctx, operatorCode, limit)
}

// Close drains the async buffer and stops the worker. Safe to call twice.
func (p *Publisher) Close() {
	p.once.Do(func() {
		if p.inbox != nil {
			close(p.inbox)
			p.wg.Wait()
		}
	})
}

func (p *Publisher) drain() {
	defer p.wg.Done()
	for record := range p.inbox {
		if err := p.write(context.Background(), record); err != nil {
			p.logger.Error("audit write failed", "error", err,
				"operator", record.OperatorCode, "operation", record.Operation)
		}
	}
}

func (p *Publisher) write(ctx context.Context, record Record) error {
	// Sinks are bounded so a slow stream cannot stall the request path.
	sinkCtx, cancel := context.WithTimeout(context.WithoutCancel(ctx), 2*time.Second)
	defer cancel()
	for _, sink := range p.sinks {
		if err := sink.Append(sinkCtx, record); err != nil {
			p.logger.Warn("audit sink append failed", "error", err)
		}
	}
	return p.store.Append(ctx, record)
}
