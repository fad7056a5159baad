package audit

import (
	"context"
	"sync/atomic"
)

// Sink accepts completed audit records. Append must not block the
// caller on durability: the pipeline treats audit writes as
// fire-and-forget and never delays a response for them.
type Sink interface {
	Append(ctx context.Context, record *Record)
	Close() error
}

// NoopSink discards everything; used when auditing is disabled and in
// tests
type NoopSink struct{}

// Append implements Sink
func (NoopSink) Append(ctx context.Context, record *Record) {}

// Close implements Sink
func (NoopSink) Close() error { return nil }

// MultiSink fans records out to several sinks
type MultiSink struct {
	sinks []Sink
}

// NewMultiSink creates a sink writing to every given sink in order
func NewMultiSink(sinks ...Sink) *MultiSink {
	return &MultiSink{sinks: sinks}
}

// Append implements Sink
func (m *MultiSink) Append(ctx context.Context, record *Record) {
	for _, s := range m.sinks {
		s.Append(ctx, record)
	}
}

// Close implements Sink, closing every underlying sink
func (m *MultiSink) Close() error {
	var firstErr error
	for _, s := range m.sinks {
		if err := s.Close(); err != nil && firstErr == nil {
			firstErr = err
		}
	}
	return firstErr
}

// AsyncSink decouples audit durability from the request path: Append
// enqueues onto a bounded buffer served by one writer goroutine. When
// the buffer is full the record is dropped and counted rather than
// blocking the response.
type AsyncSink struct {
	inner   Sink
	queue   chan *Record
	done    chan struct{}
	dropped atomic.Int64
	onDrop  func()
}

// AsyncOption configures an AsyncSink
type AsyncOption func(*AsyncSink)

// WithDropCallback registers a hook invoked once per dropped record,
// typically to increment a metric
func WithDropCallback(fn func()) AsyncOption {
	return func(s *AsyncSink) { s.onDrop = fn }
}

// NewAsyncSink wraps inner with a buffered writer goroutine. A
// non-positive buffer defaults to 1024.
func NewAsyncSink(inner Sink, buffer int, opts ...AsyncOption) *AsyncSink {
	if buffer <= 0 {
		buffer = 1024
	}
	s := &AsyncSink{
		inner: inner,
		queue: make(chan *Record, buffer),
		done:  make(chan struct{}),
	}
	for _, opt := range opts {
		opt(s)
	}
	go s.run()
	return s
}

func (s *AsyncSink) run() {
	defer close(s.done)
	for record := range s.queue {
		// The writer goroutine owns durability; request handlers have
		// already moved on.
		s.inner.Append(context.Background(), record)
	}
}

// Append implements Sink. Never blocks: a full buffer drops the record.
func (s *AsyncSink) Append(ctx context.Context, record *Record) {
	select {
	case s.queue <- record:
	default:
		s.dropped.Add(1)
		if s.onDrop != nil {
			s.onDrop()
		}
	}
}

// Dropped returns the number of records lost to a full buffer
func (s *AsyncSink) Dropped() int64 {
	return s.dropped.Load()
}

// Close drains the buffer, waits for the writer to finish, and closes
// the inner sink
func (s *AsyncSink) Close() error {
	close(s.queue)
	<-s.done
	return s.inner.Close()
}
