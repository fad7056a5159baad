package audit

import (
	"context"
	"net/http"
	"strings"
	"sync"
	"testing"
	"time"
)

// collectingSink gathers records for assertions
type collectingSink struct {
	mu      sync.Mutex
	records []*Record
	block   chan struct{} // when non-nil, Append waits on it
	closed  bool
}

func (s *collectingSink) Append(ctx context.Context, record *Record) {
	if s.block != nil {
		<-s.block
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	s.records = append(s.records, record)
}

func (s *collectingSink) Close() error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.closed = true
	return nil
}

func (s *collectingSink) len() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return len(s.records)
}

func testRecord(outcome Outcome) *Record {
	return &Record{
		RequestID: "req-1",
		ClientID:  "client-1",
		Endpoint:  "/v1/payments",
		Method:    "POST",
		Outcome:   outcome,
		Status:    http.StatusOK,
		Latency:   12 * time.Millisecond,
		Timestamp: time.Now().UTC(),
	}
}

func TestAsyncSink_Delivers(t *testing.T) {
	inner := &collectingSink{}
	sink := NewAsyncSink(inner, 16)

	for i := 0; i < 5; i++ {
		sink.Append(context.Background(), testRecord(OutcomeAuthenticated))
	}
	if err := sink.Close(); err != nil {
		t.Fatalf("Close() error = %v", err)
	}

	if got := inner.len(); got != 5 {
		t.Errorf("Delivered %d records, want 5", got)
	}
	if !inner.closed {
		t.Error("Close() should close the inner sink")
	}
	if sink.Dropped() != 0 {
		t.Errorf("Dropped = %d, want 0", sink.Dropped())
	}
}

func TestAsyncSink_DropsWhenFull(t *testing.T) {
	release := make(chan struct{})
	inner := &collectingSink{block: release}
	var dropCalls int
	sink := NewAsyncSink(inner, 1, WithDropCallback(func() { dropCalls++ }))

	// The writer goroutine is stuck on the first record; the buffer holds
	// one more. Everything beyond that is dropped without blocking.
	done := make(chan struct{})
	go func() {
		for i := 0; i < 10; i++ {
			sink.Append(context.Background(), testRecord(OutcomeDenied))
		}
		close(done)
	}()

	select {
	case <-done:
	case <-time.After(2 * time.Second):
		t.Fatal("Append must never block the caller")
	}

	close(release)
	sink.Close()

	if sink.Dropped() == 0 {
		t.Error("Overflow records should be counted as dropped")
	}
	if dropCalls != int(sink.Dropped()) {
		t.Errorf("Drop callback ran %d times, want %d", dropCalls, sink.Dropped())
	}
	if delivered := inner.len(); int64(delivered)+sink.Dropped() != 10 {
		t.Errorf("Delivered %d + dropped %d, want total 10", delivered, sink.Dropped())
	}
}

func TestAsyncSink_CloseDrains(t *testing.T) {
	inner := &collectingSink{}
	sink := NewAsyncSink(inner, 64)

	for i := 0; i < 50; i++ {
		sink.Append(context.Background(), testRecord(OutcomeRateLimited))
	}
	sink.Close()

	if got := inner.len(); got != 50 {
		t.Errorf("Close() should drain the buffer, delivered %d of 50", got)
	}
}

func TestMultiSink_FansOut(t *testing.T) {
	a := &collectingSink{}
	b := &collectingSink{}
	sink := NewMultiSink(a, b)

	sink.Append(context.Background(), testRecord(OutcomeAuthenticated))
	if a.len() != 1 || b.len() != 1 {
		t.Errorf("Fan-out delivered %d/%d, want 1/1", a.len(), b.len())
	}

	if err := sink.Close(); err != nil {
		t.Fatalf("Close() error = %v", err)
	}
	if !a.closed || !b.closed {
		t.Error("Close() should close every underlying sink")
	}
}

func TestRecord_ToJSON(t *testing.T) {
	record := testRecord(OutcomeDenied)
	record.Reason = "invalid_credentials"

	data, err := record.ToJSON()
	if err != nil {
		t.Fatalf("ToJSON() error = %v", err)
	}
	for _, want := range []string{`"request_id":"req-1"`, `"outcome":"denied"`, `"reason":"invalid_credentials"`} {
		if !strings.Contains(string(data), want) {
			t.Errorf("JSON %s missing %s", data, want)
		}
	}
}
