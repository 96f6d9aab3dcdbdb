package loop

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/google/uuid"

	"github.com/wxyBUPT/rocketmq-storm/mq"
	"github.com/wxyBUPT/rocketmq-storm/sink"
	"github.com/wxyBUPT/rocketmq-storm/spout"
)

// fakeSpout feeds pre-built batches through a real coordinator so the
// loop exercises the genuine take/ack/fail paths.
func deliverBatch(t *testing.T, c *spout.Coordinator, part int32) <-chan bool {
	t.Helper()
	out := make(chan bool, 1)
	go func() {
		msgs := []*mq.Message{{Topic: "t", Partition: part, Offset: 1, Value: []byte("v")}}
		out <- c.Deliver(context.Background(), msgs, mq.Queue{Topic: "t", Partition: part})
	}()
	return out
}

type captureSink struct {
	mu     sync.Mutex
	pushed []*sink.Frame
}

func (c *captureSink) Configure(any) error { return nil }
func (c *captureSink) Close() error        { return nil }

func (c *captureSink) Push(f *sink.Frame) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.pushed = append(c.pushed, f)
	return nil
}

func (c *captureSink) count() int {
	c.mu.Lock()
	defer c.mu.Unlock()
	return len(c.pushed)
}

type coordSpout struct{ c *spout.Coordinator }

func (s coordSpout) NextBatch(ctx context.Context) (*spout.BatchTuple, error) {
	return s.c.NextBatch(ctx)
}
func (s coordSpout) Ack(id uuid.UUID)  { s.c.Ack(id) }
func (s coordSpout) Fail(id uuid.UUID) { s.c.Fail(id) }

func TestRunner_PushOK_Acks(t *testing.T) {
	coord := spout.NewCoordinator(2)
	cs := &captureSink{}
	r := NewRunner(coordSpout{coord})
	r.AddSink(cs)

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	if err := r.Start(ctx); err != nil {
		t.Fatalf("Start: %v", err)
	}

	verdict := deliverBatch(t, coord, 0)
	select {
	case ok := <-verdict:
		if !ok {
			t.Fatal("want success verdict")
		}
	case <-time.After(2 * time.Second):
		t.Fatal("batch never resolved")
	}
	if cs.count() != 1 {
		t.Fatalf("want 1 pushed frame, got %d", cs.count())
	}

	coord.Shutdown()
	if err := r.Close(); err != nil {
		t.Fatalf("Close: %v", err)
	}
}

func TestRunner_PushError_FailsThenRetries(t *testing.T) {
	coord := spout.NewCoordinator(3)
	cs := &captureSink{}

	// fail the first push of the batch, then let it through
	r := NewRunner(coordSpout{coord})
	r.AddSink(&flakySink{failures: 1, next: cs})

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	if err := r.Start(ctx); err != nil {
		t.Fatalf("Start: %v", err)
	}

	verdict := deliverBatch(t, coord, 1)
	select {
	case ok := <-verdict:
		if !ok {
			t.Fatal("want success after retry")
		}
	case <-time.After(2 * time.Second):
		t.Fatal("batch never resolved")
	}
	if cs.count() != 1 {
		t.Fatalf("want exactly 1 successful push, got %d", cs.count())
	}

	coord.Shutdown()
	if err := r.Close(); err != nil {
		t.Fatalf("Close: %v", err)
	}
}

// flakySink errors a fixed number of times before delegating.
type flakySink struct {
	mu       sync.Mutex
	failures int
	next     sink.Adapter
}

func (f *flakySink) Configure(any) error { return nil }
func (f *flakySink) Close() error        { return f.next.Close() }

func (f *flakySink) Push(fr *sink.Frame) error {
	f.mu.Lock()
	if f.failures > 0 {
		f.failures--
		f.mu.Unlock()
		return errors.New("transient sink error")
	}
	f.mu.Unlock()
	return f.next.Push(fr)
}

func TestRunner_TerminalFailureReleasesCallback(t *testing.T) {
	coord := spout.NewCoordinator(1)
	r := NewRunner(coordSpout{coord})
	r.AddSink(&flakySink{failures: 10, next: &captureSink{}})

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	if err := r.Start(ctx); err != nil {
		t.Fatalf("Start: %v", err)
	}

	verdict := deliverBatch(t, coord, 2)
	select {
	case ok := <-verdict:
		if ok {
			t.Fatal("want failure verdict after retries exhausted")
		}
	case <-time.After(2 * time.Second):
		t.Fatal("batch never resolved")
	}

	coord.Shutdown()
	if err := r.Close(); err != nil {
		t.Fatalf("Close: %v", err)
	}
}
