package spout

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/wxyBUPT/rocketmq-storm/mq"
)

type fakeConsumer struct {
	deliver mq.DeliverFunc
	initErr error

	paused  bool
	resumed bool
	cleaned bool
}

func (f *fakeConsumer) Init(_ context.Context, deliver mq.DeliverFunc, _ string) error {
	if f.initErr != nil {
		return f.initErr
	}
	f.deliver = deliver
	return nil
}

func (f *fakeConsumer) Pause()  { f.paused = true }
func (f *fakeConsumer) Resume() { f.resumed = true }

func (f *fakeConsumer) Cleanup() error {
	f.cleaned = true
	return nil
}

func (f *fakeConsumer) Partitions() ([]mq.Queue, error) {
	return []mq.Queue{{Topic: "orders", Partition: 0}, {Topic: "orders", Partition: 1}}, nil
}

func TestBatchSpout_EndToEnd(t *testing.T) {
	fc := &fakeConsumer{}
	s := New(fc, 2, "orders")

	if err := s.Open(context.Background(), "7"); err != nil {
		t.Fatalf("Open: %v", err)
	}

	// a partition goroutine delivers a batch through the registered callback
	verdict := make(chan bool, 1)
	go func() {
		verdict <- fc.deliver(context.Background(), makeMsgs(2, 10), mq.Queue{Topic: "orders", Partition: 0})
	}()

	b, err := s.NextBatch(context.Background())
	if err != nil {
		t.Fatalf("NextBatch: %v", err)
	}
	s.Ack(b.ID())

	select {
	case ok := <-verdict:
		if !ok {
			t.Fatal("want success verdict")
		}
	case <-time.After(2 * time.Second):
		t.Fatal("callback never released")
	}

	parts, err := s.Partitions()
	if err != nil || len(parts) != 2 {
		t.Fatalf("Partitions: %v %v", parts, err)
	}

	s.Deactivate()
	s.Activate()
	if !fc.paused || !fc.resumed {
		t.Fatal("pause/resume not forwarded to the consumer")
	}

	if err := s.Close(); err != nil {
		t.Fatalf("Close: %v", err)
	}
	if !fc.cleaned {
		t.Fatal("consumer not cleaned up")
	}
}

func TestBatchSpout_OpenFailureIsFatal(t *testing.T) {
	fc := &fakeConsumer{initErr: errors.New("no brokers")}
	s := New(fc, 2, "orders")
	if err := s.Open(context.Background(), "7"); err == nil {
		t.Fatal("want init error")
	}
}
